package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cast"

	"github.com/quarrydb/quarry/query"
)

var (
	// Out receives all regular output
	Out io.Writer = os.Stdout
	// Err receives error output
	Err io.Writer = os.Stderr

	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// NullText is shown for SQL NULL cells
const NullText = "NULL"

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	fmt.Fprintln(Out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	fmt.Fprintln(Err, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	fmt.Fprintln(Out, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	fmt.Fprintln(Out, InfoStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// PrintSection prints a section header
func PrintSection(title string) {
	section := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(SecondaryColor).
		Render(TitleStyle.Render(title))

	fmt.Fprintln(Out, section)
}

// PrintTable prints a table using pterm
func PrintTable(headers []string, rows [][]string) error {
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)
	return pterm.DefaultTable.WithHasHeader().WithWriter(Out).WithData(tableData).Render()
}

// PrintKeyValues prints a sorted two-column table
func PrintKeyValues(keyHeader, valueHeader string, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, FormatValue(values[k])})
	}
	return PrintTable([]string{keyHeader, valueHeader}, rows)
}

// FormatValue renders a cell or parameter value for display
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return NullText
	case []byte:
		return string(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// RowTable converts a row set into table headers and cells
func RowTable(rows *query.Rows) ([]string, [][]string) {
	headers := rows.Columns()
	cells := make([][]string, 0, rows.RowsCount())
	for _, row := range rows.FetchAll() {
		line := make([]string, len(headers))
		for i, col := range headers {
			line[i] = FormatValue(row[col])
		}
		cells = append(cells, line)
	}
	return headers, cells
}

// PrintResult prints a row set as a table, or a summary for writes
func PrintResult(res query.Result) error {
	switch r := res.(type) {
	case *query.Rows:
		headers, cells := RowTable(r)
		if len(headers) > 0 {
			if err := PrintTable(headers, cells); err != nil {
				return err
			}
		}
		ColorPrint(Printers()["secondary"], "%d row(s)\n", len(cells))
	case *query.ExecResult:
		ColorPrint(Printers()["success"], "Query OK, %d row(s) affected", r.RowsCount())
		if r.InsertID() > 0 {
			ColorPrint(Printers()["info"], ", last insert id %d", r.InsertID())
		}
		fmt.Fprintln(Out)
	default:
		return fmt.Errorf("unexpected result type %T", res)
	}
	return nil
}

// PrintMarkdown renders markdown content
func PrintMarkdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}

	fmt.Fprint(Out, out)
	return nil
}

// PrintCodeBlock prints code in a styled block
func PrintCodeBlock(code string) {
	codeStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SecondaryColor).
		Padding(0, 1)

	fmt.Fprintln(Out, codeStyle.Render(code))
}

// ColorPrint uses fatih/color for simple colored output
func ColorPrint(c *color.Color, format string, args ...interface{}) {
	c.Fprintf(Out, format, args...)
}

// Printers returns color printers for common use cases
func Printers() map[string]*color.Color {
	return map[string]*color.Color{
		"success":   color.New(color.FgGreen, color.Bold),
		"error":     color.New(color.FgRed, color.Bold),
		"warning":   color.New(color.FgYellow, color.Bold),
		"info":      color.New(color.FgCyan),
		"secondary": color.New(color.FgHiBlack),
	}
}
