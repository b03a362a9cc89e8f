// Package paramexpr parses --param name=value flags into named values.
//
// Values are literals: integers, floats, quoted strings, true/false, null,
// and bracketed lists of those. Any other unquoted word, such as a date or an
// email address, is taken as a string.
package paramexpr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ParamLexer defines the token types of a parameter assignment. Any run of
// characters other than whitespace, brackets, commas, quotes and '=' is a Word;
// Literal decides what a Word means.
var ParamLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Word", Pattern: `[^\s\[\],='"]+`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Equal", Pattern: `=`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var (
	nameRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)
	intRe   = regexp.MustCompile(`^[-+]?\d+$`)
	floatRe = regexp.MustCompile(`^[-+]?(?:\d+\.\d+|\d+(?:\.\d+)?[eE][-+]?\d+)$`)
)

// Assignment is one name=value pair.
type Assignment struct {
	Name  string `parser:"@Word Equal"`
	Value *Value `parser:"@@"`
}

// Literal is an unquoted value: an integer, a float, true/false, null, or
// otherwise a plain string.
type Literal struct {
	v any
}

// Capture implements participle.Capture.
func (l *Literal) Capture(values []string) error {
	word := values[0]
	switch {
	case intRe.MatchString(word):
		i, err := strconv.ParseInt(word, 10, 64)
		if err != nil {
			return err
		}
		l.v = i
	case floatRe.MatchString(word):
		f, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return err
		}
		l.v = f
	case word == "true", word == "false":
		l.v = word == "true"
	case word == "null":
		l.v = nil
	default:
		l.v = word
	}
	return nil
}

// Value is a quoted string, a list, or a bare literal.
type Value struct {
	String  *string  `parser:"  @String"`
	List    []*Value `parser:"| LBracket ( @@ ( Comma @@ )* )? RBracket"`
	Literal *Literal `parser:"| @Word"`
}

// Go converts the value to a Go value. Lists become []any.
func (v *Value) Go() any {
	switch {
	case v.String != nil:
		return *v.String
	case v.Literal != nil:
		return v.Literal.v
	}
	items := make([]any, len(v.List))
	for i, item := range v.List {
		items[i] = item.Go()
	}
	return items
}

var parser = participle.MustBuild[Assignment](
	participle.Lexer(ParamLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses a single name=value assignment.
func Parse(input string) (string, any, error) {
	a, err := parser.ParseString("param", input)
	if err != nil {
		return "", nil, fmt.Errorf("invalid parameter %q: %w", input, err)
	}
	if !nameRe.MatchString(a.Name) {
		return "", nil, fmt.Errorf("invalid parameter %q: bad name %q", input, a.Name)
	}
	return a.Name, a.Value.Go(), nil
}

// ParseAll parses every assignment into one map. A repeated name keeps the last value.
func ParseAll(inputs []string) (map[string]any, error) {
	values := make(map[string]any, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			continue
		}
		name, value, err := Parse(in)
		if err != nil {
			return nil, err
		}
		values[name] = value
	}
	return values, nil
}
