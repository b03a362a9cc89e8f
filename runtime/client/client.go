// Package client drives a single MySQL connection: lazy connect, liveness
// probe with one reconnect, prepared statement reuse and nested transaction
// emulation.
//
// A Client is not safe for concurrent use. Callers serialize access or keep
// one Client per worker.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/quarrydb/quarry/internal/debug"
	"github.com/quarrydb/quarry/query"
	"github.com/quarrydb/quarry/query/builder"
	"github.com/quarrydb/quarry/query/cache"
	"github.com/quarrydb/quarry/query/params"
	"github.com/quarrydb/quarry/telemetry"
)

// Timer names reported to the Recorder.
const (
	TimerConnect    = "mysql:connect"
	TimerCreateStmt = "mysql:create_stmt"
	TimerQuery      = "mysql:query"
)

// Client executes statements over one lazily opened connection.
type Client struct {
	opts      Options
	connector Connector
	conn      Conn

	stmts        *cache.StmtCache
	cacheEnabled bool

	txDepth int
	closed  bool

	log         *slog.Logger
	recorder    telemetry.Recorder
	middlewares []Middleware
}

// New creates a client. No connection is made until the first statement.
func New(opts Options, options ...Option) (*Client, error) {
	c := &Client{
		opts:         opts.withDefaults(),
		stmts:        cache.NewStmtCache(),
		cacheEnabled: opts.StmtCache,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.connector == nil {
		connector, err := NewMySQLConnector(c.opts)
		if err != nil {
			return nil, err
		}
		c.connector = connector
	}
	if c.recorder == nil {
		c.recorder = telemetry.RecorderFunc(func(e telemetry.Event) {
			telemetry.SlogRecorder{Logger: c.logger()}.Record(e)
		})
	}
	return c, nil
}

// Options returns the effective connection options.
func (c *Client) Options() Options {
	return c.opts
}

func (c *Client) logger() *slog.Logger {
	if c.log != nil {
		return c.log
	}
	return debug.Tagged("mysql")
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	return c.conn != nil
}

// StmtCacheEnabled reports whether prepared statements are reused.
func (c *Client) StmtCacheEnabled() bool {
	return c.cacheEnabled
}

// SetStmtCacheEnabled toggles statement reuse. Disabling closes every cached statement.
func (c *Client) SetStmtCacheEnabled(enabled bool) {
	if c.cacheEnabled && !enabled {
		if err := c.stmts.Close(); err != nil {
			c.logger().Warn("failed to close cached statements", "error", err)
		}
	}
	c.cacheEnabled = enabled
}

// CacheStats returns prepared statement cache statistics.
func (c *Client) CacheStats() cache.Stats {
	return c.stmts.GetStats()
}

// Build starts a statement builder executing through c.
func (c *Client) Build() builder.Builder {
	return builder.New(c)
}

// Ping makes sure a live connection is available, reconnecting once if
// the server went away outside a transaction.
func (c *Client) Ping(ctx context.Context) error {
	return c.ensureConn(ctx)
}

// ServerVersion returns the server's VERSION() string.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	res, err := c.QueryRaw(ctx, "SELECT VERSION() AS version")
	if err != nil {
		return "", err
	}
	row, ok := res.FetchAssoc()
	if !ok {
		return "", fmt.Errorf("server returned no version")
	}
	return row.String("version"), nil
}

// connect opens a new connection.
func (c *Client) connect(ctx context.Context) error {
	timer := telemetry.NewTimer(c.recorder, TimerConnect).
		AddData(map[string]any{"addr": c.opts.Addr(), "schema": c.opts.Schema}).
		Start()
	defer timer.StopWithFail()

	conn, err := c.connector.Connect(ctx)
	if err != nil {
		c.logger().Error("connect failed", "addr", c.opts.Addr(), "error", err)
		return newConnectionError(err)
	}
	c.conn = conn
	timer.StopWithSuccess()

	c.logger().Debug("connected", "addr", c.opts.Addr(), "schema", c.opts.Schema)
	return nil
}

// ensureConn connects on first use and probes the connection before reuse.
func (c *Client) ensureConn(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return c.connect(ctx)
	}

	err := c.conn.PingContext(ctx)
	if err == nil {
		return nil
	}
	if !isServerGone(err) {
		return err
	}
	if c.txDepth > 0 {
		c.logger().Error("connection lost inside transaction", "depth", c.txDepth, "error", err)
		code, msg := nativeError(err)
		return &ConnectionError{Code: code, Message: msg, Err: errors.Join(ErrTxConnectionLost, err)}
	}

	c.logger().Warn("server has gone away, reconnecting", "error", err)
	c.release()
	return c.connect(ctx)
}

// release closes cached statements, then the connection.
func (c *Client) release() error {
	errStmts := c.stmts.Close()
	var errConn error
	if c.conn != nil {
		errConn = c.conn.Close()
		c.conn = nil
	}
	return errors.Join(errStmts, errConn)
}

// Close releases the connection. An open transaction is abandoned with a
// warning and the server rolls it back when the connection closes.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.txDepth > 0 {
		c.logger().Warn("closing connection with an unclosed transaction", "depth", c.txDepth)
		c.txDepth = 0
	}
	if err := c.release(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// Query binds values into template, prepares (or reuses) the statement and
// executes it. Row producing statements return *query.Rows, others
// *query.ExecResult.
func (c *Client) Query(ctx context.Context, template string, values map[string]any) (query.Result, error) {
	bound, err := params.Bind(template, values)
	if err != nil {
		return nil, err
	}

	var res query.Result
	err = c.executeWithMiddleware(ctx, bound.SQL, bound.Args(), func() error {
		if err := c.ensureConn(ctx); err != nil {
			return err
		}

		stmt, cached, err := c.prepare(ctx, bound.SQL)
		if err != nil {
			return newQueryError(err, template, values)
		}
		if !cached {
			defer stmt.Close()
		}

		res, err = c.execute(ctx, bound, func(args []any) (*sql.Rows, error) {
			return stmt.QueryContext(ctx, args...)
		}, func(args []any) (sql.Result, error) {
			return stmt.ExecContext(ctx, args...)
		})
		if err != nil {
			return newQueryError(err, template, values)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// QueryRaw executes text as is, without placeholder handling or preparing.
func (c *Client) QueryRaw(ctx context.Context, text string) (query.Result, error) {
	bound := &params.Bound{Template: text, SQL: text}

	var res query.Result
	err := c.executeWithMiddleware(ctx, text, nil, func() error {
		if err := c.ensureConn(ctx); err != nil {
			return err
		}

		var err error
		res, err = c.execute(ctx, bound, func([]any) (*sql.Rows, error) {
			return c.conn.QueryContext(ctx, text)
		}, func([]any) (sql.Result, error) {
			return c.conn.ExecContext(ctx, text)
		})
		if err != nil {
			return newQueryError(err, text, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// prepare returns a statement for sqlText and whether it is owned by the cache.
func (c *Client) prepare(ctx context.Context, sqlText string) (*sql.Stmt, bool, error) {
	if c.cacheEnabled {
		if stmt, ok := c.stmts.Get(sqlText); ok {
			return stmt, true, nil
		}
	}

	timer := telemetry.NewTimer(c.recorder, TimerCreateStmt).
		AddData(map[string]any{"sql": sqlText}).
		Start()
	defer timer.StopWithFail()

	stmt, err := c.conn.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, false, err
	}
	timer.StopWithSuccess()

	if c.cacheEnabled {
		c.stmts.Put(sqlText, stmt)
		return stmt, true, nil
	}
	return stmt, false, nil
}

// execute runs a bound statement through rows or exec depending on its
// leading keyword and materializes the outcome.
func (c *Client) execute(
	ctx context.Context,
	bound *params.Bound,
	rows func(args []any) (*sql.Rows, error),
	exec func(args []any) (sql.Result, error),
) (query.Result, error) {
	timer := telemetry.NewTimer(c.recorder, TimerQuery).
		AddData(map[string]any{"sql": bound.SQL, "types": bound.Types()}).
		Start()
	defer timer.StopWithFail()

	c.logger().Debug("query", "sql", bound.SQL, "params", len(bound.Params))

	var (
		res query.Result
		err error
	)
	if ReturnsRows(bound.SQL) {
		res, err = c.fetch(rows(bound.Args()))
	} else {
		var out sql.Result
		if out, err = exec(bound.Args()); err == nil {
			res, err = query.NewExecResult(out)
		}
	}
	if err != nil {
		c.logger().Debug("query failed", "sql", bound.SQL, "error", err)
		return nil, err
	}

	timer.StopWithSuccess()
	c.logger().Debug("result", "rows", res.RowsCount(), "insert_id", res.InsertID())
	return res, nil
}

func (c *Client) fetch(rs *sql.Rows, err error) (query.Result, error) {
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	return query.ScanRows(rs)
}

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"WITH":     true,
	"VALUES":   true,
	"TABLE":    true,
}

// ReturnsRows reports whether sqlText produces a row-set, judged by its
// first keyword. Leading whitespace, comments and opening parentheses are
// skipped. CALL is treated as a write; procedures returning rows need QueryRaw
// on a SELECT of their output instead.
func ReturnsRows(sqlText string) bool {
	s := skipPrefix(sqlText)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end >= 0 {
		s = s[:end]
	}
	return rowKeywords[strings.ToUpper(s)]
}

// skipPrefix drops whitespace, opening parentheses and comments before the
// first keyword. An unterminated block comment leaves nothing.
func skipPrefix(s string) string {
	for {
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return r == '(' || unicode.IsSpace(r)
		})
		switch {
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s[2:], "*/")
			if end < 0 {
				return ""
			}
			s = s[end+4:]
		case strings.HasPrefix(s, "#"), isDashComment(s):
			end := strings.IndexByte(s, '\n')
			if end < 0 {
				return ""
			}
			s = s[end+1:]
		default:
			return s
		}
	}
}

// isDashComment reports whether s starts with "-- ", which MySQL requires to
// be followed by whitespace or the end of input.
func isDashComment(s string) bool {
	if !strings.HasPrefix(s, "--") {
		return false
	}
	return len(s) == 2 || unicode.IsSpace(rune(s[2]))
}
