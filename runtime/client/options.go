package client

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/quarrydb/quarry/telemetry"
)

const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 3306
	DefaultCharset = "utf8mb4"
)

// Options configures the connection. Every field is optional.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Schema   string
	Charset  string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// StmtCache enables reuse of prepared statements keyed by SQL text.
	StmtCache bool
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = DefaultHost
	}
	if o.Port <= 0 {
		o.Port = DefaultPort
	}
	if o.Charset == "" {
		o.Charset = DefaultCharset
	}
	return o
}

// Addr returns host:port with defaults applied.
func (o Options) Addr() string {
	o = o.withDefaults()
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// DSN renders the options as a go-sql-driver/mysql data source name.
func (o Options) DSN() string {
	o = o.withDefaults()

	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = o.Addr()
	cfg.DBName = o.Schema
	cfg.Timeout = o.ConnectTimeout
	cfg.ReadTimeout = o.ReadTimeout
	cfg.WriteTimeout = o.WriteTimeout

	dsn := cfg.FormatDSN()
	sep := "?"
	if hasParams(dsn) {
		sep = "&"
	}
	return dsn + sep + "charset=" + url.QueryEscape(o.Charset)
}

// Config parses DSN back into a driver configuration.
func (o Options) Config() (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(o.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid connection options: %w", err)
	}
	return cfg, nil
}

// OptionsFromDSN parses a go-sql-driver/mysql data source name.
func OptionsFromDSN(dsn string) (Options, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return Options{}, fmt.Errorf("invalid DSN: %w", err)
	}

	opts := Options{
		User:           cfg.User,
		Password:       cfg.Passwd,
		Schema:         cfg.DBName,
		ConnectTimeout: cfg.Timeout,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
	}

	if cfg.Net == "tcp" && cfg.Addr != "" {
		host, port, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return Options{}, fmt.Errorf("invalid DSN address %q: %w", cfg.Addr, err)
		}
		opts.Host = host
		if opts.Port, err = strconv.Atoi(port); err != nil {
			return Options{}, fmt.Errorf("invalid DSN port %q: %w", port, err)
		}
	}

	if i := strings.LastIndex(dsn, "/"); i >= 0 {
		if _, rawQuery, ok := strings.Cut(dsn[i:], "?"); ok {
			if q, err := url.ParseQuery(rawQuery); err == nil {
				charset, _, _ := strings.Cut(q.Get("charset"), ",")
				opts.Charset = charset
			}
		}
	}

	return opts.withDefaults(), nil
}

// hasParams reports whether dsn already carries a parameter section.
func hasParams(dsn string) bool {
	i := strings.LastIndex(dsn, "/")
	return i >= 0 && strings.Contains(dsn[i:], "?")
}

// Option configures a Client.
type Option func(*Client)

// WithConnector replaces the MySQL connector, e.g. with a test double.
func WithConnector(connector Connector) Option {
	return func(c *Client) {
		c.connector = connector
	}
}

// WithLogger sets the logger. The default is the package debug logger tagged "mysql".
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// WithRecorder sets the telemetry sink for connect, prepare and query timers.
func WithRecorder(rec telemetry.Recorder) Option {
	return func(c *Client) {
		c.recorder = rec
	}
}

// WithMiddleware appends query middleware.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(c *Client) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// WithStmtCache overrides Options.StmtCache.
func WithStmtCache(enabled bool) Option {
	return func(c *Client) {
		c.cacheEnabled = enabled
	}
}
