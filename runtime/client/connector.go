package client

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Conn is the single physical connection a Client drives.
type Conn interface {
	PingContext(ctx context.Context) error
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

// Connector opens a new physical connection.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Conn, error)

// Connect calls f(ctx).
func (f ConnectorFunc) Connect(ctx context.Context) (Conn, error) { return f(ctx) }

// DBConn pins one connection of db. Closing it closes db as well.
type DBConn struct {
	*sql.Conn
	db *sql.DB
}

// NewDBConn takes a dedicated connection from db.
func NewDBConn(ctx context.Context, db *sql.DB) (*DBConn, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DBConn{Conn: conn, db: db}, nil
}

// Close returns the connection and closes the pool behind it.
func (c *DBConn) Close() error {
	err := c.Conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		err = nil
	}
	return errors.Join(err, c.db.Close())
}

// MySQLConnector dials MySQL with go-sql-driver/mysql.
type MySQLConnector struct {
	Config *mysql.Config
}

// NewMySQLConnector builds a connector from opts.
func NewMySQLConnector(opts Options) (*MySQLConnector, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, err
	}
	return &MySQLConnector{Config: cfg}, nil
}

// Connect implements Connector. The pool behind the returned Conn never
// holds more than one connection.
func (m *MySQLConnector) Connect(ctx context.Context) (Conn, error) {
	connector, err := mysql.NewConnector(m.Config)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return NewDBConn(ctx, db)
}
