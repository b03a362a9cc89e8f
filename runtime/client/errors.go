package client

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrConnection is wrapped by every ConnectionError.
	ErrConnection = errors.New("connection failed")
	// ErrTxConnectionLost means the connection dropped while a transaction was open.
	ErrTxConnectionLost = errors.New("connection lost inside an open transaction")
	// ErrQuery is wrapped by every QueryError.
	ErrQuery = errors.New("query failed")
	// ErrNoTransaction is returned by Commit and Rollback without an open transaction.
	ErrNoTransaction = errors.New("no open transaction")
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("client is closed")
)

// Client-side codes for a dropped server connection.
const (
	CodeServerGone = 2006
	CodeServerLost = 2013
)

// ConnectionError reports a failed connect, or a lost connection that could
// not be restored because a transaction was open.
type ConnectionError struct {
	Code    uint16
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mysql connection error %d: %s", e.Code, e.Message)
	}
	return "mysql connection error: " + e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is matches ErrConnection.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// QueryError reports a prepare, bind, execute or fetch failure.
type QueryError struct {
	Code    uint16
	Message string
	SQL     string
	Params  map[string]any
	Err     error
}

func (e *QueryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mysql query error %d: %s (sql: %s)", e.Code, e.Message, e.SQL)
	}
	return fmt.Sprintf("mysql query error: %s (sql: %s)", e.Message, e.SQL)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is matches ErrQuery.
func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

// IsConnectionError reports whether err is or wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsQueryError reports whether err is or wraps a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// nativeError extracts the server code and message of err.
func nativeError(err error) (uint16, string) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number, me.Message
	}
	return 0, err.Error()
}

func newConnectionError(err error) *ConnectionError {
	code, msg := nativeError(err)
	return &ConnectionError{Code: code, Message: msg, Err: err}
}

func newQueryError(err error, sqlText string, params map[string]any) *QueryError {
	code, msg := nativeError(err)
	return &QueryError{Code: code, Message: msg, SQL: sqlText, Params: params, Err: err}
}

// isServerGone reports whether err means the connection is unusable.
func isServerGone(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	code, _ := nativeError(err)
	return code == CodeServerGone || code == CodeServerLost
}
