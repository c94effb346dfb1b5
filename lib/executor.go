// Package analytics runs the read-only reporting queries behind the
// dashboard API and turns their rows into JSON-safe values.
package analytics

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("analytics")

// Executor runs queries against the analytics database. Each call holds
// one dedicated connection for the lifetime of the query and returns it
// before the call returns, whatever the outcome.
type Executor struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithQueryTimeout bounds every query. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.queryTimeout = d
	}
}

// NewExecutor wraps an opened database handle.
func NewExecutor(db *sql.DB, opts ...Option) *Executor {
	e := &Executor{db: db}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Open creates an Executor backed by a PostgreSQL pool. No connection is
// made until the first query.
func Open(cfg DatabaseConfig) (*Executor, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open analytics database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return NewExecutor(db, WithQueryTimeout(cfg.QueryTimeout)), nil
}

// Close closes the underlying pool.
func (e *Executor) Close() error {
	return e.db.Close()
}

// Ping checks that a connection to the database can be established.
func (e *Executor) Ping(ctx context.Context) error {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return NewConnectionError(err)
	}
	defer e.release(ctx, conn)

	if err := conn.PingContext(ctx); err != nil {
		return NewConnectionError(err)
	}

	return nil
}

// Execute runs query with the bound args and returns every row.
func (e *Executor) Execute(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	ctx, span := tracer.Start(ctx, "Executor.Execute")
	defer span.End()

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	span.AddEvent("conn.acquire")
	conn, err := e.db.Conn(ctx)
	if err != nil {
		if isContextError(err) {
			return nil, fail(span, NewQueryError(err))
		}
		return nil, fail(span, NewConnectionError(err))
	}
	defer e.release(ctx, conn)

	span.AddEvent("conn.query")
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fail(span, classifyError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.WarnContext(ctx, "close result", slog.Any("error", err))
		}
	}()

	span.AddEvent("construct_result")
	result, err := collect(rows)
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Int("analytics.rows", result.Len()))
	span.SetStatus(codes.Ok, "success")

	return result, nil
}

// ExecuteOne runs query and returns its first row. A query that produces
// no rows fails with EmptyResultError. The row is a map, so select-list
// order is not kept; use Execute and ResultSet.Columns when it matters.
func (e *Executor) ExecuteOne(ctx context.Context, query string, args ...any) (Row, error) {
	result, err := e.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if result.Len() == 0 {
		return nil, NewEmptyResultError()
	}

	return result.Rows[0], nil
}

func (e *Executor) release(ctx context.Context, conn *sql.Conn) {
	if err := conn.Close(); err != nil {
		slog.WarnContext(ctx, "release connection", slog.Any("error", err))
	}
}

func collect(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, classifyError(fmt.Errorf("get columns: %w", err))
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, classifyError(fmt.Errorf("get column types: %w", err))
	}

	result := &ResultSet{
		Columns: cols,
		Rows:    []Row{},
	}

	for rows.Next() {
		cells := make([]any, 0, len(cols))
		for _, ct := range colTypes {
			cells = append(cells, NewValueScanner(ct.DatabaseTypeName()))
		}

		if err := rows.Scan(cells...); err != nil {
			return nil, NewQueryError(fmt.Errorf("scan: %w", err))
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = cells[i].(*ValueScanner).Value()
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	return result, nil
}

// classifyError sorts a driver error into ConnectionError or QueryError.
func classifyError(err error) error {
	if isConnectionFailure(err) {
		return NewConnectionError(err)
	}

	return NewQueryError(err)
}

func isConnectionFailure(err error) bool {
	if isContextError(err) {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "28":
			// connection_exception, invalid_authorization_specification
			return true
		}
		switch pqErr.Code {
		case "57P01", "57P02", "57P03":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func fail(span trace.Span, err error) error {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	return err
}
