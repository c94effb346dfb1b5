package analytics

import "errors"

// ConnectionError is returned when the database cannot be reached or
// refuses the session.
type ConnectionError struct {
	Parent error
}

// QueryError is returned when the database rejects a query.
type QueryError struct {
	Parent error
}

// ErrEmptyResult is the parent of every EmptyResultError.
var ErrEmptyResult = errors.New("query returned no rows")

// EmptyResultError is returned by ExecuteOne when the query produced no rows.
type EmptyResultError struct {
	Parent error
}

func NewConnectionError(err error) error {
	return ConnectionError{Parent: err}
}

func NewQueryError(err error) error {
	return QueryError{Parent: err}
}

func NewEmptyResultError() error {
	return EmptyResultError{Parent: ErrEmptyResult}
}

func (e ConnectionError) Error() string {
	return "connection error: " + e.Parent.Error()
}

func (e QueryError) Error() string {
	return "query error: " + e.Parent.Error()
}

func (e EmptyResultError) Error() string {
	return "empty result: " + e.Parent.Error()
}

func (e ConnectionError) Unwrap() error { return e.Parent }

func (e QueryError) Unwrap() error { return e.Parent }

func (e EmptyResultError) Unwrap() error { return e.Parent }
