package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrQueryFailed       = errors.New("query failed")
	ErrUserNotFound      = errors.New("user not found")
	ErrNotConnected      = errors.New("no active database connection")
	ErrUnsupportedDriver = errors.New("unsupported driver")
)

// QueryError is returned when the database rejects a statement.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQueryFailed, e.Message())
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// Message returns the driver's own description of the failure.
func (e *QueryError) Message() string {
	var pqErr *pq.Error
	if errors.As(e.Err, &pqErr) {
		if pqErr.Detail != "" {
			return pqErr.Message + " (" + pqErr.Detail + ")"
		}
		return pqErr.Message
	}

	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		if pgErr.Detail != "" {
			return pgErr.Message + " (" + pgErr.Detail + ")"
		}
		return pgErr.Message
	}

	return e.Err.Error()
}

// Code returns the SQLSTATE of the failure, if the driver reported one.
func (e *QueryError) Code() string {
	var pqErr *pq.Error
	if errors.As(e.Err, &pqErr) {
		return string(pqErr.Code)
	}

	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func queryError(err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Err: err}
}
