package core

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error taxonomy. Every error returned by a service wraps exactly one of these,
// so adapters can pick a status with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")
)

// FieldErrors carries per-field messages alongside ErrValidation.
type FieldErrors map[string]string

// ValidationError is a validation failure with optional per-field detail.
type ValidationError struct {
	Message string
	Fields  FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// fromValidation converts ozzo-validation output into a ValidationError.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		fields := make(FieldErrors, len(errs))
		for field, fe := range errs {
			fields[field] = fe.Error()
		}
		return &ValidationError{Message: err.Error(), Fields: fields}
	}
	return &ValidationError{Message: err.Error()}
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// pgErrorCode returns the SQLSTATE of a PostgreSQL error, or "".
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translateDBError maps driver errors onto the taxonomy. what names the entity
// being read or written and ends up in the user-facing message.
func translateDBError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrInternal) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFoundf("%s not found", what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return conflictf("%s already exists", what)
		case pgForeignKeyViolation:
			return conflictf("%s is referenced by other records", what)
		case "23514", "22P02", "22003":
			return validationErrorf("invalid %s: %s", what, pgErr.Message)
		}
	}

	return fmt.Errorf("%w: %s: %v", ErrInternal, what, err)
}
