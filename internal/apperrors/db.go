package apperrors

import (
	"context"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts the column from a unique violation detail: "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances:
//   - pgx.ErrNoRows → NotFound
//   - unique violation → Conflict (Field set to the offending column)
//   - check / not-null / foreign key violation → Validation
//   - context deadline or cancellation → Internal
//
// Errors that are already AppErrors, or are unrecognized, are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Internal("database operation interrupted", err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Code: CodeNotFound, Message: "resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			field := ""
			if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
				field = m[1]
			}
			return &AppError{Code: CodeConflict, Message: "value already exists", Field: field, Cause: err}
		case pgerrcode.CheckViolation:
			return &AppError{Code: CodeValidation, Message: "value violates a constraint", Field: pgErr.ConstraintName, Cause: err}
		case pgerrcode.NotNullViolation:
			return &AppError{Code: CodeValidation, Message: "required value missing", Field: pgErr.ColumnName, Cause: err}
		case pgerrcode.ForeignKeyViolation:
			return &AppError{Code: CodeValidation, Message: "referenced record does not exist", Field: pgErr.ConstraintName, Cause: err}
		}
	}

	return err
}
