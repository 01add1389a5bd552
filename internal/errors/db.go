package errors

import (
	"context"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts the field name from a unique violation detail:
// "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances:
// pgx.ErrNoRows → NotFound, unique violations → Conflict (duplicate
// email is the interesting case here), NOT NULL and check violations →
// Validation, context deadline/cancel → Timeout/Canceled. Unrecognized
// errors pass through unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return mapUniqueViolation(pgErr)
	case pgerrcode.NotNullViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "This field is required.",
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Invalid data. Please check your input.",
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgerrcode.ForeignKeyViolation:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "The referenced account does not exist.",
			Cause:   pgErr,
		}
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "A database error occurred. Please try again.",
			Cause:   pgErr,
		}
	}
}

func mapUniqueViolation(pgErr *pgconn.PgError) error {
	field := pgErr.ColumnName
	if field == "" && pgErr.Detail != "" {
		if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			field = m[1]
		}
	}

	message := "This value already exists. Please choose a different one."
	if field == "email" {
		message = "Email already registered"
	}

	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Field:   field,
		Cause:   pgErr,
	}
}
