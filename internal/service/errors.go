package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Clark-Hu/book-review-api/internal/domain"
)

var (
	// ErrInvalidRating is a user input error raised before any mutation.
	ErrInvalidRating = domain.ErrInvalidRating
	// ErrRatingOutOfRange means a storage rating constraint tripped; the engine
	// validates first, so reaching it indicates a bug.
	ErrRatingOutOfRange = errors.New("rating out of range, ensure it is between [0, 5]")
	ErrResourceNotFound = errors.New("resource not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrDuplicateComment = errors.New("user already has a live comment on this resource")
	ErrDuplicateISBN    = errors.New("a book with this isbn already exists")
	// ErrISBNHeldByDeleted asks the caller to hard-delete the old book first.
	ErrISBNHeldByDeleted = errors.New("a soft-deleted book holds this isbn, hard-delete it first")
	ErrInvalidInput      = errors.New("invalid input")
	// ErrInternalPersistence wraps any other storage failure.
	ErrInternalPersistence = errors.New("internal persistence error")
)

var domainErrors = []error{
	ErrInvalidRating, ErrRatingOutOfRange, ErrResourceNotFound, ErrCommentNotFound,
	ErrDuplicateComment, ErrDuplicateISBN, ErrISBNHeldByDeleted, ErrInvalidInput,
	ErrInternalPersistence,
}

const isbnUniqueConstraint = "books_isbn_key"

// invalidInput wraps ErrInvalidInput with a field-level detail.
func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// classify maps low-level persistence failures onto the error taxonomy.
// Errors that already belong to it pass through untouched.
func classify(err error, kind domain.Kind) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			switch pgErr.ConstraintName {
			case kind.LiveUniqueKey:
				return ErrDuplicateComment
			case isbnUniqueConstraint:
				return ErrDuplicateISBN
			}
		case pgerrcode.CheckViolation:
			if strings.Contains(pgErr.ConstraintName, "rating") {
				return fmt.Errorf("%w (%s)", ErrRatingOutOfRange, pgErr.ConstraintName)
			}
			return invalidInput("constraint %s violated", pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %w", ErrInternalPersistence, err)
}

// resultLabel names an outcome for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRating):
		return "invalid_rating"
	case errors.Is(err, ErrRatingOutOfRange):
		return "rating_out_of_range"
	case errors.Is(err, ErrResourceNotFound), errors.Is(err, ErrCommentNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateComment), errors.Is(err, ErrDuplicateISBN), errors.Is(err, ErrISBNHeldByDeleted):
		return "conflict"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
