package services

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrNotFound is matched by every "record does not exist" error below.
	ErrNotFound = errors.New("not found")

	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = fmt.Errorf("book %w", ErrNotFound)

	// ErrBorrowingNotFound is returned when the borrowing does not exist or belongs to
	// somebody else.
	ErrBorrowingNotFound = fmt.Errorf("borrowing %w", ErrNotFound)

	// ErrBookUnavailable is returned when no copy of the book is left to borrow.
	ErrBookUnavailable = errors.New("unfortunately, this book is unavailable for borrowing right now")

	// ErrInvalidReturnDate is returned when the expected return date is not after today.
	ErrInvalidReturnDate = errors.New("the expected return date cannot be earlier than tomorrow")

	// ErrDuplicateActiveBorrow is returned when the user already holds an active
	// borrowing of the same book.
	ErrDuplicateActiveBorrow = errors.New("you have already borrowed this book")

	// ErrAlreadyReturned is returned when a return is attempted on a closed borrowing.
	ErrAlreadyReturned = errors.New("you have already returned the book")

	// ErrBadImagePayload is returned when an uploaded cover is not a decodable image.
	ErrBadImagePayload = errors.New("upload a valid image")
)

// ValidationError reports an invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
