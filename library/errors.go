package library

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")

	ErrRecordNotFound   = errors.New("book not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrRequestNotFound  = errors.New("request not found")
	ErrMenuItemNotFound = errors.New("menu item not found")

	ErrDuplicateKey       = errors.New("ISBN must be unique")
	ErrDuplicateTitle     = errors.New("a book with this title already exists")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrUnavailable        = errors.New("book is not available for borrowing")
	ErrDuplicateUser      = errors.New("username already exists")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInsufficientPoints = errors.New("not enough points")
	ErrEmptyRequest       = errors.New("request detail cannot be empty")

	ErrNothingToUndo = errors.New("nothing to undo")
	ErrQueueEmpty    = errors.New("no requests to process")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRateLimited        = errors.New("too many login attempts, try again later")
)

// PersistError reports that a mutation committed in memory but could not be
// written to the store. The in-memory change is not rolled back.
type PersistError struct {
	Target string // "books", "users" or "requests"
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("change applied but saving %s failed: %v", e.Target, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsPersistWarning reports whether err only signals a failed save after a
// successful in-memory mutation.
func IsPersistWarning(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
