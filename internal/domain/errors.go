package domain

import (
	"errors"
	"fmt"
)

// The error taxonomy is small and entirely local: validation errors and state
// errors. Both indicate caller problems and are propagated, never retried.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrAlreadyOpen  = errors.New("a running validation session already exists for this opportunity")
	ErrInvalidState = errors.New("invalid state for this operation")
	ErrDuplicate    = errors.New("duplicate opportunity inside retry window")
)

// Errorf wraps a sentinel with detail so callers can still errors.Is on it.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
