package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer. Match them with errors.Is.
var (
	ErrMalformedDocument = errors.New("malformed document")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence error")
	ErrValidation        = errors.New("validation error")
)

// Error tags an underlying error with one of the kinds above and the
// operation that produced it.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return fmt.Sprint(e.Kind)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Malformed wraps err as a MalformedDocument error.
func Malformed(op string, err error) error {
	return &Error{Op: op, Kind: ErrMalformedDocument, Err: err}
}

// NotFound builds a NotFound error for the given resource id.
func NotFound(op, id string) error {
	return &Error{Op: op, Kind: ErrNotFound, Err: fmt.Errorf("%q", id)}
}

// Persistence wraps err as a PersistenceError.
func Persistence(op string, err error) error {
	return &Error{Op: op, Kind: ErrPersistence, Err: err}
}

// Invalid builds a ValidationError with a formatted message.
func Invalid(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}
