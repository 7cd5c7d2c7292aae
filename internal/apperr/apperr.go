// Package apperr classifies failures crossing the service boundary.
package apperr

import "errors"

// Kind is the category of a failure.
type Kind int

const (
	Internal Kind = iota
	NotFound
	InvalidArgument
	InsufficientStock
	Unauthorized
	Forbidden
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidArgument:
		return "invalid_argument"
	case InsufficientStock:
		return "insufficient_stock"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified error. Domain packages declare their sentinels with New
// and wrap them with fmt.Errorf("...: %w", err) to add context.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New returns a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of the first classified error in the chain, or Internal.
func KindOf(err error) Kind {
	if err == nil {
		return Internal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
