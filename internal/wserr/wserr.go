// Package wserr defines the error kinds the workspace engine's components
// branch on: not every failure aborts a launch, and some are retried
// internally, so the kind has to be queryable rather than string-matched.
package wserr

import "fmt"

// Kind classifies why an operation failed.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	InvalidArgument
	Ambiguous
	Conflict
	VersionMismatch
	IO
	Activation
	Timeout
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidArgument:
		return "invalid_argument"
	case Ambiguous:
		return "ambiguous"
	case Conflict:
		return "conflict"
	case VersionMismatch:
		return "version_mismatch"
	case IO:
		return "io"
	case Activation:
		return "activation"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind that callers can branch on via
// errors.As, while still composing with fmt.Errorf's %w wrapping.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, wserr.New(kind, "")) match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Of returns the Kind carried by err, or Unknown if err isn't (or doesn't
// wrap) a *Error.
func Of(err error) Kind {
	var e *Error
	if ok := as(err, &e); ok {
		return e.Kind
	}
	return Unknown
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
