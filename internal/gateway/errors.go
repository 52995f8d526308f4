package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure so callers can branch without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindInvalid
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the failure branch of every gateway call.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a gateway error. A nil err yields nil so adapters can wrap unconditionally.
func E(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf reports the kind of the first gateway error in the chain.
// Errors that did not come from a gateway are KindInternal.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the text to show a user: the underlying cause without the op prefix.
func Message(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Err != nil {
		return gerr.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("user already registered")
	ErrNoSession          = errors.New("no active session")
)
