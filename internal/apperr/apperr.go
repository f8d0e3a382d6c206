// Package apperr tags errors with a failure kind so callers can tell a missing
// record from a refused precondition from a broken dependency.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPrecondition
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition_failed"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Error is a tagged failure. Err keeps the underlying cause so errors.Is still
// matches package sentinels.
type Error struct {
	Kind      Kind
	Op        string
	Err       error
	Transient bool
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound tags err as an unknown-identifier failure.
func NotFound(op string, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

// Precondition tags err as a refused operation (cooldown, cap, disabled module).
func Precondition(op string, err error) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: err}
}

// Infra tags err as a permanent infrastructure failure.
func Infra(op string, err error) error {
	return &Error{Kind: KindInfrastructure, Op: op, Err: err}
}

// Transient tags err as an infrastructure failure worth retrying.
func Transient(op string, err error) error {
	return &Error{Kind: KindInfrastructure, Op: op, Err: err, Transient: true}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
// Untagged non-nil errors are treated as infrastructure failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}

// IsNotFound reports whether err is tagged NotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsPrecondition reports whether err is tagged PreconditionFailed.
func IsPrecondition(err error) bool { return KindOf(err) == KindPrecondition }

// IsTransient reports whether err is a retryable infrastructure failure.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInfrastructure && e.Transient
}
