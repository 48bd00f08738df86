package api

import (
	"errors"
	"fmt"
)

// Kind classifies a client error.
type Kind int

const (
	// KindNetwork covers transport failures, timeouts, cancellation and
	// non-2xx responses.
	KindNetwork Kind = iota + 1
	// KindDecode means the response body could not be parsed.
	KindDecode
	// KindValidation means the input was rejected locally and never sent.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrNetwork    = errors.New("network error")
	ErrDecode     = errors.New("decode error")
	ErrValidation = errors.New("validation error")
)

// Error is returned by every Client operation.
type Error struct {
	Kind   Kind
	Op     string // e.g. "fetch lines"
	Status int    // HTTP status for non-2xx responses, else 0
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: HTTP %d", e.Op, e.Kind, e.Status)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// KindOf returns the kind of err, or 0 if err is not a client error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func networkErr(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func decodeErr(op string, err error) error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}

// ValidationError builds a local validation failure.
func ValidationError(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg)}
}
