package detect

import (
	"errors"
	"fmt"
)

// Kind classifies a detection failure. Engines tag their errors with a Kind so
// the gateway never has to look at upstream error text.
type Kind int

const (
	KindFatal Kind = iota
	KindAuth
	KindMissingAudio
	KindTransient
	KindSafety
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindMissingAudio:
		return "missing_audio"
	case KindTransient:
		return "transient"
	case KindSafety:
		return "safety_blocked"
	case KindMalformed:
		return "malformed_response"
	default:
		return "fatal"
	}
}

// Error is the single error type crossing package boundaries.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrSafetyBlocked) match any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrUnauthorized      = &Error{Kind: KindAuth}
	ErrMissingAudio      = &Error{Kind: KindMissingAudio}
	ErrTransient         = &Error{Kind: KindTransient}
	ErrSafetyBlocked     = &Error{Kind: KindSafety}
	ErrMalformedResponse = &Error{Kind: KindMalformed}
	ErrFatal             = &Error{Kind: KindFatal}
)

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of err; untagged errors are fatal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindFatal
}

// IsRetriable reports whether err signals transient upstream overload.
func IsRetriable(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}
