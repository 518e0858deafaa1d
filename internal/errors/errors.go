package errors

import (
	"errors"
	"fmt"
)

// Kind is the severity class of an error: how far up the caller has to
// escalate it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindFatal means setup cannot proceed at all.
	KindFatal
	// KindDegraded means a component is unavailable and the bridge keeps
	// running in a reduced mode.
	KindDegraded
	// KindTransient covers single probe or command failures that the
	// monitor retries on its own.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindDegraded:
		return "degraded"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a message with a Kind and an optional cause.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches two *Error values of the same kind and message, so package
// level sentinels keep working after being wrapped.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message && t.Underlying == nil
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Underlying: err}
}

func Wrapf(err error, kind Kind, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Underlying: err}
}

// GetKind returns the outermost Kind found in the chain.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsFatal(err error) bool {
	return GetKind(err) == KindFatal
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
