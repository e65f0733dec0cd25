package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a payment-flow error for callers and the HTTP layer.
type Kind string

const (
	KindConfig             Kind = "configuration"
	KindValidation         Kind = "validation"
	KindUpstream           Kind = "upstream"
	KindNotFound           Kind = "not_found"
	KindVerificationFailed Kind = "verification_failed"
	KindAuthenticity       Kind = "authenticity"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the classification of err, or KindUpstream when err carries
// no explicit kind. Unclassified errors come from I/O and must stay retryable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// Retryable reports whether the caller may retry without risking a wrong
// terminal outcome. Authenticity failures are deliberately not retryable.
func Retryable(err error) bool { return Is(err, KindUpstream) }
