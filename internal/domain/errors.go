package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures so transports can map them
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindInsufficientCredits ErrorKind = "insufficient_credits"
	KindForbidden           ErrorKind = "forbidden"
	KindBadRequest          ErrorKind = "bad_request"
	KindGenerationFailure   ErrorKind = "generation_failure"
)

// CreditHint tells an out-of-credit caller how to continue
type CreditHint struct {
	CreditsRemaining int    `json:"credits_remaining"`
	NextAction       string `json:"next_action"`
	AdMinSeconds     int    `json:"ad_min_seconds"`
}

// Error is a typed domain error
type Error struct {
	Kind    ErrorKind
	Message string
	Hint    *CreditHint
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInsufficientCredits = &Error{Kind: KindInsufficientCredits}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrBadRequest          = &Error{Kind: KindBadRequest}
	ErrGenerationFailure   = &Error{Kind: KindGenerationFailure}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// GenerationFailed wraps a generator error
func GenerationFailed(err error) error {
	return &Error{Kind: KindGenerationFailure, Message: "text generation failed", Err: err}
}

// InsufficientCredits builds the out-of-credit error with its remediation hint
func InsufficientCredits(adMinSeconds int) error {
	return &Error{
		Kind:    KindInsufficientCredits,
		Message: "no credits remaining",
		Hint: &CreditHint{
			CreditsRemaining: 0,
			NextAction:       NextActionRegisterOrWatchAd,
			AdMinSeconds:     adMinSeconds,
		},
	}
}

// KindOf returns the kind of err, or "" when err is not a domain error
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
