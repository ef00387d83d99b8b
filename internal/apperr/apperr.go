package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on failure class
// (the HTTP layer maps kinds to status codes, the orchestrator decides
// whether compensation runs).
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks caller input that violates a precondition.
	KindValidation
	// KindNotFound marks a missing entity or one not owned by the stated parent.
	KindNotFound
	// KindConflict marks a state-machine precondition failure (e.g. the
	// document's status changed between read and conditional write).
	KindConflict
	// KindStorage marks an unexpected failure from the database or object store.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified error. It wraps an optional cause.
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

// Validation returns a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps err as a KindStorage error.
func Storage(err error, format string, args ...any) error {
	return &Error{Kind: KindStorage, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Wrap keeps err's kind if it already carries one, otherwise classifies it
// under kind. The message is prefixed either way.
func Wrap(kind Kind, err error, msg string) error {
	if k := KindOf(err); k != KindUnknown {
		kind = k
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is classified KindNotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is classified KindConflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsValidation reports whether err is classified KindValidation.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
