package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an engine failure so callers can branch on it without
// string matching.
type Kind int

const (
	// KindUnknown is any failure the engine does not recognize.
	KindUnknown Kind = iota
	// KindInvalidArgument is a missing or inconsistent caller argument.
	KindInvalidArgument
	// KindConfiguration is missing credentials or a bad cache directory.
	KindConfiguration
	// KindBackend is a transport or remote failure from the event store.
	KindBackend
	// KindNotFound is an absent remote object (typically an attachment).
	KindNotFound
	// KindCacheCorrupt is an unreadable local cache blob.
	KindCacheCorrupt
	// KindComputationEmpty is a dependency that yielded no data.
	KindComputationEmpty
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConfiguration:
		return "configuration"
	case KindBackend:
		return "backend"
	case KindNotFound:
		return "not_found"
	case KindCacheCorrupt:
		return "cache_corrupt"
	case KindComputationEmpty:
		return "computation_empty"
	default:
		return "unknown"
	}
}

// Error wraps an operation, a classification, a human-facing message, and
// the underlying error.
type Error struct {
	Op   string
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E constructs an Error.
func E(op string, kind Kind, msg string, err error) error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: err}
}

// KindOf walks the error chain and returns the first classification found,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether any error in the chain carries the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
