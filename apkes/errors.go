package apkes

import (
	stderrors "errors"
	"fmt"
)

// ErrKind categorizes a dropped-frame or internal failure inside the
// Engine. Every handler failure in spec.md §7 maps to exactly one of
// these; callers never see them directly — they are logged at debug
// level and otherwise swallowed, per spec.md's "silent drops" rule.
type ErrKind uint8

const (
	KindResourceExhausted ErrKind = iota + 1
	KindAuthentication
	KindProtocolState
	KindReplay
	KindUnknownCommand
	KindInternal
)

func (k ErrKind) String() string {
	switch k {
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindAuthentication:
		return "authentication"
	case KindProtocolState:
		return "protocol_state"
	case KindReplay:
		return "replay"
	case KindUnknownCommand:
		return "unknown_command"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind  ErrKind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Inner == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Inner.Error()
}

func (e *Error) Unwrap() error { return e.Inner }

func NewError(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind ErrKind, msg string, inner error) *Error {
	return &Error{Kind: kind, Msg: msg, Inner: inner}
}

func IsKind(err error, kind ErrKind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// drop builds an *Error of kind from format/args and logs it at debug
// level. Every handler-level failure in spec.md §7 goes through this: the
// Error is never returned to a caller, only logged and then discarded —
// spec.md's "silent drops" rule.
func (e *Engine) drop(kind ErrKind, format string, args ...any) {
	err := NewError(kind, fmt.Sprintf(format, args...))
	e.log.Debugf("apkes: %v", err)
}
