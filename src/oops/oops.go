package oops

import (
	"errors"
	"fmt"

	"github.com/go-stack/stack"
	"github.com/rs/zerolog"
)

/*
Kind classifies an error for the boundary layer. Everything that is not one
of the expected kinds is Internal, which clients see as a generic server
failure.
*/
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindConflict
	KindInvalidState
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

type Error struct {
	Message string
	Wrapped error
	Stack   CallStack

	Kind    Kind
	Code    string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Wrapped == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithCode sets a machine-readable code clients can branch on.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

type CallStack []StackFrame

func (s CallStack) MarshalZerologArray(a *zerolog.Array) {
	for _, frame := range s {
		a.Object(frame)
	}
}

type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) MarshalZerologObject(e *zerolog.Event) {
	e.
		Str("file", f.File).
		Int("line", f.Line).
		Str("function", f.Function)
}

var ZerologStackMarshaler = func(err error) interface{} {
	var asOops *Error
	if errors.As(err, &asOops) {
		return asOops.Stack
	}
	return nil
}

// Trace captures the current call stack, minus this function.
func Trace() CallStack {
	trace := stack.Trace().TrimRuntime()[1:]
	frames := make(CallStack, len(trace))
	for i, call := range trace {
		callFrame := call.Frame()
		frames[i] = StackFrame{
			File:     callFrame.File,
			Line:     callFrame.Line,
			Function: callFrame.Function,
		}
	}
	return frames
}

/*
New wraps an unexpected failure. If the wrapped error already carries a kind,
the kind, code and details are preserved so that wrapping a NotFound in
additional context does not turn it into a server failure.
*/
func New(wrapped error, format string, args ...interface{}) error {
	e := &Error{
		Message: fmt.Sprintf(format, args...),
		Wrapped: wrapped,
		Stack:   Trace()[1:],
	}

	var inner *Error
	if errors.As(wrapped, &inner) {
		e.Kind = inner.Kind
		e.Code = inner.Code
		e.Details = inner.Details
	}

	return e
}

func newKinded(kind Kind, format string, args []interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   Trace()[2:],
		Kind:    kind,
	}
}

func NotFound(format string, args ...interface{}) *Error {
	return newKinded(KindNotFound, format, args)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newKinded(KindForbidden, format, args)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newKinded(KindUnauthorized, format, args)
}

func Conflict(format string, args ...interface{}) *Error {
	return newKinded(KindConflict, format, args)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newKinded(KindInvalidState, format, args)
}

func InvalidInput(format string, args ...interface{}) *Error {
	return newKinded(KindInvalidInput, format, args)
}

// KindOf returns the kind of the outermost kinded error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
