package errors

import (
	"fmt"
	"strings"

	scriptbridge "github.com/wippyai/script-bridge"
)

// Kind categorizes the failure
type Kind string

const (
	// KindMessage is a locally synthesized description: a type mismatch, a
	// protocol violation, a missing field or argument.
	KindMessage Kind = "message"

	// KindGuestException wraps an exception raised by the guest runtime
	// during dynamic dispatch, preserved verbatim for later re-rendering.
	KindGuestException Kind = "guest_exception"

	// KindNotImplemented names an unsupported data-model shape.
	KindNotImplemented Kind = "not_implemented"
)

// Error is the structured error type used throughout the bridge. Context
// strings accumulate as a failure unwinds through nested conversions: the
// innermost frame pushes first and renders first.
type Error struct {
	Kind      Kind
	Message   string
	Exception scriptbridge.Exception
	Cause     error
	Context   []string
}

// Error implements the error interface. One line: the base message, then the
// accumulated context in push order.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.base())
	if len(e.Context) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Context, "; "))
		b.WriteByte(')')
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// base renders the kind-specific root description. A captured guest
// exception describes itself through the guest's inspect dispatch.
func (e *Error) base() string {
	switch e.Kind {
	case KindGuestException:
		if e.Exception == nil {
			return "guest exception"
		}
		inspected, err := e.Exception.Call("inspect")
		if err != nil {
			return "error calling inspect"
		}
		text, err := inspected.Text()
		if err != nil {
			return "unexpected inspect result"
		}
		return text
	case KindNotImplemented:
		return e.Message + " is not implemented"
	default:
		return e.Message
	}
}

// GuestMessage renders the error for crossing into the guest: the base
// message plus one line per context entry.
func (e *Error) GuestMessage() string {
	if len(e.Context) == 0 {
		return e.base()
	}
	var b strings.Builder
	b.WriteString(e.base())
	b.WriteString("\nContext from Go:")
	for _, c := range e.Context {
		b.WriteString("\n - ")
		b.WriteString(c)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithContext appends one context string and returns the receiver.
func (e *Error) WithContext(ctx string) *Error {
	e.Context = append(e.Context, ctx)
	return e
}

// AsException renders the error into a guest exception. A guest-exception
// error re-derives from the captured exception, keeping its class and
// appending the accumulated context to its message; any other kind becomes a
// new instance of class.
func (e *Error) AsException(class scriptbridge.ExceptionClass) (scriptbridge.Exception, error) {
	if e.Kind == KindGuestException && e.Exception != nil {
		msg := e.Exception.Message()
		if len(e.Context) > 0 {
			var b strings.Builder
			b.WriteString(msg)
			b.WriteString("\nContext from Go:")
			for _, c := range e.Context {
				b.WriteString("\n - ")
				b.WriteString(c)
			}
			msg = b.String()
		}
		return e.Exception.WithMessage(msg)
	}
	return class.New(e.GuestMessage())
}

// New creates a message-kind error.
func New(msg string) *Error {
	return &Error{Kind: KindMessage, Message: msg}
}

// Newf creates a message-kind error from a format string.
func Newf(format string, args ...any) *Error {
	return &Error{Kind: KindMessage, Message: fmt.Sprintf(format, args...)}
}

// NotImplemented creates an error naming an unsupported operation.
func NotImplemented(what string) *Error {
	return &Error{Kind: KindNotImplemented, Message: what}
}

// FromException captures a guest exception.
func FromException(exc scriptbridge.Exception) *Error {
	return &Error{Kind: KindGuestException, Exception: exc}
}

// Wrap adopts err as an *Error. An *Error passes through unchanged; anything
// else becomes a message-kind error with err as the cause.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Kind: KindMessage, Message: err.Error(), Cause: err}
}

// Ctx appends one context string to err as the failure unwinds. Nil-safe, so
// call sites on the failure branch stay one line. The formatted string is
// only built when err is non-nil.
func Ctx(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err).WithContext(fmt.Sprintf(format, args...))
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
