package bind

import (
	"context"
	"fmt"
	"sync"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// checkpointCell holds the most recent diagnostic note for one in-flight
// call. The cell is shared with the handler through its context, so the
// recovery path can read what the handler was attempting.
type checkpointCell struct {
	mu   sync.Mutex
	note string
}

type checkpointKey struct{}

// Checkpoint records what the handler is about to attempt. The note is used
// as the failure message if the handler later panics with a value that does
// not describe itself. Outside a module call this is a no-op.
func Checkpoint(ctx context.Context, format string, args ...any) {
	cell, ok := ctx.Value(checkpointKey{}).(*checkpointCell)
	if !ok {
		return
	}
	note := fmt.Sprintf(format, args...)
	cell.mu.Lock()
	cell.note = note
	cell.mu.Unlock()
}

func (c *checkpointCell) take() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.note
}

// panicMessage renders a recovered panic value. Self-describing values win;
// an uninformative value falls back to the call's checkpoint note, then to a
// generic message.
func panicMessage(cell *checkpointCell, r any) string {
	var msg string
	switch v := r.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = fmt.Sprintf("%v", v)
	}
	if msg != "" && msg != "<nil>" {
		return msg
	}
	if note := cell.take(); note != "" {
		return note
	}
	return "unknown error"
}

// fallbackException is the exception of last resort, used when the module's
// own exception class cannot instantiate.
type fallbackException struct {
	message string
}

func (e *fallbackException) ClassName() string { return "ScriptBridgeError" }
func (e *fallbackException) IsNil() bool       { return false }
func (e *fallbackException) Message() string   { return e.message }

func (e *fallbackException) WithMessage(message string) (scriptbridge.Exception, error) {
	return &fallbackException{message: message}, nil
}

func (e *fallbackException) Text() (string, error) {
	return e.message, nil
}

func (e *fallbackException) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	switch name {
	case "message", "to_s":
		return stringLiteral(e.message), nil
	case "inspect":
		return stringLiteral(fmt.Sprintf("#<%s: %s>", e.ClassName(), e.message)), nil
	}
	return nil, errors.Newf("undefined method '%s' for %s", name, e.ClassName())
}

// stringLiteral is a minimal string-valued guest object, detached from any
// runtime so the fallback path cannot fail.
type stringLiteral string

func (stringLiteral) ClassName() string       { return "String" }
func (stringLiteral) IsNil() bool             { return false }
func (s stringLiteral) StrValue() string      { return string(s) }
func (s stringLiteral) Text() (string, error) { return string(s), nil }

func (s stringLiteral) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	switch name {
	case "to_s", "inspect":
		return s, nil
	}
	return nil, errors.Newf("undefined method '%s' for String", name)
}
