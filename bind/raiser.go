package bind

import (
	"context"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Raiser mounts a Module into a guest object graph. Dynamic dispatch maps
// to Invoke, so a guest calling a bound function through it sees either the
// encoded result or a raise of the module's exception class.
type Raiser struct {
	m   *Module
	ctx context.Context
}

// Raiser wraps the module as a guest-callable object. ctx applies to every
// dispatch through the returned value.
func (m *Module) Raiser(ctx context.Context) *Raiser {
	return &Raiser{m: m, ctx: ctx}
}

func (r *Raiser) ClassName() string { return r.m.name }

func (r *Raiser) IsNil() bool { return false }

// Call dispatches a bound function. A failed invocation comes back as a
// guest-exception error carrying the rendered exception.
func (r *Raiser) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	result, exc := r.m.Invoke(r.ctx, name, args...)
	if exc != nil {
		return nil, errors.FromException(exc)
	}
	return result, nil
}

func (r *Raiser) Text() (string, error) {
	return r.m.name, nil
}

var _ scriptbridge.Object = (*Raiser)(nil)
