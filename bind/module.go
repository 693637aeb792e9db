package bind

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/samber/lo"
	"go.uber.org/zap"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/transcoder"
)

// Host is a struct-based bundle of guest-callable functions. All exported
// methods except ModuleName are registered under their snake_cased names.
type Host interface {
	// ModuleName returns the guest-visible module name.
	ModuleName() string
}

// Module is a named set of Go functions exposed to a guest runtime. Guest
// arguments are decoded into the function's parameter types, results are
// encoded back, and every failure crossing the boundary is rendered into an
// exception of the module's exception class.
type Module struct {
	name    string
	rt      scriptbridge.Runtime
	excls   scriptbridge.ExceptionClass
	methods map[string]*method
	mu      sync.RWMutex
}

type method struct {
	name     string
	fn       reflect.Value
	params   []reflect.Type
	takesCtx bool
	hasValue bool
	hasErr   bool
}

// NewModule creates an empty module whose failures raise exceptionClass.
func NewModule(rt scriptbridge.Runtime, name, exceptionClass string) (*Module, error) {
	if name == "" {
		return nil, errors.New("module name cannot be empty")
	}
	cls, err := rt.Class(exceptionClass)
	if err != nil {
		return nil, errors.Ctx(err, "resolving exception class '%s'", exceptionClass)
	}
	return &Module{
		name:    name,
		rt:      rt,
		excls:   cls,
		methods: make(map[string]*method),
	}, nil
}

// NewHostModule builds a module from a host's exported methods.
func NewHostModule(rt scriptbridge.Runtime, h Host, exceptionClass string) (*Module, error) {
	m, err := NewModule(rt, h.ModuleName(), exceptionClass)
	if err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(h)
	ht := rv.Type()
	for i := 0; i < ht.NumMethod(); i++ {
		mt := ht.Method(i)
		if !mt.IsExported() || mt.Name == "ModuleName" {
			continue
		}
		if err := m.Register(toSnakeCase(mt.Name), rv.Method(i).Interface()); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Name returns the guest-visible module name.
func (m *Module) Name() string { return m.name }

// ExceptionClass returns the class failures are raised as.
func (m *Module) ExceptionClass() scriptbridge.ExceptionClass { return m.excls }

// Register exposes fn under name, replacing any previous binding. fn may
// take an optional leading context.Context; remaining parameters are decoded
// from guest arguments. It may return nothing, a value, an error, or a value
// and an error.
func (m *Module) Register(name string, fn any) error {
	if name == "" {
		return errors.New("method name cannot be empty")
	}
	mt, err := newMethod(name, fn)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.methods[name] = mt
	m.mu.Unlock()

	Logger().Debug("method registered",
		zap.String("module", m.name),
		zap.String("method", name),
		zap.Int("params", len(mt.params)))
	return nil
}

// Functions lists the registered method names, sorted.
func (m *Module) Functions() []string {
	m.mu.RLock()
	names := lo.Keys(m.methods)
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

func newMethod(name string, fn any) (*method, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, errors.Newf("handler for '%s' must be a function, got %T", name, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, errors.Newf("handler for '%s' must not be variadic", name)
	}

	mt := &method{name: name, fn: v}
	start := 0
	if t.NumIn() > 0 && t.In(0) == ctxType {
		mt.takesCtx = true
		start = 1
	}
	for i := start; i < t.NumIn(); i++ {
		mt.params = append(mt.params, t.In(i))
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errType {
			mt.hasErr = true
		} else {
			mt.hasValue = true
		}
	case 2:
		if t.Out(1) != errType {
			return nil, errors.Newf("handler for '%s' must return (value, error) when returning two results", name)
		}
		mt.hasValue = true
		mt.hasErr = true
	default:
		return nil, errors.Newf("handler for '%s' returns too many results", name)
	}
	return mt, nil
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Call runs a bound function against guest arguments and returns the encoded
// result. Failures come back as bridge errors for the host side; use Invoke
// for the guest-facing rendering.
func (m *Module) Call(ctx context.Context, name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	m.mu.RLock()
	mt, ok := m.methods[name]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("no method '%s' in module '%s'", name, m.name)
	}
	return m.call(ctx, mt, args)
}

// Invoke runs a bound function and renders any failure into a guest
// exception of the module's class. The returned exception is always usable:
// if the class itself refuses to instantiate, a builtin fallback exception
// carries the message instead.
func (m *Module) Invoke(ctx context.Context, name string, args ...scriptbridge.Object) (scriptbridge.Object, scriptbridge.Exception) {
	result, err := m.Call(ctx, name, args...)
	if err == nil {
		return result, nil
	}

	bridgeErr := errors.Wrap(err)
	exc, excErr := bridgeErr.AsException(m.excls)
	if excErr != nil {
		Logger().Warn("exception class failed to instantiate",
			zap.String("module", m.name),
			zap.String("class", m.excls.Name()),
			zap.Error(excErr))
		exc = &fallbackException{message: bridgeErr.GuestMessage()}
	}
	return nil, exc
}

func (m *Module) call(ctx context.Context, mt *method, args []scriptbridge.Object) (obj scriptbridge.Object, err error) {
	cell := &checkpointCell{}
	ctx = context.WithValue(ctx, checkpointKey{}, cell)
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("handler panicked",
				zap.String("module", m.name),
				zap.String("method", mt.name),
				zap.Any("value", r))
			obj = nil
			err = errors.New(panicMessage(cell, r))
		}
	}()

	in := make([]reflect.Value, 0, len(mt.params)+1)
	if mt.takesCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, pt := range mt.params {
		if i >= len(args) {
			return nil, errors.Newf("argument %d (%s) not found for method '%s'", i, pt, mt.name)
		}
		pv := reflect.New(pt)
		if err := transcoder.Unmarshal(args[i], pv.Interface()); err != nil {
			return nil, errors.Ctx(err, "decoding argument %d of '%s'", i, mt.name)
		}
		in = append(in, pv.Elem())
	}

	out := mt.fn.Call(in)

	if mt.hasErr {
		if last := out[len(out)-1]; !last.IsNil() {
			return nil, errors.Wrap(last.Interface().(error))
		}
	}
	if !mt.hasValue {
		return m.rt.Nil(), nil
	}
	result, err := transcoder.Marshal(m.rt, out[0].Interface())
	if err != nil {
		return nil, errors.Ctx(err, "encoding result of '%s'", mt.name)
	}
	return result, nil
}

// toSnakeCase converts PascalCase to snake_case, keeping acronym runs
// together: ParseHTTPHeader becomes parse_http_header.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}

		end := i + 1
		for end < len(runes) && unicode.IsUpper(runes[end]) {
			end++
		}
		if end > i+1 && end < len(runes) && unicode.IsLower(runes[end]) {
			// The run's last upper starts the next word.
			end--
		}

		if i > 0 {
			b.WriteByte('_')
		}
		for j := i; j < end; j++ {
			b.WriteRune(unicode.ToLower(runes[j]))
		}
		i = end - 1
	}
	return b.String()
}
