package wasmguest

import (
	"context"
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Guest is one attached guest instance. It implements scriptbridge.Runtime,
// so the instance's object graph can be fed straight into the conversion
// layers.
//
// A Guest is NOT safe for concurrent use. WASM instances are not reentrant;
// drive each Guest from one goroutine, or synchronize externally.
type Guest struct {
	abi abi
	ctx context.Context

	mu    sync.Mutex
	stack []uint64
	fault error

	nilObj   scriptbridge.Object
	trueObj  scriptbridge.Object
	falseObj scriptbridge.Object

	classMu sync.Mutex
	classes map[string]*guestClass
}

// Attach binds an instantiated module exporting the reflection ABI. The
// exports and the nil and boolean singletons are validated up front; ctx
// becomes the default context for guest calls until SetContext replaces it.
func Attach(ctx context.Context, mod api.Module) (*Guest, error) {
	a, err := newModuleABI(mod)
	if err != nil {
		return nil, errors.Ctx(err, "attaching guest")
	}
	return attach(ctx, a)
}

func attach(ctx context.Context, a abi) (*Guest, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	g := &Guest{
		abi:     a,
		ctx:     ctx,
		stack:   make([]uint64, 8),
		classes: make(map[string]*guestClass),
	}

	nh, err := g.invoke(fnNil)
	if err == nil {
		g.nilObj, err = g.wrap(nh)
	}
	if err == nil && !g.nilObj.IsNil() {
		err = errors.New("guest nil constructor returned a non-nil value")
	}
	if err == nil {
		g.trueObj, err = g.singletonBool(true)
	}
	if err == nil {
		g.falseObj, err = g.singletonBool(false)
	}
	if err != nil {
		return nil, errors.Ctx(err, "attaching guest")
	}

	debugf("guest attached: nil=%d", nh)
	return g, nil
}

func (g *Guest) singletonBool(v bool) (scriptbridge.Object, error) {
	arg := uint64(0)
	if v {
		arg = 1
	}
	h, err := g.invoke(fnMakeBool, arg)
	if err != nil {
		return nil, err
	}
	obj, err := g.wrap(h)
	if err != nil {
		return nil, err
	}
	b, ok := obj.(scriptbridge.Bool)
	if !ok || b.BoolValue() != v {
		return nil, errors.Newf("guest boolean constructor returned class '%s'", obj.ClassName())
	}
	return obj, nil
}

// SetContext replaces the context used for subsequent guest calls, for
// cancellation between top-level conversions.
func (g *Guest) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	g.mu.Lock()
	g.ctx = ctx
	g.mu.Unlock()
}

// Err reports the sticky fault. Once a guest call traps the instance state
// is unknown, so every later operation fails with the same error.
func (g *Guest) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fault
}

// Reset drops every transient guest handle. Wrappers obtained before the
// reset are dead; the nil and boolean singletons survive. Call it between
// top-level conversions to keep the guest's object table from growing.
func (g *Guest) Reset() error {
	if _, err := g.invoke(fnReset); err != nil {
		return err
	}
	g.classMu.Lock()
	g.classes = make(map[string]*guestClass)
	g.classMu.Unlock()
	return nil
}

// invoke runs one exported guest function, parameters in, single result
// out. A call error is a trap; it faults the instance.
func (g *Guest) invoke(name string, args ...uint64) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fault != nil {
		return 0, g.fault
	}

	n := copy(g.stack, args)
	if n == 0 {
		n = 1
	}
	if err := g.abi.call(g.ctx, name, g.stack[:n]); err != nil {
		err = errors.Ctx(err, "calling guest export '%s'", name)
		g.fault = err
		return 0, err
	}
	return g.stack[0], nil
}

func (g *Guest) setFault(err error) {
	g.mu.Lock()
	if g.fault == nil {
		g.fault = err
	}
	g.mu.Unlock()
}

func (g *Guest) callCtx() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctx
}

// readPacked copies a guest-owned string out of linear memory before the
// next call can invalidate it.
func (g *Guest) readPacked(packed uint64) (string, error) {
	ptr, length := unpackStr(packed)
	if length == 0 {
		return "", nil
	}
	b, err := g.abi.read(ptr, length)
	if err != nil {
		return "", errors.Wrap(err)
	}
	return string(b), nil
}

// pushBytes copies b into guest memory. The returned release func must run
// after the guest call that consumes the buffer.
func (g *Guest) pushBytes(b []byte, align uint32) (ptr uint32, release func(), err error) {
	if len(b) == 0 {
		return 0, func() {}, nil
	}
	size := uint32(len(b))
	ptr, err = g.abi.alloc(g.callCtx(), size, align)
	if err != nil {
		return 0, nil, errors.Wrap(err)
	}
	if err := g.abi.write(ptr, b); err != nil {
		g.abi.free(g.callCtx(), ptr, size, align)
		return 0, nil, errors.Wrap(err)
	}
	return ptr, func() { g.abi.free(g.callCtx(), ptr, size, align) }, nil
}

func (g *Guest) pushString(s string) (ptr, length uint32, release func(), err error) {
	ptr, release, err = g.pushBytes([]byte(s), 1)
	return ptr, uint32(len(s)), release, err
}

// takeError retrieves the pending guest exception after a raised operation.
func (g *Guest) takeError() error {
	h, err := g.invoke(fnLastError)
	if err != nil {
		return err
	}
	if h == handleInvalid {
		return errors.New("guest reported a raise but no exception is pending")
	}
	obj, err := g.wrap(h)
	if err != nil {
		return err
	}
	exc, ok := obj.(scriptbridge.Exception)
	if !ok {
		return errors.Newf("guest raised a value of class '%s' that is not an exception", obj.ClassName())
	}
	return errors.FromException(exc)
}

// wrap builds the capability wrapper for a handle. The kind and class are
// probed once here; scalar values are extracted eagerly so the capability
// accessors stay infallible.
func (g *Guest) wrap(h uint64) (scriptbridge.Object, error) {
	if h == handleInvalid {
		return nil, errors.New("invalid guest handle")
	}

	kindWord, err := g.invoke(fnKind, h)
	if err != nil {
		return nil, err
	}
	packed, err := g.invoke(fnClassName, h)
	if err != nil {
		return nil, err
	}
	class, err := g.readPacked(packed)
	if err != nil {
		return nil, err
	}

	base := guestObject{g: g, handle: h, kind: uint32(kindWord), class: class}

	switch base.kind {
	case kindBool:
		v, err := g.invoke(fnBoolValue, h)
		if err != nil {
			return nil, err
		}
		return &guestBool{guestObject: base, val: v != 0}, nil

	case kindInt:
		v, err := g.invoke(fnIntValue, h)
		if err != nil {
			return nil, err
		}
		return &guestInt{guestObject: base, val: int64(v)}, nil

	case kindFloat:
		bits, err := g.invoke(fnFloatValue, h)
		if err != nil {
			return nil, err
		}
		return &guestFloat{guestObject: base, val: math.Float64frombits(bits)}, nil

	case kindString:
		packed, err := g.invoke(fnStringValue, h)
		if err != nil {
			return nil, err
		}
		s, err := g.readPacked(packed)
		if err != nil {
			return nil, err
		}
		return &guestString{guestObject: base, val: s}, nil

	case kindArray:
		return &guestArray{guestObject: base}, nil

	case kindHash:
		return &guestHash{guestObject: base}, nil

	case kindException:
		packed, err := g.invoke(fnExceptionMessage, h)
		if err != nil {
			return nil, err
		}
		msg, err := g.readPacked(packed)
		if err != nil {
			return nil, err
		}
		return &guestException{guestObject: base, msg: msg}, nil

	default:
		// Nils, symbols and plain objects carry no extra capability.
		return &base, nil
	}
}

// handleOf extracts the guest handle behind obj, which must have been
// produced by this Guest.
func (g *Guest) handleOf(obj scriptbridge.Object) (uint64, error) {
	r, ok := obj.(handleRef)
	if !ok {
		return 0, errors.Newf("foreign object of class '%s' cannot enter this guest", obj.ClassName())
	}
	og, h := r.ref()
	if og != g {
		return 0, errors.Newf("object of class '%s' belongs to a different guest instance", obj.ClassName())
	}
	return h, nil
}

// drop releases one transient handle.
func (g *Guest) drop(h uint64) {
	if _, err := g.invoke(fnDrop, h); err != nil {
		debugf("dropping handle %d failed: %v", h, err)
	}
}

// Nil returns the guest's nil singleton.
func (g *Guest) Nil() scriptbridge.Object { return g.nilObj }

// Bool returns one of the guest's boolean singletons.
func (g *Guest) Bool(v bool) scriptbridge.Object {
	if v {
		return g.trueObj
	}
	return g.falseObj
}

// Int constructs a guest integer.
func (g *Guest) Int(v int64) scriptbridge.Object {
	return g.scalar(fnMakeInt, uint64(v))
}

// Float constructs a guest float.
func (g *Guest) Float(v float64) scriptbridge.Object {
	return g.scalar(fnMakeFloat, math.Float64bits(v))
}

// String constructs a guest string from s.
func (g *Guest) String(s string) scriptbridge.Object {
	return g.textScalar(fnMakeString, s)
}

// Symbol constructs the guest's symbolic-name primitive.
func (g *Guest) Symbol(name string) scriptbridge.Object {
	return g.textScalar(fnMakeSymbol, name)
}

// scalar runs an infallible constructor export. A failure here is a trap or
// a protocol violation; it faults the instance and yields the nil object so
// the fault surfaces on the next fallible operation.
func (g *Guest) scalar(name string, args ...uint64) scriptbridge.Object {
	h, err := g.invoke(name, args...)
	if err == nil {
		if h == handleInvalid {
			err = g.takeError()
		} else {
			var obj scriptbridge.Object
			if obj, err = g.wrap(h); err == nil {
				return obj
			}
		}
	}
	g.setFault(errors.Ctx(err, "constructing a guest value via %s", name))
	debugf("constructor %s failed: %v", name, err)
	return g.nilObj
}

func (g *Guest) textScalar(name, s string) scriptbridge.Object {
	ptr, length, release, err := g.pushString(s)
	if err != nil {
		g.setFault(errors.Ctx(err, "constructing a guest value via %s", name))
		return g.nilObj
	}
	defer release()
	return g.scalar(name, uint64(ptr), uint64(length))
}

// Array constructs an empty guest array.
func (g *Guest) Array() (scriptbridge.Array, error) {
	h, err := g.invoke(fnMakeArray)
	if err != nil {
		return nil, err
	}
	if h == handleInvalid {
		return nil, g.takeError()
	}
	obj, err := g.wrap(h)
	if err != nil {
		return nil, err
	}
	arr, ok := obj.(scriptbridge.Array)
	if !ok {
		return nil, errors.Newf("guest array constructor returned class '%s'", obj.ClassName())
	}
	return arr, nil
}

// Map constructs an empty guest hash.
func (g *Guest) Map() (scriptbridge.Map, error) {
	h, err := g.invoke(fnMakeMap)
	if err != nil {
		return nil, err
	}
	if h == handleInvalid {
		return nil, g.takeError()
	}
	obj, err := g.wrap(h)
	if err != nil {
		return nil, err
	}
	m, ok := obj.(scriptbridge.Map)
	if !ok {
		return nil, errors.Newf("guest hash constructor returned class '%s'", obj.ClassName())
	}
	return m, nil
}

// Class resolves an exception class by name. Resolved classes are cached
// for the life of the Guest; Reset clears the cache along with the handles
// behind it.
func (g *Guest) Class(name string) (scriptbridge.ExceptionClass, error) {
	g.classMu.Lock()
	defer g.classMu.Unlock()

	if c, ok := g.classes[name]; ok {
		return c, nil
	}

	ptr, length, release, err := g.pushString(name)
	if err != nil {
		return nil, err
	}
	defer release()

	h, err := g.invoke(fnResolveClass, uint64(ptr), uint64(length))
	if err != nil {
		return nil, err
	}
	if h == handleInvalid {
		return nil, errors.Ctx(g.takeError(), "resolving guest class '%s'", name)
	}

	c := &guestClass{g: g, name: name, handle: h}
	g.classes[name] = c
	return c, nil
}

// guestClass constructs exceptions of one resolved guest class.
type guestClass struct {
	g      *Guest
	name   string
	handle uint64
}

func (c *guestClass) Name() string { return c.name }

func (c *guestClass) New(message string) (scriptbridge.Exception, error) {
	ptr, length, release, err := c.g.pushString(message)
	if err != nil {
		return nil, err
	}
	defer release()

	h, err := c.g.invoke(fnClassNew, c.handle, uint64(ptr), uint64(length))
	if err != nil {
		return nil, err
	}
	if h == handleInvalid {
		return nil, c.g.takeError()
	}
	obj, err := c.g.wrap(h)
	if err != nil {
		return nil, err
	}
	exc, ok := obj.(scriptbridge.Exception)
	if !ok {
		return nil, errors.Newf("class '%s' constructed a value of class '%s' that is not an exception", c.name, obj.ClassName())
	}
	return exc, nil
}

var (
	_ scriptbridge.Runtime        = (*Guest)(nil)
	_ scriptbridge.ExceptionClass = (*guestClass)(nil)
)
