package wasmguest

import (
	"encoding/binary"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// handleRef is how guest-owned wrappers give their handle back to the
// adapter. Objects from other runtimes don't implement it, which is what
// keeps them out of guest calls.
type handleRef interface {
	ref() (*Guest, uint64)
}

// guestObject is the base wrapper for every handle. Kind and class are
// probed once at wrap time. Kinds without an extra capability (nil, symbol,
// plain object) use it directly.
type guestObject struct {
	g      *Guest
	handle uint64
	kind   uint32
	class  string
}

func (o *guestObject) ref() (*Guest, uint64) { return o.g, o.handle }

func (o *guestObject) ClassName() string { return o.class }

func (o *guestObject) IsNil() bool { return o.kind == kindNil }

// Call dispatches a method on the receiver. Arguments must be values of the
// same guest; their handles travel through an argument vector in linear
// memory.
func (o *guestObject) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	g := o.g

	namePtr, nameLen, release, err := g.pushString(name)
	if err != nil {
		return nil, err
	}
	defer release()

	var argvPtr uint32
	if len(args) > 0 {
		buf := make([]byte, 8*len(args))
		for i, arg := range args {
			h, err := g.handleOf(arg)
			if err != nil {
				return nil, errors.Ctx(err, "passing argument %d of '%s'", i, name)
			}
			binary.LittleEndian.PutUint64(buf[8*i:], h)
		}
		var releaseArgs func()
		argvPtr, releaseArgs, err = g.pushBytes(buf, 8)
		if err != nil {
			return nil, err
		}
		defer releaseArgs()
	}

	res, err := g.invoke(fnCall,
		o.handle, uint64(namePtr), uint64(nameLen), uint64(argvPtr), uint64(len(args)))
	if err != nil {
		return nil, err
	}
	if res == handleInvalid {
		return nil, g.takeError()
	}
	return g.wrap(res)
}

// Text applies the guest's generic stringify conversion.
func (o *guestObject) Text() (string, error) {
	packed, err := o.g.invoke(fnText, o.handle)
	if err != nil {
		return "", err
	}
	if raised(packed) {
		return "", o.g.takeError()
	}
	return o.g.readPacked(packed)
}

type guestBool struct {
	guestObject
	val bool
}

func (b *guestBool) BoolValue() bool { return b.val }

type guestInt struct {
	guestObject
	val int64
}

func (i *guestInt) IntValue() int64 { return i.val }

type guestFloat struct {
	guestObject
	val float64
}

func (f *guestFloat) FloatValue() float64 { return f.val }

type guestString struct {
	guestObject
	val string
}

func (s *guestString) StrValue() string { return s.val }

// Text short-circuits the guest round trip; the bytes were already copied
// out at wrap time.
func (s *guestString) Text() (string, error) { return s.val, nil }

type guestArray struct {
	guestObject
}

func (a *guestArray) Len() (int, error) {
	n, err := a.g.invoke(fnLen, a.handle)
	if err != nil {
		return 0, err
	}
	if n == raisedCount {
		return 0, a.g.takeError()
	}
	return int(n), nil
}

// Index fetches one element. Positions past either end yield whatever the
// guest defines for out-of-range access, normally its nil.
func (a *guestArray) Index(i int) (scriptbridge.Object, error) {
	h, err := a.g.invoke(fnIndex, a.handle, uint64(i))
	if err != nil {
		return nil, err
	}
	if h == handleInvalid {
		return nil, a.g.takeError()
	}
	return a.g.wrap(h)
}

func (a *guestArray) Append(items ...scriptbridge.Object) error {
	for i, item := range items {
		h, err := a.g.handleOf(item)
		if err != nil {
			return errors.Ctx(err, "appending element %d", i)
		}
		status, err := a.g.invoke(fnAppend, a.handle, h)
		if err != nil {
			return err
		}
		if status != statusOK {
			return a.g.takeError()
		}
	}
	return nil
}

type guestHash struct {
	guestObject
}

func (m *guestHash) Len() (int, error) {
	n, err := m.g.invoke(fnLen, m.handle)
	if err != nil {
		return 0, err
	}
	if n == raisedCount {
		return 0, m.g.takeError()
	}
	return int(n), nil
}

// Keys returns the hash's keys in the guest's enumeration order. The guest
// materializes them as a transient array, walked and dropped here.
func (m *guestHash) Keys() ([]scriptbridge.Object, error) {
	kh, err := m.g.invoke(fnKeys, m.handle)
	if err != nil {
		return nil, err
	}
	if kh == handleInvalid {
		return nil, m.g.takeError()
	}

	n, err := m.g.invoke(fnLen, kh)
	if err != nil {
		return nil, err
	}
	if n == raisedCount {
		return nil, m.g.takeError()
	}

	keys := make([]scriptbridge.Object, 0, n)
	for i := uint64(0); i < n; i++ {
		h, err := m.g.invoke(fnIndex, kh, i)
		if err != nil {
			return nil, err
		}
		if h == handleInvalid {
			return nil, m.g.takeError()
		}
		key, err := m.g.wrap(h)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	m.g.drop(kh)
	return keys, nil
}

func (m *guestHash) Fetch(key scriptbridge.Object) (scriptbridge.Object, error) {
	kh, err := m.g.handleOf(key)
	if err != nil {
		return nil, err
	}
	h, err := m.g.invoke(fnFetch, m.handle, kh)
	if err != nil {
		return nil, err
	}
	if h == handleInvalid {
		return nil, m.g.takeError()
	}
	return m.g.wrap(h)
}

func (m *guestHash) Store(key, value scriptbridge.Object) error {
	kh, err := m.g.handleOf(key)
	if err != nil {
		return err
	}
	vh, err := m.g.handleOf(value)
	if err != nil {
		return err
	}
	status, err := m.g.invoke(fnStore, m.handle, kh, vh)
	if err != nil {
		return err
	}
	if status != statusOK {
		return m.g.takeError()
	}
	return nil
}

type guestException struct {
	guestObject
	msg string
}

func (e *guestException) Message() string { return e.msg }

func (e *guestException) WithMessage(message string) (scriptbridge.Exception, error) {
	ptr, length, release, err := e.g.pushString(message)
	if err != nil {
		return nil, err
	}
	defer release()

	h, err := e.g.invoke(fnExceptionDerive, e.handle, uint64(ptr), uint64(length))
	if err != nil {
		return nil, err
	}
	if h == handleInvalid {
		return nil, e.g.takeError()
	}
	obj, err := e.g.wrap(h)
	if err != nil {
		return nil, err
	}
	exc, ok := obj.(scriptbridge.Exception)
	if !ok {
		return nil, errors.Newf("derived value of class '%s' is not an exception", obj.ClassName())
	}
	return exc, nil
}

var (
	_ scriptbridge.Object    = (*guestObject)(nil)
	_ scriptbridge.Bool      = (*guestBool)(nil)
	_ scriptbridge.Int       = (*guestInt)(nil)
	_ scriptbridge.Float     = (*guestFloat)(nil)
	_ scriptbridge.Str       = (*guestString)(nil)
	_ scriptbridge.Array     = (*guestArray)(nil)
	_ scriptbridge.Map       = (*guestHash)(nil)
	_ scriptbridge.Exception = (*guestException)(nil)
)
