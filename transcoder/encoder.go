package transcoder

import (
	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Encoder builds guest values through a Runtime. Scalars map directly;
// containers are assembled with builders so callers can stream elements in.
type Encoder struct {
	rt scriptbridge.Runtime
}

// NewEncoder wraps a runtime for encoding.
func NewEncoder(rt scriptbridge.Runtime) *Encoder {
	return &Encoder{rt: rt}
}

// Runtime returns the runtime values are built in.
func (e *Encoder) Runtime() scriptbridge.Runtime {
	return e.rt
}

func (e *Encoder) Nil() scriptbridge.Object {
	return e.rt.Nil()
}

func (e *Encoder) Bool(b bool) scriptbridge.Object {
	return e.rt.Bool(b)
}

// Int encodes every signed width as the guest's one integer class.
func (e *Encoder) Int(n int64) scriptbridge.Object {
	return e.rt.Int(n)
}

// Uint reinterprets the bits as signed. Values above the signed range come
// out negative on the guest side.
func (e *Encoder) Uint(n uint64) scriptbridge.Object {
	return e.rt.Int(int64(n))
}

func (e *Encoder) Float(f float64) scriptbridge.Object {
	return e.rt.Float(f)
}

func (e *Encoder) String(s string) scriptbridge.Object {
	return e.rt.String(s)
}

// Char encodes as a one-character string.
func (e *Encoder) Char(c rune) scriptbridge.Object {
	return e.rt.String(string(c))
}

// Bytes passes raw bytes through as a guest string without any encoding
// validation.
func (e *Encoder) Bytes(b []byte) scriptbridge.Object {
	return e.rt.String(string(b))
}

// UnitVariant encodes as the variant's name.
func (e *Encoder) UnitVariant(name, variant string) scriptbridge.Object {
	return e.rt.String(variant)
}

// NewtypeVariant encodes as a single-entry map from the variant's symbol to
// the already-encoded payload.
func (e *Encoder) NewtypeVariant(name, variant string, payload scriptbridge.Object) (scriptbridge.Object, error) {
	m, err := e.rt.Map()
	if err != nil {
		return nil, errors.Ctx(err, "encoding variant '%s'", variant)
	}
	if err := m.Store(e.rt.Symbol(variant), payload); err != nil {
		return nil, errors.Ctx(err, "encoding variant '%s'", variant)
	}
	return m, nil
}

// TupleVariant is not supported by this format.
func (e *Encoder) TupleVariant(name, variant string, n int) (*SeqBuilder, error) {
	return nil, errors.NotImplemented("encoding tuple variants")
}

// StructVariant is not supported by this format.
func (e *Encoder) StructVariant(name, variant string) (*StructBuilder, error) {
	return nil, errors.NotImplemented("encoding struct variants")
}

// Seq starts an indexed container. Tuples and tuple structs use it too.
func (e *Encoder) Seq() (*SeqBuilder, error) {
	arr, err := e.rt.Array()
	if err != nil {
		return nil, errors.Ctx(err, "encoding sequence")
	}
	return &SeqBuilder{arr: arr}, nil
}

// Map starts a keyed container.
func (e *Encoder) Map() (*MapBuilder, error) {
	m, err := e.rt.Map()
	if err != nil {
		return nil, errors.Ctx(err, "encoding map")
	}
	return &MapBuilder{m: m}, nil
}

// Struct starts a keyed container whose keys are field-name symbols.
func (e *Encoder) Struct(name string) (*StructBuilder, error) {
	m, err := e.rt.Map()
	if err != nil {
		return nil, errors.Ctx(err, "encoding struct %s", name)
	}
	return &StructBuilder{m: m, rt: e.rt, name: name}, nil
}

// SeqBuilder accumulates elements of an indexed container.
type SeqBuilder struct {
	arr scriptbridge.Array
	n   int
}

func (b *SeqBuilder) Element(item scriptbridge.Object) error {
	if err := b.arr.Append(item); err != nil {
		return errors.Ctx(err, "encoding element %d", b.n)
	}
	b.n++
	return nil
}

// End returns the finished container. The builder must not be reused.
func (b *SeqBuilder) End() scriptbridge.Object {
	return b.arr
}

// MapBuilder accumulates entries of a keyed container. Keys and values
// arrive as separate calls; a value without a preceding key is a protocol
// violation.
type MapBuilder struct {
	m      scriptbridge.Map
	key    scriptbridge.Object
	hasKey bool
}

func (b *MapBuilder) Key(k scriptbridge.Object) error {
	b.key = k
	b.hasKey = true
	return nil
}

func (b *MapBuilder) Value(v scriptbridge.Object) error {
	if !b.hasKey {
		return errors.New("no key given")
	}
	key := b.key
	b.key = nil
	b.hasKey = false
	if err := b.m.Store(key, v); err != nil {
		return errors.Ctx(err, "encoding value for key %s", keyLabel(key))
	}
	return nil
}

func (b *MapBuilder) Entry(k, v scriptbridge.Object) error {
	if err := b.Key(k); err != nil {
		return err
	}
	return b.Value(v)
}

func (b *MapBuilder) End() scriptbridge.Object {
	return b.m
}

// StructBuilder accumulates fields of a struct encoded as a keyed container
// with symbol keys.
type StructBuilder struct {
	m    scriptbridge.Map
	rt   scriptbridge.Runtime
	name string
}

func (b *StructBuilder) Field(name string, v scriptbridge.Object) error {
	if err := b.m.Store(b.rt.Symbol(name), v); err != nil {
		return errors.Ctx(err, "encoding field '%s'", name)
	}
	return nil
}

func (b *StructBuilder) End() scriptbridge.Object {
	return b.m
}
