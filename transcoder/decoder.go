package transcoder

import (
	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Decoder reads a single guest value. Each Decode method interprets the
// value as one shape, converting where the guest supports it, and hands the
// result to the visitor. Methods do not mutate the decoder, so a value can
// be probed more than once.
type Decoder struct {
	obj scriptbridge.Object
}

// NewDecoder wraps a guest value for decoding.
func NewDecoder(obj scriptbridge.Object) *Decoder {
	return &Decoder{obj: obj}
}

// Object returns the underlying guest value untouched.
func (d *Decoder) Object() scriptbridge.Object {
	return d.obj
}

func (d *Decoder) intValue() (int64, error) {
	n, ok := d.obj.(scriptbridge.Int)
	if !ok {
		return 0, errors.Newf("cannot convert '%s' into Int", d.obj.ClassName())
	}
	return n.IntValue(), nil
}

func (d *Decoder) floatValue() (float64, error) {
	if f, ok := d.obj.(scriptbridge.Float); ok {
		return f.FloatValue(), nil
	}
	// Integral guest values widen to float.
	if n, ok := d.obj.(scriptbridge.Int); ok {
		return float64(n.IntValue()), nil
	}
	return 0, errors.Newf("cannot convert '%s' into Float", d.obj.ClassName())
}

// DecodeBool requires a boolean-capable value.
func (d *Decoder) DecodeBool(v Visitor) (any, error) {
	b, ok := d.obj.(scriptbridge.Bool)
	if !ok {
		return nil, errors.Newf("cannot convert '%s' into Bool", d.obj.ClassName())
	}
	return v.VisitBool(b.BoolValue())
}

// Signed widths all visit the full 64-bit value; narrowing happens at the
// assignment site.

func (d *Decoder) DecodeInt8(v Visitor) (any, error)  { return d.DecodeInt64(v) }
func (d *Decoder) DecodeInt16(v Visitor) (any, error) { return d.DecodeInt64(v) }
func (d *Decoder) DecodeInt32(v Visitor) (any, error) { return d.DecodeInt64(v) }

func (d *Decoder) DecodeInt64(v Visitor) (any, error) {
	n, err := d.intValue()
	if err != nil {
		return nil, err
	}
	return v.VisitInt(n)
}

// Unsigned widths up to 32 bits reinterpret the low 32 bits of the guest
// integer. No range check is made.

func (d *Decoder) DecodeUint8(v Visitor) (any, error)  { return d.DecodeUint32(v) }
func (d *Decoder) DecodeUint16(v Visitor) (any, error) { return d.DecodeUint32(v) }

func (d *Decoder) DecodeUint32(v Visitor) (any, error) {
	n, err := d.intValue()
	if err != nil {
		return nil, err
	}
	return v.VisitUint(uint64(uint32(n)))
}

// DecodeUint64 reinterprets the guest integer's bits as unsigned.
func (d *Decoder) DecodeUint64(v Visitor) (any, error) {
	n, err := d.intValue()
	if err != nil {
		return nil, err
	}
	return v.VisitUint(uint64(n))
}

func (d *Decoder) DecodeFloat32(v Visitor) (any, error) { return d.DecodeFloat64(v) }

func (d *Decoder) DecodeFloat64(v Visitor) (any, error) {
	f, err := d.floatValue()
	if err != nil {
		return nil, err
	}
	return v.VisitFloat(f)
}

// DecodeString stringifies the value through its text protocol, so any
// guest value that can render itself decodes as a string.
func (d *Decoder) DecodeString(v Visitor) (any, error) {
	s, err := d.obj.Text()
	if err != nil {
		return nil, errors.Ctx(err, "rendering '%s' as text", d.obj.ClassName())
	}
	return v.VisitString(s)
}

// DecodeChar decodes like a string; single-character enforcement is the
// caller's concern.
func (d *Decoder) DecodeChar(v Visitor) (any, error) {
	return d.DecodeString(v)
}

// DecodeBytes requires a string-capable value and passes its raw bytes
// through without stringifying other classes.
func (d *Decoder) DecodeBytes(v Visitor) (any, error) {
	s, ok := d.obj.(scriptbridge.Str)
	if !ok {
		return nil, errors.Newf("cannot convert '%s' into String", d.obj.ClassName())
	}
	return v.VisitBytes([]byte(s.StrValue()))
}

func (d *Decoder) DecodeByteBuf(v Visitor) (any, error) {
	return d.DecodeBytes(v)
}

// DecodeOption maps guest nil to the absent branch and anything else to the
// present branch.
func (d *Decoder) DecodeOption(v Visitor) (any, error) {
	if d.obj.IsNil() {
		return v.VisitNil()
	}
	return v.VisitSome(d)
}

// DecodeUnit accepts only guest nil.
func (d *Decoder) DecodeUnit(v Visitor) (any, error) {
	if !d.obj.IsNil() {
		return nil, errors.Newf("value of class '%s' is not nil", d.obj.ClassName())
	}
	return v.VisitNil()
}

// DecodeUnitStruct ignores the value entirely.
func (d *Decoder) DecodeUnitStruct(name string, v Visitor) (any, error) {
	return v.VisitNil()
}

// DecodeNewtypeStruct is transparent: the inner decode sees the same value.
func (d *Decoder) DecodeNewtypeStruct(name string, decode DecodeFunc) (any, error) {
	return decode(d)
}

// DecodeSeq requires an indexed container.
func (d *Decoder) DecodeSeq(v Visitor) (any, error) {
	arr, ok := d.obj.(scriptbridge.Array)
	if !ok {
		return nil, errors.Newf("cannot convert '%s' into Array", d.obj.ClassName())
	}
	seq, err := newSeqAccess(arr)
	if err != nil {
		return nil, err
	}
	return v.VisitSeq(seq)
}

// DecodeTuple uses the sequence mechanism; length mismatches surface when
// the visitor runs out of elements.
func (d *Decoder) DecodeTuple(n int, v Visitor) (any, error) {
	return d.DecodeSeq(v)
}

// DecodeTupleStruct uses the sequence mechanism as well.
func (d *Decoder) DecodeTupleStruct(name string, n int, v Visitor) (any, error) {
	return d.DecodeSeq(v)
}

// DecodeMap requires a keyed container.
func (d *Decoder) DecodeMap(v Visitor) (any, error) {
	m, ok := d.obj.(scriptbridge.Map)
	if !ok {
		return nil, errors.Newf("cannot convert '%s' into Map", d.obj.ClassName())
	}
	h, err := newHashAccess(m)
	if err != nil {
		return nil, err
	}
	return v.VisitMap(h)
}

// DecodeStruct picks the access mode from the value: keyed containers are
// walked entry by entry, anything else is treated as a plain object whose
// declared fields are read through method dispatch.
func (d *Decoder) DecodeStruct(name string, fields []string, v Visitor) (any, error) {
	if m, ok := d.obj.(scriptbridge.Map); ok {
		h, err := newHashAccess(m)
		if err != nil {
			return nil, err
		}
		return v.VisitMap(h)
	}
	return v.VisitMap(newObjectAccess(d.obj, fields))
}

// DecodeEnum resolves an externally-tagged variant. A single-entry keyed
// container carries both tag and payload; any other value is its own tag.
func (d *Decoder) DecodeEnum(name string, variants []string, v Visitor) (any, error) {
	return v.VisitEnum(&enumAccess{obj: d.obj})
}

// DecodeIdentifier decodes field names and variant tags as strings.
func (d *Decoder) DecodeIdentifier(v Visitor) (any, error) {
	return d.DecodeString(v)
}

// DecodeIgnoredAny discards the value without touching it.
func (d *Decoder) DecodeIgnoredAny(v Visitor) (any, error) {
	return v.VisitNil()
}

// DecodeAny picks the decode shape from the value's own capabilities. Values
// exposing none of the known capabilities, such as symbols or plain objects,
// are rejected.
func (d *Decoder) DecodeAny(v Visitor) (any, error) {
	if d.obj.IsNil() {
		return v.VisitNil()
	}
	switch o := d.obj.(type) {
	case scriptbridge.Bool:
		return v.VisitBool(o.BoolValue())
	case scriptbridge.Int:
		return v.VisitInt(o.IntValue())
	case scriptbridge.Float:
		return v.VisitFloat(o.FloatValue())
	case scriptbridge.Str:
		return v.VisitString(o.StrValue())
	case scriptbridge.Map:
		h, err := newHashAccess(o)
		if err != nil {
			return nil, err
		}
		return v.VisitMap(h)
	case scriptbridge.Array:
		seq, err := newSeqAccess(o)
		if err != nil {
			return nil, err
		}
		return v.VisitSeq(seq)
	}
	return nil, errors.Newf("no rule to decode class '%s'", d.obj.ClassName())
}
