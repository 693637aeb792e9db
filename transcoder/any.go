package transcoder

import (
	scriptbridge "github.com/wippyai/script-bridge"
)

// Any decodes a guest value into generic Go values with the shape picked by
// the value itself: nil, bool, int64, float64, string, []any or
// map[string]any. Map keys are stringified, so symbol and string keys land
// on the same Go key.
func Any(d *Decoder) (any, error) {
	return d.DecodeAny(anyVisitor{BaseVisitor{Expecting: "a plain value"}})
}

// DecodeValue is the convenience form of Any for a bare guest value.
func DecodeValue(obj scriptbridge.Object) (any, error) {
	return Any(NewDecoder(obj))
}

type anyVisitor struct {
	BaseVisitor
}

func (anyVisitor) VisitNil() (any, error)            { return nil, nil }
func (anyVisitor) VisitBool(b bool) (any, error)     { return b, nil }
func (anyVisitor) VisitInt(n int64) (any, error)     { return n, nil }
func (anyVisitor) VisitUint(n uint64) (any, error)   { return n, nil }
func (anyVisitor) VisitFloat(f float64) (any, error) { return f, nil }
func (anyVisitor) VisitString(s string) (any, error) { return s, nil }

func (anyVisitor) VisitBytes(b []byte) (any, error) {
	return append([]byte(nil), b...), nil
}

func (v anyVisitor) VisitSome(d *Decoder) (any, error) {
	return d.DecodeAny(v)
}

func (v anyVisitor) VisitSeq(seq SeqAccess) (any, error) {
	out := make([]any, 0, seq.Remaining())
	for {
		elem, ok, err := seq.NextElement(Any)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, elem)
	}
}

func (v anyVisitor) VisitMap(m MapAccess) (any, error) {
	stringKey := func(d *Decoder) (any, error) {
		return d.DecodeString(v)
	}
	out := make(map[string]any, m.Remaining())
	for {
		key, ok, err := m.NextKey(stringKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		value, err := m.NextValue(Any)
		if err != nil {
			return nil, err
		}
		out[key.(string)] = value
	}
}
