package transcoder

import (
	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// SeqAccess drives one pass over an indexed guest container. Position is
// monotonically non-decreasing; once it reaches the length, NextElement
// reports exhaustion (ok == false) and never revisits an index.
type SeqAccess interface {
	NextElement(decode DecodeFunc) (v any, ok bool, err error)
	Remaining() int
}

// MapAccess drives one pass over entries of a keyed container or the
// declared fields of an object. Calls alternate NextKey then NextValue;
// NextKey reports exhaustion (ok == false) exactly once.
type MapAccess interface {
	NextKey(decode DecodeFunc) (k any, ok bool, err error)
	NextValue(decode DecodeFunc) (v any, err error)
	Remaining() int
}

// EnumAccess resolves the externally-tagged variant of a guest object.
type EnumAccess interface {
	// Variant decodes the tag with decode and returns the cursor for the
	// variant's payload.
	Variant(decode DecodeFunc) (tag any, v VariantAccess, err error)
}

// VariantAccess decodes one variant payload in the shape the caller's type
// declares.
type VariantAccess interface {
	// Unit accepts a payload-free variant.
	Unit() error
	// Newtype decodes the payload as the variant's single inner value.
	Newtype(decode DecodeFunc) (any, error)
	// Tuple is not supported by this format.
	Tuple(n int, v Visitor) (any, error)
	// Struct is not supported by this format.
	Struct(fields []string, v Visitor) (any, error)
}

// fieldName adapts a declared field name or variant tag into a string-valued
// guest object, so key decoding is uniform across cursor modes.
type fieldName string

func (fieldName) ClassName() string      { return "String" }
func (fieldName) IsNil() bool            { return false }
func (f fieldName) StrValue() string     { return string(f) }
func (f fieldName) Text() (string, error) { return string(f), nil }
func (f fieldName) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return nil, errors.Newf("no dynamic dispatch on literal '%s'", string(f))
}

type seqAccess struct {
	arr scriptbridge.Array
	pos int
	len int
}

func newSeqAccess(arr scriptbridge.Array) (*seqAccess, error) {
	n, err := arr.Len()
	if err != nil {
		return nil, errors.Ctx(err, "reading sequence length")
	}
	return &seqAccess{arr: arr, len: n}, nil
}

func (s *seqAccess) NextElement(decode DecodeFunc) (any, bool, error) {
	if s.pos == s.len {
		return nil, false, nil
	}
	i := s.pos
	elem, err := s.arr.Index(i)
	if err != nil {
		return nil, false, errors.Ctx(err, "decoding element %d", i)
	}
	s.pos++
	v, err := decode(NewDecoder(elem))
	if err != nil {
		return nil, false, errors.Ctx(err, "decoding element %d", i)
	}
	return v, true, nil
}

func (s *seqAccess) Remaining() int {
	return s.len - s.pos
}

// hashAccess iterates a keyed container: keys are enumerated once up front,
// values fetched by keyed lookup as the caller asks for them.
type hashAccess struct {
	m       scriptbridge.Map
	keys    []scriptbridge.Object
	pos     int
	current scriptbridge.Object
}

func newHashAccess(m scriptbridge.Map) (*hashAccess, error) {
	keys, err := m.Keys()
	if err != nil {
		return nil, errors.Ctx(err, "enumerating map keys")
	}
	return &hashAccess{m: m, keys: keys}, nil
}

func (h *hashAccess) NextKey(decode DecodeFunc) (any, bool, error) {
	if h.pos == len(h.keys) {
		return nil, false, nil
	}
	h.current = h.keys[h.pos]
	k, err := decode(NewDecoder(h.current))
	if err != nil {
		return nil, false, errors.Ctx(err, "decoding key %d", h.pos)
	}
	return k, true, nil
}

func (h *hashAccess) NextValue(decode DecodeFunc) (any, error) {
	if h.current == nil {
		return nil, errors.New("map value requested before its key")
	}
	key := h.current
	h.current = nil
	value, err := h.m.Fetch(key)
	if err != nil {
		return nil, errors.Ctx(err, "decoding value for key %s", keyLabel(key))
	}
	h.pos++
	v, err := decode(NewDecoder(value))
	if err != nil {
		return nil, errors.Ctx(err, "decoding value for key %s", keyLabel(key))
	}
	return v, nil
}

func (h *hashAccess) Remaining() int {
	return len(h.keys) - h.pos
}

// objectAccess iterates a plain object in struct mode: the declared field
// list drives iteration and each value comes from dispatching the field name
// as a method.
type objectAccess struct {
	obj    scriptbridge.Object
	fields []string
	pos    int
}

func newObjectAccess(obj scriptbridge.Object, fields []string) *objectAccess {
	return &objectAccess{obj: obj, fields: fields}
}

func (o *objectAccess) NextKey(decode DecodeFunc) (any, bool, error) {
	if o.pos == len(o.fields) {
		return nil, false, nil
	}
	name := o.fields[o.pos]
	k, err := decode(NewDecoder(fieldName(name)))
	if err != nil {
		return nil, false, errors.Ctx(err, "decoding field name '%s'", name)
	}
	return k, true, nil
}

func (o *objectAccess) NextValue(decode DecodeFunc) (any, error) {
	name := o.fields[o.pos]
	result, err := o.obj.Call(name)
	if err != nil {
		return nil, errors.Ctx(err, "decoding field '%s'", name)
	}
	o.pos++
	v, err := decode(NewDecoder(result))
	if err != nil {
		return nil, errors.Ctx(err, "decoding field '%s'", name)
	}
	return v, nil
}

func (o *objectAccess) Remaining() int {
	return len(o.fields) - o.pos
}

type enumAccess struct {
	obj scriptbridge.Object
}

func (e *enumAccess) Variant(decode DecodeFunc) (any, VariantAccess, error) {
	var tag string
	var payload scriptbridge.Object

	if m, ok := e.obj.(scriptbridge.Map); ok {
		// Externally tagged: the single key is the tag, its value the
		// payload.
		keys, err := m.Keys()
		if err != nil {
			return nil, nil, errors.Ctx(err, "reading variant tag")
		}
		if len(keys) == 0 {
			return nil, nil, errors.New("cannot decode a variant from an empty map")
		}
		tag, err = keys[0].Text()
		if err != nil {
			return nil, nil, errors.Ctx(err, "reading variant tag")
		}
		payload, err = m.Fetch(keys[0])
		if err != nil {
			return nil, nil, errors.Ctx(err, "reading payload for variant '%s'", tag)
		}
	} else {
		// Anything else is a unit-shaped variant: the object's own
		// stringification is the tag and the object itself the payload.
		var err error
		tag, err = e.obj.Text()
		if err != nil {
			return nil, nil, errors.Ctx(err, "reading variant tag")
		}
		payload = e.obj
	}

	tagValue, err := decode(NewDecoder(fieldName(tag)))
	if err != nil {
		return nil, nil, errors.Ctx(err, "decoding variant tag '%s'", tag)
	}
	return tagValue, &variantAccess{obj: payload}, nil
}

type variantAccess struct {
	obj scriptbridge.Object
}

func (v *variantAccess) Unit() error {
	return nil
}

func (v *variantAccess) Newtype(decode DecodeFunc) (any, error) {
	return decode(NewDecoder(v.obj))
}

func (v *variantAccess) Tuple(n int, _ Visitor) (any, error) {
	return nil, errors.NotImplemented("decoding tuple variants")
}

func (v *variantAccess) Struct(fields []string, _ Visitor) (any, error) {
	return nil, errors.NotImplemented("decoding struct variants")
}

// keyLabel renders a map key for error context.
func keyLabel(key scriptbridge.Object) string {
	s, err := key.Text()
	if err != nil {
		return "of class " + key.ClassName()
	}
	return "'" + s + "'"
}
