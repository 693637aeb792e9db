package transcoder

import (
	"reflect"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Unmarshal decodes a guest value into dst, which must be a non-nil pointer.
// The target type drives the decode: struct targets accept both keyed
// containers and plain objects, pointer fields are optional, and fields the
// guest does not provide fail the decode unless they are pointers.
func Unmarshal(obj scriptbridge.Object, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.Newf("decode target must be a non-nil pointer, got %T", dst)
	}
	return decodeValue(NewDecoder(obj), rv.Elem())
}

// decodeInto adapts a reflect target to the cursor decode protocol.
func decodeInto(v reflect.Value) DecodeFunc {
	return func(d *Decoder) (any, error) {
		return nil, decodeValue(d, v)
	}
}

func keyString(d *Decoder) (any, error) {
	return d.DecodeIdentifier(anyVisitor{BaseVisitor{Expecting: "a field name"}})
}

func skipValue(d *Decoder) (any, error) {
	return d.DecodeIgnoredAny(anyVisitor{BaseVisitor{Expecting: "an ignored value"}})
}

func decodeValue(d *Decoder, v reflect.Value) error {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalGuest(d)
		}
	}

	t := v.Type()

	// Interface targets other than any take the guest value itself, when it
	// offers the right capabilities.
	if t.Kind() == reflect.Interface && t.NumMethod() > 0 {
		obj := d.Object()
		if obj == nil {
			return errors.Newf("no guest value to satisfy %s", t)
		}
		if !reflect.TypeOf(obj).Implements(t) {
			return errors.Newf("guest value of class '%s' does not satisfy %s", obj.ClassName(), t)
		}
		v.Set(reflect.ValueOf(obj))
		return nil
	}
	if t.Kind() == reflect.Interface {
		val, err := Any(d)
		if err != nil {
			return err
		}
		if val == nil {
			v.Set(reflect.Zero(t))
			return nil
		}
		v.Set(reflect.ValueOf(val))
		return nil
	}

	vis := valueVisitor{BaseVisitor{Expecting: t.String()}, v}

	if t == charType {
		_, err := d.DecodeChar(vis)
		return err
	}

	switch t.Kind() {
	case reflect.Bool:
		_, err := d.DecodeBool(vis)
		return err
	case reflect.Int8:
		_, err := d.DecodeInt8(vis)
		return err
	case reflect.Int16:
		_, err := d.DecodeInt16(vis)
		return err
	case reflect.Int32:
		_, err := d.DecodeInt32(vis)
		return err
	case reflect.Int, reflect.Int64:
		_, err := d.DecodeInt64(vis)
		return err
	case reflect.Uint8:
		_, err := d.DecodeUint8(vis)
		return err
	case reflect.Uint16:
		_, err := d.DecodeUint16(vis)
		return err
	case reflect.Uint32:
		_, err := d.DecodeUint32(vis)
		return err
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		_, err := d.DecodeUint64(vis)
		return err
	case reflect.Float32:
		_, err := d.DecodeFloat32(vis)
		return err
	case reflect.Float64:
		_, err := d.DecodeFloat64(vis)
		return err
	case reflect.String:
		_, err := d.DecodeString(vis)
		return err
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			_, err := d.DecodeBytes(vis)
			return err
		}
		_, err := d.DecodeSeq(vis)
		return err
	case reflect.Array:
		_, err := d.DecodeTuple(t.Len(), vis)
		return err
	case reflect.Map:
		_, err := d.DecodeMap(vis)
		return err
	case reflect.Pointer:
		_, err := d.DecodeOption(vis)
		return err
	case reflect.Struct:
		info := cachedStructInfo(t)
		if info.union {
			_, err := d.DecodeEnum(t.Name(), info.names, vis)
			return err
		}
		_, err := d.DecodeStruct(t.Name(), info.names, vis)
		if err != nil {
			return errors.Ctx(err, "decoding struct %s", t.Name())
		}
		return nil
	}
	return errors.Newf("unsupported decode target %s", t)
}

// valueVisitor assigns decoded shapes into one reflect target. Only the
// shapes the target's decode path can produce are overridden; everything
// else falls through to the rejection in BaseVisitor.
type valueVisitor struct {
	BaseVisitor
	v reflect.Value
}

func (v valueVisitor) VisitNil() (any, error) {
	v.v.Set(reflect.Zero(v.v.Type()))
	return nil, nil
}

func (v valueVisitor) VisitBool(b bool) (any, error) {
	v.v.SetBool(b)
	return nil, nil
}

// VisitInt narrows silently into the target's width.
func (v valueVisitor) VisitInt(n int64) (any, error) {
	v.v.SetInt(n)
	return nil, nil
}

func (v valueVisitor) VisitUint(n uint64) (any, error) {
	v.v.SetUint(n)
	return nil, nil
}

func (v valueVisitor) VisitFloat(f float64) (any, error) {
	v.v.SetFloat(f)
	return nil, nil
}

func (v valueVisitor) VisitString(s string) (any, error) {
	if v.v.Type() == charType {
		runes := []rune(s)
		if len(runes) != 1 {
			return nil, errors.Newf("cannot decode %q into a single character", s)
		}
		v.v.SetInt(int64(runes[0]))
		return nil, nil
	}
	v.v.SetString(s)
	return nil, nil
}

func (v valueVisitor) VisitBytes(b []byte) (any, error) {
	v.v.SetBytes(append([]byte(nil), b...))
	return nil, nil
}

func (v valueVisitor) VisitSome(d *Decoder) (any, error) {
	p := reflect.New(v.v.Type().Elem())
	if err := decodeValue(d, p.Elem()); err != nil {
		return nil, err
	}
	v.v.Set(p)
	return nil, nil
}

func (v valueVisitor) VisitSeq(seq SeqAccess) (any, error) {
	t := v.v.Type()
	if t.Kind() == reflect.Array {
		n := t.Len()
		for i := 0; i < n; i++ {
			_, ok, err := seq.NextElement(decodeInto(v.v.Index(i)))
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Newf("expected %d elements, found %d", n, i)
			}
		}
		// Trailing elements are left unread.
		return nil, nil
	}

	out := reflect.MakeSlice(t, 0, seq.Remaining())
	for {
		elem := reflect.New(t.Elem()).Elem()
		_, ok, err := seq.NextElement(decodeInto(elem))
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = reflect.Append(out, elem)
	}
	v.v.Set(out)
	return nil, nil
}

func (v valueVisitor) VisitMap(m MapAccess) (any, error) {
	t := v.v.Type()
	if t.Kind() == reflect.Struct {
		return v.visitStruct(m)
	}

	out := reflect.MakeMapWithSize(t, m.Remaining())
	for {
		key := reflect.New(t.Key()).Elem()
		_, ok, err := m.NextKey(decodeInto(key))
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		elem := reflect.New(t.Elem()).Elem()
		if _, err := m.NextValue(decodeInto(elem)); err != nil {
			return nil, err
		}
		out.SetMapIndex(key, elem)
	}
	v.v.Set(out)
	return nil, nil
}

// visitStruct fills struct fields from a map cursor. The same path serves
// keyed containers and plain objects; only the missing-field check can
// trigger for containers, since object cursors visit every declared field.
func (v valueVisitor) visitStruct(m MapAccess) (any, error) {
	info := cachedStructInfo(v.v.Type())
	seen := make(map[string]bool, len(info.fields))
	for {
		key, ok, err := m.NextKey(keyString)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		f, found := info.fieldByKey(key.(string))
		if !found {
			// Unknown keys are skipped, not errors.
			if _, err := m.NextValue(skipValue); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := m.NextValue(decodeInto(v.v.Field(f.index))); err != nil {
			return nil, err
		}
		seen[f.name] = true
	}
	for _, f := range info.fields {
		if !seen[f.name] && !f.optional {
			return nil, errors.Newf("missing field '%s'", f.name)
		}
	}
	return nil, nil
}

func (v valueVisitor) VisitEnum(e EnumAccess) (any, error) {
	info := cachedStructInfo(v.v.Type())
	tag, va, err := e.Variant(keyString)
	if err != nil {
		return nil, err
	}
	f, ok := info.fieldByKey(tag.(string))
	if !ok {
		return nil, errors.Newf("unknown variant '%s'", tag)
	}
	field := v.v.Field(f.index)
	switch {
	case f.typ.Kind() == reflect.Bool:
		if err := va.Unit(); err != nil {
			return nil, err
		}
		field.SetBool(true)
	case f.typ.Kind() == reflect.Pointer && f.typ.Elem().Kind() == reflect.Array:
		if _, err := va.Tuple(f.typ.Elem().Len(), nil); err != nil {
			return nil, err
		}
	case f.typ.Kind() == reflect.Pointer:
		p := reflect.New(f.typ.Elem())
		if _, err := va.Newtype(decodeInto(p.Elem())); err != nil {
			return nil, errors.Ctx(err, "decoding variant '%s'", f.name)
		}
		field.Set(p)
	default:
		return nil, errors.Newf("variant '%s' must be bool or pointer typed", f.name)
	}
	return nil, nil
}
