package transcoder

import (
	"reflect"
	"sort"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Marshal encodes a Go value into a guest value. Structs become keyed
// containers with symbol keys, pointers encode nil as guest nil, and values
// already implementing Object pass through untouched.
func Marshal(rt scriptbridge.Runtime, v any) (scriptbridge.Object, error) {
	return encodeValue(NewEncoder(rt), reflect.ValueOf(v))
}

func encodeValue(e *Encoder, v reflect.Value) (scriptbridge.Object, error) {
	if !v.IsValid() {
		return e.Nil(), nil
	}

	t := v.Type()

	if t.Implements(marshalerType) {
		if t.Kind() == reflect.Pointer && v.IsNil() {
			return e.Nil(), nil
		}
		return v.Interface().(Marshaler).MarshalGuest(e)
	}
	if v.CanAddr() && reflect.PointerTo(t).Implements(marshalerType) {
		return v.Addr().Interface().(Marshaler).MarshalGuest(e)
	}

	// Guest values pass through rather than being re-encoded.
	if t.Implements(objectType) {
		if t.Kind() == reflect.Pointer && v.IsNil() {
			return e.Nil(), nil
		}
		return v.Interface().(scriptbridge.Object), nil
	}

	switch t {
	case charType:
		return e.Char(rune(v.Int())), nil
	case symbolType:
		return e.Runtime().Symbol(v.String()), nil
	}

	switch t.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return e.Nil(), nil
		}
		return encodeValue(e, v.Elem())
	case reflect.Bool:
		return e.Bool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.Int(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.Uint(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return e.Float(v.Float()), nil
	case reflect.String:
		return e.String(v.String()), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return e.Bytes(v.Bytes()), nil
		}
		return encodeSeq(e, v)
	case reflect.Array:
		return encodeSeq(e, v)
	case reflect.Map:
		return encodeMap(e, v)
	case reflect.Pointer:
		if v.IsNil() {
			return e.Nil(), nil
		}
		return encodeValue(e, v.Elem())
	case reflect.Struct:
		info := cachedStructInfo(t)
		if info.union {
			return encodeUnion(e, v, info)
		}
		obj, err := encodeStruct(e, v, info)
		if err != nil {
			return nil, errors.Ctx(err, "encoding struct %s", t.Name())
		}
		return obj, nil
	}
	return nil, errors.Newf("unsupported encode source %s", t)
}

func encodeSeq(e *Encoder, v reflect.Value) (scriptbridge.Object, error) {
	b, err := e.Seq()
	if err != nil {
		return nil, err
	}
	for i := 0; i < v.Len(); i++ {
		elem, err := encodeValue(e, v.Index(i))
		if err != nil {
			return nil, errors.Ctx(err, "encoding element %d", i)
		}
		if err := b.Element(elem); err != nil {
			return nil, err
		}
	}
	return b.End(), nil
}

// encodeMap writes entries in deterministic order where the key kind has a
// natural one.
func encodeMap(e *Encoder, v reflect.Value) (scriptbridge.Object, error) {
	keys := v.MapKeys()
	switch v.Type().Key().Kind() {
	case reflect.String:
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Int() < keys[j].Int() })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Uint() < keys[j].Uint() })
	}

	b, err := e.Map()
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		ko, err := encodeValue(e, k)
		if err != nil {
			return nil, errors.Ctx(err, "encoding map key")
		}
		vo, err := encodeValue(e, v.MapIndex(k))
		if err != nil {
			return nil, errors.Ctx(err, "encoding value for key %s", keyLabel(ko))
		}
		if err := b.Entry(ko, vo); err != nil {
			return nil, err
		}
	}
	return b.End(), nil
}

func encodeStruct(e *Encoder, v reflect.Value, info *structInfo) (scriptbridge.Object, error) {
	b, err := e.Struct(v.Type().Name())
	if err != nil {
		return nil, err
	}
	for _, f := range info.fields {
		obj, err := encodeValue(e, v.Field(f.index))
		if err != nil {
			return nil, errors.Ctx(err, "encoding field '%s'", f.name)
		}
		if err := b.Field(f.name, obj); err != nil {
			return nil, err
		}
	}
	return b.End(), nil
}

// encodeUnion encodes the single set variant of a union struct. Zero or
// multiple set variants are caller errors.
func encodeUnion(e *Encoder, v reflect.Value, info *structInfo) (scriptbridge.Object, error) {
	name := v.Type().Name()
	set := -1
	for i, f := range info.fields {
		fv := v.Field(f.index)
		var active bool
		switch f.typ.Kind() {
		case reflect.Bool:
			active = fv.Bool()
		case reflect.Pointer:
			active = !fv.IsNil()
		default:
			return nil, errors.Newf("variant '%s' must be bool or pointer typed", f.name)
		}
		if !active {
			continue
		}
		if set >= 0 {
			return nil, errors.Newf("multiple variants set in %s", name)
		}
		set = i
	}
	if set < 0 {
		return nil, errors.Newf("no variant set in %s", name)
	}

	f := info.fields[set]
	switch {
	case f.typ.Kind() == reflect.Bool:
		return e.UnitVariant(name, f.name), nil
	case f.typ.Elem().Kind() == reflect.Array:
		_, err := e.TupleVariant(name, f.name, f.typ.Elem().Len())
		return nil, err
	default:
		payload, err := encodeValue(e, v.Field(f.index).Elem())
		if err != nil {
			return nil, errors.Ctx(err, "encoding variant '%s'", f.name)
		}
		return e.NewtypeVariant(name, f.name, payload)
	}
}
