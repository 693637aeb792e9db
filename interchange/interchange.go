package interchange

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

var config = jsoniter.ConfigCompatibleWithStandardLibrary

// FromJSON parses one JSON value into a guest object graph. Object keys
// become guest strings in document order; numbers become guest integers
// when they fit exactly, floats otherwise.
func FromJSON(rt scriptbridge.Runtime, data []byte) (scriptbridge.Object, error) {
	iter := config.BorrowIterator(data)
	defer config.ReturnIterator(iter)

	obj, err := readValue(rt, iter)
	if err != nil {
		return nil, err
	}
	if iter.WhatIsNext() != jsoniter.InvalidValue {
		return nil, errors.New("trailing data after JSON value")
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, errors.Ctx(errors.Wrap(iter.Error), "parsing JSON")
	}
	return obj, nil
}

func readValue(rt scriptbridge.Runtime, iter *jsoniter.Iterator) (scriptbridge.Object, error) {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return rt.Nil(), nil

	case jsoniter.BoolValue:
		return rt.Bool(iter.ReadBool()), nil

	case jsoniter.NumberValue:
		num := iter.ReadNumber()
		if n, err := num.Int64(); err == nil {
			return rt.Int(n), nil
		}
		f, err := num.Float64()
		if err != nil {
			return nil, errors.Newf("invalid number %q", num.String())
		}
		return rt.Float(f), nil

	case jsoniter.StringValue:
		return rt.String(iter.ReadString()), nil

	case jsoniter.ArrayValue:
		arr, err := rt.Array()
		if err != nil {
			return nil, err
		}
		var innerErr error
		i := 0
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			elem, err := readValue(rt, it)
			if err != nil {
				innerErr = errors.Ctx(err, "parsing element %d", i)
				return false
			}
			if err := arr.Append(elem); err != nil {
				innerErr = errors.Ctx(err, "parsing element %d", i)
				return false
			}
			i++
			return true
		})
		if innerErr != nil {
			return nil, innerErr
		}
		if iter.Error != nil && iter.Error != io.EOF {
			return nil, errors.Ctx(errors.Wrap(iter.Error), "parsing array")
		}
		return arr, nil

	case jsoniter.ObjectValue:
		m, err := rt.Map()
		if err != nil {
			return nil, err
		}
		var innerErr error
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			value, err := readValue(rt, it)
			if err != nil {
				innerErr = errors.Ctx(err, "parsing value for key '%s'", key)
				return false
			}
			if err := m.Store(rt.String(key), value); err != nil {
				innerErr = errors.Ctx(err, "parsing value for key '%s'", key)
				return false
			}
			return true
		})
		if innerErr != nil {
			return nil, innerErr
		}
		if iter.Error != nil && iter.Error != io.EOF {
			return nil, errors.Ctx(errors.Wrap(iter.Error), "parsing object")
		}
		return m, nil
	}

	if iter.Error != nil && iter.Error != io.EOF {
		return nil, errors.Ctx(errors.Wrap(iter.Error), "parsing JSON")
	}
	return nil, errors.New("invalid JSON value")
}

// ToJSON renders a guest object graph as JSON. Values without a JSON shape,
// such as symbols and plain objects, render as strings through their text
// protocol.
func ToJSON(obj scriptbridge.Object) ([]byte, error) {
	stream := config.BorrowStream(nil)
	defer config.ReturnStream(stream)

	if err := writeValue(stream, obj); err != nil {
		return nil, err
	}
	if stream.Error != nil {
		return nil, errors.Ctx(errors.Wrap(stream.Error), "writing JSON")
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

func writeValue(stream *jsoniter.Stream, obj scriptbridge.Object) error {
	if obj == nil || obj.IsNil() {
		stream.WriteNil()
		return nil
	}

	switch o := obj.(type) {
	case scriptbridge.Bool:
		stream.WriteBool(o.BoolValue())

	case scriptbridge.Int:
		stream.WriteInt64(o.IntValue())

	case scriptbridge.Float:
		stream.WriteFloat64(o.FloatValue())

	case scriptbridge.Str:
		stream.WriteString(o.StrValue())

	case scriptbridge.Map:
		keys, err := o.Keys()
		if err != nil {
			return errors.Ctx(err, "writing map keys")
		}
		stream.WriteObjectStart()
		for i, key := range keys {
			if i > 0 {
				stream.WriteMore()
			}
			label, err := key.Text()
			if err != nil {
				return errors.Ctx(err, "writing key %d", i)
			}
			stream.WriteObjectField(label)
			value, err := o.Fetch(key)
			if err != nil {
				return errors.Ctx(err, "writing value for key '%s'", label)
			}
			if err := writeValue(stream, value); err != nil {
				return errors.Ctx(err, "writing value for key '%s'", label)
			}
		}
		stream.WriteObjectEnd()

	case scriptbridge.Array:
		n, err := o.Len()
		if err != nil {
			return errors.Ctx(err, "writing array length")
		}
		stream.WriteArrayStart()
		for i := 0; i < n; i++ {
			if i > 0 {
				stream.WriteMore()
			}
			elem, err := o.Index(i)
			if err != nil {
				return errors.Ctx(err, "writing element %d", i)
			}
			if err := writeValue(stream, elem); err != nil {
				return errors.Ctx(err, "writing element %d", i)
			}
		}
		stream.WriteArrayEnd()

	default:
		// Symbols, exceptions and plain objects have no JSON shape of their
		// own; their text rendering travels as a string.
		s, err := obj.Text()
		if err != nil {
			return errors.Ctx(err, "rendering '%s' as text", obj.ClassName())
		}
		stream.WriteString(s)
	}
	return nil
}
