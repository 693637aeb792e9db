package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Engine values implement the root capability interfaces directly: a value's
// Go method set is exactly the capability set the bridge may probe for, so a
// type assertion against e.g. scriptbridge.Map is an honest capability test.

type nilValue struct{}

func (nilValue) ClassName() string { return "Nil" }
func (nilValue) IsNil() bool       { return true }
func (nilValue) Text() (string, error) {
	return "", nil
}
func (n nilValue) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return builtinCall(n, name, args)
}

// theNil is the runtime's single nil sentinel.
var theNil = nilValue{}

type boolValue bool

func (boolValue) ClassName() string { return "Bool" }
func (boolValue) IsNil() bool       { return false }
func (v boolValue) BoolValue() bool { return bool(v) }
func (v boolValue) Text() (string, error) {
	return strconv.FormatBool(bool(v)), nil
}
func (v boolValue) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return builtinCall(v, name, args)
}

type intValue int64

func (intValue) ClassName() string  { return "Int" }
func (intValue) IsNil() bool        { return false }
func (v intValue) IntValue() int64  { return int64(v) }
func (v intValue) Text() (string, error) {
	return strconv.FormatInt(int64(v), 10), nil
}
func (v intValue) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return builtinCall(v, name, args)
}

type floatValue float64

func (floatValue) ClassName() string      { return "Float" }
func (floatValue) IsNil() bool            { return false }
func (v floatValue) FloatValue() float64  { return float64(v) }
func (v floatValue) Text() (string, error) {
	return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
}
func (v floatValue) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return builtinCall(v, name, args)
}

type strValue string

func (strValue) ClassName() string   { return "String" }
func (strValue) IsNil() bool         { return false }
func (v strValue) StrValue() string  { return string(v) }
func (v strValue) Text() (string, error) {
	return string(v), nil
}
func (v strValue) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return builtinCall(v, name, args)
}

// symValue is a symbolic name. Deliberately not a Str: symbols stringify but
// are not native strings, so byte decoding rejects them.
type symValue string

func (symValue) ClassName() string { return "Symbol" }
func (symValue) IsNil() bool       { return false }
func (v symValue) Text() (string, error) {
	return string(v), nil
}
func (v symValue) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return builtinCall(v, name, args)
}

type arrayValue struct {
	items []scriptbridge.Object
}

func (*arrayValue) ClassName() string { return "Array" }
func (*arrayValue) IsNil() bool       { return false }

func (a *arrayValue) Len() (int, error) {
	return len(a.items), nil
}

// Index returns nil for out-of-range positions, like most dynamic runtimes.
func (a *arrayValue) Index(i int) (scriptbridge.Object, error) {
	if i < 0 || i >= len(a.items) {
		return theNil, nil
	}
	return a.items[i], nil
}

func (a *arrayValue) Append(items ...scriptbridge.Object) error {
	a.items = append(a.items, items...)
	return nil
}

func (a *arrayValue) Text() (string, error) {
	return Inspect(a), nil
}

func (a *arrayValue) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return builtinCall(a, name, args)
}

type hashEntry struct {
	key   scriptbridge.Object
	value scriptbridge.Object
}

// hashValue is a keyed container preserving insertion order.
type hashValue struct {
	entries []hashEntry
	index   map[string]int
}

func newHash() *hashValue {
	return &hashValue{index: make(map[string]int)}
}

func (*hashValue) ClassName() string { return "Map" }
func (*hashValue) IsNil() bool       { return false }

func (h *hashValue) Len() (int, error) {
	return len(h.entries), nil
}

func (h *hashValue) Keys() ([]scriptbridge.Object, error) {
	keys := make([]scriptbridge.Object, len(h.entries))
	for i, e := range h.entries {
		keys[i] = e.key
	}
	return keys, nil
}

func (h *hashValue) Fetch(key scriptbridge.Object) (scriptbridge.Object, error) {
	if i, ok := h.index[hashKey(key)]; ok {
		return h.entries[i].value, nil
	}
	return nil, errors.FromException(&exception{
		class:   "KeyError",
		message: "key not found: " + Inspect(key),
	})
}

func (h *hashValue) Store(key, value scriptbridge.Object) error {
	k := hashKey(key)
	if i, ok := h.index[k]; ok {
		h.entries[i].value = value
		return nil
	}
	h.index[k] = len(h.entries)
	h.entries = append(h.entries, hashEntry{key: key, value: value})
	return nil
}

func (h *hashValue) Text() (string, error) {
	return Inspect(h), nil
}

func (h *hashValue) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	return builtinCall(h, name, args)
}

// hashKey canonicalizes a guest object into a lookup key. Values of
// different classes never collide.
func hashKey(o scriptbridge.Object) string {
	return o.ClassName() + ":" + Inspect(o)
}

type exception struct {
	class   string
	message string
}

func (e *exception) ClassName() string { return e.class }
func (*exception) IsNil() bool         { return false }
func (e *exception) Message() string   { return e.message }

func (e *exception) WithMessage(message string) (scriptbridge.Exception, error) {
	return &exception{class: e.class, message: message}, nil
}

func (e *exception) Text() (string, error) {
	return e.message, nil
}

func (e *exception) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	switch name {
	case "message":
		return strValue(e.message), nil
	case "inspect":
		return strValue(fmt.Sprintf("#<%s: %s>", e.class, e.message)), nil
	}
	return builtinCall(e, name, args)
}

type exceptionClass struct {
	name string
}

func (c *exceptionClass) Name() string { return c.name }

func (c *exceptionClass) New(message string) (scriptbridge.Exception, error) {
	return &exception{class: c.name, message: message}, nil
}

// instance is an object of a scripted class: dispatch resolves against the
// class's method table.
type instance struct {
	class *Class
}

func (i *instance) ClassName() string { return i.class.name }
func (*instance) IsNil() bool         { return false }

func (i *instance) Text() (string, error) {
	return "#<" + i.class.name + ">", nil
}

func (i *instance) Call(name string, args ...scriptbridge.Object) (scriptbridge.Object, error) {
	if result, ok := i.class.methods[name]; ok {
		Logger().Debug("scripted dispatch",
			zap.String("class", i.class.name),
			zap.String("method", name))
		return result, nil
	}
	return builtinCall(i, name, args)
}

// builtinCall handles the dispatch every engine value answers. Anything else
// raises NoMethodError.
func builtinCall(o scriptbridge.Object, name string, args []scriptbridge.Object) (scriptbridge.Object, error) {
	switch name {
	case "to_s":
		s, err := o.Text()
		if err != nil {
			return nil, err
		}
		return strValue(s), nil
	case "inspect":
		return strValue(Inspect(o)), nil
	}
	return nil, errors.FromException(&exception{
		class:   "NoMethodError",
		message: fmt.Sprintf("undefined method '%s' for %s", name, o.ClassName()),
	})
}

// Inspect renders a guest object for diagnostics: quoted strings, :symbols,
// bracketed containers. Foreign objects fall back to their stringification.
func Inspect(o scriptbridge.Object) string {
	switch v := o.(type) {
	case nilValue:
		return "nil"
	case strValue:
		return strconv.Quote(string(v))
	case symValue:
		return ":" + string(v)
	case *arrayValue:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = Inspect(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *hashValue:
		parts := make([]string, len(v.entries))
		for i, e := range v.entries {
			parts[i] = Inspect(e.key) + " => " + Inspect(e.value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *exception:
		return fmt.Sprintf("#<%s: %s>", v.class, v.message)
	default:
		s, err := o.Text()
		if err != nil {
			return "#<" + o.ClassName() + ">"
		}
		return s
	}
}
