package transcoder

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	scriptbridge "github.com/wippyai/script-bridge"
)

// Char is a single guest character. It decodes from a one-character string
// and encodes back as one, unlike rune which travels as an integer.
type Char rune

// Symbol travels as a guest symbol where the runtime distinguishes symbols
// from strings. Decoding accepts anything string-shaped.
type Symbol string

// Union marks a struct as an externally-tagged variant union. Embed it and
// declare one field per variant: a bool field is a payload-free variant, a
// pointer field carries the variant's payload. Exactly one variant may be
// set when encoding; decoding sets exactly one.
type Union struct{}

// Marshaler lets a type produce its own guest value.
type Marshaler interface {
	MarshalGuest(e *Encoder) (scriptbridge.Object, error)
}

// Unmarshaler lets a type consume the guest value itself.
type Unmarshaler interface {
	UnmarshalGuest(d *Decoder) error
}

var (
	unionType       = reflect.TypeOf(Union{})
	charType        = reflect.TypeOf(Char(0))
	symbolType      = reflect.TypeOf(Symbol(""))
	objectType      = reflect.TypeOf((*scriptbridge.Object)(nil)).Elem()
	marshalerType   = reflect.TypeOf((*Marshaler)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
)

// structField describes one encodable field or union variant case.
type structField struct {
	name     string
	index    int
	typ      reflect.Type
	optional bool
}

// structInfo caches the wire layout of a struct type.
type structInfo struct {
	fields []structField
	names  []string
	byName map[string]int
	union  bool
}

var structCache sync.Map // reflect.Type -> *structInfo

func cachedStructInfo(t reflect.Type) *structInfo {
	if v, ok := structCache.Load(t); ok {
		return v.(*structInfo)
	}
	info := buildStructInfo(t)
	actual, _ := structCache.LoadOrStore(t, info)
	return actual.(*structInfo)
}

func buildStructInfo(t reflect.Type) *structInfo {
	info := &structInfo{byName: map[string]int{}}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == unionType {
			info.union = true
			continue
		}
		if f.PkgPath != "" {
			// Unexported fields never travel.
			continue
		}
		name := wireName(f)
		if name == "" {
			continue
		}
		info.byName[name] = len(info.fields)
		info.names = append(info.names, name)
		info.fields = append(info.fields, structField{
			name:     name,
			index:    i,
			typ:      f.Type,
			optional: f.Type.Kind() == reflect.Pointer,
		})
	}
	return info
}

// wireName resolves a field's wire name from its tag, defaulting to the
// snake_cased Go name. An empty result means the field is skipped.
func wireName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("guest")
	if !ok {
		return snakeCase(f.Name)
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return snakeCase(f.Name)
	}
	return name
}

// fieldByKey finds the field a decoded key addresses, matching exactly
// first and case-insensitively as a fallback.
func (s *structInfo) fieldByKey(key string) (structField, bool) {
	if i, ok := s.byName[key]; ok {
		return s.fields[i], true
	}
	for _, f := range s.fields {
		if strings.EqualFold(f.name, key) {
			return f, true
		}
	}
	return structField{}, false
}

func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 2)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
