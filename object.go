package scriptbridge

// Object is one reference into the guest runtime's object graph. The core
// never depends on a concrete guest; adapters wrap guest values in types
// implementing this interface plus whichever capability interfaces below the
// value actually supports.
//
// A reference is scoped to one conversion call. No handle should be retained
// past the call that received it.
type Object interface {
	// ClassName reports the guest-side runtime class of the object.
	ClassName() string

	// IsNil reports whether the object is the guest's nil sentinel.
	IsNil() bool

	// Call performs dynamic method dispatch by name. A guest-side raise
	// surfaces as an error carrying the guest exception.
	Call(name string, args ...Object) (Object, error)

	// Text applies the guest's generic stringify conversion to the object.
	Text() (string, error)
}

// Bool is the capability of boolean-valued guest objects.
type Bool interface {
	Object
	BoolValue() bool
}

// Int is the capability of integer-valued guest objects. Guests are assumed
// to have a single native integer type, 64-bit signed.
type Int interface {
	Object
	IntValue() int64
}

// Float is the capability of float-valued guest objects.
type Float interface {
	Object
	FloatValue() float64
}

// Str is the capability of objects that already are native guest strings.
// Distinct from Object.Text: byte decoding requires a real string and must
// not fall back to stringification.
type Str interface {
	Object
	StrValue() string
}

// Array is the capability of indexable guest containers.
type Array interface {
	Object
	Len() (int, error)
	Index(i int) (Object, error)
	Append(items ...Object) error
}

// Map is the capability of keyed guest containers. Key order is the guest's
// enumeration order, assumed insertion-ordered.
type Map interface {
	Object
	Len() (int, error)
	Keys() ([]Object, error)
	// Fetch returns the value for key, raising (returning an error carrying
	// a guest exception) if the key is absent.
	Fetch(key Object) (Object, error)
	Store(key, value Object) error
}

// Exception is a guest exception value.
type Exception interface {
	Object

	// Message returns the exception's own message text.
	Message() string

	// WithMessage derives a same-class exception carrying a new message.
	WithMessage(message string) (Exception, error)
}

// ExceptionClass constructs guest exceptions of one class. Error rendering
// uses it when a failure that did not originate guest-side crosses back into
// the guest.
type ExceptionClass interface {
	Name() string
	New(message string) (Exception, error)
}

// Runtime is the guest value construction surface consumed by the encoder
// and by anything else that needs to materialize guest objects.
type Runtime interface {
	Nil() Object
	Bool(v bool) Object
	Int(v int64) Object
	Float(v float64) Object
	String(s string) Object
	// Symbol returns the guest's symbolic-name primitive, used for struct
	// field keys. Guests without a symbol type may return a plain string.
	Symbol(name string) Object
	Array() (Array, error)
	Map() (Map, error)
	// Class resolves an exception class by name.
	Class(name string) (ExceptionClass, error)
}
