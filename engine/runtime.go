package engine

import (
	"sort"

	"github.com/samber/lo"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Runtime is the builtin in-memory guest. It implements the full
// scriptbridge.Runtime construction surface and hosts scripted classes.
//
// A Runtime and the object graphs it hands out are single-threaded: one
// goroutine owns them for the duration of a conversion.
type Runtime struct {
	classes    map[string]*Class
	exceptions map[string]*exceptionClass
}

// Class is a scripted class definition: a name plus a method table mapping
// method names to ready guest values.
type Class struct {
	name    string
	methods map[string]scriptbridge.Object
}

// NewClass builds a class definition from a method table.
func NewClass(name string, methods map[string]scriptbridge.Object) *Class {
	if methods == nil {
		methods = make(map[string]scriptbridge.Object)
	}
	return &Class{name: name, methods: methods}
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// New creates an empty runtime.
func New() *Runtime {
	return &Runtime{
		classes:    make(map[string]*Class),
		exceptions: make(map[string]*exceptionClass),
	}
}

func (rt *Runtime) Nil() scriptbridge.Object { return theNil }

func (rt *Runtime) Bool(v bool) scriptbridge.Object { return boolValue(v) }

func (rt *Runtime) Int(v int64) scriptbridge.Object { return intValue(v) }

func (rt *Runtime) Float(v float64) scriptbridge.Object { return floatValue(v) }

func (rt *Runtime) String(s string) scriptbridge.Object { return strValue(s) }

func (rt *Runtime) Symbol(name string) scriptbridge.Object { return symValue(name) }

func (rt *Runtime) Array() (scriptbridge.Array, error) {
	return &arrayValue{}, nil
}

func (rt *Runtime) Map() (scriptbridge.Map, error) {
	return newHash(), nil
}

// Class resolves an exception class by name, creating it on first use.
// The engine does not restrict the class vocabulary; adapters for stricter
// guests may.
func (rt *Runtime) Class(name string) (scriptbridge.ExceptionClass, error) {
	if c, ok := rt.exceptions[name]; ok {
		return c, nil
	}
	c := &exceptionClass{name: name}
	rt.exceptions[name] = c
	return c, nil
}

// Define registers a scripted class, replacing any previous definition of
// the same name.
func (rt *Runtime) Define(c *Class) {
	rt.classes[c.name] = c
}

// NewInstance instantiates a scripted class.
func (rt *Runtime) NewInstance(className string) (scriptbridge.Object, error) {
	c, ok := rt.classes[className]
	if !ok {
		return nil, errors.Newf("unknown class '%s'", className)
	}
	return &instance{class: c}, nil
}

// ClassNames lists the scripted classes, sorted.
func (rt *Runtime) ClassNames() []string {
	names := lo.Keys(rt.classes)
	sort.Strings(names)
	return names
}
