// Package scriptbridge converts between Go values and the dynamic object
// graph of an embedded scripting runtime.
//
// The bridge is bidirectional: a Decoder reads a live guest object into a
// typed Go value, interrogating the object reflectively (class name, dynamic
// method dispatch, indexed and keyed access), and an Encoder builds a guest
// object from a typed Go value through the guest's construction surface.
// Neither side depends on a concrete guest runtime; both see the guest only
// through the narrow capability interfaces defined in this package.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	scriptbridge/        Root package with the guest capability interfaces
//	├── transcoder/      Decode/encode core: visitor protocol, access
//	│                    cursors, builders, and the reflection layer
//	├── errors/          Structured error type: kinds plus ordered context
//	├── engine/          Builtin in-memory dynamic object runtime with
//	│                    YAML-scripted classes
//	├── bind/            Exposes Go functions as guest-callable methods,
//	│                    with fault isolation and exception rendering
//	├── interchange/     JSON to guest graph and back
//	├── wasmguest/       Adapter for guests compiled to WebAssembly,
//	│                    speaking a reflective object ABI over wazero
//	└── cmd/bridge/      CLI for one-shot conversions and an interactive TUI
//
// # Quick Start
//
// Decode a guest object into a Go struct:
//
//	rt := engine.New()
//	obj, _ := interchange.FromJSON(rt, []byte(`{"name": "door", "mass": 2.5}`))
//
//	type Part struct {
//	    Name string
//	    Mass float64
//	}
//	var p Part
//	if err := transcoder.Unmarshal(obj, &p); err != nil {
//	    log.Fatal(err)
//	}
//
// Encode a Go value into a guest object:
//
//	obj, err := transcoder.Marshal(rt, Part{Name: "door", Mass: 2.5})
//
// # Dual-mode structs
//
// A struct decodes from either a keyed container (its own keys drive the
// decode) or a plain object exposing one accessor method per field (the
// declared field list drives the decode). The branch is taken per object at
// runtime; callers never choose.
//
// # Thread Safety
//
// Conversion is synchronous and single-threaded: one goroutine owns a guest
// graph and its traversal state for the duration of a call. Nothing in the
// core locks or caches. The guest runtime itself is assumed to serialize all
// calls into it.
//
// # Cyclic graphs
//
// The converter performs no cycle detection. A guest graph containing a
// reference cycle recurses without bound; the fault boundary in package bind
// is the containment layer for such failures.
package scriptbridge
