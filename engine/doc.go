// Package engine provides the builtin in-memory dynamic object runtime.
//
// It is the reference guest for the bridge: a small object graph with nil,
// booleans, 64-bit integers, floats, strings, symbols, insertion-ordered
// maps, arrays, and exceptions, each implementing exactly the capability
// interfaces from the root package that its kind supports. The transcoder,
// the bind harness, the CLI, and the test suites all run against it without
// embedding a real interpreter.
//
// # Dispatch
//
// Every value answers to_s and inspect. Instances of scripted classes
// additionally resolve methods against their class's method table; anything
// unresolved raises NoMethodError. Fetching an absent map key raises
// KeyError. These raises surface as guest-exception errors, exactly as a
// real guest adapter would report them.
//
// # Scripted classes
//
// Classes are defined in YAML (see LoadClasses): each class maps method
// names to literal results. They exist to exercise object-mode decoding,
// where a struct is populated by calling one accessor method per field:
//
//	classes:
//	  - name: Point
//	    methods:
//	      x: 1
//	      y: 2
//
//	rt := engine.New()
//	_ = rt.LoadClasses("classes.yaml")
//	pt, _ := rt.NewInstance("Point")
//
// # Thread Safety
//
// A Runtime and its values are confined to one goroutine. The engine takes
// no locks.
package engine
