// Package bind exposes Go functions to a guest scripting runtime.
//
// A Module is a named set of handlers bound to one exception class. Guest
// arguments are decoded into each handler's parameter types through the
// transcoder, results are encoded back, and any failure is rendered into an
// exception of the module's class for the guest to raise.
//
// # Handlers
//
// A handler is any non-variadic function. An optional leading
// context.Context receives the invocation context; remaining parameters are
// filled from guest arguments in order. Parameters typed as capability
// interfaces (scriptbridge.Object, scriptbridge.Map, ...) receive the guest
// value itself without conversion. Handlers return nothing, a value, an
// error, or a value and an error.
//
//	m, _ := bind.NewModule(rt, "geo", "GeoError")
//	m.Register("distance", func(a, b Point) float64 { ... })
//
// NewHostModule registers every exported method of a struct under its
// snake_cased name, for hosts that bundle related functions.
//
// # Fault boundary
//
// Handler panics never cross into the guest: Invoke recovers them and
// raises the module's exception class instead. For panics whose value does
// not describe itself, a handler can leave a note beforehand with
// Checkpoint; the note becomes the exception message.
package bind
