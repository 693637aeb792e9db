// Package errors provides the structured error type for the script bridge.
//
// Errors carry a Kind (a plain message, a captured guest exception, or a
// not-implemented marker) and an ordered list of context strings accumulated
// as the failure unwinds through nested conversions. The innermost frame
// pushes context first and renders first, so a deep failure surfaces a full
// path rather than just its root cause:
//
//	cannot convert String into Integer (decoding field 'bar'; decoding struct Foo)
//
// Wrap fallible steps with Ctx on the failure branch:
//
//	obj, err := parent.Call(field)
//	if err != nil {
//	    return errors.Ctx(err, "decoding field '%s'", field)
//	}
//
// AsException renders an error for the guest: a captured guest exception is
// re-raised with its own class and an appended context block, anything else
// becomes a new exception of the supplied default class.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
