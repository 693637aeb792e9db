// Package transcoder converts values between Go and a guest scripting
// runtime, in both directions, without going through an intermediate text
// format.
//
// # Decoding
//
// A Decoder wraps one guest value. Its per-shape Decode methods interpret
// the value as that shape, converting where the guest's own protocols allow
// it, and feed the result to a Visitor. Composite shapes hand the visitor a
// cursor (SeqAccess, MapAccess, EnumAccess) so the visitor decides how each
// child is decoded. Unmarshal drives this machinery from a Go target type
// via reflection; Any and DecodeValue produce generic Go values with the
// shape picked by the guest value itself.
//
// # Encoding
//
// An Encoder wraps a Runtime. Scalars encode directly; sequences, maps and
// structs are assembled through builders that stream elements in. Marshal
// drives the encoder from an arbitrary Go value.
//
// # Struct mapping
//
// Struct fields travel under their snake_cased Go names unless a guest tag
// overrides the name; `guest:"-"` omits a field. Encoded structs are keyed
// containers with symbol keys. Decoding accepts two guest representations
// for the same struct type: a keyed container, looked up entry by entry, or
// a plain object whose fields are read by calling the field names as
// methods. Pointer fields are optional on both sides.
//
// # Unions
//
// A struct embedding Union is an externally tagged variant union: a bool
// field is a payload-free variant encoded as the variant's name, a pointer
// field carries a payload and is encoded as a single-entry map. Tuple and
// struct shaped variants are not supported and report not-implemented
// errors rather than failing silently.
//
// # Failure context
//
// Every error carries the path that led to it: element indexes, map keys
// and field names are appended as context while the failure unwinds, so a
// deep mismatch names the exact leaf that caused it.
package transcoder
