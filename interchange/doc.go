// Package interchange moves guest object graphs across a JSON boundary.
//
// FromJSON builds guest values from JSON text, keeping object keys in
// document order so downstream struct decoding sees the same entry order
// the document had. ToJSON walks a guest graph by its capabilities and
// streams it back out; symbols and plain objects, which have no JSON shape,
// render as strings.
//
// The two halves are not inverses for every graph: a symbol-keyed guest map
// comes back string-keyed, which the transcoder's struct decoding treats
// identically.
package interchange
