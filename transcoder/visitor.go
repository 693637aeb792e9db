package transcoder

import (
	"github.com/wippyai/script-bridge/errors"
)

// Visitor receives the decoded shape of a guest object. The Decoder's
// per-shape methods feed exactly one Visit call per decode; composite shapes
// hand the visitor an access cursor instead of a finished value so the
// visitor controls how children are decoded.
type Visitor interface {
	VisitNil() (any, error)
	VisitBool(v bool) (any, error)
	VisitInt(v int64) (any, error)
	VisitUint(v uint64) (any, error)
	VisitFloat(v float64) (any, error)
	VisitString(s string) (any, error)
	VisitBytes(b []byte) (any, error)

	// VisitSome receives a decoder over the present option payload.
	VisitSome(d *Decoder) (any, error)

	VisitSeq(seq SeqAccess) (any, error)
	VisitMap(m MapAccess) (any, error)
	VisitEnum(e EnumAccess) (any, error)
}

// DecodeFunc decodes one child object during cursor-driven iteration.
// Cursors construct a fresh Decoder per child and pass it in; the function
// decides the child's shape.
type DecodeFunc func(d *Decoder) (any, error)

// BaseVisitor rejects every shape with an error naming what the caller was
// expecting. Embed it and override the shapes a target accepts.
type BaseVisitor struct {
	Expecting string
}

func (b BaseVisitor) unexpected(got string) (any, error) {
	return nil, errors.Newf("unexpected %s, expected %s", got, b.Expecting)
}

func (b BaseVisitor) VisitNil() (any, error)             { return b.unexpected("nil") }
func (b BaseVisitor) VisitBool(bool) (any, error)        { return b.unexpected("boolean") }
func (b BaseVisitor) VisitInt(int64) (any, error)        { return b.unexpected("integer") }
func (b BaseVisitor) VisitUint(uint64) (any, error)      { return b.unexpected("integer") }
func (b BaseVisitor) VisitFloat(float64) (any, error)    { return b.unexpected("float") }
func (b BaseVisitor) VisitString(string) (any, error)    { return b.unexpected("string") }
func (b BaseVisitor) VisitBytes([]byte) (any, error)     { return b.unexpected("bytes") }
func (b BaseVisitor) VisitSome(*Decoder) (any, error)    { return b.unexpected("option") }
func (b BaseVisitor) VisitSeq(SeqAccess) (any, error)    { return b.unexpected("sequence") }
func (b BaseVisitor) VisitMap(MapAccess) (any, error)    { return b.unexpected("map") }
func (b BaseVisitor) VisitEnum(EnumAccess) (any, error)  { return b.unexpected("enum") }
