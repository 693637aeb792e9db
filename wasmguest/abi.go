package wasmguest

import "context"

// Exported allocator names probed at attach time, most specific first.
const (
	CabiRealloc = "cabi_realloc"
	CabiFree    = "cabi_free"

	// Legacy names from pre-standardization toolchains
	legacyRealloc = "canonical_abi_realloc"
	legacyAlloc   = "allocate"
	simpleAlloc   = "alloc"
	legacyDealloc = "deallocate"
	simpleFree    = "free"
)

// Reflection exports every guest module must provide. Values travel as
// opaque 64-bit handles into the guest's object table; strings travel
// through linear memory.
const (
	fnKind        = "bridge-kind"
	fnClassName   = "bridge-class-name"
	fnText        = "bridge-text"
	fnBoolValue   = "bridge-bool-value"
	fnIntValue    = "bridge-int-value"
	fnFloatValue  = "bridge-float-value"
	fnStringValue = "bridge-string-value"

	fnCall = "bridge-call"

	fnLen    = "bridge-len"
	fnIndex  = "bridge-index"
	fnAppend = "bridge-append"
	fnKeys   = "bridge-keys"
	fnFetch  = "bridge-fetch"
	fnStore  = "bridge-store"

	fnNil        = "bridge-nil"
	fnMakeBool   = "bridge-make-bool"
	fnMakeInt    = "bridge-make-int"
	fnMakeFloat  = "bridge-make-float"
	fnMakeString = "bridge-make-string"
	fnMakeSymbol = "bridge-make-symbol"
	fnMakeArray  = "bridge-make-array"
	fnMakeMap    = "bridge-make-map"

	fnLastError        = "bridge-last-error"
	fnExceptionMessage = "bridge-exception-message"
	fnExceptionDerive  = "bridge-exception-derive"
	fnResolveClass     = "bridge-resolve-class"
	fnClassNew         = "bridge-class-new"

	fnDrop  = "bridge-drop"
	fnReset = "bridge-reset"
)

// requiredExports lists every reflection export validated at attach time.
var requiredExports = []string{
	fnKind, fnClassName, fnText,
	fnBoolValue, fnIntValue, fnFloatValue, fnStringValue,
	fnCall,
	fnLen, fnIndex, fnAppend, fnKeys, fnFetch, fnStore,
	fnNil, fnMakeBool, fnMakeInt, fnMakeFloat,
	fnMakeString, fnMakeSymbol, fnMakeArray, fnMakeMap,
	fnLastError, fnExceptionMessage, fnExceptionDerive,
	fnResolveClass, fnClassNew,
	fnDrop, fnReset,
}

// Value kinds reported by bridge-kind.
const (
	kindNil = uint32(iota)
	kindBool
	kindInt
	kindFloat
	kindString
	kindSymbol
	kindArray
	kindHash
	kindException
	kindObject
)

// handleInvalid is returned by fallible handle-producing exports on a raise;
// the exception is then pending behind bridge-last-error.
const handleInvalid = uint64(0)

// raisedLen marks a raise in a packed string result. No real string in
// 32-bit linear memory can have this length.
const raisedLen = ^uint32(0)

// raisedCount marks a raise in a bridge-len result.
const raisedCount = ^uint64(0)

// statusOK is the success value of status-returning exports.
const statusOK = uint64(0)

// unpackStr splits a packed string result into its pointer and length.
// The bytes are guest-owned and stay valid only until the next guest call.
func unpackStr(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}

// packStr builds a packed string result. The adapter only needs it in
// tests; guests produce these on their side of the boundary.
func packStr(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// raised reports whether a packed string result marks a raise.
func raised(packed uint64) bool {
	return uint32(packed) == raisedLen
}

// abi is the transport seam between the adapter and one guest instance.
// The wazero-backed implementation lives in module.go; tests drive the
// adapter over an in-process fake.
type abi interface {
	// call runs one exported guest function. Parameters are read from and
	// the result is written to stack, following wazero's CallWithStack
	// convention.
	call(ctx context.Context, name string, stack []uint64) error

	// read copies length bytes of guest memory at offset.
	read(offset, length uint32) ([]byte, error)

	// write copies data into guest memory at offset.
	write(offset uint32, data []byte) error

	// alloc reserves size bytes of guest memory through the guest's
	// exported allocator.
	alloc(ctx context.Context, size, align uint32) (uint32, error)

	// free releases memory obtained from alloc. Failures are logged, not
	// returned; the buffer is lost either way.
	free(ctx context.Context, ptr, size, align uint32)
}
