package wasmguest

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/transcoder"
)

// fakeABI drives the adapter over an in-process handle table standing in
// for a cooperative guest module. The adapter's packing, memory traffic and
// raise handling all run for real; only the wazero transport is absent.
type fakeABI struct {
	values  map[uint64]any
	next    uint64
	mem     []byte
	brk     uint32
	pending uint64
	allocs  int
	frees   int
	failOn  string
}

type fakeSym string

type fakeArr struct{ items []uint64 }

type fakeHash struct {
	keys []uint64
	vals []uint64
}

type fakeExc struct{ class, msg string }

type fakeClass struct{ name string }

type fakeObj struct {
	class string
	attrs map[string]uint64
	echo  bool
}

func newFakeABI() *fakeABI {
	return &fakeABI{
		values: make(map[uint64]any),
		mem:    make([]byte, 1<<16),
		brk:    16,
	}
}

func (f *fakeABI) put(v any) uint64 {
	f.next++
	f.values[f.next] = v
	return f.next
}

func (f *fakeABI) raise(class, msg string) {
	f.pending = f.put(&fakeExc{class: class, msg: msg})
}

// packOut parks an outbound string in scratch memory, guest-owned style.
func (f *fakeABI) packOut(s string) uint64 {
	if len(s) == 0 {
		return 0
	}
	ptr := f.brk
	copy(f.mem[ptr:], s)
	f.brk += uint32(len(s))
	return packStr(ptr, uint32(len(s)))
}

func (f *fakeABI) str(ptr, length uint64) string {
	return string(f.mem[ptr : ptr+length])
}

func (f *fakeABI) argv(ptr, argc uint64) []uint64 {
	args := make([]uint64, argc)
	for i := range args {
		args[i] = binary.LittleEndian.Uint64(f.mem[ptr+uint64(8*i):])
	}
	return args
}

func (f *fakeABI) kindOf(h uint64) uint32 {
	v, ok := f.values[h]
	if !ok {
		return kindObject
	}
	switch v.(type) {
	case nil:
		return kindNil
	case bool:
		return kindBool
	case int64:
		return kindInt
	case float64:
		return kindFloat
	case string:
		return kindString
	case fakeSym:
		return kindSymbol
	case *fakeArr:
		return kindArray
	case *fakeHash:
		return kindHash
	case *fakeExc:
		return kindException
	default:
		return kindObject
	}
}

func (f *fakeABI) classOf(h uint64) string {
	v, ok := f.values[h]
	if !ok {
		return "Unknown"
	}
	switch v := v.(type) {
	case nil:
		return "NilClass"
	case bool:
		if v {
			return "TrueClass"
		}
		return "FalseClass"
	case int64:
		return "Integer"
	case float64:
		return "Float"
	case string:
		return "String"
	case fakeSym:
		return "Symbol"
	case *fakeArr:
		return "Array"
	case *fakeHash:
		return "Hash"
	case *fakeExc:
		return v.class
	case *fakeClass:
		return "Class"
	case *fakeObj:
		return v.class
	default:
		return "Object"
	}
}

func (f *fakeABI) textOf(h uint64) string {
	switch v := f.values[h].(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case fakeSym:
		return string(v)
	case *fakeExc:
		return v.msg
	default:
		return "#<" + f.classOf(h) + ">"
	}
}

func (f *fakeABI) inspectOf(h uint64) string {
	switch v := f.values[h].(type) {
	case string:
		return strconv.Quote(v)
	case fakeSym:
		return ":" + string(v)
	case *fakeExc:
		return "#<" + v.class + ": " + v.msg + ">"
	default:
		return f.textOf(h)
	}
}

func (f *fakeABI) keyEqual(a, b uint64) bool {
	return f.values[a] == f.values[b]
}

func (f *fakeABI) dispatch(recv uint64, name string, args []uint64) uint64 {
	switch name {
	case "to_s":
		return f.put(f.textOf(recv))
	case "inspect":
		return f.put(f.inspectOf(recv))
	}
	if obj, ok := f.values[recv].(*fakeObj); ok {
		if obj.echo && name == "echo" && len(args) == 1 {
			return args[0]
		}
		if h, ok := obj.attrs[name]; ok {
			return h
		}
		f.raise("NoMethodError", "undefined method '"+name+"' for an instance of "+obj.class)
		return handleInvalid
	}
	f.raise("NoMethodError", "undefined method '"+name+"' for "+f.classOf(recv))
	return handleInvalid
}

func (f *fakeABI) call(_ context.Context, name string, stack []uint64) error {
	if name == f.failOn {
		return fmt.Errorf("wasm error: unreachable")
	}

	switch name {
	case fnNil:
		stack[0] = f.put(nil)
	case fnMakeBool:
		stack[0] = f.put(stack[0] != 0)
	case fnMakeInt:
		stack[0] = f.put(int64(stack[0]))
	case fnMakeFloat:
		stack[0] = f.put(math.Float64frombits(stack[0]))
	case fnMakeString:
		stack[0] = f.put(f.str(stack[0], stack[1]))
	case fnMakeSymbol:
		stack[0] = f.put(fakeSym(f.str(stack[0], stack[1])))
	case fnMakeArray:
		stack[0] = f.put(&fakeArr{})
	case fnMakeMap:
		stack[0] = f.put(&fakeHash{})

	case fnKind:
		stack[0] = uint64(f.kindOf(stack[0]))
	case fnClassName:
		stack[0] = f.packOut(f.classOf(stack[0]))
	case fnText:
		stack[0] = f.packOut(f.textOf(stack[0]))
	case fnBoolValue:
		v, _ := f.values[stack[0]].(bool)
		stack[0] = 0
		if v {
			stack[0] = 1
		}
	case fnIntValue:
		v, _ := f.values[stack[0]].(int64)
		stack[0] = uint64(v)
	case fnFloatValue:
		v, _ := f.values[stack[0]].(float64)
		stack[0] = math.Float64bits(v)
	case fnStringValue:
		v, _ := f.values[stack[0]].(string)
		stack[0] = f.packOut(v)

	case fnLen:
		switch v := f.values[stack[0]].(type) {
		case *fakeArr:
			stack[0] = uint64(len(v.items))
		case *fakeHash:
			stack[0] = uint64(len(v.keys))
		default:
			f.raise("TypeError", "no length on "+f.classOf(stack[0]))
			stack[0] = raisedCount
		}
	case fnIndex:
		arr, ok := f.values[stack[0]].(*fakeArr)
		if !ok {
			f.raise("TypeError", "not an array")
			stack[0] = handleInvalid
			break
		}
		if i := stack[1]; i < uint64(len(arr.items)) {
			stack[0] = arr.items[i]
		} else {
			stack[0] = f.put(nil)
		}
	case fnAppend:
		arr, ok := f.values[stack[0]].(*fakeArr)
		if !ok {
			f.raise("TypeError", "not an array")
			stack[0] = 1
			break
		}
		arr.items = append(arr.items, stack[1])
		stack[0] = statusOK
	case fnKeys:
		h, ok := f.values[stack[0]].(*fakeHash)
		if !ok {
			f.raise("TypeError", "not a hash")
			stack[0] = handleInvalid
			break
		}
		stack[0] = f.put(&fakeArr{items: append([]uint64(nil), h.keys...)})
	case fnFetch:
		h, ok := f.values[stack[0]].(*fakeHash)
		if !ok {
			f.raise("TypeError", "not a hash")
			stack[0] = handleInvalid
			break
		}
		found := false
		for i, k := range h.keys {
			if f.keyEqual(k, stack[1]) {
				stack[0] = h.vals[i]
				found = true
				break
			}
		}
		if !found {
			f.raise("KeyError", "key not found: "+f.textOf(stack[1]))
			stack[0] = handleInvalid
		}
	case fnStore:
		h, ok := f.values[stack[0]].(*fakeHash)
		if !ok {
			f.raise("TypeError", "not a hash")
			stack[0] = 1
			break
		}
		stored := false
		for i, k := range h.keys {
			if f.keyEqual(k, stack[1]) {
				h.vals[i] = stack[2]
				stored = true
				break
			}
		}
		if !stored {
			h.keys = append(h.keys, stack[1])
			h.vals = append(h.vals, stack[2])
		}
		stack[0] = statusOK

	case fnCall:
		stack[0] = f.dispatch(stack[0], f.str(stack[1], stack[2]), f.argv(stack[3], stack[4]))

	case fnLastError:
		stack[0] = f.pending
		f.pending = 0
	case fnExceptionMessage:
		exc, _ := f.values[stack[0]].(*fakeExc)
		if exc == nil {
			stack[0] = f.packOut("")
			break
		}
		stack[0] = f.packOut(exc.msg)
	case fnExceptionDerive:
		exc, ok := f.values[stack[0]].(*fakeExc)
		if !ok {
			f.raise("TypeError", "not an exception")
			stack[0] = handleInvalid
			break
		}
		stack[0] = f.put(&fakeExc{class: exc.class, msg: f.str(stack[1], stack[2])})
	case fnResolveClass:
		switch className := f.str(stack[0], stack[1]); className {
		case "StandardError", "ArgumentError", "KeyError", "BridgeError":
			stack[0] = f.put(&fakeClass{name: className})
		default:
			f.raise("NameError", "uninitialized constant "+className)
			stack[0] = handleInvalid
		}
	case fnClassNew:
		cls, ok := f.values[stack[0]].(*fakeClass)
		if !ok {
			f.raise("TypeError", "not a class")
			stack[0] = handleInvalid
			break
		}
		stack[0] = f.put(&fakeExc{class: cls.name, msg: f.str(stack[1], stack[2])})

	case fnDrop:
		delete(f.values, stack[0])
	case fnReset:
		for h, v := range f.values {
			switch v.(type) {
			case nil, bool:
			default:
				delete(f.values, h)
			}
		}

	default:
		return fmt.Errorf("fake guest: no export %q", name)
	}
	return nil
}

func (f *fakeABI) read(offset, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(len(f.mem)) {
		return nil, fmt.Errorf("fake memory read out of bounds")
	}
	out := make([]byte, length)
	copy(out, f.mem[offset:])
	return out, nil
}

func (f *fakeABI) write(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(len(f.mem)) {
		return fmt.Errorf("fake memory write out of bounds")
	}
	copy(f.mem[offset:], data)
	return nil
}

func (f *fakeABI) alloc(_ context.Context, size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	f.brk = (f.brk + align - 1) &^ (align - 1)
	ptr := f.brk
	f.brk += size
	f.allocs++
	return ptr, nil
}

func (f *fakeABI) free(_ context.Context, ptr, size, align uint32) {
	f.frees++
}

func newFakeGuest(t *testing.T) (*Guest, *fakeABI) {
	t.Helper()
	f := newFakeABI()
	g, err := attach(context.Background(), f)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	return g, f
}

func TestAttachSingletons(t *testing.T) {
	g, _ := newFakeGuest(t)

	if !g.Nil().IsNil() {
		t.Error("Nil() is not nil")
	}
	if g.Nil().ClassName() != "NilClass" {
		t.Errorf("nil class = %q", g.Nil().ClassName())
	}

	tr, ok := g.Bool(true).(scriptbridge.Bool)
	if !ok || !tr.BoolValue() {
		t.Fatalf("Bool(true) = %#v", g.Bool(true))
	}
	if tr.ClassName() != "TrueClass" {
		t.Errorf("true class = %q", tr.ClassName())
	}
	fa, ok := g.Bool(false).(scriptbridge.Bool)
	if !ok || fa.BoolValue() {
		t.Fatalf("Bool(false) = %#v", g.Bool(false))
	}
}

func TestAttachFailure(t *testing.T) {
	f := newFakeABI()
	f.failOn = fnNil
	if _, err := attach(context.Background(), f); err == nil {
		t.Fatal("expected attach to fail")
	} else if !strings.Contains(err.Error(), "attaching guest") {
		t.Errorf("error = %q", err)
	}
}

func TestScalars(t *testing.T) {
	g, _ := newFakeGuest(t)

	tests := []struct {
		name  string
		obj   scriptbridge.Object
		class string
		text  string
	}{
		{"int", g.Int(-5), "Integer", "-5"},
		{"float", g.Float(2.5), "Float", "2.5"},
		{"string", g.String("héllo"), "String", "héllo"},
		{"symbol", g.Symbol("id"), "Symbol", "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.obj.ClassName(); got != tt.class {
				t.Errorf("class = %q, want %q", got, tt.class)
			}
			text, err := tt.obj.Text()
			if err != nil {
				t.Fatalf("Text: %v", err)
			}
			if text != tt.text {
				t.Errorf("text = %q, want %q", text, tt.text)
			}
		})
	}

	if v := g.Int(-5).(scriptbridge.Int).IntValue(); v != -5 {
		t.Errorf("IntValue = %d", v)
	}
	if v := g.Float(2.5).(scriptbridge.Float).FloatValue(); v != 2.5 {
		t.Errorf("FloatValue = %v", v)
	}
	if v := g.String("héllo").(scriptbridge.Str).StrValue(); v != "héllo" {
		t.Errorf("StrValue = %q", v)
	}
}

func TestCapabilityProbes(t *testing.T) {
	g, _ := newFakeGuest(t)
	arr, err := g.Array()
	if err != nil {
		t.Fatalf("Array: %v", err)
	}
	m, err := g.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	if _, ok := g.Symbol("k").(scriptbridge.Str); ok {
		t.Error("symbol must not satisfy Str")
	}
	if _, ok := g.Int(1).(scriptbridge.Float); ok {
		t.Error("integer must not satisfy Float")
	}
	if _, ok := any(arr).(scriptbridge.Map); ok {
		t.Error("array must not satisfy Map")
	}
	if _, ok := any(m).(scriptbridge.Array); ok {
		t.Error("hash must not satisfy Array")
	}
}

func TestArrayOps(t *testing.T) {
	g, _ := newFakeGuest(t)
	arr, err := g.Array()
	if err != nil {
		t.Fatalf("Array: %v", err)
	}

	if err := arr.Append(g.Int(1), g.String("x")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	n, err := arr.Len()
	if err != nil || n != 2 {
		t.Fatalf("Len = %d, %v", n, err)
	}

	el, err := arr.Index(0)
	if err != nil {
		t.Fatalf("Index(0): %v", err)
	}
	if v := el.(scriptbridge.Int).IntValue(); v != 1 {
		t.Errorf("element 0 = %d", v)
	}
	past, err := arr.Index(9)
	if err != nil {
		t.Fatalf("Index(9): %v", err)
	}
	if !past.IsNil() {
		t.Errorf("out-of-range element = %#v", past)
	}

	err = arr.Append(engine.New().Int(1))
	if err == nil || !strings.Contains(err.Error(), "cannot enter this guest") {
		t.Errorf("foreign append error = %v", err)
	}
}

func TestHashOps(t *testing.T) {
	g, _ := newFakeGuest(t)
	m, err := g.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	if err := m.Store(g.Symbol("a"), g.Int(1)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := m.Store(g.Symbol("b"), g.Int(2)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	// Replacing through a fresh symbol handle keeps the key's position.
	if err := m.Store(g.Symbol("a"), g.Int(3)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	n, err := m.Len()
	if err != nil || n != 2 {
		t.Fatalf("Len = %d, %v", n, err)
	}

	keys, err := m.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	var names []string
	for _, k := range keys {
		text, err := k.Text()
		if err != nil {
			t.Fatalf("key text: %v", err)
		}
		names = append(names, text)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("keys = %v", names)
	}

	v, err := m.Fetch(g.Symbol("a"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := v.(scriptbridge.Int).IntValue(); got != 3 {
		t.Errorf("a = %d", got)
	}

	_, err = m.Fetch(g.Symbol("zzz"))
	if err == nil {
		t.Fatal("expected a raise for the absent key")
	}
	if !errors.IsKind(err, errors.KindGuestException) {
		t.Errorf("kind = %v", err)
	}
	if !strings.Contains(err.Error(), "KeyError") {
		t.Errorf("error = %q", err)
	}
}

func TestMethodDispatch(t *testing.T) {
	g, f := newFakeGuest(t)

	widget := f.put(&fakeObj{
		class: "Widget",
		attrs: map[string]uint64{"label": f.put("gear")},
		echo:  true,
	})
	obj, err := g.wrap(widget)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	out, err := obj.Call("label")
	if err != nil {
		t.Fatalf("Call(label): %v", err)
	}
	if got := out.(scriptbridge.Str).StrValue(); got != "gear" {
		t.Errorf("label = %q", got)
	}

	// Arguments travel through an argument vector in guest memory.
	echoed, err := obj.Call("echo", g.Int(7))
	if err != nil {
		t.Fatalf("Call(echo): %v", err)
	}
	if got := echoed.(scriptbridge.Int).IntValue(); got != 7 {
		t.Errorf("echo = %d", got)
	}

	_, err = obj.Call("missing")
	if err == nil || !strings.Contains(err.Error(), "NoMethodError") {
		t.Errorf("missing method error = %v", err)
	}
	if !errors.IsKind(err, errors.KindGuestException) {
		t.Errorf("kind = %v", err)
	}

	_, err = obj.Call("echo", engine.New().Int(1))
	if err == nil || !strings.Contains(err.Error(), "passing argument 0 of 'echo'") {
		t.Errorf("foreign argument error = %v", err)
	}
}

func TestStructDecodeFromGuestHash(t *testing.T) {
	g, _ := newFakeGuest(t)
	m, err := g.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	tags, err := g.Array()
	if err != nil {
		t.Fatalf("Array: %v", err)
	}
	if err := tags.Append(g.String("a"), g.String("b")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	for key, val := range map[string]scriptbridge.Object{
		"label":   g.String("gear"),
		"mass":    g.Float(2.5),
		"visible": g.Bool(true),
		"tags":    tags,
	} {
		if err := m.Store(g.Symbol(key), val); err != nil {
			t.Fatalf("Store(%s): %v", key, err)
		}
	}

	var got struct {
		Label   string
		Mass    float64
		Visible bool
		Tags    []string
	}
	if err := transcoder.Unmarshal(m, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Label != "gear" || got.Mass != 2.5 || !got.Visible {
		t.Errorf("decoded = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "a" || got.Tags[1] != "b" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestStructDecodeFromGuestObject(t *testing.T) {
	g, f := newFakeGuest(t)

	widget := f.put(&fakeObj{class: "Widget", attrs: map[string]uint64{
		"label": f.put("gear"),
		"mass":  f.put(float64(2.5)),
	}})
	obj, err := g.wrap(widget)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	var got struct {
		Label string
		Mass  float64
	}
	if err := transcoder.Unmarshal(obj, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Label != "gear" || got.Mass != 2.5 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestMarshalIntoGuest(t *testing.T) {
	g, _ := newFakeGuest(t)

	src := struct {
		Label string
		Count int
		Tags  []string
	}{Label: "gear", Count: 3, Tags: []string{"x"}}

	out, err := transcoder.Marshal(g, src)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	m, ok := out.(scriptbridge.Map)
	if !ok {
		t.Fatalf("marshaled value is %T", out)
	}

	v, err := m.Fetch(g.Symbol("label"))
	if err != nil {
		t.Fatalf("Fetch(label): %v", err)
	}
	if got := v.(scriptbridge.Str).StrValue(); got != "gear" {
		t.Errorf("label = %q", got)
	}
	v, err = m.Fetch(g.Symbol("count"))
	if err != nil {
		t.Fatalf("Fetch(count): %v", err)
	}
	if got := v.(scriptbridge.Int).IntValue(); got != 3 {
		t.Errorf("count = %d", got)
	}
	v, err = m.Fetch(g.Symbol("tags"))
	if err != nil {
		t.Fatalf("Fetch(tags): %v", err)
	}
	arr, ok := v.(scriptbridge.Array)
	if !ok {
		t.Fatalf("tags is %T", v)
	}
	if n, _ := arr.Len(); n != 1 {
		t.Errorf("tags length = %d", n)
	}
}

func TestClassResolution(t *testing.T) {
	g, _ := newFakeGuest(t)

	cls, err := g.Class("ArgumentError")
	if err != nil {
		t.Fatalf("Class: %v", err)
	}
	if cls.Name() != "ArgumentError" {
		t.Errorf("name = %q", cls.Name())
	}
	again, err := g.Class("ArgumentError")
	if err != nil {
		t.Fatalf("Class: %v", err)
	}
	if again != cls {
		t.Error("resolved classes are not cached")
	}

	exc, err := cls.New("boom")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if exc.Message() != "boom" || exc.ClassName() != "ArgumentError" {
		t.Errorf("exception = %s: %s", exc.ClassName(), exc.Message())
	}

	derived, err := exc.WithMessage("worse")
	if err != nil {
		t.Fatalf("WithMessage: %v", err)
	}
	if derived.Message() != "worse" || derived.ClassName() != "ArgumentError" {
		t.Errorf("derived = %s: %s", derived.ClassName(), derived.Message())
	}

	_, err = g.Class("NoSuchThing")
	if err == nil || !strings.Contains(err.Error(), "resolving guest class 'NoSuchThing'") {
		t.Errorf("unknown class error = %v", err)
	}
}

func TestTrapFaultsInstance(t *testing.T) {
	g, f := newFakeGuest(t)
	arr, err := g.Array()
	if err != nil {
		t.Fatalf("Array: %v", err)
	}

	f.failOn = fnLen
	_, err = arr.Len()
	if err == nil || !strings.Contains(err.Error(), "calling guest export 'bridge-len'") {
		t.Fatalf("trap error = %v", err)
	}
	if g.Err() == nil {
		t.Fatal("instance did not fault")
	}

	// The fault is sticky even after the export recovers.
	f.failOn = ""
	if _, err := arr.Len(); err == nil {
		t.Error("faulted instance accepted a call")
	}
	if !g.Int(1).IsNil() {
		t.Error("constructor on a faulted instance returned a value")
	}
	if _, err := g.Array(); err == nil {
		t.Error("Array on a faulted instance succeeded")
	}
}

func TestReset(t *testing.T) {
	g, f := newFakeGuest(t)

	g.String("x")
	if _, err := g.Class("KeyError"); err != nil {
		t.Fatalf("Class: %v", err)
	}
	if _, err := g.Array(); err != nil {
		t.Fatalf("Array: %v", err)
	}
	if len(f.values) <= 3 {
		t.Fatalf("expected transient handles, table has %d", len(f.values))
	}

	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(f.values) != 3 {
		t.Errorf("table holds %d handles after reset, want the 3 singletons", len(f.values))
	}

	// Cached singletons survive; classes resolve afresh.
	if !g.Nil().IsNil() {
		t.Error("nil singleton lost")
	}
	if !g.Bool(true).(scriptbridge.Bool).BoolValue() {
		t.Error("boolean singleton lost")
	}
	if _, err := g.Class("KeyError"); err != nil {
		t.Errorf("re-resolving class after reset: %v", err)
	}
}

func TestAllocatorBalance(t *testing.T) {
	g, f := newFakeGuest(t)

	g.String("hello")
	m, err := g.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := m.Store(g.Symbol("key"), g.String("value")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	widget := f.put(&fakeObj{class: "Widget", echo: true})
	obj, err := g.wrap(widget)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if _, err := obj.Call("echo", g.Int(3)); err != nil {
		t.Fatalf("Call: %v", err)
	}

	if f.allocs == 0 {
		t.Fatal("no guest allocations recorded")
	}
	if f.allocs != f.frees {
		t.Errorf("leaked guest buffers: %d allocs, %d frees", f.allocs, f.frees)
	}
}

func TestPackedStrings(t *testing.T) {
	ptr, length := unpackStr(packStr(7, 9))
	if ptr != 7 || length != 9 {
		t.Errorf("unpack = (%d, %d)", ptr, length)
	}
	if !raised(packStr(0, raisedLen)) {
		t.Error("raise marker not detected")
	}
	if raised(packStr(12, 5)) {
		t.Error("plain string mistaken for a raise")
	}
}
