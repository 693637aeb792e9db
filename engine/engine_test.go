package engine

import (
	"strings"
	"testing"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

func TestStringify(t *testing.T) {
	rt := New()

	arr, _ := rt.Array()
	if err := arr.Append(rt.Int(1), rt.String("a")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	h, _ := rt.Map()
	if err := h.Store(rt.String("a"), rt.Int(1)); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := h.Store(rt.Symbol("b"), rt.Bool(true)); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	tests := []struct {
		name string
		obj  scriptbridge.Object
		want string
	}{
		{"int", rt.Int(42), "42"},
		{"negative int", rt.Int(-7), "-7"},
		{"float", rt.Float(2.5), "2.5"},
		{"bool true", rt.Bool(true), "true"},
		{"bool false", rt.Bool(false), "false"},
		{"nil", rt.Nil(), ""},
		{"string", rt.String("door"), "door"},
		{"symbol", rt.Symbol("mass"), "mass"},
		{"array", arr, `[1, "a"]`},
		{"hash", h, `{"a" => 1, :b => true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.obj.Text()
			if err != nil {
				t.Fatalf("Text() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassNames(t *testing.T) {
	rt := New()
	tests := []struct {
		obj  scriptbridge.Object
		want string
	}{
		{rt.Nil(), "Nil"},
		{rt.Bool(true), "Bool"},
		{rt.Int(1), "Int"},
		{rt.Float(1.5), "Float"},
		{rt.String("x"), "String"},
		{rt.Symbol("x"), "Symbol"},
	}
	for _, tt := range tests {
		if got := tt.obj.ClassName(); got != tt.want {
			t.Errorf("ClassName() = %q, want %q", got, tt.want)
		}
	}
}

func TestCapabilityHonesty(t *testing.T) {
	rt := New()

	if _, ok := rt.Symbol("s").(scriptbridge.Str); ok {
		t.Error("symbol must not satisfy the native-string capability")
	}
	if _, ok := rt.Bool(true).(scriptbridge.Int); ok {
		t.Error("bool must not satisfy the integer capability")
	}
	if _, ok := rt.Int(1).(scriptbridge.Float); ok {
		t.Error("int must not satisfy the float capability")
	}
	arr, _ := rt.Array()
	if _, ok := arr.(scriptbridge.Map); ok {
		t.Error("array must not satisfy the keyed-container capability")
	}
	h, _ := rt.Map()
	if _, ok := h.(scriptbridge.Array); ok {
		t.Error("map must not satisfy the indexed-container capability")
	}
}

func TestHashOrderAndFetch(t *testing.T) {
	rt := New()
	h, _ := rt.Map()

	_ = h.Store(rt.String("b"), rt.Int(2))
	_ = h.Store(rt.String("a"), rt.Int(1))
	_ = h.Store(rt.Int(1), rt.String("int key"))

	t.Run("keys keep insertion order", func(t *testing.T) {
		keys, err := h.Keys()
		if err != nil {
			t.Fatalf("Keys() failed: %v", err)
		}
		var got []string
		for _, k := range keys {
			s, _ := k.Text()
			got = append(got, s)
		}
		want := []string{"b", "a", "1"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("key order = %v, want %v", got, want)
			}
		}
	})

	t.Run("restore keeps position", func(t *testing.T) {
		_ = h.Store(rt.String("b"), rt.Int(20))
		keys, _ := h.Keys()
		first, _ := keys[0].Text()
		if first != "b" {
			t.Errorf("first key = %q after restore, want b", first)
		}
		v, err := h.Fetch(rt.String("b"))
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if v.(scriptbridge.Int).IntValue() != 20 {
			t.Error("restore did not replace the value")
		}
	})

	t.Run("string and int keys stay distinct", func(t *testing.T) {
		v, err := h.Fetch(rt.Int(1))
		if err != nil {
			t.Fatalf("Fetch(1) failed: %v", err)
		}
		if v.(scriptbridge.Str).StrValue() != "int key" {
			t.Error("integer key collided with string key")
		}
		if _, err := h.Fetch(rt.String("1")); err == nil {
			t.Error("string \"1\" unexpectedly present")
		}
	})

	t.Run("absent key raises KeyError", func(t *testing.T) {
		_, err := h.Fetch(rt.String("missing"))
		if err == nil {
			t.Fatal("Fetch of absent key succeeded")
		}
		if !errors.IsKind(err, errors.KindGuestException) {
			t.Errorf("error kind = %v, want guest exception", err)
		}
		if !strings.Contains(err.Error(), "missing") {
			t.Errorf("error %q does not name the key", err)
		}
	})
}

func TestArray(t *testing.T) {
	rt := New()
	arr, _ := rt.Array()
	_ = arr.Append(rt.Int(10), rt.Int(20))

	if n, _ := arr.Len(); n != 2 {
		t.Fatalf("Len() = %d, want 2", n)
	}

	v, err := arr.Index(1)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if v.(scriptbridge.Int).IntValue() != 20 {
		t.Error("Index(1) returned the wrong element")
	}

	out, err := arr.Index(5)
	if err != nil {
		t.Fatalf("out-of-range Index errored: %v", err)
	}
	if !out.IsNil() {
		t.Error("out-of-range Index should yield nil")
	}
}

func TestDispatch(t *testing.T) {
	rt := New()

	t.Run("to_s", func(t *testing.T) {
		res, err := rt.Int(5).Call("to_s")
		if err != nil {
			t.Fatalf("to_s raised: %v", err)
		}
		if res.(scriptbridge.Str).StrValue() != "5" {
			t.Errorf("to_s = %v", res)
		}
	})

	t.Run("inspect quotes strings", func(t *testing.T) {
		res, err := rt.String("a").Call("inspect")
		if err != nil {
			t.Fatalf("inspect raised: %v", err)
		}
		if res.(scriptbridge.Str).StrValue() != `"a"` {
			t.Errorf("inspect = %v", res)
		}
	})

	t.Run("unknown method raises NoMethodError", func(t *testing.T) {
		_, err := rt.Int(5).Call("frobnicate")
		if err == nil {
			t.Fatal("unknown method did not raise")
		}
		if !errors.IsKind(err, errors.KindGuestException) {
			t.Errorf("error kind = %v, want guest exception", err)
		}
		if !strings.Contains(err.Error(), "frobnicate") {
			t.Errorf("error %q does not name the method", err)
		}
	})
}

func TestExceptionClasses(t *testing.T) {
	rt := New()

	cls, err := rt.Class("StandardError")
	if err != nil {
		t.Fatalf("Class failed: %v", err)
	}
	again, _ := rt.Class("StandardError")
	if cls != again {
		t.Error("Class did not cache the class object")
	}

	exc, err := cls.New("something broke")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if exc.ClassName() != "StandardError" || exc.Message() != "something broke" {
		t.Errorf("exception = %s / %s", exc.ClassName(), exc.Message())
	}

	derived, err := exc.WithMessage("more detail")
	if err != nil {
		t.Fatalf("WithMessage failed: %v", err)
	}
	if derived.ClassName() != "StandardError" || derived.Message() != "more detail" {
		t.Error("WithMessage lost the class or message")
	}
}
