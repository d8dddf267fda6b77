package sim

import "testing"

func TestRegistry_CallDispatchesRegisteredBuiltin(t *testing.T) {
	r := NewRegistry()
	r.Register("double", func(ctx *Context, cs *ControlState, argv []Value) (Value, error) {
		return IntMul(argv[0], Int(2))
	})

	v, err := r.Call(nil, nil, "double", []Value{Int(21)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v.I != 42 {
		t.Errorf("double(21) = %d, want 42", v.I)
	}
}

func TestRegistry_CallUnknownBuiltinIsInstantiationError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Call(nil, nil, "nope", nil)
	se, ok := AsSimError(err)
	if !ok || se.Kind != ErrInstantiation {
		t.Fatalf("expected <Instantiation> for unregistered builtin, got %v", err)
	}
}

func TestRandomDraw_StaysWithinBound(t *testing.T) {
	ctx := newTestContext()
	for i := 0; i < 50; i++ {
		v := RandomDraw(ctx, 10)
		if v.I < 0 || v.I >= 10 {
			t.Fatalf("RandomDraw(10) = %d, out of [0,10)", v.I)
		}
	}
}
