package sim

import "testing"

func newTestContext() *Context {
	return NewContext(DefaultConfig(), nil)
}

func TestWriteWire_NoOpWhenUnchanged(t *testing.T) {
	ctx := newTestContext()
	w := NewWire("a")
	if err := WriteWire(ctx, w, true); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteWire(ctx, w, true); err != nil {
		t.Fatalf("repeat write should be a no-op, got %v", err)
	}
	val, defined := w.Value()
	if !defined || !val {
		t.Errorf("wire value = (%v, %v), want (true, true)", val, defined)
	}
}

func TestWireFix_ShortCircuitsForwardChain(t *testing.T) {
	a := NewWire("a")
	b := NewWire("b")
	c := NewWire("c")
	Forward(a, b)
	Forward(b, c)

	root := WireFix(a)
	if root != c {
		t.Fatalf("WireFix(a) = %v, want c", root.Name)
	}
	if a.Forward != c {
		t.Errorf("WireFix should short-circuit a's forward directly to c")
	}
}

func TestAndGate_TransitionsOnFullSatisfaction(t *testing.T) {
	ctx := newTestContext()
	b := newExprBuilder(0)

	w1, w2 := NewWire("w1"), NewWire("w2")
	l1, l2 := b.Leaf(w1), b.Leaf(w2)
	and := b.And([]*WireExpr{l1, l2})

	if and.value() {
		t.Fatal("AND gate should start false with undefined children")
	}

	if err := WriteWire(ctx, w1, true); err != nil {
		t.Fatalf("write w1: %v", err)
	}
	if and.value() {
		t.Error("AND gate should remain false with only one true child")
	}

	if err := WriteWire(ctx, w2, true); err != nil {
		t.Fatalf("write w2: %v", err)
	}
	if !and.value() {
		t.Error("AND gate should be true once both children are true")
	}
}

func TestOrGate_TransitionsOnFirstTrueChild(t *testing.T) {
	b := newExprBuilder(0)
	w1, w2 := NewWire("w1"), NewWire("w2")
	l1, l2 := b.Leaf(w1), b.Leaf(w2)
	or := b.Or([]*WireExpr{l1, l2})

	var checks []checkItem
	l1.propagate(false, false, true, true, &checks)
	if !or.value() {
		t.Error("OR gate should be true once any child is true")
	}
	if l2.value() {
		t.Error("untouched child should remain false")
	}
}

func TestExprBuilder_SharesNodesWithMatchingFlags(t *testing.T) {
	b := newExprBuilder(0)
	w1, w2 := NewWire("w1"), NewWire("w2")
	l1, l2 := b.Leaf(w1), b.Leaf(w2)

	n1 := b.And([]*WireExpr{l1, l2})
	n2 := b.And([]*WireExpr{l1, l2})

	if n1 != n2 {
		t.Error("compiling the same AND gate twice should return the shared DAG node")
	}
	if n1.refcnt != 2 {
		t.Errorf("shared node refcnt = %d, want 2", n1.refcnt)
	}
}

func TestRunChecks_InterferenceWhenBothDirectionsFire(t *testing.T) {
	ctx := newTestContext()
	target := NewWire("z")
	act := &Action{Target: ActionTarget{Kind: TargetWire, Wire: target}}

	up := &WireExpr{Flags: EFPullUp | EFValDir, action: act}
	up.setValue(true)
	down := &WireExpr{Flags: EFPullDown | EFValDir, action: act}
	down.setValue(true)

	checks := []checkItem{{expr: up}, {expr: down}}
	err := runChecks(ctx, checks, nil)
	se, ok := AsSimError(err)
	if !ok || se.Sub != "Interference" {
		t.Fatalf("expected <Interference>, got %v", err)
	}
}

func TestUpdateCounter_RejectsOverflow(t *testing.T) {
	ctx := newTestContext()
	c := NewCounter(2)
	c.Value = 2
	err := UpdateCounter(ctx, c, 1)
	se, ok := AsSimError(err)
	if !ok || se.Kind != ErrResource {
		t.Fatalf("expected <Resource> on counter overflow, got %v", err)
	}
}

func TestUpdateCounter_RejectsNegative(t *testing.T) {
	ctx := newTestContext()
	c := NewCounter(2)
	err := UpdateCounter(ctx, c, -1)
	se, ok := AsSimError(err)
	if !ok || se.Kind != ErrRuntimeArith {
		t.Fatalf("expected <Runtime-Arith> on negative counter, got %v", err)
	}
}
