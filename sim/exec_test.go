package sim

import "testing"

func TestExecAssign_RangeChecksAndWrites(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 1)
	cs := NewControlState(ps, nil)

	st := StmtAssign{LHS: ExprVar{Idx: 0}, RHS: ExprConst{Val: Int(5)}}
	res, err := execAssign(ctx, cs, st)
	if err != nil {
		t.Fatalf("execAssign: %v", err)
	}
	if res != DispatchDone {
		t.Fatalf("execAssign result = %v, want DispatchDone", res)
	}
	if ps.Var[0].I != 5 {
		t.Errorf("ps.Var[0] = %+v, want Int(5)", ps.Var[0])
	}
}

func TestExecAssign_UnknownRHSWarnsAndSkipsWrite(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 1)
	ps.Var[0] = Int(9)
	cs := NewControlState(ps, nil)

	st := StmtAssign{LHS: ExprVar{Idx: 0}, RHS: ExprConst{Val: Value{}}}
	_, err := execAssign(ctx, cs, st)
	if err != nil {
		t.Fatalf("execAssign: %v", err)
	}
	if ps.Var[0].I != 9 {
		t.Errorf("assignment from unknown value should leave the destination untouched, got %+v", ps.Var[0])
	}
}

func TestExecAssign_SliceWritesBitRangeInPlace(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 1)
	ps.Var[0] = Int(0) // 0000 0000
	cs := NewControlState(ps, nil)

	st := StmtAssign{
		LHS: ExprSlice{X: ExprVar{Idx: 0}, Lo: ExprConst{Val: Int(1)}, Hi: ExprConst{Val: Int(5)}},
		RHS: ExprConst{Val: Int(0xB)},
	}
	res, err := execAssign(ctx, cs, st)
	if err != nil {
		t.Fatalf("execAssign: %v", err)
	}
	if res != DispatchDone {
		t.Fatalf("execAssign result = %v, want DispatchDone", res)
	}
	if ps.Var[0].I != 0x16 { // 1011 shifted left by 1 = 0001 0110
		t.Errorf("ps.Var[0] = %#x, want 0x16", ps.Var[0].I)
	}
}

func TestRangeCheck_RejectsOutOfBoundsValue(t *testing.T) {
	ty := &TypeInfo{Kind: TypeInt, Lo: 0, Hi: 10}
	err := rangeCheck(Int(11), ty)
	se, ok := AsSimError(err)
	if !ok || se.Kind != ErrRuntimeRange {
		t.Fatalf("expected <Runtime-Range> for out-of-bounds value, got %v", err)
	}
}

func TestAdvance_PopsParallelBranchWhenLastToFinish(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 0)
	parent := NewControlState(ps, nil)
	branches := StartParallel(parent, 2, func(i int) Stmt { return StmtSkip{} })

	res, err := advance(ctx, branches[0])
	if err != nil {
		t.Fatalf("advance branch 0: %v", err)
	}
	if res != DispatchDone {
		t.Errorf("advance on a non-final branch should report DispatchDone without touching the parent, got %v", res)
	}

	res, err = advance(ctx, branches[1])
	if err != nil {
		t.Fatalf("advance branch 1: %v", err)
	}
	if res != DispatchDone {
		t.Errorf("advance on the final branch with an empty parent Seq should report DispatchDone, got %v", res)
	}
}

func TestExecReplicated_SemicolonStepsThroughBoundExclusive(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 1)
	cs := NewControlState(ps, nil)

	var seen []int64
	st := StmtReplicated{
		Comma: false,
		Lo:    ExprConst{Val: Int(0)},
		Hi:    ExprConst{Val: Int(3)},
		Body: func(i int) Stmt {
			return StmtAssign{LHS: ExprVar{Idx: 0}, RHS: ExprConst{Val: Int(int64(i))}}
		},
	}

	res, err := execReplicated(ctx, cs, st)
	if err != nil {
		t.Fatalf("execReplicated: %v", err)
	}
	for res == DispatchNext {
		_, isBody := cs.Stmt.(StmtAssign)
		res, err = ExecStmt(ctx, cs)
		if err != nil {
			t.Fatalf("ExecStmt: %v", err)
		}
		if isBody {
			seen = append(seen, ps.Var[0].I)
		}
	}

	want := []int64{0, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("iterations = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestFindTrueGuard_MutexRejectsMultipleTrueGuards(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 0)
	cs := NewControlState(ps, nil)

	guards := []Guard{
		{Cond: ExprConst{Val: Bool(true)}, Body: StmtSkip{}},
		{Cond: ExprConst{Val: Bool(true)}, Body: StmtSkip{}},
	}
	_, _, err := findTrueGuard(ctx, cs, guards, true)
	se, ok := AsSimError(err)
	if !ok {
		t.Fatalf("expected an error for multiple true guards under mutex, got %v", err)
	}
	_ = se
}

func TestFindTrueGuard_NonMutexReturnsFirstTrue(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 0)
	cs := NewControlState(ps, nil)

	second := StmtSkip{}
	guards := []Guard{
		{Cond: ExprConst{Val: Bool(false)}, Body: StmtSkip{}},
		{Cond: ExprConst{Val: Bool(true)}, Body: second},
	}
	g, ok, err := findTrueGuard(ctx, cs, guards, false)
	if err != nil {
		t.Fatalf("findTrueGuard: %v", err)
	}
	if !ok {
		t.Fatal("expected a true guard to be found")
	}
	if g.Body != Stmt(second) {
		t.Error("findTrueGuard should return the first true guard encountered")
	}
}

func TestExecSelect_SuspendsAndSubscribesWhenNoGuardReady(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 1)
	cs := NewControlState(ps, nil)

	st := StmtSelect{
		Guards: []Guard{
			{Cond: ExprVar{Idx: 0}, Body: StmtSkip{}},
		},
	}
	res, err := execSelect(ctx, cs, st)
	if err != nil {
		t.Fatalf("execSelect: %v", err)
	}
	if res != DispatchSuspend {
		t.Errorf("execSelect with no ready guard should suspend, got %v", res)
	}
}

func TestExecSelect_ImmediateWithNoTrueGuardIsFatal(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 0)
	cs := NewControlState(ps, nil)

	st := StmtSelect{
		Guards:    []Guard{{Cond: ExprConst{Val: Bool(false)}, Body: StmtSkip{}}},
		Immediate: true,
	}
	res, err := execSelect(ctx, cs, st)
	se, ok := AsSimError(err)
	if !ok || se.Sub != "NoTrueGuards" {
		t.Fatalf("expected <Runtime-Range><NoTrueGuards>, got %v", err)
	}
	if res != DispatchDone {
		t.Errorf("execSelect result = %v, want DispatchDone", res)
	}
}

func TestExecDelayHold_AttachesCounterToTargetWire(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 0)
	cs := NewControlState(ps, nil)
	w := NewWire("held")

	st := StmtDelayHold{Target: w, Dir: true, Cycles: 4}
	res, err := execDelayHold(ctx, cs, st)
	if err != nil {
		t.Fatalf("execDelayHold: %v", err)
	}
	if res != DispatchDone {
		t.Errorf("execDelayHold result = %v, want DispatchDone", res)
	}
	if w.HoldUpCounter == nil || w.HoldUpCounter.Max != 4 {
		t.Fatalf("expected a hold-up counter with Max 4, got %+v", w.HoldUpCounter)
	}
	if !w.has(WFHeldDown) {
		t.Fatal("a hold-up should gate the wire's opposing (down) direction")
	}
}

func TestExecDelayHold_ReleaseReplaysTheDeferredWrite(t *testing.T) {
	ctx := newTestContext()
	ps := NewProcessState("/p", nil, "P", 0)
	cs := NewControlState(ps, nil)
	w := NewWire("held")
	if err := WriteWire(ctx, w, true); err != nil {
		t.Fatalf("initial write: %v", err)
	}

	st := StmtDelayHold{Target: w, Dir: true, Cycles: 2}
	if _, err := execDelayHold(ctx, cs, st); err != nil {
		t.Fatalf("execDelayHold: %v", err)
	}

	// A pull-down attempted while the hold is active is deferred, not
	// applied, and the wire stays up.
	if err := WriteWire(ctx, w, false); err != nil {
		t.Fatalf("gated write: %v", err)
	}
	if val, _ := w.Value(); !val {
		t.Fatal("wire should remain held up while the hold counter is active")
	}

	// Draining the counter to zero releases the hold and replays the
	// deferred pull-down.
	if err := UpdateCounter(ctx, w.HoldUpCounter, -1); err != nil {
		t.Fatalf("UpdateCounter: %v", err)
	}
	if err := UpdateCounter(ctx, w.HoldUpCounter, -1); err != nil {
		t.Fatalf("UpdateCounter: %v", err)
	}
	if val, defined := w.Value(); !defined || val {
		t.Errorf("wire value after hold release = (%v, %v), want (false, true)", val, defined)
	}
	if w.has(WFHeldDown) {
		t.Error("WFHeldDown should be cleared once the hold counter drains")
	}
}
