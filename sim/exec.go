package sim

// Stmt is the minimal consumed-AST shape the statement executor
// dispatches on (spec §4.F); the parser (external collaborator, §6)
// produces trees in this shape with types/var_idx already resolved.
type Stmt interface {
	stmtNode()
}

type (
	StmtSkip struct{}

	StmtAssign struct {
		LHS Expr
		RHS Expr
	}

	// StmtBoolSet is x+ / x-: a constant wire write.
	StmtBoolSet struct {
		Target *Wire
		Value  bool
	}

	StmtCompound struct{ Body []Stmt }

	StmtParallel struct{ Branches []Stmt }

	// StmtReplicated covers both comma- (parallel) and semicolon-
	// (serial) replicated statements.
	StmtReplicated struct {
		Comma  bool
		Lo, Hi Expr
		Body   func(i int) Stmt
	}

	// Guard pairs a probed expression with the statement to run when it
	// holds true.
	Guard struct {
		Cond Expr
		Body Stmt
	}

	StmtSelect struct {
		Guards      []Guard
		Mutex       bool
		Immediate   bool // do not suspend if no guard is ready
	}

	StmtLoop struct {
		Guards []Guard
	}

	CommKind int

	StmtComm struct {
		Kind CommKind
		Port *Port
		// Expr is the send value expression or the receive lvalue.
		Expr Expr
		Lvl  Expr // the 'pass' statement's proxied port expression
	}

	StmtCall struct {
		Proc string
		Args []Expr
		Vals []int // indices in the callee frame receiving results
	}

	StmtInstance struct {
		Name string
		Def  string
		Args []Expr
	}

	StmtConnect struct {
		A, B Expr
	}

	StmtProdRule struct {
		Guard *WireExpr
		Dir   bool // true = pull-up, false = pull-down
		Target *Wire
	}

	StmtDelayHold struct {
		Target *Wire
		Dir    bool
		Cycles int
	}
)

const (
	CommSend CommKind = iota
	CommReceive
	CommPeek
	CommPass
)

func (StmtSkip) stmtNode()       {}
func (StmtAssign) stmtNode()     {}
func (StmtBoolSet) stmtNode()    {}
func (StmtCompound) stmtNode()   {}
func (StmtParallel) stmtNode()   {}
func (StmtReplicated) stmtNode() {}
func (StmtSelect) stmtNode()     {}
func (StmtLoop) stmtNode()       {}
func (StmtComm) stmtNode()       {}
func (StmtCall) stmtNode()       {}
func (StmtInstance) stmtNode()   {}
func (StmtConnect) stmtNode()    {}
func (StmtProdRule) stmtNode()   {}
func (StmtDelayHold) stmtNode()  {}

// ExecStmt dispatches cs.Stmt per spec §4.F and returns how the
// scheduler should proceed.
func ExecStmt(ctx *Context, cs *ControlState) (DispatchResult, error) {
	switch st := cs.Stmt.(type) {
	case StmtSkip:
		return advance(ctx, cs)

	case StmtAssign:
		return execAssign(ctx, cs, st)

	case StmtBoolSet:
		if err := WriteWire(ctx, st.Target, st.Value); err != nil {
			return DispatchDone, err
		}
		return advance(ctx, cs)

	case StmtCompound:
		cs.Seq = append(append([]Stmt{}, st.Body...), cs.Seq...)
		return popSeq(ctx, cs)

	case StmtParallel:
		branches := st.Branches
		StartParallel(cs, len(branches), func(i int) Stmt { return branches[i] })
		for _, child := range cs.Children {
			ctx.Scheduler.Schedule(&child.Action)
		}
		return DispatchDone, nil

	case StmtReplicated:
		return execReplicated(ctx, cs, st)

	case StmtSelect:
		return execSelect(ctx, cs, st)

	case StmtLoop:
		return execLoop(ctx, cs, st)

	case StmtComm:
		return execComm(ctx, cs, st)

	case StmtCall:
		return execCall(ctx, cs, st)

	case StmtInstance:
		return execInstance(ctx, cs, st)

	case StmtConnect:
		if err := execConnect(ctx, cs, st); err != nil {
			return DispatchDone, err
		}
		return advance(ctx, cs)

	case StmtProdRule:
		act := &Action{Kind: ActionPR, Target: ActionTarget{Kind: TargetWire, Wire: st.Target}, CS: cs}
		st.Guard.action = act
		return DispatchDone, nil

	case StmtDelayHold:
		return execDelayHold(ctx, cs, st)

	case *replicatedStep:
		return execReplicatedStep(ctx, cs, st)

	case *callReturn:
		return execCallReturn(ctx, cs, st)

	default:
		return DispatchDone, &SimError{Kind: ErrRuntimeRange, Msg: "unknown statement kind"}
	}
}

// advance pops the next statement off cs.Seq, or completes the frame
// (parallel-branch pop / procedure-call pop) when the tail is empty.
func advance(ctx *Context, cs *ControlState) (DispatchResult, error) {
	if len(cs.Seq) > 0 {
		cs.Stmt = cs.Seq[0]
		cs.Seq = cs.Seq[1:]
		return DispatchNext, nil
	}
	if cs.Up != nil && cs.Up.Children != nil {
		parent, ready := PopParallelBranch(cs)
		if ready {
			return advance(ctx, parent)
		}
		return DispatchDone, nil
	}
	return DispatchDone, nil
}

func popSeq(ctx *Context, cs *ControlState) (DispatchResult, error) {
	if len(cs.Seq) == 0 {
		return DispatchDone, nil
	}
	cs.Stmt = cs.Seq[0]
	cs.Seq = cs.Seq[1:]
	return DispatchNext, nil
}

func execAssign(ctx *Context, cs *ControlState, st StmtAssign) (DispatchResult, error) {
	rhs, err := EvalExpr(ctx, cs, st.RHS)
	if err != nil {
		return DispatchDone, err
	}
	if rhs.IsNone() {
		ctx.Warnf("assignment from unknown value")
		return advance(ctx, cs)
	}
	if slice, ok := st.LHS.(ExprSlice); ok {
		return execAssignSlice(ctx, cs, slice, rhs)
	}
	ptr, ty, err := RevalExpr(ctx, cs, st.LHS)
	if err != nil {
		return DispatchDone, err
	}
	if ty != nil {
		if err := rangeCheck(rhs, ty); err != nil {
			return DispatchDone, err
		}
	}
	if err := checkAccess(ctx, cs, st.LHS, true); err != nil {
		return DispatchDone, err
	}
	Clear(ptr)
	*ptr = Copy(rhs)
	return advance(ctx, cs)
}

// execAssignSlice implements `x[l..h] := e`: a read-modify-write of bits
// [lo,hi) of the carrier integer, wrapping modulo the slice width (spec
// §4.E, the "wrap" convention picked for Open Question (c)).
func execAssignSlice(ctx *Context, cs *ControlState, n ExprSlice, rhs Value) (DispatchResult, error) {
	if !isNumeric(rhs.Rep) {
		return DispatchDone, &SimError{Kind: ErrRuntimeRange, Msg: "bit-slice assignment from non-numeric value"}
	}
	carrier, _, err := RevalExpr(ctx, cs, n.X)
	if err != nil {
		return DispatchDone, err
	}
	if !isNumeric(carrier.Rep) {
		return DispatchDone, &SimError{Kind: ErrRuntimeRange, Msg: "bit-slice assignment on non-numeric carrier"}
	}
	loV, err := EvalExpr(ctx, cs, n.Lo)
	if err != nil {
		return DispatchDone, err
	}
	hiV, err := EvalExpr(ctx, cs, n.Hi)
	if err != nil {
		return DispatchDone, err
	}
	lo, err := asIndex(loV)
	if err != nil {
		return DispatchDone, err
	}
	hi, err := asIndex(hiV)
	if err != nil {
		return DispatchDone, err
	}
	if err := checkAccess(ctx, cs, n, true); err != nil {
		return DispatchDone, err
	}
	writeBitSlice(carrier, int(lo), int(hi), rhs.I)
	return advance(ctx, cs)
}

func rangeCheck(v Value, ty *TypeInfo) error {
	if ty.Kind == TypeInt && isNumeric(v.Rep) {
		c, err := IntCmp(v, Int(ty.Lo))
		if err != nil {
			return err
		}
		if c < 0 {
			return &SimError{Kind: ErrRuntimeRange, Msg: "value below declared lower bound"}
		}
		c, err = IntCmp(v, Int(ty.Hi))
		if err != nil {
			return err
		}
		if c > 0 {
			return &SimError{Kind: ErrRuntimeRange, Msg: "value above declared upper bound"}
		}
	}
	return nil
}

func execReplicated(ctx *Context, cs *ControlState, st StmtReplicated) (DispatchResult, error) {
	lo, err := EvalExpr(ctx, cs, st.Lo)
	if err != nil {
		return DispatchDone, err
	}
	hi, err := EvalExpr(ctx, cs, st.Hi)
	if err != nil {
		return DispatchDone, err
	}
	loI, _ := asIndex(lo)
	hiI, _ := asIndex(hi)
	if st.Comma {
		n := int(hiI - loI)
		cs.PushReplicatedComma(int(loI), int(hiI))
		branches := make([]Stmt, n)
		for i := range branches {
			branches[i] = st.Body(int(loI) + i)
		}
		StartParallel(cs, n, func(i int) Stmt { return branches[i] })
		for _, child := range cs.Children {
			ctx.Scheduler.Schedule(&child.Action)
		}
		return DispatchDone, nil
	}
	cs.PushReplicatedSemi(int(loI))
	cs.Stmt = st.Body(int(loI))
	cs.Seq = append([]Stmt{&replicatedStep{st: st, hi: int(hiI)}}, cs.Seq...)
	return DispatchNext, nil
}

// replicatedStep re-enters a semicolon-replicated body until the
// bound is exhausted.
type replicatedStep struct {
	st StmtReplicated
	hi int
}

func (*replicatedStep) stmtNode() {}

func execReplicatedStep(ctx *Context, cs *ControlState, st *replicatedStep) (DispatchResult, error) {
	cs.bumpReplicatedSemi()
	i := cs.RepVals[len(cs.RepVals)-1]
	if i >= st.hi {
		cs.RepVals = cs.RepVals[:len(cs.RepVals)-1]
		return advance(ctx, cs)
	}
	cs.Stmt = st.st.Body(i)
	cs.Seq = append([]Stmt{st}, cs.Seq...)
	return DispatchNext, nil
}

func execSelect(ctx *Context, cs *ControlState, st StmtSelect) (DispatchResult, error) {
	g, ok, err := findTrueGuard(ctx, cs, st.Guards, st.Mutex)
	if err != nil {
		return DispatchDone, err
	}
	if !ok {
		if st.Immediate {
			return DispatchDone, &SimError{Kind: ErrRuntimeRange, Sub: "NoTrueGuards", Msg: "no true guards in immediate selection"}
		}
		subscribeAll(ctx, cs, st.Guards)
		return DispatchSuspend, nil
	}
	cs.Stmt = g.Body
	return DispatchNext, nil
}

func execLoop(ctx *Context, cs *ControlState, st StmtLoop) (DispatchResult, error) {
	g, ok, err := findTrueGuard(ctx, cs, st.Guards, false)
	if err != nil {
		return DispatchDone, err
	}
	if !ok {
		subscribeAll(ctx, cs, st.Guards)
		return DispatchSuspend, nil
	}
	cs.Seq = append([]Stmt{StmtLoop(st)}, cs.Seq...)
	cs.Stmt = g.Body
	return DispatchNext, nil
}

// findTrueGuard walks the guard list ensuring at most one true guard
// when mutex is requested (spec §4.F).
func findTrueGuard(ctx *Context, cs *ControlState, guards []Guard, mutex bool) (Guard, bool, error) {
	var found Guard
	seen := false
	for _, g := range guards {
		v, err := EvalExpr(ctx, cs, g.Cond)
		if err != nil {
			return Guard{}, false, err
		}
		if v.Truth() {
			if seen && mutex {
				return Guard{}, false, &SimError{Kind: ErrRuntimeRange, Msg: "multiple true guards under mutex selection"}
			}
			if !seen {
				found = g
			}
			seen = true
			if !mutex {
				return found, true, nil
			}
		}
	}
	return found, seen, nil
}

func subscribeAll(ctx *Context, cs *ControlState, guards []Guard) {
	for _, g := range guards {
		for _, w := range probedWires(g.Cond) {
			cs.addDep(ctx, w)
		}
	}
}

// probedWires collects the wires a guard condition would need to
// change for the guard to become re-evaluable.
func probedWires(e Expr) []*Wire {
	switch n := e.(type) {
	case ExprBinary:
		return append(probedWires(n.X), probedWires(n.Y)...)
	case ExprUnary:
		return probedWires(n.X)
	default:
		return nil
	}
}

func execDelayHold(ctx *Context, cs *ControlState, st StmtDelayHold) (DispatchResult, error) {
	ctr := NewCounter(st.Cycles)
	ctr.Value = ctr.Max // the hold starts full and drains to 0 via UpdateCounter
	// A hold gates the *opposing* direction while it is draining: an
	// up-hold keeps the wire from being pulled down, and vice versa
	// (spec §4.B step 2, SPEC_FULL.md §D).
	if st.Dir {
		st.Target.HoldUpCounter = ctr
		st.Target.set(WFHeldDown, true)
	} else {
		st.Target.HoldDownCounter = ctr
		st.Target.set(WFHeldUp, true)
	}
	ctr.Deps = append(ctr.Deps, st.Target)
	return advance(ctx, cs)
}
