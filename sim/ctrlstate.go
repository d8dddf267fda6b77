package sim

// ControlState is the per-thread frame of spec §3: current statement,
// residual sequence tail, caller link, the owning process's shared
// variable array, a replicator-value stack, and a wire dependency list.
// Each ControlState embeds exactly one Action.
type ControlState struct {
	Action

	PS *ProcessState

	Stmt Stmt   // current statement
	Seq  []Stmt // residual sequence tail to run after Stmt completes
	Up   *ControlState

	// RepVals is the replicator-value stack: comma-replication pushes a
	// contiguous block of frames, semicolon-replication a single frame
	// incremented between iterations (spec §4.D).
	RepVals []int

	// Dep is the set of wires this control state is currently
	// subscribed to while suspended (invariant 3: empty unless the
	// AFSuspended flag is set).
	Dep []*Wire

	// Argv/Argc hold procedure-call actuals while a callee frame is
	// being set up (spec §4.F "procedure call").
	Argv []Value
	Argc int

	// parallel join bookkeeping (spec §4.D): I counts remaining live
	// branches; Children holds them so a parent can be found by a
	// popping branch.
	I        int
	Children []*ControlState
}

// NewControlState allocates a fresh frame sharing ps's variable array.
func NewControlState(ps *ProcessState, up *ControlState) *ControlState {
	cs := &ControlState{PS: ps, Up: up}
	cs.CS = cs
	return cs
}

func (cs *ControlState) depsEmpty() bool { return len(cs.Dep) == 0 }

// addDep subscribes cs to w and registers it with ctx's live-suspended
// registry so the scheduler's deadlock check (spec §4.C) can actually
// find it once every thread is blocked.
func (cs *ControlState) addDep(ctx *Context, w *Wire) {
	cs.Dep = append(cs.Dep, w)
	w.Waiters = append(w.Waiters, cs)
	cs.Flags |= AFSuspended
	ctx.markSuspended(cs)
}

func (cs *ControlState) removeDep(ctx *Context, w *Wire) {
	for i, d := range cs.Dep {
		if d == w {
			cs.Dep = append(cs.Dep[:i], cs.Dep[i+1:]...)
			break
		}
	}
	if len(cs.Dep) == 0 {
		cs.Flags &^= AFSuspended
		ctx.clearSuspended(cs)
	}
}

// releaseDeps drops every dependency this control state was waiting
// on, used when the scheduler dispatches a resumed action (spec §4.C
// step 3: "if the action was suspended, release all its wire
// dependencies").
func (cs *ControlState) releaseDeps(ctx *Context) {
	for _, w := range cs.Dep {
		for i, waiter := range w.Waiters {
			if waiter == cs {
				w.Waiters = append(w.Waiters[:i], w.Waiters[i+1:]...)
				break
			}
		}
	}
	cs.Dep = nil
	cs.Flags &^= AFSuspended
	ctx.clearSuspended(cs)
}

// StartParallel implements the parallel-composition entry rule (spec
// §4.D): the owning process's nr_thread is incremented by (n−1) and n
// independent child control states are produced, each sharing the
// parent's variable array.
func StartParallel(parent *ControlState, n int, branch func(i int) Stmt) []*ControlState {
	parent.PS.NrThread += n - 1
	parent.I = n
	children := make([]*ControlState, n)
	for i := 0; i < n; i++ {
		child := NewControlState(parent.PS, parent)
		child.Stmt = branch(i)
		children[i] = child
	}
	parent.Children = children
	return children
}

// PopParallelBranch implements the per-branch pop rule: decrement the
// parent's join counter; when it reaches zero the parent is ready to
// advance past the parallel statement.
func PopParallelBranch(child *ControlState) (parent *ControlState, ready bool) {
	parent = child.Up
	parent.I--
	return parent, parent.I == 0
}

// PushReplicatedComma allocates a contiguous block of replicator-value
// frames for a comma-replicated (parallel) construct.
func (cs *ControlState) PushReplicatedComma(lo, hi int) []int {
	n := hi - lo
	if n < 0 {
		n = 0
	}
	vals := make([]int, n)
	for i := range vals {
		vals[i] = lo + i
	}
	cs.RepVals = append(cs.RepVals, vals...)
	return vals
}

// PushReplicatedSemi pushes the single incrementing frame used by a
// semicolon-replicated (serial) loop.
func (cs *ControlState) PushReplicatedSemi(start int) {
	cs.RepVals = append(cs.RepVals, start)
}

func (cs *ControlState) bumpReplicatedSemi() {
	if n := len(cs.RepVals); n > 0 {
		cs.RepVals[n-1]++
	}
}
