package sim

// WireFlag is a bitmask over the flag set described in spec §3.
type WireFlag uint16

const (
	WFValue WireFlag = 1 << iota
	WFUndefined
	WFForwarded
	WFHasWriter
	WFHasDep
	WFIsProbe
	WFHeldUp
	WFHeldDown
	WFWait
	WFWatch
	WFReset
)

// Wire is the boolean signal node described in spec §3/§4.B. Exactly one
// of Forward or Deps is meaningful at a time: once Forward is set the
// wire has been folded into another and carries no body of its own.
type Wire struct {
	Name    string
	Flags   WireFlag
	Forward *Wire
	// WFrame is the single writer-frame that owns this wire (invariant
	// 2): the control state whose PR/assignment action may mutate it.
	WFrame *ControlState
	// Deps are the wire-expression leaves that reference this wire;
	// write_wire walks these on every transition.
	Deps []*WireExpr
	// Waiters are control states suspended on this wire becoming
	// available (probe wait/zero, held wire release).
	Waiters []*ControlState
	// HoldUpCounter/HoldDownCounter are the counters gating a hold in
	// each direction (spec §4.D "delay hold"). While a hold is active it
	// blocks the opposing direction through a flag: an up-hold sets
	// WFHeldDown, a down-hold sets WFHeldUp, and WriteWire defers any
	// write the flag forbids until the counter drains to 0.
	HoldUpCounter   *Counter
	HoldDownCounter *Counter

	// hasPendingWrite/pendingWrite record a write WriteWire deferred
	// because the opposing hold was active, so it can be replayed once
	// the gating counter drains (spec §4.B step 2).
	hasPendingWrite bool
	pendingWrite    bool
}

func NewWire(name string) *Wire {
	return &Wire{Name: name, Flags: WFUndefined}
}

func (w *Wire) has(f WireFlag) bool { return w.Flags&f != 0 }

func (w *Wire) set(f WireFlag, on bool) {
	if on {
		w.Flags |= f
	} else {
		w.Flags &^= f
	}
}

// WireFix resolves a forwarding chain, short-circuiting it so later
// lookups are O(1), per spec §3 ("forwarding is resolved lazily by
// wire-fix which short-circuits chains").
func WireFix(w *Wire) *Wire {
	if w == nil {
		return nil
	}
	root := w
	for root.has(WFForwarded) && root.Forward != nil {
		root = root.Forward
	}
	for w.has(WFForwarded) && w.Forward != nil && w.Forward != root {
		next := w.Forward
		w.Forward = root
		w = next
	}
	return root
}

// Forward points w at target, folding it out of independent existence
// (used by the instantiation engine's wire-record unification, spec
// §4.H).
func Forward(w, target *Wire) {
	w.Forward = target
	w.set(WFForwarded, true)
}

// Value reports the wire's current boolean output and whether it is
// defined.
func (w *Wire) Value() (val bool, defined bool) {
	r := WireFix(w)
	return r.has(WFValue), !r.has(WFUndefined)
}

// checkItem is one entry accumulated in write_wire's "check list": a
// wire-expression leaf whose action needs two-phase PR reconciliation
// (spec §4.B step 6).
type checkItem struct {
	expr *WireExpr
}

// WriteWire implements write_wire per spec §4.B's six-step algorithm.
// ctx supplies the critical-path/trace/logging facilities so this
// function stays a pure state transition plus a list of side effects to
// perform.
func WriteWire(ctx *Context, w *Wire, val bool) error {
	w = WireFix(w)

	oldVal, oldDefined := w.has(WFValue), !w.has(WFUndefined)
	if oldDefined && oldVal == val {
		return nil
	}

	// Step 2: a hold in the opposing direction defers the write
	// entirely rather than mutating the wire; the deferred value is
	// replayed by releaseHold once the gating counter drains.
	if val && w.has(WFHeldUp) {
		w.hasPendingWrite, w.pendingWrite = true, val
		return nil
	}
	if !val && w.has(WFHeldDown) {
		w.hasPendingWrite, w.pendingWrite = true, val
		return nil
	}

	// Step 3: watched wires emit a trace event.
	if w.has(WFWatch) || ctx.Config.WatchAll {
		ctx.Trace(TraceEvent{Kind: TraceWireChange, Wire: w.Name, Value: val, Time: ctx.Scheduler.Now.String()})
	}

	// Step 4: critical-path tracking links a new node to the current one.
	var crit *CritNode
	if ctx.Config.Critical {
		crit = newCritNode(ctx.currentCrit, w.Name)
		ctx.currentCrit = crit
	}

	w.set(WFValue, val)
	w.set(WFUndefined, false)

	// Step 5: propagate the change to every dependent expression,
	// collecting leaf actions into the check list.
	var checks []checkItem
	for _, dep := range w.Deps {
		dep.propagate(oldDefined, oldVal, true, val, &checks)
	}

	wakers := w.Waiters
	w.Waiters = nil
	for _, cs := range wakers {
		cs.removeDep(ctx, w)
		if cs.depsEmpty() {
			ctx.Scheduler.Resume(cs)
		}
	}

	// Step 6: two-phase PR commit / stability check.
	return runChecks(ctx, checks, crit)
}

// runChecks implements the two-phase interference/instability detector
// over the accumulated check list (spec §4.B "run_checks").
func runChecks(ctx *Context, checks []checkItem, crit *CritNode) error {
	seen := map[*Action]bool{}
	for _, c := range checks {
		act := c.expr.action
		if act == nil {
			continue
		}
		if !seen[act] {
			act.UpNext, act.DnNext = false, false
			seen[act] = true
		}
		up, dn := c.expr.nextDirections()
		act.UpNext = act.UpNext || up
		act.DnNext = act.DnNext || dn
	}
	committed := map[*Action]bool{}
	for _, c := range checks {
		act := c.expr.action
		if act == nil || committed[act] {
			continue
		}
		committed[act] = true
		prevUp, prevDn := act.PRUp, act.PRDn
		act.PRUp, act.PRDn = act.UpNext, act.DnNext
		switch {
		case act.PRUp && act.PRDn:
			return &SimError{Kind: ErrPR, Sub: "Interference", Object: act.Target.Name(), Msg: "both pull-up and pull-down enabled"}
		case prevUp && !act.PRUp && !act.PRDn:
			return &SimError{Kind: ErrPR, Sub: "Instability", Object: act.Target.Name(), Msg: "pull-up dropped before the opposite fired"}
		case prevDn && !act.PRDn && !act.PRUp:
			return &SimError{Kind: ErrPR, Sub: "Instability", Object: act.Target.Name(), Msg: "pull-down dropped before the opposite fired"}
		case act.PRUp || act.PRDn:
			act.Crit = crit
			ctx.Scheduler.Schedule(act)
		}
	}
	return nil
}

// Counter is the bounded, reference-counted small integer of spec §3.
type Counter struct {
	refcnt int
	Value  int
	Max    int
	Deps   []*Wire
}

func NewCounter(max int) *Counter {
	if max <= 0 || max > MaxCount {
		max = MaxCount
	}
	return &Counter{refcnt: 1, Max: max}
}

// UpdateCounter implements update_counter: dir>0 increments, dir<0
// decrements, and the count stays within [0,Max]. An attempt to push it
// out of range is an error rather than a wrap or a silent clamp:
// <Resource> above Max, <Runtime-Arith> below 0 (bit-slice writes
// elsewhere, by contrast, wrap modulo width). Once
// the count drains to zero, any hold the counter was gating on its
// dependent wires releases (spec §4.B step 2).
func UpdateCounter(ctx *Context, c *Counter, dir int) error {
	switch {
	case dir > 0 && c.Value >= c.Max:
		return &SimError{Kind: ErrResource, Msg: "counter overflow"}
	case dir < 0 && c.Value <= 0:
		return &SimError{Kind: ErrRuntimeArith, Msg: "negative counter"}
	case dir > 0:
		c.Value++
	case dir < 0:
		c.Value--
	}
	if c.Value > 0 {
		return nil
	}
	for _, w := range c.Deps {
		if err := releaseHold(ctx, w, c); err != nil {
			return err
		}
	}
	return nil
}

// releaseHold clears whichever hold flag w's counter c was gating, then
// re-applies any write that WriteWire deferred while the hold was
// active (spec §4.B step 2: a hold in the opposing direction defers the
// write entirely rather than mutating the wire).
func releaseHold(ctx *Context, w *Wire, c *Counter) error {
	w = WireFix(w)
	switch {
	case w.HoldUpCounter == c:
		w.set(WFHeldDown, false)
	case w.HoldDownCounter == c:
		w.set(WFHeldUp, false)
	default:
		return nil
	}
	if !w.hasPendingWrite {
		return nil
	}
	w.hasPendingWrite = false
	return WriteWire(ctx, w, w.pendingWrite)
}
