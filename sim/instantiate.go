package sim

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ProcessDef is the minimal consumed-AST shape for a process definition
// (meta/chp/hse/prs body), produced by the parser (external
// collaborator, spec §6).
type ProcessDef struct {
	Name     string
	VarCount int
	Ports    []string
	Body     Stmt
}

// procCache memoizes process-template lookups during instantiation
// (spec §4.H), avoiding repeated definition lookups across a large
// replicated instance fan-out.
type procCache struct {
	defs *lru.Cache[string, *ProcessDef]
}

func newProcCache(size int) *procCache {
	if size <= 0 {
		size = 1024
	}
	c, _ := lru.New[string, *ProcessDef](size)
	return &procCache{defs: c}
}

func (pc *procCache) lookup(defs map[string]*ProcessDef, name string) (*ProcessDef, bool) {
	if d, ok := pc.defs.Get(name); ok {
		return d, true
	}
	d, ok := defs[name]
	if ok {
		pc.defs.Add(name, d)
	}
	return d, ok
}

// Instantiator walks meta bodies to build the static process instance
// tree (spec §4.H). Defs is the process-definition table the parser
// resolved; it is consulted, never mutated.
type Instantiator struct {
	Defs  map[string]*ProcessDef
	cache *procCache
}

func NewInstantiator(defs map[string]*ProcessDef) *Instantiator {
	return &Instantiator{Defs: defs, cache: newProcCache(0)}
}

// execInstance builds a process-state subtree named by concatenating
// the parent path and the instance identifier, with array indices
// appended for replication (spec §4.H).
func execInstance(ctx *Context, cs *ControlState, st StmtInstance) (DispatchResult, error) {
	inst := ctx.Instantiator
	def, ok := inst.cache.lookup(inst.Defs, st.Def)
	if !ok {
		return DispatchDone, &SimError{Kind: ErrInstantiation, Object: st.Def, Msg: "unknown process definition"}
	}

	name := cs.PS.Name + "/" + st.Name
	if cs.PS.Name == "/" {
		name = "/" + st.Name
	}
	child := NewProcessState(name, cs.PS, st.Def, def.VarCount)
	cs.PS.Children = append(cs.PS.Children, child)

	args := make([]Value, len(st.Args))
	for i, a := range st.Args {
		v, err := EvalExpr(ctx, cs, a)
		if err != nil {
			return DispatchDone, err
		}
		args[i] = v
	}
	child.Meta = args

	ports := make(map[string]*Port, len(def.Ports))
	for _, p := range def.Ports {
		ports[p] = &Port{Name: p, Owner: child, Probe: NewWire(name + "." + p + ".probe")}
	}
	ctx.instancePorts[name] = ports

	childCS := NewControlState(child, cs)
	childCS.Stmt = def.Body
	childCS.Flags |= AFAtomic
	if ctx.Instantiating {
		ctx.Scheduler.QueueWaiting(childCS)
	} else {
		ctx.Scheduler.Schedule(&childCS.Action)
	}
	child.NrThread = 0

	return advance(ctx, cs)
}

// execConnect implements the `connect` rule of spec §4.H: if both
// sides already exist in the current process, mutate both to be
// mutual peers; fold wire-record shapes leaf by leaf.
func execConnect(ctx *Context, cs *ControlState, st StmtConnect) error {
	av, _, err := RevalExpr(ctx, cs, st.A)
	if err != nil {
		return err
	}
	bv, _, err := RevalExpr(ctx, cs, st.B)
	if err != nil {
		return err
	}
	return connectValues(ctx, av, bv)
}

func connectValues(ctx *Context, a, b *Value) error {
	switch {
	case a.Rep == RepPort && b.Rep == RepPort:
		return connectPorts(a.Port, b.Port)
	case a.Rep == RepWire && b.Rep == RepWire:
		return foldWires(a.Wire, b.Wire)
	case a.Rep == RepRecord && b.Rep == RepRecord:
		return foldRecordConnect(ctx, a, b)
	default:
		return &SimError{Kind: ErrInstantiation, Msg: "incompatible connection"}
	}
}

func connectPorts(a, b *Port) error {
	if a == nil || b == nil {
		return &SimError{Kind: ErrInstantiation, Msg: "connect on dangling port"}
	}
	a.Peer = b
	b.Peer = a
	return foldWires(a.Probe, b.Probe)
}

// foldWires unifies two wire leaves: the first becomes a forward of
// the second, resolved lazily (spec §4.H: "forward-resolved lazily").
func foldWires(w1, w2 *Wire) error {
	if w1 == w2 {
		return nil
	}
	Forward(w1, w2)
	return nil
}

func foldRecordConnect(ctx *Context, a, b *Value) error {
	if a.List == nil || b.List == nil || len(a.List.Elems) != len(b.List.Elems) {
		return &SimError{Kind: ErrInstantiation, Msg: "incompatible record connection shape"}
	}
	for i := range a.List.Elems {
		if err := connectValues(ctx, &a.List.Elems[i], &b.List.Elems[i]); err != nil {
			return err
		}
	}
	return nil
}

// VerifyPorts implements the post-instantiation port check of spec
// §4.H: every port declared by ps must have a peer, and a dangling
// port is fatal. Writers are not counted, so a port with no writer or
// with several writers is not reported.
func VerifyPorts(ctx *Context, ps *ProcessState) error {
	ports, ok := ctx.instancePorts[ps.Name]
	if !ok {
		return nil
	}
	for name, p := range ports {
		if p.Peer == nil {
			return &SimError{Kind: ErrInstantiation, Object: fmt.Sprintf("%s.%s", ps.Name, name), Msg: "dangling port: no peer connected"}
		}
	}
	return nil
}

// execCall builds the callee frame with its own variable array (spec
// §4.F "procedure call": "a fresh variable array"), so recursive calls
// don't alias and corrupt the caller's locals. Actuals are evaluated in
// the caller's scope, then copied positionally into the callee's own
// slots 0..len(Args)-1 before the callee body runs.
func execCall(ctx *Context, cs *ControlState, st StmtCall) (DispatchResult, error) {
	inst := ctx.Instantiator
	def, ok := inst.cache.lookup(inst.Defs, st.Proc)
	if !ok {
		return DispatchDone, &SimError{Kind: ErrInstantiation, Object: st.Proc, Msg: "unknown procedure"}
	}
	actuals := make([]Value, len(st.Args))
	for i, a := range st.Args {
		v, err := EvalExpr(ctx, cs, a)
		if err != nil {
			return DispatchDone, err
		}
		actuals[i] = Copy(v)
	}

	calleePS := NewProcessState(cs.PS.Name+"/"+st.Proc, cs.PS, st.Proc, def.VarCount)
	for i, v := range actuals {
		if i >= len(calleePS.Var) {
			break
		}
		calleePS.Var[i] = v
	}

	callee := NewControlState(calleePS, cs)
	callee.Stmt = def.Body
	callee.Argv = actuals
	callee.Seq = append([]Stmt{&callReturn{caller: cs, callee: callee, st: st}}, callee.Seq...)
	cs.PS.NrThread++
	ctx.Scheduler.Schedule(&callee.Action)
	return DispatchDone, nil
}

// callReturn copies the callee's result slots out into the caller's
// variables named by StmtCall.Vals on pop (spec §4.F "procedure
// call"). The copied values are not range-checked against the
// caller's declared types.
type callReturn struct {
	caller *ControlState
	callee *ControlState
	st     StmtCall
}

func (*callReturn) stmtNode() {}

func execCallReturn(ctx *Context, cs *ControlState, r *callReturn) (DispatchResult, error) {
	for i, vi := range r.st.Vals {
		if vi < 0 || i >= len(r.callee.PS.Var) {
			continue
		}
		Clear(&r.caller.PS.Var[vi])
		r.caller.PS.Var[vi] = CopyAndClear(&r.callee.PS.Var[i])
	}
	r.caller.PS.NrThread--
	return advance(ctx, r.caller)
}
