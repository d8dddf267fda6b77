package sim

// This file implements the core APIs exposed to external collaborators
// (spec §6): init_core, prepare_exec, interact_instantiate, prepare_chp,
// interact_chp, term_exec.

// InitCore allocates the scheduler, the trace stream, and the logger —
// the resources a simulation run needs before any process tree exists.
func InitCore(cfg Config, defs map[string]*ProcessDef) *Context {
	ctx := NewContext(cfg, nil)
	ctx.Instantiator = NewInstantiator(defs)
	return ctx
}

// PrepareExec creates the top-level process state named "/" from
// rootDef and attaches it to ctx, per spec §6's prepare_exec.
func PrepareExec(ctx *Context, rootDef string) error {
	def, ok := ctx.Instantiator.Defs[rootDef]
	if !ok {
		return &SimError{Kind: ErrInstantiation, Object: rootDef, Msg: "main process definition not found"}
	}
	root := NewProcessState("/", nil, rootDef, def.VarCount)
	if ctx.Config.Strict {
		root.StrictTable = newStrictTable()
	}
	ctx.Root = root
	rootCS := NewControlState(root, nil)
	rootCS.Stmt = def.Body
	rootCS.Flags |= AFAtomic
	ctx.rootCS = rootCS
	return nil
}

// InteractInstantiate runs the instantiation phase: the root's meta
// body executes with EXEC_instantiation semantics, building the static
// process graph (spec §4.H).
func InteractInstantiate(ctx *Context) error {
	ctx.Instantiating = true
	defer func() { ctx.Instantiating = false }()

	ctx.Scheduler.Schedule(&ctx.rootCS.Action)
	err := ctx.Scheduler.Run(ctx, func(ctx *Context, act *Action) (DispatchResult, error) {
		return dispatchAction(ctx, act)
	})
	if err != nil {
		return err
	}
	return VerifyPorts(ctx, ctx.Root)
}

// PrepareChp folds the meta-produced chp/hse/prs bodies into runnable
// form: in this implementation those bodies were already queued onto
// the scheduler's waiting list by execInstance during instantiation
// (spec §4.H, "queued on the waiting list; the scheduler promotes them
// once the meta phase drains"), so prepare_chp is a no-op hook kept for
// symmetry with the external API surface.
func PrepareChp(ctx *Context) error { return nil }

// InteractChp runs the execution phase to completion or deadlock (spec
// §4.C/§6's interact_chp).
func InteractChp(ctx *Context) error {
	return ctx.Scheduler.Run(ctx, dispatchAction)
}

// TermExec releases the context's resources. The scheduler and process
// tree are garbage once ctx is dropped; this exists to close the trace
// channel deterministically for any consumer still draining it.
func TermExec(ctx *Context) {
	close(ctx.traceCh)
}

// dispatchAction implements scheduler step 4 (spec §4.C): dispatch by
// action kind.
func dispatchAction(ctx *Context, act *Action) (DispatchResult, error) {
	act.Crit = nil
	switch act.Kind {
	case ActionPR:
		if !act.PRUp && !act.PRDn {
			return DispatchDone, nil
		}
		return DispatchDone, WriteWire(ctx, act.Target.Wire, act.PRUp)
	case ActionCounterRule:
		return DispatchDone, UpdateCounter(ctx, act.Target.Ctr, act.Dir)
	case ActionDelayResume:
		return ExecStmt(ctx, act.CS)
	default:
		return ExecStmt(ctx, act.CS)
	}
}
