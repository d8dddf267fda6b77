package sim

import (
	"io"
	"log"
	"os"
)

// Config mirrors the CLI surface of spec §6.
type Config struct {
	MainProcess string
	SearchPath  []string
	Batch       bool
	Quiet       bool
	LogPath     string
	OutPath     string
	TracePath   string
	TraceAll    bool
	WatchAll    bool
	Seed        int64
	TimeSeed    bool
	Timed       bool
	Critical    bool
	NoHide      bool
	Strict      bool
	// StrictWarnings promotes warnings to errors, per SPEC_FULL.md §A.2.
	StrictWarnings bool
}

// DefaultConfig matches the CLI defaults of spec §6.
func DefaultConfig() Config {
	return Config{MainProcess: "main", Timed: true}
}

// Context is the execution context built by InitCore (spec §6's
// "init_core()") and filled in by PrepareExec. It threads the configuration, logger,
// scheduler, and error/critical-path state through every core call.
type Context struct {
	Config    Config
	Logger    *log.Logger
	Scheduler *Scheduler
	Root      *ProcessState
	rootCS    *ControlState

	// Err is the quiescent error state a fatal runtime error leaves the
	// core in, per SPEC_FULL.md §A.2.
	Err error

	// currentCrit is the most recently created critical-path node, used
	// as the parent for the next one when -critical is enabled.
	currentCrit *CritNode

	// Instantiator walks meta bodies during the instantiation phase
	// (spec §4.H); instancePorts indexes the ports declared by each
	// instantiated process by fully-qualified name for VerifyPorts.
	Instantiator  *Instantiator
	instancePorts map[string]map[string]*Port
	// Instantiating is true while the instantiation phase is running:
	// freshly instantiated chp/hse/prs bodies are queued on the
	// scheduler's waiting list rather than scheduled immediately (spec
	// §4.H: "queued on the waiting list; the scheduler promotes them
	// once the meta phase drains").
	Instantiating bool

	traceCh chan TraceEvent
	rand    *randSource

	// suspended is the live registry of every control state currently
	// blocked on a wire dependency (spec §4.C): addDep/removeDep keep it
	// current so checkDeadlock can actually find a stuck thread instead
	// of walking the (unrelated) process instance tree.
	suspended map[*ControlState]bool
}

// NewContext builds an execution context with init_core's resources:
// the scheduler, the trace stream, and a logger writing to out (or
// os.Stderr if out is nil).
func NewContext(cfg Config, out io.Writer) *Context {
	if out == nil {
		out = os.Stderr
	}
	seed := cfg.Seed
	ctx := &Context{
		Config:        cfg,
		Logger:        log.New(out, "sched: ", log.LstdFlags),
		Scheduler:     NewScheduler(cfg.Timed),
		instancePorts: map[string]map[string]*Port{},
		traceCh:       make(chan TraceEvent, 256),
		rand:          newRandSource(seed),
		suspended:     map[*ControlState]bool{},
	}
	return ctx
}

// markSuspended and clearSuspended maintain the live-suspended registry
// that backs Scheduler.checkDeadlock; nil-safe since tests sometimes
// build a ControlState without going through NewContext.
func (ctx *Context) markSuspended(cs *ControlState) {
	if ctx.suspended == nil {
		ctx.suspended = map[*ControlState]bool{}
	}
	ctx.suspended[cs] = true
}

func (ctx *Context) clearSuspended(cs *ControlState) {
	if ctx.suspended == nil {
		return
	}
	delete(ctx.suspended, cs)
}

// Warnf logs a warning and continues, unless StrictWarnings is set, in
// which case it is promoted to the context's error state (SPEC_FULL.md
// §A.2).
func (ctx *Context) Warnf(format string, args ...any) {
	ctx.Logger.Printf("warning: "+format, args...)
	if ctx.Config.StrictWarnings && ctx.Err == nil {
		ctx.Err = &SimError{Kind: ErrRuntimeRange, Msg: "warning promoted to error by -strict-warnings"}
	}
}

// Trace emits a structured trace event to the consuming debugger/UI,
// non-blocking if no one is draining the channel.
func (ctx *Context) Trace(ev TraceEvent) {
	select {
	case ctx.traceCh <- ev:
	default:
	}
}

// Traces returns the receive side of the trace-event stream.
func (ctx *Context) Traces() <-chan TraceEvent { return ctx.traceCh }
