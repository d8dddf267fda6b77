package sim

// TraceEventKind distinguishes the instrumentation events a consuming
// debugger/UI can subscribe to via Context.Traces (SPEC_FULL.md §A.1).
type TraceEventKind int

const (
	TraceWireChange TraceEventKind = iota
	TraceStatement
	TraceDeadlock
	TraceError
)

func (k TraceEventKind) String() string {
	switch k {
	case TraceWireChange:
		return "wire"
	case TraceStatement:
		return "stmt"
	case TraceDeadlock:
		return "deadlock"
	case TraceError:
		return "error"
	default:
		return "unknown"
	}
}

// TraceEvent is one entry in the structured trace stream: wire watch
// transitions, per-statement breakpoints, and deadlock/error reports
// all flow through the same shape so a consumer doesn't need to scrape
// log text (SPEC_FULL.md §A.1).
type TraceEvent struct {
	Kind  TraceEventKind
	Wire  string
	Value bool
	Proc  string
	Time  string
	Msg   string
}
