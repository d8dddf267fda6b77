package sim

// ThreadCount sentinels for ProcessState.NrThread (spec §3).
const (
	NrThreadInstantiatedNotStarted = -1
	NrThreadTerminated             = -2
)

// ProcessState is a node in the instance tree (spec §3). Its variable
// array is shared by every ControlState nested inside it; only a new
// scope (parallel branch, procedure call, replication) allocates a new
// ControlState.
type ProcessState struct {
	Name     string // fully qualified path, e.g. "/a/b/c"
	Parent   *ProcessState
	Children []*ProcessState

	Def    string // process_def identifier this instance was built from
	Meta   []Value
	Var    []Value
	refcnt int

	// NrThread is >=0 for live thread count, or one of the sentinels
	// above.
	NrThread int
	NrSusp   int

	// StrictTable backs the interference checker (spec §4.I) when
	// strict mode is enabled for this process; nil otherwise.
	StrictTable *strictTable
}

// NewProcessState allocates a fresh instance with varCount variable
// slots (indices assigned ahead of time by semantic analysis, per spec
// §4.D); refcount starts at 1 for the self-reference.
func NewProcessState(name string, parent *ProcessState, def string, varCount int) *ProcessState {
	return &ProcessState{
		Name:     name,
		Parent:   parent,
		Def:      def,
		Var:      make([]Value, varCount),
		refcnt:   1,
		NrThread: NrThreadInstantiatedNotStarted,
	}
}

func (ps *ProcessState) Ref() *ProcessState {
	ps.refcnt++
	return ps
}

// Release drops one reference; when it was the last and the process
// has terminated, its variable slots are cleared and it is detached
// from its parent's children list (spec §3 lifecycle rule).
func (ps *ProcessState) Release() {
	ps.refcnt--
	if ps.refcnt > 0 || ps.NrThread != NrThreadTerminated {
		return
	}
	for i := range ps.Var {
		Clear(&ps.Var[i])
	}
	if ps.Parent != nil {
		siblings := ps.Parent.Children
		for i, c := range siblings {
			if c == ps {
				ps.Parent.Children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
}

// IsAncestorPath reports whether candidate is prefix itself or a
// transitive child of it by path-component comparison, per invariant 5 ("a process
// named /a/b/c is a transitive child of the node named /a").
func IsAncestorPath(prefix, candidate string) bool {
	if prefix == "/" {
		return true
	}
	if len(candidate) <= len(prefix) {
		return candidate == prefix
	}
	return candidate[:len(prefix)] == prefix && candidate[len(prefix)] == '/'
}
