package sim

import (
	"container/heap"
	"math/big"
	"math/rand"

	"golang.org/x/exp/slices"
)

// SchedulerMode selects timed vs randomised dequeue ordering, fixed for
// the lifetime of a run (spec §3 invariant 1), grounded on the
// teacher's Region/RegionTiming split between two fixed timing models.
type SchedulerMode int

const (
	ModeTimed SchedulerMode = iota
	ModeRandomised
)

func (m SchedulerMode) String() string {
	if m == ModeRandomised {
		return "randomised"
	}
	return "timed"
}

// randSource is the process-wide PRNG of spec §5, a seeded math/rand
// source.
type randSource struct {
	r *rand.Rand
}

func newRandSource(seed int64) *randSource {
	return &randSource{r: rand.New(rand.NewSource(seed))}
}

// Draw returns a uniform value in [0,n) from the source's 63-bit
// Int63n; n <= 0 yields 0.
func (rs *randSource) Draw(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return rs.r.Int63n(n)
}

func (rs *randSource) priority31() int32 { return rs.r.Int31() }

// actionQueue is a container/heap.Interface over pending actions,
// ordered per spec §4.C: timed mode by (Time, seq); randomised mode by
// a drawn priority with atomic actions always first.
type actionQueue struct {
	mode  SchedulerMode
	items []*Action
	prio  map[*Action]int32
}

func (q *actionQueue) Len() int { return len(q.items) }

func (q *actionQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if q.mode == ModeRandomised {
		pa, pb := q.priorityOf(a), q.priorityOf(b)
		if a.atomic() != b.atomic() {
			return a.atomic()
		}
		return pa < pb
	}
	c := a.Time.Cmp(b.Time)
	if c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func (q *actionQueue) priorityOf(a *Action) int32 {
	if a.atomic() {
		return -1 << 31
	}
	return q.prio[a]
}

func (q *actionQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *actionQueue) Push(x any) { q.items = append(q.items, x.(*Action)) }

func (q *actionQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	delete(q.prio, item)
	return item
}

// waitingEntry is one pending instantiation-phase entry promoted once
// the scheduler's action queue drains (spec §4.C step 1).
type waitingEntry struct {
	cs *ControlState
}

// Scheduler implements the priority-queued event loop of spec §4.C.
type Scheduler struct {
	mode    SchedulerMode
	queue   *actionQueue
	seq     int64
	Now     *big.Int
	waiting []waitingEntry

	rand *randSource
}

func NewScheduler(timed bool) *Scheduler {
	mode := ModeTimed
	if !timed {
		mode = ModeRandomised
	}
	return &Scheduler{
		mode:  mode,
		queue: &actionQueue{mode: mode, prio: map[*Action]int32{}},
		Now:   big.NewInt(0),
		rand:  newRandSource(0),
	}
}

// Schedule enqueues act. An action with no Time yet is stamped per spec
// §4.C: atomic actions get the current time, normal actions the next
// odd time. An action that already carries a Time keeps it. Actions
// carry no delay, so no 2*delay offset is ever added.
func (s *Scheduler) Schedule(act *Action) {
	if act.Time == nil {
		act.Time = new(big.Int).Set(s.Now)
		if !act.atomic() {
			act.Time.Add(act.Time, big.NewInt(1))
			act.Time.Or(act.Time, big.NewInt(1))
		}
	}
	act.seq = s.seq
	s.seq++
	if s.mode == ModeRandomised {
		s.queue.prio[act] = s.rand.priority31()
	}
	heap.Push(s.queue, act)
}

// Resume re-enters a suspended control state: its dependencies are
// already clear (caller's responsibility), so it is simply rescheduled
// as a delay-resume action.
func (s *Scheduler) Resume(cs *ControlState) {
	cs.Flags &^= AFSuspended
	cs.Kind = ActionDelayResume
	s.Schedule(&cs.Action)
}

// QueueWaiting appends an instantiation-phase entry that will be
// promoted once the action queue drains (spec §4.C step 1).
func (s *Scheduler) QueueWaiting(cs *ControlState) {
	s.waiting = append(s.waiting, waitingEntry{cs: cs})
}

// Run drives the five-step scheduler loop of spec §4.C until the queue
// and waiting list both drain. dispatch performs step 4 (the per-kind
// action dispatch) and reports whether the control state should be
// rescheduled, left pending, or suspended.
func (s *Scheduler) Run(ctx *Context, dispatch func(ctx *Context, act *Action) (DispatchResult, error)) error {
	for {
		if s.queue.Len() == 0 {
			if len(s.waiting) == 0 {
				return s.checkDeadlock(ctx)
			}
			next := s.waiting[0]
			s.waiting = s.waiting[1:]
			s.Schedule(&next.cs.Action)
			continue
		}

		act := heap.Pop(s.queue).(*Action)

		if s.mode == ModeTimed && act.Time.Cmp(s.Now) > 0 {
			s.Now.Set(act.Time)
		}

		if act.suspended() {
			act.CS.releaseDeps(ctx)
		}

		result, err := dispatch(ctx, act)
		if err != nil {
			if se, ok := AsSimError(err); ok {
				err = se.WithTime(s.Now.String())
			}
			ctx.Err = err
			return err
		}
		switch result {
		case DispatchNext:
			s.Schedule(act)
		case DispatchSuspend:
			// dispatch already registered dependencies; do not reinsert.
		case DispatchDone:
		}
	}
}

// DispatchResult is step 5's outcome: schedule the successor, leave
// nested work pending, or subscribe to dependencies without
// reinserting.
type DispatchResult int

const (
	DispatchDone DispatchResult = iota
	DispatchNext
	DispatchSuspend
)

// checkDeadlock implements the drain-time liveness check of spec §4.C:
// if any thread is suspended, report <Deadlock> identifying one thread,
// using the deadlock-cycle walk when a cycle is present (SPEC_FULL.md
// §D supplemented feature).
func (s *Scheduler) checkDeadlock(ctx *Context) error {
	susp := ctx.suspendedThreads()
	if len(susp) == 0 {
		return nil
	}
	if cycle := FindDeadlockCycle(susp); len(cycle) > 0 {
		names := make([]string, len(cycle))
		for i, cs := range cycle {
			names[i] = cs.PS.Name
		}
		return &SimError{Kind: ErrDeadlock, Object: names[0], Msg: "deadlock cycle: " + joinNames(names)}
	}
	return &SimError{Kind: ErrDeadlock, Object: susp[0].PS.Name, Msg: "thread permanently suspended"}
}

// suspendedThreads returns every control state currently blocked on a
// wire dependency, sorted by owning process name for a deterministic
// deadlock report regardless of map iteration order.
func (ctx *Context) suspendedThreads() []*ControlState {
	out := make([]*ControlState, 0, len(ctx.suspended))
	for cs := range ctx.suspended {
		out = append(out, cs)
	}
	slices.SortFunc(out, func(a, b *ControlState) int {
		return compareNames(a.PS.Name, b.PS.Name)
	})
	return out
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}

// FindDeadlockCycle walks the dependency graph from each permanently
// suspended control state looking for a cycle of mutually blocking
// threads, per SPEC_FULL.md §D (original_source's interact.c
// find_dl_cycle): a suspended thread depends on the writer-frame of
// every wire in its Dep list, so a cycle exists when following
// writer-frames returns to a thread already on the path.
func FindDeadlockCycle(susp []*ControlState) []*ControlState {
	for _, start := range susp {
		path := []*ControlState{start}
		onPath := map[*ControlState]bool{start: true}
		cur := start
		for {
			next := blockingWriter(cur)
			if next == nil || !contains(susp, next) {
				break
			}
			if onPath[next] {
				cycle := cutCycle(path, next)
				slices.SortFunc(cycle, func(a, b *ControlState) int {
					return compareNames(a.PS.Name, b.PS.Name)
				})
				return cycle
			}
			path = append(path, next)
			onPath[next] = true
			cur = next
		}
	}
	return nil
}

func blockingWriter(cs *ControlState) *ControlState {
	for _, w := range cs.Dep {
		if w.WFrame != nil && w.WFrame != cs {
			return w.WFrame
		}
	}
	return nil
}

func contains(list []*ControlState, cs *ControlState) bool {
	for _, c := range list {
		if c == cs {
			return true
		}
	}
	return false
}

func cutCycle(path []*ControlState, start *ControlState) []*ControlState {
	for i, cs := range path {
		if cs == start {
			return path[i:]
		}
	}
	return path
}

func compareNames(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
