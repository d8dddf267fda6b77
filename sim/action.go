package sim

import "math/big"

// ActionKind distinguishes the three heterogeneous activity classes the
// scheduler interleaves (spec §1): statement threads, PR transitions,
// and counter rules.
type ActionKind int

const (
	ActionStatement ActionKind = iota
	ActionPR
	ActionCounterRule
	ActionDelayResume
)

// ActionFlags carries the per-action bits of spec §3: kind, pull
// direction, pending transition, delay discipline, atomicity.
type ActionFlags uint16

const (
	AFAtomic ActionFlags = 1 << iota
	AFSuspended
	AFDelaySusp
	AFPullUp
	AFPullDown
)

// TargetKind tags which of Wire/Counter/none an Action's Target union
// holds (spec §3: "target (wire|counter|none)").
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetWire
	TargetCounter
)

// ActionTarget is the tagged wire-or-counter-or-none union an Action
// schedules work against.
type ActionTarget struct {
	Kind TargetKind
	Wire *Wire
	Ctr  *Counter
}

// Name returns the target's display name, for error reporting.
func (t ActionTarget) Name() string {
	switch t.Kind {
	case TargetWire:
		if t.Wire != nil {
			return t.Wire.Name
		}
	case TargetCounter:
		return "<counter>"
	}
	return "<none>"
}

// Action is the scheduled unit of spec §3. PR actions carry the two
// pending-direction bit pairs (pr_up/pr_dn, up_nxt/dn_nxt) consumed by
// the two-phase stability checker in wire.go's runChecks.
type Action struct {
	Kind  ActionKind
	Time  *big.Int
	Flags ActionFlags

	Target ActionTarget
	CS     *ControlState

	Dir int // counter-rule direction: +1/-1

	PRUp, PRDn   bool
	UpNext, DnNext bool

	// Crit is the critical-path breadcrumb attached when this action
	// was scheduled as the result of a wire transition (spec §5,
	// "critical-path tracking attaches a parent pointer").
	Crit *CritNode

	// seq is the scheduler's monotonically increasing insertion
	// sequence, used to break ties FIFO in timed mode.
	seq int64
}

func (a *Action) suspended() bool { return a.Flags&AFSuspended != 0 }
func (a *Action) atomic() bool    { return a.Flags&AFAtomic != 0 }
