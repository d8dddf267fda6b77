package sim

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ExprFlag is the wire-expression node flag set of spec §4.B.
type ExprFlag uint16

const (
	EFValue ExprFlag = 1 << iota
	EFUndefined
	EFXor
	EFValDir // set => AND, clear => OR
	EFPullUp
	EFPullDown
	EFSuspended
	EFHoldUp
	EFHoldDown
	EFXferUp
	EFXferDown
	EFValueClear
	EFTrigger
	EFListForm
	EFAction
)

// WireExpr is a node in the fan-out DAG described in spec §4.B:
// refcnt counts parents, valcnt counts children currently satisfying
// the node's truth condition, undefcnt counts undefined children.
type WireExpr struct {
	Flags    ExprFlag
	refcnt   int
	valcnt   int
	undefcnt int
	children int

	parents []*WireExpr
	kids    []*WireExpr

	// action is populated on leaf nodes that drive a PR, a suspended
	// thread wakeup, or a hold (EFAction set).
	action *Action
	// xferWire backs EFXferUp/EFXferDown/EFValueClear leaves that
	// reference a wire directly rather than another expression.
	xferWire *Wire
}

func (e *WireExpr) isAnd() bool  { return e.Flags&EFValDir != 0 }
func (e *WireExpr) isXor() bool  { return e.Flags&EFXor != 0 }
func (e *WireExpr) value() bool  { return e.Flags&EFValue != 0 }
func (e *WireExpr) undef() bool  { return e.Flags&EFUndefined != 0 }
func (e *WireExpr) setValue(v bool) {
	if v {
		e.Flags |= EFValue
	} else {
		e.Flags &^= EFValue
	}
}
func (e *WireExpr) setUndef(v bool) {
	if v {
		e.Flags |= EFUndefined
	} else {
		e.Flags &^= EFUndefined
	}
}

// propagate applies one child transition to e and recurses to e's
// parents, accumulating leaf actions into checks. oldDefined/oldVal
// describe the child's previous state and newDefined/newVal the new
// one; a wire write always arrives defined, while a node passes its
// own (possibly still undefined) state on to its parents.
func (e *WireExpr) propagate(oldDefined, oldVal, newDefined, newVal bool, checks *[]checkItem) {
	prevVal, prevUndef := e.value(), e.undef()

	switch {
	case e.isXor():
		if oldDefined != newDefined || oldVal != newVal {
			e.setValue(!e.value())
		}
	case e.Flags&EFTrigger != 0:
		if newDefined && newVal && !(oldDefined && oldVal) {
			e.valcnt--
			if e.valcnt <= 0 {
				e.valcnt = e.children
				e.setValue(true)
			}
		}
	default:
		e.applyCounts(oldDefined, oldVal, newDefined, newVal)
	}

	if e.Flags&EFAction != 0 {
		*checks = append(*checks, checkItem{expr: e})
		return
	}

	newVal2, newUndef2 := e.value(), e.undef()
	if prevVal == newVal2 && prevUndef == newUndef2 {
		return
	}
	for _, p := range e.parents {
		p.propagate(!prevUndef, prevVal, !newUndef2, newVal2, checks)
	}
}

// applyCounts updates valcnt/undefcnt for AND/OR nodes and recomputes
// the node's own value/undefined flags from the crossing rule in
// spec §4.B.
func (e *WireExpr) applyCounts(oldDefined, oldVal, newDefined, newVal bool) {
	if !oldDefined {
		e.undefcnt--
	} else if oldVal {
		e.valcnt--
	}
	if !newDefined {
		e.undefcnt++
	} else if newVal {
		e.valcnt++
	}

	if e.isAnd() {
		definitelyFalse := e.children-e.valcnt-e.undefcnt > 0
		switch {
		case definitelyFalse:
			e.setUndef(false)
			e.setValue(false)
		case e.undefcnt > 0:
			e.setUndef(true)
		default:
			e.setUndef(false)
			e.setValue(e.valcnt >= e.children)
		}
		return
	}

	// OR: any true child already settles the node true, regardless of
	// how many siblings remain undefined.
	switch {
	case e.valcnt > 0:
		e.setUndef(false)
		e.setValue(true)
	case e.undefcnt > 0:
		e.setUndef(true)
	default:
		e.setUndef(false)
		e.setValue(false)
	}
}

// nextDirections derives a PR leaf's pending (up, down) firing bits
// from its pull-up/pull-down sub-expression values, per the "next"
// half of the two-phase commit (spec §4.B).
func (e *WireExpr) nextDirections() (up, down bool) {
	if e.Flags&EFPullUp != 0 && e.value() && !e.undef() {
		up = true
	}
	if e.Flags&EFPullDown != 0 && e.value() && !e.undef() {
		down = true
	}
	return
}

// CritNode is the optional causal-chain breadcrumb of the supplemented
// critical-path feature (SPEC_FULL.md §D): every PR transition records
// a parent pointer to the wire change that triggered it.
type CritNode struct {
	Parent *CritNode
	Wire   string
	Delay  int
}

func newCritNode(parent *CritNode, wire string) *CritNode {
	return &CritNode{Parent: parent, Wire: wire}
}

// Chain walks a CritNode back to its root, returning the wire names in
// causal order, oldest first.
func (c *CritNode) Chain() []string {
	var out []string
	for n := c; n != nil; n = n.Parent {
		out = append([]string{n.Wire}, out...)
	}
	return out
}

// exprBuilder compiles boolean expressions over wires into shared
// wire-expression nodes: per spec §4.B, "nodes are shared when flags
// match (same gate, same direction), enabling DAG fan-in". The cache is
// keyed by (gate, direction, sorted child identities).
type exprBuilder struct {
	cache *lru.Cache[string, *WireExpr]
}

// newExprBuilder backs the DAG fan-in cache with an LRU so long-running
// instantiation passes over large gate networks don't grow it
// unboundedly; size is generous since nodes are small and reused often.
func newExprBuilder(size int) *exprBuilder {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, *WireExpr](size)
	return &exprBuilder{cache: c}
}

func gateKey(gate string, dir bool, kids []*WireExpr) string {
	ids := make([]string, len(kids))
	for i, k := range kids {
		ids[i] = fmt.Sprintf("%p", k)
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s:%v:%v", gate, dir, ids)
}

func (b *exprBuilder) gate(gate string, flag ExprFlag, kids []*WireExpr) *WireExpr {
	key := gateKey(gate, flag&EFValDir != 0, kids)
	if n, ok := b.cache.Get(key); ok {
		n.refcnt++
		return n
	}
	n := &WireExpr{Flags: flag, children: len(kids), kids: kids}
	for _, k := range kids {
		k.parents = append(k.parents, n)
		if k.undef() {
			n.undefcnt++
		} else if k.value() {
			n.valcnt++
		}
	}
	if n.undefcnt > 0 {
		n.setUndef(true)
	} else if n.isAnd() {
		n.setValue(n.valcnt >= n.children)
	} else {
		n.setValue(n.valcnt > 0)
	}
	n.refcnt = 1
	b.cache.Add(key, n)
	return n
}

// And/Or/Xor/Not compile the corresponding boolean connective over a
// set of child wire-expressions, unrolling replicated operators by
// simply accepting a pre-expanded child slice.
func (b *exprBuilder) And(kids []*WireExpr) *WireExpr { return b.gate("and", EFValDir, kids) }
func (b *exprBuilder) Or(kids []*WireExpr) *WireExpr  { return b.gate("or", 0, kids) }
func (b *exprBuilder) Xor(kids []*WireExpr) *WireExpr {
	return b.gate("xor", EFXor, kids)
}

// Leaf wraps a wire as a one-child wire-expression node, attaching
// itself to the wire's dependency list.
func (b *exprBuilder) Leaf(w *Wire) *WireExpr {
	n := &WireExpr{Flags: EFValDir, children: 1, refcnt: 1}
	v, def := w.Value()
	switch {
	case !def:
		n.undefcnt = 1
		n.setUndef(true)
	case v:
		n.valcnt = 1
		n.setValue(true)
	}
	w.Deps = append(w.Deps, n)
	return n
}
