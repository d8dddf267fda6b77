package sim

import "golang.org/x/exp/slices"

// frameID identifies the "proper frame" of spec §4.I: the nearest
// control-state whose parent is a parallel statement, or the thread
// root. Control states are compared by identity.
type frameID = *ControlState

// slotRecord is the per-memory-slot bookkeeping of spec §4.I: the last
// frame to read and the last frame to write this slot, plus whether
// either happened at all yet.
type slotRecord struct {
	readFrame  frameID
	writeFrame frameID
	hasRead    bool
	hasWrite   bool
	// subs holds per-index sub-records for array/record sub-elements
	// and integer bit-slices, descended into transparently (spec §4.I,
	// supplemented per original_source's ifrchk.c).
	subs map[int]*slotRecord
}

// strictTable is the per-process interference checker state, one
// record per variable slot (spec §4.I), active only in strict mode.
type strictTable struct {
	slots map[int]*slotRecord
}

func newStrictTable() *strictTable {
	return &strictTable{slots: map[int]*slotRecord{}}
}

func (t *strictTable) slot(idx int) *slotRecord {
	s, ok := t.slots[idx]
	if !ok {
		s = &slotRecord{}
		t.slots[idx] = s
	}
	return s
}

func (s *slotRecord) sub(i int) *slotRecord {
	if s.subs == nil {
		s.subs = map[int]*slotRecord{}
	}
	r, ok := s.subs[i]
	if !ok {
		r = &slotRecord{}
		s.subs[i] = r
	}
	return r
}

// properFrame walks up from cs to the nearest control-state whose
// parent is a parallel statement (has siblings), or the thread root.
func properFrame(cs *ControlState) frameID {
	for cs.Up != nil {
		if cs.Up.Children != nil {
			return cs
		}
		cs = cs.Up
	}
	return cs
}

// sibling reports whether a and b are distinct branches of the same
// parallel statement (neither is an ancestor of the other).
func sibling(a, b frameID) bool {
	if a == b {
		return false
	}
	for f := a.Up; f != nil; f = f.Up {
		if f == b {
			return false
		}
	}
	for f := b.Up; f != nil; f = f.Up {
		if f == a {
			return false
		}
	}
	return true
}

// checkAccess is invoked by the evaluator/executor at every read/write
// observation point (spec §4.I). write indicates whether this access is
// the write side of an assignment/communication.
func checkAccess(ctx *Context, cs *ControlState, e Expr, write bool) error {
	if !ctx.Config.Strict {
		return nil
	}
	if cs.PS.StrictTable == nil {
		cs.PS.StrictTable = newStrictTable()
	}
	path, ok := slotPath(e)
	if !ok {
		return nil
	}
	rec := cs.PS.StrictTable.slot(path.idx)
	for _, i := range path.subs {
		rec = rec.sub(i)
	}
	frame := properFrame(cs)

	if write {
		if rec.hasWrite && sibling(rec.writeFrame, frame) {
			return &SimError{Kind: ErrParallel, Sub: "ParallelConflict", Msg: "concurrent write-write on the same variable"}
		}
		if rec.hasRead && sibling(rec.readFrame, frame) {
			return &SimError{Kind: ErrParallel, Sub: "ParallelConflict", Msg: "concurrent read-write on the same variable"}
		}
		rec.writeFrame, rec.hasWrite = frame, true
	} else {
		if rec.hasWrite && sibling(rec.writeFrame, frame) {
			return &SimError{Kind: ErrParallel, Sub: "ParallelConflict", Msg: "concurrent read-write on the same variable"}
		}
		rec.readFrame, rec.hasRead = frame, true
	}
	return nil
}

// slotPathInfo names a variable slot and the chain of sub-indices an
// access descended through (array index, record field index, or
// integer bit position).
type slotPathInfo struct {
	idx  int
	subs []int
}

func slotPath(e Expr) (slotPathInfo, bool) {
	switch n := e.(type) {
	case ExprVar:
		return slotPathInfo{idx: n.Idx}, true
	case ExprIndex:
		base, ok := slotPath(n.X)
		if !ok {
			return slotPathInfo{}, false
		}
		if c, ok := n.Idx.(ExprConst); ok {
			if i, err := asIndex(c.Val); err == nil {
				base.subs = append(base.subs, int(i))
			}
		}
		return base, true
	case ExprField:
		return slotPath(n.X)
	case ExprSlice:
		return slotPath(n.X)
	default:
		return slotPathInfo{}, false
	}
}

// FoldParallelCompletion merges every child frame's recorded accesses
// back into the parent frame on parallel completion (spec §4.I).
func FoldParallelCompletion(parent *ControlState, children []*ControlState) {
	if parent.PS.StrictTable == nil {
		return
	}
	keys := make([]int, 0, len(parent.PS.StrictTable.slots))
	for k := range parent.PS.StrictTable.slots {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		rec := parent.PS.StrictTable.slots[k]
		if rec.hasRead {
			rec.readFrame = parent
		}
		if rec.hasWrite {
			rec.writeFrame = parent
		}
	}
}
