package sim

// Port is the value variant of spec §3: a probe wire, a peer link, a
// data slot, the owning process, and (for decomposed unions) a
// decomposition field and an alternative-value slot.
type Port struct {
	Name   string
	Probe  *Wire
	Peer   *Port
	Data   Value
	Owner  *ProcessState
	Ty     *TypeInfo

	// DecompField/Alt back a port that was forwarded to a pending
	// union decomposition rather than connected directly (spec §3).
	DecompField string
	Alt         *Value
}

// commPhase is the local `i` state tracked in the control state during
// a handshake, per spec §4.G.
type commPhase int

const (
	phaseStart commPhase = iota
	phaseWaitAck
	phaseDone
)

// execComm dispatches the four-phase handshake for the communication
// kind in st, driving cs.I as the phase counter.
func execComm(ctx *Context, cs *ControlState, st StmtComm) (DispatchResult, error) {
	switch st.Kind {
	case CommSend:
		return execSend(ctx, cs, st)
	case CommReceive:
		return execReceive(ctx, cs, st, false)
	case CommPeek:
		return execReceive(ctx, cs, st, true)
	case CommPass:
		return execPass(ctx, cs, st)
	default:
		return DispatchDone, &SimError{Kind: ErrChannel, Msg: "unknown communication kind"}
	}
}

func requirePeer(p *Port) error {
	if p == nil || p.Peer == nil {
		return &SimError{Kind: ErrChannel, Msg: "communication on disconnected port"}
	}
	return nil
}

// execSend implements `P!e`: 0: wait !pp.probe -> set p.probe, send
// data -> 1: wait p.probe -> clear p.probe and pp.probe -> done.
func execSend(ctx *Context, cs *ControlState, st StmtComm) (DispatchResult, error) {
	if err := requirePeer(st.Port); err != nil {
		return DispatchDone, err
	}
	peer := st.Port.Peer

	switch commPhase(cs.I) {
	case phaseStart:
		if val, _ := peer.Probe.Value(); val {
			cs.addDep(ctx, peer.Probe)
			return DispatchSuspend, nil
		}
		v, err := EvalExpr(ctx, cs, st.Expr)
		if err != nil {
			return DispatchDone, err
		}
		if st.Port.Ty != nil {
			if err := rangeCheck(v, st.Port.Ty); err != nil {
				return DispatchDone, err
			}
		}
		Clear(&peer.Data)
		peer.Data = Copy(v)
		if err := WriteWire(ctx, st.Port.Probe, true); err != nil {
			return DispatchDone, err
		}
		cs.I = int(phaseWaitAck)
		return DispatchNext, nil

	case phaseWaitAck:
		if val, _ := st.Port.Probe.Value(); !val {
			cs.addDep(ctx, st.Port.Probe)
			return DispatchSuspend, nil
		}
		if err := WriteWire(ctx, st.Port.Probe, false); err != nil {
			return DispatchDone, err
		}
		if err := WriteWire(ctx, peer.Probe, false); err != nil {
			return DispatchDone, err
		}
		cs.I = int(phaseStart)
		return advance(ctx, cs)
	}
	return DispatchDone, nil
}

// execReceive implements `P?x` (peek=false) / `P?!x` (peek=true):
// symmetric to send, reading from the stored data slot.
func execReceive(ctx *Context, cs *ControlState, st StmtComm, peek bool) (DispatchResult, error) {
	if err := requirePeer(st.Port); err != nil {
		return DispatchDone, err
	}
	peer := st.Port.Peer

	switch commPhase(cs.I) {
	case phaseStart:
		val, defined := st.Port.Probe.Value()
		if !defined || !val {
			cs.addDep(ctx, st.Port.Probe)
			return DispatchSuspend, nil
		}
		dest, ty, err := RevalExpr(ctx, cs, st.Expr)
		if err != nil {
			return DispatchDone, err
		}
		received, err := decomposeReceived(st.Port.Data, ty)
		if err != nil {
			return DispatchDone, err
		}
		if ty != nil {
			if err := rangeCheck(received, ty); err != nil {
				return DispatchDone, err
			}
		}
		Clear(dest)
		*dest = Copy(received)
		if !peek {
			Clear(&st.Port.Data)
		}
		if !peek {
			if err := WriteWire(ctx, st.Port.Probe, false); err != nil {
				return DispatchDone, err
			}
		}
		if err := WriteWire(ctx, peer.Probe, true); err != nil {
			return DispatchDone, err
		}
		cs.I = int(phaseWaitAck)
		return DispatchNext, nil

	case phaseWaitAck:
		if peek {
			cs.I = int(phaseStart)
			return advance(ctx, cs)
		}
		if val, _ := peer.Probe.Value(); val {
			cs.addDep(ctx, peer.Probe)
			return DispatchSuspend, nil
		}
		cs.I = int(phaseStart)
		return advance(ctx, cs)
	}
	return DispatchDone, nil
}

// execPass implements `P!e?`: a four-state composition acting as a
// concurrent send+receive proxy between two ports.
func execPass(ctx *Context, cs *ControlState, st StmtComm) (DispatchResult, error) {
	if err := requirePeer(st.Port); err != nil {
		return DispatchDone, err
	}
	proxy, err := EvalExpr(ctx, cs, st.Lvl)
	if err != nil {
		return DispatchDone, err
	}
	if proxy.Port == nil || proxy.Port.Peer == nil {
		return DispatchDone, &SimError{Kind: ErrChannel, Msg: "pass on disconnected proxy port"}
	}
	switch commPhase(cs.I) {
	case phaseStart:
		// Fold the received value directly into the send slot without
		// an intermediate variable, per the four-state composition.
		if val, _ := proxy.Port.Probe.Value(); !val {
			cs.addDep(ctx, proxy.Port.Probe)
			return DispatchSuspend, nil
		}
		peer := st.Port.Peer
		Clear(&peer.Data)
		peer.Data = Copy(proxy.Port.Data)
		Clear(&proxy.Port.Data)
		if err := WriteWire(ctx, proxy.Port.Probe, false); err != nil {
			return DispatchDone, err
		}
		if err := WriteWire(ctx, proxy.Port.Peer.Probe, true); err != nil {
			return DispatchDone, err
		}
		if err := WriteWire(ctx, st.Port.Probe, true); err != nil {
			return DispatchDone, err
		}
		cs.I = int(phaseWaitAck)
		return DispatchNext, nil
	case phaseWaitAck:
		if val, _ := st.Port.Probe.Value(); !val {
			cs.addDep(ctx, st.Port.Probe)
			return DispatchSuspend, nil
		}
		peer := st.Port.Peer
		if err := WriteWire(ctx, st.Port.Probe, false); err != nil {
			return DispatchDone, err
		}
		if err := WriteWire(ctx, peer.Probe, false); err != nil {
			return DispatchDone, err
		}
		cs.I = int(phaseStart)
		return advance(ctx, cs)
	}
	return DispatchDone, nil
}

// decomposeReceived implements the integer bit-decomposition rule of
// spec §4.G: when the destination type is a bounded integer, the lower
// bound anchors sign-extension and the received bits reconstruct the
// value modulo the width.
func decomposeReceived(data Value, ty *TypeInfo) (Value, error) {
	if ty == nil || ty.Kind != TypeInt || data.Rep != RepInt {
		return data, nil
	}
	width := 64
	if ty.Hi > ty.Lo {
		if w, err := IntLog2(Int(ty.Hi - ty.Lo)); err == nil && w > 0 && w < 64 {
			width = w
		}
	}
	mask := int64(1)<<uint(width) - 1
	raw := data.I & mask
	return Int(ty.Lo + raw), nil
}
