package sim

import "math/big"

// MachineBits is the width of the inline int64 representation before a
// value must promote to BigInt, per spec §4.A ("promote whenever an
// operation would overflow or sign-underflow").
const MachineBits = 63

// MaxExpBits bounds the admissible result size of int_exp before it is
// rejected with <ExpTooLarge>, mirroring the original's refusal to grow
// an arbitrary-precision result without limit for small bases raised to
// huge exponents.
const MaxExpBits = 1 << 20

// BigInt is the reference-counted big-integer payload referenced from
// RepBig values.
type BigInt struct {
	refcnt int
	V      *big.Int
}

func newBig(v *big.Int) *BigInt { return &BigInt{refcnt: 1, V: v} }

func (b *BigInt) clone() *BigInt {
	if b == nil {
		return nil
	}
	return newBig(new(big.Int).Set(b.V))
}

// asBig returns the arbitrary-precision view of a numeric Value without
// mutating it.
func asBig(v Value) *big.Int {
	if v.Rep == RepBig {
		return v.Big.V
	}
	return big.NewInt(v.I)
}

// simplify collapses a big-int result back to machine form when it fits
// in MachineBits, per int_simplify.
func simplify(z *big.Int) Value {
	if z.IsInt64() {
		i := z.Int64()
		if i <= 1<<MachineBits-1 && i >= -(1<<MachineBits) {
			return Int(i)
		}
	}
	return Value{Rep: RepBig, Big: newBig(z)}
}

// IntAdd implements int_add: mixed machine/big-int operands, silent
// promotion on overflow, simplify on the way back.
func IntAdd(a, b Value) (Value, error) {
	if !isNumeric(a.Rep) || !isNumeric(b.Rep) {
		return Value{}, &SimError{Kind: ErrRuntimeRange, Msg: "int_add on non-numeric operand"}
	}
	if a.Rep == RepInt && b.Rep == RepInt {
		sum := a.I + b.I
		if (sum > a.I) == (b.I > 0) || b.I == 0 {
			return Int(sum), nil
		}
	}
	return simplify(new(big.Int).Add(asBig(a), asBig(b))), nil
}

func IntSub(a, b Value) (Value, error) {
	if !isNumeric(a.Rep) || !isNumeric(b.Rep) {
		return Value{}, &SimError{Kind: ErrRuntimeRange, Msg: "int_sub on non-numeric operand"}
	}
	if a.Rep == RepInt && b.Rep == RepInt {
		diff := a.I - b.I
		if (diff < a.I) == (b.I > 0) || b.I == 0 {
			return Int(diff), nil
		}
	}
	return simplify(new(big.Int).Sub(asBig(a), asBig(b))), nil
}

func IntMul(a, b Value) (Value, error) {
	if !isNumeric(a.Rep) || !isNumeric(b.Rep) {
		return Value{}, &SimError{Kind: ErrRuntimeRange, Msg: "int_mul on non-numeric operand"}
	}
	if a.Rep == RepInt && b.Rep == RepInt {
		if a.I == 0 || b.I == 0 {
			return Int(0), nil
		}
		p := a.I * b.I
		if p/b.I == a.I {
			return Int(p), nil
		}
	}
	return simplify(new(big.Int).Mul(asBig(a), asBig(b))), nil
}

// IntDivMod implements int_divmod. floor selects between floor-division
// `mod` and truncating `%`, per spec §4.A. Division by zero is always
// fatal with <DivZero>.
func IntDivMod(a, b Value, floor bool) (quot, rem Value, err error) {
	if !isNumeric(a.Rep) || !isNumeric(b.Rep) {
		return Value{}, Value{}, &SimError{Kind: ErrRuntimeArith, Msg: "int_divmod on non-numeric operand"}
	}
	bb := asBig(b)
	if bb.Sign() == 0 {
		return Value{}, Value{}, &SimError{Kind: ErrRuntimeArith, Sub: "DivZero", Msg: "division by zero"}
	}
	ab := asBig(a)
	q, r := new(big.Int), new(big.Int)
	if floor {
		q.DivMod(ab, bb, r)
		if r.Sign() != 0 && (r.Sign() < 0) != (bb.Sign() < 0) {
			// big.Int.DivMod already yields a Euclidean (non-negative)
			// remainder; adjust quotient/remainder to floor convention
			// when divisor is negative.
			q.Sub(q, big.NewInt(1))
			r.Add(r, bb)
		}
	} else {
		q.QuoRem(ab, bb, r)
	}
	return simplify(q), simplify(r), nil
}

// IntExp implements int_exp: negative exponents fail with <BadExp>;
// results whose bit length would exceed MaxExpBits fail with
// <ExpTooLarge> rather than growing unbounded.
func IntExp(base, exp Value) (Value, error) {
	if !isNumeric(base.Rep) || !isNumeric(exp.Rep) {
		return Value{}, &SimError{Kind: ErrRuntimeArith, Msg: "int_exp on non-numeric operand"}
	}
	eb := asBig(exp)
	if eb.Sign() < 0 {
		return Value{}, &SimError{Kind: ErrRuntimeArith, Sub: "BadExp", Msg: "negative exponent"}
	}
	bb := asBig(base)
	if bb.CmpAbs(big.NewInt(1)) > 0 && eb.IsInt64() {
		estBits := bb.BitLen() * int(eb.Int64())
		if estBits > MaxExpBits {
			return Value{}, &SimError{Kind: ErrRuntimeArith, Sub: "ExpTooLarge", Msg: "exponent too large for base"}
		}
	}
	return simplify(new(big.Int).Exp(bb, eb, nil)), nil
}

func intBitwise(a, b Value, f func(z, x, y *big.Int) *big.Int) (Value, error) {
	if !isNumeric(a.Rep) || !isNumeric(b.Rep) {
		return Value{}, &SimError{Kind: ErrRuntimeArith, Msg: "bitwise op on non-numeric operand"}
	}
	return simplify(f(new(big.Int), asBig(a), asBig(b))), nil
}

func IntAnd(a, b Value) (Value, error) { return intBitwise(a, b, (*big.Int).And) }
func IntOr(a, b Value) (Value, error)  { return intBitwise(a, b, (*big.Int).Or) }
func IntXor(a, b Value) (Value, error) { return intBitwise(a, b, (*big.Int).Xor) }

// IntCmp is a total, representation-independent order over numeric
// Values, per int_cmp.
func IntCmp(a, b Value) (int, error) {
	if !isNumeric(a.Rep) || !isNumeric(b.Rep) {
		return 0, &SimError{Kind: ErrRuntimeRange, Msg: "int_cmp on non-numeric operand"}
	}
	if a.Rep == RepInt && b.Rep == RepInt {
		switch {
		case a.I < b.I:
			return -1, nil
		case a.I > b.I:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return asBig(a).Cmp(asBig(b)), nil
}

// IntLog2 is ⌈log₂(x+1)⌉, used for bit-slice sizing (spec §4.A).
func IntLog2(v Value) (int, error) {
	if !isNumeric(v.Rep) {
		return 0, &SimError{Kind: ErrRuntimeRange, Msg: "int_log2 on non-numeric operand"}
	}
	x := asBig(v)
	if x.Sign() <= 0 {
		return 0, nil
	}
	// ceil(log2(x+1)) == BitLen(x) for x >= 1: the number of bits
	// needed to represent every value in [0, x].
	return x.BitLen(), nil
}
