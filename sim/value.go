package sim

// Rep identifies which variant of Value is populated. It mirrors the
// REP_* tags of the language's tagged-union value representation: every
// Value carries exactly one live payload, selected by Rep.
type Rep int

const (
	RepNone Rep = iota
	RepBool
	RepInt
	RepBig
	RepSymbol
	RepArray
	RepRecord
	RepUnion
	RepPort
	RepProcess
	RepWire
	RepCounter
	RepType
)

func (r Rep) String() string {
	switch r {
	case RepNone:
		return "none"
	case RepBool:
		return "bool"
	case RepInt:
		return "int"
	case RepBig:
		return "bigint"
	case RepSymbol:
		return "symbol"
	case RepArray:
		return "array"
	case RepRecord:
		return "record"
	case RepUnion:
		return "union"
	case RepPort:
		return "port"
	case RepProcess:
		return "process"
	case RepWire:
		return "wire"
	case RepCounter:
		return "counter"
	case RepType:
		return "type"
	default:
		return "unknown"
	}
}

// Value is the tagged union described by spec §4.A. Primitive variants
// (bool, machine-int, symbol) are stored inline; aggregate and
// reference-counted variants (big-int, array, record, union, port, wire,
// counter, process, type) are carried as pointers into their own arenas.
type Value struct {
	Rep Rep

	I   int64  // RepBool, RepInt
	Sym string // RepSymbol

	Big     *BigInt
	List    *ValueList // RepArray, RepRecord
	Union   *ValueUnion
	Port    *Port
	Wire    *Wire
	Counter *Counter
	Process *ProcessState
	Type    *TypeValue
}

// ValueList backs both array and record values. Aggregates are shared
// copy-on-write: multiple Values may reference the same ValueList until a
// write forces a Copy.
type ValueList struct {
	refcnt int
	Elems  []Value
}

func newValueList(size int) (*ValueList, error) {
	if size < 0 || size > ArrayMax {
		return nil, &SimError{Kind: ErrResource, Msg: "array size exceeds implementation limit"}
	}
	return &ValueList{refcnt: 1, Elems: make([]Value, size)}, nil
}

// ValueUnion is only used for tagged unions produced by decomposition.
type ValueUnion struct {
	refcnt int
	Field  string
	Val    Value
}

// TypeValue reifies a type as a first-class value (used by meta
// processes that take a type as a parameter).
type TypeValue struct {
	refcnt int
	Name   string
	MetaPS *ProcessState
}

// ArrayMax is ARRAY_MAX from spec §4.A: the hard size bound for arrays.
const ArrayMax = 65536

// MaxCount is the counter ceiling from spec §3.
const MaxCount = 65535

// Bool/Int/Symbol construct unshared primitive values.
func Bool(b bool) Value {
	v := Value{Rep: RepBool}
	if b {
		v.I = 1
	}
	return v
}

func Int(i int64) Value { return Value{Rep: RepInt, I: i} }

func Symbol(s string) Value { return Value{Rep: RepSymbol, Sym: s} }

func (v Value) IsNone() bool { return v.Rep == RepNone }

func (v Value) Truth() bool { return v.Rep == RepBool && v.I != 0 }

// Equal implements structural equality across representations, per
// spec §4.A: numeric comparison is representation-independent, symbols
// compare by name, aggregates compare elementwise, unassigned operands
// are never equal (and the caller should have already warned).
func Equal(a, b Value) bool {
	if a.Rep == RepNone || b.Rep == RepNone {
		return false
	}
	if isNumeric(a.Rep) && isNumeric(b.Rep) {
		c, err := IntCmp(a, b)
		return err == nil && c == 0
	}
	if a.Rep != b.Rep {
		return false
	}
	switch a.Rep {
	case RepBool:
		return a.I == b.I
	case RepSymbol:
		return a.Sym == b.Sym
	case RepArray, RepRecord:
		if a.List == nil || b.List == nil {
			return a.List == b.List
		}
		if len(a.List.Elems) != len(b.List.Elems) {
			return false
		}
		for i := range a.List.Elems {
			if !Equal(a.List.Elems[i], b.List.Elems[i]) {
				return false
			}
		}
		return true
	case RepUnion:
		if a.Union == nil || b.Union == nil {
			return a.Union == b.Union
		}
		return a.Union.Field == b.Union.Field && Equal(a.Union.Val, b.Union.Val)
	case RepPort:
		return a.Port == b.Port
	case RepWire:
		return a.Wire == b.Wire
	case RepCounter:
		return a.Counter == b.Counter
	case RepProcess:
		return a.Process == b.Process
	default:
		return false
	}
}

func isNumeric(r Rep) bool { return r == RepInt || r == RepBig }

// Alias shares v's payload without duplication (the REP_* payload's
// refcnt, if any, is bumped). Used when a value is read but the reader
// will not mutate it independently of the source.
func Alias(v Value) Value {
	switch v.Rep {
	case RepBig:
		if v.Big != nil {
			v.Big.refcnt++
		}
	case RepArray, RepRecord:
		if v.List != nil {
			v.List.refcnt++
		}
	case RepUnion:
		if v.Union != nil {
			v.Union.refcnt++
		}
	case RepCounter:
		if v.Counter != nil {
			v.Counter.refcnt++
		}
	case RepType:
		if v.Type != nil {
			v.Type.refcnt++
		}
	}
	return v
}

// Copy deep-clones aggregates (array/record/union/big-int) but shares
// primitives and object references (port/wire/counter/process/type),
// matching spec §4.A's copy semantics.
func Copy(v Value) Value {
	switch v.Rep {
	case RepBig:
		return Value{Rep: RepBig, Big: v.Big.clone()}
	case RepArray, RepRecord:
		if v.List == nil {
			return v
		}
		elems := make([]Value, len(v.List.Elems))
		for i, e := range v.List.Elems {
			elems[i] = Copy(e)
		}
		return Value{Rep: v.Rep, List: &ValueList{refcnt: 1, Elems: elems}}
	case RepUnion:
		if v.Union == nil {
			return v
		}
		return Value{Rep: RepUnion, Union: &ValueUnion{refcnt: 1, Field: v.Union.Field, Val: Copy(v.Union.Val)}}
	default:
		return Alias(v)
	}
}

// CopyAndClear transfers ownership of v's payload to the result without
// the intermediate deep clone that Copy(v); Clear(v) would perform.
func CopyAndClear(v *Value) Value {
	out := *v
	*v = Value{}
	return out
}

// Clear releases one reference to v's payload, recursively releasing
// aggregate children when the last reference drops.
func Clear(v *Value) {
	switch v.Rep {
	case RepBig:
		if v.Big != nil {
			v.Big.refcnt--
		}
	case RepArray, RepRecord:
		if v.List != nil {
			v.List.refcnt--
			if v.List.refcnt <= 0 {
				for i := range v.List.Elems {
					Clear(&v.List.Elems[i])
				}
			}
		}
	case RepUnion:
		if v.Union != nil {
			v.Union.refcnt--
			if v.Union.refcnt <= 0 {
				Clear(&v.Union.Val)
			}
		}
	case RepCounter:
		if v.Counter != nil {
			v.Counter.refcnt--
		}
	case RepType:
		if v.Type != nil {
			v.Type.refcnt--
		}
	}
	*v = Value{}
}
