package sim

import "fmt"

// ErrorKind classifies a SimError into the nine families of spec §7.
type ErrorKind int

const (
	ErrUserSyntactic ErrorKind = iota
	ErrInstantiation
	ErrRuntimeArith
	ErrRuntimeRange
	ErrChannel
	ErrPR
	ErrParallel
	ErrResource
	ErrDeadlock
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUserSyntactic:
		return "UserSyntactic"
	case ErrInstantiation:
		return "Instantiation"
	case ErrRuntimeArith:
		return "Runtime-Arith"
	case ErrRuntimeRange:
		return "Runtime-Range"
	case ErrChannel:
		return "Channel"
	case ErrPR:
		return "PR"
	case ErrParallel:
		return "Parallel"
	case ErrResource:
		return "Resource"
	case ErrDeadlock:
		return "Deadlock"
	default:
		return "Unknown"
	}
}

// SimError is the error type every fallible core operation returns.
// Sub carries the named sub-case within a Kind (DivZero, BadExp,
// ExpTooLarge, Interference, Instability, ParallelConflict) when one
// applies; it is empty for kinds with no further breakdown.
type SimError struct {
	Kind ErrorKind
	Sub  string
	// Object is the display name of the offending wire/variable/process,
	// when known at the point the error is raised.
	Object string
	// Time is the simulated time at which the error occurred, filled in
	// by the scheduler when it catches an error bubbling out of a
	// dispatch (zero until then).
	Time string
	Msg  string
}

func (e *SimError) Error() string {
	switch {
	case e.Sub != "" && e.Object != "":
		return fmt.Sprintf("%s<%s>: %s: %s", e.Kind, e.Sub, e.Object, e.Msg)
	case e.Sub != "":
		return fmt.Sprintf("%s<%s>: %s", e.Kind, e.Sub, e.Msg)
	case e.Object != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Object, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

// WithObject returns a copy of e annotated with the offending object's
// display name, used as errors are re-raised up through eval/exec with
// more context than the leaf site had.
func (e *SimError) WithObject(name string) *SimError {
	c := *e
	c.Object = name
	return &c
}

// WithTime stamps e with the simulated time it was caught at.
func (e *SimError) WithTime(t string) *SimError {
	c := *e
	c.Time = t
	return &c
}

// AsSimError unwraps err into a *SimError, if it is one.
func AsSimError(err error) (*SimError, bool) {
	se, ok := err.(*SimError)
	return se, ok
}
