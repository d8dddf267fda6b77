package sim

// BuiltinFunc is the shape of a registered I/O builtin: the core calls
// into it during evaluation when a builtin is invoked, per spec §6
// ("a registry mapping builtin names to (function_def, argv) -> unit
// closures"). Builtin implementations themselves (file I/O, random,
// Verilog emission) are external collaborators, out of scope for the
// core (spec §1 Non-goals).
type BuiltinFunc func(ctx *Context, cs *ControlState, argv []Value) (Value, error)

// Registry is the consumed-interface registry of builtins; the core
// only needs Lookup to dispatch a call expression.
type Registry struct {
	funcs map[string]BuiltinFunc
}

func NewRegistry() *Registry { return &Registry{funcs: map[string]BuiltinFunc{}} }

func (r *Registry) Register(name string, fn BuiltinFunc) { r.funcs[name] = fn }

func (r *Registry) Lookup(name string) (BuiltinFunc, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Call invokes a registered builtin by name, surfacing <Instantiation>
// if it cannot be resolved (the parser should have already rejected
// unknown identifiers; a miss here means the registry and the AST
// disagree).
func (r *Registry) Call(ctx *Context, cs *ControlState, name string, argv []Value) (Value, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return Value{}, &SimError{Kind: ErrInstantiation, Object: name, Msg: "unregistered builtin"}
	}
	return fn(ctx, cs, argv)
}

// RandomDraw implements the `random(n)` builtin semantics of spec §5:
// a uniform value in [0,n) drawn from the context's process-wide PRNG.
func RandomDraw(ctx *Context, n int64) Value {
	return Int(ctx.rand.Draw(n))
}
