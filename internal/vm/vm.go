// Package vm implements the stack-based bytecode interpreter: the frame
// and call-stack discipline of spec.md §4.4, the error taxonomy of §7, and
// the scope-chain/cell types of §3.
package vm

import (
	"math"

	"jsvm/internal/bytecode"
	"jsvm/internal/capability"
	"jsvm/internal/gc"
	"jsvm/internal/value"
)

// Limits per spec.md §4.4: these bound a runaway script rather than model
// any host resource directly.
const (
	maxStack  = 10000
	maxFrames = 1000
)

// Event is one entry of the optional trace stream a host can subscribe to
// in place of the out-of-scope time-travel debugger. The interpreter emits
// "gc-start" and "gc-end" around each collection; opcode dispatch, promise
// settlement and timer firing emit no events.
type Event struct {
	Kind string
	Data any
}

// Interpreter owns one runtime's heap root, operand stack, and call stack.
// Nothing is shared between Interpreters (spec.md §4.6 "each runtime owns
// its heap").
type Interpreter struct {
	Globals *value.Object

	stack  []value.Value
	frames []*Frame

	objectProto   *value.Object
	functionProto *value.Object
	arrayProto    *value.Object
	stringProto   *value.Object
	numberProto   *value.Object
	booleanProto  *value.Object
	bigIntProto   *value.Object
	errorProtos   map[string]*value.Object

	opcodeBudget int64 // 0 means unbounded
	spent        int64

	heap         *gc.Collector
	opsSinceGC   int64
	gcInterval   int64 // Track calls between automatic collections; 0 disables auto-collect

	microtasks []func()

	pendingGenSink *[]value.Value // consumed by the next callChunk, to wire Frame.genSink for a generator body

	Capability capability.Set

	Trace func(Event)
}

// NewInterpreter builds a runtime with bare intrinsics wired (enough for
// the core language to run); internal/builtins layers console/Math/JSON/…
// on top by calling Globals.DefineOwn directly.
func NewInterpreter() *Interpreter {
	i := &Interpreter{errorProtos: map[string]*value.Object{}, Capability: capability.Denied(), heap: gc.New(), gcInterval: 50000}
	i.objectProto = value.NewObject(nil)
	i.functionProto = value.NewObject(i.objectProto)
	i.arrayProto = value.NewObject(i.objectProto)
	i.stringProto = value.NewObject(i.objectProto)
	i.numberProto = value.NewObject(i.objectProto)
	i.booleanProto = value.NewObject(i.objectProto)
	i.bigIntProto = value.NewObject(i.objectProto)
	i.Globals = value.NewObject(i.objectProto)
	i.Globals.DefineOwn("globalThis", value.PropertyDescriptor{Value: value.Obj(i.Globals), Writable: true})
	i.Globals.DefineOwn("undefined", value.PropertyDescriptor{Value: value.Undefined})
	i.Globals.DefineOwn("NaN", value.PropertyDescriptor{Value: value.Number(nan())})
	i.Globals.DefineOwn("Infinity", value.PropertyDescriptor{Value: value.Number(inf())})
	return i
}

func nan() float64 { return math.NaN() }
func inf() float64 { return math.Inf(1) }

// SetOpcodeBudget bounds the number of instructions Run will dispatch
// before raising Interrupted — the cooperative-yield point a host uses to
// cap a runaway script (spec.md §4.4, §7 "Interrupted").
func (i *Interpreter) SetOpcodeBudget(n int64) { i.opcodeBudget = n }

// ObjectProto and friends let internal/builtins reach into and extend the
// intrinsic prototype chain without the vm package importing builtins.
func (i *Interpreter) ObjectProto() *value.Object   { return i.objectProto }
func (i *Interpreter) FunctionProto() *value.Object { return i.functionProto }
func (i *Interpreter) ArrayProto() *value.Object    { return i.arrayProto }
func (i *Interpreter) StringProto() *value.Object   { return i.stringProto }
func (i *Interpreter) NumberProto() *value.Object   { return i.numberProto }
func (i *Interpreter) BooleanProto() *value.Object  { return i.booleanProto }
func (i *Interpreter) BigIntProto() *value.Object   { return i.bigIntProto }

// SetErrorProto lets internal/builtins install a richer prototype (with a
// working toString) for one of the named error kinds. Falling back to a
// bare prototype keeps errors.go usable before builtins wires anything.
func (i *Interpreter) SetErrorProto(name string, proto *value.Object) { i.errorProtos[name] = proto }

func (i *Interpreter) errorProto(name string) *value.Object {
	if p, ok := i.errorProtos[name]; ok {
		return p
	}
	p := value.NewObject(i.objectProto)
	p.DefineOwn("name", value.PropertyDescriptor{Value: value.String(name), Writable: true, Configurable: true})
	i.errorProtos[name] = p
	return p
}

// Track registers o with the collector's heap registry so a later
// CollectGarbage call can report its liveness and sweep any WeakMap/WeakSet
// entry keyed on it. Every allocation path that produces a new
// script-visible heap object (object/array literals, constructors,
// built-ins) funnels its result through here; returning o lets call sites
// track inline at the point of construction.
func (i *Interpreter) Track(o *value.Object) *value.Object {
	i.heap.Track(o)
	i.opsSinceGC++
	if i.gcInterval > 0 && i.opsSinceGC >= i.gcInterval {
		i.opsSinceGC = 0
		i.CollectGarbage()
	}
	return o
}

// TrackWeak registers a WeakMap/WeakSet entry: container's MapKeys[index]
// is dropped by the next CollectGarbage if key doesn't survive that pass,
// without key counting as a root itself (spec.md §4.6 "genuinely weak").
func (i *Interpreter) TrackWeak(container, key *value.Object, index int) {
	i.heap.TrackWeak(container, key, index)
}

// SetGCInterval changes how many Track calls elapse between automatic
// collections; 0 disables the automatic trigger (CollectGarbage can still
// be called directly, e.g. from a host-exposed `gc()` global).
func (i *Interpreter) SetGCInterval(n int64) { i.gcInterval = n }

// CollectGarbage runs one mark-and-sweep pass rooted at the globals
// object, every live frame's locals/upvalues/operand-stack slots, and any
// extra value the caller still needs held live (an in-flight exception,
// a pending microtask closure's captured value). Unmarked tracked objects
// are reported as swept (Go's own allocator reclaims them once nothing
// else points at them); any WeakMap/WeakSet entry whose key didn't
// survive is dropped from its container in the same pass.
func (i *Interpreter) CollectGarbage(extraRoots ...value.Value) gc.Stats {
	roots := gc.Roots{Globals: i.Globals}
	roots.Stack = append(roots.Stack, i.stack...)
	for _, f := range i.frames {
		roots.Cells = append(roots.Cells, f.locals...)
		roots.Cells = append(roots.Cells, f.upvalues...)
		roots.Stack = append(roots.Stack, f.thisVal)
		if f.homeClass != nil {
			roots.Objects = append(roots.Objects, f.homeClass)
		}
	}
	for _, v := range extraRoots {
		if v.IsObject() {
			roots.Objects = append(roots.Objects, v.Object())
		}
	}
	i.trace("gc-start", nil)
	stats := i.heap.Collect(roots)
	i.trace("gc-end", stats)
	return stats
}

// EnqueueMicrotask schedules fn to run the next time DrainMicrotasks is
// called — the hook internal/eventloop's promise reactions use (spec.md
// §4.6 "microtask queue drained to exhaustion between macrotasks").
func (i *Interpreter) EnqueueMicrotask(fn func()) { i.microtasks = append(i.microtasks, fn) }

// DrainMicrotasks runs queued microtasks to exhaustion, including any that
// enqueue further microtasks while running.
func (i *Interpreter) DrainMicrotasks() {
	for len(i.microtasks) > 0 {
		fn := i.microtasks[0]
		i.microtasks = i.microtasks[1:]
		fn()
	}
}

// HasMicrotasks reports whether any microtask is queued — internal/eventloop
// consults this to decide whether a drain pass before/after firing timers
// would do anything.
func (i *Interpreter) HasMicrotasks() bool { return len(i.microtasks) > 0 }

func (i *Interpreter) trace(kind string, data any) {
	if i.Trace != nil {
		i.Trace(Event{Kind: kind, Data: data})
	}
}

func (i *Interpreter) push(v value.Value) error {
	if len(i.stack) >= maxStack {
		return &StackOverflow{}
	}
	i.stack = append(i.stack, v)
	return nil
}

func (i *Interpreter) pop() value.Value {
	v := i.stack[len(i.stack)-1]
	i.stack = i.stack[:len(i.stack)-1]
	return v
}

func (i *Interpreter) popN(n int) []value.Value {
	if n == 0 {
		return nil
	}
	out := make([]value.Value, n)
	copy(out, i.stack[len(i.stack)-n:])
	i.stack = i.stack[:len(i.stack)-n]
	return out
}

func (i *Interpreter) peek(depth int) value.Value {
	return i.stack[len(i.stack)-1-depth]
}

// StackOverflow is raised when the shared operand stack exceeds its hard
// limit — named distinctly from RangeError per spec.md §4.4.
type StackOverflow struct{}

func (e *StackOverflow) Error() string { return "stack overflow" }

// Run executes chunk as the top-level script, returning its completion
// value: the value of the script's last statement when that is an
// expression statement, undefined otherwise (or whatever an explicit
// top-level `return` — invalid script but harmless to support — produced).
func (i *Interpreter) Run(chunk *bytecode.Chunk) (value.Value, error) {
	return i.callChunk(chunk, nil, value.Undefined, nil, nil)
}

// propagateSignal is an internal Go error value meaning "an exception was
// already caught and dispatch repositioned in a frame outside the range
// this callChunk call owns — keep propagating without reporting it as
// this call's own result." It never reaches script or a host caller.
type propagateSignal struct{}

func (*propagateSignal) Error() string { return "<internal: unwound past caller>" }

// callChunk pushes a fresh frame for chunk and drives the shared dispatch
// loop until that frame (or everything it transitively pushes) unwinds
// back below its own depth. A nested script call (OpCall, OpNew,
// OpSuperCall) reaches here again through call, so each script-level call
// is also one level of Go recursion, as is a native function reentering
// the VM (e.g. Array.prototype.map invoking a callback).
func (i *Interpreter) callChunk(chunk *bytecode.Chunk, upvalues []*value.Cell, this value.Value, homeClass *value.Object, args []value.Value) (value.Value, error) {
	if len(i.frames) >= maxFrames {
		return value.Undefined, i.RangeError("Maximum call stack size exceeded")
	}
	f := newFrame(chunk, upvalues, this, homeClass, len(i.stack))
	f.bindArgs(args, i.arrayProto, i.Track)
	if i.pendingGenSink != nil {
		f.genSink = i.pendingGenSink
		i.pendingGenSink = nil
	}
	i.frames = append(i.frames, f)
	depth := len(i.frames)

	for {
		if len(i.frames) < depth {
			return i.pop(), nil
		}
		cur := i.frames[len(i.frames)-1]
		err := i.step(cur)
		if err == nil {
			continue
		}
		if _, ok := err.(*propagateSignal); ok {
			if len(i.frames) >= depth {
				continue
			}
			return value.Undefined, err
		}
		handledIdx, caught := i.unwind(err, depth-1)
		if !caught {
			i.trimFramesTo(depth - 1)
			return value.Undefined, err
		}
		if handledIdx+1 < depth {
			return value.Undefined, &propagateSignal{}
		}
	}
}

func (i *Interpreter) trimFramesTo(n int) {
	for len(i.frames) > n {
		last := i.frames[len(i.frames)-1]
		i.stack = i.stack[:last.base]
		i.frames = i.frames[:len(i.frames)-1]
	}
}

// unwind searches frames from innermost down to floor (the frames the
// calling callChunk owns) for a live try handler, trims the stack to its
// recorded depth, pushes the thrown value, and repositions that frame's ip
// to the catch/finally landing pad. It reports the index of the frame that
// caught, or false if none of those frames has a handler, in which case
// the exception goes back to callChunk's own caller.
func (i *Interpreter) unwind(err error, floor int) (int, bool) {
	exc, ok := err.(*Exception)
	if !ok {
		return 0, false // Interrupted / OutOfMemory: uncatchable by script
	}
	for idx := len(i.frames) - 1; idx >= floor; idx-- {
		f := i.frames[idx]
		if len(f.tries) == 0 {
			continue
		}
		h := f.tries[len(f.tries)-1]
		f.tries = f.tries[:len(f.tries)-1]
		i.frames = i.frames[:idx+1]
		i.stack = i.stack[:h.stackDepth]
		i.stack = append(i.stack, exc.Val)
		f.ip = h.catchPC
		return idx, true
	}
	return 0, false
}
