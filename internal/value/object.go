package value

import "fmt"

// Kind discriminates an Object's internal representation, per spec.md §3.
type Kind uint8

const (
	KindOrdinary Kind = iota
	KindArray
	KindFunction
	KindNativeFunction
	KindClass
	KindBound
	KindDate
	KindMap
	KindSet
	KindError
	KindPromise
	KindIterator
	KindTypedArray
	KindArrayBuffer
	KindRegExp
)

// PropertyDescriptor records a property's value and attribute bits, or a
// getter/setter pair in lieu of a plain value.
type PropertyDescriptor struct {
	Value        Value
	Get          *Object // nil if this is a data property
	Set          *Object
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// NativeFn is the Go-side implementation of a NativeFunction object. args
// excludes the receiver; callers bind `this` separately.
type NativeFn func(this Value, args []Value) (Value, error)

// Object is the heap-allocated record backing every non-primitive value.
type Object struct {
	Kind  Kind
	Proto *Object // nil means the null prototype

	props map[string]*PropertyDescriptor
	order []string // insertion order, for spec-faithful enumeration

	Extensible bool
	Frozen     bool

	// Array
	Elements []Value

	// Function / Bound / Class
	Name      string
	Params    int
	Native    NativeFn
	Chunk     any // *bytecode.Chunk, stored as any to avoid an import cycle
	Captured  []*Cell
	ThisVal   Value
	BoundThis Value
	BoundArgs []Value
	Target    *Object // Bound: underlying function; Class: constructor

	// Class
	PrototypeObj *Object
	SuperClass   *Object

	// Date
	EpochMillis float64

	// Map / Set
	MapKeys   []Value
	MapValues []Value
	Weak      bool // true for WeakMap/WeakSet: keys aren't roots for gc.Collector

	// Error
	ErrorName    string
	ErrorMessage string
	Stack        []string

	// Promise
	Promise *PromiseState

	// Iterator
	IterNext func() (Value, bool)

	// RegExp
	Pattern string
	Flags   string

	// TypedArray / ArrayBuffer
	Buffer      *Object // TypedArray: the ArrayBuffer it views
	ElemKind    string  // "Int8", "Uint8", "Int32", "Float64", etc.
	ByteLength  int     // ArrayBuffer: allocated size in bytes

	// GC bookkeeping
	Marked bool
	id     uint64
}

// PromiseState tracks the three-state machine of spec.md §4.6.
type PromiseState struct {
	State     PromiseStatus
	Value     Value
	OnFulfill []func(Value)
	OnReject  []func(Value)
}

type PromiseStatus uint8

const (
	Pending PromiseStatus = iota
	Fulfilled
	Rejected
)

// Cell is a heap-allocated one-slot box shared between a defining frame
// and every closure that captures it (spec.md §9 "Closures and mutable
// capture").
type Cell struct {
	Value    Value
	ReadOnly bool
	Marked   bool
}

// NewObject allocates a plain ordinary object with the given prototype.
func NewObject(proto *Object) *Object {
	return &Object{Kind: KindOrdinary, Proto: proto, props: map[string]*PropertyDescriptor{}, Extensible: true}
}

// NewArray allocates a dense array with the given initial elements.
func NewArray(proto *Object, elems []Value) *Object {
	return &Object{Kind: KindArray, Proto: proto, props: map[string]*PropertyDescriptor{}, Elements: elems, Extensible: true}
}

func (o *Object) ensureProps() {
	if o.props == nil {
		o.props = map[string]*PropertyDescriptor{}
	}
}

// GetOwn returns the object's own property descriptor for key, ignoring
// the prototype chain.
func (o *Object) GetOwn(key string) (*PropertyDescriptor, bool) {
	if o.Kind == KindArray || o.Kind == KindTypedArray {
		if idx, ok := arrayIndex(key); ok {
			if idx < len(o.Elements) {
				return &PropertyDescriptor{Value: o.Elements[idx], Writable: true, Enumerable: true, Configurable: true}, true
			}
			return nil, false
		}
		if key == "length" && o.Kind == KindArray {
			return &PropertyDescriptor{Value: Number(float64(len(o.Elements))), Writable: true}, true
		}
	}
	if o.Kind == KindError && key == "message" {
		if d, ok := o.props[key]; ok {
			return d, ok
		}
		return &PropertyDescriptor{Value: String(o.ErrorMessage), Writable: true, Configurable: true}, true
	}
	d, ok := o.props[key]
	return d, ok
}

// Get walks the prototype chain for key, per spec.md §3 (prototype link).
func (o *Object) Get(key string) (Value, bool) {
	for cur := o; cur != nil; cur = cur.Proto {
		if d, ok := cur.GetOwn(key); ok {
			return d.Value, true
		}
	}
	return Undefined, false
}

func arrayIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	n := 0
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Set defines or overwrites an own data property. It reports whether the
// write succeeded; a frozen object silently rejects the write (the VM
// decides whether silence or a thrown TypeError is correct for the
// calling context, per spec.md §3's "frozen object" invariant).
func (o *Object) Set(key string, v Value) bool {
	if o.Frozen {
		return false
	}
	if o.Kind == KindArray {
		if idx, ok := arrayIndex(key); ok {
			for len(o.Elements) <= idx {
				o.Elements = append(o.Elements, Undefined)
			}
			o.Elements[idx] = v
			return true
		}
		if key == "length" {
			n := int(v.ToNumber())
			if n < 0 {
				return false
			}
			if n < len(o.Elements) {
				o.Elements = o.Elements[:n]
			} else {
				for len(o.Elements) < n {
					o.Elements = append(o.Elements, Undefined)
				}
			}
			return true
		}
	}
	if o.Kind == KindTypedArray {
		if idx, ok := arrayIndex(key); ok {
			if idx >= 0 && idx < len(o.Elements) {
				o.Elements[idx] = Number(ClampForElemKind(o.ElemKind, v.ToNumber()))
			}
			return true // out-of-range index writes are silently ignored, per typed-array semantics
		}
	}
	if o.Kind == KindError && key == "message" {
		o.ErrorMessage = v.ToString()
		if _, ok := o.props[key]; !ok {
			return true
		}
	}
	o.ensureProps()
	if d, ok := o.props[key]; ok {
		if !d.Writable && d.Get == nil {
			return false
		}
		d.Value = v
		return true
	}
	if !o.Extensible {
		return false
	}
	o.props[key] = &PropertyDescriptor{Value: v, Writable: true, Enumerable: true, Configurable: true}
	o.order = append(o.order, key)
	return true
}

// DefineOwn installs a property descriptor directly, bypassing the
// writable/configurable checks `Set` applies — used when building
// intrinsics and class prototypes.
func (o *Object) DefineOwn(key string, d PropertyDescriptor) {
	o.ensureProps()
	if _, exists := o.props[key]; !exists {
		o.order = append(o.order, key)
	}
	o.props[key] = &d
}

// Delete removes an own property, returning false if it is
// non-configurable.
func (o *Object) Delete(key string) bool {
	if o.Kind == KindArray {
		if idx, ok := arrayIndex(key); ok && idx < len(o.Elements) {
			o.Elements[idx] = Undefined
			return true
		}
	}
	d, ok := o.props[key]
	if !ok {
		return true
	}
	if !d.Configurable {
		return false
	}
	delete(o.props, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// HasOwn reports whether key is an own property (or, for arrays, a valid
// index).
func (o *Object) HasOwn(key string) bool {
	_, ok := o.GetOwn(key)
	return ok
}

// SetPrototype rewires the prototype link after checking acyclicity, per
// spec.md §3's "object's prototype chain is acyclic" invariant and §9's
// "enforce acyclicity ... by walking the chain before linking" strategy.
func (o *Object) SetPrototype(proto *Object) error {
	for cur := proto; cur != nil; cur = cur.Proto {
		if cur == o {
			return fmt.Errorf("cyclic prototype chain")
		}
	}
	o.Proto = proto
	return nil
}

// IsCallable reports whether the object can appear as a Call opcode's
// target.
func (o *Object) IsCallable() bool {
	switch o.Kind {
	case KindFunction, KindNativeFunction, KindClass, KindBound:
		return true
	default:
		return false
	}
}

// ToStringTag is the default `[object X]`-shaped conversion used by
// Value.ToString for plain objects (spec.md §8: `[] + {}` is
// `"[object Object]"`).
func (o *Object) ToStringTag() string {
	switch o.Kind {
	case KindArray:
		parts := make([]string, len(o.Elements))
		for i, e := range o.Elements {
			if e.IsNullish() {
				parts[i] = ""
			} else {
				parts[i] = e.ToString()
			}
		}
		return joinStrings(parts, ",")
	case KindFunction, KindNativeFunction, KindBound:
		return "function " + o.Name + "() { [native code] }"
	case KindError:
		if o.ErrorMessage == "" {
			return o.ErrorName
		}
		return o.ErrorName + ": " + o.ErrorMessage
	default:
		return "[object Object]"
	}
}

func joinStrings(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
