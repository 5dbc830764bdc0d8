package vm

import "jsvm/internal/value"

// Call, Construct, NewPromise and friends are the surface internal/builtins
// uses to reenter the interpreter from native code (Array.prototype.map's
// callback, a Promise executor, a thenable's .then) without internal/vm
// exposing its whole unexported dispatch machinery.

func (i *Interpreter) Call(fn, this value.Value, args []value.Value) (value.Value, error) {
	return i.call(fn, this, args)
}

func (i *Interpreter) Construct(fn value.Value, args []value.Value) (value.Value, error) {
	return i.construct(fn, args)
}

func (i *Interpreter) NewPromise() *value.Object                         { return i.newPromise() }
func (i *Interpreter) ResolvePromise(p *value.Object, v value.Value)     { i.resolvePromise(p, v) }
func (i *Interpreter) RejectPromise(p *value.Object, reason value.Value) { i.rejectPromise(p, reason) }
func (i *Interpreter) OnSettle(p *value.Object, onFulfill, onReject func(value.Value)) {
	i.onSettle(p, onFulfill, onReject)
}

func (i *Interpreter) NewIterator(v value.Value, keysOnly bool) (*value.Object, error) {
	return i.newIterator(v, keysOnly)
}

func (i *Interpreter) InstanceOf(obj, ctor value.Value) (bool, error) { return i.instanceOf(obj, ctor) }

// ThrowValue wraps an arbitrary script-thrown value as the Go error the
// dispatch loop's unwind machinery expects, for native functions that need
// to throw something other than one of the named error constructors.
func (i *Interpreter) ThrowValue(v value.Value) error { return &Exception{Val: v} }

// NewErrorValue builds an Error object of the given taxonomy name without
// throwing it — for builtins that construct an Error instance a script
// will inspect or re-throw itself (`new TypeError(...)`, a Promise
// rejection reason).
func (i *Interpreter) NewErrorValue(name, msg string) value.Value {
	obj := i.Track(&value.Object{Kind: value.KindError, Proto: i.errorProto(name), ErrorName: name, ErrorMessage: msg})
	obj.Stack = i.captureStack(name, msg)
	return value.Obj(obj)
}

// ErrorProto exposes the shared prototype for a named error kind so
// internal/builtins can attach a working `toString`/`name`/`message` once
// rather than per-instance.
func (i *Interpreter) ErrorProto(name string) *value.Object { return i.errorProto(name) }
