package vm

import "jsvm/internal/value"

// newPromise allocates a pending promise (spec.md §4.6 "three-state
// machine").
func (i *Interpreter) newPromise() *value.Object {
	return i.Track(&value.Object{Kind: value.KindPromise, Proto: i.objectProto, Promise: &value.PromiseState{State: value.Pending}})
}

// resolvePromise transitions p to fulfilled, scheduling its fulfillment
// reactions as microtasks (spec.md §4.6 "microtask queue"). Resolving with
// another promise chains onto it instead of nesting promises, per
// ECMA-262's thenable-adoption rule. Resolving with any other object that
// exposes a callable `.then` (a thenable that isn't itself one of this
// engine's own Promise objects — a jQuery deferred, a userland Promise
// polyfill, a mock in a test) assimilates the same way: p stays pending
// until the thenable calls back, and a thenable that throws while being
// queried rejects p with that exception.
func (i *Interpreter) resolvePromise(p *value.Object, v value.Value) {
	if p.Promise.State != value.Pending {
		return
	}
	if v.IsObject() && v.Object().Kind == value.KindPromise {
		other := v.Object()
		i.onSettle(other, func(val value.Value) { i.resolvePromise(p, val) }, func(reason value.Value) { i.rejectPromise(p, reason) })
		return
	}
	if v.IsObject() {
		if then, ok := v.Object().Get("then"); ok && then.IsObject() && then.Object().IsCallable() {
			i.assimilateThenable(p, v, then)
			return
		}
	}
	p.Promise.State = value.Fulfilled
	p.Promise.Value = v
	cbs := p.Promise.OnFulfill
	p.Promise.OnFulfill, p.Promise.OnReject = nil, nil
	for _, cb := range cbs {
		cb := cb
		i.EnqueueMicrotask(func() { cb(v) })
	}
}

// assimilateThenable calls an arbitrary thenable's `.then` with resolve/
// reject functions that settle p at most once, per Promises/A+ 2.3.3 —
// guarding against a misbehaving thenable invoking both, or invoking one
// more than once.
func (i *Interpreter) assimilateThenable(p *value.Object, thenable, then value.Value) {
	var settled bool
	resolveFn := i.Track(&value.Object{Kind: value.KindNativeFunction, Proto: i.functionProto, Native: func(_ value.Value, args []value.Value) (value.Value, error) {
		if settled {
			return value.Undefined, nil
		}
		settled = true
		val := value.Undefined
		if len(args) > 0 {
			val = args[0]
		}
		i.resolvePromise(p, val)
		return value.Undefined, nil
	}})
	rejectFn := i.Track(&value.Object{Kind: value.KindNativeFunction, Proto: i.functionProto, Native: func(_ value.Value, args []value.Value) (value.Value, error) {
		if settled {
			return value.Undefined, nil
		}
		settled = true
		reason := value.Undefined
		if len(args) > 0 {
			reason = args[0]
		}
		i.rejectPromise(p, reason)
		return value.Undefined, nil
	}})
	i.EnqueueMicrotask(func() {
		_, err := i.call(then, thenable, []value.Value{value.Obj(resolveFn), value.Obj(rejectFn)})
		if err != nil && !settled {
			settled = true
			if exc, ok := err.(*Exception); ok {
				i.rejectPromise(p, exc.Val)
			} else {
				i.rejectPromise(p, value.String(err.Error()))
			}
		}
	})
}

func (i *Interpreter) rejectPromise(p *value.Object, reason value.Value) {
	if p.Promise.State != value.Pending {
		return
	}
	p.Promise.State = value.Rejected
	p.Promise.Value = reason
	cbs := p.Promise.OnReject
	p.Promise.OnFulfill, p.Promise.OnReject = nil, nil
	for _, cb := range cbs {
		cb := cb
		i.EnqueueMicrotask(func() { cb(reason) })
	}
}

// onSettle registers reactions, invoking them immediately (as a freshly
// queued microtask) if p has already settled.
func (i *Interpreter) onSettle(p *value.Object, onFulfill, onReject func(value.Value)) {
	switch p.Promise.State {
	case value.Fulfilled:
		v := p.Promise.Value
		i.EnqueueMicrotask(func() { onFulfill(v) })
	case value.Rejected:
		v := p.Promise.Value
		i.EnqueueMicrotask(func() { onReject(v) })
	default:
		p.Promise.OnFulfill = append(p.Promise.OnFulfill, onFulfill)
		p.Promise.OnReject = append(p.Promise.OnReject, onReject)
	}
}

// awaitSettle implements the Await opcode's suspension point. The core
// runs one frame at a time with no true coroutine suspension (see
// DESIGN.md); it approximates `await` by draining the microtask queue
// until the awaited promise settles or the queue runs dry. A promise that
// can only settle from a future macrotask (e.g. a pending setTimeout)
// will not resolve within this call — the known limit of running async
// frames to completion eagerly rather than truly suspending them.
func (i *Interpreter) awaitSettle(p *value.Object) (value.Value, bool, value.Value) {
	for p.Promise.State == value.Pending && len(i.microtasks) > 0 {
		i.DrainMicrotasks()
	}
	switch p.Promise.State {
	case value.Fulfilled:
		return p.Promise.Value, false, value.Undefined
	case value.Rejected:
		return value.Undefined, true, p.Promise.Value
	default:
		return value.Undefined, false, value.Undefined
	}
}
