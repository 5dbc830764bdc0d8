package builtins

import (
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installPromise(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	ctor := native(interp, "Promise", func(this value.Value, args []value.Value) (value.Value, error) {
		executor := arg(args, 0)
		p := interp.NewPromise()
		p.Proto = proto
		resolve := native(interp, "", func(_ value.Value, a []value.Value) (value.Value, error) {
			interp.ResolvePromise(p, arg(a, 0))
			return value.Undefined, nil
		})
		reject := native(interp, "", func(_ value.Value, a []value.Value) (value.Value, error) {
			interp.RejectPromise(p, arg(a, 0))
			return value.Undefined, nil
		})
		if _, err := interp.Call(executor, value.Undefined, []value.Value{value.Obj(resolve), value.Obj(reject)}); err != nil {
			if exc, ok := asException(err); ok {
				interp.RejectPromise(p, exc)
			} else {
				return value.Undefined, err
			}
		}
		return value.Obj(p), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, proto, "then", func(this value.Value, args []value.Value) (value.Value, error) {
		p := this.Object()
		onFulfill := arg(args, 0)
		onReject := arg(args, 1)
		next := interp.NewPromise()
		next.Proto = proto

		settle := func(cb value.Value, v value.Value, passthrough func(value.Value)) {
			if !cb.IsObject() || !cb.Object().IsCallable() {
				passthrough(v)
				return
			}
			result, err := interp.Call(cb, value.Undefined, []value.Value{v})
			if err != nil {
				if exc, ok := asException(err); ok {
					interp.RejectPromise(next, exc)
					return
				}
				interp.RejectPromise(next, value.String(err.Error()))
				return
			}
			interp.ResolvePromise(next, result)
		}

		interp.OnSettle(p,
			func(v value.Value) { settle(onFulfill, v, func(vv value.Value) { interp.ResolvePromise(next, vv) }) },
			func(reason value.Value) { settle(onReject, reason, func(vv value.Value) { interp.RejectPromise(next, vv) }) },
		)
		return value.Obj(next), nil
	})

	defineMethod(interp, proto, "catch", func(this value.Value, args []value.Value) (value.Value, error) {
		thenFn, _ := proto.Get("then")
		return interp.Call(thenFn, this, []value.Value{value.Undefined, arg(args, 0)})
	})

	defineMethod(interp, proto, "finally", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		wrap := native(interp, "", func(_ value.Value, a []value.Value) (value.Value, error) {
			if cb.IsObject() && cb.Object().IsCallable() {
				if _, err := interp.Call(cb, value.Undefined, nil); err != nil {
					return value.Undefined, err
				}
			}
			return arg(a, 0), nil
		})
		rethrow := native(interp, "", func(_ value.Value, a []value.Value) (value.Value, error) {
			if cb.IsObject() && cb.Object().IsCallable() {
				if _, err := interp.Call(cb, value.Undefined, nil); err != nil {
					return value.Undefined, err
				}
			}
			return value.Undefined, interp.ThrowValue(arg(a, 0))
		})
		thenFn, _ := proto.Get("then")
		return interp.Call(thenFn, this, []value.Value{value.Obj(wrap), value.Obj(rethrow)})
	})

	defineMethod(interp, ctor, "resolve", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		if v.IsObject() && v.Object().Kind == value.KindPromise {
			return v, nil
		}
		p := interp.NewPromise()
		p.Proto = proto
		interp.ResolvePromise(p, v)
		return value.Obj(p), nil
	})
	defineMethod(interp, ctor, "reject", func(_ value.Value, args []value.Value) (value.Value, error) {
		p := interp.NewPromise()
		p.Proto = proto
		interp.RejectPromise(p, arg(args, 0))
		return value.Obj(p), nil
	})

	iterate := func(v value.Value) ([]value.Value, error) {
		if v.IsObject() && v.Object().Kind == value.KindArray {
			return append([]value.Value{}, v.Object().Elements...), nil
		}
		iter, err := interp.NewIterator(v, false)
		if err != nil {
			return nil, err
		}
		var items []value.Value
		for {
			item, done := iter.IterNext()
			if done {
				return items, nil
			}
			items = append(items, item)
		}
	}

	defineMethod(interp, ctor, "all", func(_ value.Value, args []value.Value) (value.Value, error) {
		items, err := iterate(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		result := interp.NewPromise()
		result.Proto = proto
		if len(items) == 0 {
			interp.ResolvePromise(result, value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), nil))))
			return value.Obj(result), nil
		}
		values := make([]value.Value, len(items))
		remaining := len(items)
		for idx, item := range items {
			idx := idx
			settlePromise(interp, proto, item, func(v value.Value) {
				values[idx] = v
				remaining--
				if remaining == 0 {
					interp.ResolvePromise(result, value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), values))))
				}
			}, func(reason value.Value) {
				interp.RejectPromise(result, reason)
			})
		}
		return value.Obj(result), nil
	})

	defineMethod(interp, ctor, "allSettled", func(_ value.Value, args []value.Value) (value.Value, error) {
		items, err := iterate(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		result := interp.NewPromise()
		result.Proto = proto
		if len(items) == 0 {
			interp.ResolvePromise(result, value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), nil))))
			return value.Obj(result), nil
		}
		values := make([]value.Value, len(items))
		remaining := len(items)
		finish := func(idx int, status string, key string, v value.Value) {
			o := interp.Track(value.NewObject(interp.ObjectProto()))
			o.Set("status", value.String(status))
			o.Set(key, v)
			values[idx] = value.Obj(o)
			remaining--
			if remaining == 0 {
				interp.ResolvePromise(result, value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), values))))
			}
		}
		for idx, item := range items {
			idx := idx
			settlePromise(interp, proto, item,
				func(v value.Value) { finish(idx, "fulfilled", "value", v) },
				func(reason value.Value) { finish(idx, "rejected", "reason", reason) },
			)
		}
		return value.Obj(result), nil
	})

	defineMethod(interp, ctor, "race", func(_ value.Value, args []value.Value) (value.Value, error) {
		items, err := iterate(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		result := interp.NewPromise()
		result.Proto = proto
		for _, item := range items {
			settlePromise(interp, proto, item,
				func(v value.Value) { interp.ResolvePromise(result, v) },
				func(reason value.Value) { interp.RejectPromise(result, reason) },
			)
		}
		return value.Obj(result), nil
	})

	defineMethod(interp, ctor, "any", func(_ value.Value, args []value.Value) (value.Value, error) {
		items, err := iterate(arg(args, 0))
		if err != nil {
			return value.Undefined, err
		}
		result := interp.NewPromise()
		result.Proto = proto
		if len(items) == 0 {
			interp.RejectPromise(result, interp.NewErrorValue("AggregateError", "All promises were rejected"))
			return value.Obj(result), nil
		}
		remaining := len(items)
		for _, item := range items {
			settlePromise(interp, proto, item,
				func(v value.Value) { interp.ResolvePromise(result, v) },
				func(reason value.Value) {
					remaining--
					if remaining == 0 {
						interp.RejectPromise(result, interp.NewErrorValue("AggregateError", "All promises were rejected"))
					}
				},
			)
		}
		return value.Obj(result), nil
	})

	interp.Globals.DefineOwn("Promise", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

// settlePromise treats a plain value as an already-fulfilled promise,
// mirroring Promise.resolve's thenable-adoption rule for combinators.
func settlePromise(interp *vm.Interpreter, proto *value.Object, v value.Value, onFulfill, onReject func(value.Value)) {
	if v.IsObject() && v.Object().Kind == value.KindPromise {
		interp.OnSettle(v.Object(), onFulfill, onReject)
		return
	}
	if v.IsObject() {
		if then, ok := v.Object().Get("then"); ok && then.IsObject() && then.Object().IsCallable() {
			p := interp.NewPromise()
			p.Proto = proto
			interp.OnSettle(p, onFulfill, onReject)
			interp.ResolvePromise(p, v)
			return
		}
	}
	onFulfill(v)
}

func asException(err error) (value.Value, bool) {
	if exc, ok := err.(*vm.Exception); ok {
		return exc.Val, true
	}
	return value.Undefined, false
}
