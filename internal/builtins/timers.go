package builtins

import (
	"time"

	"jsvm/internal/eventloop"
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installTimers(interp *vm.Interpreter, loop *eventloop.Loop) {
	toInterfaceArgs := func(args []value.Value) []interface{} {
		out := make([]interface{}, len(args))
		for idx, v := range args {
			out[idx] = v
		}
		return out
	}
	toValueArgs := func(args []interface{}) []value.Value {
		out := make([]value.Value, len(args))
		for idx, a := range args {
			if v, ok := a.(value.Value); ok {
				out[idx] = v
			} else {
				out[idx] = value.Undefined
			}
		}
		return out
	}

	callback := func(fn value.Value) eventloop.Callback {
		return func(args []interface{}) {
			interp.Call(fn, value.Undefined, toValueArgs(args))
		}
	}

	defineGlobalFunc(interp, "setTimeout", func(_ value.Value, args []value.Value) (value.Value, error) {
		fn := arg(args, 0)
		delay := time.Duration(arg(args, 1).ToNumber()) * time.Millisecond
		extra := toInterfaceArgs(args[min(2, len(args)):])
		id := loop.SetTimeout(delay, callback(fn), extra...)
		return value.Number(float64(id)), nil
	})
	defineGlobalFunc(interp, "setInterval", func(_ value.Value, args []value.Value) (value.Value, error) {
		fn := arg(args, 0)
		delay := time.Duration(arg(args, 1).ToNumber()) * time.Millisecond
		extra := toInterfaceArgs(args[min(2, len(args)):])
		id := loop.SetInterval(delay, callback(fn), extra...)
		return value.Number(float64(id)), nil
	})
	defineGlobalFunc(interp, "clearTimeout", func(_ value.Value, args []value.Value) (value.Value, error) {
		loop.ClearTimeout(int64(arg(args, 0).ToNumber()))
		return value.Undefined, nil
	})
	defineGlobalFunc(interp, "clearInterval", func(_ value.Value, args []value.Value) (value.Value, error) {
		loop.ClearInterval(int64(arg(args, 0).ToNumber()))
		return value.Undefined, nil
	})
	defineGlobalFunc(interp, "queueMicrotask", func(_ value.Value, args []value.Value) (value.Value, error) {
		fn := arg(args, 0)
		interp.EnqueueMicrotask(func() { interp.Call(fn, value.Undefined, nil) })
		return value.Undefined, nil
	})
}
