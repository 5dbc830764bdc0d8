package builtins

import (
	"sort"
	"strings"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installArray(interp *vm.Interpreter) {
	proto := interp.ArrayProto()

	defineMethod(interp, proto, "push", func(this value.Value, args []value.Value) (value.Value, error) {
		a := this.Object()
		a.Elements = append(a.Elements, args...)
		return value.Number(float64(len(a.Elements))), nil
	})
	defineMethod(interp, proto, "pop", func(this value.Value, _ []value.Value) (value.Value, error) {
		a := this.Object()
		if len(a.Elements) == 0 {
			return value.Undefined, nil
		}
		v := a.Elements[len(a.Elements)-1]
		a.Elements = a.Elements[:len(a.Elements)-1]
		return v, nil
	})
	defineMethod(interp, proto, "shift", func(this value.Value, _ []value.Value) (value.Value, error) {
		a := this.Object()
		if len(a.Elements) == 0 {
			return value.Undefined, nil
		}
		v := a.Elements[0]
		a.Elements = a.Elements[1:]
		return v, nil
	})
	defineMethod(interp, proto, "unshift", func(this value.Value, args []value.Value) (value.Value, error) {
		a := this.Object()
		a.Elements = append(append([]value.Value{}, args...), a.Elements...)
		return value.Number(float64(len(a.Elements))), nil
	})
	defineMethod(interp, proto, "slice", func(this value.Value, args []value.Value) (value.Value, error) {
		a := this.Object()
		start, end := sliceBounds(args, len(a.Elements))
		out := append([]value.Value{}, a.Elements[start:end]...)
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), out))), nil
	})
	defineMethod(interp, proto, "splice", func(this value.Value, args []value.Value) (value.Value, error) {
		a := this.Object()
		n := len(a.Elements)
		start := clampIndex(int(arg(args, 0).ToNumber()), n)
		delCount := n - start
		if len(args) > 1 {
			delCount = clampCount(int(arg(args, 1).ToNumber()), n-start)
		}
		removed := append([]value.Value{}, a.Elements[start:start+delCount]...)
		var ins []value.Value
		if len(args) > 2 {
			ins = args[2:]
		}
		tail := append([]value.Value{}, a.Elements[start+delCount:]...)
		a.Elements = append(append(a.Elements[:start], ins...), tail...)
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), removed))), nil
	})
	defineMethod(interp, proto, "concat", func(this value.Value, args []value.Value) (value.Value, error) {
		out := append([]value.Value{}, this.Object().Elements...)
		for _, a := range args {
			if a.IsObject() && a.Object().Kind == value.KindArray {
				out = append(out, a.Object().Elements...)
			} else {
				out = append(out, a)
			}
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), out))), nil
	})
	defineMethod(interp, proto, "join", func(this value.Value, args []value.Value) (value.Value, error) {
		sep := ","
		if s := arg(args, 0); !s.IsUndefined() {
			sep = s.ToString()
		}
		parts := make([]string, len(this.Object().Elements))
		for i, e := range this.Object().Elements {
			if e.IsNullish() {
				parts[i] = ""
			} else {
				parts[i] = e.ToString()
			}
		}
		return value.String(strings.Join(parts, sep)), nil
	})
	defineMethod(interp, proto, "reverse", func(this value.Value, _ []value.Value) (value.Value, error) {
		a := this.Object()
		for i, j := 0, len(a.Elements)-1; i < j; i, j = i+1, j-1 {
			a.Elements[i], a.Elements[j] = a.Elements[j], a.Elements[i]
		}
		return this, nil
	})
	defineMethod(interp, proto, "indexOf", func(this value.Value, args []value.Value) (value.Value, error) {
		target := arg(args, 0)
		for i, e := range this.Object().Elements {
			if value.StrictEquals(e, target) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	})
	defineMethod(interp, proto, "lastIndexOf", func(this value.Value, args []value.Value) (value.Value, error) {
		target := arg(args, 0)
		els := this.Object().Elements
		for i := len(els) - 1; i >= 0; i-- {
			if value.StrictEquals(els[i], target) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	})
	defineMethod(interp, proto, "includes", func(this value.Value, args []value.Value) (value.Value, error) {
		target := arg(args, 0)
		for _, e := range this.Object().Elements {
			if value.SameValueZero(e, target) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})
	defineMethod(interp, proto, "fill", func(this value.Value, args []value.Value) (value.Value, error) {
		a := this.Object()
		v := arg(args, 0)
		start, end := sliceBounds(args[min(1, len(args)):], len(a.Elements))
		for i := start; i < end; i++ {
			a.Elements[i] = v
		}
		return this, nil
	})
	defineMethod(interp, proto, "flat", func(this value.Value, args []value.Value) (value.Value, error) {
		depth := 1
		if d := arg(args, 0); !d.IsUndefined() {
			depth = int(d.ToNumber())
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), flatten(this.Object().Elements, depth)))), nil
	})

	defineMethod(interp, proto, "forEach", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		for i, e := range this.Object().Elements {
			if _, err := interp.Call(cb, arg(args, 1), []value.Value{e, value.Number(float64(i)), this}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "map", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		src := this.Object().Elements
		out := make([]value.Value, len(src))
		for i, e := range src {
			r, err := interp.Call(cb, arg(args, 1), []value.Value{e, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			out[i] = r
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), out))), nil
	})
	defineMethod(interp, proto, "filter", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		var out []value.Value
		for i, e := range this.Object().Elements {
			r, err := interp.Call(cb, arg(args, 1), []value.Value{e, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if r.ToBoolean() {
				out = append(out, e)
			}
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), out))), nil
	})
	defineMethod(interp, proto, "find", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		for i, e := range this.Object().Elements {
			r, err := interp.Call(cb, arg(args, 1), []value.Value{e, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if r.ToBoolean() {
				return e, nil
			}
		}
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "findIndex", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		for i, e := range this.Object().Elements {
			r, err := interp.Call(cb, arg(args, 1), []value.Value{e, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if r.ToBoolean() {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	})
	defineMethod(interp, proto, "some", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		for i, e := range this.Object().Elements {
			r, err := interp.Call(cb, arg(args, 1), []value.Value{e, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if r.ToBoolean() {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})
	defineMethod(interp, proto, "every", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		for i, e := range this.Object().Elements {
			r, err := interp.Call(cb, arg(args, 1), []value.Value{e, value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			if !r.ToBoolean() {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	})
	defineMethod(interp, proto, "reduce", func(this value.Value, args []value.Value) (value.Value, error) {
		cb := arg(args, 0)
		els := this.Object().Elements
		i := 0
		var acc value.Value
		if len(args) > 1 {
			acc = args[1]
		} else {
			if len(els) == 0 {
				return value.Undefined, interp.TypeError("Reduce of empty array with no initial value")
			}
			acc = els[0]
			i = 1
		}
		for ; i < len(els); i++ {
			r, err := interp.Call(cb, value.Undefined, []value.Value{acc, els[i], value.Number(float64(i)), this})
			if err != nil {
				return value.Undefined, err
			}
			acc = r
		}
		return acc, nil
	})
	defineMethod(interp, proto, "sort", func(this value.Value, args []value.Value) (value.Value, error) {
		a := this.Object()
		cb := arg(args, 0)
		var sortErr error
		sort.SliceStable(a.Elements, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			if cb.IsUndefined() {
				return a.Elements[i].ToString() < a.Elements[j].ToString()
			}
			r, err := interp.Call(cb, value.Undefined, []value.Value{a.Elements[i], a.Elements[j]})
			if err != nil {
				sortErr = err
				return false
			}
			return r.ToNumber() < 0
		})
		if sortErr != nil {
			return value.Undefined, sortErr
		}
		return this, nil
	})
	defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		parts := make([]string, len(this.Object().Elements))
		for i, e := range this.Object().Elements {
			if e.IsNullish() {
				parts[i] = ""
			} else {
				parts[i] = e.ToString()
			}
		}
		return value.String(strings.Join(parts, ",")), nil
	})

	ctor := native(interp, "Array", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 1 && args[0].IsNumber() {
			return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), make([]value.Value, int(args[0].Num()))))), nil
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), append([]value.Value{}, args...)))), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
	defineMethod(interp, ctor, "isArray", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		return value.Bool(v.IsObject() && v.Object().Kind == value.KindArray), nil
	})
	defineMethod(interp, ctor, "from", func(_ value.Value, args []value.Value) (value.Value, error) {
		src := arg(args, 0)
		var elems []value.Value
		if src.IsObject() && src.Object().Kind == value.KindArray {
			elems = append(elems, src.Object().Elements...)
		} else if src.IsObject() || src.IsString() {
			it, err := interp.NewIterator(src, false)
			if err == nil {
				for {
					v, done := it.IterNext()
					if done {
						break
					}
					elems = append(elems, v)
				}
			}
		}
		if cb := arg(args, 1); !cb.IsUndefined() {
			for i, e := range elems {
				r, err := interp.Call(cb, value.Undefined, []value.Value{e, value.Number(float64(i))})
				if err != nil {
					return value.Undefined, err
				}
				elems[i] = r
			}
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), elems))), nil
	})
	defineMethod(interp, ctor, "of", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), append([]value.Value{}, args...)))), nil
	})

	interp.Globals.DefineOwn("Array", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func sliceBounds(args []value.Value, n int) (int, int) {
	start, end := 0, n
	if len(args) > 0 && !args[0].IsUndefined() {
		start = clampIndex(int(args[0].ToNumber()), n)
	}
	if len(args) > 1 && !args[1].IsUndefined() {
		end = clampIndex(int(args[1].ToNumber()), n)
	}
	if end < start {
		end = start
	}
	return start, end
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func clampCount(c, max int) int {
	if c < 0 {
		return 0
	}
	if c > max {
		return max
	}
	return c
}

func flatten(els []value.Value, depth int) []value.Value {
	var out []value.Value
	for _, e := range els {
		if depth > 0 && e.IsObject() && e.Object().Kind == value.KindArray {
			out = append(out, flatten(e.Object().Elements, depth-1)...)
		} else {
			out = append(out, e)
		}
	}
	return out
}
