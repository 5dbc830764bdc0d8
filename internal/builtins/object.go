package builtins

import (
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installObject(interp *vm.Interpreter) {
	proto := interp.ObjectProto()

	defineMethod(interp, proto, "hasOwnProperty", func(this value.Value, args []value.Value) (value.Value, error) {
		if !this.IsObject() {
			return value.Bool(false), nil
		}
		return value.Bool(this.Object().HasOwn(toKey(arg(args, 0)))), nil
	})
	defineMethod(interp, proto, "isPrototypeOf", func(this value.Value, args []value.Value) (value.Value, error) {
		target := arg(args, 0)
		if !this.IsObject() || !target.IsObject() {
			return value.Bool(false), nil
		}
		for cur := target.Object().Proto; cur != nil; cur = cur.Proto {
			if cur == this.Object() {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})
	defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(this.ToString()), nil
	})
	defineMethod(interp, proto, "valueOf", func(this value.Value, _ []value.Value) (value.Value, error) {
		return this, nil
	})

	ctor := native(interp, "Object", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		if v.IsObject() {
			return v, nil
		}
		return value.Obj(interp.Track(value.NewObject(interp.ObjectProto()))), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, ctor, "keys", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), stringValues(ownKeys(arg(args, 0)))))), nil
	})
	defineMethod(interp, ctor, "values", func(_ value.Value, args []value.Value) (value.Value, error) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), nil))), nil
		}
		var out []value.Value
		for _, k := range ownKeys(o) {
			if d, ok := o.Object().GetOwn(k); ok {
				out = append(out, d.Value)
			}
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), out))), nil
	})
	defineMethod(interp, ctor, "entries", func(_ value.Value, args []value.Value) (value.Value, error) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), nil))), nil
		}
		var out []value.Value
		for _, k := range ownKeys(o) {
			if d, ok := o.Object().GetOwn(k); ok {
				out = append(out, value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), []value.Value{value.String(k), d.Value}))))
			}
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), out))), nil
	})
	defineMethod(interp, ctor, "assign", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 || !args[0].IsObject() {
			return arg(args, 0), nil
		}
		dst := args[0].Object()
		for _, src := range args[1:] {
			if !src.IsObject() {
				continue
			}
			for _, k := range ownKeys(src) {
				if d, ok := src.Object().GetOwn(k); ok {
					dst.Set(k, d.Value)
				}
			}
		}
		return args[0], nil
	})
	defineMethod(interp, ctor, "freeze", func(_ value.Value, args []value.Value) (value.Value, error) {
		if v := arg(args, 0); v.IsObject() {
			v.Object().Frozen = true
			v.Object().Extensible = false
		}
		return arg(args, 0), nil
	})
	defineMethod(interp, ctor, "isFrozen", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		return value.Bool(!v.IsObject() || v.Object().Frozen), nil
	})
	defineMethod(interp, ctor, "create", func(_ value.Value, args []value.Value) (value.Value, error) {
		var proto *value.Object
		if p := arg(args, 0); p.IsObject() {
			proto = p.Object()
		}
		o := interp.Track(value.NewObject(proto))
		if props := arg(args, 1); props.IsObject() {
			for _, k := range ownKeys(props) {
				if d, ok := props.Object().GetOwn(k); ok && d.Value.IsObject() {
					applyDescriptor(o, k, d.Value.Object())
				}
			}
		}
		return value.Obj(o), nil
	})
	defineMethod(interp, ctor, "getPrototypeOf", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		if !v.IsObject() || v.Object().Proto == nil {
			return value.Null, nil
		}
		return value.Obj(v.Object().Proto), nil
	})
	defineMethod(interp, ctor, "setPrototypeOf", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		if !v.IsObject() {
			return v, nil
		}
		var proto *value.Object
		if p := arg(args, 1); p.IsObject() {
			proto = p.Object()
		}
		if err := v.Object().SetPrototype(proto); err != nil {
			return value.Undefined, interp.TypeError("%s", err.Error())
		}
		return v, nil
	})
	defineMethod(interp, ctor, "defineProperty", func(_ value.Value, args []value.Value) (value.Value, error) {
		o := arg(args, 0)
		if !o.IsObject() {
			return value.Undefined, interp.TypeError("Object.defineProperty called on non-object")
		}
		key := toKey(arg(args, 1))
		desc := arg(args, 2)
		if desc.IsObject() {
			applyDescriptor(o.Object(), key, desc.Object())
		}
		return o, nil
	})
	defineMethod(interp, ctor, "fromEntries", func(_ value.Value, args []value.Value) (value.Value, error) {
		o := interp.Track(value.NewObject(interp.ObjectProto()))
		it, err := interp.NewIterator(arg(args, 0), false)
		if err != nil {
			return value.Undefined, err
		}
		for {
			v, done := it.IterNext()
			if done {
				break
			}
			if !v.IsObject() || len(v.Object().Elements) < 2 {
				continue
			}
			o.Set(v.Object().Elements[0].ToString(), v.Object().Elements[1])
		}
		return value.Obj(o), nil
	})

	interp.Globals.DefineOwn("Object", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func toKey(v value.Value) string { return v.ToString() }

func ownKeys(v value.Value) []string {
	if !v.IsObject() {
		return nil
	}
	o := v.Object()
	var keys []string
	if o.Kind == value.KindArray {
		for idx := range o.Elements {
			keys = append(keys, itoaKey(idx))
		}
	}
	return append(keys, o.Keys()...)
}

func itoaKey(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func stringValues(ss []string) []value.Value {
	out := make([]value.Value, len(ss))
	for i, s := range ss {
		out[i] = value.String(s)
	}
	return out
}

func applyDescriptor(o *value.Object, key string, desc *value.Object) {
	pd := value.PropertyDescriptor{Enumerable: false, Writable: false, Configurable: false}
	if existing, ok := o.GetOwn(key); ok {
		pd = *existing
	}
	if v, ok := desc.GetOwn("value"); ok {
		pd.Value = v.Value
	}
	if v, ok := desc.GetOwn("writable"); ok {
		pd.Writable = v.Value.ToBoolean()
	}
	if v, ok := desc.GetOwn("enumerable"); ok {
		pd.Enumerable = v.Value.ToBoolean()
	}
	if v, ok := desc.GetOwn("configurable"); ok {
		pd.Configurable = v.Value.ToBoolean()
	}
	if v, ok := desc.GetOwn("get"); ok && v.Value.IsObject() {
		pd.Get = v.Value.Object()
	}
	if v, ok := desc.GetOwn("set"); ok && v.Value.IsObject() {
		pd.Set = v.Value.Object()
	}
	o.DefineOwn(key, pd)
}
