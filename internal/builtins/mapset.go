package builtins

import (
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func sameValueZeroIndex(keys []value.Value, k value.Value) int {
	for idx, existing := range keys {
		if value.SameValueZero(existing, k) {
			return idx
		}
	}
	return -1
}

func installMapSet(interp *vm.Interpreter) {
	installMap(interp)
	installSet(interp)
	installWeakMap(interp)
	installWeakSet(interp)
}

func seedFromIterable(interp *vm.Interpreter, obj *value.Object, init value.Value, pairs bool) error {
	if init.IsUndefined() || init.IsNull() {
		return nil
	}
	iter, err := interp.NewIterator(init, false)
	if err != nil {
		return err
	}
	for {
		v, done := iter.IterNext()
		if done {
			return nil
		}
		if pairs {
			k := value.Undefined
			val := value.Undefined
			if v.IsObject() {
				k, _ = v.Object().Get("0")
				val, _ = v.Object().Get("1")
			}
			idx := sameValueZeroIndex(obj.MapKeys, k)
			if idx >= 0 {
				obj.MapValues[idx] = val
			} else {
				obj.MapKeys = append(obj.MapKeys, k)
				obj.MapValues = append(obj.MapValues, val)
			}
		} else {
			if sameValueZeroIndex(obj.MapKeys, v) < 0 {
				obj.MapKeys = append(obj.MapKeys, v)
				obj.MapValues = append(obj.MapValues, v)
			}
		}
	}
}

func installMap(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	ctor := native(interp, "Map", func(this value.Value, args []value.Value) (value.Value, error) {
		obj := interp.Track(&value.Object{Kind: value.KindMap, Proto: proto})
		if err := seedFromIterable(interp, obj, arg(args, 0), true); err != nil {
			return value.Undefined, err
		}
		return value.Obj(obj), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, proto, "get", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		if idx := sameValueZeroIndex(o.MapKeys, arg(args, 0)); idx >= 0 {
			return o.MapValues[idx], nil
		}
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "set", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		k, v := arg(args, 0), arg(args, 1)
		if idx := sameValueZeroIndex(o.MapKeys, k); idx >= 0 {
			o.MapValues[idx] = v
		} else {
			o.MapKeys = append(o.MapKeys, k)
			o.MapValues = append(o.MapValues, v)
		}
		return this, nil
	})
	defineMethod(interp, proto, "has", func(this value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(sameValueZeroIndex(this.Object().MapKeys, arg(args, 0)) >= 0), nil
	})
	defineMethod(interp, proto, "delete", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		idx := sameValueZeroIndex(o.MapKeys, arg(args, 0))
		if idx < 0 {
			return value.Bool(false), nil
		}
		o.MapKeys = append(o.MapKeys[:idx], o.MapKeys[idx+1:]...)
		o.MapValues = append(o.MapValues[:idx], o.MapValues[idx+1:]...)
		return value.Bool(true), nil
	})
	defineMethod(interp, proto, "clear", func(this value.Value, _ []value.Value) (value.Value, error) {
		o := this.Object()
		o.MapKeys, o.MapValues = nil, nil
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "forEach", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		cb := arg(args, 0)
		for idx := 0; idx < len(o.MapKeys); idx++ {
			if _, err := interp.Call(cb, value.Undefined, []value.Value{o.MapValues[idx], o.MapKeys[idx], this}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "keys", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Obj(sliceIterator(interp, this.Object().MapKeys)), nil
	})
	defineMethod(interp, proto, "values", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Obj(sliceIterator(interp, this.Object().MapValues)), nil
	})
	defineMethod(interp, proto, "entries", func(this value.Value, _ []value.Value) (value.Value, error) {
		o := this.Object()
		pairs := make([]value.Value, len(o.MapKeys))
		for idx := range o.MapKeys {
			pairs[idx] = value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), []value.Value{o.MapKeys[idx], o.MapValues[idx]})))
		}
		return value.Obj(sliceIterator(interp, pairs)), nil
	})
	proto.DefineOwn("size", value.PropertyDescriptor{
		Get: native(interp, "", func(this value.Value, _ []value.Value) (value.Value, error) {
			return value.Number(float64(len(this.Object().MapKeys))), nil
		}),
		Configurable: true,
	})

	interp.Globals.DefineOwn("Map", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func installSet(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	ctor := native(interp, "Set", func(this value.Value, args []value.Value) (value.Value, error) {
		obj := interp.Track(&value.Object{Kind: value.KindSet, Proto: proto})
		if err := seedFromIterable(interp, obj, arg(args, 0), false); err != nil {
			return value.Undefined, err
		}
		return value.Obj(obj), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, proto, "add", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		v := arg(args, 0)
		if sameValueZeroIndex(o.MapKeys, v) < 0 {
			o.MapKeys = append(o.MapKeys, v)
			o.MapValues = append(o.MapValues, v)
		}
		return this, nil
	})
	defineMethod(interp, proto, "has", func(this value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(sameValueZeroIndex(this.Object().MapKeys, arg(args, 0)) >= 0), nil
	})
	defineMethod(interp, proto, "delete", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		idx := sameValueZeroIndex(o.MapKeys, arg(args, 0))
		if idx < 0 {
			return value.Bool(false), nil
		}
		o.MapKeys = append(o.MapKeys[:idx], o.MapKeys[idx+1:]...)
		o.MapValues = append(o.MapValues[:idx], o.MapValues[idx+1:]...)
		return value.Bool(true), nil
	})
	defineMethod(interp, proto, "clear", func(this value.Value, _ []value.Value) (value.Value, error) {
		o := this.Object()
		o.MapKeys, o.MapValues = nil, nil
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "forEach", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		cb := arg(args, 0)
		for _, v := range o.MapKeys {
			if _, err := interp.Call(cb, value.Undefined, []value.Value{v, v, this}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "values", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Obj(sliceIterator(interp, this.Object().MapKeys)), nil
	})
	if d, ok := proto.GetOwn("values"); ok {
		proto.DefineOwn("keys", *d)
	}
	proto.DefineOwn("size", value.PropertyDescriptor{
		Get: native(interp, "", func(this value.Value, _ []value.Value) (value.Value, error) {
			return value.Number(float64(len(this.Object().MapKeys))), nil
		}),
		Configurable: true,
	})

	interp.Globals.DefineOwn("Set", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func installWeakMap(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	ctor := native(interp, "WeakMap", func(this value.Value, args []value.Value) (value.Value, error) {
		obj := interp.Track(&value.Object{Kind: value.KindMap, Proto: proto, Weak: true})
		if err := seedFromIterable(interp, obj, arg(args, 0), true); err != nil {
			return value.Undefined, err
		}
		return value.Obj(obj), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, proto, "get", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		if idx := sameValueZeroIndex(o.MapKeys, arg(args, 0)); idx >= 0 {
			return o.MapValues[idx], nil
		}
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "set", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		k := arg(args, 0)
		if !k.IsObject() {
			return value.Undefined, interp.ThrowValue(interp.NewErrorValue("TypeError", "Invalid value used as weak map key"))
		}
		v := arg(args, 1)
		if idx := sameValueZeroIndex(o.MapKeys, k); idx >= 0 {
			o.MapValues[idx] = v
		} else {
			o.MapKeys = append(o.MapKeys, k)
			o.MapValues = append(o.MapValues, v)
		}
		return this, nil
	})
	defineMethod(interp, proto, "has", func(this value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(sameValueZeroIndex(this.Object().MapKeys, arg(args, 0)) >= 0), nil
	})
	defineMethod(interp, proto, "delete", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		idx := sameValueZeroIndex(o.MapKeys, arg(args, 0))
		if idx < 0 {
			return value.Bool(false), nil
		}
		o.MapKeys[idx] = value.Undefined
		o.MapValues[idx] = value.Undefined
		return value.Bool(true), nil
	})

	interp.Globals.DefineOwn("WeakMap", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func installWeakSet(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	ctor := native(interp, "WeakSet", func(this value.Value, args []value.Value) (value.Value, error) {
		obj := interp.Track(&value.Object{Kind: value.KindSet, Proto: proto, Weak: true})
		if err := seedFromIterable(interp, obj, arg(args, 0), false); err != nil {
			return value.Undefined, err
		}
		return value.Obj(obj), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, proto, "add", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		v := arg(args, 0)
		if !v.IsObject() {
			return value.Undefined, interp.ThrowValue(interp.NewErrorValue("TypeError", "Invalid value used in weak set"))
		}
		if sameValueZeroIndex(o.MapKeys, v) < 0 {
			o.MapKeys = append(o.MapKeys, v)
			o.MapValues = append(o.MapValues, v)
		}
		return this, nil
	})
	defineMethod(interp, proto, "has", func(this value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(sameValueZeroIndex(this.Object().MapKeys, arg(args, 0)) >= 0), nil
	})
	defineMethod(interp, proto, "delete", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		idx := sameValueZeroIndex(o.MapKeys, arg(args, 0))
		if idx < 0 {
			return value.Bool(false), nil
		}
		o.MapKeys[idx] = value.Undefined
		o.MapValues[idx] = value.Undefined
		return value.Bool(true), nil
	})

	interp.Globals.DefineOwn("WeakSet", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func sliceIterator(interp *vm.Interpreter, items []value.Value) *value.Object {
	idx := 0
	iter := interp.Track(&value.Object{Kind: value.KindIterator, Proto: interp.ObjectProto(), IterNext: func() (value.Value, bool) {
		for idx < len(items) {
			v := items[idx]
			idx++
			if v.IsUndefined() {
				continue
			}
			return v, false
		}
		return value.Undefined, true
	}})
	next := native(interp, "next", func(_ value.Value, _ []value.Value) (value.Value, error) {
		v, done := iter.IterNext()
		res := interp.Track(value.NewObject(interp.ObjectProto()))
		res.Set("value", v)
		res.Set("done", value.Bool(done))
		return value.Obj(res), nil
	})
	iter.DefineOwn("next", value.PropertyDescriptor{Value: value.Obj(next), Writable: true, Configurable: true})
	return iter
}
