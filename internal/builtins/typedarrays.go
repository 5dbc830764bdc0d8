package builtins

import (
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

type typedArrayKind struct {
	name     string
	bytesPer int
}

var typedArrayKinds = []typedArrayKind{
	{"Int8Array", 1},
	{"Uint8Array", 1},
	{"Uint8ClampedArray", 1},
	{"Int16Array", 2},
	{"Uint16Array", 2},
	{"Int32Array", 4},
	{"Uint32Array", 4},
	{"Float32Array", 4},
	{"Float64Array", 8},
}

// clamp coerces f into kind's representable range — internal/value's
// Object.Set applies the identical conversion for plain `arr[i] = v`
// indexed assignment, so every write path agrees.
func (k typedArrayKind) clamp(f float64) float64 { return value.ClampForElemKind(k.name, f) }

func installTypedArrays(interp *vm.Interpreter) {
	installArrayBuffer(interp)
	for _, kind := range typedArrayKinds {
		installTypedArrayKind(interp, kind)
	}
}

func installArrayBuffer(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	ctor := native(interp, "ArrayBuffer", func(_ value.Value, args []value.Value) (value.Value, error) {
		length := int(arg(args, 0).ToNumber())
		if length < 0 {
			length = 0
		}
		return value.Obj(interp.Track(&value.Object{Kind: value.KindArrayBuffer, Proto: proto, ByteLength: length})), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	proto.DefineOwn("byteLength", value.PropertyDescriptor{
		Get: native(interp, "", func(this value.Value, _ []value.Value) (value.Value, error) {
			return value.Number(float64(this.Object().ByteLength)), nil
		}),
		Configurable: true,
	})

	interp.Globals.DefineOwn("ArrayBuffer", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func installTypedArrayKind(interp *vm.Interpreter, kind typedArrayKind) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	makeView := func(elems []value.Value, buf *value.Object) *value.Object {
		return interp.Track(&value.Object{Kind: value.KindTypedArray, Proto: proto, Elements: elems, ElemKind: kind.name, Buffer: buf})
	}

	ctor := native(interp, kind.name, func(_ value.Value, args []value.Value) (value.Value, error) {
		src := arg(args, 0)
		switch {
		case src.IsUndefined():
			return value.Obj(makeView(nil, nil)), nil
		case src.IsNumber():
			n := int(src.Num())
			if n < 0 {
				n = 0
			}
			elems := make([]value.Value, n)
			for idx := range elems {
				elems[idx] = value.Number(0)
			}
			buf := interp.Track(&value.Object{Kind: value.KindArrayBuffer, ByteLength: n * kind.bytesPer})
			return value.Obj(makeView(elems, buf)), nil
		case src.IsObject() && src.Object().Kind == value.KindArrayBuffer:
			buf := src.Object()
			n := buf.ByteLength / kind.bytesPer
			if lenArg := arg(args, 2); !lenArg.IsUndefined() {
				n = int(lenArg.ToNumber())
			}
			elems := make([]value.Value, n)
			for idx := range elems {
				elems[idx] = value.Number(0)
			}
			return value.Obj(makeView(elems, buf)), nil
		case src.IsObject() && src.Object().Kind == value.KindArray:
			raw := src.Object().Elements
			elems := make([]value.Value, len(raw))
			for idx, v := range raw {
				elems[idx] = value.Number(kind.clamp(v.ToNumber()))
			}
			buf := interp.Track(&value.Object{Kind: value.KindArrayBuffer, ByteLength: len(elems) * kind.bytesPer})
			return value.Obj(makeView(elems, buf)), nil
		default:
			iter, err := interp.NewIterator(src, false)
			if err != nil {
				return value.Undefined, err
			}
			var elems []value.Value
			for {
				v, done := iter.IterNext()
				if done {
					break
				}
				elems = append(elems, value.Number(kind.clamp(v.ToNumber())))
			}
			buf := interp.Track(&value.Object{Kind: value.KindArrayBuffer, ByteLength: len(elems) * kind.bytesPer})
			return value.Obj(makeView(elems, buf)), nil
		}
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
	ctor.DefineOwn("BYTES_PER_ELEMENT", value.PropertyDescriptor{Value: value.Number(float64(kind.bytesPer))})

	proto.DefineOwn("length", value.PropertyDescriptor{
		Get: native(interp, "", func(this value.Value, _ []value.Value) (value.Value, error) {
			return value.Number(float64(len(this.Object().Elements))), nil
		}),
		Configurable: true,
	})
	proto.DefineOwn("buffer", value.PropertyDescriptor{
		Get: native(interp, "", func(this value.Value, _ []value.Value) (value.Value, error) {
			if b := this.Object().Buffer; b != nil {
				return value.Obj(b), nil
			}
			return value.Undefined, nil
		}),
		Configurable: true,
	})

	defineMethod(interp, proto, "set", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		offset := int(arg(args, 1).ToNumber())
		src := arg(args, 0)
		var items []value.Value
		if src.IsObject() && (src.Object().Kind == value.KindArray || src.Object().Kind == value.KindTypedArray) {
			items = src.Object().Elements
		}
		for idx, v := range items {
			if offset+idx < len(o.Elements) {
				o.Elements[offset+idx] = value.Number(kind.clamp(v.ToNumber()))
			}
		}
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "fill", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		v := value.Number(kind.clamp(arg(args, 0).ToNumber()))
		start, end := sliceBounds(args[min(1, len(args)):], len(o.Elements))
		for idx := start; idx < end; idx++ {
			o.Elements[idx] = v
		}
		return this, nil
	})
	defineMethod(interp, proto, "slice", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		start, end := sliceBounds(args, len(o.Elements))
		out := append([]value.Value{}, o.Elements[start:end]...)
		return value.Obj(makeView(out, nil)), nil
	})
	defineMethod(interp, proto, "at", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		i := int(arg(args, 0).ToNumber())
		if i < 0 {
			i += len(o.Elements)
		}
		if i < 0 || i >= len(o.Elements) {
			return value.Undefined, nil
		}
		return o.Elements[i], nil
	})
	defineMethod(interp, proto, "indexOf", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		target := arg(args, 0)
		for idx, v := range o.Elements {
			if value.StrictEquals(v, target) {
				return value.Number(float64(idx)), nil
			}
		}
		return value.Number(-1), nil
	})
	defineMethod(interp, proto, "includes", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		target := arg(args, 0)
		for _, v := range o.Elements {
			if value.SameValueZero(v, target) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	})
	defineMethod(interp, proto, "join", func(this value.Value, args []value.Value) (value.Value, error) {
		sep := ","
		if s := arg(args, 0); !s.IsUndefined() {
			sep = s.ToString()
		}
		o := this.Object()
		strs := make([]string, len(o.Elements))
		for idx, v := range o.Elements {
			strs[idx] = v.ToString()
		}
		return value.String(joinWith(strs, sep)), nil
	})
	defineMethod(interp, proto, "forEach", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		cb := arg(args, 0)
		for idx, v := range o.Elements {
			if _, err := interp.Call(cb, value.Undefined, []value.Value{v, value.Number(float64(idx)), this}); err != nil {
				return value.Undefined, err
			}
		}
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "map", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		cb := arg(args, 0)
		out := make([]value.Value, len(o.Elements))
		for idx, v := range o.Elements {
			r, err := interp.Call(cb, value.Undefined, []value.Value{v, value.Number(float64(idx)), this})
			if err != nil {
				return value.Undefined, err
			}
			out[idx] = value.Number(kind.clamp(r.ToNumber()))
		}
		return value.Obj(makeView(out, nil)), nil
	})
	defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		o := this.Object()
		strs := make([]string, len(o.Elements))
		for idx, v := range o.Elements {
			strs[idx] = v.ToString()
		}
		return value.String(joinWith(strs, ",")), nil
	})

	interp.Globals.DefineOwn(kind.name, value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func joinWith(parts []string, sep string) string {
	out := ""
	for idx, p := range parts {
		if idx > 0 {
			out += sep
		}
		out += p
	}
	return out
}
