package builtins

import (
	"unicode/utf16"
	"unicode/utf8"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installTextEncoding(interp *vm.Interpreter) {
	installTextEncoder(interp)
	installTextDecoder(interp)
}

func installTextEncoder(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	ctor := native(interp, "TextEncoder", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Obj(interp.Track(&value.Object{Kind: value.KindOrdinary, Proto: proto})), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
	proto.DefineOwn("encoding", value.PropertyDescriptor{Value: value.String("utf-8")})

	defineMethod(interp, proto, "encode", func(_ value.Value, args []value.Value) (value.Value, error) {
		s := arg(args, 0).ToString()
		bytes := []byte(s)
		elems := make([]value.Value, len(bytes))
		for idx, b := range bytes {
			elems[idx] = value.Number(float64(b))
		}
		buf := interp.Track(&value.Object{Kind: value.KindArrayBuffer, ByteLength: len(bytes)})
		view := interp.Track(&value.Object{Kind: value.KindTypedArray, ElemKind: "Uint8Array", Elements: elems, Buffer: buf})
		return value.Obj(view), nil
	})

	interp.Globals.DefineOwn("TextEncoder", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func installTextDecoder(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	ctor := native(interp, "TextDecoder", func(this value.Value, args []value.Value) (value.Value, error) {
		enc := "utf-8"
		if e := arg(args, 0); !e.IsUndefined() {
			enc = e.ToString()
		}
		obj := interp.Track(&value.Object{Kind: value.KindOrdinary, Proto: proto})
		obj.Set("encoding", value.String(enc))
		return value.Obj(obj), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, proto, "decode", func(_ value.Value, args []value.Value) (value.Value, error) {
		src := arg(args, 0)
		if !src.IsObject() {
			return value.String(""), nil
		}
		elems := src.Object().Elements
		bytes := make([]byte, 0, len(elems))
		for _, v := range elems {
			n := int(v.ToNumber())
			if n < 0 {
				n = 0
			}
			if n > 255 {
				n = 255
			}
			bytes = append(bytes, byte(n))
		}
		if !utf8.Valid(bytes) {
			repaired := utf16.Decode(bytesToUint16(bytes))
			return value.String(string(repaired)), nil
		}
		return value.String(string(bytes)), nil
	})

	interp.Globals.DefineOwn("TextDecoder", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func bytesToUint16(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return out
}
