package builtins

import (
	"strings"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

var errorKinds = []string{"Error", "TypeError", "RangeError", "ReferenceError", "SyntaxError", "PermissionDenied"}

func installErrors(interp *vm.Interpreter) {
	objectProto := interp.ObjectProto()

	protoFor := func(name string) *value.Object {
		proto := interp.Track(value.NewObject(objectProto))
		proto.DefineOwn("name", value.PropertyDescriptor{Value: value.String(name), Writable: true, Configurable: true})
		proto.DefineOwn("message", value.PropertyDescriptor{Value: value.String(""), Writable: true, Configurable: true})
		defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
			obj := this.Object()
			n := name
			if v, ok := obj.Get("name"); ok && v.IsString() {
				n = v.Str()
			}
			msg := obj.ErrorMessage
			if msg == "" {
				return value.String(n), nil
			}
			return value.String(n + ": " + msg), nil
		})
		return proto
	}

	for _, name := range errorKinds {
		name := name
		proto := protoFor(name)
		interp.SetErrorProto(name, proto)

		ctor := native(interp, name, func(this value.Value, args []value.Value) (value.Value, error) {
			msg := ""
			if m := arg(args, 0); !m.IsUndefined() {
				msg = m.ToString()
			}
			target := proto
			if this.IsObject() && this.Object().Kind == value.KindError {
				target = this.Object().Proto
			}
			obj := interp.Track(&value.Object{Kind: value.KindError, Proto: target, ErrorName: name, ErrorMessage: msg})
			obj.Stack = []string{name + ": " + msg}
			return value.Obj(obj), nil
		})
		ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
		proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

		interp.Globals.DefineOwn(name, value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
	}

	errProto := interp.ErrorProto("Error")
	defineMethod(interp, errProto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		obj := this.Object()
		n := "Error"
		if v, ok := obj.Get("name"); ok && v.IsString() {
			n = v.Str()
		}
		if obj.ErrorMessage == "" {
			return value.String(n), nil
		}
		return value.String(strings.Join([]string{n, obj.ErrorMessage}, ": ")), nil
	})
}
