package builtins

import (
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installBoolean(interp *vm.Interpreter) {
	proto := interp.BooleanProto()

	defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(this.ToString()), nil
	})
	defineMethod(interp, proto, "valueOf", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Bool(this.ToBoolean()), nil
	})

	ctor := native(interp, "Boolean", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(arg(args, 0).ToBoolean()), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	interp.Globals.DefineOwn("Boolean", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}
