// Package builtins installs the ECMAScript intrinsics of spec.md §4.7 onto
// a freshly constructed internal/vm.Interpreter: console, Math, JSON,
// Date, Array, Object, String, Number, Boolean, Map, Set, RegExp, the
// Error family, Promise, typed arrays/ArrayBuffer, URL/URLSearchParams,
// TextEncoder/TextDecoder, and timers. Each is installed by direct
// Globals.DefineOwn calls, the same pattern the teacher uses to build up
// its own tool/agent namespace at startup.
package builtins

import (
	"jsvm/internal/eventloop"
	"jsvm/internal/logging"
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

// Install wires every intrinsic onto interp's global object. loop may be
// nil for embeddings that never need timers (a pure expression evaluator);
// everything else always installs.
func Install(interp *vm.Interpreter, loop *eventloop.Loop) {
	log := logging.Get(logging.CategoryBuiltins)
	log.Info("installing builtins")

	installConsole(interp)
	installMath(interp)
	installJSON(interp)
	installObject(interp)
	installArray(interp)
	installString(interp)
	installNumber(interp)
	installBigInt(interp)
	installBoolean(interp)
	installDate(interp)
	installMapSet(interp)
	installRegExp(interp)
	installErrors(interp)
	installPromise(interp)
	installTypedArrays(interp)
	installTextEncoding(interp)
	installURL(interp)
	installProcess(interp)
	if loop != nil {
		installTimers(interp, loop)
	}
}

// native builds a KindNativeFunction object ready to DefineOwn onto a
// namespace or prototype.
func native(interp *vm.Interpreter, name string, fn value.NativeFn) *value.Object {
	o := interp.Track(&value.Object{Kind: value.KindNativeFunction, Proto: interp.FunctionProto(), Name: name, Native: fn})
	o.DefineOwn("name", value.PropertyDescriptor{Value: value.String(name), Configurable: true})
	return o
}

func defineMethod(interp *vm.Interpreter, on *value.Object, name string, fn value.NativeFn) {
	on.DefineOwn(name, value.PropertyDescriptor{Value: value.Obj(native(interp, name, fn)), Writable: true, Configurable: true})
}

func defineGlobalFunc(interp *vm.Interpreter, name string, fn value.NativeFn) {
	interp.Globals.DefineOwn(name, value.PropertyDescriptor{Value: value.Obj(native(interp, name, fn)), Writable: true, Configurable: true})
}

func arg(args []value.Value, n int) value.Value {
	if n < len(args) {
		return args[n]
	}
	return value.Undefined
}
