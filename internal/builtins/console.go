package builtins

import (
	"fmt"
	"strings"

	"jsvm/internal/logging"
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installConsole(interp *vm.Interpreter) {
	console := interp.Track(value.NewObject(interp.ObjectProto()))
	log := logging.Get(logging.CategoryBuiltins)

	write := func(level string) value.NativeFn {
		return func(_ value.Value, args []value.Value) (value.Value, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = inspect(a, map[*value.Object]bool{})
			}
			line := strings.Join(parts, " ")
			fmt.Println(line)
			log.WithFields(logging.LevelInfo, line, map[string]interface{}{"level": level})
			return value.Undefined, nil
		}
	}

	defineMethod(interp, console, "log", write("log"))
	defineMethod(interp, console, "info", write("info"))
	defineMethod(interp, console, "warn", write("warn"))
	defineMethod(interp, console, "error", write("error"))
	defineMethod(interp, console, "debug", write("debug"))

	interp.Globals.DefineOwn("console", value.PropertyDescriptor{Value: value.Obj(console), Writable: true, Configurable: true})
}

// inspect renders a value the way a console transcript would, handling
// object/array cycles with a visited set rather than a depth cap.
func inspect(v value.Value, seen map[*value.Object]bool) string {
	if v.IsString() {
		return v.Str()
	}
	if v.IsBigInt() {
		return v.ToString() + "n"
	}
	if !v.IsObject() {
		return v.ToString()
	}
	o := v.Object()
	if seen[o] {
		return "[Circular]"
	}
	switch o.Kind {
	case value.KindArray:
		seen[o] = true
		parts := make([]string, len(o.Elements))
		for i, e := range o.Elements {
			parts[i] = inspectQuoted(e, seen)
		}
		delete(seen, o)
		return "[ " + strings.Join(parts, ", ") + " ]"
	case value.KindFunction, value.KindNativeFunction:
		return "[Function: " + nameOr(o.Name, "anonymous") + "]"
	case value.KindClass:
		return "[class " + nameOr(o.Name, "anonymous") + "]"
	case value.KindError:
		return o.ToStringTag()
	default:
		seen[o] = true
		keys := o.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			d, _ := o.GetOwn(k)
			parts[i] = k + ": " + inspectQuoted(d.Value, seen)
		}
		delete(seen, o)
		return "{ " + strings.Join(parts, ", ") + " }"
	}
}

func inspectQuoted(v value.Value, seen map[*value.Object]bool) string {
	if v.IsString() {
		return "'" + v.Str() + "'"
	}
	return inspect(v, seen)
}

func nameOr(n, fallback string) string {
	if n == "" {
		return fallback
	}
	return n
}
