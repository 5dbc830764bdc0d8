package builtins

import (
	"os"
	"time"

	"jsvm/internal/compiler"
	"jsvm/internal/parser"
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

// installProcess wires process.env (capability-gated per variable) and a
// performance.now()/eval() pair gated on hires_time_allowed and
// dynamic_code_allowed respectively, per spec.md §4.8.
func installProcess(interp *vm.Interpreter) {
	proc := interp.Track(value.NewObject(interp.ObjectProto()))
	env := interp.Track(value.NewObject(interp.ObjectProto()))

	defineMethod(interp, env, "get", func(_ value.Value, args []value.Value) (value.Value, error) {
		name := arg(args, 0).ToString()
		if err := interp.Capability.CheckEnv(name); err != nil {
			return value.Undefined, interp.CheckCapability(err)
		}
		v, ok := os.LookupEnv(name)
		if !ok {
			return value.Undefined, nil
		}
		return value.String(v), nil
	})
	proc.DefineOwn("env", value.PropertyDescriptor{Value: value.Obj(env)})

	interp.Globals.DefineOwn("process", value.PropertyDescriptor{Value: value.Obj(proc), Writable: true, Configurable: true})

	perf := interp.Track(value.NewObject(interp.ObjectProto()))
	defineMethod(interp, perf, "now", func(_ value.Value, _ []value.Value) (value.Value, error) {
		if err := interp.Capability.CheckHiresTime(); err != nil {
			return value.Undefined, interp.CheckCapability(err)
		}
		return value.Number(float64(time.Now().UnixNano()) / 1e6), nil
	})
	interp.Globals.DefineOwn("performance", value.PropertyDescriptor{Value: value.Obj(perf), Writable: true, Configurable: true})

	defineGlobalFunc(interp, "gc", func(_ value.Value, _ []value.Value) (value.Value, error) {
		stats := interp.CollectGarbage()
		report := interp.Track(value.NewObject(interp.ObjectProto()))
		report.Set("marked", value.Number(float64(stats.Marked)))
		report.Set("swept", value.Number(float64(stats.Swept)))
		report.Set("total", value.Number(float64(stats.Total)))
		return value.Obj(report), nil
	})

	defineGlobalFunc(interp, "eval", func(_ value.Value, args []value.Value) (value.Value, error) {
		src := arg(args, 0)
		if !src.IsString() {
			return src, nil
		}
		if err := interp.Capability.CheckDynamicCode(); err != nil {
			return value.Undefined, interp.CheckCapability(err)
		}
		prog, errs := parser.Parse(src.Str())
		if len(errs) > 0 {
			return value.Undefined, interp.ThrowValue(interp.NewErrorValue("SyntaxError", errs[0].Error()))
		}
		chunk, cerrs := compiler.Compile(prog)
		if len(cerrs) > 0 {
			return value.Undefined, interp.ThrowValue(interp.NewErrorValue("SyntaxError", cerrs[0].Error()))
		}
		return interp.Run(chunk)
	})
}
