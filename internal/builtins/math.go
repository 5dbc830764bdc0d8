package builtins

import (
	"math"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installMath(interp *vm.Interpreter) {
	m := interp.Track(value.NewObject(interp.ObjectProto()))

	m.DefineOwn("PI", value.PropertyDescriptor{Value: value.Number(math.Pi)})
	m.DefineOwn("E", value.PropertyDescriptor{Value: value.Number(math.E)})
	m.DefineOwn("LN2", value.PropertyDescriptor{Value: value.Number(math.Ln2)})
	m.DefineOwn("LN10", value.PropertyDescriptor{Value: value.Number(math.Log(10))})
	m.DefineOwn("SQRT2", value.PropertyDescriptor{Value: value.Number(math.Sqrt2)})

	unary := func(f func(float64) float64) value.NativeFn {
		return func(_ value.Value, args []value.Value) (value.Value, error) {
			return value.Number(f(arg(args, 0).ToNumber())), nil
		}
	}
	defineMethod(interp, m, "abs", unary(math.Abs))
	defineMethod(interp, m, "floor", unary(math.Floor))
	defineMethod(interp, m, "ceil", unary(math.Ceil))
	defineMethod(interp, m, "trunc", unary(math.Trunc))
	defineMethod(interp, m, "sqrt", unary(math.Sqrt))
	defineMethod(interp, m, "cbrt", unary(math.Cbrt))
	defineMethod(interp, m, "sin", unary(math.Sin))
	defineMethod(interp, m, "cos", unary(math.Cos))
	defineMethod(interp, m, "tan", unary(math.Tan))
	defineMethod(interp, m, "log", unary(math.Log))
	defineMethod(interp, m, "log2", unary(math.Log2))
	defineMethod(interp, m, "log10", unary(math.Log10))
	defineMethod(interp, m, "exp", unary(math.Exp))
	defineMethod(interp, m, "sign", unary(func(n float64) float64 {
		switch {
		case math.IsNaN(n):
			return math.NaN()
		case n > 0:
			return 1
		case n < 0:
			return -1
		default:
			return n
		}
	}))
	defineMethod(interp, m, "round", unary(func(n float64) float64 { return math.Floor(n + 0.5) }))

	defineMethod(interp, m, "pow", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Number(math.Pow(arg(args, 0).ToNumber(), arg(args, 1).ToNumber())), nil
	})
	defineMethod(interp, m, "atan2", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Number(math.Atan2(arg(args, 0).ToNumber(), arg(args, 1).ToNumber())), nil
	})
	defineMethod(interp, m, "hypot", func(_ value.Value, args []value.Value) (value.Value, error) {
		sum := 0.0
		for _, a := range args {
			n := a.ToNumber()
			sum += n * n
		}
		return value.Number(math.Sqrt(sum)), nil
	})
	defineMethod(interp, m, "max", func(_ value.Value, args []value.Value) (value.Value, error) {
		best := math.Inf(-1)
		for _, a := range args {
			n := a.ToNumber()
			if math.IsNaN(n) {
				return value.Number(math.NaN()), nil
			}
			if n > best {
				best = n
			}
		}
		return value.Number(best), nil
	})
	defineMethod(interp, m, "min", func(_ value.Value, args []value.Value) (value.Value, error) {
		best := math.Inf(1)
		for _, a := range args {
			n := a.ToNumber()
			if math.IsNaN(n) {
				return value.Number(math.NaN()), nil
			}
			if n < best {
				best = n
			}
		}
		return value.Number(best), nil
	})
	defineMethod(interp, m, "random", func(_ value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(pseudoRandom()), nil
	})

	interp.Globals.DefineOwn("Math", value.PropertyDescriptor{Value: value.Obj(m), Writable: true, Configurable: true})
}

// pseudoRandom backs Math.random with a simple xorshift generator seeded
// once at process start — the runtime doesn't need cryptographic quality,
// just a working Math.random for scripts that use it for jitter/sampling.
var randState uint64 = 0x9e3779b97f4a7c15

func pseudoRandom() float64 {
	randState ^= randState << 13
	randState ^= randState >> 7
	randState ^= randState << 17
	return float64(randState%1_000_000_000) / 1_000_000_000
}
