package builtins

import (
	"math"
	"strconv"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installNumber(interp *vm.Interpreter) {
	proto := interp.NumberProto()

	defineMethod(interp, proto, "toFixed", func(this value.Value, args []value.Value) (value.Value, error) {
		digits := int(arg(args, 0).ToNumber())
		return value.String(strconv.FormatFloat(this.ToNumber(), 'f', digits, 64)), nil
	})
	defineMethod(interp, proto, "toPrecision", func(this value.Value, args []value.Value) (value.Value, error) {
		p := arg(args, 0)
		if p.IsUndefined() {
			return value.String(this.ToString()), nil
		}
		return value.String(strconv.FormatFloat(this.ToNumber(), 'g', int(p.ToNumber()), 64)), nil
	})
	defineMethod(interp, proto, "toString", func(this value.Value, args []value.Value) (value.Value, error) {
		radix := 10
		if r := arg(args, 0); !r.IsUndefined() {
			radix = int(r.ToNumber())
		}
		if radix == 10 {
			return value.String(this.ToString()), nil
		}
		return value.String(strconv.FormatInt(int64(this.ToNumber()), radix)), nil
	})
	defineMethod(interp, proto, "valueOf", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(this.ToNumber()), nil
	})

	ctor := native(interp, "Number", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(0), nil
		}
		return value.Number(args[0].ToNumber()), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	ctor.DefineOwn("MAX_SAFE_INTEGER", value.PropertyDescriptor{Value: value.Number(9007199254740991)})
	ctor.DefineOwn("MIN_SAFE_INTEGER", value.PropertyDescriptor{Value: value.Number(-9007199254740991)})
	ctor.DefineOwn("MAX_VALUE", value.PropertyDescriptor{Value: value.Number(math.MaxFloat64)})
	ctor.DefineOwn("MIN_VALUE", value.PropertyDescriptor{Value: value.Number(math.SmallestNonzeroFloat64)})
	ctor.DefineOwn("EPSILON", value.PropertyDescriptor{Value: value.Number(2.220446049250313e-16)})
	ctor.DefineOwn("POSITIVE_INFINITY", value.PropertyDescriptor{Value: value.Number(math.Inf(1))})
	ctor.DefineOwn("NEGATIVE_INFINITY", value.PropertyDescriptor{Value: value.Number(math.Inf(-1))})
	ctor.DefineOwn("NaN", value.PropertyDescriptor{Value: value.Number(math.NaN())})

	defineMethod(interp, ctor, "isInteger", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		return value.Bool(v.IsNumber() && v.Num() == math.Trunc(v.Num()) && !math.IsInf(v.Num(), 0)), nil
	})
	defineMethod(interp, ctor, "isFinite", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		return value.Bool(v.IsNumber() && !math.IsNaN(v.Num()) && !math.IsInf(v.Num(), 0)), nil
	})
	defineMethod(interp, ctor, "isNaN", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		return value.Bool(v.IsNumber() && math.IsNaN(v.Num())), nil
	})
	defineMethod(interp, ctor, "parseFloat", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Number(parseFloatPrefix(arg(args, 0).ToString())), nil
	})
	defineMethod(interp, ctor, "parseInt", func(_ value.Value, args []value.Value) (value.Value, error) {
		radix := 10
		if r := arg(args, 1); !r.IsUndefined() {
			radix = int(r.ToNumber())
		}
		return value.Number(parseIntRadix(arg(args, 0).ToString(), radix)), nil
	})

	interp.Globals.DefineOwn("Number", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineGlobalFunc(interp, "parseInt", func(_ value.Value, args []value.Value) (value.Value, error) {
		radix := 10
		if r := arg(args, 1); !r.IsUndefined() {
			radix = int(r.ToNumber())
		}
		return value.Number(parseIntRadix(arg(args, 0).ToString(), radix)), nil
	})
	defineGlobalFunc(interp, "parseFloat", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Number(parseFloatPrefix(arg(args, 0).ToString())), nil
	})
	defineGlobalFunc(interp, "isNaN", func(_ value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(math.IsNaN(arg(args, 0).ToNumber())), nil
	})
	defineGlobalFunc(interp, "isFinite", func(_ value.Value, args []value.Value) (value.Value, error) {
		n := arg(args, 0).ToNumber()
		return value.Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})
}

func parseFloatPrefix(s string) float64 {
	i := 0
	n := len(s)
	for i < n && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	start := i
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < n && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	if i == start {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func parseIntRadix(s string, radix int) float64 {
	i := 0
	n := len(s)
	for i < n && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	neg := false
	if i < n && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	if radix == 16 || radix == 0 {
		if i+1 < n && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
			i += 2
			radix = 16
		} else if radix == 0 {
			radix = 10
		}
	}
	start := i
	for i < n && digitVal(s[i]) < radix {
		i++
	}
	if i == start {
		return math.NaN()
	}
	v, err := strconv.ParseInt(s[start:i], radix, 64)
	if err != nil {
		return math.NaN()
	}
	f := float64(v)
	if neg {
		f = -f
	}
	return f
}

func digitVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 99
	}
}
