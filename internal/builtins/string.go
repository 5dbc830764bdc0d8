package builtins

import (
	"math"
	"strings"
	"unicode"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installString(interp *vm.Interpreter) {
	proto := interp.StringProto()

	method := func(name string, fn func(s string, args []value.Value) (value.Value, error)) {
		defineMethod(interp, proto, name, func(this value.Value, args []value.Value) (value.Value, error) {
			return fn(this.ToString(), args)
		})
	}

	method("charAt", func(s string, args []value.Value) (value.Value, error) {
		r := []rune(s)
		i := int(arg(args, 0).ToNumber())
		if i < 0 || i >= len(r) {
			return value.String(""), nil
		}
		return value.String(string(r[i])), nil
	})
	method("charCodeAt", func(s string, args []value.Value) (value.Value, error) {
		r := []rune(s)
		i := int(arg(args, 0).ToNumber())
		if i < 0 || i >= len(r) {
			return value.Number(math.NaN()), nil
		}
		return value.Number(float64(r[i])), nil
	})
	method("codePointAt", func(s string, args []value.Value) (value.Value, error) {
		r := []rune(s)
		i := int(arg(args, 0).ToNumber())
		if i < 0 || i >= len(r) {
			return value.Undefined, nil
		}
		return value.Number(float64(r[i])), nil
	})
	method("indexOf", func(s string, args []value.Value) (value.Value, error) {
		return value.Number(float64(strings.Index(s, arg(args, 0).ToString()))), nil
	})
	method("lastIndexOf", func(s string, args []value.Value) (value.Value, error) {
		return value.Number(float64(strings.LastIndex(s, arg(args, 0).ToString()))), nil
	})
	method("includes", func(s string, args []value.Value) (value.Value, error) {
		return value.Bool(strings.Contains(s, arg(args, 0).ToString())), nil
	})
	method("startsWith", func(s string, args []value.Value) (value.Value, error) {
		return value.Bool(strings.HasPrefix(s, arg(args, 0).ToString())), nil
	})
	method("endsWith", func(s string, args []value.Value) (value.Value, error) {
		return value.Bool(strings.HasSuffix(s, arg(args, 0).ToString())), nil
	})
	method("slice", func(s string, args []value.Value) (value.Value, error) {
		r := []rune(s)
		start, end := sliceBounds(args, len(r))
		return value.String(string(r[start:end])), nil
	})
	method("substring", func(s string, args []value.Value) (value.Value, error) {
		r := []rune(s)
		n := len(r)
		start := clampNonNeg(int(arg(args, 0).ToNumber()), n)
		end := n
		if e := arg(args, 1); !e.IsUndefined() {
			end = clampNonNeg(int(e.ToNumber()), n)
		}
		if start > end {
			start, end = end, start
		}
		return value.String(string(r[start:end])), nil
	})
	method("toUpperCase", func(s string, _ []value.Value) (value.Value, error) { return value.String(strings.ToUpper(s)), nil })
	method("toLowerCase", func(s string, _ []value.Value) (value.Value, error) { return value.String(strings.ToLower(s)), nil })
	method("trim", func(s string, _ []value.Value) (value.Value, error) { return value.String(strings.TrimSpace(s)), nil })
	method("trimStart", func(s string, _ []value.Value) (value.Value, error) {
		return value.String(strings.TrimLeftFunc(s, unicode.IsSpace)), nil
	})
	method("trimEnd", func(s string, _ []value.Value) (value.Value, error) {
		return value.String(strings.TrimRightFunc(s, unicode.IsSpace)), nil
	})
	method("split", func(s string, args []value.Value) (value.Value, error) {
		sepArg := arg(args, 0)
		var parts []string
		if sepArg.IsUndefined() {
			parts = []string{s}
		} else if sepArg.ToString() == "" {
			for _, r := range s {
				parts = append(parts, string(r))
			}
		} else {
			parts = strings.Split(s, sepArg.ToString())
		}
		if lim := arg(args, 1); lim.IsNumber() {
			n := int(lim.Num())
			if n < len(parts) {
				parts = parts[:n]
			}
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), stringValues(parts)))), nil
	})
	method("repeat", func(s string, args []value.Value) (value.Value, error) {
		n := int(arg(args, 0).ToNumber())
		if n < 0 {
			return value.Undefined, interp.RangeError("Invalid count value")
		}
		return value.String(strings.Repeat(s, n)), nil
	})
	method("padStart", func(s string, args []value.Value) (value.Value, error) {
		return value.String(pad(s, args, true)), nil
	})
	method("padEnd", func(s string, args []value.Value) (value.Value, error) {
		return value.String(pad(s, args, false)), nil
	})
	method("concat", func(s string, args []value.Value) (value.Value, error) {
		for _, a := range args {
			s += a.ToString()
		}
		return value.String(s), nil
	})
	method("replace", func(s string, args []value.Value) (value.Value, error) {
		old := arg(args, 0).ToString()
		return value.String(strings.Replace(s, old, arg(args, 1).ToString(), 1)), nil
	})
	method("replaceAll", func(s string, args []value.Value) (value.Value, error) {
		return value.String(strings.ReplaceAll(s, arg(args, 0).ToString(), arg(args, 1).ToString())), nil
	})
	method("at", func(s string, args []value.Value) (value.Value, error) {
		r := []rune(s)
		i := int(arg(args, 0).ToNumber())
		if i < 0 {
			i += len(r)
		}
		if i < 0 || i >= len(r) {
			return value.Undefined, nil
		}
		return value.String(string(r[i])), nil
	})
	method("toString", func(s string, _ []value.Value) (value.Value, error) { return value.String(s), nil })
	method("valueOf", func(s string, _ []value.Value) (value.Value, error) { return value.String(s), nil })

	ctor := native(interp, "String", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.String(""), nil
		}
		return value.String(args[0].ToString()), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
	defineMethod(interp, ctor, "fromCharCode", func(_ value.Value, args []value.Value) (value.Value, error) {
		var b strings.Builder
		for _, a := range args {
			b.WriteRune(rune(int(a.ToNumber())))
		}
		return value.String(b.String()), nil
	})

	interp.Globals.DefineOwn("String", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func clampNonNeg(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func pad(s string, args []value.Value, start bool) string {
	target := int(arg(args, 0).ToNumber())
	fill := " "
	if f := arg(args, 1); !f.IsUndefined() {
		fill = f.ToString()
	}
	if fill == "" || len([]rune(s)) >= target {
		return s
	}
	need := target - len([]rune(s))
	var b strings.Builder
	for b.Len() < need {
		b.WriteString(fill)
	}
	padding := []rune(b.String())[:need]
	if start {
		return string(padding) + s
	}
	return s + string(padding)
}
