package builtins

import (
	"regexp"
	"strings"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

// compileJS translates a handful of common JS regex flags into Go RE2
// inline flag syntax. 'g' and 'y' have no RE2 equivalent: exec handles 'g'
// by reading and advancing lastIndex, and 'y' is not consulted anywhere.
func compileJS(pattern, flags string) (*regexp.Regexp, error) {
	var inline strings.Builder
	if strings.Contains(flags, "i") {
		inline.WriteByte('i')
	}
	if strings.Contains(flags, "m") {
		inline.WriteByte('m')
	}
	if strings.Contains(flags, "s") {
		inline.WriteByte('s')
	}
	src := pattern
	if inline.Len() > 0 {
		src = "(?" + inline.String() + ")" + pattern
	}
	return regexp.Compile(src)
}

func installRegExp(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	newRegExp := func(pattern, flags string) (*value.Object, error) {
		if _, err := compileJS(pattern, flags); err != nil {
			return nil, interp.ThrowValue(interp.NewErrorValue("SyntaxError", "Invalid regular expression: "+err.Error()))
		}
		obj := interp.Track(&value.Object{Kind: value.KindRegExp, Proto: proto, Pattern: pattern, Flags: flags})
		obj.DefineOwn("lastIndex", value.PropertyDescriptor{Value: value.Number(0), Writable: true})
		return obj, nil
	}

	ctor := native(interp, "RegExp", func(this value.Value, args []value.Value) (value.Value, error) {
		pattern := ""
		flags := ""
		src := arg(args, 0)
		if src.IsObject() && src.Object().Kind == value.KindRegExp {
			pattern = src.Object().Pattern
			flags = src.Object().Flags
		} else if !src.IsUndefined() {
			pattern = src.ToString()
		}
		if f := arg(args, 1); !f.IsUndefined() {
			flags = f.ToString()
		}
		obj, err := newRegExp(pattern, flags)
		if err != nil {
			return value.Undefined, err
		}
		return value.Obj(obj), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	proto.DefineOwn("source", value.PropertyDescriptor{
		Get: native(interp, "", func(this value.Value, _ []value.Value) (value.Value, error) {
			return value.String(this.Object().Pattern), nil
		}),
		Configurable: true,
	})
	proto.DefineOwn("flags", value.PropertyDescriptor{
		Get: native(interp, "", func(this value.Value, _ []value.Value) (value.Value, error) {
			return value.String(this.Object().Flags), nil
		}),
		Configurable: true,
	})
	proto.DefineOwn("global", value.PropertyDescriptor{
		Get: native(interp, "", func(this value.Value, _ []value.Value) (value.Value, error) {
			return value.Bool(strings.Contains(this.Object().Flags, "g")), nil
		}),
		Configurable: true,
	})

	defineMethod(interp, proto, "test", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		re, err := compileJS(o.Pattern, o.Flags)
		if err != nil {
			return value.Undefined, interp.ThrowValue(interp.NewErrorValue("SyntaxError", err.Error()))
		}
		return value.Bool(re.MatchString(arg(args, 0).ToString())), nil
	})

	defineMethod(interp, proto, "exec", func(this value.Value, args []value.Value) (value.Value, error) {
		o := this.Object()
		re, err := compileJS(o.Pattern, o.Flags)
		if err != nil {
			return value.Undefined, interp.ThrowValue(interp.NewErrorValue("SyntaxError", err.Error()))
		}
		s := arg(args, 0).ToString()
		start := 0
		if strings.Contains(o.Flags, "g") {
			if li, ok := o.GetOwn("lastIndex"); ok {
				start = int(li.Value.ToNumber())
			}
		}
		if start < 0 || start > len(s) {
			o.Set("lastIndex", value.Number(0))
			return value.Null, nil
		}
		loc := re.FindStringSubmatchIndex(s[start:])
		if loc == nil {
			o.Set("lastIndex", value.Number(0))
			return value.Null, nil
		}
		groups := re.FindStringSubmatch(s[start:])
		elems := make([]value.Value, len(groups))
		for idx, g := range groups {
			elems[idx] = value.String(g)
		}
		result := interp.Track(value.NewArray(interp.ArrayProto(), elems))
		result.DefineOwn("index", value.PropertyDescriptor{Value: value.Number(float64(start + loc[0])), Writable: true, Enumerable: true, Configurable: true})
		result.DefineOwn("input", value.PropertyDescriptor{Value: value.String(s), Writable: true, Enumerable: true, Configurable: true})
		if strings.Contains(o.Flags, "g") {
			o.Set("lastIndex", value.Number(float64(start+loc[1])))
		}
		return value.Obj(result), nil
	})

	defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		o := this.Object()
		return value.String("/" + o.Pattern + "/" + o.Flags), nil
	})

	interp.Globals.DefineOwn("RegExp", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}
