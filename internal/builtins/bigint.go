package builtins

import (
	"math"
	"math/big"
	"strings"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

// installBigInt wires the BigInt global conversion function and its
// prototype's toString/valueOf, mirroring installNumber's constructor
// shape (native ctor + DefineOwn onto Globals).
func installBigInt(interp *vm.Interpreter) {
	proto := interp.BigIntProto()

	defineMethod(interp, proto, "toString", func(this value.Value, args []value.Value) (value.Value, error) {
		radix := 10
		if r := arg(args, 0); !r.IsUndefined() {
			radix = int(r.ToNumber())
		}
		if radix == 10 {
			return value.String(this.ToString()), nil
		}
		return value.String(this.BigInt().Text(radix)), nil
	})
	defineMethod(interp, proto, "valueOf", func(this value.Value, _ []value.Value) (value.Value, error) {
		return this, nil
	})

	ctor := native(interp, "BigInt", func(_ value.Value, args []value.Value) (value.Value, error) {
		return bigIntFromArg(interp, arg(args, 0))
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	interp.Globals.DefineOwn("BigInt", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

// bigIntFromArg implements the BigInt(value) conversion: a Number must be
// a finite integer, a String is parsed with optional sign and radix prefix,
// a Boolean maps to 0n/1n, and a BigInt passes through unchanged. Anything
// else is a TypeError, matching the real ToBigInt abstract operation.
func bigIntFromArg(interp *vm.Interpreter, v value.Value) (value.Value, error) {
	switch {
	case v.IsBigInt():
		return v, nil
	case v.IsBoolean():
		if v.ToBoolean() {
			return value.BigIntFromInt64(1), nil
		}
		return value.BigIntFromInt64(0), nil
	case v.IsNumber():
		n := v.Num()
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return value.Undefined, interp.RangeError("The number %s cannot be converted to a BigInt because it is not an integer", v.ToString())
		}
		bi, _ := big.NewFloat(n).Int(nil)
		return value.BigInt(bi), nil
	case v.IsString():
		bi, ok := stringToBigInt(v.Str())
		if !ok {
			return value.Undefined, interp.SyntaxError("Cannot convert %s to a BigInt", v.Str())
		}
		return value.BigInt(bi), nil
	default:
		return value.Undefined, interp.TypeError("Cannot convert %s to a BigInt", v.ToString())
	}
}

// stringToBigInt parses the StringToBigInt grammar: optional surrounding
// whitespace, an optional leading sign for decimal, or an unsigned
// 0x/0o/0b-prefixed literal. An empty (post-trim) string is 0n.
func stringToBigInt(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return big.NewInt(0), true
	}
	n := new(big.Int)
	base, digits := 10, s
	if len(s) > 2 && s[0] == '0' {
		if i := strings.IndexByte("xXoObB", s[1]); i >= 0 {
			base, digits = []int{16, 16, 8, 8, 2, 2}[i], s[2:]
			if digits[0] == '+' || digits[0] == '-' {
				return nil, false
			}
		}
	}
	if _, ok := n.SetString(digits, base); ok {
		return n, true
	}
	return nil, false
}
