package vm

import (
	"math"
	"math/big"

	"jsvm/internal/value"
)

// toAddOperand applies the ToPrimitive step `+` needs before deciding
// between string concatenation and numeric addition. The core has no
// user-definable valueOf, so ToPrimitive on any object always bottoms out
// at ToString (spec.md §8: `[] + {}` is `"[object Object]"`).
func toAddOperand(v value.Value) value.Value {
	if v.IsObject() {
		return value.String(v.ToString())
	}
	return v
}

func (i *Interpreter) add(a, b value.Value) (value.Value, error) {
	pa, pb := toAddOperand(a), toAddOperand(b)
	if pa.IsString() || pb.IsString() {
		return value.String(pa.ToString() + pb.ToString()), nil
	}
	if pa.IsBigInt() || pb.IsBigInt() {
		x, y, err := i.bigIntOperands(pa, pb)
		if err != nil {
			return value.Undefined, err
		}
		return value.BigInt(new(big.Int).Add(x, y)), nil
	}
	return value.Number(pa.ToNumber() + pb.ToNumber()), nil
}

// bigIntOperands requires both a and b to be BigInt — ECMAScript forbids
// implicitly mixing BigInt and Number in arithmetic/bitwise operators
// (spec.md §4.4's `+` rule covers string/number; mixing BigInt in is a
// TypeError, same as the real language).
func (i *Interpreter) bigIntOperands(a, b value.Value) (*big.Int, *big.Int, error) {
	if !a.IsBigInt() || !b.IsBigInt() {
		return nil, nil, i.TypeError("Cannot mix BigInt and other types, use explicit conversions")
	}
	return a.BigInt(), b.BigInt(), nil
}

// incDecBy implements ++/--'s ToNumeric step: a BigInt operand stays a
// BigInt (incremented/decremented by 1n), everything else goes through
// ToNumber as usual. delta is 1 or -1.
func incDecBy(v value.Value, delta int64) value.Value {
	if v.IsBigInt() {
		return value.BigInt(new(big.Int).Add(v.BigInt(), big.NewInt(delta)))
	}
	return value.Number(v.ToNumber() + float64(delta))
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	if m >= 2147483648 {
		m -= 4294967296
	}
	return int32(m)
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// lessThan implements the abstract relational comparison: lexicographic
// for two strings, exact BigInt comparison when either side is a BigInt
// (comparing against the other side's exact value, not a lossy float64
// round-trip), otherwise numeric with NaN making every comparison false.
func lessThan(a, b value.Value) bool {
	if a.IsString() && b.IsString() {
		return a.Str() < b.Str()
	}
	if a.IsBigInt() || b.IsBigInt() {
		cmp, ok := bigCompare(a, b)
		return ok && cmp < 0
	}
	na, nb := a.ToNumber(), b.ToNumber()
	if math.IsNaN(na) || math.IsNaN(nb) {
		return false
	}
	return na < nb
}

// lessOrEqual mirrors lessThan's string/numeric branching for `<=` — it is
// not simply `!lessThan(b, a)`, since that inverts incorrectly once NaN or
// string comparison enters the picture.
func lessOrEqual(a, b value.Value) bool {
	if a.IsString() && b.IsString() {
		return a.Str() <= b.Str()
	}
	if a.IsBigInt() || b.IsBigInt() {
		cmp, ok := bigCompare(a, b)
		return ok && cmp <= 0
	}
	na, nb := a.ToNumber(), b.ToNumber()
	if math.IsNaN(na) || math.IsNaN(nb) {
		return false
	}
	return na <= nb
}

// bigCompare compares a and b exactly when at least one is a BigInt,
// promoting a plain Number to a big.Float so e.g. `10n < 10.5` doesn't pay
// for float64's precision loss on the BigInt side. ok is false when the
// Number side is NaN, matching the abstract relational comparison's "NaN
// makes every comparison false" rule.
func bigCompare(a, b value.Value) (cmp int, ok bool) {
	af, aIsBig := bigFloatOf(a)
	bf, bIsBig := bigFloatOf(b)
	if !aIsBig && math.IsNaN(a.ToNumber()) {
		return 0, false
	}
	if !bIsBig && math.IsNaN(b.ToNumber()) {
		return 0, false
	}
	return af.Cmp(bf), true
}

func bigFloatOf(v value.Value) (*big.Float, bool) {
	if v.IsBigInt() {
		return new(big.Float).SetInt(v.BigInt()), true
	}
	return big.NewFloat(v.ToNumber()), false
}

func jsMod(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || b == 0 {
		return math.NaN()
	}
	if math.IsInf(b, 0) {
		return a
	}
	return math.Mod(a, b)
}

func jsPow(a, b float64) float64 {
	return math.Pow(a, b)
}

// looseEquals implements `==`'s coercion table over the subset of types
// the core supports.
func looseEquals(a, b value.Value) bool {
	if a.Type() == b.Type() {
		return value.StrictEquals(a, b)
	}
	if a.IsNullish() && b.IsNullish() {
		return true
	}
	if a.IsNullish() || b.IsNullish() {
		return false
	}
	if a.IsNumber() && b.IsString() {
		return a.Num() == b.ToNumber()
	}
	if a.IsString() && b.IsNumber() {
		return a.ToNumber() == b.Num()
	}
	if a.IsBigInt() && b.IsNumber() || a.IsNumber() && b.IsBigInt() {
		cmp, ok := bigCompare(a, b)
		return ok && cmp == 0
	}
	if a.IsBigInt() && b.IsString() {
		bv, ok := value.BigIntFromLiteral(b.Str())
		return ok && a.BigInt().Cmp(bv.BigInt()) == 0
	}
	if a.IsString() && b.IsBigInt() {
		return looseEquals(b, a)
	}
	if a.IsBoolean() {
		return looseEquals(value.Number(a.ToNumber()), b)
	}
	if b.IsBoolean() {
		return looseEquals(a, value.Number(b.ToNumber()))
	}
	if a.IsObject() && !b.IsObject() {
		return looseEquals(toAddOperand(a), b)
	}
	if b.IsObject() && !a.IsObject() {
		return looseEquals(a, toAddOperand(b))
	}
	return false
}
