package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/value"
)

func TestStrictEqualsNaNNeverEqual(t *testing.T) {
	nan := value.Number(math.NaN())
	assert.False(t, value.StrictEquals(nan, nan))
}

func TestSameValueZeroTreatsNaNAsEqualToItself(t *testing.T) {
	nan := value.Number(math.NaN())
	assert.True(t, value.SameValueZero(nan, nan))
}

func TestStrictEqualsZeroSignsAreEqual(t *testing.T) {
	assert.True(t, value.StrictEquals(value.Number(0), value.Number(math.Copysign(0, -1))))
}

func TestStrictEqualsDifferentTypesNeverEqual(t *testing.T) {
	assert.False(t, value.StrictEquals(value.Number(1), value.String("1")))
}

func TestStrictEqualsObjectIdentity(t *testing.T) {
	a := value.NewObject(nil)
	b := value.NewObject(nil)
	assert.True(t, value.StrictEquals(value.Obj(a), value.Obj(a)))
	assert.False(t, value.StrictEquals(value.Obj(a), value.Obj(b)))
}

func TestTypeNameMatchesTypeofSemantics(t *testing.T) {
	assert.Equal(t, "undefined", value.Undefined.TypeName())
	assert.Equal(t, "object", value.Null.TypeName())
	assert.Equal(t, "number", value.Number(1).TypeName())
	assert.Equal(t, "string", value.String("x").TypeName())
	assert.Equal(t, "boolean", value.Bool(true).TypeName())
}

func TestToStringFormatsIntegersWithoutExponent(t *testing.T) {
	assert.Equal(t, "3", value.Number(3).ToString())
	assert.Equal(t, "0", value.Number(0).ToString())
	assert.Equal(t, "-0.5", value.Number(-0.5).ToString())
}

func TestObjectDefineOwnAndGetRoundTrip(t *testing.T) {
	o := value.NewObject(nil)
	o.DefineOwn("x", value.PropertyDescriptor{Value: value.Number(42), Writable: true, Configurable: true})

	v, ok := o.Get("x")
	require.True(t, ok)
	assert.Equal(t, "42", v.ToString())

	_, ok = o.Get("missing")
	assert.False(t, ok)
}

func TestObjectGetWalksPrototypeChain(t *testing.T) {
	proto := value.NewObject(nil)
	proto.DefineOwn("inherited", value.PropertyDescriptor{Value: value.String("from-proto")})
	child := value.NewObject(proto)

	v, ok := child.Get("inherited")
	require.True(t, ok)
	assert.Equal(t, "from-proto", v.Str())

	_, ok = child.GetOwn("inherited")
	assert.False(t, ok, "GetOwn must not see inherited properties")
}

func TestObjectSetIsShorthandForWritableDefineOwn(t *testing.T) {
	o := value.NewObject(nil)
	ok := o.Set("x", value.Number(1))
	assert.True(t, ok)
	v, _ := o.Get("x")
	assert.Equal(t, "1", v.ToString())
}

func TestObjectKeysReflectsOwnEnumerablePropertiesOnly(t *testing.T) {
	proto := value.NewObject(nil)
	proto.DefineOwn("inherited", value.PropertyDescriptor{Value: value.Number(1), Enumerable: true})
	o := value.NewObject(proto)
	o.DefineOwn("own", value.PropertyDescriptor{Value: value.Number(2), Enumerable: true})
	o.DefineOwn("hidden", value.PropertyDescriptor{Value: value.Number(3)}) // Enumerable: false

	assert.ElementsMatch(t, []string{"own"}, o.Keys())
}

func TestWeakFieldDefaultsFalse(t *testing.T) {
	o := value.NewObject(nil)
	assert.False(t, o.Weak)
}

func TestTypedArrayIndexedSetClampsAndGet(t *testing.T) {
	ta := &value.Object{
		Kind:     value.KindTypedArray,
		ElemKind: "Uint8ClampedArray",
		Elements: []value.Value{value.Number(0)},
	}
	ok := ta.Set("0", value.Number(300))
	require.True(t, ok)
	v, found := ta.Get("0")
	require.True(t, found)
	assert.Equal(t, "255", v.ToString())
}

func TestTypedArrayOutOfRangeIndexWriteIsIgnored(t *testing.T) {
	ta := &value.Object{Kind: value.KindTypedArray, ElemKind: "Int32Array", Elements: []value.Value{value.Number(1)}}
	ok := ta.Set("5", value.Number(99))
	assert.True(t, ok, "out-of-range typed-array writes report success but have no effect")
	assert.Len(t, ta.Elements, 1)
}

func TestErrorMessagePropertyReflectsErrorMessageField(t *testing.T) {
	proto := value.NewObject(nil)
	proto.DefineOwn("name", value.PropertyDescriptor{Value: value.String("TypeError"), Writable: true, Configurable: true})
	proto.DefineOwn("message", value.PropertyDescriptor{Value: value.String(""), Writable: true, Configurable: true})
	e := &value.Object{Kind: value.KindError, Proto: proto, ErrorName: "TypeError", ErrorMessage: "bad thing happened"}

	v, ok := e.Get("message")
	require.True(t, ok)
	assert.Equal(t, "bad thing happened", v.Str())

	ok = e.Set("message", value.String("updated"))
	require.True(t, ok)
	assert.Equal(t, "updated", e.ErrorMessage)
	v, _ = e.Get("message")
	assert.Equal(t, "updated", v.Str())
}

func TestClampForElemKindWrapsSignedOverflow(t *testing.T) {
	assert.Equal(t, float64(-128), value.ClampForElemKind("Int8Array", 128))
	assert.Equal(t, float64(0), value.ClampForElemKind("Uint8Array", 256))
	assert.Equal(t, float64(255), value.ClampForElemKind("Uint8ClampedArray", 1000))
	assert.Equal(t, float64(-1), value.ClampForElemKind("Int8Array", 255))
}
