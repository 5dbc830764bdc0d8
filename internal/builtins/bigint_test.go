package builtins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/compiler"
	"jsvm/internal/parser"
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func TestBigIntToStringAndValueOf(t *testing.T) {
	interp := newFullInterp()
	assert.Equal(t, "42", eval(t, interp, `(42n).toString();`).ToString())
	assert.Equal(t, "101010", eval(t, interp, `(42n).toString(2);`).ToString())
	assert.Equal(t, "42", eval(t, interp, `(42n).valueOf().toString();`).ToString())
}

func TestBigIntConstructorFromBooleanAndBigInt(t *testing.T) {
	interp := newFullInterp()
	assert.Equal(t, "1", eval(t, interp, `BigInt(true).toString();`).ToString())
	assert.Equal(t, "0", eval(t, interp, `BigInt(false).toString();`).ToString())
	assert.Equal(t, "5", eval(t, interp, `BigInt(5n).toString();`).ToString())
}

func TestBigIntConstructorFromHexString(t *testing.T) {
	interp := newFullInterp()
	assert.Equal(t, "255", eval(t, interp, `BigInt("0xff").toString();`).ToString())
}

func TestJSONStringifyRejectsBigInt(t *testing.T) {
	interp := newFullInterp()
	_, err := func() (value.Value, error) {
		prog, _ := parser.Parse(`JSON.stringify(10n);`)
		chunk, _ := compiler.Compile(prog)
		return interp.Run(chunk)
	}()
	require.Error(t, err)
	exc, ok := err.(*vm.Exception)
	require.True(t, ok)
	assert.True(t, exc.Val.IsObject())
}

func TestBigIntConstructorRejectsObject(t *testing.T) {
	interp := newFullInterp()
	_, err := func() (value.Value, error) {
		prog, _ := parser.Parse(`BigInt({});`)
		chunk, _ := compiler.Compile(prog)
		return interp.Run(chunk)
	}()
	require.Error(t, err)
	exc, ok := err.(*vm.Exception)
	require.True(t, ok)
	assert.True(t, exc.Val.IsObject())
}
