package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/builtins"
	"jsvm/internal/compiler"
	"jsvm/internal/parser"
	"jsvm/internal/vm"
)

func TestBigIntLiteralTypeof(t *testing.T) {
	v, _ := run(t, `typeof 10n;`)
	assert.Equal(t, "bigint", v.ToString())
}

func TestBigIntLiteralRadixPrefixes(t *testing.T) {
	v, _ := run(t, `0x1fn;`)
	assert.Equal(t, "31", v.ToString())
	v, _ = run(t, `0o17n;`)
	assert.Equal(t, "15", v.ToString())
	v, _ = run(t, `0b101n;`)
	assert.Equal(t, "5", v.ToString())
}

func TestBigIntArithmetic(t *testing.T) {
	v, _ := run(t, `9007199254740993n + 1n;`)
	assert.Equal(t, "9007199254740994", v.ToString())
	v, _ = run(t, `10n - 3n;`)
	assert.Equal(t, "7", v.ToString())
	v, _ = run(t, `6n * 7n;`)
	assert.Equal(t, "42", v.ToString())
	v, _ = run(t, `10n / 3n;`)
	assert.Equal(t, "3", v.ToString())
	v, _ = run(t, `10n % 3n;`)
	assert.Equal(t, "1", v.ToString())
	v, _ = run(t, `2n ** 10n;`)
	assert.Equal(t, "1024", v.ToString())
	v, _ = run(t, `-5n;`)
	assert.Equal(t, "-5", v.ToString())
}

func TestBigIntComparison(t *testing.T) {
	v, _ := run(t, `10n < 11n;`)
	assert.Equal(t, "true", v.ToString())
	v, _ = run(t, `10n < 10.5;`)
	assert.Equal(t, "true", v.ToString())
	v, _ = run(t, `10n == 10;`)
	assert.Equal(t, "true", v.ToString())
	v, _ = run(t, `10n === 10;`)
	assert.Equal(t, "false", v.ToString())
}

func TestBigIntIncrementDecrement(t *testing.T) {
	v, _ := run(t, `let x = 5n; x++; x;`)
	assert.Equal(t, "6", v.ToString())
	v, _ = run(t, `let x = 5n; --x; x;`)
	assert.Equal(t, "4", v.ToString())
}

func TestBigIntMixingThrowsTypeError(t *testing.T) {
	prog, perrs := parser.Parse(`1n + 1;`)
	require.Empty(t, perrs)
	chunk, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)
	interp := vm.NewInterpreter()
	builtins.Install(interp, nil)
	_, err := interp.Run(chunk)
	require.Error(t, err)
	exc, ok := err.(*vm.Exception)
	require.True(t, ok)
	assert.True(t, exc.Val.IsObject())
}

func TestBigIntDivisionByZeroThrowsRangeError(t *testing.T) {
	prog, perrs := parser.Parse(`1n / 0n;`)
	require.Empty(t, perrs)
	chunk, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)
	interp := vm.NewInterpreter()
	builtins.Install(interp, nil)
	_, err := interp.Run(chunk)
	require.Error(t, err)
}

func TestBigIntGlobalConstructor(t *testing.T) {
	v, _ := run(t, `BigInt(42);`)
	assert.Equal(t, "42", v.ToString())
	v, _ = run(t, `BigInt("123");`)
	assert.Equal(t, "123", v.ToString())
	v, _ = run(t, `typeof BigInt(1);`)
	assert.Equal(t, "bigint", v.ToString())
}

func TestBigIntNonIntegerConversionThrowsRangeError(t *testing.T) {
	prog, perrs := parser.Parse(`BigInt(1.5);`)
	require.Empty(t, perrs)
	chunk, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)
	interp := vm.NewInterpreter()
	builtins.Install(interp, nil)
	_, err := interp.Run(chunk)
	require.Error(t, err)
}
