package repl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func TestEval_ReturnsExpressionValue(t *testing.T) {
	interp := vm.NewInterpreter()
	v, err := Eval(interp, "1 + 2", "<test>")
	require.NoError(t, err)
	assert.Equal(t, "3", v.ToString())
}

func TestEval_SharesStateAcrossCalls(t *testing.T) {
	interp := vm.NewInterpreter()
	_, err := Eval(interp, "var x = 10;", "<test>")
	require.NoError(t, err)

	v, err := Eval(interp, "x * 2", "<test>")
	require.NoError(t, err)
	assert.Equal(t, "20", v.ToString())
}

func TestEval_SyntaxError(t *testing.T) {
	interp := vm.NewInterpreter()
	_, err := Eval(interp, "var = ;", "<test>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestEval_ThrownException(t *testing.T) {
	interp := vm.NewInterpreter()
	_, err := Eval(interp, "throw new TypeError('bad');", "<test>")
	require.Error(t, err)
	_, ok := err.(*vm.Exception)
	assert.True(t, ok, "expected a *vm.Exception, got %T", err)
}

func TestInspect_QuotesStrings(t *testing.T) {
	assert.Equal(t, "'hi'", Inspect(value.String("hi")))
	assert.Equal(t, "42", Inspect(value.Number(42)))
	assert.Equal(t, "undefined", Inspect(value.Undefined))
}

func TestFormatErr_NonException(t *testing.T) {
	msg := formatErr(assertError{"boom"})
	assert.Equal(t, "Error: boom", msg)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestRun_PrintsResultsAndPrompts(t *testing.T) {
	interp := vm.NewInterpreter()
	in := strings.NewReader("1 + 1\nvar y = 5;\ny\n")
	var out strings.Builder

	err := Run(interp, in, &out)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "2")
	assert.Contains(t, got, "5")
	assert.Contains(t, got, prompt)
}

func TestRun_SurvivesEvalErrorsAndContinues(t *testing.T) {
	interp := vm.NewInterpreter()
	in := strings.NewReader("var = ;\n1 + 1\n")
	var out strings.Builder

	err := Run(interp, in, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "2")
}
