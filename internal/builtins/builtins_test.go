package builtins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/builtins"
	"jsvm/internal/capability"
	"jsvm/internal/compiler"
	"jsvm/internal/eventloop"
	"jsvm/internal/parser"
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func eval(t *testing.T, interp *vm.Interpreter, src string) value.Value {
	t.Helper()
	prog, perrs := parser.Parse(src)
	require.Empty(t, perrs, "parse errors for src=%s", src)
	chunk, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs, "compile errors for src=%s", src)
	v, err := interp.Run(chunk)
	require.NoError(t, err, "run error for src=%s", src)
	return v
}

func newFullInterp() *vm.Interpreter {
	interp := vm.NewInterpreter()
	loop := eventloop.New(interp.DrainMicrotasks, interp.HasMicrotasks)
	builtins.Install(interp, loop)
	return interp
}

func TestMathAndJSON(t *testing.T) {
	interp := newFullInterp()
	assert.Equal(t, "4", eval(t, interp, "Math.max(1, 4, 2);").ToString())
	assert.Equal(t, `{"a":1}`, eval(t, interp, `JSON.stringify({a: 1});`).ToString())
	assert.Equal(t, "1", eval(t, interp, `JSON.parse('{"a":1}').a;`).ToString())
}

func TestArrayHigherOrderMethods(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `[1, 2, 3].map(x => x * 2).filter(x => x > 2).reduce((a, b) => a + b, 0);`)
	assert.Equal(t, "10", v.ToString())
}

func TestDateConstructionAndGetters(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `new Date(2020, 0, 15).getFullYear();`)
	assert.Equal(t, "2020", v.ToString())
}

func TestDateToISOStringRoundTrip(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `new Date(0).toISOString();`)
	assert.Equal(t, "1970-01-01T00:00:00.000Z", v.Str())
}

func TestMapBasicOperations(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		const m = new Map();
		m.set("a", 1).set("b", 2);
		m.get("a") + m.size;
	`)
	assert.Equal(t, "3", v.ToString())
}

func TestSetDeduplicatesValues(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `new Set([1, 2, 2, 3, 3, 3]).size;`)
	assert.Equal(t, "3", v.ToString())
}

func TestWeakMapRejectsPrimitiveKeys(t *testing.T) {
	interp := newFullInterp()
	_, err := func() (value.Value, error) {
		prog, _ := parser.Parse(`new WeakMap().set("not-an-object", 1);`)
		chunk, _ := compiler.Compile(prog)
		return interp.Run(chunk)
	}()
	require.Error(t, err)
	exc, ok := err.(*vm.Exception)
	require.True(t, ok)
	assert.True(t, exc.Val.IsObject())
}

func TestRegExpTestAndExec(t *testing.T) {
	interp := newFullInterp()
	assert.Equal(t, "true", eval(t, interp, `/ab+c/.test("xxabbbcxx");`).ToString())
	v := eval(t, interp, `/(\d+)-(\d+)/.exec("12-34")[1];`)
	assert.Equal(t, "12", v.ToString())
}

func TestErrorFamilyNameAndMessage(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		try { null.x; } catch (e) { e.name + ":" + e.message; }
	`)
	assert.Equal(t, "TypeError:Cannot read properties of null (reading 'x')", v.ToString())
}

func TestErrorConstructorSetsMessageAndInstanceof(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		const e = new RangeError("out of bounds");
		(e instanceof RangeError) + ":" + e.message + ":" + e.toString();
	`)
	assert.Equal(t, "true:out of bounds:RangeError: out of bounds", v.ToString())
}

func TestPromiseThenChaining(t *testing.T) {
	interp := newFullInterp()
	eval(t, interp, `
		result = undefined;
		Promise.resolve(1)
			.then(v => v + 1)
			.then(v => v * 10)
			.then(v => { result = v; });
	`)
	interp.DrainMicrotasks()
	v, ok := interp.Globals.Get("result")
	require.True(t, ok)
	assert.Equal(t, "20", v.ToString())
}

func TestPromiseAllResolvesInOrder(t *testing.T) {
	interp := newFullInterp()
	eval(t, interp, `
		result = undefined;
		Promise.all([Promise.resolve(1), 2, Promise.resolve(3)]).then(vs => { result = vs.join(","); });
	`)
	interp.DrainMicrotasks()
	v, ok := interp.Globals.Get("result")
	require.True(t, ok)
	assert.Equal(t, "1,2,3", v.ToString())
}

func TestTypedArraySetAndSum(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		const a = new Int32Array([1, 2, 3]);
		a.reduce ? a.reduce((x, y) => x + y, 0) : (a[0] + a[1] + a[2]);
	`)
	assert.Equal(t, "6", v.ToString())
}

func TestUint8ClampedArrayClampsOutOfRangeValues(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		const a = new Uint8ClampedArray(1);
		a[0] = 300;
		a[0];
	`)
	assert.Equal(t, "255", v.ToString())
}

func TestTextEncoderDecoderRoundTrip(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		const bytes = new TextEncoder().encode("hi");
		new TextDecoder().decode(bytes);
	`)
	assert.Equal(t, "hi", v.Str())
}

func TestURLParsesComponents(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		const u = new URL("https://example.com:8080/path?q=1#frag");
		u.protocol + "|" + u.hostname + "|" + u.pathname + "|" + u.hash;
	`)
	assert.Equal(t, "https:|example.com|/path|#frag", v.ToString())
}

func TestURLNormalizesUnicodeHostToPunycode(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		const u = new URL("https://bücher.example/");
		u.hostname;
	`)
	assert.Equal(t, "xn--bcher-kva.example", v.ToString())
}

func TestURLSearchParamsGetAndAppend(t *testing.T) {
	interp := newFullInterp()
	v := eval(t, interp, `
		const p = new URLSearchParams("a=1");
		p.append("b", "2");
		p.get("a") + "," + p.get("b");
	`)
	assert.Equal(t, "1,2", v.ToString())
}

func TestSetTimeoutDoesNotFireBeforeLoopIsPumped(t *testing.T) {
	interp := newFullInterp()
	eval(t, interp, `
		fired = false;
		setTimeout(() => { fired = true; }, 0);
	`)
	v, ok := interp.Globals.Get("fired")
	require.True(t, ok)
	assert.Equal(t, "false", v.ToString(), "timer must not fire before the loop is pumped")
}

func TestProcessEnvDeniedByDefault(t *testing.T) {
	interp := newFullInterp()
	_, err := func() (value.Value, error) {
		prog, _ := parser.Parse(`process.env.get("HOME");`)
		chunk, _ := compiler.Compile(prog)
		return interp.Run(chunk)
	}()
	require.Error(t, err)
}

func TestProcessEnvAllowedWhenGranted(t *testing.T) {
	interp := newFullInterp()
	interp.Capability = capability.Set{EnvNames: capability.AllowOnly("JSVM_TEST_VAR")}
	t.Setenv("JSVM_TEST_VAR", "hello")
	v := eval(t, interp, `process.env.get("JSVM_TEST_VAR");`)
	assert.Equal(t, "hello", v.ToString())
}

func TestEvalDeniedByDefault(t *testing.T) {
	interp := newFullInterp()
	_, err := func() (value.Value, error) {
		prog, _ := parser.Parse(`eval("1+1");`)
		chunk, _ := compiler.Compile(prog)
		return interp.Run(chunk)
	}()
	require.Error(t, err)
}

func TestEvalAllowedWhenGranted(t *testing.T) {
	interp := newFullInterp()
	interp.Capability.DynamicCodeAllowed = true
	v := eval(t, interp, `eval("21 * 2");`)
	assert.Equal(t, "42", v.ToString())
}
