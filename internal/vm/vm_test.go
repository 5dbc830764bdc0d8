package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsvm/internal/builtins"
	"jsvm/internal/compiler"
	"jsvm/internal/parser"
	"jsvm/internal/value"
	"jsvm/internal/vm"
)

// run parses, compiles, and executes src against a fresh interpreter with
// the full intrinsic set installed (Error family, Array/Object methods,
// Promise, …), failing the test on any parse/compile error so individual
// test bodies only need to reason about runtime behavior.
func run(t *testing.T, src string) (value.Value, *vm.Interpreter) {
	t.Helper()
	prog, perrs := parser.Parse(src)
	require.Empty(t, perrs, "parse errors for src=%s", src)
	chunk, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs, "compile errors for src=%s", src)
	interp := vm.NewInterpreter()
	builtins.Install(interp, nil)
	v, err := interp.Run(chunk)
	require.NoError(t, err, "run error for src=%s", src)
	return v, interp
}

func TestArithmeticPrecedence(t *testing.T) {
	v, _ := run(t, "1 + 2 * 3;")
	assert.Equal(t, "7", v.ToString())
}

func TestClosureCapturesByReference(t *testing.T) {
	v, _ := run(t, `
		function counter() {
			let n = 0;
			return function() { n = n + 1; return n; };
		}
		let c = counter();
		c();
		c();
		c();
	`)
	assert.Equal(t, "3", v.ToString())
}

func TestClassWithSuperCall(t *testing.T) {
	v, _ := run(t, `
		class Animal {
			constructor(name) { this.name = name; }
			speak() { return this.name + " makes a sound"; }
		}
		class Dog extends Animal {
			speak() { return super.speak() + ", woof"; }
		}
		new Dog("Rex").speak();
	`)
	assert.Equal(t, "Rex makes a sound, woof", v.ToString())
}

func TestTryCatchFinallyOrdering(t *testing.T) {
	v, _ := run(t, `
		let log = [];
		function risky() { throw new Error("boom"); }
		try {
			risky();
		} catch (e) {
			log.push("caught:" + e.message);
		} finally {
			log.push("cleanup");
		}
		log.join(",");
	`)
	assert.Equal(t, "caught:boom,cleanup", v.ToString())
}

func TestDestructuringWithDefaultsAndRest(t *testing.T) {
	v, _ := run(t, `
		function f({a, b = 10, ...rest}) {
			return a + b + rest.c;
		}
		f({a: 1, c: 100});
	`)
	assert.Equal(t, "111", v.ToString())
}

func TestArrayDestructuringSkipsHoles(t *testing.T) {
	v, _ := run(t, `
		let [a, , c] = [1, 2, 3];
		a + c;
	`)
	assert.Equal(t, "4", v.ToString())
}

func TestGeneratorDrainsEagerly(t *testing.T) {
	v, _ := run(t, `
		function* gen() {
			yield 1;
			yield 2;
			yield 3;
		}
		let sum = 0;
		for (const x of gen()) { sum = sum + x; }
		sum;
	`)
	assert.Equal(t, "6", v.ToString())
}

func TestAsyncAwaitResolvesSynchronously(t *testing.T) {
	// await settles synchronously (the core drains microtasks in place,
	// see internal/vm/coroutine.go), but .then's reaction is still
	// queued as a microtask — it only runs once something drains the
	// queue, same as a real event loop's microtask checkpoint.
	_, interp := run(t, `
		async function addAsync(a, b) {
			return a + b;
		}
		async function main() {
			const r = await addAsync(2, 3);
			return r * 2;
		}
		result = undefined;
		main().then(v => { result = v; });
	`)
	interp.DrainMicrotasks()
	result, ok := interp.Globals.Get("result")
	require.True(t, ok)
	assert.Equal(t, "10", result.ToString())
}

func TestUncaughtExceptionSurfacesAsException(t *testing.T) {
	prog, perrs := parser.Parse(`throw new RangeError("nope");`)
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

func TestStackOverflowOnUnboundedRecursion(t *testing.T) {
	prog, perrs := parser.Parse(`
		function loop() { return loop(); }
		loop();
	`)
	require.Empty(t, perrs)
	chunk, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)
	interp := vm.NewInterpreter()
	_, err := interp.Run(chunk)
	require.Error(t, err)
}

func TestOpcodeBudgetInterruptsRunawayLoop(t *testing.T) {
	prog, perrs := parser.Parse(`while (true) {}`)
	require.Empty(t, perrs)
	chunk, cerrs := compiler.Compile(prog)
	require.Empty(t, cerrs)
	interp := vm.NewInterpreter()
	interp.SetOpcodeBudget(1000)
	_, err := interp.Run(chunk)
	require.Error(t, err)
}

func TestCapabilityDeniedByDefault(t *testing.T) {
	interp := vm.NewInterpreter()
	assert.Error(t, interp.Capability.CheckRead("/etc/passwd"))
	assert.Error(t, interp.Capability.CheckNet("example.com"))
}

func TestCheckCapabilityLiftsDeniedErrorToPermissionDenied(t *testing.T) {
	interp := vm.NewInterpreter()
	err := interp.Capability.CheckEnv("SECRET")
	require.Error(t, err)
	lifted := interp.CheckCapability(err)
	exc, ok := lifted.(*vm.Exception)
	require.True(t, ok)
	require.True(t, exc.Val.IsObject())
}
