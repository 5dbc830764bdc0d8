package compiler

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"jsvm/internal/bytecode"
	"jsvm/internal/parser"
)

func mustCompile(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	prog, perrs := parser.Parse(src)
	require.Empty(t, perrs, "parse errors for src=%s", src)
	chunk, cerrs := Compile(prog)
	require.Empty(t, cerrs, "compile errors for src=%s", src)
	return chunk
}

func ops(c *bytecode.Chunk) []bytecode.Op {
	out := make([]bytecode.Op, len(c.Code))
	for i, instr := range c.Code {
		out[i] = instr.Op
	}
	return out
}

func TestCompileArithmetic(t *testing.T) {
	chunk := mustCompile(t, "1 + 2 * 3;")
	require.Contains(t, ops(chunk), bytecode.OpAdd)
	require.Contains(t, ops(chunk), bytecode.OpMul)
}

func TestCompileVarDeclAssignsLocalSlot(t *testing.T) {
	chunk := mustCompile(t, "let x = 1; x = x + 1;")
	require.GreaterOrEqual(t, chunk.NumLocals, 1)
	require.Contains(t, ops(chunk), bytecode.OpSetLocal)
	require.Contains(t, ops(chunk), bytecode.OpGetLocal)
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	chunk := mustCompile(t, `
		function outer() {
			let x = 1;
			function inner() { return x; }
			return inner;
		}
	`)
	require.Contains(t, ops(chunk), bytecode.OpMakeFunction)

	var outerFn *bytecode.Chunk
	for _, c := range chunk.Constants {
		if fc, ok := c.(*bytecode.Chunk); ok && fc.Name == "outer" {
			outerFn = fc
		}
	}
	require.NotNil(t, outerFn)

	var innerFn *bytecode.Chunk
	for _, c := range outerFn.Constants {
		if fc, ok := c.(*bytecode.Chunk); ok && fc.Name == "inner" {
			innerFn = fc
		}
	}
	require.NotNil(t, innerFn)
	require.Len(t, innerFn.Upvalues, 1)
	require.True(t, innerFn.Upvalues[0].FromParentLocal)
}

func TestCompileArrowFunctionExprBody(t *testing.T) {
	chunk := mustCompile(t, "const f = n => n + 1;")
	var arrow *bytecode.Chunk
	for _, c := range chunk.Constants {
		if fc, ok := c.(*bytecode.Chunk); ok {
			arrow = fc
		}
	}
	require.NotNil(t, arrow)
	require.True(t, arrow.IsArrow)
	require.Contains(t, ops(arrow), bytecode.OpAdd)
}

func TestCompileForOfLowersToIteratorProtocol(t *testing.T) {
	chunk := mustCompile(t, `
		for (const x of items) {
			x;
		}
	`)
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpGetIterator)
	require.Contains(t, code, bytecode.OpIteratorNext)
}

func TestCompileDestructuringObjectPattern(t *testing.T) {
	chunk := mustCompile(t, "let {a, b = 2, ...rest} = obj;")
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpGetProperty)
	require.Contains(t, code, bytecode.OpObjectRestCopy)
	require.Contains(t, code, bytecode.OpSetLocal)
}

func TestCompileDestructuringArrayPattern(t *testing.T) {
	chunk := mustCompile(t, "let [a, , ...rest] = arr;")
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpGetIterator)
	require.Contains(t, code, bytecode.OpIteratorNext)
	require.Contains(t, code, bytecode.OpCreateArray)
}

func TestCompileClassWithSuperCall(t *testing.T) {
	chunk := mustCompile(t, `
		class Base {
			constructor(x) { this.x = x; }
			greet() { return "hi"; }
		}
		class Derived extends Base {
			constructor(x, y) {
				super(x);
				this.y = y;
			}
			greet() { return super.greet() + "!"; }
		}
	`)
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpMakeClass)

	var derivedSpec *bytecode.ClassSpec
	for _, c := range chunk.Constants {
		if spec, ok := c.(*bytecode.ClassSpec); ok && spec.Name == "Derived" {
			derivedSpec = spec
		}
	}
	require.NotNil(t, derivedSpec)
	require.True(t, derivedSpec.HasSuper)
	require.Contains(t, ops(derivedSpec.Ctor), bytecode.OpSuperCall)

	var greetMethod *bytecode.MethodSpec
	for i := range derivedSpec.Members {
		if derivedSpec.Members[i].Key == "greet" {
			greetMethod = &derivedSpec.Members[i]
		}
	}
	require.NotNil(t, greetMethod)
	require.Contains(t, ops(greetMethod.Fn), bytecode.OpGetSuperProto)
	require.Contains(t, ops(greetMethod.Fn), bytecode.OpCall)
}

func TestCompileDefaultConstructorForwardsToSuper(t *testing.T) {
	chunk := mustCompile(t, `
		class Base { constructor(x) { this.x = x; } }
		class Derived extends Base {}
	`)
	var derivedSpec *bytecode.ClassSpec
	for _, c := range chunk.Constants {
		if spec, ok := c.(*bytecode.ClassSpec); ok && spec.Name == "Derived" {
			derivedSpec = spec
		}
	}
	require.NotNil(t, derivedSpec)
	require.True(t, derivedSpec.Ctor.HasRestParam)
	require.Contains(t, ops(derivedSpec.Ctor), bytecode.OpSuperCall)
}

func TestCompileOptionalChaining(t *testing.T) {
	chunk := mustCompile(t, "a?.b?.c;")
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpJumpIfNullish)
}

func TestCompileOptionalChainingCall(t *testing.T) {
	chunk := mustCompile(t, "a?.b();")
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpJumpIfNullish)
	require.Contains(t, code, bytecode.OpCall)
}

func TestCompileSwitchFallthrough(t *testing.T) {
	chunk := mustCompile(t, `
		switch (x) {
			case 1:
			case 2:
				y;
				break;
			default:
				z;
		}
	`)
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpStrictEq)
	require.Contains(t, code, bytecode.OpJumpIfTrue)
}

func TestCompileTryCatchFinally(t *testing.T) {
	chunk := mustCompile(t, `
		try {
			risky();
		} catch (e) {
			handle(e);
		} finally {
			cleanup();
		}
	`)
	require.NotEmpty(t, chunk.Code)
}

func TestCompileSpreadCallArgs(t *testing.T) {
	chunk := mustCompile(t, "f(1, ...rest, 2);")
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpSpreadArray)

	var callInstr *bytecode.Instr
	for i := range chunk.Code {
		if chunk.Code[i].Op == bytecode.OpCall {
			callInstr = &chunk.Code[i]
		}
	}
	require.NotNil(t, callInstr)
	require.Equal(t, -1, callInstr.Operand)
}

func TestCompileTaggedTemplate(t *testing.T) {
	chunk := mustCompile(t, "tag`a${b}c`;")
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpCreateArray)
	require.Contains(t, code, bytecode.OpCall)
}

func TestCompileLogicalNullishAssign(t *testing.T) {
	chunk := mustCompile(t, "a ??= 1;")
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpJumpIfNullish)
}

func TestCompileRestParam(t *testing.T) {
	chunk := mustCompile(t, "function f(a, ...rest) { return rest; }")
	var fn *bytecode.Chunk
	for _, c := range chunk.Constants {
		if fc, ok := c.(*bytecode.Chunk); ok {
			fn = fc
		}
	}
	require.NotNil(t, fn)
	require.True(t, fn.HasRestParam)
	require.Equal(t, 1, fn.NumParams)
}

func TestCompileUpdateExprPostfixPreservesOldValue(t *testing.T) {
	chunk := mustCompile(t, "let x = 1; let y = x++;")
	code := ops(chunk)
	require.Contains(t, code, bytecode.OpIncLocal)
}

func TestCompileLabeledBreakContinue(t *testing.T) {
	chunk := mustCompile(t, `
		outer: for (let i = 0; i < 10; i++) {
			for (let j = 0; j < 10; j++) {
				if (j === 5) continue outer;
				if (i === 5) break outer;
			}
		}
	`)
	require.NotEmpty(t, chunk.Code)
}

func TestCompileUndeclaredAssignmentIsGlobal(t *testing.T) {
	chunk := mustCompile(t, "globalThingNeverDeclared = 1;")
	require.Contains(t, ops(chunk), bytecode.OpSetGlobal)
}

func TestCompileBigIntLiteralPushesBigIntConstant(t *testing.T) {
	chunk := mustCompile(t, "10n;")
	require.Contains(t, ops(chunk), bytecode.OpPushConst)
	found := false
	for _, c := range chunk.Constants {
		if _, ok := c.(*big.Int); ok {
			found = true
		}
	}
	require.True(t, found, "expected a *big.Int constant in the pool")
}

func TestCompileIncrementUsesIncrementOpcode(t *testing.T) {
	chunk := mustCompile(t, "let x = 5n; x++; x;")
	require.Contains(t, ops(chunk), bytecode.OpIncLocal)
}
