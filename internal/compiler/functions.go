package compiler

import (
	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
)

// compileFunctionLiteral compiles a function/arrow body into its own
// Chunk, nested under fc for upvalue resolution, and emits the opcode
// that turns it into a callable object at runtime (spec.md §4.3
// "functions compile to a nested Chunk").
func (fc *fnCompiler) compileFunctionLiteral(n *ast.FunctionExpr) {
	line, _ := n.Pos()
	child := &fnCompiler{parent: fc, errs: fc.errs, chunk: &bytecode.Chunk{Name: n.Name, IsArrow: n.Arrow, IsGenerator: n.Gen, IsAsync: n.Async}}
	child.beginScope()
	for _, p := range n.Params {
		if p.Rest {
			name, _ := identName(p.Target)
			child.chunk.RestSlot = child.declareLocal(name, false)
			child.chunk.HasRestParam = true
			continue
		}
		child.chunk.NumParams++
		slot := child.declareParamSlot(p.Target)
		if p.Default != nil {
			child.emit(bytecode.OpGetLocal, slot, line)
			child.applyDefault(p.Default, line)
			child.emit(bytecode.OpSetLocal, slot, line)
			child.emit(bytecode.OpPop, 0, line)
		}
	}
	if n.Arrow && n.ExprBody != nil {
		child.compileExpr(n.ExprBody)
		child.emit(bytecode.OpReturn, 0, line)
	} else {
		child.hoistVars(n.Body.Body)
		child.hoistFunctions(n.Body.Body)
		for _, st := range n.Body.Body {
			child.compileStmt(st)
		}
		child.emit(bytecode.OpPushConst, child.chunk.AddConstant(nil), line)
		child.emit(bytecode.OpReturn, 0, line)
	}
	child.chunk.NumLocals = len(child.locals)
	idx := fc.chunk.AddConstant(child.chunk)
	if n.Arrow {
		fc.emit(bytecode.OpMakeArrow, idx, line)
	} else {
		fc.emit(bytecode.OpMakeFunction, idx, line)
	}
}

// declareParamSlot binds a parameter target to a fresh local slot. Simple
// identifiers bind directly; destructuring patterns first bind a hidden
// positional slot, then destructure out of it so parameter evaluation
// order matches argument order.
func (fc *fnCompiler) declareParamSlot(target ast.Expression) int {
	if name, ok := identName(target); ok {
		return fc.declareLocal(name, false)
	}
	line, _ := target.Pos()
	hidden := fc.declareLocal(" param", false)
	fc.emit(bytecode.OpGetLocal, hidden, line)
	fc.destructure(target, "let", false, line)
	fc.emit(bytecode.OpPop, 0, line)
	return hidden
}
