package compiler

import (
	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
)

// destructure consumes the value on TOS (without popping it first) and
// binds it against target, an ObjectPattern/ArrayPattern/Identifier. When
// kind is "" this is a plain assignment-expression destructure; otherwise
// it is a declaration of kind "var"/"let"/"const" (spec.md §4.2
// "Destructuring").
func (fc *fnCompiler) destructure(target ast.Expression, kind string, readOnly bool, line int) {
	switch t := target.(type) {
	case *ast.Identifier:
		if kind == "" {
			fc.compileAssignTarget(t, line)
			return
		}
		var slot int
		if kind == "var" {
			s, ok := fc.resolveLocal(t.Name)
			if !ok {
				s = fc.declareLocal(t.Name, false)
			}
			slot = s
		} else {
			slot = fc.declareLocal(t.Name, readOnly)
		}
		fc.emit(bytecode.OpSetLocal, slot, line)
	case *ast.ObjectPattern:
		fc.destructureObject(t, kind, readOnly, line)
	case *ast.ArrayPattern:
		fc.destructureArray(t, kind, readOnly, line)
	case *ast.MemberExpr:
		fc.compileAssignTarget(t, line)
	default:
		fc.errorf(line, "compiler: unsupported binding target %T", target)
	}
}

func (fc *fnCompiler) bindParam(p ast.Param, kind string, readOnly bool, line int) {
	if p.Default != nil {
		fc.applyDefault(p.Default, line)
	}
	fc.destructure(p.Target, kind, readOnly, line)
}

// applyDefault rewrites TOS from undefined to the evaluated default
// expression, leaving any other value untouched.
func (fc *fnCompiler) applyDefault(def ast.Expression, line int) {
	fc.emit(bytecode.OpDup, 0, line)
	fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
	fc.emit(bytecode.OpStrictEq, 0, line)
	skip := fc.emit(bytecode.OpJumpIfFalse, -1, line)
	fc.emit(bytecode.OpPop, 0, line) // drop the comparison bool
	fc.emit(bytecode.OpPop, 0, line) // drop the undefined value itself
	fc.compileExpr(def)
	done := fc.emit(bytecode.OpJump, -1, line)
	fc.chunk.Patch(skip, fc.chunk.Here())
	fc.emit(bytecode.OpPop, 0, line) // drop the comparison bool (value path keeps original)
	fc.chunk.Patch(done, fc.chunk.Here())
}

// destructureObject assumes the source object is on TOS (not popped) on
// entry and leaves it there on exit, mirroring the plain-identifier case
// of destructure so callers pop exactly once regardless of target shape.
func (fc *fnCompiler) destructureObject(t *ast.ObjectPattern, kind string, readOnly bool, line int) {
	usedKeys := make([]string, 0, len(t.Props))
	for _, p := range t.Props {
		fc.emit(bytecode.OpDup, 0, line)
		if p.Computed {
			fc.compileExpr(p.KeyExpr)
			fc.emit(bytecode.OpGetComputed, 0, line)
		} else {
			fc.emit(bytecode.OpGetProperty, fc.constStr(p.Key), line)
			usedKeys = append(usedKeys, p.Key)
		}
		fc.bindParam(p.Value, kind, readOnly, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
	if t.Rest != "" {
		fc.emit(bytecode.OpDup, 0, line)
		fc.emit(bytecode.OpObjectRestCopy, fc.chunk.AddConstant(usedKeys), line)
		restSlot := fc.declareLocalFor(kind, t.Rest, readOnly)
		fc.emit(bytecode.OpSetLocal, restSlot, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
}

func (fc *fnCompiler) declareLocalFor(kind, name string, readOnly bool) int {
	if kind == "var" {
		if s, ok := fc.resolveLocal(name); ok {
			return s
		}
	}
	return fc.declareLocal(name, readOnly)
}

// destructureArray lowers to the iterator protocol: GetIterator once,
// IteratorNext per element, with a trailing rest element collecting the
// remainder into a fresh array.
func (fc *fnCompiler) destructureArray(t *ast.ArrayPattern, kind string, readOnly bool, line int) {
	fc.emit(bytecode.OpDup, 0, line)
	fc.emit(bytecode.OpGetIterator, 0, line)
	iterSlot := fc.declareLocal(" destriter", false)
	fc.emit(bytecode.OpSetLocal, iterSlot, line)
	fc.emit(bytecode.OpPop, 0, line)

	for _, el := range t.Elements {
		if el.Rest {
			fc.destructureRestArray(el, kind, readOnly, iterSlot, line)
			continue
		}
		fc.emit(bytecode.OpGetLocal, iterSlot, line)
		fc.emit(bytecode.OpIteratorNext, 0, line)
		resSlot := fc.declareLocal(" destrres", false)
		fc.emit(bytecode.OpSetLocal, resSlot, line)
		fc.emit(bytecode.OpPop, 0, line)
		if el.Target == nil {
			continue // elision: `[, , x]`
		}
		fc.emit(bytecode.OpGetLocal, resSlot, line)
		fc.emit(bytecode.OpGetProperty, fc.constStr("value"), line)
		fc.bindParam(el, kind, readOnly, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
}

func (fc *fnCompiler) destructureRestArray(el ast.Param, kind string, readOnly bool, iterSlot int, line int) {
	fc.emit(bytecode.OpCreateArray, 0, line)
	arrSlot := fc.declareLocal(" destrrest", false)
	fc.emit(bytecode.OpSetLocal, arrSlot, line)
	fc.emit(bytecode.OpPop, 0, line)
	idxSlot := fc.declareLocal(" destridx", false)
	fc.emit(bytecode.OpPushConst, fc.constNum(0), line)
	fc.emit(bytecode.OpSetLocal, idxSlot, line)
	fc.emit(bytecode.OpPop, 0, line)

	start := fc.chunk.Here()
	fc.emit(bytecode.OpGetLocal, iterSlot, line)
	fc.emit(bytecode.OpIteratorNext, 0, line)
	resSlot := fc.declareLocal(" destrrestres", false)
	fc.emit(bytecode.OpSetLocal, resSlot, line)
	fc.emit(bytecode.OpPop, 0, line)
	fc.emit(bytecode.OpGetLocal, resSlot, line)
	fc.emit(bytecode.OpGetProperty, fc.constStr("done"), line)
	exit := fc.emit(bytecode.OpJumpIfTrue, -1, line)
	fc.emit(bytecode.OpPop, 0, line)

	fc.emit(bytecode.OpGetLocal, arrSlot, line)
	fc.emit(bytecode.OpGetLocal, idxSlot, line)
	fc.emit(bytecode.OpGetLocal, resSlot, line)
	fc.emit(bytecode.OpGetProperty, fc.constStr("value"), line)
	fc.emit(bytecode.OpSetComputed, 0, line) // pops value,idx,arr; pushes value back
	fc.emit(bytecode.OpPop, 0, line)

	fc.emit(bytecode.OpIncLocal, idxSlot, line)
	fc.emit(bytecode.OpPop, 0, line)
	fc.emit(bytecode.OpJump, start, line)
	fc.chunk.Patch(exit, fc.chunk.Here())
	fc.emit(bytecode.OpPop, 0, line)

	fc.emit(bytecode.OpGetLocal, arrSlot, line)
	fc.bindParam(el, kind, readOnly, line)
	fc.emit(bytecode.OpPop, 0, line)
}
