// Package compiler lowers an AST (internal/ast) into a bytecode Chunk per
// function body, per spec.md §4.3. Scope resolution assigns each
// identifier to a local slot, an upvalue, or a global lookup; closures
// capture cells that outlive their defining frame.
package compiler

import (
	"fmt"

	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
)

// Error is a compile-time failure — an identifier resolution or
// control-flow-lowering problem the parser cannot catch because it does
// not semantically validate (spec.md §4.2).
type Error struct {
	Line, Col int
	Msg       string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg) }

type localVar struct {
	name     string
	slot     int
	depth    int
	readOnly bool
	captured bool
}

type loopCtx struct {
	label      string
	breakJumps []int
	contStart  int
	contJumps  []int
	isSwitch   bool // continue skips past switch bodies to the enclosing loop
}

// fnCompiler compiles one function body (or the top-level script) into a
// single Chunk, linked to its lexically enclosing fnCompiler for upvalue
// resolution (spec.md §4.3 "Closure capture").
type fnCompiler struct {
	parent *fnCompiler
	chunk  *bytecode.Chunk

	locals      []localVar
	scopeDepth  int
	loops       []*loopCtx
	errs        *[]error

	// isMethod/isCtor/hasSuper mark a class method or constructor body, for
	// `this`/`super` handling inside a class compiled as a set of method
	// fnCompilers.
	isMethod   bool
	isCtor     bool
	hasSuper   bool
}

// Compile lowers a full Program into the top-level synthetic-function
// Chunk (spec.md §3: "the top-level script is a synthetic function").
// When the program's last statement is an expression statement, the chunk
// returns that expression's value; otherwise it returns undefined.
func Compile(prog *ast.Program) (*bytecode.Chunk, []error) {
	var errs []error
	fc := &fnCompiler{chunk: &bytecode.Chunk{Name: "<script>"}, errs: &errs}
	for idx, stmt := range prog.Body {
		if es, ok := stmt.(*ast.ExprStatement); ok && idx == len(prog.Body)-1 {
			line, _ := es.Pos()
			fc.compileExpr(es.Expr)
			fc.emit(bytecode.OpReturn, 0, line)
			break
		}
		fc.compileStmt(stmt)
	}
	fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), 0)
	fc.emit(bytecode.OpReturn, 0, 0)
	fc.chunk.NumLocals = len(fc.locals)
	return fc.chunk, errs
}

func (fc *fnCompiler) errorf(line int, format string, args ...any) {
	*fc.errs = append(*fc.errs, &Error{Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (fc *fnCompiler) emit(op bytecode.Op, operand, line int) int {
	return fc.chunk.Emit(op, operand, line)
}

func (fc *fnCompiler) constNum(n float64) int  { return fc.chunk.AddConstant(n) }
func (fc *fnCompiler) constStr(s string) int   { return fc.chunk.AddConstant(s) }

func (fc *fnCompiler) beginScope() { fc.scopeDepth++ }

// endScope discards locals declared in the scope being closed. Locals
// live in the frame's slot array, not the operand stack, so closing a
// scope needs no stack cleanup — except for a local a nested closure
// captured, where OpCloseUpvalue detaches its Cell from the slot so the
// next reuse of that slot (the next loop iteration, a sibling block)
// gets an independent binding instead of aliasing the closure's capture
// (spec.md §9).
func (fc *fnCompiler) endScope(line int) {
	fc.scopeDepth--
	for len(fc.locals) > 0 && fc.locals[len(fc.locals)-1].depth > fc.scopeDepth {
		last := fc.locals[len(fc.locals)-1]
		if last.captured {
			fc.emit(bytecode.OpCloseUpvalue, last.slot, line)
		}
		fc.locals = fc.locals[:len(fc.locals)-1]
	}
}

func (fc *fnCompiler) declareLocal(name string, readOnly bool) int {
	slot := len(fc.locals)
	fc.locals = append(fc.locals, localVar{name: name, slot: slot, depth: fc.scopeDepth, readOnly: readOnly})
	if slot+1 > fc.chunk.NumLocals {
		fc.chunk.NumLocals = slot + 1
	}
	return slot
}

func (fc *fnCompiler) resolveLocal(name string) (int, bool) {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			return fc.locals[i].slot, true
		}
	}
	return 0, false
}

// resolveUpvalue finds name in an enclosing fnCompiler's locals or its own
// upvalues, threading a capture chain down to this frame.
func (fc *fnCompiler) resolveUpvalue(name string) (int, bool) {
	if fc.parent == nil {
		return 0, false
	}
	if slot, ok := fc.parent.resolveLocal(name); ok {
		fc.parent.locals[indexOfSlot(fc.parent.locals, slot)].captured = true
		return fc.addUpvalue(bytecode.UpvalueRef{FromParentLocal: true, Index: slot}), true
	}
	if idx, ok := fc.parent.resolveUpvalue(name); ok {
		return fc.addUpvalue(bytecode.UpvalueRef{FromParentLocal: false, Index: idx}), true
	}
	return 0, false
}

func indexOfSlot(locals []localVar, slot int) int {
	for i, l := range locals {
		if l.slot == slot {
			return i
		}
	}
	return -1
}

func (fc *fnCompiler) addUpvalue(ref bytecode.UpvalueRef) int {
	for i, u := range fc.chunk.Upvalues {
		if u == ref {
			return i
		}
	}
	fc.chunk.Upvalues = append(fc.chunk.Upvalues, ref)
	return len(fc.chunk.Upvalues) - 1
}

func (fc *fnCompiler) isReadOnlyLocal(name string) bool {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			return fc.locals[i].readOnly
		}
	}
	return false
}

// identName reads an Identifier's Name, used wherever a binding target is
// structurally guaranteed (by the parser) to be a simple identifier.
func identName(e ast.Expression) (string, bool) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return "", false
	}
	return id.Name, true
}
