package compiler

import (
	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
)

func (fc *fnCompiler) compileStmt(s ast.Statement) {
	line, _ := s.Pos()
	switch n := s.(type) {
	case *ast.VarDecl:
		fc.compileVarDecl(n)
	case *ast.ExprStatement:
		fc.compileExpr(n.Expr)
		fc.emit(bytecode.OpPop, 0, line)
	case *ast.BlockStatement:
		fc.beginScope()
		fc.hoistFunctions(n.Body)
		for _, st := range n.Body {
			fc.compileStmt(st)
		}
		fc.endScope(line)
	case *ast.IfStatement:
		fc.compileIf(n)
	case *ast.WhileStatement:
		fc.compileWhile(n, "")
	case *ast.DoWhileStatement:
		fc.compileDoWhile(n, "")
	case *ast.ForStatement:
		fc.compileFor(n, "")
	case *ast.ForInStatement:
		fc.compileForIn(n, "")
	case *ast.ReturnStatement:
		if n.Arg != nil {
			fc.compileExpr(n.Arg)
		} else {
			fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
		}
		fc.emit(bytecode.OpReturn, 0, line)
	case *ast.BreakStatement:
		fc.compileBreak(n)
	case *ast.ContinueStatement:
		fc.compileContinue(n)
	case *ast.ThrowStatement:
		fc.compileExpr(n.Arg)
		fc.emit(bytecode.OpThrow, 0, line)
	case *ast.TryStatement:
		fc.compileTry(n)
	case *ast.SwitchStatement:
		fc.compileSwitch(n)
	case *ast.LabeledStatement:
		fc.compileLabeled(n)
	case *ast.FunctionDecl:
		fc.compileFunctionDecl(n)
	case *ast.ClassDecl:
		fc.compileClassDecl(n)
	case *ast.ImportDecl, *ast.ExportDecl:
		fc.compileModuleStmt(s)
	default:
		fc.errorf(line, "compiler: unsupported statement %T", s)
	}
}

// hoistFunctions pre-declares function declarations at the top of the
// block they appear in so calls textually preceding the declaration
// resolve, matching function-hoisting semantics (spec.md §4.2).
func (fc *fnCompiler) hoistFunctions(body []ast.Statement) {
	for _, st := range body {
		if fn, ok := st.(*ast.FunctionDecl); ok {
			fc.declareLocal(fn.Name, false)
		}
	}
}

// hoistVars walks a function body recursively (not descending into nested
// function bodies) collecting `var`-declared names, which are scoped to
// the enclosing function regardless of block nesting (spec.md §4.2 "var
// hoisting").
func (fc *fnCompiler) hoistVars(body []ast.Statement) {
	for _, st := range body {
		fc.hoistVarsIn(st)
	}
}

func (fc *fnCompiler) hoistVarsIn(s ast.Statement) {
	switch n := s.(type) {
	case *ast.VarDecl:
		if n.Kind == "var" {
			for _, d := range n.Decls {
				for _, name := range patternNames(d.Target) {
					if _, ok := fc.resolveLocal(name); !ok {
						fc.declareLocal(name, false)
					}
				}
			}
		}
	case *ast.BlockStatement:
		fc.hoistVars(n.Body)
	case *ast.IfStatement:
		fc.hoistVarsIn(n.Then)
		if n.Else != nil {
			fc.hoistVarsIn(n.Else)
		}
	case *ast.WhileStatement:
		fc.hoistVarsIn(n.Body)
	case *ast.DoWhileStatement:
		fc.hoistVarsIn(n.Body)
	case *ast.ForStatement:
		if vd, ok := n.Init.(*ast.VarDecl); ok {
			fc.hoistVarsIn(vd)
		}
		fc.hoistVarsIn(n.Body)
	case *ast.ForInStatement:
		if vd, ok := n.Left.(*ast.VarDecl); ok {
			fc.hoistVarsIn(vd)
		}
		fc.hoistVarsIn(n.Body)
	case *ast.TryStatement:
		fc.hoistVars(n.Block.Body)
		if n.HasCatch {
			fc.hoistVars(n.CatchBody.Body)
		}
		if n.HasFinally {
			fc.hoistVars(n.FinallyBody.Body)
		}
	case *ast.SwitchStatement:
		for _, c := range n.Cases {
			fc.hoistVars(c.Body)
		}
	case *ast.LabeledStatement:
		fc.hoistVarsIn(n.Body)
	}
}

// patternNames flattens a binding target (identifier or destructuring
// pattern) into the list of names it binds.
func patternNames(e ast.Expression) []string {
	switch n := e.(type) {
	case *ast.Identifier:
		return []string{n.Name}
	case *ast.ArrayPattern:
		var out []string
		for _, p := range n.Elements {
			out = append(out, patternNames(p.Target)...)
		}
		return out
	case *ast.ObjectPattern:
		var out []string
		for _, p := range n.Props {
			out = append(out, patternNames(p.Value.Target)...)
		}
		if n.Rest != "" {
			out = append(out, n.Rest)
		}
		return out
	default:
		return nil
	}
}

func (fc *fnCompiler) compileVarDecl(n *ast.VarDecl) {
	readOnly := n.Kind == "const"
	for _, d := range n.Decls {
		line, _ := n.Pos()
		if d.Init != nil {
			fc.compileExpr(d.Init)
		} else {
			fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
		}
		fc.bindDeclarator(d.Target, n.Kind, readOnly, line)
	}
}

// bindDeclarator consumes the value on TOS, binding it to target. `var`
// targets resolve to their hoisted slot; `let`/`const` declare a fresh
// slot in the current (possibly nested) scope.
func (fc *fnCompiler) bindDeclarator(target ast.Expression, kind string, readOnly bool, line int) {
	if id, ok := identName(target); ok {
		if kind == "var" && fc.parent == nil && fc.scopeDepth == 0 {
			fc.emit(bytecode.OpSetGlobal, fc.constStr(id), line)
			fc.emit(bytecode.OpPop, 0, line)
			return
		}
		var slot int
		if kind == "var" {
			s, ok := fc.resolveLocal(id)
			if !ok {
				s = fc.declareLocal(id, false)
			}
			slot = s
		} else {
			slot = fc.declareLocal(id, readOnly)
		}
		fc.emit(bytecode.OpSetLocal, slot, line)
		fc.emit(bytecode.OpPop, 0, line)
		return
	}
	fc.destructure(target, kind, readOnly, line)
	fc.emit(bytecode.OpPop, 0, line)
}

func (fc *fnCompiler) compileIf(n *ast.IfStatement) {
	line, _ := n.Pos()
	fc.compileExpr(n.Test)
	elseJump := fc.emit(bytecode.OpJumpIfFalse, -1, line)
	fc.emit(bytecode.OpPop, 0, line)
	fc.compileStmt(n.Then)
	endJump := fc.emit(bytecode.OpJump, -1, line)
	fc.chunk.Patch(elseJump, fc.chunk.Here())
	fc.emit(bytecode.OpPop, 0, line)
	if n.Else != nil {
		fc.compileStmt(n.Else)
	}
	fc.chunk.Patch(endJump, fc.chunk.Here())
}

func (fc *fnCompiler) pushLoop(label string) *loopCtx {
	lc := &loopCtx{label: label}
	fc.loops = append(fc.loops, lc)
	return lc
}

func (fc *fnCompiler) popLoop(lc *loopCtx, endPC int) {
	for _, j := range lc.breakJumps {
		fc.chunk.Patch(j, endPC)
	}
	fc.loops = fc.loops[:len(fc.loops)-1]
}

func (fc *fnCompiler) compileWhile(n *ast.WhileStatement, label string) {
	line, _ := n.Pos()
	lc := fc.pushLoop(label)
	start := fc.chunk.Here()
	lc.contStart = start
	fc.compileExpr(n.Test)
	exitJump := fc.emit(bytecode.OpJumpIfFalse, -1, line)
	fc.emit(bytecode.OpPop, 0, line)
	fc.compileStmt(n.Body)
	fc.emit(bytecode.OpJump, start, line)
	fc.chunk.Patch(exitJump, fc.chunk.Here())
	fc.emit(bytecode.OpPop, 0, line)
	fc.popLoop(lc, fc.chunk.Here())
}

func (fc *fnCompiler) compileDoWhile(n *ast.DoWhileStatement, label string) {
	line, _ := n.Pos()
	lc := fc.pushLoop(label)
	start := fc.chunk.Here()
	fc.compileStmt(n.Body)
	lc.contStart = fc.chunk.Here()
	fc.compileExpr(n.Test)
	fc.emit(bytecode.OpJumpIfTrue, start, line)
	fc.emit(bytecode.OpPop, 0, line)
	fc.popLoop(lc, fc.chunk.Here())
}

func (fc *fnCompiler) compileFor(n *ast.ForStatement, label string) {
	line, _ := n.Pos()
	fc.beginScope()
	switch init := n.Init.(type) {
	case *ast.VarDecl:
		fc.compileVarDecl(init)
	case ast.Expression:
		fc.compileExpr(init)
		fc.emit(bytecode.OpPop, 0, line)
	}
	lc := fc.pushLoop(label)
	start := fc.chunk.Here()
	var exitJump int
	hasTest := n.Test != nil
	if hasTest {
		fc.compileExpr(n.Test)
		exitJump = fc.emit(bytecode.OpJumpIfFalse, -1, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
	fc.compileStmt(n.Body)
	lc.contStart = fc.chunk.Here()
	if n.Update != nil {
		fc.compileExpr(n.Update)
		fc.emit(bytecode.OpPop, 0, line)
	}
	fc.emit(bytecode.OpJump, start, line)
	if hasTest {
		fc.chunk.Patch(exitJump, fc.chunk.Here())
		fc.emit(bytecode.OpPop, 0, line)
	}
	fc.popLoop(lc, fc.chunk.Here())
	fc.endScope(line)
}

// compileForIn lowers both for-in (property enumeration) and for-of
// (iterator protocol) to one iterator-result-object loop: GetIterator
// once, then GetProperty("done")/("value") off each IteratorNext result.
func (fc *fnCompiler) compileForIn(n *ast.ForInStatement, label string) {
	line, _ := n.Pos()
	fc.beginScope()
	fc.compileExpr(n.Right)
	if !n.Of {
		fc.emit(bytecode.OpGetIterator, 1, line) // operand 1: enumerate keys
	} else {
		fc.emit(bytecode.OpGetIterator, 0, line)
	}
	iterSlot := fc.declareLocal(" iter", false)
	fc.emit(bytecode.OpSetLocal, iterSlot, line)
	fc.emit(bytecode.OpPop, 0, line)

	lc := fc.pushLoop(label)
	start := fc.chunk.Here()
	lc.contStart = start
	fc.emit(bytecode.OpGetLocal, iterSlot, line)
	fc.emit(bytecode.OpIteratorNext, 0, line)
	resultSlot := fc.declareLocal(" iterresult", false)
	fc.emit(bytecode.OpSetLocal, resultSlot, line)
	fc.emit(bytecode.OpPop, 0, line)

	fc.emit(bytecode.OpGetLocal, resultSlot, line)
	fc.emit(bytecode.OpGetProperty, fc.constStr("done"), line)
	exitJump := fc.emit(bytecode.OpJumpIfTrue, -1, line)
	fc.emit(bytecode.OpPop, 0, line)

	fc.beginScope()
	fc.emit(bytecode.OpGetLocal, resultSlot, line)
	fc.emit(bytecode.OpGetProperty, fc.constStr("value"), line)
	switch left := n.Left.(type) {
	case *ast.VarDecl:
		fc.bindDeclarator(left.Decls[0].Target, left.Kind, left.Kind == "const", line)
	case ast.Expression:
		fc.compileAssignTarget(left, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
	fc.compileStmt(n.Body)
	fc.endScope(line)

	fc.emit(bytecode.OpJump, start, line)
	fc.chunk.Patch(exitJump, fc.chunk.Here())
	fc.emit(bytecode.OpPop, 0, line)
	fc.popLoop(lc, fc.chunk.Here())
	fc.endScope(line)
}

func (fc *fnCompiler) compileBreak(n *ast.BreakStatement) {
	line, _ := n.Pos()
	for i := len(fc.loops) - 1; i >= 0; i-- {
		if n.Label == "" || fc.loops[i].label == n.Label {
			j := fc.emit(bytecode.OpJump, -1, line)
			fc.loops[i].breakJumps = append(fc.loops[i].breakJumps, j)
			return
		}
	}
	fc.errorf(line, "break: no enclosing loop matches label %q", n.Label)
}

func (fc *fnCompiler) compileContinue(n *ast.ContinueStatement) {
	line, _ := n.Pos()
	for i := len(fc.loops) - 1; i >= 0; i-- {
		if fc.loops[i].isSwitch {
			continue
		}
		if n.Label == "" || fc.loops[i].label == n.Label {
			fc.emit(bytecode.OpJump, fc.loops[i].contStart, line)
			return
		}
	}
	fc.errorf(line, "continue: no enclosing loop matches label %q", n.Label)
}

func (fc *fnCompiler) compileLabeled(n *ast.LabeledStatement) {
	switch body := n.Body.(type) {
	case *ast.WhileStatement:
		fc.compileWhile(body, n.Label)
	case *ast.DoWhileStatement:
		fc.compileDoWhile(body, n.Label)
	case *ast.ForStatement:
		fc.compileFor(body, n.Label)
	case *ast.ForInStatement:
		fc.compileForIn(body, n.Label)
	default:
		fc.compileStmt(n.Body)
	}
}

// compileTry lowers to the VM's per-frame try stack: OpTryEnter pushes an
// entry holding the landing-pad pc (its operand) and the operand-stack
// depth, OpTryExit pops it.
// `finally` is duplicated along the normal-exit path and relied on by the
// VM to also run along exception-unwind and return-unwind paths.
func (fc *fnCompiler) compileTry(n *ast.TryStatement) {
	line, _ := n.Pos()
	enter := fc.emit(bytecode.OpTryEnter, -1, line)
	fc.compileStmt(n.Block)
	fc.emit(bytecode.OpTryExit, 0, line)
	if n.HasFinally {
		fc.compileStmt(n.FinallyBody)
	}
	afterJump := fc.emit(bytecode.OpJump, -1, line)

	catchPC := fc.chunk.Here()
	if n.HasCatch {
		fc.beginScope()
		if n.CatchParam != nil {
			fc.bindDeclarator(n.CatchParam, "let", false, line)
		} else {
			fc.emit(bytecode.OpPop, 0, line)
		}
		fc.compileStmt(n.CatchBody)
		fc.endScope(line)
		if n.HasFinally {
			fc.compileStmt(n.FinallyBody)
		}
	} else if n.HasFinally {
		fc.compileStmt(n.FinallyBody)
		fc.emit(bytecode.OpThrow, 0, line)
	}
	fc.chunk.Patch(enter, catchPC)
	fc.chunk.Patch(afterJump, fc.chunk.Here())
}

// compileSwitch compiles to a comparison cascade: each case dup-compares
// the discriminant, a matching `stub` drops the leftover comparison
// bool and the discriminant itself before jumping into the body, so every
// case body (and fallthrough between them) starts with an empty stack
// contribution from the switch machinery.
func (fc *fnCompiler) compileSwitch(n *ast.SwitchStatement) {
	line, _ := n.Pos()
	fc.compileExpr(n.Disc)
	fc.beginScope()
	lc := fc.pushLoop("")
	lc.isSwitch = true

	testJumps := make([]int, len(n.Cases))
	defaultIdx := -1
	for i, c := range n.Cases {
		if c.Test == nil {
			defaultIdx = i
			continue
		}
		fc.emit(bytecode.OpDup, 0, line)
		fc.compileExpr(c.Test)
		fc.emit(bytecode.OpStrictEq, 0, line)
		testJumps[i] = fc.emit(bytecode.OpJumpIfTrue, -1, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
	fc.emit(bytecode.OpPop, 0, line) // drop discriminant on the all-false path
	defaultJump := fc.emit(bytecode.OpJump, -1, line)

	stubTarget := make([]int, len(n.Cases))
	for i, c := range n.Cases {
		if c.Test == nil {
			continue
		}
		fc.chunk.Patch(testJumps[i], fc.chunk.Here())
		fc.emit(bytecode.OpPop, 0, line) // drop comparison bool
		fc.emit(bytecode.OpPop, 0, line) // drop discriminant
		stubTarget[i] = fc.emit(bytecode.OpJump, -1, line)
	}

	bodyStart := make([]int, len(n.Cases))
	for i, c := range n.Cases {
		bodyStart[i] = fc.chunk.Here()
		for _, st := range c.Body {
			fc.compileStmt(st)
		}
	}
	for i, c := range n.Cases {
		if c.Test != nil {
			fc.chunk.Patch(stubTarget[i], bodyStart[i])
		}
	}
	if defaultIdx >= 0 {
		fc.chunk.Patch(defaultJump, bodyStart[defaultIdx])
	} else {
		fc.chunk.Patch(defaultJump, fc.chunk.Here())
	}
	fc.popLoop(lc, fc.chunk.Here())
	fc.endScope(line)
}

func (fc *fnCompiler) compileFunctionDecl(n *ast.FunctionDecl) {
	line, _ := n.Pos()
	slot, ok := fc.resolveLocal(n.Name)
	if !ok {
		slot = fc.declareLocal(n.Name, false)
	}
	fc.compileFunctionLiteral(&ast.FunctionExpr{Base: n.Base, Name: n.Name, Params: n.Params, Body: n.Body, Async: n.Async, Gen: n.Gen})
	fc.emit(bytecode.OpSetLocal, slot, line)
	fc.emit(bytecode.OpPop, 0, line)
}

// compileModuleStmt handles import/export declarations. Module resolution
// and linking is an external collaborator's job (spec.md Non-goals); here
// a bare `export` just compiles the wrapped declaration, and `import`
// declares bindings as undefined placeholders a host loader is expected
// to populate before execution.
func (fc *fnCompiler) compileModuleStmt(s ast.Statement) {
	line, _ := s.Pos()
	switch n := s.(type) {
	case *ast.ExportDecl:
		if n.Decl != nil {
			fc.compileStmt(n.Decl)
		}
	case *ast.ImportDecl:
		if n.Default != "" {
			fc.declareLocal(n.Default, false)
			fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
			fc.emit(bytecode.OpPop, 0, line)
		}
		if n.Namespace != "" {
			fc.declareLocal(n.Namespace, false)
		}
		for _, spec := range n.Named {
			fc.declareLocal(spec.Local, false)
		}
	}
}
