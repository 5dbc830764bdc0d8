package compiler

import (
	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
	"jsvm/internal/value"
)

func (fc *fnCompiler) compileExpr(e ast.Expression) {
	line, _ := e.Pos()
	switch n := e.(type) {
	case *ast.NumberLiteral:
		fc.emit(bytecode.OpPushConst, fc.constNum(n.Value), line)
	case *ast.BigIntLiteral:
		v, ok := value.BigIntFromLiteral(n.Digits)
		if !ok {
			fc.errorf(line, "invalid BigInt literal %q", n.Digits+"n")
			fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
			return
		}
		fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(v.BigInt()), line)
	case *ast.StringLiteral:
		fc.emit(bytecode.OpPushConst, fc.constStr(n.Value), line)
	case *ast.BoolLiteral:
		fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(n.Value), line)
	case *ast.NullLiteral:
		fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(bytecode.NullSentinel{}), line)
	case *ast.UndefinedLiteral:
		fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
	case *ast.Identifier:
		fc.compileIdentifierLoad(n)
	case *ast.ThisExpr:
		fc.emit(bytecode.OpGetThis, 0, line)
	case *ast.SuperExpr:
		fc.emit(bytecode.OpGetSuperProto, 0, line)
	case *ast.TemplateLiteral:
		fc.compileTemplateLiteral(n)
	case *ast.RegexLiteral:
		fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(bytecode.RegexLit{Pattern: n.Pattern, Flags: n.Flags}), line)
	case *ast.ArrayLiteral:
		fc.compileArrayLiteral(n)
	case *ast.ObjectLiteral:
		fc.compileObjectLiteral(n)
	case *ast.FunctionExpr:
		fc.compileFunctionLiteral(n)
	case *ast.ClassExpr:
		fc.compileClassExpr(n)
	case *ast.UnaryExpr:
		fc.compileUnary(n)
	case *ast.UpdateExpr:
		fc.compileUpdate(n)
	case *ast.BinaryExpr:
		fc.compileExpr(n.Left)
		fc.compileExpr(n.Right)
		fc.emit(binaryOp(n.Op), 0, line)
	case *ast.LogicalExpr:
		fc.compileLogical(n)
	case *ast.AssignExpr:
		fc.compileAssign(n)
	case *ast.ConditionalExpr:
		fc.compileConditional(n)
	case *ast.CallExpr:
		fc.compileCall(n)
	case *ast.NewExpr:
		fc.compileNew(n)
	case *ast.MemberExpr:
		fc.compileMemberLoad(n)
	case *ast.SequenceExpr:
		for i, sub := range n.Exprs {
			fc.compileExpr(sub)
			if i < len(n.Exprs)-1 {
				fc.emit(bytecode.OpPop, 0, line)
			}
		}
	case *ast.AwaitExpr:
		fc.compileExpr(n.Arg)
		fc.emit(bytecode.OpAwait, 0, line)
	case *ast.YieldExpr:
		if n.Arg != nil {
			fc.compileExpr(n.Arg)
		} else {
			fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
		}
		operand := 0
		if n.Delegate {
			operand = 1
		}
		fc.emit(bytecode.OpYield, operand, line)
	case *ast.TaggedTemplateExpr:
		fc.compileTaggedTemplate(n)
	case *ast.SpreadElement:
		fc.compileExpr(n.Arg)
	default:
		fc.errorf(line, "compiler: unsupported expression %T", e)
	}
}

func (fc *fnCompiler) compileIdentifierLoad(n *ast.Identifier) {
	line, _ := n.Pos()
	if slot, ok := fc.resolveLocal(n.Name); ok {
		fc.emit(bytecode.OpGetLocal, slot, line)
		return
	}
	if idx, ok := fc.resolveUpvalue(n.Name); ok {
		fc.emit(bytecode.OpGetUpvalue, idx, line)
		return
	}
	fc.emit(bytecode.OpGetGlobal, fc.constStr(n.Name), line)
}

func (fc *fnCompiler) compileTemplateLiteral(n *ast.TemplateLiteral) {
	line, _ := n.Pos()
	fc.emit(bytecode.OpPushConst, fc.constStr(n.Quasis[0]), line)
	for i, expr := range n.Exprs {
		fc.compileExpr(expr)
		fc.emit(bytecode.OpAdd, 0, line)
		fc.emit(bytecode.OpPushConst, fc.constStr(n.Quasis[i+1]), line)
		fc.emit(bytecode.OpAdd, 0, line)
	}
}

// compileTaggedTemplate passes the quasis as a plain strings array (no
// separate `.raw` view — spec.md scopes raw-string access out) followed
// by the interpolated expressions, per the tag-function call shape of
// tagged templates.
func (fc *fnCompiler) compileTaggedTemplate(n *ast.TaggedTemplateExpr) {
	line, _ := n.Pos()
	fc.compileExpr(n.Tag)                                           // [fn]
	fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line) // [fn, undefined]
	fc.emit(bytecode.OpSwap, 0, line)                               // [undefined(this), fn]
	fc.emit(bytecode.OpCreateArray, 0, line)
	for _, q := range n.Template.Quasis {
		fc.emit(bytecode.OpPushConst, fc.constStr(q), line)
		fc.emit(bytecode.OpSpreadArray, 0, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
	for _, ex := range n.Template.Exprs {
		fc.compileExpr(ex)
	}
	fc.emit(bytecode.OpCall, len(n.Template.Exprs)+1, line)
}

func (fc *fnCompiler) compileArrayLiteral(n *ast.ArrayLiteral) {
	line, _ := n.Pos()
	fc.emit(bytecode.OpCreateArray, 0, line)
	for _, el := range n.Elements {
		if spread, ok := el.(*ast.SpreadElement); ok {
			fc.compileExpr(spread.Arg)
			fc.emit(bytecode.OpSpreadArray, 1, line)
			fc.emit(bytecode.OpPop, 0, line)
			continue
		}
		fc.compileExpr(el)
		fc.emit(bytecode.OpSpreadArray, 0, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
}

func (fc *fnCompiler) compileObjectLiteral(n *ast.ObjectLiteral) {
	line, _ := n.Pos()
	fc.emit(bytecode.OpCreateObject, 0, line)
	for _, p := range n.Props {
		if p.Kind == "spread" {
			fc.compileExpr(p.Value) // [obj, src]
			fc.emit(bytecode.OpObjectSpreadMerge, 0, line) // merges src onto obj, pushes obj back
			continue
		}
		fc.emit(bytecode.OpDup, 0, line)
		if p.Computed {
			fc.compileExpr(p.KeyExpr)
		} else {
			fc.emit(bytecode.OpPushConst, fc.constStr(p.Key), line)
		}
		fc.compileExpr(p.Value)
		fc.emit(bytecode.OpSetComputed, 0, line)
		fc.emit(bytecode.OpPop, 0, line)
	}
}

func (fc *fnCompiler) compileUnary(n *ast.UnaryExpr) {
	line, _ := n.Pos()
	if n.Op == "typeof" {
		if id, ok := n.Arg.(*ast.Identifier); ok {
			if _, ok := fc.resolveLocal(id.Name); !ok {
				if _, ok := fc.resolveUpvalue(id.Name); !ok {
					fc.emit(bytecode.OpPushConst, fc.constStr(id.Name), line)
					fc.emit(bytecode.OpTypeof, 1, line) // operand 1: resolve by global name, tolerate undeclared
					return
				}
			}
		}
		fc.compileExpr(n.Arg)
		fc.emit(bytecode.OpTypeof, 0, line)
		return
	}
	if n.Op == "delete" {
		if m, ok := n.Arg.(*ast.MemberExpr); ok {
			fc.compileExpr(m.Object)
			if m.Computed {
				fc.compileExpr(m.PropExpr)
				fc.emit(bytecode.OpDeleteProperty, -1, line)
			} else {
				fc.emit(bytecode.OpDeleteProperty, fc.constStr(m.Property), line)
			}
			return
		}
		fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(true), line)
		return
	}
	fc.compileExpr(n.Arg)
	switch n.Op {
	case "-":
		fc.emit(bytecode.OpNeg, 0, line)
	case "+":
		fc.emit(bytecode.OpPos, 0, line)
	case "!":
		fc.emit(bytecode.OpNot, 0, line)
	case "~":
		fc.emit(bytecode.OpBitNot, 0, line)
	case "void":
		fc.emit(bytecode.OpPop, 0, line)
		fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
	default:
		fc.errorf(line, "compiler: unsupported unary operator %q", n.Op)
	}
}

// compileUpdate lowers ++/--. A local-slot operand uses the IncLocal/
// DecLocal sugar (which mutates and pushes the new value); any other
// target falls back to a read/OpIncrement-or-OpDecrement/store sequence through
// compileAssignTarget, which accepts the value already sitting on TOS.
func (fc *fnCompiler) compileUpdate(n *ast.UpdateExpr) {
	line, _ := n.Pos()
	incOp := bytecode.OpIncLocal
	stepOp := bytecode.OpIncrement
	if n.Op == "--" {
		incOp = bytecode.OpDecLocal
		stepOp = bytecode.OpDecrement
	}
	if id, ok := n.Arg.(*ast.Identifier); ok {
		if slot, ok := fc.resolveLocal(id.Name); ok {
			if n.Prefix {
				fc.emit(incOp, slot, line)
				return
			}
			fc.emit(bytecode.OpGetLocal, slot, line) // old value, to return
			fc.emit(incOp, slot, line)                // new value, mutates slot
			fc.emit(bytecode.OpPop, 0, line)          // drop new, keep old
			return
		}
	}
	if n.Prefix {
		fc.compileExpr(n.Arg)
		fc.emit(stepOp, 0, line)
		fc.compileAssignTarget(n.Arg, line)
		return
	}
	fc.compileExpr(n.Arg)             // [old]
	fc.emit(bytecode.OpDup, 0, line)  // [old, old]
	fc.emit(stepOp, 0, line)          // [old, new]
	fc.compileAssignTarget(n.Arg, line) // stores, leaves [old, new]
	fc.emit(bytecode.OpPop, 0, line)  // [old]
}

func binaryOp(op string) bytecode.Op {
	switch op {
	case "+":
		return bytecode.OpAdd
	case "-":
		return bytecode.OpSub
	case "*":
		return bytecode.OpMul
	case "/":
		return bytecode.OpDiv
	case "%":
		return bytecode.OpMod
	case "**":
		return bytecode.OpPow
	case "&":
		return bytecode.OpBitAnd
	case "|":
		return bytecode.OpBitOr
	case "^":
		return bytecode.OpBitXor
	case "<<":
		return bytecode.OpShl
	case ">>":
		return bytecode.OpShr
	case ">>>":
		return bytecode.OpUShr
	case "==":
		return bytecode.OpEq
	case "!=":
		return bytecode.OpNotEq
	case "===":
		return bytecode.OpStrictEq
	case "!==":
		return bytecode.OpStrictNotEq
	case "<":
		return bytecode.OpLess
	case "<=":
		return bytecode.OpLessEq
	case ">":
		return bytecode.OpGreater
	case ">=":
		return bytecode.OpGreaterEq
	case "instanceof":
		return bytecode.OpInstanceof
	case "in":
		return bytecode.OpIn
	default:
		return bytecode.OpNop
	}
}

func (fc *fnCompiler) compileLogical(n *ast.LogicalExpr) {
	line, _ := n.Pos()
	fc.compileExpr(n.Left)
	switch n.Op {
	case "&&":
		j := fc.emit(bytecode.OpJumpIfFalse, -1, line)
		fc.emit(bytecode.OpPop, 0, line)
		fc.compileExpr(n.Right)
		end := fc.emit(bytecode.OpJump, -1, line)
		fc.chunk.Patch(j, fc.chunk.Here())
		fc.chunk.Patch(end, fc.chunk.Here())
	case "||":
		j := fc.emit(bytecode.OpJumpIfTrue, -1, line)
		fc.emit(bytecode.OpPop, 0, line)
		fc.compileExpr(n.Right)
		end := fc.emit(bytecode.OpJump, -1, line)
		fc.chunk.Patch(j, fc.chunk.Here())
		fc.chunk.Patch(end, fc.chunk.Here())
	case "??":
		j := fc.emit(bytecode.OpJumpIfNullish, -1, line)
		end1 := fc.emit(bytecode.OpJump, -1, line)
		fc.chunk.Patch(j, fc.chunk.Here())
		fc.emit(bytecode.OpPop, 0, line)
		fc.compileExpr(n.Right)
		fc.chunk.Patch(end1, fc.chunk.Here())
	}
}

func (fc *fnCompiler) compileAssign(n *ast.AssignExpr) {
	line, _ := n.Pos()
	if n.Op == "=" {
		fc.compileExpr(n.Value)
		fc.destructure(n.Target, "", false, line)
		return
	}
	logicalOp, isLogical := compoundLogical(n.Op)
	if isLogical {
		fc.compileCompoundLogicalAssign(n.Target, logicalOp, n.Value, line)
		return
	}
	fc.compileExpr(n.Target)
	fc.compileExpr(n.Value)
	fc.emit(binaryOp(compoundBinary(n.Op)), 0, line)
	fc.compileAssignTarget(n.Target, line)
}

func compoundBinary(op string) string {
	return op[:len(op)-1]
}

func compoundLogical(op string) (string, bool) {
	switch op {
	case "&&=":
		return "&&", true
	case "||=":
		return "||", true
	case "??=":
		return "??", true
	}
	return "", false
}

func (fc *fnCompiler) compileCompoundLogicalAssign(target ast.Expression, op string, value ast.Expression, line int) {
	fc.compileExpr(target)
	var skip int
	switch op {
	case "&&":
		skip = fc.emit(bytecode.OpJumpIfFalse, -1, line)
	case "||":
		skip = fc.emit(bytecode.OpJumpIfTrue, -1, line)
	case "??":
		skip = fc.emit(bytecode.OpJumpIfNullish, -1, line)
		jNotNullish := fc.emit(bytecode.OpJump, -1, line)
		fc.chunk.Patch(skip, fc.chunk.Here())
		skip = jNotNullish
		// fallthrough below assigns; patch `skip` to the end afterward.
		fc.emit(bytecode.OpPop, 0, line)
		fc.compileExpr(value)
		fc.compileAssignTarget(target, line)
		fc.chunk.Patch(skip, fc.chunk.Here())
		return
	}
	fc.emit(bytecode.OpPop, 0, line)
	fc.compileExpr(value)
	fc.compileAssignTarget(target, line)
	fc.chunk.Patch(skip, fc.chunk.Here())
}

// compileAssignTarget consumes the value on TOS (without popping) and
// stores it through target, leaving the value on the stack afterward —
// the same push-back convention as every OpSet* instruction.
func (fc *fnCompiler) compileAssignTarget(target ast.Expression, line int) {
	switch t := target.(type) {
	case *ast.Identifier:
		if slot, ok := fc.resolveLocal(t.Name); ok {
			if fc.isReadOnlyLocal(t.Name) {
				fc.errorf(line, "assignment to constant variable %q", t.Name)
			}
			fc.emit(bytecode.OpSetLocal, slot, line)
			return
		}
		if idx, ok := fc.resolveUpvalue(t.Name); ok {
			fc.emit(bytecode.OpSetUpvalue, idx, line)
			return
		}
		fc.emit(bytecode.OpSetGlobal, fc.constStr(t.Name), line)
	case *ast.MemberExpr:
		// TOS holds the value to store; OpSetProperty/OpSetComputed expect
		// [obj, (key,) value] with value on top, so push obj (and key)
		// above it, then rotate the value back up.
		fc.compileExpr(t.Object) // [value, obj]
		if t.Computed {
			fc.compileExpr(t.PropExpr) // [value, obj, key]
			fc.emit(bytecode.OpRot3, 0, line) // [obj, key, value]
			fc.emit(bytecode.OpSetComputed, 0, line)
		} else {
			fc.emit(bytecode.OpSwap, 0, line) // [obj, value]
			fc.emit(bytecode.OpSetProperty, fc.constStr(t.Property), line)
		}
	case *ast.ArrayPattern, *ast.ObjectPattern:
		fc.destructure(target, "", false, line)
	default:
		fc.errorf(line, "compiler: invalid assignment target %T", target)
	}
}

func (fc *fnCompiler) compileConditional(n *ast.ConditionalExpr) {
	line, _ := n.Pos()
	fc.compileExpr(n.Test)
	j := fc.emit(bytecode.OpJumpIfFalse, -1, line)
	fc.emit(bytecode.OpPop, 0, line)
	fc.compileExpr(n.Then)
	end := fc.emit(bytecode.OpJump, -1, line)
	fc.chunk.Patch(j, fc.chunk.Here())
	fc.emit(bytecode.OpPop, 0, line)
	fc.compileExpr(n.Else)
	fc.chunk.Patch(end, fc.chunk.Here())
}

func (fc *fnCompiler) compileCall(n *ast.CallExpr) {
	line, _ := n.Pos()
	if _, ok := n.Callee.(*ast.SuperExpr); ok {
		argc := fc.compileArgs(n.Args, line)
		fc.emit(bytecode.OpSuperCall, argc, line)
		return
	}
	if m, ok := n.Callee.(*ast.MemberExpr); ok {
		if _, ok := m.Object.(*ast.SuperExpr); ok {
			// super.method(...): the method is looked up on the
			// superclass prototype but bound to the real `this`.
			fc.emit(bytecode.OpGetThis, 0, line)
			fc.emit(bytecode.OpGetSuperProto, 0, line)
			fc.compileMemberLoadFromObjOnStack(m, line)
			argc := fc.compileArgs(n.Args, line)
			fc.emitCallOp(n, argc, line)
			return
		}
		// Method call convention: [thisArg, fn, args...]. Dup keeps a
		// copy of the receiver below the loaded method so both survive
		// the GetProperty/GetComputed that follows.
		fc.compileExpr(m.Object)
		if m.Optional {
			fc.emit(bytecode.OpDup, 0, line)
			jNullish := fc.emit(bytecode.OpJumpIfNullish, -1, line)
			fc.compileMemberLoadFromObjOnStack(m, line)
			argc := fc.compileArgs(n.Args, line)
			fc.emitCallOp(n, argc, line)
			end := fc.emit(bytecode.OpJump, -1, line)
			fc.chunk.Patch(jNullish, fc.chunk.Here())
			fc.emit(bytecode.OpPop, 0, line) // drop the duplicate
			fc.emit(bytecode.OpPop, 0, line) // drop the original receiver
			fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
			fc.chunk.Patch(end, fc.chunk.Here())
			return
		}
		fc.emit(bytecode.OpDup, 0, line)
		fc.compileMemberLoadFromObjOnStack(m, line)
		argc := fc.compileArgs(n.Args, line)
		fc.emitCallOp(n, argc, line)
		return
	}
	fc.compileExpr(n.Callee)
	fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
	fc.emit(bytecode.OpSwap, 0, line)
	argc := fc.compileArgs(n.Args, line)
	fc.emitCallOp(n, argc, line)
}

func (fc *fnCompiler) emitCallOp(n *ast.CallExpr, argc, line int) {
	if n.Optional {
		fc.emit(bytecode.OpCallOptional, argc, line)
	} else {
		fc.emit(bytecode.OpCall, argc, line)
	}
}

// compileArgs pushes receiver-less call arguments, handling spread via
// OpSpreadArray over a synthetic growing array would require reshaping
// the call convention; instead each spread argument is expanded at
// compile time into an OpSpreadArray against an implicit args array the
// VM assembles — simplified by emitting a dedicated marker the VM
// recognizes via a negative argc meaning "final operand is an args
// array", used only when a spread argument is present.
func (fc *fnCompiler) compileArgs(args []ast.Expression, line int) int {
	hasSpread := false
	for _, a := range args {
		if _, ok := a.(*ast.SpreadElement); ok {
			hasSpread = true
			break
		}
	}
	if !hasSpread {
		for _, a := range args {
			fc.compileExpr(a)
		}
		return len(args)
	}
	fc.emit(bytecode.OpCreateArray, 0, line)
	for _, a := range args {
		if sp, ok := a.(*ast.SpreadElement); ok {
			fc.compileExpr(sp.Arg)
			fc.emit(bytecode.OpSpreadArray, 1, line)
		} else {
			fc.compileExpr(a)
			fc.emit(bytecode.OpSpreadArray, 0, line)
		}
		fc.emit(bytecode.OpPop, 0, line)
	}
	return -1
}

func (fc *fnCompiler) compileNew(n *ast.NewExpr) {
	line, _ := n.Pos()
	fc.compileExpr(n.Callee)
	argc := fc.compileArgs(n.Args, line)
	fc.emit(bytecode.OpNew, argc, line)
}

func (fc *fnCompiler) compileMemberLoad(n *ast.MemberExpr) {
	line, _ := n.Pos()
	fc.compileExpr(n.Object)
	if n.Optional {
		fc.emit(bytecode.OpDup, 0, line)
		j := fc.emit(bytecode.OpJumpIfNullish, -1, line)
		fc.compileMemberLoadFromObjOnStack(n, line) // [obj, value]
		fc.emit(bytecode.OpSwap, 0, line)
		fc.emit(bytecode.OpPop, 0, line) // drop the receiver, keep value
		end := fc.emit(bytecode.OpJump, -1, line)
		fc.chunk.Patch(j, fc.chunk.Here())
		fc.emit(bytecode.OpPop, 0, line)
		fc.emit(bytecode.OpPushConst, fc.chunk.AddConstant(nil), line)
		fc.chunk.Patch(end, fc.chunk.Here())
		return
	}
	fc.compileMemberLoadFromObjOnStack(n, line)
}

func (fc *fnCompiler) compileMemberLoadFromObjOnStack(n *ast.MemberExpr, line int) {
	if n.Computed {
		fc.compileExpr(n.PropExpr)
		fc.emit(bytecode.OpGetComputed, 0, line)
	} else {
		fc.emit(bytecode.OpGetProperty, fc.constStr(n.Property), line)
	}
}
