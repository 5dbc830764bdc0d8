package compiler

import (
	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
)

func (fc *fnCompiler) compileClassDecl(n *ast.ClassDecl) {
	line, _ := n.Pos()
	slot := fc.declareLocal(n.Name, false)
	fc.compileClassCommon(n.Name, n.Super, n.Members, line)
	fc.emit(bytecode.OpSetLocal, slot, line)
	fc.emit(bytecode.OpPop, 0, line)
}

func (fc *fnCompiler) compileClassExpr(n *ast.ClassExpr) {
	line, _ := n.Pos()
	fc.compileClassCommon(n.Name, n.Super, n.Members, line)
}

// compileClassCommon builds a ClassSpec constant and emits OpMakeClass.
// When the class extends a superclass, the super expression is compiled
// immediately before the instruction so the VM can pop it to link the
// prototype chain and bind `super` inside instance methods.
func (fc *fnCompiler) compileClassCommon(name string, super ast.Expression, members []ast.ClassMember, line int) {
	spec := &bytecode.ClassSpec{Name: name, HasSuper: super != nil}

	var ctorMember *ast.ClassMember
	for i := range members {
		if members[i].Kind == "constructor" {
			ctorMember = &members[i]
			break
		}
	}
	fieldInits := make([]ast.ClassMember, 0)
	for _, m := range members {
		if m.Kind == "field" && !m.Static {
			fieldInits = append(fieldInits, m)
		}
	}
	spec.Ctor = fc.compileConstructorChunk(name, ctorMember, fieldInits, super != nil, line)

	for _, m := range members {
		if m.Kind == "constructor" || (m.Kind == "field" && !m.Static) {
			continue
		}
		spec.Members = append(spec.Members, fc.compileClassMember(m, line))
	}

	if super != nil {
		fc.compileExpr(super)
	}
	idx := fc.chunk.AddConstant(spec)
	fc.emit(bytecode.OpMakeClass, idx, line)
}

func (fc *fnCompiler) compileClassMember(m ast.ClassMember, line int) bytecode.MethodSpec {
	ms := bytecode.MethodSpec{Key: m.Key, Computed: m.Computed, Kind: m.Kind, Static: m.Static}
	if m.Computed {
		ms.KeyChunk = fc.compileZeroArgChunk(m.KeyExpr, line)
	}
	switch m.Kind {
	case "field":
		if m.Value != nil {
			ms.FieldInit = fc.compileZeroArgChunk(m.Value, line)
		}
	default:
		ms.Fn = fc.compileMethodChunk(m.Fn, line)
	}
	return ms
}

// compileZeroArgChunk compiles a standalone expression (a computed key or
// a field initializer) into its own 0-parameter Chunk, evaluated by the
// VM at class-construction or instantiation time with `this` bound as
// appropriate.
func (fc *fnCompiler) compileZeroArgChunk(e ast.Expression, line int) *bytecode.Chunk {
	child := &fnCompiler{parent: fc, errs: fc.errs, chunk: &bytecode.Chunk{Name: "<field>"}}
	child.beginScope()
	child.compileExpr(e)
	child.emit(bytecode.OpReturn, 0, line)
	child.chunk.NumLocals = len(child.locals)
	return child.chunk
}

func (fc *fnCompiler) compileMethodChunk(fn *ast.FunctionExpr, line int) *bytecode.Chunk {
	child := &fnCompiler{parent: fc, errs: fc.errs, isMethod: true, chunk: &bytecode.Chunk{Name: fn.Name}}
	child.beginScope()
	for _, p := range fn.Params {
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
	child.hoistVars(fn.Body.Body)
	child.hoistFunctions(fn.Body.Body)
	for _, st := range fn.Body.Body {
		child.compileStmt(st)
	}
	child.emit(bytecode.OpPushConst, child.chunk.AddConstant(nil), line)
	child.emit(bytecode.OpReturn, 0, line)
	child.chunk.NumLocals = len(child.locals)
	return child.chunk
}

// compileConstructorChunk synthesizes a default constructor (`super(...
// args)` then field initializers) when the class declares none, and
// always runs field initializers right after super() returns / at frame
// entry for a base class, matching class-fields-run-before-constructor-
// body-after-super semantics.
func (fc *fnCompiler) compileConstructorChunk(name string, ctor *ast.ClassMember, fields []ast.ClassMember, hasSuper bool, line int) *bytecode.Chunk {
	child := &fnCompiler{parent: fc, errs: fc.errs, isMethod: true, isCtor: true, hasSuper: hasSuper, chunk: &bytecode.Chunk{Name: name}}
	child.beginScope()

	var params []ast.Param
	if ctor != nil {
		params = ctor.Fn.Params
	}
	for _, p := range params {
		if p.Rest {
			pname, _ := identName(p.Target)
			child.chunk.RestSlot = child.declareLocal(pname, false)
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

	if ctor == nil && hasSuper {
		// Synthesizes `constructor(...args) { super(...args); }`.
		child.chunk.RestSlot = child.declareLocal(" ctorargs", false)
		child.chunk.HasRestParam = true
		slot, _ := child.resolveLocal(" ctorargs")
		child.emit(bytecode.OpGetLocal, slot, line)
		child.emit(bytecode.OpSuperCall, -1, line)
		child.emit(bytecode.OpPop, 0, line)
	}
	for _, f := range fields {
		child.emit(bytecode.OpGetThis, 0, line)
		if f.Computed {
			child.compileExpr(f.KeyExpr)
		} else {
			child.emit(bytecode.OpPushConst, child.constStr(f.Key), line)
		}
		if f.Value != nil {
			child.compileExpr(f.Value)
		} else {
			child.emit(bytecode.OpPushConst, child.chunk.AddConstant(nil), line)
		}
		child.emit(bytecode.OpSetComputed, 0, line)
		child.emit(bytecode.OpPop, 0, line)
	}
	if ctor != nil {
		child.hoistVars(ctor.Fn.Body.Body)
		child.hoistFunctions(ctor.Fn.Body.Body)
		for _, st := range ctor.Fn.Body.Body {
			child.compileStmt(st)
		}
	}
	child.emit(bytecode.OpGetThis, 0, line)
	child.emit(bytecode.OpReturn, 0, line)
	child.chunk.NumLocals = len(child.locals)
	return child.chunk
}
