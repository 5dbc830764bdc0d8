package vm

import (
	"jsvm/internal/bytecode"
	"jsvm/internal/value"
)

// call invokes fn with receiver this and args, dispatching on the
// callable's Kind. It is the shared landing point for OpCall, getter/
// setter invocation, and any native function that calls back into script
// (e.g. Array.prototype.map's callback).
func (i *Interpreter) call(fn value.Value, this value.Value, args []value.Value) (value.Value, error) {
	if !fn.IsObject() || !fn.Object().IsCallable() {
		return value.Undefined, i.TypeError("%s is not a function", fn.ToString())
	}
	obj := fn.Object()
	switch obj.Kind {
	case value.KindClass:
		return value.Undefined, i.TypeError("Class constructor %s cannot be invoked without 'new'", obj.Name)
	case value.KindNativeFunction:
		v, err := obj.Native(this, args)
		if err != nil {
			if exc, ok := err.(*Exception); ok {
				return value.Undefined, exc
			}
			return value.Undefined, i.TypeError("%s", err.Error())
		}
		return v, nil
	case value.KindBound:
		return i.call(value.Obj(obj.Target), obj.BoundThis, append(append([]value.Value{}, obj.BoundArgs...), args...))
	case value.KindFunction:
		chunk, _ := obj.Chunk.(*bytecode.Chunk)
		receiver := this
		if chunk != nil && chunk.IsArrow {
			receiver = obj.ThisVal
		}
		var homeClass *value.Object
		if obj.Target != nil && obj.Target.Kind == value.KindClass {
			homeClass = obj.Target
		}
		if chunk != nil && chunk.IsGenerator {
			return i.runGenerator(chunk, obj.Captured, receiver, homeClass, args)
		}
		if chunk != nil && chunk.IsAsync {
			return i.runAsync(chunk, obj.Captured, receiver, homeClass, args)
		}
		return i.callChunk(chunk, obj.Captured, receiver, homeClass, args)
	default:
		return value.Undefined, i.TypeError("%s is not a function", fn.ToString())
	}
}

// construct implements `new`: class constructors run against a freshly
// allocated `this`; ordinary functions may override the allocated object
// by returning one of their own (spec.md §4.2's generalization of
// ECMA-262 [[Construct]] for both forms).
func (i *Interpreter) construct(fn value.Value, args []value.Value) (value.Value, error) {
	if !fn.IsObject() || !fn.Object().IsCallable() {
		return value.Undefined, i.TypeError("%s is not a constructor", fn.ToString())
	}
	obj := fn.Object()
	switch obj.Kind {
	case value.KindClass:
		inst := i.Track(value.NewObject(obj.PrototypeObj))
		chunk, _ := obj.Chunk.(*bytecode.Chunk)
		return i.callChunk(chunk, obj.Captured, value.Obj(inst), obj, args)
	case value.KindFunction:
		proto := i.objectProto
		if p, ok := obj.Get("prototype"); ok && p.IsObject() {
			proto = p.Object()
		}
		inst := i.Track(value.NewObject(proto))
		chunk, _ := obj.Chunk.(*bytecode.Chunk)
		result, err := i.callChunk(chunk, obj.Captured, value.Obj(inst), nil, args)
		if err != nil {
			return value.Undefined, err
		}
		if result.IsObject() {
			return result, nil
		}
		return value.Obj(inst), nil
	case value.KindNativeFunction:
		proto := i.objectProto
		if p, ok := obj.Get("prototype"); ok && p.IsObject() {
			proto = p.Object()
		}
		inst := i.Track(value.NewObject(proto))
		v, err := obj.Native(value.Obj(inst), args)
		if err != nil {
			if exc, ok := err.(*Exception); ok {
				return value.Undefined, exc
			}
			return value.Undefined, i.TypeError("%s", err.Error())
		}
		if v.IsObject() {
			return v, nil
		}
		return value.Obj(inst), nil
	case value.KindBound:
		return i.construct(value.Obj(obj.Target), append(append([]value.Value{}, obj.BoundArgs...), args...))
	default:
		return value.Undefined, i.TypeError("%s is not a constructor", fn.ToString())
	}
}

// captureUpvalues builds the []*Cell list a new closure over chunk should
// carry, reading frame's locals/upvalues according to chunk's capture
// plan (spec.md §4.3 "Closure capture").
func captureUpvalues(frame *Frame, chunk *bytecode.Chunk) []*value.Cell {
	if len(chunk.Upvalues) == 0 {
		return nil
	}
	cells := make([]*value.Cell, len(chunk.Upvalues))
	for idx, ref := range chunk.Upvalues {
		if ref.FromParentLocal {
			cells[idx] = frame.locals[ref.Index]
		} else {
			cells[idx] = frame.upvalues[ref.Index]
		}
	}
	return cells
}

// makeFunctionObject builds the runtime Function object for a compiled
// Chunk at OpMakeFunction/OpMakeArrow time: captures upvalues, and (for
// ordinary, non-arrow functions) wires up a `.prototype` object so the
// function can also be used as a constructor.
func (i *Interpreter) makeFunctionObject(chunk *bytecode.Chunk, frame *Frame) *value.Object {
	fn := i.Track(&value.Object{Kind: value.KindFunction, Proto: i.functionProto, Name: chunk.Name, Params: chunk.NumParams, Chunk: chunk, Captured: captureUpvalues(frame, chunk)})
	if chunk.IsArrow {
		fn.ThisVal = frame.thisVal
		if frame.homeClass != nil {
			fn.Target = frame.homeClass
		}
	} else {
		proto := i.Track(value.NewObject(i.objectProto))
		proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(fn), Writable: true, Configurable: true})
		fn.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto), Writable: true})
	}
	fn.DefineOwn("name", value.PropertyDescriptor{Value: value.String(chunk.Name), Configurable: true})
	fn.DefineOwn("length", value.PropertyDescriptor{Value: value.Number(float64(chunk.NumParams)), Configurable: true})
	return fn
}
