package vm

import (
	"math/big"

	"jsvm/internal/bytecode"
	"jsvm/internal/value"
)

// resolveConst decodes one constant-pool entry into a Value. Chunks and
// ClassSpecs are looked up by their own opcodes (OpMakeFunction/OpMakeArrow/
// OpMakeClass) rather than here.
func (i *Interpreter) resolveConst(chunk *bytecode.Chunk, idx int) value.Value {
	switch c := chunk.Constants[idx].(type) {
	case nil:
		return value.Undefined
	case float64:
		return value.Number(c)
	case string:
		return value.String(c)
	case bool:
		return value.Bool(c)
	case bytecode.NullSentinel:
		return value.Null
	case bytecode.RegexLit:
		return value.Obj(i.Track(&value.Object{Kind: value.KindRegExp, Proto: i.objectProto, Pattern: c.Pattern, Flags: c.Flags}))
	case *big.Int:
		return value.BigInt(c)
	default:
		return value.Undefined
	}
}

// collectArgs reads an OpCall/OpNew/OpSuperCall operand: a non-negative
// count of individually pushed arguments, or -1 meaning the single value
// on TOS is an array holding them all (the spread-call convention
// compileArgs falls back to).
func (i *Interpreter) collectArgs(n int) []value.Value {
	if n == -1 {
		v := i.pop()
		if v.IsObject() && v.Object().Kind == value.KindArray {
			return append([]value.Value{}, v.Object().Elements...)
		}
		return nil
	}
	return i.popN(n)
}

func containsStr(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// step decodes and executes exactly one instruction of f, returning nil on
// normal completion, an *Exception for a thrown script value, or a host
// error (*StackOverflow, *Interrupted, *OutOfMemory, *propagateSignal) that
// callChunk's loop handles without offering it to a TryHandler except in
// the *Exception case (spec.md §7).
func (i *Interpreter) step(f *Frame) error {
	if i.opcodeBudget > 0 {
		i.spent++
		if i.spent > i.opcodeBudget {
			return &Interrupted{Reason: "opcode budget exceeded"}
		}
	}
	instr := f.chunk.Code[f.ip]
	f.ip++
	op, operand := instr.Op, instr.Operand

	switch op {
	case bytecode.OpNop:

	case bytecode.OpPushConst:
		return i.push(i.resolveConst(f.chunk, operand))
	case bytecode.OpPop:
		i.pop()
	case bytecode.OpDup:
		return i.push(i.peek(0))
	case bytecode.OpSwap:
		a, b := i.pop(), i.pop()
		if err := i.push(a); err != nil {
			return err
		}
		return i.push(b)
	case bytecode.OpRot3:
		c, b, a := i.pop(), i.pop(), i.pop()
		if err := i.push(b); err != nil {
			return err
		}
		if err := i.push(c); err != nil {
			return err
		}
		return i.push(a)

	case bytecode.OpGetLocal:
		return i.push(f.locals[operand].Value)
	case bytecode.OpSetLocal:
		f.locals[operand].Value = i.peek(0)
	case bytecode.OpGetUpvalue:
		return i.push(f.upvalues[operand].Value)
	case bytecode.OpSetUpvalue:
		f.upvalues[operand].Value = i.peek(0)
	case bytecode.OpGetGlobal:
		key := f.chunk.Constants[operand].(string)
		v, ok := i.Globals.Get(key)
		if !ok {
			return i.ReferenceError("%s is not defined", key)
		}
		return i.push(v)
	case bytecode.OpSetGlobal:
		key := f.chunk.Constants[operand].(string)
		i.Globals.Set(key, i.peek(0))
	case bytecode.OpDefineGlobal:
		key := f.chunk.Constants[operand].(string)
		i.Globals.DefineOwn(key, value.PropertyDescriptor{Value: i.peek(0), Writable: true, Enumerable: true, Configurable: true})

	case bytecode.OpCreateObject:
		return i.push(value.Obj(i.Track(value.NewObject(i.objectProto))))
	case bytecode.OpCreateArray:
		return i.push(value.Obj(i.Track(value.NewArray(i.arrayProto, nil))))

	case bytecode.OpGetProperty:
		key := f.chunk.Constants[operand].(string)
		obj := i.pop()
		v, err := i.getProp(obj, key)
		if err != nil {
			return err
		}
		return i.push(v)
	case bytecode.OpSetProperty:
		key := f.chunk.Constants[operand].(string)
		val := i.pop()
		obj := i.pop()
		if err := i.setProp(obj, key, val); err != nil {
			return err
		}
		return i.push(val)
	case bytecode.OpGetComputed:
		keyVal := i.pop()
		obj := i.pop()
		v, err := i.getProp(obj, toPropertyKey(keyVal))
		if err != nil {
			return err
		}
		return i.push(v)
	case bytecode.OpSetComputed:
		val := i.pop()
		keyVal := i.pop()
		obj := i.pop()
		if err := i.setProp(obj, toPropertyKey(keyVal), val); err != nil {
			return err
		}
		return i.push(val)
	case bytecode.OpDeleteProperty:
		var obj value.Value
		var key string
		if operand == -1 {
			keyVal := i.pop()
			obj = i.pop()
			key = toPropertyKey(keyVal)
		} else {
			key = f.chunk.Constants[operand].(string)
			obj = i.pop()
		}
		ok, err := i.deleteProp(obj, key)
		if err != nil {
			return err
		}
		return i.push(value.Bool(ok))
	case bytecode.OpSpreadArray:
		item := i.pop()
		arr := i.peek(0).Object()
		if operand == 1 {
			it, err := i.newIterator(item, false)
			if err != nil {
				return err
			}
			for {
				v, done := it.IterNext()
				if done {
					break
				}
				arr.Elements = append(arr.Elements, v)
			}
		} else {
			arr.Elements = append(arr.Elements, item)
		}
		return i.push(item)
	case bytecode.OpObjectRestCopy:
		used, _ := f.chunk.Constants[operand].([]string)
		src := i.pop()
		out := i.Track(value.NewObject(i.objectProto))
		if src.IsObject() {
			so := src.Object()
			for _, k := range so.Keys() {
				if containsStr(used, k) {
					continue
				}
				if d, ok := so.GetOwn(k); ok {
					out.Set(k, d.Value)
				}
			}
		}
		return i.push(value.Obj(out))
	case bytecode.OpObjectSpreadMerge:
		src := i.pop()
		dst := i.peek(0).Object()
		if src.IsObject() {
			so := src.Object()
			for _, k := range so.Keys() {
				if d, ok := so.GetOwn(k); ok {
					dst.Set(k, d.Value)
				}
			}
		}

	case bytecode.OpJump:
		f.ip = operand
	case bytecode.OpJumpIfFalse:
		if !i.peek(0).ToBoolean() {
			f.ip = operand
		}
	case bytecode.OpJumpIfTrue:
		if i.peek(0).ToBoolean() {
			f.ip = operand
		}
	case bytecode.OpJumpIfNullish:
		if i.peek(0).IsNullish() {
			f.ip = operand
		}

	case bytecode.OpCall:
		args := i.collectArgs(operand)
		fn, this := i.pop(), i.pop()
		result, err := i.call(fn, this, args)
		if err != nil {
			return err
		}
		return i.push(result)
	case bytecode.OpCallOptional:
		args := i.collectArgs(operand)
		fn, this := i.pop(), i.pop()
		if fn.IsNullish() {
			return i.push(value.Undefined)
		}
		result, err := i.call(fn, this, args)
		if err != nil {
			return err
		}
		return i.push(result)
	case bytecode.OpSuperCall:
		args := i.collectArgs(operand)
		if f.homeClass == nil || f.homeClass.SuperClass == nil {
			return i.TypeError("'super' keyword is only valid inside a derived class constructor")
		}
		super := f.homeClass.SuperClass
		chunk, _ := super.Chunk.(*bytecode.Chunk)
		result, err := i.callChunk(chunk, super.Captured, f.thisVal, super, args)
		if err != nil {
			return err
		}
		return i.push(result)
	case bytecode.OpNew:
		args := i.collectArgs(operand)
		callee := i.pop()
		result, err := i.construct(callee, args)
		if err != nil {
			return err
		}
		return i.push(result)
	case bytecode.OpReturn:
		v := i.pop()
		i.frames = i.frames[:len(i.frames)-1]
		i.stack = i.stack[:f.base]
		return i.push(v)
	case bytecode.OpThrow:
		v := i.pop()
		if v.IsObject() && v.Object().Kind == value.KindError {
			return &Exception{Val: v, Stack: v.Object().Stack}
		}
		return &Exception{Val: v}
	case bytecode.OpTryEnter:
		f.tries = append(f.tries, tryEntry{catchPC: operand, stackDepth: len(i.stack)})
	case bytecode.OpTryExit:
		if len(f.tries) > 0 {
			f.tries = f.tries[:len(f.tries)-1]
		}

	case bytecode.OpAdd:
		b, a := i.pop(), i.pop()
		sum, err := i.add(a, b)
		if err != nil {
			return err
		}
		return i.push(sum)
	case bytecode.OpSub:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			return i.push(value.BigInt(new(big.Int).Sub(x, y)))
		}
		return i.push(value.Number(a.ToNumber() - b.ToNumber()))
	case bytecode.OpMul:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			return i.push(value.BigInt(new(big.Int).Mul(x, y)))
		}
		return i.push(value.Number(a.ToNumber() * b.ToNumber()))
	case bytecode.OpDiv:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			if y.Sign() == 0 {
				return i.RangeError("Division by zero")
			}
			return i.push(value.BigInt(new(big.Int).Quo(x, y)))
		}
		return i.push(value.Number(a.ToNumber() / b.ToNumber()))
	case bytecode.OpMod:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			if y.Sign() == 0 {
				return i.RangeError("Division by zero")
			}
			return i.push(value.BigInt(new(big.Int).Rem(x, y)))
		}
		return i.push(value.Number(jsMod(a.ToNumber(), b.ToNumber())))
	case bytecode.OpPow:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			if y.Sign() < 0 {
				return i.RangeError("Exponent must be non-negative")
			}
			return i.push(value.BigInt(new(big.Int).Exp(x, y, nil)))
		}
		return i.push(value.Number(jsPow(a.ToNumber(), b.ToNumber())))
	case bytecode.OpNeg:
		a := i.pop()
		if a.IsBigInt() {
			return i.push(value.BigInt(new(big.Int).Neg(a.BigInt())))
		}
		return i.push(value.Number(-a.ToNumber()))
	case bytecode.OpPos:
		a := i.pop()
		if a.IsBigInt() {
			return i.TypeError("Cannot convert a BigInt value to a number")
		}
		return i.push(value.Number(a.ToNumber()))
	case bytecode.OpNot:
		a := i.pop()
		return i.push(value.Bool(!a.ToBoolean()))
	case bytecode.OpBitNot:
		a := i.pop()
		if a.IsBigInt() {
			return i.push(value.BigInt(new(big.Int).Not(a.BigInt())))
		}
		return i.push(value.Number(float64(^toInt32(a.ToNumber()))))
	case bytecode.OpBitAnd:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			return i.push(value.BigInt(new(big.Int).And(x, y)))
		}
		return i.push(value.Number(float64(toInt32(a.ToNumber()) & toInt32(b.ToNumber()))))
	case bytecode.OpBitOr:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			return i.push(value.BigInt(new(big.Int).Or(x, y)))
		}
		return i.push(value.Number(float64(toInt32(a.ToNumber()) | toInt32(b.ToNumber()))))
	case bytecode.OpBitXor:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			return i.push(value.BigInt(new(big.Int).Xor(x, y)))
		}
		return i.push(value.Number(float64(toInt32(a.ToNumber()) ^ toInt32(b.ToNumber()))))
	case bytecode.OpShl:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			if y.Sign() < 0 {
				return i.RangeError("BigInt negative exponent")
			}
			return i.push(value.BigInt(new(big.Int).Lsh(x, uint(y.Uint64()))))
		}
		return i.push(value.Number(float64(toInt32(a.ToNumber()) << (toUint32(b.ToNumber()) & 31))))
	case bytecode.OpShr:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			x, y, err := i.bigIntOperands(a, b)
			if err != nil {
				return err
			}
			if y.Sign() < 0 {
				return i.RangeError("BigInt negative exponent")
			}
			return i.push(value.BigInt(new(big.Int).Rsh(x, uint(y.Uint64()))))
		}
		return i.push(value.Number(float64(toInt32(a.ToNumber()) >> (toUint32(b.ToNumber()) & 31))))
	case bytecode.OpUShr:
		b, a := i.pop(), i.pop()
		if a.IsBigInt() || b.IsBigInt() {
			return i.TypeError("BigInts have no unsigned right shift, use >> instead")
		}
		return i.push(value.Number(float64(toUint32(a.ToNumber()) >> (toUint32(b.ToNumber()) & 31))))

	case bytecode.OpEq:
		b, a := i.pop(), i.pop()
		return i.push(value.Bool(looseEquals(a, b)))
	case bytecode.OpNotEq:
		b, a := i.pop(), i.pop()
		return i.push(value.Bool(!looseEquals(a, b)))
	case bytecode.OpStrictEq:
		b, a := i.pop(), i.pop()
		return i.push(value.Bool(value.StrictEquals(a, b)))
	case bytecode.OpStrictNotEq:
		b, a := i.pop(), i.pop()
		return i.push(value.Bool(!value.StrictEquals(a, b)))
	case bytecode.OpLess:
		b, a := i.pop(), i.pop()
		return i.push(value.Bool(lessThan(a, b)))
	case bytecode.OpLessEq:
		b, a := i.pop(), i.pop()
		return i.push(value.Bool(lessOrEqual(a, b)))
	case bytecode.OpGreater:
		b, a := i.pop(), i.pop()
		return i.push(value.Bool(lessThan(b, a)))
	case bytecode.OpGreaterEq:
		b, a := i.pop(), i.pop()
		return i.push(value.Bool(lessOrEqual(b, a)))
	case bytecode.OpInstanceof:
		b, a := i.pop(), i.pop()
		ok, err := i.instanceOf(a, b)
		if err != nil {
			return err
		}
		return i.push(value.Bool(ok))
	case bytecode.OpIn:
		keyVal, obj := i.pop(), i.pop()
		if !obj.IsObject() {
			return i.TypeError("Cannot use 'in' operator to search in %s", obj.ToString())
		}
		_, ok := obj.Object().Get(toPropertyKey(keyVal))
		return i.push(value.Bool(ok))

	case bytecode.OpTypeof:
		if operand == 1 {
			name := i.pop()
			if gv, ok := i.Globals.Get(name.Str()); ok {
				return i.push(value.String(gv.TypeName()))
			}
			return i.push(value.String("undefined"))
		}
		v := i.pop()
		return i.push(value.String(v.TypeName()))
	case bytecode.OpDeleteGlobal:
		key := f.chunk.Constants[operand].(string)
		return i.push(value.Bool(i.Globals.Delete(key)))

	case bytecode.OpMakeFunction, bytecode.OpMakeArrow:
		chunk := f.chunk.Constants[operand].(*bytecode.Chunk)
		return i.push(value.Obj(i.makeFunctionObject(chunk, f)))
	case bytecode.OpMakeClass:
		spec := f.chunk.Constants[operand].(*bytecode.ClassSpec)
		var super *value.Object
		if spec.HasSuper {
			superVal := i.pop()
			if !superVal.IsObject() || !superVal.Object().IsCallable() {
				return i.TypeError("Class extends value is not a constructor")
			}
			super = superVal.Object()
		}
		cls, err := i.makeClass(spec, super, f)
		if err != nil {
			return err
		}
		return i.push(value.Obj(cls))
	case bytecode.OpCloseUpvalue:
		f.locals[operand] = &value.Cell{Value: f.locals[operand].Value}

	case bytecode.OpGetThis:
		return i.push(f.thisVal)
	case bytecode.OpGetSuperProto:
		if f.homeClass == nil || f.homeClass.SuperClass == nil {
			return i.TypeError("'super' keyword is only valid inside a method of a derived class")
		}
		return i.push(value.Obj(f.homeClass.SuperClass.PrototypeObj))
	case bytecode.OpGetIterator:
		v := i.pop()
		it, err := i.newIterator(v, operand == 1)
		if err != nil {
			return err
		}
		return i.push(value.Obj(it))
	case bytecode.OpIteratorNext:
		itVal := i.pop()
		if !itVal.IsObject() {
			return i.TypeError("%s is not an iterator", itVal.ToString())
		}
		v, done := itVal.Object().IterNext()
		res := i.Track(value.NewObject(i.objectProto))
		res.Set("value", v)
		res.Set("done", value.Bool(done))
		return i.push(value.Obj(res))
	case bytecode.OpIteratorClose:
		i.pop()

	case bytecode.OpAwait:
		v := i.pop()
		if v.IsObject() && v.Object().Kind == value.KindPromise {
			result, threw, reason := i.awaitSettle(v.Object())
			if threw {
				return &Exception{Val: reason}
			}
			return i.push(result)
		}
		return i.push(v)
	case bytecode.OpYield:
		v := i.pop()
		if f.genSink != nil {
			if operand == 1 {
				it, err := i.newIterator(v, false)
				if err != nil {
					return err
				}
				for {
					yv, done := it.IterNext()
					if done {
						break
					}
					*f.genSink = append(*f.genSink, yv)
				}
			} else {
				*f.genSink = append(*f.genSink, v)
			}
		}
		return i.push(value.Undefined)

	case bytecode.OpIncLocal:
		nv := incDecBy(f.locals[operand].Value, 1)
		f.locals[operand].Value = nv
		return i.push(nv)
	case bytecode.OpDecLocal:
		nv := incDecBy(f.locals[operand].Value, -1)
		f.locals[operand].Value = nv
		return i.push(nv)
	case bytecode.OpIncrement:
		return i.push(incDecBy(i.pop(), 1))
	case bytecode.OpDecrement:
		return i.push(incDecBy(i.pop(), -1))

	default:
		return i.TypeError("unimplemented opcode %d", op)
	}
	return nil
}

// instanceOf walks obj's prototype chain looking for ctor's `.prototype`
// (a class's own PrototypeObj, or an ordinary function's `prototype`
// property).
func (i *Interpreter) instanceOf(obj, ctor value.Value) (bool, error) {
	if !ctor.IsObject() || !ctor.Object().IsCallable() {
		return false, i.TypeError("Right-hand side of 'instanceof' is not callable")
	}
	if !obj.IsObject() {
		return false, nil
	}
	c := ctor.Object()
	var proto *value.Object
	if c.Kind == value.KindClass {
		proto = c.PrototypeObj
	} else if p, ok := c.Get("prototype"); ok && p.IsObject() {
		proto = p.Object()
	}
	if proto == nil {
		return false, nil
	}
	for cur := obj.Object().Proto; cur != nil; cur = cur.Proto {
		if cur == proto {
			return true, nil
		}
	}
	return false, nil
}
