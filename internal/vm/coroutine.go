package vm

import (
	"jsvm/internal/bytecode"
	"jsvm/internal/value"
)

// runGenerator and runAsync approximate the two suspension-based opcodes
// (OpYield, OpAwait) without a true per-frame coroutine. The core runs one
// JS frame at a time to keep the frame list the literal, inspectable call
// stack; genuine bidirectional generator resumption and interleaved async
// scheduling would need that single-flow discipline broken by handing
// frames to per-call goroutines. Given the frame stack is worth keeping
// simple, generator bodies instead run eagerly to completion, with every
// yielded value collected into the iterator returned to the caller, and
// async bodies run eagerly too, with OpAwait draining the microtask queue
// in place until its operand settles. Both lose true laziness/concurrency
// but preserve value production order and error propagation, which is
// what scripts observe in the overwhelmingly common one-shot-producer use
// of each.

func (i *Interpreter) runGenerator(chunk *bytecode.Chunk, captured []*value.Cell, this value.Value, homeClass *value.Object, args []value.Value) (value.Value, error) {
	sink := &[]value.Value{}
	prevSink := i.pendingGenSink
	i.pendingGenSink = sink
	_, err := i.callChunk(chunk, captured, this, homeClass, args)
	i.pendingGenSink = prevSink
	if err != nil {
		return value.Undefined, err
	}
	items := *sink
	idx := 0
	iter := i.Track(&value.Object{Kind: value.KindIterator, Proto: i.objectProto, IterNext: func() (value.Value, bool) {
		if idx >= len(items) {
			return value.Undefined, true
		}
		v := items[idx]
		idx++
		return v, false
	}})
	next := i.Track(&value.Object{Kind: value.KindNativeFunction, Proto: i.functionProto, Name: "next", Native: func(_ value.Value, _ []value.Value) (value.Value, error) {
		v, done := iter.IterNext()
		res := i.Track(value.NewObject(i.objectProto))
		res.Set("value", v)
		res.Set("done", value.Bool(done))
		return value.Obj(res), nil
	}})
	iter.DefineOwn("next", value.PropertyDescriptor{Value: value.Obj(next), Writable: true, Configurable: true})
	return value.Obj(iter), nil
}

func (i *Interpreter) runAsync(chunk *bytecode.Chunk, captured []*value.Cell, this value.Value, homeClass *value.Object, args []value.Value) (value.Value, error) {
	result, err := i.callChunk(chunk, captured, this, homeClass, args)
	p := i.newPromise()
	if err != nil {
		exc, ok := err.(*Exception)
		if !ok {
			return value.Undefined, err
		}
		i.rejectPromise(p, exc.Val)
		return value.Obj(p), nil
	}
	i.resolvePromise(p, result)
	return value.Obj(p), nil
}
