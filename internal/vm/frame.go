package vm

import (
	"jsvm/internal/bytecode"
	"jsvm/internal/value"
)

// tryEntry is one live entry of a frame's try-handler stack: where to jump
// on an exception raised inside the protected region, and how far to trim
// the shared operand stack before pushing the thrown value there.
type tryEntry struct {
	catchPC    int
	stackDepth int
}

// Frame is one activation record. Locals are boxed *value.Cell pointers in
// a per-frame slot array, not operand-stack slots — a closure captures a
// slot by taking its Cell pointer directly (spec.md §9 "Closures and
// mutable capture").
type Frame struct {
	chunk     *bytecode.Chunk
	ip        int
	locals    []*value.Cell
	upvalues  []*value.Cell
	thisVal   value.Value
	homeClass *value.Object // the class a method/constructor was defined on, for super lookups
	newTarget value.Value
	tries     []tryEntry
	base      int // operand-stack depth at call entry, for unhandled-exception unwind
	genSink   *[]value.Value // non-nil while running a generator body; OpYield appends here
}

func newFrame(chunk *bytecode.Chunk, upvalues []*value.Cell, this value.Value, homeClass *value.Object, base int) *Frame {
	f := &Frame{
		chunk:     chunk,
		locals:    make([]*value.Cell, chunk.NumLocals),
		upvalues:  upvalues,
		thisVal:   this,
		homeClass: homeClass,
		base:      base,
	}
	for i := range f.locals {
		f.locals[i] = &value.Cell{Value: value.Undefined}
	}
	return f
}

// bindArgs positions call arguments into the frame's parameter slots,
// collecting any surplus into the rest-parameter array when the chunk
// declares one (spec.md §4.2 "rest parameter").
func (f *Frame) bindArgs(args []value.Value, arrayProto *value.Object, track func(*value.Object) *value.Object) {
	n := f.chunk.NumParams
	for i := 0; i < n; i++ {
		if i < len(args) {
			f.locals[i].Value = args[i]
		}
	}
	if f.chunk.HasRestParam {
		var rest []value.Value
		if len(args) > n {
			rest = append(rest, args[n:]...)
		}
		f.locals[f.chunk.RestSlot].Value = value.Obj(track(value.NewArray(arrayProto, rest)))
	}
}
