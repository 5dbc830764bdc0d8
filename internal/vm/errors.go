package vm

import (
	"fmt"

	"jsvm/internal/capability"
	"jsvm/internal/value"
)

// Exception is a thrown script value propagating through Go's own call
// stack during Run — distinct from a host-level Go error (spec.md §7:
// "kept distinct from host-level Go error").
type Exception struct {
	Val   value.Value
	Stack []string
}

func (e *Exception) Error() string {
	if e.Val.IsObject() && e.Val.Object().Kind == value.KindError {
		return e.Val.Object().ToStringTag()
	}
	return fmt.Sprintf("uncaught: %s", e.Val.ToString())
}

// newError builds a thrown Error object of the given taxonomy name
// (spec.md §7), with a stack trace snapshot from the running frames.
func (i *Interpreter) newError(name, msg string) *Exception {
	obj := i.Track(&value.Object{Kind: value.KindError, Proto: i.errorProto(name), ErrorName: name, ErrorMessage: msg})
	obj.Stack = i.captureStack(name, msg)
	return &Exception{Val: value.Obj(obj), Stack: obj.Stack}
}

func (i *Interpreter) captureStack(name, msg string) []string {
	lines := []string{name + ": " + msg}
	for idx := len(i.frames) - 1; idx >= 0; idx-- {
		f := i.frames[idx]
		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(f.chunk.Code) {
			line = f.chunk.Code[f.ip-1].Line
		}
		lines = append(lines, fmt.Sprintf("    at %s (line %d)", chunkName(f.chunk.Name), line))
	}
	return lines
}

func chunkName(n string) string {
	if n == "" {
		return "<anonymous>"
	}
	return n
}

func (i *Interpreter) TypeError(format string, args ...any) *Exception {
	return i.newError("TypeError", fmt.Sprintf(format, args...))
}

func (i *Interpreter) RangeError(format string, args ...any) *Exception {
	return i.newError("RangeError", fmt.Sprintf(format, args...))
}

func (i *Interpreter) ReferenceError(format string, args ...any) *Exception {
	return i.newError("ReferenceError", fmt.Sprintf(format, args...))
}

func (i *Interpreter) PermissionDenied(format string, args ...any) *Exception {
	return i.newError("PermissionDenied", fmt.Sprintf(format, args...))
}

// CheckCapability lifts a capability.DeniedError into a thrown
// PermissionDenied exception; any other error (including nil) passes
// through unchanged so callers can write `return v, i.CheckCapability(err)`.
func (i *Interpreter) CheckCapability(err error) error {
	if err == nil {
		return nil
	}
	if denied, ok := err.(*capability.DeniedError); ok {
		return i.PermissionDenied("%s", denied.Error())
	}
	return err
}

func (i *Interpreter) SyntaxError(format string, args ...any) *Exception {
	return i.newError("SyntaxError", fmt.Sprintf(format, args...))
}

// Interrupted and OutOfMemory are raised uncatchably — the Run loop
// checks for them specifically and never offers them to a TryHandler
// (spec.md §7: "uncatchable by script; they surface to the host").
type Interrupted struct{ Reason string }

func (e *Interrupted) Error() string { return "interrupted: " + e.Reason }

type OutOfMemory struct{ Requested int }

func (e *OutOfMemory) Error() string { return "out of memory" }
