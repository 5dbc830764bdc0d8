package vm

import (
	"fmt"

	"jsvm/internal/value"
)

// protoFor returns the intrinsic prototype object backing property lookups
// on a primitive receiver, or nil for kinds that have none wired yet.
func (i *Interpreter) protoFor(v value.Value) *value.Object {
	switch {
	case v.IsString():
		return i.stringProto
	case v.IsNumber():
		return i.numberProto
	case v.IsBoolean():
		return i.booleanProto
	case v.IsBigInt():
		return i.bigIntProto
	default:
		return nil
	}
}

// getProp reads key off v, walking the prototype chain and invoking an
// accessor's getter when the matching descriptor defines one (spec.md §3
// "prototype link").
func (i *Interpreter) getProp(v value.Value, key string) (value.Value, error) {
	if v.IsNullish() {
		return value.Undefined, i.TypeError("Cannot read properties of %s (reading '%s')", v.ToString(), key)
	}
	if v.IsString() {
		if key == "length" {
			return value.Number(float64(len([]rune(v.Str())))), nil
		}
		if idx, ok := stringIndex(key); ok {
			r := []rune(v.Str())
			if idx >= 0 && idx < len(r) {
				return value.String(string(r[idx])), nil
			}
			return value.Undefined, nil
		}
	}
	var obj *value.Object
	if v.IsObject() {
		obj = v.Object()
	} else {
		obj = i.protoFor(v)
		if obj == nil {
			return value.Undefined, nil
		}
		for cur := obj; cur != nil; cur = cur.Proto {
			if d, ok := cur.GetOwn(key); ok {
				if d.Get != nil {
					return i.call(value.Obj(d.Get), v, nil)
				}
				return d.Value, nil
			}
		}
		return value.Undefined, nil
	}
	for cur := obj; cur != nil; cur = cur.Proto {
		if d, ok := cur.GetOwn(key); ok {
			if d.Get != nil {
				return i.call(value.Obj(d.Get), v, nil)
			}
			return d.Value, nil
		}
	}
	return value.Undefined, nil
}

func stringIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	n := 0
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// setProp writes key on v, invoking a setter found along the prototype
// chain in preference to shadowing it with a new own data property.
// Writes through a non-object receiver (a primitive) are a silent no-op,
// matching sloppy-mode semantics.
func (i *Interpreter) setProp(v value.Value, key string, val value.Value) error {
	if v.IsNullish() {
		return i.TypeError("Cannot set properties of %s (setting '%s')", v.ToString(), key)
	}
	if !v.IsObject() {
		return nil
	}
	obj := v.Object()
	for cur := obj; cur != nil; cur = cur.Proto {
		d, ok := cur.GetOwn(key)
		if ok && d.Set != nil {
			_, err := i.call(value.Obj(d.Set), v, []value.Value{val})
			return err
		}
		if ok && cur == obj {
			break // own data property: fall through to Set
		}
		if ok {
			break // inherited data property: shadow with an own one via Set
		}
	}
	obj.Set(key, val)
	return nil
}

// toPropertyKey stringifies a computed member/delete/in key (spec.md §3's
// simplified model maps every property key to a string, including Symbols
// via a process-unique placeholder since the prop table is string-keyed).
func toPropertyKey(v value.Value) string {
	if v.IsSymbol() {
		return fmt.Sprintf("@@sym:%s:%p", v.Symbol().Description, v.Symbol())
	}
	return v.ToString()
}

func (i *Interpreter) deleteProp(v value.Value, key string) (bool, error) {
	if v.IsNullish() {
		return false, i.TypeError("Cannot convert undefined or null to object")
	}
	if !v.IsObject() {
		return true, nil
	}
	return v.Object().Delete(key), nil
}
