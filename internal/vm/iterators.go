package vm

import "jsvm/internal/value"

// newIterator builds the iterator object OpGetIterator pushes. keysOnly
// selects for-in's key-enumeration behavior; otherwise it's for-of/spread
// value iteration (spec.md §4.2 "for…in / for…of").
func (i *Interpreter) newIterator(v value.Value, keysOnly bool) (*value.Object, error) {
	if keysOnly {
		return i.keyIterator(v), nil
	}
	if v.IsNullish() {
		return nil, i.TypeError("%s is not iterable", v.ToString())
	}
	if v.IsString() {
		runes := []rune(v.Str())
		idx := 0
		return i.Track(&value.Object{Kind: value.KindIterator, Proto: i.objectProto, IterNext: func() (value.Value, bool) {
			if idx >= len(runes) {
				return value.Undefined, true
			}
			r := runes[idx]
			idx++
			return value.String(string(r)), false
		}}), nil
	}
	if !v.IsObject() {
		return nil, i.TypeError("%s is not iterable", v.ToString())
	}
	obj := v.Object()
	switch obj.Kind {
	case value.KindArray:
		idx := 0
		return i.Track(&value.Object{Kind: value.KindIterator, Proto: i.objectProto, IterNext: func() (value.Value, bool) {
			if idx >= len(obj.Elements) {
				return value.Undefined, true
			}
			el := obj.Elements[idx]
			idx++
			return el, false
		}}), nil
	case value.KindSet:
		idx := 0
		return i.Track(&value.Object{Kind: value.KindIterator, Proto: i.objectProto, IterNext: func() (value.Value, bool) {
			if idx >= len(obj.MapKeys) {
				return value.Undefined, true
			}
			k := obj.MapKeys[idx]
			idx++
			return k, false
		}}), nil
	case value.KindMap:
		idx := 0
		return i.Track(&value.Object{Kind: value.KindIterator, Proto: i.objectProto, IterNext: func() (value.Value, bool) {
			if idx >= len(obj.MapKeys) {
				return value.Undefined, true
			}
			entry := value.Obj(i.Track(value.NewArray(i.arrayProto, []value.Value{obj.MapKeys[idx], obj.MapValues[idx]})))
			idx++
			return entry, false
		}}), nil
	case value.KindIterator:
		return obj, nil
	default:
		if nextVal, ok := obj.Get("next"); ok && nextVal.IsObject() && nextVal.Object().IsCallable() {
			return i.Track(&value.Object{Kind: value.KindIterator, Proto: i.objectProto, IterNext: func() (value.Value, bool) {
				res, err := i.call(nextVal, v, nil)
				if err != nil || !res.IsObject() {
					return value.Undefined, true
				}
				done, _ := res.Object().Get("done")
				val, _ := res.Object().Get("value")
				return val, done.ToBoolean()
			}}), nil
		}
		return nil, i.TypeError("%s is not iterable", v.ToString())
	}
}

func (i *Interpreter) keyIterator(v value.Value) *value.Object {
	if !v.IsObject() {
		return i.Track(&value.Object{Kind: value.KindIterator, Proto: i.objectProto, IterNext: func() (value.Value, bool) { return value.Undefined, true }})
	}
	obj := v.Object()
	var keys []string
	if obj.Kind == value.KindArray {
		for idx := range obj.Elements {
			keys = append(keys, itoa(idx))
		}
	}
	keys = append(keys, obj.Keys()...)
	idx := 0
	return i.Track(&value.Object{Kind: value.KindIterator, Proto: i.objectProto, IterNext: func() (value.Value, bool) {
		if idx >= len(keys) {
			return value.Undefined, true
		}
		k := keys[idx]
		idx++
		return value.String(k), false
	}})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
