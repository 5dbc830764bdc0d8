package vm

import (
	"jsvm/internal/bytecode"
	"jsvm/internal/value"
)

// makeClass turns a compile-time ClassSpec into a runtime class object:
// the prototype chain links to the superclass's prototype, methods land
// as non-enumerable prototype (or, if static, class-object) properties,
// and static fields run their initializer immediately (spec.md §4.2
// "Class lowering").
func (i *Interpreter) makeClass(spec *bytecode.ClassSpec, superClass *value.Object, frame *Frame) (*value.Object, error) {
	proto := i.objectProto
	if superClass != nil {
		proto = superClass.PrototypeObj
	}
	protoObj := i.Track(value.NewObject(proto))

	classObj := i.Track(&value.Object{
		Kind:         value.KindClass,
		Proto:        i.functionProto,
		Name:         spec.Name,
		PrototypeObj: protoObj,
		SuperClass:   superClass,
		Chunk:        spec.Ctor,
		Captured:     captureUpvalues(frame, spec.Ctor),
	})
	protoObj.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(classObj), Writable: true, Configurable: true})
	classObj.DefineOwn("name", value.PropertyDescriptor{Value: value.String(spec.Name), Configurable: true})
	if superClass != nil {
		classObj.Proto = superClass
	}

	for _, m := range spec.Members {
		key := m.Key
		if m.Computed {
			kv, err := i.callChunk(m.KeyChunk, captureUpvalues(frame, m.KeyChunk), value.Undefined, nil, nil)
			if err != nil {
				return nil, err
			}
			key = kv.ToString()
		}
		target := protoObj
		if m.Static {
			target = classObj
		}
		switch m.Kind {
		case "method":
			fnObj := i.makeFunctionObject(m.Fn, frame)
			fnObj.Target = classObj
			target.DefineOwn(key, value.PropertyDescriptor{Value: value.Obj(fnObj), Writable: true, Configurable: true})
		case "get", "set":
			fnObj := i.makeFunctionObject(m.Fn, frame)
			fnObj.Target = classObj
			d, _ := target.GetOwn(key)
			nd := value.PropertyDescriptor{Configurable: true, Enumerable: false}
			if d != nil {
				nd.Get, nd.Set = d.Get, d.Set
			}
			if m.Kind == "get" {
				nd.Get = fnObj
			} else {
				nd.Set = fnObj
			}
			target.DefineOwn(key, nd)
		case "field":
			var v value.Value
			if m.FieldInit != nil {
				fv, err := i.callChunk(m.FieldInit, captureUpvalues(frame, m.FieldInit), value.Obj(classObj), classObj, nil)
				if err != nil {
					return nil, err
				}
				v = fv
			}
			target.DefineOwn(key, value.PropertyDescriptor{Value: v, Writable: true, Enumerable: true, Configurable: true})
		}
	}
	return classObj, nil
}
