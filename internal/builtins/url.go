package builtins

import (
	"net/url"

	"golang.org/x/net/idna"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

// toASCIIHost converts a Unicode hostname to its Punycode ASCII form per
// the WHATWG URL spec's host-parsing algorithm, leaving an already-ASCII
// or unconvertible host untouched.
func toASCIIHost(host string) string {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return ascii
}

func installURL(interp *vm.Interpreter) {
	searchParamsProto := installURLSearchParams(interp)
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	sync := func(o *value.Object, raw string) {
		u, _ := url.Parse(raw)
		if u == nil {
			return
		}
		hostname := toASCIIHost(u.Hostname())
		host := hostname
		if port := u.Port(); port != "" {
			host = hostname + ":" + port
		}
		o.Set("protocol", value.String(u.Scheme+":"))
		o.Set("host", value.String(host))
		o.Set("hostname", value.String(hostname))
		o.Set("port", value.String(u.Port()))
		o.Set("pathname", value.String(u.Path))
		o.Set("search", value.String(queryString(u)))
		o.Set("hash", value.String(fragmentString(u)))
		o.Set("href", value.String(u.Scheme+"://"+host+u.Path+queryString(u)+fragmentString(u)))
		o.Set("origin", value.String(u.Scheme+"://"+host))
		sp := interp.Track(&value.Object{Kind: value.KindOrdinary, Proto: searchParamsProto})
		sp.Set("__query", value.String(u.RawQuery))
		o.Set("searchParams", value.Obj(sp))
	}

	ctor := native(interp, "URL", func(_ value.Value, args []value.Value) (value.Value, error) {
		raw := arg(args, 0).ToString()
		if base := arg(args, 1); !base.IsUndefined() {
			baseURL, err := url.Parse(base.ToString())
			if err == nil {
				rel, err2 := url.Parse(raw)
				if err2 == nil {
					raw = baseURL.ResolveReference(rel).String()
				}
			}
		}
		if _, err := url.Parse(raw); err != nil {
			return value.Undefined, interp.ThrowValue(interp.NewErrorValue("TypeError", "Invalid URL"))
		}
		obj := interp.Track(&value.Object{Kind: value.KindOrdinary, Proto: proto})
		sync(obj, raw)
		return value.Obj(obj), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		v, _ := this.Object().Get("href")
		return v, nil
	})

	interp.Globals.DefineOwn("URL", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func queryString(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}

func fragmentString(u *url.URL) string {
	if u.Fragment == "" {
		return ""
	}
	return "#" + u.Fragment
}

func installURLSearchParams(interp *vm.Interpreter) *value.Object {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	parse := func(this value.Value) url.Values {
		raw, _ := this.Object().Get("__query")
		v, _ := url.ParseQuery(raw.ToString())
		return v
	}
	writeBack := func(this value.Value, v url.Values) {
		this.Object().Set("__query", value.String(v.Encode()))
	}

	ctor := native(interp, "URLSearchParams", func(_ value.Value, args []value.Value) (value.Value, error) {
		init := ""
		if a := arg(args, 0); !a.IsUndefined() {
			init = a.ToString()
		}
		obj := interp.Track(&value.Object{Kind: value.KindOrdinary, Proto: proto})
		obj.Set("__query", value.String(init))
		return value.Obj(obj), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, proto, "get", func(this value.Value, args []value.Value) (value.Value, error) {
		v := parse(this)
		key := arg(args, 0).ToString()
		if !v.Has(key) {
			return value.Null, nil
		}
		return value.String(v.Get(key)), nil
	})
	defineMethod(interp, proto, "getAll", func(this value.Value, args []value.Value) (value.Value, error) {
		v := parse(this)
		items := v[arg(args, 0).ToString()]
		elems := make([]value.Value, len(items))
		for idx, s := range items {
			elems[idx] = value.String(s)
		}
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), elems))), nil
	})
	defineMethod(interp, proto, "has", func(this value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(parse(this).Has(arg(args, 0).ToString())), nil
	})
	defineMethod(interp, proto, "set", func(this value.Value, args []value.Value) (value.Value, error) {
		v := parse(this)
		v.Set(arg(args, 0).ToString(), arg(args, 1).ToString())
		writeBack(this, v)
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "append", func(this value.Value, args []value.Value) (value.Value, error) {
		v := parse(this)
		v.Add(arg(args, 0).ToString(), arg(args, 1).ToString())
		writeBack(this, v)
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "delete", func(this value.Value, args []value.Value) (value.Value, error) {
		v := parse(this)
		v.Del(arg(args, 0).ToString())
		writeBack(this, v)
		return value.Undefined, nil
	})
	defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(parse(this).Encode()), nil
	})

	interp.Globals.DefineOwn("URLSearchParams", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
	return proto
}
