package builtins

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installJSON(interp *vm.Interpreter) {
	j := interp.Track(value.NewObject(interp.ObjectProto()))

	defineMethod(interp, j, "stringify", func(_ value.Value, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		indent := ""
		if n := arg(args, 2); n.IsNumber() {
			indent = strings.Repeat(" ", int(n.Num()))
		} else if s := arg(args, 2); s.IsString() {
			indent = s.Str()
		}
		var b strings.Builder
		ok, err := jsonWrite(interp, &b, v, indent, "", map[*value.Object]bool{})
		if err != nil {
			return value.Undefined, err
		}
		if !ok {
			return value.Undefined, nil
		}
		return value.String(b.String()), nil
	})

	defineMethod(interp, j, "parse", func(_ value.Value, args []value.Value) (value.Value, error) {
		s := arg(args, 0).ToString()
		p := &jsonParser{src: s}
		p.skipSpace()
		v, err := p.parseValue(interp)
		if err != nil {
			return value.Undefined, interp.SyntaxError("%s", err.Error())
		}
		p.skipSpace()
		if p.pos != len(p.src) {
			return value.Undefined, interp.SyntaxError("Unexpected token in JSON at position %d", p.pos)
		}
		return v, nil
	})

	interp.Globals.DefineOwn("JSON", value.PropertyDescriptor{Value: value.Obj(j), Writable: true, Configurable: true})
}

// jsonWrite serializes v, returning false when v should be omitted
// entirely (undefined, a function, a symbol at the top level). A BigInt
// anywhere in the value throws, matching JSON.stringify's real behavior
// ("Do not know how to serialize a BigInt").
func jsonWrite(interp *vm.Interpreter, b *strings.Builder, v value.Value, indent, cur string, seen map[*value.Object]bool) (bool, error) {
	switch {
	case v.IsUndefined(), v.IsSymbol():
		return false, nil
	case v.IsBigInt():
		return false, interp.TypeError("Do not know how to serialize a BigInt")
	case v.IsNull():
		b.WriteString("null")
	case v.IsBoolean():
		b.WriteString(v.ToString())
	case v.IsNumber():
		n := v.Num()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			b.WriteString("null")
		} else {
			b.WriteString(v.ToString())
		}
	case v.IsString():
		writeJSONString(b, v.Str())
	case v.IsObject():
		o := v.Object()
		if o.IsCallable() {
			return false, nil
		}
		if seen[o] {
			b.WriteString("null")
			return true, nil
		}
		seen[o] = true
		defer delete(seen, o)
		next := cur + indent
		switch o.Kind {
		case value.KindArray:
			b.WriteByte('[')
			for i, e := range o.Elements {
				if i > 0 {
					b.WriteByte(',')
				}
				newline(b, indent, next)
				ok, err := jsonWrite(interp, b, e, indent, next, seen)
				if err != nil {
					return false, err
				}
				if !ok {
					b.WriteString("null")
				}
			}
			if len(o.Elements) > 0 {
				newline(b, indent, cur)
			}
			b.WriteByte(']')
		default:
			b.WriteByte('{')
			keys := o.Keys()
			wrote := 0
			for _, k := range keys {
				d, ok := o.GetOwn(k)
				if !ok {
					continue
				}
				var sub strings.Builder
				wroteSub, err := jsonWrite(interp, &sub, d.Value, indent, next, seen)
				if err != nil {
					return false, err
				}
				if !wroteSub {
					continue
				}
				if wrote > 0 {
					b.WriteByte(',')
				}
				newline(b, indent, next)
				writeJSONString(b, k)
				b.WriteByte(':')
				if indent != "" {
					b.WriteByte(' ')
				}
				b.WriteString(sub.String())
				wrote++
			}
			if wrote > 0 {
				newline(b, indent, cur)
			}
			b.WriteByte('}')
		}
	default:
		return false, nil
	}
	return true, nil
}

func newline(b *strings.Builder, indent, cur string) {
	if indent == "" {
		return
	}
	b.WriteByte('\n')
	b.WriteString(cur)
}

func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u`)
				b.WriteString(strconv.FormatInt(int64(r), 16))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

type jsonParser struct {
	src string
	pos int
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue(interp *vm.Interpreter) (value.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return value.Undefined, errUnexpectedEnd
	}
	switch c := p.src[p.pos]; {
	case c == '{':
		return p.parseObject(interp)
	case c == '[':
		return p.parseArray(interp)
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return value.Undefined, err
		}
		return value.String(s), nil
	case c == 't':
		return p.literal("true", value.True)
	case c == 'f':
		return p.literal("false", value.False)
	case c == 'n':
		return p.literal("null", value.Null)
	default:
		return p.parseNumber()
	}
}

var errUnexpectedEnd = &jsonError{"Unexpected end of JSON input"}

type jsonError struct{ msg string }

func (e *jsonError) Error() string { return e.msg }

func (p *jsonParser) literal(lit string, v value.Value) (value.Value, error) {
	if p.pos+len(lit) > len(p.src) || p.src[p.pos:p.pos+len(lit)] != lit {
		return value.Undefined, &jsonError{"Unexpected token"}
	}
	p.pos += len(lit)
	return v, nil
}

func (p *jsonParser) parseObject(interp *vm.Interpreter) (value.Value, error) {
	p.pos++ // {
	obj := interp.Track(value.NewObject(interp.ObjectProto()))
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return value.Obj(obj), nil
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '"' {
			return value.Undefined, &jsonError{"Expected string key in JSON object"}
		}
		key, err := p.parseString()
		if err != nil {
			return value.Undefined, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return value.Undefined, &jsonError{"Expected ':' in JSON object"}
		}
		p.pos++
		v, err := p.parseValue(interp)
		if err != nil {
			return value.Undefined, err
		}
		obj.Set(key, v)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '}' {
		return value.Undefined, &jsonError{"Expected '}' in JSON object"}
	}
	p.pos++
	return value.Obj(obj), nil
}

func (p *jsonParser) parseArray(interp *vm.Interpreter) (value.Value, error) {
	p.pos++ // [
	var elems []value.Value
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), elems))), nil
	}
	for {
		v, err := p.parseValue(interp)
		if err != nil {
			return value.Undefined, err
		}
		elems = append(elems, v)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		break
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != ']' {
		return value.Undefined, &jsonError{"Expected ']' in JSON array"}
	}
	p.pos++
	return value.Obj(interp.Track(value.NewArray(interp.ArrayProto(), elems))), nil
}

func (p *jsonParser) parseString() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '"' {
			p.pos++
			return b.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.src) {
				break
			}
			switch p.src[p.pos] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				if p.pos+4 < len(p.src) {
					n, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
					if err == nil {
						r := rune(n)
						if utf16.IsSurrogate(r) && p.pos+10 < len(p.src) && p.src[p.pos+5] == '\\' && p.src[p.pos+6] == 'u' {
							n2, err2 := strconv.ParseUint(p.src[p.pos+7:p.pos+11], 16, 32)
							if err2 == nil {
								r = utf16.DecodeRune(r, rune(n2))
								p.pos += 6
							}
						}
						b.WriteRune(r)
					}
					p.pos += 4
				}
			}
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
	return "", &jsonError{"Unterminated string in JSON"}
}

func (p *jsonParser) parseNumber() (value.Value, error) {
	start := p.pos
	for p.pos < len(p.src) && strings.ContainsRune("-+.eE0123456789", rune(p.src[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return value.Undefined, &jsonError{"Unexpected token in JSON"}
	}
	n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return value.Undefined, &jsonError{"Invalid number in JSON"}
	}
	return value.Number(n), nil
}
