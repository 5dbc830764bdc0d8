package value

import "math"

// ClampForElemKind coerces f into the representable range of a typed-array
// element kind, the same coercion ECMA-262's IntegerIndexedElementSet
// applies — used both by internal/builtins' typed-array methods and by
// plain `arr[i] = v` indexed assignment below, so every write path agrees
// on one conversion.
func ClampForElemKind(kind string, f float64) float64 {
	switch kind {
	case "Int8Array":
		return wrapIntRange(f, -128, 127)
	case "Uint8Array":
		return wrapIntRange(f, 0, 255)
	case "Uint8ClampedArray":
		return clampUint8(f)
	case "Int16Array":
		return wrapIntRange(f, -32768, 32767)
	case "Uint16Array":
		return wrapIntRange(f, 0, 65535)
	case "Int32Array":
		return wrapIntRange(f, -2147483648, 2147483647)
	case "Uint32Array":
		return wrapIntRange(f, 0, 4294967295)
	case "Float32Array":
		return float64(float32(f))
	default: // Float64Array, and anything unrecognized
		return f
	}
}

func wrapIntRange(f, lo, hi float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Trunc(f)
	span := hi - lo + 1
	f = math.Mod(f-lo, span)
	if f < 0 {
		f += span
	}
	return f + lo
}

func clampUint8(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > 255 {
		return 255
	}
	return math.Round(f)
}
