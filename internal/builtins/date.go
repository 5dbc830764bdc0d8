package builtins

import (
	"time"

	"jsvm/internal/value"
	"jsvm/internal/vm"
)

func installDate(interp *vm.Interpreter) {
	proto := interp.Track(value.NewObject(interp.ObjectProto()))

	newDate := func(millis float64) *value.Object {
		return interp.Track(&value.Object{Kind: value.KindDate, Proto: proto, EpochMillis: millis})
	}

	ctor := native(interp, "Date", func(this value.Value, args []value.Value) (value.Value, error) {
		var millis float64
		switch len(args) {
		case 0:
			millis = float64(time.Now().UnixMilli())
		case 1:
			if args[0].IsString() {
				t, err := time.Parse(time.RFC3339, args[0].Str())
				if err != nil {
					millis = nan()
				} else {
					millis = float64(t.UnixMilli())
				}
			} else {
				millis = args[0].ToNumber()
			}
		default:
			year := int(arg(args, 0).ToNumber())
			month := int(arg(args, 1).ToNumber())
			day := 1
			if len(args) > 2 {
				day = int(args[2].ToNumber())
			}
			hour, minute, sec, ms := 0, 0, 0, 0
			if len(args) > 3 {
				hour = int(args[3].ToNumber())
			}
			if len(args) > 4 {
				minute = int(args[4].ToNumber())
			}
			if len(args) > 5 {
				sec = int(args[5].ToNumber())
			}
			if len(args) > 6 {
				ms = int(args[6].ToNumber())
			}
			t := time.Date(year, time.Month(month+1), day, hour, minute, sec, ms*1e6, time.UTC)
			millis = float64(t.UnixMilli())
		}
		if this.IsObject() && this.Object().Kind == value.KindDate {
			this.Object().EpochMillis = millis
			return this, nil
		}
		return value.Obj(newDate(millis)), nil
	})
	ctor.DefineOwn("prototype", value.PropertyDescriptor{Value: value.Obj(proto)})
	proto.DefineOwn("constructor", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})

	defineMethod(interp, ctor, "now", func(_ value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(time.Now().UnixMilli())), nil
	})

	asTime := func(this value.Value) time.Time {
		return time.UnixMilli(int64(this.Object().EpochMillis)).UTC()
	}

	defineMethod(interp, proto, "getTime", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(this.Object().EpochMillis), nil
	})
	defineMethod(interp, proto, "valueOf", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(this.Object().EpochMillis), nil
	})
	defineMethod(interp, proto, "getFullYear", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(asTime(this).Year())), nil
	})
	defineMethod(interp, proto, "getMonth", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(asTime(this).Month() - 1)), nil
	})
	defineMethod(interp, proto, "getDate", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(asTime(this).Day())), nil
	})
	defineMethod(interp, proto, "getDay", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(asTime(this).Weekday())), nil
	})
	defineMethod(interp, proto, "getHours", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(asTime(this).Hour())), nil
	})
	defineMethod(interp, proto, "getMinutes", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(asTime(this).Minute())), nil
	})
	defineMethod(interp, proto, "getSeconds", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(asTime(this).Second())), nil
	})
	defineMethod(interp, proto, "getMilliseconds", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.Number(float64(asTime(this).Nanosecond() / 1e6)), nil
	})
	defineMethod(interp, proto, "toISOString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(asTime(this).Format("2006-01-02T15:04:05.000Z")), nil
	})
	defineMethod(interp, proto, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(asTime(this).Format(time.RFC1123)), nil
	})
	defineMethod(interp, proto, "toJSON", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(asTime(this).Format("2006-01-02T15:04:05.000Z")), nil
	})

	interp.Globals.DefineOwn("Date", value.PropertyDescriptor{Value: value.Obj(ctor), Writable: true, Configurable: true})
}

func nan() float64 {
	var x float64
	return x / x
}
