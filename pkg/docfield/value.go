package docfield

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// ValueKind discriminates the payload of a FieldValue.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindDateTime
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// FieldValue is a resolved value: exactly one of string, number or date-time.
// The zero value is the empty string.
type FieldValue struct {
	kind ValueKind
	str  string
	num  float64
	at   time.Time
}

// StringValue creates a string value
func StringValue(s string) FieldValue {
	return FieldValue{kind: KindString, str: s}
}

// NumberValue creates a numeric value
func NumberValue(n float64) FieldValue {
	return FieldValue{kind: KindNumber, num: n}
}

// DateTimeValue creates a date-time value
func DateTimeValue(t time.Time) FieldValue {
	return FieldValue{kind: KindDateTime, at: t}
}

// ValueOf converts an arbitrary host value (from YAML, JSON, SQL rows, Redis)
// into a FieldValue. Numbers stay numbers, times stay times, everything else
// becomes its string form.
func ValueOf(v interface{}) FieldValue {
	switch x := v.(type) {
	case nil:
		return StringValue("")
	case FieldValue:
		return x
	case string:
		return StringValue(x)
	case []byte:
		return StringValue(string(x))
	case time.Time:
		return DateTimeValue(x)
	case *time.Time:
		if x == nil {
			return StringValue("")
		}
		return DateTimeValue(*x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return NumberValue(cast.ToFloat64(x))
	case bool:
		if x {
			return NumberValue(1)
		}
		return NumberValue(0)
	default:
		s, err := cast.ToStringE(x)
		if err != nil {
			return StringValue(fmt.Sprintf("%v", x))
		}
		return StringValue(s)
	}
}

// Kind returns the payload kind
func (v FieldValue) Kind() ValueKind { return v.kind }

// Text returns the string payload
func (v FieldValue) Text() (string, bool) {
	return v.str, v.kind == KindString
}

// Number returns the numeric payload
func (v FieldValue) Number() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Time returns the date-time payload
func (v FieldValue) Time() (time.Time, bool) {
	return v.at, v.kind == KindDateTime
}

// String renders the value with invariant defaults; used for logs and debugging.
func (v FieldValue) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDateTime:
		return v.at.Format(time.RFC3339)
	default:
		return v.str
	}
}

// Equal reports whether two values carry the same kind and payload.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == other.num
	case KindDateTime:
		return v.at.Equal(other.at)
	default:
		return v.str == other.str
	}
}
