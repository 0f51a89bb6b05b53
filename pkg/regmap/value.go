package regmap

import (
	"encoding/json"
	"strconv"
)

type Kind uint8

const (
	KindNone Kind = iota
	KindUint
	KindInt
	KindFloat
	KindString
	KindEnum
	KindBitfield
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindBitfield:
		return "bitfield"
	case KindBool:
		return "bool"
	default:
		return "none"
	}
}

// Value is a decoded register value. The zero Value (KindNone) is the
// initial cache state of every property.
type Value struct {
	Kind  Kind
	Uint  uint64
	Int   int64
	Float float64
	Str   string
	Enum  EnumValue
	Bits  uint32
	Bool  bool
}

func IntValue(v int64, signed bool) Value {
	if signed {
		return Value{Kind: KindInt, Int: v}
	}
	return Value{Kind: KindUint, Uint: uint64(v)}
}

func FloatValue(v float64) Value {
	return Value{Kind: KindFloat, Float: v}
}

func StringValue(v string) Value {
	return Value{Kind: KindString, Str: v}
}

func EnumOf(v EnumValue) Value {
	return Value{Kind: KindEnum, Enum: v}
}

func BitsValue(v uint32) Value {
	return Value{Kind: KindBitfield, Bits: v}
}

func BoolValue(v bool) Value {
	return Value{Kind: KindBool, Bool: v}
}

// Equal is exact, floats included.
func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) IsZero() bool {
	return v.Kind == KindNone
}

// Float64 returns the numeric interpretation of the value, if any.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case KindUint:
		return float64(v.Uint), true
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	case KindEnum:
		return float64(v.Enum.Tag), true
	case KindBitfield:
		return float64(v.Bits), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindEnum:
		return v.Enum.Name
	case KindBitfield:
		return "0x" + strconv.FormatUint(uint64(v.Bits), 16)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindUint:
		return json.Marshal(v.Uint)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindString:
		return json.Marshal(v.Str)
	case KindEnum:
		return json.Marshal(struct {
			Tag   uint32 `json:"tag"`
			Name  string `json:"name"`
			Known bool   `json:"known"`
		}{v.Enum.Tag, v.Enum.Name, v.Enum.Known})
	case KindBitfield:
		return json.Marshal(v.Bits)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return []byte("null"), nil
	}
}
