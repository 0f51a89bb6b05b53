package regmap

import (
	"fmt"
	"math"
)

// Decoding is pure and total over inputs of the expected length. A length
// mismatch is a programming error and panics.

func expectWords(words []uint16, n int) {
	if len(words) != n {
		panic(fmt.Sprintf("regmap: expected %d words, got %d", n, len(words)))
	}
}

func DecodeUInt16(words []uint16) uint16 {
	expectWords(words, 1)
	return words[0]
}

func DecodeInt16(words []uint16) int16 {
	expectWords(words, 1)
	return int16(words[0])
}

func DecodeUInt32(words []uint16, order WordOrder) uint32 {
	expectWords(words, 2)
	if order == LowWordFirst {
		return uint32(words[1])<<16 | uint32(words[0])
	}
	return uint32(words[0])<<16 | uint32(words[1])
}

func DecodeInt32(words []uint16, order WordOrder) int32 {
	return int32(DecodeUInt32(words, order))
}

func DecodeFloat32(words []uint16, order WordOrder) float32 {
	return math.Float32frombits(DecodeUInt32(words, order))
}

// DecodeString unpacks two characters per word, high byte first, and trims
// trailing NULs.
func DecodeString(words []uint16) string {
	bytes := make([]byte, 0, len(words)*2)
	for _, w := range words {
		bytes = append(bytes, byte(w>>8), byte(w))
	}
	end := len(bytes)
	for end > 0 && bytes[end-1] == 0x00 {
		end--
	}
	return string(bytes[:end])
}

func DecodeEnum(words []uint16) uint16 {
	return DecodeUInt16(words)
}

// ApplyScale returns value * 10^exponent. Negative exponents divide so that
// one-decimal fixed point values come back exact (213, -1 => 21.3).
func ApplyScale(value float64, exponent int) float64 {
	if exponent < 0 {
		return value / math.Pow10(-exponent)
	}
	return value * math.Pow10(exponent)
}

// Decode interprets words per spec using its fixed exponent. Specs that
// reference a dynamic scale factor must go through DecodeScaled.
func Decode(spec RegisterSpec, words []uint16) Value {
	return DecodeScaled(spec, words, spec.Scale.Exponent)
}

func DecodeScaled(spec RegisterSpec, words []uint16, exponent int) Value {
	expectWords(words, int(spec.Words))
	scaled := exponent != 0 || spec.Scale.Ref != ""

	switch spec.Rule {
	case RuleUInt16:
		return numeric(float64(words[0]), IntValue(int64(words[0]), false), scaled, exponent)
	case RuleInt16:
		v := DecodeInt16(words)
		return numeric(float64(v), IntValue(int64(v), true), scaled, exponent)
	case RuleScaleFactor:
		return IntValue(int64(DecodeInt16(words)), true)
	case RuleUInt32, RuleAcc32:
		v := DecodeUInt32(words, spec.Order)
		return numeric(float64(v), IntValue(int64(v), false), scaled, exponent)
	case RuleInt32:
		v := DecodeInt32(words, spec.Order)
		return numeric(float64(v), IntValue(int64(v), true), scaled, exponent)
	case RuleFloat32:
		v := float64(DecodeFloat32(words, spec.Order))
		if exponent != 0 {
			v = ApplyScale(v, exponent)
		}
		return FloatValue(v)
	case RuleString:
		return StringValue(DecodeString(words))
	case RuleEnum16:
		return EnumOf(spec.Enum.Lookup(uint32(DecodeEnum(words))))
	case RuleEnum32:
		return EnumOf(spec.Enum.Lookup(DecodeUInt32(words, spec.Order)))
	case RuleBitfield16:
		return BitsValue(uint32(words[0]))
	case RuleBitfield32:
		return BitsValue(DecodeUInt32(words, spec.Order))
	case RuleBool:
		return BoolValue(words[0] != 0)
	default:
		panic(fmt.Sprintf("regmap: unsupported rule %s", spec.Rule))
	}
}

func numeric(raw float64, unscaled Value, scaled bool, exponent int) Value {
	if !scaled {
		return unscaled
	}
	return FloatValue(ApplyScale(raw, exponent))
}
