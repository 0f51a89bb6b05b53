package regmap

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotWritable  = errors.New("property is not writable")
	ErrOutOfRange   = errors.New("value out of range")
	ErrUnsupported  = errors.New("unsupported rule for encoding")
	ErrUnknownScale = errors.New("dynamic scale factor not resolved")
)

func EncodeUInt32(v uint32, order WordOrder) []uint16 {
	hi, lo := uint16(v>>16), uint16(v)
	if order == LowWordFirst {
		return []uint16{lo, hi}
	}
	return []uint16{hi, lo}
}

func EncodeInt32(v int32, order WordOrder) []uint16 {
	return EncodeUInt32(uint32(v), order)
}

func EncodeFloat32(v float32, order WordOrder) []uint16 {
	return EncodeUInt32(math.Float32bits(v), order)
}

// EncodeString packs two characters per word, padding with NULs up to words.
func EncodeString(s string, words uint16) []uint16 {
	out := make([]uint16, words)
	for i := 0; i < len(s) && i < int(words)*2; i++ {
		if i%2 == 0 {
			out[i/2] |= uint16(s[i]) << 8
		} else {
			out[i/2] |= uint16(s[i])
		}
	}
	return out
}

// Unscale is the inverse of ApplyScale, rounded to the nearest integer.
func Unscale(value float64, exponent int) float64 {
	if exponent < 0 {
		return math.Round(value * math.Pow10(-exponent))
	}
	return math.Round(value / math.Pow10(exponent))
}

// EncodeScaled converts a real world value into the single register word of
// a fixed point u16 or i16 property.
func EncodeScaled(value float64, exponent int, signed bool) (uint16, error) {
	raw := Unscale(value, exponent)
	if signed {
		if raw < math.MinInt16 || raw > math.MaxInt16 {
			return 0, fmt.Errorf("%w: %v", ErrOutOfRange, value)
		}
		return uint16(int16(raw)), nil
	}
	if raw < 0 || raw > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, value)
	}
	return uint16(raw), nil
}

// Encode is the set path of a writable property: scale, then pack to words.
func Encode(spec RegisterSpec, value float64) ([]uint16, error) {
	if !spec.Writable {
		return nil, ErrNotWritable
	}
	if spec.Scale.Ref != "" {
		return nil, ErrUnknownScale
	}
	exp := spec.Scale.Exponent
	switch spec.Rule {
	case RuleUInt16, RuleInt16, RuleEnum16, RuleBitfield16:
		w, err := EncodeScaled(value, exp, spec.Rule.signed())
		if err != nil {
			return nil, err
		}
		return []uint16{w}, nil
	case RuleUInt32, RuleAcc32, RuleEnum32, RuleBitfield32:
		raw := Unscale(value, exp)
		if raw < 0 || raw > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %v", ErrOutOfRange, value)
		}
		return EncodeUInt32(uint32(raw), spec.Order), nil
	case RuleInt32:
		raw := Unscale(value, exp)
		if raw < math.MinInt32 || raw > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %v", ErrOutOfRange, value)
		}
		return EncodeInt32(int32(raw), spec.Order), nil
	case RuleFloat32:
		if exp != 0 {
			value = value / math.Pow10(exp)
		}
		return EncodeFloat32(float32(value), spec.Order), nil
	case RuleBool:
		if value != 0 {
			return []uint16{1}, nil
		}
		return []uint16{0}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, spec.Rule)
	}
}
