package regmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeFloat32WordOrder(t *testing.T) {

	assert := assert.New(t)

	words := []uint16{0x4049, 0x0FDB}

	be := DecodeFloat32(words, HighWordFirst)
	assert.InDelta(3.14159, float64(be), 0.00001, "big endian word order")

	swapped := DecodeFloat32(words, LowWordFirst)
	assert.NotEqual(be, swapped, "swapped word order must differ")
	assert.InDelta(2.1620e-29, float64(swapped), 1e-32, "swapped word order value")

	// decoding is pure
	assert.Equal(be, DecodeFloat32(words, HighWordFirst))
}

func TestDecodeIntegers(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(uint16(0xFFFE), DecodeUInt16([]uint16{0xFFFE}))
	assert.Equal(int16(-2), DecodeInt16([]uint16{0xFFFE}))
	assert.Equal(uint32(0x00010002), DecodeUInt32([]uint16{0x0001, 0x0002}, HighWordFirst))
	assert.Equal(uint32(0x00020001), DecodeUInt32([]uint16{0x0001, 0x0002}, LowWordFirst))
	assert.Equal(int32(-1000), DecodeInt32([]uint16{0xFFFF, 0xFC18}, HighWordFirst))
	assert.Equal(uint16(7), DecodeEnum([]uint16{7}))
}

func TestDecodeString(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("ABC", DecodeString([]uint16{0x4142, 0x4300}))
	assert.Equal("SunS", DecodeString([]uint16{0x5375, 0x6e53}))
	assert.Equal("", DecodeString([]uint16{0x0000, 0x0000}))
	assert.Equal("AB", DecodeString([]uint16{0x4142}))
}

func TestApplyScale(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(21.3, ApplyScale(213, -1))
	assert.Equal(2130.0, ApplyScale(213, 1))
	assert.Equal(213.0, ApplyScale(213, 0))
	assert.Equal(0.213, ApplyScale(213, -3))
}

func TestScaleRoundTrip(t *testing.T) {

	assert := assert.New(t)

	spec := Spec("hotWaterSetpoint", HoldingRegister, 5, RuleUInt16).WithScale(Fixed(-1)).AsWritable()

	words, err := Encode(spec, 21.3)
	assert.NoError(err)
	assert.Equal([]uint16{213}, words)

	value := Decode(spec, words)
	assert.Equal(KindFloat, value.Kind)
	assert.Equal(21.3, value.Float)

	signed := Spec("t", HoldingRegister, 0, RuleInt16).WithScale(Fixed(-1)).AsWritable()
	words, err = Encode(signed, -4.5)
	assert.NoError(err)
	assert.Equal(-4.5, Decode(signed, words).Float)

	_, err = Encode(spec, -1)
	assert.ErrorIs(err, ErrOutOfRange)

	_, err = Encode(Spec("ro", InputRegister, 0, RuleUInt16), 1)
	assert.ErrorIs(err, ErrNotWritable)
}

func TestEncode32RoundTrip(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(uint32(123456789), DecodeUInt32(EncodeUInt32(123456789, LowWordFirst), LowWordFirst))
	assert.Equal(int32(-42), DecodeInt32(EncodeInt32(-42, HighWordFirst), HighWordFirst))
	assert.Equal(float32(230.5), DecodeFloat32(EncodeFloat32(230.5, HighWordFirst), HighWordFirst))
	assert.Equal("ABC", DecodeString(EncodeString("ABC", 4)))
}

func TestDecodeEnumUnknownTag(t *testing.T) {

	assert := assert.New(t)

	table := NewEnumTable("smartGrid", map[uint32]string{0: "off", 1: "low", 2: "standard", 3: "high"})
	spec := Spec("smartGrid", HoldingRegister, 14, RuleEnum16).WithEnum(table)

	known := Decode(spec, []uint16{2})
	assert.Equal(KindEnum, known.Kind)
	assert.True(known.Enum.Known)
	assert.Equal("standard", known.Enum.Name)

	unknown := Decode(spec, []uint16{42})
	assert.Equal(KindEnum, unknown.Kind)
	assert.False(unknown.Enum.Known, "unknown tag must be unrecognized")
	assert.Equal(uint32(42), unknown.Enum.Tag)
	assert.Equal("unknown(42)", unknown.Enum.Name)
	assert.False(unknown.Equal(known))
}

func TestDecodeWordCountMismatchPanics(t *testing.T) {

	assert := assert.New(t)

	assert.Panics(func() { DecodeUInt16([]uint16{1, 2}) })
	assert.Panics(func() { DecodeFloat32([]uint16{1}, HighWordFirst) })
	assert.Panics(func() { Decode(Spec("v", InputRegister, 0, RuleFloat32), []uint16{1, 2, 3}) })
}

func TestDecodeBitfield(t *testing.T) {

	assert := assert.New(t)

	flags := NewFlagTable("evt", map[uint]string{0: "groundFault", 1: "inputOverVoltage"})
	spec := Spec("evt", HoldingRegister, 0, RuleBitfield32).WithFlags(flags)

	v := Decode(spec, []uint16{0x0000, 0x0005})
	assert.Equal(KindBitfield, v.Kind)
	assert.Equal(uint32(5), v.Bits)
	assert.Equal([]string{"groundFault", "bit2"}, flags.Active(v.Bits))
	assert.Equal("groundFault,bit2", flags.Format(v.Bits))
}
