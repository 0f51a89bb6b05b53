package sunspec_modbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

const (
	SUNSPEC_BASE_ADDRESS = 40000
	SUNSPEC_END_MODEL    = 0xFFFF

	SUNSPEC_WK_COMMON        = 1
	SUNSPEC_WK_INVERTERS_MIN = 101
	SUNSPEC_WK_INVERTERS_MAX = 103
	SUNSPEC_WK_NAMEPLATE     = 120
	SUNSPEC_WK_HFRTC         = 142
	SUNSPEC_WK_METERS_MIN    = 201
	SUNSPEC_WK_METERS_MAX    = 204
	SUNSPEC_WK_REFPOINT      = 306
	SUNSPEC_WK_MINIMET       = 308
	SUNSPEC_WK_SOLAR_MODULE  = 502

	// a chain longer than this is treated as corrupt
	maxSurveyModels = 64
)

var (
	ErrNotSunSpec     = errors.New("sunspec: marker not found")
	ErrSurveyTooLong  = errors.New("sunspec: model chain has no end marker")
	ErrModelTooShort  = errors.New("sunspec: model shorter than its table")
	ErrUnknownModelID = errors.New("sunspec: unsupported model id")
)

// ModelHeader is one entry of the model chain. Address points at the ID
// register; the model occupies Length registers after the header.
type ModelHeader struct {
	ID      uint16
	Address uint16
	Length  uint16
}

func (h ModelHeader) isEndBlock() bool {
	return h.ID == SUNSPEC_END_MODEL
}

func (h ModelHeader) String() string {
	return fmt.Sprintf("model %d @%d (L=%d)", h.ID, h.Address, h.Length)
}

// Survey walks the model chain starting at base: the "SunS" marker at base,
// the first header at base+2, each next header length+2 registers further,
// up to the 0xFFFF end model.
func Survey(ctx context.Context, t regmap.Transport, slave uint8, base uint16) ([]ModelHeader, error) {

	// check SunSpec
	marker, err := t.ReadRegisters(ctx, slave, regmap.HoldingRegister, base, 2)
	if err != nil {
		return nil, err
	}
	if regmap.DecodeString(marker) != "SunS" {
		return nil, ErrNotSunSpec
	}

	// survey blocks
	var headers []ModelHeader
	addr := base + 2
	for n := 0; n < maxSurveyModels; n++ {
		header, err := surveyModbusBlock(ctx, t, slave, addr)
		if err != nil {
			return nil, err
		}
		if header.isEndBlock() {
			return headers, nil
		}
		headers = append(headers, header)
		next := uint32(addr) + uint32(header.Length) + 2
		if next > 0xFFFF {
			return nil, ErrSurveyTooLong
		}
		addr = uint16(next)
	}
	return nil, ErrSurveyTooLong
}

func surveyModbusBlock(ctx context.Context, t regmap.Transport, slave uint8, addr uint16) (ModelHeader, error) {
	words, err := t.ReadRegisters(ctx, slave, regmap.HoldingRegister, addr, 2)
	if err != nil {
		return ModelHeader{}, err
	}
	return ModelHeader{
		ID:      words[0],
		Address: addr,
		Length:  words[1],
	}, nil
}
