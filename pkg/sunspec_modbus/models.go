package sunspec_modbus

import (
	"fmt"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"go.uber.org/zap"
)

// model is a SunSpec model table. Point offsets are relative to the model
// header (ID at 0, L at 1).
type model struct {
	name     string
	points   []regmap.RegisterSpec
	initOnly bool
}

func (m model) extent() uint16 {
	var end uint16
	for _, p := range m.points {
		if e := p.Address + p.Words; e > end {
			end = e
		}
	}
	return end
}

func lookupModel(id uint16) (model, bool) {
	switch {
	case id == SUNSPEC_WK_COMMON:
		return commonModel(), true
	case id >= SUNSPEC_WK_INVERTERS_MIN && id <= SUNSPEC_WK_INVERTERS_MAX:
		return inverterModel(), true
	case id == SUNSPEC_WK_NAMEPLATE:
		return nameplateModel(), true
	case id == SUNSPEC_WK_HFRTC:
		return hfrtcModel(), true
	case id >= SUNSPEC_WK_METERS_MIN && id <= SUNSPEC_WK_METERS_MAX:
		return meterModel(), true
	case id == SUNSPEC_WK_REFPOINT:
		return refPointModel(), true
	case id == SUNSPEC_WK_MINIMET:
		return miniMetModel(), true
	case id == SUNSPEC_WK_SOLAR_MODULE:
		return solarModuleModel(), true
	default:
		return model{}, false
	}
}

// ModelBlock maps the table of the model behind h at its surveyed address.
// Point names are prefixed with prefix and an underscore, scale factor
// references included.
func ModelBlock(h ModelHeader, prefix string) (regmap.Block, error) {
	m, ok := lookupModel(h.ID)
	if !ok {
		return regmap.Block{}, fmt.Errorf("%w: %d", ErrUnknownModelID, h.ID)
	}
	length := m.extent()
	if length > h.Length+2 {
		return regmap.Block{}, fmt.Errorf("%w: %s needs %d registers", ErrModelTooShort, h, length)
	}
	specs := make([]regmap.RegisterSpec, len(m.points))
	for i, p := range m.points {
		p.Name = prefix + "_" + p.Name
		if p.Scale.Ref != "" {
			p.Scale.Ref = prefix + "_" + p.Scale.Ref
		}
		specs[i] = p
	}
	return regmap.Block{
		Name:     prefix,
		Type:     regmap.HoldingRegister,
		Address:  h.Address,
		Length:   length,
		Specs:    specs,
		InitOnly: m.initOnly,
	}, nil
}

// Blocks builds the register table of a surveyed device. Unsupported models
// are skipped; repeated models get a numeric suffix (meter, meter2, ...).
func Blocks(headers []ModelHeader, logger *zap.Logger) regmap.Blocks {
	var blocks regmap.Blocks
	seen := make(map[string]int)
	for _, h := range headers {
		m, ok := lookupModel(h.ID)
		if !ok {
			logger.Debug("sunspec: skipping unsupported model", zap.Stringer("model", h))
			continue
		}
		seen[m.name]++
		prefix := m.name
		if n := seen[m.name]; n > 1 {
			prefix = fmt.Sprintf("%s%d", m.name, n)
		}
		b, err := ModelBlock(h, prefix)
		if err != nil {
			logger.Warn("sunspec: skipping model", zap.Error(err))
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks
}

func point(name string, offset uint16, rule regmap.Rule) regmap.RegisterSpec {
	return regmap.Spec(name, regmap.HoldingRegister, offset, rule)
}

func scaled(name string, offset uint16, rule regmap.Rule, sf string, unit string) regmap.RegisterSpec {
	return point(name, offset, rule).WithScale(regmap.ScaledBy(sf)).WithUnit(unit)
}

func sunssf(name string, offset uint16) regmap.RegisterSpec {
	return point(name, offset, regmap.RuleScaleFactor)
}

func text(name string, offset, words uint16) regmap.RegisterSpec {
	return regmap.StringSpec(name, regmap.HoldingRegister, offset, words)
}
