package devices

import (
	"errors"
	"fmt"
	"strings"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

type Model uint8

const (
	ModelUnknown Model = iota
	ModelSDM630
	ModelPRO380
	ModelHuaweiFusionSolar
	ModelAlphaConnect
	ModelSunSpec
)

var modelNames = map[Model]string{
	ModelSDM630:            "sdm630",
	ModelPRO380:            "pro380",
	ModelHuaweiFusionSolar: "huawei_fusionsolar",
	ModelAlphaConnect:      "alpha_connect",
	ModelSunSpec:           "sunspec",
}

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("%s(%d)", "unknown", m)
}

func Models() []Model {
	return []Model{ModelSDM630, ModelPRO380, ModelHuaweiFusionSolar, ModelAlphaConnect, ModelSunSpec}
}

func ParseModel(s string) (Model, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Models() {
		if modelNames[m] == name {
			return m, nil
		}
	}
	return ModelUnknown, fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

type Link uint8

const (
	LinkTCP Link = iota
	LinkRTU
)

func (l Link) String() string {
	if l == LinkRTU {
		return "rtu"
	}
	return "tcp"
}

var (
	ErrUnknownModel        = errors.New("unknown device model")
	ErrInvalidSlaveAddress = errors.New("invalid slave address")
)

// Descriptor is the static description of a device model: its link, slave
// id constraints and register table.
type Descriptor struct {
	Model          Model
	Manufacturer   string
	Name           string
	Link           Link
	DefaultPort    uint
	DefaultSlaveId uint8
	MinSlaveId     uint8
	MaxSlaveId     uint8
	Blocks         regmap.Blocks
	// Survey is set for models whose table is discovered on the device.
	Survey bool
}

// Describe returns the descriptor of m. Tables are built on every call,
// callers own the returned value.
func Describe(m Model) (Descriptor, error) {
	switch m {
	case ModelSDM630:
		return sdm630(), nil
	case ModelPRO380:
		return pro380(), nil
	case ModelHuaweiFusionSolar:
		return huaweiFusionSolar(), nil
	case ModelAlphaConnect:
		return alphaConnect(), nil
	case ModelSunSpec:
		return sunSpec(), nil
	default:
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownModel, m)
	}
}

func (d Descriptor) CheckSlaveId(id int) error {
	if id < int(d.MinSlaveId) || id > int(d.MaxSlaveId) {
		return fmt.Errorf("%w: %d not in %d..%d for %s", ErrInvalidSlaveAddress, id, d.MinSlaveId, d.MaxSlaveId, d.Model)
	}
	return nil
}

// Writable lists the writable properties of the table.
func (d Descriptor) Writable() []regmap.RegisterSpec {
	var specs []regmap.RegisterSpec
	for _, s := range d.Blocks.Specs() {
		if s.Writable {
			specs = append(specs, s)
		}
	}
	return specs
}

func float32Spec(name string, regType regmap.RegisterType, offset uint16, unit string) regmap.RegisterSpec {
	return regmap.Spec(name, regType, offset, regmap.RuleFloat32).WithUnit(unit)
}
