package domain

import (
	"math"
	"slices"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

type PropertyKind string

const (
	PROPERTY_KIND_NUMBER PropertyKind = "number"
	PROPERTY_KIND_TEXT   PropertyKind = "text"
	PROPERTY_KIND_ENUM   PropertyKind = "enum"
	PROPERTY_KIND_FLAGS  PropertyKind = "flags"
	PROPERTY_KIND_BINARY PropertyKind = "binary"
	PROPERTY_KIND_SWITCH PropertyKind = "switch"
)

type EnumOption struct {
	Tag  uint32 `json:"tag"`
	Name string `json:"name"`
}

// PropertyInfo is the transport independent description of a device
// property, as exposed on MQTT and HTTP.
type PropertyInfo struct {
	Name     string       `json:"name"`
	Kind     PropertyKind `json:"kind"`
	Unit     string       `json:"unit,omitempty"`
	Decimals uint         `json:"decimals"`
	Writable bool         `json:"writable"`
	Min      float64      `json:"min,omitempty"`
	Max      float64      `json:"max,omitempty"`
	Step     float64      `json:"step,omitempty"`
	Options  []EnumOption `json:"options,omitempty"`
}

type DeviceInfo struct {
	Id           string         `json:"id"`
	Name         string         `json:"name"`
	Model        string         `json:"model"`
	Manufacturer string         `json:"manufacturer"`
	Version      string         `json:"version,omitempty"`
	Serial       string         `json:"serial,omitempty"`
	Slave        uint8          `json:"slave"`
	Initialized  bool           `json:"initialized"`
	Properties   []PropertyInfo `json:"properties"`
}

func (d DeviceInfo) Property(name string) (PropertyInfo, bool) {
	i := slices.IndexFunc(d.Properties, func(p PropertyInfo) bool { return p.Name == name })
	if i < 0 {
		return PropertyInfo{}, false
	}
	return d.Properties[i], true
}

// PropertyInfoFromSpec derives the property description of a register.
// Scale factor registers are not properties.
func PropertyInfoFromSpec(spec regmap.RegisterSpec) (PropertyInfo, bool) {
	if spec.Rule == regmap.RuleScaleFactor {
		return PropertyInfo{}, false
	}
	info := PropertyInfo{
		Name:     spec.Name,
		Kind:     PROPERTY_KIND_NUMBER,
		Unit:     spec.Unit,
		Decimals: spec.Decimals(),
		Writable: spec.Writable,
	}
	switch spec.Rule {
	case regmap.RuleString:
		info.Kind = PROPERTY_KIND_TEXT
	case regmap.RuleEnum16, regmap.RuleEnum32:
		info.Kind = PROPERTY_KIND_ENUM
		for _, tag := range spec.Enum.Tags() {
			info.Options = append(info.Options, EnumOption{Tag: tag, Name: spec.Enum.Lookup(tag).Name})
		}
	case regmap.RuleBitfield16, regmap.RuleBitfield32:
		info.Kind = PROPERTY_KIND_FLAGS
	case regmap.RuleBool:
		if spec.Writable {
			info.Kind = PROPERTY_KIND_SWITCH
		} else {
			info.Kind = PROPERTY_KIND_BINARY
		}
	}
	if info.Writable && info.Kind == PROPERTY_KIND_NUMBER {
		info.Min, info.Max, info.Step = numberRange(spec)
	}
	return info, true
}

func PropertiesFromBlocks(blocks regmap.Blocks) []PropertyInfo {
	var props []PropertyInfo
	for _, spec := range blocks.Specs() {
		if info, ok := PropertyInfoFromSpec(spec); ok {
			props = append(props, info)
		}
	}
	return props
}

func numberRange(spec regmap.RegisterSpec) (float64, float64, float64) {
	exp := spec.Scale.Exponent
	step := regmap.ApplyScale(1, exp)
	switch spec.Rule {
	case regmap.RuleInt16:
		return regmap.ApplyScale(math.MinInt16, exp), regmap.ApplyScale(math.MaxInt16, exp), step
	case regmap.RuleUInt32:
		return 0, regmap.ApplyScale(math.MaxUint32, exp), step
	case regmap.RuleInt32:
		return regmap.ApplyScale(math.MinInt32, exp), regmap.ApplyScale(math.MaxInt32, exp), step
	case regmap.RuleFloat32:
		return -math.MaxFloat32, math.MaxFloat32, 0.01
	default:
		return 0, regmap.ApplyScale(math.MaxUint16, exp), step
	}
}
