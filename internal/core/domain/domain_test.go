package domain

import (
	"testing"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"github.com/stretchr/testify/assert"
)

func TestPropertyInfoFromSpec(t *testing.T) {

	assert := assert.New(t)

	setpoint := regmap.Spec("hotWaterSetpointTemperature", regmap.HoldingRegister, 5, regmap.RuleUInt16).
		WithScale(regmap.Fixed(-1)).WithUnit("°C").AsWritable()
	info, ok := PropertyInfoFromSpec(setpoint)
	assert.True(ok)
	assert.Equal(PROPERTY_KIND_NUMBER, info.Kind)
	assert.Equal(uint(1), info.Decimals)
	assert.True(info.Writable)
	assert.Equal(0.0, info.Min)
	assert.InDelta(6553.5, info.Max, 1e-9)
	assert.InDelta(0.1, info.Step, 1e-9)

	grid := regmap.NewEnumTable("smartGrid", map[uint32]string{0: "off", 1: "low"})
	sg, ok := PropertyInfoFromSpec(regmap.Spec("smartGrid", regmap.HoldingRegister, 14, regmap.RuleEnum16).WithEnum(grid).AsWritable())
	assert.True(ok)
	assert.Equal(PROPERTY_KIND_ENUM, sg.Kind)
	assert.Equal([]EnumOption{{0, "off"}, {1, "low"}}, sg.Options)

	_, ok = PropertyInfoFromSpec(regmap.Spec("W_SF", regmap.HoldingRegister, 1, regmap.RuleScaleFactor))
	assert.False(ok, "scale factors are not properties")
}

func TestDeviceComponents(t *testing.T) {

	assert := assert.New(t)

	info := DeviceInfo{
		Id:           "heatpump",
		Model:        "alpha_connect",
		Manufacturer: "alpha innotec",
		Properties: []PropertyInfo{
			{Name: "flowTemperature", Kind: PROPERTY_KIND_NUMBER, Unit: "°C", Decimals: 1},
			{Name: "hotWaterSetpointTemperature", Kind: PROPERTY_KIND_NUMBER, Unit: "°C", Writable: true, Max: 100, Step: 0.1},
			{Name: "smartGrid", Kind: PROPERTY_KIND_ENUM, Writable: true, Options: []EnumOption{{0, "off"}, {1, "low"}}},
			{Name: "systemStatus", Kind: PROPERTY_KIND_ENUM},
			{Name: "RO1_2", Kind: PROPERTY_KIND_SWITCH, Writable: true},
		},
	}
	device := ModbusDevice(info, "bridge")
	c := DeviceComponents(device, info)

	assert.Len(c.Sensors, 2)
	assert.Len(c.InputNumbers, 1)
	assert.Len(c.Selects, 1)
	assert.Len(c.Switches, 1)

	assert.Equal("heatpump_flowtemperature", c.Sensors[0].Id)
	assert.Equal(DEVICE_CLASS_TEMPERATURE, c.Sensors[0].DeviceClass)
	assert.Equal("Flow Temperature", c.Sensors[0].Name)
	assert.Equal(device, c.Sensors[0].Device, "first component carries the full device")
	assert.Equal(IdDevice(device), c.InputNumbers[0].Device)
	assert.Equal([]string{"off", "low"}, c.Selects[0].Options)
	assert.Equal(ENTITY_CLASS_DIAGNOSTIC, c.Sensors[1].EntityCategory)
	assert.Equal("heatpump_ro1_2", c.Switches[0].Id)
}

func TestHumanize(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("Hot Water Setpoint Temperature", humanize("hotWaterSetpointTemperature"))
	assert.Equal("Meter W", humanize("meter_W"))
	assert.Equal("Voltage L1", humanize("voltageL1"))
}
