package devices

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

var (
	alphaSystemStatus = regmap.NewEnumTable("systemStatus", map[uint32]string{
		0: "heating",
		1: "hot water",
		2: "swimming pool",
		3: "EVU off",
		4: "defrost",
		5: "off",
		6: "external energy source",
		7: "cooling",
	})
	alphaSmartGrid = regmap.NewEnumTable("smartGrid", map[uint32]string{
		0: "off",
		1: "low",
		2: "standard",
		3: "high",
	})
)

func celsius(name string, regType regmap.RegisterType, offset uint16) regmap.RegisterSpec {
	return regmap.Spec(name, regType, offset, regmap.RuleUInt16).WithScale(regmap.Fixed(-1)).WithUnit("°C")
}

func heatEnergy(name string, offset uint16) regmap.RegisterSpec {
	return regmap.Spec(name, regmap.InputRegister, offset, regmap.RuleUInt32).WithScale(regmap.Fixed(-1)).WithUnit("kWh")
}

// alpha innotec heat pump through the alpha connect Modbus TCP interface.
// Holding registers are the writable set points; each one is its own
// block so that a write can be re-read alone.
func alphaConnect() Descriptor {
	in := regmap.InputRegister
	h := regmap.HoldingRegister
	return Descriptor{
		Model:          ModelAlphaConnect,
		Manufacturer:   "alpha innotec",
		Name:           "alpha connect heat pump",
		Link:           LinkTCP,
		DefaultPort:    502,
		DefaultSlaveId: 1,
		MinSlaveId:     0,
		MaxSlaveId:     247,
		Blocks: regmap.Blocks{
			{
				Name: "temperatures", Type: in, Address: 0, Length: 19,
				Specs: []regmap.RegisterSpec{
					celsius("meanTemperature", in, 0),
					celsius("flowTemperature", in, 1),
					celsius("returnTemperature", in, 2),
					celsius("externalReturnTemperature", in, 3),
					celsius("hotWaterTemperature", in, 4),
					celsius("hotGasTemperature", in, 8),
					celsius("heatSourceInletTemperature", in, 9),
					celsius("heatSourceOutletTemperature", in, 10),
					celsius("roomTemperature1", in, 11),
					celsius("roomTemperature2", in, 12),
					celsius("roomTemperature3", in, 13),
					celsius("solarCollectorTemperature", in, 14),
					celsius("solarStorageTankTemperature", in, 15),
					celsius("externalEnergySourceTemperature", in, 16),
					celsius("supplyAirTemperature", in, 17),
					celsius("externalAirTemperature", in, 18),
				},
			},
			{
				Name: "rbe", Type: in, Address: 24, Length: 2,
				Specs: []regmap.RegisterSpec{
					celsius("rbeRoomActualTemperature", in, 0),
					celsius("rbeRoomSetpointTemperature", in, 1),
				},
			},
			regmap.SingleBlock(regmap.Spec("heatingPumpOperatingHours", in, 33, regmap.RuleUInt16).WithUnit("h")),
			regmap.SingleBlock(regmap.Spec("systemStatus", in, 37, regmap.RuleEnum16).WithEnum(alphaSystemStatus)),
			{
				Name: "energy", Type: in, Address: 38, Length: 8,
				Specs: []regmap.RegisterSpec{
					heatEnergy("heatingEnergy", 0),
					heatEnergy("waterHeatEnergy", 2),
					heatEnergy("swimmingPoolHeatEnergy", 4),
					heatEnergy("totalHeatEnergy", 6),
				},
			},
		}.With(regmap.Singles(
			celsius("outdoorTemperature", h, 0).AsWritable(),
			celsius("returnSetpointTemperature", h, 1).AsWritable(),
			celsius("hotWaterSetpointTemperature", h, 5).AsWritable(),
			regmap.Spec("smartGrid", h, 14, regmap.RuleEnum16).WithEnum(alphaSmartGrid).AsWritable(),
		)...),
	}
}
