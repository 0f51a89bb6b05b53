package devices

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

var huaweiDeviceStatus = regmap.NewEnumTable("inverterDeviceStatus", map[uint32]string{
	0x0000: "Standby, initializing",
	0x0001: "Standby, detecting insulation resistance",
	0x0002: "Standby, detecting irradiation",
	0x0003: "Standby, grid detecting",
	0x0100: "Starting",
	0x0200: "On-grid",
	0x0201: "Grid connection, power limited",
	0x0202: "Grid connection, self-derating",
	0x0300: "Shutdown, fault",
	0x0301: "Shutdown, command",
	0x0302: "Shutdown, OVGR",
	0x0303: "Shutdown, communication disconnected",
	0x0304: "Shutdown, power limited",
	0x0305: "Shutdown, manual startup required",
	0x0306: "Shutdown, DC switches disconnected",
	0x0307: "Shutdown, rapid cutoff",
	0x0308: "Shutdown, input underpowered",
	0x0401: "Grid scheduling, cosphi-P curve",
	0x0402: "Grid scheduling, Q-U curve",
	0x0403: "Grid scheduling, PF-U curve",
	0x0404: "Grid scheduling, dry contact",
	0x0405: "Grid scheduling, Q-P curve",
	0x0500: "Spot-check ready",
	0x0501: "Spot-checking",
	0x0600: "Inspecting",
	0x0700: "AFCI self check",
	0x0800: "I-V scanning",
	0x0900: "DC input detection",
	0x0A00: "Running, off-grid charging",
	0xA000: "Standby, no irradiation",
})

// Huawei FusionSolar SUN2000 inverter behind the SDongle, Modbus TCP.
func huaweiFusionSolar() Descriptor {
	h := regmap.HoldingRegister
	return Descriptor{
		Model:          ModelHuaweiFusionSolar,
		Manufacturer:   "Huawei",
		Name:           "FusionSolar inverter",
		Link:           LinkTCP,
		DefaultPort:    502,
		DefaultSlaveId: 1,
		MinSlaveId:     0,
		MaxSlaveId:     247,
		Blocks: regmap.Blocks{
			{
				Name: "identification", Type: h, Address: 30000, Length: 35,
				Specs: []regmap.RegisterSpec{
					regmap.StringSpec("model", h, 0, 15),
					regmap.StringSpec("serialNumber", h, 15, 10),
					regmap.StringSpec("productNumber", h, 25, 10),
				},
			},
			{
				Name: "configuration", Type: h, Address: 30070, Length: 3,
				Specs: []regmap.RegisterSpec{
					regmap.Spec("modelId", h, 0, regmap.RuleUInt16),
					regmap.Spec("numberOfPvString", h, 1, regmap.RuleUInt16),
					regmap.Spec("numberOfMppTracks", h, 2, regmap.RuleUInt16),
				},
			},
			{
				Name: "grid", Type: h, Address: 32069, Length: 9,
				Specs: []regmap.RegisterSpec{
					regmap.Spec("inverterVoltagePhaseA", h, 0, regmap.RuleUInt16).WithScale(regmap.Fixed(-1)).WithUnit("V"),
					regmap.Spec("inverterVoltagePhaseB", h, 1, regmap.RuleUInt16).WithScale(regmap.Fixed(-1)).WithUnit("V"),
					regmap.Spec("inverterVoltagePhaseC", h, 2, regmap.RuleUInt16).WithScale(regmap.Fixed(-1)).WithUnit("V"),
					regmap.Spec("inverterPhaseACurrent", h, 3, regmap.RuleInt32).WithScale(regmap.Fixed(-3)).WithUnit("A"),
					regmap.Spec("inverterPhaseBCurrent", h, 5, regmap.RuleInt32).WithScale(regmap.Fixed(-3)).WithUnit("A"),
					regmap.Spec("inverterPhaseCCurrent", h, 7, regmap.RuleInt32).WithScale(regmap.Fixed(-3)).WithUnit("A"),
				},
			},
		}.With(regmap.Singles(
			regmap.Spec("inverterActivePower", h, 32080, regmap.RuleInt32).WithScale(regmap.Fixed(-3)).WithUnit("kW"),
			regmap.Spec("inverterGridFrequency", h, 32085, regmap.RuleUInt16).WithScale(regmap.Fixed(-2)).WithUnit("Hz"),
			regmap.Spec("inverterInternalTemperature", h, 32087, regmap.RuleInt16).WithScale(regmap.Fixed(-1)).WithUnit("°C"),
			regmap.Spec("inverterDeviceStatus", h, 32089, regmap.RuleEnum16).WithEnum(huaweiDeviceStatus),
			regmap.Spec("inverterAccumulatedEnergyYield", h, 32106, regmap.RuleUInt32).WithScale(regmap.Fixed(-2)).WithUnit("kWh"),
			regmap.Spec("inverterDailyEnergyYield", h, 32114, regmap.RuleUInt32).WithScale(regmap.Fixed(-2)).WithUnit("kWh"),
			regmap.Spec("powerMeterActivePower", h, 37113, regmap.RuleInt32).WithUnit("W"),
		)...),
	}
}
