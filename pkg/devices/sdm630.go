package devices

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

// Eastron SDM630 three phase meter. All values are float32 input
// registers, high word first.
func sdm630() Descriptor {
	in := regmap.InputRegister
	return Descriptor{
		Model:          ModelSDM630,
		Manufacturer:   "Eastron",
		Name:           "SDM630",
		Link:           LinkRTU,
		DefaultSlaveId: 1,
		MinSlaveId:     1,
		MaxSlaveId:     254,
		Blocks: regmap.Blocks{
			{
				Name: "phases", Type: in, Address: 0, Length: 18,
				Specs: []regmap.RegisterSpec{
					float32Spec("voltageL1", in, 0, "V"),
					float32Spec("voltageL2", in, 2, "V"),
					float32Spec("voltageL3", in, 4, "V"),
					float32Spec("currentL1", in, 6, "A"),
					float32Spec("currentL2", in, 8, "A"),
					float32Spec("currentL3", in, 10, "A"),
					float32Spec("powerL1", in, 12, "W"),
					float32Spec("powerL2", in, 14, "W"),
					float32Spec("powerL3", in, 16, "W"),
				},
			},
			regmap.SingleBlock(float32Spec("totalCurrentPower", in, 52, "W")),
			{
				Name: "totals", Type: in, Address: 70, Length: 6,
				Specs: []regmap.RegisterSpec{
					float32Spec("frequency", in, 0, "Hz"),
					float32Spec("totalEnergyConsumed", in, 2, "kWh"),
					float32Spec("totalEnergyProduced", in, 4, "kWh"),
				},
			},
			{
				Name: "phaseEnergy", Type: in, Address: 346, Length: 12,
				Specs: []regmap.RegisterSpec{
					float32Spec("energyProducedL1", in, 0, "kWh"),
					float32Spec("energyProducedL2", in, 2, "kWh"),
					float32Spec("energyProducedL3", in, 4, "kWh"),
					float32Spec("energyConsumedL1", in, 6, "kWh"),
					float32Spec("energyConsumedL2", in, 8, "kWh"),
					float32Spec("energyConsumedL3", in, 10, "kWh"),
				},
			},
		},
	}
}
