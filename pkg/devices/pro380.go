package devices

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

// inepro PRO380 three phase meter, float32 holding registers.
func pro380() Descriptor {
	h := regmap.HoldingRegister
	return Descriptor{
		Model:          ModelPRO380,
		Manufacturer:   "inepro",
		Name:           "PRO380",
		Link:           LinkRTU,
		DefaultSlaveId: 1,
		MinSlaveId:     1,
		MaxSlaveId:     254,
		Blocks: regmap.Blocks{
			{
				Name: "instant", Type: h, Address: 20482, Length: 24,
				Specs: []regmap.RegisterSpec{
					float32Spec("voltageL1", h, 0, "V"),
					float32Spec("voltageL2", h, 2, "V"),
					float32Spec("voltageL3", h, 4, "V"),
					float32Spec("frequency", h, 6, "Hz"),
					float32Spec("currentL1", h, 10, "A"),
					float32Spec("currentL2", h, 12, "A"),
					float32Spec("currentL3", h, 14, "A"),
					float32Spec("totalCurrentPower", h, 16, "kW"),
					float32Spec("powerL1", h, 18, "kW"),
					float32Spec("powerL2", h, 20, "kW"),
					float32Spec("powerL3", h, 22, "kW"),
				},
			},
			{
				Name: "energy", Type: h, Address: 24588, Length: 24,
				Specs: []regmap.RegisterSpec{
					float32Spec("totalEnergyConsumed", h, 0, "kWh"),
					float32Spec("energyConsumedL1", h, 6, "kWh"),
					float32Spec("energyConsumedL2", h, 8, "kWh"),
					float32Spec("energyConsumedL3", h, 10, "kWh"),
					float32Spec("totalEnergyProduced", h, 12, "kWh"),
					float32Spec("energyProducedL1", h, 18, "kWh"),
					float32Spec("energyProducedL2", h, 20, "kWh"),
					float32Spec("energyProducedL3", h, 22, "kWh"),
				},
			},
		},
	}
}
