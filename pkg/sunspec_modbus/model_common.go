package sunspec_modbus

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

// Common model (1): device identification, read once at init.
func commonModel() model {
	return model{
		name:     "common",
		initOnly: true,
		points: []regmap.RegisterSpec{
			text("Mn", 2, 16),
			text("Md", 18, 16),
			text("Opt", 34, 8),
			text("Vr", 42, 8),
			text("SN", 50, 16),
			point("DA", 66, regmap.RuleUInt16),
		},
	}
}
