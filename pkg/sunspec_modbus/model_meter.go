package sunspec_modbus

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

// Meter models (201..204), integer + scale factor layout.
func meterModel() model {
	u16, i16 := regmap.RuleUInt16, regmap.RuleInt16
	return model{
		name: "meter",
		points: []regmap.RegisterSpec{
			scaled("A", 2, i16, "A_SF", "A"),
			scaled("AphA", 3, i16, "A_SF", "A"),
			scaled("AphB", 4, i16, "A_SF", "A"),
			scaled("AphC", 5, i16, "A_SF", "A"),
			sunssf("A_SF", 6),
			scaled("PhV", 7, u16, "V_SF", "V"),
			scaled("PhVphA", 8, u16, "V_SF", "V"),
			scaled("PhVphB", 9, u16, "V_SF", "V"),
			scaled("PhVphC", 10, u16, "V_SF", "V"),
			sunssf("V_SF", 15),
			scaled("Hz", 16, i16, "Hz_SF", "Hz"),
			sunssf("Hz_SF", 17),
			scaled("W", 18, i16, "W_SF", "W"),
			scaled("WphA", 19, i16, "W_SF", "W"),
			scaled("WphB", 20, i16, "W_SF", "W"),
			scaled("WphC", 21, i16, "W_SF", "W"),
			sunssf("W_SF", 22),
			scaled("TotWhExp", 38, regmap.RuleAcc32, "TotWh_SF", "Wh"),
			scaled("TotWhImp", 46, regmap.RuleAcc32, "TotWh_SF", "Wh"),
			sunssf("TotWh_SF", 54),
		},
	}
}
