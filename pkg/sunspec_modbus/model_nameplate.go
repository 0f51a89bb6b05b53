package sunspec_modbus

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

var derType = regmap.NewEnumTable("DERTyp", map[uint32]string{
	4:  "PV",
	82: "PV_STOR",
})

// Nameplate model (120): inverter ratings, read once at init.
func nameplateModel() model {
	u16, i16 := regmap.RuleUInt16, regmap.RuleInt16
	return model{
		name:     "nameplate",
		initOnly: true,
		points: []regmap.RegisterSpec{
			point("DERTyp", 2, regmap.RuleEnum16).WithEnum(derType),
			scaled("WRtg", 3, u16, "WRtg_SF", "W"),
			sunssf("WRtg_SF", 4),
			scaled("VARtg", 5, u16, "VARtg_SF", "VA"),
			sunssf("VARtg_SF", 6),
			scaled("VArRtgQ1", 7, i16, "VArRtg_SF", "var"),
			scaled("VArRtgQ2", 8, i16, "VArRtg_SF", "var"),
			scaled("VArRtgQ3", 9, i16, "VArRtg_SF", "var"),
			scaled("VArRtgQ4", 10, i16, "VArRtg_SF", "var"),
			sunssf("VArRtg_SF", 11),
			scaled("ARtg", 12, u16, "ARtg_SF", "A"),
			sunssf("ARtg_SF", 13),
			scaled("PFRtgQ1", 14, i16, "PFRtg_SF", "cos()"),
			scaled("PFRtgQ2", 15, i16, "PFRtg_SF", "cos()"),
			scaled("PFRtgQ3", 16, i16, "PFRtg_SF", "cos()"),
			scaled("PFRtgQ4", 17, i16, "PFRtg_SF", "cos()"),
			sunssf("PFRtg_SF", 18),
			scaled("WHRtg", 19, u16, "WHRtg_SF", "Wh"),
			sunssf("WHRtg_SF", 20),
			scaled("AhrRtg", 21, u16, "AhrRtg_SF", "AH"),
			sunssf("AhrRtg_SF", 22),
			scaled("MaxChaRte", 23, u16, "MaxChaRte_SF", "W"),
			sunssf("MaxChaRte_SF", 24),
			scaled("MaxDisChaRte", 25, u16, "MaxDisChaRte_SF", "W"),
			sunssf("MaxDisChaRte_SF", 26),
		},
	}
}
