package sunspec_modbus

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

// Reference point model (306): irradiance reference cell.
func refPointModel() model {
	u16 := regmap.RuleUInt16
	return model{
		name: "refpoint",
		points: []regmap.RegisterSpec{
			point("GHI", 2, u16).WithUnit("W/m2"),
			point("A", 3, u16).WithUnit("A"),
			point("V", 4, u16).WithUnit("V"),
			point("Tmp", 5, u16).WithUnit("C"),
		},
	}
}

// Mini met station model (308).
func miniMetModel() model {
	u16, i16 := regmap.RuleUInt16, regmap.RuleInt16
	return model{
		name: "minimet",
		points: []regmap.RegisterSpec{
			point("GHI", 2, u16).WithUnit("W/m2"),
			point("TmpBOM", 3, i16).WithScale(regmap.Fixed(-1)).WithUnit("C"),
			point("TmpAmb", 4, i16).WithScale(regmap.Fixed(-1)).WithUnit("C"),
			point("WndSpd", 5, u16).WithUnit("m/s"),
		},
	}
}
