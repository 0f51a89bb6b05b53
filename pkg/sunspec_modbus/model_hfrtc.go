package sunspec_modbus

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

var hfrtcModEna = regmap.NewFlagTable("ModEna", map[uint]string{0: "enabled"})

// HFRTC model (142): high frequency ride through control header. The
// curve points that follow are not mapped.
func hfrtcModel() model {
	u16 := regmap.RuleUInt16
	return model{
		name: "hfrtc",
		points: []regmap.RegisterSpec{
			point("ActCrv", 2, u16).AsWritable(),
			point("ModEna", 3, regmap.RuleBitfield16).WithFlags(hfrtcModEna).AsWritable(),
			point("WinTms", 4, u16).WithUnit("Secs").AsWritable(),
			point("RvrtTms", 5, u16).WithUnit("Secs").AsWritable(),
			point("RmpTms", 6, u16).WithUnit("Secs").AsWritable(),
			point("NCrv", 7, u16),
			point("NPt", 8, u16),
			sunssf("Tms_SF", 9),
			sunssf("Hz_SF", 10),
		},
	}
}
