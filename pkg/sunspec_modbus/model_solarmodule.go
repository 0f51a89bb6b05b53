package sunspec_modbus

import "github.com/berfenger/modbus2mqtt/pkg/regmap"

var (
	solarModuleStatus = regmap.NewEnumTable("Stat", map[uint32]string{
		1:  "off",
		2:  "sleeping",
		3:  "starting",
		4:  "mppt",
		5:  "throttled",
		6:  "shutting_down",
		7:  "fault",
		8:  "standby",
		9:  "test",
		10: "other",
	})
	solarModuleEvents = regmap.NewFlagTable("Evt", map[uint]string{
		0:  "GROUND_FAULT",
		1:  "INPUT_OVER_VOLTAGE",
		19: "DC_DISCONNECT",
		20: "CABINET_OPEN",
		21: "MANUAL_SHUTDOWN",
		22: "OVER_TEMP",
		23: "BLOWN_FUSE",
		24: "UNDER_TEMP",
		25: "MEMORY_LOSS",
		26: "ARC_DETECTION",
		27: "THEFT_DETECTION",
		28: "OUTPUT_OVER_CURRENT",
		29: "OUTPUT_OVER_VOLTAGE",
		30: "OUTPUT_UNDER_VOLTAGE",
		31: "TEST_FAILED",
	})
)

// Solar module model (502): module level power electronics.
func solarModuleModel() model {
	i16 := regmap.RuleInt16
	acc := regmap.RuleAcc32
	return model{
		name: "solarmodule",
		points: []regmap.RegisterSpec{
			sunssf("A_SF", 2),
			sunssf("V_SF", 3),
			sunssf("W_SF", 4),
			sunssf("Wh_SF", 5),
			point("Stat", 6, regmap.RuleEnum16).WithEnum(solarModuleStatus),
			point("StatVend", 7, regmap.RuleEnum16),
			point("Evt", 8, regmap.RuleBitfield32).WithFlags(solarModuleEvents),
			point("EvtVend", 10, regmap.RuleBitfield32),
			point("Ctl", 12, regmap.RuleEnum16),
			point("CtlVend", 13, regmap.RuleEnum32),
			point("CtlVal", 15, regmap.RuleInt32),
			point("Tms", 17, regmap.RuleUInt32).WithUnit("Secs"),
			scaled("OutA", 19, i16, "A_SF", "A"),
			scaled("OutV", 20, i16, "V_SF", "V"),
			scaled("OutWh", 21, acc, "Wh_SF", "Wh"),
			scaled("OutPw", 23, i16, "W_SF", "W"),
			point("Tmp", 24, i16).WithUnit("C"),
			scaled("InA", 25, i16, "A_SF", "A"),
			scaled("InV", 26, i16, "V_SF", "V"),
			scaled("InWh", 27, acc, "Wh_SF", "Wh"),
			scaled("InW", 29, i16, "W_SF", "W"),
		},
	}
}
