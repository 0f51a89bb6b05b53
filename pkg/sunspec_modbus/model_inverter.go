package sunspec_modbus

import (
	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

const (
	InverterStatusOff          = 1
	InverterStatusSleeping     = 2
	InverterStatusStarting     = 3
	InverterStatusMPPT         = 4
	InverterStatusThrottled    = 5
	InverterStatusShuttingDown = 6
	InverterStatusFault        = 7
	InverterStatusStandby      = 8
)

var inverterStatus = regmap.NewEnumTable("St", map[uint32]string{
	InverterStatusOff:          "off",
	InverterStatusSleeping:     "sleeping",
	InverterStatusStarting:     "starting",
	InverterStatusMPPT:         "mppt_tracking",
	InverterStatusThrottled:    "throttled",
	InverterStatusShuttingDown: "shutting_down",
	InverterStatusFault:        "fault",
	InverterStatusStandby:      "standby",
})

// Inverter models (101 single phase, 102 split phase, 103 three phase),
// integer + scale factor layout.
func inverterModel() model {
	u16, i16 := regmap.RuleUInt16, regmap.RuleInt16
	return model{
		name: "inverter",
		points: []regmap.RegisterSpec{
			scaled("A", 2, u16, "A_SF", "A"),
			scaled("AphA", 3, u16, "A_SF", "A"),
			scaled("AphB", 4, u16, "A_SF", "A"),
			scaled("AphC", 5, u16, "A_SF", "A"),
			sunssf("A_SF", 6),
			scaled("PhVphA", 10, u16, "V_SF", "V"),
			scaled("PhVphB", 11, u16, "V_SF", "V"),
			scaled("PhVphC", 12, u16, "V_SF", "V"),
			sunssf("V_SF", 13),
			scaled("W", 14, i16, "W_SF", "W"),
			sunssf("W_SF", 15),
			scaled("Hz", 16, u16, "Hz_SF", "Hz"),
			sunssf("Hz_SF", 17),
			scaled("WH", 24, regmap.RuleAcc32, "WH_SF", "Wh"),
			sunssf("WH_SF", 26),
			scaled("DCW", 31, i16, "DCW_SF", "W"),
			sunssf("DCW_SF", 32),
			scaled("TmpCab", 33, i16, "Tmp_SF", "°C"),
			sunssf("Tmp_SF", 37),
			point("St", 38, regmap.RuleEnum16).WithEnum(inverterStatus),
			point("StVnd", 39, u16),
		},
	}
}
