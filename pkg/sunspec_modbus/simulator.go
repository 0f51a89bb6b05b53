package sunspec_modbus

import (
	"github.com/berfenger/modbus2mqtt/pkg/modbusclient"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

const (
	simCommonAddr   = SUNSPEC_BASE_ADDRESS + 2
	simInverterAddr = simCommonAddr + 66 + 2
	simMeterAddr    = simInverterAddr + 50 + 2
	simEndAddr      = simMeterAddr + 105 + 2
)

// Simulate lays out a SunSpec device (common, three phase inverter, three
// phase meter) in the register space of slave on m.
func Simulate(m *modbusclient.MemoryTransport, slave uint8) {
	h := regmap.HoldingRegister
	sf := func(v int16) uint16 { return uint16(v) }

	m.Set(slave, h, SUNSPEC_BASE_ADDRESS, regmap.EncodeString("SunS", 2)...)

	// common
	m.Set(slave, h, simCommonAddr, SUNSPEC_WK_COMMON, 66)
	m.Set(slave, h, simCommonAddr+2, regmap.EncodeString("modbus2mqtt", 16)...)
	m.Set(slave, h, simCommonAddr+18, regmap.EncodeString("Simulated Inverter", 16)...)
	m.Set(slave, h, simCommonAddr+42, regmap.EncodeString("1.0.0", 8)...)
	m.Set(slave, h, simCommonAddr+50, regmap.EncodeString("SIM0001", 16)...)
	m.Set(slave, h, simCommonAddr+66, uint16(slave))

	// inverter, three phase
	m.Set(slave, h, simInverterAddr, SUNSPEC_WK_INVERTERS_MAX, 50)
	m.Set(slave, h, simInverterAddr+2, 138, 46, 46, 46, sf(-1))
	m.Set(slave, h, simInverterAddr+10, 2305, 2311, 2298, sf(-1))
	m.Set(slave, h, simInverterAddr+14, 3200, 0, 5002, sf(-2))
	m.Set(slave, h, simInverterAddr+24, regmap.EncodeUInt32(12345678, regmap.HighWordFirst)...)
	m.Set(slave, h, simInverterAddr+26, 0)
	m.Set(slave, h, simInverterAddr+31, 3350, 0, 417)
	m.Set(slave, h, simInverterAddr+37, sf(-1), InverterStatusMPPT, 0)

	// meter, three phase wye
	m.Set(slave, h, simMeterAddr, 203, 105)
	m.Set(slave, h, simMeterAddr+2, sf(-54), 0xFFEE, 0xFFEE, 0xFFEE, sf(-1))
	m.Set(slave, h, simMeterAddr+7, 2304, 2305, 2310, 2297)
	m.Set(slave, h, simMeterAddr+15, sf(-1), 5001, sf(-2))
	m.Set(slave, h, simMeterAddr+18, sf(-1250), sf(-420), sf(-410), sf(-420), 0)
	m.Set(slave, h, simMeterAddr+38, regmap.EncodeUInt32(2770340, regmap.HighWordFirst)...)
	m.Set(slave, h, simMeterAddr+46, regmap.EncodeUInt32(550220, regmap.HighWordFirst)...)
	m.Set(slave, h, simMeterAddr+54, 0)

	m.Set(slave, h, simEndAddr, SUNSPEC_END_MODEL, 0)
}
