package devices

import (
	"context"
	"testing"

	"github.com/berfenger/modbus2mqtt/pkg/modbusclient"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDescribeAllModels(t *testing.T) {

	assert := assert.New(t)

	for _, m := range Models() {
		d, err := Describe(m)
		assert.NoError(err, m.String())
		assert.Equal(m, d.Model)
		assert.NoError(d.Blocks.Validate(), m.String())
		if !d.Survey {
			assert.NotEmpty(d.Blocks, m.String())
		}
	}

	_, err := Describe(ModelUnknown)
	assert.ErrorIs(err, ErrUnknownModel)
	_, err = Describe(Model(200))
	assert.ErrorIs(err, ErrUnknownModel)
}

func TestParseModel(t *testing.T) {

	assert := assert.New(t)

	m, err := ParseModel(" SDM630 ")
	assert.NoError(err)
	assert.Equal(ModelSDM630, m)

	m, err = ParseModel("huawei_fusionsolar")
	assert.NoError(err)
	assert.Equal(ModelHuaweiFusionSolar, m)

	_, err = ParseModel("sdm72")
	assert.ErrorIs(err, ErrUnknownModel)
	assert.Equal("unknown(42)", Model(42).String())
}

func absolute(t *testing.T, d Descriptor, name string) (regmap.RegisterSpec, uint16) {
	b, spec, ok := d.Blocks.Find(name)
	require.True(t, ok, name)
	return spec, b.AbsoluteAddress(spec)
}

func TestSDM630Addresses(t *testing.T) {

	assert := assert.New(t)

	d, _ := Describe(ModelSDM630)
	for name, addr := range map[string]uint16{
		"voltageL1": 0, "voltageL3": 4, "currentL1": 6, "powerL1": 12, "powerL3": 16,
		"totalCurrentPower": 52, "frequency": 70, "totalEnergyConsumed": 72, "totalEnergyProduced": 74,
		"energyProducedL1": 346, "energyConsumedL3": 356,
	} {
		spec, got := absolute(t, d, name)
		assert.Equal(addr, got, name)
		assert.Equal(regmap.InputRegister, spec.Type)
		assert.Equal(regmap.RuleFloat32, spec.Rule)
	}
	assert.Equal(LinkRTU, d.Link)
}

func TestPRO380Addresses(t *testing.T) {

	assert := assert.New(t)

	d, _ := Describe(ModelPRO380)
	for name, addr := range map[string]uint16{
		"voltageL1": 20482, "frequency": 20488, "currentL1": 20492, "totalCurrentPower": 20498,
		"powerL3": 20504, "totalEnergyConsumed": 24588, "energyConsumedL1": 24594,
		"totalEnergyProduced": 24600, "energyProducedL3": 24610,
	} {
		spec, got := absolute(t, d, name)
		assert.Equal(addr, got, name)
		assert.Equal(regmap.HoldingRegister, spec.Type)
	}
}

func TestRTUMeterSlaveRange(t *testing.T) {

	assert := assert.New(t)

	d, _ := Describe(ModelSDM630)
	assert.NoError(d.CheckSlaveId(1))
	assert.NoError(d.CheckSlaveId(254))
	assert.ErrorIs(d.CheckSlaveId(0), ErrInvalidSlaveAddress)
	assert.ErrorIs(d.CheckSlaveId(255), ErrInvalidSlaveAddress)
}

func TestHuaweiDecode(t *testing.T) {

	assert := assert.New(t)

	d, _ := Describe(ModelHuaweiFusionSolar)

	b, ok := d.Blocks.Block("grid")
	require.True(t, ok)
	readings := b.Decode([]uint16{2305, 2311, 2298, 0, 1520, 0xFFFF, 0xFF9C, 0, 0})
	values := map[string]regmap.Value{}
	for _, r := range readings {
		values[r.Spec.Name] = r.Value
	}
	assert.InDelta(230.5, values["inverterVoltagePhaseA"].Float, 1e-9)
	assert.InDelta(1.52, values["inverterPhaseACurrent"].Float, 1e-9)
	assert.InDelta(-0.1, values["inverterPhaseBCurrent"].Float, 1e-9)

	spec, addr := absolute(t, d, "inverterDeviceStatus")
	assert.Equal(uint16(32089), addr)
	status := regmap.Decode(spec, []uint16{0x0200})
	assert.Equal("On-grid", status.Enum.Name)
	assert.False(regmap.Decode(spec, []uint16{0x0999}).Enum.Known)

	spec, _ = absolute(t, d, "inverterGridFrequency")
	assert.InDelta(50.01, regmap.Decode(spec, []uint16{5001}).Float, 1e-9)

	_, addr = absolute(t, d, "powerMeterActivePower")
	assert.Equal(uint16(37113), addr)
	assert.Empty(d.Writable())
}

func TestTCPUnitZeroIsPolled(t *testing.T) {

	assert := assert.New(t)

	d, _ := Describe(ModelHuaweiFusionSolar)
	assert.NoError(d.CheckSlaveId(0))

	m := modbusclient.NewMemoryTransport()
	m.Set(0, regmap.HoldingRegister, 32085, 5001)
	conn := regmap.NewConnection(regmap.TCPUnit(0), d.Blocks, nil, zap.NewNop())
	b, _, ok := d.Blocks.Find("inverterGridFrequency")
	require.True(t, ok)

	res := regmap.ReadBlock(context.Background(), m, conn.Unit(), b)
	assert.False(res.Broadcast)
	assert.Equal(1, m.Reads())
	assert.Positive(conn.Complete(conn.NewRequest(b.Name), res))
	v, ok := conn.Value("inverterGridFrequency")
	assert.True(ok)
	assert.InDelta(50.01, v.Float, 1e-9)

	serial := regmap.NewConnection(regmap.SerialUnit(0), d.Blocks, nil, zap.NewNop())
	res = regmap.ReadBlock(context.Background(), m, serial.Unit(), b)
	assert.True(res.Broadcast)
	assert.Equal(1, m.Reads(), "serial broadcasts are not read")
	assert.Zero(serial.Complete(serial.NewRequest(b.Name), res))
}

func TestAlphaConnectWritable(t *testing.T) {

	assert := assert.New(t)

	d, _ := Describe(ModelAlphaConnect)

	names := []string{}
	for _, s := range d.Writable() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch([]string{"outdoorTemperature", "returnSetpointTemperature", "hotWaterSetpointTemperature", "smartGrid"}, names)

	spec, addr := absolute(t, d, "hotWaterSetpointTemperature")
	assert.Equal(uint16(5), addr)
	words, err := regmap.Encode(spec, 48.5)
	assert.NoError(err)
	assert.Equal([]uint16{485}, words)

	_, addr = absolute(t, d, "rbeRoomSetpointTemperature")
	assert.Equal(uint16(25), addr)
	spec, addr = absolute(t, d, "totalHeatEnergy")
	assert.Equal(uint16(44), addr)
	assert.Equal(regmap.RuleUInt32, spec.Rule)

	spec, _ = absolute(t, d, "systemStatus")
	assert.Equal("cooling", regmap.Decode(spec, []uint16{7}).Enum.Name)
}
