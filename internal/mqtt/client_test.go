package mqtt

import (
	"testing"

	"github.com/berfenger/modbus2mqtt/internal/config"
	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/command"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "my_device", "device extract")
}

func TestSwitchCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/my_device/state"
	r := switchCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/number_name/set"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "number_name", "number_id extract")
}

func TestInputNumberCommandParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/number_name/command"
	r := inputNumberCommandExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(len(matches), 0, "no matches")
}

type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

func testClient() *MQTTClient {
	cfg := &config.Config{MQTT: config.MQTTConfig{Host: "localhost", Port: 1883, BaseTopic: "modbus2mqtt"}}
	return CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
}

func TestParseMQTTCommand(t *testing.T) {

	require := require.New(t)

	client := testClient()

	cmd, err := client.ParseMQTTCommand(fakeMessage{"modbus2mqtt/select/heatpump_smartgrid/set", "high"})
	require.NoError(err)
	require.Equal("select", cmd.Command)
	require.Equal("heatpump_smartgrid", cmd.DeviceId)
	require.Equal("high", cmd.Payload)

	cmd, err = client.ParseMQTTCommand(fakeMessage{"modbus2mqtt/number/heatpump_hotwatersetpointtemperature/set", "48.5"})
	require.NoError(err)
	require.Equal("number", cmd.Command)

	cmd, err = client.ParseMQTTCommand(fakeMessage{"modbus2mqtt/switch/neuron_neuron_ro_1_2/command", "on"})
	require.NoError(err)
	require.Equal("switch", cmd.Command)

	_, err = client.ParseMQTTCommand(fakeMessage{"modbus2mqtt/number/heatpump_x/set", "warm"})
	require.Error(err)

	_, err = client.ParseMQTTCommand(fakeMessage{"modbus2mqtt/sensor/meter_w/state", "12"})
	require.Error(err)
}

func TestHADiscoveryTopics(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	dev := domain.Device{Id: "m2m_heatpump_abc"}
	sel := domain.GenericSelect{Device: dev, Id: "heatpump_smartgrid", Name: "Smart Grid", Options: []string{"off", "high"}}

	assert.Equal("homeassistant/select/m2m_heatpump_abc/heatpump_smartgrid/config", HADiscoverySelectTopic(client, sel))

	msg := GenericSelectToHADiscoveryMessage(client, sel)
	assert.Equal("modbus2mqtt/select/heatpump_smartgrid/state", msg.StateTopic)
	assert.Equal("modbus2mqtt/select/heatpump_smartgrid/set", msg.CommandTopic)
	assert.Equal("modbus2mqtt/bridge/state", msg.AvTopic)
	assert.Equal([]string{"off", "high"}, msg.Options)

	client.cfg.HADiscoveryTopic = "ha"
	sensor := domain.GenericSensor{Device: dev, Id: "heatpump_running", SensorType: domain.SENSOR_TYPE_BINARY}
	assert.Equal("ha/binary_sensor/m2m_heatpump_abc/heatpump_running/config", HADiscoverySensorTopic(client, sensor))

	binary := GenericSensorToHADiscoveryMessage(client, sensor)
	assert.Equal(MQTT_PAYLOAD_ON, binary.PayloadOn)
	assert.Equal("modbus2mqtt/binary_sensor/heatpump_running/state", binary.StateTopic)
}
