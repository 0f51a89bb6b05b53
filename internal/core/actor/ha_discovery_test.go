package actor

import (
	"encoding/json"
	"testing"
	"time"

	adactor "github.com/berfenger/modbus2mqtt/internal/adapter/actor"
	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHADiscoveryActor(t *testing.T) {

	require := require.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.NewNop()
	as := actor.NewActorSystem()
	defer as.Shutdown()

	published := make(chan adactor.TestPublished, 64)
	mqttPID := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewTestMQTTActor(&cfg, published, logger)
	}))
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&cfg, mqttPID, logger)
	}))

	// requests sent before MQTT is ready are stashed
	as.Root.Send(pid, domain.DeviceDiscoveryRequest{Device: domain.DeviceInfo{
		Id:           "meter",
		Model:        "sdm630",
		Manufacturer: "Eastron",
		Serial:       "1234",
		Initialized:  true,
		Properties: []domain.PropertyInfo{
			{Name: "totalPower", Kind: domain.PROPERTY_KIND_NUMBER, Unit: "W", Decimals: 1},
			{Name: "relay", Kind: domain.PROPERTY_KIND_SWITCH, Writable: true},
		},
	}})

	got := make(map[string]string)
	timeout := time.After(5 * time.Second)
	for len(got) < 4 {
		select {
		case msg := <-published:
			require.True(msg.Retain, msg.Topic)
			got[msg.Topic] = msg.Payload
		case <-timeout:
			t.Fatalf("missing discovery messages, got %v", got)
		}
	}

	bridge := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	require.Contains(got, "homeassistant/binary_sensor/"+bridge.Id+"/"+domain.SENSOR_ID_BRIDGE_STATE+"/config")
	require.Equal("online", got["modbus2mqtt/bridge/state"])

	device := domain.ModbusDevice(domain.DeviceInfo{Id: "meter", Serial: "1234"}, bridge.Id)
	power, ok := got["homeassistant/sensor/"+device.Id+"/meter_totalpower/config"]
	require.True(ok)
	var cfgMsg map[string]any
	require.NoError(json.Unmarshal([]byte(power), &cfgMsg))
	assert.Equal(t, "W", cfgMsg["unit_of_measurement"])
	assert.Contains(t, got, "homeassistant/switch/"+device.Id+"/meter_relay/config")
}
