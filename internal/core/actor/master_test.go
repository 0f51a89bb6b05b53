package actor

import (
	"strings"
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/modbus2mqtt/internal/adapter/actor"
	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/core/service"
	"github.com/berfenger/modbus2mqtt/internal/mqtt"
	"github.com/berfenger/modbus2mqtt/internal/util"
	"github.com/berfenger/modbus2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopMetrics struct{}

func (nopMetrics) PropertyChanged(string) {}

func (nopMetrics) ModbusError(string) {}

// topics records every message the test MQTT actor renders.
type topics struct {
	mu       sync.Mutex
	payloads map[string]string
}

func (tp *topics) collect(published <-chan adactor.TestPublished) {
	for msg := range published {
		tp.mu.Lock()
		tp.payloads[msg.Topic] = msg.Payload
		tp.mu.Unlock()
	}
}

func (tp *topics) has(match func(topic string) bool) bool {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	for topic := range tp.payloads {
		if match(topic) {
			return true
		}
	}
	return false
}

func TestMasterActor(t *testing.T) {

	require := require.New(t)

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	published := make(chan adactor.TestPublished, 64)
	seen := &topics{payloads: make(map[string]string)}
	go seen.collect(published)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, SimulatorTransports(), func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, published, logger)
		}, service.NewCommandLogic(logger), nopMetrics{}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(err)

	require.Eventually(func() bool {
		res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
		if err != nil {
			return false
		}
		health, ok := res.(domain.ActorHealthResponse)
		return ok && health.Healthy
	}, 10*time.Second, 200*time.Millisecond, "all children become healthy")

	res, err := context.RequestFuture(pid, domain.GetDevicesRequest{}, 2*time.Second).Result()
	require.NoError(err)
	devices := res.(domain.GetDevicesResponse).Devices
	require.Len(devices, 2)
	require.Equal("pv", devices[0].Id)
	require.Equal("SIM0001", devices[0].Serial)
	require.True(devices[1].Initialized)

	// scheduled polls reach MQTT
	require.Eventually(func() bool {
		return seen.has(func(topic string) bool { return topic == "modbus2mqtt/sensor/pv_inverter_w/state" })
	}, 5*time.Second, 50*time.Millisecond)

	// devices are announced to Home Assistant
	require.Eventually(func() bool {
		return seen.has(func(topic string) bool {
			return strings.HasPrefix(topic, "homeassistant/select/") && strings.HasSuffix(topic, "/heatpump_smartgrid/config")
		})
	}, 5*time.Second, 50*time.Millisecond)
	assert.True(t, seen.has(func(topic string) bool { return topic == "modbus2mqtt/bridge/state" }))

	// MQTT command is written to the device and read back
	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: "heatpump_hotwatersetpointtemperature",
		Command:  "number",
		Payload:  "48.5",
	}})
	require.Eventually(func() bool {
		res, err := context.RequestFuture(pid, domain.GetDeviceValuesRequest{DeviceId: "heatpump"}, 2*time.Second).Result()
		if err != nil {
			return false
		}
		return res.(domain.GetDeviceValuesResponse).Values["hotWaterSetpointTemperature"].Float == 48.5
	}, 5*time.Second, 50*time.Millisecond)

	res, err = context.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: "nope", Property: "x", Value: 1}, 2*time.Second).Result()
	require.NoError(err)
	require.ErrorIs(res.(domain.WritePropertyResponse).GetResponseError(), domain.ErrUnknownDevice)

	res, err = context.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: "heatpump", Property: "flowTemperature", Value: 1}, 2*time.Second).Result()
	require.NoError(err)
	require.Error(res.(domain.WritePropertyResponse).GetResponseError())

	context.Stop(pid)
	as.Shutdown()
}
