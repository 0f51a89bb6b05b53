package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/util/actorutil"
	"github.com/berfenger/modbus2mqtt/pkg/devices"
	"github.com/berfenger/modbus2mqtt/pkg/modbusclient"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"github.com/berfenger/modbus2mqtt/pkg/sunspec_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBusDown = errors.New("bus down")

type countingMetrics struct {
	changes chan string
}

func (m *countingMetrics) PropertyChanged(deviceId string) {
	select {
	case m.changes <- deviceId:
	default:
	}
}

func (m *countingMetrics) ModbusError(string) {}

func waitFor(t *testing.T, events <-chan any, match func(any) bool) any {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("expected event not received")
			return nil
		}
	}
}

func propertyChanged(name string) func(any) bool {
	return func(ev any) bool {
		pc, ok := ev.(domain.PropertyChangedEvent)
		return ok && pc.Property.Name == name
	}
}

func isInitialized(ev any) bool {
	_, ok := ev.(domain.DeviceInitializedEvent)
	return ok
}

func spawnDevice(t *testing.T, model devices.Model, transport regmap.Transport) (*actor.ActorSystem, *actor.PID, <-chan any, *regmap.Arena) {
	t.Helper()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)

	events := make(chan any, 512)
	as.EventStream.Subscribe(func(evt any) {
		switch evt.(type) {
		case domain.PropertyChangedEvent, domain.DeviceInitializedEvent:
			events <- evt
		}
	})

	desc, err := devices.Describe(model)
	require.NoError(t, err)
	arena := regmap.NewArena()
	metrics := &countingMetrics{changes: make(chan string, 1)}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(DeviceActorConfig{Id: "dev", Slave: 1, Descriptor: desc}, transport, arena, metrics, logger)
	})
	pid := as.Root.Spawn(props)
	return as, pid, events, arena
}

func TestDeviceActorPollAndRead(t *testing.T) {

	require := require.New(t)

	memory := modbusclient.NewMemoryTransport()
	memory.Set(1, regmap.InputRegister, 1, 215)
	memory.Set(1, regmap.InputRegister, 37, 1)

	as, pid, events, arena := spawnDevice(t, devices.ModelAlphaConnect, memory)
	defer as.Shutdown()

	init := waitFor(t, events, isInitialized).(domain.DeviceInitializedEvent)
	require.True(init.Device.Initialized)
	require.Equal("alpha_connect", init.Device.Model)
	require.Equal(1, arena.Len())
	require.True(memory.IsOpen())

	as.Root.Send(pid, domain.PollTick{})
	flow := waitFor(t, events, propertyChanged("flowTemperature")).(domain.PropertyChangedEvent)
	require.Equal("dev", flow.DeviceId)
	require.Equal(21.5, flow.Value.Float)
	status := waitFor(t, events, propertyChanged("systemStatus")).(domain.PropertyChangedEvent)
	require.Equal("hot water", status.Value.Enum.Name)

	result, err := as.Root.RequestFuture(pid, domain.GetDeviceValuesRequest{DeviceId: "dev"}, 2*time.Second).Result()
	require.NoError(err)
	values := result.(domain.GetDeviceValuesResponse)
	require.Equal(21.5, values.Values["flowTemperature"].Float)

	health, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(err)
	require.True(health.(domain.ActorHealthResponse).Healthy)

	as.Root.Stop(pid)
	require.Eventually(func() bool { return arena.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.False(memory.IsOpen())
}

func TestDeviceActorWrite(t *testing.T) {

	require := require.New(t)

	memory := modbusclient.NewMemoryTransport()
	as, pid, events, _ := spawnDevice(t, devices.ModelAlphaConnect, memory)
	defer as.Shutdown()
	waitFor(t, events, isInitialized)

	result, err := as.Root.RequestFuture(pid, domain.WritePropertyRequest{
		DeviceId: "dev",
		Property: "hotWaterSetpointTemperature",
		Value:    48.5,
	}, 4*time.Second).Result()
	require.NoError(err)
	resp := result.(domain.WritePropertyResponse)
	require.NoError(resp.ResponseError)
	require.Equal([]uint16{485}, memory.Get(1, regmap.HoldingRegister, 5, 1))

	// written block is read back
	setpoint := waitFor(t, events, propertyChanged("hotWaterSetpointTemperature")).(domain.PropertyChangedEvent)
	require.Equal(48.5, setpoint.Value.Float)
	require.True(setpoint.Property.Writable)

	result, err = as.Root.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: "dev", Property: "flowTemperature", Value: 1}, 2*time.Second).Result()
	require.NoError(err)
	require.ErrorIs(result.(domain.WritePropertyResponse).ResponseError, regmap.ErrNotWritable)

	result, err = as.Root.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: "dev", Property: "smartGrid", Value: 3}, 4*time.Second).Result()
	require.NoError(err)
	require.NoError(result.(domain.WritePropertyResponse).ResponseError)
	sg := waitFor(t, events, propertyChanged("smartGrid")).(domain.PropertyChangedEvent)
	require.Equal("high", sg.Value.Enum.Name)

	as.Root.Stop(pid)
}

func TestDeviceActorTransportErrorKeepsCache(t *testing.T) {

	assert := assert.New(t)

	memory := modbusclient.NewMemoryTransport()
	memory.Set(1, regmap.InputRegister, 1, 200)
	as, pid, events, _ := spawnDevice(t, devices.ModelAlphaConnect, memory)
	defer as.Shutdown()
	waitFor(t, events, isInitialized)

	as.Root.Send(pid, domain.PollTick{})
	waitFor(t, events, propertyChanged("flowTemperature"))

	memory.FailWith(errBusDown)
	memory.Set(1, regmap.InputRegister, 1, 300)
	as.Root.Send(pid, domain.PollTick{})

	result, err := as.Root.RequestFuture(pid, domain.GetDeviceValuesRequest{DeviceId: "dev"}, 4*time.Second).Result()
	assert.NoError(err)
	assert.Equal(20.0, result.(domain.GetDeviceValuesResponse).Values["flowTemperature"].Float)

	as.Root.Stop(pid)
}

func TestDeviceActorSunSpecSurvey(t *testing.T) {

	require := require.New(t)

	memory := modbusclient.NewMemoryTransport()
	sunspec_modbus.Simulate(memory, 1)

	as, pid, events, _ := spawnDevice(t, devices.ModelSunSpec, memory)
	defer as.Shutdown()

	init := waitFor(t, events, isInitialized).(domain.DeviceInitializedEvent)
	require.Equal("SIM0001", init.Device.Serial)
	require.Equal("modbus2mqtt", init.Device.Manufacturer)
	require.Equal("1.0.0", init.Device.Version)
	_, ok := init.Device.Property("inverter_W")
	require.True(ok)

	as.Root.Send(pid, domain.PollTick{})
	w := waitFor(t, events, propertyChanged("inverter_W")).(domain.PropertyChangedEvent)
	require.Equal(3200.0, w.Value.Float)

	as.Root.Stop(pid)
}
