package actor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/neuron"
	"github.com/berfenger/modbus2mqtt/internal/util/actorutil"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeSysfs(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNeuronActor(t *testing.T) {

	require := require.New(t)

	base := filepath.Join(t.TempDir(), "unipi-plc", "by-sys")
	writeSysfs(t, filepath.Join(base, "RO1.1", "value"), "0")
	writeSysfs(t, filepath.Join(base, "DI1.1", "value"), "1")
	writeSysfs(t, filepath.Join(base, "AI1.1", "in_voltage_raw"), "1250")
	writeSysfs(t, filepath.Join(base, "AO1.1", "out_voltage_raw"), "0")

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	events := make(chan any, 512)
	as.EventStream.Subscribe(func(evt any) {
		switch evt.(type) {
		case domain.PropertyChangedEvent, domain.DeviceInitializedEvent:
			events <- evt
		}
	})

	opts := neuron.Options{BaseDir: base, PollInterval: 5 * time.Millisecond}
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewNeuronActor(opts, logger)
	}))

	init := waitFor(t, events, isInitialized).(domain.DeviceInitializedEvent)
	require.Equal(NEURON_DEVICE_ID, init.Device.Id)
	relay, ok := init.Device.Property("neuron_ro_1_1")
	require.True(ok)
	require.Equal(domain.PROPERTY_KIND_SWITCH, relay.Kind)
	require.True(relay.Writable)
	input, ok := init.Device.Property("neuron_di_1_1")
	require.True(ok)
	require.Equal(domain.PROPERTY_KIND_BINARY, input.Kind)

	di := waitFor(t, events, propertyChanged("neuron_di_1_1")).(domain.PropertyChangedEvent)
	require.Equal(regmap.BoolValue(true), di.Value)
	ai := waitFor(t, events, propertyChanged("neuron_ai_1_1")).(domain.PropertyChangedEvent)
	require.Equal(1.25, ai.Value.Float)

	result, err := as.Root.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: NEURON_DEVICE_ID, Property: "neuron_ro_1_1", Value: 1}, 2*time.Second).Result()
	require.NoError(err)
	require.NoError(result.(domain.WritePropertyResponse).GetResponseError())
	ro := waitFor(t, events, propertyChanged("neuron_ro_1_1")).(domain.PropertyChangedEvent)
	if !ro.Value.Bool {
		// first poll may report the initial state before the write lands
		ro = waitFor(t, events, propertyChanged("neuron_ro_1_1")).(domain.PropertyChangedEvent)
	}
	require.True(ro.Value.Bool)

	result, err = as.Root.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: NEURON_DEVICE_ID, Property: "neuron_ao_1_1", Value: 4.5}, 2*time.Second).Result()
	require.NoError(err)
	require.NoError(result.(domain.WritePropertyResponse).GetResponseError())
	ao := waitFor(t, events, propertyChanged("neuron_ao_1_1")).(domain.PropertyChangedEvent)
	require.Equal(4.5, ao.Value.Float)

	result, err = as.Root.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: NEURON_DEVICE_ID, Property: "neuron_ao_1_1", Value: 12}, 2*time.Second).Result()
	require.NoError(err)
	require.ErrorIs(result.(domain.WritePropertyResponse).GetResponseError(), regmap.ErrOutOfRange)

	result, err = as.Root.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: NEURON_DEVICE_ID, Property: "neuron_di_1_1", Value: 1}, 2*time.Second).Result()
	require.NoError(err)
	require.ErrorIs(result.(domain.WritePropertyResponse).GetResponseError(), domain.ErrWriteRejected)

	result, err = as.Root.RequestFuture(pid, domain.WritePropertyRequest{DeviceId: NEURON_DEVICE_ID, Property: "flowTemperature", Value: 1}, 2*time.Second).Result()
	require.NoError(err)
	require.ErrorIs(result.(domain.WritePropertyResponse).GetResponseError(), regmap.ErrUnknownProperty)

	values, err := as.Root.RequestFuture(pid, domain.GetDeviceValuesRequest{DeviceId: NEURON_DEVICE_ID}, 2*time.Second).Result()
	require.NoError(err)
	require.Equal(1.25, values.(domain.GetDeviceValuesResponse).Values["neuron_ai_1_1"].Float)
}
