package actor

import (
	"fmt"
	"sort"

	"github.com/berfenger/modbus2mqtt/internal/config"
	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/neuron"
	"github.com/berfenger/modbus2mqtt/internal/util/actorutil"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	NEURON_DEVICE_ID    = config.NeuronDeviceId
	NEURON_MAX_AO_VOLTS = 10
)

// NeuronActor exposes the circuits of a UniPi Neuron as the properties of
// one device. The poll loop runs on its own goroutine and reports changes
// as messages.
type NeuronActor struct {
	opts   neuron.Options
	neuron *neuron.Neuron
	info   domain.DeviceInfo
	events *eventstream.EventStream
	logger *zap.Logger
}

type circuitChanged struct {
	change neuron.Change
}

func NewNeuronActor(opts neuron.Options, logger *zap.Logger) *NeuronActor {
	return &NeuronActor{
		opts:   opts,
		logger: actorutil.ActorLogger(domain.ACTOR_ID_NEURON, logger),
	}
}

func (state *NeuronActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("neuron@default started")
		state.events = ctx.ActorSystem().EventStream
		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.neuron = neuron.New(state.opts, func(ch neuron.Change) {
			root.Send(self, circuitChanged{change: ch})
		}, state.logger)
		if err := state.neuron.Init(); err != nil {
			state.logger.Error("neuron init failed", zap.Error(err))
			panic(err)
		}
		state.info = domain.DeviceInfo{
			Id:           NEURON_DEVICE_ID,
			Name:         "UniPi Neuron",
			Model:        "neuron",
			Manufacturer: "UniPi",
			Initialized:  true,
			Properties:   circuitProperties(state.neuron.Circuits()),
		}
		state.events.Publish(domain.DeviceInitializedEvent{Device: state.info})
		if err := state.neuron.Start(); err != nil {
			panic(err)
		}
	case circuitChanged:
		info, _ := state.info.Property(msg.change.Circuit.ID())
		state.events.Publish(domain.PropertyChangedEvent{
			DeviceId: NEURON_DEVICE_ID,
			Property: info,
			Value:    circuitValue(msg.change.Circuit, msg.change.Value),
		})
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_NEURON,
			Healthy: state.neuron != nil,
			State:   DEVICE_STATE_POLLING,
		})
	case domain.GetDeviceInfoRequest:
		actorutil.ForRequest(msg).Respond(ctx, domain.GetDeviceInfoResponse{Device: state.info})
	case domain.GetDeviceValuesRequest:
		values := make(map[string]regmap.Value)
		for c, v := range state.neuron.Values() {
			values[c.ID()] = circuitValue(c, v)
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.GetDeviceValuesResponse{Device: state.info, Values: values})
	case domain.WritePropertyRequest:
		state.logger.Debug("neuron@default: WritePropertyRequest", zap.String("property", msg.Property), zap.Float64("value", msg.Value))
		actorutil.ForRequest(msg).Respond(ctx, domain.WritePropertyResponse{
			ActorResponseMixIn: domain.ResponseError(state.write(msg.Property, msg.Value)),
			DeviceId:           NEURON_DEVICE_ID,
			Property:           msg.Property,
		})
	case *actor.Stopping, *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("neuron@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *NeuronActor) write(property string, value float64) error {
	c, err := neuron.ParseCircuitID(property)
	if err != nil {
		return fmt.Errorf("%w: %s", regmap.ErrUnknownProperty, property)
	}
	if c.Class == neuron.AnalogOutput && (value < 0 || value > NEURON_MAX_AO_VOLTS) {
		return fmt.Errorf("%w: %v V", regmap.ErrOutOfRange, value)
	}
	if !state.neuron.Set(c, value) {
		return fmt.Errorf("%w: %s", domain.ErrWriteRejected, c)
	}
	return nil
}

func (state *NeuronActor) close() {
	if state.neuron == nil {
		return
	}
	if err := state.neuron.Close(); err != nil {
		state.logger.Warn("neuron close failed", zap.Error(err))
	}
	state.neuron = nil
}

func circuitValue(c neuron.Circuit, value float64) regmap.Value {
	if c.Class.Analog() {
		return regmap.FloatValue(value)
	}
	return regmap.BoolValue(value != 0)
}

func circuitProperties(circuits []neuron.Circuit) []domain.PropertyInfo {
	props := make([]domain.PropertyInfo, 0, len(circuits))
	for _, c := range circuits {
		info := domain.PropertyInfo{Name: c.ID()}
		switch c.Class {
		case neuron.DigitalInput:
			info.Kind = domain.PROPERTY_KIND_BINARY
		case neuron.RelayOutput, neuron.DigitalOutput, neuron.UserLED:
			info.Kind = domain.PROPERTY_KIND_SWITCH
			info.Writable = true
		case neuron.AnalogInput:
			info.Kind = domain.PROPERTY_KIND_NUMBER
			info.Unit = "V"
			info.Decimals = 3
		case neuron.AnalogOutput:
			info.Kind = domain.PROPERTY_KIND_NUMBER
			info.Unit = "V"
			info.Decimals = 2
			info.Writable = true
			info.Max = NEURON_MAX_AO_VOLTS
			info.Step = 0.01
		}
		props = append(props, info)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props
}
