package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/modbus2mqtt/internal/adapter/actor"
	"github.com/berfenger/modbus2mqtt/internal/config"
	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/core/events"
	"github.com/berfenger/modbus2mqtt/internal/core/port"
	"github.com/berfenger/modbus2mqtt/internal/mqtt"
	"github.com/berfenger/modbus2mqtt/internal/neuron"
	. "github.com/berfenger/modbus2mqtt/internal/util/actorutil"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const healthCheckTimeout = 1 * time.Second

type MQTTActorProvider func() *adactor.MQTTActor

// MasterOfPuppetsActor supervises the MQTT actor and one actor per device,
// routes property changes to MQTT and commands back to the devices.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	subscription       *eventstream.Subscription
	arena              *regmap.Arena
	scheduler          *PollScheduler
	mqttActor          *actor.PID
	haDiscoveryActor   *actor.PID
	devices            map[string]deviceChild
	deviceOrder        []string
	deviceInfo         map[string]domain.DeviceInfo
	transports         TransportProvider
	mqttActorProvider  MQTTActorProvider
	commands           port.CommandLogic
	metrics            adactor.DeviceMetrics
	zapLogger          *zap.Logger
	logger             *zap.Logger
}

type deviceChild struct {
	pid      *actor.PID
	healthId string
}

type healthCheckResult struct {
	healthy   map[string]bool
	reported  map[string]bool
	respondTo *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, transports TransportProvider, mqttActorProvider MQTTActorProvider, commands port.CommandLogic, metrics adactor.DeviceMetrics, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		arena:             regmap.NewArena(),
		devices:           make(map[string]deviceChild),
		deviceInfo:        make(map[string]domain.DeviceInfo),
		transports:        transports,
		mqttActorProvider: mqttActorProvider,
		commands:          commands,
		metrics:           metrics,
		zapLogger:         logger,
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// forward device events to the mailbox
		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.subscription = ctx.ActorSystem().EventStream.Subscribe(func(evt any) {
			switch evt.(type) {
			case domain.PropertyChangedEvent, domain.DeviceInitializedEvent:
				root.Send(self, evt)
			}
		})

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start HA Discovery before devices so that no announcement is lost
		if state.config.MQTT.HADiscoveryEnable {
			haDiscPID, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
			state.haDiscoveryActor = haDiscPID
		}

		state.scheduler = NewPollScheduler(root, state.zapLogger)
		state.scheduler.Start()

		// start device children
		for _, dev := range state.config.Devices {
			if err := state.startDeviceActor(ctx, dev); err != nil {
				state.logger.Error("master@starting device failed", zap.String("device", dev.Id), zap.Error(err))
				panic(err)
			}
		}

		if state.config.Neuron.Enabled {
			if err := state.startNeuronActor(ctx); err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.stop(ctx)
	case actor.SystemMessage, actor.AutoReceiveMessage:
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(ctx.Sender())
		state.requestHealth(ctx, domain.ACTOR_ID_MQTT, state.mqttActor)
		for _, id := range state.deviceOrder {
			child := state.devices[id]
			state.requestHealth(ctx, child.healthId, child.pid)
		}
		ctx.SetReceiveTimeout(healthCheckTimeout)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.PropertyChangedEvent:
		if update := events.PropertyChangedToUpdateEvent(msg); update != nil {
			ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Event: update})
		}
	case domain.DeviceInitializedEvent:
		state.logger.Info("master@default device initialized", zap.String("device", msg.Device.Id), zap.String("serial", msg.Device.Serial))
		state.deviceInfo[msg.Device.Id] = msg.Device
		state.commands.Register(msg.Device)
		if state.haDiscoveryActor != nil {
			ctx.Send(state.haDiscoveryActor, domain.DeviceDiscoveryRequest{Device: msg.Device})
		}
	case adactor.ParsedCommand:
		// redirect parsedCommand to the device
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command == nil {
			return
		}
		if err := state.command(ctx, *msg.Command); err != nil {
			state.logger.Warn("master@default command rejected", zap.String("target", msg.Command.DeviceId), zap.Error(err))
		}
	case domain.WritePropertyResponse:
		if msg.HasResponseError() {
			state.logger.Warn("master@default write failed", zap.String("device", msg.DeviceId), zap.String("property", msg.Property), zap.Error(msg.GetResponseError()))
		}
	case domain.GetDevicesRequest:
		devices := make([]domain.DeviceInfo, 0, len(state.deviceOrder))
		for _, id := range state.deviceOrder {
			devices = append(devices, state.deviceInfo[id])
		}
		ForRequest(msg).Respond(ctx, domain.GetDevicesResponse{Devices: devices})
	case domain.GetDeviceValuesRequest:
		if child, ok := state.devices[msg.DeviceId]; ok {
			ctx.Forward(child.pid)
			return
		}
		ForRequest(msg).Respond(ctx, domain.GetDeviceValuesResponse{ActorResponseMixIn: domain.ResponseError(unknownDevice(msg.DeviceId))})
	case domain.WritePropertyRequest:
		if child, ok := state.devices[msg.DeviceId]; ok {
			ctx.Forward(child.pid)
			return
		}
		ForRequest(msg).Respond(ctx, domain.WritePropertyResponse{
			ActorResponseMixIn: domain.ResponseError(unknownDevice(msg.DeviceId)),
			DeviceId:           msg.DeviceId,
			Property:           msg.Property,
		})
	case *actor.Terminated:
		state.logger.Warn("master@default child terminated", zap.String("pid", msg.Who.Id))
	case *actor.Stopping:
		state.stop(ctx)
	default:
		state.logger.Debug("master@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy), zap.String("state", msg.State))
		if state.currentHealthCheck.record(msg) {
			state.finishHealthCheck(ctx)
		}
	case *actor.Stopping:
		state.stop(ctx)
	case actor.SystemMessage, actor.AutoReceiveMessage:
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) finishHealthCheck(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	state.behavior.UnbecomeStacked()
	// stashed events are replayed ahead of the response
	state.stash.UnstashAll(ctx)
	state.currentHealthCheck.respond(ctx)
}

func (state *MasterOfPuppetsActor) requestHealth(ctx actor.Context, id string, pid *actor.PID) {
	state.currentHealthCheck.healthy[id] = false
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, healthCheckTimeout/2), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      id,
			Healthy: false,
		}
	})
}

func (state *MasterOfPuppetsActor) command(ctx actor.Context, parsed mqtt.ParsedMQTTCommand) error {
	cmd, err := ParsedMQTTCommandToCommand(parsed)
	if err != nil {
		return err
	}
	req, err := state.commands.Resolve(cmd)
	if err != nil {
		return err
	}
	child, ok := state.devices[req.DeviceId]
	if !ok {
		return unknownDevice(req.DeviceId)
	}
	req.ActorRequestMixIn = domain.ReplyTo(ctx.Self())
	ctx.Send(child.pid, req)
	return nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("handling failure for child", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.zapLogger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func (state *MasterOfPuppetsActor) startDeviceActor(ctx actor.Context, dev config.DeviceConfig) error {
	desc, err := dev.Descriptor()
	if err != nil {
		return err
	}
	transport, err := state.transports(dev, desc)
	if err != nil {
		return err
	}

	cfg := adactor.DeviceActorConfig{
		Id:          dev.Id,
		Name:        dev.Name,
		Slave:       uint8(dev.Slave(desc)),
		Descriptor:  desc,
		TaskTimeout: state.config.Modbus.TaskTimeout(),
	}

	// devices retry their link with a backoff, a restart keeps the transport
	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	props := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewDeviceActor(cfg, transport, state.arena, state.metrics, state.zapLogger)
	}, actor.WithSupervisor(supervisor))
	pid, err := ctx.SpawnNamed(props, domain.DeviceActorId(dev.Id))
	if err != nil {
		return err
	}

	state.addDevice(dev.Id, deviceChild{pid, domain.DeviceActorId(dev.Id)}, domain.DeviceInfo{
		Id:           dev.Id,
		Name:         dev.Name,
		Model:        desc.Model.String(),
		Manufacturer: desc.Manufacturer,
		Slave:        cfg.Slave,
	})
	return state.scheduler.Schedule(dev.Id, pid, dev.PollInterval(), dev.PollCron)
}

func (state *MasterOfPuppetsActor) startNeuronActor(ctx actor.Context) error {

	opts := neuron.Options{
		BaseDir:      state.config.Neuron.BaseDir,
		PollInterval: time.Duration(state.config.Neuron.PollIntervalMillis) * time.Millisecond,
	}

	decider := func(reason interface{}) actor.Directive {
		state.logger.Error("neuron failure", zap.Any("reason", reason))
		return actor.StopDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	props := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewNeuronActor(opts, state.zapLogger)
	}, actor.WithSupervisor(supervisor))
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_NEURON)
	if err != nil {
		return err
	}
	state.addDevice(adactor.NEURON_DEVICE_ID, deviceChild{pid, domain.ACTOR_ID_NEURON}, domain.DeviceInfo{
		Id:           adactor.NEURON_DEVICE_ID,
		Model:        "neuron",
		Manufacturer: "UniPi",
	})
	return nil
}

func (state *MasterOfPuppetsActor) addDevice(id string, child deviceChild, info domain.DeviceInfo) {
	state.devices[id] = child
	state.deviceOrder = append(state.deviceOrder, id)
	state.deviceInfo[id] = info
}

func (state *MasterOfPuppetsActor) stop(ctx actor.Context) {
	if state.scheduler != nil {
		state.scheduler.Stop()
		state.scheduler = nil
	}
	if state.subscription != nil {
		ctx.ActorSystem().EventStream.Unsubscribe(state.subscription)
		state.subscription = nil
	}
}

func unknownDevice(id string) error {
	return fmt.Errorf("%w: %s", domain.ErrUnknownDevice, id)
}

func (state *healthCheckResult) reset(respondTo *actor.PID) {
	state.healthy = make(map[string]bool)
	state.reported = make(map[string]bool)
	state.respondTo = respondTo
}

// record stores one response and reports whether all arrived.
func (state *healthCheckResult) record(resp domain.ActorHealthResponse) bool {
	if _, ok := state.healthy[resp.Id]; !ok || state.reported[resp.Id] {
		return false
	}
	state.healthy[resp.Id] = resp.Healthy
	state.reported[resp.Id] = true
	return len(state.reported) == len(state.healthy)
}

func (state *healthCheckResult) unhealthy() []string {
	var ids []string
	for id, healthy := range state.healthy {
		if !healthy {
			ids = append(ids, id)
		}
	}
	return ids
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: len(state.unhealthy()) == 0,
	}
	if !resp.Healthy {
		resp.ActorResponseMixIn = domain.ResponseError(fmt.Errorf("%w: %v", errUnhealthy, state.unhealthy()))
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}

var errUnhealthy = errors.New("unhealthy children")
