package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/modbus2mqtt/internal/config"
	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/core/events"
	"github.com/berfenger/modbus2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const haDiscoveryRetry = 2 * time.Second

// HADiscoveryActor announces the bridge and every initialized device to
// Home Assistant once the MQTT actor is connected.
type HADiscoveryActor struct {
	actorutil.ActorWithStates
	config    *config.Config
	stash     *actorutil.Stash
	mqttActor *actor.PID
	bridge    domain.Device
	logger    *zap.Logger
}

type haWaitingState struct {
	*HADiscoveryActor
}

type haAnnouncingState struct {
	*HADiscoveryActor
}

type retryHealthCheck struct {
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		ActorWithStates: actorutil.ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
		config:    config,
		stash:     &actorutil.Stash{},
		mqttActor: mqttActor,
		bridge:    domain.BridgeDevice(config.MQTT.BaseTopic),
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.Become(haWaitingState{act})
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state haWaitingState) Name() string {
	return "waiting"
}

func (state haWaitingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started, retryHealthCheck:
		state.logger.Debug("hadiscovery@waiting: check mqtt")
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, haDiscoveryRetry), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
	case domain.ActorHealthResponse:
		if !msg.Healthy {
			state.logger.Debug("hadiscovery@waiting: mqtt not ready, retrying")
			self := ctx.Self()
			root := ctx.ActorSystem().Root
			time.AfterFunc(haDiscoveryRetry, func() { root.Send(self, retryHealthCheck{}) })
			return
		}
		state.publishBridge(ctx)
		state.Become(haAnnouncingState{state.HADiscoveryActor})
		state.stash.UnstashAll(ctx)
	case actor.SystemMessage, actor.AutoReceiveMessage:
	default:
		state.logger.Debug("hadiscovery@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state haAnnouncingState) Name() string {
	return "announcing"
}

func (state haAnnouncingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.DeviceDiscoveryRequest:
		state.logger.Debug("hadiscovery@announcing: DeviceDiscoveryRequest", zap.String("device", msg.Device.Id))
		components := domain.DeviceComponents(domain.ModbusDevice(msg.Device, state.bridge.Id), msg.Device)
		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:      components.Sensors,
			Switches:     components.Switches,
			InputNumbers: components.InputNumbers,
			Selects:      components.Selects,
		})
		if msg.ReplyToRef != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{})
		}
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: true,
			State:   state.Name(),
		})
	default:
		state.logger.Debug("hadiscovery@announcing: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) publishBridge(ctx actor.Context) {
	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors: domain.BridgeSensors(state.bridge),
	})
	for _, ev := range events.BridgeStateUpdateEvents(true) {
		if update, ok := ev.(domain.SensorUpdateEvent); ok {
			ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Retain: true, Event: update})
		}
	}
}
