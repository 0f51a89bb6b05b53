package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/internal/util/actorutil"
	"github.com/berfenger/modbus2mqtt/pkg/devices"
	"github.com/berfenger/modbus2mqtt/pkg/modbusclient"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"github.com/berfenger/modbus2mqtt/pkg/sunspec_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	DEVICE_STATE_STARTING = "starting"
	DEVICE_STATE_IDLE     = "idle"
	DEVICE_STATE_POLLING  = "polling"
	DEVICE_STATE_WRITING  = "writing"
)

// identity properties, first match wins
var (
	serialProperties       = []string{"serialNumber", "common_SN"}
	versionProperties      = []string{"common_Vr"}
	modelProperties        = []string{"model", "common_Md"}
	manufacturerProperties = []string{"common_Mn"}
)

// DeviceMetrics receives per device counters.
type DeviceMetrics interface {
	PropertyChanged(deviceId string)
	ModbusError(deviceId string)
}

type DeviceActorConfig struct {
	Id          string
	Name        string
	Slave       uint8
	Descriptor  devices.Descriptor
	TaskTimeout time.Duration
}

// DeviceActor owns the connection of one Modbus device. Transport calls
// run as background tasks; their results come back as messages and are
// routed through the arena, so decode and notify stay on the mailbox.
type DeviceActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	cfg       DeviceActorConfig
	info      domain.DeviceInfo
	transport regmap.Transport
	arena     *regmap.Arena
	conn      *regmap.Connection
	events    *eventstream.EventStream
	metrics   DeviceMetrics
	logger    *zap.Logger
}

type deviceStartResult struct {
	blocks regmap.Blocks
	err    error
}

type blockResult struct {
	req regmap.PendingRequest
	res regmap.Result
}

type blockReadResults struct {
	results []blockResult
}

type writeResult struct {
	blockResult
	replyTo *actor.PID
}

func NewDeviceActor(cfg DeviceActorConfig, transport regmap.Transport, arena *regmap.Arena, metrics DeviceMetrics, logger *zap.Logger) *DeviceActor {
	if cfg.TaskTimeout == 0 {
		cfg.TaskTimeout = 2 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Descriptor.Name
	}
	act := &DeviceActor{
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		cfg:       cfg,
		transport: transport,
		arena:     arena,
		metrics:   metrics,
		info: domain.DeviceInfo{
			Id:           cfg.Id,
			Name:         name,
			Model:        cfg.Descriptor.Model.String(),
			Manufacturer: cfg.Descriptor.Manufacturer,
			Slave:        cfg.Slave,
		},
		logger: actorutil.ActorLogger(domain.DeviceActorId(cfg.Id), logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DeviceActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DeviceActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("device@starting started")
		state.events = ctx.ActorSystem().EventStream
		state.start(ctx)
	case deviceStartResult:
		if msg.err != nil {
			state.logger.Error("device start failed", zap.Error(msg.err))
			panic(msg.err)
		}
		state.conn = regmap.NewConnection(state.unit(), msg.blocks, state.notify, state.logger)
		state.arena.Add(state.conn)
		state.info.Properties = domain.PropertiesFromBlocks(msg.blocks)
		reqs := state.conn.Prime(func() {
			state.logger.Debug("device@starting init handshake finished")
		})
		if state.conn.Initialized() {
			state.initialized(ctx)
			return
		}
		state.read(ctx, reqs)
	case blockReadResults:
		state.complete(msg)
		if state.conn != nil && state.conn.Initialized() {
			state.initialized(ctx)
		}
	case domain.ActorHealthRequest:
		ctx.Respond(state.health(false, DEVICE_STATE_STARTING))
	case domain.PollTick:
		// not ready yet
	case *actor.Restarting:
		state.close(false)
	case *actor.Stopping:
		state.close(true)
	case actor.SystemMessage, actor.AutoReceiveMessage:
	default:
		state.logger.Debug("device@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("device@default: ActorHealthRequest")
		ctx.Respond(state.health(true, DEVICE_STATE_IDLE))
	case domain.PollTick:
		reqs := state.conn.PollRequests()
		if len(reqs) == 0 {
			return
		}
		state.read(ctx, reqs)
		state.behavior.BecomeStacked(state.PollingReceive)
	case domain.GetDeviceInfoRequest:
		actorutil.ForRequest(msg).Respond(ctx, domain.GetDeviceInfoResponse{Device: state.info})
	case domain.GetDeviceValuesRequest:
		actorutil.ForRequest(msg).Respond(ctx, domain.GetDeviceValuesResponse{
			Device: state.info,
			Values: state.conn.Snapshot(),
		})
	case domain.WritePropertyRequest:
		state.logger.Debug("device@default: WritePropertyRequest", zap.String("property", msg.Property), zap.Float64("value", msg.Value))
		replyTo := actorutil.ForRequest(msg).ReplyTo(ctx)
		b, spec, words, err := state.conn.EncodeWrite(msg.Property, msg.Value)
		if err != nil {
			reply(ctx, replyTo, state.writeResponse(msg.Property, err))
			return
		}
		state.write(ctx, b, spec, words, replyTo)
		state.behavior.BecomeStacked(state.WritingReceive)
	case *actor.Stopping:
		state.close(true)
	case *actor.Restarting:
		state.close(false)
	default:
		state.logger.Debug("device@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DeviceActor) PollingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case blockReadResults:
		state.complete(msg)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.PollTick:
		state.logger.Debug("device@polling: poll overrun, tick dropped")
	case domain.ActorHealthRequest:
		ctx.Respond(state.health(true, DEVICE_STATE_POLLING))
	case *actor.Stopping:
		state.close(true)
	case *actor.Restarting:
		state.close(false)
	case actor.SystemMessage, actor.AutoReceiveMessage:
	default:
		state.logger.Debug("device@polling: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) WritingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case writeResult:
		state.arena.Complete(msg.req, msg.res)
		reply(ctx, msg.replyTo, state.writeResponse(msg.req.Property, msg.res.Err))
		state.behavior.UnbecomeStacked()
		if msg.res.Err != nil {
			state.countError()
			state.stash.UnstashAll(ctx)
			return
		}
		// read back the written block
		state.read(ctx, []regmap.PendingRequest{state.conn.NewRequest(msg.req.Block)})
		state.behavior.BecomeStacked(state.PollingReceive)
	case domain.PollTick:
		state.logger.Debug("device@writing: tick dropped")
	case domain.ActorHealthRequest:
		ctx.Respond(state.health(true, DEVICE_STATE_WRITING))
	case *actor.Stopping:
		state.close(true)
	case *actor.Restarting:
		state.close(false)
	case actor.SystemMessage, actor.AutoReceiveMessage:
	default:
		state.logger.Debug("device@writing: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) unit() regmap.Unit {
	if state.cfg.Descriptor.Link == devices.LinkRTU {
		return regmap.SerialUnit(state.cfg.Slave)
	}
	return regmap.TCPUnit(state.cfg.Slave)
}

// start opens the transport and resolves the register table, surveying it
// for self describing devices.
func (state *DeviceActor) start(ctx actor.Context) {
	t := state.transport
	slave := state.cfg.Slave
	desc := state.cfg.Descriptor
	logger := state.logger
	actorutil.NewBackgroundTask(ctx, func() (*deviceStartResult, error) {
		if err := t.Open(); err != nil {
			return nil, err
		}
		if !desc.Survey {
			return &deviceStartResult{blocks: desc.Blocks}, nil
		}
		headers, err := sunspec_modbus.Survey(context.Background(), t, slave, sunspec_modbus.SUNSPEC_BASE_ADDRESS)
		if err != nil {
			return nil, err
		}
		blocks := sunspec_modbus.Blocks(headers, logger)
		if len(blocks) == 0 {
			return nil, fmt.Errorf("%w: no supported models", sunspec_modbus.ErrUnknownModelID)
		}
		return &deviceStartResult{blocks: blocks}, nil
	}).WithTimeout(4 * state.cfg.TaskTimeout).Recover(func(err error) deviceStartResult {
		return deviceStartResult{err: err}
	}).PipeToAsync(ctx.Self())
}

func (state *DeviceActor) initialized(ctx actor.Context) {
	state.info.Initialized = true
	state.info.Serial = state.identity(serialProperties)
	state.info.Version = state.identity(versionProperties)
	if mn := state.identity(manufacturerProperties); mn != "" {
		state.info.Manufacturer = mn
	}
	if model := state.identity(modelProperties); model != "" && state.cfg.Name == "" {
		state.info.Name = fmt.Sprintf("%s %s", state.info.Manufacturer, model)
	}
	state.logger.Info("device initialized",
		zap.String("model", state.info.Model),
		zap.Int("properties", len(state.info.Properties)),
		zap.String("serial", state.info.Serial))
	state.events.Publish(domain.DeviceInitializedEvent{Device: state.info})
	state.behavior.Become(state.DefaultReceive)
	state.stash.UnstashAll(ctx)
}

func (state *DeviceActor) identity(names []string) string {
	for _, name := range names {
		if v, ok := state.conn.Value(name); ok && v.Kind == regmap.KindString && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// read issues the reads of reqs as a single background task.
func (state *DeviceActor) read(ctx actor.Context, reqs []regmap.PendingRequest) {
	t := state.transport
	unit := state.conn.Unit()
	blocks := make([]regmap.Block, len(reqs))
	for i, req := range reqs {
		blocks[i], _ = state.conn.Blocks().Block(req.Block)
	}
	actorutil.NewBackgroundTaskNoError(ctx, func() *blockReadResults {
		results := make([]blockResult, len(reqs))
		for i, req := range reqs {
			results[i] = blockResult{req: req, res: regmap.ReadBlock(context.Background(), t, unit, blocks[i])}
		}
		return &blockReadResults{results: results}
	}).WithTimeout(time.Duration(len(reqs)) * state.cfg.TaskTimeout).Recover(func(err error) blockReadResults {
		results := make([]blockResult, len(reqs))
		for i, req := range reqs {
			results[i] = blockResult{req: req, res: regmap.Result{Err: err}}
		}
		return blockReadResults{results: results}
	}).PipeToAsync(ctx.Self())
}

func (state *DeviceActor) write(ctx actor.Context, b regmap.Block, spec regmap.RegisterSpec, words []uint16, replyTo *actor.PID) {
	t := state.transport
	unit := state.conn.Unit()
	req := state.conn.NewWriteRequest(b.Name, spec.Name)
	actorutil.NewBackgroundTaskNoError(ctx, func() *writeResult {
		return &writeResult{
			blockResult: blockResult{req: req, res: regmap.WriteSpec(context.Background(), t, unit, b, spec, words)},
			replyTo:     replyTo,
		}
	}).WithTimeout(state.cfg.TaskTimeout).Recover(func(err error) writeResult {
		return writeResult{
			blockResult: blockResult{req: req, res: regmap.Result{Err: err}},
			replyTo:     replyTo,
		}
	}).PipeToAsync(ctx.Self())
}

func (state *DeviceActor) complete(msg blockReadResults) {
	changed := 0
	for _, r := range msg.results {
		if r.res.Err != nil {
			state.countError()
		}
		n, ok := state.arena.Complete(r.req, r.res)
		if !ok {
			state.logger.Debug("completion for a removed connection dropped", zap.Stringer("request", r.req))
			continue
		}
		changed += n
	}
	if changed > 0 {
		state.logger.Debug("device cycle", zap.Int("changed", changed))
	}
}

func (state *DeviceActor) notify(_ *regmap.Connection, spec regmap.RegisterSpec, value regmap.Value) {
	info, ok := domain.PropertyInfoFromSpec(spec)
	if !ok {
		return
	}
	ev := domain.PropertyChangedEvent{
		DeviceId: state.cfg.Id,
		Property: info,
		Value:    value,
	}
	if value.Kind == regmap.KindBitfield && spec.Flags != nil {
		ev.Text = spec.Flags.Format(value.Bits)
	}
	state.events.Publish(ev)
	if state.metrics != nil {
		state.metrics.PropertyChanged(state.cfg.Id)
	}
}

func (state *DeviceActor) countError() {
	if state.metrics != nil {
		state.metrics.ModbusError(state.cfg.Id)
	}
}

func (state *DeviceActor) health(healthy bool, st string) domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.DeviceActorId(state.cfg.Id),
		Healthy: healthy,
		State:   st,
	}
}

func (state *DeviceActor) writeResponse(property string, err error) domain.WritePropertyResponse {
	return domain.WritePropertyResponse{
		ActorResponseMixIn: domain.ResponseError(err),
		DeviceId:           state.cfg.Id,
		Property:           property,
	}
}

// close drops the connection from the arena so that late completions are
// ignored. A restart keeps the pooled link for the next incarnation.
func (state *DeviceActor) close(release bool) {
	if state.conn != nil {
		state.arena.Remove(state.conn.Id())
		state.conn = nil
	}
	if err := state.transport.Close(); err != nil {
		state.logger.Warn("device close failed", zap.Error(err))
	}
	if release {
		modbusclient.Release(state.transport)
	}
}

func reply(ctx actor.Context, pid *actor.PID, msg any) {
	if pid != nil {
		ctx.Send(pid, msg)
	}
}
