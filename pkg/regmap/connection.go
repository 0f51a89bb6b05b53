package regmap

import (
	"errors"
	"maps"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier is called once per property whose cached value changed.
type Notifier func(conn *Connection, spec RegisterSpec, value Value)

// Connection is the live association of a slave on a transport with the
// register table of its device model. It owns the last observed value of
// every property. It is not safe for concurrent use: all calls happen on
// the goroutine that owns it.
type Connection struct {
	id     string
	unit   Unit
	blocks Blocks
	cache  map[string]Value
	notify Notifier
	init   *InitTracker
	logger *zap.Logger
}

func NewConnection(unit Unit, blocks Blocks, notify Notifier, logger *zap.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:     id,
		unit:   unit,
		blocks: blocks,
		cache:  make(map[string]Value),
		notify: notify,
		logger: logger.With(zap.String("connection", id), zap.Uint8("slave", unit.Slave)),
	}
}

func (c *Connection) Id() string {
	return c.id
}

func (c *Connection) Slave() uint8 {
	return c.unit.Slave
}

func (c *Connection) Unit() Unit {
	return c.unit
}

func (c *Connection) Blocks() Blocks {
	return c.blocks
}

// SetBlocks replaces the register table, for devices whose layout is only
// known after a survey. Cached values are kept.
func (c *Connection) SetBlocks(blocks Blocks) {
	c.blocks = blocks
}

// NewRequest registers an outgoing read of block.
func (c *Connection) NewRequest(block string) PendingRequest {
	return newRequest(c.id, block)
}

// NewWriteRequest registers an outgoing write of property in block.
func (c *Connection) NewWriteRequest(block, property string) PendingRequest {
	req := newRequest(c.id, block)
	req.Write = true
	req.Property = property
	return req
}

// Prime starts the initialization handshake: a prime read is registered
// for every InitOnly block and onFinished fires once all of them have
// completed. It returns the requests to issue.
func (c *Connection) Prime(onFinished func()) []PendingRequest {
	c.init = NewInitTracker(onFinished)
	var reqs []PendingRequest
	for _, b := range c.blocks {
		if !b.InitOnly {
			continue
		}
		req := c.NewRequest(b.Name)
		req.Prime = true
		c.init.Add(req.ID)
		reqs = append(reqs, req)
	}
	c.init.Start()
	return reqs
}

func (c *Connection) Initialized() bool {
	return c.init != nil && c.init.Finished()
}

// PollRequests returns one read per periodically polled block.
func (c *Connection) PollRequests() []PendingRequest {
	var reqs []PendingRequest
	for _, b := range c.blocks {
		if b.InitOnly {
			continue
		}
		reqs = append(reqs, c.NewRequest(b.Name))
	}
	return reqs
}

// DecodeAndCache decodes words per spec, replaces the cached value and
// notifies when it differs from the previous one.
func (c *Connection) DecodeAndCache(spec RegisterSpec, words []uint16) (Value, bool) {
	value := Decode(spec, words)
	return value, c.store(spec, value)
}

// ApplyBlock decodes a full block reply and returns the number of changed
// properties.
func (c *Connection) ApplyBlock(b Block, words []uint16) int {
	changed := 0
	for _, r := range b.Decode(words) {
		if c.store(r.Spec, r.Value) {
			changed++
		}
	}
	return changed
}

func (c *Connection) store(spec RegisterSpec, value Value) bool {
	if prev, ok := c.cache[spec.Name]; ok && prev.Equal(value) {
		return false
	}
	c.cache[spec.Name] = value
	if c.notify != nil {
		c.notify(c, spec, value)
	}
	return true
}

// Complete routes the completion of req. Transport errors are logged and
// leave the cache untouched; broadcast replies are dropped. Prime requests
// count toward the handshake whatever their outcome.
func (c *Connection) Complete(req PendingRequest, res Result) int {
	if req.Prime && c.init != nil {
		defer c.init.Done(req.ID)
	}
	if res.Broadcast || c.unit.Broadcast() {
		return 0
	}
	if res.Err != nil {
		c.logger.Warn("modbus request failed", zap.Stringer("request", req), zap.Error(res.Err))
		return 0
	}
	if req.Write {
		return 0
	}
	b, ok := c.blocks.Block(req.Block)
	if !ok {
		c.logger.Warn("completion for unknown block", zap.Stringer("request", req))
		return 0
	}
	return c.ApplyBlock(b, res.Words)
}

func (c *Connection) Value(name string) (Value, bool) {
	v, ok := c.cache[name]
	return v, ok
}

func (c *Connection) Snapshot() map[string]Value {
	return maps.Clone(c.cache)
}

var ErrUnknownProperty = errors.New("unknown property")

// EncodeWrite resolves property and encodes value for writing.
func (c *Connection) EncodeWrite(property string, value float64) (Block, RegisterSpec, []uint16, error) {
	b, spec, ok := c.blocks.Find(property)
	if !ok {
		return Block{}, RegisterSpec{}, nil, ErrUnknownProperty
	}
	words, err := Encode(spec, value)
	if err != nil {
		return Block{}, RegisterSpec{}, nil, err
	}
	return b, spec, words, nil
}
