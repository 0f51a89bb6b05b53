package regmap

import (
	"context"
	"errors"
)

// BroadcastSlave is the Modbus broadcast unit id on a serial line.
// Requests addressed to it get no reply. On TCP it is an ordinary unit id.
const BroadcastSlave uint8 = 0

var ErrBroadcast = errors.New("broadcast request, no reply expected")

// Transport is a Modbus master. Implementations serialize wire
// transactions; callers may issue requests from several goroutines.
type Transport interface {
	Open() error
	Close() error
	ReadRegisters(ctx context.Context, slave uint8, regType RegisterType, address, quantity uint16) ([]uint16, error)
	WriteRegisters(ctx context.Context, slave uint8, regType RegisterType, address uint16, values []uint16) error
}

// Unit addresses a slave behind a transport.
type Unit struct {
	Slave  uint8
	Serial bool
}

func TCPUnit(slave uint8) Unit {
	return Unit{Slave: slave}
}

func SerialUnit(slave uint8) Unit {
	return Unit{Slave: slave, Serial: true}
}

// Broadcast reports whether requests to u get no reply.
func (u Unit) Broadcast() bool {
	return u.Serial && u.Slave == BroadcastSlave
}

// Result is the completion of a PendingRequest.
type Result struct {
	Words     []uint16
	Err       error
	Broadcast bool
}

// ReadBlock issues the read of a whole block.
func ReadBlock(ctx context.Context, t Transport, unit Unit, b Block) Result {
	if unit.Broadcast() {
		return Result{Broadcast: true}
	}
	words, err := t.ReadRegisters(ctx, unit.Slave, b.Type, b.Address, b.Length)
	if errors.Is(err, ErrBroadcast) {
		return Result{Broadcast: true}
	}
	if err == nil && len(words) != int(b.Length) {
		// the transport guarantees the length of successful reads
		panic("regmap: transport returned a short read")
	}
	return Result{Words: words, Err: err}
}

// WriteSpec writes already encoded words of a member spec of b.
func WriteSpec(ctx context.Context, t Transport, unit Unit, b Block, spec RegisterSpec, words []uint16) Result {
	err := t.WriteRegisters(ctx, unit.Slave, spec.Type, b.AbsoluteAddress(spec), words)
	if unit.Broadcast() || errors.Is(err, ErrBroadcast) {
		return Result{Broadcast: true}
	}
	return Result{Err: err}
}
