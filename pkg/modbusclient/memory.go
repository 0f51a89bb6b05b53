package modbusclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

// MemoryTransport is an in-process register space, one per register type
// and slave. It backs the simulator driver and tests.
type MemoryTransport struct {
	mu     sync.Mutex
	space  map[memoryKey]uint16
	fail   map[uint16]error
	err    error
	reads  int
	writes int
	opened bool
}

type memoryKey struct {
	slave   uint8
	regType regmap.RegisterType
	address uint16
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		space: make(map[memoryKey]uint16),
		fail:  make(map[uint16]error),
	}
}

func (m *MemoryTransport) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	return nil
}

func (m *MemoryTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}

func (m *MemoryTransport) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// Set stores words starting at address.
func (m *MemoryTransport) Set(slave uint8, regType regmap.RegisterType, address uint16, words ...uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range words {
		m.space[memoryKey{slave, regType, address + uint16(i)}] = w
	}
}

func (m *MemoryTransport) Get(slave uint8, regType regmap.RegisterType, address, quantity uint16) []uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(slave, regType, address, quantity)
}

func (m *MemoryTransport) get(slave uint8, regType regmap.RegisterType, address, quantity uint16) []uint16 {
	words := make([]uint16, quantity)
	for i := range words {
		words[i] = m.space[memoryKey{slave, regType, address + uint16(i)}]
	}
	return words
}

// FailWith makes every request fail with err until cleared with nil.
func (m *MemoryTransport) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailAt makes requests starting at address fail with err.
func (m *MemoryTransport) FailAt(address uint16, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, address)
		return
	}
	m.fail[address] = err
}

func (m *MemoryTransport) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *MemoryTransport) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryTransport) failure(address uint16) error {
	if m.err != nil {
		return m.err
	}
	return m.fail[address]
}

func (m *MemoryTransport) ReadRegisters(ctx context.Context, slave uint8, regType regmap.RegisterType, address, quantity uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if err := m.failure(address); err != nil {
		return nil, err
	}
	return m.get(slave, regType, address, quantity), nil
}

func (m *MemoryTransport) WriteRegisters(ctx context.Context, slave uint8, regType regmap.RegisterType, address uint16, values []uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if regType == regmap.InputRegister || regType == regmap.DiscreteInput {
		return fmt.Errorf("%w: %s", ErrReadOnly, regType)
	}
	if err := m.failure(address); err != nil {
		return err
	}
	for i, v := range values {
		m.space[memoryKey{slave, regType, address + uint16(i)}] = v
	}
	return nil
}
