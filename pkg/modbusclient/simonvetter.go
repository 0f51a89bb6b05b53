package modbusclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"github.com/simonvetter/modbus"
)

// SimonvetterTransport is the default transport. One instance owns one
// TCP connection or serial bus; the unit id is switched per request under
// the bus lock so that several slaves can share it.
type SimonvetterTransport struct {
	mu         sync.Mutex
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
}

func NewSimonvetterTransport(cfg Config, instrument ...ModbusInstrument) (*SimonvetterTransport, error) {
	if _, _, err := cfg.endpoint(); err != nil {
		return nil, err
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      cfg.URL,
		Speed:    cfg.Speed,
		DataBits: cfg.DataBits,
		Parity:   simonvetterParity(cfg.parity()),
		StopBits: cfg.StopBits,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &SimonvetterTransport{
		client:     client,
		instrument: instrument,
	}, nil
}

func simonvetterParity(p string) uint {
	switch p {
	case "E":
		return modbus.PARITY_EVEN
	case "O":
		return modbus.PARITY_ODD
	default:
		return modbus.PARITY_NONE
	}
}

func (t *SimonvetterTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Open()
}

func (t *SimonvetterTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

func (t *SimonvetterTransport) ReadRegisters(ctx context.Context, slave uint8, regType regmap.RegisterType, address, quantity uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetUnitId(slave); err != nil {
		return nil, err
	}

	switch regType {
	case regmap.HoldingRegister:
		defer RecordTimer("ReadHoldingRegisters", t.instrument)()
		return t.client.ReadRegisters(address, quantity, modbus.HOLDING_REGISTER)
	case regmap.InputRegister:
		defer RecordTimer("ReadInputRegisters", t.instrument)()
		return t.client.ReadRegisters(address, quantity, modbus.INPUT_REGISTER)
	case regmap.Coil:
		defer RecordTimer("ReadCoils", t.instrument)()
		bits, err := t.client.ReadCoils(address, quantity)
		if err != nil {
			return nil, err
		}
		return boolsToWords(bits), nil
	case regmap.DiscreteInput:
		defer RecordTimer("ReadDiscreteInputs", t.instrument)()
		bits, err := t.client.ReadDiscreteInputs(address, quantity)
		if err != nil {
			return nil, err
		}
		return boolsToWords(bits), nil
	default:
		return nil, fmt.Errorf("unsupported register type %s", regType)
	}
}

func (t *SimonvetterTransport) WriteRegisters(ctx context.Context, slave uint8, regType regmap.RegisterType, address uint16, values []uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetUnitId(slave); err != nil {
		return err
	}

	switch regType {
	case regmap.HoldingRegister:
		if len(values) == 1 {
			defer RecordTimer("WriteRegister", t.instrument)()
			return t.client.WriteRegister(address, values[0])
		}
		defer RecordTimer("WriteRegisters", t.instrument)()
		return t.client.WriteRegisters(address, values)
	case regmap.Coil:
		if len(values) == 1 {
			defer RecordTimer("WriteCoil", t.instrument)()
			return t.client.WriteCoil(address, values[0] != 0)
		}
		defer RecordTimer("WriteCoils", t.instrument)()
		return t.client.WriteCoils(address, wordsToBools(values))
	default:
		return fmt.Errorf("%w: %s", ErrReadOnly, regType)
	}
}

func boolsToWords(bits []bool) []uint16 {
	words := make([]uint16, len(bits))
	for i, b := range bits {
		if b {
			words[i] = 1
		}
	}
	return words
}

func wordsToBools(words []uint16) []bool {
	bits := make([]bool, len(words))
	for i, w := range words {
		bits[i] = w != 0
	}
	return bits
}
