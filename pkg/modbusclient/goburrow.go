package modbusclient

import (
	"context"
	"sync"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"github.com/goburrow/modbus"
	"github.com/pkg/errors"
	"github.com/u-root/u-root/pkg/uio"
)

// GoburrowTransport drives a link through goburrow/modbus. Replies come
// back as big endian byte slices and are converted to register words.
type GoburrowTransport struct {
	mu         sync.Mutex
	client     modbus.Client
	connect    func() error
	close      func() error
	setSlave   func(uint8)
	instrument []ModbusInstrument
}

func NewGoburrowTransport(cfg Config, instrument ...ModbusInstrument) (*GoburrowTransport, error) {
	scheme, address, err := cfg.endpoint()
	if err != nil {
		return nil, err
	}
	t := &GoburrowTransport{instrument: instrument}
	switch scheme {
	case "tcp":
		handler := modbus.NewTCPClientHandler(address)
		handler.Timeout = cfg.Timeout
		t.client = modbus.NewClient(handler)
		t.connect = handler.Connect
		t.close = handler.Close
		t.setSlave = func(id uint8) { handler.SlaveId = id }
	case "rtu":
		handler := modbus.NewRTUClientHandler(address)
		handler.BaudRate = int(cfg.Speed)
		handler.DataBits = int(cfg.DataBits)
		handler.Parity = cfg.parity()
		handler.StopBits = int(cfg.StopBits)
		handler.Timeout = cfg.Timeout
		t.client = modbus.NewClient(handler)
		t.connect = handler.Connect
		t.close = handler.Close
		t.setSlave = func(id uint8) { handler.SlaveId = id }
	}
	return t, nil
}

func (t *GoburrowTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Wrap(t.connect(), "goburrow connect")
}

func (t *GoburrowTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Wrap(t.close(), "goburrow close")
}

func (t *GoburrowTransport) ReadRegisters(ctx context.Context, slave uint8, regType regmap.RegisterType, address, quantity uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setSlave(slave)

	switch regType {
	case regmap.HoldingRegister:
		defer RecordTimer("ReadHoldingRegisters", t.instrument)()
		data, err := t.client.ReadHoldingRegisters(address, quantity)
		if err != nil {
			return nil, errors.Wrapf(err, "read holding registers %d+%d", address, quantity)
		}
		return bytesToWords(data, quantity)
	case regmap.InputRegister:
		defer RecordTimer("ReadInputRegisters", t.instrument)()
		data, err := t.client.ReadInputRegisters(address, quantity)
		if err != nil {
			return nil, errors.Wrapf(err, "read input registers %d+%d", address, quantity)
		}
		return bytesToWords(data, quantity)
	case regmap.Coil:
		defer RecordTimer("ReadCoils", t.instrument)()
		data, err := t.client.ReadCoils(address, quantity)
		if err != nil {
			return nil, errors.Wrapf(err, "read coils %d+%d", address, quantity)
		}
		return unpackBits(data, quantity), nil
	case regmap.DiscreteInput:
		defer RecordTimer("ReadDiscreteInputs", t.instrument)()
		data, err := t.client.ReadDiscreteInputs(address, quantity)
		if err != nil {
			return nil, errors.Wrapf(err, "read discrete inputs %d+%d", address, quantity)
		}
		return unpackBits(data, quantity), nil
	default:
		return nil, errors.Errorf("unsupported register type %s", regType)
	}
}

func (t *GoburrowTransport) WriteRegisters(ctx context.Context, slave uint8, regType regmap.RegisterType, address uint16, values []uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setSlave(slave)

	var err error
	switch regType {
	case regmap.HoldingRegister:
		if len(values) == 1 {
			defer RecordTimer("WriteSingleRegister", t.instrument)()
			_, err = t.client.WriteSingleRegister(address, values[0])
		} else {
			defer RecordTimer("WriteMultipleRegisters", t.instrument)()
			_, err = t.client.WriteMultipleRegisters(address, uint16(len(values)), wordsToBytes(values))
		}
	case regmap.Coil:
		if len(values) == 1 {
			defer RecordTimer("WriteSingleCoil", t.instrument)()
			var v uint16
			if values[0] != 0 {
				v = 0xFF00
			}
			_, err = t.client.WriteSingleCoil(address, v)
		} else {
			defer RecordTimer("WriteMultipleCoils", t.instrument)()
			_, err = t.client.WriteMultipleCoils(address, uint16(len(values)), packBits(values))
		}
	default:
		return errors.Wrapf(ErrReadOnly, "%s", regType)
	}
	return errors.Wrapf(err, "write %s %d", regType, address)
}

func bytesToWords(data []byte, quantity uint16) ([]uint16, error) {
	if len(data) != int(quantity)*2 {
		return nil, errors.Errorf("short reply: %d bytes for %d registers", len(data), quantity)
	}
	buf := uio.NewBigEndianBuffer(data)
	words := make([]uint16, 0, quantity)
	for buf.Len() >= 2 {
		words = append(words, buf.Read16())
	}
	return words, nil
}

func wordsToBytes(values []uint16) []byte {
	buf := uio.NewBigEndianBuffer([]byte{})
	for _, v := range values {
		buf.Write16(v)
	}
	return buf.Data()
}

// unpackBits expands a coil reply, LSB of the first byte first.
func unpackBits(data []byte, quantity uint16) []uint16 {
	words := make([]uint16, quantity)
	for i := range words {
		if int(i/8) < len(data) && data[i/8]&(1<<(uint(i)%8)) != 0 {
			words[i] = 1
		}
	}
	return words
}

func packBits(values []uint16) []byte {
	data := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v != 0 {
			data[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return data
}
