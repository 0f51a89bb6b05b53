package regmap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeTransport struct {
	words map[uint16]uint16
	err   error
	reads int
}

func (f *fakeTransport) Open() error  { return nil }
func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) ReadRegisters(_ context.Context, _ uint8, _ RegisterType, address, quantity uint16) ([]uint16, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	res := make([]uint16, quantity)
	for i := range res {
		res[i] = f.words[address+uint16(i)]
	}
	return res, nil
}

func (f *fakeTransport) WriteRegisters(_ context.Context, _ uint8, _ RegisterType, address uint16, values []uint16) error {
	if f.err != nil {
		return f.err
	}
	for i, v := range values {
		f.words[address+uint16(i)] = v
	}
	return nil
}

type notification struct {
	property string
	value    Value
}

func recorder() (Notifier, *[]notification) {
	var got []notification
	return func(_ *Connection, spec RegisterSpec, value Value) {
		got = append(got, notification{spec.Name, value})
	}, &got
}

func testBlocks() Blocks {
	return Blocks{
		{
			Name:     "info",
			Type:     HoldingRegister,
			Address:  100,
			Length:   2,
			InitOnly: true,
			Specs:    []RegisterSpec{StringSpec("model", HoldingRegister, 0, 2)},
		},
		SingleBlock(Spec("temperature", InputRegister, 10, RuleInt16).WithScale(Fixed(-1)).WithUnit("°C")),
		SingleBlock(Spec("setpoint", HoldingRegister, 20, RuleUInt16).WithScale(Fixed(-1)).AsWritable()),
	}
}

func TestRepeatedWordsNotifyOnce(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	notify, got := recorder()
	conn := NewConnection(TCPUnit(1), testBlocks(), notify, logger)
	b, _ := conn.Blocks().Block("temperature")

	assert.Equal(1, conn.ApplyBlock(b, []uint16{215}))
	assert.Equal(0, conn.ApplyBlock(b, []uint16{215}))
	assert.Len(*got, 1)
	assert.Equal("temperature", (*got)[0].property)
	assert.Equal(21.5, (*got)[0].value.Float)

	assert.Equal(1, conn.ApplyBlock(b, []uint16{0xFFFB}))
	assert.Len(*got, 2)
	assert.Equal(-0.5, (*got)[1].value.Float)

	v, ok := conn.Value("temperature")
	assert.True(ok)
	assert.Equal(-0.5, v.Float)
}

func TestCompleteReadUpdatesCache(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	notify, got := recorder()
	conn := NewConnection(TCPUnit(3), testBlocks(), notify, logger)
	transport := &fakeTransport{words: map[uint16]uint16{10: 187}}

	reqs := conn.PollRequests()
	assert.Len(reqs, 2, "init only blocks are not polled")

	for _, req := range reqs {
		b, _ := conn.Blocks().Block(req.Block)
		conn.Complete(req, ReadBlock(context.Background(), transport, conn.Unit(), b))
	}
	assert.Equal(2, transport.reads)
	assert.Len(*got, 2)

	snapshot := conn.Snapshot()
	assert.Equal(18.7, snapshot["temperature"].Float)
	assert.Equal(0.0, snapshot["setpoint"].Float)
}

func TestCompleteErrorLeavesCacheUntouched(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	notify, got := recorder()
	conn := NewConnection(TCPUnit(1), testBlocks(), notify, logger)
	b, _ := conn.Blocks().Block("temperature")
	conn.ApplyBlock(b, []uint16{200})

	transport := &fakeTransport{err: errors.New("timeout")}
	req := conn.NewRequest("temperature")
	changed := conn.Complete(req, ReadBlock(context.Background(), transport, TCPUnit(1), b))

	assert.Equal(0, changed)
	assert.Len(*got, 1)
	v, _ := conn.Value("temperature")
	assert.Equal(20.0, v.Float)
}

func TestBroadcastIsDiscarded(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	notify, got := recorder()
	conn := NewConnection(SerialUnit(BroadcastSlave), testBlocks(), notify, logger)
	transport := &fakeTransport{words: map[uint16]uint16{10: 1}}
	b, _ := conn.Blocks().Block("temperature")

	res := ReadBlock(context.Background(), transport, conn.Unit(), b)
	assert.True(res.Broadcast)
	assert.Equal(0, transport.reads, "broadcast reads are never issued")

	assert.Equal(0, conn.Complete(conn.NewRequest("temperature"), Result{Words: []uint16{1}}))
	assert.Empty(*got)
	assert.Empty(conn.Snapshot())
}

func TestTCPUnitZeroIsNotBroadcast(t *testing.T) {

	assert := assert.New(t)

	assert.True(SerialUnit(BroadcastSlave).Broadcast())
	assert.False(SerialUnit(1).Broadcast())
	assert.False(TCPUnit(BroadcastSlave).Broadcast())

	logger := zap.Must(zap.NewDevelopment())
	notify, got := recorder()
	conn := NewConnection(TCPUnit(0), testBlocks(), notify, logger)
	transport := &fakeTransport{words: map[uint16]uint16{10: 215}}
	b, _ := conn.Blocks().Block("temperature")

	res := ReadBlock(context.Background(), transport, conn.Unit(), b)
	assert.False(res.Broadcast)
	assert.Equal(1, transport.reads)
	assert.Equal(1, conn.Complete(conn.NewRequest("temperature"), res))
	assert.Len(*got, 1)
	v, _ := conn.Value("temperature")
	assert.InDelta(21.5, v.Float, 1e-9)
}

func TestPrimeFinishesAfterAllInitReads(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	conn := NewConnection(TCPUnit(1), testBlocks(), nil, logger)
	finished := 0

	reqs := conn.Prime(func() { finished++ })
	assert.Len(reqs, 1)
	assert.True(reqs[0].Prime)
	assert.False(conn.Initialized())

	conn.Complete(reqs[0], Result{Words: []uint16{0x4142, 0x4300}})
	assert.True(conn.Initialized())
	assert.Equal(1, finished)

	// completing again must not fire twice
	conn.Complete(reqs[0], Result{Words: []uint16{0x4142, 0x4300}})
	assert.Equal(1, finished)

	v, _ := conn.Value("model")
	assert.Equal("ABC", v.Str)
}

func TestPrimeFailedReadCountsTowardInit(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	conn := NewConnection(TCPUnit(1), testBlocks(), nil, logger)
	finished := false

	reqs := conn.Prime(func() { finished = true })
	conn.Complete(reqs[0], Result{Err: errors.New("illegal data address")})

	assert.True(finished)
	_, ok := conn.Value("model")
	assert.False(ok)
}

func TestPrimeWithoutInitBlocks(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	blocks := Blocks(Singles(Spec("power", InputRegister, 0, RuleFloat32)))
	conn := NewConnection(TCPUnit(1), blocks, nil, logger)
	finished := false

	reqs := conn.Prime(func() { finished = true })
	assert.Empty(reqs)
	assert.True(finished)
	assert.True(conn.Initialized())
}

func TestScaleFactorBlock(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	block := Block{
		Name:    "inverter",
		Type:    HoldingRegister,
		Address: 40070,
		Length:  4,
		Specs: []RegisterSpec{
			Spec("W", HoldingRegister, 0, RuleInt16).WithScale(ScaledBy("W_SF")).WithUnit("W"),
			Spec("W_SF", HoldingRegister, 1, RuleScaleFactor),
			Spec("Hz", HoldingRegister, 2, RuleUInt16).WithScale(ScaledBy("Hz_SF")),
			Spec("Hz_SF", HoldingRegister, 3, RuleScaleFactor),
		},
	}
	assert.NoError(block.Validate())

	notify, got := recorder()
	conn := NewConnection(TCPUnit(1), Blocks{block}, notify, logger)
	assert.Equal(2, conn.ApplyBlock(block, []uint16{1234, 1, 5002, 0xFFFE}))
	assert.Len(*got, 2, "scale factors are not reported")

	w, _ := conn.Value("W")
	assert.Equal(12340.0, w.Float)
	hz, _ := conn.Value("Hz")
	assert.InDelta(50.02, hz.Float, 1e-9)
}

func TestEncodeWrite(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	conn := NewConnection(TCPUnit(1), testBlocks(), nil, logger)
	transport := &fakeTransport{words: map[uint16]uint16{}}

	b, spec, words, err := conn.EncodeWrite("setpoint", 45.5)
	assert.NoError(err)
	assert.Equal([]uint16{455}, words)

	req := conn.NewWriteRequest(b.Name, spec.Name)
	res := WriteSpec(context.Background(), transport, conn.Unit(), b, spec, words)
	assert.NoError(res.Err)
	assert.Equal(0, conn.Complete(req, res))
	assert.Equal(uint16(455), transport.words[20])

	_, _, _, err = conn.EncodeWrite("missing", 1)
	assert.ErrorIs(err, ErrUnknownProperty)

	_, _, _, err = conn.EncodeWrite("temperature", 1)
	assert.ErrorIs(err, ErrNotWritable)
}
