package neuron

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fakeSysfs lays out a driver tree under a temp dir and returns its by-sys dir.
func fakeSysfs(t *testing.T) string {
	root := t.TempDir()
	base := filepath.Join(root, "unipi-plc", "by-sys")
	writeFile(t, filepath.Join(base, "RO1.2", "value"), "0")
	writeFile(t, filepath.Join(base, "RO1.3", "value"), "1")
	writeFile(t, filepath.Join(base, "DI2.1", "value"), "1\n")
	writeFile(t, filepath.Join(base, "DIbad", "value"), "0")
	writeFile(t, filepath.Join(base, "AI1.1", "in_voltage_raw"), "2500\n")
	writeFile(t, filepath.Join(base, "AO1.1", "out_voltage_raw"), "0")
	writeFile(t, filepath.Join(base, "leds", "unipi:green:uled-x1", "brightness"), "0")
	return base
}

func TestDiscover(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	base := fakeSysfs(t)

	relays := Discover(base, RelayOutput, logger)
	assert.Equal([]Circuit{{RelayOutput, 1, 2}, {RelayOutput, 1, 3}}, relays)

	inputs := Discover(base, DigitalInput, logger)
	assert.Equal([]Circuit{{DigitalInput, 2, 1}}, inputs, "unparsable entries are skipped")

	assert.Empty(Discover(base, DigitalOutput, logger))
	assert.Equal([]Circuit{{UserLED, 0, 1}}, Discover(base, UserLED, logger))
}

func TestCircuitID(t *testing.T) {

	assert := assert.New(t)

	c := Circuit{Class: RelayOutput, Group: 1, Index: 2}
	assert.Equal("neuron_ro_1_2", c.ID())
	assert.Equal("1.2", c.Name())
	assert.Equal("RO1.2", c.String())

	parsed, err := ParseCircuitID("neuron_ro_1_2")
	assert.NoError(err)
	assert.Equal(c, parsed)

	led, err := ParseCircuitID("neuron_led_0_3")
	assert.NoError(err)
	assert.Equal(UserLED, led.Class)

	for _, bad := range []string{"", "neuron_xx_1_2", "neuron_ro_1", "neuron_ro_a_2", "modbus_ro_1_2", "neuron_ro_1_300"} {
		_, err := ParseCircuitID(bad)
		assert.Error(err, bad)
	}
}

func TestInitFailures(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	root := t.TempDir()

	n := New(Options{BaseDir: filepath.Join(root, "unipi-plc", "by-sys")}, nil, logger)
	assert.ErrorIs(n.Init(), ErrNoDriver)
	assert.ErrorIs(n.Start(), ErrNotStarted)

	base := fakeSysfs(t)
	assert.NoError(os.MkdirAll(filepath.Join(filepath.Dir(filepath.Dir(base)), "unipi"), 0o755))
	n = New(Options{BaseDir: base}, nil, logger)
	assert.ErrorIs(n.Init(), ErrLegacyDriver)
}

func TestPollOnceReportsChanges(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	base := fakeSysfs(t)

	var got []Change
	n := New(Options{BaseDir: base}, func(c Change) { got = append(got, c) }, logger)
	assert.NoError(n.Init())
	defer n.Close()
	assert.Len(n.Circuits(), 6)

	first := n.PollOnce()
	assert.Len(first, 5, "everything but the analog output is reported on first poll")
	assert.Equal(first, got)
	assert.Equal(RelayOutput, first[0].Circuit.Class)
	assert.Equal(DigitalInput, first[2].Circuit.Class)
	assert.Equal(UserLED, first[3].Circuit.Class)
	assert.Equal(AnalogInput, first[4].Circuit.Class)
	assert.Equal(2.5, first[4].Value)

	assert.Empty(n.PollOnce(), "unchanged values are not reported again")

	assert.True(n.SetRelayOutput("1.2", true))
	changes := n.PollOnce()
	assert.Len(changes, 1)
	assert.Equal(Circuit{RelayOutput, 1, 2}, changes[0].Circuit)
	assert.True(changes[0].On())

	v, ok := n.Value(Circuit{DigitalInput, 2, 1})
	assert.True(ok)
	assert.Equal(1.0, v)
}

func TestAnalogValues(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	base := fakeSysfs(t)
	writeFile(t, filepath.Join(base, "AI1.1", "in_voltage_raw"), "-120")

	n := New(Options{BaseDir: base}, nil, logger)
	assert.NoError(n.Init())
	defer n.Close()

	n.PollOnce()
	v, _ := n.Value(Circuit{AnalogInput, 1, 1})
	assert.Equal(0.0, v, "negative readings are clamped")

	assert.True(n.SetAnalogOutput("1.1", 1.5))
	raw, err := os.ReadFile(filepath.Join(base, "AO1.1", "out_voltage_raw"))
	assert.NoError(err)
	assert.Equal("1500", string(raw))
	v, ok := n.Value(Circuit{AnalogOutput, 1, 1})
	assert.True(ok)
	assert.Equal(1.5, v)

	assert.True(n.SetAnalogOutput("1.1", 1.005))
	raw, err = os.ReadFile(filepath.Join(base, "AO1.1", "out_voltage_raw"))
	assert.NoError(err)
	assert.Equal("1005", string(raw), "whole millivolts")
}

func TestSetUnknownCircuit(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	n := New(Options{BaseDir: fakeSysfs(t)}, nil, logger)
	assert.NoError(n.Init())
	defer n.Close()

	assert.False(n.SetRelayOutput("9.9", true))
	assert.False(n.SetDigitalOutput("1.1", true))
	assert.False(n.Set(Circuit{DigitalInput, 2, 1}, 1), "inputs are not writable")
	assert.True(n.SetUserLED(1, true))
	assert.True(n.Set(Circuit{RelayOutput, 1, 3}, 0))
}

func TestStartStop(t *testing.T) {

	assert := assert.New(t)

	logger := zap.Must(zap.NewDevelopment())
	changes := make(chan Change, 16)
	n := New(Options{BaseDir: fakeSysfs(t), PollInterval: time.Millisecond}, func(c Change) { changes <- c }, logger)
	assert.NoError(n.Init())
	assert.NoError(n.Start())

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		assert.Fail("no change reported")
	}
	n.Stop()
	n.Stop()
	assert.NoError(n.Close())
}
