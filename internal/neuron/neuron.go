// Package neuron drives the IO circuits of a UniPi Neuron PLC through the
// sysfs tree exported by its kernel driver.
package neuron

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseDir      = "/run/unipi-plc/by-sys"
	DefaultPollInterval = 20 * time.Millisecond
	statsCycles         = 100
)

var (
	ErrLegacyDriver = errors.New("deprecated unipi driver found, please remove /run/unipi")
	ErrNoDriver     = errors.New("unipi driver not found")
	ErrNotStarted   = errors.New("neuron not initialized")
)

type Options struct {
	// BaseDir is the by-sys directory of the driver.
	BaseDir string
	// LegacyDir is the directory of the deprecated driver. Defaults to the
	// unipi sibling of the BaseDir parent.
	LegacyDir    string
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.BaseDir == "" {
		o.BaseDir = DefaultBaseDir
	}
	o.BaseDir = filepath.Clean(o.BaseDir)
	if o.LegacyDir == "" {
		o.LegacyDir = filepath.Join(filepath.Dir(filepath.Dir(o.BaseDir)), "unipi")
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Change is a circuit whose value differs from the previous poll.
// Digital circuits report 0 or 1.
type Change struct {
	Circuit Circuit
	Value   float64
}

func (c Change) On() bool {
	return c.Value != 0
}

type OnChange func(Change)

type Neuron struct {
	opts     Options
	onChange OnChange
	logger   *zap.Logger

	initialized bool
	circuits    []Circuit
	files       map[Circuit]*ioFile

	mu       sync.Mutex
	previous map[Circuit]float64

	stop chan struct{}
	done chan struct{}
}

func New(opts Options, onChange OnChange, logger *zap.Logger) *Neuron {
	return &Neuron{
		opts:     opts.withDefaults(),
		onChange: onChange,
		logger:   logger,
		files:    make(map[Circuit]*ioFile),
		previous: make(map[Circuit]float64),
	}
}

// Init checks the driver tree and opens the value file of every
// discovered circuit.
func (n *Neuron) Init() error {
	if isDir(n.opts.LegacyDir) {
		return ErrLegacyDriver
	}
	if !isDir(n.opts.BaseDir) {
		return fmt.Errorf("%w: %s", ErrNoDriver, n.opts.BaseDir)
	}

	for _, class := range classes {
		for _, c := range Discover(n.opts.BaseDir, class, n.logger) {
			f, err := openIOFile(c.valuePath(n.opts.BaseDir), class.Writable())
			if err != nil {
				n.logger.Warn("neuron: cannot open circuit", zap.Stringer("circuit", c), zap.Error(err))
				continue
			}
			n.files[c] = f
			n.circuits = append(n.circuits, c)
		}
	}
	n.initialized = true
	n.logger.Info("neuron: initialized", zap.Int("circuits", len(n.circuits)))
	return nil
}

func (n *Neuron) Circuits() []Circuit {
	return n.circuits
}

// Start runs the poll loop until Stop.
func (n *Neuron) Start() error {
	if n.stop != nil {
		return nil
	}
	if !n.initialized {
		return ErrNotStarted
	}
	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	go n.run(n.stop, n.done)
	return nil
}

// Stop requests the loop to exit at the end of its current cycle and
// waits for it.
func (n *Neuron) Stop() {
	if n.stop == nil {
		return
	}
	close(n.stop)
	<-n.done
	n.stop = nil
}

func (n *Neuron) Close() error {
	n.Stop()
	var errs []error
	for c, f := range n.files {
		errs = append(errs, f.Close())
		delete(n.files, c)
	}
	return errors.Join(errs...)
}

func (n *Neuron) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	cycles := 0
	start := time.Now()
	for {
		n.PollOnce()

		select {
		case <-stop:
			n.logger.Debug("neuron: interrupt requested")
			return
		default:
		}

		time.Sleep(n.opts.PollInterval)

		cycles++
		if cycles == statsCycles {
			n.logger.Debug("neuron: mean cycle time", zap.Duration("mean", time.Since(start)/statsCycles))
			cycles = 0
			start = time.Now()
		}
	}
}

// PollOnce reads every readable circuit once and reports the ones that
// changed, or were never reported before.
func (n *Neuron) PollOnce() []Change {
	var changes []Change
	for _, class := range pollOrder {
		for _, c := range n.circuits {
			if c.Class != class {
				continue
			}
			value, err := n.read(c)
			if err != nil {
				n.logger.Warn("neuron: read failed", zap.Stringer("circuit", c), zap.Error(err))
				continue
			}
			if ch, ok := n.update(c, value); ok {
				changes = append(changes, ch)
			}
		}
	}
	return changes
}

func (n *Neuron) read(c Circuit) (float64, error) {
	f := n.files[c]
	if c.Class.Analog() {
		v, err := f.readAnalog()
		if err != nil {
			n.logger.Warn("neuron: bad analog value", zap.Stringer("circuit", c), zap.Error(err))
			return 0, nil
		}
		return v, nil
	}
	on, err := f.readDigital()
	if err != nil {
		return 0, err
	}
	if on {
		return 1, nil
	}
	return 0, nil
}

func (n *Neuron) update(c Circuit, value float64) (Change, bool) {
	n.mu.Lock()
	prev, seen := n.previous[c]
	n.previous[c] = value
	n.mu.Unlock()

	if seen && prev == value {
		return Change{}, false
	}
	ch := Change{Circuit: c, Value: value}
	if n.onChange != nil {
		n.onChange(ch)
	}
	return ch, true
}

// Value returns the last observed value of c.
func (n *Neuron) Value(c Circuit) (float64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.previous[c]
	return v, ok
}

func (n *Neuron) Values() map[Circuit]float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[Circuit]float64, len(n.previous))
	for c, v := range n.previous {
		out[c] = v
	}
	return out
}

func (n *Neuron) SetRelayOutput(name string, on bool) bool {
	return n.setDigital(RelayOutput, name, on)
}

func (n *Neuron) SetDigitalOutput(name string, on bool) bool {
	return n.setDigital(DigitalOutput, name, on)
}

func (n *Neuron) SetUserLED(index uint8, on bool) bool {
	return n.setDigital(UserLED, fmt.Sprintf("0.%d", index), on)
}

func (n *Neuron) SetAnalogOutput(name string, volts float64) bool {
	c, f, ok := n.lookup(AnalogOutput, name)
	if !ok {
		return false
	}
	if err := f.writeAnalog(volts); err != nil {
		n.logger.Warn("neuron: write failed", zap.Stringer("circuit", c), zap.Error(err))
		return false
	}
	// analog outputs are not read back, so the written value is the state
	n.update(c, volts)
	return true
}

// Set writes value to c. Digital circuits take any non zero value as on.
func (n *Neuron) Set(c Circuit, value float64) bool {
	switch c.Class {
	case AnalogOutput:
		return n.SetAnalogOutput(c.Name(), value)
	case RelayOutput, DigitalOutput, UserLED:
		return n.setDigital(c.Class, c.Name(), value != 0)
	default:
		n.logger.Warn("neuron: circuit is not writable", zap.Stringer("circuit", c))
		return false
	}
}

func (n *Neuron) setDigital(class IOClass, name string, on bool) bool {
	c, f, ok := n.lookup(class, name)
	if !ok {
		return false
	}
	if err := f.writeDigital(on); err != nil {
		n.logger.Warn("neuron: write failed", zap.Stringer("circuit", c), zap.Error(err))
		return false
	}
	return true
}

func (n *Neuron) lookup(class IOClass, name string) (Circuit, *ioFile, bool) {
	for _, c := range n.circuits {
		if c.Class == class && c.Name() == name {
			return c, n.files[c], true
		}
	}
	n.logger.Warn("neuron: unknown circuit", zap.String("class", class.String()), zap.String("name", name))
	return Circuit{}, nil, false
}

