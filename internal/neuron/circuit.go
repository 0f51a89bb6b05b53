package neuron

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

type IOClass uint8

const (
	RelayOutput IOClass = iota
	DigitalOutput
	DigitalInput
	AnalogInput
	AnalogOutput
	UserLED
)

// pollOrder is the order in which one cycle reads the circuit classes.
// Analog outputs cannot be read back from the kernel driver.
var pollOrder = []IOClass{RelayOutput, DigitalInput, UserLED, DigitalOutput, AnalogInput}

var classes = []IOClass{RelayOutput, DigitalOutput, DigitalInput, AnalogInput, AnalogOutput, UserLED}

func (c IOClass) Prefix() string {
	switch c {
	case RelayOutput:
		return "RO"
	case DigitalOutput:
		return "DO"
	case DigitalInput:
		return "DI"
	case AnalogInput:
		return "AI"
	case AnalogOutput:
		return "AO"
	case UserLED:
		return "LED"
	default:
		return ""
	}
}

func (c IOClass) String() string {
	switch c {
	case RelayOutput:
		return "relay_output"
	case DigitalOutput:
		return "digital_output"
	case DigitalInput:
		return "digital_input"
	case AnalogInput:
		return "analog_input"
	case AnalogOutput:
		return "analog_output"
	case UserLED:
		return "user_led"
	default:
		return fmt.Sprintf("%s(%d)", "unknown", c)
	}
}

func (c IOClass) Analog() bool {
	return c == AnalogInput || c == AnalogOutput
}

func (c IOClass) Writable() bool {
	return c != DigitalInput && c != AnalogInput
}

func (c IOClass) Readable() bool {
	return c != AnalogOutput
}

func classOfPrefix(prefix string) (IOClass, bool) {
	for _, c := range classes {
		if strings.EqualFold(c.Prefix(), prefix) {
			return c, true
		}
	}
	return 0, false
}

// Circuit is one IO of the board, named <group>.<index> by the driver.
// User LEDs have no group.
type Circuit struct {
	Class IOClass
	Group uint8
	Index uint8
}

func (c Circuit) Name() string {
	return fmt.Sprintf("%d.%d", c.Group, c.Index)
}

func (c Circuit) String() string {
	return c.Class.Prefix() + c.Name()
}

// ID is the identifier used on the bus: neuron_<prefix>_<group>_<index>.
func (c Circuit) ID() string {
	return fmt.Sprintf("neuron_%s_%d_%d", strings.ToLower(c.Class.Prefix()), c.Group, c.Index)
}

func ParseCircuitID(id string) (Circuit, error) {
	parts := strings.Split(id, "_")
	if len(parts) != 4 || parts[0] != "neuron" {
		return Circuit{}, fmt.Errorf("invalid circuit id %q", id)
	}
	class, ok := classOfPrefix(parts[1])
	if !ok {
		return Circuit{}, fmt.Errorf("invalid circuit class in %q", id)
	}
	group, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return Circuit{}, fmt.Errorf("invalid circuit group in %q: %w", id, err)
	}
	index, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return Circuit{}, fmt.Errorf("invalid circuit index in %q: %w", id, err)
	}
	return Circuit{Class: class, Group: uint8(group), Index: uint8(index)}, nil
}

// valuePath is the pseudo file holding the circuit value.
func (c Circuit) valuePath(baseDir string) string {
	switch c.Class {
	case UserLED:
		return filepath.Join(baseDir, "leds", fmt.Sprintf("unipi:green:uled-x%d", c.Index), "brightness")
	case AnalogInput:
		return filepath.Join(baseDir, c.String(), "in_voltage_raw")
	case AnalogOutput:
		return filepath.Join(baseDir, c.String(), "out_voltage_raw")
	default:
		return filepath.Join(baseDir, c.String(), "value")
	}
}
