package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/modbus2mqtt/pkg/devices"
	"github.com/berfenger/modbus2mqtt/pkg/modbusclient"

	"go.uber.org/zap/zapcore"
)

const (
	DriverSimulator = "simulator"

	MinPollIntervalMillis = 500

	// NeuronDeviceId is the device id taken by the Neuron when enabled.
	NeuronDeviceId = "neuron"
)

var (
	ErrInvalidSlaveAddress = devices.ErrInvalidSlaveAddress
	ErrMissingTransport    = errors.New("device has no transport configured")
	ErrDuplicateDevice     = errors.New("duplicate device id")
	ErrPollInterval        = errors.New("poll interval too short")
	ErrInvalidTopic        = errors.New("invalid topic. can only contain letters, numbers and underscores")
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Modbus   ModbusConfig   `mapstructure:"modbus"`
	Devices  []DeviceConfig `mapstructure:"devices"`
	Neuron   NeuronConfig   `mapstructure:"neuron"`
	Port     uint           `mapstructure:"port"`
	HttpLog  bool           `mapstructure:"http_log"`
}

type ModbusConfig struct {
	Driver            string `mapstructure:"driver"`
	TimeoutMillis     uint32 `mapstructure:"timeout_millis"`
	TaskTimeoutMillis uint32 `mapstructure:"task_timeout_millis"`
}

func (c ModbusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

func (c ModbusConfig) TaskTimeout() time.Duration {
	if c.TaskTimeoutMillis == 0 {
		return 2 * time.Second
	}
	return time.Duration(c.TaskTimeoutMillis) * time.Millisecond
}

type DeviceConfig struct {
	Id                 string
	Name               string
	Model              string
	Host               string
	Port               uint
	SerialPort         string `mapstructure:"serial_port"`
	BaudRate           uint   `mapstructure:"baud_rate"`
	DataBits           uint   `mapstructure:"data_bits"`
	Parity             string
	StopBits           uint   `mapstructure:"stop_bits"`
	SlaveId            *int   `mapstructure:"slave_id"`
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	PollCron           string `mapstructure:"poll_cron"`
}

func (d DeviceConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalMillis) * time.Millisecond
}

// Descriptor resolves the model table of the device and checks its slave id.
func (d DeviceConfig) Descriptor() (devices.Descriptor, error) {
	model, err := devices.ParseModel(d.Model)
	if err != nil {
		return devices.Descriptor{}, err
	}
	desc, err := devices.Describe(model)
	if err != nil {
		return devices.Descriptor{}, err
	}
	if err := desc.CheckSlaveId(d.Slave(desc)); err != nil {
		return devices.Descriptor{}, err
	}
	return desc, nil
}

// Slave is the configured slave id, or the model default when unset.
func (d DeviceConfig) Slave(desc devices.Descriptor) int {
	if d.SlaveId == nil {
		return int(desc.DefaultSlaveId)
	}
	return *d.SlaveId
}

// Link builds the modbus link of the device. Modbus TCP devices without a
// port use the model's default port.
func (d DeviceConfig) Link(desc devices.Descriptor, timeout time.Duration) (modbusclient.Config, error) {
	switch {
	case d.SerialPort != "":
		return modbusclient.RTUConfig(d.SerialPort, d.BaudRate, d.DataBits, d.Parity, d.StopBits, timeout), nil
	case d.Host != "":
		port := d.Port
		if port == 0 {
			port = desc.DefaultPort
		}
		return modbusclient.TCPConfig(d.Host, port, timeout), nil
	default:
		return modbusclient.Config{}, fmt.Errorf("%w: %s", ErrMissingTransport, d.Id)
	}
}

type NeuronConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	BaseDir            string `mapstructure:"base_dir"`
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// Validate checks every configured device and fixes topic casing.
func (c *Config) Validate() error {
	topic, err := CheckMQTTTopic(c.MQTT.BaseTopic)
	if err != nil {
		return fmt.Errorf("mqtt.base_topic: %w", err)
	}
	c.MQTT.BaseTopic = topic

	if c.MQTT.HADiscoveryTopic != "" {
		haTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic)
		if err != nil {
			return fmt.Errorf("mqtt.ha_discovery_topic: %w", err)
		}
		c.MQTT.HADiscoveryTopic = haTopic
	}

	seen := make(map[string]bool, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]
		d.Id = strings.ToLower(strings.TrimSpace(d.Id))
		if d.Id == "" {
			return fmt.Errorf("devices[%d]: missing id", i)
		}
		if _, err := CheckMQTTTopic(d.Id); err != nil {
			return fmt.Errorf("devices[%d].id: %w", i, err)
		}
		if seen[d.Id] || (c.Neuron.Enabled && d.Id == NeuronDeviceId) {
			return fmt.Errorf("%w: %s", ErrDuplicateDevice, d.Id)
		}
		seen[d.Id] = true

		desc, err := d.Descriptor()
		if err != nil {
			return fmt.Errorf("device %s: %w", d.Id, err)
		}
		if c.Modbus.Driver != DriverSimulator {
			if _, err := d.Link(desc, c.Modbus.Timeout()); err != nil {
				return err
			}
		}
		if d.PollCron == "" && d.PollIntervalMillis < MinPollIntervalMillis {
			return fmt.Errorf("%w: device %s polls every %dms, minimum is %dms", ErrPollInterval, d.Id, d.PollIntervalMillis, MinPollIntervalMillis)
		}
	}
	return nil
}

func (c *Config) Device(id string) (DeviceConfig, bool) {
	for _, d := range c.Devices {
		if d.Id == id {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

var topicRegexp = regexp.MustCompile("^[a-z0-9_]+$")

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	if !topicRegexp.MatchString(lowerBaseTopic) {
		return "", ErrInvalidTopic
	}
	return lowerBaseTopic, nil
}
