package actor

import (
	"time"

	"github.com/berfenger/modbus2mqtt/internal/config"
	"github.com/berfenger/modbus2mqtt/pkg/devices"
	"github.com/berfenger/modbus2mqtt/pkg/modbusclient"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"
	"github.com/berfenger/modbus2mqtt/pkg/sunspec_modbus"
)

// TransportProvider returns the transport of a configured device. It is
// called once per device; restarts of the device actor reuse it.
type TransportProvider func(dev config.DeviceConfig, desc devices.Descriptor) (regmap.Transport, error)

// PoolTransports shares one link per bus or gateway across devices.
func PoolTransports(pool *modbusclient.Pool, timeout time.Duration) TransportProvider {
	return func(dev config.DeviceConfig, desc devices.Descriptor) (regmap.Transport, error) {
		link, err := dev.Link(desc, timeout)
		if err != nil {
			return nil, err
		}
		return pool.Get(link)
	}
}

// SimulatorTransports backs every device with an in memory register file.
// SunSpec devices get a simulated inverter so that the survey succeeds.
func SimulatorTransports() TransportProvider {
	return func(dev config.DeviceConfig, desc devices.Descriptor) (regmap.Transport, error) {
		mem := modbusclient.NewMemoryTransport()
		if desc.Model == devices.ModelSunSpec {
			sunspec_modbus.Simulate(mem, uint8(dev.Slave(desc)))
		}
		return mem, nil
	}
}
