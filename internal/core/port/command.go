package port

import (
	"github.com/berfenger/modbus2mqtt/internal/core/domain"
)

// CommandLogic resolves commands received on the bus into write requests
// for the device owning the addressed property.
type CommandLogic interface {
	Register(device domain.DeviceInfo)
	Unregister(deviceId string)
	Resolve(cmd domain.Command) (domain.WritePropertyRequest, error)
}
