package domain

import (
	"fmt"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

// PropertyChangedEvent is published on the event stream each time the
// cached value of a property changes.
type PropertyChangedEvent struct {
	DeviceId string
	Property PropertyInfo
	Value    regmap.Value
	// Text is the rendered value of flag sets, empty otherwise.
	Text string
}

// DeviceInitializedEvent is published once a device has completed its
// initialization handshake.
type DeviceInitializedEvent struct {
	Device DeviceInfo
}

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type SelectSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}
