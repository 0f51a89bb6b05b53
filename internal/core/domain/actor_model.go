package domain

import (
	"errors"

	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

const (
	ACTOR_ID_MASTER        = "master"
	ACTOR_ID_MQTT          = "mqtt"
	ACTOR_ID_HA_DISCOVERY  = "hadiscovery"
	ACTOR_ID_NEURON        = "neuron"
	ACTOR_ID_DEVICE_PREFIX = "device_"
)

var (
	ErrUnknownDevice         = errors.New("unknown device")
	ErrNotInitialized        = errors.New("device not initialized")
	ErrWriteRejected         = errors.New("write rejected by device")
	ErrInvalidPayload        = errors.New("invalid command payload")
	ErrUnknownCommand        = errors.New("unknown command target")
	ErrComponentTypeMismatch = errors.New("command does not match property type")
)

func DeviceActorId(deviceId string) string {
	return ACTOR_ID_DEVICE_PREFIX + deviceId
}

// PollTick starts one read cycle of a device.
type PollTick struct {
}

type GetDevicesRequest struct {
	ActorRequestMixIn
}

type GetDevicesResponse struct {
	ActorResponseMixIn
	Devices []DeviceInfo
}

type GetDeviceInfoRequest struct {
	ActorRequestMixIn
}

type GetDeviceInfoResponse struct {
	ActorResponseMixIn
	Device DeviceInfo
}

type GetDeviceValuesRequest struct {
	ActorRequestMixIn
	DeviceId string
}

type GetDeviceValuesResponse struct {
	ActorResponseMixIn
	Device DeviceInfo
	Values map[string]regmap.Value
}

type WritePropertyRequest struct {
	ActorRequestMixIn
	DeviceId string
	Property string
	Value    float64
}

type WritePropertyResponse struct {
	ActorResponseMixIn
	DeviceId string
	Property string
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
	Selects      []GenericSelect
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// DeviceDiscoveryRequest asks the discovery actor to announce a device.
type DeviceDiscoveryRequest struct {
	ActorRequestMixIn
	Device DeviceInfo
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

type CommandType string

const (
	COMMAND_TYPE_SWITCH CommandType = "switch"
	COMMAND_TYPE_NUMBER CommandType = "number"
	COMMAND_TYPE_SELECT CommandType = "select"
)

// Command is a write received on the bus, addressed by component id.
type Command struct {
	Type     CommandType
	TargetId string
	Payload  string
}
