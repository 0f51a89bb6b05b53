package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_DURATION        = "duration"
	DEVICE_CLASS_IRRADIANCE      = "irradiance"
	DEVICE_CLASS_WIND_SPEED      = "wind_speed"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	ENTITY_CLASS_CONFIG          = "config"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	INPUT_NUMBER_MODE_BOX        = "box"
	INPUT_NUMBER_MODE_SLIDER     = "slider"
)

// SensorId is the MQTT object id of a device property.
func SensorId(deviceId, property string) string {
	return strings.ToLower(fmt.Sprintf("%s_%s", deviceId, property))
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("modbus2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "modbus2mqtt",
		Model:        "Modbus bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("modbus2mqtt %s", md5HashShort(baseTopic)),
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Bridge state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

func ModbusDevice(info DeviceInfo, viaDevice string) Device {
	name := info.Name
	if name == "" {
		name = fmt.Sprintf("%s %s", info.Manufacturer, info.Model)
	}
	return Device{
		Id:           fmt.Sprintf("m2m_%s_%s", info.Id, md5HashShort(info.Id+info.Serial)),
		Name:         name,
		Version:      info.Version,
		Model:        info.Model,
		Manufacturer: info.Manufacturer,
		ViaDevice:    viaDevice,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// Components lists the discovery components of a device. Full device
// details go with the first component only.
type Components struct {
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
	Selects      []GenericSelect
}

func DeviceComponents(device Device, info DeviceInfo) Components {
	var c Components
	first := true
	dev := func() Device {
		if first {
			first = false
			return device
		}
		return IdDevice(device)
	}

	for _, p := range info.Properties {
		id := SensorId(info.Id, p.Name)
		name := humanize(p.Name)
		switch {
		case p.Kind == PROPERTY_KIND_SWITCH:
			c.Switches = append(c.Switches, GenericSwitch{
				Device:   dev(),
				Id:       id,
				Name:     name,
				UniqueId: uniqueId(device.Id, id),
			})
		case p.Kind == PROPERTY_KIND_ENUM && p.Writable:
			var options []string
			for _, o := range p.Options {
				options = append(options, o.Name)
			}
			c.Selects = append(c.Selects, GenericSelect{
				Device:   dev(),
				Id:       id,
				Name:     name,
				UniqueId: uniqueId(device.Id, id),
				Options:  options,
			})
		case p.Kind == PROPERTY_KIND_NUMBER && p.Writable:
			c.InputNumbers = append(c.InputNumbers, GenericInputNumber{
				Device:            dev(),
				Id:                id,
				Name:              name,
				UniqueId:          uniqueId(device.Id, id),
				UnitOfMeasurement: p.Unit,
				Min:               p.Min,
				Max:               p.Max,
				Step:              p.Step,
				Mode:              INPUT_NUMBER_MODE_BOX,
			})
		case p.Kind == PROPERTY_KIND_BINARY:
			c.Sensors = append(c.Sensors, GenericSensor{
				Device:     dev(),
				Id:         id,
				SensorType: SENSOR_TYPE_BINARY,
				Name:       name,
				UniqueId:   uniqueId(device.Id, id),
			})
		default:
			s := GenericSensor{
				Device:     dev(),
				Id:         id,
				SensorType: SENSOR_TYPE_SENSOR,
				Name:       name,
				UniqueId:   uniqueId(device.Id, id),
			}
			if p.Kind == PROPERTY_KIND_NUMBER {
				s.UnitOfMeasurement = p.Unit
				s.DeviceClass, s.StateClass = classesOfUnit(p.Unit)
			} else {
				s.EntityCategory = ENTITY_CLASS_DIAGNOSTIC
			}
			c.Sensors = append(c.Sensors, s)
		}
	}
	return c
}

func classesOfUnit(unit string) (string, string) {
	switch unit {
	case "V":
		return DEVICE_CLASS_VOLTAGE, STATE_CLASS_MEASUREMENT
	case "A":
		return DEVICE_CLASS_CURRENT, STATE_CLASS_MEASUREMENT
	case "W", "kW":
		return DEVICE_CLASS_POWER, STATE_CLASS_MEASUREMENT
	case "Wh", "kWh":
		return DEVICE_CLASS_ENERGY, STATE_CLASS_TOTAL_INCREASING
	case "Hz":
		return DEVICE_CLASS_FREQUENCY, STATE_CLASS_MEASUREMENT
	case "°C":
		return DEVICE_CLASS_TEMPERATURE, STATE_CLASS_MEASUREMENT
	case "h", "s":
		return DEVICE_CLASS_DURATION, STATE_CLASS_TOTAL_INCREASING
	case "W/m2":
		return DEVICE_CLASS_IRRADIANCE, STATE_CLASS_MEASUREMENT
	case "m/s":
		return DEVICE_CLASS_WIND_SPEED, STATE_CLASS_MEASUREMENT
	case "":
		return "", ""
	default:
		return "", STATE_CLASS_MEASUREMENT
	}
}

// humanize turns a property name like hotWaterSetpointTemperature or
// meter_W into a display name.
func humanize(name string) string {
	var b strings.Builder
	prevLower := false
	for i, r := range name {
		switch {
		case r == '_':
			b.WriteRune(' ')
			prevLower = false
			continue
		case r >= 'A' && r <= 'Z' && prevLower:
			b.WriteRune(' ')
		}
		if i == 0 && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		b.WriteRune(r)
		prevLower = r >= 'a' && r <= 'z'
	}
	return b.String()
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
