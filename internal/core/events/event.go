package events

import (
	"math"

	. "github.com/berfenger/modbus2mqtt/internal/core/domain"
	"github.com/berfenger/modbus2mqtt/pkg/regmap"
)

// PropertyChangedToUpdateEvent maps a property change to the sensor update
// of its MQTT component. It returns nil for values that cannot be
// represented, such as a cleared cache entry.
func PropertyChangedToUpdateEvent(ev PropertyChangedEvent) SensorUpdateEvent {
	if ev.Value.IsZero() {
		return nil
	}
	mixin := SensorUpdateEventMixIn{
		Id: SensorId(ev.DeviceId, ev.Property.Name),
	}

	switch ev.Property.Kind {
	case PROPERTY_KIND_SWITCH:
		return SwitchSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  isOn(ev.Value),
		}
	case PROPERTY_KIND_BINARY:
		return BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  isOn(ev.Value),
		}
	case PROPERTY_KIND_ENUM:
		if ev.Property.Writable {
			return SelectSensorUpdateEvent{
				SensorUpdateEventMixIn: mixin,
				Value:                  ev.Value.String(),
			}
		}
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  ev.Value.String(),
		}
	case PROPERTY_KIND_NUMBER:
		value, ok := ev.Value.Float64()
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil
		}
		if ev.Property.Writable {
			return InputNumberSensorUpdateEvent{
				SensorUpdateEventMixIn: mixin,
				Value:                  value,
				Decimals:               ev.Property.Decimals,
			}
		}
		return FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  value,
			Decimals:               ev.Property.Decimals,
		}
	default:
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: mixin,
			Value:                  textOf(ev),
		}
	}
}

func BridgeStateUpdateEvents(online bool) []any {
	return []any{BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}}
}

func isOn(v regmap.Value) bool {
	f, ok := v.Float64()
	return ok && f != 0
}

func textOf(ev PropertyChangedEvent) string {
	if ev.Text != "" {
		return ev.Text
	}
	return ev.Value.String()
}
