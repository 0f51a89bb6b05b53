package util

import (
	"github.com/berfenger/modbus2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	slave := 1
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "modbus2mqtt",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		Modbus: config.ModbusConfig{
			Driver:            config.DriverSimulator,
			TimeoutMillis:     1000,
			TaskTimeoutMillis: 2000,
		},
		Devices: []config.DeviceConfig{
			{
				Id:                 "pv",
				Model:              "sunspec",
				SlaveId:            &slave,
				PollIntervalMillis: 500,
			},
			{
				Id:                 "heatpump",
				Model:              "alpha_connect",
				SlaveId:            &slave,
				PollIntervalMillis: 500,
			},
		},
		Port: 8080,
	}
}
