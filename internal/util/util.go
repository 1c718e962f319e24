package util

import (
	"github.com/berfenger/easee2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "easee_test",
		},
		Services: config.ServicesConfig{
			CallTimeoutMillis:       2000,
			HeartbeatIntervalMillis: 60000,
		},
		Backend: config.BackendConfig{
			Type:         config.BACKEND_MQTT,
			CommandTopic: "easee_test/cmd",
			Modbus: config.ModbusBackendConfig{
				TimeoutMillis: 1000,
				Registers: config.ModbusRegisterMap{
					Command:        100,
					ChargePlan:     200,
					DynamicCurrent: 300,
				},
			},
		},
		Chargers: []config.ChargerConfig{
			{Id: "EH12345", Name: "Garage"},
		},
		Circuits: []config.CircuitConfig{
			{Id: 1},
		},
		Port: 8080,
	}
}
