package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	BACKEND_MQTT   = "mqtt"
	BACKEND_MODBUS = "modbus"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig      `mapstructure:"mqtt"`
	Services ServicesConfig  `mapstructure:"services"`
	Backend  BackendConfig   `mapstructure:"backend"`
	Chargers []ChargerConfig `mapstructure:"chargers"`
	Circuits []CircuitConfig `mapstructure:"circuits"`
	Port     uint            `mapstructure:"port"`
	HttpLog  bool            `mapstructure:"http_log"`
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

type ServicesConfig struct {
	CallTimeoutMillis       uint32 `mapstructure:"call_timeout_millis"`
	HeartbeatIntervalMillis uint32 `mapstructure:"heartbeat_interval_millis"`
}

type BackendConfig struct {
	Type         string
	CommandTopic string              `mapstructure:"command_topic"`
	Modbus       ModbusBackendConfig `mapstructure:"modbus"`
}

type ModbusBackendConfig struct {
	TimeoutMillis uint32            `mapstructure:"timeout_millis"`
	Registers     ModbusRegisterMap `mapstructure:"registers"`
}

// ModbusRegisterMap holds the holding register addresses used by the Modbus backend.
type ModbusRegisterMap struct {
	Command        uint16 `mapstructure:"command"`
	ChargePlan     uint16 `mapstructure:"charge_plan"`
	DynamicCurrent uint16 `mapstructure:"dynamic_current"`
}

type ModbusEndpointConfig struct {
	Host   string
	Port   uint
	UnitId uint8 `mapstructure:"unit_id"`
}

type ChargerConfig struct {
	Id     string
	Name   string
	Modbus ModbusEndpointConfig `mapstructure:"modbus"`
}

type CircuitConfig struct {
	Id     int
	Modbus ModbusEndpointConfig `mapstructure:"modbus"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// CheckDevices validates the configured chargers and circuits against the backend.
func CheckDevices(cfg *Config) error {
	chargerIdRegexp := regexp.MustCompile("^[a-zA-Z0-9_-]+$")
	chargerIds := map[string]bool{}
	for _, c := range cfg.Chargers {
		if !chargerIdRegexp.MatchString(c.Id) {
			return fmt.Errorf("invalid charger id %q. can only contain letters, numbers, dashes and underscores", c.Id)
		}
		if chargerIds[c.Id] {
			return fmt.Errorf("duplicated charger id %s", c.Id)
		}
		chargerIds[c.Id] = true
		if cfg.Backend.Type == BACKEND_MODBUS && c.Modbus.Host == "" {
			return fmt.Errorf("charger %s: modbus.host is required by the modbus backend", c.Id)
		}
	}
	circuitIds := map[int]bool{}
	for _, c := range cfg.Circuits {
		if c.Id < 0 {
			return fmt.Errorf("invalid circuit id %d. must be >= 0", c.Id)
		}
		if circuitIds[c.Id] {
			return fmt.Errorf("duplicated circuit id %d", c.Id)
		}
		circuitIds[c.Id] = true
		if cfg.Backend.Type == BACKEND_MODBUS && c.Modbus.Host == "" {
			return fmt.Errorf("circuit %d: modbus.host is required by the modbus backend", c.Id)
		}
	}
	return nil
}
