package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/berfenger/easee2mqtt/internal/config"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func initConfig(cfgFile string) (*config.Config, error) {

	// alias PORT => EASEE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("EASEE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("easee")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile == "" {
		cfgFile = os.Getenv("CONFIG_FILE")
	}
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Services.CallTimeoutMillis < 100 {
		return nil, errors.New("config param services.call_timeout_millis should be >= 100")
	}
	if cfg.Services.HeartbeatIntervalMillis < 1000 {
		return nil, errors.New("config param services.heartbeat_interval_millis should be >= 1000")
	}

	switch cfg.Backend.Type {
	case config.BACKEND_MQTT:
		if strings.Trim(cfg.Backend.CommandTopic, "/") == "" {
			return nil, errors.New("config param backend.command_topic is required by the mqtt backend")
		}
		cfg.Backend.CommandTopic = strings.Trim(cfg.Backend.CommandTopic, "/")
	case config.BACKEND_MODBUS:
		if cfg.Backend.Modbus.TimeoutMillis == 0 {
			return nil, errors.New("config param backend.modbus.timeout_millis should be > 0")
		}
	default:
		return nil, errors.New("config param backend.type must be one of mqtt, modbus")
	}

	if err := config.CheckDevices(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "easee")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("services.call_timeout_millis", 30000)
	viper.SetDefault("services.heartbeat_interval_millis", 60000)
	viper.SetDefault("backend.type", config.BACKEND_MQTT)
	viper.SetDefault("backend.command_topic", "easee/cmd")
	viper.SetDefault("backend.modbus.timeout_millis", 1000)
	viper.SetDefault("backend.modbus.registers.command", 100)
	viper.SetDefault("backend.modbus.registers.charge_plan", 200)
	viper.SetDefault("backend.modbus.registers.dynamic_current", 300)
	viper.SetDefault("port", 8080)
}
