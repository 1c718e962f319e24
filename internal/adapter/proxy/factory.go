package proxy

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/easee2mqtt/internal/config"
	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/core/port"
	"github.com/berfenger/easee2mqtt/internal/core/service"
	"github.com/berfenger/easee2mqtt/pkg/charger_modbus"

	"go.uber.org/zap"
)

// RegisterClientFactory opens the register client of one Modbus endpoint.
type RegisterClientFactory func(endpoint config.ModbusEndpointConfig) (charger_modbus.RegisterClient, error)

// NewMQTTRegistry builds the proxies of every configured device on top of
// the MQTT command backend.
func NewMQTTRegistry(cfg *config.Config, publisher port.CommandPublisher, logger *zap.Logger) *service.Registry {
	var chargers []domain.Charger
	for _, c := range cfg.Chargers {
		chargers = append(chargers, NewMQTTCharger(c.Id, cfg.Backend.CommandTopic, publisher, logger))
	}
	var circuits []domain.Circuit
	for _, c := range cfg.Circuits {
		circuits = append(circuits, NewMQTTCircuit(c.Id, cfg.Backend.CommandTopic, publisher, logger))
	}
	return service.NewRegistry(chargers, circuits)
}

// NewModbusRegistry builds the proxies of every configured device on top of
// the Modbus backend. The returned closer releases every opened client.
func NewModbusRegistry(cfg *config.Config, factory RegisterClientFactory) (*service.Registry, func() error, error) {
	registers := charger_modbus.RegisterMap{
		Command:        cfg.Backend.Modbus.Registers.Command,
		ChargePlan:     cfg.Backend.Modbus.Registers.ChargePlan,
		DynamicCurrent: cfg.Backend.Modbus.Registers.DynamicCurrent,
	}

	var endpoints []*charger_modbus.Endpoint
	closer := func() error {
		var errs []error
		for _, e := range endpoints {
			errs = append(errs, e.Close())
		}
		return errors.Join(errs...)
	}
	open := func(endpointCfg config.ModbusEndpointConfig) (*charger_modbus.Endpoint, error) {
		client, err := factory(endpointCfg)
		if err != nil {
			return nil, err
		}
		endpoint := charger_modbus.NewEndpoint(client, registers)
		endpoints = append(endpoints, endpoint)
		return endpoint, nil
	}

	var chargers []domain.Charger
	for _, c := range cfg.Chargers {
		endpoint, err := open(c.Modbus)
		if err != nil {
			_ = closer()
			return nil, nil, fmt.Errorf("charger %s: %w", c.Id, err)
		}
		chargers = append(chargers, NewModbusCharger(c.Id, endpoint))
	}
	var circuits []domain.Circuit
	for _, c := range cfg.Circuits {
		endpoint, err := open(c.Modbus)
		if err != nil {
			_ = closer()
			return nil, nil, fmt.Errorf("circuit %d: %w", c.Id, err)
		}
		circuits = append(circuits, NewModbusCircuit(c.Id, endpoint))
	}
	return service.NewRegistry(chargers, circuits), closer, nil
}

// ModbusTCPClientFactory opens real Modbus TCP clients.
func ModbusTCPClientFactory(cfg *config.Config, logger *zap.Logger, instrumentation *charger_modbus.ModbusInstrument) RegisterClientFactory {
	timeout := time.Duration(cfg.Backend.Modbus.TimeoutMillis) * time.Millisecond
	return func(endpoint config.ModbusEndpointConfig) (charger_modbus.RegisterClient, error) {
		tcpPort := endpoint.Port
		if tcpPort == 0 {
			tcpPort = 502
		}
		return charger_modbus.CreateModbusClient(endpoint.Host, tcpPort, endpoint.UnitId, timeout, logger, instrumentation)
	}
}
