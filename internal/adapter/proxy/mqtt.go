package proxy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// CommandResult is returned once the broker accepted a device command.
type CommandResult struct {
	Command  string `json:"command"`
	Accepted bool   `json:"accepted"`
}

type chargerCommand struct {
	Command string `json:"command"`
}

type circuitCommand struct {
	Command   string `json:"command"`
	CurrentP1 *int   `json:"currentP1,omitempty"`
	CurrentP2 *int   `json:"currentP2,omitempty"`
	CurrentP3 *int   `json:"currentP3,omitempty"`
}

// MQTTCharger forwards every action as a JSON command on the charger topic.
type MQTTCharger struct {
	id        string
	topic     string
	publisher port.CommandPublisher
	logger    *zap.Logger
}

func NewMQTTCharger(id string, commandTopic string, publisher port.CommandPublisher, logger *zap.Logger) *MQTTCharger {
	return &MQTTCharger{
		id:        id,
		topic:     fmt.Sprintf("%s/charger/%s", commandTopic, id),
		publisher: publisher,
		logger:    logger.With(zap.String("charger_id", id)),
	}
}

func (c *MQTTCharger) Id() string {
	return c.id
}

func (c *MQTTCharger) send(ctx context.Context, command string) (any, error) {
	payload, err := json.Marshal(chargerCommand{Command: command})
	if err != nil {
		return nil, err
	}
	if err := c.publisher.PublishCommand(ctx, c.topic, payload); err != nil {
		return nil, fmt.Errorf("charger %s %s: %w", c.id, command, err)
	}
	c.logger.Debug("command sent", zap.String("command", command))
	return CommandResult{Command: command, Accepted: true}, nil
}

func (c *MQTTCharger) Start(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_START)
}

func (c *MQTTCharger) Stop(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_STOP)
}

func (c *MQTTCharger) Pause(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_PAUSE)
}

func (c *MQTTCharger) Resume(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_RESUME)
}

func (c *MQTTCharger) Toggle(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_TOGGLE)
}

func (c *MQTTCharger) OverrideSchedule(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_OVERRIDE_SCHEDULE)
}

func (c *MQTTCharger) SmartCharging(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_SMART_CHARGING)
}

func (c *MQTTCharger) Reboot(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_REBOOT)
}

func (c *MQTTCharger) UpdateFirmware(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_UPDATE_FIRMWARE)
}

func (c *MQTTCharger) GetBasicChargePlan(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_GET_BASIC_CHARGE_PLAN)
}

type MQTTCircuit struct {
	id        int
	topic     string
	publisher port.CommandPublisher
	logger    *zap.Logger
}

func NewMQTTCircuit(id int, commandTopic string, publisher port.CommandPublisher, logger *zap.Logger) *MQTTCircuit {
	return &MQTTCircuit{
		id:        id,
		topic:     fmt.Sprintf("%s/circuit/%d", commandTopic, id),
		publisher: publisher,
		logger:    logger.With(zap.Int("circuit_id", id)),
	}
}

func (c *MQTTCircuit) Id() int {
	return c.id
}

func (c *MQTTCircuit) SetDynamicCurrent(ctx context.Context, currentP1, currentP2, currentP3 *int) (any, error) {
	payload, err := json.Marshal(circuitCommand{
		Command:   domain.SERVICE_SET_DYNAMIC_CURRENT,
		CurrentP1: currentP1,
		CurrentP2: currentP2,
		CurrentP3: currentP3,
	})
	if err != nil {
		return nil, err
	}
	if err := c.publisher.PublishCommand(ctx, c.topic, payload); err != nil {
		return nil, fmt.Errorf("circuit %d %s: %w", c.id, domain.SERVICE_SET_DYNAMIC_CURRENT, err)
	}
	c.logger.Debug("command sent", zap.ByteString("payload", payload))
	return CommandResult{Command: domain.SERVICE_SET_DYNAMIC_CURRENT, Accepted: true}, nil
}

// ensure interface compliance
var _ domain.Charger = (*MQTTCharger)(nil)
var _ domain.Circuit = (*MQTTCircuit)(nil)
