package proxy

import (
	"context"
	"fmt"
	"math"

	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/pkg/charger_modbus"
)

// DynamicCurrentResult echoes the phases written to a circuit. Absent phases stay nil.
type DynamicCurrentResult struct {
	CircuitId int  `json:"circuit_id"`
	CurrentP1 *int `json:"currentP1,omitempty"`
	CurrentP2 *int `json:"currentP2,omitempty"`
	CurrentP3 *int `json:"currentP3,omitempty"`
}

type ModbusCharger struct {
	id       string
	endpoint *charger_modbus.Endpoint
}

func NewModbusCharger(id string, endpoint *charger_modbus.Endpoint) *ModbusCharger {
	return &ModbusCharger{
		id:       id,
		endpoint: endpoint,
	}
}

func (c *ModbusCharger) Id() string {
	return c.id
}

func (c *ModbusCharger) send(ctx context.Context, command string, code uint16) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.endpoint.SendCommand(code); err != nil {
		return nil, fmt.Errorf("charger %s %s: %w", c.id, command, err)
	}
	return CommandResult{Command: command, Accepted: true}, nil
}

func (c *ModbusCharger) Start(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_START, charger_modbus.COMMAND_START)
}

func (c *ModbusCharger) Stop(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_STOP, charger_modbus.COMMAND_STOP)
}

func (c *ModbusCharger) Pause(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_PAUSE, charger_modbus.COMMAND_PAUSE)
}

func (c *ModbusCharger) Resume(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_RESUME, charger_modbus.COMMAND_RESUME)
}

func (c *ModbusCharger) Toggle(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_TOGGLE, charger_modbus.COMMAND_TOGGLE)
}

func (c *ModbusCharger) OverrideSchedule(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_OVERRIDE_SCHEDULE, charger_modbus.COMMAND_OVERRIDE_SCHEDULE)
}

func (c *ModbusCharger) SmartCharging(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_SMART_CHARGING, charger_modbus.COMMAND_SMART_CHARGING)
}

func (c *ModbusCharger) Reboot(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_REBOOT, charger_modbus.COMMAND_REBOOT)
}

func (c *ModbusCharger) UpdateFirmware(ctx context.Context) (any, error) {
	return c.send(ctx, domain.SERVICE_UPDATE_FIRMWARE, charger_modbus.COMMAND_UPDATE_FIRMWARE)
}

func (c *ModbusCharger) GetBasicChargePlan(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regs, err := c.endpoint.ReadChargePlan()
	if err != nil {
		return nil, fmt.Errorf("charger %s: %w", c.id, err)
	}
	return domain.BasicChargePlan{
		Id:              c.id,
		ChargeStartTime: secondsToTimeOfDay(regs.StartSeconds).String(),
		ChargeStopTime:  secondsToTimeOfDay(regs.StopSeconds).String(),
		Repeat:          regs.Repeat,
		Enabled:         regs.Enabled,
	}, nil
}

type ModbusCircuit struct {
	id       int
	endpoint *charger_modbus.Endpoint
}

func NewModbusCircuit(id int, endpoint *charger_modbus.Endpoint) *ModbusCircuit {
	return &ModbusCircuit{
		id:       id,
		endpoint: endpoint,
	}
}

func (c *ModbusCircuit) Id() int {
	return c.id
}

func (c *ModbusCircuit) SetDynamicCurrent(ctx context.Context, currentP1, currentP2, currentP3 *int) (any, error) {
	for phase, current := range []*int{currentP1, currentP2, currentP3} {
		if current == nil {
			continue
		}
		if *current < 0 || *current > math.MaxUint16 {
			return nil, fmt.Errorf("circuit %d: phase %d current %d out of range", c.id, phase+1, *current)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.endpoint.WritePhaseCurrent(phase+1, uint16(*current)); err != nil {
			return nil, fmt.Errorf("circuit %d: %w", c.id, err)
		}
	}
	return DynamicCurrentResult{
		CircuitId: c.id,
		CurrentP1: currentP1,
		CurrentP2: currentP2,
		CurrentP3: currentP3,
	}, nil
}

func secondsToTimeOfDay(seconds uint32) domain.TimeOfDay {
	seconds = seconds % (24 * 3600)
	return domain.TimeOfDay{
		Hour:   int(seconds / 3600),
		Minute: int(seconds % 3600 / 60),
		Second: int(seconds % 60),
	}
}

// ensure interface compliance
var _ domain.Charger = (*ModbusCharger)(nil)
var _ domain.Circuit = (*ModbusCircuit)(nil)
