package charger_modbus

import (
	"fmt"
)

// Command codes written to the command register.
const (
	COMMAND_START             uint16 = 1
	COMMAND_STOP              uint16 = 2
	COMMAND_PAUSE             uint16 = 3
	COMMAND_RESUME            uint16 = 4
	COMMAND_TOGGLE            uint16 = 5
	COMMAND_OVERRIDE_SCHEDULE uint16 = 6
	COMMAND_SMART_CHARGING    uint16 = 7
	COMMAND_REBOOT            uint16 = 8
	COMMAND_UPDATE_FIRMWARE   uint16 = 9
)

const (
	// start seconds (2 words), stop seconds (2 words), repeat, enabled
	CHARGE_PLAN_BLOCK_SIZE = 6
	PHASE_COUNT            = 3
)

type RegisterMap struct {
	Command        uint16
	ChargePlan     uint16
	DynamicCurrent uint16
}

type ChargePlanRegisters struct {
	StartSeconds uint32
	StopSeconds  uint32
	Repeat       bool
	Enabled      bool
}

// Endpoint drives one charger or circuit through its holding registers.
type Endpoint struct {
	client    RegisterClient
	registers RegisterMap
}

func NewEndpoint(client RegisterClient, registers RegisterMap) *Endpoint {
	return &Endpoint{
		client:    client,
		registers: registers,
	}
}

func (e *Endpoint) SendCommand(code uint16) error {
	if err := e.client.WriteRegister(e.registers.Command, code); err != nil {
		return fmt.Errorf("write command %d: %w", code, err)
	}
	return nil
}

func (e *Endpoint) ReadChargePlan() (*ChargePlanRegisters, error) {
	values, err := e.client.ReadRegisters(e.registers.ChargePlan, CHARGE_PLAN_BLOCK_SIZE)
	if err != nil {
		return nil, fmt.Errorf("read charge plan: %w", err)
	}
	if len(values) < CHARGE_PLAN_BLOCK_SIZE {
		return nil, fmt.Errorf("read charge plan: got %d registers, want %d", len(values), CHARGE_PLAN_BLOCK_SIZE)
	}
	return &ChargePlanRegisters{
		StartSeconds: uint32(values[0])<<16 | uint32(values[1]),
		StopSeconds:  uint32(values[2])<<16 | uint32(values[3]),
		Repeat:       values[4] != 0,
		Enabled:      values[5] != 0,
	}, nil
}

// WritePhaseCurrent sets the dynamic current of one phase, numbered from 1.
func (e *Endpoint) WritePhaseCurrent(phase int, amps uint16) error {
	if phase < 1 || phase > PHASE_COUNT {
		return fmt.Errorf("invalid phase %d", phase)
	}
	addr := e.registers.DynamicCurrent + uint16(phase-1)
	if err := e.client.WriteRegister(addr, amps); err != nil {
		return fmt.Errorf("write phase %d current: %w", phase, err)
	}
	return nil
}

func (e *Endpoint) Close() error {
	return e.client.Close()
}
