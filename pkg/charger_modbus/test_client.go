package charger_modbus

import (
	"fmt"
	"sync"
)

// TestRegisterClient keeps holding registers in memory.
type TestRegisterClient struct {
	mu        sync.Mutex
	registers map[uint16]uint16
	writes    []RegisterWrite
	Err       error
}

type RegisterWrite struct {
	Addr  uint16
	Value uint16
}

func NewTestRegisterClient() *TestRegisterClient {
	return &TestRegisterClient{registers: map[uint16]uint16{}}
}

func (c *TestRegisterClient) Set(addr uint16, values ...uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range values {
		c.registers[addr+uint16(i)] = v
	}
}

func (c *TestRegisterClient) Writes() []RegisterWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RegisterWrite(nil), c.writes...)
}

func (c *TestRegisterClient) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	values := make([]uint16, quantity)
	for i := range values {
		values[i] = c.registers[addr+uint16(i)]
	}
	return values, nil
}

func (c *TestRegisterClient) WriteRegister(addr uint16, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return fmt.Errorf("register %d: %w", addr, c.Err)
	}
	c.registers[addr] = value
	c.writes = append(c.writes, RegisterWrite{Addr: addr, Value: value})
	return nil
}

func (c *TestRegisterClient) Close() error {
	return nil
}
