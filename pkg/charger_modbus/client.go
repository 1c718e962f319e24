package charger_modbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// RegisterClient is the register level access a charger or circuit endpoint needs.
type RegisterClient interface {
	ReadRegisters(addr uint16, quantity uint16) ([]uint16, error)
	WriteRegister(addr uint16, value uint16) error
	Close() error
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

// ModbusClient is a Modbus TCP connection opened on first use. A failed
// operation closes it so the next one reconnects.
type ModbusClient struct {
	mu         sync.Mutex
	client     *modbus.ModbusClient
	opened     bool
	instrument []ModbusInstrument
}

func CreateModbusClient(host string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (*ModbusClient, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	// instrumentation
	var inst []ModbusInstrument
	if logger != nil {
		inst = append(inst, debugLoggerInstrumentation(logger.With(zap.String("target", host), zap.Uint8("unit_id", unitId))))
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	if unitId > 0 {
		err = client.SetUnitId(unitId)
		if err != nil {
			return nil, err
		}
	}

	return &ModbusClient{
		client:     client,
		instrument: inst,
	}, nil
}

func (c *ModbusClient) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", c.instrument)()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.open(); err != nil {
		return nil, err
	}
	values, err := c.client.ReadRegisters(addr, quantity, modbus.HOLDING_REGISTER)
	if err != nil {
		c.reset()
		return nil, err
	}
	return values, nil
}

func (c *ModbusClient) WriteRegister(addr uint16, value uint16) error {
	defer RecordTimer("WriteRegister", c.instrument)()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.open(); err != nil {
		return err
	}
	if err := c.client.WriteRegister(addr, value); err != nil {
		c.reset()
		return err
	}
	return nil
}

func (c *ModbusClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opened {
		return nil
	}
	c.opened = false
	return c.client.Close()
}

func (c *ModbusClient) open() error {
	if c.opened {
		return nil
	}
	if err := c.client.Open(); err != nil {
		return err
	}
	c.opened = true
	return nil
}

func (c *ModbusClient) reset() {
	_ = c.client.Close()
	c.opened = false
}

func debugLoggerInstrumentation(logger *zap.Logger) ModbusInstrument {
	return ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus", zap.String("op", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}
