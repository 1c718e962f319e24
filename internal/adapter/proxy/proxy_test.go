package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/berfenger/easee2mqtt/internal/config"
	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/util"
	"github.com/berfenger/easee2mqtt/pkg/charger_modbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	topic   string
	payload map[string]any
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) PublishCommand(ctx context.Context, topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{topic: topic, payload: decoded})
	return nil
}

func intPtr(v int) *int {
	return &v
}

func TestMQTTChargerCommands(t *testing.T) {

	assert := assert.New(t)

	publisher := &fakePublisher{}
	charger := NewMQTTCharger("EH12345", "easee/cmd", publisher, zap.NewNop())

	res, err := charger.Pause(context.Background())
	require.NoError(t, err)
	assert.Equal(CommandResult{Command: domain.SERVICE_PAUSE, Accepted: true}, res)

	_, err = charger.OverrideSchedule(context.Background())
	require.NoError(t, err)

	require.Len(t, publisher.sent, 2)
	assert.Equal("easee/cmd/charger/EH12345", publisher.sent[0].topic)
	assert.Equal(map[string]any{"command": "pause"}, publisher.sent[0].payload)
	assert.Equal(map[string]any{"command": "override_schedule"}, publisher.sent[1].payload)
}

func TestMQTTCircuitOmitsAbsentPhases(t *testing.T) {

	publisher := &fakePublisher{}
	circuit := NewMQTTCircuit(3, "easee/cmd", publisher, zap.NewNop())

	_, err := circuit.SetDynamicCurrent(context.Background(), intPtr(16), nil, intPtr(0))
	require.NoError(t, err)

	require.Len(t, publisher.sent, 1)
	assert.Equal(t, "easee/cmd/circuit/3", publisher.sent[0].topic)
	assert.Equal(t, map[string]any{
		"command":   "set_dynamic_current",
		"currentP1": float64(16),
		"currentP3": float64(0),
	}, publisher.sent[0].payload)
}

func TestMQTTProxyPropagatesPublishError(t *testing.T) {

	publisher := &fakePublisher{err: errors.New("not connected")}
	charger := NewMQTTCharger("EH1", "easee/cmd", publisher, zap.NewNop())

	_, err := charger.Reboot(context.Background())
	assert.ErrorIs(t, err, publisher.err)
}

var testRegisters = charger_modbus.RegisterMap{Command: 100, ChargePlan: 200, DynamicCurrent: 300}

func TestModbusChargerCommands(t *testing.T) {

	assert := assert.New(t)

	client := charger_modbus.NewTestRegisterClient()
	charger := NewModbusCharger("EH12345", charger_modbus.NewEndpoint(client, testRegisters))

	_, err := charger.Start(context.Background())
	require.NoError(t, err)
	_, err = charger.UpdateFirmware(context.Background())
	require.NoError(t, err)

	assert.Equal([]charger_modbus.RegisterWrite{
		{Addr: 100, Value: charger_modbus.COMMAND_START},
		{Addr: 100, Value: charger_modbus.COMMAND_UPDATE_FIRMWARE},
	}, client.Writes())
}

func TestModbusChargerChargePlan(t *testing.T) {

	client := charger_modbus.NewTestRegisterClient()
	// start 01:30:15, stop 07:00:00
	client.Set(200, 0, 5415, 0, 25200, 0, 1)
	charger := NewModbusCharger("EH12345", charger_modbus.NewEndpoint(client, testRegisters))

	res, err := charger.GetBasicChargePlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BasicChargePlan{
		Id:              "EH12345",
		ChargeStartTime: "01:30:15",
		ChargeStopTime:  "07:00:00",
		Repeat:          false,
		Enabled:         true,
	}, res)
	assert.Empty(t, client.Writes())
}

func TestModbusCircuitWritesProvidedPhases(t *testing.T) {

	assert := assert.New(t)

	client := charger_modbus.NewTestRegisterClient()
	circuit := NewModbusCircuit(1, charger_modbus.NewEndpoint(client, testRegisters))

	res, err := circuit.SetDynamicCurrent(context.Background(), nil, intPtr(10), intPtr(12))
	require.NoError(t, err)
	assert.Equal(DynamicCurrentResult{CircuitId: 1, CurrentP2: intPtr(10), CurrentP3: intPtr(12)}, res)
	assert.Equal([]charger_modbus.RegisterWrite{{Addr: 301, Value: 10}, {Addr: 302, Value: 12}}, client.Writes())

	_, err = circuit.SetDynamicCurrent(context.Background(), intPtr(70000), nil, nil)
	assert.Error(err)
}

func TestModbusProxyHonoursCancelledContext(t *testing.T) {

	client := charger_modbus.NewTestRegisterClient()
	charger := NewModbusCharger("EH1", charger_modbus.NewEndpoint(client, testRegisters))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := charger.Stop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.Writes())
}

func TestNewRegistries(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Circuits = append(cfg.Circuits, config.CircuitConfig{Id: 2})

	registry := NewMQTTRegistry(&cfg, &fakePublisher{}, zap.NewNop())
	require.Len(t, registry.Chargers(), 1)
	assert.Equal("EH12345", registry.Chargers()[0].Id())
	require.Len(t, registry.Circuits(), 2)
	assert.Equal(2, registry.Circuits()[1].Id())

	opened := 0
	modbusRegistry, closer, err := NewModbusRegistry(&cfg, func(endpoint config.ModbusEndpointConfig) (charger_modbus.RegisterClient, error) {
		opened++
		return charger_modbus.NewTestRegisterClient(), nil
	})
	require.NoError(t, err)
	assert.Equal(3, opened)
	assert.Len(modbusRegistry.Chargers(), 1)
	assert.Len(modbusRegistry.Circuits(), 2)
	assert.NoError(closer())

	_, _, err = NewModbusRegistry(&cfg, func(endpoint config.ModbusEndpointConfig) (charger_modbus.RegisterClient, error) {
		return nil, errors.New("bad host")
	})
	assert.ErrorContains(err, "charger EH12345")
}
