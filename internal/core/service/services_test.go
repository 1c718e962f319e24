package service

import (
	"context"
	"errors"
	"testing"

	"github.com/berfenger/easee2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCharger struct {
	id    string
	calls []string
}

func (c *fakeCharger) record(method string) (any, error) {
	c.calls = append(c.calls, method)
	return map[string]string{"charger": c.id, "method": method}, nil
}

func (c *fakeCharger) Id() string { return c.id }
func (c *fakeCharger) Start(context.Context) (any, error) { return c.record("start") }
func (c *fakeCharger) Stop(context.Context) (any, error) { return c.record("stop") }
func (c *fakeCharger) Pause(context.Context) (any, error) { return c.record("pause") }
func (c *fakeCharger) Resume(context.Context) (any, error) { return c.record("resume") }
func (c *fakeCharger) Toggle(context.Context) (any, error) { return c.record("toggle") }
func (c *fakeCharger) OverrideSchedule(context.Context) (any, error) {
	return c.record("override_schedule")
}
func (c *fakeCharger) SmartCharging(context.Context) (any, error) { return c.record("smart_charging") }
func (c *fakeCharger) Reboot(context.Context) (any, error) { return c.record("reboot") }
func (c *fakeCharger) UpdateFirmware(context.Context) (any, error) {
	return c.record("update_firmware")
}
func (c *fakeCharger) GetBasicChargePlan(context.Context) (any, error) {
	return c.record("get_basic_charge_plan")
}

type dynamicCurrentCall struct {
	p1, p2, p3 *int
}

type fakeCircuit struct {
	id    int
	calls []dynamicCurrentCall
	err   error
}

func (c *fakeCircuit) Id() int { return c.id }

func (c *fakeCircuit) SetDynamicCurrent(_ context.Context, p1, p2, p3 *int) (any, error) {
	c.calls = append(c.calls, dynamicCurrentCall{p1, p2, p3})
	if c.err != nil {
		return nil, c.err
	}
	return "ok", nil
}

type registration struct {
	domain  string
	name    string
	handler domain.ServiceHandler
	schema  domain.Schema
}

type fakeRegistrar struct {
	registrations []registration
	failOn        string
}

func (r *fakeRegistrar) RegisterService(serviceDomain, name string, handler domain.ServiceHandler, schema domain.Schema) error {
	if name == r.failOn {
		return errors.New("boom")
	}
	r.registrations = append(r.registrations, registration{serviceDomain, name, handler, schema})
	return nil
}

func intPtr(v int) *int {
	return &v
}

func testRegistry() (*Registry, *fakeCharger, *fakeCharger, *fakeCircuit) {
	c1 := &fakeCharger{id: "EH12345"}
	c2 := &fakeCharger{id: "EH99999"}
	circuit := &fakeCircuit{id: 42}
	return NewRegistry([]domain.Charger{c1, c2}, []domain.Circuit{circuit}), c1, c2, circuit
}

func TestSetupServicesRegistersEveryServiceOnce(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	registry, _, _, _ := testRegistry()
	registrar := &fakeRegistrar{}

	err := SetupServices(registry, registrar, zap.NewNop())
	require.NoError(err)

	require.Len(registrar.registrations, len(Services()))
	seen := map[string]int{}
	for i, reg := range registrar.registrations {
		desc := Services()[i]
		assert.Equal(domain.SERVICE_DOMAIN, reg.domain)
		assert.Equal(desc.Name, reg.name, "registration order follows the table")
		assert.Equal(desc.Schema, reg.schema)
		assert.NotNil(reg.handler)
		seen[reg.name]++
	}
	for name, count := range seen {
		assert.Equal(1, count, "service %s registered once", name)
	}
	assert.Len(seen, 13)
}

func TestSetupServicesStopsOnRegistrationError(t *testing.T) {

	registry, _, _, _ := testRegistry()
	registrar := &fakeRegistrar{failOn: domain.SERVICE_REBOOT}

	err := SetupServices(registry, registrar, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.SERVICE_REBOOT)
	assert.Len(t, registrar.registrations, 7)
}

func TestServiceTableKinds(t *testing.T) {

	assert := assert.New(t)

	for _, desc := range Services() {
		if desc.Name == domain.SERVICE_SET_DYNAMIC_CURRENT {
			assert.Equal(CIRCUIT_DISPATCHER, desc.Kind)
			assert.Equal(CircuitSetDynamicCurrentSchema, desc.Schema)
			assert.NotNil(desc.circuit)
			assert.Nil(desc.charger)
			continue
		}
		assert.Equal(CHARGER_DISPATCHER, desc.Kind, desc.Name)
		assert.NotNil(desc.charger, desc.Name)
		assert.Nil(desc.circuit, desc.Name)
		if desc.Name == domain.SERVICE_SET_BASIC_CHARGE_PLAN {
			assert.Equal(ChargerSetBasicChargePlanSchema, desc.Schema)
		} else {
			assert.Equal(ChargerActionCommandSchema, desc.Schema, desc.Name)
		}
	}
}

func TestChargerServicesCallMappedMethod(t *testing.T) {

	expected := map[string]string{
		domain.SERVICE_START:                 "start",
		domain.SERVICE_STOP:                  "stop",
		domain.SERVICE_PAUSE:                 "pause",
		domain.SERVICE_RESUME:                "resume",
		domain.SERVICE_TOGGLE:                "toggle",
		domain.SERVICE_OVERRIDE_SCHEDULE:     "override_schedule",
		domain.SERVICE_SMART_CHARGING:        "smart_charging",
		domain.SERVICE_REBOOT:                "reboot",
		domain.SERVICE_UPDATE_FIRMWARE:       "update_firmware",
		domain.SERVICE_GET_BASIC_CHARGE_PLAN: "get_basic_charge_plan",
		domain.SERVICE_SET_BASIC_CHARGE_PLAN: "get_basic_charge_plan",
		domain.SERVICE_DEL_BASIC_CHARGE_PLAN: "get_basic_charge_plan",
	}

	for service, method := range expected {
		t.Run(service, func(t *testing.T) {
			registry, c1, c2, circuit := testRegistry()
			desc, ok := Lookup(service)
			require.True(t, ok)
			assert.Equal(t, method, desc.Method)

			handler := NewDispatcher(registry, zap.NewNop()).Handler(desc)
			result, err := handler(context.Background(), domain.ServiceCall{
				Domain:  domain.SERVICE_DOMAIN,
				Service: service,
				Data:    map[string]any{domain.ATTR_CHARGER_ID: "EH99999"},
			})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"charger": "EH99999", "method": method}, result)
			assert.Equal(t, []string{method}, c2.calls)
			assert.Empty(t, c1.calls)
			assert.Empty(t, circuit.calls)
		})
	}
}

func TestChargerServiceIgnoresChargePlanFields(t *testing.T) {

	registry, c1, _, _ := testRegistry()
	desc, _ := Lookup(domain.SERVICE_SET_BASIC_CHARGE_PLAN)

	data, err := desc.Schema.Validate(map[string]any{
		domain.ATTR_CHARGER_ID:            "EH12345",
		domain.ATTR_CHARGEPLAN_START_TIME: "22:00",
		domain.ATTR_CHARGEPLAN_STOP_TIME:  "06:30:00",
		domain.ATTR_CHARGEPLAN_REPEAT:     "on",
	})
	require.NoError(t, err)

	_, err = NewDispatcher(registry, zap.NewNop()).Handler(desc)(context.Background(), domain.ServiceCall{
		Service: desc.Name,
		Data:    data,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"get_basic_charge_plan"}, c1.calls)
}

func TestPauseExample(t *testing.T) {

	assert := assert.New(t)

	registry, c1, c2, _ := testRegistry()
	registrar := &fakeRegistrar{}
	core, logs := observer.New(zap.DebugLevel)
	require.NoError(t, SetupServices(registry, registrar, zap.New(core)))

	var pause domain.ServiceHandler
	for _, reg := range registrar.registrations {
		if reg.name == domain.SERVICE_PAUSE {
			pause = reg.handler
		}
	}
	require.NotNil(t, pause)

	result, err := pause(context.Background(), domain.ServiceCall{
		Service: domain.SERVICE_PAUSE,
		Data:    map[string]any{domain.ATTR_CHARGER_ID: "EH12345"},
	})
	assert.NoError(err)
	assert.Equal(map[string]string{"charger": "EH12345", "method": "pause"}, result)
	assert.Equal([]string{"pause"}, c1.calls)
	assert.Zero(logs.FilterLevelExact(zap.ErrorLevel).Len())

	_, err = pause(context.Background(), domain.ServiceCall{
		Service: domain.SERVICE_PAUSE,
		Data:    map[string]any{domain.ATTR_CHARGER_ID: "UNKNOWN"},
	})
	assert.ErrorIs(err, domain.ErrTargetNotFound)
	var notFound domain.TargetNotFoundError
	assert.ErrorAs(err, &notFound)
	assert.Equal("UNKNOWN", notFound.Id)
	assert.Equal(domain.TARGET_KIND_CHARGER, notFound.Kind)
	assert.Equal("Could not find charger UNKNOWN", err.Error())

	// the failed lookup is logged once at error level with the requested id
	errorLogs := logs.FilterLevelExact(zap.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	assert.Equal("UNKNOWN", errorLogs[0].ContextMap()[domain.ATTR_CHARGER_ID])

	assert.Equal([]string{"pause"}, c1.calls, "no call on unknown charger")
	assert.Empty(c2.calls)
}

func TestChargerServiceWithoutChargerId(t *testing.T) {

	registry, c1, c2, _ := testRegistry()
	desc, _ := Lookup(domain.SERVICE_START)

	_, err := NewDispatcher(registry, zap.NewNop()).Handler(desc)(context.Background(), domain.ServiceCall{
		Service: desc.Name,
		Data:    map[string]any{},
	})
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
	assert.Empty(t, c1.calls)
	assert.Empty(t, c2.calls)
}

func TestChargerLookupFirstMatchWins(t *testing.T) {

	first := &fakeCharger{id: "EH1"}
	second := &fakeCharger{id: "EH1"}
	registry := NewRegistry([]domain.Charger{first, second}, nil)
	desc, _ := Lookup(domain.SERVICE_STOP)

	_, err := NewDispatcher(registry, zap.NewNop()).Handler(desc)(context.Background(), domain.ServiceCall{
		Data: map[string]any{domain.ATTR_CHARGER_ID: "EH1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stop"}, first.calls)
	assert.Empty(t, second.calls)
}

func TestSetDynamicCurrent(t *testing.T) {

	assert := assert.New(t)

	registry, c1, _, circuit := testRegistry()
	desc, _ := Lookup(domain.SERVICE_SET_DYNAMIC_CURRENT)

	data, err := desc.Schema.Validate(map[string]any{
		domain.ATTR_CIRCUIT_ID:             float64(42),
		domain.ATTR_SET_DYNAMIC_CURRENT_P1: 16,
		domain.ATTR_SET_DYNAMIC_CURRENT_P3: "10",
	})
	require.NoError(t, err)

	result, err := NewDispatcher(registry, zap.NewNop()).Handler(desc)(context.Background(), domain.ServiceCall{
		Service: desc.Name,
		Data:    data,
	})
	require.NoError(t, err)
	assert.Equal("ok", result)
	require.Len(t, circuit.calls, 1)
	assert.Equal(intPtr(16), circuit.calls[0].p1)
	assert.Nil(circuit.calls[0].p2)
	assert.Equal(intPtr(10), circuit.calls[0].p3)
	assert.Empty(c1.calls)
}

func TestSetDynamicCurrentPropagatesProxyError(t *testing.T) {

	registry, _, _, circuit := testRegistry()
	circuit.err = errors.New("circuit offline")
	desc, _ := Lookup(domain.SERVICE_SET_DYNAMIC_CURRENT)

	_, err := NewDispatcher(registry, zap.NewNop()).Handler(desc)(context.Background(), domain.ServiceCall{
		Data: map[string]any{domain.ATTR_CIRCUIT_ID: 42},
	})
	assert.Same(t, circuit.err, err)
	require.Len(t, circuit.calls, 1)
	assert.Nil(t, circuit.calls[0].p1)
	assert.Nil(t, circuit.calls[0].p2)
	assert.Nil(t, circuit.calls[0].p3)
}

func TestSetDynamicCurrentUnknownCircuit(t *testing.T) {

	registry, _, _, circuit := testRegistry()
	desc, _ := Lookup(domain.SERVICE_SET_DYNAMIC_CURRENT)
	core, logs := observer.New(zap.DebugLevel)

	_, err := NewDispatcher(registry, zap.New(core)).Handler(desc)(context.Background(), domain.ServiceCall{
		Data: map[string]any{domain.ATTR_CIRCUIT_ID: 7, domain.ATTR_SET_DYNAMIC_CURRENT_P1: 16},
	})
	assert.ErrorIs(t, err, domain.ErrTargetNotFound)
	assert.Equal(t, "Could not find circuit 7", err.Error())
	assert.Empty(t, circuit.calls)

	errorLogs := logs.FilterLevelExact(zap.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	assert.Equal(t, int64(7), errorLogs[0].ContextMap()[domain.ATTR_CIRCUIT_ID])
}
