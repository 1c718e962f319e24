package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// DispatcherKind selects how a service call reaches its proxy.
type DispatcherKind int

const (
	CHARGER_DISPATCHER DispatcherKind = iota
	CIRCUIT_DISPATCHER
)

func (k DispatcherKind) String() string {
	switch k {
	case CHARGER_DISPATCHER:
		return "charger_execute_service"
	case CIRCUIT_DISPATCHER:
		return "circuit_execute_set_dynamic_current"
	}
	return fmt.Sprintf("DispatcherKind(%d)", int(k))
}

// ChargerMethod is a zero-argument charger action as a method expression.
type ChargerMethod func(domain.Charger, context.Context) (any, error)

// CircuitMethod takes the three phase currents in order, nil when absent.
type CircuitMethod func(domain.Circuit, context.Context, *int, *int, *int) (any, error)

// ServiceDescriptor binds a service name to the proxy method it runs and the
// schema its data must satisfy. Exactly one of charger/circuit is set,
// according to Kind.
type ServiceDescriptor struct {
	Name    string
	Method  string
	Schema  domain.Schema
	Kind    DispatcherKind
	charger ChargerMethod
	circuit CircuitMethod
}

var (
	ChargerActionCommandSchema = domain.NewSchema(
		domain.Optional(domain.ATTR_CHARGER_ID, domain.FIELD_TYPE_STRING),
	)

	ChargerSetBasicChargePlanSchema = domain.NewSchema(
		domain.Required(domain.ATTR_CHARGER_ID, domain.FIELD_TYPE_STRING),
		domain.Optional(domain.ATTR_CHARGEPLAN_START_TIME, domain.FIELD_TYPE_TIME),
		domain.Optional(domain.ATTR_CHARGEPLAN_STOP_TIME, domain.FIELD_TYPE_TIME),
		domain.Optional(domain.ATTR_CHARGEPLAN_REPEAT, domain.FIELD_TYPE_BOOLEAN),
	)

	CircuitSetDynamicCurrentSchema = domain.NewSchema(
		domain.Required(domain.ATTR_CIRCUIT_ID, domain.FIELD_TYPE_POSITIVE_INT),
		domain.Optional(domain.ATTR_SET_DYNAMIC_CURRENT_P1, domain.FIELD_TYPE_POSITIVE_INT),
		domain.Optional(domain.ATTR_SET_DYNAMIC_CURRENT_P2, domain.FIELD_TYPE_POSITIVE_INT),
		domain.Optional(domain.ATTR_SET_DYNAMIC_CURRENT_P3, domain.FIELD_TYPE_POSITIVE_INT),
	)
)

// set_basic_charge_plan and delete_basic_charge_plan run get_basic_charge_plan.
// Kept as the devices have always been driven.
var serviceTable = []ServiceDescriptor{
	chargerService(domain.SERVICE_START, "start", ChargerActionCommandSchema, domain.Charger.Start),
	chargerService(domain.SERVICE_STOP, "stop", ChargerActionCommandSchema, domain.Charger.Stop),
	chargerService(domain.SERVICE_PAUSE, "pause", ChargerActionCommandSchema, domain.Charger.Pause),
	chargerService(domain.SERVICE_RESUME, "resume", ChargerActionCommandSchema, domain.Charger.Resume),
	chargerService(domain.SERVICE_TOGGLE, "toggle", ChargerActionCommandSchema, domain.Charger.Toggle),
	chargerService(domain.SERVICE_OVERRIDE_SCHEDULE, "override_schedule", ChargerActionCommandSchema, domain.Charger.OverrideSchedule),
	chargerService(domain.SERVICE_SMART_CHARGING, "smart_charging", ChargerActionCommandSchema, domain.Charger.SmartCharging),
	chargerService(domain.SERVICE_REBOOT, "reboot", ChargerActionCommandSchema, domain.Charger.Reboot),
	chargerService(domain.SERVICE_UPDATE_FIRMWARE, "update_firmware", ChargerActionCommandSchema, domain.Charger.UpdateFirmware),
	chargerService(domain.SERVICE_GET_BASIC_CHARGE_PLAN, "get_basic_charge_plan", ChargerActionCommandSchema, domain.Charger.GetBasicChargePlan),
	chargerService(domain.SERVICE_SET_BASIC_CHARGE_PLAN, "get_basic_charge_plan", ChargerSetBasicChargePlanSchema, domain.Charger.GetBasicChargePlan),
	chargerService(domain.SERVICE_DEL_BASIC_CHARGE_PLAN, "get_basic_charge_plan", ChargerActionCommandSchema, domain.Charger.GetBasicChargePlan),
	{
		Name:    domain.SERVICE_SET_DYNAMIC_CURRENT,
		Method:  "set_dynamic_current",
		Schema:  CircuitSetDynamicCurrentSchema,
		Kind:    CIRCUIT_DISPATCHER,
		circuit: domain.Circuit.SetDynamicCurrent,
	},
}

func chargerService(name, method string, schema domain.Schema, fn ChargerMethod) ServiceDescriptor {
	return ServiceDescriptor{
		Name:    name,
		Method:  method,
		Schema:  schema,
		Kind:    CHARGER_DISPATCHER,
		charger: fn,
	}
}

// Services returns the dispatch table in registration order.
func Services() []ServiceDescriptor {
	return slices.Clone(serviceTable)
}

// Lookup finds a descriptor by service name.
func Lookup(name string) (ServiceDescriptor, bool) {
	for _, desc := range serviceTable {
		if desc.Name == name {
			return desc, true
		}
	}
	return ServiceDescriptor{}, false
}

type chargerParams struct {
	ChargerId string `mapstructure:"charger_id"`
}

type dynamicCurrentParams struct {
	CircuitId *int `mapstructure:"circuit_id"`
	CurrentP1 *int `mapstructure:"currentP1"`
	CurrentP2 *int `mapstructure:"currentP2"`
	CurrentP3 *int `mapstructure:"currentP3"`
}

// Dispatcher resolves call targets in the device registry and invokes the
// descriptor's method on the first match.
type Dispatcher struct {
	registry port.DeviceRegistry
	logger   *zap.Logger
}

// NewDispatcher returns a dispatcher reading from registry.
func NewDispatcher(registry port.DeviceRegistry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger.With(zap.String("component", "services")),
	}
}

// SetupServices registers every entry of the dispatch table with the host,
// bound to the dispatcher of its kind.
func SetupServices(registry port.DeviceRegistry, registrar port.ServiceRegistrar, logger *zap.Logger) error {
	dispatcher := NewDispatcher(registry, logger)
	for _, desc := range serviceTable {
		err := registrar.RegisterService(domain.SERVICE_DOMAIN, desc.Name, dispatcher.Handler(desc), desc.Schema)
		if err != nil {
			return fmt.Errorf("register service %s: %w", desc.Name, err)
		}
	}
	return nil
}

// Handler binds desc to the dispatcher of its kind.
func (d *Dispatcher) Handler(desc ServiceDescriptor) domain.ServiceHandler {
	switch desc.Kind {
	case CIRCUIT_DISPATCHER:
		return func(ctx context.Context, call domain.ServiceCall) (any, error) {
			return d.CircuitExecuteSetDynamicCurrent(ctx, desc, call)
		}
	default:
		return func(ctx context.Context, call domain.ServiceCall) (any, error) {
			return d.ChargerExecuteService(ctx, desc, call)
		}
	}
}

// ChargerExecuteService runs a charger action on the charger named by
// charger_id. A missing charger is logged at error level and reported as
// domain.TargetNotFoundError.
func (d *Dispatcher) ChargerExecuteService(ctx context.Context, desc ServiceDescriptor, call domain.ServiceCall) (any, error) {
	d.logger.Debug("execute_service", zap.String("service", call.Service), zap.Any("data", call.Data))

	var params chargerParams
	if err := domain.DecodeParams(call.Data, &params); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCallData, err)
	}

	// linear scan, first match wins
	for _, charger := range d.registry.Chargers() {
		if charger.Id() == params.ChargerId {
			return desc.charger(charger, ctx)
		}
	}

	d.logger.Error("Could not find charger", zap.String("charger_id", params.ChargerId))
	return nil, domain.TargetNotFoundError{Kind: domain.TARGET_KIND_CHARGER, Id: params.ChargerId}
}

// CircuitExecuteSetDynamicCurrent passes currentP1..3 to the circuit named by
// circuit_id. A missing circuit is logged at error level and reported as
// domain.TargetNotFoundError.
func (d *Dispatcher) CircuitExecuteSetDynamicCurrent(ctx context.Context, desc ServiceDescriptor, call domain.ServiceCall) (any, error) {
	d.logger.Debug("execute_service", zap.String("service", call.Service), zap.Any("data", call.Data))

	var params dynamicCurrentParams
	if err := domain.DecodeParams(call.Data, &params); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCallData, err)
	}

	if params.CircuitId != nil {
		for _, circuit := range d.registry.Circuits() {
			if circuit.Id() == *params.CircuitId {
				return desc.circuit(circuit, ctx, params.CurrentP1, params.CurrentP2, params.CurrentP3)
			}
		}
	}

	var circuitId any
	if params.CircuitId != nil {
		circuitId = *params.CircuitId
	}
	d.logger.Error("Could not find circuit", zap.Any("circuit_id", circuitId))
	return nil, domain.TargetNotFoundError{Kind: domain.TARGET_KIND_CIRCUIT, Id: circuitId}
}
