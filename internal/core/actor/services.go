package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/easee2mqtt/internal/config"
	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/core/port"
	"github.com/berfenger/easee2mqtt/internal/core/service"
	"github.com/berfenger/easee2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	OUTCOME_SUCCESS         = "success"
	OUTCOME_ERROR           = "error"
	OUTCOME_INVALID         = "invalid"
	OUTCOME_UNKNOWN_SERVICE = "unknown_service"
	OUTCOME_NOT_FOUND       = "not_found"
	OUTCOME_TIMEOUT         = "timeout"

	DEFAULT_CALL_TIMEOUT = 30 * time.Second
)

type registeredService struct {
	handler domain.ServiceHandler
	schema  domain.Schema
}

// ServiceHostActor keeps the registered services and runs their handlers.
// Each call runs on its own goroutine so slow devices do not block others.
type ServiceHostActor struct {
	behavior    actor.Behavior
	registry    port.DeviceRegistry
	metrics     port.ServiceMetrics
	callTimeout time.Duration
	services    map[string]registeredService
	infos       []domain.ServiceInfo
	logger      *zap.Logger
}

func NewServiceHostActor(config *config.Config, registry port.DeviceRegistry, metrics port.ServiceMetrics, logger *zap.Logger) *ServiceHostActor {
	callTimeout := time.Duration(config.Services.CallTimeoutMillis) * time.Millisecond
	if callTimeout <= 0 {
		callTimeout = DEFAULT_CALL_TIMEOUT
	}
	act := &ServiceHostActor{
		behavior:    actor.NewBehavior(),
		registry:    registry,
		metrics:     metrics,
		callTimeout: callTimeout,
		services:    map[string]registeredService{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_SERVICES, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ServiceHostActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ServiceHostActor) RegisterService(serviceDomain, name string, handler domain.ServiceHandler, schema domain.Schema) error {
	key := serviceKey(serviceDomain, name)
	if _, ok := state.services[key]; ok {
		return domain.DuplicateServiceError{Domain: serviceDomain, Service: name}
	}
	state.services[key] = registeredService{handler: handler, schema: schema}
	state.infos = append(state.infos, domain.ServiceInfo{
		Domain:  serviceDomain,
		Service: name,
		Fields:  schema.Fields,
	})
	state.logger.Debug("services: registered", zap.String("service", key))
	return nil
}

func (state *ServiceHostActor) StartingReceive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("services@starting started")
		// a restart builds a fresh actor from the producer, so the table is empty here
		if err := service.SetupServices(state.registry, state, state.logger); err != nil {
			state.logger.Error("services@starting setup failed", zap.Error(err))
			panic(err)
		}
		state.logger.Info("services: ready", zap.Int("services", len(state.infos)),
			zap.Int("chargers", len(state.registry.Chargers())), zap.Int("circuits", len(state.registry.Circuits())))
		state.behavior.Become(state.DefaultReceive)
	}
}

func (state *ServiceHostActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("services@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SERVICES,
			Healthy: true,
			State:   "ready",
		})
	case domain.ListServicesRequest:
		state.logger.Debug("services@default ListServicesRequest")
		infos := make([]domain.ServiceInfo, len(state.infos))
		copy(infos, state.infos)
		actorutil.ForRequest(msg).Respond(ctx, domain.ListServicesResponse{Services: infos})
	case domain.ServiceCallRequest:
		state.logger.Debug("services@default ServiceCallRequest", zap.String("service", msg.Service),
			zap.String("request_id", msg.RequestId))
		state.call(ctx, msg)
	default:
		state.logger.Debug("services@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ServiceHostActor) call(ctx actor.Context, req domain.ServiceCallRequest) {
	replyTo := actorutil.ForRequest(req).ReplyTo(ctx)
	respond := func(result any, err error) domain.ServiceCallResponse {
		return domain.ServiceCallResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			RequestId:          req.RequestId,
			Domain:             req.Domain,
			Service:            req.Service,
			Result:             result,
		}
	}

	svc, ok := state.services[serviceKey(req.Domain, req.Service)]
	if !ok {
		err := domain.UnknownServiceError{Domain: req.Domain, Service: req.Service}
		state.logger.Warn("services: rejected call", zap.Error(err))
		state.record(req.Service, OUTCOME_UNKNOWN_SERVICE, 0)
		state.reply(ctx, replyTo, respond(nil, err))
		return
	}

	data, err := svc.schema.Validate(req.Data)
	if err != nil {
		state.logger.Warn("services: rejected call", zap.String("service", req.Service), zap.Error(err))
		state.record(req.Service, OUTCOME_INVALID, 0)
		state.reply(ctx, replyTo, respond(nil, err))
		return
	}

	call := domain.ServiceCall{Domain: req.Domain, Service: req.Service, Data: data}
	timeout := state.callTimeout
	start := time.Now()
	actorutil.NewBackgroundTask(ctx, func() (*domain.ServiceCallResponse, error) {
		callCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := runHandler(callCtx, svc.handler, call)
		outcome := callOutcome(err)
		state.record(call.Service, outcome, time.Since(start))
		if err != nil {
			state.logger.Error("services: call failed", zap.String("service", call.Service),
				zap.String("request_id", req.RequestId), zap.String("outcome", outcome), zap.Error(err))
		}
		resp := respond(result, err)
		return &resp, nil
	}).WithTimeout(timeout).Recover(func(err error) domain.ServiceCallResponse {
		// the handler ignored its context and outlived the call timeout
		state.record(call.Service, OUTCOME_TIMEOUT, time.Since(start))
		state.logger.Error("services: call timed out", zap.String("service", call.Service),
			zap.String("request_id", req.RequestId), zap.Duration("timeout", timeout), zap.Error(err))
		return respond(nil, fmt.Errorf("%w: %s.%s after %s", domain.ErrServiceTimeout, call.Domain, call.Service, timeout))
	}).PipeToAsync(replyTo)
}

func (state *ServiceHostActor) reply(ctx actor.Context, replyTo *actor.PID, resp domain.ServiceCallResponse) {
	if replyTo != nil {
		ctx.Send(replyTo, resp)
	}
}

func (state *ServiceHostActor) record(service string, outcome string, duration time.Duration) {
	if state.metrics != nil {
		state.metrics.RecordServiceCall(service, outcome, duration)
	}
}

// runHandler turns a panicking proxy into an error for this call only.
func runHandler(ctx context.Context, handler domain.ServiceHandler, call domain.ServiceCall) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("service %s panicked: %v", call.Service, r)
		}
	}()
	return handler(ctx, call)
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return OUTCOME_SUCCESS
	case errors.Is(err, domain.ErrTargetNotFound):
		return OUTCOME_NOT_FOUND
	case errors.Is(err, domain.ErrInvalidCallData):
		return OUTCOME_INVALID
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrServiceTimeout):
		return OUTCOME_TIMEOUT
	}
	return OUTCOME_ERROR
}

func serviceKey(serviceDomain, name string) string {
	return fmt.Sprintf("%s.%s", serviceDomain, name)
}

// ensure interface compliance
var _ port.ServiceRegistrar = (*ServiceHostActor)(nil)
