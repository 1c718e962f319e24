package actor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/berfenger/easee2mqtt/internal/config"
	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/core/port"
	. "github.com/berfenger/easee2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const (
	HEARTBEAT_JOB_KEY        = "bridge_heartbeat"
	DEFAULT_HEARTBEAT_PERIOD = 60 * time.Second
)

// MQTTActorProvider builds the MQTT transport actor on every (re)start.
type MQTTActorProvider func() actor.Actor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	registry           port.DeviceRegistry
	metrics            port.ServiceMetrics
	servicesActor      *actor.PID
	mqttActor          *actor.PID
	mqttActorProvider  MQTTActorProvider
	scheduler          quartz.Scheduler
	logger             *zap.Logger
}

type healthCheckResult struct {
	servicesActorHealthy bool
	mqttActorHealthy     bool
	checksReceived       int
	respondTo            *actor.PID
}

type bridgeHeartbeat struct {
}

func NewMasterOfPuppetsActor(config config.Config, registry port.DeviceRegistry, metrics port.ServiceMetrics,
	mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:            config,
		behavior:          actor.NewBehavior(),
		stash:             &Stash{},
		logger:            ActorLogger(domain.ACTOR_ID_MASTER, logger),
		registry:          registry,
		metrics:           metrics,
		mqttActorProvider: mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start service host child
		servicesActorPID, err := state.startServicesActor(ctx)
		if err != nil {
			panic(err)
		}
		state.servicesActor = servicesActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		// republish bridge availability periodically
		if err := state.startHeartbeat(ctx); err != nil {
			panic(err)
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Service host Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.servicesActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_SERVICES,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.ServiceCallRequest:
		// route service calls to the host, keeping the original sender
		state.logger.Debug("master@default ServiceCallRequest", zap.String("service", msg.Service),
			zap.String("request_id", msg.RequestId))
		ctx.Forward(state.servicesActor)
	case domain.ListServicesRequest:
		state.logger.Debug("master@default ListServicesRequest")
		ctx.Forward(state.servicesActor)
	case bridgeHeartbeat:
		state.logger.Debug("master@default bridgeHeartbeat")
		ctx.Send(state.mqttActor, domain.PublishBridgeStateRequest{Online: true})
	case *actor.Stopping:
		state.stopHeartbeat()
	case *actor.Restarting:
		state.stopHeartbeat()
	case *actor.Terminated:
		state.logger.Warn("master@default child terminated", zap.String("who", msg.Who.Id))
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_SERVICES:
				state.currentHealthCheck.servicesActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.currentHealthCheck.mqttActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {
			state.finishHealthCheck(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	case *actor.Stopping:
		state.stopHeartbeat()
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) finishHealthCheck(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	state.currentHealthCheck.respond(ctx)
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterOfPuppetsActor) startServicesActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 10*time.Second, decider)

	servicesProps := actor.PropsFromProducer(func() actor.Actor {
		return NewServiceHostActor(&state.config, state.registry, state.metrics, state.logger)
	}, actor.WithSupervisor(supervisor))
	servicesActorPID, err := ctx.SpawnNamed(servicesProps, domain.ACTOR_ID_SERVICES)
	if err != nil {
		return nil, err
	}

	return servicesActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startHeartbeat(ctx actor.Context) error {
	period := time.Duration(state.config.Services.HeartbeatIntervalMillis) * time.Millisecond
	if period <= 0 {
		period = DEFAULT_HEARTBEAT_PERIOD
	}

	scheduler := quartz.NewStdScheduler()
	scheduler.Start(context.Background())

	root := ctx.ActorSystem().Root
	self := ctx.Self()
	heartbeatJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		root.Send(self, bridgeHeartbeat{})
		return true, nil
	})
	err := scheduler.ScheduleJob(quartz.NewJobDetail(heartbeatJob, quartz.NewJobKey(HEARTBEAT_JOB_KEY)),
		quartz.NewSimpleTrigger(period))
	if err != nil {
		scheduler.Stop()
		return fmt.Errorf("schedule heartbeat: %w", err)
	}
	state.scheduler = scheduler
	state.logger.Debug("master: heartbeat scheduled", zap.Duration("period", period))
	return nil
}

func (state *MasterOfPuppetsActor) stopHeartbeat() {
	if state.scheduler != nil {
		state.scheduler.Stop()
		state.scheduler = nil
	}
}

func (state *healthCheckResult) reset() {
	state.servicesActorHealthy = false
	state.mqttActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 2
}

func (state *healthCheckResult) allHealthy() bool {
	return state.servicesActorHealthy && state.mqttActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
