package actorutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/berfenger/easee2mqtt/internal/core/domain"
	"github.com/berfenger/easee2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

func NewRequestId() string {
	return uuid.NewString()
}

// ParsedMQTTCommandToServiceCall turns a service call or a button press
// received over MQTT into a request for the service host.
func ParsedMQTTCommandToServiceCall(cmd mqtt.ParsedMQTTCommand) (domain.ServiceCallRequest, error) {
	req := domain.ServiceCallRequest{
		RequestId: NewRequestId(),
		Domain:    domain.SERVICE_DOMAIN,
		Service:   cmd.Service,
	}
	switch cmd.Command {
	case mqtt.COMMAND_SERVICE_CALL:
		data := map[string]any{}
		if payload := strings.TrimSpace(cmd.Payload); payload != "" {
			if err := json.Unmarshal([]byte(payload), &data); err != nil {
				return req, fmt.Errorf("service %s: payload must be a JSON object: %w", cmd.Service, err)
			}
		}
		req.Data = data
	case mqtt.COMMAND_BUTTON_PRESS:
		req.Data = map[string]any{domain.ATTR_CHARGER_ID: cmd.DeviceId}
	default:
		return req, fmt.Errorf("unsupported command %s", cmd.Command)
	}
	return req, nil
}
