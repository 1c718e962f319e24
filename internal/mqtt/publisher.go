package mqtt

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/berfenger/easee2mqtt/internal/config"
	"github.com/berfenger/easee2mqtt/internal/core/port"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// CommandPublisher is a dedicated connection used by the device proxies to
// send commands. It carries no last will so it never touches the bridge state.
type CommandPublisher struct {
	client mqtt.Client
	logger *zap.Logger
}

func PublisherOptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("easee2mqtt_cmd_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	return opts
}

func NewCommandPublisher(opts *mqtt.ClientOptions, logger *zap.Logger) *CommandPublisher {
	return &CommandPublisher{
		client: mqtt.NewClient(opts),
		logger: logger,
	}
}

func (p *CommandPublisher) Connect(ctx context.Context) error {
	return p.wait(ctx, p.client.Connect(), "connect")
}

func (p *CommandPublisher) Disconnect(timeout time.Duration) {
	p.client.Disconnect(uint(timeout.Milliseconds()))
}

func (p *CommandPublisher) PublishCommand(ctx context.Context, topic string, payload []byte) error {
	p.logger.Debug("publish command", zap.String("topic", topic), zap.ByteString("payload", payload))
	return p.wait(ctx, p.client.Publish(topic, 1, false, payload), "publish")
}

func (p *CommandPublisher) wait(ctx context.Context, token mqtt.Token, op string) error {
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("MQTT %s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		return errors.Join(fmt.Errorf("MQTT %s timed out", op), ctx.Err())
	}
}

// ensure interface compliance
var _ port.CommandPublisher = (*CommandPublisher)(nil)
