package port

import "context"

// CommandPublisher delivers a device command payload to a topic and waits
// for the broker to accept it.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, topic string, payload []byte) error
}
