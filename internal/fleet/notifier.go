package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"go.uber.org/zap"
)

const BroadcastTopic = "game-server-message-broadcast"

// Publisher sends a payload once to a topic. Delivery is not confirmed.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Notifier fans messages out to game servers. It does not filter by liveness: offline servers
// simply never consume the message.
type Notifier struct {
	logger    *zap.SugaredLogger
	publisher Publisher
}

func NewNotifier(logger *zap.SugaredLogger, publisher Publisher) *Notifier {
	return &Notifier{logger: logger, publisher: publisher}
}

func (n *Notifier) Broadcast(ctx context.Context, topic string, payload []byte) error {
	if err := n.publisher.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	n.logger.Debugw("broadcast published", "topic", topic, "size", len(payload))
	return nil
}

type broadcastMessage struct {
	Message string `json:"message"`
}

// BroadcastMessage sends {"message": message} to every game server.
func (n *Notifier) BroadcastMessage(ctx context.Context, message string) error {
	payload, err := json.Marshal(broadcastMessage{Message: message})
	if err != nil {
		return err
	}
	return n.Broadcast(ctx, BroadcastTopic, payload)
}
