package notifier

import (
	"context"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"sync"
)

// Publisher publishes to the default exchange, the topic is used as the routing key.
// Messages are transient and unconfirmed: a topic without a bound queue drops them.
type Publisher struct {
	mu    sync.Mutex
	chann *amqp091.Channel
}

func NewRabbitMQPublisher(logger *zap.SugaredLogger, conn *amqp091.Connection) (*Publisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	closed := channel.NotifyClose(make(chan *amqp091.Error, 1))
	go func() {
		for err := range closed {
			logger.Errorw("publisher channel closed", "error", err)
		}
	}()

	return &Publisher{chann: channel}, nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.chann.PublishWithContext(ctx, "", topic, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Transient,
		Body:         payload,
	})
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.chann.Close()
}
