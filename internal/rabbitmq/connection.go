package rabbitmq

import (
	"fleet-tracker/internal/config"
	"github.com/rabbitmq/amqp091-go"
)

func NewConnection(cfg *config.RabbitMQConfig) (*amqp091.Connection, error) {
	return amqp091.Dial(cfg.URL())
}
