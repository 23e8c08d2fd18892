package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fleet-tracker/internal/fleet"
	"fleet-tracker/internal/repository/model"
	"fmt"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"time"
)

const (
	queueName = "fleet-tracker:heartbeat"

	connectType = "fleet.player.connect"
	pingType    = "fleet.player.ping"
	switchType  = "fleet.player.switch"

	handleTimeout = 5 * time.Second
)

var errMalformed = errors.New("malformed message")

type playerConnectMessage struct {
	PlayerId string `json:"playerId"`
	Name     string `json:"name"`
}

type playerPingMessage struct {
	PlayerIds []string `json:"playerIds"`
}

type playerSwitchMessage struct {
	PlayerId string `json:"playerId"`
	ServerId string `json:"serverId"`
}

type heartbeats interface {
	UpsertPlayer(ctx context.Context, playerId uuid.UUID, name string) (*model.Player, error)
	PingPlayers(ctx context.Context, playerIds []uuid.UUID) error
}

type admission interface {
	Assign(ctx context.Context, playerId uuid.UUID, serverId string) (fleet.AssignResult, error)
}

type rabbitMqListener struct {
	logger     *zap.SugaredLogger
	heartbeats heartbeats
	admission  admission
	chann      *amqp091.Channel
}

func NewRabbitMQListener(ctx context.Context, logger *zap.SugaredLogger, heartbeats heartbeats, admission admission,
	conn *amqp091.Connection) error {

	channel, err := conn.Channel()
	if err != nil {
		return err
	}

	_, err = channel.QueueDeclare(queueName, true, false, false, false, amqp091.Table{})
	if err != nil {
		return err
	}

	msgChan, err := channel.Consume(queueName, "", false, false, false, false, amqp091.Table{})
	if err != nil {
		return err
	}

	listener := &rabbitMqListener{
		logger:     logger,
		heartbeats: heartbeats,
		admission:  admission,
		chann:      channel,
	}

	logger.Infow("listening for messages", "queue", queueName)
	// Run as goroutine as it is blocking
	go listener.listen(ctx, msgChan)

	return nil
}

func (l *rabbitMqListener) listen(ctx context.Context, msgChan <-chan amqp091.Delivery) {
	for {
		select {
		case <-ctx.Done():
			if err := l.chann.Close(); err != nil {
				l.logger.Errorw("error closing listener channel", "error", err)
			}
			return
		case d, ok := <-msgChan:
			if !ok {
				return
			}
			l.deliver(ctx, d)
		}
	}
}

func (l *rabbitMqListener) deliver(ctx context.Context, d amqp091.Delivery) {
	handleCtx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	err := l.handle(handleCtx, d.Type, d.Body)
	switch {
	case err == nil:
		if err := d.Ack(false); err != nil {
			l.logger.Errorw("error acknowledging message", "error", err)
		}
	case errors.Is(err, errMalformed):
		l.logger.Errorw("dropping message", "type", d.Type, "error", err)
		if err := d.Reject(false); err != nil {
			l.logger.Errorw("error rejecting message", "error", err)
		}
	default:
		l.logger.Errorw("error handling message", "type", d.Type, "error", err)
		if err := d.Nack(false, true); err != nil {
			l.logger.Errorw("error requeueing message", "error", err)
		}
	}
}

func (l *rabbitMqListener) handle(ctx context.Context, msgType string, body []byte) error {
	switch msgType {
	case connectType:
		msg := &playerConnectMessage{}
		if err := unmarshal(body, msg); err != nil {
			return err
		}
		return l.handlePlayerConnect(ctx, msg)
	case pingType:
		msg := &playerPingMessage{}
		if err := unmarshal(body, msg); err != nil {
			return err
		}
		return l.handlePlayerPing(ctx, msg)
	case switchType:
		msg := &playerSwitchMessage{}
		if err := unmarshal(body, msg); err != nil {
			return err
		}
		return l.handlePlayerSwitch(ctx, msg)
	default:
		return fmt.Errorf("%w: unknown message type %q", errMalformed, msgType)
	}
}

func (l *rabbitMqListener) handlePlayerConnect(ctx context.Context, msg *playerConnectMessage) error {
	pId, err := parsePlayerId(msg.PlayerId)
	if err != nil {
		return err
	}

	_, err = l.heartbeats.UpsertPlayer(ctx, pId, msg.Name)
	return err
}

func (l *rabbitMqListener) handlePlayerPing(ctx context.Context, msg *playerPingMessage) error {
	pIds := make([]uuid.UUID, len(msg.PlayerIds))
	for i, id := range msg.PlayerIds {
		parsed, err := parsePlayerId(id)
		if err != nil {
			return err
		}
		pIds[i] = parsed
	}

	return l.heartbeats.PingPlayers(ctx, pIds)
}

// handlePlayerSwitch runs the join through the admission gate. A refused join is still
// acknowledged, retrying it would not change the outcome.
func (l *rabbitMqListener) handlePlayerSwitch(ctx context.Context, msg *playerSwitchMessage) error {
	pId, err := parsePlayerId(msg.PlayerId)
	if err != nil {
		return err
	}

	res, err := l.admission.Assign(ctx, pId, msg.ServerId)
	if err != nil {
		return err
	}
	if res != fleet.Assigned {
		l.logger.Infow("player switch refused", "playerId", pId, "serverId", msg.ServerId, "result", res)
	}
	return nil
}

func unmarshal(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

func parsePlayerId(id string) (uuid.UUID, error) {
	pId, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid player id %q", errMalformed, id)
	}
	return pId, nil
}
