// Package fleet holds the registry core: liveness queries, player admission, KPIs,
// server registration and fleet broadcasts. Every component takes its repository explicitly.
package fleet

import (
	"context"
	"errors"
	"fleet-tracker/internal/liveness"
	"fleet-tracker/internal/repository"
	"fleet-tracker/internal/repository/model"
	"fmt"
	"github.com/google/uuid"
	"time"
)

type Kind int

const (
	KindPlayer Kind = iota
	KindGameServer
	KindProxyServer
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindGameServer:
		return "game_server"
	case KindProxyServer:
		return "proxy_server"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var Kinds = []Kind{KindPlayer, KindGameServer, KindProxyServer}

// Presence separates a stale record from one that never existed.
type Presence int

const (
	NotFound Presence = iota
	Offline
	Online
)

func (p Presence) String() string {
	switch p {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "not_found"
	}
}

type Liveness struct {
	repo   repository.Repository
	policy liveness.Policy
}

func NewLiveness(repo repository.Repository, policy liveness.Policy) *Liveness {
	return &Liveness{repo: repo, policy: policy}
}

func (l *Liveness) onlineFilter() model.Filter {
	return model.Filter{ContactedSince: l.policy.Cutoff()}
}

func (l *Liveness) ListOnlinePlayers(ctx context.Context) ([]*model.Player, error) {
	return l.repo.FindPlayers(ctx, l.onlineFilter())
}

func (l *Liveness) ListOnlineGameServers(ctx context.Context) ([]*model.GameServer, error) {
	return l.repo.FindGameServers(ctx, l.onlineFilter())
}

func (l *Liveness) ListOnlineProxyServers(ctx context.Context) ([]*model.ProxyServer, error) {
	return l.repo.FindProxyServers(ctx, l.onlineFilter())
}

// ServerPlayers lists the online players currently assigned to a game server.
func (l *Liveness) ServerPlayers(ctx context.Context, serverId string) ([]*model.Player, error) {
	filter := l.onlineFilter()
	filter.GameServerId = serverId
	return l.repo.FindPlayers(ctx, filter)
}

// GetPlayerIfOnline returns the player together with its presence. The record is returned for
// Offline as well so callers can still show it.
func (l *Liveness) GetPlayerIfOnline(ctx context.Context, playerId uuid.UUID) (*model.Player, Presence, error) {
	p, err := l.repo.GetPlayer(ctx, playerId)
	if err != nil {
		return nil, NotFound, ignoreNotFound(err)
	}
	return p, l.presence(p.LastContact), nil
}

func (l *Liveness) GetGameServerIfOnline(ctx context.Context, serverId string) (*model.GameServer, Presence, error) {
	s, err := l.repo.GetGameServer(ctx, serverId)
	if err != nil {
		return nil, NotFound, ignoreNotFound(err)
	}
	return s, l.presence(s.LastContact), nil
}

func (l *Liveness) GetProxyServerIfOnline(ctx context.Context, serverId string) (*model.ProxyServer, Presence, error) {
	s, err := l.repo.GetProxyServer(ctx, serverId)
	if err != nil {
		return nil, NotFound, ignoreNotFound(err)
	}
	return s, l.presence(s.LastContact), nil
}

func (l *Liveness) presence(lastContact time.Time) Presence {
	if l.policy.IsOnline(lastContact) {
		return Online
	}
	return Offline
}

func ignoreNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
