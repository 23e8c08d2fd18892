package fleet

import (
	"context"
	"errors"
	"fleet-tracker/internal/liveness"
	"fleet-tracker/internal/repository"
	"fleet-tracker/internal/repository/model"
	"fmt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"sync"
)

type AssignResult int

const (
	Assigned AssignResult = iota
	ServerFull
	PlayerNotFound
	ServerNotFound
)

func (r AssignResult) String() string {
	switch r {
	case Assigned:
		return "assigned"
	case ServerFull:
		return "server_full"
	case PlayerNotFound:
		return "player_not_found"
	case ServerNotFound:
		return "server_not_found"
	default:
		return fmt.Sprintf("AssignResult(%d)", int(r))
	}
}

// AdmissionGate decides whether a player may join a game server. The occupancy count and the
// assignment write run under a per-server lock, so concurrent joins never overshoot maximumPlayers.
//
// The lock is process local: only one tracker instance may serve a given store.
type AdmissionGate struct {
	logger *zap.SugaredLogger
	repo   repository.Repository
	policy liveness.Policy
	locks  *serverLocks
}

func NewAdmissionGate(logger *zap.SugaredLogger, repo repository.Repository, policy liveness.Policy) *AdmissionGate {
	return &AdmissionGate{
		logger: logger,
		repo:   repo,
		policy: policy,
		locks:  newServerLocks(),
	}
}

// Assign moves the player onto the game server if it has room. Only a repository failure is
// returned as an error, every expected outcome is an AssignResult.
func (g *AdmissionGate) Assign(ctx context.Context, playerId uuid.UUID, serverId string) (AssignResult, error) {
	server, err := g.repo.GetGameServer(ctx, serverId)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ServerNotFound, nil
		}
		return 0, fmt.Errorf("failed to get game server: %w", err)
	}

	if _, err := g.repo.GetPlayer(ctx, playerId); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return PlayerNotFound, nil
		}
		return 0, fmt.Errorf("failed to get player: %w", err)
	}

	unlock := g.locks.lock(serverId)
	defer unlock()

	// The joining player is excluded so re-joining the current server is not refused.
	occupancy, err := g.repo.CountPlayers(ctx, model.Filter{
		ContactedSince:  g.policy.Cutoff(),
		GameServerId:    serverId,
		ExcludePlayerId: playerId,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count server players: %w", err)
	}

	if occupancy >= int64(server.MaximumPlayers) {
		g.logger.Debugw("server full", "serverId", serverId, "playerId", playerId, "occupancy", occupancy,
			"maximumPlayers", server.MaximumPlayers)
		return ServerFull, nil
	}

	now := g.policy.CurrentTime()
	_, err = g.repo.UpdatePlayer(ctx, playerId, model.PlayerPatch{GameServerId: &serverId, LastContact: &now})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return PlayerNotFound, nil
		}
		return 0, fmt.Errorf("failed to assign player: %w", err)
	}

	g.logger.Debugw("player assigned", "serverId", serverId, "playerId", playerId, "occupancy", occupancy+1)
	return Assigned, nil
}

// serverLocks hands out one mutex per game server id. Entries are dropped once no caller holds
// or waits on them.
type serverLocks struct {
	mu    sync.Mutex
	locks map[string]*serverLock
}

type serverLock struct {
	mu   sync.Mutex
	refs int
}

func newServerLocks() *serverLocks {
	return &serverLocks{locks: make(map[string]*serverLock)}
}

func (l *serverLocks) lock(serverId string) (unlock func()) {
	l.mu.Lock()
	sl, ok := l.locks[serverId]
	if !ok {
		sl = &serverLock{}
		l.locks[serverId] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, serverId)
		}
		l.mu.Unlock()
	}
}

func (l *serverLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
