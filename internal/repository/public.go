package repository

import (
	"context"
	"errors"
	"fleet-tracker/internal/repository/model"
	"github.com/google/uuid"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Repository contains methods for all repository implementations.
// Every method is atomic for a single record. Get and Update methods return ErrNotFound
// when the record does not exist.
type Repository interface {
	HealthPing(ctx context.Context) error

	// UpsertPlayer inserts the player if absent, an existing player is returned untouched.
	UpsertPlayer(ctx context.Context, playerId uuid.UUID, name string, now time.Time) (*model.Player, error)
	GetPlayer(ctx context.Context, playerId uuid.UUID) (*model.Player, error)
	UpdatePlayer(ctx context.Context, playerId uuid.UUID, patch model.PlayerPatch) (*model.Player, error)

	// TouchPlayers refreshes lastContact of every known player in playerIds.
	// Unknown ids are skipped, the number of matched players is returned.
	TouchPlayers(ctx context.Context, playerIds []uuid.UUID, now time.Time) (int64, error)
	CountPlayers(ctx context.Context, filter model.Filter) (int64, error)
	FindPlayers(ctx context.Context, filter model.Filter) ([]*model.Player, error)

	UpsertGameServer(ctx context.Context, server *model.GameServer) (*model.GameServer, error)
	GetGameServer(ctx context.Context, serverId string) (*model.GameServer, error)
	UpdateGameServer(ctx context.Context, serverId string, patch model.GameServerPatch) (*model.GameServer, error)
	CountGameServers(ctx context.Context, filter model.Filter) (int64, error)
	FindGameServers(ctx context.Context, filter model.Filter) ([]*model.GameServer, error)

	UpsertProxyServer(ctx context.Context, server *model.ProxyServer) (*model.ProxyServer, error)
	GetProxyServer(ctx context.Context, serverId string) (*model.ProxyServer, error)
	UpdateProxyServer(ctx context.Context, serverId string, patch model.ProxyServerPatch) (*model.ProxyServer, error)
	CountProxyServers(ctx context.Context, filter model.Filter) (int64, error)
	FindProxyServers(ctx context.Context, filter model.Filter) ([]*model.ProxyServer, error)
}
