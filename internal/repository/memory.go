package repository

import (
	"context"
	"fleet-tracker/internal/repository/model"
	"github.com/google/uuid"
	"sync"
	"time"
)

// memoryRepository keeps every record in process memory. Used for local development and tests.
type memoryRepository struct {
	mu sync.RWMutex

	players      map[uuid.UUID]model.Player
	gameServers  map[string]model.GameServer
	proxyServers map[string]model.ProxyServer
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		players:      make(map[uuid.UUID]model.Player),
		gameServers:  make(map[string]model.GameServer),
		proxyServers: make(map[string]model.ProxyServer),
	}
}

func (r *memoryRepository) HealthPing(context.Context) error {
	return nil
}

func (r *memoryRepository) UpsertPlayer(_ context.Context, playerId uuid.UUID, name string, now time.Time) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerId]
	if !ok {
		p = model.Player{Id: playerId, Name: name, LastContact: now}
		r.players[playerId] = p
	}
	return &p, nil
}

func (r *memoryRepository) GetPlayer(_ context.Context, playerId uuid.UUID) (*model.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[playerId]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memoryRepository) UpdatePlayer(_ context.Context, playerId uuid.UUID, patch model.PlayerPatch) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerId]
	if !ok {
		return nil, ErrNotFound
	}

	if patch.GameServerId != nil {
		p.GameServerId = *patch.GameServerId
	}
	p.LastContact = maxTime(p.LastContact, patch.LastContact)

	r.players[playerId] = p
	return &p, nil
}

func (r *memoryRepository) TouchPlayers(_ context.Context, playerIds []uuid.UUID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched int64
	for _, id := range playerIds {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		matched++
		p.LastContact = maxTime(p.LastContact, &now)
		r.players[id] = p
	}
	return matched, nil
}

func (r *memoryRepository) CountPlayers(ctx context.Context, filter model.Filter) (int64, error) {
	players, err := r.FindPlayers(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(players)), nil
}

func (r *memoryRepository) FindPlayers(_ context.Context, filter model.Filter) ([]*model.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players := make([]*model.Player, 0)
	for _, p := range r.players {
		if !contactedSince(p.LastContact, filter) {
			continue
		}
		if filter.GameServerId != "" && p.GameServerId != filter.GameServerId {
			continue
		}
		if filter.ExcludePlayerId != uuid.Nil && p.Id == filter.ExcludePlayerId {
			continue
		}

		p := p
		players = append(players, &p)
	}
	return players, nil
}

func (r *memoryRepository) UpsertGameServer(_ context.Context, server *model.GameServer) (*model.GameServer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.gameServers[server.Id]
	if !ok {
		s = *server
		r.gameServers[server.Id] = s
	}
	return &s, nil
}

func (r *memoryRepository) GetGameServer(_ context.Context, serverId string) (*model.GameServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.gameServers[serverId]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memoryRepository) UpdateGameServer(_ context.Context, serverId string, patch model.GameServerPatch) (*model.GameServer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.gameServers[serverId]
	if !ok {
		return nil, ErrNotFound
	}

	if patch.Ip != nil {
		s.Ip = *patch.Ip
	}
	if patch.Port != nil {
		s.Port = *patch.Port
	}
	if patch.MaximumPlayers != nil {
		s.MaximumPlayers = *patch.MaximumPlayers
	}
	s.LastContact = maxTime(s.LastContact, patch.LastContact)

	r.gameServers[serverId] = s
	return &s, nil
}

func (r *memoryRepository) CountGameServers(ctx context.Context, filter model.Filter) (int64, error) {
	servers, err := r.FindGameServers(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(servers)), nil
}

func (r *memoryRepository) FindGameServers(_ context.Context, filter model.Filter) ([]*model.GameServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	servers := make([]*model.GameServer, 0)
	for _, s := range r.gameServers {
		if !contactedSince(s.LastContact, filter) {
			continue
		}
		s := s
		servers = append(servers, &s)
	}
	return servers, nil
}

func (r *memoryRepository) UpsertProxyServer(_ context.Context, server *model.ProxyServer) (*model.ProxyServer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.proxyServers[server.Id]
	if !ok {
		s = *server
		r.proxyServers[server.Id] = s
	}
	return &s, nil
}

func (r *memoryRepository) GetProxyServer(_ context.Context, serverId string) (*model.ProxyServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.proxyServers[serverId]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memoryRepository) UpdateProxyServer(_ context.Context, serverId string, patch model.ProxyServerPatch) (*model.ProxyServer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.proxyServers[serverId]
	if !ok {
		return nil, ErrNotFound
	}

	if patch.Ip != nil {
		s.Ip = *patch.Ip
	}
	if patch.Port != nil {
		s.Port = *patch.Port
	}
	s.LastContact = maxTime(s.LastContact, patch.LastContact)

	r.proxyServers[serverId] = s
	return &s, nil
}

func (r *memoryRepository) CountProxyServers(ctx context.Context, filter model.Filter) (int64, error) {
	servers, err := r.FindProxyServers(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(servers)), nil
}

func (r *memoryRepository) FindProxyServers(_ context.Context, filter model.Filter) ([]*model.ProxyServer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	servers := make([]*model.ProxyServer, 0)
	for _, s := range r.proxyServers {
		if !contactedSince(s.LastContact, filter) {
			continue
		}
		s := s
		servers = append(servers, &s)
	}
	return servers, nil
}

func contactedSince(lastContact time.Time, filter model.Filter) bool {
	return filter.ContactedSince.IsZero() || !lastContact.Before(filter.ContactedSince)
}

func maxTime(current time.Time, candidate *time.Time) time.Time {
	if candidate == nil || !candidate.After(current) {
		return current
	}
	return *candidate
}
