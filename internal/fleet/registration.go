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
	"net"
)

var ErrInvalidProfile = errors.New("invalid server profile")

// Registration creates server identities, records server self-updates and player heartbeats.
type Registration struct {
	logger *zap.SugaredLogger
	repo   repository.Repository
	policy liveness.Policy
}

func NewRegistration(logger *zap.SugaredLogger, repo repository.Repository, policy liveness.Policy) *Registration {
	return &Registration{logger: logger, repo: repo, policy: policy}
}

func (r *Registration) RegisterGameServer(ctx context.Context) (*model.GameServer, error) {
	id := uuid.NewString()
	server, err := r.repo.UpsertGameServer(ctx, &model.GameServer{
		Id:          id,
		Name:        serverName("game", id),
		LastContact: r.policy.CurrentTime(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register game server: %w", err)
	}

	r.logger.Infow("registered game server", "id", server.Id, "name", server.Name)
	return server, nil
}

func (r *Registration) RegisterProxyServer(ctx context.Context) (*model.ProxyServer, error) {
	id := uuid.NewString()
	server, err := r.repo.UpsertProxyServer(ctx, &model.ProxyServer{
		Id:          id,
		Name:        serverName("proxy", id),
		LastContact: r.policy.CurrentTime(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register proxy server: %w", err)
	}

	r.logger.Infow("registered proxy server", "id", server.Id, "name", server.Name)
	return server, nil
}

// UpdateGameServer records a game server's self-reported profile and counts as its heartbeat.
// The ip is always taken from peer, the address the request arrived from.
// It returns false when the server is not registered.
func (r *Registration) UpdateGameServer(ctx context.Context, serverId string, peer net.Addr, port int, maximumPlayers int) (bool, error) {
	ip, err := PeerIP(peer)
	if err != nil {
		return false, err
	}
	if err := validatePort(port); err != nil {
		return false, err
	}
	if maximumPlayers < 0 {
		return false, fmt.Errorf("%w: maximumPlayers %d is negative", ErrInvalidProfile, maximumPlayers)
	}

	now := r.policy.CurrentTime()
	_, err = r.repo.UpdateGameServer(ctx, serverId, model.GameServerPatch{
		Ip:             &ip,
		Port:           &port,
		MaximumPlayers: &maximumPlayers,
		LastContact:    &now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update game server: %w", err)
	}
	return true, nil
}

// UpdateProxyServer is the proxy counterpart of UpdateGameServer.
func (r *Registration) UpdateProxyServer(ctx context.Context, serverId string, peer net.Addr, port int) (bool, error) {
	ip, err := PeerIP(peer)
	if err != nil {
		return false, err
	}
	if err := validatePort(port); err != nil {
		return false, err
	}

	now := r.policy.CurrentTime()
	_, err = r.repo.UpdateProxyServer(ctx, serverId, model.ProxyServerPatch{
		Ip:          &ip,
		Port:        &port,
		LastContact: &now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update proxy server: %w", err)
	}
	return true, nil
}

// UpsertPlayer creates the player on first sight. Known players are left untouched.
func (r *Registration) UpsertPlayer(ctx context.Context, playerId uuid.UUID, name string) (*model.Player, error) {
	p, err := r.repo.UpsertPlayer(ctx, playerId, name, r.policy.CurrentTime())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert player: %w", err)
	}
	return p, nil
}

// PingPlayers refreshes lastContact of the given players. Unknown ids are ignored.
func (r *Registration) PingPlayers(ctx context.Context, playerIds []uuid.UUID) error {
	if len(playerIds) == 0 {
		return nil
	}

	matched, err := r.repo.TouchPlayers(ctx, playerIds, r.policy.CurrentTime())
	if err != nil {
		return fmt.Errorf("failed to ping players: %w", err)
	}
	if skipped := int64(len(playerIds)) - matched; skipped > 0 {
		r.logger.Debugw("pinged unknown players", "requested", len(playerIds), "skipped", skipped)
	}
	return nil
}

// PeerIP extracts the ip of a transport peer. IPv4-mapped IPv6 addresses are unwrapped.
func PeerIP(peer net.Addr) (string, error) {
	if peer == nil {
		return "", fmt.Errorf("%w: unknown peer address", ErrInvalidProfile)
	}

	var ip net.IP
	switch addr := peer.(type) {
	case *net.TCPAddr:
		ip = addr.IP
	case *net.UDPAddr:
		ip = addr.IP
	default:
		host, _, err := net.SplitHostPort(peer.String())
		if err != nil {
			host = peer.String()
		}
		ip = net.ParseIP(host)
	}

	if ip == nil {
		return "", fmt.Errorf("%w: peer address %q has no ip", ErrInvalidProfile, peer.String())
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String(), nil
	}
	return ip.String(), nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidProfile, port)
	}
	return nil
}

func serverName(prefix string, id string) string {
	return prefix + "-" + id[:8]
}
