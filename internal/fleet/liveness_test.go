package fleet

import (
	"context"
	"fleet-tracker/internal/repository"
	"fleet-tracker/internal/repository/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestLiveness_Presence(t *testing.T) {
	ctx := context.Background()
	clock, policy := newTestClock()
	repo := repository.NewMemoryRepository()
	l := NewLiveness(repo, policy)

	online := createPlayer(t, repo, clock.Now().Add(-testTTL))
	offline := createPlayer(t, repo, clock.Now().Add(-testTTL-time.Millisecond))

	tests := []struct {
		name     string
		playerId uuid.UUID
		want     Presence
	}{
		{name: "online_at_boundary", playerId: online, want: Online},
		{name: "offline", playerId: offline, want: Offline},
		{name: "never_existed", playerId: uuid.New(), want: NotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, presence, err := l.GetPlayerIfOnline(ctx, test.playerId)
			require.NoError(t, err)
			assert.Equal(t, test.want, presence)
			if test.want == NotFound {
				assert.Nil(t, p)
			} else {
				assert.Equal(t, test.playerId, p.Id)
			}
		})
	}
}

func TestLiveness_ServerPresence(t *testing.T) {
	ctx := context.Background()
	clock, policy := newTestClock()
	repo := repository.NewMemoryRepository()
	l := NewLiveness(repo, policy)

	createGameServer(t, repo, "game-1", 10, clock.Now())
	_, err := repo.UpsertProxyServer(ctx, &model.ProxyServer{Id: "proxy-1", LastContact: clock.Now()})
	require.NoError(t, err)

	_, presence, err := l.GetGameServerIfOnline(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, Online, presence)

	_, presence, err = l.GetProxyServerIfOnline(ctx, "proxy-1")
	require.NoError(t, err)
	assert.Equal(t, Online, presence)

	clock.Advance(testTTL + time.Second)

	s, presence, err := l.GetGameServerIfOnline(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, Offline, presence)
	assert.Equal(t, "game-1", s.Id)

	_, presence, err = l.GetProxyServerIfOnline(ctx, "proxy-1")
	require.NoError(t, err)
	assert.Equal(t, Offline, presence)

	_, presence, err = l.GetProxyServerIfOnline(ctx, "proxy-missing")
	require.NoError(t, err)
	assert.Equal(t, NotFound, presence)
}

func TestLiveness_ListOnline(t *testing.T) {
	ctx := context.Background()
	clock, policy := newTestClock()
	repo := repository.NewMemoryRepository()
	l := NewLiveness(repo, policy)

	createGameServer(t, repo, "game-fresh", 10, clock.Now())
	createGameServer(t, repo, "game-stale", 10, clock.Now().Add(-time.Minute))
	_, err := repo.UpsertProxyServer(ctx, &model.ProxyServer{Id: "proxy-fresh", LastContact: clock.Now()})
	require.NoError(t, err)
	_, err = repo.UpsertProxyServer(ctx, &model.ProxyServer{Id: "proxy-stale", LastContact: clock.Now().Add(-time.Minute)})
	require.NoError(t, err)

	fresh := createPlayer(t, repo, clock.Now())
	stale := createPlayer(t, repo, clock.Now().Add(-time.Minute))
	lobby := createPlayer(t, repo, clock.Now())
	assign(t, repo, fresh, "game-fresh")
	assign(t, repo, stale, "game-fresh")

	servers, err := l.ListOnlineGameServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "game-fresh", servers[0].Id)

	proxies, err := l.ListOnlineProxyServers(ctx)
	require.NoError(t, err)
	require.Len(t, proxies, 1)
	assert.Equal(t, "proxy-fresh", proxies[0].Id)

	players, err := l.ListOnlinePlayers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{fresh, lobby}, playerIds(players))

	serverPlayers, err := l.ServerPlayers(ctx, "game-fresh")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{fresh}, playerIds(serverPlayers))
}

func playerIds(players []*model.Player) []uuid.UUID {
	ids := make([]uuid.UUID, len(players))
	for i, p := range players {
		ids[i] = p.Id
	}
	return ids
}
