package repository

import (
	"context"
	"fleet-tracker/internal/repository/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

// testRepository runs the behaviour every Repository implementation must share.
func testRepository(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	// Mongo stores milliseconds.
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("upsert_player_is_idempotent", func(t *testing.T) {
		repo := newRepo(t)
		playerId := uuid.New()

		created, err := repo.UpsertPlayer(ctx, playerId, "Notch", now)
		require.NoError(t, err)
		assert.Equal(t, "Notch", created.Name)
		assert.Equal(t, "", created.GameServerId)

		serverId := "game-1"
		_, err = repo.UpdatePlayer(ctx, playerId, model.PlayerPatch{GameServerId: &serverId})
		require.NoError(t, err)

		again, err := repo.UpsertPlayer(ctx, playerId, "jeb_", now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, playerId, again.Id)
		assert.Equal(t, "Notch", again.Name)
		assert.Equal(t, serverId, again.GameServerId)
		assert.WithinDuration(t, now, again.LastContact, 0)
	})

	t.Run("get_player_not_found", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.GetPlayer(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, got)
	})

	t.Run("update_player", func(t *testing.T) {
		repo := newRepo(t)
		playerId := uuid.New()

		_, err := repo.UpdatePlayer(ctx, playerId, model.PlayerPatch{LastContact: &now})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.UpsertPlayer(ctx, playerId, "Notch", now)
		require.NoError(t, err)

		serverId := "game-2"
		older := now.Add(-time.Hour)
		got, err := repo.UpdatePlayer(ctx, playerId, model.PlayerPatch{GameServerId: &serverId, LastContact: &older})
		require.NoError(t, err)
		assert.Equal(t, serverId, got.GameServerId)
		assert.WithinDuration(t, now, got.LastContact, 0, "lastContact must never decrease")

		newer := now.Add(time.Second)
		got, err = repo.UpdatePlayer(ctx, playerId, model.PlayerPatch{LastContact: &newer})
		require.NoError(t, err)
		assert.WithinDuration(t, newer, got.LastContact, 0)
		assert.Equal(t, serverId, got.GameServerId)
	})

	t.Run("touch_players_skips_unknown", func(t *testing.T) {
		repo := newRepo(t)
		p1, p2, unknown := uuid.New(), uuid.New(), uuid.New()

		for _, id := range []uuid.UUID{p1, p2} {
			_, err := repo.UpsertPlayer(ctx, id, "player", now)
			require.NoError(t, err)
		}

		later := now.Add(5 * time.Second)
		matched, err := repo.TouchPlayers(ctx, []uuid.UUID{p1, p2, unknown}, later)
		require.NoError(t, err)
		assert.Equal(t, int64(2), matched)

		for _, id := range []uuid.UUID{p1, p2} {
			got, err := repo.GetPlayer(ctx, id)
			require.NoError(t, err)
			assert.WithinDuration(t, later, got.LastContact, 0)
		}

		_, err = repo.GetPlayer(ctx, unknown)
		assert.ErrorIs(t, err, ErrNotFound)

		matched, err = repo.TouchPlayers(ctx, nil, later)
		require.NoError(t, err)
		assert.Equal(t, int64(0), matched)
	})

	t.Run("count_and_find_players", func(t *testing.T) {
		repo := newRepo(t)
		fresh, stale, other := uuid.New(), uuid.New(), uuid.New()

		seed := []struct {
			id          uuid.UUID
			serverId    string
			lastContact time.Time
		}{
			{id: fresh, serverId: "game-1", lastContact: now},
			{id: stale, serverId: "game-1", lastContact: now.Add(-time.Minute)},
			{id: other, serverId: "game-2", lastContact: now},
		}
		for _, s := range seed {
			_, err := repo.UpsertPlayer(ctx, s.id, "player", s.lastContact)
			require.NoError(t, err)
			serverId := s.serverId
			_, err = repo.UpdatePlayer(ctx, s.id, model.PlayerPatch{GameServerId: &serverId})
			require.NoError(t, err)
		}

		tests := []struct {
			name   string
			filter model.Filter
			want   int64
		}{
			{name: "all", filter: model.Filter{}, want: 3},
			{name: "contacted_since", filter: model.Filter{ContactedSince: now.Add(-time.Second)}, want: 2},
			{name: "contacted_since_inclusive", filter: model.Filter{ContactedSince: now}, want: 2},
			{name: "server", filter: model.Filter{GameServerId: "game-1"}, want: 2},
			{name: "server_online", filter: model.Filter{GameServerId: "game-1", ContactedSince: now.Add(-time.Second)}, want: 1},
			{name: "server_online_excluding", filter: model.Filter{GameServerId: "game-1", ContactedSince: now.Add(-time.Second), ExcludePlayerId: fresh}, want: 0},
			{name: "unknown_server", filter: model.Filter{GameServerId: "game-3"}, want: 0},
		}

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				count, err := repo.CountPlayers(ctx, test.filter)
				require.NoError(t, err)
				assert.Equal(t, test.want, count)

				players, err := repo.FindPlayers(ctx, test.filter)
				require.NoError(t, err)
				assert.Len(t, players, int(test.want))
			})
		}
	})

	t.Run("game_server_lifecycle", func(t *testing.T) {
		repo := newRepo(t)

		server := &model.GameServer{Id: "game-abc", Name: "game-abc", LastContact: now}
		created, err := repo.UpsertGameServer(ctx, server)
		require.NoError(t, err)
		assert.Equal(t, 0, created.MaximumPlayers)

		ip, port, maximumPlayers := "10.0.0.7", 25565, 20
		later := now.Add(time.Second)
		updated, err := repo.UpdateGameServer(ctx, server.Id, model.GameServerPatch{
			Ip:             &ip,
			Port:           &port,
			MaximumPlayers: &maximumPlayers,
			LastContact:    &later,
		})
		require.NoError(t, err)
		assert.Equal(t, ip, updated.Ip)
		assert.Equal(t, port, updated.Port)
		assert.Equal(t, maximumPlayers, updated.MaximumPlayers)
		assert.WithinDuration(t, later, updated.LastContact, 0)

		// Upserting again must not reset the profile.
		again, err := repo.UpsertGameServer(ctx, &model.GameServer{Id: server.Id, Name: "renamed", LastContact: now})
		require.NoError(t, err)
		assert.Equal(t, "game-abc", again.Name)
		assert.Equal(t, maximumPlayers, again.MaximumPlayers)

		_, err = repo.UpdateGameServer(ctx, "missing", model.GameServerPatch{Ip: &ip})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetGameServer(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.UpsertGameServer(ctx, &model.GameServer{Id: "game-old", LastContact: now.Add(-time.Hour)})
		require.NoError(t, err)

		total, err := repo.CountGameServers(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		online, err := repo.FindGameServers(ctx, model.Filter{ContactedSince: now})
		require.NoError(t, err)
		require.Len(t, online, 1)
		assert.Equal(t, "game-abc", online[0].Id)
	})

	t.Run("proxy_server_lifecycle", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.UpsertProxyServer(ctx, &model.ProxyServer{Id: "proxy-abc", Name: "proxy-abc", LastContact: now})
		require.NoError(t, err)
		_, err = repo.UpsertProxyServer(ctx, &model.ProxyServer{Id: "proxy-old", Name: "proxy-old", LastContact: now.Add(-time.Hour)})
		require.NoError(t, err)

		ip, port := "10.0.0.8", 25577
		updated, err := repo.UpdateProxyServer(ctx, "proxy-abc", model.ProxyServerPatch{Ip: &ip, Port: &port})
		require.NoError(t, err)
		assert.Equal(t, ip, updated.Ip)
		assert.Equal(t, port, updated.Port)
		assert.WithinDuration(t, now, updated.LastContact, 0)

		_, err = repo.UpdateProxyServer(ctx, "missing", model.ProxyServerPatch{Ip: &ip})
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := repo.GetProxyServer(ctx, "proxy-old")
		require.NoError(t, err)
		assert.Equal(t, "proxy-old", got.Name)

		online, err := repo.CountProxyServers(ctx, model.Filter{ContactedSince: now.Add(-time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, int64(1), online)

		all, err := repo.FindProxyServers(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}
