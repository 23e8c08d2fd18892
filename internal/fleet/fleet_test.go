package fleet

import (
	"context"
	"errors"
	"fleet-tracker/internal/liveness"
	"fleet-tracker/internal/repository"
	"fleet-tracker/internal/repository/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

const testTTL = 10 * time.Second

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClock() (*fakeClock, liveness.Policy) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return clock, liveness.Policy{TTL: testTTL, Now: clock.Now}
}

func createGameServer(t *testing.T, repo repository.Repository, id string, maximumPlayers int, lastContact time.Time) {
	t.Helper()
	_, err := repo.UpsertGameServer(context.Background(), &model.GameServer{
		Id:             id,
		Name:           id,
		MaximumPlayers: maximumPlayers,
		LastContact:    lastContact,
	})
	require.NoError(t, err)
}

func createPlayer(t *testing.T, repo repository.Repository, lastContact time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := repo.UpsertPlayer(context.Background(), id, "player-"+id.String()[:4], lastContact)
	require.NoError(t, err)
	return id
}

var errStoreDown = errors.New("store unavailable")

// failingRepository fails every count, standing in for an unreachable store.
type failingRepository struct {
	repository.Repository
}

func (failingRepository) CountPlayers(context.Context, model.Filter) (int64, error) {
	return 0, errStoreDown
}

func (failingRepository) CountGameServers(context.Context, model.Filter) (int64, error) {
	return 0, errStoreDown
}
