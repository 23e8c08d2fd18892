package repository

import (
	"context"
	"fleet-tracker/internal/repository/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func TestMemoryRepository(t *testing.T) {
	testRepository(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

func TestMemoryRepository_ConcurrentUpsert(t *testing.T) {
	repo := NewMemoryRepository()
	playerId := uuid.New()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.UpsertPlayer(context.Background(), playerId, "player", now.Add(time.Duration(i)*time.Second))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := repo.CountPlayers(context.Background(), model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	playerId := uuid.New()

	p, err := repo.UpsertPlayer(context.Background(), playerId, "Notch", time.Now())
	require.NoError(t, err)
	p.Name = "changed"

	got, err := repo.GetPlayer(context.Background(), playerId)
	require.NoError(t, err)
	assert.Equal(t, "Notch", got.Name)
}
