package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-auth/backend/internal/audit/domain"
	"adaptive-auth/backend/internal/geo"
)

func TestMemoryRepository_HistoryQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	seed := []domain.Record{
		{ID: "1", UserID: "u1", CreatedAt: base, Success: true, Location: geo.NewPoint(1, 1)},
		{ID: "2", UserID: "u1", CreatedAt: base.Add(time.Hour), Success: true},
		{ID: "3", UserID: "u1", CreatedAt: base.Add(2 * time.Hour), Success: false, Location: geo.NewPoint(2, 2)},
		{ID: "4", UserID: "u2", CreatedAt: base.Add(3 * time.Hour), Success: true, Location: geo.NewPoint(3, 3)},
		{ID: "5", UserID: "u1", CreatedAt: base.Add(-48 * time.Hour), Success: true, Location: geo.NewPoint(4, 4)},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	last, err := repo.LastSuccessfulWithLocation(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "1", last.ID, "failed and location-less records are skipped")

	times, err := repo.SuccessfulLoginTimesSince(ctx, "u1", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{base, base.Add(time.Hour)}, times)

	none, err := repo.LastSuccessfulWithLocation(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)

	list, err := repo.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "3", list[0].ID)
	assert.Equal(t, "2", list[1].ID)
}

func TestMemoryRepository_StoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	rec := &domain.Record{ID: "1", UserID: "u1", Success: true, Location: geo.NewPoint(1, 1)}
	require.NoError(t, repo.Create(ctx, rec))

	rec.Location.Latitude = 50
	got, err := repo.LastSuccessfulWithLocation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Location.Latitude)
}
