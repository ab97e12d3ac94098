package player

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	rec := &Record{ID: "u1", DisplayName: "Ada", Friends: []string{"u2"}}
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)
	assert.Equal(t, []string{"u2"}, got.Friends)
	assert.False(t, got.UpdatedAt.IsZero())

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &Record{ID: "u1", DisplayName: "Ada", Friends: []string{"u2"}}))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	got.Friends[0] = "mutated"
	got.DisplayName = "mutated"

	again, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, again.Friends)
	assert.Equal(t, "Ada", again.DisplayName)
}

func TestMemoryRepositorySearch(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &Record{ID: "u1", DisplayName: "Ada Lovelace"}))
	require.NoError(t, repo.Save(ctx, &Record{ID: "u2", DisplayName: "Alan Turing"}))
	require.NoError(t, repo.Save(ctx, &Record{ID: "u3", DisplayName: "adamant"}))

	out, err := repo.Search(ctx, "ada", 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Ada Lovelace", out[0].DisplayName)
	assert.Equal(t, "adamant", out[1].DisplayName)

	out, err = repo.Search(ctx, "ada", 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestMergeServerOwnedDiscardsClientCopies(t *testing.T) {
	stored := &Record{
		ID:          "u1",
		DisplayName: "Ada",
		Friends:     []string{"u2", "u3"},
		FriendRequests: []FriendRequest{
			{ID: "r1", FromID: "u4", ToID: "u1", Status: RequestStatusPending},
		},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	incoming := &Record{
		ID:             "u1",
		DisplayName:    "Ada L.",
		GamesPlayed:    10,
		GamesWon:       6,
		Friends:        []string{"attacker-controlled"},
		FriendRequests: nil,
	}

	merged := MergeServerOwned(incoming, stored)

	assert.Equal(t, "Ada L.", merged.DisplayName)
	assert.Equal(t, 10, merged.GamesPlayed)
	assert.Equal(t, []string{"u2", "u3"}, merged.Friends)
	require.Len(t, merged.FriendRequests, 1)
	assert.Equal(t, "r1", merged.FriendRequests[0].ID)
	assert.Equal(t, stored.CreatedAt, merged.CreatedAt)
}

func TestMergeServerOwnedWithNoStoredRecord(t *testing.T) {
	incoming := &Record{ID: "u1", DisplayName: "Ada", Friends: []string{"kept"}}

	merged := MergeServerOwned(incoming, nil)

	assert.Equal(t, []string{"kept"}, merged.Friends)
}

func TestPurgeStaleRequests(t *testing.T) {
	now := time.Now()
	rec := &Record{
		FriendRequests: []FriendRequest{
			{ID: "old", Status: RequestStatusPending, Timestamp: now.Add(-73 * time.Hour)},
			{ID: "edge", Status: RequestStatusPending, Timestamp: now.Add(-71*time.Hour - 54*time.Minute)}, // 71.9h
			{ID: "fresh", Status: RequestStatusPending, Timestamp: now.Add(-time.Hour)},
		},
	}

	purged := rec.PurgeStaleRequests(now, 72*time.Hour)

	assert.Equal(t, 1, purged)
	require.Len(t, rec.FriendRequests, 2)
	assert.Equal(t, "edge", rec.FriendRequests[0].ID)
	assert.Equal(t, "fresh", rec.FriendRequests[1].ID)
}
