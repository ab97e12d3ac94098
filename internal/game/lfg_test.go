package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLFGVisibilityScopedToFriends(t *testing.T) {
	r := NewLFGRegistry()

	r.Start("u1", "Alice", DifficultyEasy, []string{"u2", "u3"})

	assert.Len(t, r.AvailableFor("u2"), 1)
	assert.Len(t, r.AvailableFor("u3"), 1)
	assert.Empty(t, r.AvailableFor("u4"), "non-friends never see the advertisement")
}

func TestLFGStartCapturesFriendList(t *testing.T) {
	r := NewLFGRegistry()

	friends := []string{"u2"}
	r.Start("u1", "Alice", DifficultyHard, friends)
	friends[0] = "u9"

	assert.Len(t, r.AvailableFor("u2"), 1, "list is captured at call time")
	assert.Empty(t, r.AvailableFor("u9"))
}

func TestLFGStopRemoves(t *testing.T) {
	r := NewLFGRegistry()

	r.Start("u1", "Alice", DifficultyEasy, []string{"u2"})
	entry, existed := r.Stop("u1")
	require.True(t, existed)
	assert.Equal(t, []string{"u2"}, entry.FriendIDs)

	_, existed = r.Stop("u1")
	assert.False(t, existed)
	assert.Empty(t, r.AvailableFor("u2"))
}

func TestLFGRestartReplaces(t *testing.T) {
	r := NewLFGRegistry()

	r.Start("u1", "Alice", DifficultyEasy, []string{"u2"})
	r.Start("u1", "Alice", DifficultyHard, []string{"u3"})

	entry, ok := r.Get("u1")
	require.True(t, ok)
	assert.Equal(t, DifficultyHard, entry.Difficulty)
	assert.Empty(t, r.AvailableFor("u2"), "old audience is gone")
	assert.Len(t, r.AvailableFor("u3"), 1)
}
