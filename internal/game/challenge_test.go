package game

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeTakeConsumesOnce(t *testing.T) {
	m := NewChallengeManager(time.Minute, zerolog.Nop())

	ch := m.Create("u1", "Alice", "u2", DifficultyMedium)
	require.Equal(t, 1, m.Count())

	got, ok := m.Take(ch.ID)
	require.True(t, ok)
	assert.Equal(t, "u1", got.ChallengerID)
	assert.Equal(t, "Alice", got.ChallengerName())

	_, ok = m.Take(ch.ID)
	assert.False(t, ok, "second taker loses")
	assert.Equal(t, 0, m.Count())
}

func TestChallengeExpiresAndNotifies(t *testing.T) {
	m := NewChallengeManager(10*time.Millisecond, zerolog.Nop())
	expired := make(chan *Challenge, 1)
	m.SetExpiryCallback(func(ch *Challenge) { expired <- ch })

	ch := m.Create("u1", "Alice", "u2", DifficultyEasy)

	select {
	case got := <-expired:
		assert.Equal(t, ch.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("expiry callback never fired")
	}
	assert.Equal(t, 0, m.Count())
}

func TestChallengeTakeBeatsExpiry(t *testing.T) {
	m := NewChallengeManager(50*time.Millisecond, zerolog.Nop())
	expired := make(chan *Challenge, 1)
	m.SetExpiryCallback(func(ch *Challenge) { expired <- ch })

	ch := m.Create("u1", "Alice", "u2", DifficultyEasy)
	_, ok := m.Take(ch.ID)
	require.True(t, ok)

	select {
	case <-expired:
		t.Fatal("expiry fired for a consumed challenge")
	case <-time.After(150 * time.Millisecond):
	}
}
