package game

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathduel/arena/pkg/http/ws"
)

func TestStaleTeardownKeepsReplacedSession(t *testing.T) {
	svc, _ := testService(t)
	h := NewHandler(svc, svc.hub, zerolog.Nop())
	ctx := context.Background()

	oldConn := ws.NewConnection(nil, "u1", "Alice", zerolog.Nop())
	svc.hub.Register("u1", oldConn)

	require.NoError(t, svc.JoinQueue("u1", "Alice", DifficultyEasy))
	require.NoError(t, svc.JoinQueue("u2", "Bob", DifficultyEasy))
	room, ok := svc.rooms.ActiveRoomFor("u1")
	require.True(t, ok)

	// A reconnect replaces the mapping; afterwards the old socket's read
	// loop exits.
	newConn := ws.NewConnection(nil, "u1", "Alice", zerolog.Nop())
	svc.hub.Register("u1", newConn)
	h.teardown(ctx, "u1", oldConn)

	assert.True(t, svc.hub.IsOnline("u1"), "presence stays with the newer session")
	got, ok := svc.rooms.ActiveRoomFor("u1")
	require.True(t, ok, "live room must survive the stale socket's exit")
	assert.Equal(t, room.ID, got.ID)

	// The current connection going away tears the session down for real.
	h.teardown(ctx, "u1", newConn)
	assert.False(t, svc.hub.IsOnline("u1"))
	_, ok = svc.rooms.ActiveRoomFor("u1")
	assert.False(t, ok)
}

func TestStaleTeardownKeepsQueueAndLFG(t *testing.T) {
	svc, _ := testService(t)
	h := NewHandler(svc, svc.hub, zerolog.Nop())
	ctx := context.Background()

	oldConn := ws.NewConnection(nil, "u1", "Alice", zerolog.Nop())
	svc.hub.Register("u1", oldConn)

	require.NoError(t, svc.JoinQueue("u1", "Alice", DifficultyHard))
	require.NoError(t, svc.StartLooking("u1", "Alice", ws.StartLookingPayload{
		Difficulty: DifficultyHard,
		FriendIDs:  []string{"u2"},
	}))

	newConn := ws.NewConnection(nil, "u1", "Alice", zerolog.Nop())
	svc.hub.Register("u1", newConn)
	h.teardown(ctx, "u1", oldConn)

	assert.Equal(t, 1, svc.queue.Waiting(DifficultyHard), "queue entry survives replacement")
	_, looking := svc.lfg.Get("u1")
	assert.True(t, looking, "LFG advertisement survives replacement")
}
