package game

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathduel/arena/internal/player"
	"github.com/mathduel/arena/pkg/http/ws"
)

func testService(t *testing.T) (*Service, *player.MemoryRepository) {
	t.Helper()
	repo := player.NewMemoryRepository()
	svc := NewService(ws.NewHub(zerolog.Nop()), repo, Config{
		StartCountdown:   time.Millisecond,
		RoomExpiry:       time.Minute,
		ChallengeExpiry:  time.Minute,
		CleanupDelay:     10 * time.Millisecond,
		PointsPerCorrect: 10,
	}, zerolog.Nop())
	return svc, repo
}

func seedPlayer(t *testing.T, repo *player.MemoryRepository, id, name string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &player.Record{ID: id, DisplayName: name}))
}

func TestJoinQueuePairsIntoRoom(t *testing.T) {
	svc, _ := testService(t)

	require.NoError(t, svc.JoinQueue("u1", "Alice", DifficultyEasy))
	_, ok := svc.rooms.ActiveRoomFor("u1")
	assert.False(t, ok, "one player waits")

	require.NoError(t, svc.JoinQueue("u2", "Bob", DifficultyEasy))
	room, ok := svc.rooms.ActiveRoomFor("u1")
	require.True(t, ok)
	assert.Equal(t, DifficultyEasy, room.Difficulty)
	assert.Equal(t, "u1", room.Players[0].UserID, "waiter is host")
	assert.Equal(t, "u2", room.Players[1].UserID)
	assert.Equal(t, 0, svc.queue.Waiting(DifficultyEasy))
}

func TestJoinQueueRejectsUnknownDifficulty(t *testing.T) {
	svc, _ := testService(t)

	require.NoError(t, svc.JoinQueue("u1", "Alice", "nightmare"))
	assert.Equal(t, 0, svc.queue.Waiting("nightmare"))
}

func TestEndGameAttributesStats(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()
	seedPlayer(t, repo, "u1", "Alice")
	seedPlayer(t, repo, "u2", "Bob")

	require.NoError(t, svc.JoinQueue("u1", "Alice", DifficultyMedium))
	require.NoError(t, svc.JoinQueue("u2", "Bob", DifficultyMedium))
	room, ok := svc.rooms.ActiveRoomFor("u1")
	require.True(t, ok)

	require.NoError(t, svc.SubmitAnswer("u1", ws.SubmitAnswerPayload{RoomID: room.ID, Correct: true}))
	require.NoError(t, svc.PlayerCompleted(ctx, "u1", ws.PlayerCompletedPayload{RoomID: room.ID, CompletionTime: 30}))
	require.NoError(t, svc.PlayerCompleted(ctx, "u2", ws.PlayerCompletedPayload{RoomID: room.ID, CompletionTime: 25}))

	// Both completed, so the game ended on its own.
	_, ok = svc.rooms.ActiveRoomFor("u1")
	assert.False(t, ok)

	winner, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, winner.GamesPlayed)
	assert.Equal(t, 1, winner.GamesWon)

	loser, err := repo.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, loser.GamesPlayed)
	assert.Equal(t, 0, loser.GamesWon)
}

func TestDisconnectEndsGameWithoutStats(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()
	seedPlayer(t, repo, "u1", "Alice")
	seedPlayer(t, repo, "u2", "Bob")

	require.NoError(t, svc.JoinQueue("u1", "Alice", DifficultyEasy))
	require.NoError(t, svc.JoinQueue("u2", "Bob", DifficultyEasy))
	room, ok := svc.rooms.ActiveRoomFor("u1")
	require.True(t, ok)

	svc.HandleDisconnect(ctx, "u1")

	_, ok = svc.rooms.ActiveRoomFor("u2")
	assert.False(t, ok, "room ended for both players")
	assert.True(t, room.Ended)

	for _, id := range []string{"u1", "u2"} {
		rec, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, rec.GamesPlayed, "disconnect endings carry no stats")
	}
}

func TestDisconnectClearsQueueAndLFG(t *testing.T) {
	svc, _ := testService(t)

	require.NoError(t, svc.JoinQueue("u1", "Alice", DifficultyHard))
	require.NoError(t, svc.StartLooking("u1", "Alice", ws.StartLookingPayload{
		Difficulty: DifficultyHard,
		FriendIDs:  []string{"u2"},
	}))

	svc.HandleDisconnect(context.Background(), "u1")

	assert.Equal(t, 0, svc.queue.Waiting(DifficultyHard))
	_, looking := svc.lfg.Get("u1")
	assert.False(t, looking)
}

func TestMatchingCancelsLFG(t *testing.T) {
	svc, _ := testService(t)

	require.NoError(t, svc.StartLooking("u1", "Alice", ws.StartLookingPayload{
		Difficulty: DifficultyEasy,
		FriendIDs:  []string{"u2"},
	}))
	require.NoError(t, svc.JoinQueue("u1", "Alice", DifficultyEasy))
	require.NoError(t, svc.JoinQueue("u2", "Bob", DifficultyEasy))

	_, looking := svc.lfg.Get("u1")
	assert.False(t, looking, "pairing withdraws the advertisement")
}

func TestAcceptChallengeRequiresAddressee(t *testing.T) {
	svc, _ := testService(t)

	ch := svc.challenges.Create("u1", "Alice", "u2", DifficultyEasy)
	require.NoError(t, svc.AcceptChallenge("u3", "Cara", ws.AcceptChallengePayload{ChallengeID: ch.ID}))

	_, ok := svc.rooms.ActiveRoomFor("u1")
	assert.False(t, ok, "a stranger cannot accept someone else's challenge")
	assert.Equal(t, 0, svc.challenges.Count(), "mismatched accept still consumes the challenge")
}

func TestDeclineChallengeConsumes(t *testing.T) {
	svc, _ := testService(t)

	ch := svc.challenges.Create("u1", "Alice", "u2", DifficultyEasy)
	require.NoError(t, svc.DeclineChallenge("u2", ws.DeclineChallengePayload{ChallengeID: ch.ID}))
	assert.Equal(t, 0, svc.challenges.Count())

	// Declining again is a quiet no-op.
	require.NoError(t, svc.DeclineChallenge("u2", ws.DeclineChallengePayload{ChallengeID: ch.ID}))
}

func TestRoomExpiryEndsGame(t *testing.T) {
	repo := player.NewMemoryRepository()
	svc := NewService(ws.NewHub(zerolog.Nop()), repo, Config{
		StartCountdown:   time.Millisecond,
		RoomExpiry:       20 * time.Millisecond,
		ChallengeExpiry:  time.Minute,
		CleanupDelay:     time.Minute,
		PointsPerCorrect: 10,
	}, zerolog.Nop())
	ctx := context.Background()
	seedPlayer(t, repo, "u1", "Alice")
	seedPlayer(t, repo, "u2", "Bob")

	require.NoError(t, svc.JoinQueue("u1", "Alice", DifficultyEasy))
	require.NoError(t, svc.JoinQueue("u2", "Bob", DifficultyEasy))
	_, ok := svc.rooms.ActiveRoomFor("u1")
	require.True(t, ok)

	// The expiry timer fires and ends the game with reason timeout, which
	// still counts toward stats.
	assert.Eventually(t, func() bool {
		for _, id := range []string{"u1", "u2"} {
			rec, err := repo.Get(ctx, id)
			if err != nil || rec.GamesPlayed != 1 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)

	_, ok = svc.rooms.ActiveRoomFor("u1")
	assert.False(t, ok)

	for _, id := range []string{"u1", "u2"} {
		rec, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.GamesPlayed)
		assert.Equal(t, 0, rec.GamesWon, "a scoreless expiry is a tie")
	}
}
