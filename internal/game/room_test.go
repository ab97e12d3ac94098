package game

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoomManager() *RoomManager {
	return NewRoomManager(RoomTimers{
		StartCountdown: 5 * time.Millisecond,
		Expiry:         time.Minute,
		CleanupDelay:   10 * time.Millisecond,
	}, zerolog.Nop())
}

func newTestRoom(t *testing.T, m *RoomManager) *Room {
	t.Helper()
	return m.Create(DifficultyEasy,
		RoomPlayer{UserID: "u1", DisplayName: "Alice"},
		RoomPlayer{UserID: "u2", DisplayName: "Bob"},
	)
}

func TestRoomStartsAfterCountdown(t *testing.T) {
	m := testRoomManager()
	started := make(chan time.Time, 1)
	m.SetCallbacks(func(_ *Room, at time.Time) { started <- at }, nil)

	room := newTestRoom(t, m)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("start callback never fired")
	}

	got, ok := m.Get(room.ID)
	require.True(t, ok)
	assert.True(t, got.Started)
	assert.NotNil(t, got.StartedAt)
}

func TestSubmitAnswerScoresAndIndexes(t *testing.T) {
	m := testRoomManager()
	room := newTestRoom(t, m)

	res, err := m.SubmitAnswer(room.ID, "u1", AnswerRecord{Question: "2+2", Answer: "4", Correct: true}, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.QuestionIndex)
	assert.Equal(t, 10, res.Scores["u1"])
	assert.Equal(t, 0, res.Scores["u2"])

	res, err = m.SubmitAnswer(room.ID, "u1", AnswerRecord{Question: "3+3", Answer: "7", Correct: false}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.QuestionIndex, "players advance through their own indexes")
	assert.Equal(t, 10, res.Scores["u1"], "wrong answers score nothing")

	// The opponent is still on their first question.
	res, err = m.SubmitAnswer(room.ID, "u2", AnswerRecord{Question: "5+1", Answer: "6", Correct: true}, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.QuestionIndex)
	assert.Equal(t, 10, res.Scores["u2"])
}

func TestSubmitAnswerRejectsOutsiders(t *testing.T) {
	m := testRoomManager()
	room := newTestRoom(t, m)

	_, err := m.SubmitAnswer(room.ID, "stranger", AnswerRecord{}, 10)
	assert.ErrorIs(t, err, ErrNotInRoom)

	_, err = m.SubmitAnswer("no-such-room", "u1", AnswerRecord{}, 10)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestPlayerCompletedCountsDistinct(t *testing.T) {
	m := testRoomManager()
	room := newTestRoom(t, m)

	n, err := m.PlayerCompleted(room.ID, "u1", 42.5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.PlayerCompleted(room.ID, "u1", 50.0)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "repeat completion is a no-op")

	n, err = m.PlayerCompleted(room.ID, "u2", 60.0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	result, ok := m.Finish(room.ID, EndReasonCompleted)
	require.True(t, ok)
	assert.InDelta(t, 42.5, result.CompletionTimes["u1"], 0.001, "first completion time sticks")
}

func TestFinishIsIdempotent(t *testing.T) {
	m := testRoomManager()
	room := newTestRoom(t, m)

	result, ok := m.Finish(room.ID, EndReasonCompleted)
	require.True(t, ok)
	assert.Equal(t, EndReasonCompleted, result.Reason)

	_, ok = m.Finish(room.ID, EndReasonTimeout)
	assert.False(t, ok, "second finish loses")

	_, err := m.SubmitAnswer(room.ID, "u1", AnswerRecord{Correct: true}, 10)
	assert.ErrorIs(t, err, ErrRoomEnded)
}

func TestFinishCleansUpAfterDelay(t *testing.T) {
	m := testRoomManager()
	room := newTestRoom(t, m)

	_, ok := m.Finish(room.ID, EndReasonDisconnect)
	require.True(t, ok)

	_, found := m.Get(room.ID)
	assert.True(t, found, "room lingers through the cleanup delay")

	assert.Eventually(t, func() bool {
		_, found := m.Get(room.ID)
		return !found
	}, time.Second, 5*time.Millisecond)
}

func TestDecideWinner(t *testing.T) {
	cases := []struct {
		name        string
		scores      [2]int
		completions map[string]float64
		wantWinner  string
		wantTie     bool
	}{
		{"higher score wins", [2]int{30, 20}, map[string]float64{"u1": 50, "u2": 40}, "u1", false},
		{"score beats speed", [2]int{20, 30}, map[string]float64{"u1": 10, "u2": 99}, "u2", false},
		{"tie broken by time", [2]int{30, 30}, map[string]float64{"u1": 45, "u2": 44}, "u2", false},
		{"missing time is slower", [2]int{30, 30}, map[string]float64{"u1": 45}, "u1", false},
		{"full tie", [2]int{30, 30}, map[string]float64{"u1": 45, "u2": 45}, "", true},
		{"no completions tie", [2]int{10, 10}, map[string]float64{}, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			room := &Room{
				Players: [2]RoomPlayer{
					{UserID: "u1", Score: tc.scores[0]},
					{UserID: "u2", Score: tc.scores[1]},
				},
				CompletionTimes: tc.completions,
			}
			winner, tie := decideWinner(room)
			assert.Equal(t, tc.wantWinner, winner)
			assert.Equal(t, tc.wantTie, tie)
		})
	}
}

func TestActiveRoomFor(t *testing.T) {
	m := testRoomManager()
	room := newTestRoom(t, m)

	found, ok := m.ActiveRoomFor("u2")
	require.True(t, ok)
	assert.Equal(t, room.ID, found.ID)

	_, ok = m.ActiveRoomFor("stranger")
	assert.False(t, ok)

	m.Finish(room.ID, EndReasonDisconnect)
	_, ok = m.ActiveRoomFor("u2")
	assert.False(t, ok, "ended rooms are not active")
}

func TestExpiryEndsRoomWithTimeout(t *testing.T) {
	m := NewRoomManager(RoomTimers{
		StartCountdown: time.Millisecond,
		Expiry:         20 * time.Millisecond,
		CleanupDelay:   time.Minute,
	}, zerolog.Nop())

	results := make(chan FinishResult, 2)
	m.SetCallbacks(nil, func(roomID string) {
		if res, ok := m.Finish(roomID, EndReasonTimeout); ok {
			results <- res
		}
	})

	room := newTestRoom(t, m)

	select {
	case res := <-results:
		assert.Equal(t, EndReasonTimeout, res.Reason)
		assert.Equal(t, room.ID, res.RoomID)
	case <-time.After(time.Second):
		t.Fatal("expiry never ended the room")
	}

	select {
	case <-results:
		t.Fatal("room ended twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEarlyFinishSuppressesExpiry(t *testing.T) {
	m := NewRoomManager(RoomTimers{
		StartCountdown: time.Millisecond,
		Expiry:         30 * time.Millisecond,
		CleanupDelay:   time.Minute,
	}, zerolog.Nop())

	started := make(chan struct{}, 1)
	results := make(chan FinishResult, 1)
	m.SetCallbacks(
		func(*Room, time.Time) { started <- struct{}{} },
		func(roomID string) {
			if res, ok := m.Finish(roomID, EndReasonTimeout); ok {
				results <- res
			}
		},
	)

	room := newTestRoom(t, m)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("room never started")
	}

	// The game ends while the expiry clock is armed; the clock must lose.
	_, ok := m.Finish(room.ID, EndReasonCompleted)
	require.True(t, ok)

	select {
	case <-results:
		t.Fatal("expiry fired after the room already ended")
	case <-time.After(100 * time.Millisecond):
	}
}
