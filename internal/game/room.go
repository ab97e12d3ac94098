package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomEnded    = errors.New("room already ended")
	ErrNotInRoom    = errors.New("player not in room")
)

// RoomTimers groups the fixed delays of the room lifecycle.
type RoomTimers struct {
	StartCountdown time.Duration // pairing -> game-start
	Expiry         time.Duration // game-start -> forced timeout
	CleanupDelay   time.Duration // game-end -> room deletion
}

// RoomManager owns the live room map and every room timer. All timers are
// stopped on the corresponding terminal transition so none can double-fire.
type RoomManager struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	timers RoomTimers
	logger zerolog.Logger

	// onStart fires when a room's countdown elapses; onExpire when its
	// expiry timer fires. Both are invoked outside the manager lock.
	onStart  func(room *Room, startedAt time.Time)
	onExpire func(roomID string)
}

// NewRoomManager creates a room manager.
func NewRoomManager(timers RoomTimers, logger zerolog.Logger) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		timers: timers,
		logger: logger,
	}
}

// SetCallbacks wires lifecycle callbacks. Must be called before Create.
func (m *RoomManager) SetCallbacks(onStart func(*Room, time.Time), onExpire func(string)) {
	m.onStart = onStart
	m.onExpire = onExpire
}

// Create allocates a room for a paired host and guest and schedules the
// start countdown. Both players begin at score 0.
func (m *RoomManager) Create(difficulty string, host, guest RoomPlayer) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	host.Score = 0
	guest.Score = 0
	room := &Room{
		ID:              uuid.NewString(),
		Difficulty:      difficulty,
		Players:         [2]RoomPlayer{host, guest},
		CompletionTimes: make(map[string]float64),
	}
	m.rooms[room.ID] = room

	roomID := room.ID
	room.startTimer = time.AfterFunc(m.timers.StartCountdown, func() {
		m.startRoom(roomID)
	})

	m.logger.Info().
		Str("room_id", room.ID).
		Str("difficulty", difficulty).
		Str("host_id", host.UserID).
		Str("guest_id", guest.UserID).
		Msg("room created")
	return room
}

func (m *RoomManager) startRoom(roomID string) {
	m.mu.Lock()
	room, exists := m.rooms[roomID]
	if !exists || room.Ended || room.Started {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	room.Started = true
	room.StartedAt = &now
	room.expiryTimer = time.AfterFunc(m.timers.Expiry, func() {
		if m.onExpire != nil {
			m.onExpire(roomID)
		}
	})
	onStart := m.onStart
	m.mu.Unlock()

	m.logger.Info().Str("room_id", roomID).Msg("game started")
	if onStart != nil {
		onStart(room, now)
	}
}

// Get returns a room by id.
func (m *RoomManager) Get(roomID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, exists := m.rooms[roomID]
	return room, exists
}

// ActiveRoomFor returns the not-yet-ended room containing userID, if any.
func (m *RoomManager) ActiveRoomFor(userID string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		if !room.Ended && room.playerIndex(userID) >= 0 {
			return room, true
		}
	}
	return nil, false
}

// SubmitResult is the state snapshot broadcast after an answer.
type SubmitResult struct {
	QuestionIndex int
	Scores        map[string]int
}

// SubmitAnswer logs an answer under the player's own running question index
// and awards points for a correct one.
func (m *RoomManager) SubmitAnswer(roomID, userID string, rec AnswerRecord, points int) (SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return SubmitResult{}, ErrRoomNotFound
	}
	if room.Ended {
		return SubmitResult{}, ErrRoomEnded
	}
	idx := room.playerIndex(userID)
	if idx < 0 {
		return SubmitResult{}, ErrNotInRoom
	}

	if rec.Correct {
		room.Players[idx].Score += points
	}

	qIdx := room.answerCount(userID)
	for len(room.Questions) <= qIdx {
		room.Questions = append(room.Questions, QuestionEntry{Answers: make(map[string]AnswerRecord)})
	}
	room.Questions[qIdx].Answers[userID] = rec

	return SubmitResult{QuestionIndex: qIdx, Scores: room.scores()}, nil
}

// PlayerCompleted records a completion time. Returns the number of distinct
// completions so far; recording the same player twice is a no-op.
func (m *RoomManager) PlayerCompleted(roomID, userID string, seconds float64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return 0, ErrRoomNotFound
	}
	if room.Ended {
		return 0, ErrRoomEnded
	}
	if room.playerIndex(userID) < 0 {
		return 0, ErrNotInRoom
	}

	if _, done := room.CompletionTimes[userID]; !done {
		room.CompletionTimes[userID] = seconds
	}
	return len(room.CompletionTimes), nil
}

// FinishResult is the end-of-game summary snapshot.
type FinishResult struct {
	RoomID          string
	Reason          string
	WinnerID        string
	Tie             bool
	Scores          map[string]int
	CompletionTimes map[string]float64
	Questions       []QuestionEntry
	Players         [2]RoomPlayer
}

// Finish ends a room at most once. The ended flag resolves the race between
// the expiry timer, a late completion and a disconnect: whichever caller
// gets the flag first wins and every later caller gets ok=false. The room
// itself is deleted after the cleanup delay so in-flight deliveries settle.
func (m *RoomManager) Finish(roomID, reason string) (FinishResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, exists := m.rooms[roomID]
	if !exists || room.Ended {
		return FinishResult{}, false
	}

	room.Ended = true
	if room.startTimer != nil {
		room.startTimer.Stop()
	}
	if room.expiryTimer != nil {
		room.expiryTimer.Stop()
	}

	winnerID, tie := decideWinner(room)

	completions := make(map[string]float64, len(room.CompletionTimes))
	for id, t := range room.CompletionTimes {
		completions[id] = t
	}
	questions := make([]QuestionEntry, len(room.Questions))
	for i, entry := range room.Questions {
		answers := make(map[string]AnswerRecord, len(entry.Answers))
		for id, a := range entry.Answers {
			answers[id] = a
		}
		questions[i] = QuestionEntry{Answers: answers}
	}

	room.cleanupTimer = time.AfterFunc(m.timers.CleanupDelay, func() {
		m.mu.Lock()
		delete(m.rooms, roomID)
		m.mu.Unlock()
	})

	m.logger.Info().
		Str("room_id", roomID).
		Str("reason", reason).
		Str("winner_id", winnerID).
		Bool("tie", tie).
		Msg("game ended")

	return FinishResult{
		RoomID:          roomID,
		Reason:          reason,
		WinnerID:        winnerID,
		Tie:             tie,
		Scores:          room.scores(),
		CompletionTimes: completions,
		Questions:       questions,
		Players:         room.Players,
	}, true
}

// Count returns the number of rooms currently held, ended-but-uncollected
// ones included.
func (m *RoomManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}
