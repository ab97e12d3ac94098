package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Challenge is a pending friend-to-friend game invitation.
type Challenge struct {
	ID            string
	ChallengerID  string
	FriendID      string
	Difficulty    string
	CreatedAt     time.Time
	challengerTag string // display name, carried into the room

	timer *time.Timer
}

// ChallengerName returns the challenger's display name.
func (c *Challenge) ChallengerName() string { return c.challengerTag }

// ChallengeManager holds pending challenges and their expiry timers. A
// challenge is consumed by exactly one of: accept, decline, expiry.
type ChallengeManager struct {
	mu       sync.Mutex
	pending  map[string]*Challenge
	expiry   time.Duration
	onExpire func(ch *Challenge)
	logger   zerolog.Logger
}

// NewChallengeManager creates a challenge manager.
func NewChallengeManager(expiry time.Duration, logger zerolog.Logger) *ChallengeManager {
	return &ChallengeManager{
		pending: make(map[string]*Challenge),
		expiry:  expiry,
		logger:  logger,
	}
}

// SetExpiryCallback wires the expiry notification. Must be called before Create.
func (m *ChallengeManager) SetExpiryCallback(fn func(*Challenge)) {
	m.onExpire = fn
}

// Create registers a challenge and starts its expiry clock.
func (m *ChallengeManager) Create(challengerID, challengerName, friendID, difficulty string) *Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := &Challenge{
		ID:            uuid.NewString(),
		ChallengerID:  challengerID,
		FriendID:      friendID,
		Difficulty:    difficulty,
		CreatedAt:     time.Now(),
		challengerTag: challengerName,
	}
	m.pending[ch.ID] = ch

	id := ch.ID
	ch.timer = time.AfterFunc(m.expiry, func() {
		expired, ok := m.Take(id)
		if !ok {
			return
		}
		m.logger.Info().Str("challenge_id", id).Msg("challenge expired")
		if m.onExpire != nil {
			m.onExpire(expired)
		}
	})

	m.logger.Info().
		Str("challenge_id", ch.ID).
		Str("challenger_id", challengerID).
		Str("friend_id", friendID).
		Str("difficulty", difficulty).
		Msg("challenge created")
	return ch
}

// Take removes and returns the challenge, stopping its timer. The removal is
// atomic under the lock, so of a racing accept, decline and expiry exactly
// one caller gets ok=true.
func (m *ChallengeManager) Take(id string) (*Challenge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, exists := m.pending[id]
	if !exists {
		return nil, false
	}
	delete(m.pending, id)
	if ch.timer != nil {
		ch.timer.Stop()
	}
	return ch, true
}

// Count returns the number of pending challenges.
func (m *ChallengeManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
