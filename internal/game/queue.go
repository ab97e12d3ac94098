package game

import (
	"sync"

	"github.com/rs/zerolog"
)

// QueueEntry is a player waiting for an anonymous opponent.
type QueueEntry struct {
	UserID      string
	DisplayName string
}

// Queue holds per-difficulty FIFO waiting lists. Pairing is strict FIFO
// within a tier; no skill matching.
type Queue struct {
	mu      sync.Mutex
	waiting map[string][]QueueEntry // difficulty -> ordered entries
	logger  zerolog.Logger
}

// NewQueue creates an empty matchmaking queue.
func NewQueue(logger zerolog.Logger) *Queue {
	return &Queue{
		waiting: make(map[string][]QueueEntry),
		logger:  logger,
	}
}

// Join pairs the caller with the head of the difficulty's queue, or appends
// the caller to its tail. The returned opponent is the dequeued party (the
// room host). A joiner already waiting anywhere is first removed, so a
// repeated join can never self-match.
func (q *Queue) Join(difficulty, userID, displayName string) (opponent QueueEntry, paired bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(userID)

	list := q.waiting[difficulty]
	if len(list) > 0 {
		opponent = list[0]
		q.waiting[difficulty] = list[1:]
		q.logger.Info().
			Str("difficulty", difficulty).
			Str("user_id", userID).
			Str("opponent_id", opponent.UserID).
			Msg("players paired")
		return opponent, true
	}

	q.waiting[difficulty] = append(list, QueueEntry{UserID: userID, DisplayName: displayName})
	q.logger.Info().Str("difficulty", difficulty).Str("user_id", userID).Msg("player enqueued")
	return QueueEntry{}, false
}

// Leave removes the first matching entry from every difficulty queue.
// Idempotent if absent.
func (q *Queue) Leave(userID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(userID)
}

// Waiting returns the number of waiters in one difficulty tier.
func (q *Queue) Waiting(difficulty string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting[difficulty])
}

func (q *Queue) removeLocked(userID string) {
	for difficulty, list := range q.waiting {
		for i, entry := range list {
			if entry.UserID == userID {
				q.waiting[difficulty] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}
