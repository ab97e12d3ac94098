package game

import "time"

// Difficulty tiers. Matchmaking is partitioned by tier; there is no skill
// matching inside one.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ValidDifficulty reports whether d is a known tier.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// End-of-game reasons. Exactly one of these terminates a room.
const (
	EndReasonTimeout    = "timeout"
	EndReasonCompleted  = "both-completed"
	EndReasonDisconnect = "disconnect"
)

// RoomPlayer is one of the two members of a room.
type RoomPlayer struct {
	UserID      string
	DisplayName string
	Score       int
}

// AnswerRecord is one player's answer to one of their questions.
type AnswerRecord struct {
	Question      string
	CorrectAnswer string
	Answer        string
	Correct       bool
	TimeSpent     float64
}

// QuestionEntry is one slot of the room's answer log. Players advance
// through questions independently, so each slot maps userID to that
// player's answer at that index.
type QuestionEntry struct {
	Answers map[string]AnswerRecord
}

// Room is a two-party live game session.
type Room struct {
	ID              string
	Difficulty      string
	Players         [2]RoomPlayer
	StartedAt       *time.Time
	CompletionTimes map[string]float64
	Questions       []QuestionEntry
	Started         bool
	Ended           bool

	startTimer   *time.Timer
	expiryTimer  *time.Timer
	cleanupTimer *time.Timer
}

// MemberIDs returns both player ids.
func (r *Room) MemberIDs() []string {
	return []string{r.Players[0].UserID, r.Players[1].UserID}
}

// playerIndex returns the index of userID in Players, or -1.
func (r *Room) playerIndex(userID string) int {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Opponent returns the other member.
func (r *Room) Opponent(userID string) (RoomPlayer, bool) {
	idx := r.playerIndex(userID)
	if idx < 0 {
		return RoomPlayer{}, false
	}
	return r.Players[1-idx], true
}

// answerCount returns how many answers userID has logged, which is also
// that player's next question index.
func (r *Room) answerCount(userID string) int {
	n := 0
	for _, entry := range r.Questions {
		if _, ok := entry.Answers[userID]; ok {
			n++
		}
	}
	return n
}

// scores returns the current score map.
func (r *Room) scores() map[string]int {
	return map[string]int{
		r.Players[0].UserID: r.Players[0].Score,
		r.Players[1].UserID: r.Players[1].Score,
	}
}

// decideWinner arbitrates the outcome: higher score wins; on a score tie the
// lower completion time wins, with a missing time comparing as slower; a tie
// on both yields an explicit tie.
func decideWinner(r *Room) (winnerID string, tie bool) {
	p1, p2 := r.Players[0], r.Players[1]

	if p1.Score != p2.Score {
		if p1.Score > p2.Score {
			return p1.UserID, false
		}
		return p2.UserID, false
	}

	t1, ok1 := r.CompletionTimes[p1.UserID]
	t2, ok2 := r.CompletionTimes[p2.UserID]
	switch {
	case !ok1 && !ok2:
		return "", true
	case ok1 && !ok2:
		return p1.UserID, false
	case !ok1 && ok2:
		return p2.UserID, false
	case t1 < t2:
		return p1.UserID, false
	case t2 < t1:
		return p2.UserID, false
	}
	return "", true
}
