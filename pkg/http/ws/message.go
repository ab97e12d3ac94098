package ws

import "encoding/json"

// MessageType constants for the realtime protocol.
const (
	// Client -> Server
	TypeJoinMatchmaking  = "join-matchmaking"
	TypeLeaveMatchmaking = "leave-matchmaking"
	TypeSubmitAnswer     = "submit-answer"
	TypePlayerCompleted  = "player-completed"
	TypeLeaveRoom        = "leave-room"
	TypeSendChallenge    = "send-friend-challenge"
	TypeAcceptChallenge  = "accept-friend-challenge"
	TypeDeclineChallenge = "decline-friend-challenge"
	TypeStartLooking     = "start-looking-for-game"
	TypeStopLooking      = "stop-looking-for-game"
	TypeGetFriendsStatus = "get-friends-status"

	// Server -> Client. player-completed is reused in this direction to
	// relay a completion to the opponent.
	TypeMatchFound            = "match-found"
	TypeGameStart             = "game-start"
	TypePlayerAnswer          = "player-answer"
	TypeScoreUpdate           = "score-update"
	TypeGameEnd               = "game-end"
	TypeOpponentDisconnect    = "opponent-disconnect"
	TypeChallengeReceived     = "friend-challenge-received"
	TypeChallengeLobbyCreated = "challenge-lobby-created"
	TypeChallengeTimeout      = "challenge-timeout"
	TypeChallengeExpired      = "challenge-expired"
	TypeChallengeDeclined     = "friend-challenge-declined"
	TypeChallengeError        = "challenge-error"
	TypeFriendsStatus         = "friends-status"
	TypeAvailableFriends      = "available-friends-update"
	TypeFriendStartedLooking  = "friend-started-looking"
	TypeFriendStoppedLooking  = "friend-stopped-looking"
	TypeFriendRequestReceived = "friend-request-received"
	TypeError                 = "error"
)

// Message wraps every frame on the wire with its type.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into a typed message. Marshal errors are
// impossible for the protocol structs below, so they are swallowed.
func NewMessage(msgType string, payload interface{}) Message {
	msg := Message{Type: msgType}
	if payload != nil {
		msg.Payload, _ = json.Marshal(payload)
	}
	return msg
}

// Client messages (incoming)

type JoinMatchmakingPayload struct {
	Difficulty string `json:"difficulty"`
}

type SubmitAnswerPayload struct {
	RoomID        string  `json:"room_id"`
	Question      string  `json:"question"`
	CorrectAnswer string  `json:"correct_answer"`
	Answer        string  `json:"answer"`
	Correct       bool    `json:"correct"`
	TimeSpent     float64 `json:"time_spent"`
}

type PlayerCompletedPayload struct {
	RoomID         string  `json:"room_id"`
	CompletionTime float64 `json:"completion_time"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"room_id"`
}

type SendChallengePayload struct {
	FriendID   string `json:"friend_id"`
	Difficulty string `json:"difficulty"`
}

type AcceptChallengePayload struct {
	ChallengeID  string `json:"challenge_id"`
	ChallengerID string `json:"challenger_id"`
}

type DeclineChallengePayload struct {
	ChallengeID  string `json:"challenge_id"`
	ChallengerID string `json:"challenger_id"`
}

type StartLookingPayload struct {
	Difficulty string   `json:"difficulty"`
	FriendIDs  []string `json:"friend_ids"`
}

type GetFriendsStatusPayload struct {
	FriendIDs []string `json:"friend_ids"`
}

// Server messages (outgoing)

type MatchFoundPayload struct {
	RoomID     string `json:"room_id"`
	Difficulty string `json:"difficulty"`
	IsHost     bool   `json:"is_host"`
	Opponent   Player `json:"opponent"`
}

type Player struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type GameStartPayload struct {
	RoomID    string `json:"room_id"`
	StartedAt string `json:"started_at"`
}

type PlayerAnswerPayload struct {
	RoomID        string  `json:"room_id"`
	UserID        string  `json:"user_id"`
	Question      string  `json:"question"`
	Answer        string  `json:"answer"`
	Correct       bool    `json:"correct"`
	TimeSpent     float64 `json:"time_spent"`
	QuestionIndex int     `json:"question_index"`
}

type ScoreUpdatePayload struct {
	RoomID string         `json:"room_id"`
	Scores map[string]int `json:"scores"`
}

type OpponentCompletedPayload struct {
	RoomID         string  `json:"room_id"`
	UserID         string  `json:"user_id"`
	CompletionTime float64 `json:"completion_time"`
}

type GameEndPayload struct {
	RoomID          string                  `json:"room_id"`
	Reason          string                  `json:"reason"`
	WinnerID        string                  `json:"winner_id,omitempty"`
	Tie             bool                    `json:"tie"`
	Scores          map[string]int          `json:"scores"`
	CompletionTimes map[string]float64      `json:"completion_times"`
	Questions       []QuestionSummary       `json:"questions"`
	Players         map[string]PlayerResult `json:"players"`
}

type PlayerResult struct {
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// QuestionSummary is one slot of the per-question answer log. Each player
// advances through questions independently, so a slot can hold answers for
// one or both players.
type QuestionSummary struct {
	Answers map[string]AnswerDetail `json:"answers"`
}

type AnswerDetail struct {
	Question      string  `json:"question"`
	CorrectAnswer string  `json:"correct_answer"`
	Answer        string  `json:"answer"`
	Correct       bool    `json:"correct"`
	TimeSpent     float64 `json:"time_spent"`
}

type OpponentDisconnectPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type ChallengeReceivedPayload struct {
	ChallengeID    string `json:"challenge_id"`
	ChallengerID   string `json:"challenger_id"`
	ChallengerName string `json:"challenger_name"`
	Difficulty     string `json:"difficulty"`
	ExpiresInSec   int    `json:"expires_in_sec"`
}

type ChallengeLobbyCreatedPayload struct {
	ChallengeID string `json:"challenge_id"`
	FriendID    string `json:"friend_id"`
	Difficulty  string `json:"difficulty"`
}

type ChallengeTimeoutPayload struct {
	ChallengeID string `json:"challenge_id"`
	FriendID    string `json:"friend_id"`
}

type ChallengeExpiredPayload struct {
	ChallengeID string `json:"challenge_id"`
}

type ChallengeDeclinedPayload struct {
	ChallengeID string `json:"challenge_id"`
	FriendID    string `json:"friend_id"`
}

type ChallengeErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type FriendStatus struct {
	UserID      string `json:"user_id"`
	Online      bool   `json:"online"`
	LookingFor  string `json:"looking_for,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

type FriendsStatusPayload struct {
	Friends []FriendStatus `json:"friends"`
}

type AvailableFriendsPayload struct {
	Friends []FriendStatus `json:"friends"`
}

type FriendLookingPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"`
}

type FriendStoppedLookingPayload struct {
	UserID string `json:"user_id"`
}

type FriendRequestReceivedPayload struct {
	RequestID string `json:"request_id"`
	FromID    string `json:"from_id"`
	FromName  string `json:"from_name"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
