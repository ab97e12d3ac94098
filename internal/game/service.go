package game

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathduel/arena/internal/player"
	httperrors "github.com/mathduel/arena/pkg/http/errors"
	"github.com/mathduel/arena/pkg/http/ws"
)

// Config carries the game-layer tunables.
type Config struct {
	StartCountdown   time.Duration
	RoomExpiry       time.Duration
	ChallengeExpiry  time.Duration
	CleanupDelay     time.Duration
	PointsPerCorrect int
}

// Service orchestrates matchmaking, rooms, challenges and the LFG board over
// the connection hub.
type Service struct {
	hub        *ws.Hub
	queue      *Queue
	rooms      *RoomManager
	challenges *ChallengeManager
	lfg        *LFGRegistry
	repo       player.Repository
	cfg        Config
	logger     zerolog.Logger
}

// NewService wires the game layer together.
func NewService(hub *ws.Hub, repo player.Repository, cfg Config, logger zerolog.Logger) *Service {
	s := &Service{
		hub:   hub,
		queue: NewQueue(logger),
		rooms: NewRoomManager(RoomTimers{
			StartCountdown: cfg.StartCountdown,
			Expiry:         cfg.RoomExpiry,
			CleanupDelay:   cfg.CleanupDelay,
		}, logger),
		challenges: NewChallengeManager(cfg.ChallengeExpiry, logger),
		lfg:        NewLFGRegistry(),
		repo:       repo,
		cfg:        cfg,
		logger:     logger,
	}
	s.rooms.SetCallbacks(s.handleRoomStart, s.handleRoomExpiry)
	s.challenges.SetExpiryCallback(s.handleChallengeExpiry)
	return s
}

// JoinQueue enqueues the player, or creates a room if an opponent is waiting.
// The caller joining is the guest; the player who waited longer is the host.
func (s *Service) JoinQueue(userID, displayName, difficulty string) error {
	if !ValidDifficulty(difficulty) {
		return s.sendError(userID, httperrors.ErrCodeInvalidDifficulty, "unknown difficulty: "+difficulty)
	}

	opponent, paired := s.queue.Join(difficulty, userID, displayName)
	if !paired {
		return nil
	}

	host := RoomPlayer{UserID: opponent.UserID, DisplayName: opponent.DisplayName}
	guest := RoomPlayer{UserID: userID, DisplayName: displayName}
	s.createRoom(difficulty, host, guest)
	return nil
}

// LeaveQueue removes the player from every difficulty queue.
func (s *Service) LeaveQueue(userID string) {
	s.queue.Leave(userID)
}

func (s *Service) createRoom(difficulty string, host, guest RoomPlayer) *Room {
	room := s.rooms.Create(difficulty, host, guest)
	activeRooms.Inc()
	matchesStarted.WithLabelValues(difficulty).Inc()

	// Pairing cancels any LFG advertisement either player still has up.
	s.stopLookingQuiet(host.UserID)
	s.stopLookingQuiet(guest.UserID)

	s.notify(host.UserID, ws.NewMessage(ws.TypeMatchFound, ws.MatchFoundPayload{
		RoomID:     room.ID,
		Difficulty: difficulty,
		IsHost:     true,
		Opponent:   ws.Player{UserID: guest.UserID, DisplayName: guest.DisplayName},
	}))
	s.notify(guest.UserID, ws.NewMessage(ws.TypeMatchFound, ws.MatchFoundPayload{
		RoomID:     room.ID,
		Difficulty: difficulty,
		IsHost:     false,
		Opponent:   ws.Player{UserID: host.UserID, DisplayName: host.DisplayName},
	}))
	return room
}

func (s *Service) handleRoomStart(room *Room, startedAt time.Time) {
	s.hub.SendToEach(room.MemberIDs(), ws.NewMessage(ws.TypeGameStart, ws.GameStartPayload{
		RoomID:    room.ID,
		StartedAt: startedAt.UTC().Format(time.RFC3339),
	}))
}

func (s *Service) handleRoomExpiry(roomID string) {
	s.EndGame(context.Background(), roomID, EndReasonTimeout)
}

// SubmitAnswer records an answer and broadcasts the updated state to both
// players.
func (s *Service) SubmitAnswer(userID string, p ws.SubmitAnswerPayload) error {
	rec := AnswerRecord{
		Question:      p.Question,
		CorrectAnswer: p.CorrectAnswer,
		Answer:        p.Answer,
		Correct:       p.Correct,
		TimeSpent:     p.TimeSpent,
	}
	res, err := s.rooms.SubmitAnswer(p.RoomID, userID, rec, s.cfg.PointsPerCorrect)
	if err != nil {
		return s.roomError(userID, err)
	}

	room, ok := s.rooms.Get(p.RoomID)
	if !ok {
		return nil
	}
	members := room.MemberIDs()
	s.hub.SendToEach(members, ws.NewMessage(ws.TypePlayerAnswer, ws.PlayerAnswerPayload{
		RoomID:        p.RoomID,
		UserID:        userID,
		Question:      p.Question,
		Answer:        p.Answer,
		Correct:       p.Correct,
		TimeSpent:     p.TimeSpent,
		QuestionIndex: res.QuestionIndex,
	}))
	s.hub.SendToEach(members, ws.NewMessage(ws.TypeScoreUpdate, ws.ScoreUpdatePayload{
		RoomID: p.RoomID,
		Scores: res.Scores,
	}))
	return nil
}

// PlayerCompleted records a completion time. When both players have
// completed, the game ends.
func (s *Service) PlayerCompleted(ctx context.Context, userID string, p ws.PlayerCompletedPayload) error {
	completions, err := s.rooms.PlayerCompleted(p.RoomID, userID, p.CompletionTime)
	if err != nil {
		return s.roomError(userID, err)
	}

	if room, ok := s.rooms.Get(p.RoomID); ok {
		if opp, ok := room.Opponent(userID); ok {
			s.notify(opp.UserID, ws.NewMessage(ws.TypePlayerCompleted, ws.OpponentCompletedPayload{
				RoomID:         p.RoomID,
				UserID:         userID,
				CompletionTime: p.CompletionTime,
			}))
		}
	}

	if completions >= 2 {
		s.EndGame(ctx, p.RoomID, EndReasonCompleted)
	}
	return nil
}

// LeaveRoom is a voluntary exit and ends the game like a disconnect.
func (s *Service) LeaveRoom(ctx context.Context, userID, roomID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return s.sendError(userID, httperrors.ErrCodeRoomNotFound, "room not found")
	}
	if opp, found := room.Opponent(userID); found {
		s.notify(opp.UserID, ws.NewMessage(ws.TypeOpponentDisconnect, ws.OpponentDisconnectPayload{
			RoomID: roomID,
			UserID: userID,
		}))
	}
	s.EndGame(ctx, roomID, EndReasonDisconnect)
	return nil
}

// EndGame finishes a room exactly once, broadcasts the summary and, except
// for disconnect endings, attributes the result to player stats.
func (s *Service) EndGame(ctx context.Context, roomID, reason string) {
	result, ok := s.rooms.Finish(roomID, reason)
	if !ok {
		return
	}
	activeRooms.Dec()
	gamesEnded.WithLabelValues(reason).Inc()

	payload := ws.GameEndPayload{
		RoomID:          result.RoomID,
		Reason:          result.Reason,
		WinnerID:        result.WinnerID,
		Tie:             result.Tie,
		Scores:          result.Scores,
		CompletionTimes: result.CompletionTimes,
		Questions:       make([]ws.QuestionSummary, len(result.Questions)),
		Players:         make(map[string]ws.PlayerResult, 2),
	}
	for i, entry := range result.Questions {
		answers := make(map[string]ws.AnswerDetail, len(entry.Answers))
		for id, a := range entry.Answers {
			answers[id] = ws.AnswerDetail{
				Question:      a.Question,
				CorrectAnswer: a.CorrectAnswer,
				Answer:        a.Answer,
				Correct:       a.Correct,
				TimeSpent:     a.TimeSpent,
			}
		}
		payload.Questions[i] = ws.QuestionSummary{Answers: answers}
	}
	for _, p := range result.Players {
		payload.Players[p.UserID] = ws.PlayerResult{DisplayName: p.DisplayName, Score: p.Score}
	}

	memberIDs := []string{result.Players[0].UserID, result.Players[1].UserID}
	s.hub.SendToEach(memberIDs, ws.NewMessage(ws.TypeGameEnd, payload))

	// A disconnect ending carries no stats: the game never ran to a
	// meaningful conclusion for either side.
	if reason != EndReasonDisconnect {
		for _, p := range result.Players {
			s.recordResult(ctx, p.UserID, !result.Tie && result.WinnerID == p.UserID)
		}
	}
}

func (s *Service) recordResult(ctx context.Context, userID string, won bool) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, player.ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("load player for stats")
		}
		return
	}
	rec.GamesPlayed++
	if won {
		rec.GamesWon++
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("save player stats")
	}
}

// SendChallenge creates a friend challenge lobby and notifies the target.
func (s *Service) SendChallenge(userID, displayName string, p ws.SendChallengePayload) error {
	if !ValidDifficulty(p.Difficulty) {
		return s.notify(userID, ws.NewMessage(ws.TypeChallengeError, ws.ChallengeErrorPayload{
			Code:    httperrors.ErrCodeInvalidDifficulty,
			Message: "unknown difficulty: " + p.Difficulty,
		}))
	}
	if !s.hub.IsOnline(p.FriendID) {
		return s.notify(userID, ws.NewMessage(ws.TypeChallengeError, ws.ChallengeErrorPayload{
			Code:    httperrors.ErrCodeTargetOffline,
			Message: "friend is not online",
		}))
	}

	ch := s.challenges.Create(userID, displayName, p.FriendID, p.Difficulty)

	s.notify(p.FriendID, ws.NewMessage(ws.TypeChallengeReceived, ws.ChallengeReceivedPayload{
		ChallengeID:    ch.ID,
		ChallengerID:   userID,
		ChallengerName: displayName,
		Difficulty:     p.Difficulty,
		ExpiresInSec:   int(s.cfg.ChallengeExpiry / time.Second),
	}))
	s.notify(userID, ws.NewMessage(ws.TypeChallengeLobbyCreated, ws.ChallengeLobbyCreatedPayload{
		ChallengeID: ch.ID,
		FriendID:    p.FriendID,
		Difficulty:  p.Difficulty,
	}))
	return nil
}

// AcceptChallenge consumes the challenge and creates a room with the
// challenger as host. The accept loses to a concurrent expiry or decline.
func (s *Service) AcceptChallenge(userID, displayName string, p ws.AcceptChallengePayload) error {
	ch, ok := s.challenges.Take(p.ChallengeID)
	if !ok {
		return s.notify(userID, ws.NewMessage(ws.TypeChallengeError, ws.ChallengeErrorPayload{
			Code:    httperrors.ErrCodeChallengeNotFound,
			Message: "challenge expired or no longer exists",
		}))
	}
	if ch.FriendID != userID {
		// Not this player's challenge to accept. Put it back unconsumed
		// is not possible; a mismatched id is a client bug, so the
		// challenge is gone and both sides learn it.
		s.notify(ch.ChallengerID, ws.NewMessage(ws.TypeChallengeExpired, ws.ChallengeExpiredPayload{
			ChallengeID: ch.ID,
		}))
		return s.notify(userID, ws.NewMessage(ws.TypeChallengeError, ws.ChallengeErrorPayload{
			Code:    httperrors.ErrCodeChallengeNotFound,
			Message: "challenge was not addressed to you",
		}))
	}
	if !s.hub.IsOnline(ch.ChallengerID) {
		return s.notify(userID, ws.NewMessage(ws.TypeChallengeError, ws.ChallengeErrorPayload{
			Code:    httperrors.ErrCodeChallengerOffline,
			Message: "challenger went offline",
		}))
	}

	host := RoomPlayer{UserID: ch.ChallengerID, DisplayName: ch.ChallengerName()}
	guest := RoomPlayer{UserID: userID, DisplayName: displayName}
	s.createRoom(ch.Difficulty, host, guest)
	return nil
}

// DeclineChallenge consumes the challenge and tells the challenger.
func (s *Service) DeclineChallenge(userID string, p ws.DeclineChallengePayload) error {
	ch, ok := s.challenges.Take(p.ChallengeID)
	if !ok {
		// Already expired or resolved; nothing to decline.
		return nil
	}
	if ch.FriendID != userID {
		return nil
	}
	return s.notify(ch.ChallengerID, ws.NewMessage(ws.TypeChallengeDeclined, ws.ChallengeDeclinedPayload{
		ChallengeID: ch.ID,
		FriendID:    userID,
	}))
}

func (s *Service) handleChallengeExpiry(ch *Challenge) {
	s.notify(ch.ChallengerID, ws.NewMessage(ws.TypeChallengeTimeout, ws.ChallengeTimeoutPayload{
		ChallengeID: ch.ID,
		FriendID:    ch.FriendID,
	}))
	s.notify(ch.FriendID, ws.NewMessage(ws.TypeChallengeExpired, ws.ChallengeExpiredPayload{
		ChallengeID: ch.ID,
	}))
}

// StartLooking advertises the player to their friends as looking for a game.
func (s *Service) StartLooking(userID, displayName string, p ws.StartLookingPayload) error {
	if !ValidDifficulty(p.Difficulty) {
		return s.sendError(userID, httperrors.ErrCodeInvalidDifficulty, "unknown difficulty: "+p.Difficulty)
	}

	entry := s.lfg.Start(userID, displayName, p.Difficulty, p.FriendIDs)
	msg := ws.NewMessage(ws.TypeFriendStartedLooking, ws.FriendLookingPayload{
		UserID:      userID,
		DisplayName: displayName,
		Difficulty:  p.Difficulty,
	})
	for _, fid := range entry.FriendIDs {
		if s.hub.IsOnline(fid) {
			s.notify(fid, msg)
			s.pushAvailableFriends(fid)
		}
	}
	return nil
}

// StopLooking withdraws the advertisement and tells the friends who saw it.
func (s *Service) StopLooking(userID string) error {
	entry, existed := s.lfg.Stop(userID)
	if !existed {
		return nil
	}
	msg := ws.NewMessage(ws.TypeFriendStoppedLooking, ws.FriendStoppedLookingPayload{UserID: userID})
	for _, fid := range entry.FriendIDs {
		if s.hub.IsOnline(fid) {
			s.notify(fid, msg)
			s.pushAvailableFriends(fid)
		}
	}
	return nil
}

// stopLookingQuiet withdraws the advertisement without the per-friend
// stopped-looking event, used when the player just got matched.
func (s *Service) stopLookingQuiet(userID string) {
	entry, existed := s.lfg.Stop(userID)
	if !existed {
		return
	}
	for _, fid := range entry.FriendIDs {
		if s.hub.IsOnline(fid) {
			s.pushAvailableFriends(fid)
		}
	}
}

func (s *Service) pushAvailableFriends(userID string) {
	entries := s.lfg.AvailableFor(userID)
	friends := make([]ws.FriendStatus, 0, len(entries))
	for _, e := range entries {
		friends = append(friends, ws.FriendStatus{
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Online:      s.hub.IsOnline(e.UserID),
			LookingFor:  e.Difficulty,
		})
	}
	s.notify(userID, ws.NewMessage(ws.TypeAvailableFriends, ws.AvailableFriendsPayload{Friends: friends}))
}

// FriendsStatus answers a presence query for the given friend ids.
func (s *Service) FriendsStatus(userID string, p ws.GetFriendsStatusPayload) error {
	statuses := make([]ws.FriendStatus, 0, len(p.FriendIDs))
	for _, fid := range p.FriendIDs {
		status := ws.FriendStatus{UserID: fid, Online: s.hub.IsOnline(fid)}
		if entry, looking := s.lfg.Get(fid); looking {
			status.LookingFor = entry.Difficulty
			status.DisplayName = entry.DisplayName
		}
		statuses = append(statuses, status)
	}
	return s.notify(userID, ws.NewMessage(ws.TypeFriendsStatus, ws.FriendsStatusPayload{Friends: statuses}))
}

// HandleDisconnect tears down everything the departing player held: queue
// entries, LFG advertisement and any live room.
func (s *Service) HandleDisconnect(ctx context.Context, userID string) {
	s.queue.Leave(userID)
	s.stopLookingQuiet(userID)

	if room, ok := s.rooms.ActiveRoomFor(userID); ok {
		if opp, found := room.Opponent(userID); found {
			s.notify(opp.UserID, ws.NewMessage(ws.TypeOpponentDisconnect, ws.OpponentDisconnectPayload{
				RoomID: room.ID,
				UserID: userID,
			}))
		}
		s.EndGame(ctx, room.ID, EndReasonDisconnect)
	}
}

func (s *Service) roomError(userID string, err error) error {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrRoomEnded):
		return s.sendError(userID, httperrors.ErrCodeRoomNotFound, "room not found or already ended")
	case errors.Is(err, ErrNotInRoom):
		return s.sendError(userID, httperrors.ErrCodeNotInRoom, "you are not in this room")
	}
	return s.sendError(userID, httperrors.ErrCodeInternalError, "internal error")
}

func (s *Service) sendError(userID, code, message string) error {
	return s.notify(userID, ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message}))
}

func (s *Service) notify(userID string, msg ws.Message) error {
	if err := s.hub.SendToUser(userID, msg); err != nil {
		s.logger.Debug().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("notify failed")
	}
	return nil
}
