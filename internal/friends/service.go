package friends

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mathduel/arena/internal/player"
	httperrors "github.com/mathduel/arena/pkg/http/errors"
	"github.com/mathduel/arena/pkg/http/ws"
)

// Notifier pushes live events to connected recipients. Offline recipients
// pick changes up from their record on the next sync.
type Notifier interface {
	IsOnline(userID string) bool
	SendToUser(userID string, msg ws.Message) error
}

// Outcome is the result of a friend-protocol operation. Reason is always one
// of the machine-readable codes; OK distinguishes success from rejection.
type Outcome struct {
	OK        bool   `json:"success"`
	Reason    string `json:"reason"`
	RequestID string `json:"request_id,omitempty"`
}

// Relationship status values returned by Status.
const (
	StatusFriends         = "friends"
	StatusPendingOutgoing = "pending_outgoing"
	StatusPendingIncoming = "pending_incoming"
	StatusNone            = "none"
)

// ServiceOptions configures protocol windows.
type ServiceOptions struct {
	RequestExpiry time.Duration // full staleness window, default 72h
}

// Service implements the friend-request protocol against the player
// repository. All mutations run under one mutex: the repository is the only
// suspension point, and interleaving two mutations around a storage round
// trip is exactly what the dedupe and purge invariants must survive.
type Service struct {
	repo     player.Repository
	limiter  Limiter
	notifier Notifier
	expiry   time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewService creates the friend protocol service.
func NewService(repo player.Repository, limiter Limiter, notifier Notifier, opts ServiceOptions, logger zerolog.Logger) *Service {
	expiry := opts.RequestExpiry
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}
	return &Service{
		repo:     repo,
		limiter:  limiter,
		notifier: notifier,
		expiry:   expiry,
		logger:   logger,
		now:      time.Now,
	}
}

// SendRequest runs the full add-friend-request protocol from fromID to toID.
// Every outcome carries a reason code; corrID is threaded through all logs.
func (s *Service) SendRequest(ctx context.Context, fromID, fromName, toID, corrID string) (Outcome, error) {
	outcome, err := s.sendRequest(ctx, fromID, fromName, toID, corrID)
	if err == nil {
		requestOutcomes.WithLabelValues(outcome.Reason).Inc()
	}
	return outcome, err
}

func (s *Service) sendRequest(ctx context.Context, fromID, fromName, toID, corrID string) (Outcome, error) {
	log := s.logger.With().
		Str("correlation_id", corrID).
		Str("from_id", fromID).
		Str("to_id", toID).
		Logger()

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, fromID, toID)
		if err != nil {
			return Outcome{}, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			log.Warn().Str("reason", httperrors.ReasonRateLimited).Msg("friend request rejected")
			return Outcome{Reason: httperrors.ReasonRateLimited}, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	halfWindow := s.expiry / 2

	target, err := s.repo.Get(ctx, toID)
	if err != nil {
		if err == player.ErrNotFound {
			log.Info().Str("reason", httperrors.ReasonPlayerNotFound).Msg("friend request rejected")
			return Outcome{Reason: httperrors.ReasonPlayerNotFound}, nil
		}
		return Outcome{}, fmt.Errorf("load target: %w", err)
	}

	// Staleness is evaluated lazily on every call, never by a sweep.
	targetDirty := target.PurgeStaleRequests(now, s.expiry) > 0

	if target.HasFriend(fromID) {
		if targetDirty {
			s.saveQuiet(ctx, target, log)
		}
		log.Info().Str("reason", httperrors.ReasonAlreadyFriends).Msg("friend request rejected")
		return Outcome{Reason: httperrors.ReasonAlreadyFriends}, nil
	}

	replaced := false
	if existing := target.PendingRequestFrom(fromID); existing != nil {
		if now.Sub(existing.Timestamp) <= halfWindow {
			if targetDirty {
				s.saveQuiet(ctx, target, log)
			}
			log.Info().Str("reason", httperrors.ReasonPendingFresh).Msg("friend request rejected")
			return Outcome{Reason: httperrors.ReasonPendingFresh}, nil
		}
		// Aging requests are superseded rather than blocking retries.
		target.DeleteRequest(existing.ID)
		targetDirty = true
		replaced = true
	}

	// Reciprocity: check the sender's own inbox for a pending request from
	// the target, purging its stale entries first.
	sender, err := s.repo.Get(ctx, fromID)
	if err != nil && err != player.ErrNotFound {
		return Outcome{}, fmt.Errorf("load sender: %w", err)
	}
	if sender != nil {
		senderDirty := sender.PurgeStaleRequests(now, s.expiry) > 0

		if reverse := sender.PendingRequestFrom(toID); reverse != nil {
			if now.Sub(reverse.Timestamp) > halfWindow {
				// Both sides tried to friend each other and the older
				// request has aged past the replacement threshold:
				// resolve it as an acceptance instead of deadlocking.
				sender.DeleteRequest(reverse.ID)
				sender.AddFriend(toID)
				target.AddFriend(fromID)

				if err := s.repo.Save(ctx, sender); err != nil {
					return Outcome{}, fmt.Errorf("save sender: %w", err)
				}
				if err := s.repo.Save(ctx, target); err != nil {
					return Outcome{}, fmt.Errorf("save target: %w", err)
				}
				log.Info().Str("reason", httperrors.ReasonReverseAutoAccepted).Msg("reciprocal request auto-accepted")
				return Outcome{OK: true, Reason: httperrors.ReasonReverseAutoAccepted}, nil
			}

			if senderDirty {
				s.saveQuiet(ctx, sender, log)
			}
			if targetDirty {
				s.saveQuiet(ctx, target, log)
			}
			log.Info().Str("reason", httperrors.ReasonReversePending).Msg("friend request rejected")
			return Outcome{Reason: httperrors.ReasonReversePending}, nil
		}

		if senderDirty {
			s.saveQuiet(ctx, sender, log)
		}
	}

	req := player.FriendRequest{
		ID:        uuid.NewString(),
		FromID:    fromID,
		FromName:  fromName,
		ToID:      toID,
		Timestamp: now,
		Status:    player.RequestStatusPending,
	}
	target.FriendRequests = append(target.FriendRequests, req)

	if err := s.repo.Save(ctx, target); err != nil {
		return Outcome{}, fmt.Errorf("save target: %w", err)
	}

	reason := httperrors.ReasonCreated
	if replaced {
		reason = httperrors.ReasonPendingReplaced
	}
	log.Info().Str("reason", reason).Str("request_id", req.ID).Msg("friend request created")

	s.notifyRequest(toID, req)

	return Outcome{OK: true, Reason: reason, RequestID: req.ID}, nil
}

// AcceptRequest accepts the pending request with requestID in userID's
// inbox. Both directions of the friendship are written; the request is
// deleted from both sides' views.
func (s *Service) AcceptRequest(ctx context.Context, userID, requestID, corrID string) (Outcome, error) {
	log := s.logger.With().
		Str("correlation_id", corrID).
		Str("user_id", userID).
		Str("request_id", requestID).
		Logger()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if err == player.ErrNotFound {
			return Outcome{Reason: httperrors.ReasonPlayerNotFound}, nil
		}
		return Outcome{}, fmt.Errorf("load player: %w", err)
	}

	req := rec.RequestByID(requestID)
	if req == nil || req.Status != player.RequestStatusPending {
		log.Info().Str("reason", httperrors.ReasonRequestNotFound).Msg("accept rejected")
		return Outcome{Reason: httperrors.ReasonRequestNotFound}, nil
	}
	fromID := req.FromID

	rec.DeleteRequest(requestID)
	rec.AddFriend(fromID)
	if err := s.repo.Save(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("save recipient: %w", err)
	}

	sender, err := s.repo.Get(ctx, fromID)
	if err != nil && err != player.ErrNotFound {
		return Outcome{}, fmt.Errorf("load sender: %w", err)
	}
	if sender != nil {
		sender.AddFriend(userID)
		// Drop any reciprocal pending request so neither view keeps a
		// request for an already-established friendship.
		if reverse := sender.PendingRequestFrom(userID); reverse != nil {
			sender.DeleteRequest(reverse.ID)
		}
		if err := s.repo.Save(ctx, sender); err != nil {
			return Outcome{}, fmt.Errorf("save sender: %w", err)
		}
	}

	log.Info().Str("friend_id", fromID).Msg("friend request accepted")
	return Outcome{OK: true, Reason: httperrors.ReasonAccepted}, nil
}

// RejectRequest deletes the pending request with requestID from userID's
// inbox. Rejection is destructive: nothing is retained.
func (s *Service) RejectRequest(ctx context.Context, userID, requestID, corrID string) (Outcome, error) {
	log := s.logger.With().
		Str("correlation_id", corrID).
		Str("user_id", userID).
		Str("request_id", requestID).
		Logger()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if err == player.ErrNotFound {
			return Outcome{Reason: httperrors.ReasonPlayerNotFound}, nil
		}
		return Outcome{}, fmt.Errorf("load player: %w", err)
	}

	req := rec.RequestByID(requestID)
	if req == nil || req.Status != player.RequestStatusPending {
		log.Info().Str("reason", httperrors.ReasonRequestNotFound).Msg("reject rejected")
		return Outcome{Reason: httperrors.ReasonRequestNotFound}, nil
	}

	rec.DeleteRequest(requestID)
	if err := s.repo.Save(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("save recipient: %w", err)
	}

	log.Info().Msg("friend request rejected by recipient")
	return Outcome{OK: true, Reason: httperrors.ReasonRejected}, nil
}

// RemoveFriend removes the friendship in both directions. Pending requests
// between the pair are untouched.
func (s *Service) RemoveFriend(ctx context.Context, userID, friendID, corrID string) (Outcome, error) {
	log := s.logger.With().
		Str("correlation_id", corrID).
		Str("user_id", userID).
		Str("friend_id", friendID).
		Logger()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if err == player.ErrNotFound {
			return Outcome{Reason: httperrors.ReasonPlayerNotFound}, nil
		}
		return Outcome{}, fmt.Errorf("load player: %w", err)
	}

	if !rec.RemoveFriend(friendID) {
		log.Info().Str("reason", httperrors.ReasonNotFriends).Msg("remove rejected")
		return Outcome{Reason: httperrors.ReasonNotFriends}, nil
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("save player: %w", err)
	}

	friend, err := s.repo.Get(ctx, friendID)
	if err != nil && err != player.ErrNotFound {
		return Outcome{}, fmt.Errorf("load friend: %w", err)
	}
	if friend != nil {
		friend.RemoveFriend(userID)
		if err := s.repo.Save(ctx, friend); err != nil {
			return Outcome{}, fmt.Errorf("save friend: %w", err)
		}
	}

	log.Info().Msg("friendship removed")
	return Outcome{OK: true, Reason: httperrors.ReasonRemoved}, nil
}

// Status reports the relationship between two players from userID's view.
func (s *Service) Status(ctx context.Context, userID, otherID string) (string, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if err == player.ErrNotFound {
			return StatusNone, nil
		}
		return "", fmt.Errorf("load player: %w", err)
	}

	if rec.HasFriend(otherID) {
		return StatusFriends, nil
	}
	if rec.PendingRequestFrom(otherID) != nil {
		return StatusPendingIncoming, nil
	}

	other, err := s.repo.Get(ctx, otherID)
	if err != nil {
		if err == player.ErrNotFound {
			return StatusNone, nil
		}
		return "", fmt.Errorf("load other: %w", err)
	}
	if other.PendingRequestFrom(userID) != nil {
		return StatusPendingOutgoing, nil
	}
	return StatusNone, nil
}

// Sync persists a client-sourced snapshot of a player record, merging the
// server-owned friends / friend_requests fields from the stored record.
// Returns the merged record.
func (s *Service) Sync(ctx context.Context, incoming *player.Record, corrID string) (*player.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.repo.Get(ctx, incoming.ID)
	if err != nil && err != player.ErrNotFound {
		return nil, fmt.Errorf("load stored: %w", err)
	}

	merged := player.MergeServerOwned(incoming, stored)
	if err := s.repo.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("save merged: %w", err)
	}

	s.logger.Info().
		Str("correlation_id", corrID).
		Str("user_id", incoming.ID).
		Msg("player record synced")
	return merged, nil
}

// Search finds players by display name.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*player.Record, error) {
	return s.repo.Search(ctx, query, limit)
}

// Friends returns the friend id list for a player.
func (s *Service) Friends(ctx context.Context, userID string) ([]string, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.Friends, nil
}

func (s *Service) saveQuiet(ctx context.Context, rec *player.Record, log zerolog.Logger) {
	if err := s.repo.Save(ctx, rec); err != nil {
		log.Warn().Err(err).Str("user_id", rec.ID).Msg("failed to persist purge")
	}
}

func (s *Service) notifyRequest(toID string, req player.FriendRequest) {
	if s.notifier == nil || !s.notifier.IsOnline(toID) {
		return
	}
	msg := ws.NewMessage(ws.TypeFriendRequestReceived, ws.FriendRequestReceivedPayload{
		RequestID: req.ID,
		FromID:    req.FromID,
		FromName:  req.FromName,
	})
	if err := s.notifier.SendToUser(toID, msg); err != nil {
		s.logger.Warn().Err(err).Str("user_id", toID).Msg("failed to push friend request notification")
	}
}
