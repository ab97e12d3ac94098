package friends

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mathduel/arena/internal/identity"
	"github.com/mathduel/arena/internal/player"
	httperrors "github.com/mathduel/arena/pkg/http/errors"
)

// HTTPHandlers exposes the friend system over request/response endpoints.
// Every response carries a success flag, a machine-readable reason code and
// the trace id for the call.
type HTTPHandlers struct {
	svc    *Service
	tokens *identity.Manager
	logger zerolog.Logger
}

// NewHTTPHandlers creates the friend HTTP handlers.
func NewHTTPHandlers(svc *Service, tokens *identity.Manager, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{svc: svc, tokens: tokens, logger: logger}
}

type outcomeResponse struct {
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id"`
}

// SendRequest handles POST /v1/friends/request.
func (h *HTTPHandlers) SendRequest(w http.ResponseWriter, r *http.Request) {
	claims, traceID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		ToID string `json:"to_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ToID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "to_id is required")
		return
	}
	if req.ToID == claims.UserID {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "cannot friend yourself")
		return
	}

	outcome, err := h.svc.SendRequest(r.Context(), claims.UserID, claims.DisplayName, req.ToID, traceID)
	if err != nil {
		h.logger.Error().Err(err).Str("correlation_id", traceID).Msg("send friend request failed")
		httperrors.RespondInternalError(w, "failed to send friend request")
		return
	}
	h.respondOutcome(w, outcome, traceID)
}

// Accept handles POST /v1/friends/accept.
func (h *HTTPHandlers) Accept(w http.ResponseWriter, r *http.Request) {
	claims, traceID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "request_id is required")
		return
	}

	outcome, err := h.svc.AcceptRequest(r.Context(), claims.UserID, req.RequestID, traceID)
	if err != nil {
		h.logger.Error().Err(err).Str("correlation_id", traceID).Msg("accept friend request failed")
		httperrors.RespondInternalError(w, "failed to accept friend request")
		return
	}
	h.respondOutcome(w, outcome, traceID)
}

// Reject handles POST /v1/friends/reject.
func (h *HTTPHandlers) Reject(w http.ResponseWriter, r *http.Request) {
	claims, traceID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "request_id is required")
		return
	}

	outcome, err := h.svc.RejectRequest(r.Context(), claims.UserID, req.RequestID, traceID)
	if err != nil {
		h.logger.Error().Err(err).Str("correlation_id", traceID).Msg("reject friend request failed")
		httperrors.RespondInternalError(w, "failed to reject friend request")
		return
	}
	h.respondOutcome(w, outcome, traceID)
}

// Remove handles POST /v1/friends/remove.
func (h *HTTPHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	claims, traceID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		FriendID string `json:"friend_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FriendID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "friend_id is required")
		return
	}

	outcome, err := h.svc.RemoveFriend(r.Context(), claims.UserID, req.FriendID, traceID)
	if err != nil {
		h.logger.Error().Err(err).Str("correlation_id", traceID).Msg("remove friend failed")
		httperrors.RespondInternalError(w, "failed to remove friend")
		return
	}
	h.respondOutcome(w, outcome, traceID)
}

// Status handles GET /v1/friends/status?other_id=.
func (h *HTTPHandlers) Status(w http.ResponseWriter, r *http.Request) {
	claims, traceID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	otherID := r.URL.Query().Get("other_id")
	if otherID == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "other_id is required")
		return
	}

	status, err := h.svc.Status(r.Context(), claims.UserID, otherID)
	if err != nil {
		h.logger.Error().Err(err).Str("correlation_id", traceID).Msg("friendship status failed")
		httperrors.RespondInternalError(w, "failed to check friendship status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"status":   status,
		"trace_id": traceID,
	})
}

// Search handles GET /v1/players/search?q=&limit=.
func (h *HTTPHandlers) Search(w http.ResponseWriter, r *http.Request) {
	_, traceID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.svc.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("correlation_id", traceID).Msg("player search failed")
		httperrors.RespondInternalError(w, "failed to search players")
		return
	}

	type result struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
	}
	results := make([]result, 0, len(records))
	for _, rec := range records {
		results = append(results, result{UserID: rec.ID, DisplayName: rec.DisplayName})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"players":  results,
		"trace_id": traceID,
	})
}

// Sync handles POST /v1/players/sync. The caller's friends/friend_requests
// copies are ignored; the server merges its own.
func (h *HTTPHandlers) Sync(w http.ResponseWriter, r *http.Request) {
	claims, traceID, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var incoming player.Record
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid player record")
		return
	}
	incoming.ID = claims.UserID
	if incoming.DisplayName == "" {
		incoming.DisplayName = claims.DisplayName
	}

	merged, err := h.svc.Sync(r.Context(), &incoming, traceID)
	if err != nil {
		h.logger.Error().Err(err).Str("correlation_id", traceID).Msg("player sync failed")
		httperrors.RespondInternalError(w, "failed to sync player record")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"reason":   httperrors.ReasonSynced,
		"player":   merged,
		"trace_id": traceID,
	})
}

func (h *HTTPHandlers) respondOutcome(w http.ResponseWriter, outcome Outcome, traceID string) {
	status := http.StatusOK
	if !outcome.OK {
		switch outcome.Reason {
		case httperrors.ReasonPlayerNotFound, httperrors.ReasonRequestNotFound:
			status = http.StatusNotFound
		case httperrors.ReasonRateLimited:
			status = http.StatusTooManyRequests
		default:
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, outcomeResponse{
		Success:   outcome.OK,
		Reason:    outcome.Reason,
		RequestID: outcome.RequestID,
		TraceID:   traceID,
	})
}

// authenticate validates the bearer token and resolves the trace id,
// minting one when the caller did not supply it.
func (h *HTTPHandlers) authenticate(w http.ResponseWriter, r *http.Request) (*identity.Claims, string, bool) {
	traceID := r.Header.Get("X-Trace-Id")
	if traceID == "" {
		traceID = uuid.NewString()
	}

	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "missing bearer token")
		return nil, traceID, false
	}

	claims, err := h.tokens.Validate(strings.TrimPrefix(authz, "Bearer "))
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "invalid token")
		return nil, traceID, false
	}
	return claims, traceID, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
