package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/mathduel/arena/pkg/http/errors"
	"github.com/mathduel/arena/pkg/http/ws"
)

// Handler owns a player's WebSocket session and routes realtime messages.
type Handler struct {
	service *Service
	hub     *ws.Hub
	logger  zerolog.Logger
}

// NewHandler creates a realtime message handler.
func NewHandler(service *Service, hub *ws.Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

// HandleConnection runs a session: registers presence, pumps messages until
// the socket closes, then tears the session down. Registering silently
// replaces any previous connection for the same user.
func (h *Handler) HandleConnection(conn *websocket.Conn, userID, displayName string) {
	wsConn := ws.NewConnection(conn, userID, displayName, h.logger)
	h.hub.Register(userID, wsConn)

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), userID, displayName, msg)
	})

	h.teardown(context.Background(), userID, wsConn)
}

// teardown runs session cleanup when a read loop exits. Unregister is
// identity-guarded: if a newer connection already replaced this one, presence
// stays with the newer session and the user's queue entries, LFG
// advertisement and live room must survive the stale socket's exit.
func (h *Handler) teardown(ctx context.Context, userID string, conn *ws.Connection) {
	if h.hub.Unregister(userID, conn) {
		h.service.HandleDisconnect(ctx, userID)
	}
}

func (h *Handler) handleMessage(ctx context.Context, userID, displayName string, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeJoinMatchmaking:
		var req ws.JoinMatchmakingPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid join-matchmaking payload")
		}
		return h.service.JoinQueue(userID, displayName, req.Difficulty)

	case ws.TypeLeaveMatchmaking:
		h.service.LeaveQueue(userID)
		return nil

	case ws.TypeSubmitAnswer:
		var req ws.SubmitAnswerPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid submit-answer payload")
		}
		return h.service.SubmitAnswer(userID, req)

	case ws.TypePlayerCompleted:
		var req ws.PlayerCompletedPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid player-completed payload")
		}
		return h.service.PlayerCompleted(ctx, userID, req)

	case ws.TypeLeaveRoom:
		var req ws.LeaveRoomPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid leave-room payload")
		}
		return h.service.LeaveRoom(ctx, userID, req.RoomID)

	case ws.TypeSendChallenge:
		var req ws.SendChallengePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid send-friend-challenge payload")
		}
		return h.service.SendChallenge(userID, displayName, req)

	case ws.TypeAcceptChallenge:
		var req ws.AcceptChallengePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid accept-friend-challenge payload")
		}
		return h.service.AcceptChallenge(userID, displayName, req)

	case ws.TypeDeclineChallenge:
		var req ws.DeclineChallengePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid decline-friend-challenge payload")
		}
		return h.service.DeclineChallenge(userID, req)

	case ws.TypeStartLooking:
		var req ws.StartLookingPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid start-looking-for-game payload")
		}
		return h.service.StartLooking(userID, displayName, req)

	case ws.TypeStopLooking:
		return h.service.StopLooking(userID)

	case ws.TypeGetFriendsStatus:
		var req ws.GetFriendsStatusPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "invalid get-friends-status payload")
		}
		return h.service.FriendsStatus(userID, req)

	default:
		return h.sendError(userID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (h *Handler) sendError(userID, code, message string) error {
	return h.hub.SendToUser(userID, ws.NewMessage(ws.TypeError, ws.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
