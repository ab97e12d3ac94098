package game

import (
	"net/http"

	"github.com/mathduel/arena/internal/identity"
	"github.com/mathduel/arena/internal/server"
	httperrors "github.com/mathduel/arena/pkg/http/errors"
)

// WSMux bundles the handler with the token manager for the upgrade endpoint.
type WSMux struct {
	handler *Handler
	tokens  *identity.Manager
}

// NewWSMux creates the WebSocket endpoint.
func NewWSMux(handler *Handler, tokens *identity.Manager) *WSMux {
	return &WSMux{handler: handler, tokens: tokens}
}

// ServeHTTP authenticates the token query parameter, upgrades the connection
// and hands the socket to the session handler.
func (m *WSMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "missing token")
		return
	}

	claims, err := m.tokens.Validate(token)
	if err != nil {
		m.handler.logger.Warn().Err(err).Msg("websocket token rejected")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "invalid token")
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		m.handler.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	m.handler.HandleConnection(conn, claims.UserID, claims.DisplayName)
}
