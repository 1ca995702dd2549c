/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for handshake admission,
upgrading the HTTP connection to WebSocket, and handing the connection to the chat Hub.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatterup/internal/app/chat"
	"chatterup/internal/pkg/errs"
	"chatterup/internal/pkg/limiter"
	"chatterup/internal/pkg/logx"
	"chatterup/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades the request and serves the
// connection until it closes. Identity arrives later, in the user:join event.
func HandleWebSocket(hub *chat.Hub, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		if !rateLimiter.Allow(r) {
			logger.Warn().
				Str("ip", logx.AnonymizeIP(limiter.ClientIP(r))).
				Msg("WebSocket connection rejected: Rate limit exceeded.")
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader has already written an HTTP error response
			logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		logger.Debug().Msg("WebSocket connection established.")

		hub.Serve(conn)
	}
}
