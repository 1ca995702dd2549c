package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"chatterup/internal/app/chat"
	"chatterup/internal/pkg/errs"
	"chatterup/internal/pkg/resp"
)

// HandleGetMessages returns the recent message history, oldest first,
// in the same shape as the chat:history event.
func HandleGetMessages(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := hub.History(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to fetch message history")
			resp.RespondError(w, r, errs.NewError(errs.ErrHistoryUnavailable))
			return
		}

		resp.RespondSuccess(w, r, chat.ViewsOf(history))
	}
}
