package handler

import (
	"net/http"

	"chatterup/internal/app/chat"
	"chatterup/internal/pkg/resp"
)

// HandleGetParticipants returns the current roster in join order,
// in the same shape as the user:list event.
func HandleGetParticipants(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, chat.RosterOf(hub.Participants()))
	}
}
