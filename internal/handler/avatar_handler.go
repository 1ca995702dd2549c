package handler

import (
	"net/http"

	"chatterup/internal/app/storage"
	"chatterup/internal/pkg/errs"
	"chatterup/internal/pkg/req"
	"chatterup/internal/pkg/resp"
)

// PresignAvatarInput defines the JSON input structure for requesting an avatar upload URL.
type PresignAvatarInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAvatar creates an HTTP HandlerFunc that issues a time-limited upload URL
// for an avatar image and the public URL to join with afterwards.
func HandlePresignAvatar(avatars *storage.AvatarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if avatars == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAvatarUploadDisabled))
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		upload, customErr := avatars.PresignAvatar(r.Context(), input.FileName, input.MimeType, input.FileSize)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, upload)
	}
}
