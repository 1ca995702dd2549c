package storage

import (
	"path/filepath"
	"strings"
	"time"

	"chatterup/internal/pkg/errs"
)

const (
	// MaxAvatarSizeMB is the maximum allowed avatar size in megabytes.
	MaxAvatarSizeMB = 2

	// MaxAvatarSize is the maximum allowed avatar size in bytes.
	MaxAvatarSize = MaxAvatarSizeMB * 1024 * 1024

	// PresignedURLDuration is the fixed duration for which the upload URL is valid (5 minutes).
	PresignedURLDuration = 5 * time.Minute

	// avatarKeyPrefix namespaces avatar objects inside the bucket.
	avatarKeyPrefix = "avatars/"
)

// extToMIME maps accepted file extensions to their MIME types.
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateAvatarFile checks the declared name, MIME type and size of an avatar upload.
// Both fields are required, and the extension of fileName must agree with mimeType.
func ValidateAvatarFile(fileName, mimeType string, fileSize int64) *errs.CustomError {
	if strings.TrimSpace(fileName) == "" || strings.TrimSpace(mimeType) == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize <= 0 || fileSize > MaxAvatarSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxAvatarSizeMB)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expectedMIME, ok := extToMIME[ext]
	if !ok {
		return errs.NewError(errs.ErrAvatarTypeInvalid)
	}

	if expectedMIME != strings.ToLower(strings.TrimSpace(mimeType)) {
		return errs.NewError(errs.ErrAvatarTypeInvalid)
	}

	return nil
}
