/*
Package storage issues presigned avatar uploads against S3-compatible object storage.

The server never handles image bytes: a client asks for an upload URL, PUTs the image
directly to the bucket, and joins the chat with the returned public avatar URL.
*/
package storage

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatterup/internal/pkg/errs"
	"chatterup/internal/pkg/logx"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// PublicBaseURL is the origin objects are served from, e.g. a CDN in front of the bucket.
	PublicBaseURL string
}

// Enabled reports whether enough is configured to issue uploads.
func (c ServiceConfig) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.PublicBaseURL != ""
}

// Presigner generates pre-signed upload URLs.
type Presigner interface {
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)
}

// AvatarUpload is handed to the client: where to PUT the image and the avatar URL to join with.
type AvatarUpload struct {
	PresignedURL string `json:"presignedUrl"`
	AvatarURL    string `json:"avatarUrl"`
}

// AvatarService issues avatar uploads.
type AvatarService struct {
	presigner     Presigner
	publicBaseURL string
	logger        zerolog.Logger
}

// NewAvatarService builds an AvatarService backed by S3-compatible storage.
func NewAvatarService(ctx context.Context, cfg ServiceConfig) (*AvatarService, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage: avatar storage is not configured")
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewAvatarServiceWithPresigner(client, cfg.PublicBaseURL), nil
}

// NewAvatarServiceWithPresigner builds an AvatarService over any Presigner.
func NewAvatarServiceWithPresigner(p Presigner, publicBaseURL string) *AvatarService {
	return &AvatarService{
		presigner:     p,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logx.Component("storage"),
	}
}

// PresignAvatar validates the declared file and returns an upload URL under a fresh object key.
func (s *AvatarService) PresignAvatar(
	ctx context.Context,
	fileName string,
	mimeType string,
	fileSize int64,
) (*AvatarUpload, *errs.CustomError) {
	if customErr := ValidateAvatarFile(fileName, mimeType, fileSize); customErr != nil {
		return nil, customErr
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	key := avatarKeyPrefix + uuid.NewString() + strings.ToLower(filepath.Ext(fileName))

	presignedURL, err := s.presigner.PresignUpload(ctx, key, mimeType, fileSize, PresignedURLDuration)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to presign avatar upload")
		return nil, errs.NewError(errs.ErrFileStorageFailed)
	}

	s.logger.Info().Str("key", key).Int64("size", fileSize).Msg("Avatar upload presigned")

	return &AvatarUpload{
		PresignedURL: presignedURL,
		AvatarURL:    s.PublicURL(key),
	}, nil
}

// PublicURL returns the public URL of an object key.
func (s *AvatarService) PublicURL(key string) string {
	return s.publicBaseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}
