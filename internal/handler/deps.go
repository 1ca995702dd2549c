package handler

import (
	"chatterup/internal/app/chat"
	"chatterup/internal/app/storage"
	"chatterup/internal/configs"
	"chatterup/internal/pkg/limiter"
)

// AppDeps bundles what the HTTP layer needs.
type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig

	// Avatars is nil when object storage is not configured.
	Avatars *storage.AvatarService

	// HandshakeLimiter is nil when handshake limiting is disabled.
	HandshakeLimiter *limiter.IPRateLimiter
}
