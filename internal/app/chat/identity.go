package chat

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultDisplayName replaces an empty name on join.
	DefaultDisplayName = "Guest"

	// MaxDisplayNameRunes is the length names are truncated to.
	MaxDisplayNameRunes = 64

	// MaxContentRunes is the longest accepted message text, measured after trimming.
	MaxContentRunes = 5000

	// MaxAvatarRefBytes bounds the avatar reference kept for a participant.
	MaxAvatarRefBytes = 2048

	defaultAvatarBase = "https://api.dicebear.com/7.x/thumbs/svg?seed="
)

var validate = validator.New()

type avatarRule struct {
	Ref string `validate:"required,max=2048,printascii"`
}

type textRule struct {
	Text string `validate:"required,max=5000"`
}

// NormalizeName trims name, falls back to DefaultDisplayName, and truncates long names.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultDisplayName
	}

	if utf8.RuneCountInString(name) > MaxDisplayNameRunes {
		name = strings.TrimSpace(string([]rune(name)[:MaxDisplayNameRunes]))
	}

	return name
}

// DefaultAvatar returns the generated avatar URL for a display name.
func DefaultAvatar(name string) string {
	return defaultAvatarBase + url.QueryEscape(name)
}

// NormalizeAvatar keeps avatar when it is non-empty printable ASCII of at most
// MaxAvatarRefBytes, and otherwise returns the default avatar for name.
// The reference is opaque: relative paths and data URIs are kept as-is.
func NormalizeAvatar(avatar, name string) string {
	avatar = strings.TrimSpace(avatar)
	if err := validate.Struct(avatarRule{Ref: avatar}); err != nil {
		return DefaultAvatar(name)
	}
	return avatar
}

// NormalizeText trims text and reports whether it is acceptable as a message.
func NormalizeText(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if err := validate.Struct(textRule{Text: text}); err != nil {
		return "", false
	}
	return text, true
}
