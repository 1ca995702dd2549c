package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"kept", "Alice", "Alice"},
		{"trimmed", "  Bob \t", "Bob"},
		{"empty", "", DefaultDisplayName},
		{"blank", "   ", DefaultDisplayName},
		{"unicode", "Zoë 🙂", "Zoë 🙂"},
		{"truncated", strings.Repeat("é", MaxDisplayNameRunes+10), strings.Repeat("é", MaxDisplayNameRunes)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxDisplayNameRunes)
		})
	}
}

func TestDefaultAvatar(t *testing.T) {
	assert.Equal(t, "https://api.dicebear.com/7.x/thumbs/svg?seed=Ann+Lee%26Co", DefaultAvatar("Ann Lee&Co"))
}

func TestNormalizeAvatar(t *testing.T) {
	tests := []struct {
		name   string
		avatar string
		want   string
	}{
		{"absolute url", "https://cdn.example/a.png", "https://cdn.example/a.png"},
		{"relative ref", "avatars/a.png", "avatars/a.png"},
		{"trimmed", "  a.png ", "a.png"},
		{"empty", "", DefaultAvatar("Alice")},
		{"non ascii", "bild-ü.png", DefaultAvatar("Alice")},
		{"control char", "a\x00.png", DefaultAvatar("Alice")},
		{"too long", strings.Repeat("a", MaxAvatarRefBytes+1), DefaultAvatar("Alice")},
		{"at limit", strings.Repeat("a", MaxAvatarRefBytes), strings.Repeat("a", MaxAvatarRefBytes)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAvatar(tt.avatar, "Alice"))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", "hello", "hello", true},
		{"trimmed", "\n hello \t", "hello", true},
		{"inner whitespace kept", "a  b\nc", "a  b\nc", true},
		{"empty", "", "", false},
		{"blank", " \n ", "", false},
		{"at limit", strings.Repeat("ü", MaxContentRunes), strings.Repeat("ü", MaxContentRunes), true},
		{"over limit", strings.Repeat("x", MaxContentRunes+1), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeText(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
