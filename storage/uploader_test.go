package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base, key, want string
	}{
		{"https://cdn.example.com", "matches/1/a.png", "https://cdn.example.com/matches/1/a.png"},
		{"https://cdn.example.com/", "/matches/1/a.png", "https://cdn.example.com/matches/1/a.png"},
		{"https://cdn.example.com/proofs", "a.png", "https://cdn.example.com/proofs/a.png"},
		{"", "a.png", ""},
		{"https://cdn.example.com", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, publicURL(tt.base, tt.key), "%s + %s", tt.base, tt.key)
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("matches/12", "Screenshot.PNG")
	assert.True(t, strings.HasPrefix(key, "matches/12/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, ObjectKey("matches/12", "Screenshot.PNG"))

	assert.Len(t, strings.TrimPrefix(ObjectKey("x", "noext"), "x/"), 36)
}

func TestNewCloudflareR2Uploader_RequiresConfig(t *testing.T) {
	_, err := NewCloudflareR2Uploader(context.Background(), CloudflareR2UploaderConfig{BucketName: "proofs"})
	require.Error(t, err)
}
