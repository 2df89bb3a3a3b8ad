package blob

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocespace/spacekeeper/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.S3 = config.S3Cfg{
		Endpoint:     "http://127.0.0.1:9000",
		Region:       "us-east-1",
		Bucket:       "recordings",
		AccessKey:    "minio",
		SecretKey:    "minio123",
		UsePathStyle: true,
	}
	return cfg
}

func TestNewS3_NotConfigured(t *testing.T) {
	_, err := NewS3(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestPresignGet(t *testing.T) {
	deps, err := NewS3(context.Background(), testConfig())
	require.NoError(t, err)

	url, err := deps.PresignGet(context.Background(), "alpha/20260304-050607.mp4", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:9000/recordings/alpha/20260304-050607.mp4?"), url)
	assert.Contains(t, url, "X-Amz-Expires=600")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "response-content-disposition=attachment")
}

func TestPresignGet_RejectsBadKeys(t *testing.T) {
	deps, err := NewS3(context.Background(), testConfig())
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", ErrEmptyKey},
		{"parent dir", "alpha/../beta/x.mp4", ErrInvalidKey},
		{"dots only", "alpha/.../x.mp4", ErrInvalidKey},
		{"null byte", "alpha/x\x00.mp4", ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := deps.PresignGet(context.Background(), tt.key, time.Minute)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
