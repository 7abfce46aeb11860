package s3

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("S3_ENDPOINT", " minio:9000 ")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")
	t.Setenv("S3_REGION", "")
	t.Setenv("S3_DISABLE_TLS", "true")
	t.Setenv("S3_FORCE_PATH_STYLE", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "minio:9000", cfg.Endpoint)
	assert.True(t, cfg.DisableTLS)
	assert.True(t, cfg.ForcePathStyle)

	t.Setenv("S3_FORCE_PATH_STYLE", "false")
	assert.False(t, ConfigFromEnv().ForcePathStyle)
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000", endpointURL("minio:9000", true))
	assert.Equal(t, "https://minio:9000", endpointURL("minio:9000", false))
	assert.Equal(t, "http://s3.local", endpointURL("http://s3.local", false))
}

func TestNew_RequiresEndpointAndCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{AccessKey: "a", SecretKey: "b"})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Endpoint: "minio:9000"})
	require.Error(t, err)
}

func TestPresignGet(t *testing.T) {
	c, err := New(context.Background(), Config{
		Endpoint:       "minio:9000",
		AccessKey:      "ak",
		SecretKey:      "sk",
		DisableTLS:     true,
		ForcePathStyle: true,
	})
	require.NoError(t, err)

	u, err := c.PresignGet(context.Background(), "exports", "metrics/a.jsonl.zst", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://minio:9000/exports/metrics/a.jsonl.zst?"), u)
	assert.Contains(t, u, "X-Amz-Expires=900")
}

func TestEncodeSHA256(t *testing.T) {
	_, err := encodeSHA256("")
	require.Error(t, err)
	_, err = encodeSHA256("zz")
	require.Error(t, err)

	got, err := encodeSHA256("00ff")
	require.NoError(t, err)
	assert.Equal(t, "AP8=", got)
}
