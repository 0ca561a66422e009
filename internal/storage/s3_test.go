package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty endpoint",
			config:  Config{Endpoint: "", Bucket: "docs"},
			wantErr: true,
		},
		{
			name:    "empty bucket",
			config:  Config{Endpoint: "localhost:9000", Bucket: ""},
			wantErr: true,
		},
		{
			name: "valid config",
			config: Config{
				Endpoint:        "localhost:9000",
				Bucket:          "docs",
				AccessKeyID:     "minioadmin",
				SecretAccessKey: "minioadmin",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.Bucket, client.Bucket())
		})
	}
}

// TestIntegration_SearchIndexObject runs against a local MinIO and is
// skipped when none is reachable.
func TestIntegration_SearchIndexObject(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	client, err := New(Config{
		Endpoint:        endpoint,
		Bucket:          "mkdocs-es-test",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
	})
	require.NoError(t, err)

	ctx := context.Background()
	if err := client.EnsureBucket(ctx); err != nil {
		t.Skipf("MinIO not available, skipping integration test: %v", err)
	}

	const key = "search/search_index.json"
	body := []byte(`{"docs":[{"location":"","title":"Home","text":"hi"}]}`)

	t.Run("Put", func(t *testing.T) {
		require.NoError(t, client.Put(ctx, key, body))
	})

	t.Run("Get", func(t *testing.T) {
		data, err := client.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, string(body), string(data))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := client.Get(ctx, "search/missing.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
