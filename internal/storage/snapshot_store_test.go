package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscardSnapshotStore(t *testing.T) {
	store := NewDiscardSnapshotStore()

	url, err := store.Put(context.Background(), "snapshots/a1_1700000000000.jpg", []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/snapshots/a1_1700000000000.jpg", url)

	url, err = store.Put(context.Background(), "/snapshots/a1.jpg", nil, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/snapshots/a1.jpg", url)
}

func TestMinioSnapshotStoreURL(t *testing.T) {
	tests := []struct {
		name   string
		config MinioConfig
		want   string
	}{
		{"plain", MinioConfig{Endpoint: "minio:9000", Bucket: "proctoring"}, "http://minio:9000/proctoring/snapshots/a1.jpg"},
		{"tls", MinioConfig{Endpoint: "s3.example.com", Bucket: "proctoring", UseSSL: true}, "https://s3.example.com/proctoring/snapshots/a1.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MinioSnapshotStore{config: tt.config}
			assert.Equal(t, tt.want, store.url("snapshots/a1.jpg"))
		})
	}
}
