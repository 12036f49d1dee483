//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/workshop/backend/internal/infrastructure/config"
)

func startMinio(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "minioadmin",
				"MINIO_ROOT_PASSWORD": "minioadmin",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "http")
	require.NoError(t, err)
	return endpoint
}

func TestIntegration_PutIfAbsent(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3ObjectStorage(&config.StorageConfig{
		Bucket:       "workshop-closings",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Endpoint:     startMinio(t),
		Region:       "us-east-1",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	require.NoError(t, s.EnsureBucket(ctx))
	// Second call sees the bucket
	require.NoError(t, s.EnsureBucket(ctx))

	key := "closings/daily/2024-05-03.json"
	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := s.PutIfAbsent(ctx, key, []byte(`{"total_income":"250.00"}`), "application/json")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.PutIfAbsent(ctx, key, []byte(`{"total_income":"0.00"}`), "application/json")
	require.NoError(t, err)
	assert.False(t, created, "an archived snapshot is never replaced")

	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, key))
	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
