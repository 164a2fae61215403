package coursestatus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/p-n-ai/cloudmaster/internal/coursestatus"
	"github.com/p-n-ai/cloudmaster/internal/platform/cache"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)

	c, err := cache.New(ctx, "redis://"+endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	store, err := coursestatus.NewRedisStore(c.Client)
	require.NoError(t, err)
	exerciseStore(t, store)

	keys, err := c.Client.Keys(ctx, cache.Pattern()).Result()
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestNewRedisStore_NilClient(t *testing.T) {
	if _, err := coursestatus.NewRedisStore(nil); err == nil {
		t.Error("NewRedisStore(nil) should fail")
	}
}
