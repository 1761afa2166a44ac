package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisclient "github.com/GDG-UAM/website-sub002/internal/platform/redis"
)

// TestRedis is a throwaway Redis instance
type TestRedis struct {
	Container *testcontainers.DockerContainer
	Client    *redisclient.Client
	Addr      string
}

// SetupTestRedis starts a Redis container and connects to it. The test is
// skipped with -short.
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container backed test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForLog("Ready to accept connections")),
		testcontainers.WithLabels(map[string]string{
			"test":      "giveaway-lock",
			"test-name": t.Name(),
			"timestamp": time.Now().Format("20060102-150405"),
		}),
	)
	require.NoError(t, err)

	tr := &TestRedis{Container: container}
	t.Cleanup(func() {
		if tr.Client != nil {
			_ = tr.Client.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	client, err := redisclient.Open(ctx, addr, "", 0)
	require.NoError(t, err)

	tr.Client = client
	tr.Addr = addr
	return tr
}
