package redis

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestResyncBacklog_PeekAck(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	client, err := NewClient(ctx, addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	backlog := NewResyncBacklog(client, "test:resync", zap.NewNop())

	require.NoError(t, backlog.Push(ctx, 3, 1, 3, 2))
	require.NoError(t, client.SAdd(ctx, "test:resync", "not-a-number").Err())

	n, err := backlog.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	ids, err := backlog.Peek(ctx, 10)
	require.NoError(t, err)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, []int64{1, 2, 3}, ids)

	// Peeking drops the malformed member but keeps every id until acked.
	n, err = backlog.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, backlog.Ack(ctx, 1, 3))
	ids, err = backlog.Peek(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	require.NoError(t, backlog.Ack(ctx, 2))
	ids, err = backlog.Peek(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestResyncBacklog_PushNothing(t *testing.T) {
	backlog := NewResyncBacklog(nil, "unused", zap.NewNop())

	assert.NoError(t, backlog.Push(context.Background()))
	assert.NoError(t, backlog.Ack(context.Background()))
}
