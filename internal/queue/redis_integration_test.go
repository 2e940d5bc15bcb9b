//go:build integration

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jchen1/qs/internal/domain"
)

func setupRedis(t *testing.T, ctx context.Context) *goredis.Client {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisQueueRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t, ctx)
	q := NewRedisQueue(client, "ingest-test")

	task := domain.NewIngestDay(uuid.New(), "fitbit", domain.MetricStep, domain.NewDate(2024, time.January, 1))
	require.NoError(t, q.Push(ctx, task))

	lease, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, lease)
	require.Equal(t, task, lease.Task())

	// The payload sits in the processing list until the lease resolves.
	processing, err := client.LLen(ctx, "ingest-test:processing").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, processing)

	require.NoError(t, lease.Complete(ctx))
	processing, err = client.LLen(ctx, "ingest-test:processing").Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, processing)
}

func TestRedisQueuePopTimeout(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t, ctx)
	q := NewRedisQueue(client, "ingest-test")

	lease, err := q.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, lease)
}

func TestRedisQueueFailMovesToFailedList(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t, ctx)
	q := NewRedisQueue(client, "ingest-test")

	task := domain.NewIngestDay(uuid.New(), "fitbit", domain.MetricStep, domain.NewDate(2024, time.January, 1))
	require.NoError(t, q.Push(ctx, task))

	lease, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, lease)

	require.NoError(t, lease.Fail(ctx))

	failed, err := client.LLen(ctx, "ingest-test:failed").Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, failed)

	processing, err := client.LLen(ctx, "ingest-test:processing").Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, processing)
}

func TestRedisQueueQuarantinesPoisonPayload(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t, ctx)
	q := NewRedisQueue(client, "ingest-test")

	require.NoError(t, client.LPush(ctx, "ingest-test", "{not json").Err())

	lease, err := q.Pop(ctx, time.Second)
	require.Error(t, err)
	require.Nil(t, lease)

	failed, err := client.LRange(ctx, "ingest-test:failed", 0, -1).Result()
	require.NoError(t, err)
	require.Equal(t, []string{"{not json"}, failed)

	processing, err := client.LLen(ctx, "ingest-test:processing").Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, processing)
}
