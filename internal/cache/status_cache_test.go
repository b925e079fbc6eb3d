package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis connects to TEST_REDIS_ADDR. Tests are skipped when it is unset or unreachable.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKey(t *testing.T) {
	id := uuid.MustParse("6f1c2c1e-8f55-4a55-9b55-2d7b0c3f0a11")
	assert.Equal(t, "applydesk:tailoring:6f1c2c1e-8f55-4a55-9b55-2d7b0c3f0a11", Key(id))
}

func TestSet_IgnoresNonTerminal(t *testing.T) {
	// The client is never reached for a pending record.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer client.Close()
	c := NewStatusCache(client, 0)

	err := c.Set(context.Background(), &types.TailoredResume{JobID: uuid.New(), Status: types.TailorStatusPending})
	assert.NoError(t, err)
	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestGet_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	_, err := NewStatusCache(client, time.Minute).Get(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestStatusCache_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := setupTestRedis(t)
	c := NewStatusCache(client, time.Minute)
	ctx := context.Background()
	jobID := uuid.New()

	got, err := c.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Now().UTC().Truncate(time.Millisecond)
	tr := &types.TailoredResume{
		ID:          uuid.New(),
		JobID:       jobID,
		Status:      types.TailorStatusCompleted,
		Attempt:     2,
		Content:     &types.TailoredContent{Summary: "Go engineer"},
		Analytics:   &types.MatchAnalytics{Score: 80, MatchedKeywords: []string{"go"}, MissingKeywords: []string{}},
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	require.NoError(t, c.Set(ctx, tr))

	got, err = c.Get(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tr.Status, got.Status)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, "Go engineer", got.Content.Summary)
	assert.Equal(t, 80, got.Analytics.Score)

	ttl := client.TTL(ctx, Key(jobID)).Val()
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	require.NoError(t, c.Invalidate(ctx, jobID, 3))
	got, err = c.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStatusCache_RejectsOlderVersions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := setupTestRedis(t)
	c := NewStatusCache(client, time.Minute)
	ctx := context.Background()
	jobID := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond)

	record := func(attempt int, updated time.Time, summary string) *types.TailoredResume {
		return &types.TailoredResume{
			JobID:     jobID,
			Status:    types.TailorStatusCompleted,
			Attempt:   attempt,
			Content:   &types.TailoredContent{Summary: summary},
			UpdatedAt: updated,
		}
	}
	summary := func() string {
		got, err := c.Get(ctx, jobID)
		require.NoError(t, err)
		if got == nil {
			return ""
		}
		return got.Content.Summary
	}

	require.NoError(t, c.Set(ctx, record(1, base.Add(time.Second), "later write")))
	require.NoError(t, c.Set(ctx, record(1, base, "earlier write")))
	assert.Equal(t, "later write", summary())

	// A re-trigger to attempt 2 raises the floor: a poller still holding attempt 1 cannot refill.
	require.NoError(t, c.Invalidate(ctx, jobID, 2))
	require.NoError(t, c.Set(ctx, record(1, base.Add(time.Minute), "stale poll")))
	assert.Equal(t, "", summary())

	require.NoError(t, c.Set(ctx, record(2, base.Add(2*time.Second), "second run")))
	assert.Equal(t, "second run", summary())

	// A lower floor never lowers an existing one.
	require.NoError(t, c.Invalidate(ctx, jobID, 1))
	require.NoError(t, c.Set(ctx, record(1, base.Add(time.Hour), "stale poll")))
	assert.Equal(t, "", summary())
}
