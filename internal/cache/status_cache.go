// Package cache keeps terminal tailoring records in Redis so status polling skips the database.
//
// Writes are ordered by record version (attempt, then update time). A write older than what is
// cached, or older than the attempt floor left by Invalidate, is dropped, so a slow writer cannot
// put a superseded record back after a new run was triggered.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a terminal record stays cached.
const DefaultTTL = 10 * time.Minute

const (
	keyPrefix   = "applydesk:tailoring:"
	floorSuffix = ":floor"
)

// setScript stores ARGV[3] under KEYS[1] unless the cached version or the floor in KEYS[2] is
// newer. ARGV: attempt, updated_at in microseconds, payload, ttl in milliseconds.
var setScript = redis.NewScript(`
local attempt = tonumber(ARGV[1])
local updated = tonumber(ARGV[2])
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
if attempt < floor then
	return 0
end
local cur = redis.call('HMGET', KEYS[1], 'attempt', 'updated')
if cur[1] then
	local ca, cu = tonumber(cur[1]), tonumber(cur[2])
	if ca > attempt or (ca == attempt and cu > updated) then
		return 0
	end
end
redis.call('HSET', KEYS[1], 'attempt', ARGV[1], 'updated', ARGV[2], 'record', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// invalidateScript drops KEYS[1] and raises the floor in KEYS[2] to ARGV[1].
var invalidateScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > floor then
	redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
else
	redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
return 1
`)

// StatusCache stores terminal tailoring records keyed by job.
type StatusCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewStatusCache wraps a Redis client. A non-positive ttl means DefaultTTL.
func NewStatusCache(client redis.UniversalClient, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatusCache{client: client, ttl: ttl}
}

// Connect opens a client for the redis:// URL and pings it.
//
//nolint:ireturn // callers only need the universal interface.
func Connect(ctx context.Context, url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close redis client: %w", cerr))
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Key returns the cache key for a job.
func Key(jobID uuid.UUID) string {
	return keyPrefix + jobID.String()
}

func floorKey(jobID uuid.UUID) string {
	return Key(jobID) + floorSuffix
}

// Get returns the cached record, or nil when absent.
func (c *StatusCache) Get(ctx context.Context, jobID uuid.UUID) (*types.TailoredResume, error) {
	raw, err := c.client.HGet(ctx, Key(jobID), "record").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var tr types.TailoredResume
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("decode cached status: %w", err)
	}
	return &tr, nil
}

// Set caches a terminal record unless a newer version is already cached. Non-terminal records
// are ignored since they are about to change.
func (c *StatusCache) Set(ctx context.Context, tr *types.TailoredResume) error {
	if tr == nil || !tr.Status.Terminal() {
		return nil
	}
	raw, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	keys := []string{Key(tr.JobID), floorKey(tr.JobID)}
	err = setScript.Run(ctx, c.client, keys, tr.Attempt, tr.UpdatedAt.UnixMicro(), raw, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached record for a job and refuses later writes of attempts below
// attempt for as long as a record would live.
func (c *StatusCache) Invalidate(ctx context.Context, jobID uuid.UUID, attempt int) error {
	keys := []string{Key(jobID), floorKey(jobID)}
	if err := invalidateScript.Run(ctx, c.client, keys, attempt, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}
