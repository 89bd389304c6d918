package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps visit state in Redis so it survives restarts. The log is
// capped with LPUSH + LTRIM, which gives the oldest-evicted-first policy for
// free.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func visitCountKey(userID, feature string) string {
	return "visits:count:" + userID + ":" + feature
}

func visitFirstKey(userID, feature string) string {
	return "visits:first:" + userID + ":" + feature
}

func visitLogKey(userID string) string {
	return "visits:log:" + userID
}

func (r *RedisStore) RecordVisit(ctx context.Context, userID, feature string, at time.Time) error {
	if err := r.client.Incr(ctx, visitCountKey(userID, feature)).Err(); err != nil {
		return err
	}
	if err := r.client.SetNX(ctx, visitFirstKey(userID, feature), at.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return err
	}

	entry, err := json.Marshal(Visit{Feature: feature, At: at.UTC()})
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, visitLogKey(userID), entry)
	pipe.LTrim(ctx, visitLogKey(userID), 0, LogCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) VisitCount(ctx context.Context, userID, feature string) (int64, error) {
	count, err := r.client.Get(ctx, visitCountKey(userID, feature)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

func (r *RedisStore) FirstVisit(ctx context.Context, userID, feature string) (time.Time, bool, error) {
	value, err := r.client.Get(ctx, visitFirstKey(userID, feature)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	first, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, err
	}
	return first, true, nil
}

func (r *RedisStore) RecentVisits(ctx context.Context, userID string, limit int) ([]Visit, error) {
	if limit <= 0 || limit > LogCap {
		limit = LogCap
	}
	entries, err := r.client.LRange(ctx, visitLogKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	visits := make([]Visit, 0, len(entries))
	for _, entry := range entries {
		var visit Visit
		if err := json.Unmarshal([]byte(entry), &visit); err != nil {
			continue
		}
		visits = append(visits, visit)
	}
	return visits, nil
}
