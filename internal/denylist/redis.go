package denylist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"subscreen/internal/logging"
)

const (
	redisKeyPrefix  = "denylist:video:"
	redisReasonsKey = "denylist:reasons"
)

// RedisStore is the networked backend. Entries are JSON values under
// denylist:video:<id> with native key expiry; per-reason counters live in a
// hash so stats do not require scanning every key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore connects to the given redis:// URL. The connection is lazy;
// use Ping to verify liveness.
func NewRedisStore(url string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "denylist"),
	}, nil
}

// IsBlacklisted reports whether videoID has a live entry. Expiry is checked
// logically as well, so an entry written with a zero TTL reads as absent
// even before redis evicts it.
func (s *RedisStore) IsBlacklisted(ctx context.Context, videoID string) (bool, error) {
	entry, err := s.get(ctx, videoID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if errors.Is(err, ErrCorruptEntry) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return !entry.Expired(time.Now()), nil
}

// Add creates or refreshes the entry for videoID. A repeat rejection carries
// the attempt count forward; both timestamps are refreshed.
func (s *RedisStore) Add(ctx context.Context, videoID, reason string, detail map[string]any, confidence float64) error {
	if videoID == "" {
		return errors.New("video id cannot be empty")
	}

	entry := newEntry(reason, detail, confidence, s.ttl)
	prev, err := s.get(ctx, videoID)
	switch {
	case err == nil:
		if !prev.Expired(time.Now()) {
			entry.Attempts = prev.Attempts + 1
		}
	case errors.Is(err, redis.Nil), errors.Is(err, ErrCorruptEntry):
		// fresh entry
	default:
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal denylist entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+videoID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	// Every recorded rejection bumps the aggregate counter so Stats stays
	// O(reasons) instead of scanning the keyspace.
	if err := s.client.HIncrBy(ctx, redisReasonsKey, reason, 1).Err(); err != nil {
		s.logger.Warn("failed to bump denylist reason counter",
			logging.String("reason", reason), logging.Error(err))
	}
	return nil
}

// Remove force-deletes the entry for videoID. The entry's recorded
// rejections are subtracted from the reason counters so Stats does not keep
// reporting an identifier an operator has cleared.
func (s *RedisStore) Remove(ctx context.Context, videoID string) error {
	entry, err := s.get(ctx, videoID)
	if err == nil && entry.Attempts > 0 {
		if err := s.client.HIncrBy(ctx, redisReasonsKey, entry.Reason, -int64(entry.Attempts)).Err(); err != nil {
			s.logger.Warn("failed to decrement denylist reason counter",
				logging.String("reason", entry.Reason), logging.Error(err))
		}
	}
	if err := s.client.Del(ctx, redisKeyPrefix+videoID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Entries scans the keyspace and returns all live entries. Intended for the
// operator CLI, not the hot path.
func (s *RedisStore) Entries(ctx context.Context) (map[string]Entry, error) {
	live := make(map[string]Entry)
	now := time.Now()

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := strings.TrimPrefix(key, redisKeyPrefix)
		entry, err := s.get(ctx, id)
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, ErrCorruptEntry) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if !entry.Expired(now) {
			live[id] = entry
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return live, nil
}

// Clear deletes every denylist key and resets the reason counters.
func (s *RedisStore) Clear(ctx context.Context) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := s.client.Del(ctx, redisReasonsKey).Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return removed, nil
}

// Stats reads the per-reason counter hash in one round trip: no keyspace
// scan, no per-key GET. The counters track recorded rejections, so unlike
// the file backend the totals are not reduced by TTL expiry.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	counters, err := s.client.HGetAll(ctx, redisReasonsKey).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	stats := Stats{ByReason: make(map[string]int, len(counters))}
	for reason, raw := range counters {
		count, err := strconv.Atoi(raw)
		if err != nil {
			s.logger.Warn("skipping malformed denylist reason counter",
				logging.String("reason", reason), logging.Error(err))
			continue
		}
		if count <= 0 {
			continue
		}
		stats.ByReason[reason] = count
		stats.Total += count
	}
	return stats, nil
}

// Ping verifies the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Close releases the client's connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, videoID string) (Entry, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+videoID).Bytes()
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		logging.WarnWithContext(s.logger, "skipping corrupt denylist entry", "denylist_corrupt_entry",
			logging.String(logging.FieldVideoID, videoID),
			logging.Error(fmt.Errorf("%w: %v", ErrCorruptEntry, err)),
			logging.String(logging.FieldImpact, "entry ignored; the video may be re-evaluated"))
		return Entry{}, ErrCorruptEntry
	}
	return entry, nil
}
