package checkpoint

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

	"github.com/huyngo/docpress/internal/core/domain"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// RedisStore keeps checkpoints in Redis. Records are JSON values and a
// per-batch sorted set indexes them by timestamp, so identifiers stay
// structured end to end.
type RedisStore struct {
	rdb *redis.Client
	log *slog.Logger
}

const (
	recordKeyFmt  = "docpress:checkpoint:%s:%d:%s"
	indexKeyFmt   = "docpress:checkpoints:%s"
	batchesSetKey = "docpress:checkpoint_batches"
)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, log *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb, log: log}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func recordKey(id domain.CheckpointID) string {
	return fmt.Sprintf(recordKeyFmt, id.BatchID, id.Timestamp, id.Type)
}

func indexKey(batchID string) string {
	return fmt.Sprintf(indexKeyFmt, batchID)
}

func indexMember(id domain.CheckpointID) string {
	return fmt.Sprintf("%d:%s", id.Timestamp, id.Type)
}

func parseIndexMember(batchID, member string) (domain.CheckpointID, error) {
	parts := strings.SplitN(member, ":", 2)
	if len(parts) != 2 {
		return domain.CheckpointID{}, fmt.Errorf("invalid index member: %q", member)
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return domain.CheckpointID{}, fmt.Errorf("invalid index member %q: %w", member, err)
	}
	return domain.CheckpointID{
		BatchID:   batchID,
		Timestamp: ts,
		Type:      domain.CheckpointType(parts[1]),
	}, nil
}

// Save writes one snapshot. The SET is a single Redis write, so it is
// atomic from a reader's point of view.
func (s *RedisStore) Save(ctx context.Context, state *domain.BatchState) (domain.CheckpointID, error) {
	id := domain.CheckpointID{
		BatchID:   state.BatchID,
		Timestamp: time.Now().UnixNano(),
		Type:      state.CheckpointType,
	}
	state.LastUpdated = time.Now()

	data, err := json.Marshal(state)
	if err != nil {
		return domain.CheckpointID{}, fmt.Errorf("failed to encode batch state: %w", err)
	}

	if err := s.rdb.Set(ctx, recordKey(id), data, 0).Err(); err != nil {
		return domain.CheckpointID{}, fmt.Errorf("set failed: %w", err)
	}
	// The score only orders the index; float64 loses nanosecond
	// precision, so exact timestamps are always read from the member.
	z := redis.Z{Score: float64(id.Timestamp), Member: indexMember(id)}
	if err := s.rdb.ZAdd(ctx, indexKey(id.BatchID), z).Err(); err != nil {
		return domain.CheckpointID{}, fmt.Errorf("zadd failed: %w", err)
	}
	if err := s.rdb.SAdd(ctx, batchesSetKey, id.BatchID).Err(); err != nil {
		return domain.CheckpointID{}, fmt.Errorf("sadd failed: %w", err)
	}
	return id, nil
}

// Load restores one snapshot.
func (s *RedisStore) Load(ctx context.Context, id domain.CheckpointID) (*domain.BatchState, error) {
	data, err := s.rdb.Get(ctx, recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}

	var state domain.BatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidData, id.String(), err)
	}
	if state.BatchID == "" {
		return nil, fmt.Errorf("%w: %s: missing batch_id", ErrInvalidData, id.String())
	}
	return &state, nil
}

// List returns identifiers for a batch, oldest first.
func (s *RedisStore) List(ctx context.Context, batchID string) ([]domain.CheckpointID, error) {
	members, err := s.rdb.ZRange(ctx, indexKey(batchID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	ids := make([]domain.CheckpointID, 0, len(members))
	for _, m := range members {
		id, err := parseIndexMember(batchID, m)
		if err != nil {
			s.log.Warn("Skipping malformed checkpoint index entry", "member", m, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes one record and its index entry.
func (s *RedisStore) Delete(ctx context.Context, id domain.CheckpointID) error {
	if err := s.rdb.Del(ctx, recordKey(id)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	if err := s.rdb.ZRem(ctx, indexKey(id.BatchID), indexMember(id)).Err(); err != nil {
		return fmt.Errorf("zrem failed: %w", err)
	}
	return nil
}

// SweepOlderThan removes records older than the cutoff across all
// batches.
func (s *RedisStore) SweepOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	batches, err := s.rdb.SMembers(ctx, batchesSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("smembers failed: %w", err)
	}

	limit := cutoff.UnixNano()
	removed := 0
	for _, batchID := range batches {
		// Compare against the exact timestamps in the index members;
		// scores are float64 and drift near the cutoff.
		ids, err := s.List(ctx, batchID)
		if err != nil {
			return removed, err
		}
		for _, id := range ids {
			if id.Timestamp >= limit {
				continue
			}
			if err := s.Delete(ctx, id); err != nil {
				return removed, err
			}
			removed++
		}

		remaining, err := s.rdb.ZCard(ctx, indexKey(batchID)).Result()
		if err == nil && remaining == 0 {
			_ = s.rdb.SRem(ctx, batchesSetKey, batchID).Err()
		}
	}
	return removed, nil
}
