package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeenStore remembers which post IDs a viewer has already been served, as a
// Redis set per viewer with a sliding TTL. A nil client makes it a no-op.
type SeenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSeenStore returns a store backed by rdb.
func NewSeenStore(rdb *redis.Client, ttl time.Duration) *SeenStore {
	return &SeenStore{rdb: rdb, ttl: ttl}
}

// Seen returns the IDs served to viewerID within the TTL.
func (s *SeenStore) Seen(ctx context.Context, viewerID string) (map[string]struct{}, error) {
	if s == nil || s.rdb == nil {
		return nil, nil
	}
	ids, err := s.rdb.SMembers(ctx, SeenKey(viewerID)).Result()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// MarkSeen adds ids to the viewer's set and refreshes its TTL.
func (s *SeenStore) MarkSeen(ctx context.Context, viewerID string, ids []string) error {
	if s == nil || s.rdb == nil || len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	key := SeenKey(viewerID)
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Reset forgets everything served to viewerID.
func (s *SeenStore) Reset(ctx context.Context, viewerID string) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, SeenKey(viewerID)).Err()
}
