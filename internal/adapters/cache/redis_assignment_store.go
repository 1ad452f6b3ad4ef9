package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/ports"
	"github.com/redis/go-redis/v9"
)

// RedisAssignmentStore caches picker-token resolutions with TTL.
type RedisAssignmentStore struct {
	client *redis.Client
}

// NewRedisAssignmentStore creates the assignment cache adapter.
func NewRedisAssignmentStore(client *redis.Client) *RedisAssignmentStore {
	return &RedisAssignmentStore{client: client}
}

func (s *RedisAssignmentStore) Put(ctx context.Context, token uuid.UUID, envelope ports.AssignmentEnvelope, ttl time.Duration) error {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, "fulfillment:assignment:"+token.String(), raw, ttl).Err()
}

func (s *RedisAssignmentStore) Get(ctx context.Context, token uuid.UUID) (*ports.AssignmentEnvelope, error) {
	raw, err := s.client.Get(ctx, "fulfillment:assignment:"+token.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out ports.AssignmentEnvelope
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RedisAssignmentStore) Invalidate(ctx context.Context, token uuid.UUID) error {
	return s.client.Del(ctx, "fulfillment:assignment:"+token.String()).Err()
}
