package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"narsus/internal/model"
)

// ResultCache holds submitted attempts. A submitted attempt never changes, so
// entries only leave by TTL or when their survey is deleted.
type ResultCache interface {
	Get(ctx context.Context, attemptID string) (*model.SurveyAttempt, error)
	Set(ctx context.Context, attempt *model.SurveyAttempt) error
	Delete(ctx context.Context, attemptIDs ...string) error
}

type resultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache creates a new submitted result cache
func NewResultCache(client *redis.Client, ttl time.Duration) ResultCache {
	return &resultCache{
		client: client,
		ttl:    ttl,
	}
}

func resultKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:result", attemptID)
}

// Get returns nil, nil on a cache miss
func (c *resultCache) Get(ctx context.Context, attemptID string) (*model.SurveyAttempt, error) {
	data, err := c.client.Get(ctx, resultKey(attemptID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var attempt model.SurveyAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (c *resultCache) Set(ctx context.Context, attempt *model.SurveyAttempt) error {
	if !attempt.IsSubmitted {
		return fmt.Errorf("attempt %s is not submitted", attempt.ID.Hex())
	}
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, resultKey(attempt.ID.Hex()), data, c.ttl).Err()
}

func (c *resultCache) Delete(ctx context.Context, attemptIDs ...string) error {
	if len(attemptIDs) == 0 {
		return nil
	}
	keys := make([]string, len(attemptIDs))
	for i, id := range attemptIDs {
		keys[i] = resultKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}
