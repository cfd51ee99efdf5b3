package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SubmitLockTTL bounds how long a crashed submit can block a retry
const SubmitLockTTL = 30 * time.Second

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmitLock serializes concurrent submits of one attempt
type SubmitLock interface {
	// Acquire returns a token when the lock was taken and "" when another
	// submit holds it.
	Acquire(ctx context.Context, attemptID string) (string, error)
	Release(ctx context.Context, attemptID, token string) error
}

type submitLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmitLock creates a new per-attempt submit lock
func NewSubmitLock(client *redis.Client) SubmitLock {
	return &submitLock{
		client: client,
		ttl:    SubmitLockTTL,
	}
}

func lockKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:submit", attemptID)
}

func (l *submitLock) Acquire(ctx context.Context, attemptID string) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(attemptID), token, l.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (l *submitLock) Release(ctx context.Context, attemptID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{lockKey(attemptID)}, token).Err()
}
