package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quizbot/internal/config"
	"quizbot/internal/domain"
)

// SessionRegistry marks running play sessions in Redis so that a user cannot
// start a second one on another instance. The marker carries a TTL so that a
// crashed instance does not lock the user out forever. Each marker holds the
// token of the play that set it, and only that play may remove it.
type SessionRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{client: client, ttl: ttl}
}

func (r *SessionRegistry) Acquire(ctx context.Context, userID string) (func(), error) {
	key := r.key(userID)
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSessionActive
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the play context may already be cancelled here
		if err := releaseScript.Run(context.Background(), r.client, []string{key}, token).Err(); err != nil {
			config.Logger.WithError(err).WithField("user_id", userID).Warn("session marker not released")
		}
	}, nil
}

func (r *SessionRegistry) key(userID string) string {
	return "quiz:player:" + userID
}
