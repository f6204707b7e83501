package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizbot/internal/app"
	"quizbot/internal/config"
	"quizbot/internal/domain"
)

// SnapshotCache keeps full quiz graphs in Redis so that every instance shares
// the same snapshot and a play session does not hit the database.
// Snapshots are stored as: SET quiz:{quizID}:snapshot {json} EX ttl
// Invalidations bump quiz:{quizID}:gen; a fill is written only while the
// generation it started under is still current.
type SnapshotCache struct {
	client *redis.Client
	source app.SnapshotSource
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewSnapshotCache(client *redis.Client, source app.SnapshotSource, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *SnapshotCache) GetQuizWithQuestions(ctx context.Context, quizID int64, includeAnswers bool) (domain.Quiz, error) {
	if !includeAnswers {
		return c.source.GetQuizWithQuestions(ctx, quizID, false)
	}
	if quiz, ok := c.lookup(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// re-check, another caller may have filled it
		if quiz, ok := c.lookup(ctx, quizID); ok {
			return quiz, nil
		}

		gen, err := c.generation(ctx, c.client, quizID)
		if err != nil {
			config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("snapshot generation unavailable")
			return c.source.GetQuizWithQuestions(ctx, quizID, true)
		}

		quiz, err := c.source.GetQuizWithQuestions(ctx, quizID, true)
		if err != nil {
			return domain.Quiz{}, err
		}

		payload, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := c.store(ctx, quizID, gen, payload); err != nil && !errors.Is(err, errStaleSnapshot) {
			config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("snapshot not cached")
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate deletes the cached snapshot of quizID and bumps its generation
// so that fills already in flight are discarded.
func (c *SnapshotCache) Invalidate(ctx context.Context, quizID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(quizID))
		if c.ttl > 0 {
			pipe.Expire(ctx, c.genKey(quizID), 2*c.ttl)
		}
		pipe.Del(ctx, c.key(quizID))
		return nil
	})
	return err
}

var errStaleSnapshot = errors.New("snapshot invalidated while loading")

// store writes payload only if the generation of quizID is still gen.
func (c *SnapshotCache) store(ctx context.Context, quizID int64, gen int64, payload []byte) error {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx, quizID)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(quizID), payload, c.ttlWithJitter())
			return nil
		})
		return err
	}, c.genKey(quizID))
	if errors.Is(err, redis.TxFailedErr) {
		return errStaleSnapshot
	}
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *SnapshotCache) generation(ctx context.Context, cmd getter, quizID int64) (int64, error) {
	gen, err := cmd.Get(ctx, c.genKey(quizID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *SnapshotCache) lookup(ctx context.Context, quizID int64) (domain.Quiz, bool) {
	payload, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			config.WithContext(ctx).WithError(err).WithField("quiz_id", quizID).Warn("snapshot lookup failed")
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *SnapshotCache) key(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":snapshot"
}

func (c *SnapshotCache) genKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":gen"
}

func (c *SnapshotCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
