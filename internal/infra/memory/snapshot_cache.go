package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizbot/internal/app"
	"quizbot/internal/domain"
)

// SnapshotCache caches full quiz graphs (with answers) with a TTL to avoid
// reloading them for every play session.
type SnapshotCache struct {
	source app.SnapshotSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedQuiz
	// gens counts invalidations per quiz; a load started under an older
	// generation must not be stored
	gens map[int64]uint64
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewSnapshotCache(source app.SnapshotSource, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedQuiz),
		gens:   make(map[int64]uint64),
	}
}

func (c *SnapshotCache) GetQuizWithQuestions(ctx context.Context, quizID int64, includeAnswers bool) (domain.Quiz, error) {
	if !includeAnswers {
		return c.source.GetQuizWithQuestions(ctx, quizID, false)
	}
	if quiz, ok := c.lookup(quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		if quiz, ok := c.lookup(quizID); ok {
			return quiz, nil
		}

		c.mu.RLock()
		gen := c.gens[quizID]
		c.mu.RUnlock()

		quiz, err := c.source.GetQuizWithQuestions(ctx, quizID, true)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		if c.gens[quizID] == gen {
			c.cache[quizID] = cachedQuiz{
				quiz:      quiz,
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops the cached graph of quizID. A load already in flight
// still returns to its callers but is not stored.
func (c *SnapshotCache) Invalidate(_ context.Context, quizID int64) error {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.gens[quizID]++
	c.mu.Unlock()
	c.sf.Forget(strconv.FormatInt(quizID, 10))
	return nil
}

func (c *SnapshotCache) lookup(quizID int64) (domain.Quiz, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (c *SnapshotCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
