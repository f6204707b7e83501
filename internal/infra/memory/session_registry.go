package memory

import (
	"context"
	"sync"

	"quizbot/internal/domain"
)

// SessionRegistry is an in-memory implementation of app.SessionRegistry.
type SessionRegistry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{active: make(map[string]struct{})}
}

func (r *SessionRegistry) Acquire(_ context.Context, userID string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[userID]; ok {
		return nil, domain.ErrSessionActive
	}
	r.active[userID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.active, userID)
			r.mu.Unlock()
		})
	}, nil
}

// Active reports whether userID currently holds a session.
func (r *SessionRegistry) Active(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[userID]
	return ok
}
