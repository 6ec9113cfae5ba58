package placement

import (
	"context"
	"sync"
	"time"
)

const DefaultSessionTTL = 12 * time.Hour

// SessionStore holds placement sessions between requests. Load never fails for a missing or
// expired session: it returns a fresh one carrying the requested id.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

var _ SessionStore = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. Sessions idle for longer than the TTL are
// treated as abandoned. Callers get copies, never the stored value.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session

	now func() time.Time // mockable
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStore{ttl: ttl, sessions: make(map[string]*Session), now: time.Now}
}

func (ms *MemoryStore) expired(s *Session, now time.Time) bool {
	return now.Sub(s.TouchedAt) > ms.ttl
}

func (ms *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	s, ok := ms.sessions[id]
	if !ok {
		return NewSession(id), nil
	}
	if ms.expired(s, ms.now()) {
		delete(ms.sessions, id)
		return NewSession(id), nil
	}
	return s.Clone(), nil
}

func (ms *MemoryStore) Save(_ context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	c := s.Clone()
	c.TouchedAt = ms.now()
	s.TouchedAt = c.TouchedAt
	ms.sessions[c.ID] = c
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.sessions, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (ms *MemoryStore) Sweep() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now, n := ms.now(), 0
	for id, s := range ms.sessions {
		if ms.expired(s, now) {
			delete(ms.sessions, id)
			n++
		}
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (ms *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ms.Sweep()
		}
	}
}
