package sessions

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	challenge Challenge
	expiresAt time.Time
}

// MemoryStore is a process-local Store. A zero ttl keeps entries until they
// are answered or cancelled.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, requesterID int64, c Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{challenge: c}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[requesterID] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, requesterID int64) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[requesterID]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	if s.expired(e) {
		delete(s.entries, requesterID)
		return Challenge{}, ErrNotFound
	}
	return e.challenge, nil
}

func (s *MemoryStore) Delete(_ context.Context, requesterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, requesterID)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done. It returns immediately when
// entries never expire.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
