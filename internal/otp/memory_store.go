package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process.  It serves single-instance
// deployments and tests; call Sweep periodically to drop expired records.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, email string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[email] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok {
		return Record{}, ErrNoRecord
	}
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, email)
	return nil
}

// Sweep removes expired records and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, rec := range s.records {
		if !now.Before(rec.ExpiresAt) {
			delete(s.records, k)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
