package storage

import (
	"context"
	"strings"
	"sync"

	"mediarelay/internal/domain"
)

// MemoryJobStore keeps results in process memory. Entries live until the
// process exits or they are deleted; there is no size bound or expiry, so it
// only suits a single instance.
type MemoryJobStore struct {
	mu      sync.RWMutex
	entries map[string]domain.ResultEntry
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{entries: make(map[string]domain.ResultEntry)}
}

func (s *MemoryJobStore) Put(ctx context.Context, entry domain.ResultEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := normalizeJobID(entry.JobID)
	if err != nil {
		return err
	}
	entry.JobID = id
	entry.Payload = clonePayload(entry.Payload)
	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, jobID string) (domain.ResultEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResultEntry{}, false, err
	}
	s.mu.RLock()
	entry, ok := s.entries[strings.TrimSpace(jobID)]
	s.mu.RUnlock()
	if !ok {
		return domain.ResultEntry{}, false, nil
	}
	entry.Payload = clonePayload(entry.Payload)
	return entry, true, nil
}

func (s *MemoryJobStore) Delete(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, strings.TrimSpace(jobID))
	s.mu.Unlock()
	return nil
}

func (s *MemoryJobStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// clonePayload copies the top level so callers cannot mutate stored entries.
func clonePayload(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ domain.JobStore = (*MemoryJobStore)(nil)
