package alert

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
	events map[string][]*Event // keyed by alert id, append order
}

// NewMemoryStore creates an in-memory alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts: make(map[string]*Alert),
		events: make(map[string][]*Event),
	}
}

func (s *MemoryStore) Create(ctx context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) GetOpenByTransaction(ctx context.Context, txID string) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *Alert
	for _, a := range s.alerts {
		if a.TransactionID != txID || a.Status == StatusClosed {
			continue
		}
		if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
			newest = a
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Alert
	for _, a := range s.alerts {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.MinScore > 0 && a.Score < f.MinScore {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (s *MemoryStore) Update(ctx context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.alerts[a.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = a.Status
	stored.Comment = a.Comment
	stored.UpdatedAt = a.UpdatedAt
	return nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.events[e.AlertID] = append(s.events[e.AlertID], &cp)
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, alertID string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evts := s.events[alertID]
	result := make([]*Event, 0, len(evts))
	for _, e := range evts {
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}
