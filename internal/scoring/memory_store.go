package scoring

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	byTxID map[string]*RiskScore
}

// NewMemoryStore creates an in-memory risk score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byTxID: make(map[string]*RiskScore)}
}

func (s *MemoryStore) Upsert(ctx context.Context, rs *RiskScore) (*RiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rs
	if existing, ok := s.byTxID[rs.TransactionID]; ok {
		cp.ID = existing.ID // the row ID is stable across rescores
	}
	s.byTxID[rs.TransactionID] = &cp

	out := cp
	return &out, nil
}

func (s *MemoryStore) GetByTransaction(ctx context.Context, txID string) (*RiskScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, ok := s.byTxID[txID]
	if !ok {
		return nil, ErrScoreNotFound
	}
	cp := *rs
	return &cp, nil
}
