package transaction

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu  sync.RWMutex
	txs map[string]*Transaction
}

// NewMemoryStore creates an in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txs: make(map[string]*Transaction)}
}

func (s *MemoryStore) Create(ctx context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	s.txs[tx.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// List returns up to limit transactions with occurred_at before the given
// instant, newest first. A zero before means "now".
func (s *MemoryStore) List(ctx context.Context, limit int, before time.Time) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if before.IsZero() {
		before = time.Now()
	}

	var result []*Transaction
	for _, tx := range s.txs {
		if tx.OccurredAt.Before(before) {
			cp := *tx
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) CountByMerchant(ctx context.Context, merchant string, end time.Time, window time.Duration) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := end.Add(-window)
	count := 0
	for _, tx := range s.txs {
		if !strings.EqualFold(tx.MerchantName, merchant) {
			continue
		}
		if tx.OccurredAt.After(start) && tx.OccurredAt.Before(end) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) AvgAmountByCategory(ctx context.Context, category string, end time.Time, window time.Duration) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := end.Add(-window)
	var sum float64
	var n int
	for _, tx := range s.txs {
		if !strings.EqualFold(tx.MerchantCategory, category) {
			continue
		}
		if tx.OccurredAt.After(start) && tx.OccurredAt.Before(end) {
			sum += tx.Amount
			n++
		}
	}
	if n == 0 {
		return 0, nil // cold start
	}
	return sum / float64(n), nil
}
