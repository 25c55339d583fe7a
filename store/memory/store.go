package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/credit"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/store"
)

var (
	_ store.Store  = (*Store)(nil)
	_ credit.Store = (*Store)(nil)
)

// Store keeps everything in process memory. Lists are copied on the way in
// and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	// Payment list storage
	lists map[string]*paylist.List

	// Credit balances
	credits map[string]*credit.Balance

	closed bool
}

func New() *Store {
	return &Store{
		lists:   make(map[string]*paylist.List),
		credits: make(map[string]*credit.Balance),
	}
}

// Payment list Store implementation
func (s *Store) CreateList(_ context.Context, l *paylist.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return bulkpay.ErrStoreClosed
	}
	if _, exists := s.lists[l.ID]; exists {
		return bulkpay.ErrListExists
	}
	s.lists[l.ID] = l.Clone()
	return nil
}

func (s *Store) GetList(_ context.Context, listID string) (*paylist.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.lists[listID]; ok {
		return l.Clone(), nil
	}
	return nil, bulkpay.ErrListNotFound
}

func (s *Store) UpdateList(_ context.Context, l *paylist.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return bulkpay.ErrStoreClosed
	}
	if _, exists := s.lists[l.ID]; !exists {
		return bulkpay.ErrListNotFound
	}
	s.lists[l.ID] = l.Clone()
	return nil
}

func (s *Store) ListLists(_ context.Context, opts paylist.ListOpts) ([]*paylist.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*paylist.List, 0)
	for _, l := range s.lists {
		if opts.Status != "" && l.Status != opts.Status {
			continue
		}
		if opts.Submitter != "" && l.Submitter != opts.Submitter {
			continue
		}
		result = append(result, l.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Credit Store implementation
func (s *Store) GetCredits(_ context.Context, account string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.credits[account]; ok {
		return b.Credits, nil
	}
	return 0, nil
}

func (s *Store) AddCredits(_ context.Context, account string, n uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, bulkpay.ErrStoreClosed
	}

	b, ok := s.credits[account]
	if !ok {
		b = &credit.Balance{Account: account}
		b.CreatedAt = time.Now().UTC()
		s.credits[account] = b
	}
	if b.Credits > math.MaxUint64-n {
		return b.Credits, fmt.Errorf("%w: credits of %s", bulkpay.ErrOverflow, account)
	}
	b.Credits += n
	b.UpdatedAt = time.Now().UTC()
	return b.Credits, nil
}

func (s *Store) DebitCredits(_ context.Context, account string, n uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, bulkpay.ErrStoreClosed
	}

	var available uint64
	b, ok := s.credits[account]
	if ok {
		available = b.Credits
	}
	if available < n {
		return available, &bulkpay.CreditShortfallError{Account: account, Required: n, Available: available}
	}
	if n == 0 {
		return available, nil
	}
	b.Credits -= n
	b.UpdatedAt = time.Now().UTC()
	return b.Credits, nil
}

// Lifecycle
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return bulkpay.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
