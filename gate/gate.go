// Package gate answers whether an external governance decision references a
// payment list.
//
// Submissions made on behalf of a third party (for example a DAO) are only
// accepted after a pending proposal in that party's governance contract
// mentions the list identifier.
package gate

import (
	"context"
	"strings"
	"sync"
)

// Gate reports whether a pending governance decision in scope references id.
// A non-nil error means the answer is unknown and must be treated as false.
type Gate interface {
	HasPendingReference(ctx context.Context, scope, id string) (bool, error)
}

// Func adapts a function to Gate.
type Func func(ctx context.Context, scope, id string) (bool, error)

// HasPendingReference implements Gate.
func (f Func) HasPendingReference(ctx context.Context, scope, id string) (bool, error) {
	return f(ctx, scope, id)
}

// Static is an in-memory Gate for tests and single-node setups where the
// approving party registers references directly.
type Static struct {
	mu   sync.RWMutex
	refs map[string]map[string]struct{}
}

var _ Gate = (*Static)(nil)

// NewStatic returns an empty Static gate.
func NewStatic() *Static {
	return &Static{refs: make(map[string]map[string]struct{})}
}

// Allow records a pending reference to id in scope.
func (s *Static) Allow(scope, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs[scope] == nil {
		s.refs[scope] = make(map[string]struct{})
	}
	s.refs[scope][strings.ToLower(id)] = struct{}{}
}

// Revoke removes a reference.
func (s *Static) Revoke(scope, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs[scope], strings.ToLower(id))
}

// HasPendingReference implements Gate.
func (s *Static) HasPendingReference(_ context.Context, scope, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.refs[scope][strings.ToLower(id)]
	return ok, nil
}
