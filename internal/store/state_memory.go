package store

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// MemoryStateRepository keeps state records in process memory. Records are
// copied on the way in and out.
type MemoryStateRepository struct {
	mu     sync.RWMutex
	states map[string]*property.State
}

var _ property.StateStore = (*MemoryStateRepository)(nil)

// NewMemoryStateRepository creates an empty in-memory state store.
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{states: make(map[string]*property.State)}
}

// Find returns a copy of the record for a property.
func (r *MemoryStateRepository) Find(_ context.Context, id string) (*property.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[id]
	if !ok {
		return nil, property.ErrStateNotFound
	}
	return s.Clone(), nil
}

// Create stores a new record built from patch.
func (r *MemoryStateRepository) Create(_ context.Context, id string, patch property.Patch) (*property.State, error) {
	s := property.NewState(id, patch)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.states[id]; ok {
		s.CreatedAt = prev.CreatedAt
	}
	r.states[id] = s.Clone()
	return s, nil
}

// Update applies patch to the stored record, not to the caller's copy.
func (r *MemoryStateRepository) Update(_ context.Context, state *property.State, patch property.Patch) (*property.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.states[state.PropertyID]
	if !ok {
		return nil, property.ErrStateNotFound
	}
	patch.Apply(stored)
	stored.UpdatedAt = time.Now().UTC()
	return stored.Clone(), nil
}

// Delete removes the record for a property.
func (r *MemoryStateRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.states[id]
	delete(r.states, id)
	return ok, nil
}

// Put stores s as is. It is used to seed records.
func (r *MemoryStateRepository) Put(s *property.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[s.PropertyID] = s.Clone()
}

// Len returns the number of stored records.
func (r *MemoryStateRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
