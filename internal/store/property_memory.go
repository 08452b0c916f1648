package store

import (
	"context"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// MemoryPropertyRepository keeps property definitions in process memory.
type MemoryPropertyRepository struct {
	mu    sync.RWMutex
	props map[string]property.Property
}

var _ property.ConfigurationRepository = (*MemoryPropertyRepository)(nil)

// NewMemoryPropertyRepository creates a repository holding props.
func NewMemoryPropertyRepository(props ...property.Property) *MemoryPropertyRepository {
	r := &MemoryPropertyRepository{props: make(map[string]property.Property, len(props))}
	for _, p := range props {
		r.props[p.Def().ID] = p
	}
	return r
}

// Find returns the property with the given ID.
func (r *MemoryPropertyRepository) Find(_ context.Context, id string) (property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.props[id]
	if !ok {
		return nil, property.ErrPropertyNotFound
	}
	return p, nil
}

// FindOneBy returns the first property matching q, ordered by identifier.
func (r *MemoryPropertyRepository) FindOneBy(ctx context.Context, q property.Query) (property.Property, error) {
	all, err := r.FindAllBy(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, property.ErrPropertyNotFound
	}
	return all[0], nil
}

// FindAllBy returns every property matching q, ordered by identifier.
func (r *MemoryPropertyRepository) FindAllBy(_ context.Context, q property.Query) ([]property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []property.Property
	for _, p := range r.props {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Def(), out[j].Def()
		if a.Identifier != b.Identifier {
			return a.Identifier < b.Identifier
		}
		return a.ID < b.ID
	})
	return out, nil
}

// Create inserts a property definition.
func (r *MemoryPropertyRepository) Create(_ context.Context, p property.Property) error {
	if err := property.Validate(p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d := p.Def()
	if _, ok := r.props[d.ID]; ok {
		return property.ErrPropertyExists
	}
	for _, other := range r.props {
		od := other.Def()
		if od.Entity == d.Entity && od.OwnerID == d.OwnerID && od.Identifier == d.Identifier {
			return property.ErrPropertyExists
		}
	}
	r.props[d.ID] = p
	return nil
}

// Delete removes a property definition.
func (r *MemoryPropertyRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.props[id]; !ok {
		return property.ErrPropertyNotFound
	}
	delete(r.props, id)
	return nil
}
