package property

import "context"

// Query selects property definitions. Empty fields match anything.
type Query struct {
	Entity     EntityKind
	OwnerID    string
	Identifier string
	Kind       Kind
}

// Matches reports whether p satisfies q.
func (q Query) Matches(p Property) bool {
	d := p.Def()
	if q.Entity != "" && d.Entity != q.Entity {
		return false
	}
	if q.OwnerID != "" && d.OwnerID != q.OwnerID {
		return false
	}
	if q.Identifier != "" && d.Identifier != q.Identifier {
		return false
	}
	if q.Kind != "" && p.Kind() != q.Kind {
		return false
	}
	return true
}

// ConfigurationRepository reads and writes property definitions.
type ConfigurationRepository interface {
	// Find returns the property with the given ID.
	// Returns ErrPropertyNotFound if it does not exist.
	Find(ctx context.Context, id string) (Property, error)

	// FindOneBy returns the first property matching q.
	// Returns ErrPropertyNotFound if none match.
	FindOneBy(ctx context.Context, q Query) (Property, error)

	// FindAllBy returns every property matching q.
	FindAllBy(ctx context.Context, q Query) ([]Property, error)

	// Create inserts a property definition.
	// Returns ErrPropertyExists if the ID is taken.
	Create(ctx context.Context, p Property) error

	// Delete removes a property definition.
	// Returns ErrPropertyNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// StateRepository reads state records.
type StateRepository interface {
	// Find returns the state record for a Dynamic property.
	// Returns ErrStateNotFound if none exists, ErrNotImplemented when no
	// backend is configured.
	Find(ctx context.Context, id string) (*State, error)
}

// StatePersister writes state records.
type StatePersister interface {
	// Create stores a new record built from patch.
	Create(ctx context.Context, id string, patch Patch) (*State, error)

	// Update applies patch to an existing record.
	Update(ctx context.Context, state *State, patch Patch) (*State, error)

	// Delete removes the record. It reports whether a record existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// StateStore is a backend that both reads and writes state records.
type StateStore interface {
	StateRepository
	StatePersister
}
