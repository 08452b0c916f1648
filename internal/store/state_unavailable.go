package store

import (
	"context"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// Unavailable is the state backend of a stateless deployment. Every call
// returns property.ErrNotImplemented.
type Unavailable struct{}

var _ property.StateStore = Unavailable{}

func (Unavailable) Find(context.Context, string) (*property.State, error) {
	return nil, property.ErrNotImplemented
}

func (Unavailable) Create(context.Context, string, property.Patch) (*property.State, error) {
	return nil, property.ErrNotImplemented
}

func (Unavailable) Update(context.Context, *property.State, property.Patch) (*property.State, error) {
	return nil, property.ErrNotImplemented
}

func (Unavailable) Delete(context.Context, string) (bool, error) {
	return false, property.ErrNotImplemented
}
