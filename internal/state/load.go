package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-hub/internal/property"
)

// loadPhase is a step of the load state machine.
type loadPhase int

const (
	phaseFetch loadPhase = iota
	phaseProject
	phaseHeal
	phaseResolved
)

// maxHeals bounds how often one load may rewrite storage. A heal nulls every
// offending field at once, so the reload that follows is always clean.
const maxHeals = 1

// load fetches the record backing p and projects it through the read chain.
func (m *Manager) load(ctx context.Context, p property.Property, forReading bool) (*property.State, error) {
	r, err := m.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	if m.states == nil {
		m.warnStateless("load", p)
		return nil, nil
	}

	var (
		phase  = phaseFetch
		heals  int
		stored *property.State
		view   *property.State
		heal   property.Patch
	)
	for {
		switch phase {
		case phaseFetch:
			stored, err = m.states.Find(ctx, r.dyn.ID)
			switch {
			case errors.Is(err, property.ErrStateNotFound):
				return nil, nil
			case errors.Is(err, property.ErrNotImplemented):
				m.warnStateless("load", p)
				return nil, nil
			case err != nil:
				return nil, fmt.Errorf("finding state for %s: %w", r.dyn.ID, err)
			}
			phase = phaseProject

		case phaseProject:
			view, heal = m.project(r, stored, forReading)
			if heal.IsEmpty() {
				phase = phaseResolved
			} else {
				phase = phaseHeal
			}

		case phaseHeal:
			if heals >= maxHeals {
				return nil, fmt.Errorf("%w: property %s", ErrHealFailed, r.dyn.ID)
			}
			heals++
			healed, err := m.heal(ctx, stored, heal)
			if err != nil {
				return nil, err
			}
			if !healed {
				heal.Apply(view)
				phase = phaseResolved
				continue
			}
			phase = phaseFetch

		case phaseResolved:
			return view, nil
		}
	}
}

// project runs the stored values through the read chain. Fields that fail on
// a dynamic property are returned as a heal patch; on a mapped property they
// are nulled on the view only so the parent's record is left untouched.
func (m *Manager) project(r *resolved, stored *property.State, forReading bool) (*property.State, property.Patch) {
	view := stored.Clone()
	var heal property.Patch

	if stored.ActualValue != nil {
		v, err := r.readValue(stored.ActualValue, forReading)
		switch {
		case err != nil:
			m.logger.Error("stored actual value is invalid",
				"entity", m.trait.Entity, "property_id", r.prop.Def().ID,
				"value", stored.ActualValue, "error", err)
			if r.mapped != nil {
				view.ActualValue = nil
				view.Valid = false
			} else {
				heal.ActualValue = property.Some[any](nil)
				heal.Valid = property.Some(false)
			}
		default:
			view.ActualValue = v
		}
	}

	if stored.ExpectedValue != nil {
		v, err := r.readValue(stored.ExpectedValue, forReading)
		switch {
		case err != nil:
			m.logger.Error("stored expected value is invalid",
				"entity", m.trait.Entity, "property_id", r.prop.Def().ID,
				"value", stored.ExpectedValue, "error", err)
			if r.mapped != nil {
				view.ExpectedValue = nil
				view.Pending = nil
			} else {
				heal = heal.WithExpected(nil).WithPending(false)
			}
		case v != nil && !r.dyn.Settable:
			m.logger.Error("expected value stored on a property that is not settable",
				"entity", m.trait.Entity, "property_id", r.dyn.ID, "value", stored.ExpectedValue)
			heal = heal.WithExpected(nil).WithPending(false)
		case v != nil && !r.settable():
			view.ExpectedValue = nil
			view.Pending = nil
		default:
			view.ExpectedValue = v
		}
	}

	return view, heal
}

// heal writes patch over the stored record. It reports false when the
// backend cannot be written, in which case the caller keeps the healed
// values on the view alone.
func (m *Manager) heal(ctx context.Context, stored *property.State, patch property.Patch) (bool, error) {
	if m.persister == nil {
		return false, nil
	}
	_, err := m.persister.Update(ctx, stored, patch)
	if errors.Is(err, property.ErrNotImplemented) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("healing state for %s: %w", stored.PropertyID, err)
	}
	m.logger.Info("property state healed", "entity", m.trait.Entity, "property_id", stored.PropertyID)
	return true, nil
}
