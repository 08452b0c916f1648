package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/property/transform"
)

// save runs patch through the write chain and persists the result.
func (m *Manager) save(ctx context.Context, p property.Property, patch property.Patch, forWriting bool) (bool, error) {
	r, err := m.resolve(ctx, p)
	if err != nil {
		return false, err
	}
	if patch.ActualValue.Set {
		if r.mapped != nil {
			return false, fmt.Errorf("%w: %s", ErrActualOnMapped, r.mapped.ID)
		}
		if forWriting {
			return false, fmt.Errorf("%w: %s", ErrActualViaWrite, r.dyn.ID)
		}
	}
	if m.states == nil || m.persister == nil {
		m.warnStateless("save", p)
		return false, nil
	}

	out := property.Patch{Valid: patch.Valid, Pending: patch.Pending}

	if patch.ActualValue.Set {
		m.applyActual(r, patch, &out, forWriting)
	}
	if patch.ExpectedValue.Set {
		if err := m.applyExpected(r, patch, &out, forWriting); err != nil {
			return false, err
		}
	}

	stored, err := m.states.Find(ctx, r.dyn.ID)
	switch {
	case errors.Is(err, property.ErrStateNotFound):
		stored = nil
	case errors.Is(err, property.ErrNotImplemented):
		m.warnStateless("save", p)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("finding state for %s: %w", r.dyn.ID, err)
	}

	if patch.ActualValue.Set || patch.ExpectedValue.Set {
		converge(stored, &out)
	}

	if out.IsEmpty() {
		return true, nil
	}

	var saved *property.State
	if stored == nil {
		saved, err = m.persister.Create(ctx, r.dyn.ID, out)
	} else {
		saved, err = m.persister.Update(ctx, stored, out)
	}
	if errors.Is(err, property.ErrNotImplemented) {
		m.warnStateless("save", p)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("saving state for %s: %w", r.dyn.ID, err)
	}

	m.logger.Debug("property state saved",
		"entity", m.trait.Entity,
		"property_id", r.dyn.ID,
		"actual", saved.ActualValue,
		"expected", saved.ExpectedValue,
		"valid", saved.Valid,
		"pending", saved.IsPending(),
	)
	m.notify(ctx, r.prop, saved)
	return true, nil
}

// applyActual fills the actual value and valid flag of out.
func (m *Manager) applyActual(r *resolved, patch property.Patch, out *property.Patch, forWriting bool) {
	raw := patch.ActualValue.Value
	sentinel := r.dyn.InvalidSentinel

	if sentinel != nil && raw != nil && transform.FlatEqual(raw, sentinel) {
		out.ActualValue = property.Some[any](nil)
		out.Valid = property.Some(false)
		return
	}
	if raw == nil {
		out.ActualValue = property.Some[any](nil)
		return
	}

	v, err := r.writeValue(raw, forWriting)
	if err != nil {
		m.logger.Error("actual value could not be transformed",
			"entity", m.trait.Entity, "property_id", r.dyn.ID, "value", raw, "error", err)
		out.ActualValue = property.Some[any](nil)
		out.Valid = property.Some(false)
		return
	}

	out.ActualValue = property.Some(v)
	if !patch.Valid.Set {
		out.Valid = property.Some(true)
	}
}

// applyExpected fills the expected value and pending flag of out.
func (m *Manager) applyExpected(r *resolved, patch property.Patch, out *property.Patch, forWriting bool) error {
	raw := patch.ExpectedValue.Value
	if isEmpty(raw) {
		*out = out.WithExpected(nil).WithPending(false)
		return nil
	}
	// Asking for the invalid sentinel clears the request.
	if sentinel := r.prop.Def().InvalidSentinel; sentinel != nil && transform.FlatEqual(raw, sentinel) {
		*out = out.WithExpected(nil).WithPending(false)
		return nil
	}

	v, err := r.writeValue(raw, forWriting)
	if err != nil {
		m.logger.Error("expected value could not be transformed",
			"entity", m.trait.Entity, "property_id", r.prop.Def().ID, "value", raw, "error", err)
		*out = out.WithExpected(nil).WithPending(false)
		return nil
	}
	if v == nil {
		*out = out.WithExpected(nil).WithPending(false)
		return nil
	}
	if !r.settable() {
		return fmt.Errorf("%w: %s", ErrNotSettable, r.prop.Def().ID)
	}

	out.ExpectedValue = property.Some(v)
	if !patch.Pending.Set {
		*out = out.WithPending(true)
	}
	return nil
}

// converge clears the expected value and pending flag when the resulting
// actual and expected values agree.
func converge(stored *property.State, out *property.Patch) {
	var actual, expected any
	if stored != nil {
		actual, expected = stored.ActualValue, stored.ExpectedValue
	}
	if out.ActualValue.Set {
		actual = out.ActualValue.Value
	}
	if out.ExpectedValue.Set {
		expected = out.ExpectedValue.Value
	}
	if actual == nil || expected == nil {
		return
	}
	if transform.FlatEqual(actual, expected) {
		*out = out.WithExpected(nil).WithPending(false)
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
