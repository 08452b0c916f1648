package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/property/transform"
)

// leg is a definition with its format and equation decoded.
type leg struct {
	def    *property.Definition
	format transform.Format
	eq     *transform.Equation
}

func newLeg(d *property.Definition) (leg, error) {
	f, err := d.ParsedFormat()
	if err != nil {
		return leg{}, fmt.Errorf("property %s format: %w", d.ID, err)
	}
	eq, err := d.ParsedEquation()
	if err != nil {
		return leg{}, fmt.Errorf("property %s equation: %w", d.ID, err)
	}
	return leg{def: d, format: f, eq: eq}, nil
}

// transformed reports whether the leg carries a scale or equation.
func (l leg) transformed() bool {
	return l.eq != nil || l.def.Scale != nil
}

func (l leg) numberRange() *transform.NumberRange {
	if r, ok := transform.RangeOf(l.format); ok {
		return &r
	}
	return nil
}

// resolved is a property with its dynamic backing looked up.
type resolved struct {
	prop   property.Property
	dyn    *property.Dynamic
	mapped *property.Mapped

	dynLeg    leg
	mappedLeg leg
}

// resolve checks p against the manager's trait and finds the dynamic
// property whose record backs it.
func (m *Manager) resolve(ctx context.Context, p property.Property) (*resolved, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil property", property.ErrInvalidProperty)
	}
	if p.Def().Entity != m.trait.Entity {
		return nil, fmt.Errorf("%w: %s property %s on %s manager",
			ErrEntityMismatch, p.Def().Entity, p.Def().ID, m.trait.Entity)
	}

	r := &resolved{prop: p}
	switch v := p.(type) {
	case *property.Dynamic:
		r.dyn = v
	case *property.Mapped:
		if !m.trait.SupportsMapped {
			return nil, fmt.Errorf("%w: %s", ErrMappedNotSupported, m.trait.Entity)
		}
		dyn, err := m.findParent(ctx, v)
		if err != nil {
			return nil, err
		}
		if !transform.Compatible(v.DataType, dyn.DataType) {
			return nil, fmt.Errorf("%w: %s over %s", ErrIncompatibleDataType, v.DataType, dyn.DataType)
		}
		r.dyn = dyn
		r.mapped = v
	case *property.Variable:
		return nil, fmt.Errorf("%w: %s", ErrNoState, v.ID)
	}

	var err error
	if r.dynLeg, err = newLeg(&r.dyn.Definition); err != nil {
		return nil, err
	}
	if r.mapped != nil {
		if r.mappedLeg, err = newLeg(&r.mapped.Definition); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (m *Manager) findParent(ctx context.Context, v *property.Mapped) (*property.Dynamic, error) {
	if m.config == nil {
		return nil, fmt.Errorf("%w: no configuration repository", ErrMappedParentNotLoaded)
	}
	parent, err := m.config.Find(ctx, v.ParentID)
	if errors.Is(err, property.ErrPropertyNotFound) {
		return nil, fmt.Errorf("%w: parent %s of %s", ErrMappedParentNotLoaded, v.ParentID, v.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("finding parent of %s: %w", v.ID, err)
	}
	dyn, ok := parent.(*property.Dynamic)
	if !ok {
		return nil, fmt.Errorf("%w: parent %s is %s", ErrMappedParentNotLoaded, v.ParentID, parent.Kind())
	}
	return dyn, nil
}

// settable reports whether expected values may be written. Both legs of a
// mapped property must allow it.
func (r *resolved) settable() bool {
	if r.mapped != nil && !r.mapped.Settable {
		return false
	}
	return r.dyn.Settable
}

// sides returns the two ends of the mapped boundary. Ranges are remapped only
// when the mapped leg has no scale or equation of its own.
func (r *resolved) sides() (mapped, dyn transform.Side) {
	mapped = transform.Side{DataType: r.mapped.DataType}
	dyn = transform.Side{DataType: r.dyn.DataType}
	if !r.mappedLeg.transformed() {
		mapped.Range = r.mappedLeg.numberRange()
		dyn.Range = r.dynLeg.numberRange()
	}
	return mapped, dyn
}

// readValue converts a stored raw value into the value seen through r.
func (r *resolved) readValue(raw any, forReading bool) (any, error) {
	d := r.dyn.Def()

	v, err := transform.Normalize(d.DataType, raw, r.dynLeg.format, d.InvalidSentinel)
	if err != nil {
		return nil, err
	}
	if forReading {
		if v, err = transform.TransformRead(d.DataType, v, r.dynLeg.eq, d.Scale); err != nil {
			return nil, err
		}
	}
	if r.mapped == nil {
		return v, nil
	}

	mappedSide, dynSide := r.sides()
	if v, err = transform.AcrossMapping(mappedSide, dynSide, v); err != nil {
		return nil, err
	}
	if !forReading {
		return v, nil
	}

	md := r.mapped.Def()
	if v, err = transform.TransformRead(md.DataType, v, r.mappedLeg.eq, md.Scale); err != nil {
		return nil, err
	}
	return transform.Normalize(md.DataType, v, r.mappedLeg.format, md.InvalidSentinel)
}

// writeValue converts a value given through r into the flattened raw value
// stored on the dynamic record.
func (r *resolved) writeValue(raw any, forWriting bool) (any, error) {
	entry := r.dynLeg
	if r.mapped != nil {
		entry = r.mappedLeg
	}

	v, err := normalizeEntry(entry, raw, forWriting)
	if err != nil {
		return nil, err
	}

	if r.mapped != nil {
		md := r.mapped.Def()
		if forWriting {
			if v, err = transform.TransformWrite(md.DataType, v, r.mappedLeg.eq, md.Scale); err != nil {
				return nil, err
			}
		}
		mappedSide, dynSide := r.sides()
		if v, err = transform.AcrossMapping(dynSide, mappedSide, v); err != nil {
			return nil, err
		}
	}

	d := r.dyn.Def()
	if forWriting {
		if v, err = transform.TransformWrite(d.DataType, v, r.dynLeg.eq, d.Scale); err != nil {
			return nil, err
		}
	}
	if v, err = transform.Normalize(d.DataType, v, r.dynLeg.format, d.InvalidSentinel); err != nil {
		return nil, err
	}
	return transform.FlattenAs(d.DataType, v), nil
}

// normalizeEntry coerces a value at the point it enters the write chain. A
// value headed for a scale or equation is still in display units, so it is
// only parsed as a number and not cast or clamped to the device type.
func normalizeEntry(l leg, raw any, forWriting bool) (any, error) {
	if forWriting && l.transformed() && l.def.DataType.IsNumeric() {
		return transform.Normalize(transform.DataTypeFloat, raw, nil, nil)
	}
	return transform.Normalize(l.def.DataType, raw, l.format, l.def.InvalidSentinel)
}

// flattenView flattens a value for publication using the outward-facing leg.
func (r *resolved) flattenView(v any) any {
	if r.mapped != nil {
		return transform.FlattenAs(r.mapped.DataType, v)
	}
	return transform.FlattenAs(r.dyn.DataType, v)
}
