package property

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nerrad567/gray-logic-hub/internal/property/transform"
)

// EntityKind names the kind of entity that owns a property.
type EntityKind string

// Entity kinds.
const (
	EntityConnector EntityKind = "connector"
	EntityDevice    EntityKind = "device"
	EntityChannel   EntityKind = "channel"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == EntityConnector || k == EntityDevice || k == EntityChannel
}

// Kind tags the variant behind a Property.
type Kind string

// Property kinds.
const (
	KindDynamic  Kind = "dynamic"
	KindMapped   Kind = "mapped"
	KindVariable Kind = "variable"
)

// StateIdentifier is the identifier of the synthetic connection state property.
const StateIdentifier = "state"

// maxScale bounds the decimal shift a definition may declare.
const maxScale = 9

// Definition is the immutable contract shared by all property kinds.
type Definition struct {
	ID              string             `json:"id"`
	Identifier      string             `json:"identifier"`
	Name            string             `json:"name"`
	Entity          EntityKind         `json:"entity"`
	OwnerID         string             `json:"owner_id"`
	DataType        transform.DataType `json:"data_type"`
	Format          string             `json:"format,omitempty"`
	Scale           *int               `json:"scale,omitempty"`
	Equation        string             `json:"equation,omitempty"`
	InvalidSentinel any                `json:"invalid_sentinel,omitempty"`
	Settable        bool               `json:"settable"`
	Queryable       bool               `json:"queryable"`
}

// ParsedFormat decodes the definition's format text.
func (d *Definition) ParsedFormat() (transform.Format, error) {
	return transform.ParseFormat(d.DataType, d.Format)
}

// ParsedEquation returns the definition's equation. An equation held in the
// format field is used when the equation field is empty. A nil equation is
// returned when neither is set.
func (d *Definition) ParsedEquation() (*transform.Equation, error) {
	if d.Equation != "" {
		return transform.ParseEquation(d.Equation)
	}
	f, err := d.ParsedFormat()
	if err != nil {
		return nil, err
	}
	if ef, ok := f.(transform.EquationFormat); ok {
		return ef.Equation, nil
	}
	return nil, nil
}

// Range returns the definition's numeric range, if its format is one.
func (d *Definition) Range() *transform.NumberRange {
	f, err := d.ParsedFormat()
	if err != nil {
		return nil
	}
	if r, ok := transform.RangeOf(f); ok {
		return &r
	}
	return nil
}

// Validate checks the definition's fields for consistency.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProperty)
	}
	if strings.TrimSpace(d.Identifier) == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidProperty)
	}
	if !d.Entity.Valid() {
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidProperty, d.Entity)
	}
	if !d.DataType.Valid() {
		return fmt.Errorf("%w: unknown data type %q", ErrInvalidProperty, d.DataType)
	}
	if d.Scale != nil && (*d.Scale < 0 || *d.Scale > maxScale) {
		return fmt.Errorf("%w: scale %d out of range 0..%d", ErrInvalidProperty, *d.Scale, maxScale)
	}
	if _, err := d.ParsedFormat(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProperty, err)
	}
	if _, err := d.ParsedEquation(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProperty, err)
	}
	if (d.Scale != nil || d.Equation != "") && !d.DataType.IsNumeric() {
		return fmt.Errorf("%w: scale and equation need a numeric data type", ErrInvalidProperty)
	}
	return nil
}

// Property is one of *Dynamic, *Mapped or *Variable.
type Property interface {
	Def() *Definition
	Kind() Kind
	sealed()
}

// Dynamic is a device-backed property with a live state record.
type Dynamic struct {
	Definition
}

// Mapped aliases a Dynamic parent through its own format, scale and equation.
type Mapped struct {
	Definition
	ParentID string `json:"parent_id"`
}

// Variable is a static configuration value.
type Variable struct {
	Definition
	Value any `json:"value"`
}

func (p *Dynamic) Def() *Definition  { return &p.Definition }
func (p *Mapped) Def() *Definition   { return &p.Definition }
func (p *Variable) Def() *Definition { return &p.Definition }

func (*Dynamic) Kind() Kind  { return KindDynamic }
func (*Mapped) Kind() Kind   { return KindMapped }
func (*Variable) Kind() Kind { return KindVariable }

func (*Dynamic) sealed()  {}
func (*Mapped) sealed()   {}
func (*Variable) sealed() {}

// Validate checks a property of any kind.
func Validate(p Property) error {
	if err := p.Def().Validate(); err != nil {
		return err
	}
	if m, ok := p.(*Mapped); ok {
		if strings.TrimSpace(m.ParentID) == "" {
			return fmt.Errorf("%w: mapped property needs a parent", ErrInvalidProperty)
		}
		if m.ParentID == m.ID {
			return fmt.Errorf("%w: mapped property cannot be its own parent", ErrInvalidProperty)
		}
	}
	return nil
}

// NewID returns a fresh property identifier.
func NewID() string {
	return uuid.NewString()
}
