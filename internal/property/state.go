package property

import "time"

// State is the mutable record kept for each Dynamic property.
//
// ActualValue is what the device last reported and ExpectedValue what a user
// or automation wants it to become; both are stored flattened and
// untransformed. Pending holds the time an expected value was issued and is
// nil when idle.
type State struct {
	PropertyID    string     `json:"property_id"`
	ActualValue   any        `json:"actual_value"`
	ExpectedValue any        `json:"expected_value"`
	Valid         bool       `json:"valid"`
	Pending       *time.Time `json:"pending,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsPending reports whether an expected value awaits confirmation.
func (s *State) IsPending() bool {
	return s.Pending != nil
}

// Clone returns a shallow copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return &c
}

// Optional is a patch field. Set distinguishes "set to zero" from "not set".
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Patch is a partial update of a State record.
type Patch struct {
	ActualValue   Optional[any]
	ExpectedValue Optional[any]
	Valid         Optional[bool]
	Pending       Optional[*time.Time]
}

// Actual returns a patch setting the actual value.
func Actual(v any) Patch {
	return Patch{ActualValue: Some(v)}
}

// Expected returns a patch setting the expected value.
func Expected(v any) Patch {
	return Patch{ExpectedValue: Some(v)}
}

// WithValid returns p with the valid flag set.
func (p Patch) WithValid(valid bool) Patch {
	p.Valid = Some(valid)
	return p
}

// WithPending returns p with pending set to now, or cleared.
func (p Patch) WithPending(pending bool) Patch {
	if pending {
		now := time.Now().UTC()
		p.Pending = Some(&now)
	} else {
		p.Pending = Some[*time.Time](nil)
	}
	return p
}

// WithExpected returns p with the expected value set.
func (p Patch) WithExpected(v any) Patch {
	p.ExpectedValue = Some(v)
	return p
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return !p.ActualValue.Set && !p.ExpectedValue.Set && !p.Valid.Set && !p.Pending.Set
}

// Apply writes the set fields of p onto s.
func (p Patch) Apply(s *State) {
	if p.ActualValue.Set {
		s.ActualValue = p.ActualValue.Value
	}
	if p.ExpectedValue.Set {
		s.ExpectedValue = p.ExpectedValue.Value
	}
	if p.Valid.Set {
		s.Valid = p.Valid.Value
	}
	if p.Pending.Set {
		s.Pending = p.Pending.Value
	}
}

// NewState returns the record produced by applying p to an empty state.
// Valid defaults to true.
func NewState(id string, p Patch) *State {
	now := time.Now().UTC()
	s := &State{PropertyID: id, Valid: true, CreatedAt: now, UpdatedAt: now}
	p.Apply(s)
	return s
}
