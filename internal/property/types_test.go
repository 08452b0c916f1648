package property

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-hub/internal/property/transform"
)

func testDefinition() Definition {
	return Definition{
		ID:         "prop-1",
		Identifier: "brightness",
		Name:       "Brightness",
		Entity:     EntityChannel,
		OwnerID:    "channel-1",
		DataType:   transform.DataTypeUchar,
		Format:     "0:254",
		Settable:   true,
	}
}

func TestValidate(t *testing.T) {
	scale := 12

	tests := []struct {
		name    string
		mutate  func(p *Mapped)
		wantErr error
	}{
		{name: "valid mapped", mutate: func(*Mapped) {}},
		{name: "missing id", mutate: func(p *Mapped) { p.ID = "" }, wantErr: ErrInvalidProperty},
		{name: "missing identifier", mutate: func(p *Mapped) { p.Identifier = " " }, wantErr: ErrInvalidProperty},
		{name: "unknown entity", mutate: func(p *Mapped) { p.Entity = "room" }, wantErr: ErrInvalidProperty},
		{name: "unknown data type", mutate: func(p *Mapped) { p.DataType = "decimal" }, wantErr: ErrInvalidProperty},
		{name: "scale out of range", mutate: func(p *Mapped) { p.Scale = &scale }, wantErr: ErrInvalidProperty},
		{name: "bad format", mutate: func(p *Mapped) { p.Format = "high:low" }, wantErr: ErrInvalidProperty},
		{name: "bad equation", mutate: func(p *Mapped) { p.Equation = "x=y" }, wantErr: ErrInvalidProperty},
		{name: "equation on string", mutate: func(p *Mapped) {
			p.DataType = transform.DataTypeString
			p.Format = ""
			p.Equation = "x=y/2|y=x*2"
		}, wantErr: ErrInvalidProperty},
		{name: "no parent", mutate: func(p *Mapped) { p.ParentID = "" }, wantErr: ErrInvalidProperty},
		{name: "own parent", mutate: func(p *Mapped) { p.ParentID = p.ID }, wantErr: ErrInvalidProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Mapped{Definition: testDefinition(), ParentID: "parent-1"}
			tt.mutate(p)

			err := Validate(p)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsedEquationFromFormat(t *testing.T) {
	d := testDefinition()
	d.Format = "x=y/2.54|y=x*2.54"

	eq, err := d.ParsedEquation()
	if err != nil {
		t.Fatalf("ParsedEquation() error = %v", err)
	}
	if eq == nil {
		t.Fatal("ParsedEquation() = nil, want equation from format")
	}
	if d.Range() != nil {
		t.Error("Range() should be nil for an equation format")
	}

	d.Format = "0:100"
	eq, err = d.ParsedEquation()
	if err != nil || eq != nil {
		t.Errorf("ParsedEquation() = %v, %v, want nil, nil", eq, err)
	}
	if r := d.Range(); r == nil || *r.Max != 100 {
		t.Errorf("Range() = %v, want 0:100", r)
	}
}

func TestPatchApply(t *testing.T) {
	s := NewState("prop-1", Actual(12.0))
	if !s.Valid || s.ActualValue != 12.0 || s.IsPending() {
		t.Fatalf("NewState() = %+v", s)
	}

	Expected(20.0).WithPending(true).Apply(s)
	if s.ExpectedValue != 20.0 || !s.IsPending() {
		t.Errorf("after expected patch = %+v", s)
	}

	Patch{}.WithExpected(nil).WithPending(false).WithValid(false).Apply(s)
	if s.ExpectedValue != nil || s.IsPending() || s.Valid {
		t.Errorf("after clearing patch = %+v", s)
	}
	if s.ActualValue != 12.0 {
		t.Errorf("unset field changed: actual = %v", s.ActualValue)
	}

	if !(Patch{}).IsEmpty() {
		t.Error("zero Patch should be empty")
	}
	if (Patch{}).WithValid(true).IsEmpty() {
		t.Error("patch with valid set should not be empty")
	}
}

func TestQueryMatches(t *testing.T) {
	p := &Dynamic{Definition: testDefinition()}

	tests := []struct {
		q    Query
		want bool
	}{
		{q: Query{}, want: true},
		{q: Query{Entity: EntityChannel, OwnerID: "channel-1"}, want: true},
		{q: Query{Identifier: "brightness", Kind: KindDynamic}, want: true},
		{q: Query{Kind: KindMapped}, want: false},
		{q: Query{OwnerID: "channel-2"}, want: false},
		{q: Query{Entity: EntityDevice}, want: false},
	}

	for _, tt := range tests {
		if got := tt.q.Matches(p); got != tt.want {
			t.Errorf("%+v.Matches() = %v, want %v", tt.q, got, tt.want)
		}
	}
}
