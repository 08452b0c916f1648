package transform

import (
	"fmt"
	"strings"
)

// ButtonPayload is a discrete button event.
type ButtonPayload string

// Button payload values.
const (
	ButtonPressed          ButtonPayload = "btn_pressed"
	ButtonReleased         ButtonPayload = "btn_released"
	ButtonClicked          ButtonPayload = "btn_clicked"
	ButtonDoubleClicked    ButtonPayload = "btn_double_clicked"
	ButtonTripleClicked    ButtonPayload = "btn_triple_clicked"
	ButtonLongClicked      ButtonPayload = "btn_long_clicked"
	ButtonExtraLongClicked ButtonPayload = "btn_extra_long_clicked"
)

// SwitchPayload is a discrete switch command or state.
type SwitchPayload string

// Switch payload values.
const (
	SwitchOn     SwitchPayload = "sw_on"
	SwitchOff    SwitchPayload = "sw_off"
	SwitchToggle SwitchPayload = "sw_toggle"
)

// CoverPayload is a discrete cover (blind, shutter, gate) command or state.
type CoverPayload string

// Cover payload values.
const (
	CoverOpen        CoverPayload = "cvr_open"
	CoverOpening     CoverPayload = "cvr_opening"
	CoverOpened      CoverPayload = "cvr_opened"
	CoverClose       CoverPayload = "cvr_close"
	CoverClosing     CoverPayload = "cvr_closing"
	CoverClosed      CoverPayload = "cvr_closed"
	CoverStop        CoverPayload = "cvr_stop"
	CoverStopped     CoverPayload = "cvr_stopped"
	CoverCalibrating CoverPayload = "cvr_calibrating"
)

// Payload is implemented by the discrete payload enums.
type Payload interface {
	fmt.Stringer
	payload()
}

func (p ButtonPayload) String() string { return string(p) }
func (p SwitchPayload) String() string { return string(p) }
func (p CoverPayload) String() string  { return string(p) }

func (ButtonPayload) payload() {}
func (SwitchPayload) payload() {}
func (CoverPayload) payload()  {}

var (
	buttonPayloads = []ButtonPayload{
		ButtonPressed, ButtonReleased, ButtonClicked, ButtonDoubleClicked,
		ButtonTripleClicked, ButtonLongClicked, ButtonExtraLongClicked,
	}
	switchPayloads = []SwitchPayload{SwitchOn, SwitchOff, SwitchToggle}
	coverPayloads  = []CoverPayload{
		CoverOpen, CoverOpening, CoverOpened, CoverClose, CoverClosing,
		CoverClosed, CoverStop, CoverStopped, CoverCalibrating,
	}
)

// ParsePayload resolves value to a member of the payload enum for dt.
// Both the prefixed ("sw_on") and bare ("on") spellings are accepted.
func ParsePayload(dt DataType, value any) (Payload, error) {
	if p, ok := value.(Payload); ok {
		return matchPayload(dt, p.String())
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a %s payload", ErrInvalidValue, value, dt)
	}
	return matchPayload(dt, s)
}

func matchPayload(dt DataType, s string) (Payload, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch dt {
	case DataTypeButton:
		for _, p := range buttonPayloads {
			if samePayload(string(p), "btn_", s) {
				return p, nil
			}
		}
	case DataTypeSwitch:
		for _, p := range switchPayloads {
			if samePayload(string(p), "sw_", s) {
				return p, nil
			}
		}
	case DataTypeCover:
		for _, p := range coverPayloads {
			if samePayload(string(p), "cvr_", s) {
				return p, nil
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a payload data type", ErrInvalidValue, dt)
	}

	return nil, fmt.Errorf("%w: %q is not a %s payload", ErrInvalidValue, s, dt)
}

func samePayload(member, prefix, s string) bool {
	return member == s || strings.TrimPrefix(member, prefix) == s
}
