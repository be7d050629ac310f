package types

// ------------------------
// Digital pin vocabulary
// ------------------------

// PinMode is the configuration a digital pin reports.
type PinMode uint8

const (
	PinInput PinMode = iota
	PinInputPullup
	PinOutput
	PinModeInvalid
)

func (m PinMode) String() string {
	switch m {
	case PinInput:
		return "input"
	case PinInputPullup:
		return "input_pullup"
	case PinOutput:
		return "output"
	default:
		return "invalid"
	}
}

// Edge selection for wake interrupts.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}
