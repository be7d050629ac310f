// Package power turns averaged analog samples of the supply rail and the
// charger's PROG pin into a charger/battery state model. All arithmetic is
// integer millivolt/milliamp maths; invalid and indeterminate measurements
// are tagged values, never errors.
package power

import "uirbcore-go/types"

// Reference selects the ADC voltage reference range.
type Reference uint8

const (
	RefInvalid  Reference = iota
	RefInternal           // calibrated bandgap, low range
	RefSupply             // AVCC, full range
)

func (r Reference) String() string {
	switch r {
	case RefInternal:
		return "internal"
	case RefSupply:
		return "supply"
	default:
		return "invalid"
	}
}

// AnalogPort is the sampling capability the estimator consumes. Samples are
// averaged raw 10-bit codes. SampleControlPin must auto-escalate: if the code
// saturates against the low-range reference it retries once against the
// supply reference and reports which reference produced the code.
//
// Implementations own the reference settling delays; calls block until the
// averaged code is ready.
type AnalogPort interface {
	// SampleReference measures the bandgap against the supply reference.
	SampleReference(samples uint8) (code uint16, ok bool)

	// SampleControlPin measures the PROG pin against ref, escalating to
	// RefSupply on saturation. refUsed reports the actual reference.
	SampleControlPin(ref Reference, samples uint8) (code uint16, refUsed Reference, ok bool)

	// PinMode and PinLevel report the PROG pin's current digital state.
	PinMode() types.PinMode
	PinLevel() bool

	SelectReference(ref Reference)
	Reference() Reference
}
