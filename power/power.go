package power

import (
	"math"

	"uirbcore-go/types"
	"uirbcore-go/x/mathx"
)

// Thresholds, all millivolts. PROG pin windows come from the charger IC's
// datasheet; the supply thresholds from the battery chemistry.
const (
	// PROG pin voltage windows.
	CCPinMinMV    = 900  // constant-current window lower bound
	CCPinMaxMV    = 1100 // upper bound; at or above this the charger drives no current
	CVPinMinMV    = 100  // constant-voltage window lower bound
	FloatPinMaxMV = 15   // at or below this the measured current is below resolution

	// Supply (battery) voltage thresholds.
	// TODO: calibrate FullyChargedMV against real boards; AVCC-derived
	// supply readings are not accurate to the charge-termination point.
	FullyChargedMV       = 4150
	RechargeHysteresisMV = 150
	RechargeMV           = FullyChargedMV - RechargeHysteresisMV
	EmptyMV              = 3400

	// AVCC envelope for the volts conversion sentinels.
	AVCCAbsoluteMaxMV    = 6000
	AVCCOperationalMaxMV = 5500
	AVCCMinimumMV        = 2700 // minimum reliable supply at the 8 MHz clock
)

// ADC geometry.
const (
	adcSteps     = 1024
	adcCodeMax   = 1023
	supplyRawMin = 160 // bandgap codes at or below this imply an implausible supply
)

// Info is one power estimate. Recomputed as a whole on every successful
// Update; partial results never escape.
type Info struct {
	SupplyMV  types.MilliVolts
	PinMV     types.MilliVolts
	PinMode   types.PinMode
	PinLevel  bool
	CurrentMA types.MilliAmps
	Charger   types.ChargerState
	Battery   types.BatteryState
}

// Estimator owns the cached Info and the conversion constants. Exactly one
// instance per board, owned by the facade.
type Estimator struct {
	port      AnalogPort
	bandgapMV uint16
	rprogOhms uint16
	info      Info
}

func NewEstimator(port AnalogPort, bandgapMV, rprogOhms uint16) *Estimator {
	return &Estimator{
		port:      port,
		bandgapMV: bandgapMV,
		rprogOhms: rprogOhms,
		info: Info{
			SupplyMV:  types.InvalidMV(),
			PinMV:     types.InvalidMV(),
			PinMode:   types.PinModeInvalid,
			CurrentMA: types.InvalidMA(),
			Charger:   types.ChargerError,
			Battery:   types.BatteryError,
		},
	}
}

// SetRprogOhms tracks a persisted resistor change.
func (e *Estimator) SetRprogOhms(ohms uint16) { e.rprogOhms = ohms }

// Info returns the last successful estimate.
func (e *Estimator) Info() Info { return e.info }

// Update samples the supply and PROG pin, derives the charging current and
// reclassifies. The cache is replaced only when every intermediate value is
// valid; on any failure it returns false and the previous estimate stands.
func (e *Estimator) Update(samples uint8) bool {
	if samples == 0 {
		return false
	}
	supply := e.measureSupply(samples)
	if !supply.Valid() {
		return false
	}
	mode := e.port.PinMode()
	level := e.port.PinLevel()
	pin := e.measurePin(supply, samples)
	if !pin.Valid() {
		return false
	}
	current := DeriveCurrent(mode, level, pin, e.rprogOhms)
	if current.State == types.Invalid {
		return false
	}
	charger := ClassifyCharger(supply, pin, current)
	e.info = Info{
		SupplyMV:  supply,
		PinMV:     pin,
		PinMode:   mode,
		PinLevel:  level,
		CurrentMA: current,
		Charger:   charger,
		Battery:   ClassifyBattery(charger, supply),
	}
	return true
}

// measureSupply derives AVCC from the bandgap code: the bandgap is a known
// voltage, so supply = steps * bandgap / code. Codes at or below the floor
// would imply a supply beyond the absolute maximum and read as invalid.
func (e *Estimator) measureSupply(samples uint8) types.MilliVolts {
	code, ok := e.port.SampleReference(samples)
	if !ok || code <= supplyRawMin || code > adcCodeMax {
		return types.InvalidMV()
	}
	mv := mathx.RoundDiv(uint32(adcSteps)*uint32(e.bandgapMV), uint32(code))
	if mv > 0xFFFD {
		return types.InvalidMV()
	}
	return types.MV(uint16(mv))
}

// measurePin converts the PROG pin code against whichever reference the port
// actually used. The supply-referenced range is only trusted while the
// supply itself is inside the operating envelope.
func (e *Estimator) measurePin(supply types.MilliVolts, samples uint8) types.MilliVolts {
	code, refUsed, ok := e.port.SampleControlPin(RefInternal, samples)
	if !ok || code > adcCodeMax {
		return types.InvalidMV()
	}
	var refMV uint16
	switch refUsed {
	case RefInternal:
		refMV = e.bandgapMV
	case RefSupply:
		if supply.Value <= AVCCMinimumMV || supply.Value > AVCCAbsoluteMaxMV {
			return types.InvalidMV()
		}
		refMV = supply.Value
	default:
		return types.InvalidMV()
	}
	return types.MV(uint16(mathx.RoundDiv(uint32(code)*uint32(refMV), adcSteps)))
}

// DeriveCurrent computes the charging current from the PROG pin state.
//
//   - Output high: the RC network pins the control voltage above the
//     zero-current threshold, so the answer is exactly 0 mA.
//   - Output low or input with pull-up: the pin voltage no longer reflects
//     the charger, so the current is unknowable (not zero, not invalid).
//   - Plain input: I(mA) = V(mV) * 1000 / R(ohm). At or above the CC ceiling
//     or at or below the float floor the charger drives no current. A
//     computed zero clamps to 1 mA; 0 is reserved for "electrically off".
func DeriveCurrent(mode types.PinMode, level bool, pin types.MilliVolts, rprogOhms uint16) types.MilliAmps {
	switch mode {
	case types.PinOutput:
		if level {
			return types.MA(0)
		}
		return types.UnknownMA()
	case types.PinInputPullup:
		return types.UnknownMA()
	case types.PinInput:
	default:
		return types.InvalidMA()
	}
	if !pin.Valid() || rprogOhms == 0 {
		return types.InvalidMA()
	}
	if pin.Value >= CCPinMaxMV || pin.Value <= FloatPinMaxMV {
		return types.MA(0)
	}
	ma := uint32(pin.Value) * 1000 / uint32(rprogOhms)
	if ma == 0 {
		ma = 1
	}
	return types.MA(uint16(mathx.Min(ma, uint32(0xFFFD))))
}

// ClassifyCharger applies the ordered rules over the three measurements.
// Order matters: the CC and CV windows each carry a contradiction check
// against the supply voltage before the floating/off fallbacks run.
func ClassifyCharger(supply, pin types.MilliVolts, current types.MilliAmps) types.ChargerState {
	if !supply.Valid() || !pin.Valid() || current.State == types.Invalid {
		return types.ChargerError
	}
	if current.State == types.Unknown {
		return types.ChargerUnknown
	}
	switch {
	case mathx.Between(pin.Value, CCPinMinMV, CCPinMaxMV):
		// Full battery cannot draw constant current.
		if supply.Value >= FullyChargedMV {
			return types.ChargerUnknown
		}
		return types.ChargerCC
	case pin.Value >= CVPinMinMV && pin.Value < CCPinMinMV:
		// CV with the battery below the recharge point is contradictory.
		if supply.Value <= RechargeMV {
			return types.ChargerUnknown
		}
		return types.ChargerCV
	case supply.Value >= RechargeMV:
		return types.ChargerFloating
	case current.Value == 0:
		return types.ChargerOff
	default:
		return types.ChargerUnknown
	}
}

// ClassifyBattery derives the battery state from the charger state and the
// supply voltage.
func ClassifyBattery(charger types.ChargerState, supply types.MilliVolts) types.BatteryState {
	if charger == types.ChargerError || !supply.Valid() {
		return types.BatteryError
	}
	switch {
	case charger == types.ChargerCC || charger == types.ChargerCV:
		return types.BatteryCharging
	case charger == types.ChargerFloating || supply.Value >= RechargeMV:
		return types.BatteryFull
	case supply.Value < EmptyMV:
		return types.BatteryEmpty
	case charger == types.ChargerOff:
		return types.BatteryIdle
	default:
		return types.BatteryUnknown
	}
}

// ----------------
// Float conversions
// ----------------

// SupplyVolts renders the supply with the three out-of-band sentinels:
// NaN for an invalid measurement, +Inf above the absolute maximum (possible
// hardware damage), -Inf below the minimum for the configured clock.
func SupplyVolts(m types.MilliVolts) float64 {
	if !m.Valid() {
		return math.NaN()
	}
	if m.Value > AVCCAbsoluteMaxMV {
		return math.Inf(1)
	}
	if m.Value < AVCCMinimumMV {
		return math.Inf(-1)
	}
	return float64(m.Value) / 1000
}

// Volts is the plain conversion: NaN when invalid.
func Volts(m types.MilliVolts) float64 {
	if !m.Valid() {
		return math.NaN()
	}
	return float64(m.Value) / 1000
}

// Amps is NaN for both unknown and invalid currents.
func Amps(m types.MilliAmps) float64 {
	if !m.Valid() {
		return math.NaN()
	}
	return float64(m.Value) / 1000
}

// ----------------
// Predicates
// ----------------

// BatteryLow treats error, unknown and empty alike: none of them justify
// running a power-hungry operation.
func BatteryLow(i Info) bool {
	switch i.Battery {
	case types.BatteryError, types.BatteryUnknown, types.BatteryEmpty:
		return true
	}
	return false
}

// Charging is true only in the two active phases.
func Charging(i Info) bool {
	return i.Charger == types.ChargerCC || i.Charger == types.ChargerCV
}

// BatteryFull reports the fully-charged condition.
func BatteryFull(i Info) bool { return i.Battery == types.BatteryFull }
