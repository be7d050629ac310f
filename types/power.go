package types

// ------------------------
// Charger / Battery states
// ------------------------

// ChargerState is the inferred operating mode of the lithium-ion charger IC,
// estimated from the supply voltage, the PROG pin voltage and the derived
// charging current.
type ChargerState uint8

const (
	ChargerError    ChargerState = iota // a contributing measurement was invalid
	ChargerUnknown                      // measurements valid but contradictory or indeterminate
	ChargerCC                           // constant-current phase
	ChargerCV                           // constant-voltage phase
	ChargerFloating                     // battery full, charger idling until recharge trigger
	ChargerOff                          // charger electrically off (no input power or disabled)
)

// BatteryState is derived from the charger state and the supply voltage.
type BatteryState uint8

const (
	BatteryError BatteryState = iota
	BatteryUnknown
	BatteryCharging
	BatteryFull
	BatteryEmpty
	BatteryIdle // charger off, battery neither full nor empty
)

// Display tables (ordering is cosmetic).
var chargerStateNames = [...]string{
	ChargerError:    "error",
	ChargerUnknown:  "unknown",
	ChargerCC:       "charging_cc",
	ChargerCV:       "charging_cv",
	ChargerFloating: "floating",
	ChargerOff:      "turned_off",
}

var batteryStateNames = [...]string{
	BatteryError:    "error",
	BatteryUnknown:  "unknown",
	BatteryCharging: "charging",
	BatteryFull:     "fully_charged",
	BatteryEmpty:    "empty",
	BatteryIdle:     "not_charging",
}

func (s ChargerState) String() string {
	if int(s) < len(chargerStateNames) {
		return chargerStateNames[s]
	}
	return "invalid"
}

func (s BatteryState) String() string {
	if int(s) < len(batteryStateNames) {
		return batteryStateNames[s]
	}
	return "invalid"
}

// ------------------------
// Tagged measurements
// ------------------------

// Validity tags a raw measurement. Unknown means the hardware state prevents
// deriving a value (e.g. the PROG pin is driven); Invalid means the
// measurement itself failed. Downstream classification branches on the
// distinction, so the two must never be conflated.
type Validity uint8

const (
	Valid Validity = iota
	Unknown
	Invalid
)

// Raw sentinel encodings kept bit-compatible with the persisted/legacy
// representation: the top two uint16 values are reserved.
const (
	RawInvalid uint16 = 0xFFFF
	RawUnknown uint16 = 0xFFFE
)

// MilliVolts is a voltage measurement. Voltages are never Unknown.
type MilliVolts struct {
	Value uint16
	State Validity
}

func MV(v uint16) MilliVolts     { return MilliVolts{Value: v} }
func InvalidMV() MilliVolts      { return MilliVolts{State: Invalid} }
func (m MilliVolts) Valid() bool { return m.State == Valid }

// Raw returns the sentinel-encoded value.
func (m MilliVolts) Raw() uint16 {
	if m.State != Valid {
		return RawInvalid
	}
	return m.Value
}

// MilliAmps is a derived current. It carries all three validity states.
type MilliAmps struct {
	Value uint16
	State Validity
}

func MA(v uint16) MilliAmps     { return MilliAmps{Value: v} }
func UnknownMA() MilliAmps      { return MilliAmps{State: Unknown} }
func InvalidMA() MilliAmps      { return MilliAmps{State: Invalid} }
func (m MilliAmps) Valid() bool { return m.State == Valid }

// Raw returns the sentinel-encoded value.
func (m MilliAmps) Raw() uint16 {
	switch m.State {
	case Unknown:
		return RawUnknown
	case Invalid:
		return RawInvalid
	}
	return m.Value
}

// ------------------------
// Flag display iteration
// ------------------------

// FlagName pairs a bit value with a printable name.
// T is a uint8-like flags type.
type FlagName[T ~uint8] struct {
	Bit  T
	Name string
}

// FlagIter is a zero-alloc iterator over set bits in a flags byte, filtered
// by a table. Caller advances with Next(); no callbacks, no closures.
type FlagIter[T ~uint8] struct {
	v     uint8
	i     int
	table []FlagName[T]
}

// NewFlagIter constructs an iterator over set bits present in v that also
// exist in table.
func NewFlagIter[T ~uint8](v T, table []FlagName[T]) FlagIter[T] {
	return FlagIter[T]{v: uint8(v), table: table}
}

// Next returns the next SET bit: (name, ok). ok=false when done.
func (it *FlagIter[T]) Next() (string, bool) {
	for it.i < len(it.table) {
		e := it.table[it.i]
		it.i++
		if (it.v & uint8(e.Bit)) != 0 {
			return e.Name, true
		}
	}
	return "", false
}

// Reset allows reusing the iterator.
func (it *FlagIter[T]) Reset() { it.i = 0 }
