package eeprom

import "errors"

// ErrVerifyFailed reports a save whose read-back did not match what was
// written. The mirror keeps the intended values; storage is suspect.
var ErrVerifyFailed = errors.New("eeprom: save verify mismatch")

// Manager owns the RAM mirror of the device record. Mutation happens only on
// the mirror; Save is the one path to storage and always verifies. Setters
// validate and return false without touching the mirror on bad input.
// Getters derive and never fail.
//
// Not safe for interrupt context. The facade is the sole owner.
type Manager struct {
	store Store
	rec   DeviceRecord
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// ----------------
// Load / save
// ----------------

// Load replaces the mirror with the stored record.
func (m *Manager) Load() error {
	buf, err := m.store.ReadRecord()
	if err != nil {
		return err
	}
	m.rec = Unmarshal(buf)
	return nil
}

// Save writes the mirror, reads storage back and compares bit-for-bit.
// A silent write failure is the main integrity risk on worn EEPROM, so the
// verify is not optional.
func (m *Manager) Save() error {
	img := Marshal(&m.rec)
	if err := m.store.WriteRecord(img); err != nil {
		return err
	}
	back, err := m.store.ReadRecord()
	if err != nil {
		return err
	}
	if back != img {
		return ErrVerifyFailed
	}
	return nil
}

// VersionMatches gates every other field: nothing else in the record may be
// interpreted until this returns true.
func (m *Manager) VersionMatches() bool {
	return m.rec.Version == ExpectedVersion
}

// StoredRecord reads storage without touching the mirror.
func (m *Manager) StoredRecord() (DeviceRecord, error) {
	buf, err := m.store.ReadRecord()
	if err != nil {
		return DeviceRecord{}, err
	}
	return Unmarshal(buf), nil
}

// Unsaved reports whether the mirror has diverged from storage.
func (m *Manager) Unsaved() (bool, error) {
	stored, err := m.StoredRecord()
	if err != nil {
		return false, err
	}
	return !m.rec.Equal(&stored), nil
}

// Record returns a copy of the mirror.
func (m *Manager) Record() DeviceRecord { return m.rec }

// ----------------
// Version
// ----------------

func (m *Manager) Version() uint8      { return m.rec.Version }
func (m *Manager) VersionMajor() uint8 { return VersionMajor(m.rec.Version) }
func (m *Manager) VersionMinor() uint8 { return VersionMinor(m.rec.Version) }

// ----------------
// Bandgap reference
// ----------------

// BandgapMV is the calibrated internal reference: 1100 mV nominal plus the
// stored signed offset.
func (m *Manager) BandgapMV() uint16 {
	return uint16(int32(BandgapNominalMV) + int32(m.rec.BandgapOffset))
}

// SetBandgapMV accepts 972..1227 mV, the range reachable from the int8
// offset. Anything else leaves the mirror unchanged.
func (m *Manager) SetBandgapMV(mv uint16) bool {
	if mv < BandgapNominalMV-128 || mv > BandgapNominalMV+127 {
		return false
	}
	m.rec.BandgapOffset = int8(int32(mv) - BandgapNominalMV)
	return true
}

// ----------------
// LED brightness
// ----------------

func (m *Manager) LEDBrightness() uint8 { return m.rec.LEDBrightness }

func (m *Manager) SetLEDBrightness(v uint8) { m.rec.LEDBrightness = v }

// ----------------
// Charge programming resistor
// ----------------

// RprogOhms reads back InvalidRprogOhms for any stored value at or below the
// plausibility floor; current derivation must never divide by such a value.
func (m *Manager) RprogOhms() uint16 {
	if m.rec.RprogOhms <= RprogMinOhms {
		return InvalidRprogOhms
	}
	return m.rec.RprogOhms
}

func (m *Manager) SetRprogOhms(ohms uint16) bool {
	if ohms <= RprogMinOhms {
		return false
	}
	m.rec.RprogOhms = ohms
	return true
}

// RprogValid reports whether the stored resistance can be trusted.
func (m *Manager) RprogValid() bool { return m.rec.RprogOhms > RprogMinOhms }

// ----------------
// Feature flags
// ----------------

func (m *Manager) Flags() FeatureFlags { return m.rec.Flags }

func (m *Manager) DebuggerPresent() bool  { return m.rec.Flags.Has(FlagDebuggerPresent) }
func (m *Manager) SleepAllowed() bool     { return m.rec.Flags.Has(FlagSleepAllowed) }
func (m *Manager) IOWakeAllowed() bool    { return m.rec.Flags.Has(FlagIOWakeAllowed) }
func (m *Manager) BootCountEnabled() bool { return m.rec.Flags.Has(FlagBootCountEnabled) }

func (m *Manager) SetDebuggerPresent(on bool) {
	m.rec.Flags = m.rec.Flags.with(FlagDebuggerPresent, on)
}
func (m *Manager) SetSleepAllowed(on bool) {
	m.rec.Flags = m.rec.Flags.with(FlagSleepAllowed, on)
}
func (m *Manager) SetIOWakeAllowed(on bool) {
	m.rec.Flags = m.rec.Flags.with(FlagIOWakeAllowed, on)
}
func (m *Manager) SetBootCountEnabled(on bool) {
	m.rec.Flags = m.rec.Flags.with(FlagBootCountEnabled, on)
}

// ----------------
// Manufacture date
// ----------------

// ManufactureYear is always derivable; the nibble cannot encode a year
// outside 2020..2035.
func (m *Manager) ManufactureYear() uint16 {
	return ManufactureYearBase + uint16(manufactureYearOffset(m.rec.Manufacture))
}

// ManufactureMonth reads back InvalidMonth when the stored nibble is outside
// 1..12.
func (m *Manager) ManufactureMonth() uint8 {
	mo := manufactureMonth(m.rec.Manufacture)
	if mo < 1 || mo > 12 {
		return InvalidMonth
	}
	return mo
}

func (m *Manager) SetManufactureDate(year uint16, month uint8) bool {
	if year < ManufactureYearBase || year > ManufactureYearMax {
		return false
	}
	if month < 1 || month > 12 {
		return false
	}
	m.rec.Manufacture = EncodeManufacture(uint8(year-ManufactureYearBase), month)
	return true
}

// ----------------
// Serial number
// ----------------

// SerialNumber returns InvalidSerialNumber when the unknown marker is set or
// the 14-bit payload is outside 1..9999.
func (m *Manager) SerialNumber() uint16 {
	if m.rec.Serial&serialUnknownBit != 0 {
		return InvalidSerialNumber
	}
	n := m.rec.Serial & serialNumberMask
	if n == 0 || n > SerialNumberMax {
		return InvalidSerialNumber
	}
	return n
}

// SetSerialNumber accepts 1..9999, clears the unknown marker and preserves
// the spare reserved bit.
func (m *Manager) SetSerialNumber(n uint16) bool {
	if n == 0 || n > SerialNumberMax {
		return false
	}
	m.rec.Serial = m.rec.Serial&serialReservedBit | n
	return true
}

// MarkSerialUnknown keeps the payload bits but forces SerialNumber to read
// back invalid until a setter clears the marker.
func (m *Manager) MarkSerialUnknown() {
	m.rec.Serial |= serialUnknownBit
}

// ----------------
// Boot count
// ----------------

func (m *Manager) BootCount() uint32 { return m.rec.BootCount }

// IncrementBootCount is a no-op returning false when counting is disabled or
// the counter already saturated. Call at most once per device start.
func (m *Manager) IncrementBootCount() bool {
	if !m.rec.Flags.Has(FlagBootCountEnabled) {
		return false
	}
	if m.rec.BootCount == ^uint32(0) {
		return false
	}
	m.rec.BootCount++
	return true
}

// ----------------
// Factory USB serial
// ----------------

func (m *Manager) FactorySerial() [FactorySerialLen]byte { return m.rec.FactorySerial }

// FactorySerialString returns the 8 bytes as a string, or "" if any byte is
// zero (the field was never provisioned).
func (m *Manager) FactorySerialString() string {
	for _, b := range m.rec.FactorySerial {
		if b == 0 {
			return ""
		}
	}
	return string(m.rec.FactorySerial[:])
}

// SetFactorySerial requires exactly FactorySerialLen non-zero bytes.
func (m *Manager) SetFactorySerial(s string) bool {
	if len(s) != FactorySerialLen {
		return false
	}
	for i := 0; i < FactorySerialLen; i++ {
		if s[i] == 0 {
			return false
		}
	}
	copy(m.rec.FactorySerial[:], s)
	return true
}
