// Package eeprom owns the persisted device record: its byte-exact layout,
// the RAM mirror, and validated access to every field. The record format is
// shared with boards already in the field, so the codec must never change
// shape; see codec.go for the single place that encodes it.
package eeprom

import "uirbcore-go/types"

const (
	// RecordSize is the packed size of DeviceRecord in storage, in bytes.
	RecordSize = 21

	// BaseOffset is where the record starts in non-volatile storage.
	BaseOffset = 0x00

	// FactorySerialLen is the fixed length of the factory USB bridge serial
	// number. Not NUL-terminated in storage.
	FactorySerialLen = 8
)

// Field validation limits and invalid markers.
const (
	SerialNumberMax = 9999
	// InvalidSerialNumber is returned when the stored serial cannot be
	// trusted (out of range or flagged unknown).
	InvalidSerialNumber uint16 = 0xFFFF

	// RprogMinOhms is the smallest electrically plausible charge-programming
	// resistance (5k in parallel with the 10k RC network). Stored values at
	// or below it read back as invalid.
	RprogMinOhms     uint16 = 3333
	InvalidRprogOhms uint16 = 1

	InvalidMonth uint8 = 0

	BandgapNominalMV    = 1100
	ManufactureYearBase = 2020
	ManufactureYearMax  = 2035
)

// FeatureFlags is the persisted software-configuration byte. The upper four
// bits are reserved and must round-trip unchanged.
type FeatureFlags uint8

const (
	FlagDebuggerPresent  FeatureFlags = 1 << 0
	FlagSleepAllowed     FeatureFlags = 1 << 1
	FlagIOWakeAllowed    FeatureFlags = 1 << 2
	FlagBootCountEnabled FeatureFlags = 1 << 3

	reservedFlagsMask FeatureFlags = 0xF0
)

// FeatureFlagTable for display.
var FeatureFlagTable = [...]types.FlagName[FeatureFlags]{
	{Bit: FlagDebuggerPresent, Name: "debugger"},
	{Bit: FlagSleepAllowed, Name: "sleep_allowed"},
	{Bit: FlagIOWakeAllowed, Name: "io_wake_allowed"},
	{Bit: FlagBootCountEnabled, Name: "boot_count"},
}

func (f FeatureFlags) Has(bit FeatureFlags) bool { return f&bit != 0 }

func (f FeatureFlags) with(bit FeatureFlags, on bool) FeatureFlags {
	if on {
		return f | bit
	}
	return f &^ bit
}

// Serial number packing: 14-bit number, one spare bit, and a marker bit that
// forces the number to read back as invalid regardless of the payload.
const (
	serialNumberMask  uint16 = 0x3FFF
	serialUnknownBit  uint16 = 1 << 15
	serialReservedBit uint16 = 1 << 14
)

// DeviceRecord is the RAM representation of the packed record. Bitfield
// bytes keep their raw encoding here; the helpers below and the Manager's
// accessors are the only readers that interpret them.
type DeviceRecord struct {
	Version       uint8 // minor in the low nibble, major in the high nibble
	BandgapOffset int8  // mV offset from the 1100 mV nominal reference
	LEDBrightness uint8
	RprogOhms     uint16
	Flags         FeatureFlags
	Manufacture   uint8 // year offset from 2020 in the low nibble, month in the high nibble
	BootCount     uint32
	Serial        uint16 // see serial* masks
	FactorySerial [FactorySerialLen]byte
}

// ExpectedVersion is the board revision this build is compiled for. Stored
// records with any other version byte must not be interpreted further.
var ExpectedVersion = EncodeVersion(0, 2)

// EncodeVersion packs major/minor (each 0-15) into the version byte.
func EncodeVersion(major, minor uint8) uint8 {
	return (major&0x0F)<<4 | minor&0x0F
}

func VersionMajor(v uint8) uint8 { return v >> 4 }
func VersionMinor(v uint8) uint8 { return v & 0x0F }

// EncodeManufacture packs the year offset and month into the date byte.
func EncodeManufacture(yearOffset, month uint8) uint8 {
	return (month&0x0F)<<4 | yearOffset&0x0F
}

func manufactureYearOffset(b uint8) uint8 { return b & 0x0F }
func manufactureMonth(b uint8) uint8      { return b >> 4 }

// Equal compares every field, including the factory serial byte-for-byte.
// The RAM mirror and the stored copy are only "in sync" under this exact
// comparison; string semantics never apply to the serial bytes.
func (r *DeviceRecord) Equal(o *DeviceRecord) bool {
	if r.Version != o.Version ||
		r.BandgapOffset != o.BandgapOffset ||
		r.LEDBrightness != o.LEDBrightness ||
		r.RprogOhms != o.RprogOhms ||
		r.Flags != o.Flags ||
		r.Manufacture != o.Manufacture ||
		r.BootCount != o.BootCount ||
		r.Serial != o.Serial {
		return false
	}
	for i := 0; i < FactorySerialLen; i++ {
		if r.FactorySerial[i] != o.FactorySerial[i] {
			return false
		}
	}
	return true
}

// DebugRecord is the fixed seed used when storage is bypassed (simulators,
// host tests). The version always matches the build so initialization can
// proceed. rprogOhms <= RprogMinOhms falls back to 5000.
func DebugRecord(rprogOhms uint16) DeviceRecord {
	if rprogOhms <= RprogMinOhms {
		rprogOhms = 5000
	}
	r := DeviceRecord{
		Version:       ExpectedVersion,
		BandgapOffset: 0,
		LEDBrightness: 128,
		RprogOhms:     rprogOhms,
		Flags:         FlagSleepAllowed | FlagIOWakeAllowed | FlagBootCountEnabled,
		Manufacture:   EncodeManufacture(4, 1), // 2024-01
		BootCount:     0,
		Serial:        1,
	}
	copy(r.FactorySerial[:], "DBG00000")
	return r
}
