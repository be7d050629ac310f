package eeprom

// Byte-exact codec for DeviceRecord. This is the one place that must match
// the layout deployed boards already carry:
//
//	off  0      version byte (minor low nibble, major high nibble)
//	off  1      bandgap offset, int8 mV
//	off  2      status LED brightness
//	off  3- 4   Rprog ohms, u16 LE
//	off  5      feature flags byte
//	off  6      manufacture byte (year offset low nibble, month high nibble)
//	off  7-10   boot count, u32 LE
//	off 11-12   serial, u16 LE (14-bit number + 2 reserved bits)
//	off 13-20   factory USB serial, 8 bytes, no terminator
//
// Multi-byte fields are little-endian. No padding anywhere.

func put16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func get16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func put32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func get32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Marshal packs the record.
func Marshal(r *DeviceRecord) [RecordSize]byte {
	var buf [RecordSize]byte
	buf[0] = r.Version
	buf[1] = byte(r.BandgapOffset)
	buf[2] = r.LEDBrightness
	put16(buf[3:5], r.RprogOhms)
	buf[5] = byte(r.Flags)
	buf[6] = r.Manufacture
	put32(buf[7:11], r.BootCount)
	put16(buf[11:13], r.Serial)
	copy(buf[13:], r.FactorySerial[:])
	return buf
}

// Unmarshal unpacks a stored image. Every byte is meaningful; reserved bits
// are carried through untouched.
func Unmarshal(buf [RecordSize]byte) DeviceRecord {
	var r DeviceRecord
	r.Version = buf[0]
	r.BandgapOffset = int8(buf[1])
	r.LEDBrightness = buf[2]
	r.RprogOhms = get16(buf[3:5])
	r.Flags = FeatureFlags(buf[5])
	r.Manufacture = buf[6]
	r.BootCount = get32(buf[7:11])
	r.Serial = get16(buf[11:13])
	copy(r.FactorySerial[:], buf[13:])
	return r
}
