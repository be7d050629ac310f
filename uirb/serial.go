package uirb

import (
	"uirbcore-go/eeprom"
	"uirbcore-go/x/conv"
)

// USBSerialNumber renders the device identity string:
//
//	UIRB-V<major><minor>-<year><serial, 4 digits>-<factory serial, 8 chars>
//
// Empty when the version byte is zero, the board serial is invalid, or the
// factory field was never provisioned. Callers must treat "" as "no usable
// identity", not as an error.
func (d *Device) USBSerialNumber() string {
	if !d.ready() {
		return ""
	}
	ver := d.cfg.Version()
	if ver == 0 {
		return ""
	}
	serial := d.cfg.SerialNumber()
	if serial == eeprom.InvalidSerialNumber {
		return ""
	}
	factory := d.cfg.FactorySerialString()
	if len(factory) != eeprom.FactorySerialLen {
		return ""
	}

	var buf [40]byte
	var tmp [8]byte
	b := append(buf[:0], "UIRB-V"...)
	b = append(b, conv.Utoa(tmp[:], uint64(eeprom.VersionMajor(ver)))...)
	b = append(b, conv.Utoa(tmp[:], uint64(eeprom.VersionMinor(ver)))...)
	b = append(b, '-')
	b = append(b, conv.Utoa(tmp[:], uint64(d.cfg.ManufactureYear()))...)
	b = append(b, conv.UtoaPad(tmp[:], uint64(serial), 4)...)
	b = append(b, '-')
	b = append(b, factory...)
	return string(b)
}

// FactoryUSBSerialNumber is the raw provisioned bridge serial, or "".
func (d *Device) FactoryUSBSerialNumber() string {
	if !d.ready() {
		return ""
	}
	return d.cfg.FactorySerialString()
}
