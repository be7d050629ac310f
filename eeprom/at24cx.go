package eeprom

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

// AT24Store persists the record in an AT24CX-family I2C EEPROM. The driver
// handles page-boundary splitting and the post-write cycle delay, so a whole
// record can be written in one call.
type AT24Store struct {
	dev at24cx.Device
}

// AT24Config narrows the driver config to what the record store needs.
type AT24Config struct {
	// PageSize of the fitted part. Zero takes the driver default.
	PageSize uint16
}

// NewAT24Store wires a store to an already-configured I2C bus.
func NewAT24Store(bus drivers.I2C, cfg AT24Config) *AT24Store {
	dev := at24cx.New(bus)
	dev.Configure(at24cx.Config{PageSize: cfg.PageSize})
	return &AT24Store{dev: dev}
}

func (s *AT24Store) ReadRecord() ([RecordSize]byte, error) {
	var buf [RecordSize]byte
	n, err := s.dev.ReadAt(buf[:], BaseOffset)
	if err != nil {
		return buf, err
	}
	if n != RecordSize {
		return buf, ErrStoreRead
	}
	return buf, nil
}

func (s *AT24Store) WriteRecord(buf [RecordSize]byte) error {
	n, err := s.dev.WriteAt(buf[:], BaseOffset)
	if err != nil {
		return err
	}
	if n != RecordSize {
		return ErrStoreWrite
	}
	return nil
}
