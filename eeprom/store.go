package eeprom

import "errors"

// Store is the non-volatile byte storage the record persists in. The core
// does not prescribe the technology; anything that can read and write
// RecordSize bytes at BaseOffset qualifies.
type Store interface {
	ReadRecord() ([RecordSize]byte, error)
	WriteRecord([RecordSize]byte) error
}

var (
	ErrStoreRead  = errors.New("store read failed")
	ErrStoreWrite = errors.New("store write failed")
)

// MemStore is the bypass/debug backend: a RAM image seeded with the fixed
// debug defaults. Data does not survive a restart; simulators and tests use
// it in place of real EEPROM.
type MemStore struct {
	buf [RecordSize]byte

	// FailWrites makes every WriteRecord a no-op that still reports
	// success, so a following verify read sees stale data. Tests use this
	// to exercise the save-verify contract.
	FailWrites bool
}

// NewMemStore seeds the store with DebugRecord(rprogOhms).
func NewMemStore(rprogOhms uint16) *MemStore {
	rec := DebugRecord(rprogOhms)
	s := &MemStore{buf: Marshal(&rec)}
	return s
}

// NewMemStoreWith seeds the store with an explicit record.
func NewMemStoreWith(rec DeviceRecord) *MemStore {
	return &MemStore{buf: Marshal(&rec)}
}

func (s *MemStore) ReadRecord() ([RecordSize]byte, error) {
	return s.buf, nil
}

func (s *MemStore) WriteRecord(buf [RecordSize]byte) error {
	if s.FailWrites {
		return nil
	}
	s.buf = buf
	return nil
}
