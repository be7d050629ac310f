package uirb

import (
	"testing"

	"uirbcore-go/eeprom"
	"uirbcore-go/errcode"
	"uirbcore-go/power"
	"uirbcore-go/sleep"
	"uirbcore-go/types"
)

// ----------------
// Fakes
// ----------------

type fakePin struct {
	mode  types.PinMode
	level bool
}

func (p *fakePin) Mode() types.PinMode     { return p.mode }
func (p *fakePin) SetMode(m types.PinMode) { p.mode = m }
func (p *fakePin) Level() bool             { return p.level }
func (p *fakePin) SetLevel(l bool)         { p.level = l }

type fakeWakePin struct {
	fakePin
	handler func()
}

func (p *fakeWakePin) SetIRQ(edge types.Edge, handler func()) error {
	p.handler = handler
	return nil
}

func (p *fakeWakePin) ClearIRQ() error {
	p.handler = nil
	return nil
}

type fakeTimer struct{ armed []uint16 }

func (f *fakeTimer) Arm(ms uint16) { f.armed = append(f.armed, ms) }
func (f *fakeTimer) Disarm()       {}

type fakeCPU struct {
	halts  int
	onHalt func()
}

func (f *fakeCPU) SaveAnalogState() sleep.AnalogState   { return 0 }
func (f *fakeCPU) RestoreAnalogState(sleep.AnalogState) {}
func (f *fakeCPU) DisableInterrupts()                    {}
func (f *fakeCPU) EnableInterrupts()                     {}

func (f *fakeCPU) Halt() {
	f.halts++
	if f.onHalt != nil {
		f.onHalt()
	}
}

type fakeAnalog struct {
	refCode uint16
	pinCode uint16
	mode    types.PinMode
	level   bool
	ref     power.Reference
}

func (f *fakeAnalog) SampleReference(samples uint8) (uint16, bool) {
	return f.refCode, true
}

func (f *fakeAnalog) SampleControlPin(ref power.Reference, samples uint8) (uint16, power.Reference, bool) {
	return f.pinCode, power.RefInternal, true
}

func (f *fakeAnalog) PinMode() types.PinMode            { return f.mode }
func (f *fakeAnalog) PinLevel() bool                    { return f.level }
func (f *fakeAnalog) SelectReference(r power.Reference) { f.ref = r }
func (f *fakeAnalog) Reference() power.Reference        { return f.ref }

type fakeWatchdog struct{ restarts int }

func (w *fakeWatchdog) ForceRestart() { w.restarts++ }

// ----------------
// Helpers
// ----------------

func provisionedRecord() eeprom.DeviceRecord {
	r := eeprom.DeviceRecord{
		Version:       eeprom.ExpectedVersion,
		LEDBrightness: 128,
		RprogOhms:     5000,
		Flags:         eeprom.FlagSleepAllowed | eeprom.FlagIOWakeAllowed | eeprom.FlagBootCountEnabled,
	}
	copy(r.FactorySerial[:], "FTABCD12")
	return r
}

type rig struct {
	status   *fakePin
	ir       *fakePin
	button   *fakeWakePin
	io       *fakeWakePin
	timer    *fakeTimer
	cpu      *fakeCPU
	analog   *fakeAnalog
	store    *eeprom.MemStore
	watchdog *fakeWatchdog
	delays   []uint16
}

func newRig(rec eeprom.DeviceRecord) *rig {
	return &rig{
		status:   &fakePin{},
		ir:       &fakePin{},
		button:   &fakeWakePin{},
		io:       &fakeWakePin{},
		timer:    &fakeTimer{},
		cpu:      &fakeCPU{},
		analog:   &fakeAnalog{mode: types.PinInput},
		store:    eeprom.NewMemStoreWith(rec),
		watchdog: &fakeWatchdog{},
	}
}

func (r *rig) board() Board {
	return Board{
		StatusLED: r.status,
		IRLED:     r.ir,
		Button:    r.button,
		IOWake:    r.io,
		Timer:     r.timer,
		CPU:       r.cpu,
		Analog:    r.analog,
		Store:     r.store,
		Watchdog:  r.watchdog,
		DelayMS:   func(ms uint16) { r.delays = append(r.delays, ms) },
	}
}

// ----------------
// Tests
// ----------------

func TestEndToEnd(t *testing.T) {
	rec := provisionedRecord()
	rec.Serial = 1234
	rec.Manufacture = eeprom.EncodeManufacture(4, 6) // 2024-06
	r := newRig(rec)

	d := New(r.board())
	if d.Begin() != errcode.OK {
		t.Fatalf("begin = %v", d.Begin())
	}

	if got := d.USBSerialNumber(); got != "UIRB-V02-20241234-FTABCD12" {
		t.Fatalf("usb serial = %q", got)
	}
	if d.SerialNumber() != 1234 || d.ManufactureYear() != 2024 || d.ManufactureMonth() != 6 {
		t.Fatalf("identity: serial %d date %d-%d",
			d.SerialNumber(), d.ManufactureYear(), d.ManufactureMonth())
	}
	if maj, min := d.HardwareVersion(); maj != 0 || min != 2 {
		t.Fatalf("version %d.%d", maj, min)
	}
	if d.BootCount() != 1 {
		t.Fatalf("boot count = %d", d.BootCount())
	}
	// The incremented count was persisted during construction.
	stored := eeprom.NewManager(r.store)
	if err := stored.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.BootCount() != 1 {
		t.Fatalf("stored boot count = %d", stored.BootCount())
	}
	// Default pin states: IR emitter held low, status LED off after init.
	if r.ir.mode != types.PinOutput || r.ir.level {
		t.Fatalf("ir pin mode %v level %v", r.ir.mode, r.ir.level)
	}
	if r.status.level {
		t.Fatal("status LED left high after init")
	}
	if d.HasUnsavedChanges() {
		t.Fatal("fresh device reports unsaved changes")
	}
}

func TestVersionMismatchForcesRestart(t *testing.T) {
	rec := provisionedRecord()
	rec.Version = eeprom.EncodeVersion(1, 0)
	r := newRig(rec)

	d := New(r.board())
	if d.Begin() != errcode.HWVersionMismatch {
		t.Fatalf("begin = %v", d.Begin())
	}
	if r.watchdog.restarts != 1 {
		t.Fatalf("watchdog restarts = %d", r.watchdog.restarts)
	}
	// Every operation refuses.
	if d.USBSerialNumber() != "" {
		t.Fatal("usb serial rendered after failed init")
	}
	if d.SerialNumber() != eeprom.InvalidSerialNumber {
		t.Fatal("serial readable after failed init")
	}
	d.PowerDown(1000, sleep.WakeButton)
	if r.cpu.halts != 0 {
		t.Fatal("slept after failed init")
	}
	if _, ok := d.PowerInfo(8, false); ok {
		t.Fatal("power info after failed init")
	}
}

func TestSaveFailureIsTerminal(t *testing.T) {
	r := newRig(provisionedRecord())
	r.store.FailWrites = true

	d := New(r.board())
	if d.Begin() != errcode.SaveFailed {
		t.Fatalf("begin = %v", d.Begin())
	}
	if r.watchdog.restarts != 0 {
		t.Fatal("save failure must not restart")
	}
}

func TestInvalidRprogIsTerminal(t *testing.T) {
	rec := provisionedRecord()
	rec.RprogOhms = 100
	d := New(newRig(rec).board())
	if d.Begin() != errcode.RprogInvalid {
		t.Fatalf("begin = %v", d.Begin())
	}
}

func TestDebuggerFlagTracksBuild(t *testing.T) {
	rec := provisionedRecord()
	rec.Flags |= eeprom.FlagDebuggerPresent
	r := newRig(rec)

	d := New(r.board()) // DebugBuild false
	if d.Begin() != errcode.OK {
		t.Fatalf("begin = %v", d.Begin())
	}
	m := eeprom.NewManager(r.store)
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.DebuggerPresent() {
		t.Fatal("stale debugger flag survived a non-debug build")
	}
}

func TestUSBSerialEmptyOnInvalidFields(t *testing.T) {
	// Unknown-marked serial.
	rec := provisionedRecord()
	rec.Serial = 1234 | 1<<15
	d := New(newRig(rec).board())
	if d.Begin() != errcode.OK {
		t.Fatalf("begin = %v", d.Begin())
	}
	if d.USBSerialNumber() != "" {
		t.Fatalf("usb serial = %q with unknown-marked serial", d.USBSerialNumber())
	}

	// Unprovisioned factory field.
	rec = provisionedRecord()
	rec.Serial = 1234
	rec.FactorySerial[3] = 0
	d = New(newRig(rec).board())
	if d.USBSerialNumber() != "" {
		t.Fatalf("usb serial = %q with unprovisioned factory field", d.USBSerialNumber())
	}
}

func TestSerialZeroPadding(t *testing.T) {
	rec := provisionedRecord()
	rec.Serial = 7
	rec.Manufacture = eeprom.EncodeManufacture(1, 2) // 2021-02
	d := New(newRig(rec).board())
	if got := d.USBSerialNumber(); got != "UIRB-V02-20210007-FTABCD12" {
		t.Fatalf("usb serial = %q", got)
	}
}

func TestNotifyLowBatteryPattern(t *testing.T) {
	rec := provisionedRecord()
	rec.Serial = 1
	r := newRig(rec)
	d := New(r.board())

	// Prior pin state must survive the pattern.
	r.status.SetMode(types.PinInputPullup)
	r.status.SetLevel(true)

	d.NotifyLowBattery()

	want := []uint16{500, 50, 200, 200, 200, 50, 200, 50, 500}
	if len(r.delays) != len(want) {
		t.Fatalf("delays = %v", r.delays)
	}
	for i := range want {
		if r.delays[i] != want[i] {
			t.Fatalf("delays = %v, want %v", r.delays, want)
		}
	}
	if r.status.mode != types.PinInputPullup || !r.status.level {
		t.Fatalf("status pin not restored: mode %v level %v", r.status.mode, r.status.level)
	}
}

func TestPowerInfoFlashesOnLowBattery(t *testing.T) {
	rec := provisionedRecord()
	rec.Serial = 1
	r := newRig(rec)
	// Bandgap code 341 puts the supply near 3303 mV, under the empty
	// threshold; the pin at 0 mV reads the charger as off.
	r.analog.refCode = 341
	r.analog.pinCode = 0

	d := New(r.board())
	info, ok := d.PowerInfo(8, true)
	if !ok {
		t.Fatal("power update failed")
	}
	if info.Battery != types.BatteryEmpty {
		t.Fatalf("battery = %v", info.Battery)
	}
	if len(r.delays) == 0 {
		t.Fatal("low battery did not flash")
	}
	if d.LastPowerInfo() != info {
		t.Fatal("cache does not match returned info")
	}
}

func TestSettersPersistFlag(t *testing.T) {
	rec := provisionedRecord()
	rec.Serial = 1
	r := newRig(rec)
	d := New(r.board())

	if !d.SetStatusLEDBrightness(9, true) {
		t.Fatal("persisting setter failed")
	}
	m := eeprom.NewManager(r.store)
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.LEDBrightness() != 9 {
		t.Fatalf("stored brightness = %d", m.LEDBrightness())
	}

	if !d.SetSleepAllowed(false, false) {
		t.Fatal("non-persisting setter failed")
	}
	if !d.HasUnsavedChanges() {
		t.Fatal("mirror change not reported as unsaved")
	}
	if !d.ReloadConfig() {
		t.Fatal("reload failed")
	}
	if !d.SleepAllowed() {
		t.Fatal("reload did not restore the persisted flag")
	}
}

func TestPowerDownWiresWakeSources(t *testing.T) {
	rec := provisionedRecord()
	rec.Serial = 1
	r := newRig(rec)
	d := New(r.board())

	woke := 0
	d.OnButtonWake(func() { woke++ })
	r.cpu.onHalt = func() {
		if r.button.handler != nil {
			r.button.handler()
		}
	}

	d.PowerDown(10000, sleep.WakeButton)

	if woke != 1 {
		t.Fatalf("button callback ran %d times", woke)
	}
	if !d.PollButtonWake() {
		t.Fatal("button flag not set")
	}
	if len(r.timer.armed) != 1 {
		t.Fatalf("timer intervals = %v", r.timer.armed)
	}
	if d.SleepState() != sleep.Awake {
		t.Fatalf("state = %v", d.SleepState())
	}

	// Sleep-allowed false refuses the next power down.
	d.SetSleepAllowed(false, false)
	r.cpu.halts = 0
	d.PowerDown(1000, sleep.WakeButton)
	if r.cpu.halts != 0 {
		t.Fatal("slept while administratively disallowed")
	}
}
