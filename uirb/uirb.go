package uirb

import (
	"uirbcore-go/eeprom"
	"uirbcore-go/errcode"
	"uirbcore-go/power"
	"uirbcore-go/sleep"
	"uirbcore-go/types"
)

// Device is the facade. Exactly one per process; construct with New and keep
// it for the device's whole lifetime.
type Device struct {
	board Board
	cfg   *eeprom.Manager
	est   *power.Estimator
	slp   *sleep.Controller

	// initResult is sticky: set once during New, consulted by every public
	// operation. Anything but OK refuses the operation.
	initResult errcode.Code

	bootCounted bool
}

// New constructs and initializes the device. The order is load, version
// gate, default pin states, boot count, verified save, resistor validation.
// A version mismatch forces a restart through the watchdog; continuing with
// an incompatible persisted layout is unsafe. Other failures leave the
// device constructed but refusing every operation, with the cause in
// Begin().
func New(board Board) *Device {
	d := &Device{
		board:      board,
		cfg:        eeprom.NewManager(board.Store),
		initResult: errcode.NotInitialized,
	}

	if err := d.cfg.Load(); err != nil {
		d.initResult = errcode.Error
		return d
	}

	if !d.cfg.VersionMatches() {
		d.initResult = errcode.HWVersionMismatch
		if board.Watchdog != nil {
			// Never returns on hardware.
			board.Watchdog.ForceRestart()
		}
		return d
	}

	// Default pin states: IR emitter off, status LED on while initializing.
	if board.IRLED != nil {
		board.IRLED.SetMode(types.PinOutput)
		board.IRLED.SetLevel(false)
	}
	if board.StatusLED != nil {
		board.StatusLED.SetMode(types.PinOutput)
		board.StatusLED.SetLevel(true)
	}

	// The persisted debugger flag always reflects the running build.
	d.cfg.SetDebuggerPresent(board.DebugBuild)

	if !d.bootCounted {
		d.cfg.IncrementBootCount()
		d.bootCounted = true
	}

	if err := d.cfg.Save(); err != nil {
		d.initResult = errcode.SaveFailed
		return d
	}

	if !d.cfg.RprogValid() {
		d.initResult = errcode.RprogInvalid
		return d
	}

	d.est = power.NewEstimator(board.Analog, d.cfg.BandgapMV(), d.cfg.RprogOhms())
	d.slp = sleep.NewController(sleep.Config{
		Button:      board.Button,
		IO:          board.IOWake,
		Timer:       board.Timer,
		CPU:         board.CPU,
		Permissions: d.sleepPermissions,
		DebugActive: board.DebugBuild,
	})

	if board.StatusLED != nil {
		board.StatusLED.SetLevel(false)
	}
	d.initResult = errcode.OK
	return d
}

// Begin reports the sticky initialization result.
func (d *Device) Begin() errcode.Code { return d.initResult }

func (d *Device) ready() bool { return d.initResult == errcode.OK }

func (d *Device) sleepPermissions() (bool, bool) {
	return d.cfg.SleepAllowed(), d.cfg.IOWakeAllowed()
}

// ----------------
// Record accessors
// ----------------

// HardwareVersion returns major and minor, or zeros when not initialized.
func (d *Device) HardwareVersion() (major, minor uint8) {
	if !d.ready() {
		return 0, 0
	}
	return d.cfg.VersionMajor(), d.cfg.VersionMinor()
}

// HardwareVersionValue renders the version as major.minor.
func (d *Device) HardwareVersionValue() float64 {
	major, minor := d.HardwareVersion()
	return float64(major) + float64(minor)/10
}

func (d *Device) ManufactureYear() uint16 {
	if !d.ready() {
		return 0
	}
	return d.cfg.ManufactureYear()
}

func (d *Device) ManufactureMonth() uint8 {
	if !d.ready() {
		return eeprom.InvalidMonth
	}
	return d.cfg.ManufactureMonth()
}

func (d *Device) SerialNumber() uint16 {
	if !d.ready() {
		return eeprom.InvalidSerialNumber
	}
	return d.cfg.SerialNumber()
}

func (d *Device) BootCount() uint32 {
	if !d.ready() {
		return 0
	}
	return d.cfg.BootCount()
}

func (d *Device) RprogOhms() uint16 {
	if !d.ready() {
		return eeprom.InvalidRprogOhms
	}
	return d.cfg.RprogOhms()
}

func (d *Device) BandgapMV() uint16 {
	if !d.ready() {
		return 0
	}
	return d.cfg.BandgapMV()
}

func (d *Device) BandgapVolts() float64 {
	return float64(d.BandgapMV()) / 1000
}

// FeatureFlags returns the raw persisted flags byte for display.
func (d *Device) FeatureFlags() eeprom.FeatureFlags {
	if !d.ready() {
		return 0
	}
	return d.cfg.Flags()
}

func (d *Device) StatusLEDBrightness() uint8 {
	if !d.ready() {
		return 0
	}
	return d.cfg.LEDBrightness()
}

// SetStatusLEDBrightness updates the mirror and optionally persists.
func (d *Device) SetStatusLEDBrightness(v uint8, persist bool) bool {
	if !d.ready() {
		return false
	}
	d.cfg.SetLEDBrightness(v)
	return !persist || d.saveConfig()
}

func (d *Device) SleepAllowed() bool {
	return d.ready() && d.cfg.SleepAllowed()
}

func (d *Device) SetSleepAllowed(on, persist bool) bool {
	if !d.ready() {
		return false
	}
	d.cfg.SetSleepAllowed(on)
	return !persist || d.saveConfig()
}

func (d *Device) IOWakeAllowed() bool {
	return d.ready() && d.cfg.IOWakeAllowed()
}

func (d *Device) SetIOWakeAllowed(on, persist bool) bool {
	if !d.ready() {
		return false
	}
	d.cfg.SetIOWakeAllowed(on)
	return !persist || d.saveConfig()
}

// HasUnsavedChanges reports whether the RAM mirror diverged from storage.
func (d *Device) HasUnsavedChanges() bool {
	if !d.ready() {
		return false
	}
	dirty, err := d.cfg.Unsaved()
	return err == nil && dirty
}

// SaveConfig persists the mirror with the verify step.
func (d *Device) SaveConfig() bool {
	return d.ready() && d.saveConfig()
}

func (d *Device) saveConfig() bool { return d.cfg.Save() == nil }

// ReloadConfig discards unsaved changes and re-reads storage.
func (d *Device) ReloadConfig() bool {
	return d.ready() && d.cfg.Load() == nil
}

// ----------------
// Power
// ----------------

// PowerInfo refreshes the estimate from fresh samples. When the update fails
// the previous estimate is returned with ok=false. flashOnLow additionally
// plays the low-battery signal when the refreshed state is non-actionable.
func (d *Device) PowerInfo(samples uint8, flashOnLow bool) (power.Info, bool) {
	if !d.ready() {
		return power.Info{}, false
	}
	ok := d.est.Update(samples)
	info := d.est.Info()
	if ok && flashOnLow && power.BatteryLow(info) {
		d.NotifyLowBattery()
	}
	return info, ok
}

// LastPowerInfo returns the cached estimate without sampling.
func (d *Device) LastPowerInfo() power.Info {
	if !d.ready() {
		return power.Info{}
	}
	return d.est.Info()
}

// ----------------
// Sleep
// ----------------

// PowerDown sleeps for durationMS (zero = until an edge wake) with the
// requested wake sources. Silent no-op when not initialized; all other
// refusal and wake-cause reporting lives on the poll flags.
func (d *Device) PowerDown(durationMS uint32, src sleep.Source) {
	if !d.ready() {
		return
	}
	d.slp.Sleep(durationMS, src)
}

func (d *Device) SleepState() sleep.State {
	if !d.ready() {
		return sleep.Awake
	}
	return d.slp.State()
}

func (d *Device) OnButtonWake(fn func()) {
	if d.ready() {
		d.slp.OnButtonWake(fn)
	}
}

func (d *Device) OnIOWake(fn func()) {
	if d.ready() {
		d.slp.OnIOWake(fn)
	}
}

func (d *Device) PollButtonWake() bool {
	return d.ready() && d.slp.PollButtonWake()
}

func (d *Device) PollIOWake() bool {
	return d.ready() && d.slp.PollIOWake()
}
