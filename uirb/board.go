// Package uirb is the device facade: the single owner that wires the
// persistent record, the power estimator and the sleep controller together
// and refuses every operation after a failed initialization.
package uirb

import (
	"uirbcore-go/eeprom"
	"uirbcore-go/power"
	"uirbcore-go/sleep"
	"uirbcore-go/types"
)

// Pin is a plain digital pin (no interrupt capability needed).
type Pin interface {
	Mode() types.PinMode
	SetMode(types.PinMode)
	Level() bool
	SetLevel(bool)
}

// Watchdog forces a hardware restart. On real hardware ForceRestart arms the
// shortest watchdog timeout and spins, so it never returns; a host or test
// double may return, and construction still refuses to proceed afterwards.
type Watchdog interface {
	ForceRestart()
}

// Board collects every hardware hook the facade needs. All fields are
// injected; nothing reaches for globals.
type Board struct {
	StatusLED Pin
	IRLED     Pin

	Button sleep.WakePin
	IOWake sleep.WakePin
	Timer  sleep.IntervalTimer
	CPU    sleep.Controls

	Analog   power.AnalogPort
	Store    eeprom.Store
	Watchdog Watchdog

	// DelayMS busy-waits for the given time. Injected so the low-battery
	// signal pattern is testable without real time passing.
	DelayMS func(ms uint16)

	// DebugBuild marks an instrumentation build: the persisted debugger
	// flag is forced on and sleeping is refused.
	DebugBuild bool
}
