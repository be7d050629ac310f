// Package sleep drives the microcontroller into a low-power halt and back,
// arbitrating between two edge-triggered wake pins and a repeating hardware
// timer. Correctness rule: every piece of hardware state the controller
// touches while arming is restored byte-exact before callbacks run.
package sleep

import (
	"sync/atomic"

	"uirbcore-go/types"
)

// Source is the set of edge wake sources to arm.
type Source uint8

const (
	WakeNone   Source = 0
	WakeButton Source = 1 << 0
	WakeIO     Source = 1 << 1

	WakeButtonAndIO = WakeButton | WakeIO
)

// State of the controller, inspectable at any time from normal context.
type State uint8

const (
	Awake State = iota
	Arming
	Asleep
	Waking
)

func (s State) String() string {
	switch s {
	case Arming:
		return "arming"
	case Asleep:
		return "asleep"
	case Waking:
		return "waking"
	default:
		return "awake"
	}
}

// WakePin is an edge-capable digital pin. The handler passed to SetIRQ runs
// in interrupt context and must only touch atomics.
type WakePin interface {
	Mode() types.PinMode
	SetMode(types.PinMode)
	Level() bool
	SetLevel(bool)
	SetIRQ(edge types.Edge, handler func()) error
	ClearIRQ() error
}

// IntervalTimer is the watchdog-style repeating timer. Arm schedules a wake
// after one of the discrete hardware intervals; expiry simply ends the halt,
// it raises no flag.
type IntervalTimer interface {
	Arm(ms uint16)
	Disarm()
}

// AnalogState is the opaque snapshot of the analog subsystem and comparator
// registers. Implementations pack whatever they disable; the controller only
// hands it back.
type AnalogState uint16

// Controls is the CPU-level capability set.
//
// Halt must atomically re-enable interrupts and suspend until any armed
// interrupt fires; this closes the race between deciding to sleep and an
// edge arriving. It returns with interrupts enabled.
type Controls interface {
	SaveAnalogState() AnalogState
	RestoreAnalogState(AnalogState)
	DisableInterrupts()
	EnableInterrupts()
	Halt()
}

// Hardware timer steps, longest first for greedy decomposition.
var intervalsMS = [...]uint16{8000, 4000, 2000, 1000, 500, 250, 125, 64, 32, 16}

// MaxIntervalMS bounds the overshoot of a bounded sleep.
const MaxIntervalMS = 8000

// nextInterval picks the largest step not exceeding the remaining time.
// Anything below the smallest step still sleeps one minimum step.
func nextInterval(remainingMS uint32) uint16 {
	for _, iv := range intervalsMS {
		if uint32(iv) <= remainingMS {
			return iv
		}
	}
	return intervalsMS[len(intervalsMS)-1]
}

// Config wires the controller to its hardware and policy.
type Config struct {
	Button WakePin
	IO     WakePin
	Timer  IntervalTimer
	CPU    Controls

	// Permissions is consulted on every entry: whether sleeping is allowed
	// at all, and whether the IO pin may be armed as a wake source.
	Permissions func() (sleepAllowed, ioWakeAllowed bool)

	// DebugActive refuses all sleep; an attached debugger needs the clocks.
	DebugActive bool

	// Wake edges. Zero values arm on the falling edge (buttons and open
	// collector IO idle high).
	ButtonEdge types.Edge
	IOEdge     types.Edge
}

// Controller owns the sleep state machine. Exactly one per board; all
// methods except the registered ISR handlers run in normal context.
type Controller struct {
	cfg Config

	state State

	buttonFired atomic.Bool
	ioFired     atomic.Bool

	onButton func()
	onIO     func()
}

func NewController(cfg Config) *Controller {
	if cfg.ButtonEdge == types.EdgeNone {
		cfg.ButtonEdge = types.EdgeFalling
	}
	if cfg.IOEdge == types.EdgeNone {
		cfg.IOEdge = types.EdgeFalling
	}
	return &Controller{cfg: cfg}
}

// State reports the current phase.
func (c *Controller) State() State { return c.state }

// OnButtonWake registers the single button callback slot. Overwritable; nil
// clears. Invoked after wake, in normal context, at most once per cycle.
func (c *Controller) OnButtonWake(fn func()) { c.onButton = fn }

// OnIOWake registers the single IO callback slot.
func (c *Controller) OnIOWake(fn func()) { c.onIO = fn }

// PollButtonWake reports and clears the button fired flag. After a bounded
// sleep, both flags clear means the timer caused the wake.
func (c *Controller) PollButtonWake() bool { return c.buttonFired.Swap(false) }

// PollIOWake reports and clears the IO fired flag.
func (c *Controller) PollIOWake() bool { return c.ioFired.Swap(false) }

func (c *Controller) buttonISR() { c.buttonFired.Store(true) }
func (c *Controller) ioISR()     { c.ioFired.Store(true) }

// Sleep halts the CPU for durationMS milliseconds, decomposed into hardware
// timer steps, waking early if an armed edge source fires. durationMS zero
// sleeps unbounded: no timer, edge wake only.
//
// Refused silently when sleeping is disallowed or a debugger is attached;
// "did not sleep" is observable as State never leaving Awake and both poll
// flags staying clear. No errors: every outcome is an inspectable flag.
func (c *Controller) Sleep(durationMS uint32, src Source) {
	if c.cfg.DebugActive {
		return
	}
	sleepAllowed, ioWakeAllowed := true, true
	if c.cfg.Permissions != nil {
		sleepAllowed, ioWakeAllowed = c.cfg.Permissions()
	}
	if !sleepAllowed {
		return
	}
	if !ioWakeAllowed {
		src &^= WakeIO
	}
	if durationMS == 0 && src == WakeNone {
		// Nothing could ever wake us.
		return
	}

	cpu := c.cfg.CPU

	// Arm with interrupts off: the flags must be reset after the handlers
	// are attached but before anything can fire.
	c.state = Arming
	cpu.DisableInterrupts()
	analog := cpu.SaveAnalogState()

	armedButton := false
	if src&WakeButton != 0 && c.cfg.Button != nil {
		armedButton = c.cfg.Button.SetIRQ(c.cfg.ButtonEdge, c.buttonISR) == nil
	}

	armedIO := false
	var ioMode types.PinMode
	var ioLevel bool
	if src&WakeIO != 0 && c.cfg.IO != nil {
		ioMode = c.cfg.IO.Mode()
		ioLevel = c.cfg.IO.Level()
		c.cfg.IO.SetMode(types.PinInputPullup)
		armedIO = c.cfg.IO.SetIRQ(c.cfg.IOEdge, c.ioISR) == nil
		if !armedIO {
			c.cfg.IO.SetMode(ioMode)
			if ioMode == types.PinOutput {
				c.cfg.IO.SetLevel(ioLevel)
			}
		}
	}

	c.buttonFired.Store(false)
	c.ioFired.Store(false)

	// Halt atomically enables interrupts and suspends, so no wake can slip
	// between the flag reset above and the suspension.
	c.state = Asleep
	if durationMS == 0 {
		cpu.Halt()
		cpu.DisableInterrupts()
	} else {
		remaining := durationMS
		for remaining > 0 {
			iv := nextInterval(remaining)
			c.cfg.Timer.Arm(iv)
			cpu.Halt()
			cpu.DisableInterrupts()
			if c.buttonFired.Load() || c.ioFired.Load() {
				break
			}
			if uint32(iv) >= remaining {
				remaining = 0
			} else {
				remaining -= uint32(iv)
			}
		}
		c.cfg.Timer.Disarm()
	}

	// Restore everything touched while arming, then leave the critical
	// section before any user code runs.
	c.state = Waking
	if armedButton {
		_ = c.cfg.Button.ClearIRQ()
	}
	if armedIO {
		_ = c.cfg.IO.ClearIRQ()
		c.cfg.IO.SetMode(ioMode)
		if ioMode == types.PinOutput {
			c.cfg.IO.SetLevel(ioLevel)
		}
	}
	cpu.RestoreAnalogState(analog)
	cpu.EnableInterrupts()

	// Callbacks in arming order, at most once each. Flags stay set for the
	// poll accessors.
	if c.buttonFired.Load() && c.onButton != nil {
		c.onButton()
	}
	if c.ioFired.Load() && c.onIO != nil {
		c.onIO()
	}
	c.state = Awake
}
