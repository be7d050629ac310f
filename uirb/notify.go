package uirb

import "uirbcore-go/types"

// Morse "L" on the status LED: five pulses, on-times first.
var lowBatteryPulseMS = [...]uint16{500, 50, 200, 200, 200, 50, 200, 50, 500}

// NotifyLowBattery plays the fixed low-battery pattern on the status LED and
// restores the pin's prior mode and level. Blocking for the whole pattern
// and non-interruptible; must not be called from interrupt context.
func (d *Device) NotifyLowBattery() {
	if !d.ready() {
		return
	}
	led := d.board.StatusLED
	delay := d.board.DelayMS
	if led == nil || delay == nil {
		return
	}

	mode := led.Mode()
	level := led.Level()
	led.SetMode(types.PinOutput)
	for i, ms := range lowBatteryPulseMS {
		led.SetLevel(i%2 == 0)
		delay(ms)
	}
	led.SetMode(mode)
	led.SetLevel(level)
}
