// cmd/uirb-sim/main.go
//
// Host-side simulation harness: runs the full device facade against fake
// hardware. Useful for eyeballing the init sequence, the power state model
// and a scripted sleep/wake cycle without a board on the desk.
package main

import (
	"fmt"

	"uirbcore-go/eeprom"
	"uirbcore-go/errcode"
	"uirbcore-go/power"
	"uirbcore-go/sleep"
	"uirbcore-go/types"
	"uirbcore-go/uirb"
)

// ---------- Fake hardware ----------

type simPin struct {
	name  string
	mode  types.PinMode
	level bool
}

func (p *simPin) Mode() types.PinMode { return p.mode }
func (p *simPin) Level() bool         { return p.level }

func (p *simPin) SetMode(m types.PinMode) {
	p.mode = m
	fmt.Printf("  pin %-10s mode  -> %v\n", p.name, m)
}

func (p *simPin) SetLevel(l bool) {
	p.level = l
	fmt.Printf("  pin %-10s level -> %v\n", p.name, l)
}

type simWakePin struct {
	simPin
	handler func()
}

func (p *simWakePin) SetIRQ(edge types.Edge, handler func()) error {
	p.handler = handler
	fmt.Printf("  pin %-10s irq   -> %v\n", p.name, edge)
	return nil
}

func (p *simWakePin) ClearIRQ() error {
	p.handler = nil
	fmt.Printf("  pin %-10s irq   -> cleared\n", p.name)
	return nil
}

type simTimer struct{}

func (simTimer) Arm(ms uint16) { fmt.Printf("  timer armed for %d ms\n", ms) }
func (simTimer) Disarm()       { fmt.Println("  timer disarmed") }

type simCPU struct {
	halts  int
	onHalt func(n int)
}

func (c *simCPU) SaveAnalogState() sleep.AnalogState   { return 0x5A5A }
func (c *simCPU) RestoreAnalogState(sleep.AnalogState) {}
func (c *simCPU) DisableInterrupts()                   {}
func (c *simCPU) EnableInterrupts()                    {}

func (c *simCPU) Halt() {
	c.halts++
	fmt.Printf("  halt #%d\n", c.halts)
	if c.onHalt != nil {
		c.onHalt(c.halts)
	}
}

// simAnalog models a board on USB power, mid charge: supply ~4.4 V from
// bandgap code 256, PROG pin at ~550 mV against the internal reference.
type simAnalog struct {
	ref power.Reference
}

func (a *simAnalog) SampleReference(samples uint8) (uint16, bool) { return 256, true }

func (a *simAnalog) SampleControlPin(ref power.Reference, samples uint8) (uint16, power.Reference, bool) {
	return 512, power.RefInternal, true
}

func (a *simAnalog) PinMode() types.PinMode            { return types.PinInput }
func (a *simAnalog) PinLevel() bool                    { return false }
func (a *simAnalog) SelectReference(r power.Reference) { a.ref = r }
func (a *simAnalog) Reference() power.Reference        { return a.ref }

type simWatchdog struct{}

func (simWatchdog) ForceRestart() { fmt.Println("  !! watchdog forced restart") }

// ---------- Harness ----------

func main() {
	rec := eeprom.DebugRecord(5000)
	rec.Serial = 1234
	rec.Manufacture = eeprom.EncodeManufacture(4, 6)
	copy(rec.FactorySerial[:], "SIM00001")

	button := &simWakePin{simPin: simPin{name: "button"}}
	io := &simWakePin{simPin: simPin{name: "io3", mode: types.PinOutput, level: true}}
	cpu := &simCPU{}

	fmt.Println("== init ==")
	dev := uirb.New(uirb.Board{
		StatusLED: &simPin{name: "status_led"},
		IRLED:     &simPin{name: "ir_led"},
		Button:    button,
		IOWake:    io,
		Timer:     simTimer{},
		CPU:       cpu,
		Analog:    &simAnalog{},
		Store:     eeprom.NewMemStoreWith(rec),
		Watchdog:  simWatchdog{},
		DelayMS:   func(ms uint16) { fmt.Printf("  delay %d ms\n", ms) },
	})
	if code := dev.Begin(); code != errcode.OK {
		fmt.Println("init failed:", code)
		return
	}

	maj, min := dev.HardwareVersion()
	fmt.Println("\n== record ==")
	fmt.Printf("  hardware     v%d.%d\n", maj, min)
	fmt.Printf("  usb serial   %s\n", dev.USBSerialNumber())
	fmt.Printf("  manufacture  %d-%02d\n", dev.ManufactureYear(), dev.ManufactureMonth())
	fmt.Printf("  boot count   %d\n", dev.BootCount())
	fmt.Printf("  rprog        %d ohm\n", dev.RprogOhms())
	fmt.Printf("  bandgap      %d mV\n", dev.BandgapMV())
	fmt.Printf("  flags       ")
	it := types.NewFlagIter(dev.FeatureFlags(), eeprom.FeatureFlagTable[:])
	for {
		name, ok := it.Next()
		if !ok {
			break
		}
		fmt.Printf(" %s", name)
	}
	fmt.Println()

	fmt.Println("\n== power ==")
	info, ok := dev.PowerInfo(16, false)
	fmt.Printf("  update ok    %v\n", ok)
	fmt.Printf("  supply       %d mV (%.2f V)\n", info.SupplyMV.Value, power.SupplyVolts(info.SupplyMV))
	fmt.Printf("  prog pin     %d mV\n", info.PinMV.Value)
	fmt.Printf("  current      %d mA\n", info.CurrentMA.Value)
	fmt.Printf("  charger      %v\n", info.Charger)
	fmt.Printf("  battery      %v\n", info.Battery)

	fmt.Println("\n== sleep: 10 s bounded, button press during second interval ==")
	dev.OnButtonWake(func() { fmt.Println("  button wake callback") })
	cpu.onHalt = func(n int) {
		if n == 2 && button.handler != nil {
			button.handler()
		}
	}
	dev.PowerDown(10000, sleep.WakeButtonAndIO)
	fmt.Printf("  woke by button: %v\n", dev.PollButtonWake())
	fmt.Printf("  woke by io:     %v\n", dev.PollIOWake())
}
