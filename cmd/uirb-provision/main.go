// cmd/uirb-provision/main.go
//
// Factory provisioning tool. Takes board identity and calibration values
// from a YAML manifest or an interactive session, validates them through the
// same setters the firmware uses, and writes the 21-byte EEPROM image ready
// for flashing. Every provisioned board is appended to a local JSON log so
// serials are traceable.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
	scribble "github.com/nanobox-io/golang-scribble"
	"gopkg.in/yaml.v3"

	"uirbcore-go/eeprom"
)

// Manifest is the provisioning input. Zero-valued optional fields take the
// defaults below.
type Manifest struct {
	Serial        uint16 `yaml:"serial"`
	Year          uint16 `yaml:"year"`
	Month         uint8  `yaml:"month"`
	RprogOhms     uint16 `yaml:"rprog_ohms"`
	BandgapMV     uint16 `yaml:"bandgap_mv"`
	LEDBrightness uint8  `yaml:"led_brightness"`
	FactorySerial string `yaml:"factory_serial"`

	SleepAllowed     bool `yaml:"sleep_allowed"`
	IOWakeAllowed    bool `yaml:"io_wake_allowed"`
	BootCountEnabled bool `yaml:"boot_count_enabled"`
}

// provisionLog is what goes into the scribble store, one document per board.
type provisionLog struct {
	Manifest    Manifest `json:"manifest"`
	Image       string   `json:"image"`
	Provisioned string   `json:"provisioned"`
}

func main() {
	manifestPath := flag.String("manifest", "", "YAML manifest; empty runs the interactive session")
	outPath := flag.String("out", "uirb-eeprom.bin", "EEPROM image output file")
	logDir := flag.String("log-dir", "provision-log", "scribble store for provisioned boards")
	flag.Parse()

	var m Manifest
	var err error
	if *manifestPath != "" {
		m, err = loadManifest(*manifestPath)
	} else {
		m, err = promptManifest()
	}
	if err != nil {
		log.Fatalf("manifest: %v", err)
	}

	rec, err := buildRecord(m)
	if err != nil {
		log.Fatalf("validate: %v", err)
	}

	img := eeprom.Marshal(&rec)
	if err := os.WriteFile(*outPath, img[:], 0o644); err != nil {
		log.Fatalf("write image: %v", err)
	}
	fmt.Printf("wrote %d-byte image to %s\n", len(img), *outPath)

	if err := appendLog(*logDir, m, *outPath); err != nil {
		log.Fatalf("provision log: %v", err)
	}
	fmt.Printf("logged serial %04d in %s\n", m.Serial, *logDir)
}

func loadManifest(path string) (Manifest, error) {
	// Defaults for fields a manifest may omit.
	m := Manifest{
		BandgapMV:        eeprom.BandgapNominalMV,
		LEDBrightness:    128,
		SleepAllowed:     true,
		IOWakeAllowed:    true,
		BootCountEnabled: true,
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, err
	}
	return m, nil
}

// buildRecord funnels the manifest through the firmware's own setters, so
// the tool can never produce an image the firmware would reject.
func buildRecord(m Manifest) (eeprom.DeviceRecord, error) {
	mgr := eeprom.NewManager(eeprom.NewMemStoreWith(eeprom.DeviceRecord{
		Version: eeprom.ExpectedVersion,
	}))
	if err := mgr.Load(); err != nil {
		return eeprom.DeviceRecord{}, err
	}

	if !mgr.SetSerialNumber(m.Serial) {
		return eeprom.DeviceRecord{}, fmt.Errorf("serial %d outside 1..%d", m.Serial, eeprom.SerialNumberMax)
	}
	if !mgr.SetManufactureDate(m.Year, m.Month) {
		return eeprom.DeviceRecord{}, fmt.Errorf("manufacture date %d-%d outside %d..%d / 1..12",
			m.Year, m.Month, eeprom.ManufactureYearBase, eeprom.ManufactureYearMax)
	}
	if !mgr.SetRprogOhms(m.RprogOhms) {
		return eeprom.DeviceRecord{}, fmt.Errorf("rprog %d ohm must exceed %d", m.RprogOhms, eeprom.RprogMinOhms)
	}
	if !mgr.SetBandgapMV(m.BandgapMV) {
		return eeprom.DeviceRecord{}, fmt.Errorf("bandgap %d mV outside calibration range", m.BandgapMV)
	}
	if !mgr.SetFactorySerial(m.FactorySerial) {
		return eeprom.DeviceRecord{}, fmt.Errorf("factory serial %q must be exactly %d characters",
			m.FactorySerial, eeprom.FactorySerialLen)
	}
	mgr.SetLEDBrightness(m.LEDBrightness)
	mgr.SetSleepAllowed(m.SleepAllowed)
	mgr.SetIOWakeAllowed(m.IOWakeAllowed)
	mgr.SetBootCountEnabled(m.BootCountEnabled)

	return mgr.Record(), nil
}

func appendLog(dir string, m Manifest, image string) error {
	db, err := scribble.New(dir, nil)
	if err != nil {
		return err
	}
	entry := provisionLog{
		Manifest:    m,
		Image:       image,
		Provisioned: time.Now().UTC().Format(time.RFC3339),
	}
	return db.Write("boards", fmt.Sprintf("%04d", m.Serial), entry)
}

// ---------- Interactive session ----------

func promptManifest() (Manifest, error) {
	var m Manifest
	var err error

	if m.Serial, err = promptUint16("Board serial (1-9999)", 1, eeprom.SerialNumberMax); err != nil {
		return m, err
	}
	if m.Year, err = promptUint16("Manufacture year", eeprom.ManufactureYearBase, eeprom.ManufactureYearMax); err != nil {
		return m, err
	}
	month, err := promptUint16("Manufacture month (1-12)", 1, 12)
	if err != nil {
		return m, err
	}
	m.Month = uint8(month)
	if m.RprogOhms, err = promptUint16("Charge resistor (ohm)", eeprom.RprogMinOhms+1, 65535); err != nil {
		return m, err
	}
	if m.BandgapMV, err = promptUint16("Bandgap calibration (mV)", 972, 1227); err != nil {
		return m, err
	}
	brightness, err := promptUint16("Status LED brightness (0-255)", 0, 255)
	if err != nil {
		return m, err
	}
	m.LEDBrightness = uint8(brightness)

	factory := promptui.Prompt{
		Label: "Factory USB serial (8 chars)",
		Validate: func(s string) error {
			if len(s) != eeprom.FactorySerialLen {
				return errors.New("must be exactly 8 characters")
			}
			return nil
		},
	}
	if m.FactorySerial, err = factory.Run(); err != nil {
		return m, err
	}

	if m.SleepAllowed, err = promptYesNo("Allow sleep"); err != nil {
		return m, err
	}
	if m.IOWakeAllowed, err = promptYesNo("Allow IO wake"); err != nil {
		return m, err
	}
	if m.BootCountEnabled, err = promptYesNo("Enable boot counting"); err != nil {
		return m, err
	}
	return m, nil
}

func promptUint16(label string, lo, hi uint16) (uint16, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			n, err := strconv.ParseUint(s, 10, 16)
			if err != nil {
				return errors.New("not a number")
			}
			if n < uint64(lo) || n > uint64(hi) {
				return fmt.Errorf("outside %d..%d", lo, hi)
			}
			return nil
		},
	}
	s, err := p.Run()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

func promptYesNo(label string) (bool, error) {
	sel := promptui.Select{
		Label: label,
		Items: []string{"yes", "no"},
	}
	_, result, err := sel.Run()
	if err != nil {
		return false, err
	}
	return result == "yes", nil
}
