package climate

import "strings"

type HVACMode string

const (
	ModeAuto HVACMode = "auto"
	ModeCool HVACMode = "cool"
	ModeHeat HVACMode = "heat"
)

type FanMode string

const (
	FanAuto   FanMode = "auto"
	FanLow    FanMode = "low"
	FanMedium FanMode = "medium"
	FanHigh   FanMode = "high"
)

type Preset string

const (
	PresetHome Preset = "Home"
	PresetHold Preset = "Hold"
)

type HVACAction string

const (
	ActionIdle    HVACAction = "idle"
	ActionHeating HVACAction = "heating"
	ActionCooling HVACAction = "cooling"
)

// device fan vocabulary -> entity fan mode
var rawFanModes = map[string]FanMode{
	"auto": FanAuto,
	"low":  FanLow,
	"med":  FanMedium,
	"high": FanHigh,
}

var hvacModes = map[string]HVACMode{
	"auto": ModeAuto,
	"cool": ModeCool,
	"heat": ModeHeat,
}

func rawFanModeToFanMode(raw string) (FanMode, bool) {
	m, ok := rawFanModes[raw]
	return m, ok
}

// Unknown values pass through, the device decides what it accepts.
func fanModeToRaw(mode FanMode) string {
	for raw, m := range rawFanModes {
		if m == mode {
			return raw
		}
	}
	return string(mode)
}

func rawModeToHVACMode(raw string) (HVACMode, bool) {
	m, ok := hvacModes[raw]
	return m, ok
}

func presetFromHold(hold bool) Preset {
	if hold {
		return PresetHold
	}
	return PresetHome
}

// holdFromPreset reports the hold flag for a preset name; ok is false for
// names that are neither hold nor home.
func holdFromPreset(preset string) (hold bool, ok bool) {
	switch {
	case strings.EqualFold(preset, string(PresetHold)):
		return true, true
	case strings.EqualFold(preset, string(PresetHome)):
		return false, true
	default:
		return false, false
	}
}

func FanModes() []FanMode {
	return []FanMode{FanAuto, FanLow, FanMedium, FanHigh}
}

func HVACModes() []HVACMode {
	return []HVACMode{ModeHeat, ModeCool, ModeAuto}
}

func Presets() []Preset {
	return []Preset{PresetHome, PresetHold}
}

type TemperatureUnit string

const (
	Fahrenheit TemperatureUnit = "°F"
	Celsius    TemperatureUnit = "°C"
)

// ParseTemperatureUnit accepts the spellings found in configuration files:
// F, °F, fahrenheit, C, °C, celsius.
func ParseTemperatureUnit(s string) (TemperatureUnit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "°f", "fahrenheit":
		return Fahrenheit, true
	case "c", "°c", "celsius":
		return Celsius, true
	default:
		return "", false
	}
}
