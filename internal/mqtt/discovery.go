package mqtt

import (
	"infinitive-climate/climate"
)

const discoveryPrefix = "homeassistant"

// ClimateDiscovery is the Home Assistant MQTT discovery document for a
// climate entity.
type ClimateDiscovery struct {
	Name     string     `json:"name"`
	UniqueID string     `json:"unique_id"`
	Device   DeviceInfo `json:"device"`

	CurrentTemperatureTopic string `json:"current_temperature_topic"`
	CurrentHumidityTopic    string `json:"current_humidity_topic"`
	ActionTopic             string `json:"action_topic"`

	ModeStateTopic   string   `json:"mode_state_topic"`
	ModeCommandTopic string   `json:"mode_command_topic"`
	Modes            []string `json:"modes"`

	FanModeStateTopic   string   `json:"fan_mode_state_topic"`
	FanModeCommandTopic string   `json:"fan_mode_command_topic"`
	FanModes            []string `json:"fan_modes"`

	PresetModeStateTopic   string   `json:"preset_mode_state_topic"`
	PresetModeCommandTopic string   `json:"preset_mode_command_topic"`
	PresetModes            []string `json:"preset_modes"`

	TemperatureStateTopic       string `json:"temperature_state_topic"`
	TemperatureCommandTopic     string `json:"temperature_command_topic"`
	TemperatureHighStateTopic   string `json:"temperature_high_state_topic"`
	TemperatureHighCommandTopic string `json:"temperature_high_command_topic"`
	TemperatureLowStateTopic    string `json:"temperature_low_state_topic"`
	TemperatureLowCommandTopic  string `json:"temperature_low_command_topic"`
	TemperatureUnit             string `json:"temperature_unit"`

	Precision float64 `json:"precision"`
}

type DeviceInfo struct {
	Identifiers  string `json:"identifiers"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
}

func (b *Bridge) discovery() ClimateDiscovery {
	d := ClimateDiscovery{
		Name:     b.name,
		UniqueID: b.uniqueID,
		Device: DeviceInfo{
			Identifiers:  b.uniqueID,
			Name:         b.name,
			Manufacturer: "Carrier/Bryant",
			Model:        "Infinity",
		},
		CurrentTemperatureTopic:     b.stateTopic(FieldCurrentTemperature),
		CurrentHumidityTopic:        b.stateTopic(FieldCurrentHumidity),
		ActionTopic:                 b.stateTopic(FieldHVACAction),
		ModeStateTopic:              b.stateTopic(FieldHVACMode),
		ModeCommandTopic:            b.commandTopic(FieldHVACMode),
		FanModeStateTopic:           b.stateTopic(FieldFanMode),
		FanModeCommandTopic:         b.commandTopic(FieldFanMode),
		PresetModeStateTopic:        b.stateTopic(FieldPresetMode),
		PresetModeCommandTopic:      b.commandTopic(FieldPresetMode),
		TemperatureStateTopic:       b.stateTopic(FieldTemperature),
		TemperatureCommandTopic:     b.commandTopic(FieldTemperature),
		TemperatureHighStateTopic:   b.stateTopic(FieldTargetTempHigh),
		TemperatureHighCommandTopic: b.commandTopic(FieldTargetTempHigh),
		TemperatureLowStateTopic:    b.stateTopic(FieldTargetTempLow),
		TemperatureLowCommandTopic:  b.commandTopic(FieldTargetTempLow),
		TemperatureUnit:             "F",
		Precision:                   1,
	}
	if b.unit == climate.Celsius {
		d.TemperatureUnit = "C"
	}
	for _, m := range climate.HVACModes() {
		d.Modes = append(d.Modes, string(m))
	}
	for _, m := range climate.FanModes() {
		d.FanModes = append(d.FanModes, string(m))
	}
	for _, p := range climate.Presets() {
		d.PresetModes = append(d.PresetModes, string(p))
	}
	return d
}

func (b *Bridge) discoveryTopic() string {
	return discoveryPrefix + "/climate/" + sanitizeID(b.uniqueID) + "/config"
}

// sanitizeID keeps the characters Home Assistant allows in a node id.
func sanitizeID(id string) string {
	out := []byte(id)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
