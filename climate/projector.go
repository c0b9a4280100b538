package climate

import (
	"encoding/json"
	"fmt"
	"math"
)

// RawStatus is a status snapshot as reported by the device client, keyed by
// the device's field names. Not every key is present on every snapshot.
type RawStatus map[string]any

// State is the climate view of one status snapshot.
type State struct {
	HVACMode       HVACMode   `json:"hvacMode"`
	HVACAction     HVACAction `json:"hvacAction"`
	TargetTempHigh *float64   `json:"targetTempHigh,omitempty"`
	TargetTempLow  *float64   `json:"targetTempLow,omitempty"`
	// nil in auto mode, the host shows the high/low range instead
	TargetTemp      *float64 `json:"targetTemp,omitempty"`
	CurrentTemp     float64  `json:"currentTemp"`
	CurrentHumidity float64  `json:"currentHumidity"`
	TargetHumidity  *float64 `json:"targetHumidity,omitempty"`
	FanMode         FanMode  `json:"fanMode"`
	PresetMode      Preset   `json:"presetMode"`
	Stage           int      `json:"stage"`

	BlowerRPM            *float64 `json:"blowerRpm,omitempty"`
	OverrideDurationMins *float64 `json:"overrideDurationMins,omitempty"`
	AirflowCFM           *float64 `json:"airflowCfm,omitempty"`
	OutdoorTemp          *float64 `json:"outdoorTemp,omitempty"`
	AuxHeat              *bool    `json:"auxHeat,omitempty"`
	HeatPumpCoilTemp     *float64 `json:"heatpumpCoilTemp,omitempty"`
	HeatPumpOutsideTemp  *float64 `json:"heatpumpOutsideTemp,omitempty"`
	HeatPumpStage        *float64 `json:"heatpumpStage,omitempty"`
}

// Project translates a raw status snapshot into a State. It has no side
// effects; projecting the same snapshot twice yields equal states.
func Project(raw RawStatus) (State, error) {
	var s State
	var err error

	modeStr, err := raw.str("mode")
	if err != nil {
		return State{}, err
	}
	mode, ok := rawModeToHVACMode(modeStr)
	if !ok {
		return State{}, fmt.Errorf("%w: unknown mode %q", ErrMalformedStatus, modeStr)
	}
	s.HVACMode = mode

	if s.TargetTempHigh, err = raw.optNumber("coolSetpoint"); err != nil {
		return State{}, err
	}
	if s.TargetTempLow, err = raw.optNumber("heatSetpoint"); err != nil {
		return State{}, err
	}
	if (mode == ModeCool || mode == ModeAuto) && s.TargetTempHigh == nil {
		return State{}, fmt.Errorf("%w: coolSetpoint missing in %s mode", ErrMalformedStatus, mode)
	}
	if (mode == ModeHeat || mode == ModeAuto) && s.TargetTempLow == nil {
		return State{}, fmt.Errorf("%w: heatSetpoint missing in %s mode", ErrMalformedStatus, mode)
	}

	if s.CurrentTemp, err = raw.number("currentTemp"); err != nil {
		return State{}, err
	}
	if s.CurrentHumidity, err = raw.number("currentHumidity"); err != nil {
		return State{}, err
	}

	fanStr, err := raw.str("fanMode")
	if err != nil {
		return State{}, err
	}
	if s.FanMode, ok = rawFanModeToFanMode(fanStr); !ok {
		return State{}, fmt.Errorf("%w: unknown fan mode %q", ErrMalformedStatus, fanStr)
	}

	hold, err := raw.boolean("hold")
	if err != nil {
		return State{}, err
	}
	s.PresetMode = presetFromHold(hold)

	if s.Stage, err = raw.stage(); err != nil {
		return State{}, err
	}

	optional := []struct {
		key string
		dst **float64
	}{
		{"targetHumidity", &s.TargetHumidity},
		{"blowerRPM", &s.BlowerRPM},
		{"holdDurationMins", &s.OverrideDurationMins},
		{"airFlowCFM", &s.AirflowCFM},
		{"outdoorTemp", &s.OutdoorTemp},
		{"heatpump_coilTemp", &s.HeatPumpCoilTemp},
		{"heatpump_outsideTemp", &s.HeatPumpOutsideTemp},
		{"heatpump_stage", &s.HeatPumpStage},
	}
	for _, o := range optional {
		if *o.dst, err = raw.optNumber(o.key); err != nil {
			return State{}, err
		}
	}
	if s.AuxHeat, err = raw.optBoolean("auxHeat"); err != nil {
		return State{}, err
	}

	s.TargetTemp = targetFor(mode, s.TargetTempHigh, s.TargetTempLow)
	s.HVACAction = actionFor(mode, s.Stage)

	return s, nil
}

// WithMode returns a copy of s as it would read in the given mode, with the
// target temperature and action derived again.
func (s State) WithMode(mode HVACMode) State {
	s.HVACMode = mode
	s.TargetTemp = targetFor(mode, s.TargetTempHigh, s.TargetTempLow)
	s.HVACAction = actionFor(mode, s.Stage)
	return s
}

func targetFor(mode HVACMode, high, low *float64) *float64 {
	switch mode {
	case ModeCool:
		return high
	case ModeHeat:
		return low
	default:
		return nil
	}
}

// auto never reports an active action, even with a running stage
func actionFor(mode HVACMode, stage int) HVACAction {
	switch {
	case mode == ModeCool && stage > 0:
		return ActionCooling
	case mode == ModeHeat && stage > 0:
		return ActionHeating
	default:
		return ActionIdle
	}
}

func (raw RawStatus) str(key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s missing", ErrMalformedStatus, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrMalformedStatus, key, v)
	}
	return s, nil
}

func (raw RawStatus) number(key string) (float64, error) {
	n, err := raw.optNumber(key)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, fmt.Errorf("%w: %s missing", ErrMalformedStatus, key)
	}
	return *n, nil
}

func (raw RawStatus) optNumber(key string) (*float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want number", ErrMalformedStatus, key, v)
	}
	return &f, nil
}

func (raw RawStatus) boolean(key string) (bool, error) {
	b, err := raw.optBoolean(key)
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, fmt.Errorf("%w: %s missing", ErrMalformedStatus, key)
	}
	return *b, nil
}

func (raw RawStatus) optBoolean(key string) (*bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want bool", ErrMalformedStatus, key, v)
	}
	return &b, nil
}

// stage has no safe default: idle and active are both guesses
func (raw RawStatus) stage() (int, error) {
	f, err := raw.number("stage")
	if err != nil {
		return 0, err
	}
	if f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: stage %v is not a non-negative integer", ErrMalformedStatus, f)
	}
	return int(f), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
