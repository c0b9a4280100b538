package climate

import (
	"fmt"
	"math"
)

type CommandKind int

const (
	SetHigh CommandKind = iota
	SetLow
	SetFan
	SetMode
	SetHold
)

func (k CommandKind) String() string {
	switch k {
	case SetHigh:
		return "SetHigh"
	case SetLow:
		return "SetLow"
	case SetFan:
		return "SetFan"
	case SetMode:
		return "SetMode"
	case SetHold:
		return "SetHold"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// DeviceCommand is one call to make on the device client. Temp is set for
// SetHigh and SetLow, Value for SetFan and SetMode, Hold for SetHold.
type DeviceCommand struct {
	Kind  CommandKind
	Temp  float64
	Value string
	Hold  bool
}

func (c DeviceCommand) String() string {
	switch c.Kind {
	case SetHigh, SetLow:
		return fmt.Sprintf("%s(%g)", c.Kind, c.Temp)
	case SetHold:
		return fmt.Sprintf("%s(%t)", c.Kind, c.Hold)
	default:
		return fmt.Sprintf("%s(%s)", c.Kind, c.Value)
	}
}

// TemperatureRequest carries the setpoints of a set-temperature call. High
// and Low are used in auto mode, Temperature in cool and heat mode.
type TemperatureRequest struct {
	High        *float64 `json:"target_temp_high"`
	Low         *float64 `json:"target_temp_low"`
	Temperature *float64 `json:"temperature"`
}

// RouteSetTemperature works out the setpoint commands for a request made
// while the device is in mode. In auto mode the low setpoint is pulled down
// to keep at least minSpread below the high one; the high setpoint always
// wins. The high command is always sent before the low one.
func RouteSetTemperature(mode HVACMode, req TemperatureRequest, minSpread float64) ([]DeviceCommand, error) {
	for _, v := range []*float64{req.High, req.Low, req.Temperature} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return nil, fmt.Errorf("%w: setpoint %v is not a finite number", ErrInvalidTemperatureRequest, *v)
		}
	}
	switch mode {
	case ModeAuto:
		if req.High == nil || req.Low == nil {
			return nil, fmt.Errorf("%w: auto mode needs both high and low setpoints", ErrInvalidTemperatureRequest)
		}
		high, low := *req.High, *req.Low
		if high-low < minSpread {
			low = high - minSpread
		}
		return []DeviceCommand{
			{Kind: SetHigh, Temp: high},
			{Kind: SetLow, Temp: low},
		}, nil
	case ModeCool:
		if req.Temperature == nil {
			return nil, fmt.Errorf("%w: cool mode needs a temperature", ErrInvalidTemperatureRequest)
		}
		return []DeviceCommand{{Kind: SetHigh, Temp: *req.Temperature}}, nil
	case ModeHeat:
		if req.Temperature == nil {
			return nil, fmt.Errorf("%w: heat mode needs a temperature", ErrInvalidTemperatureRequest)
		}
		return []DeviceCommand{{Kind: SetLow, Temp: *req.Temperature}}, nil
	default:
		return nil, fmt.Errorf("%w: no setpoints in mode %q", ErrInvalidTemperatureRequest, mode)
	}
}

func RouteSetFanMode(fan FanMode) []DeviceCommand {
	if fan == "" {
		return nil
	}
	return []DeviceCommand{{Kind: SetFan, Value: fanModeToRaw(fan)}}
}

func RouteSetHVACMode(mode HVACMode) []DeviceCommand {
	if mode == "" {
		return nil
	}
	return []DeviceCommand{{Kind: SetMode, Value: string(mode)}}
}

// RouteSetPreset ignores presets other than hold and home.
func RouteSetPreset(preset string) []DeviceCommand {
	hold, ok := holdFromPreset(preset)
	if !ok {
		return nil
	}
	return []DeviceCommand{{Kind: SetHold, Hold: hold}}
}
