package entity

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"infinitive-climate/climate"
)

// ErrUnavailable is returned by commands that need the current mode before
// any refresh has succeeded.
var ErrUnavailable = errors.New("no device status yet")

func (e *Entity) SetTemperature(ctx context.Context, req climate.TemperatureRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Debugf("setting target temperature, min spread %d", e.minSpread)
	if e.state == nil {
		return ErrUnavailable
	}
	cmds, err := climate.RouteSetTemperature(e.state.HVACMode, req, float64(e.minSpread))
	if err != nil {
		log.Warnf("rejected temperature request in %s mode: %s", e.state.HVACMode, err)
		return err
	}
	return e.execute(ctx, cmds)
}

func (e *Entity) SetFanMode(ctx context.Context, fan climate.FanMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Debugf("setting fan mode: %q", fan)
	return e.execute(ctx, climate.RouteSetFanMode(fan))
}

// SetHVACMode also moves the held state to the new mode so that supported
// features and later temperature requests use it before the next refresh.
func (e *Entity) SetHVACMode(ctx context.Context, mode climate.HVACMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Debugf("setting hvac mode: %q", mode)
	cmds := climate.RouteSetHVACMode(mode)
	if err := e.execute(ctx, cmds); err != nil {
		return err
	}
	if len(cmds) > 0 && e.state != nil && isKnownMode(mode) {
		s := e.state.WithMode(mode)
		e.state = &s
	}
	return nil
}

func (e *Entity) SetPresetMode(ctx context.Context, preset string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Debugf("setting preset mode: %q", preset)
	return e.execute(ctx, climate.RouteSetPreset(preset))
}

// execute sends commands in order and stops at the first failure.
func (e *Entity) execute(ctx context.Context, cmds []climate.DeviceCommand) error {
	for _, c := range cmds {
		log.Debugf("device command %s", c)
		var err error
		switch c.Kind {
		case climate.SetHigh:
			err = e.device.SetTemp(ctx, int(c.Temp), "cool")
		case climate.SetLow:
			err = e.device.SetTemp(ctx, int(c.Temp), "heat")
		case climate.SetFan:
			err = e.device.SetFanMode(ctx, c.Value)
		case climate.SetMode:
			err = e.device.SetMode(ctx, c.Value)
		case climate.SetHold:
			err = e.device.SetHold(ctx, c.Hold)
		default:
			err = fmt.Errorf("unknown command kind %d", int(c.Kind))
		}
		if err != nil {
			log.Errorf("device command %s failed: %s", c, err)
			return fmt.Errorf("%s: %w", c, err)
		}
	}
	return nil
}

func isKnownMode(mode climate.HVACMode) bool {
	for _, m := range climate.HVACModes() {
		if m == mode {
			return true
		}
	}
	return false
}
