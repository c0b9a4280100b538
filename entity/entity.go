// Package entity adapts an infinitive device client to the climate entity
// contract of a home automation host: it holds the latest projected state,
// answers property reads and turns commands into device calls.
package entity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"infinitive-climate/climate"
)

// Device is the outbound interface to the device client.
type Device interface {
	GetStatus(ctx context.Context) (climate.RawStatus, error)
	SetTemp(ctx context.Context, value int, which string) error
	SetFanMode(ctx context.Context, value string) error
	SetMode(ctx context.Context, value string) error
	SetHold(ctx context.Context, value bool) error
}

const (
	AttrCurrentHumidity     = "current_humidity"
	AttrTargetHumidity      = "target_humidity"
	AttrBlowerRPM           = "blower_rpm"
	AttrStage               = "stage"
	AttrOverrideDuration    = "override_duration"
	AttrAirflowCFM          = "airflow_cfm"
	AttrOutdoorTemp         = "outdoor_temp"
	AttrAuxHeat             = "aux_heat"
	AttrHeatPumpCoilTemp    = "heatpump_coil_temp"
	AttrHeatPumpOutsideTemp = "heatpump_outside_temp"
	AttrHeatPumpStage       = "heatpump_stage"
)

// Entity is safe for concurrent use; refreshes and commands are serialized.
type Entity struct {
	device    Device
	name      string
	uniqueID  string
	unit      climate.TemperatureUnit
	minSpread int

	mu    sync.Mutex
	state *climate.State
}

func New(device Device, name string, minSpread int, uniqueID string, unit climate.TemperatureUnit) *Entity {
	if name == "" {
		name = "Infinitive Thermostat"
	}
	return &Entity{
		device:    device,
		name:      name,
		uniqueID:  uniqueID,
		unit:      unit,
		minSpread: minSpread,
	}
}

// Refresh pulls a status snapshot and replaces the held state. When the
// read or the projection fails the previous state is kept and the error
// returned; the next good refresh recovers.
func (e *Entity) Refresh(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log.Debug("updating infinitive status")
	raw, err := e.device.GetStatus(ctx)
	if err != nil {
		log.Errorf("status read failed, keeping previous state: %s", err)
		return fmt.Errorf("get status: %w", err)
	}

	s, err := climate.Project(raw)
	if err != nil {
		if errors.Is(err, climate.ErrMalformedStatus) {
			log.Warnf("ignoring status update: %s", err)
		}
		return err
	}
	e.state = &s
	return nil
}

// Available reports whether at least one refresh has succeeded.
func (e *Entity) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != nil
}

// State returns a copy of the held state.
func (e *Entity) State() (climate.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return climate.State{}, false
	}
	return *e.state, true
}

func (e *Entity) Name() string {
	return e.name
}

func (e *Entity) UniqueID() string {
	return e.uniqueID
}

func (e *Entity) TemperatureUnit() climate.TemperatureUnit {
	return e.unit
}

func (e *Entity) MinSpread() int {
	return e.minSpread
}

func (e *Entity) CurrentTemperature() *float64 {
	s, ok := e.State()
	if !ok {
		return nil
	}
	return &s.CurrentTemp
}

func (e *Entity) TargetTemperature() *float64 {
	s, _ := e.State()
	return s.TargetTemp
}

// TargetTemperatureHigh is the cool setpoint.
func (e *Entity) TargetTemperatureHigh() *float64 {
	s, _ := e.State()
	return s.TargetTempHigh
}

// TargetTemperatureLow is the heat setpoint.
func (e *Entity) TargetTemperatureLow() *float64 {
	s, _ := e.State()
	return s.TargetTempLow
}

func (e *Entity) FanMode() climate.FanMode {
	s, _ := e.State()
	return s.FanMode
}

func (e *Entity) FanModes() []climate.FanMode {
	return climate.FanModes()
}

func (e *Entity) PresetMode() climate.Preset {
	s, _ := e.State()
	return s.PresetMode
}

func (e *Entity) PresetModes() []climate.Preset {
	return climate.Presets()
}

func (e *Entity) HVACMode() climate.HVACMode {
	s, _ := e.State()
	return s.HVACMode
}

func (e *Entity) HVACModes() []climate.HVACMode {
	return climate.HVACModes()
}

func (e *Entity) HVACAction() climate.HVACAction {
	s, _ := e.State()
	return s.HVACAction
}

func (e *Entity) SupportedFeatures() climate.Feature {
	return climate.SupportedFeatures(e.HVACMode())
}

// Attributes is the extended attribute map. Telemetry the device did not
// report is nil.
func (e *Entity) Attributes() map[string]interface{} {
	s, ok := e.State()
	if !ok {
		return map[string]interface{}{}
	}
	return attributes(s)
}

func attributes(s climate.State) map[string]interface{} {
	return map[string]interface{}{
		AttrCurrentHumidity:     s.CurrentHumidity,
		AttrTargetHumidity:      s.TargetHumidity,
		AttrBlowerRPM:           s.BlowerRPM,
		AttrStage:               s.Stage,
		AttrOverrideDuration:    s.OverrideDurationMins,
		AttrAirflowCFM:          s.AirflowCFM,
		AttrOutdoorTemp:         s.OutdoorTemp,
		AttrAuxHeat:             s.AuxHeat,
		AttrHeatPumpCoilTemp:    s.HeatPumpCoilTemp,
		AttrHeatPumpOutsideTemp: s.HeatPumpOutsideTemp,
		AttrHeatPumpStage:       s.HeatPumpStage,
	}
}

// Snapshot is everything a host reads from the entity in one value.
type Snapshot struct {
	Name              string                  `json:"name"`
	UniqueID          string                  `json:"uniqueId"`
	Available         bool                    `json:"available"`
	TemperatureUnit   climate.TemperatureUnit `json:"temperatureUnit"`
	SupportedFeatures climate.Feature         `json:"supportedFeatures"`
	FanModes          []climate.FanMode       `json:"fanModes"`
	HVACModes         []climate.HVACMode      `json:"hvacModes"`
	PresetModes       []climate.Preset        `json:"presetModes"`
	State             *climate.State          `json:"state,omitempty"`
	Attributes        map[string]interface{}  `json:"attributes"`
}

func (e *Entity) Snapshot() Snapshot {
	snap := Snapshot{
		Name:            e.name,
		UniqueID:        e.uniqueID,
		TemperatureUnit: e.unit,
		FanModes:        climate.FanModes(),
		HVACModes:       climate.HVACModes(),
		PresetModes:     climate.Presets(),
		Attributes:      map[string]interface{}{},
	}
	if s, ok := e.State(); ok {
		snap.Available = true
		snap.State = &s
		snap.Attributes = attributes(s)
		snap.SupportedFeatures = climate.SupportedFeatures(s.HVACMode)
	} else {
		snap.SupportedFeatures = climate.SupportedFeatures("")
	}
	return snap
}
