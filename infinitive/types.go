package infinitive

// Response shapes of the infinitive daemon REST API. Zone config is decoded
// into a climate.RawStatus instead so that absent fields stay absent.

type AirHandler struct {
	BlowerRPM  uint16 `json:"blowerRPM"`
	AirFlowCFM uint16 `json:"airFlowCFM"`
	ElecHeat   bool   `json:"elecHeat"`
}

type HeatPump struct {
	CoilTemp    float32 `json:"coilTemp"`
	OutsideTemp float32 `json:"outsideTemp"`
	Stage       uint8   `json:"stage"`
}

// zoneUpdate is the body of PUT /api/zone/N/config. The daemon ignores zero
// setpoints, empty strings and a nil hold.
type zoneUpdate struct {
	FanMode      string `json:"fanMode,omitempty"`
	Hold         *bool  `json:"hold,omitempty"`
	HeatSetpoint uint8  `json:"heatSetpoint,omitempty"`
	CoolSetpoint uint8  `json:"coolSetpoint,omitempty"`
	Mode         string `json:"mode,omitempty"`
}
