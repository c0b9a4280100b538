// Package infinitive is a client for the REST API of the infinitive daemon,
// which bridges a Carrier/Bryant Infinity HVAC bus to HTTP.
package infinitive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"infinitive-climate/climate"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	zone       int
	units      climate.TemperatureUnit
	httpClient *http.Client
}

type Option func(*Client)

// WithZone selects the thermostat zone, 1 to 8. The default is zone 1.
func WithZone(zone int) Option {
	return func(c *Client) {
		c.zone = zone
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the http://host:port URL built by New.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func New(host string, port int, units climate.TemperatureUnit, opts ...Option) *Client {
	c := &Client{
		baseURL:    "http://" + host + ":" + strconv.Itoa(port),
		zone:       1,
		units:      units,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Units() climate.TemperatureUnit {
	return c.units
}

// GetStatus reads the zone config and merges in the air handler and heat
// pump telemetry. The telemetry is best effort: if either read fails its
// fields are left out of the snapshot.
func (c *Client) GetStatus(ctx context.Context) (climate.RawStatus, error) {
	raw := climate.RawStatus{}
	if err := c.get(ctx, fmt.Sprintf("/api/zone/%d/config", c.zone), &raw); err != nil {
		return nil, err
	}

	var ah AirHandler
	if err := c.get(ctx, "/api/airhandler", &ah); err != nil {
		log.Warnf("infinitive: air handler read failed: %s", err)
	} else {
		raw["blowerRPM"] = float64(ah.BlowerRPM)
		raw["airFlowCFM"] = float64(ah.AirFlowCFM)
		raw["auxHeat"] = ah.ElecHeat
	}

	var hp HeatPump
	if err := c.get(ctx, "/api/heatpump", &hp); err != nil {
		log.Warnf("infinitive: heat pump read failed: %s", err)
	} else {
		raw["heatpump_coilTemp"] = float64(hp.CoilTemp)
		raw["heatpump_outsideTemp"] = float64(hp.OutsideTemp)
		raw["heatpump_stage"] = float64(hp.Stage)
	}

	c.statusToUnits(raw)
	return raw, nil
}

// SetTemp writes the cool or heat setpoint, given in the client's units.
func (c *Client) SetTemp(ctx context.Context, value int, which string) error {
	sp, ok := c.setpointFromUnits(value)
	if !ok {
		return fmt.Errorf("setpoint %d out of range", value)
	}
	var u zoneUpdate
	switch which {
	case "cool":
		u.CoolSetpoint = sp
	case "heat":
		u.HeatSetpoint = sp
	default:
		return fmt.Errorf("unknown setpoint %q, want cool or heat", which)
	}
	return c.putZone(ctx, u)
}

func (c *Client) SetFanMode(ctx context.Context, value string) error {
	return c.putZone(ctx, zoneUpdate{FanMode: value})
}

func (c *Client) SetMode(ctx context.Context, value string) error {
	return c.putZone(ctx, zoneUpdate{Mode: value})
}

func (c *Client) SetHold(ctx context.Context, value bool) error {
	return c.putZone(ctx, zoneUpdate{Hold: &value})
}

func (c *Client) putZone(ctx context.Context, u zoneUpdate) error {
	body, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal zone update: %w", err)
	}
	path := fmt.Sprintf("/api/zone/%d/config", c.zone)
	log.Debugf("infinitive: PUT %s %s", path, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute PUT %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("PUT %s failed with status code: %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s failed with status code: %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
