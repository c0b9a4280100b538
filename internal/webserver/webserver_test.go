package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"infinitive-climate/climate"
	"infinitive-climate/entity"
	"infinitive-climate/internal/events"
)

type fakeDevice struct {
	calls []string
}

func (f *fakeDevice) GetStatus(ctx context.Context) (climate.RawStatus, error) {
	return climate.RawStatus{
		"mode":            "heat",
		"coolSetpoint":    78.0,
		"heatSetpoint":    67.0,
		"currentTemp":     65.0,
		"currentHumidity": 35.0,
		"fanMode":         "auto",
		"hold":            true,
		"stage":           1.0,
	}, nil
}

func (f *fakeDevice) SetTemp(ctx context.Context, value int, which string) error {
	f.calls = append(f.calls, fmt.Sprintf("temp %s %d", which, value))
	return nil
}

func (f *fakeDevice) SetFanMode(ctx context.Context, value string) error {
	f.calls = append(f.calls, "fan "+value)
	return nil
}

func (f *fakeDevice) SetMode(ctx context.Context, value string) error {
	f.calls = append(f.calls, "mode "+value)
	return nil
}

func (f *fakeDevice) SetHold(ctx context.Context, value bool) error {
	f.calls = append(f.calls, fmt.Sprintf("hold %t", value))
	return nil
}

type fixture struct {
	server *Server
	router *gin.Engine
	device *fakeDevice
	cache  *events.Cache
	disp   *events.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	gin.SetMode(gin.TestMode)
	dev := &fakeDevice{}
	ent := entity.New(dev, "Infinitive", 2, "h:8080", climate.Fahrenheit)
	require.NoError(t, ent.Refresh(context.Background()))

	d := events.NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)
	cache := events.NewCache(d)

	s := New(ent, cache, d)
	return &fixture{server: s, router: s.Router(), device: dev, cache: cache, disp: d}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGetClimate(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/climate", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap entity.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.True(t, snap.Available)
	assert.Equal(t, climate.ModeHeat, snap.State.HVACMode)
	assert.Equal(t, climate.ActionHeating, snap.State.HVACAction)
	assert.Equal(t, climate.PresetHold, snap.State.PresetMode)
	assert.Equal(t, 67.0, *snap.State.TargetTemp)
}

func TestPutTemperature(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPut, "/api/climate/temperature", `{"temperature": 69}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"temp heat 69"}, f.device.calls)
}

func TestPutTemperatureInvalid(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPut, "/api/climate/temperature", `{"target_temp_high": 75, "target_temp_low": 70}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.device.calls)
}

func TestPutModeThenRange(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPut, "/api/climate/hvac_mode", `{"hvac_mode": "auto"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var snap entity.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.True(t, snap.SupportedFeatures.Has(climate.FeatureTargetTemperatureRange))

	w = f.do(http.MethodPut, "/api/climate/temperature", `{"target_temp_high": 72, "target_temp_low": 71}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"mode auto", "temp cool 72", "temp heat 70"}, f.device.calls)
}

func TestPutFanAndPreset(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/climate/fan_mode", `{"fan_mode": "medium"}`).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/climate/preset_mode", `{"preset_mode": "home"}`).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/climate/fan_mode", `{}`).Code)
	assert.Equal(t, []string{"fan med", "hold false"}, f.device.calls)
}

func TestCommandRunsAfterCommandHook(t *testing.T) {
	f := newFixture(t)
	var modes []climate.HVACMode
	f.server.AfterCommand(func(ctx context.Context) {
		modes = append(modes, f.server.climate.Snapshot().State.HVACMode)
	})

	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/climate/hvac_mode", `{"hvac_mode": "cool"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/climate/temperature", `{"target_temp_high": 75, "target_temp_low": 70}`).Code)
	assert.Equal(t, []climate.HVACMode{climate.ModeCool}, modes)
}

func TestPutBadBody(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPut, "/api/climate/fan_mode", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebsocketStreamsEvents(t *testing.T) {
	f := newFixture(t)
	f.cache.Update("climate", map[string]string{"hvacMode": "heat"})

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev struct {
		Source string            `json:"source"`
		Data   map[string]string `json:"data"`
	}
	require.NoError(t, websocket.JSON.Receive(ws, &ev))
	assert.Equal(t, "climate", ev.Source)
	assert.Equal(t, "heat", ev.Data["hvacMode"])

	// the listener is registered before the cached dump is written; the
	// first update may still be in flight, so skip until the new value
	f.cache.Update("climate", map[string]string{"hvacMode": "cool"})
	for ev.Data["hvacMode"] != "cool" {
		ev.Data = nil
		require.NoError(t, websocket.JSON.Receive(ws, &ev))
	}
	assert.Equal(t, "climate", ev.Source)
}
