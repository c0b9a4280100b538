// Package mqtt exposes the climate entity over MQTT: retained state topics,
// a Home Assistant discovery document and command topics.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"infinitive-climate/climate"
)

const (
	FieldCurrentTemperature = "current_temperature"
	FieldCurrentHumidity    = "current_humidity"
	FieldHVACMode           = "hvac_mode"
	FieldHVACAction         = "hvac_action"
	FieldFanMode            = "fan_mode"
	FieldPresetMode         = "preset_mode"
	FieldTemperature        = "temperature"
	FieldTargetTempHigh     = "target_temp_high"
	FieldTargetTempLow      = "target_temp_low"
)

const commandTimeout = 10 * time.Second

// Entity is the part of the climate entity the bridge drives.
type Entity interface {
	Name() string
	UniqueID() string
	TemperatureUnit() climate.TemperatureUnit
	State() (climate.State, bool)
	SetTemperature(ctx context.Context, req climate.TemperatureRequest) error
	SetFanMode(ctx context.Context, fan climate.FanMode) error
	SetHVACMode(ctx context.Context, mode climate.HVACMode) error
	SetPresetMode(ctx context.Context, preset string) error
}

// Client is the subset of paho.Client used by the bridge.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

type Bridge struct {
	client   Client
	topic    string
	entity   Entity
	name     string
	uniqueID string
	unit     climate.TemperatureUnit

	afterCommand func(ctx context.Context)
}

func NewBridge(client Client, topic string, entity Entity) *Bridge {
	return &Bridge{
		client:   client,
		topic:    strings.TrimSuffix(topic, "/"),
		entity:   entity,
		name:     entity.Name(),
		uniqueID: entity.UniqueID(),
		unit:     entity.TemperatureUnit(),
	}
}

// AfterCommand sets fn to run after every command the entity accepts,
// typically a refresh that republishes state.
func (b *Bridge) AfterCommand(fn func(ctx context.Context)) *Bridge {
	b.afterCommand = fn
	return b
}

// Connect dials the broker and returns the connected paho client.
func Connect(url string, password string, clientID string) (paho.Client, error) {
	co := paho.NewClientOptions()
	co.AddBroker(url)
	co.SetPassword(password)
	co.SetClientID(clientID)
	co.SetAutoReconnect(true)

	cl := paho.NewClient(co)
	t := cl.Connect()
	t.Wait()
	if t.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", t.Error())
	}
	log.Info("MQTT: connected to MQTT broker")
	return cl, nil
}

// Start publishes the discovery document and subscribes to command topics.
func (b *Bridge) Start() error {
	doc, err := json.Marshal(b.discovery())
	if err != nil {
		return fmt.Errorf("failed to marshal discovery document: %w", err)
	}
	t := b.client.Publish(b.discoveryTopic(), 0, true, doc)
	t.Wait()
	if t.Error() != nil {
		log.Error("MQTT: failed to publish discovery document: ", t.Error())
	}

	sub := b.topic + "/+/set"
	t = b.client.Subscribe(sub, 0, b.messageHandler)
	t.Wait()
	if t.Error() != nil {
		return fmt.Errorf("failed to subscribe for %s: %w", sub, t.Error())
	}
	log.Infof("MQTT: subscribe succeeded for %s", sub)
	return nil
}

// Publish sends a retained value; it satisfies events.Publisher.
func (b *Bridge) Publish(topic string, value string) {
	_ = b.client.Publish(topic, 0, true, value)
}

func (b *Bridge) stateTopic(field string) string {
	return b.topic + "/" + field
}

func (b *Bridge) commandTopic(field string) string {
	return b.topic + "/" + field + "/set"
}

// handle messages
// topics: <topic>/FIELD/set
func (b *Bridge) messageHandler(_ paho.Client, msg paho.Message) {
	log.Infof("MQTT: Received message: %s from topic: %s", msg.Payload(), msg.Topic())

	rest := strings.TrimPrefix(msg.Topic(), b.topic+"/")
	ts := strings.Split(rest, "/")
	if rest == msg.Topic() || len(ts) != 2 || ts[1] != "set" {
		log.Errorf("mqtt received unexpected topic '%s'", msg.Topic())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.handleCommand(ctx, ts[0], strings.TrimSpace(string(msg.Payload()))); err != nil {
		log.Errorf("mqtt command %s failed: %s", ts[0], err)
		return
	}
	if b.afterCommand != nil {
		b.afterCommand(ctx)
	}
}

func (b *Bridge) handleCommand(ctx context.Context, field string, payload string) error {
	switch field {
	case FieldFanMode:
		return b.entity.SetFanMode(ctx, climate.FanMode(payload))
	case FieldHVACMode:
		return b.entity.SetHVACMode(ctx, climate.HVACMode(payload))
	case FieldPresetMode:
		return b.entity.SetPresetMode(ctx, payload)
	case FieldTemperature, FieldTargetTempHigh, FieldTargetTempLow:
		v, err := strconv.ParseFloat(payload, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bad temperature %q", payload)
		}
		return b.entity.SetTemperature(ctx, b.temperatureRequest(field, v))
	default:
		return fmt.Errorf("unknown field %q", field)
	}
}

// temperatureRequest completes a single high or low setpoint with the other
// one from the held state, since auto mode needs both.
func (b *Bridge) temperatureRequest(field string, v float64) climate.TemperatureRequest {
	var req climate.TemperatureRequest
	s, _ := b.entity.State()
	switch field {
	case FieldTargetTempHigh:
		req.High = &v
		req.Low = s.TargetTempLow
	case FieldTargetTempLow:
		req.Low = &v
		req.High = s.TargetTempHigh
	default:
		req.Temperature = &v
	}
	return req
}

// StateValues flattens a state into the values published on the state
// topics, keyed by topic. Absent values are published as empty strings.
func (b *Bridge) StateValues(s climate.State) map[string]string {
	v := map[string]string{
		b.stateTopic(FieldCurrentTemperature): formatFloat(&s.CurrentTemp),
		b.stateTopic(FieldCurrentHumidity):    formatFloat(&s.CurrentHumidity),
		b.stateTopic(FieldHVACMode):           string(s.HVACMode),
		b.stateTopic(FieldHVACAction):         string(s.HVACAction),
		b.stateTopic(FieldFanMode):            string(s.FanMode),
		b.stateTopic(FieldPresetMode):         string(s.PresetMode),
		b.stateTopic(FieldTemperature):        formatFloat(s.TargetTemp),
		b.stateTopic(FieldTargetTempHigh):     formatFloat(s.TargetTempHigh),
		b.stateTopic(FieldTargetTempLow):      formatFloat(s.TargetTempLow),
		b.stateTopic("stage"):                 strconv.Itoa(s.Stage),
		b.stateTopic("blower_rpm"):            formatFloat(s.BlowerRPM),
		b.stateTopic("airflow_cfm"):           formatFloat(s.AirflowCFM),
		b.stateTopic("outdoor_temp"):          formatFloat(s.OutdoorTemp),
		b.stateTopic("target_humidity"):       formatFloat(s.TargetHumidity),
		b.stateTopic("override_duration"):     formatFloat(s.OverrideDurationMins),
	}
	if s.AuxHeat != nil {
		v[b.stateTopic("aux_heat")] = strconv.FormatBool(*s.AuxHeat)
	}
	return v
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
