package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"infinitive-climate/climate"
)

const (
	keyHost         = "host"
	keyPort         = "port"
	keyName         = "name"
	keyTempUnits    = "TempUnits"
	keyMinSpread    = "tempminspread"
	keyZone         = "zone"
	keyPollInterval = "poll_interval"
	keyHTTPPort     = "http_port"
	keyMqttURL      = "mqtt.url"
	keyMqttPassword = "mqtt.password"
	keyMqttTopic    = "mqtt.topic"
	keyMqttClientID = "mqtt.client_id"
)

type MQTT struct {
	URL      string
	Password string
	Topic    string
	ClientID string
}

type Config struct {
	// infinitive daemon address
	Host string
	Port int

	Name      string
	TempUnits climate.TemperatureUnit
	// minimum gap between the high and low setpoints in auto mode
	MinSpread    int
	Zone         int
	PollInterval time.Duration
	// 0 disables the HTTP API
	HTTPPort int
	MQTT     MQTT
}

// UniqueID identifies the entity by the daemon it talks to.
func (c *Config) UniqueID() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, 8080)
	v.SetDefault(keyName, "Infinitive")
	v.SetDefault(keyTempUnits, "F")
	v.SetDefault(keyMinSpread, 2)
	v.SetDefault(keyZone, 1)
	v.SetDefault(keyPollInterval, 30*time.Second)
	v.SetDefault(keyHTTPPort, 8090)
	v.SetDefault(keyMqttTopic, "infinitive/climate")
	v.SetDefault(keyMqttClientID, "infinitive_climate")
}

// Load reads the config file at path, if any, then INFINITIVE_* environment
// variables, over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INFINITIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	}

	units, ok := climate.ParseTemperatureUnit(v.GetString(keyTempUnits))
	if !ok {
		return nil, fmt.Errorf("unknown temperature unit %q", v.GetString(keyTempUnits))
	}

	c := &Config{
		Host:         v.GetString(keyHost),
		Port:         v.GetInt(keyPort),
		Name:         v.GetString(keyName),
		TempUnits:    units,
		MinSpread:    v.GetInt(keyMinSpread),
		Zone:         v.GetInt(keyZone),
		PollInterval: v.GetDuration(keyPollInterval),
		HTTPPort:     v.GetInt(keyHTTPPort),
		MQTT: MQTT{
			URL:      v.GetString(keyMqttURL),
			Password: v.GetString(keyMqttPassword),
			Topic:    v.GetString(keyMqttTopic),
			ClientID: v.GetString(keyMqttClientID),
		},
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MinSpread < 0 {
		errs = append(errs, fmt.Errorf("tempminspread %d must not be negative", c.MinSpread))
	}
	if c.Zone < 1 || c.Zone > 8 {
		errs = append(errs, fmt.Errorf("zone %d out of range 1-8", c.Zone))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval %s must be positive", c.PollInterval))
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("http_port %d out of range", c.HTTPPort))
	}
	return errors.Join(errs...)
}
