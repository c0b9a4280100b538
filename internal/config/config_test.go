package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinitive-climate/climate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "host: 192.168.1.20\n")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", c.Host)
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "Infinitive", c.Name)
	assert.Equal(t, climate.Fahrenheit, c.TempUnits)
	assert.Equal(t, 2, c.MinSpread)
	assert.Equal(t, 1, c.Zone)
	assert.Equal(t, 30*time.Second, c.PollInterval)
	assert.Equal(t, "infinitive/climate", c.MQTT.Topic)
	assert.Empty(t, c.MQTT.URL)
	assert.Equal(t, "192.168.1.20:8080", c.UniqueID())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
host: hvac.local
port: 8081
name: Downstairs
TempUnits: C
tempminspread: 4
zone: 2
poll_interval: 10s
mqtt:
  url: tcp://broker:1883
  topic: house/hvac
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, c.Port)
	assert.Equal(t, "Downstairs", c.Name)
	assert.Equal(t, climate.Celsius, c.TempUnits)
	assert.Equal(t, 4, c.MinSpread)
	assert.Equal(t, 2, c.Zone)
	assert.Equal(t, 10*time.Second, c.PollInterval)
	assert.Equal(t, "tcp://broker:1883", c.MQTT.URL)
	assert.Equal(t, "house/hvac", c.MQTT.Topic)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("INFINITIVE_HOST", "10.1.1.1")
	t.Setenv("INFINITIVE_MQTT_PASSWORD", "secret")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.1.1.1", c.Host)
	assert.Equal(t, "secret", c.MQTT.Password)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"missing host": "port: 8080\n",
		"bad units":    "host: h\nTempUnits: K\n",
		"bad zone":     "host: h\nzone: 9\n",
		"bad spread":   "host: h\ntempminspread: -1\n",
		"bad port":     "host: h\nport: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
