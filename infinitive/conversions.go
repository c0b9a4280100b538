package infinitive

import (
	"math"

	"infinitive-climate/climate"
)

// status fields reported in the daemon's native Fahrenheit
var temperatureKeys = []string{
	"coolSetpoint",
	"heatSetpoint",
	"currentTemp",
	"outdoorTemp",
	"heatpump_coilTemp",
	"heatpump_outsideTemp",
}

func fahrenheitToCelsius(f float64) float64 {
	return math.Round((f-32)*5/9*10) / 10
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

func (c *Client) statusToUnits(raw climate.RawStatus) {
	if c.units != climate.Celsius {
		return
	}
	for _, k := range temperatureKeys {
		if v, ok := raw[k].(float64); ok {
			raw[k] = fahrenheitToCelsius(v)
		}
	}
}

// setpointFromUnits returns the Fahrenheit setpoint to write for a value in
// the client's units.
func (c *Client) setpointFromUnits(v int) (uint8, bool) {
	f := float64(v)
	if c.units == climate.Celsius {
		f = math.Round(celsiusToFahrenheit(f))
	}
	if f <= 0 || f > 255 {
		return 0, false
	}
	return uint8(f), true
}
