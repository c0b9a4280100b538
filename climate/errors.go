package climate

import "errors"

var (
	// ErrMalformedStatus is returned by Project when a status snapshot is
	// missing a required field, carries a value of the wrong type, or holds
	// a mode or fan mode outside its known vocabulary.
	ErrMalformedStatus = errors.New("malformed status")

	// ErrInvalidTemperatureRequest is returned by RouteSetTemperature when
	// the setpoints required by the current mode are absent.
	ErrInvalidTemperatureRequest = errors.New("invalid temperature request")
)
