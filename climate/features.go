package climate

type Feature int

const (
	FeatureTargetTemperature Feature = 1 << iota
	FeatureTargetTemperatureRange
	FeatureFanMode
	FeaturePresetMode
)

const baseFeatures = FeatureFanMode | FeaturePresetMode

// SupportedFeatures reports what a host may adjust while the device is in
// mode: a single setpoint in cool and heat, a range otherwise.
func SupportedFeatures(mode HVACMode) Feature {
	if mode == ModeCool || mode == ModeHeat {
		return baseFeatures | FeatureTargetTemperature
	}
	return baseFeatures | FeatureTargetTemperatureRange
}

func (f Feature) Has(o Feature) bool {
	return f&o == o
}
