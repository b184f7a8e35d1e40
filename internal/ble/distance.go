package ble

import "math"

// Calibration defaults for the log-distance path-loss model. The
// reference power is the RSSI measured at one metre from the receiver;
// the attenuation factor models environmental path loss and varies with
// humidity, walls, antenna orientation and so on.
const (
	DefaultRefPowerDbm       = -55.0
	DefaultAttenuationFactor = 3.0
)

// Estimator converts an instantaneous RSSI reading to an estimated
// distance in metres using the log-distance path-loss model:
//
//	distance = 10 ^ ((refPower - rssi) / (10 * attenuation))
//
// It is a pure function of its inputs: no clamping, no smoothing. The
// result can be well under a metre or absurdly large; callers must not
// assume a sane range.
type Estimator struct {
	RefPower    float64 // dBm measured at 1m
	Attenuation float64 // environmental attenuation factor
}

// NewEstimator returns an Estimator with the given calibration.
func NewEstimator(refPower, attenuation float64) Estimator {
	return Estimator{RefPower: refPower, Attenuation: attenuation}
}

// DefaultEstimator returns an Estimator with the stock calibration
// constants.
func DefaultEstimator() Estimator {
	return NewEstimator(DefaultRefPowerDbm, DefaultAttenuationFactor)
}

// EstimateDistance converts rssi (dBm) to metres.
func (e Estimator) EstimateDistance(rssi float64) float64 {
	return math.Pow(10, (e.RefPower-rssi)/(10*e.Attenuation))
}
