package mapper

import "math"

// TargetFrameRate is the tick rate movement is normalized to. A delta shaped
// with dt = 1/TargetFrameRate is the nominal per-frame displacement.
const TargetFrameRate = 60

// Accelerate applies the three-band response curve: fine control below 0.3,
// a middle band up to 0.6 and |v|^exponent above that. The sign is kept.
func Accelerate(v, exponent float64) float64 {
	a := math.Abs(v)
	switch {
	case a < 0.3:
		return v * 0.4
	case a < 0.6:
		return v * 0.7
	}
	return math.Copysign(math.Pow(a, exponent), v)
}

// Shape maps an analog sample to a movement delta for a tick that lasted dt
// seconds. Samples inside the deadzone map to exactly zero.
func Shape(raw, deadzone, accelExponent, sensitivity, dt float64) float64 {
	if math.IsNaN(raw) || math.Abs(raw) <= deadzone {
		return 0
	}
	return Accelerate(raw, accelExponent) * sensitivity * dt * TargetFrameRate
}
