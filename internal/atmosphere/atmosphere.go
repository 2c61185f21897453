// Package atmosphere implements the International Standard Atmosphere for the
// troposphere and the isothermal lower stratosphere.
package atmosphere

import "math"

const (
	SeaLevelTemperature = 288.15   // K
	SeaLevelPressure    = 101325.0 // Pa
	SeaLevelDensity     = 1.225    // kg/m^3
	LapseRate           = 0.0065   // K/m
	GasConstant         = 287.05   // J/(kg K)
	Gamma               = 1.4
	Gravity             = 9.80665
	TropopauseAltitude  = 11000.0 // m
)

var (
	tropopauseTemperature = SeaLevelTemperature - LapseRate*TropopauseAltitude
	tropopausePressure    = SeaLevelPressure * math.Pow(tropopauseTemperature/SeaLevelTemperature, Gravity/(LapseRate*GasConstant))
)

// State is the air at one altitude.
type State struct {
	Density      float64 // rho, kg/m^3
	Temperature  float64 // T, K
	Pressure     float64 // P, Pa
	SpeedOfSound float64 // a, m/s
}

// At returns the atmosphere at altitude metres. Negative altitudes clamp to sea level.
func At(altitude float64) State {
	h := math.Max(altitude, 0)

	var t, p float64
	if h <= TropopauseAltitude {
		t = SeaLevelTemperature - LapseRate*h
		p = SeaLevelPressure * math.Pow(t/SeaLevelTemperature, Gravity/(LapseRate*GasConstant))
	} else {
		t = tropopauseTemperature
		p = tropopausePressure * math.Exp(-Gravity*(h-TropopauseAltitude)/(GasConstant*t))
	}

	return State{
		Density:      p / (GasConstant * t),
		Temperature:  t,
		Pressure:     p,
		SpeedOfSound: math.Sqrt(Gamma * GasConstant * t),
	}
}

// DynamicPressure returns q = 1/2 rho v^2.
func (s State) DynamicPressure(speed float64) float64 {
	return 0.5 * s.Density * speed * speed
}

// Mach returns speed as a fraction of the local speed of sound.
func (s State) Mach(speed float64) float64 {
	if s.SpeedOfSound <= 0 {
		return 0
	}
	return speed / s.SpeedOfSound
}
