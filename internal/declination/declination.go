// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package declination estimates magnetic declination for converting a
// magnetometer heading into a true heading.
//
// This is a regional heuristic tuned for Turkey and the eastern
// Mediterranean (roughly +5°..+6° east). It is NOT a World Magnetic Model or
// IGRF implementation and should not be trusted far outside that region.
package declination

const (
	// BaseDegrees is the estimate at ReferenceLongitude.
	BaseDegrees = 5.5
	// ReferenceLongitude anchors the linear term, degrees east.
	ReferenceLongitude = 35.0
	// DegreesPerLongitude is the change in declination per degree east.
	DegreesPerLongitude = 0.08

	MinDegrees = -5.0
	MaxDegrees = 15.0
)

// Declination returns the estimated declination in degrees (east positive)
// for the given position, clamped into [MinDegrees, MaxDegrees].
// lat is accepted for interface symmetry; the model ignores it.
func Declination(lat, lon float64) float64 {
	d := BaseDegrees + (lon-ReferenceLongitude)*DegreesPerLongitude
	return clamp(d, MinDegrees, MaxDegrees)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
