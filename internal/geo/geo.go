// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geo holds the great-circle math used by the compass: distance,
// initial bearing and the circular angle helpers everything else builds on.
//
// All functions are total over finite input. NaN or Inf inputs come back as
// NaN; validating coordinates and sensor values is the caller's job.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// Point is a geographic position in decimal degrees.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Validate reports whether p lies inside the usual lat/lon ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// DistanceKm returns the haversine distance between a and b in kilometres.
// The value is not rounded.
func DistanceKm(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	deltaLat := toRadians(b.Latitude - a.Latitude)
	deltaLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// InitialBearing returns the great-circle initial bearing from one point to
// another, clockwise from true north, in [0, 360).
//
// For from == to the direction is undefined; the formula yields atan2(0, 0)
// which Go defines as 0.
func InitialBearing(from, to Point) float64 {
	lat1 := toRadians(from.Latitude)
	lat2 := toRadians(to.Latitude)
	deltaLon := toRadians(to.Longitude - from.Longitude)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)

	bearing := toDegrees(math.Atan2(y, x))
	if bearing < 0 {
		bearing += 360
	}
	// atan2 can return exactly -0 or a value that rounds to 360 after the add.
	return NormalizeAngle(bearing)
}

// NormalizeAngle reduces deg into [0, 360).
func NormalizeAngle(deg float64) float64 {
	// math.Mod keeps the sign of the dividend.
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// -1e-20 + 360 rounds to 360.
	if r >= 360 {
		r -= 360
	}
	return r
}

// ShortestAngleDiff returns a-b folded into (-180, 180], i.e. the signed
// rotation that takes b onto a the short way round.
// ShortestAngleDiff(350, 10) is -20, not 340.
func ShortestAngleDiff(a, b float64) float64 {
	diff := math.Mod(a-b, 360)
	for diff > 180 {
		diff -= 360
	}
	for diff <= -180 {
		diff += 360
	}
	return diff
}

// CompassPoint converts a bearing to an 8-point compass label.
func CompassPoint(bearing float64) string {
	if math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return ""
	}
	directions := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	index := int((NormalizeAngle(bearing)+22.5)/45.0) % 8
	return directions[index]
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
