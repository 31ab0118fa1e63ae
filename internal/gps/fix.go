// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

var (
	// ErrNoFix is returned for an RMC sentence whose status is void. The
	// returned Fix is still filled in.
	ErrNoFix = errors.New("gps: receiver has no fix")
	// ErrUnsupportedSentence is returned for valid NMEA that is not RMC.
	ErrUnsupportedSentence = errors.New("gps: unsupported sentence type")
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56.0000"
	Date       string  `json:"date"`        // e.g. "13/06/94"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)
}

// Valid reports whether the receiver marked the fix as usable.
func (f Fix) Valid() bool {
	return f.Validity == nmea.ValidRMC
}

// Point returns the fix position.
func (f Fix) Point() geo.Point {
	return geo.Point{Latitude: f.Latitude, Longitude: f.Longitude}
}

// ParseFix parses one NMEA line. Only RMC sentences carry a fix.
func ParseFix(line string) (Fix, error) {
	sentence, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return Fix{}, fmt.Errorf("gps: parse nmea: %w", err)
	}

	m, ok := sentence.(nmea.RMC)
	if !ok {
		return Fix{}, fmt.Errorf("%w: %s", ErrUnsupportedSentence, sentence.DataType())
	}

	fix := Fix{
		Time:       m.Time.String(),
		Date:       m.Date.String(),
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		SpeedKnots: m.Speed,
		CourseDeg:  m.Course,
		Validity:   m.Validity,
	}
	if !fix.Valid() {
		return fix, ErrNoFix
	}
	return fix, nil
}
