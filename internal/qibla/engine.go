// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package qibla combines the great-circle bearing to the Kaaba with a live,
// smoothed magnetometer heading to produce the angle the user has to turn.
package qibla

import (
	"errors"
	"io"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/qibla_compass/internal/declination"
	"github.com/relabs-tech/qibla_compass/internal/geo"
	"github.com/relabs-tech/qibla_compass/internal/heading"
)

// Kaaba is the target location. The exact value is relied on by existing
// deployments; do not round it.
var Kaaba = geo.Point{Latitude: 21.4224779, Longitude: 39.8251832}

var (
	// ErrNotReady is returned by ProcessSample before any SetLocation.
	ErrNotReady = errors.New("qibla: no location fix yet")
	// ErrNoReading is returned when a sample carries no horizontal field and
	// there is no previous orientation to hold.
	ErrNoReading = errors.New("qibla: magnetometer sample has no horizontal component")
)

// Result is the per-location part of the answer. Every field is computed
// from the same Location.
type Result struct {
	Location       geo.Point `json:"location"`
	BearingDegrees float64   `json:"bearing_deg"`
	DistanceKm     int       `json:"distance_km"`
	CompassPoint   string    `json:"compass_point"`
	Declination    float64   `json:"declination_deg"`
}

// Orientation is recomputed on every magnetometer sample.
type Orientation struct {
	MagneticHeading float64 `json:"magnetic_heading"`
	TrueHeading     float64 `json:"true_heading"`
	TurnAngle       float64 `json:"turn_angle"`
	IsCalibrated    bool    `json:"is_calibrated"`
}

// Engine holds the cached result for the last location and the heading
// filter for the current compass session.
//
// Location fixes and sensor samples usually arrive on different goroutines,
// so every method takes the same lock.
type Engine struct {
	mu sync.Mutex

	ready       bool
	result      Result
	declination float64

	smoother *heading.Smoother
	last     Orientation
	haveLast bool

	resetOnLocationChange bool
	log                   logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSmoother hands an existing smoother to the engine. The engine owns it
// from then on.
func WithSmoother(s *heading.Smoother) Option {
	return func(e *Engine) {
		if s != nil {
			e.smoother = s
		}
	}
}

// WithResetOnLocationChange discards heading history whenever SetLocation
// moves the engine to a different point. Off by default, which avoids a
// visible jump on the dial when the fix is refined.
func WithResetOnLocationChange(reset bool) Option {
	return func(e *Engine) {
		e.resetOnLocationChange = reset
	}
}

// WithLogger sets the logger used for location and session events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine returns an engine waiting for its first location.
func NewEngine(opts ...Option) *Engine {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Engine{
		smoother: heading.NewSmoother(),
		log:      discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetLocation recomputes bearing, distance and declination for p and
// returns the new result.
func (e *Engine) SetLocation(p geo.Point) Result {
	bearing := geo.InitialBearing(p, Kaaba)
	r := Result{
		Location:       p,
		BearingDegrees: bearing,
		DistanceKm:     int(math.Round(geo.DistanceKm(p, Kaaba))),
		CompassPoint:   geo.CompassPoint(bearing),
		Declination:    declination.Declination(p.Latitude, p.Longitude),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	moved := e.ready && e.result.Location != p
	if moved && e.resetOnLocationChange {
		e.resetLocked()
		e.log.Debug("heading history cleared after location change")
	}

	e.result = r
	e.declination = r.Declination
	e.ready = true

	e.log.WithFields(logrus.Fields{
		"lat":         p.Latitude,
		"lon":         p.Longitude,
		"bearing":     r.BearingDegrees,
		"distance_km": r.DistanceKm,
		"declination": r.Declination,
	}).Info("qibla location updated")

	return r
}

// Result returns the cached result and whether a location has been set.
func (e *Engine) Result() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.ready
}

// ProcessSample runs one magnetometer sample through the heading pipeline.
//
// A sample with no horizontal field (x == 0 && y == 0) does not advance the
// filter; the previous magnetic heading is held and re-derived against the
// current location, or ErrNoReading is returned if there is none yet.
func (e *Engine) ProcessSample(x, y, z float64) (Orientation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return Orientation{}, ErrNotReady
	}

	raw, ok := heading.RawHeading(x, y, z)
	if !ok {
		if !e.haveLast {
			return Orientation{}, ErrNoReading
		}
		// the location may have moved since the last reading
		e.last = e.orientationLocked(e.last.MagneticHeading, e.last.IsCalibrated)
		return e.last, nil
	}

	magnetic := e.smoother.Feed(raw)
	e.last = e.orientationLocked(magnetic, e.smoother.IsCalibrated())
	e.haveLast = true
	return e.last, nil
}

// orientationLocked derives the true heading and turn angle from the
// current location.
func (e *Engine) orientationLocked(magnetic float64, calibrated bool) Orientation {
	trueHeading := geo.NormalizeAngle(magnetic + e.declination)
	return Orientation{
		MagneticHeading: magnetic,
		TrueHeading:     trueHeading,
		TurnAngle:       TurnAngle(e.result.BearingDegrees, trueHeading),
		IsCalibrated:    calibrated,
	}
}

// Reset starts a new compass session: heading history is dropped, the
// location and its result are kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.smoother.Reset()
	e.last = Orientation{}
	e.haveLast = false
}

// TurnAngle is the clockwise rotation in [0, 360) that brings trueHeading
// onto bearing.
func TurnAngle(bearing, trueHeading float64) float64 {
	return geo.NormalizeAngle(bearing - trueHeading)
}
