// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heading

import "github.com/relabs-tech/qibla_compass/internal/geo"

const (
	// SmoothingFactor is the weight of each new sample. Lower is steadier
	// but lags more.
	SmoothingFactor = 0.1

	// CalibrationThreshold is the number of samples after which the smoothed
	// heading is considered trustworthy.
	CalibrationThreshold = 20

	// bootstrapSamples bounds how late the first reading may still seed the
	// filter directly instead of easing in from 0.
	bootstrapSamples = 3
)

// State is the filter state owned by a Smoother.
type State struct {
	PreviousSmoothed float64 `json:"previous_smoothed"`
	SampleCount      int     `json:"sample_count"`
}

// Smoother is an exponential low-pass filter over angles. Differences are
// taken the short way round the circle, so 359° -> 1° moves by 2°, not 358°.
//
// "Calibrated" here only means enough samples have been seen; no figure-8
// gesture or field-quality analysis is done.
//
// A Smoother is not safe for concurrent use; the owner serializes access.
type Smoother struct {
	state  State
	seeded bool
}

// NewSmoother returns a smoother in its reset state.
func NewSmoother() *Smoother {
	return &Smoother{}
}

// Reset clears the filter for a new compass session.
func (s *Smoother) Reset() {
	s.state = State{}
	s.seeded = false
}

// Feed adds one raw heading in [0, 360) and returns the smoothed heading.
func (s *Smoother) Feed(raw float64) float64 {
	seed := !s.seeded && s.state.SampleCount < bootstrapSamples
	s.state.SampleCount++

	if seed {
		s.state.PreviousSmoothed = geo.NormalizeAngle(raw)
		s.seeded = true
		return s.state.PreviousSmoothed
	}

	diff := geo.ShortestAngleDiff(raw, s.state.PreviousSmoothed)
	s.state.PreviousSmoothed = geo.NormalizeAngle(s.state.PreviousSmoothed + diff*SmoothingFactor)
	return s.state.PreviousSmoothed
}

// IsCalibrated reports whether more than CalibrationThreshold samples have
// been fed since the last reset.
func (s *Smoother) IsCalibrated() bool {
	return s.state.SampleCount > CalibrationThreshold
}

// Seeded reports whether the filter holds a heading yet.
func (s *Smoother) Seeded() bool {
	return s.seeded
}

// State returns a copy of the filter state.
func (s *Smoother) State() State {
	return s.state
}
