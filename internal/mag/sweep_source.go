// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mag

import (
	"math"
	"math/rand"
	"time"
)

// fieldStrength is the simulated horizontal field, in µT.
const fieldStrength = 30.0

type sweepSource struct {
	start     time.Time
	now       func() time.Time
	degPerSec float64
	noiseDeg  float64
	rnd       *rand.Rand
}

// NewSweepSource creates a simulated magnetometer for a phone being turned
// clockwise at degPerSec, with uniform heading jitter of ±noiseDeg.
func NewSweepSource(degPerSec, noiseDeg float64) Source {
	return newSweepSource(time.Now, degPerSec, noiseDeg, time.Now().UnixNano())
}

func newSweepSource(now func() time.Time, degPerSec, noiseDeg float64, seed int64) *sweepSource {
	return &sweepSource{
		start:     now(),
		now:       now,
		degPerSec: degPerSec,
		noiseDeg:  noiseDeg,
		rnd:       rand.New(rand.NewSource(seed)),
	}
}

func (s *sweepSource) Next() (Sample, error) {
	t := s.now()
	elapsed := t.Sub(s.start).Seconds()

	heading := elapsed * s.degPerSec
	if s.noiseDeg > 0 {
		heading += (s.rnd.Float64()*2 - 1) * s.noiseDeg
	}

	x, y := FieldFor(heading)
	return Sample{
		Source: "sweep",
		X:      x,
		Y:      y,
		Z:      -fieldStrength, // vertical component, ignored by the heading
		Time:   t.UTC().Format(time.RFC3339),
	}, nil
}

// FieldFor returns the horizontal field a device pointing at the given
// magnetic heading would measure.
func FieldFor(headingDeg float64) (x, y float64) {
	rad := headingDeg * math.Pi / 180
	return -fieldStrength * math.Sin(rad), fieldStrength * math.Cos(rad)
}
