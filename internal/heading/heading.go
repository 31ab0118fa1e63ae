// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package heading turns raw magnetometer samples into a stable compass
// heading.
package heading

import (
	"math"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

// RawHeading computes the magnetic heading in [0, 360) from one
// magnetometer sample:
//
//	heading = atan2(-x, y)
//
// Units don't matter, only the relative sign and size of x and y. z is
// accepted to match the sensor stream but no tilt compensation is done.
//
// ok is false when the horizontal field is zero (x == 0 && y == 0): atan2(0, 0)
// carries no direction, so the sample should be treated as "no reading".
func RawHeading(x, y, z float64) (deg float64, ok bool) {
	if x == 0 && y == 0 {
		return 0, false
	}
	rad := math.Atan2(-x, y)
	return geo.NormalizeAngle(rad * 180.0 / math.Pi), true
}
