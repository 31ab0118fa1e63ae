// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mag carries raw magnetometer readings between producers and the
// compass service.
package mag

// Sample is a single 3-axis magnetometer reading as it travels over MQTT.
// Units are whatever the sensor reports; only the relative sign and size of
// X and Y matter for the heading.
type Sample struct {
	Source string  `json:"source,omitempty"` // device or producer name
	X      float64 `json:"mx"`
	Y      float64 `json:"my"`
	Z      float64 `json:"mz"`
	Time   string  `json:"time,omitempty"` // RFC3339
}

// Source is anything that can provide magnetometer samples over time.
type Source interface {
	Next() (Sample, error)
}
