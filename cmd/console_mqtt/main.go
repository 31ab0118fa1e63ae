// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/qibla_compass/internal/app"
	"github.com/relabs-tech/qibla_compass/internal/config"
)

func main() {
	log.Info("starting qibla console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("qibla_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
