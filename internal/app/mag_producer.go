// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/logger"
	"github.com/relabs-tech/qibla_compass/internal/mag"
)

// RunMagProducer publishes simulated magnetometer samples at the configured
// rate until interrupted.
func RunMagProducer() error {
	cfg := config.Get()

	log, err := logger.New(cfg, "mag-producer")
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDMag, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	src := mag.NewSweepSource(cfg.MagSweepDegPerSec, cfg.MagNoiseDeg)
	interval := time.Duration(cfg.MagSampleInterval) * time.Millisecond
	log.WithFields(logrus.Fields{
		"interval":    interval,
		"deg_per_sec": cfg.MagSweepDegPerSec,
		"noise_deg":   cfg.MagNoiseDeg,
	}).Info("starting simulated magnetometer")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			publishSample(src, client, cfg.TopicMag, log)
		case <-sigCh:
			log.Info("magnetometer producer shutting down")
			return nil
		}
	}
}

func publishSample(src mag.Source, pub publisher, topic string, log logrus.FieldLogger) {
	s, err := src.Next()
	if err != nil {
		log.WithError(err).Warn("magnetometer read failed")
		return
	}
	if err := publishJSON(pub, topic, false, s); err != nil {
		log.WithError(err).Warn("magnetometer publish failed")
	}
}
