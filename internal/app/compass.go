// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mmcloughlin/geohash"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/gps"
	"github.com/relabs-tech/qibla_compass/internal/logger"
	"github.com/relabs-tech/qibla_compass/internal/mag"
	"github.com/relabs-tech/qibla_compass/internal/qibla"
)

// compassService turns GPS fixes and magnetometer samples from MQTT into
// qibla results and orientations.
type compassService struct {
	engine *qibla.Engine
	pub    publisher
	log    logrus.FieldLogger

	topicQibla       string
	topicOrientation string
	precision        uint

	mu   sync.Mutex
	cell string // geohash of the last accepted fix

	notReady atomic.Uint64 // samples dropped while waiting for a fix
}

func newCompassService(cfg *config.Config, pub publisher, log logrus.FieldLogger) *compassService {
	return &compassService{
		engine: qibla.NewEngine(
			qibla.WithResetOnLocationChange(cfg.ResetSmootherOnLocationChange),
			qibla.WithLogger(log),
		),
		pub:              pub,
		log:              log,
		topicQibla:       cfg.TopicQibla,
		topicOrientation: cfg.TopicOrientation,
		precision:        cfg.LocationGeohashPrecision,
	}
}

// handleFix accepts valid fixes. A fix inside the same geohash cell as the
// previous one is GPS jitter and does not recompute the result.
func (s *compassService) handleFix(_ mqtt.Client, msg mqtt.Message) {
	var fix gps.Fix
	if err := json.Unmarshal(msg.Payload(), &fix); err != nil {
		s.log.WithError(err).Warn("dropping malformed GPS payload")
		return
	}
	if !fix.Valid() {
		s.log.WithField("validity", fix.Validity).Debug("ignoring GPS fix without lock")
		return
	}
	p := fix.Point()
	if err := p.Validate(); err != nil {
		s.log.WithError(err).Warn("dropping out-of-range GPS fix")
		return
	}

	cell := geohash.EncodeWithPrecision(p.Latitude, p.Longitude, s.precision)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cell == s.cell {
		return
	}

	r := s.engine.SetLocation(p)
	if err := publishJSON(s.pub, s.topicQibla, true, r); err != nil {
		s.log.WithError(err).Error("failed to publish qibla result")
		return
	}
	s.cell = cell
}

func (s *compassService) handleSample(_ mqtt.Client, msg mqtt.Message) {
	var sample mag.Sample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		s.log.WithError(err).Warn("dropping malformed magnetometer payload")
		return
	}

	o, err := s.engine.ProcessSample(sample.X, sample.Y, sample.Z)
	switch {
	case errors.Is(err, qibla.ErrNotReady):
		s.log.WithField("dropped", s.notReady.Add(1)).Debug("magnetometer sample before first GPS fix")
		return
	case errors.Is(err, qibla.ErrNoReading):
		s.log.Debug("magnetometer sample has no horizontal field")
		return
	case err != nil:
		s.log.WithError(err).Error("failed to process magnetometer sample")
		return
	}

	if err := publishJSON(s.pub, s.topicOrientation, false, o); err != nil {
		s.log.WithError(err).Error("failed to publish orientation")
	}
}

// RunCompass subscribes to the GPS and magnetometer topics and publishes
// the qibla result and live orientation until interrupted.
func RunCompass() error {
	cfg := config.Get()

	log, err := logger.New(cfg, "compass")
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCompass, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	svc := newCompassService(cfg, client, log)

	if err := subscribe(client, cfg.TopicGPS, svc.handleFix, log); err != nil {
		return err
	}
	if err := subscribe(client, cfg.TopicMag, svc.handleSample, log); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("compass shutting down")
	return nil
}
