// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/gps"
	"github.com/relabs-tech/qibla_compass/internal/logger"
	"github.com/relabs-tech/qibla_compass/internal/qibla"
)

// consolePrinter writes one line per MQTT update.
type consolePrinter struct {
	out io.Writer
	log logrus.FieldLogger
}

func (c *consolePrinter) handleResult(_ mqtt.Client, msg mqtt.Message) {
	var r qibla.Result
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		c.log.WithError(err).Warn("result unmarshal error")
		return
	}
	fmt.Fprintf(c.out,
		"[QIBLA] lat=%.6f lon=%.6f bearing=%6.2f° (%s) distance=%dkm declination=%+.2f°\n",
		r.Location.Latitude, r.Location.Longitude, r.BearingDegrees, r.CompassPoint, r.DistanceKm, r.Declination,
	)
}

func (c *consolePrinter) handleOrientation(_ mqtt.Client, msg mqtt.Message) {
	var o qibla.Orientation
	if err := json.Unmarshal(msg.Payload(), &o); err != nil {
		c.log.WithError(err).Warn("orientation unmarshal error")
		return
	}
	fmt.Fprintf(c.out,
		"[HEAD ] magnetic=%6.2f° true=%6.2f° turn=%6.2f°\n",
		o.MagneticHeading, o.TrueHeading, o.TurnAngle,
	)
	if !o.IsCalibrated {
		fmt.Fprintln(c.out, "[HEAD ] calibration needed: move the device in a figure 8")
	}
}

func (c *consolePrinter) handleFix(_ mqtt.Client, msg mqtt.Message) {
	var f gps.Fix
	if err := json.Unmarshal(msg.Payload(), &f); err != nil {
		c.log.WithError(err).Warn("gps unmarshal error")
		return
	}
	fmt.Fprintf(c.out,
		"[GPS  ] time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s\n",
		f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity,
	)
}

// RunConsoleMQTT prints GPS fixes, qibla results and orientations as they
// arrive until interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()

	log, err := logger.New(cfg, "console")
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	p := &consolePrinter{out: os.Stdout, log: log}
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{cfg.TopicGPS, p.handleFix},
		{cfg.TopicQibla, p.handleResult},
		{cfg.TopicOrientation, p.handleOrientation},
	}
	for _, s := range subs {
		if err := subscribe(client, s.topic, s.handler, log); err != nil {
			return err
		}
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("console shutting down")
	return nil
}
