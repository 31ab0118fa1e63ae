// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/gps"
	"github.com/relabs-tech/qibla_compass/internal/logger"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes valid fixes as JSON to the GPS topic.
func RunGPSProducer() error {
	cfg := config.Get()

	log, err := logger.New(cfg, "gps-producer")
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesce)

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return fmt.Errorf("open GPS serial port %s: %w", cfg.GPSSerialPort, err)
	}
	defer port.Close()
	log.WithFields(logrus.Fields{
		"port": serialOpts.PortName,
		"baud": serialOpts.BaudRate,
	}).Info("GPS serial port opened")

	return streamFixes(port, client, cfg.TopicGPS, log)
}

// streamFixes reads NMEA lines from r until it fails and publishes every
// valid RMC fix, retained, on topic.
func streamFixes(r io.Reader, pub publisher, topic string, log logrus.FieldLogger) error {
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("GPS read: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		fix, err := gps.ParseFix(line)
		switch {
		case errors.Is(err, gps.ErrUnsupportedSentence):
			continue
		case errors.Is(err, gps.ErrNoFix):
			log.Debug("GPS receiver has no fix yet")
			continue
		case err != nil:
			// noisy UART or partial sentence
			log.WithError(err).Debug("NMEA parse error")
			continue
		}

		if err := publishJSON(pub, topic, true, fix); err != nil {
			log.WithError(err).Warn("GPS publish failed")
			continue
		}
		log.WithFields(logrus.Fields{"lat": fix.Latitude, "lon": fix.Longitude}).Debug("published GPS fix")
	}
}
