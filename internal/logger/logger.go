// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logger configures the logrus logger shared by every process.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/relabs-tech/qibla_compass/internal/config"
)

// New builds a logger from the logging section of cfg, tagged with the
// process name. When cfg.LogFile is set output goes to a rotating file
// instead of stdout.
func New(cfg *config.Config, process string) (*logrus.Entry, error) {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
	}
	return newLogger(out, cfg.LogLevel, cfg.LogFormat, process)
}

func newLogger(out io.Writer, level, format, process string) (*logrus.Entry, error) {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	return l.WithField("process", process), nil
}
