// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDCompass string
	MQTTClientIDGPS     string
	MQTTClientIDMag     string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string

	// Topics
	TopicMag         string
	TopicGPS         string
	TopicQibla       string
	TopicOrientation string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Magnetometer stream
	MagSampleInterval int     // milliseconds
	MagSweepDegPerSec float64 // simulated rotation speed
	MagNoiseDeg       float64 // simulated heading jitter, ± degrees

	// Compass
	LocationGeohashPrecision      uint
	ResetSmootherOnLocationChange bool

	// Web Server
	WebServerPort int

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
	LogFile   string // empty logs to stdout
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal/Get.
//   - configOnce: InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value filled in.
func Default() *Config {
	return &Config{
		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDCompass: "qibla-compass",
		MQTTClientIDGPS:     "qibla-gps-producer",
		MQTTClientIDMag:     "qibla-mag-producer",
		MQTTClientIDWeb:     "qibla-web",
		MQTTClientIDConsole: "qibla-console",

		TopicMag:         "qibla/mag",
		TopicGPS:         "qibla/gps",
		TopicQibla:       "qibla/result",
		TopicOrientation: "qibla/orientation",

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		MagSampleInterval: 50,
		MagSweepDegPerSec: 30,
		MagNoiseDeg:       2,

		LocationGeohashPrecision: 7,

		WebServerPort: 8080,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the configuration file and returns a Config struct.
// Values from the environment override the file.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of Default().
// Blank lines and # comments are ignored.
func Parse(r io.Reader) (*Config, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	for _, key := range knownKeys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	// sorted so the first bad key reported is stable
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfg := Default()
	for _, key := range keys {
		if err := cfg.setValue(key, values[key]); err != nil {
			return nil, fmt.Errorf("config key %s: %w", key, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var knownKeys = []string{
	"MQTT_BROKER",
	"MQTT_CLIENT_ID_COMPASS",
	"MQTT_CLIENT_ID_GPS",
	"MQTT_CLIENT_ID_MAG",
	"MQTT_CLIENT_ID_WEB",
	"MQTT_CLIENT_ID_CONSOLE",
	"TOPIC_MAG",
	"TOPIC_GPS",
	"TOPIC_QIBLA",
	"TOPIC_ORIENTATION",
	"GPS_SERIAL_PORT",
	"GPS_BAUD_RATE",
	"MAG_SAMPLE_INTERVAL",
	"MAG_SWEEP_DEG_PER_SEC",
	"MAG_NOISE_DEG",
	"LOCATION_GEOHASH_PRECISION",
	"RESET_SMOOTHER_ON_LOCATION_CHANGE",
	"WEB_SERVER_PORT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LOG_FILE",
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_COMPASS":
		c.MQTTClientIDCompass = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_MAG":
		c.MQTTClientIDMag = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_QIBLA":
		c.TopicQibla = value
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Magnetometer stream
	case "MAG_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MAG_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.MagSampleInterval = interval
	case "MAG_SWEEP_DEG_PER_SEC":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MAG_SWEEP_DEG_PER_SEC %q: %w", value, err)
		}
		c.MagSweepDegPerSec = v
	case "MAG_NOISE_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MAG_NOISE_DEG %q: %w", value, err)
		}
		if v < 0 {
			return fmt.Errorf("MAG_NOISE_DEG must be >= 0, got %g", v)
		}
		c.MagNoiseDeg = v

	// Compass
	case "LOCATION_GEOHASH_PRECISION":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOCATION_GEOHASH_PRECISION %q: %w", value, err)
		}
		if v < 1 || v > 12 {
			return fmt.Errorf("LOCATION_GEOHASH_PRECISION must be 1-12, got %d", v)
		}
		c.LocationGeohashPrecision = uint(v)
	case "RESET_SMOOTHER_ON_LOCATION_CHANGE":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid RESET_SMOOTHER_ON_LOCATION_CHANGE %q: %w", value, err)
		}
		c.ResetSmootherOnLocationChange = v

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = value
	case "LOG_FORMAT":
		if value != "text" && value != "json" {
			return fmt.Errorf("LOG_FORMAT must be text or json, got %q", value)
		}
		c.LogFormat = value
	case "LOG_FILE":
		c.LogFile = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicMag == "" || c.TopicGPS == "" || c.TopicQibla == "" || c.TopicOrientation == "" {
		return fmt.Errorf("TOPIC_MAG, TOPIC_GPS, TOPIC_QIBLA and TOPIC_ORIENTATION are required")
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be positive")
	}
	if c.MagSampleInterval <= 0 {
		return fmt.Errorf("MAG_SAMPLE_INTERVAL must be positive")
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
