package cliconfig

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/carconsole/internal/adapters/ingest"
	"github.com/bft-labs/carconsole/pkg/console"
)

// Derived file names inside Home.
const (
	LayoutFile   = "layout.xml"
	PluginsDir   = "plugins"
	SnapshotFile = "snapshot.json"
	LogFile      = "carconsole.log"
)

// Config holds CLI configuration for carconsole.
type Config struct {
	Home string

	LayoutPath   string
	PluginDir    string
	Plugins      []string
	SnapshotPath string
	LogPath      string
	LogLevel     string

	FPS             int
	Cadence         time.Duration
	ShutdownTimeout time.Duration

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	Simulate     bool

	WatchLayout      bool
	WatchPlugins     bool
	SaveLayoutOnExit bool

	Metric bool
	MaxRPM float64
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	mqtt := ingest.DefaultMQTTConfig()
	return Config{
		Home:            DefaultHome(),
		LogLevel:        "info",
		FPS:             30,
		Cadence:         50 * time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
		MQTTTopic:       mqtt.Topic,
		WatchLayout:     true,
		WatchPlugins:    true,
		Metric:          true,
		MaxRPM:          8000,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Home == "" && (c.LayoutPath == "" || c.PluginDir == "" || c.SnapshotPath == "") {
		return fmt.Errorf("home is required (or layout, plugin-dir and snapshot)")
	}
	if c.LayoutPath == "" {
		c.LayoutPath = filepath.Join(c.Home, LayoutFile)
	}
	if c.PluginDir == "" {
		c.PluginDir = filepath.Join(c.Home, PluginsDir)
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = filepath.Join(c.Home, SnapshotFile)
	}
	if c.LogPath == "" && c.Home != "" {
		c.LogPath = filepath.Join(c.Home, LogFile)
	}

	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("fps must be between 1 and 240, got %d", c.FPS)
	}
	if c.Cadence <= 0 {
		return fmt.Errorf("cadence must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.MaxRPM <= 0 {
		return fmt.Errorf("max rpm must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "disabled", "off", "none":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	// Ensure no trailing slash on the topic prefix
	c.MQTTTopic = strings.TrimRight(c.MQTTTopic, "/")
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return fmt.Errorf("mqtt topic is required when a broker is set")
	}
	return nil
}

// ConsoleConfig converts the CLI configuration to the library's.
func (c *Config) ConsoleConfig() console.Config {
	return console.Config{
		LayoutPath:       c.LayoutPath,
		PluginDir:        c.PluginDir,
		Plugins:          append([]string(nil), c.Plugins...),
		FPS:              c.FPS,
		Cadence:          c.Cadence,
		SnapshotPath:     c.SnapshotPath,
		SaveLayoutOnExit: c.SaveLayoutOnExit,
		ShutdownTimeout:  c.ShutdownTimeout,
	}
}

// MQTTConfig returns the ingest configuration, or ok == false when no
// broker is configured.
func (c *Config) MQTTConfig() (cfg ingest.MQTTConfig, ok bool) {
	if c.MQTTBroker == "" {
		return cfg, false
	}
	cfg = ingest.DefaultMQTTConfig()
	cfg.Broker = c.MQTTBroker
	cfg.Topic = c.MQTTTopic
	if c.MQTTClientID != "" {
		cfg.ClientID = c.MQTTClientID
	}
	return cfg, true
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setListFromString splits a comma-separated list.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
