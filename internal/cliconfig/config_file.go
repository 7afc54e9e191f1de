package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Home             string   `toml:"home"`
	Layout           string   `toml:"layout"`
	PluginDir        string   `toml:"plugin_dir"`
	Plugins          []string `toml:"plugins"`
	Snapshot         string   `toml:"snapshot"`
	LogFile          string   `toml:"log_file"`
	LogLevel         string   `toml:"log_level"`
	FPS              int      `toml:"fps"`
	Cadence          string   `toml:"cadence"`
	ShutdownTimeout  string   `toml:"shutdown_timeout"`
	MQTTBroker       string   `toml:"mqtt_broker"`
	MQTTTopic        string   `toml:"mqtt_topic"`
	MQTTClientID     string   `toml:"mqtt_client_id"`
	Simulate         *bool    `toml:"simulate"`
	WatchLayout      *bool    `toml:"watch_layout"`
	WatchPlugins     *bool    `toml:"watch_plugins"`
	SaveLayoutOnExit *bool    `toml:"save_layout_on_exit"`
	Metric           *bool    `toml:"metric"`
	MaxRPM           float64  `toml:"max_rpm"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultHome returns ~/.carconsole, or "" if the user home directory is
// not accessible.
func DefaultHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".carconsole")
	}
	return ""
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.carconsole/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h := DefaultHome(); h != "" {
		return filepath.Join(h, "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("home", fc.Home, &cfg.Home)
	s.setString("layout", fc.Layout, &cfg.LayoutPath)
	s.setString("plugin-dir", fc.PluginDir, &cfg.PluginDir)
	s.setStrings("plugin", fc.Plugins, &cfg.Plugins)
	s.setString("snapshot", fc.Snapshot, &cfg.SnapshotPath)
	s.setString("log-file", fc.LogFile, &cfg.LogPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-topic", fc.MQTTTopic, &cfg.MQTTTopic)
	s.setString("mqtt-client-id", fc.MQTTClientID, &cfg.MQTTClientID)

	if err := s.setDuration("cadence", fc.Cadence, &cfg.Cadence); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setInt("fps", fc.FPS, &cfg.FPS)
	s.setFloat("max-rpm", fc.MaxRPM, &cfg.MaxRPM)

	s.setBool("simulate", fc.Simulate, &cfg.Simulate)
	s.setBool("watch-layout", fc.WatchLayout, &cfg.WatchLayout)
	s.setBool("watch-plugins", fc.WatchPlugins, &cfg.WatchPlugins)
	s.setBool("save-layout", fc.SaveLayoutOnExit, &cfg.SaveLayoutOnExit)
	s.setBool("metric", fc.Metric, &cfg.Metric)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
