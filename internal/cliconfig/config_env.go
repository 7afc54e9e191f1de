package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (CARCONSOLE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("home", os.Getenv("CARCONSOLE_HOME"), &cfg.Home)
	s.setString("layout", os.Getenv("CARCONSOLE_LAYOUT"), &cfg.LayoutPath)
	s.setString("plugin-dir", os.Getenv("CARCONSOLE_PLUGIN_DIR"), &cfg.PluginDir)
	s.setListFromString("plugin", os.Getenv("CARCONSOLE_PLUGINS"), &cfg.Plugins)
	s.setString("snapshot", os.Getenv("CARCONSOLE_SNAPSHOT"), &cfg.SnapshotPath)
	s.setString("log-file", os.Getenv("CARCONSOLE_LOG_FILE"), &cfg.LogPath)
	s.setString("log-level", os.Getenv("CARCONSOLE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("mqtt-broker", os.Getenv("CARCONSOLE_MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-topic", os.Getenv("CARCONSOLE_MQTT_TOPIC"), &cfg.MQTTTopic)
	s.setString("mqtt-client-id", os.Getenv("CARCONSOLE_MQTT_CLIENT_ID"), &cfg.MQTTClientID)

	if err := s.setDuration("cadence", os.Getenv("CARCONSOLE_CADENCE"), &cfg.Cadence); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("CARCONSOLE_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setIntFromString("fps", os.Getenv("CARCONSOLE_FPS"), &cfg.FPS); err != nil {
		return err
	}
	if err := s.setFloatFromString("max-rpm", os.Getenv("CARCONSOLE_MAX_RPM"), &cfg.MaxRPM); err != nil {
		return err
	}

	s.setBoolFromString("simulate", os.Getenv("CARCONSOLE_SIMULATE"), &cfg.Simulate)
	s.setBoolFromString("watch-layout", os.Getenv("CARCONSOLE_WATCH_LAYOUT"), &cfg.WatchLayout)
	s.setBoolFromString("watch-plugins", os.Getenv("CARCONSOLE_WATCH_PLUGINS"), &cfg.WatchPlugins)
	s.setBoolFromString("save-layout", os.Getenv("CARCONSOLE_SAVE_LAYOUT"), &cfg.SaveLayoutOnExit)
	s.setBoolFromString("metric", os.Getenv("CARCONSOLE_METRIC"), &cfg.Metric)

	return nil
}
