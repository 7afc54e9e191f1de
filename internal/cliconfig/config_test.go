package cliconfig

import (
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Home = "/tmp/carconsole"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FPS != 30 {
		t.Errorf("FPS = %v, want 30", cfg.FPS)
	}
	if cfg.Cadence != 50*time.Millisecond {
		t.Errorf("Cadence = %v, want 50ms", cfg.Cadence)
	}
	if cfg.MQTTTopic != "vehicle" {
		t.Errorf("MQTTTopic = %v, want vehicle", cfg.MQTTTopic)
	}
	if !cfg.WatchLayout || !cfg.WatchPlugins || !cfg.Metric {
		t.Errorf("watchers and metric units should be on by default: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"no home but explicit paths", func(c *Config) {
			c.Home = ""
			c.LayoutPath = "/l.xml"
			c.PluginDir = "/plugins"
			c.SnapshotPath = "/s.json"
		}, false},
		{"no home", func(c *Config) { c.Home = "" }, true},
		{"fps zero", func(c *Config) { c.FPS = 0 }, true},
		{"fps too high", func(c *Config) { c.FPS = 241 }, true},
		{"negative cadence", func(c *Config) { c.Cadence = -1 }, true},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, true},
		{"zero max rpm", func(c *Config) { c.MaxRPM = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"broker without topic", func(c *Config) { c.MQTTBroker = "tcp://x:1883"; c.MQTTTopic = "/" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	c1 := validConfig()
	c1.MQTTTopic = "car/"
	if err := c1.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if want := filepath.Join("/tmp/carconsole", "layout.xml"); c1.LayoutPath != want {
		t.Errorf("LayoutPath = %v, want %v", c1.LayoutPath, want)
	}
	if want := filepath.Join("/tmp/carconsole", "plugins"); c1.PluginDir != want {
		t.Errorf("PluginDir = %v, want %v", c1.PluginDir, want)
	}
	if want := filepath.Join("/tmp/carconsole", "snapshot.json"); c1.SnapshotPath != want {
		t.Errorf("SnapshotPath = %v, want %v", c1.SnapshotPath, want)
	}
	if c1.MQTTTopic != "car" {
		t.Errorf("MQTTTopic = %v, want car", c1.MQTTTopic)
	}

	// explicit paths are kept
	c2 := validConfig()
	c2.LayoutPath = "/etc/dash.yaml"
	if err := c2.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c2.LayoutPath != "/etc/dash.yaml" {
		t.Errorf("LayoutPath = %v, want /etc/dash.yaml", c2.LayoutPath)
	}
}

func TestConfig_ConsoleConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Plugins = []string{"/a.lua"}
	cfg.SaveLayoutOnExit = true
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cc := cfg.ConsoleConfig()
	if err := cc.Validate(); err != nil {
		t.Fatalf("console config invalid: %v", err)
	}
	if cc.LayoutPath != cfg.LayoutPath || cc.FPS != cfg.FPS || !cc.SaveLayoutOnExit {
		t.Errorf("ConsoleConfig() = %+v", cc)
	}
	cfg.Plugins[0] = "/changed.lua"
	if cc.Plugins[0] != "/a.lua" {
		t.Error("ConsoleConfig() shares the plugin slice")
	}
}

func TestConfig_MQTTConfig(t *testing.T) {
	cfg := validConfig()
	if _, ok := cfg.MQTTConfig(); ok {
		t.Error("MQTTConfig() ok without a broker")
	}
	cfg.MQTTBroker = "tcp://broker:1883"
	cfg.MQTTClientID = "dash-1"
	mc, ok := cfg.MQTTConfig()
	if !ok {
		t.Fatal("MQTTConfig() not ok with a broker")
	}
	if mc.Broker != "tcp://broker:1883" || mc.Topic != "vehicle" || mc.ClientID != "dash-1" {
		t.Errorf("MQTTConfig() = %+v", mc)
	}
}
