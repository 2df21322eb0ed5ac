package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/wpan"
)

// Config is the gateway configuration, read from YAML or TOML.
type Config struct {
	XBee struct {
		Port         string `yaml:"port" toml:"port"`
		Baud         int    `yaml:"baud" toml:"baud"`
		FlowControl  bool   `yaml:"flow_control" toml:"flow_control"`
		TxBuffer     int    `yaml:"tx_buffer" toml:"tx_buffer"`
		TickInterval string `yaml:"tick_interval" toml:"tick_interval"`
	} `yaml:"xbee" toml:"xbee"`
	WPAN struct {
		MaxConversations int  `yaml:"max_conversations" toml:"max_conversations"`
		Interview        bool `yaml:"interview" toml:"interview"`
	} `yaml:"wpan" toml:"wpan"`
	Endpoints []EndpointConfig `yaml:"endpoints" toml:"endpoints"`
	Web       struct {
		Listen         string   `yaml:"listen" toml:"listen"`
		APIKey         string   `yaml:"api_key" toml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
	} `yaml:"web" toml:"web"`
	Store struct {
		Path string `yaml:"path" toml:"path"`
	} `yaml:"store" toml:"store"`
	Trace struct {
		Path string `yaml:"path" toml:"path"`
	} `yaml:"trace" toml:"trace"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled" toml:"enabled"`
		Broker      string `yaml:"broker" toml:"broker"`
		Username    string `yaml:"username" toml:"username"`
		Password    string `yaml:"password" toml:"password"`
		TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"`
		ClientID    string `yaml:"client_id" toml:"client_id"`
	} `yaml:"mqtt" toml:"mqtt"`
	MDNS struct {
		Enabled  bool   `yaml:"enabled" toml:"enabled"`
		Instance string `yaml:"instance" toml:"instance"`
	} `yaml:"mdns" toml:"mdns"`
	Log struct {
		Level  string `yaml:"level" toml:"level"`
		Format string `yaml:"format" toml:"format"`
	} `yaml:"log" toml:"log"`
	Exec struct {
		Allowlist []string `yaml:"allowlist" toml:"allowlist"`
		Timeout   string   `yaml:"timeout" toml:"timeout"`
	} `yaml:"exec" toml:"exec"`
	ScriptsDir  string `yaml:"scripts_dir" toml:"scripts_dir"`
	ClustersDir string `yaml:"clusters_dir" toml:"clusters_dir"`
}

// EndpointConfig is a local ZCL endpoint.
type EndpointConfig struct {
	ID            uint8           `yaml:"id" toml:"id"`
	Profile       uint16          `yaml:"profile" toml:"profile"`
	DeviceID      uint16          `yaml:"device_id" toml:"device_id"`
	DeviceVersion uint8           `yaml:"device_version" toml:"device_version"`
	Clusters      []ClusterConfig `yaml:"clusters" toml:"clusters"`
}

// ClusterConfig is one cluster of an endpoint. Flags are names accepted by
// stack.ParseClusterFlags.
type ClusterConfig struct {
	ID    uint16   `yaml:"id" toml:"id"`
	Flags []string `yaml:"flags" toml:"flags"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.XBee.Baud == 0 {
		c.XBee.Baud = 115200
	}
	if c.XBee.TickInterval == "" {
		c.XBee.TickInterval = stack.DefaultTickInterval.String()
	}
	if c.Web.Listen == "" {
		c.Web.Listen = "127.0.0.1:8080"
	}
	if c.Store.Path == "" {
		c.Store.Path = "xbee-home.db"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "xbee"
	}
	if c.MDNS.Instance == "" {
		c.MDNS.Instance = "xbee-go-home"
	}
	if c.ScriptsDir == "" {
		c.ScriptsDir = "scripts"
	}
	if c.ClustersDir == "" {
		c.ClustersDir = "clusters"
	}
	if c.Exec.Timeout == "" {
		c.Exec.Timeout = "10s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.XBee.Port == "" {
		return fmt.Errorf("xbee.port is required")
	}
	if c.XBee.Baud < 0 || c.XBee.TxBuffer < 0 {
		return fmt.Errorf("xbee.baud and xbee.tx_buffer must not be negative")
	}
	if d, err := time.ParseDuration(c.XBee.TickInterval); err != nil || d <= 0 {
		return fmt.Errorf("xbee.tick_interval: invalid duration %q", c.XBee.TickInterval)
	}
	if _, err := time.ParseDuration(c.Exec.Timeout); err != nil {
		return fmt.Errorf("exec.timeout: invalid duration %q", c.Exec.Timeout)
	}
	if c.WPAN.MaxConversations < 0 || c.WPAN.MaxConversations > 255 {
		return fmt.Errorf("wpan.max_conversations must be 0-255, got %d", c.WPAN.MaxConversations)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}

	seen := make(map[uint8]bool)
	for _, ep := range c.Endpoints {
		switch ep.ID {
		case wpan.EndpointZDO, wpan.EndpointDigiData, wpan.EndpointBroadcast:
			return fmt.Errorf("endpoint 0x%02X is reserved", ep.ID)
		}
		if seen[ep.ID] {
			return fmt.Errorf("endpoint 0x%02X configured twice", ep.ID)
		}
		seen[ep.ID] = true
		for _, cl := range ep.Clusters {
			if _, err := stack.ParseClusterFlags(cl.Flags); err != nil {
				return fmt.Errorf("endpoint 0x%02X cluster 0x%04X: %w", ep.ID, cl.ID, err)
			}
		}
	}
	return nil
}

// stackConfig converts the radio sections. validate must have passed.
func (c *Config) stackConfig() stack.Config {
	tick, _ := time.ParseDuration(c.XBee.TickInterval)
	sc := stack.Config{
		TickInterval:     tick,
		FlowControl:      c.XBee.FlowControl,
		MaxConversations: c.WPAN.MaxConversations,
		Interview:        c.WPAN.Interview,
	}
	for _, ep := range c.Endpoints {
		epc := stack.EndpointConfig{
			ID:            ep.ID,
			Profile:       ep.Profile,
			DeviceID:      ep.DeviceID,
			DeviceVersion: ep.DeviceVersion,
		}
		for _, cl := range ep.Clusters {
			flags, _ := stack.ParseClusterFlags(cl.Flags)
			epc.Clusters = append(epc.Clusters, stack.ClusterConfig{ID: cl.ID, Flags: flags})
		}
		sc.Endpoints = append(sc.Endpoints, epc)
	}
	return sc
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
