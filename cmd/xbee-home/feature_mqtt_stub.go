//go:build no_mqtt

package main

import (
	"log/slog"

	"xbee-go-home/internal/stack"
)

func initMQTT(_ *stack.Stack, cfg *Config, logger *slog.Logger) stopFunc {
	if cfg.MQTT.Enabled {
		logger.Warn("mqtt enabled in config but built with no_mqtt")
	}
	return nil
}
