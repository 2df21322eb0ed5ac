//go:build !no_mqtt

package main

import (
	"log/slog"

	"xbee-go-home/internal/mqtt"
	"xbee-go-home/internal/stack"
)

// initMQTT starts the broker bridge. A bridge that cannot be created is
// logged and skipped so the gateway still serves the API.
func initMQTT(st *stack.Stack, cfg *Config, logger *slog.Logger) stopFunc {
	if !cfg.MQTT.Enabled {
		return nil
	}
	bridge, err := mqtt.NewBridge(st, mqtt.Config{
		Broker:      cfg.MQTT.Broker,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		ClientID:    cfg.MQTT.ClientID,
	}, logger)
	if err != nil {
		logger.Error("mqtt bridge disabled", "broker", cfg.MQTT.Broker, "err", err)
		return nil
	}
	bridge.Start()
	return bridge.Stop
}
