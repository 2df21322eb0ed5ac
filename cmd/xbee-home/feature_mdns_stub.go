//go:build no_mdns

package main

import (
	"log/slog"

	"xbee-go-home/internal/stack"
)

func initMDNS(_ *stack.Stack, cfg *Config, logger *slog.Logger) stopFunc {
	if cfg.MDNS.Enabled {
		logger.Warn("mdns enabled in config but built with no_mdns")
	}
	return nil
}
