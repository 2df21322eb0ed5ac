//go:build no_automation

package main

import (
	"log/slog"

	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/web"
)

func initAutomation(_ *stack.Stack, _ *Config, _ *slog.Logger) (stopFunc, []web.ServerOption) {
	return nil, nil
}
