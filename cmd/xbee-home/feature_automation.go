//go:build !no_automation

package main

import (
	"log/slog"
	"time"

	"xbee-go-home/internal/automation"
	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/web"
)

// initAutomation loads the scripts directory and starts every enabled
// script. The returned options expose the engine on the web API.
func initAutomation(st *stack.Stack, cfg *Config, logger *slog.Logger) (stopFunc, []web.ServerOption) {
	mgr, err := automation.NewManager(cfg.ScriptsDir, logger)
	if err != nil {
		logger.Error("automation disabled", "dir", cfg.ScriptsDir, "err", err)
		return nil, nil
	}

	// validate has already checked the duration.
	execTimeout, _ := time.ParseDuration(cfg.Exec.Timeout)

	engine := automation.NewEngine(st, mgr, logger, automation.SystemConfig{
		ExecAllowlist: cfg.Exec.Allowlist,
		ExecTimeout:   execTimeout,
	})
	engine.Start()
	return engine.Stop, []web.ServerOption{web.WithAutomation(engine, mgr)}
}
