//go:build no_automation

package automation

import (
	"errors"
	"log/slog"
)

var errDisabled = errors.New("automation disabled")

// Manager is a no-op stub when automation is disabled.
type Manager struct{}

// NewManager returns a nil manager when automation is disabled.
func NewManager(_ string, _ *slog.Logger) (*Manager, error) { return nil, nil }

// Dir returns "".
func (m *Manager) Dir() string { return "" }

// List returns nil.
func (m *Manager) List() ([]*Script, error) { return nil, nil }

// Get fails.
func (m *Manager) Get(_ string) (*Script, error) { return nil, errDisabled }

// Save fails.
func (m *Manager) Save(_ *Script) (*Script, error) { return nil, errDisabled }

// Delete fails.
func (m *Manager) Delete(_ string) error { return errDisabled }

// Engine is a no-op stub when automation is disabled.
type Engine struct{}

// NewEngine returns a no-op engine when automation is disabled.
func NewEngine(_ Backend, _ *Manager, _ *slog.Logger, _ SystemConfig) *Engine {
	return &Engine{}
}

// Start is a no-op.
func (e *Engine) Start() {}

// Stop is a no-op.
func (e *Engine) Stop() {}

// Running returns nil.
func (e *Engine) Running() []string { return nil }

// ReloadScript is a no-op.
func (e *Engine) ReloadScript(_ string) error { return nil }

// StopScript is a no-op.
func (e *Engine) StopScript(_ string) {}

// RunScript returns a failed result.
func (e *Engine) RunScript(_ string) *RunResult {
	return &RunResult{OK: false, Error: errDisabled.Error()}
}

// RunLuaCode returns a failed result.
func (e *Engine) RunLuaCode(_ string) *RunResult {
	return &RunResult{OK: false, Error: errDisabled.Error()}
}
