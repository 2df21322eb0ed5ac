// Package automation runs user Lua scripts against stack events. Scripts
// subscribe with xbee.on and transmit with xbee.send.
package automation

import (
	"context"
	"errors"
	"time"

	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/store"
)

var (
	// ErrScriptNotFound is returned for a script id with no file.
	ErrScriptNotFound = errors.New("script not found")
	// ErrInvalidID is returned for ids that are not a plain file name stem.
	ErrInvalidID = errors.New("invalid script id")
)

// Backend is the part of the stack scripts can reach.
type Backend interface {
	Events() *stack.EventBus
	Store() store.Store
	Send(ctx context.Context, r stack.SendRequest) error
	Status() stack.Status
}

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}

// SystemConfig holds settings of the system Lua module. ExecAllowlist lists
// the absolute command paths system.exec may run.
type SystemConfig struct {
	ExecAllowlist []string
	ExecTimeout   time.Duration
}
