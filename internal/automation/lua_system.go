//go:build !no_automation

package automation

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const maxExecOutput = 64 << 10

// registerSystemModule registers the `system` global table in a Lua state.
func registerSystemModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()
	mod.RawSetString("datetime", L.NewFunction(func(L *lua.LState) int { return systemDatetime(L, e.now()) }))
	mod.RawSetString("time_between", L.NewFunction(func(L *lua.LState) int { return systemTimeBetween(L, e.now()) }))
	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int { return systemLog(L, vm) }))
	mod.RawSetString("exec", L.NewFunction(func(L *lua.LState) int { return systemExec(L, vm, e.systemCfg) }))
	L.SetGlobal("system", mod)
}

// system.datetime(component) returns one component of the current time.
func systemDatetime(L *lua.LState, now time.Time) int {
	component := L.CheckString(1)
	switch component {
	case "hour":
		L.Push(lua.LNumber(now.Hour()))
	case "minute":
		L.Push(lua.LNumber(now.Minute()))
	case "second":
		L.Push(lua.LNumber(now.Second()))
	case "weekday":
		L.Push(lua.LNumber(now.Weekday()))
	case "day":
		L.Push(lua.LNumber(now.Day()))
	case "month":
		L.Push(lua.LNumber(now.Month()))
	case "year":
		L.Push(lua.LNumber(now.Year()))
	case "timestamp":
		L.Push(lua.LNumber(now.Unix()))
	case "time_str":
		L.Push(lua.LString(now.Format("15:04:05")))
	case "date_str":
		L.Push(lua.LString(now.Format("2006-01-02")))
	default:
		L.ArgError(1, "unknown component: "+component)
		return 0
	}
	return 1
}

// system.time_between(from_hour, to_hour) reports whether the current hour
// is in [from, to). A range like 22..6 wraps past midnight.
func systemTimeBetween(L *lua.LState, now time.Time) int {
	from := L.CheckInt(1)
	to := L.CheckInt(2)
	hour := now.Hour()

	if from <= to {
		L.Push(lua.LBool(hour >= from && hour < to))
	} else {
		L.Push(lua.LBool(hour >= from || hour < to))
	}
	return 1
}

// system.log(level, msg)
func systemLog(L *lua.LState, vm *scriptVM) int {
	level := L.CheckString(1)
	msg := L.CheckString(2)

	switch level {
	case "debug":
		vm.log(slog.LevelDebug, msg)
	case "warn":
		vm.log(slog.LevelWarn, msg)
	case "error":
		vm.log(slog.LevelError, msg)
	default:
		vm.log(slog.LevelInfo, msg)
	}
	return 0
}

// system.exec(cmd) runs an allowlisted absolute command and returns its
// stdout, or "" when blocked or failed.
func systemExec(L *lua.LState, vm *scriptVM, cfg SystemConfig) int {
	parts := strings.Fields(L.CheckString(1))
	if len(parts) == 0 {
		L.ArgError(1, "empty command")
		return 0
	}
	binary := parts[0]

	if !filepath.IsAbs(binary) {
		vm.logger.Warn("exec blocked: not an absolute path", "cmd", binary)
		L.Push(lua.LString(""))
		return 1
	}
	if !slices.Contains(cfg.ExecAllowlist, binary) {
		vm.logger.Warn("exec blocked: not in allowlist", "cmd", binary)
		L.Push(lua.LString(""))
		return 1
	}

	timeout := cfg.ExecTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(vm.ctx, timeout)
	defer cancel()

	stdout, err := exec.CommandContext(ctx, binary, parts[1:]...).Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			vm.logger.Warn("exec timeout", "cmd", binary, "timeout", timeout)
		} else {
			vm.logger.Warn("exec failed", "cmd", binary, "err", err)
		}
		L.Push(lua.LString(""))
		return 1
	}
	if len(stdout) > maxExecOutput {
		stdout = stdout[:maxExecOutput]
	}
	L.Push(lua.LString(string(stdout)))
	return 1
}
