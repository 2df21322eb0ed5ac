//go:build !no_automation

package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"xbee-go-home/internal/stack"
)

const (
	defaultRunTimeout  = 5 * time.Second
	defaultSendTimeout = 10 * time.Second
	commandQueueSize   = 64
)

// luaEventHandler is a callback registered with xbee.on. An empty ieee or a
// negative cluster or profile matches any value.
type luaEventHandler struct {
	eventType string
	ieee      string
	cluster   int
	profile   int
	fn        *lua.LFunction
}

// scriptVM is the Lua state of one script. Only the goroutine draining
// commands touches state after the script's top level has run.
type scriptVM struct {
	id       string
	state    *lua.LState
	commands chan func(*lua.LState)
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger

	mu        sync.Mutex
	handlers  []luaEventHandler
	capture   []string
	capturing bool
}

func (vm *scriptVM) addHandler(h luaEventHandler) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if len(vm.handlers) >= maxHandlersPerScript {
		return false
	}
	vm.handlers = append(vm.handlers, h)
	return true
}

func (vm *scriptVM) snapshot() []luaEventHandler {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]luaEventHandler, len(vm.handlers))
	copy(out, vm.handlers)
	return out
}

// log records a script message, keeping a copy when run one-shot.
func (vm *scriptVM) log(level slog.Level, msg string) {
	vm.logger.Log(vm.ctx, level, "script log", "msg", msg)
	vm.mu.Lock()
	if vm.capturing {
		if level != slog.LevelInfo {
			msg = "[" + strings.ToLower(level.String()) + "] " + msg
		}
		vm.capture = append(vm.capture, msg)
	}
	vm.mu.Unlock()
}

func (vm *scriptVM) logs() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return append([]string(nil), vm.capture...)
}

// Engine runs one Lua VM per enabled script and feeds it stack events.
type Engine struct {
	backend     Backend
	manager     *Manager
	logger      *slog.Logger
	systemCfg   SystemConfig
	runTimeout  time.Duration
	sendTimeout time.Duration
	now         func() time.Time

	mu    sync.Mutex
	vms   map[string]*scriptVM
	unsub func()
}

// NewEngine creates an automation engine.
func NewEngine(backend Backend, mgr *Manager, logger *slog.Logger, sysCfg SystemConfig) *Engine {
	return &Engine{
		backend:     backend,
		manager:     mgr,
		logger:      logger.With("component", "automation"),
		systemCfg:   sysCfg,
		runTimeout:  defaultRunTimeout,
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
		vms:         make(map[string]*scriptVM),
	}
}

// Start subscribes to stack events and loads all enabled scripts.
func (e *Engine) Start() {
	e.unsub = e.backend.Events().OnAll(e.dispatchEvent)

	scripts, err := e.manager.List()
	if err != nil {
		e.logger.Error("load scripts", "err", err)
		return
	}
	for _, s := range scripts {
		if !s.Meta.Enabled {
			continue
		}
		if err := e.startScript(s); err != nil {
			e.logger.Error("start script", "id", s.ID, "err", err)
		}
	}

	e.mu.Lock()
	n := len(e.vms)
	e.mu.Unlock()
	e.logger.Info("automation engine started", "scripts", n)
}

// Stop cancels all VMs and unsubscribes from stack events.
func (e *Engine) Stop() {
	if e.unsub != nil {
		e.unsub()
	}

	e.mu.Lock()
	for id, vm := range e.vms {
		vm.cancel()
		delete(e.vms, id)
	}
	e.mu.Unlock()

	e.logger.Info("automation engine stopped")
}

// Running returns the ids of the scripts with a live VM.
func (e *Engine) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.vms))
	for id := range e.vms {
		ids = append(ids, id)
	}
	return ids
}

// ReloadScript stops the script's VM and starts it again if it is enabled.
func (e *Engine) ReloadScript(id string) error {
	e.stopScript(id)

	s, err := e.manager.Get(id)
	if err != nil {
		return fmt.Errorf("get script: %w", err)
	}
	if !s.Meta.Enabled {
		return nil
	}
	return e.startScript(s)
}

// StopScript stops a running script VM.
func (e *Engine) StopScript(id string) {
	e.stopScript(id)
}

// RunScript runs a saved script once in a temporary VM.
func (e *Engine) RunScript(id string) *RunResult {
	start := time.Now()
	s, err := e.manager.Get(id)
	if err != nil {
		return &RunResult{OK: false, Error: err.Error(), Duration: time.Since(start).String()}
	}
	return e.RunLuaCode(s.LuaCode)
}

// RunLuaCode runs code in a temporary VM with a five second limit. Handlers
// the code registers with xbee.on are each called once with a synthetic
// event built from their filter. Script log output is returned.
func (e *Engine) RunLuaCode(code string) *RunResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), e.runTimeout)
	defer cancel()

	vm := e.newVM(ctx, cancel, "_run")
	vm.capturing = true
	L := vm.state
	defer L.Close()
	L.SetContext(ctx)

	result := func(err error) *RunResult {
		r := &RunResult{OK: err == nil, Logs: vm.logs(), Duration: time.Since(start).String()}
		if err != nil {
			r.Error = err.Error()
			if strings.Contains(r.Error, context.DeadlineExceeded.Error()) {
				r.Error = "timeout (" + e.runTimeout.String() + ")"
			}
			e.logger.Warn("script run failed", "err", r.Error)
		}
		return r
	}

	if err := L.DoString(code); err != nil {
		return result(err)
	}

	for _, h := range vm.snapshot() {
		fields := map[string]any{"type": h.eventType}
		if h.ieee != "" {
			fields["ieee"] = h.ieee
		}
		if h.cluster >= 0 {
			fields["cluster"] = float64(h.cluster)
		}
		if h.profile >= 0 {
			fields["profile"] = float64(h.profile)
		}
		if err := L.CallByParam(lua.P{Fn: h.fn, NRet: 0, Protect: true}, goToLua(L, fields)); err != nil {
			return result(err)
		}
	}
	return result(nil)
}

func (e *Engine) stopScript(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vm, ok := e.vms[id]; ok {
		vm.cancel()
		delete(e.vms, id)
		e.logger.Info("script stopped", "id", id)
	}
}

// newVM creates a sandboxed Lua state with the xbee and system modules.
func (e *Engine) newVM(ctx context.Context, cancel context.CancelFunc, id string) *scriptVM {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	for _, name := range []string{"os", "io", "loadfile", "dofile", "require", "load", "debug", "package"} {
		L.SetGlobal(name, lua.LNil)
	}

	vm := &scriptVM{
		id:       id,
		state:    L,
		commands: make(chan func(*lua.LState), commandQueueSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   e.logger.With("script", id),
	}
	registerXBeeModule(L, vm, e)
	registerSystemModule(L, vm, e)
	return vm
}

func (e *Engine) startScript(s *Script) error {
	ctx, cancel := context.WithCancel(context.Background())
	vm := e.newVM(ctx, cancel, s.ID)
	L := vm.state

	if err := L.DoString(s.LuaCode); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("execute script %s: %w", s.ID, err)
	}

	e.mu.Lock()
	if old, ok := e.vms[s.ID]; ok {
		old.cancel()
	}
	e.vms[s.ID] = vm
	e.mu.Unlock()

	go func() {
		defer L.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case fn := <-vm.commands:
				fn(L)
			}
		}
	}()

	e.logger.Info("script started", "id", s.ID, "name", s.Meta.Name)
	return nil
}

// dispatchEvent queues matching handlers on their VMs. It runs on the stack
// loop and never blocks.
func (e *Engine) dispatchEvent(event stack.Event) {
	e.mu.Lock()
	vms := make([]*scriptVM, 0, len(e.vms))
	for _, vm := range e.vms {
		vms = append(vms, vm)
	}
	e.mu.Unlock()
	if len(vms) == 0 {
		return
	}

	fields := eventFields(event)
	for _, vm := range vms {
		for _, h := range vm.snapshot() {
			if !matchesHandler(h, fields) {
				continue
			}
			if !e.enqueue(vm, h.fn, fields) {
				break
			}
		}
	}
}

// enqueue reports false when the VM has stopped.
func (e *Engine) enqueue(vm *scriptVM, fn *lua.LFunction, fields map[string]any) bool {
	if vm.ctx.Err() != nil {
		return false
	}
	select {
	case vm.commands <- func(L *lua.LState) { e.callHandler(L, vm, fn, fields) }:
	default:
		e.logger.Warn("script command queue full, dropping event", "id", vm.id, "type", fields["type"])
	}
	return true
}

// eventFields flattens an event into the table handed to Lua: its data's
// JSON fields plus "type".
func eventFields(event stack.Event) map[string]any {
	fields := map[string]any{}
	if event.Data != nil {
		if b, err := json.Marshal(event.Data); err == nil {
			_ = json.Unmarshal(b, &fields)
		}
	}
	fields["type"] = event.Type
	return fields
}

func matchesHandler(h luaEventHandler, fields map[string]any) bool {
	if t, _ := fields["type"].(string); t != h.eventType {
		return false
	}
	if h.ieee != "" {
		if ieee, _ := fields["ieee"].(string); ieee != h.ieee {
			return false
		}
	}
	return matchNumber(fields, "cluster", h.cluster) && matchNumber(fields, "profile", h.profile)
}

func matchNumber(fields map[string]any, key string, want int) bool {
	if want < 0 {
		return true
	}
	n, ok := fields[key].(float64)
	return ok && int(n) == want
}

func (e *Engine) callHandler(L *lua.LState, vm *scriptVM, fn *lua.LFunction, fields map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			vm.logger.Error("lua handler panic", "err", r)
		}
	}()

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, goToLua(L, fields)); err != nil {
		vm.logger.Error("lua handler error", "err", err)
	}
}

// toLuaJSON converts v through its JSON form.
func toLuaJSON(L *lua.LState, v any) lua.LValue {
	b, err := json.Marshal(v)
	if err != nil {
		return lua.LNil
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return lua.LNil
	}
	return goToLua(L, generic)
}

// goToLua converts a Go value to a Lua value.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case map[string]any:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, goToLua(L, vv))
		}
		return t
	case []any:
		t := L.NewTable()
		for i, vv := range val {
			t.RawSetInt(i+1, goToLua(L, vv))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
