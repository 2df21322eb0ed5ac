//go:build !no_automation

package automation

import (
	"context"
	"log/slog"
	"time"

	lua "github.com/yuin/gopher-lua"

	"xbee-go-home/internal/stack"
	"xbee-go-home/internal/wpan"
)

const maxHandlersPerScript = 100

// registerXBeeModule registers the `xbee` global table in a Lua state.
func registerXBeeModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()
	mod.RawSetString("on", L.NewFunction(func(L *lua.LState) int { return xbeeOn(L, vm) }))
	mod.RawSetString("send", L.NewFunction(func(L *lua.LState) int { return xbeeSend(L, vm, e) }))
	mod.RawSetString("after", L.NewFunction(func(L *lua.LState) int { return xbeeAfter(L, vm) }))
	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		vm.log(slog.LevelInfo, L.CheckString(1))
		return 0
	}))
	mod.RawSetString("status", L.NewFunction(func(L *lua.LState) int {
		L.Push(toLuaJSON(L, e.backend.Status()))
		return 1
	}))
	mod.RawSetString("nodes", L.NewFunction(func(L *lua.LState) int { return xbeeNodes(L, e) }))
	L.SetGlobal("xbee", mod)
}

// xbee.on(type, [filter,] callback). The filter table may hold ieee,
// cluster and profile.
func xbeeOn(L *lua.LState, vm *scriptVM) int {
	h := luaEventHandler{eventType: L.CheckString(1), cluster: -1, profile: -1}

	if fn, ok := L.Get(2).(*lua.LFunction); ok {
		h.fn = fn
	} else {
		filter := L.CheckTable(2)
		h.fn = L.CheckFunction(3)
		if v := filter.RawGetString("ieee"); v != lua.LNil {
			addr, err := wpan.ParseAddr64(v.String())
			if err != nil {
				L.ArgError(2, "filter ieee: "+err.Error())
				return 0
			}
			h.ieee = addr.Hex()
		}
		var ok bool
		if h.cluster, ok = optNumber(filter, "cluster", 0xFFFF); !ok {
			L.ArgError(2, "filter cluster out of range")
			return 0
		}
		if h.profile, ok = optNumber(filter, "profile", 0xFFFF); !ok {
			L.ArgError(2, "filter profile out of range")
			return 0
		}
	}

	if !vm.addHandler(h) {
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
	}
	return 0
}

// optNumber reads an integer field in 0..max, returning -1 when it is absent.
func optNumber(tbl *lua.LTable, key string, max int) (int, bool) {
	v := tbl.RawGetString(key)
	if v == lua.LNil {
		return -1, true
	}
	n, ok := v.(lua.LNumber)
	if !ok || n < 0 || int(n) > max || lua.LNumber(int(n)) != n {
		return 0, false
	}
	return int(n), true
}

// sendRequestFromTable reads {ieee, network, src_endpoint, dst_endpoint,
// profile, cluster, payload, encrypted}. Payload is a hex string.
func sendRequestFromTable(tbl *lua.LTable) (stack.SendRequest, string) {
	var r stack.SendRequest
	ieee, ok := tbl.RawGetString("ieee").(lua.LString)
	if !ok || ieee == "" {
		return r, "ieee is required"
	}
	r.IEEE = string(ieee)

	fields := []struct {
		key string
		max int
		set func(int)
	}{
		{"network", 0xFFFF, func(n int) { v := uint16(n); r.Network = &v }},
		{"src_endpoint", 0xFF, func(n int) { r.SourceEndpoint = uint8(n) }},
		{"dst_endpoint", 0xFF, func(n int) { r.DestEndpoint = uint8(n) }},
		{"profile", 0xFFFF, func(n int) { r.Profile = uint16(n) }},
		{"cluster", 0xFFFF, func(n int) { r.Cluster = uint16(n) }},
	}
	for _, f := range fields {
		n, ok := optNumber(tbl, f.key, f.max)
		if !ok {
			return r, f.key + " out of range"
		}
		if n >= 0 {
			f.set(n)
		}
	}

	switch p := tbl.RawGetString("payload").(type) {
	case lua.LString:
		r.Payload = string(p)
	case *lua.LNilType:
	default:
		return r, "payload must be a hex string"
	}
	r.Encrypted = lua.LVAsBool(tbl.RawGetString("encrypted"))
	return r, ""
}

// xbee.send{...} returns true, or nil and an error message.
func xbeeSend(L *lua.LState, vm *scriptVM, e *Engine) int {
	req, problem := sendRequestFromTable(L.CheckTable(1))
	if problem != "" {
		L.ArgError(1, problem)
		return 0
	}

	ctx, cancel := context.WithTimeout(vm.ctx, e.sendTimeout)
	defer cancel()
	if err := e.backend.Send(ctx, req); err != nil {
		vm.logger.Warn("xbee.send failed", "ieee", req.IEEE, "err", err)
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// xbee.after(seconds, callback) runs callback later on the script's VM.
func xbeeAfter(L *lua.LState, vm *scriptVM) int {
	seconds := L.CheckNumber(1)
	fn := L.CheckFunction(2)

	go func() {
		timer := time.NewTimer(time.Duration(float64(seconds) * float64(time.Second)))
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-vm.ctx.Done():
			return
		}

		select {
		case vm.commands <- func(L *lua.LState) {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
				vm.logger.Error("after callback error", "err", err)
			}
		}:
		default:
			vm.logger.Warn("after: command queue full")
		}
	}()
	return 0
}

// xbee.nodes() returns the stored nodes as a list of tables.
func xbeeNodes(L *lua.LState, e *Engine) int {
	nodes, err := e.backend.Store().ListNodes()
	if err != nil || len(nodes) == 0 {
		L.Push(L.NewTable())
		return 1
	}
	L.Push(toLuaJSON(L, nodes))
	return 1
}
