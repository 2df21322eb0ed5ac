package web

import (
	"errors"
	"net/http"

	"xbee-go-home/internal/automation"
)

// writeScriptError maps manager errors onto HTTP statuses.
func (s *Server) writeScriptError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, automation.ErrScriptNotFound):
		s.writeError(w, http.StatusNotFound, "script not found")
	case errors.Is(err, automation.ErrInvalidID):
		s.writeError(w, http.StatusBadRequest, "invalid script id")
	default:
		s.logger.Error(op, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// scripts returns the script manager, or writes 503 and returns nil when
// the gateway runs without automation.
func (s *Server) scripts(w http.ResponseWriter) *automation.Manager {
	if s.scriptMgr == nil {
		s.writeError(w, http.StatusServiceUnavailable, "automations not available")
	}
	return s.scriptMgr
}

// applyScript brings the engine in line with a saved script: enabled
// scripts are (re)started, disabled ones stopped.
func (s *Server) applyScript(script *automation.Script) {
	if s.autoEngine == nil {
		return
	}
	if !script.Meta.Enabled {
		s.autoEngine.StopScript(script.ID)
		return
	}
	if err := s.autoEngine.ReloadScript(script.ID); err != nil {
		s.logger.Error("start script", "id", script.ID, "err", err)
	}
}

func (s *Server) handleAPIListAutomations(w http.ResponseWriter, _ *http.Request) {
	list := []*automation.Script{}
	if s.scriptMgr != nil {
		scripts, err := s.scriptMgr.List()
		if err != nil {
			s.writeScriptError(w, "list scripts", err)
			return
		}
		list = append(list, scripts...)
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAPIGetAutomation(w http.ResponseWriter, r *http.Request) {
	mgr := s.scripts(w)
	if mgr == nil {
		return
	}
	script, err := mgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeScriptError(w, "get script", err)
		return
	}
	s.writeJSON(w, http.StatusOK, script)
}

type saveAutomationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LuaCode     string `json:"lua_code"`
	Enabled     bool   `json:"enabled"`
}

func (s *Server) handleAPICreateAutomation(w http.ResponseWriter, r *http.Request) {
	mgr := s.scripts(w)
	if mgr == nil {
		return
	}
	var req saveAutomationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	saved, err := mgr.Save(&automation.Script{
		Meta:    automation.ScriptMeta{Name: req.Name, Description: req.Description, Enabled: req.Enabled},
		LuaCode: req.LuaCode,
	})
	if err != nil {
		s.writeScriptError(w, "create script", err)
		return
	}
	s.applyScript(saved)
	s.writeJSON(w, http.StatusCreated, saved)
}

// handleAPIUpdateAutomation replaces the code, description and enabled
// state. An empty name keeps the current one.
func (s *Server) handleAPIUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	mgr := s.scripts(w)
	if mgr == nil {
		return
	}
	script, err := mgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeScriptError(w, "get script", err)
		return
	}
	var req saveAutomationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != "" {
		script.Meta.Name = req.Name
	}
	script.Meta.Description = req.Description
	script.Meta.Enabled = req.Enabled
	script.LuaCode = req.LuaCode

	saved, err := mgr.Save(script)
	if err != nil {
		s.writeScriptError(w, "update script", err)
		return
	}
	s.applyScript(saved)
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleAPIDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	mgr := s.scripts(w)
	if mgr == nil {
		return
	}
	id := r.PathValue("id")
	if s.autoEngine != nil {
		s.autoEngine.StopScript(id)
	}
	if err := mgr.Delete(id); err != nil {
		s.writeScriptError(w, "delete script", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIToggleAutomation(w http.ResponseWriter, r *http.Request) {
	mgr := s.scripts(w)
	if mgr == nil {
		return
	}
	script, err := mgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeScriptError(w, "get script", err)
		return
	}
	script.Meta.Enabled = !script.Meta.Enabled
	saved, err := mgr.Save(script)
	if err != nil {
		s.writeScriptError(w, "toggle script", err)
		return
	}
	s.applyScript(saved)
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleAPIRunAutomation(w http.ResponseWriter, r *http.Request) {
	if s.autoEngine == nil {
		s.writeError(w, http.StatusServiceUnavailable, "automation engine not available")
		return
	}
	s.writeJSON(w, http.StatusOK, s.autoEngine.RunScript(r.PathValue("id")))
}

// handleAPIRunCode runs Lua code from the request body without saving it.
// Handlers it registers are invoked once with sample events.
func (s *Server) handleAPIRunCode(w http.ResponseWriter, r *http.Request) {
	if s.autoEngine == nil {
		s.writeError(w, http.StatusServiceUnavailable, "automation engine not available")
		return
	}
	var req struct {
		LuaCode string `json:"lua_code"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.writeJSON(w, http.StatusOK, s.autoEngine.RunLuaCode(req.LuaCode))
}
