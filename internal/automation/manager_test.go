//go:build !no_automation

package automation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "scripts"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestManagerListEmpty(t *testing.T) {
	m := newTestManager(t)
	scripts, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 0 {
		t.Errorf("list count = %d, want 0", len(scripts))
	}
}

func TestManagerSaveAndGet(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save(&Script{
		Meta:    ScriptMeta{Name: "Door Relay", Description: "A test", Enabled: true},
		LuaCode: `xbee.log("hello")`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != "door_relay" {
		t.Errorf("id = %q, want door_relay", saved.ID)
	}
	if saved.FilePath != filepath.Join(m.Dir(), "door_relay.lua") {
		t.Errorf("path = %q", saved.FilePath)
	}

	got, err := m.Get(saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Meta != saved.Meta {
		t.Errorf("meta = %+v, want %+v", got.Meta, saved.Meta)
	}
	if got.LuaCode != "xbee.log(\"hello\")\n" {
		t.Errorf("lua_code = %q", got.LuaCode)
	}
}

func TestManagerSaveExistingID(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save(&Script{ID: "my_script", Meta: ScriptMeta{Name: "My Script"}, LuaCode: `xbee.log("v1")`})
	if err != nil {
		t.Fatal(err)
	}
	saved.LuaCode = `xbee.log("v2")`
	if _, err := m.Save(saved); err != nil {
		t.Fatal(err)
	}

	got, err := m.Get("my_script")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.LuaCode, `xbee.log("v2")`) {
		t.Errorf("lua_code after update = %q", got.LuaCode)
	}
}

func TestManagerList(t *testing.T) {
	m := newTestManager(t)
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		if _, err := m.Save(&Script{Meta: ScriptMeta{Name: name}, LuaCode: `xbee.log("` + name + `")`}); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	scripts, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 3 {
		t.Fatalf("list count = %d, want 3", len(scripts))
	}
}

func TestManagerDelete(t *testing.T) {
	m := newTestManager(t)
	saved, err := m.Save(&Script{Meta: ScriptMeta{Name: "ToDelete"}, LuaCode: `xbee.log("bye")`})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Delete(saved.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(saved.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrScriptNotFound", err)
	}
	if err := m.Delete(saved.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("second Delete: err = %v, want ErrScriptNotFound", err)
	}
}

func TestManagerInvalidID(t *testing.T) {
	m := newTestManager(t)
	for _, id := range []string{"", "..", "../etc/passwd", `a\b`, "a/b"} {
		if _, err := m.Get(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Get(%q): err = %v, want ErrInvalidID", id, err)
		}
		if err := m.Delete(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Delete(%q): err = %v, want ErrInvalidID", id, err)
		}
	}
	if _, err := m.Save(&Script{ID: "../x"}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Save: err = %v, want ErrInvalidID", err)
	}
}

func TestManagerUniqueID(t *testing.T) {
	m := newTestManager(t)
	s1, err := m.Save(&Script{Meta: ScriptMeta{Name: "Dup"}, LuaCode: `xbee.log("1")`})
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.Save(&Script{Meta: ScriptMeta{Name: "Dup"}, LuaCode: `xbee.log("2")`})
	if err != nil {
		t.Fatal(err)
	}
	if s1.ID != "dup" || s2.ID != "dup_1" {
		t.Errorf("ids = %q, %q, want dup, dup_1", s1.ID, s2.ID)
	}
}

func TestParseScriptFile(t *testing.T) {
	dir := t.TempDir()
	content := `-- {"name":"Serial echo","description":"Echo serial data back","enabled":true}

xbee.on("serial_data", {ieee="0013A20041526374"}, function(event)
    xbee.send{ieee=event.ieee, payload=event.data}
end)
`
	path := filepath.Join(dir, "echo.lua")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Manager{dir: dir, logger: testLogger()}
	s, err := m.parseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != "echo" {
		t.Errorf("id = %q, want echo", s.ID)
	}
	if s.Meta.Name != "Serial echo" || s.Meta.Description != "Echo serial data back" || !s.Meta.Enabled {
		t.Errorf("meta = %+v", s.Meta)
	}
	if !strings.HasPrefix(s.LuaCode, `xbee.on("serial_data"`) {
		t.Errorf("lua_code = %q", s.LuaCode)
	}
}

func TestParseScriptWithoutHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bare.lua")
	if err := os.WriteFile(path, []byte(`xbee.log("x")`), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Manager{dir: dir, logger: testLogger()}
	s, err := m.parseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Meta.Name != "bare" || s.Meta.Enabled {
		t.Errorf("meta = %+v, want name bare, disabled", s.Meta)
	}
	if s.LuaCode != `xbee.log("x")` {
		t.Errorf("lua_code = %q", s.LuaCode)
	}
}

func TestSerializeScript(t *testing.T) {
	content := serializeScript(&Script{
		ID:      "test",
		Meta:    ScriptMeta{Name: "Test", Description: "desc", Enabled: true},
		LuaCode: `xbee.log("hi")`,
	})
	want := "-- {\"name\":\"Test\",\"description\":\"desc\",\"enabled\":true}\n\nxbee.log(\"hi\")\n"
	if content != want {
		t.Errorf("serializeScript = %q, want %q", content, want)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Bathroom Light", "bathroom_light"},
		{"hello world!", "hello_world"},
		{"", ""},
		{"  spaces  ", "spaces"},
		{"UPPER", "upper"},
		{strings.Repeat("a", 50), strings.Repeat("a", 40)},
	}
	for _, tt := range tests {
		if got := slugify(tt.input); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
