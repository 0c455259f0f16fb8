package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.ErrorText("not_your_turn", "x"); got != "Wait for your opponent to move." {
		t.Fatalf("ErrorText = %q", got)
	}
	if got := c.ErrorText("no_such_code", "fallback"); got != "fallback" {
		t.Fatalf("unknown code should fall back, got %q", got)
	}
	s, err := c.Render("events.match_found", map[string]any{"WhitePlayerID": "alice", "BlackPlayerID": "bob"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(s, "alice (white)") {
		t.Fatalf("rendered %q", s)
	}
	if _, err := c.Render("events.match_found", map[string]any{}); err == nil {
		t.Fatalf("missing field should fail")
	}
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  not_your_turn: \"Hold on\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.ErrorText("not_your_turn", ""); got != "Hold on" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.ErrorText("invalid_move", ""); got == "" {
		t.Fatalf("defaults should survive overrides")
	}
}

func TestDuplicateOverrideKey(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("errors:\n  self_join: \"nope\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNilCatalogFallsBack(t *testing.T) {
	var c *Catalog
	if got := c.ErrorText("invalid_move", "plain"); got != "plain" {
		t.Fatalf("nil catalog = %q", got)
	}
}
