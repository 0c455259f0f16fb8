// Package msgcat holds the user-facing text for error codes and event
// notifications. Defaults are embedded; a directory of YAML files may
// override individual keys.
package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var embedded embed.FS

const defaultFile = "messages.en.yaml"

// Catalog maps dotted keys (errors.not_your_turn, events.match_found) to
// text/template sources.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]string
	parsed    map[string]*template.Template
}

func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]string), parsed: make(map[string]*template.Template)}
	raw, err := embedded.ReadFile(defaultFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	flat, err := flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}
	c.merge(flat)
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.overlay(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// overlay applies *.yaml / *.yml files in name order. The same key in two
// override files is an error.
func (c *Catalog) overlay(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read message dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	owner := make(map[string]string)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := flatten(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range flat {
			if prev, ok := owner[k]; ok {
				return fmt.Errorf("duplicate message key %q in %s and %s", k, prev, name)
			}
			owner[k] = name
		}
		c.merge(flat)
	}
	return nil
}

func (c *Catalog) merge(flat map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range flat {
		c.templates[k] = v
		delete(c.parsed, k)
	}
}

func flatten(raw []byte) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if err := walk(doc, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(node any, prefix string, out map[string]string) error {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := walk(child, key, out); err != nil {
				return err
			}
		}
	case string:
		if prefix == "" {
			return errors.New("top-level string without key")
		}
		out[prefix] = v
	case nil:
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
	return nil
}

// Render executes the template under key. Unknown keys and missing fields
// are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	key = strings.TrimSpace(key)
	t, err := c.lookup(key)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ErrorText renders errors.<code>, falling back to the given text.
func (c *Catalog) ErrorText(code, fallback string) string {
	if c == nil {
		return fallback
	}
	s, err := c.Render("errors."+code, nil)
	if err != nil || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func (c *Catalog) lookup(key string) (*template.Template, error) {
	c.mu.RLock()
	t, ok := c.parsed[key]
	src, known := c.templates[key]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}
	if !known || strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("message not found: %s", key)
	}
	t, err := template.New(key).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.parsed[key] = t
	c.mu.Unlock()
	return t, nil
}
