package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadPrompt reads <PROMPT_DIR>/<provider>/<name>.txt.
// Callers fall back to their embedded prompt when it is missing.
func LoadPrompt(dir, provider, name string) (string, error) {
	if provider == "" {
		return "", fmt.Errorf("provider is empty")
	}
	if dir == "" {
		dir = os.Getenv("PROMPT_DIR")
	}
	if dir == "" {
		return "", fmt.Errorf("prompt %q: PROMPT_DIR is not set", name)
	}
	p := filepath.Join(dir, strings.ToLower(provider), name+".txt")
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", fmt.Errorf("prompt %q: %s is empty", name, p)
	}
	return s, nil
}

// RenderPrompt substitutes {{key}} placeholders.
func RenderPrompt(tpl string, vars map[string]string) string {
	for k, v := range vars {
		tpl = strings.ReplaceAll(tpl, "{{"+k+"}}", v)
	}
	return tpl
}

// SavePrompt atomically writes <dir>/<provider>/<name>.txt and returns its path.
func SavePrompt(dir, provider, name, text string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("PROMPT_DIR is not set")
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	name = strings.TrimSuffix(strings.TrimSpace(name), ".txt")
	if provider == "" || name == "" || strings.ContainsAny(provider+name, `/\.`) {
		return "", fmt.Errorf("invalid prompt path %q/%q", provider, name)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("prompt text is empty")
	}

	baseDir := filepath.Join(dir, provider)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("make dir: %w", err)
	}
	dst := filepath.Join(baseDir, name+".txt")

	tmp, err := os.CreateTemp(baseDir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename: %w", err)
	}
	return dst, nil
}
