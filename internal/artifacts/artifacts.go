// Package artifacts writes the per-request log directory: raw prompts and
// responses as append-only text logs, intermediate and final results as JSON
// snapshots. Artifacts are write-only at runtime; nothing reads them back.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Logger struct {
	dir string
}

// NewLogger creates the request-scoped artifact directory.
func NewLogger(baseDir, requestID string) (*Logger, error) {
	dir := filepath.Join(baseDir, requestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Logger{dir: dir}, nil
}

func (l *Logger) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

// AppendText appends a timestamped block to a text log. A nil logger is a
// no-op so the pipeline can run with artifacts disabled.
func (l *Logger) AppendText(name, text string) error {
	if l == nil {
		return nil
	}
	path := filepath.Join(l.dir, name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open artifact log %s: %w", name, err)
	}
	defer f.Close()

	stamp := time.Now().UTC().Format(time.RFC3339)
	if _, err := fmt.Fprintf(f, "--- %s ---\n%s\n\n", stamp, text); err != nil {
		return fmt.Errorf("append artifact log %s: %w", name, err)
	}
	return nil
}

// WriteJSON overwrites a JSON snapshot.
func (l *Logger) WriteJSON(name string, value any) error {
	if l == nil {
		return nil
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", name, err)
	}
	path := filepath.Join(l.dir, name+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}
