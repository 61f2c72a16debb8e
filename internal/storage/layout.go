// Package storage is the file-backed persistence core shared by every store.
// Each store owns one structured JSON index under <root>/indices plus, for
// the flat memory store, a dated append-only raw log and the durable curated
// artifact. Indices are rewritten whole on every persist; only the daily log
// and the curated artifact are append-only.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Layout resolves the on-disk paths under an agent's storage root.
type Layout struct {
	Root string
}

// DefaultRoot returns ~/.anima, the conventional storage root.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".anima"), nil
}

// NewLayout creates the indices and logs directories under root.
func NewLayout(root string) (Layout, error) {
	l := Layout{Root: root}
	for _, dir := range []string{l.IndexDir(), l.LogDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Layout{}, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return l, nil
}

func (l Layout) IndexDir() string { return filepath.Join(l.Root, "indices") }
func (l Layout) LogDir() string   { return filepath.Join(l.Root, "logs") }

// IndexPath returns the path of a store's structured index, e.g.
// IndexPath("memories") → <root>/indices/memories.json.
func (l Layout) IndexPath(store string) string {
	return filepath.Join(l.IndexDir(), store+".json")
}

// CuratedPath returns the durable curated-knowledge artifact.
func (l Layout) CuratedPath() string {
	return filepath.Join(l.Root, "curated.md")
}

// IdentityPath returns the read-only identity snapshot file.
func (l Layout) IdentityPath() string {
	return filepath.Join(l.Root, "identity.json")
}

// DailyLogPath returns the raw log file for the given day.
func (l Layout) DailyLogPath(day time.Time) string {
	return filepath.Join(l.LogDir(), day.Format("2006-01-02")+".log")
}

// AppendLine appends a single line to an append-only file, creating it if
// needed. Used for the daily raw log and the curated artifact.
func AppendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open append file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append line: %w", err)
	}
	return nil
}
