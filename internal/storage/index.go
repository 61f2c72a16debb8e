package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LoadState classifies the outcome of reading an index file. A missing file
// and a corrupt file both default to empty state downstream, but callers can
// tell them apart and log the corruption instead of silently masking it.
type LoadState int

const (
	LoadOK LoadState = iota
	LoadEmpty
	LoadCorrupt
)

// LoadResult is the typed outcome of LoadIndex.
type LoadResult struct {
	State  LoadState
	Reason string // set when State == LoadCorrupt
}

// LoadIndex reads a JSON index into v. It never returns an error for a
// missing or unparseable file (resilience against damaged state is the
// point) but the result says which case was hit.
func LoadIndex(path string, v any) LoadResult {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return LoadResult{State: LoadEmpty}
	}
	if err != nil {
		return LoadResult{State: LoadCorrupt, Reason: err.Error()}
	}
	if len(data) == 0 {
		return LoadResult{State: LoadEmpty}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return LoadResult{State: LoadCorrupt, Reason: fmt.Sprintf("parse %s: %v", filepath.Base(path), err)}
	}
	return LoadResult{State: LoadOK}
}

// SaveIndex rewrites a JSON index whole, via a temp file and rename so a
// crashed writer never leaves a torn index behind. Indented output keeps the
// files diff-friendly.
func SaveIndex(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}
