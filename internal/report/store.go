// Package report persists completed run summaries as JSON documents so
// past runs can be inspected after the process exits.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ctsuite/internal/engine/result"
	appErr "ctsuite/pkg/errors"
)

// Store writes one JSON file per run summary under a base directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, appErr.Wrapf(err, appErr.WorkspaceCreateFailed, "create report dir %s failed", dir)
	}
	return &Store{dir: dir}, nil
}

// Save persists one run summary. The filename embeds the timestamp and
// run ID so listings sort chronologically.
func (s *Store) Save(_ context.Context, summary result.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalError, "marshal run summary %s failed", summary.RunID)
	}
	name := fmt.Sprintf("%s_%s_%s.json", time.Now().UTC().Format("20060102T150405"), summary.Mode, summary.RunID)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return appErr.Wrapf(err, appErr.OutputWriteFailed, "write run summary %s failed", summary.RunID)
	}
	return nil
}

// Load reads one summary file by name.
func (s *Store) Load(name string) (result.RunSummary, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return result.RunSummary{}, appErr.Wrapf(err, appErr.NotFound, "read run summary %s failed", name)
	}
	var summary result.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return result.RunSummary{}, appErr.Wrapf(err, appErr.InvalidFormat, "parse run summary %s failed", name)
	}
	return summary, nil
}

// List returns summary filenames in chronological order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.NotFound, "list report dir failed")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
