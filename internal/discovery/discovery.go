// Package discovery finds conversion work items on the filesystem.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// Discoverer walks an input directory for Markdown documents.
type Discoverer struct {
	log *slog.Logger
}

// NewDiscoverer creates a filesystem discoverer.
func NewDiscoverer(log *slog.Logger) *Discoverer {
	return &Discoverer{log: log}
}

// Discover returns the Markdown files under inputDir in deterministic
// (sorted) order. Hidden directories are skipped.
func (d *Discoverer) Discover(ctx context.Context, inputDir string) ([]string, error) {
	var items []string

	err := filepath.WalkDir(inputDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			if path != inputDir && strings.HasPrefix(entry.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			items = append(items, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}

	sort.Strings(items)
	d.log.Info("Discovered input files", "dir", inputDir, "count", len(items))
	return items, nil
}
