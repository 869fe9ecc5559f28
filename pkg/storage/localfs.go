// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// LocalFS is a Storage backed by a local filesystem directory tree. It
// follows symlinks and walks deterministically (sorted directory entries
// at every level), matching spec.md §6's "local filesystem (recursive
// walk, follow symlinks, deterministic sort)".
type LocalFS struct {
	root string
}

// NewLocalFS returns a LocalFS rooted at root.
func NewLocalFS(root string) *LocalFS {
	return &LocalFS{root: root}
}

func (l *LocalFS) Discover() (map[string][]FileID, error) {
	groups := make(map[string][]FileID)

	// filepath.WalkDir (and the old filepath.Walk) both Lstat every entry
	// and never descend into a symlinked directory. Following symlinks, as
	// spec.md §6 requires, needs a hand-rolled recursive descent that Stats
	// (rather than Lstats) each entry; realPathsSeen guards against the
	// symlink cycles that introduces, the same way the walkdir crate's
	// follow_links(true) does.
	realPathsSeen := make(map[string]struct{})
	if err := l.walk(l.root, realPathsSeen, groups); err != nil {
		return nil, fmt.Errorf("storage: walk %s: %w", l.root, err)
	}

	for rel := range groups {
		ids := groups[rel]
		sort.Slice(ids, func(i, j int) bool { return strings.Compare(string(ids[i]), string(ids[j])) < 0 })
		groups[rel] = ids
	}
	return groups, nil
}

func (l *LocalFS) walk(dir string, realPathsSeen map[string]struct{}, groups map[string][]FileID) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if os.IsNotExist(err) {
			cclog.Infof("storage: path vanished during walk: %s", dir)
			return nil
		}
		cclog.Warnf("storage: walk error at %s: %v", dir, err)
		return nil
	}
	if _, ok := realPathsSeen[real]; ok {
		return nil // symlink cycle back to an ancestor directory
	}
	realPathsSeen[real] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			cclog.Infof("storage: path vanished during walk: %s", dir)
			return nil
		}
		cclog.Warnf("storage: walk error at %s: %v", dir, err)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path) // Stat, not Lstat: resolves symlinks
		if err != nil {
			if os.IsNotExist(err) {
				cclog.Infof("storage: path vanished during walk: %s", path)
				continue
			}
			cclog.Warnf("storage: walk error at %s: %v", path, err)
			continue
		}
		if info.IsDir() {
			if err := l.walk(path, realPathsSeen, groups); err != nil {
				return err
			}
			continue
		}
		if !IsEventFileCandidate(info.Name()) {
			continue
		}

		rel, err := filepath.Rel(l.root, dir)
		if err != nil {
			cclog.Warnf("storage: relative path error for %s: %v", path, err)
			continue
		}
		if rel == "" {
			rel = "."
		}
		rel = filepath.ToSlash(rel)

		id, err := filepath.Rel(l.root, path)
		if err != nil {
			continue
		}
		groups[rel] = append(groups[rel], FileID(filepath.ToSlash(id)))
	}
	return nil
}

func (l *LocalFS) Open(id FileID) (ReadableByteStream, error) {
	f, err := os.Open(filepath.Join(l.root, filepath.FromSlash(string(id))))
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", id, err)
	}
	return f, nil
}
