// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logdir

import (
	"sort"
	"strings"

	"github.com/ClusterCockpit/cc-metric-loader/internal/commit"
	"github.com/ClusterCockpit/cc-metric-loader/pkg/storage"
)

// discovered is one reload cycle's view of the storage root: the event
// file identifiers grouped by canonical run path, and for each run any
// additional raw paths that collided into it under lossy decoding.
type discovered struct {
	files      map[commit.Run][]storage.FileID
	collisions map[commit.Run][]string
}

// discover groups storage's raw per-directory candidates into runs. Two
// distinct raw directory paths can decode, lossily, to the same string;
// when that happens the lexicographically smallest raw path becomes the
// run's canonical identity and the rest are recorded as collisions so the
// caller can warn about them exactly once each (spec's "group candidates
// by the lossy string decoding ... empty relative path normalizes to .").
func discover(s storage.Storage) (*discovered, error) {
	raw, err := s.Discover()
	if err != nil {
		return nil, err
	}

	byCanonical := make(map[string][]string, len(raw))
	for rawPath := range raw {
		canon := lossyDecode(rawPath)
		byCanonical[canon] = append(byCanonical[canon], rawPath)
	}

	d := &discovered{
		files:      make(map[commit.Run][]storage.FileID, len(byCanonical)),
		collisions: make(map[commit.Run][]string),
	}
	for _, rawPaths := range byCanonical {
		sort.Strings(rawPaths)

		run := commit.Run(rawPaths[0])
		var ids []storage.FileID
		for _, rp := range rawPaths {
			ids = append(ids, raw[rp]...)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		d.files[run] = ids

		if len(rawPaths) > 1 {
			d.collisions[run] = rawPaths[1:]
		}
	}
	return d, nil
}

// lossyDecode mimics a writer that replaces invalid UTF-8 byte sequences
// in a directory name with the Unicode replacement character. Two raw
// paths differing only in how their invalid bytes are replaced can
// collapse onto the same canonical string; that collision is what
// discover reconciles.
func lossyDecode(path string) string {
	return strings.ToValidUTF8(path, "�")
}
