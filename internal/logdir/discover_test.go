// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logdir

import (
	"sort"
	"testing"

	"github.com/ClusterCockpit/cc-metric-loader/internal/commit"
	"github.com/ClusterCockpit/cc-metric-loader/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discoverOnlyStorage struct {
	groups map[string][]storage.FileID
}

func (s *discoverOnlyStorage) Discover() (map[string][]storage.FileID, error) {
	return s.groups, nil
}

func (s *discoverOnlyStorage) Open(id storage.FileID) (storage.ReadableByteStream, error) {
	panic("discover never opens files")
}

func TestDiscoverGroupsDistinctPathsAsSeparateRuns(t *testing.T) {
	s := &discoverOnlyStorage{groups: map[string][]storage.FileID{
		"train": {"events.1"},
		"test":  {"events.2"},
	}}
	d, err := discover(s)
	require.NoError(t, err)
	assert.Len(t, d.files, 2)
	assert.Contains(t, d.files, commit.Run("train"))
	assert.Contains(t, d.files, commit.Run("test"))
	assert.Empty(t, d.collisions)
}

func TestDiscoverMergesLossyDecodingCollisions(t *testing.T) {
	// \xfe and \xff are each, standalone, invalid UTF-8 and so both decode
	// lossily to the same single replacement rune.
	s := &discoverOnlyStorage{groups: map[string][]storage.FileID{
		"run\xfe": {"a.events"},
		"run\xff": {"b.events"},
	}}
	d, err := discover(s)
	require.NoError(t, err)
	require.Len(t, d.files, 1)

	canonical := commit.Run("run\xfe") // lexicographically smaller raw path wins
	ids, ok := d.files[canonical]
	require.True(t, ok)
	assert.ElementsMatch(t, []storage.FileID{"a.events", "b.events"}, ids)

	require.Contains(t, d.collisions, canonical)
	assert.Equal(t, []string{"run\xff"}, d.collisions[canonical])
}

func TestDiscoverFileIDsAreSortedWithinARun(t *testing.T) {
	s := &discoverOnlyStorage{groups: map[string][]storage.FileID{
		"run": {"z.events", "a.events", "m.events"},
	}}
	d, err := discover(s)
	require.NoError(t, err)
	ids := d.files[commit.Run("run")]
	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] < ids[j] }))
}

func TestDiscoverDistinctValidPathsNeverCollide(t *testing.T) {
	s := &discoverOnlyStorage{groups: map[string][]storage.FileID{
		"train": {"events.1"},
		"valid": {"events.2"},
	}}
	d, err := discover(s)
	require.NoError(t, err)
	assert.Empty(t, d.collisions)
}
