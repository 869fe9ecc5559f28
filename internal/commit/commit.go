// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package commit holds the process-wide, reader-visible snapshot of all
// runs and their time series (spec.md §4.7). It is the only boundary
// crossing between the run loader's private reservoirs and anything that
// reads committed data.
package commit

import (
	"sync"

	"github.com/ClusterCockpit/cc-metric-loader/internal/eventdecoder"
	"github.com/ClusterCockpit/cc-metric-loader/internal/reservoir"
)

// Run identifies a logical run: the lossy string decoding of an event
// file's parent directory path, relative to the log root.
type Run string

// Tag is the name of one time series within a run.
type Tag string

// Entry is one committed point of a time series: its step, the wall-time it
// was recorded at, and either an enriched value or a DataLoss tombstone.
type Entry[V any] struct {
	Step     int64
	WallTime float64
	Value    V
	Loss     *eventdecoder.DataLoss
}

// Series is one tag's metadata plus its reader-visible basin.
type Series[V any] struct {
	Metadata eventdecoder.Metadata
	Basin    []Entry[V]
}

// TagStore maps Tag to a Series of a single value type. One RunData holds
// three TagStores, one per data class.
type TagStore[V any] struct {
	series map[Tag]*Series[V]
}

func newTagStore[V any]() TagStore[V] {
	return TagStore[V]{series: make(map[Tag]*Series[V])}
}

// Get returns the series for tag, or nil if the tag has never been
// committed to.
func (s TagStore[V]) Get(tag Tag) *Series[V] {
	return s.series[tag]
}

// Tags returns the set of tags currently present.
func (s TagStore[V]) Tags() []Tag {
	tags := make([]Tag, 0, len(s.series))
	for t := range s.series {
		tags = append(tags, t)
	}
	return tags
}

func (s TagStore[V]) getOrCreate(tag Tag, md eventdecoder.Metadata) *Series[V] {
	ser, ok := s.series[tag]
	if !ok {
		ser = &Series[V]{Metadata: md}
		s.series[tag] = ser
	}
	return ser
}

// RunData holds everything committed for one run. Guarded by its own
// lock: callers must hold the owning Commit's outer lock first (per
// spec.md §4.7's outer-before-inner discipline) before taking this one, and
// must never hold two RunData locks at the same time.
type RunData struct {
	lock sync.RWMutex

	StartTime     float64
	Scalars       TagStore[float32]
	Tensors       TagStore[eventdecoder.TensorValue]
	BlobSequences TagStore[[]byte]
}

func newRunData() *RunData {
	return &RunData{
		Scalars:       newTagStore[float32](),
		Tensors:       newTagStore[eventdecoder.TensorValue](),
		BlobSequences: newTagStore[[]byte](),
	}
}

// View runs f with the run-data's read lock held. f must not block or
// re-enter the Commit.
func (rd *RunData) View(f func(*RunData)) {
	rd.lock.RLock()
	defer rd.lock.RUnlock()
	f(rd)
}

// Update runs f with the run-data's write lock held.
func (rd *RunData) Update(f func(*RunData)) {
	rd.lock.Lock()
	defer rd.lock.Unlock()
	f(rd)
}

// Commit is the outer map[Run]*RunData guarded by a single RWMutex, exactly
// mirroring the teacher's GlobalState/Level two-level locking discipline.
type Commit struct {
	lock sync.RWMutex
	runs map[Run]*RunData
}

// New returns an empty commit.
func New() *Commit {
	return &Commit{runs: make(map[Run]*RunData)}
}

// Get returns the run-data for run, or nil if the run is not (yet, or any
// longer) present.
func (c *Commit) Get(run Run) *RunData {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.runs[run]
}

// Runs returns the current set of run names.
func (c *Commit) Runs() []Run {
	c.lock.RLock()
	defer c.lock.RUnlock()
	runs := make([]Run, 0, len(c.runs))
	for r := range c.runs {
		runs = append(runs, r)
	}
	return runs
}

// Sync reconciles the run set with wanted: runs present in wanted but
// absent from the commit are created with empty run-data; runs present in
// the commit but absent from wanted are evicted. This is spec.md §4.6 step
// 2 ("Synchronize"), done under a single outer write-lock acquisition.
func (c *Commit) Sync(wanted map[Run]struct{}) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for r := range c.runs {
		if _, ok := wanted[r]; !ok {
			delete(c.runs, r)
		}
	}
	for r := range wanted {
		if _, ok := c.runs[r]; !ok {
			c.runs[r] = newRunData()
		}
	}
}

// RawPoint is what the run loader offers to a reservoir: the raw,
// not-yet-enriched payload value paired with the wall-time it was recorded
// at (spec.md §4.5: "Offer (step, {wall_time, payload}) to the reservoir").
type RawPoint struct {
	WallTime float64
	Value    eventdecoder.Value
}

// CommitScalars merges a reservoir's staged points for tag into rd's
// scalar tag store, enriching with enrich (applied only to points that
// survive eviction — see reservoir.Commit).
func CommitScalars(rd *RunData, tag Tag, md eventdecoder.Metadata, r *reservoir.Reservoir[RawPoint], enrich func(RawPoint) Entry[float32]) {
	ser := rd.Scalars.getOrCreate(tag, md)
	commitSeries(r, ser, enrich)
}

// CommitTensors is CommitScalars's analog for the tensor data class.
func CommitTensors(rd *RunData, tag Tag, md eventdecoder.Metadata, r *reservoir.Reservoir[RawPoint], enrich func(RawPoint) Entry[eventdecoder.TensorValue]) {
	ser := rd.Tensors.getOrCreate(tag, md)
	commitSeries(r, ser, enrich)
}

// CommitBlobSequences is CommitScalars's analog for the blob-sequence data
// class.
func CommitBlobSequences(rd *RunData, tag Tag, md eventdecoder.Metadata, r *reservoir.Reservoir[RawPoint], enrich func(RawPoint) Entry[[]byte]) {
	ser := rd.BlobSequences.getOrCreate(tag, md)
	commitSeries(r, ser, enrich)
}

// commitSeries adapts reservoir.Commit's generic Point shape to this
// package's Entry shape, preserving the surviving-points-only enrichment
// guarantee.
func commitSeries[V any](r *reservoir.Reservoir[RawPoint], ser *Series[V], enrich func(RawPoint) Entry[V]) {
	basin := entriesToPoints(ser.Basin)
	reservoir.Commit(r, &basin, enrich)
	ser.Basin = pointsToEntries(basin)
}

func entriesToPoints[V any](entries []Entry[V]) []reservoir.Point[Entry[V]] {
	pts := make([]reservoir.Point[Entry[V]], len(entries))
	for i, e := range entries {
		pts[i] = reservoir.Point[Entry[V]]{Step: e.Step, Value: e}
	}
	return pts
}

func pointsToEntries[V any](pts []reservoir.Point[Entry[V]]) []Entry[V] {
	entries := make([]Entry[V], len(pts))
	for i, p := range pts {
		e := p.Value
		e.Step = p.Step
		entries[i] = e
	}
	return entries
}
