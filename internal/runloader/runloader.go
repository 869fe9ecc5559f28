// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runloader owns one run's event-file cursors, advances their
// record readers, and routes decoded points into per-tag reservoirs
// (spec.md §4.5). Grounded on pkg/metricstore.go's Init sequencing (load
// state → start processing) and pkg/archive/fsBackend.go's deterministic
// directory-entry handling.
package runloader

import (
	"errors"
	"math"
	"sort"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/ClusterCockpit/cc-metric-loader/internal/commit"
	"github.com/ClusterCockpit/cc-metric-loader/internal/eventdecoder"
	"github.com/ClusterCockpit/cc-metric-loader/internal/reservoir"
	"github.com/ClusterCockpit/cc-metric-loader/pkg/storage"
)

// seriesState is what the run loader keeps per tag between commits: the
// metadata fixed on first sight, and the writer-private reservoir.
type seriesState struct {
	metadata  eventdecoder.Metadata
	class     eventdecoder.DataClass
	reservoir *reservoir.Reservoir[commit.RawPoint]
}

// RunLoader is the owner of one run's event files and in-flight reservoirs.
type RunLoader struct {
	storage storage.Storage
	decoder eventdecoder.Decoder

	// capacityOverrides maps a plugin name to a reservoir capacity
	// override from --samples_per_plugin; config.AllSamples means
	// unbounded.
	capacityOverrides map[string]int
	seed              uint64

	files     map[storage.FileID]*eventFile
	series    map[commit.Tag]*seriesState
	startTime float64
	haveStart bool
}

// New returns a RunLoader with no files or series yet. seed seeds the
// pseudo-random source of every reservoir this loader creates, so a
// run's sampled contents are a deterministic function of its event stream.
func New(s storage.Storage, decoder eventdecoder.Decoder, capacityOverrides map[string]int, seed uint64) *RunLoader {
	return &RunLoader{
		storage:           s,
		decoder:           decoder,
		capacityOverrides: capacityOverrides,
		seed:              seed,
		files:             make(map[storage.FileID]*eventFile),
		series:            make(map[commit.Tag]*seriesState),
		startTime:         math.Inf(1),
	}
}

// Reload advances this run's event files given the set of file identifiers
// currently discovered for it (spec.md §4.5's reload).
func (rl *RunLoader) Reload(currentIDs []storage.FileID) {
	current := make(map[storage.FileID]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		current[id] = struct{}{}
	}

	for id, f := range rl.files {
		if _, ok := current[id]; !ok && !f.dead {
			f.dead = true
			f.closeIfOpen()
			cclog.Infof("runloader: file vanished, marking dead: %s", id)
		}
	}

	for _, id := range currentIDs {
		if _, ok := rl.files[id]; ok {
			continue
		}
		f, err := openEventFile(rl.storage, id)
		if err != nil {
			cclog.Warnf("runloader: open %s: %v", id, err)
			rl.files[id] = &eventFile{dead: true}
			continue
		}
		rl.files[id] = f
	}

	ids := make([]storage.FileID, 0, len(rl.files))
	for id := range rl.files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		f := rl.files[id]
		if f.dead {
			continue
		}
		rl.drain(id, f)
	}
}

// drain repeatedly reads records from f until it returns Truncated (resume
// point preserved for next cycle) or a fatal error (f becomes Dead). A
// record with a bad payload CRC is skipped and reading continues.
func (rl *RunLoader) drain(id storage.FileID, f *eventFile) {
	for {
		ev, err := f.readNext(&rl.decoder)
		if err != nil {
			if errors.Is(err, eventdecoder.ErrInvalidRecord) {
				cclog.Warnf("runloader: %s: %v, skipping record", id, err)
				continue
			}
			if isFatal(err) {
				cclog.Warnf("runloader: %s: %v, marking dead", id, err)
				f.dead = true
				f.closeIfOpen()
			}
			return
		}
		rl.route(ev)
	}
}

// route dispatches one decoded event, per spec.md §4.5.
func (rl *RunLoader) route(ev *eventdecoder.Event) {
	if math.IsNaN(ev.WallTime) || math.IsInf(ev.WallTime, 0) {
		cclog.Warnf("runloader: dropping event with non-finite wall-time at step %d", ev.Step)
		return
	}
	if ev.WallTime < rl.startTime {
		rl.startTime = ev.WallTime
		rl.haveStart = true
	}

	switch ev.Kind {
	case eventdecoder.KindFileVersion, eventdecoder.KindGraphDef:
		return
	case eventdecoder.KindSummary:
		for _, entry := range ev.Summary {
			rl.routeSummaryEntry(ev.Step, ev.WallTime, entry)
		}
	}
}

func (rl *RunLoader) routeSummaryEntry(step int64, wallTime float64, entry eventdecoder.SummaryEntry) {
	tag := commit.Tag(entry.Tag)
	ss, ok := rl.series[tag]
	if !ok {
		md := eventdecoder.NormalizeMetadata(entry.Value, entry.Metadata)
		class := md.DataClass
		capacity := rl.capacityFor(md.PluginName, class)
		ss = &seriesState{
			metadata:  md,
			class:     class,
			reservoir: reservoir.New[commit.RawPoint](capacity, rl.seed),
		}
		rl.series[tag] = ss
	}

	if ss.class == eventdecoder.Unknown {
		return // inert: capacity 0, nothing is ever retained
	}
	ss.reservoir.Offer(step, commit.RawPoint{WallTime: wallTime, Value: entry.Value})
}

func (rl *RunLoader) capacityFor(plugin string, class eventdecoder.DataClass) reservoir.Capacity {
	if n, ok := rl.capacityOverrides[plugin]; ok {
		if n < 0 {
			return reservoir.Unbounded()
		}
		return reservoir.Bounded(n)
	}
	return reservoir.Bounded(eventdecoder.ReservoirCapacity(class))
}

// StartTime returns the earliest wall-time observed so far, or 0 if no
// event has been routed yet.
func (rl *RunLoader) StartTime() float64 {
	if !rl.haveStart {
		return 0
	}
	return rl.startTime
}

// Commit flushes every tag's staged reservoir items into rd, applying
// data-class-specific enrichment at commit time (spec.md §4.6 step 4).
func (rl *RunLoader) Commit(rd *commit.RunData) {
	rd.Update(func(rd *commit.RunData) {
		if rl.haveStart && (rd.StartTime == 0 || rl.startTime < rd.StartTime) {
			rd.StartTime = rl.startTime
		}
		for tag, ss := range rl.series {
			switch ss.class {
			case eventdecoder.Scalar:
				commit.CommitScalars(rd, tag, ss.metadata, ss.reservoir, enrichScalar)
			case eventdecoder.Tensor:
				commit.CommitTensors(rd, tag, ss.metadata, ss.reservoir, enrichTensor)
			case eventdecoder.BlobSequence:
				commit.CommitBlobSequences(rd, tag, ss.metadata, ss.reservoir, enrichBlob)
			}
		}
	})
}

func enrichScalar(p commit.RawPoint) commit.Entry[float32] {
	v, loss := eventdecoder.EnrichScalar(p.Value)
	return commit.Entry[float32]{WallTime: p.WallTime, Value: v, Loss: loss}
}

func enrichTensor(p commit.RawPoint) commit.Entry[eventdecoder.TensorValue] {
	return commit.Entry[eventdecoder.TensorValue]{WallTime: p.WallTime, Value: p.Value.Tensor}
}

func enrichBlob(p commit.RawPoint) commit.Entry[[]byte] {
	return commit.Entry[[]byte]{WallTime: p.WallTime, Value: p.Value.Opaque}
}
