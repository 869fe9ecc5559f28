// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logdir drives the discover → synchronize → load → commit reload
// pipeline over a storage root, owning one internal/runloader.RunLoader per
// discovered run and mirroring additions/removals into the shared commit
// snapshot (spec.md §4.6).
package logdir

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"golang.org/x/sync/errgroup"

	"github.com/ClusterCockpit/cc-metric-loader/internal/commit"
	"github.com/ClusterCockpit/cc-metric-loader/internal/eventdecoder"
	"github.com/ClusterCockpit/cc-metric-loader/internal/runloader"
	"github.com/ClusterCockpit/cc-metric-loader/pkg/storage"
)

// DefaultMaxWorkers caps the reload fan-out when NumWorkers isn't set
// explicitly, mirroring pkg/metricstore's Keys.NumWorkers default.
const DefaultMaxWorkers = 8

// runState is what the loader keeps per discovered run between cycles: its
// dedicated run-loader, and which colliding raw paths have already been
// warned about so the warning fires once, not every cycle.
type runState struct {
	loader           *runloader.RunLoader
	loggedCollisions map[string]struct{}
}

// Loader owns a storage root, the shared commit snapshot, and one
// RunLoader per discovered run.
type Loader struct {
	storage storage.Storage
	commit  *commit.Commit
	decoder eventdecoder.Decoder

	capacityOverrides map[string]int
	seed              uint64
	numWorkers        int

	// mu serializes reload cycles; runs is only ever touched while held.
	mu   sync.Mutex
	runs map[commit.Run]*runState
}

// Option configures a Loader at construction time.
type Option func(*Loader)

// WithChecksumAlways forces payload-CRC verification before every
// structured decode, instead of only on decode failure.
func WithChecksumAlways(v bool) Option {
	return func(l *Loader) { l.decoder.ChecksumAlways = v }
}

// WithCapacityOverrides installs the parsed --samples_per_plugin overrides.
func WithCapacityOverrides(overrides map[string]int) Option {
	return func(l *Loader) { l.capacityOverrides = overrides }
}

// WithNumWorkers bounds the concurrent per-run fan-out during a cycle.
func WithNumWorkers(n int) Option {
	return func(l *Loader) { l.numWorkers = n }
}

// WithSeed sets the seed of every reservoir's pseudo-random source.
func WithSeed(seed uint64) Option {
	return func(l *Loader) { l.seed = seed }
}

// New returns a Loader over s, committing discovered data into c.
func New(s storage.Storage, c *commit.Commit, opts ...Option) *Loader {
	l := &Loader{
		storage:    s,
		commit:     c,
		numWorkers: min(runtime.NumCPU()/2+1, DefaultMaxWorkers),
		runs:       make(map[commit.Run]*runState),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.numWorkers <= 0 {
		l.numWorkers = 1
	}
	return l
}

// Reload runs one discover → synchronize → load → commit cycle.
func (l *Loader) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, err := discover(l.storage)
	if err != nil {
		return err
	}

	l.synchronize(d)

	runs := make([]commit.Run, 0, len(l.runs))
	for run := range l.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i] < runs[j] })

	for _, run := range runs {
		l.logCollisions(run, d.collisions[run])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.numWorkers)
	for _, run := range runs {
		run := run
		ids := d.files[run]
		rs := l.runs[run]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			rs.loader.Reload(ids)
			rs.loader.Commit(l.commit.Get(run))
			return nil
		})
	}
	return g.Wait()
}

// synchronize adds run-loaders for newly discovered runs, drops the ones
// that vanished, and mirrors the same add/remove into the commit's outer
// map under a single write lock (spec.md §4.6 step 2).
func (l *Loader) synchronize(d *discovered) {
	wanted := make(map[commit.Run]struct{}, len(d.files))
	for run := range d.files {
		wanted[run] = struct{}{}
	}

	for run := range l.runs {
		if _, ok := wanted[run]; !ok {
			delete(l.runs, run)
		}
	}
	for run := range wanted {
		if _, ok := l.runs[run]; !ok {
			l.runs[run] = &runState{
				loader:           runloader.New(l.storage, l.decoder, l.capacityOverrides, l.seed),
				loggedCollisions: make(map[string]struct{}),
			}
		}
	}

	l.commit.Sync(wanted)
}

func (l *Loader) logCollisions(run commit.Run, extra []string) {
	if len(extra) == 0 {
		return
	}
	rs := l.runs[run]
	for _, rawPath := range extra {
		if _, logged := rs.loggedCollisions[rawPath]; logged {
			continue
		}
		rs.loggedCollisions[rawPath] = struct{}{}
		cclog.Warnf("logdir: path %q collides with run %q under lossy decoding, merging", rawPath, string(run))
	}
}

// Run drives reload cycles on a fixed interval until ctx is cancelled. A
// non-positive interval runs exactly one cycle and returns (the "once"
// reload mode).
func (l *Loader) Run(ctx context.Context, interval time.Duration) error {
	if err := l.Reload(ctx); err != nil {
		return err
	}
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Reload(ctx); err != nil {
				cclog.Errorf("logdir: reload cycle failed: %v", err)
			}
		}
	}
}

// Runs returns the set of currently-known run identifiers, sorted.
func (l *Loader) Runs() []commit.Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]commit.Run, 0, len(l.runs))
	for run := range l.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
