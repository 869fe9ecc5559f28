// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reservoir implements the preemption-aware, bounded reservoir
// sampler with a staged/committed split described in spec.md §4.4.
//
// One Reservoir is owned by exactly one time series and accessed from a
// single goroutine (the run loader that feeds it); Commit is the only
// operation that crosses into reader-visible state, and it is called by the
// same owner under the commit's outer/inner lock discipline (see
// internal/commit).
package reservoir

import "math/rand/v2"

// Capacity is Unbounded or a fixed non-negative size.
type Capacity struct {
	unbounded bool
	n         int
}

// Unbounded returns a Capacity that never evicts.
func Unbounded() Capacity { return Capacity{unbounded: true} }

// Bounded returns a Capacity holding up to n items (n may be 0, which
// accepts nothing).
func Bounded(n int) Capacity {
	if n < 0 {
		n = 0
	}
	return Capacity{n: n}
}

func (c Capacity) isBounded() bool { return !c.unbounded }
func (c Capacity) value() int      { return c.n }

type item[T any] struct {
	step  int64
	value T
}

// Reservoir is a uniformly-random bounded sample of up to Capacity points
// from an unbounded offer stream, always retaining the most recently
// offered point, and correctly truncating on preemption (a later offer
// whose step does not exceed one already held).
type Reservoir[T any] struct {
	capacity  Capacity
	committed []int64   // steps already exposed via a prior Commit, step-sorted
	staged    []item[T] // items offered since the last Commit, step-sorted
	seen      uint64
	rng       *rand.Rand
}

// New returns an empty reservoir with the given capacity. seed fixes the
// pseudo-random source so that, per spec.md §4.4, identical offer sequences
// produce identical reservoir contents regardless of commit cadence.
func New[T any](capacity Capacity, seed uint64) *Reservoir[T] {
	return &Reservoir[T]{
		capacity: capacity,
		rng:      rand.New(rand.NewPCG(seed, seed)),
	}
}

// Len returns the current number of items held (committed + staged).
func (r *Reservoir[T]) Len() int {
	return len(r.committed) + len(r.staged)
}

// Offer presents one (step, value) pair to the reservoir.
func (r *Reservoir[T]) Offer(step int64, value T) {
	if r.capacity.isBounded() && r.capacity.value() == 0 {
		return
	}

	r.preempt(step)
	r.seen++

	if r.capacity.isBounded() {
		cap := r.capacity.value()
		if int(r.seen) > cap {
			dst := r.rng.IntN(int(r.seen))
			if dst >= cap {
				// Keep-last: evict the most recently retained element so
				// the newly offered point (appended below) becomes the
				// new most-recent entry.
				r.evictMostRecent()
			} else if r.Len() >= cap {
				r.evictAt(dst)
			}
		}
	}

	r.staged = append(r.staged, item[T]{step: step, value: value})
}

// preempt drops every entry whose step is >= the incoming step, first from
// the staged tail, then (only if staged is emptied entirely) from the
// committed tail, and rescales seen proportionally to the surviving length.
func (r *Reservoir[T]) preempt(step int64) {
	oldLen := r.Len()
	oldSeen := r.seen

	i := len(r.staged)
	for i > 0 && r.staged[i-1].step >= step {
		i--
	}
	r.staged = r.staged[:i]

	if len(r.staged) == 0 {
		j := len(r.committed)
		for j > 0 && r.committed[j-1] >= step {
			j--
		}
		r.committed = r.committed[:j]
	}

	newLen := r.Len()
	if newLen == oldLen {
		return
	}
	if newLen == 0 {
		r.seen = 0
		return
	}
	if oldLen > 0 {
		r.seen = oldSeen * uint64(newLen) / uint64(oldLen)
	}
}

// evictMostRecent removes the newest retained item (the tail of staged, or
// if staged is empty, the tail of committed).
func (r *Reservoir[T]) evictMostRecent() {
	if len(r.staged) > 0 {
		r.staged = r.staged[:len(r.staged)-1]
		return
	}
	if len(r.committed) > 0 {
		r.committed = r.committed[:len(r.committed)-1]
	}
}

// evictAt removes the item at position dst in the combined
// committed-then-staged ordering.
func (r *Reservoir[T]) evictAt(dst int) {
	if dst < len(r.committed) {
		r.committed = append(r.committed[:dst], r.committed[dst+1:]...)
		return
	}
	i := dst - len(r.committed)
	r.staged = append(r.staged[:i], r.staged[i+1:]...)
}

// Point is one (step, value) entry as exposed by Commit into a Basin.
type Point[V any] struct {
	Step  int64
	Value V
}

// Commit walks basin in step order, retaining only entries whose step still
// appears in r.committed (an in-order two-pointer merge, since both sides
// are step-sorted), then drains staged into the basin via f — the identity
// function for a plain commit, or an expensive enrichment function that
// only ever runs on points that survive to be committed.
//
// Commit is idempotent if no Offer calls intervene: committed is already in
// sync with basin, and staged is empty.
func Commit[T, V any](r *Reservoir[T], basin *[]Point[V], f func(T) V) {
	filtered := (*basin)[:0]
	ci := 0
	for _, p := range *basin {
		if ci < len(r.committed) && r.committed[ci] == p.Step {
			filtered = append(filtered, p)
			ci++
		}
	}
	*basin = filtered

	for _, it := range r.staged {
		r.committed = append(r.committed, it.step)
		*basin = append(*basin, Point[V]{Step: it.step, Value: f(it.value)})
	}
	r.staged = r.staged[:0]
}
