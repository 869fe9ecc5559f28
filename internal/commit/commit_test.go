// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package commit

import (
	"testing"

	"github.com/ClusterCockpit/cc-metric-loader/internal/eventdecoder"
	"github.com/ClusterCockpit/cc-metric-loader/internal/reservoir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncAddsAndEvictsRuns(t *testing.T) {
	c := New()
	c.Sync(map[Run]struct{}{"train": {}, "test": {}})
	assert.ElementsMatch(t, []Run{"train", "test"}, c.Runs())

	c.Sync(map[Run]struct{}{"test": {}, "val": {}})
	assert.ElementsMatch(t, []Run{"test", "val"}, c.Runs())
}

func TestSyncPreservesExistingRunData(t *testing.T) {
	c := New()
	c.Sync(map[Run]struct{}{"train": {}})
	rd := c.Get("train")
	rd.Update(func(rd *RunData) { rd.StartTime = 42 })

	c.Sync(map[Run]struct{}{"train": {}, "test": {}})
	rd2 := c.Get("train")
	require.Same(t, rd, rd2)
	assert.Equal(t, float64(42), rd2.StartTime)
}

func TestCommitScalarsEnrichesSurvivingPoints(t *testing.T) {
	rd := newRunData()
	r := reservoir.New[RawPoint](reservoir.Unbounded(), 1)
	r.Offer(0, RawPoint{WallTime: 100, Value: eventdecoder.Value{Kind: eventdecoder.KindSimple, Simple: 0.25}})
	r.Offer(1, RawPoint{WallTime: 101, Value: eventdecoder.Value{Kind: eventdecoder.KindSimple, Simple: 0.5}})

	enrich := func(p RawPoint) Entry[float32] {
		v, loss := eventdecoder.EnrichScalar(p.Value)
		return Entry[float32]{WallTime: p.WallTime, Value: v, Loss: loss}
	}
	md := eventdecoder.Metadata{PluginName: "scalars", DataClass: eventdecoder.Scalar}
	CommitScalars(rd, "accuracy", md, r, enrich)

	ser := rd.Scalars.Get("accuracy")
	require.NotNil(t, ser)
	require.Len(t, ser.Basin, 2)
	assert.Equal(t, int64(0), ser.Basin[0].Step)
	assert.Equal(t, float32(0.25), ser.Basin[0].Value)
	assert.Equal(t, float64(101), ser.Basin[1].WallTime)
	assert.Equal(t, float32(0.5), ser.Basin[1].Value)
}

func TestCommitIsIdempotentWithoutNewOffers(t *testing.T) {
	rd := newRunData()
	r := reservoir.New[RawPoint](reservoir.Unbounded(), 1)
	r.Offer(0, RawPoint{Value: eventdecoder.Value{Kind: eventdecoder.KindSimple, Simple: 1}})

	enrich := func(p RawPoint) Entry[float32] {
		v, _ := eventdecoder.EnrichScalar(p.Value)
		return Entry[float32]{WallTime: p.WallTime, Value: v}
	}
	md := eventdecoder.Metadata{PluginName: "scalars", DataClass: eventdecoder.Scalar}
	CommitScalars(rd, "loss", md, r, enrich)
	first := append([]Entry[float32]{}, rd.Scalars.Get("loss").Basin...)

	CommitScalars(rd, "loss", md, r, enrich)
	assert.Equal(t, first, rd.Scalars.Get("loss").Basin)
}

func TestRunDataLockDiscipline(t *testing.T) {
	rd := newRunData()
	rd.Update(func(rd *RunData) { rd.StartTime = 7 })
	var seen float64
	rd.View(func(rd *RunData) { seen = rd.StartTime })
	assert.Equal(t, float64(7), seen)
}
