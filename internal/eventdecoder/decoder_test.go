// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventdecoder

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/ClusterCockpit/cc-metric-loader/internal/eventio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordFor(t *testing.T, payload []byte) *eventio.Record {
	t.Helper()
	return &eventio.Record{Payload: payload, ExpectedPayloadCRC: eventio.MaskedCompute(payload)}
}

func TestDecodeSummaryScalar(t *testing.T) {
	payload, err := json.Marshal(wireEvent{
		WallTime: 12.5,
		Step:     3,
		Summary: []wireSummaryVal{
			{Tag: "loss", Metadata: &wireMetadata{PluginName: "scalars", DataClass: Scalar.wireString()}, Simple: f32ptr(0.5)},
		},
	})
	require.NoError(t, err)

	d := &Decoder{}
	ev, err := d.Decode(recordFor(t, payload))
	require.NoError(t, err)
	assert.Equal(t, KindSummary, ev.Kind)
	assert.Equal(t, int64(3), ev.Step)
	require.Len(t, ev.Summary, 1)
	assert.Equal(t, "loss", ev.Summary[0].Tag)
	assert.Equal(t, KindSimple, ev.Summary[0].Value.Kind)
}

func TestDecodeChecksumAlwaysRejectsBadCrc(t *testing.T) {
	payload, err := json.Marshal(wireEvent{WallTime: 1, Step: 1})
	require.NoError(t, err)
	rec := recordFor(t, payload)
	rec.ExpectedPayloadCRC ^= 0xFFFFFFFF // corrupt

	d := &Decoder{ChecksumAlways: true}
	_, err = d.Decode(rec)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDecodeDefaultModeTriesStructuredFirst(t *testing.T) {
	payload, err := json.Marshal(wireEvent{WallTime: 1, Step: 1})
	require.NoError(t, err)
	rec := recordFor(t, payload)
	rec.ExpectedPayloadCRC ^= 0xFFFFFFFF // corrupt, but should decode fine anyway

	d := &Decoder{}
	ev, err := d.Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.Step)
}

func TestDecodeDefaultModeFallsBackToCrcOnGarbage(t *testing.T) {
	rec := recordFor(t, []byte("not json"))
	d := &Decoder{}
	_, err := d.Decode(rec)
	var ipe *InvalidProtoError
	require.True(t, errors.As(err, &ipe))
}

func TestDecodeDefaultModeGarbageAndBadCrcIsInvalidRecord(t *testing.T) {
	rec := recordFor(t, []byte("not json"))
	rec.ExpectedPayloadCRC ^= 0xFFFFFFFF
	d := &Decoder{}
	_, err := d.Decode(rec)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDecodeAcceptsInfiniteWallTime(t *testing.T) {
	// A non-finite wall-time is not screened out here; it decodes fine and
	// is instead caught and dropped by the run loader's route step. Per
	// protobuf's JSON mapping, non-finite doubles are quoted strings.
	d := &Decoder{}
	ev, err := d.decodeStructured([]byte(`{"wall_time": "Infinity", "step": 1}`))
	require.NoError(t, err)
	assert.True(t, math.IsInf(ev.WallTime, 1))
}

func TestDecodeAcceptsNanWallTime(t *testing.T) {
	d := &Decoder{}
	ev, err := d.decodeStructured([]byte(`{"wall_time": "NaN", "step": 1}`))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ev.WallTime))
}

func TestNormalizeMetadataSimpleValueForcesScalars(t *testing.T) {
	got := NormalizeMetadata(Value{Kind: KindSimple}, nil)
	assert.Equal(t, Metadata{PluginName: "scalars", DataClass: Scalar}, got)
}

func TestNormalizeMetadataLegacyPluginInfersClass(t *testing.T) {
	md := &Metadata{PluginName: "images"}
	got := NormalizeMetadata(Value{Kind: KindImage}, md)
	assert.Equal(t, BlobSequence, got.DataClass)
}

func TestNormalizeMetadataAlreadyClassifiedPassesThrough(t *testing.T) {
	md := &Metadata{PluginName: "custom", DataClass: Tensor}
	got := NormalizeMetadata(Value{Kind: KindTensor}, md)
	assert.Equal(t, *md, got)
}

func TestEnrichScalarSimple(t *testing.T) {
	v, loss := EnrichScalar(Value{Kind: KindSimple, Simple: 1.5})
	require.Nil(t, loss)
	assert.Equal(t, float32(1.5), v)
}

func TestEnrichScalarRankZeroFloatVal(t *testing.T) {
	v, loss := EnrichScalar(Value{Kind: KindTensor, Tensor: TensorValue{FloatVal: []float32{2.5}}})
	require.Nil(t, loss)
	assert.Equal(t, float32(2.5), v)
}

func TestEnrichScalarRankZeroRawBytes(t *testing.T) {
	raw := []byte{0, 0, 0x80, 0x3f} // little-endian float32(1.0)
	v, loss := EnrichScalar(Value{Kind: KindTensor, Tensor: TensorValue{RawBytes: raw}})
	require.Nil(t, loss)
	assert.Equal(t, float32(1.0), v)
}

func TestEnrichScalarRejectsNonScalarTensor(t *testing.T) {
	_, loss := EnrichScalar(Value{Kind: KindTensor, Tensor: TensorValue{Dims: []int64{3}}})
	require.NotNil(t, loss)
}

func TestEnrichScalarRejectsOtherKinds(t *testing.T) {
	_, loss := EnrichScalar(Value{Kind: KindImage})
	require.NotNil(t, loss)
}

func f32ptr(v float32) *float32 { return &v }
