// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package eventdecoder parses a framed record's payload into a structured
// event and normalizes legacy value encodings into one of: graph definition,
// scalar, tensor, or blob sequence.
//
// The wire format of the embedded message is out of scope for this core
// (spec.md §1); decoder input is a small JSON envelope carrying the same
// semantic fields a real training-event proto would (wall-time, step,
// file-version marker, graph-def blob, summary tag/value entries).
package eventdecoder

// DataClass classifies a time series' value shape.
type DataClass int

const (
	Unknown DataClass = iota
	Scalar
	Tensor
	BlobSequence
)

func (c DataClass) String() string {
	switch c {
	case Scalar:
		return "Scalar"
	case Tensor:
		return "Tensor"
	case BlobSequence:
		return "BlobSequence"
	default:
		return "Unknown"
	}
}

// Metadata carries the plugin name and data class for a time series,
// synthesized (or passed through) on the first point of that series.
type Metadata struct {
	PluginName string
	DataClass  DataClass
}

// TensorValue is a minimal stand-in for the tensor payload shape this core
// needs to enrich: rank-0 float32 tensors encoded either as a single float
// entry or as 4 little-endian raw bytes.
type TensorValue struct {
	Dims     []int64
	DType    string // only "" (unset) and "DT_FLOAT" are enriched
	FloatVal []float32
	RawBytes []byte
}

// Value is the sum type of legacy value shapes a Summary entry may carry.
// Exactly one field is meaningful, selected by Kind.
type Value struct {
	Kind   ValueKind
	Simple float32
	Tensor TensorValue
	// Image, Audio, and Histogram payloads are carried opaquely: this core
	// never interprets their bytes, only classifies and stores them.
	Opaque []byte
}

type ValueKind int

const (
	KindSimple ValueKind = iota
	KindTensor
	KindImage
	KindAudio
	KindHistogram
)

// SummaryEntry is one tag/value pair within a Summary event, with optional
// attached metadata (present only on some wire encodings, typically the
// first point of a series).
type SummaryEntry struct {
	Tag      string
	Metadata *Metadata
	Value    Value
}

// EventKind discriminates the outer event variants this core interprets.
// A payload carrying neither a file version nor a graph def decodes as a
// Summary, with no entries if it has no summary values.
type EventKind int

const (
	KindFileVersion EventKind = iota
	KindGraphDef
	KindSummary
)

// Event is one decoded record: a file-version marker, an opaque graph
// definition, or a summary carrying one or more tag/value entries.
type Event struct {
	Kind        EventKind
	WallTime    float64
	Step        int64
	FileVersion string
	GraphDef    []byte
	Summary     []SummaryEntry
}

// DataLoss is the tombstone value stored in a reservoir when scalar
// enrichment cannot reduce a point's raw value to a float32 (spec.md §4.3).
// Reader-side code filters these out.
type DataLoss struct {
	Reason string
}

func (d *DataLoss) Error() string { return "data loss: " + d.Reason }
