// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventdecoder

import (
	"encoding/json"
	"fmt"
	"math"
)

// wireEvent is the on-the-wire JSON envelope decoded from a record payload.
// See the package doc comment for why JSON stands in for the real,
// out-of-scope protobuf schema.
type wireEvent struct {
	WallTime    wireDouble       `json:"wall_time"`
	Step        int64            `json:"step"`
	FileVersion string           `json:"file_version,omitempty"`
	GraphDef    []byte           `json:"graph_def,omitempty"`
	Summary     []wireSummaryVal `json:"summary,omitempty"`
}

// wireDouble decodes a JSON double the way protobuf's canonical JSON mapping
// does: ordinary numbers decode as usual, but NaN and the two infinities
// decode from the quoted strings "NaN", "Infinity", "-Infinity", since
// plain JSON numbers cannot represent them (encoding/json's own float64
// decoding rejects any literal outside the finite range).
type wireDouble float64

func (d *wireDouble) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*d = wireDouble(math.NaN())
		case "Infinity":
			*d = wireDouble(math.Inf(1))
		case "-Infinity":
			*d = wireDouble(math.Inf(-1))
		default:
			return fmt.Errorf("eventdecoder: invalid wall_time string %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*d = wireDouble(f)
	return nil
}

type wireSummaryVal struct {
	Tag      string         `json:"tag"`
	Metadata *wireMetadata  `json:"metadata,omitempty"`
	Simple   *float32       `json:"simple_value,omitempty"`
	Tensor   *wireTensor    `json:"tensor,omitempty"`
	Image    []byte         `json:"image,omitempty"`
	Audio    []byte         `json:"audio,omitempty"`
	Histo    []byte         `json:"histo,omitempty"`
}

type wireMetadata struct {
	PluginName string `json:"plugin_name,omitempty"`
	DataClass  string `json:"data_class,omitempty"` // "", "scalar", "tensor", "blob_sequence"
}

type wireTensor struct {
	Dims     []int64   `json:"dims,omitempty"`
	DType    string    `json:"dtype,omitempty"`
	FloatVal []float32 `json:"float_val,omitempty"`
	RawBytes []byte    `json:"raw_bytes,omitempty"`
}

func dataClassFromWire(s string) (DataClass, bool) {
	switch s {
	case "scalar":
		return Scalar, true
	case "tensor":
		return Tensor, true
	case "blob_sequence":
		return BlobSequence, true
	default:
		return Unknown, false
	}
}

func (c DataClass) wireString() string {
	switch c {
	case Scalar:
		return "scalar"
	case Tensor:
		return "tensor"
	case BlobSequence:
		return "blob_sequence"
	default:
		return ""
	}
}

// parseWire unmarshals the raw record payload. The caller reports a
// structural error (malformed JSON) as InvalidProtoError, or as
// ErrInvalidRecord when the payload CRC is also bad.
func parseWire(payload []byte) (*wireEvent, error) {
	var we wireEvent
	if err := json.Unmarshal(payload, &we); err != nil {
		return nil, err
	}
	return &we, nil
}

func (we *wireEvent) toEvent() *Event {
	ev := &Event{WallTime: float64(we.WallTime), Step: we.Step}
	switch {
	case we.FileVersion != "":
		ev.Kind = KindFileVersion
		ev.FileVersion = we.FileVersion
	case we.GraphDef != nil:
		ev.Kind = KindGraphDef
		ev.GraphDef = we.GraphDef
	default:
		ev.Kind = KindSummary
		ev.Summary = make([]SummaryEntry, 0, len(we.Summary))
		for _, wv := range we.Summary {
			ev.Summary = append(ev.Summary, wv.toSummaryEntry())
		}
	}
	return ev
}

func (wv *wireSummaryVal) toSummaryEntry() SummaryEntry {
	entry := SummaryEntry{Tag: wv.Tag}
	if wv.Metadata != nil {
		md := &Metadata{PluginName: wv.Metadata.PluginName}
		if dc, ok := dataClassFromWire(wv.Metadata.DataClass); ok {
			md.DataClass = dc
		}
		entry.Metadata = md
	}

	switch {
	case wv.Simple != nil:
		entry.Value = Value{Kind: KindSimple, Simple: *wv.Simple}
	case wv.Tensor != nil:
		entry.Value = Value{Kind: KindTensor, Tensor: TensorValue{
			Dims:     wv.Tensor.Dims,
			DType:    wv.Tensor.DType,
			FloatVal: wv.Tensor.FloatVal,
			RawBytes: wv.Tensor.RawBytes,
		}}
	case wv.Image != nil:
		entry.Value = Value{Kind: KindImage, Opaque: wv.Image}
	case wv.Audio != nil:
		entry.Value = Value{Kind: KindAudio, Opaque: wv.Audio}
	case wv.Histo != nil:
		entry.Value = Value{Kind: KindHistogram, Opaque: wv.Histo}
	}
	return entry
}
