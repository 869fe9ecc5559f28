// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventdecoder

import (
	"encoding/binary"
	"math"
)

// EnrichScalar reduces a point's raw value to a single float32, per
// spec.md §4.3. Accepted forms: SimpleValue; or a rank-0 Tensor of dtype
// float32, encoded either as a single float_val entry or as exactly 4
// little-endian bytes in raw_bytes. Any other shape is a DataLoss.
//
// This is deliberately deferred to commit-time (see reservoir.Commit's
// mapping function) so that points the reservoir ends up dropping never pay for
// enrichment.
func EnrichScalar(v Value) (float32, *DataLoss) {
	switch v.Kind {
	case KindSimple:
		return v.Simple, nil
	case KindTensor:
		t := v.Tensor
		if !isRankZero(t.Dims) {
			return 0, &DataLoss{Reason: "tensor is not rank 0"}
		}
		if t.DType != "" && t.DType != "DT_FLOAT" {
			return 0, &DataLoss{Reason: "tensor dtype is not float32"}
		}
		if len(t.FloatVal) == 1 {
			return t.FloatVal[0], nil
		}
		if len(t.RawBytes) == 4 {
			bits := binary.LittleEndian.Uint32(t.RawBytes)
			return math.Float32frombits(bits), nil
		}
		return 0, &DataLoss{Reason: "tensor does not encode exactly one float32"}
	default:
		return 0, &DataLoss{Reason: "value is not a scalar-reducible shape"}
	}
}

// isRankZero reports whether dims describes a scalar tensor: either no
// dimensions at all, or an explicit empty-dims descriptor (a single
// zero-length dims slice is indistinguishable from "no dims" in this
// representation, so both are accepted).
func isRankZero(dims []int64) bool {
	return len(dims) == 0
}
