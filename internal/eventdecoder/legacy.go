// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventdecoder

// NormalizeMetadata applies the legacy-value normalization rules (spec.md
// §4.3) to the first point of a time series. Called once, when a tag is
// first seen; later points of the same series reuse the resulting Metadata
// unchanged.
func NormalizeMetadata(value Value, md *Metadata) Metadata {
	if md != nil && md.DataClass != Unknown {
		return *md
	}

	if value.Kind == KindSimple {
		return Metadata{PluginName: "scalars", DataClass: Scalar}
	}

	if md != nil {
		if dc, ok := dataClassForPlugin(md.PluginName); ok {
			return Metadata{PluginName: md.PluginName, DataClass: dc}
		}
		return *md
	}

	return Metadata{}
}

// dataClassForPlugin maps a recognized legacy plugin name to its implied
// data class.
func dataClassForPlugin(plugin string) (DataClass, bool) {
	switch plugin {
	case "scalars":
		return Scalar, true
	case "images":
		return BlobSequence, true
	case "audio":
		return BlobSequence, true
	case "histograms":
		return Tensor, true
	default:
		return Unknown, false
	}
}

// ReservoirCapacity returns the default reservoir capacity for a data class,
// per spec.md §4.5.
func ReservoirCapacity(c DataClass) int {
	switch c {
	case Scalar:
		return 1000
	case Tensor:
		return 100
	case BlobSequence:
		return 10
	default:
		return 0
	}
}
