// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// AllSamples marks a plugin override of "all" (unbounded reservoir
// capacity) in the result of ParseSamplingHints.
const AllSamples = -1

// ParseSamplingHints parses the --samples_per_plugin grammar (spec.md §6):
//
//	hint := (pair ("," pair)*)?
//	pair := plugin "=" (positive_int | "all")
//
// An empty hint string is valid and yields no overrides. The manual
// byte-scanning style (split-and-validate rather than a regexp) mirrors
// pkg/metricstore/lineprotocol.go's hand-rolled line parser.
func ParseSamplingHints(hint string) (map[string]int, error) {
	if hint == "" {
		return nil, nil
	}

	overrides := make(map[string]int)
	for _, pair := range strings.Split(hint, ",") {
		plugin, count, err := parsePair(pair)
		if err != nil {
			return nil, fmt.Errorf("config: sampling hint %q: %w", pair, err)
		}
		overrides[plugin] = count
	}
	return overrides, nil
}

func parsePair(pair string) (plugin string, count int, err error) {
	eq := strings.IndexByte(pair, '=')
	if eq < 0 {
		return "", 0, fmt.Errorf("missing '='")
	}

	plugin = pair[:eq]
	if plugin == "" {
		return "", 0, fmt.Errorf("empty plugin name")
	}

	val := pair[eq+1:]
	if val == "all" {
		return plugin, AllSamples, nil
	}

	n, convErr := strconv.Atoi(val)
	if convErr != nil || n <= 0 {
		return "", 0, fmt.Errorf("count must be a positive integer or \"all\", got %q", val)
	}
	return plugin, n, nil
}
