// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package blobkey encodes and decodes the opaque key an RPC client uses to
// address one blob within a blob-sequence time series (spec.md §6): a
// URL-safe, unpadded base64 encoding of a 5-tuple.
package blobkey

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Key identifies one blob: the experiment it belongs to, the run and tag of
// its time series, the step it was recorded at, and its index within that
// step's value (a single summary value may carry more than one blob, e.g.
// several images).
type Key struct {
	ExperimentID string
	Run          string
	Tag          string
	Step         int64
	Index        uint64
}

const fieldSep = "\x00"

// sentinel errors distinguish base64 corruption from structural corruption
// from an out-of-range index, per spec.md §6.
var (
	ErrMalformedBase64 = fmt.Errorf("blobkey: malformed base64")
	ErrMalformedFields = fmt.Errorf("blobkey: malformed key fields")
)

// IndexOverflowError reports an index that cannot fit the platform's native
// int, so it could never have been produced by Encode on this platform.
type IndexOverflowError struct {
	Index uint64
}

func (e *IndexOverflowError) Error() string {
	return fmt.Sprintf("blobkey: index %d exceeds platform int range", e.Index)
}

// Encode returns the canonical external form of k.
func Encode(k Key) string {
	fields := strings.Join([]string{
		k.ExperimentID,
		k.Run,
		k.Tag,
		strconv.FormatInt(k.Step, 10),
		strconv.FormatUint(k.Index, 10),
	}, fieldSep)
	return base64.RawURLEncoding.EncodeToString([]byte(fields))
}

// Parse decodes s back into a Key. Base64 corruption and structural
// corruption (wrong field count, non-numeric step/index) are reported as
// distinct error values; an index too large for this platform's int is
// reported via IndexOverflowError.
func Parse(s string) (Key, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrMalformedBase64, err)
	}

	fields := strings.Split(string(raw), fieldSep)
	if len(fields) != 5 {
		return Key{}, fmt.Errorf("%w: expected 5 fields, got %d", ErrMalformedFields, len(fields))
	}

	step, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: step: %v", ErrMalformedFields, err)
	}
	index, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: index: %v", ErrMalformedFields, err)
	}
	if index > math.MaxInt {
		return Key{}, &IndexOverflowError{Index: index}
	}

	return Key{
		ExperimentID: fields[0],
		Run:          fields[1],
		Tag:          fields[2],
		Step:         step,
		Index:        index,
	}, nil
}
