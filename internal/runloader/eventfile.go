// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runloader

import (
	"errors"

	"github.com/ClusterCockpit/cc-metric-loader/internal/eventdecoder"
	"github.com/ClusterCockpit/cc-metric-loader/internal/eventio"
	"github.com/ClusterCockpit/cc-metric-loader/pkg/storage"
)

// eventFile is one run-loader entry. Fresh is represented implicitly (no
// entry yet); Active holds the open stream plus the resumable record
// reader; Dead is terminal and is never re-opened (spec.md §4.6).
type eventFile struct {
	stream storage.ReadableByteStream
	reader *eventio.Reader
	dead   bool
}

func openEventFile(s storage.Storage, id storage.FileID) (*eventFile, error) {
	stream, err := s.Open(id)
	if err != nil {
		return nil, err
	}
	return &eventFile{stream: stream, reader: eventio.NewReader()}, nil
}

// closeIfOpen releases the stream's resources; safe to call more than once.
func (f *eventFile) closeIfOpen() {
	if f.stream != nil {
		f.stream.Close()
		f.stream = nil
	}
}

// readNext reads and decodes the next record. io.EOF-equivalent
// (eventio.ErrTruncated) is returned as-is so the caller can distinguish
// "try again next cycle" from "this file is dead".
func (f *eventFile) readNext(dec *eventdecoder.Decoder) (*eventdecoder.Event, error) {
	rec, err := f.reader.ReadRecord(f.stream)
	if err != nil {
		return nil, err
	}
	return dec.Decode(rec)
}

// isFatal reports whether err (from readNext) marks the file Dead per the
// state machine in spec.md §4.6: bad length-CRC, oversized record, or
// invalid-structured-payload-with-good-checksum. A non-finite wall-time is
// not in this list: it is a non-fatal, per-event defect handled later by
// the run loader's route (spec.md §7).
func isFatal(err error) bool {
	if err == nil || errors.Is(err, eventio.ErrTruncated) {
		return false
	}
	var badLenCRC *eventio.BadLengthCrcError
	var tooLarge *eventio.TooLargeError
	var invalidProto *eventdecoder.InvalidProtoError
	switch {
	case errors.As(err, &badLenCRC):
		return true
	case errors.As(err, &tooLarge):
		return true
	case errors.As(err, &invalidProto):
		return true
	case errors.Is(err, eventdecoder.ErrInvalidRecord):
		// Bad payload CRC (checked up front in checksum-always mode, or
		// after a failed decode): drain skips the record, the file stays
		// alive (spec.md §7).
		return false
	default:
		// Any other I/O error reading the stream is non-retryable.
		return true
	}
}
