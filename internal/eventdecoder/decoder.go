// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventdecoder

import (
	"errors"
	"fmt"

	"github.com/ClusterCockpit/cc-metric-loader/internal/eventio"
)

// ErrInvalidRecord is returned when the record's payload CRC is bad (either
// because checksum_always forced an up-front check, or because a structured
// decode failed and the fallback CRC check also failed).
var ErrInvalidRecord = errors.New("eventdecoder: invalid record (bad checksum)")

// InvalidProtoError wraps a structured-decode failure that is NOT explained
// by a bad checksum (decode-mode default: attempt decode, verify CRC only on
// failure).
type InvalidProtoError struct {
	Err error
}

func (e *InvalidProtoError) Error() string { return fmt.Sprintf("eventdecoder: invalid payload: %v", e.Err) }
func (e *InvalidProtoError) Unwrap() error { return e.Err }

// Decoder decodes framed records into Events, per spec.md §4.3's
// checksum-mode policy.
type Decoder struct {
	// ChecksumAlways verifies the payload CRC before attempting a
	// structured decode. When false (the default, for throughput), decode
	// is attempted first and the CRC is consulted only on decode failure.
	ChecksumAlways bool
}

// Decode interprets one eventio.Record's payload.
func (d *Decoder) Decode(rec *eventio.Record) (*Event, error) {
	if d.ChecksumAlways {
		if err := rec.VerifyPayload(); err != nil {
			return nil, ErrInvalidRecord
		}
		ev, err := d.decodeStructured(rec.Payload)
		if err != nil {
			return nil, &InvalidProtoError{Err: err}
		}
		return ev, nil
	}

	ev, err := d.decodeStructured(rec.Payload)
	if err == nil {
		return ev, nil
	}
	if crcErr := rec.VerifyPayload(); crcErr != nil {
		// CRC is also bad: corruption, not merely an unrecognized shape.
		// Preempt the decode error, which is likely just a consequence.
		return nil, ErrInvalidRecord
	}
	return nil, &InvalidProtoError{Err: err}
}

func (d *Decoder) decodeStructured(payload []byte) (*Event, error) {
	we, err := parseWire(payload)
	if err != nil {
		return nil, err
	}
	// A non-finite wall-time (NaN or infinite) is not rejected here: per
	// spec.md §7 it is a non-fatal, per-event defect. The run loader's
	// route drops the event and keeps reading the file.
	return we.toEvent(), nil
}
