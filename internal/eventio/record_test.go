// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventio

import (
	"bytes"
	"errors"
	"testing"
)

func TestMaskRoundTrip(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("hello"), bytes.Repeat([]byte{0xAB}, 257)} {
		crc := Compute(data)
		masked := Mask(crc)
		if Unmask(masked) != crc {
			t.Fatalf("Unmask(Mask(%d)) = %d, want %d", crc, Unmask(masked), crc)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("x"),
		bytes.Repeat([]byte("training-metric-payload"), 100),
	}

	var buf bytes.Buffer
	for _, p := range payloads {
		if err := WriteRecord(&buf, p); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}

	r := NewReader()
	for i, want := range payloads {
		rec, err := r.ReadRecord(&buf)
		if err != nil {
			t.Fatalf("record %d: ReadRecord: %v", i, err)
		}
		if !bytes.Equal(rec.Payload, want) {
			t.Fatalf("record %d: payload = %q, want %q", i, rec.Payload, want)
		}
		if err := rec.VerifyPayload(); err != nil {
			t.Fatalf("record %d: VerifyPayload: %v", i, err)
		}
	}
}

// TestRecordResumeAcrossTruncation feeds the same record's bytes to the
// reader in two separate calls, split mid-record, mirroring spec.md §8
// scenario 2.
func TestRecordResumeAcrossTruncation(t *testing.T) {
	var full bytes.Buffer
	payload := bytes.Repeat([]byte{0x42}, 17)
	if err := WriteRecord(&full, payload); err != nil {
		t.Fatal(err)
	}
	wire := full.Bytes()

	split := 6
	r := NewReader()

	_, err := r.ReadRecord(bytes.NewReader(wire[:split]))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("first call: err = %v, want ErrTruncated", err)
	}

	rec, err := r.ReadRecord(bytes.NewReader(wire[split:]))
	if err != nil {
		t.Fatalf("second call: ReadRecord: %v", err)
	}
	if !bytes.Equal(rec.Payload, payload) {
		t.Fatalf("payload = %q, want %q", rec.Payload, payload)
	}
	if err := rec.VerifyPayload(); err != nil {
		t.Fatalf("VerifyPayload: %v", err)
	}
}

// TestBadCrcSurroundedByGoodRecords mirrors spec.md §8 scenario 3: a
// corrupted payload CRC in the middle record must not poison its neighbors.
func TestBadCrcSurroundedByGoodRecords(t *testing.T) {
	good1 := []byte("first-good-record")
	bad := []byte("corrupted-record-payload")
	good2 := []byte("second-good-record")

	var rec1Wire, rec2Wire, rec3Wire bytes.Buffer
	if err := WriteRecord(&rec1Wire, good1); err != nil {
		t.Fatal(err)
	}
	if err := WriteRecord(&rec2Wire, bad); err != nil {
		t.Fatal(err)
	}
	if err := WriteRecord(&rec3Wire, good2); err != nil {
		t.Fatal(err)
	}

	// Flip a byte inside the "bad" record's payload region on the wire.
	rec2Bytes := rec2Wire.Bytes()
	rec2Bytes[headerSize] ^= 0xFF

	var buf bytes.Buffer
	buf.Write(rec1Wire.Bytes())
	buf.Write(rec2Bytes)
	buf.Write(rec3Wire.Bytes())
	wire := buf.Bytes()

	r := NewReader()
	src := bytes.NewReader(wire)

	rec1, err := r.ReadRecord(src)
	if err != nil {
		t.Fatalf("record 1: %v", err)
	}
	if !bytes.Equal(rec1.Payload, good1) || rec1.VerifyPayload() != nil {
		t.Fatalf("record 1 unexpectedly corrupted")
	}

	rec2, err := r.ReadRecord(src)
	if err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if err := rec2.VerifyPayload(); err == nil {
		t.Fatalf("record 2: expected checksum error, got nil")
	}

	rec3, err := r.ReadRecord(src)
	if err != nil {
		t.Fatalf("record 3: %v", err)
	}
	if !bytes.Equal(rec3.Payload, good2) || rec3.VerifyPayload() != nil {
		t.Fatalf("record 3 unexpectedly corrupted")
	}
}

func TestBadLengthCrcIsFatal(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecord(&buf, []byte("payload")); err != nil {
		t.Fatal(err)
	}
	wire := buf.Bytes()
	wire[0] ^= 0xFF // corrupt the length field itself

	r := NewReader()
	_, err := r.ReadRecord(bytes.NewReader(wire))
	var badCrc *BadLengthCrcError
	if !errors.As(err, &badCrc) {
		t.Fatalf("err = %v, want *BadLengthCrcError", err)
	}
}
