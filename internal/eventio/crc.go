// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-metric-loader.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package eventio implements the resumable, length-prefixed record framing
// codec used by event files: a masked CRC-32C over both the length header
// and the payload, and a reader that tolerates a file still being written.
package eventio

import "hash/crc32"

// crcTable is the Castagnoli polynomial table, matched byte-for-byte against
// RocksDB's crc32c (and this core's event-file format, which borrows the
// same masking scheme to avoid a CRC colliding with one embedded in the
// checksummed payload).
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// maskDelta is added (mod 2^32) after the bit-rotation in Mask.
const maskDelta uint32 = 0xa282ead8

// Compute returns the CRC-32C (Castagnoli) checksum of data.
func Compute(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// Mask rotates crc right by 15 bits and adds maskDelta modulo 2^32.
//
// Motivation (from the format this core replicates): it is problematic to
// compute the CRC of a string that contains an embedded CRC. Masking avoids
// that collision, so CRCs stored in a record header or trailer are always
// masked before being written.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask reverses Mask.
func Unmask(maskedCRC uint32) uint32 {
	rot := maskedCRC - maskDelta
	return (rot >> 17) | (rot << 15)
}

// MaskedCompute computes the CRC-32C of data and masks the result in one
// call; this is what gets written to, and compared against, the wire format.
func MaskedCompute(data []byte) uint32 {
	return Mask(Compute(data))
}
