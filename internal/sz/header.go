// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of sevenz.
//
// sevenz is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// sevenz is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with sevenz.  If not, see <https://www.gnu.org/licenses/>.

package sz

import (
	"encoding/binary"
	"hash/crc32"
)

// SignatureHeaderSize is the fixed 32-byte size of the leading header,
// per spec.md §4.F.
const SignatureHeaderSize = 32

var magic = [6]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}

// SignatureHeader is the 32-byte block every 7z archive begins with.
// Field offsets follow spec.md §4.F exactly; all multi-byte integers
// are little-endian.
type SignatureHeader struct {
	VersionMajor   byte
	VersionMinor   byte
	StartHeaderCRC uint32
	NextHeaderOfs  uint64 // relative to byte 32
	NextHeaderSize uint64
	NextHeaderCRC  uint32
}

// ParseSignatureHeader decodes the leading 32 bytes of an archive and
// validates the magic, the start-header CRC (covering bytes 12..32),
// and the version pair (the major version must be 0; any minor version
// is accepted).
func ParseSignatureHeader(b []byte) (SignatureHeader, error) {
	if len(b) != SignatureHeaderSize {
		return SignatureHeader{}, ErrBadSignature
	}
	if [6]byte(b[0:6]) != magic {
		return SignatureHeader{}, ErrBadSignature
	}
	if b[6] != 0 {
		return SignatureHeader{}, ErrBadSignature
	}
	h := SignatureHeader{
		VersionMajor:   b[6],
		VersionMinor:   b[7],
		StartHeaderCRC: binary.LittleEndian.Uint32(b[8:12]),
		NextHeaderOfs:  binary.LittleEndian.Uint64(b[12:20]),
		NextHeaderSize: binary.LittleEndian.Uint64(b[20:28]),
		NextHeaderCRC:  binary.LittleEndian.Uint32(b[28:32]),
	}
	if crc32.ChecksumIEEE(b[12:32]) != h.StartHeaderCRC {
		return SignatureHeader{}, ErrChecksumMismatch
	}
	return h, nil
}

// MarshalSignatureHeader re-serialises h to 32 bytes, recomputing the
// start-header CRC over the tail it just wrote.
func MarshalSignatureHeader(h SignatureHeader) []byte {
	b := make([]byte, SignatureHeaderSize)
	copy(b[0:6], magic[:])
	b[6] = h.VersionMajor
	b[7] = h.VersionMinor
	binary.LittleEndian.PutUint64(b[12:20], h.NextHeaderOfs)
	binary.LittleEndian.PutUint64(b[20:28], h.NextHeaderSize)
	binary.LittleEndian.PutUint32(b[28:32], h.NextHeaderCRC)
	binary.LittleEndian.PutUint32(b[8:12], crc32.ChecksumIEEE(b[12:32]))
	return b
}
