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

import "testing"

func TestSignatureHeaderRoundTrip(t *testing.T) {
	h := SignatureHeader{
		VersionMajor:   0,
		VersionMinor:   4,
		NextHeaderOfs:  123,
		NextHeaderSize: 456,
		NextHeaderCRC:  0xDEADBEEF,
	}
	b := MarshalSignatureHeader(h)
	if len(b) != SignatureHeaderSize {
		t.Fatalf("marshaled header size = %d, want %d", len(b), SignatureHeaderSize)
	}
	got, err := ParseSignatureHeader(b)
	if err != nil {
		t.Fatalf("ParseSignatureHeader: %v", err)
	}
	if got != h {
		t.Errorf("round trip = %+v, want %+v", got, h)
	}
}

func TestParseSignatureHeaderBadMagic(t *testing.T) {
	b := MarshalSignatureHeader(SignatureHeader{})
	b[0] = 'X'
	if _, err := ParseSignatureHeader(b); err != ErrBadSignature {
		t.Errorf("err = %v, want %v", err, ErrBadSignature)
	}
}

func TestParseSignatureHeaderCorruptCRC(t *testing.T) {
	b := MarshalSignatureHeader(SignatureHeader{NextHeaderOfs: 10})
	b[12] ^= 0xFF
	if _, err := ParseSignatureHeader(b); err != ErrChecksumMismatch {
		t.Errorf("err = %v, want %v", err, ErrChecksumMismatch)
	}
}

func TestParseSignatureHeaderWrongLength(t *testing.T) {
	if _, err := ParseSignatureHeader(make([]byte, 10)); err != ErrBadSignature {
		t.Errorf("err = %v, want %v", err, ErrBadSignature)
	}
}
