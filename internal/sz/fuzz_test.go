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

// FuzzParseSignatureHeader exercises the 32-byte fixed-format parser
// against arbitrary input: it must never panic, and any header it
// accepts must re-marshal to the exact same 32 bytes.
func FuzzParseSignatureHeader(f *testing.F) {
	f.Add(MarshalSignatureHeader(SignatureHeader{}))
	f.Add(MarshalSignatureHeader(SignatureHeader{VersionMajor: 0, VersionMinor: 4, NextHeaderOfs: 100, NextHeaderSize: 50, NextHeaderCRC: 7}))
	f.Add(make([]byte, 32))
	f.Add([]byte{})
	f.Add([]byte("not a 7z file at all"))

	f.Fuzz(func(t *testing.T, b []byte) {
		h, err := ParseSignatureHeader(b)
		if err != nil {
			return
		}
		if len(b) != SignatureHeaderSize {
			t.Fatalf("accepted input of length %d, want %d", len(b), SignatureHeaderSize)
		}
		remarshaled := MarshalSignatureHeader(h)
		for i, want := range b {
			if remarshaled[i] != want {
				t.Errorf("byte %d: remarshal = 0x%02X, want 0x%02X", i, remarshaled[i], want)
			}
		}
	})
}

// FuzzParseHeader exercises the recursive-descent header-database parser
// against arbitrary byte strings: it must never panic, regardless of how
// malformed the input is.
func FuzzParseHeader(f *testing.F) {
	db := sampleDatabase()
	raw, err := Emit(db)
	if err != nil {
		f.Fatalf("Emit: %v", err)
	}
	f.Add(raw)
	f.Add([]byte{tagHeader, tagEnd})
	f.Add([]byte{tagHeader, tagFilesInfo, 0x00, tagEnd})
	f.Add([]byte{})
	f.Add([]byte{0xFF})

	f.Fuzz(func(t *testing.T, b []byte) {
		if len(b) > 1<<16 {
			return
		}
		_, _ = Parse(b, nil, 0)
	})
}
