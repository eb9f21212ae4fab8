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
	"bufio"
	"bytes"
	"testing"
)

func TestBitVectorRoundTrip(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, false, true, true, false}
	var buf bytes.Buffer
	if err := WriteBitVector(&buf, bits); err != nil {
		t.Fatalf("WriteBitVector: %v", err)
	}
	got, err := ReadBitVector(&buf, len(bits))
	if err != nil {
		t.Fatalf("ReadBitVector: %v", err)
	}
	for i := range bits {
		if got[i] != bits[i] {
			t.Errorf("bit %d = %v, want %v", i, got[i], bits[i])
		}
	}
}

func TestOptionalBitVectorAllDefined(t *testing.T) {
	bits := []bool{true, true, true, true}
	var buf bytes.Buffer
	if err := WriteOptionalBitVector(&buf, &buf, bits); err != nil {
		t.Fatalf("WriteOptionalBitVector: %v", err)
	}
	if buf.Len() != 1 {
		t.Fatalf("all-defined vector encoded to %d bytes, want 1", buf.Len())
	}
	br := bufio.NewReader(&buf)
	got, err := ReadOptionalBitVector(br, br, len(bits))
	if err != nil {
		t.Fatalf("ReadOptionalBitVector: %v", err)
	}
	for i, b := range got {
		if !b {
			t.Errorf("bit %d = false, want true", i)
		}
	}
}

func TestOptionalBitVectorMixed(t *testing.T) {
	bits := []bool{true, false, true}
	var buf bytes.Buffer
	if err := WriteOptionalBitVector(&buf, &buf, bits); err != nil {
		t.Fatalf("WriteOptionalBitVector: %v", err)
	}
	br := bufio.NewReader(&buf)
	got, err := ReadOptionalBitVector(br, br, len(bits))
	if err != nil {
		t.Fatalf("ReadOptionalBitVector: %v", err)
	}
	for i := range bits {
		if got[i] != bits[i] {
			t.Errorf("bit %d = %v, want %v", i, got[i], bits[i])
		}
	}
}
