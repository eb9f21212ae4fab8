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

func TestNumberRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 0x7F, 0x80, 0xFF, 0x100, 0x3FFF, 0x4000,
		1 << 20, 1 << 32, 1 << 48, 1<<64 - 1,
	}
	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteNumber(&buf, v); err != nil {
			t.Fatalf("WriteNumber(%d): %v", v, err)
		}
		got, err := ReadNumber(bufio.NewReader(&buf))
		if err != nil {
			t.Fatalf("ReadNumber after WriteNumber(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestReadNumberAsIntRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNumber(&buf, 1<<40); err != nil {
		t.Fatalf("WriteNumber: %v", err)
	}
	if _, err := ReadNumberAsInt(bufio.NewReader(&buf)); err != ErrMalformedHeader {
		t.Errorf("err = %v, want %v", err, ErrMalformedHeader)
	}
}
