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

package lzma2

import (
	"bytes"
	"io"
	"testing"

	"github.com/go7z/sevenz/lzma"
)

func TestDictSizePropertyRoundTrip(t *testing.T) {
	sizes := []uint32{1 << 16, 1 << 20, 1 << 24, 3 << 24, 1 << 26}
	for _, want := range sizes {
		b := EncodeDictSizeProperty(want)
		got, err := DictSizeProperty(b)
		if err != nil {
			t.Fatalf("DictSizeProperty(%d): %v", b, err)
		}
		if got < want {
			t.Errorf("EncodeDictSizeProperty(%d) -> %d -> %d, decoded size smaller than requested", want, b, got)
		}
	}
}

func TestDictSizePropertyInvalid(t *testing.T) {
	if _, err := DictSizeProperty(0xFF); err != ErrInvalidDictSizeProperty {
		t.Errorf("err = %v, want %v", err, ErrInvalidDictSizeProperty)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	want := bytes.Repeat([]byte("lorem ipsum dolor sit amet, consectetur adipiscing elit "), 200)
	const dictSize = 1 << 20

	var packed bytes.Buffer
	w, err := NewWriter(&packed, lzma.ModeNormal, dictSize, lzma.DefaultParams)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(bytes.NewReader(packed.Bytes()), dictSize, lzma.DefaultParams)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(io.LimitReader(r, int64(len(want))))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(want))
	}
}

func TestWriterReaderRoundTripEmpty(t *testing.T) {
	var packed bytes.Buffer
	w, err := NewWriter(&packed, lzma.ModeNormal, 1<<16, lzma.DefaultParams)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(bytes.NewReader(packed.Bytes()), 1<<16, lzma.DefaultParams)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d bytes, want 0", len(got))
	}
}
