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

package sevenzip

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/go7z/sevenz/internal/coder"
)

// plainLZMAMethod builds the CoderConfig for the classic (non-LZMA2)
// LZMA method, whose 5-byte properties blob is the standard
// lc/lp/pb-packed byte (default params, matching DefaultParams) plus a
// little-endian dictionary size — the same layout an independent
// decoder expects once an 8-byte uncompressed size is appended.
func plainLZMAMethod(dictSize uint32) CoderConfig {
	props := make([]byte, 5)
	props[0] = 0x5D // lc=3, lp=0, pb=2
	binary.LittleEndian.PutUint32(props[1:5], dictSize)
	return CoderConfig{MethodID: coder.MethodLZMA, Properties: props}
}

func TestVerifyEntryCrossChecksPlainLZMA(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 32))

	w := NewWriter(&buf)
	want := bytes.Repeat([]byte("cross-checking against an independent decoder "), 100)
	e := &Entry{Name: "payload.bin", Method: []CoderConfig{plainLZMAMethod(1 << 20)}}
	if err := w.PushEntry(e, bytes.NewReader(want)); err != nil {
		t.Fatalf("PushEntry: %v", err)
	}
	sig, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	out := buf.Bytes()
	copy(out[0:32], sig)

	r, err := NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	entries := r.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got := entries[0]

	rc, err := r.Open(got)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data := make([]byte, len(want))
	if _, err := io.ReadFull(rc, data); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("own decode mismatch")
	}

	if err := r.VerifyEntry(got); err != nil {
		t.Errorf("VerifyEntry: %v", err)
	}
}

func TestVerifyEntryNoOpsForLZMA2(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 32))

	w := NewWriter(&buf)
	e := &Entry{Name: "default.bin"}
	if err := w.PushEntry(e, bytes.NewReader([]byte("lzma2 default content"))); err != nil {
		t.Fatalf("PushEntry: %v", err)
	}
	sig, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	out := buf.Bytes()
	copy(out[0:32], sig)

	r, err := NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if err := r.VerifyEntry(r.Entries()[0]); err != nil {
		t.Errorf("VerifyEntry on LZMA2 folder should no-op, got: %v", err)
	}
}
