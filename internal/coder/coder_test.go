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

package coder

import (
	"bytes"
	"io"
	"testing"

	"github.com/go7z/sevenz/lzma/lzma2"
)

func TestBuildCopyChain(t *testing.T) {
	want := []byte("hello, archive")
	coders := []Coder{
		{MethodID: MethodCopy, NumInStreams: 1, NumOutStreams: 1, OutputSize: int64(len(want))},
	}
	r, err := Build(coders, nil, bytes.NewReader(want))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildEncoderDecoderChain(t *testing.T) {
	want := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 64)
	coders := []Coder{
		{MethodID: MethodLZMA2, Properties: []byte{lzma2.EncodeDictSizeProperty(1 << 20)}, NumInStreams: 1, NumOutStreams: 1},
	}

	var packed bytes.Buffer
	enc, err := BuildEncoder(coders, nil, &packed)
	if err != nil {
		t.Fatalf("BuildEncoder: %v", err)
	}
	if _, err := enc.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	coders[0].OutputSize = int64(len(want))
	dec, err := Build(coders, nil, bytes.NewReader(packed.Bytes()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := io.ReadAll(io.LimitReader(dec, int64(len(want))))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(want))
	}
}

func TestBuildEncoderDecoderChainMultiCoder(t *testing.T) {
	want := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 64)
	coders := []Coder{
		{MethodID: MethodDelta, Properties: []byte{0x00}, NumInStreams: 1, NumOutStreams: 1},
		{MethodID: MethodLZMA2, Properties: []byte{lzma2.EncodeDictSizeProperty(1 << 20)}, NumInStreams: 1, NumOutStreams: 1},
	}
	bindings := []Binding{{InIndex: 1, OutIndex: 0}}

	var packed bytes.Buffer
	enc, err := BuildEncoder(coders, bindings, &packed)
	if err != nil {
		t.Fatalf("BuildEncoder: %v", err)
	}
	if _, err := enc.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Delta preserves length, so its output is as long as the packed stream.
	coders[0].OutputSize = int64(packed.Len())
	coders[len(coders)-1].OutputSize = int64(len(want))
	dec, err := Build(coders, bindings, bytes.NewReader(packed.Bytes()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := io.ReadAll(io.LimitReader(dec, int64(len(want))))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch through Delta+LZMA2 chain: got %d bytes, want %d", len(got), len(want))
	}
}

func TestBuildRejectsNonChainTopology(t *testing.T) {
	coders := []Coder{
		{MethodID: MethodCopy, NumInStreams: 2, NumOutStreams: 1},
	}
	if _, err := Build(coders, nil, bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for multi-input coder, got nil")
	}
}

func TestBuildUnknownMethod(t *testing.T) {
	coders := []Coder{
		{MethodID: []byte{0xFE}, NumInStreams: 1, NumOutStreams: 1},
	}
	if _, err := Build(coders, nil, bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for unknown method, got nil")
	}
}
