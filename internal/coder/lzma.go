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
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go7z/sevenz/lzma"
	"github.com/go7z/sevenz/lzma/rangecoder"
)

// parseLZMAProps decodes the standard 5-byte 7z LZMA coder properties
// blob: one byte packing (pb*5+lp)*9+lc, then a 4-byte little-endian
// dictionary size.
func parseLZMAProps(props []byte) (lzma.Params, uint32, error) {
	if len(props) != 5 {
		return lzma.Params{}, 0, fmt.Errorf("lzma: properties must be 5 bytes, got %d: %w", len(props), errUnsupported)
	}
	d := props[0]
	lc := uint32(d % 9)
	rem := d / 9
	lp := uint32(rem % 5)
	pb := uint32(rem / 5)
	dictSize := binary.LittleEndian.Uint32(props[1:5])
	return lzma.Params{LC: lc, LP: lp, PB: pb}, dictSize, nil
}

func lzmaDecode(src io.Reader, props []byte, outSize int64) (io.Reader, error) {
	params, dictSize, err := parseLZMAProps(props)
	if err != nil {
		return nil, err
	}
	dec, err := lzma.NewDecoder(params, dictSize)
	if err != nil {
		return nil, err
	}
	rc, err := rangecoder.NewDecoder(bufio.NewReader(src))
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	out.Grow(int(outSize))
	if err := dec.DecodeChunk(rc, &out, int(outSize)); err != nil {
		return nil, err
	}
	return bytes.NewReader(out.Bytes()), nil
}

// lzmaEncodeWriter buffers its entire input and range-codes it as a
// single LZMA stream on Close, since plain (non-LZMA2) 7z folders carry
// one continuous range-coded stream with no chunk boundaries to flush
// through incrementally.
type lzmaEncodeWriter struct {
	dst    *bufio.Writer
	enc    *lzma.Encoder
	buf    bytes.Buffer
	closed bool
}

func (w *lzmaEncodeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *lzmaEncodeWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	rc := rangecoder.NewEncoder(w.dst)
	if err := w.enc.EncodeChunk(rc, w.buf.Bytes()); err != nil {
		return err
	}
	if err := rc.Finish(); err != nil {
		return err
	}
	return w.dst.Flush()
}

func lzmaEncode(dst io.Writer, props []byte) (io.WriteCloser, error) {
	params, dictSize, err := parseLZMAProps(props)
	if err != nil {
		return nil, err
	}
	enc, err := lzma.NewEncoder(params, lzma.ModeNormal, dictSize)
	if err != nil {
		return nil, err
	}
	return &lzmaEncodeWriter{dst: bufio.NewWriter(dst), enc: enc}, nil
}
