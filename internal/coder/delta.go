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
	"fmt"
	"io"
)

// deltaDistance decodes the single property byte the DELTA method
// carries: the stored value is distance-1, so 0x00 means distance 1.
// A properties blob of any length other than one byte is rejected.
func deltaDistance(props []byte) (int, error) {
	if len(props) != 1 {
		return 0, fmt.Errorf("delta: properties must be 1 byte, got %d: %w", len(props), errUnsupported)
	}
	return int(props[0]) + 1, nil
}

// deltaDecode reverses the delta filter: byte i is restored by adding
// back the byte distance positions earlier in the already-restored
// output.
func deltaDecode(src io.Reader, props []byte, outSize int64) (io.Reader, error) {
	distance, err := deltaDistance(props)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(int(outSize))
	if _, err := io.CopyN(&buf, src, outSize); err != nil && err != io.EOF {
		return nil, err
	}
	data := buf.Bytes()
	for i := distance; i < len(data); i++ {
		data[i] += data[i-distance]
	}
	return bytes.NewReader(data), nil
}

type deltaEncodeWriter struct {
	dst      io.Writer
	distance int
	buf      bytes.Buffer
}

func (w *deltaEncodeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *deltaEncodeWriter) Close() error {
	data := w.buf.Bytes()
	for i := len(data) - 1; i >= w.distance; i-- {
		data[i] -= data[i-w.distance]
	}
	_, err := w.dst.Write(data)
	return err
}

func deltaEncode(dst io.Writer, props []byte) (io.WriteCloser, error) {
	distance, err := deltaDistance(props)
	if err != nil {
		return nil, err
	}
	return &deltaEncodeWriter{dst: dst, distance: distance}, nil
}
