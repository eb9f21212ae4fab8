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
)

// x86Convert applies the published x86 BCJ (branch-call-jump) filter to
// data in place: CALL/JMP (0xE8/0xE9) relative operands are rewritten
// between absolute and relative addressing so that the LZMA match
// finder sees repeated absolute target addresses across a binary's call
// sites instead of varying relative offsets. Ported from the public
// Bra86.c/x86.c algorithm distributed with 7-Zip and xz-utils (the same
// filter github.com/ulikunitz/xz applies internally for its x86 delta
// presets); encoding selects the forward (compress-time) direction.
func x86Convert(data []byte, encoding bool) {
	const ipBase = 5
	if len(data) < 5 {
		return
	}
	size := len(data) - 4
	var mask uint32
	pos := 0
	isMSByte := func(b byte) bool { return b == 0x00 || b == 0xFF }

	for {
		start := pos
		for pos < size && data[pos]&0xFE != 0xE8 {
			pos++
		}
		d := pos - start
		if pos >= size {
			return
		}
		if d > 2 {
			mask = 0
		} else {
			mask >>= uint(d)
			if mask != 0 && (mask > 4 || mask == 3 || isMSByte(data[pos+int(mask>>1)+1])) {
				mask = (mask >> 1) | 4
				pos++
				continue
			}
		}
		if isMSByte(data[pos+4]) {
			v := uint32(data[pos+4])<<24 | uint32(data[pos+3])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+1])
			cur := uint32(ipBase + pos)
			pos += 5
			if encoding {
				v += cur
			} else {
				v -= cur
			}
			if mask != 0 {
				sh := (mask & 6) << 2
				if isMSByte(byte(v >> sh)) {
					v ^= (uint32(0x100) << sh) - 1
					if encoding {
						v += cur
					} else {
						v -= cur
					}
				}
				mask = 0
			}
			data[pos-4] = byte(v)
			data[pos-3] = byte(v >> 8)
			data[pos-2] = byte(v >> 16)
			data[pos-1] = byte(0 - ((v >> 24) & 1))
		} else {
			mask = (mask >> 1) | 4
			pos++
		}
	}
}

func bcjX86Decode(src io.Reader, _ []byte, outSize int64) (io.Reader, error) {
	var buf bytes.Buffer
	buf.Grow(int(outSize))
	if _, err := io.CopyN(&buf, src, outSize); err != nil && err != io.EOF {
		return nil, err
	}
	data := buf.Bytes()
	x86Convert(data, false)
	return bytes.NewReader(data), nil
}

type bcjX86EncodeWriter struct {
	dst io.Writer
	buf bytes.Buffer
}

func (w *bcjX86EncodeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *bcjX86EncodeWriter) Close() error {
	data := w.buf.Bytes()
	x86Convert(data, true)
	_, err := w.dst.Write(data)
	return err
}

func bcjX86Encode(dst io.Writer, _ []byte) (io.WriteCloser, error) {
	return &bcjX86EncodeWriter{dst: dst}, nil
}
