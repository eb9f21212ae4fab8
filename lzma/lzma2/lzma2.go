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

// Package lzma2 implements the LZMA2 chunk framing layer described in
// spec.md §4.D: a sequence of control-byte-tagged chunks, each either an
// LZMA-compressed run against a persistent dictionary or a raw
// uncompressed run, terminated by a single 0x00 end marker. Grounded on
// lzma2_writer.rs's write_lzma/write_uncompressed/write_chunk/
// write_end_marker control flow in original_source/.
package lzma2

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go7z/sevenz/lzma"
	"github.com/go7z/sevenz/lzma/rangecoder"
)

// compressedSizeMax is the largest compressed payload a single LZMA2
// chunk can carry (its 16-bit length field caps at 1<<16).
const compressedSizeMax = 1 << 16

// maxUncompressedPerChunk is the uncompressed run size this writer
// buffers before emitting a chunk. The format allows up to 1<<21 bytes
// per LZMA chunk, but a chunk that large is only guaranteed to fit
// compressedSizeMax bytes of encoded output if the data compresses at
// better than roughly 1:1. Capping the attempted run well below that
// bound keeps the single-shot range-coder buffer this package uses from
// ever overflowing, at the cost of slightly more chunk framing overhead
// on incompressible input than the reference encoder's dynamic
// chunk-boundary search. See DESIGN.md.
const maxUncompressedPerChunk = 1 << 16

// Control byte values, per spec.md §4.D.
const (
	ctrlEnd                     = 0x00
	ctrlUncompressedDictReset   = 0x01
	ctrlUncompressedNoDictReset = 0x02
	ctrlLZMAMask                = 0x80
	ctrlLZMAResetShift          = 5
)

// ErrInvalidDictSizeProperty is returned by DictSizeProperty for a byte
// outside the encodable range.
var ErrInvalidDictSizeProperty = errors.New("lzma2: invalid dictionary size property byte")

// DictSizeProperty decodes the single property byte 7z stores for an
// LZMA2 coder into the dictionary size it designates, per spec.md §3.
func DictSizeProperty(b byte) (uint32, error) {
	if b&^0x3F != 0 || b > 40 {
		return 0, ErrInvalidDictSizeProperty
	}
	if b == 40 {
		return 0xFFFFFFFF, nil
	}
	return (2 | uint32(b)&1) << (uint32(b)/2 + 11), nil
}

// EncodeDictSizeProperty returns the smallest property byte whose
// decoded dictionary size is >= size.
func EncodeDictSizeProperty(size uint32) byte {
	if size >= 0xFFFFFFFF {
		return 40
	}
	for b := byte(0); b < 40; b++ {
		d, _ := DictSizeProperty(b)
		if d >= size {
			return b
		}
	}
	return 40
}

// Writer LZMA2-compresses bytes written to it. Close must be called to
// flush any buffered data and emit the end marker.
type Writer struct {
	w   io.Writer
	enc *lzma.Encoder
	buf *rangecoder.BufferedEncoder

	props   byte
	pending []byte

	dictResetNeeded  bool
	stateResetNeeded bool
	propsNeeded      bool
	closed           bool
}

// NewWriter returns a Writer that LZMA2-compresses its input using mode
// and the given dictionary size and literal/position parameters.
func NewWriter(w io.Writer, mode lzma.Mode, dictSize uint32, p lzma.Params) (*Writer, error) {
	enc, err := lzma.NewEncoder(p, mode, dictSize)
	if err != nil {
		return nil, err
	}
	return &Writer{
		w:                w,
		enc:              enc,
		buf:              rangecoder.NewBufferedEncoder(compressedSizeMax),
		props:            (byte(p.PB)*5+byte(p.LP))*9 + byte(p.LC),
		dictResetNeeded:  true,
		stateResetNeeded: true,
		propsNeeded:      true,
	}, nil
}

// Write buffers p, flushing complete chunks as the buffer fills.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("lzma2: write after close")
	}
	n := len(p)
	w.pending = append(w.pending, p...)
	for len(w.pending) >= maxUncompressedPerChunk {
		if err := w.flushChunk(w.pending[:maxUncompressedPerChunk]); err != nil {
			return 0, err
		}
		w.pending = w.pending[maxUncompressedPerChunk:]
	}
	return n, nil
}

// Close flushes any remaining buffered data as a final chunk (or more
// than one, if larger than maxUncompressedPerChunk) and writes the
// single end-marker byte.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	for len(w.pending) > 0 {
		n := len(w.pending)
		if n > maxUncompressedPerChunk {
			n = maxUncompressedPerChunk
		}
		if err := w.flushChunk(w.pending[:n]); err != nil {
			return err
		}
		w.pending = w.pending[n:]
	}
	w.closed = true
	_, err := w.w.Write([]byte{ctrlEnd})
	return err
}

func (w *Writer) flushChunk(data []byte) error {
	w.buf.ResetBuffer()
	if err := w.enc.EncodeChunk(w.buf.Encoder, data); err != nil {
		return err
	}
	compressedSize, err := w.buf.FinishBuffer()
	if err != nil {
		return err
	}
	uncompressedSize := len(data)
	if compressedSize+2 < uncompressedSize {
		if err := w.writeLZMAChunk(uncompressedSize, compressedSize); err != nil {
			return err
		}
		w.propsNeeded = false
		w.stateResetNeeded = false
		w.dictResetNeeded = false
		return nil
	}
	// LZMA2 defines decoding an uncompressed chunk as an implicit state
	// reset: reset the encoder's probability model to match, regardless
	// of what the discarded compress attempt above already consumed.
	w.enc.ResetState()
	if err := w.writeUncompressedChunk(data); err != nil {
		return err
	}
	w.dictResetNeeded = false
	w.stateResetNeeded = false
	return nil
}

func (w *Writer) writeLZMAChunk(uncompressedSize, compressedSize int) error {
	var control byte
	switch {
	case w.propsNeeded && w.dictResetNeeded:
		control = ctrlLZMAMask | 3<<ctrlLZMAResetShift
	case w.propsNeeded:
		control = ctrlLZMAMask | 2<<ctrlLZMAResetShift
	case w.stateResetNeeded:
		control = ctrlLZMAMask | 1<<ctrlLZMAResetShift
	default:
		control = ctrlLZMAMask
	}
	u := uint32(uncompressedSize - 1)
	c := uint32(compressedSize - 1)
	control |= byte(u >> 16)
	header := []byte{control, byte(u >> 8), byte(u), byte(c >> 8), byte(c)}
	if w.propsNeeded {
		header = append(header, w.props)
	}
	if _, err := w.w.Write(header); err != nil {
		return err
	}
	_, err := w.w.Write(w.buf.Bytes())
	return err
}

func (w *Writer) writeUncompressedChunk(data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > compressedSizeMax {
			n = compressedSizeMax
		}
		ctrl := byte(ctrlUncompressedNoDictReset)
		if w.dictResetNeeded {
			ctrl = ctrlUncompressedDictReset
		}
		header := []byte{ctrl, byte((n - 1) >> 8), byte(n - 1)}
		if _, err := w.w.Write(header); err != nil {
			return err
		}
		if _, err := w.w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
		w.dictResetNeeded = false
	}
	return nil
}

// Reader decompresses an LZMA2 byte stream.
type Reader struct {
	br       *bufio.Reader
	dec      *lzma.Decoder
	dictSize uint32

	pending []byte
	pos     int
	done    bool
}

// NewReader returns a Reader decompressing r as LZMA2 with the given
// dictionary size and initial literal/position parameters (overridden
// as soon as the stream's first chunk carries its own properties byte).
func NewReader(r io.Reader, dictSize uint32, p lzma.Params) (*Reader, error) {
	dec, err := lzma.NewDecoder(p, dictSize)
	if err != nil {
		return nil, err
	}
	return &Reader{br: bufio.NewReader(r), dec: dec, dictSize: dictSize}, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	for r.pos >= len(r.pending) {
		if r.done {
			return 0, io.EOF
		}
		if err := r.readChunk(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.pending[r.pos:])
	r.pos += n
	return n, nil
}

func (r *Reader) readChunk() error {
	ctrl, err := r.br.ReadByte()
	if err != nil {
		return err
	}
	switch {
	case ctrl == ctrlEnd:
		r.done = true
		r.pending = nil
		r.pos = 0
		return nil
	case ctrl == ctrlUncompressedDictReset || ctrl == ctrlUncompressedNoDictReset:
		return r.readUncompressedChunk(ctrl == ctrlUncompressedDictReset)
	case ctrl&ctrlLZMAMask != 0:
		return r.readLZMAChunk(ctrl)
	default:
		return fmt.Errorf("lzma2: invalid chunk control byte 0x%02x", ctrl)
	}
}

func (r *Reader) readUint16Field() (int, error) {
	hi, err := r.br.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := r.br.ReadByte()
	if err != nil {
		return 0, err
	}
	return (int(hi)<<8 | int(lo)) + 1, nil
}

func (r *Reader) readUncompressedChunk(dictReset bool) error {
	if dictReset {
		r.dec.ResetDict(r.dictSize)
	}
	r.dec.ResetState()
	size, err := r.readUint16Field()
	if err != nil {
		return err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return err
	}
	r.dec.AbsorbLiteral(buf)
	r.pending = buf
	r.pos = 0
	return nil
}

func (r *Reader) readLZMAChunk(ctrl byte) error {
	b1, err := r.br.ReadByte()
	if err != nil {
		return err
	}
	b2, err := r.br.ReadByte()
	if err != nil {
		return err
	}
	b3, err := r.br.ReadByte()
	if err != nil {
		return err
	}
	b4, err := r.br.ReadByte()
	if err != nil {
		return err
	}
	uncompressedSize := (int(ctrl&0x1F)<<16 | int(b1)<<8 | int(b2)) + 1
	compressedSize := (int(b3)<<8 | int(b4)) + 1

	resetKind := (ctrl >> ctrlLZMAResetShift) & 0x3
	if resetKind >= 2 {
		propByte, err := r.br.ReadByte()
		if err != nil {
			return err
		}
		lc := uint32(propByte % 9)
		rem := propByte / 9
		lp := uint32(rem % 5)
		pb := uint32(rem / 5)
		if err := r.dec.SetParams(lzma.Params{LC: lc, LP: lp, PB: pb}); err != nil {
			return err
		}
	} else if resetKind == 1 {
		r.dec.ResetState()
	}
	if resetKind == 3 {
		r.dec.ResetDict(r.dictSize)
	}

	rawChunk := make([]byte, compressedSize)
	if _, err := io.ReadFull(r.br, rawChunk); err != nil {
		return err
	}
	rc, err := rangecoder.NewDecoder(bytes.NewReader(rawChunk))
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := r.dec.DecodeChunk(rc, &out, uncompressedSize); err != nil {
		return err
	}
	r.pending = out.Bytes()
	r.pos = 0
	return nil
}
