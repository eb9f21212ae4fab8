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

// Package rangecoder implements the carry-propagating binary range coder
// that underlies LZMA. Probabilities are 11-bit integers indexed by caller
// supplied probability slots; the coder itself holds no model state.
package rangecoder

import (
	"errors"
	"io"
)

const (
	topBits        = 24
	topValue       = uint32(1) << topBits
	bitModelTotal  = 1 << 11
	bitModelBits   = 11
	moveBits       = 5
	moveReduceBits = 4
	bitPriceShift  = 4
)

// ErrCorruptStream is returned by NewDecoder when the mandatory leading
// byte of a range-coded stream is not zero.
var ErrCorruptStream = errors.New("rangecoder: first byte of stream is not zero")

// InitProb is the initial value of every probability slot.
const InitProb uint16 = bitModelTotal / 2

// ResetProbs sets every entry of probs to InitProb.
func ResetProbs(probs []uint16) {
	for i := range probs {
		probs[i] = InitProb
	}
}

// Decoder decodes bits from a range-coded byte stream.
type Decoder struct {
	r     io.ByteReader
	rng   uint32
	code  uint32
}

// NewDecoder reads the 5-byte range-coder preamble (one zero byte
// followed by a 4-byte big-endian code) from r.
func NewDecoder(r io.ByteReader) (*Decoder, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if b != 0x00 {
		return nil, ErrCorruptStream
	}
	d := &Decoder{r: r, rng: 0xFFFFFFFF}
	for range 4 {
		nb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		d.code = d.code<<8 | uint32(nb)
	}
	return d, nil
}

// IsStreamFinished reports whether the decoder's code register has fully
// drained, which is true at the end of a correctly finalised stream.
func (d *Decoder) IsStreamFinished() bool {
	return d.code == 0
}

func (d *Decoder) normalize() error {
	if d.rng < topValue {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		d.rng <<= 8
		d.code = d.code<<8 | uint32(b)
	}
	return nil
}

// DecodeBit decodes one bit using and updating probs[index].
func (d *Decoder) DecodeBit(probs []uint16, index int) (uint32, error) {
	if err := d.normalize(); err != nil {
		return 0, err
	}
	prob := uint32(probs[index])
	bound := (d.rng >> bitModelBits) * prob
	// code and bound are uint32, so a plain comparison is already unsigned.
	if d.code < bound {
		d.rng = bound
		probs[index] = uint16(prob + ((bitModelTotal - prob) >> moveBits))
		return 0, nil
	}
	d.rng -= bound
	d.code -= bound
	probs[index] = uint16(prob - (prob >> moveBits))
	return 1, nil
}

// DecodeBitTree walks an MSB-first binary tree of len(probs) probabilities
// and returns the decoded symbol in [0, len(probs)).
func (d *Decoder) DecodeBitTree(probs []uint16) (uint32, error) {
	symbol := uint32(1)
	n := uint32(len(probs))
	for symbol < n {
		bit, err := d.DecodeBit(probs, int(symbol))
		if err != nil {
			return 0, err
		}
		symbol = symbol<<1 | bit
	}
	return symbol - n, nil
}

// DecodeReverseBitTree walks an LSB-first binary tree of len(probs)
// probabilities and returns the decoded symbol in [0, len(probs)).
func (d *Decoder) DecodeReverseBitTree(probs []uint16) (uint32, error) {
	symbol := uint32(1)
	n := uint32(len(probs))
	var result uint32
	for i := uint(0); symbol < n; i++ {
		bit, err := d.DecodeBit(probs, int(symbol))
		if err != nil {
			return 0, err
		}
		symbol = symbol<<1 | bit
		result |= bit << i
	}
	return result, nil
}

// DecodeDirectBits decodes count equi-probable bits with no model update.
func (d *Decoder) DecodeDirectBits(count uint) (uint32, error) {
	var result uint32
	for ; count > 0; count-- {
		if err := d.normalize(); err != nil {
			return 0, err
		}
		d.rng >>= 1
		d.code -= d.rng
		t := 0 - (d.code >> 31)
		d.code += d.rng & t
		result = result<<1 | (1 + t)
	}
	return result, nil
}

// Encoder encodes bits into a range-coded byte stream.
type Encoder struct {
	w         io.ByteWriter
	low       uint64
	rng       uint32
	cache     byte
	cacheSize uint64
}

// NewEncoder returns an Encoder writing to w. The caller must call Finish
// exactly once when done.
func NewEncoder(w io.ByteWriter) *Encoder {
	e := &Encoder{w: w}
	e.Reset()
	return e
}

// Reset restores the encoder to its initial state without changing its
// destination writer.
func (e *Encoder) Reset() {
	e.low = 0
	e.rng = 0xFFFFFFFF
	e.cache = 0
	e.cacheSize = 1
}

func (e *Encoder) shiftLow() error {
	if uint32(e.low>>32) != 0 || e.low < 0xFF000000 {
		temp := e.cache
		carry := byte(e.low >> 32)
		for {
			if err := e.w.WriteByte(temp + carry); err != nil {
				return err
			}
			temp = 0xFF
			e.cacheSize--
			if e.cacheSize == 0 {
				break
			}
		}
		e.cache = byte(e.low >> 24)
	}
	e.cacheSize++
	e.low = (e.low & 0x00FFFFFF) << 8
	return nil
}

// EncodeBit encodes bit using and updating probs[index].
func (e *Encoder) EncodeBit(probs []uint16, index int, bit uint32) error {
	prob := uint32(probs[index])
	bound := (e.rng >> bitModelBits) * prob
	if bit == 0 {
		e.rng = bound
		probs[index] = uint16(prob + ((bitModelTotal - prob) >> moveBits))
	} else {
		e.low += uint64(bound)
		e.rng -= bound
		probs[index] = uint16(prob - (prob >> moveBits))
	}
	if e.rng < topValue {
		e.rng <<= 8
		if err := e.shiftLow(); err != nil {
			return err
		}
	}
	return nil
}

// EncodeBitTree encodes the low len(probs)-bit-width bits of symbol
// MSB-first.
func (e *Encoder) EncodeBitTree(probs []uint16, symbol uint32) error {
	index := uint32(1)
	mask := uint32(len(probs))
	for mask > 1 {
		mask >>= 1
		bit := symbol & mask
		if err := e.EncodeBit(probs, int(index), boolToBit(bit != 0)); err != nil {
			return err
		}
		index <<= 1
		if bit != 0 {
			index |= 1
		}
	}
	return nil
}

// EncodeReverseBitTree encodes symbol LSB-first.
func (e *Encoder) EncodeReverseBitTree(probs []uint16, symbol uint32) error {
	index := uint32(1)
	m := symbol | uint32(len(probs))
	for m != 1 {
		bit := m & 1
		m >>= 1
		if err := e.EncodeBit(probs, int(index), bit); err != nil {
			return err
		}
		index = index<<1 | bit
	}
	return nil
}

// EncodeDirectBits encodes the low count bits of value with no model
// update.
func (e *Encoder) EncodeDirectBits(value uint32, count uint) error {
	for {
		e.rng >>= 1
		count--
		if (value>>count)&1 != 0 {
			e.low += uint64(e.rng)
		}
		if e.rng < topValue {
			e.rng <<= 8
			if err := e.shiftLow(); err != nil {
				return err
			}
		}
		if count == 0 {
			break
		}
	}
	return nil
}

// Finish flushes the five finalisation bytes that every range-coded
// stream must end with.
func (e *Encoder) Finish() error {
	for range 5 {
		if err := e.shiftLow(); err != nil {
			return err
		}
	}
	return nil
}

func boolToBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// bufferWriter is a byte-oriented wrapper over a fixed []byte used by the
// buffered range encoder that backs each LZMA2 chunk.
type bufferWriter struct {
	buf []byte
	pos int
}

func (b *bufferWriter) WriteByte(c byte) error {
	if b.pos >= len(b.buf) {
		return io.ErrShortBuffer
	}
	b.buf[b.pos] = c
	b.pos++
	return nil
}

// BufferedEncoder is a range Encoder that writes into an owned scratch
// buffer sized for one LZMA2 chunk, per spec §4.A and §4.D.
type BufferedEncoder struct {
	*Encoder
	buf *bufferWriter
}

// NewBufferedEncoder allocates a buffered encoder with the given scratch
// capacity (LZMA2 uses 1<<16).
func NewBufferedEncoder(size int) *BufferedEncoder {
	buf := &bufferWriter{buf: make([]byte, size)}
	return &BufferedEncoder{Encoder: NewEncoder(buf), buf: buf}
}

// ResetBuffer rewinds the scratch buffer and the encoder state so the
// BufferedEncoder can be reused for the next chunk.
func (b *BufferedEncoder) ResetBuffer() {
	b.Encoder.Reset()
	b.buf.pos = 0
}

// FinishBuffer finalises the stream and returns the number of bytes
// written into the scratch buffer.
func (b *BufferedEncoder) FinishBuffer() (int, error) {
	if err := b.Encoder.Finish(); err != nil {
		return 0, err
	}
	return b.buf.pos, nil
}

// Bytes returns the portion of the scratch buffer written so far.
func (b *BufferedEncoder) Bytes() []byte {
	return b.buf.buf[:b.buf.pos]
}

// prices is the 7-bit-index bit-price table used by the optimal-parse
// encoder, reproduced from the reference LZMA implementation.
var prices = [128]uint32{
	0x80, 0x67, 0x5b, 0x54, 0x4e, 0x49, 0x45, 0x42, 0x3f, 0x3d, 0x3a, 0x38, 0x36, 0x34, 0x33, 0x31,
	0x30, 0x2e, 0x2d, 0x2c, 0x2b, 0x2a, 0x29, 0x28, 0x27, 0x26, 0x25, 0x24, 0x23, 0x22, 0x22, 0x21,
	0x20, 0x1f, 0x1f, 0x1e, 0x1d, 0x1d, 0x1c, 0x1c, 0x1b, 0x1a, 0x1a, 0x19, 0x19, 0x18, 0x18, 0x17,
	0x17, 0x16, 0x16, 0x16, 0x15, 0x15, 0x14, 0x14, 0x13, 0x13, 0x13, 0x12, 0x12, 0x11, 0x11, 0x11,
	0x10, 0x10, 0x10, 0x0f, 0x0f, 0x0f, 0x0e, 0x0e, 0x0e, 0x0d, 0x0d, 0x0d, 0x0c, 0x0c, 0x0c, 0x0b, 0x0b, 0x0b,
	0x0b, 0x0a, 0x0a, 0x0a, 0x0a, 0x09, 0x09, 0x09, 0x09, 0x08, 0x08, 0x08, 0x08, 0x07, 0x07, 0x07, 0x07, 0x06, 0x06,
	0x06, 0x06, 0x05, 0x05, 0x05, 0x05, 0x05, 0x04, 0x04, 0x04, 0x04, 0x03, 0x03, 0x03, 0x03, 0x03, 0x02, 0x02, 0x02,
	0x02, 0x02, 0x02, 0x01, 0x01, 0x01, 0x01, 0x01,
}

// GetBitPrice returns the bit-price of coding bit against prob.
func GetBitPrice(prob uint32, bit uint32) uint32 {
	i := (prob ^ ((0 - bit) & (bitModelTotal - 1))) >> moveReduceBits
	return prices[i&0x7F]
}

// GetBitTreePrice returns the cumulative price of coding symbol through
// the MSB-first tree probs.
func GetBitTreePrice(probs []uint16, symbol uint32) uint32 {
	var price uint32
	m := symbol | uint32(len(probs))
	for m != 1 {
		bit := m & 1
		m >>= 1
		price += GetBitPrice(uint32(probs[m]), bit)
	}
	return price
}

// GetReverseBitTreePrice returns the cumulative price of coding symbol
// through the LSB-first tree probs.
func GetReverseBitTreePrice(probs []uint16, symbol uint32) uint32 {
	var price uint32
	index := uint32(1)
	m := symbol | uint32(len(probs))
	for m != 1 {
		bit := m & 1
		m >>= 1
		price += GetBitPrice(uint32(probs[index]), bit)
		index = index<<1 | bit
	}
	return price
}

// GetDirectBitsPrice returns the price of count equi-probable bits.
func GetDirectBitsPrice(count uint32) uint32 {
	return count << bitPriceShift
}
