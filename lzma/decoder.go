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

package lzma

import (
	"bufio"
	"io"

	"github.com/go7z/sevenz/lzma/rangecoder"
)

// dict is the decoder's sliding-window output buffer: a fixed-size ring
// that both satisfies back-reference reads and (via the caller copying
// out each byte as it is produced) feeds the consumer's output stream.
type dict struct {
	buf  []byte
	pos  int
	full bool
}

func newDict(size int) *dict {
	if size < 1 {
		size = 1
	}
	return &dict{buf: make([]byte, size)}
}

func (d *dict) putByte(b byte) {
	d.buf[d.pos] = b
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
		d.full = true
	}
}

func (d *dict) getByte(dist uint32) byte {
	idx := d.pos - int(dist) - 1
	if idx < 0 {
		idx += len(d.buf)
	}
	return d.buf[idx]
}

// Decoder decodes a single raw LZMA bitstream (no chunk framing) against
// a persistent probability model and sliding dictionary. LZMA2 framing
// (package lzma/lzma2) drives ResetState/ResetDict/SetParams between
// chunks and supplies a fresh *rangecoder.Decoder per chunk.
type Decoder struct {
	base *dict
	b    *baseState
	pos  uint64
}

// NewDecoder constructs a Decoder with the given literal/position
// parameters and a dictionary sized dictSize bytes.
func NewDecoder(p Params, dictSize uint32) (*Decoder, error) {
	b, err := newBaseState(p)
	if err != nil {
		return nil, err
	}
	return &Decoder{base: newDict(int(dictSize)), b: b}, nil
}

// ResetState reinitialises the probability model and FSM state without
// touching the sliding dictionary, per an LZMA2 "state reset" chunk.
func (d *Decoder) ResetState() { d.b.reset() }

// ResetDict discards the sliding dictionary and resets the stream
// position counter used to derive posState, per an LZMA2 "dict reset"
// chunk. It does not by itself reset the probability model; callers
// that need both call ResetState too, matching the control-byte bits
// LZMA2 actually carries.
func (d *Decoder) ResetDict(dictSize uint32) {
	d.base = newDict(int(dictSize))
	d.pos = 0
}

// SetParams replaces lc/lp/pb, reallocating the literal probability
// table and implicitly performing a state reset, per an LZMA2 chunk
// whose control byte carries fresh properties.
func (d *Decoder) SetParams(p Params) error {
	b, err := newBaseState(p)
	if err != nil {
		return err
	}
	d.b = b
	return nil
}

// AbsorbLiteral folds already-known bytes (from an LZMA2 uncompressed
// chunk) into the dictionary and the position counter used to derive
// posState, without any range coding. It keeps later back-references
// and posState calculations correct across a chunk that carried its
// payload verbatim.
func (d *Decoder) AbsorbLiteral(data []byte) {
	for _, b := range data {
		d.base.putByte(b)
	}
	d.pos += uint64(len(data))
}

// DecodeChunk decodes exactly size bytes of uncompressed output from rc,
// writing them to w and folding them into the sliding dictionary.
func (d *Decoder) DecodeChunk(rc *rangecoder.Decoder, w io.Writer, size int) error {
	bw := bufio.NewWriter(w)
	b := d.b
	produced := 0

	emit := func(sym byte) error {
		d.base.putByte(sym)
		if err := bw.WriteByte(sym); err != nil {
			return err
		}
		d.pos++
		produced++
		return nil
	}

	for produced < size {
		posState := uint32(d.pos) & b.posMask
		isMatch, err := rc.DecodeBit(b.isMatch[b.state][:], int(posState))
		if err != nil {
			return err
		}
		if isMatch == 0 {
			var prevByte byte
			if d.pos > 0 {
				prevByte = d.base.getByte(0)
			}
			litState := b.literalState(d.pos, prevByte)
			probs := b.literalProbSlice(litState)
			var sym byte
			if stateIsCharState(b.state) {
				sym, err = decodeLiteralNormal(rc, probs)
			} else {
				matchByte := d.base.getByte(b.reps[0])
				sym, err = decodeLiteralMatched(rc, probs, matchByte)
			}
			if err != nil {
				return err
			}
			if err := emit(sym); err != nil {
				return err
			}
			b.state = stateUpdateLiteral(b.state)
			continue
		}

		isRep, err := rc.DecodeBit(b.isRep[:], int(b.state))
		if err != nil {
			return err
		}

		var rawLen uint32
		if isRep == 0 {
			b.reps[3], b.reps[2], b.reps[1] = b.reps[2], b.reps[1], b.reps[0]
			rawLen, err = b.matchLen.decode(rc, posState)
			if err != nil {
				return err
			}
			b.state = stateUpdateMatch(b.state)
			lenState := lenToPosState(rawLen)
			posSlot, err := rc.DecodeBitTree(b.posSlotDecoder[lenState][:])
			if err != nil {
				return err
			}
			if posSlot < startPosModelIndex {
				b.reps[0] = posSlot
			} else {
				numDirectBits := posSlot>>1 - 1
				distBase := (2 | posSlot&1) << numDirectBits
				if posSlot < endPosModelIndex {
					offset := int(distBase - posSlot)
					footer, err := decodeReverseBitsAt(rc, b.specPos[:], offset, uint(numDirectBits))
					if err != nil {
						return err
					}
					b.reps[0] = distBase + footer
				} else {
					direct, err := rc.DecodeDirectBits(uint(numDirectBits - numAlignBits))
					if err != nil {
						return err
					}
					footer, err := rc.DecodeReverseBitTree(b.align[:])
					if err != nil {
						return err
					}
					b.reps[0] = distBase + direct<<numAlignBits + footer
				}
			}
			if b.reps[0] == 0xFFFFFFFF {
				return ErrEndMarker
			}
		} else {
			isRepG0, err := rc.DecodeBit(b.isRepG0[:], int(b.state))
			if err != nil {
				return err
			}
			if isRepG0 == 0 {
				isRep0Long, err := rc.DecodeBit(b.isRep0Long[b.state][:], int(posState))
				if err != nil {
					return err
				}
				if isRep0Long == 0 {
					b.state = stateUpdateShortRep(b.state)
					sym := d.base.getByte(b.reps[0])
					if err := emit(sym); err != nil {
						return err
					}
					continue
				}
			} else {
				var dist uint32
				isRepG1, err := rc.DecodeBit(b.isRepG1[:], int(b.state))
				if err != nil {
					return err
				}
				if isRepG1 == 0 {
					dist = b.reps[1]
				} else {
					isRepG2, err := rc.DecodeBit(b.isRepG2[:], int(b.state))
					if err != nil {
						return err
					}
					if isRepG2 == 0 {
						dist = b.reps[2]
					} else {
						dist = b.reps[3]
						b.reps[3] = b.reps[2]
					}
					b.reps[2] = b.reps[1]
				}
				b.reps[1] = b.reps[0]
				b.reps[0] = dist
			}
			rawLen, err = b.repLen.decode(rc, posState)
			if err != nil {
				return err
			}
			b.state = stateUpdateRep(b.state)
		}

		length := rawLen + matchMinLen
		for i := uint32(0); i < length && produced < size; i++ {
			sym := d.base.getByte(b.reps[0])
			if err := emit(sym); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
