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

// Package lzma implements the LZMA probability model, state machine and
// encoder/decoder described in spec.md §4.C: a 12-state literal/match/rep
// finite state machine driving a range-coded bitstream over the
// lzma/rangecoder primitives, with back-references resolved against a
// sliding dictionary.
package lzma

import "github.com/go7z/sevenz/lzma/rangecoder"

const (
	numStates     = 12
	numPosBitsMax = 4

	matchMinLen = 2
	matchMaxLen = 273

	numLenToPosStates  = 4
	numAlignBits       = 4
	startPosModelIndex = 4
	endPosModelIndex   = 14
	numFullDistances   = 1 << (endPosModelIndex >> 1)
	numPosSlotBits     = 6
)

// Params holds the three context parameters that select how an LZMA
// stream's literal and position bits are interpreted: lc literal
// context bits, lp literal position bits, pb position bits.
type Params struct {
	LC, LP, PB uint32
}

func (p Params) validate() error {
	if p.LC > 8 || p.LP > 4 || p.PB > 4 || p.LC+p.LP > 4 {
		return ErrInvalidParams
	}
	return nil
}

// DefaultParams is lc=3, lp=0, pb=2, the values 7-Zip uses unless a
// folder's coder properties say otherwise.
var DefaultParams = Params{LC: 3, LP: 0, PB: 2}

func stateUpdateLiteral(s uint32) uint32 {
	switch {
	case s < 4:
		return 0
	case s < 10:
		return s - 3
	default:
		return s - 6
	}
}

func stateUpdateMatch(s uint32) uint32 {
	if s < 7 {
		return 7
	}
	return 10
}

func stateUpdateRep(s uint32) uint32 {
	if s < 7 {
		return 8
	}
	return 11
}

func stateUpdateShortRep(s uint32) uint32 {
	if s < 7 {
		return 9
	}
	return 11
}

func stateIsCharState(s uint32) bool { return s < 7 }

func lenToPosState(length uint32) uint32 {
	if length < numLenToPosStates {
		return length
	}
	return numLenToPosStates - 1
}

// lengthCoder is the LZMA length coder: a choice bit selects between a
// low (0-7), mid (8-15) or high (16-271) bit-tree range, each keyed by
// position state for the low/mid ranges.
type lengthCoder struct {
	choice [2]uint16
	low    [][]uint16
	mid    [][]uint16
	high   [256]uint16
}

func newLengthCoder(numPosStates uint32) *lengthCoder {
	lc := &lengthCoder{
		low: make([][]uint16, numPosStates),
		mid: make([][]uint16, numPosStates),
	}
	for i := range lc.low {
		lc.low[i] = make([]uint16, 8)
		lc.mid[i] = make([]uint16, 8)
	}
	lc.reset()
	return lc
}

func (lc *lengthCoder) reset() {
	rangecoder.ResetProbs(lc.choice[:])
	for i := range lc.low {
		rangecoder.ResetProbs(lc.low[i])
		rangecoder.ResetProbs(lc.mid[i])
	}
	rangecoder.ResetProbs(lc.high[:])
}

func (lc *lengthCoder) decode(d *rangecoder.Decoder, posState uint32) (uint32, error) {
	bit, err := d.DecodeBit(lc.choice[:], 0)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		return d.DecodeBitTree(lc.low[posState])
	}
	bit, err = d.DecodeBit(lc.choice[:], 1)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		sym, err := d.DecodeBitTree(lc.mid[posState])
		return 8 + sym, err
	}
	sym, err := d.DecodeBitTree(lc.high[:])
	return 16 + sym, err
}

func (lc *lengthCoder) encode(e *rangecoder.Encoder, posState uint32, length uint32) error {
	if length < 8 {
		if err := e.EncodeBit(lc.choice[:], 0, 0); err != nil {
			return err
		}
		return e.EncodeBitTree(lc.low[posState], length)
	}
	if err := e.EncodeBit(lc.choice[:], 0, 1); err != nil {
		return err
	}
	if length < 16 {
		if err := e.EncodeBit(lc.choice[:], 1, 0); err != nil {
			return err
		}
		return e.EncodeBitTree(lc.mid[posState], length-8)
	}
	if err := e.EncodeBit(lc.choice[:], 1, 1); err != nil {
		return err
	}
	return e.EncodeBitTree(lc.high[:], length-16)
}

// baseState is the probability model and FSM state shared by Decoder
// and Encoder. Resetting it (without touching the sliding dictionary)
// corresponds to an LZMA2 "state reset" chunk.
type baseState struct {
	params         Params
	posMask        uint32
	literalPosMask uint32
	numPosStates   uint32

	state uint32
	reps  [4]uint32

	literalProbs []uint16

	isMatch    [numStates][1 << numPosBitsMax]uint16
	isRep      [numStates]uint16
	isRepG0    [numStates]uint16
	isRepG1    [numStates]uint16
	isRepG2    [numStates]uint16
	isRep0Long [numStates][1 << numPosBitsMax]uint16

	posSlotDecoder [numLenToPosStates][1 << numPosSlotBits]uint16
	specPos        [numFullDistances]uint16
	align          [1 << numAlignBits]uint16

	matchLen *lengthCoder
	repLen   *lengthCoder
}

func newBaseState(p Params) (*baseState, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	b := &baseState{
		params:         p,
		posMask:        1<<p.PB - 1,
		literalPosMask: 1<<p.LP - 1,
		numPosStates:   1 << p.PB,
	}
	b.literalProbs = make([]uint16, 0x300<<(p.LC+p.LP))
	b.matchLen = newLengthCoder(b.numPosStates)
	b.repLen = newLengthCoder(b.numPosStates)
	b.reset()
	return b, nil
}

// reset restores the state machine and every probability slot to their
// initial values, as at the start of a stream or at an LZMA2 state
// reset. It does not touch the sliding dictionary.
func (b *baseState) reset() {
	b.state = 0
	b.reps = [4]uint32{}
	rangecoder.ResetProbs(b.literalProbs)
	for i := range b.isMatch {
		rangecoder.ResetProbs(b.isMatch[i][:])
	}
	rangecoder.ResetProbs(b.isRep[:])
	rangecoder.ResetProbs(b.isRepG0[:])
	rangecoder.ResetProbs(b.isRepG1[:])
	rangecoder.ResetProbs(b.isRepG2[:])
	for i := range b.isRep0Long {
		rangecoder.ResetProbs(b.isRep0Long[i][:])
	}
	for i := range b.posSlotDecoder {
		rangecoder.ResetProbs(b.posSlotDecoder[i][:])
	}
	rangecoder.ResetProbs(b.specPos[:])
	rangecoder.ResetProbs(b.align[:])
	b.matchLen.reset()
	b.repLen.reset()
}

func (b *baseState) literalState(pos uint64, prevByte byte) uint32 {
	low := uint32(prevByte) >> (8 - b.params.LC)
	high := (uint32(pos) & b.literalPosMask) << b.params.LC
	return high | low
}

func (b *baseState) literalProbSlice(litState uint32) []uint16 {
	return b.literalProbs[0x300*litState : 0x300*(litState+1)]
}

func decodeLiteralNormal(d *rangecoder.Decoder, probs []uint16) (byte, error) {
	symbol := uint32(1)
	for symbol < 0x100 {
		bit, err := d.DecodeBit(probs, int(symbol))
		if err != nil {
			return 0, err
		}
		symbol = symbol<<1 | bit
	}
	return byte(symbol), nil
}

func decodeLiteralMatched(d *rangecoder.Decoder, probs []uint16, matchByte byte) (byte, error) {
	symbol := uint32(1)
	mb := uint32(matchByte)
	for symbol < 0x100 {
		matchBit := (mb >> 7) & 1
		mb <<= 1
		bit, err := d.DecodeBit(probs, int(((1+matchBit)<<8)+symbol))
		if err != nil {
			return 0, err
		}
		symbol = symbol<<1 | bit
		if matchBit != bit {
			for symbol < 0x100 {
				bit, err := d.DecodeBit(probs, int(symbol))
				if err != nil {
					return 0, err
				}
				symbol = symbol<<1 | bit
			}
			break
		}
	}
	return byte(symbol), nil
}

func encodeLiteralNormal(e *rangecoder.Encoder, probs []uint16, symbolByte byte) error {
	symbol := uint32(1)
	sb := uint32(symbolByte)
	for symbol < 0x100 {
		bit := (sb >> 7) & 1
		sb <<= 1
		if err := e.EncodeBit(probs, int(symbol), bit); err != nil {
			return err
		}
		symbol = symbol<<1 | bit
	}
	return nil
}

func encodeLiteralMatched(e *rangecoder.Encoder, probs []uint16, matchByte, symbolByte byte) error {
	symbol := uint32(1)
	mb := uint32(matchByte)
	sb := uint32(symbolByte)
	for symbol < 0x100 {
		matchBit := (mb >> 7) & 1
		mb <<= 1
		bit := (sb >> 7) & 1
		sb <<= 1
		if err := e.EncodeBit(probs, int(((1+matchBit)<<8)+symbol), bit); err != nil {
			return err
		}
		symbol = symbol<<1 | bit
		if matchBit != bit {
			for symbol < 0x100 {
				bit := (sb >> 7) & 1
				sb <<= 1
				if err := e.EncodeBit(probs, int(symbol), bit); err != nil {
					return err
				}
				symbol = symbol<<1 | bit
			}
			break
		}
	}
	return nil
}

// decodeReverseBitsAt and encodeReverseBitsAt implement a reverse
// (LSB-first) bit tree rooted at an explicit offset into a shared flat
// probability array, rather than at index 0 of a dedicated slice. The
// distance "special position" coder reuses one array across every
// position slot in [startPosModelIndex, endPosModelIndex), each at its
// own offset, exactly as the reference LZMA SDK's PosDecoders array
// does.
func decodeReverseBitsAt(d *rangecoder.Decoder, probs []uint16, offset int, numBits uint) (uint32, error) {
	symbol := uint32(1)
	var result uint32
	for i := uint(0); i < numBits; i++ {
		bit, err := d.DecodeBit(probs, offset+int(symbol))
		if err != nil {
			return 0, err
		}
		symbol = symbol<<1 | bit
		result |= bit << i
	}
	return result, nil
}

func encodeReverseBitsAt(e *rangecoder.Encoder, probs []uint16, offset int, value uint32, numBits uint) error {
	symbol := uint32(1)
	for i := uint(0); i < numBits; i++ {
		bit := (value >> i) & 1
		if err := e.EncodeBit(probs, offset+int(symbol), bit); err != nil {
			return err
		}
		symbol = symbol<<1 | bit
	}
	return nil
}
