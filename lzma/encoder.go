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
	"math/bits"

	"github.com/go7z/sevenz/lzma/match"
	"github.com/go7z/sevenz/lzma/rangecoder"
)

// Mode selects the match finder effort the encoder spends per position.
// Both modes run the same single-step (one-symbol) parse; they differ
// only in how hard the underlying finder searches for a match, per the
// ModeNormal/ModeFast distinction in spec.md §4.C.
type Mode int

const (
	// ModeFast runs a depth-limited hash-chain search with a short
	// nice-length cutoff.
	ModeFast Mode = iota
	// ModeNormal runs a much deeper search with a longer nice-length
	// cutoff, trading encode time for a better match on average.
	ModeNormal
)

// Encoder encodes raw bytes into an LZMA bitstream, maintaining its own
// match finder and probability model across calls to EncodeChunk so
// that LZMA2's un-reset chunks compress against the full history.
type Encoder struct {
	b      *baseState
	finder *match.Finder
	pos    uint64
}

// NewEncoder constructs an Encoder with the given parameters, dictionary
// size and match-finder effort.
func NewEncoder(p Params, mode Mode, dictSize uint32) (*Encoder, error) {
	b, err := newBaseState(p)
	if err != nil {
		return nil, err
	}
	cfg := match.Config{
		DictSize:        dictSize,
		ExtraSizeAfter:  matchMaxLen,
		MatchLenMax:     matchMaxLen,
		NiceLen:         32,
		BinaryTree:      mode == ModeNormal,
	}
	if mode == ModeNormal {
		cfg.NiceLen = 64
		cfg.DepthLimit = 512
	} else {
		cfg.DepthLimit = 32
	}
	return &Encoder{b: b, finder: match.New(cfg)}, nil
}

// ResetState reinitialises the probability model and FSM state without
// touching the match finder's dictionary.
func (e *Encoder) ResetState() { e.b.reset() }

// ResetDict discards accumulated dictionary history and the stream
// position counter, starting a fresh match-finder window.
func (e *Encoder) ResetDict(dictSize uint32) {
	cfg := e.finder.Config()
	cfg.DictSize = dictSize
	e.finder = match.New(cfg)
	e.pos = 0
}

// SetParams replaces lc/lp/pb, implicitly performing a state reset.
func (e *Encoder) SetParams(p Params) error {
	b, err := newBaseState(p)
	if err != nil {
		return err
	}
	e.b = b
	return nil
}

// EncodeChunk feeds data through the match finder and encodes it via rc,
// updating the running stream-position counter used for posState.
func (e *Encoder) EncodeChunk(rc *rangecoder.Encoder, data []byte) error {
	e.finder.FillWindow(data)
	remaining := len(data)
	b := e.b

	for remaining > 0 {
		avail := e.finder.Avail()
		maxLen := matchMaxLen
		if maxLen > avail {
			maxLen = avail
		}

		bestRepLen, bestRepIdx := 0, 0
		for i := 0; i < 4; i++ {
			if l := e.finder.MatchLenAt(b.reps[i], maxLen); l > bestRepLen {
				bestRepLen, bestRepIdx = l, i
			}
		}

		matches := e.finder.GetMatches()
		var bestDist uint32
		var bestLen int
		if len(matches) > 0 {
			m := matches[len(matches)-1]
			bestDist, bestLen = m.Distance, m.Len
		}

		posState := uint32(e.pos) & b.posMask

		switch {
		case bestRepLen >= 2 && bestRepLen+1 >= bestLen:
			if err := rc.EncodeBit(b.isMatch[b.state][:], int(posState), 1); err != nil {
				return err
			}
			if err := rc.EncodeBit(b.isRep[:], int(b.state), 1); err != nil {
				return err
			}
			if err := e.encodeRepDistance(rc, bestRepIdx); err != nil {
				return err
			}
			rawLen := uint32(bestRepLen - matchMinLen)
			if err := b.repLen.encode(rc, posState, rawLen); err != nil {
				return err
			}
			b.state = stateUpdateRep(b.state)
			e.finder.Skip(bestRepLen - 1)
			e.pos += uint64(bestRepLen)
			remaining -= bestRepLen

		case bestLen >= 2:
			if err := rc.EncodeBit(b.isMatch[b.state][:], int(posState), 1); err != nil {
				return err
			}
			if err := rc.EncodeBit(b.isRep[:], int(b.state), 0); err != nil {
				return err
			}
			b.reps[3], b.reps[2], b.reps[1] = b.reps[2], b.reps[1], b.reps[0]
			b.reps[0] = bestDist
			rawLen := uint32(bestLen - matchMinLen)
			if err := b.matchLen.encode(rc, posState, rawLen); err != nil {
				return err
			}
			if err := e.encodeDistance(rc, lenToPosState(rawLen), bestDist); err != nil {
				return err
			}
			b.state = stateUpdateMatch(b.state)
			e.finder.Skip(bestLen - 1)
			e.pos += uint64(bestLen)
			remaining -= bestLen

		default:
			sym := e.finder.GetByte(0)
			if err := rc.EncodeBit(b.isMatch[b.state][:], int(posState), 0); err != nil {
				return err
			}
			var prevByte byte
			if e.pos > 0 {
				prevByte = e.finder.GetByte(1)
			}
			litState := b.literalState(e.pos, prevByte)
			probs := b.literalProbSlice(litState)
			var err error
			if stateIsCharState(b.state) {
				err = encodeLiteralNormal(rc, probs, sym)
			} else {
				matchByte := e.finder.GetByte(b.reps[0] + 1)
				err = encodeLiteralMatched(rc, probs, matchByte, sym)
			}
			if err != nil {
				return err
			}
			b.state = stateUpdateLiteral(b.state)
			e.pos++
			remaining--
		}
	}
	return nil
}

func getPosSlot(dist uint32) uint32 {
	if dist < startPosModelIndex {
		return dist
	}
	n := uint32(bits.Len32(dist)) - 1
	return n<<1 | (dist>>(n-1))&1
}

func (e *Encoder) encodeDistance(rc *rangecoder.Encoder, lenState uint32, dist uint32) error {
	b := e.b
	posSlot := getPosSlot(dist)
	if err := rc.EncodeBitTree(b.posSlotDecoder[lenState][:], posSlot); err != nil {
		return err
	}
	if posSlot < startPosModelIndex {
		return nil
	}
	numDirectBits := posSlot>>1 - 1
	distBase := (2 | posSlot&1) << numDirectBits
	footer := dist - distBase
	if posSlot < endPosModelIndex {
		offset := int(distBase - posSlot)
		return encodeReverseBitsAt(rc, b.specPos[:], offset, footer, uint(numDirectBits))
	}
	if err := rc.EncodeDirectBits(footer>>numAlignBits, uint(numDirectBits-numAlignBits)); err != nil {
		return err
	}
	return rc.EncodeReverseBitTree(b.align[:], footer&(1<<numAlignBits-1))
}

// encodeRepDistance encodes which of the four most-recent distances is
// being reused and rotates the rep list accordingly. idx 0 ("rep0
// long") leaves the rep list untouched: it is the same distance as the
// last match, just a run of matchMinLen bytes or more instead of one.
func (e *Encoder) encodeRepDistance(rc *rangecoder.Encoder, idx int) error {
	b := e.b
	posState := uint32(e.pos) & b.posMask
	if idx == 0 {
		if err := rc.EncodeBit(b.isRepG0[:], int(b.state), 0); err != nil {
			return err
		}
		return rc.EncodeBit(b.isRep0Long[b.state][:], int(posState), 1)
	}
	if err := rc.EncodeBit(b.isRepG0[:], int(b.state), 1); err != nil {
		return err
	}
	switch idx {
	case 1:
		if err := rc.EncodeBit(b.isRepG1[:], int(b.state), 0); err != nil {
			return err
		}
	case 2:
		if err := rc.EncodeBit(b.isRepG1[:], int(b.state), 1); err != nil {
			return err
		}
		if err := rc.EncodeBit(b.isRepG2[:], int(b.state), 0); err != nil {
			return err
		}
	case 3:
		if err := rc.EncodeBit(b.isRepG1[:], int(b.state), 1); err != nil {
			return err
		}
		if err := rc.EncodeBit(b.isRepG2[:], int(b.state), 1); err != nil {
			return err
		}
	}
	dist := b.reps[idx]
	switch idx {
	case 3:
		b.reps[3] = b.reps[2]
		fallthrough
	case 2:
		b.reps[2] = b.reps[1]
		fallthrough
	case 1:
		b.reps[1] = b.reps[0]
	}
	b.reps[0] = dist
	return nil
}
