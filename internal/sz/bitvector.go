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

package sz

import (
	"io"

	"github.com/icza/bitio"
)

// ReadBitVector reads n MSB-first packed boolean flags, trailing
// zero-padded to a byte boundary, per spec.md §4.F. Using icza/bitio
// for the bit cursor sidesteps the accumulator-reset bug spec.md §9
// calls out in the original implementation's hand-rolled bit packing:
// bitio.Reader never clears its accumulator mid-byte.
func ReadBitVector(r io.Reader, n int) ([]bool, error) {
	br := bitio.NewReader(r)
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		b, err := br.ReadBool()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// WriteBitVector writes bits MSB-first, zero-padding the final byte.
func WriteBitVector(w io.Writer, bits []bool) error {
	bw := bitio.NewWriter(w)
	for _, b := range bits {
		if err := bw.WriteBool(b); err != nil {
			return err
		}
	}
	return bw.Close()
}

// ReadOptionalBitVector reads the "all-defined" byte that precedes many
// 7z boolean vectors: when it is nonzero, every flag is true and the
// packed vector itself is omitted from the stream.
func ReadOptionalBitVector(r io.Reader, br io.ByteReader, n int) ([]bool, error) {
	allDefined, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	if allDefined != 0 {
		out := make([]bool, n)
		for i := range out {
			out[i] = true
		}
		return out, nil
	}
	return ReadBitVector(r, n)
}

// WriteOptionalBitVector writes the all-defined byte, and the packed
// vector itself unless every flag is set.
func WriteOptionalBitVector(w io.Writer, bw io.ByteWriter, bits []bool) error {
	allDefined := true
	for _, b := range bits {
		if !b {
			allDefined = false
			break
		}
	}
	if allDefined {
		return bw.WriteByte(1)
	}
	if err := bw.WriteByte(0); err != nil {
		return err
	}
	return WriteBitVector(w, bits)
}
