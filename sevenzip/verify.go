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

package sevenzip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/go7z/sevenz/internal/coder"
)

// VerifyEntry cross-checks e's decompressed content against an
// independently implemented decoder, for the subset of folders this
// module can hand to one. It returns nil both when the cross-check
// passes and when e's folder uses a method this function doesn't know
// how to cross-check (LZMA2, Delta, BCJ chains, and anything
// multi-coder) — callers that want an unconditional guarantee should
// rely on Open's per-entry CRC-32 check instead, this is a
// belt-and-braces check for the plain-LZMA case.
//
// Plain LZMA's 7z coder properties are the same 5-byte lc/lp/pb and
// little-endian dictionary-size prefix the classic .lzma file header
// uses, so the independent decode only needs the 8-byte uncompressed
// size appended to reconstruct a full header.
func (r *Reader) VerifyEntry(e *Entry) error {
	if !e.HasStream {
		return nil
	}
	loc, ok := r.locs[e]
	if !ok {
		return fmt.Errorf("entry %q has no content location: %w", e.Name, ErrMalformedHeader)
	}
	folder := &r.db.Folders[loc.folderIndex]
	if len(folder.Coders) != 1 || !bytes.Equal(folder.Coders[0].MethodID, coder.MethodLZMA) {
		return nil
	}
	props := folder.Coders[0].Properties
	if len(props) != 5 {
		return fmt.Errorf("entry %q: lzma properties: expected 5 bytes, got %d: %w", e.Name, len(props), ErrMalformedHeader)
	}

	packed, err := r.packedBytes(loc.folderIndex)
	if err != nil {
		return err
	}

	header := make([]byte, 13)
	copy(header, props)
	binary.LittleEndian.PutUint64(header[5:13], uint64(folder.PrimaryOutputSize()))
	stream := make([]byte, 0, len(header)+len(packed))
	stream = append(stream, header...)
	stream = append(stream, packed...)

	cross, err := lzma.NewReader(bytes.NewReader(stream))
	if err != nil {
		return fmt.Errorf("entry %q: cross-check decoder init: %w", e.Name, err)
	}
	crossData, err := io.ReadAll(cross)
	if err != nil {
		return fmt.Errorf("entry %q: cross-check decode: %w", e.Name, err)
	}

	ours, err := r.decodeFolder(loc.folderIndex)
	if err != nil {
		return err
	}
	if !bytes.Equal(crossData, ours) {
		return fmt.Errorf("entry %q: decoded content disagrees with reference LZMA decoder", e.Name)
	}
	return nil
}
