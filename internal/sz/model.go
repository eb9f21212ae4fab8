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

import "github.com/go7z/sevenz/internal/coder"

// Folder is one decode pipeline: an ordered coder list, the bindings
// connecting their stream ports, and the CRC-32 of the fully decoded
// primary output, if recorded.
type Folder struct {
	Coders   []coder.Coder
	Bindings []coder.Binding

	// PackedIndices lists, in order, which of the folder's coder input
	// ports are fed directly from a packed stream (as opposed to from
	// another coder's output) — almost always just the first coder's
	// input for the chain topology this module supports.
	PackedIndices []int

	UnpackCRCDefined bool
	UnpackCRC        uint32

	// NumUnpackSubstreams is the count of files whose content this
	// folder's primary output is divided into; defaults to 1 when
	// SUB_STREAMS_INFO's NUM_UNPACK_STREAM entry is absent.
	NumUnpackSubstreams int
}

// PrimaryOutputSize returns the declared total output size of the
// folder's primary (final) coder — the size FilesInfo slices substreams
// out of.
func (f Folder) PrimaryOutputSize() int64 {
	if len(f.Coders) == 0 {
		return 0
	}
	// The primary output is whichever coder output port is not
	// consumed by another coder's input — for the chain topology this
	// module requires, that is always the last coder's output.
	return f.Coders[len(f.Coders)-1].OutputSize
}

// Database is the fully parsed header-database, per spec.md §3/§4.F.
type Database struct {
	PackPos   uint64
	PackSizes []int64
	// PackCRCs holds a CRC-32 per packed stream when defined, nil
	// otherwise (a pointer distinguishes "not recorded" from CRC 0).
	PackCRCs []*uint32

	Folders []Folder

	// SubStreamSizes and SubStreamCRCs are flattened across all
	// folders, in folder then in-folder order, matching spec.md §4.F's
	// SUB_STREAMS_INFO layout.
	SubStreamSizes []int64
	SubStreamCRCs  []*uint32

	Files []FileEntry
}

// FileEntry is one archive entry's metadata, per spec.md §3.
type FileEntry struct {
	Name        string
	IsDirectory bool
	IsAnti      bool
	HasStream   bool

	HasCreationTime bool
	CreationTime    uint64 // NTFS 100ns ticks since 1601-01-01
	HasAccessTime   bool
	AccessTime      uint64
	HasModTime      bool
	ModTime         uint64

	HasAttributes bool
	Attributes    uint32
}
