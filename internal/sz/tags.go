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

// Header-database property tags, the closed enumeration from spec.md §4.F.
const (
	tagEnd                 = 0x00
	tagHeader              = 0x01
	tagArchiveProperties   = 0x02
	tagAdditionalStreams   = 0x03
	tagMainStreamsInfo     = 0x04
	tagFilesInfo           = 0x05
	tagPackInfo            = 0x06
	tagUnpackInfo          = 0x07
	tagSubStreamsInfo      = 0x08
	tagSize                = 0x09
	tagCRC                 = 0x0A
	tagFolder              = 0x0B
	tagCodersUnpackSize    = 0x0C
	tagNumUnpackStream     = 0x0D
	tagEmptyStream         = 0x0E
	tagEmptyFile           = 0x0F
	tagAnti                = 0x10
	tagName                = 0x11
	tagCTime               = 0x12
	tagATime               = 0x13
	tagMTime               = 0x14
	tagAttributes          = 0x15
	tagComment             = 0x16
	tagEncodedHeader       = 0x17
	tagStartPos            = 0x18
	tagDummy               = 0x19
)
