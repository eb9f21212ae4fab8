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

import "errors"

// ErrInvalidParams is returned when lc, lp or pb fall outside the
// ranges the LZMA bitstream format allows (lc<=8, lp<=4, lc+lp<=4,
// pb<=4).
var ErrInvalidParams = errors.New("lzma: invalid lc/lp/pb parameters")

// ErrEndMarker is returned by the decoder if it decodes the explicit
// end-of-stream distance (0xFFFFFFFF). Folder coders in a 7z archive
// always carry a declared unpack size, so a conforming stream never
// needs one; seeing it indicates a malformed or truncated input.
var ErrEndMarker = errors.New("lzma: unexpected end-of-stream marker")
