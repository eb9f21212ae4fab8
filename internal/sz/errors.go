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

import "errors"

var (
	// ErrBadSignature mirrors sevenzip.ErrBadSignature; internal/sz
	// cannot import sevenzip (it would be a cycle), so each taxonomy
	// sentinel has a package-local twin that sevenzip matches with
	// errors.Is at the package boundary and replaces with its own.
	ErrBadSignature     = errors.New("sz: bad signature header")
	ErrChecksumMismatch = errors.New("sz: checksum mismatch")
	ErrMalformedHeader  = errors.New("sz: malformed header")
	ErrUnknownTag       = errors.New("sz: unknown mandatory tag")
)
