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

import "errors"

// Error taxonomy for the 7z container engine, per spec.md §7.
var (
	// ErrBadSignature indicates the magic bytes or version pair at the
	// start of the archive do not match the 7z signature header.
	ErrBadSignature = errors.New("sevenzip: bad signature header")

	// ErrChecksumMismatch indicates a start-header, header-database,
	// packed-stream or per-entry CRC-32 disagreement.
	ErrChecksumMismatch = errors.New("sevenzip: checksum mismatch")

	// ErrMalformedHeader indicates a structural parse error: an unknown
	// mandatory tag, an out-of-range variable-length integer, a
	// non-chain folder binding topology, or an otherwise impossible
	// size or offset.
	ErrMalformedHeader = errors.New("sevenzip: malformed header")

	// ErrUnsupportedCompressionMethod indicates a coder method id the
	// pipeline factory cannot construct.
	ErrUnsupportedCompressionMethod = errors.New("sevenzip: unsupported compression method")

	// ErrPasswordRequired indicates an encrypted stream was encountered
	// without a password.
	ErrPasswordRequired = errors.New("sevenzip: password required")

	// ErrBadPassword indicates an encrypted stream failed to decrypt
	// with the supplied password.
	ErrBadPassword = errors.New("sevenzip: incorrect password")

	// ErrWriterClosed indicates Finish has already been called (or
	// already failed) on this Writer; writers are single-use.
	ErrWriterClosed = errors.New("sevenzip: writer already finished")
)
