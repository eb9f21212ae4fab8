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
	"github.com/go7z/sevenz/internal/coder"
	"github.com/go7z/sevenz/lzma/lzma2"
)

// DefaultDictSize is the LZMA2 dictionary size a Writer uses when a
// CoderConfig doesn't specify one, matching the default the teacher's
// source writer falls back to for its sole supported content method.
const DefaultDictSize = 1 << 24 // 16 MiB

// CoderConfig names one stage of a folder's content pipeline, as the
// caller-facing counterpart of the lower-level internal/coder.Coder:
// a method ID plus whatever properties that method needs, built by one
// of the constructors below rather than assembled by hand.
type CoderConfig struct {
	MethodID   []byte
	Properties []byte
}

// CopyMethod stores entry content without compression.
func CopyMethod() CoderConfig {
	return CoderConfig{MethodID: coder.MethodCopy}
}

// LZMA2Method compresses with LZMA2 at the given dictionary size,
// rounded up by lzma2.EncodeDictSizeProperty to the smallest
// representable size not below it, per spec.md's LZMA2 properties byte format.
func LZMA2Method(dictSize uint32) CoderConfig {
	return CoderConfig{MethodID: coder.MethodLZMA2, Properties: []byte{lzma2.EncodeDictSizeProperty(dictSize)}}
}

// DeltaMethod applies the distance-N byte delta filter, typically
// chained ahead of an LZMA2Method stage for structured binary data.
func DeltaMethod(distance int) CoderConfig {
	if distance < 1 {
		distance = 1
	}
	if distance > 256 {
		distance = 256
	}
	return CoderConfig{MethodID: coder.MethodDelta, Properties: []byte{byte(distance - 1)}}
}

// BCJX86Method applies the x86 branch-call-jump address filter,
// typically chained ahead of an LZMA2Method stage for x86 machine code.
func BCJX86Method() CoderConfig {
	return CoderConfig{MethodID: coder.MethodBCJX86}
}
