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

package coder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go7z/sevenz/lzma"
	"github.com/go7z/sevenz/lzma/lzma2"
)

func lzma2DictSize(props []byte) (uint32, error) {
	if len(props) != 1 {
		return 0, fmt.Errorf("lzma2: properties must be 1 byte, got %d: %w", len(props), errUnsupported)
	}
	return lzma2.DictSizeProperty(props[0])
}

func lzma2Decode(src io.Reader, props []byte, outSize int64) (io.Reader, error) {
	dictSize, err := lzma2DictSize(props)
	if err != nil {
		return nil, err
	}
	r, err := lzma2.NewReader(src, dictSize, lzma.DefaultParams)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	out.Grow(int(outSize))
	if _, err := io.CopyN(&out, r, outSize); err != nil && err != io.EOF {
		return nil, err
	}
	return bytes.NewReader(out.Bytes()), nil
}

func lzma2Encode(dst io.Writer, props []byte) (io.WriteCloser, error) {
	dictSize, err := lzma2DictSize(props)
	if err != nil {
		return nil, err
	}
	return lzma2.NewWriter(dst, lzma.ModeNormal, dictSize, lzma.DefaultParams)
}
