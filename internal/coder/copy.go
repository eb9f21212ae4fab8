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

import "io"

// copyDecode is the identity transform for the COPY method (0x00).
func copyDecode(src io.Reader, _ []byte, _ int64) (io.Reader, error) {
	return src, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func copyEncode(dst io.Writer, _ []byte) (io.WriteCloser, error) {
	return nopWriteCloser{dst}, nil
}
