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
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// Emit serialises db into a header-database byte stream, the exact
// reverse of Parse given a tagHeader top-level tag (this module never
// emits ENCODED_HEADER itself — a caller wanting a compressed header
// runs the returned bytes back through an internal/coder encode
// pipeline and wraps the result, mirroring the decode-side recursion
// in Parse).
func Emit(db *Database) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tagHeader)
	if len(db.Folders) > 0 {
		buf.WriteByte(tagMainStreamsInfo)
		if err := emitStreamsInfo(&buf, db); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(tagFilesInfo)
	if err := emitFilesInfo(&buf, db.Files); err != nil {
		return nil, err
	}
	buf.WriteByte(tagEnd)
	return buf.Bytes(), nil
}

func emitStreamsInfo(w *bytes.Buffer, db *Database) error {
	w.WriteByte(tagPackInfo)
	if err := emitPackInfo(w, db); err != nil {
		return err
	}
	w.WriteByte(tagUnpackInfo)
	if err := emitUnpackInfo(w, db); err != nil {
		return err
	}
	// This module's own writer always produces exactly one substream
	// per folder (one file's content per folder, matching
	// _examples/original_source/src/writer.rs's write_sub_streams_info,
	// which likewise never emits a body) — parseSubStreamsInfo's
	// defaults for an absent SIZE and CRC list already reconstruct a
	// folder's single substream size/CRC from its own UNPACK_INFO entry,
	// so an empty SUB_STREAMS_INFO round-trips exactly.
	w.WriteByte(tagSubStreamsInfo)
	w.WriteByte(tagEnd)
	w.WriteByte(tagEnd)
	return nil
}

func emitPackInfo(w *bytes.Buffer, db *Database) error {
	if err := WriteNumber(w, db.PackPos); err != nil {
		return err
	}
	if err := WriteNumber(w, uint64(len(db.PackSizes))); err != nil {
		return err
	}
	w.WriteByte(tagSize)
	for _, s := range db.PackSizes {
		if err := WriteNumber(w, uint64(s)); err != nil {
			return err
		}
	}
	w.WriteByte(tagCRC)
	if err := emitDigests(w, db.PackCRCs); err != nil {
		return err
	}
	w.WriteByte(tagEnd)
	return nil
}

// emitDigests writes the "Digests" structure: the optional all-defined
// bit vector, then one little-endian CRC-32 per defined entry.
func emitDigests(w *bytes.Buffer, crcs []*uint32) error {
	defined := make([]bool, len(crcs))
	for i, c := range crcs {
		defined[i] = c != nil
	}
	if err := WriteOptionalBitVector(w, w, defined); err != nil {
		return err
	}
	var buf [4]byte
	for _, c := range crcs {
		if c == nil {
			continue
		}
		binary.LittleEndian.PutUint32(buf[:], *c)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

func emitUnpackInfo(w *bytes.Buffer, db *Database) error {
	w.WriteByte(tagFolder)
	if err := WriteNumber(w, uint64(len(db.Folders))); err != nil {
		return err
	}
	w.WriteByte(0) // external
	for i := range db.Folders {
		if err := emitFolder(w, &db.Folders[i]); err != nil {
			return err
		}
	}
	w.WriteByte(tagCodersUnpackSize)
	for _, f := range db.Folders {
		for _, c := range f.Coders {
			if err := WriteNumber(w, uint64(c.OutputSize)); err != nil {
				return err
			}
		}
	}
	w.WriteByte(tagCRC)
	crcs := make([]*uint32, len(db.Folders))
	for i, f := range db.Folders {
		if f.UnpackCRCDefined {
			v := f.UnpackCRC
			crcs[i] = &v
		}
	}
	if err := emitDigests(w, crcs); err != nil {
		return err
	}
	w.WriteByte(tagEnd)
	return nil
}

func emitFolder(w *bytes.Buffer, f *Folder) error {
	if err := WriteNumber(w, uint64(len(f.Coders))); err != nil {
		return err
	}
	for _, c := range f.Coders {
		isComplex := c.NumInStreams > 1 || c.NumOutStreams > 1
		hasAttrs := len(c.Properties) > 0
		flags := byte(len(c.MethodID))
		if isComplex {
			flags |= 0x10
		}
		if hasAttrs {
			flags |= 0x20
		}
		w.WriteByte(flags)
		w.Write(c.MethodID)
		if isComplex {
			if err := WriteNumber(w, uint64(c.NumInStreams)); err != nil {
				return err
			}
			if err := WriteNumber(w, uint64(c.NumOutStreams)); err != nil {
				return err
			}
		}
		if hasAttrs {
			if err := WriteNumber(w, uint64(len(c.Properties))); err != nil {
				return err
			}
			w.Write(c.Properties)
		}
	}
	for _, b := range f.Bindings {
		if err := WriteNumber(w, uint64(b.InIndex)); err != nil {
			return err
		}
		if err := WriteNumber(w, uint64(b.OutIndex)); err != nil {
			return err
		}
	}
	totalIn := 0
	for _, c := range f.Coders {
		totalIn += c.NumInStreams
	}
	numPacked := totalIn - len(f.Bindings)
	if numPacked > 1 {
		for _, idx := range f.PackedIndices {
			if err := WriteNumber(w, uint64(idx)); err != nil {
				return err
			}
		}
	}
	return nil
}

func emitFilesInfo(w *bytes.Buffer, files []FileEntry) error {
	if err := WriteNumber(w, uint64(len(files))); err != nil {
		return err
	}
	if err := emitEmptyStreams(w, files); err != nil {
		return err
	}
	if err := emitEmptyFilesAndAnti(w, files); err != nil {
		return err
	}
	if err := emitNames(w, files); err != nil {
		return err
	}
	if err := emitTimes(w, tagCTime, files,
		func(f FileEntry) bool { return f.HasCreationTime },
		func(f FileEntry) uint64 { return f.CreationTime }); err != nil {
		return err
	}
	if err := emitTimes(w, tagATime, files,
		func(f FileEntry) bool { return f.HasAccessTime },
		func(f FileEntry) uint64 { return f.AccessTime }); err != nil {
		return err
	}
	if err := emitTimes(w, tagMTime, files,
		func(f FileEntry) bool { return f.HasModTime },
		func(f FileEntry) uint64 { return f.ModTime }); err != nil {
		return err
	}
	if err := emitAttributes(w, files); err != nil {
		return err
	}
	w.WriteByte(tagEnd)
	return nil
}

func emitProp(w *bytes.Buffer, tag byte, body []byte) error {
	w.WriteByte(tag)
	if err := WriteNumber(w, uint64(len(body))); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func emitEmptyStreams(w *bytes.Buffer, files []FileEntry) error {
	bits := make([]bool, len(files))
	any := false
	for i, f := range files {
		bits[i] = !f.HasStream
		any = any || bits[i]
	}
	if !any {
		return nil
	}
	var body bytes.Buffer
	if err := WriteBitVector(&body, bits); err != nil {
		return err
	}
	return emitProp(w, tagEmptyStream, body.Bytes())
}

func emitEmptyFilesAndAnti(w *bytes.Buffer, files []FileEntry) error {
	var emptyFileBits, antiBits []bool
	anyEmptyFile, anyAnti := false, false
	for _, f := range files {
		if f.HasStream {
			continue
		}
		isEmptyFile := !f.IsDirectory && !f.IsAnti
		emptyFileBits = append(emptyFileBits, isEmptyFile)
		antiBits = append(antiBits, f.IsAnti)
		anyEmptyFile = anyEmptyFile || isEmptyFile
		anyAnti = anyAnti || f.IsAnti
	}
	if anyEmptyFile {
		var body bytes.Buffer
		if err := WriteBitVector(&body, emptyFileBits); err != nil {
			return err
		}
		if err := emitProp(w, tagEmptyFile, body.Bytes()); err != nil {
			return err
		}
	}
	if anyAnti {
		var body bytes.Buffer
		if err := WriteBitVector(&body, antiBits); err != nil {
			return err
		}
		if err := emitProp(w, tagAnti, body.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func emitNames(w *bytes.Buffer, files []FileEntry) error {
	var body bytes.Buffer
	body.WriteByte(0) // external
	for _, f := range files {
		for _, u := range utf16.Encode([]rune(f.Name)) {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], u)
			body.Write(b[:])
		}
		body.Write([]byte{0, 0})
	}
	return emitProp(w, tagName, body.Bytes())
}

func emitTimes(w *bytes.Buffer, tag byte, files []FileEntry, has func(FileEntry) bool, val func(FileEntry) uint64) error {
	num := 0
	for _, f := range files {
		if has(f) {
			num++
		}
	}
	if num == 0 {
		return nil
	}
	defined := make([]bool, len(files))
	for i, f := range files {
		defined[i] = has(f)
	}
	var body bytes.Buffer
	if err := WriteOptionalBitVector(&body, &body, defined); err != nil {
		return err
	}
	body.WriteByte(0) // external
	var b [8]byte
	for _, f := range files {
		if !has(f) {
			continue
		}
		binary.LittleEndian.PutUint64(b[:], val(f))
		body.Write(b[:])
	}
	return emitProp(w, tag, body.Bytes())
}

func emitAttributes(w *bytes.Buffer, files []FileEntry) error {
	num := 0
	for _, f := range files {
		if f.HasAttributes {
			num++
		}
	}
	if num == 0 {
		return nil
	}
	defined := make([]bool, len(files))
	for i, f := range files {
		defined[i] = f.HasAttributes
	}
	var body bytes.Buffer
	if err := WriteOptionalBitVector(&body, &body, defined); err != nil {
		return err
	}
	body.WriteByte(0) // external
	var b [4]byte
	for _, f := range files {
		if !f.HasAttributes {
			continue
		}
		binary.LittleEndian.PutUint32(b[:], f.Attributes)
		body.Write(b[:])
	}
	return emitProp(w, tagAttributes, body.Bytes())
}
