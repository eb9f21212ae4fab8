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
	"hash/crc32"
	"io"

	"github.com/bodgit/plumbing"

	"github.com/go7z/sevenz/internal/coder"
	"github.com/go7z/sevenz/internal/sz"
)

// Writer builds a 7z archive, one entry at a time. Every non-directory
// entry is compressed into its own folder as it is pushed — this
// module does not pack multiple entries into a shared solid folder,
// matching the scope of the source writer it's grounded on (see
// DESIGN.md).
type Writer struct {
	w              io.Writer
	defaultMethods []CoderConfig
	files          []sz.FileEntry
	folders        []sz.Folder
	packSizes      []int64
	packCRCs       []*uint32
	packPos        int64
	closed         bool
}

// NewWriter prepares w to receive a 7z archive. The caller must supply
// a Writer whose first SignatureHeaderSize bytes are reserved for the
// archive signature (Finish writes it last, once final offsets and
// checksums are known) — an *os.File or any io.WriteSeeker wrapped to
// defer its leading bytes works; NewWriter itself never seeks, so a
// plain sequential io.Writer positioned at its start works too.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:              w,
		defaultMethods: []CoderConfig{LZMA2Method(DefaultDictSize)},
	}
}

// SetContentMethods overrides the coder chain used for entries that
// don't set their own Entry.Method.
func (wr *Writer) SetContentMethods(methods []CoderConfig) {
	wr.defaultMethods = methods
}

// PushEntry writes one archive member. r is ignored for directories,
// and a nil r records the entry with no content; otherwise r is fully
// compressed and appended to the archive body immediately.
func (wr *Writer) PushEntry(e *Entry, r io.Reader) error {
	if wr.closed {
		return ErrWriterClosed
	}
	if e.IsDirectory || r == nil {
		wr.files = append(wr.files, toFileEntry(e, 0, nil))
		return nil
	}

	methods := e.Method
	if len(methods) == 0 {
		methods = wr.defaultMethods
	}
	coders := make([]coder.Coder, len(methods))
	bindings := make([]coder.Binding, len(methods)-1)
	for i, m := range methods {
		coders[i] = coder.Coder{MethodID: m.MethodID, Properties: m.Properties, NumInStreams: 1, NumOutStreams: 1}
	}
	for i := range bindings {
		bindings[i] = coder.Binding{InIndex: i + 1, OutIndex: i}
	}

	packCounter := new(plumbing.WriteCounter)
	packCRC := crc32.NewIEEE()
	enc, err := coder.BuildEncoder(coders, bindings, io.MultiWriter(wr.w, packCounter, packCRC))
	if err != nil {
		return err
	}
	contentCRC := crc32.NewIEEE()
	n, err := io.Copy(io.MultiWriter(enc, contentCRC), r)
	if err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	coders[len(coders)-1].OutputSize = n
	crc := contentCRC.Sum32()
	folder := sz.Folder{
		Coders:              coders,
		Bindings:            bindings,
		PackedIndices:       []int{0},
		UnpackCRCDefined:    true,
		UnpackCRC:           crc,
		NumUnpackSubstreams: 1,
	}
	wr.folders = append(wr.folders, folder)
	packedSize := int64(packCounter.Count())
	wr.packSizes = append(wr.packSizes, packedSize)
	packCRCVal := packCRC.Sum32()
	wr.packCRCs = append(wr.packCRCs, &packCRCVal)
	wr.packPos += packedSize

	e.HasStream = true
	e.UncompressedSize = n
	e.CRC32 = crc
	e.HasCRC32 = true
	wr.files = append(wr.files, toFileEntry(e, n, &crc))
	return nil
}

// Finish serialises and appends the header database, then returns the
// bytes of the 32-byte signature header the caller must write at the
// very start of the archive (the only part of the stream this Writer
// cannot produce in a single forward pass).
func (wr *Writer) Finish() ([]byte, error) {
	if wr.closed {
		return nil, ErrWriterClosed
	}
	wr.closed = true

	db := &sz.Database{
		PackPos:   0,
		PackSizes: wr.packSizes,
		PackCRCs:  wr.packCRCs,
		Folders:   wr.folders,
		Files:     wr.files,
	}
	header, err := sz.Emit(db)
	if err != nil {
		return nil, err
	}
	if _, err := wr.w.Write(header); err != nil {
		return nil, err
	}

	sig := sz.SignatureHeader{
		VersionMajor:   0,
		VersionMinor:   4,
		NextHeaderOfs:  uint64(wr.packPos),
		NextHeaderSize: uint64(len(header)),
		NextHeaderCRC:  crc32.ChecksumIEEE(header),
	}
	return sz.MarshalSignatureHeader(sig), nil
}

func toFileEntry(e *Entry, size int64, crc *uint32) sz.FileEntry {
	fe := sz.FileEntry{
		Name:          e.Name,
		IsDirectory:   e.IsDirectory,
		IsAnti:        e.IsAnti,
		HasStream:     e.HasStream,
		HasAttributes: e.HasAttributes,
		Attributes:    e.Attributes,
	}
	if e.HasCreationTime {
		fe.HasCreationTime = true
		fe.CreationTime = timeToNTFS(e.CreationTime)
	}
	if e.HasAccessTime {
		fe.HasAccessTime = true
		fe.AccessTime = timeToNTFS(e.AccessTime)
	}
	if e.HasModTime {
		fe.HasModTime = true
		fe.ModTime = timeToNTFS(e.ModTime)
	}
	return fe
}
