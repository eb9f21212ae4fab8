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

// Package sevenzip opens and creates 7z archives: a streams-info and
// files-info header database describing one or more compression
// folders, each holding the concatenated content of one or more
// archive entries.
package sevenzip

import (
	"bytes"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"

	"github.com/bodgit/plumbing"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/go7z/sevenz/internal/coder"
	"github.com/go7z/sevenz/internal/sz"
)

// folderCacheSize bounds how many fully-decoded folders Reader keeps
// in memory at once. Re-opening entries from the same solid folder is
// the common access pattern for ForEach-style extraction, so a small
// cache avoids repeated decompression of large shared folders without
// holding an entire multi-gigabyte archive's content resident.
const folderCacheSize = 4

// streamLoc locates one entry's content within its folder's decoded
// primary output.
type streamLoc struct {
	folderIndex int
	offset      int64
	size        int64
}

// Reader provides random access to the entries of a 7z archive.
type Reader struct {
	ra   io.ReaderAt
	size int64
	db   *sz.Database

	entries []*Entry
	locs    map[*Entry]streamLoc

	folders *lru.Cache[int, []byte]
}

// ReadCloser is a Reader for an archive backed by an *os.File, closing
// that file when the caller is done.
type ReadCloser struct {
	*Reader
	f *os.File
}

// OpenReader opens the 7z archive at name.
func OpenReader(name string) (*ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	r, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	return &ReadCloser{Reader: r, f: f}, nil
}

// Close closes the underlying file.
func (rc *ReadCloser) Close() error {
	return rc.f.Close()
}

// NewReader parses the archive in ra, which must span exactly size
// bytes, and builds the entry list.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	if size < sz.SignatureHeaderSize {
		return nil, ErrBadSignature
	}
	sig := make([]byte, sz.SignatureHeaderSize)
	if _, err := ra.ReadAt(sig, 0); err != nil {
		return nil, fmt.Errorf("read signature header: %w", err)
	}
	header, err := sz.ParseSignatureHeader(sig)
	if err != nil {
		return nil, wrapSzErr(err)
	}

	raw := make([]byte, header.NextHeaderSize)
	if header.NextHeaderSize > 0 {
		ofs := sz.SignatureHeaderSize + int64(header.NextHeaderOfs)
		if _, err := ra.ReadAt(raw, ofs); err != nil {
			return nil, fmt.Errorf("read header database: %w", err)
		}
		if crc32.ChecksumIEEE(raw) != header.NextHeaderCRC {
			return nil, ErrChecksumMismatch
		}
	}

	db, err := sz.Parse(raw, ra, sz.SignatureHeaderSize)
	if err != nil {
		return nil, wrapSzErr(err)
	}

	cache, err := lru.New[int, []byte](folderCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create folder cache: %w", err)
	}

	r := &Reader{ra: ra, size: size, db: db, folders: cache}
	if err := r.buildEntries(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) buildEntries() error {
	r.entries = make([]*Entry, len(r.db.Files))
	r.locs = make(map[*Entry]streamLoc)

	for i, f := range r.db.Files {
		e := &Entry{
			Name:            f.Name,
			IsDirectory:     f.IsDirectory,
			IsAnti:          f.IsAnti,
			HasStream:       f.HasStream,
			HasCreationTime: f.HasCreationTime,
			HasAccessTime:   f.HasAccessTime,
			HasModTime:      f.HasModTime,
			HasAttributes:   f.HasAttributes,
			Attributes:      f.Attributes,
		}
		if f.HasCreationTime {
			e.CreationTime = ntfsToTime(f.CreationTime)
		}
		if f.HasAccessTime {
			e.AccessTime = ntfsToTime(f.AccessTime)
		}
		if f.HasModTime {
			e.ModTime = ntfsToTime(f.ModTime)
		}
		r.entries[i] = e
	}

	globalSub := 0
	fileIdx := 0
	for fi := range r.db.Folders {
		folder := &r.db.Folders[fi]
		var offset int64
		for s := 0; s < folder.NumUnpackSubstreams; s++ {
			if globalSub >= len(r.db.SubStreamSizes) {
				return fmt.Errorf("substream count mismatch: %w", ErrMalformedHeader)
			}
			size := r.db.SubStreamSizes[globalSub]
			for fileIdx < len(r.entries) && !r.entries[fileIdx].HasStream {
				fileIdx++
			}
			if fileIdx >= len(r.entries) {
				return fmt.Errorf("more substreams than files with content: %w", ErrMalformedHeader)
			}
			e := r.entries[fileIdx]
			e.UncompressedSize = size
			if crc := r.db.SubStreamCRCs[globalSub]; crc != nil {
				e.CRC32 = *crc
				e.HasCRC32 = true
			}
			r.locs[e] = streamLoc{folderIndex: fi, offset: offset, size: size}
			offset += size
			globalSub++
			fileIdx++
		}
	}
	return nil
}

// Entries returns every entry in archive order.
func (r *Reader) Entries() []*Entry {
	return r.entries
}

// Open returns a reader over e's decompressed content. The folder
// containing e is decoded in full on first access and cached, so
// opening several entries from the same solid folder only pays the
// decompression cost once. When e carries a per-substream CRC-32 (the
// common case for solid folders, where the aggregate folder CRC
// decodeFolder checks is typically undefined), the returned
// ReadCloser tallies the bytes delivered to the caller and verifies
// them against e.CRC32 on Close.
func (r *Reader) Open(e *Entry) (io.ReadCloser, error) {
	if !e.HasStream {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	loc, ok := r.locs[e]
	if !ok {
		return nil, fmt.Errorf("entry %q has no content location: %w", e.Name, ErrMalformedHeader)
	}
	data, err := r.decodeFolder(loc.folderIndex)
	if err != nil {
		return nil, err
	}
	if loc.offset+loc.size > int64(len(data)) {
		return nil, fmt.Errorf("entry %q exceeds folder bounds: %w", e.Name, ErrMalformedHeader)
	}
	rc := io.NopCloser(bytes.NewReader(data[loc.offset:]))
	lrc := plumbing.LimitReadCloser(rc, loc.size)
	if !e.HasCRC32 {
		return lrc, nil
	}
	h := crc32.NewIEEE()
	return &crcVerifyReadCloser{rc: plumbing.TeeReadCloser(lrc, h), h: h, want: e.CRC32, name: e.Name}, nil
}

// crcVerifyReadCloser tallies an entry's decompressed bytes as they
// are read and checks the accumulated CRC-32 against the value the
// header database recorded for that entry once the caller is done
// with it, catching substream corruption that decodeFolder's
// aggregate, folder-wide CRC check misses for solid folders.
type crcVerifyReadCloser struct {
	rc   io.ReadCloser
	h    hash.Hash32
	want uint32
	name string
	done bool
}

func (c *crcVerifyReadCloser) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	if err == io.EOF {
		c.done = true
	}
	return n, err
}

func (c *crcVerifyReadCloser) Close() error {
	if err := c.rc.Close(); err != nil {
		return err
	}
	if !c.done {
		return nil
	}
	if c.h.Sum32() != c.want {
		return fmt.Errorf("entry %q: %w", c.name, ErrChecksumMismatch)
	}
	return nil
}

// packedBytes reads the raw, still-compressed bytes backing folder index,
// with no decoding applied.
func (r *Reader) packedBytes(index int) ([]byte, error) {
	var packOfs int64 = sz.SignatureHeaderSize + int64(r.db.PackPos)
	for i := 0; i < index; i++ {
		packOfs += r.db.PackSizes[i]
	}
	packed := make([]byte, r.db.PackSizes[index])
	if _, err := r.ra.ReadAt(packed, packOfs); err != nil {
		return nil, fmt.Errorf("read packed stream for folder %d: %w", index, err)
	}
	return packed, nil
}

func (r *Reader) decodeFolder(index int) ([]byte, error) {
	if data, ok := r.folders.Get(index); ok {
		return data, nil
	}
	folder := &r.db.Folders[index]

	packed, err := r.packedBytes(index)
	if err != nil {
		return nil, err
	}

	out, err := coder.Build(folder.Coders, folder.Bindings, bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("build decode pipeline for folder %d: %w", index, err)
	}
	data, err := io.ReadAll(io.LimitReader(out, folder.PrimaryOutputSize()))
	if err != nil {
		return nil, fmt.Errorf("decode folder %d: %w", index, err)
	}
	if folder.UnpackCRCDefined && crc32.ChecksumIEEE(data) != folder.UnpackCRC {
		return nil, ErrChecksumMismatch
	}

	r.folders.Add(index, data)
	return data, nil
}

// ForEach calls fn for every entry in archive order with an open
// reader over its content (nil for directories). fn returning false
// stops iteration early without error.
func (r *Reader) ForEach(fn func(*Entry, io.Reader) (bool, error)) error {
	for _, e := range r.entries {
		var rc io.ReadCloser
		var err error
		if e.HasStream {
			rc, err = r.Open(e)
			if err != nil {
				return err
			}
		}
		var body io.Reader
		if rc != nil {
			body = rc
		}
		cont, err := fn(e, body)
		if rc != nil {
			rc.Close()
		}
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func wrapSzErr(err error) error {
	switch {
	case errors.Is(err, sz.ErrBadSignature):
		return ErrBadSignature
	case errors.Is(err, sz.ErrChecksumMismatch):
		return ErrChecksumMismatch
	case errors.Is(err, sz.ErrMalformedHeader):
		return ErrMalformedHeader
	case errors.Is(err, sz.ErrUnknownTag):
		return ErrMalformedHeader
	default:
		return err
	}
}
