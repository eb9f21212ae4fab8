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
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/go7z/sevenz/internal/coder"
)

// Parse decodes a header database from raw. If the top-level tag is
// ENCODED_HEADER, raw instead describes a single folder whose decoded
// primary output is the real database; src/base let the parser reach
// back into the archive's packed streams to decode it, then recurse,
// per spec.md §4.F.
func Parse(raw []byte, src io.ReaderAt, base int64) (*Database, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagHeader:
		return parseHeader(r)
	case tagEncodedHeader:
		sub, err := parseStreamsInfo(r)
		if err != nil {
			return nil, err
		}
		if len(sub.Folders) != 1 {
			return nil, fmt.Errorf("encoded header must describe exactly one folder: %w", ErrMalformedHeader)
		}
		folder := sub.Folders[0]
		packOfs := base + int64(sub.PackPos)
		packedLen := int64(0)
		for _, s := range sub.PackSizes {
			packedLen += s
		}
		packed := make([]byte, packedLen)
		if _, err := src.ReadAt(packed, packOfs); err != nil {
			return nil, err
		}
		out, err := coder.Build(folder.Coders, folder.Bindings, bytes.NewReader(packed))
		if err != nil {
			return nil, err
		}
		decoded, err := io.ReadAll(io.LimitReader(out, folder.PrimaryOutputSize()))
		if err != nil {
			return nil, err
		}
		return Parse(decoded, src, base)
	default:
		return nil, fmt.Errorf("top-level tag 0x%02x: %w", tag, ErrUnknownTag)
	}
}

func parseHeader(r *bufio.Reader) (*Database, error) {
	db := &Database{}
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if tag == tagArchiveProperties {
		if err := skipArchiveProperties(r); err != nil {
			return nil, err
		}
		tag, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
	}
	if tag == tagAdditionalStreams {
		// Additional streams info is not consumed by this engine (no
		// coder configuration this writer emits ever references it);
		// parse and discard to stay positioned correctly.
		if _, err := parseStreamsInfo(r); err != nil {
			return nil, err
		}
		tag, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
	}
	if tag == tagMainStreamsInfo {
		streams, err := parseStreamsInfo(r)
		if err != nil {
			return nil, err
		}
		db.PackPos = streams.PackPos
		db.PackSizes = streams.PackSizes
		db.PackCRCs = streams.PackCRCs
		db.Folders = streams.Folders
		db.SubStreamSizes = streams.SubStreamSizes
		db.SubStreamCRCs = streams.SubStreamCRCs
		tag, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
	}
	if tag == tagFilesInfo {
		files, err := parseFilesInfo(r)
		if err != nil {
			return nil, err
		}
		db.Files = files
		tag, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
	}
	if tag != tagEnd {
		return nil, fmt.Errorf("header: expected END, got 0x%02x: %w", tag, ErrMalformedHeader)
	}
	return db, nil
}

func skipArchiveProperties(r *bufio.Reader) error {
	for {
		propType, err := r.ReadByte()
		if err != nil {
			return err
		}
		if propType == tagEnd {
			return nil
		}
		size, err := ReadNumberAsInt(r)
		if err != nil {
			return err
		}
		if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
			return err
		}
	}
}

// streamsInfo is the decode-time result of one StreamsInfo block.
type streamsInfo struct {
	PackPos        uint64
	PackSizes      []int64
	PackCRCs       []*uint32
	Folders        []Folder
	SubStreamSizes []int64
	SubStreamCRCs  []*uint32
}

func parseStreamsInfo(r *bufio.Reader) (*streamsInfo, error) {
	si := &streamsInfo{}
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if tag == tagPackInfo {
		if err := parsePackInfo(r, si); err != nil {
			return nil, err
		}
		tag, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
	}
	if tag == tagUnpackInfo {
		if err := parseUnpackInfo(r, si); err != nil {
			return nil, err
		}
		tag, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
	}
	if tag == tagSubStreamsInfo {
		if err := parseSubStreamsInfo(r, si); err != nil {
			return nil, err
		}
		tag, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
	} else {
		// No explicit SubStreamsInfo: one substream per folder, whose
		// size/CRC are the folder's own.
		for _, f := range si.Folders {
			si.SubStreamSizes = append(si.SubStreamSizes, f.PrimaryOutputSize())
			if f.UnpackCRCDefined {
				crc := f.UnpackCRC
				si.SubStreamCRCs = append(si.SubStreamCRCs, &crc)
			} else {
				si.SubStreamCRCs = append(si.SubStreamCRCs, nil)
			}
		}
	}
	if tag != tagEnd {
		return nil, fmt.Errorf("streams info: expected END, got 0x%02x: %w", tag, ErrMalformedHeader)
	}
	return si, nil
}

func parsePackInfo(r *bufio.Reader, si *streamsInfo) error {
	packPos, err := ReadNumber(r)
	if err != nil {
		return err
	}
	si.PackPos = packPos
	numStreams, err := ReadNumberAsInt(r)
	if err != nil {
		return err
	}
	for {
		tag, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch tag {
		case tagSize:
			si.PackSizes = make([]int64, numStreams)
			for i := range si.PackSizes {
				v, err := ReadNumber(r)
				if err != nil {
					return err
				}
				si.PackSizes[i] = int64(v)
			}
		case tagCRC:
			crcs, err := readDigests(r, numStreams)
			if err != nil {
				return err
			}
			si.PackCRCs = crcs
		case tagEnd:
			return nil
		default:
			return fmt.Errorf("pack info: unexpected tag 0x%02x: %w", tag, ErrMalformedHeader)
		}
	}
}

// readDigests parses the "Digests" structure shared by pack, folder and
// substream CRC lists: an all-defined byte, an optional bit vector, and
// one uint32 per defined entry.
func readDigests(r *bufio.Reader, n int) ([]*uint32, error) {
	defined, err := ReadOptionalBitVector(r, r, n)
	if err != nil {
		return nil, err
	}
	out := make([]*uint32, n)
	for i, d := range defined {
		if !d {
			continue
		}
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint32(buf[:])
		out[i] = &v
	}
	return out, nil
}

func parseUnpackInfo(r *bufio.Reader, si *streamsInfo) error {
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}
	if tag != tagFolder {
		return fmt.Errorf("unpack info: expected FOLDER, got 0x%02x: %w", tag, ErrMalformedHeader)
	}
	numFolders, err := ReadNumberAsInt(r)
	if err != nil {
		return err
	}
	external, err := r.ReadByte()
	if err != nil {
		return err
	}
	if external != 0 {
		return fmt.Errorf("external folder data streams: %w", ErrMalformedHeader)
	}
	folders := make([]Folder, numFolders)
	for i := range folders {
		f, err := parseFolder(r)
		if err != nil {
			return err
		}
		folders[i] = *f
	}
	tag, err = r.ReadByte()
	if err != nil {
		return err
	}
	if tag != tagCodersUnpackSize {
		return fmt.Errorf("unpack info: expected CODERS_UNPACK_SIZE, got 0x%02x: %w", tag, ErrMalformedHeader)
	}
	for fi := range folders {
		for ci := range folders[fi].Coders {
			v, err := ReadNumber(r)
			if err != nil {
				return err
			}
			folders[fi].Coders[ci].OutputSize = int64(v)
		}
	}
	tag, err = r.ReadByte()
	if err != nil {
		return err
	}
	if tag == tagCRC {
		crcs, err := readDigests(r, numFolders)
		if err != nil {
			return err
		}
		for i := range folders {
			if crcs[i] != nil {
				folders[i].UnpackCRCDefined = true
				folders[i].UnpackCRC = *crcs[i]
			}
		}
		tag, err = r.ReadByte()
		if err != nil {
			return err
		}
	}
	if tag != tagEnd {
		return fmt.Errorf("unpack info: expected END, got 0x%02x: %w", tag, ErrMalformedHeader)
	}
	si.Folders = folders
	return nil
}

func parseFolder(r *bufio.Reader) (*Folder, error) {
	numCoders, err := ReadNumberAsInt(r)
	if err != nil {
		return nil, err
	}
	coders := make([]coder.Coder, numCoders)
	totalIn, totalOut := 0, 0
	for i := range coders {
		flags, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		idSize := int(flags & 0x0F)
		isComplex := flags&0x10 != 0
		hasAttrs := flags&0x20 != 0
		id := make([]byte, idSize)
		if _, err := io.ReadFull(r, id); err != nil {
			return nil, err
		}
		numIn, numOut := 1, 1
		if isComplex {
			numIn, err = ReadNumberAsInt(r)
			if err != nil {
				return nil, err
			}
			numOut, err = ReadNumberAsInt(r)
			if err != nil {
				return nil, err
			}
		}
		var props []byte
		if hasAttrs {
			size, err := ReadNumberAsInt(r)
			if err != nil {
				return nil, err
			}
			props = make([]byte, size)
			if _, err := io.ReadFull(r, props); err != nil {
				return nil, err
			}
		}
		coders[i] = coder.Coder{MethodID: id, Properties: props, NumInStreams: numIn, NumOutStreams: numOut}
		totalIn += numIn
		totalOut += numOut
	}
	numBindPairs := totalOut - 1
	bindings := make([]coder.Binding, numBindPairs)
	boundOut := make(map[int]bool, numBindPairs)
	boundIn := make(map[int]bool, numBindPairs)
	for i := range bindings {
		inIdx, err := ReadNumberAsInt(r)
		if err != nil {
			return nil, err
		}
		outIdx, err := ReadNumberAsInt(r)
		if err != nil {
			return nil, err
		}
		bindings[i] = coder.Binding{InIndex: inIdx, OutIndex: outIdx}
		boundIn[inIdx] = true
		boundOut[outIdx] = true
	}
	numPacked := totalIn - numBindPairs
	packedIndices := make([]int, 0, numPacked)
	if numPacked == 1 {
		for idx := 0; idx < totalIn; idx++ {
			if !boundIn[idx] {
				packedIndices = append(packedIndices, idx)
				break
			}
		}
	} else {
		for i := 0; i < numPacked; i++ {
			idx, err := ReadNumberAsInt(r)
			if err != nil {
				return nil, err
			}
			packedIndices = append(packedIndices, idx)
		}
	}
	return &Folder{Coders: coders, Bindings: bindings, PackedIndices: packedIndices, NumUnpackSubstreams: 1}, nil
}

func parseSubStreamsInfo(r *bufio.Reader, si *streamsInfo) error {
	numUnpackStreams := make([]int, len(si.Folders))
	for i := range numUnpackStreams {
		numUnpackStreams[i] = 1
	}
	tag, err := r.ReadByte()
	if err != nil {
		return err
	}
	if tag == tagNumUnpackStream {
		for i := range numUnpackStreams {
			v, err := ReadNumberAsInt(r)
			if err != nil {
				return err
			}
			numUnpackStreams[i] = v
		}
		tag, err = r.ReadByte()
		if err != nil {
			return err
		}
	}
	for i := range si.Folders {
		si.Folders[i].NumUnpackSubstreams = numUnpackStreams[i]
	}

	var sizes []int64
	if tag == tagSize {
		for fi, n := range numUnpackStreams {
			if n == 0 {
				continue
			}
			var sum int64
			for j := 0; j < n-1; j++ {
				v, err := ReadNumber(r)
				if err != nil {
					return err
				}
				sizes = append(sizes, int64(v))
				sum += int64(v)
			}
			sizes = append(sizes, si.Folders[fi].PrimaryOutputSize()-sum)
		}
		tag, err = r.ReadByte()
		if err != nil {
			return err
		}
	} else {
		for fi, n := range numUnpackStreams {
			if n != 1 {
				return fmt.Errorf("substreams info: missing SIZE for folder %d with %d streams: %w", fi, n, ErrMalformedHeader)
			}
			sizes = append(sizes, si.Folders[fi].PrimaryOutputSize())
		}
	}
	si.SubStreamSizes = sizes

	numDigestsNeeded := 0
	for fi, n := range numUnpackStreams {
		if n == 1 && si.Folders[fi].UnpackCRCDefined {
			continue
		}
		numDigestsNeeded += n
	}
	var explicitCRCs []*uint32
	if tag == tagCRC {
		explicitCRCs, err = readDigests(r, numDigestsNeeded)
		if err != nil {
			return err
		}
		tag, err = r.ReadByte()
		if err != nil {
			return err
		}
	}
	crcs := make([]*uint32, 0, len(sizes))
	ei := 0
	for fi, n := range numUnpackStreams {
		if n == 1 && si.Folders[fi].UnpackCRCDefined {
			crc := si.Folders[fi].UnpackCRC
			crcs = append(crcs, &crc)
			continue
		}
		for j := 0; j < n; j++ {
			if ei < len(explicitCRCs) {
				crcs = append(crcs, explicitCRCs[ei])
			} else {
				crcs = append(crcs, nil)
			}
			ei++
		}
	}
	si.SubStreamCRCs = crcs

	if tag != tagEnd {
		return fmt.Errorf("substreams info: expected END, got 0x%02x: %w", tag, ErrMalformedHeader)
	}
	return nil
}

func parseFilesInfo(r *bufio.Reader) ([]FileEntry, error) {
	numFiles, err := ReadNumberAsInt(r)
	if err != nil {
		return nil, err
	}
	files := make([]FileEntry, numFiles)
	var emptyStream []bool
	var emptyFile []bool
	var anti []bool
	numEmptyStreams := 0

	for {
		propType, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if propType == tagEnd {
			break
		}
		size, err := ReadNumberAsInt(r)
		if err != nil {
			return nil, err
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
		br := bufio.NewReader(bytes.NewReader(body))

		switch propType {
		case tagEmptyStream:
			emptyStream, err = ReadBitVector(br, numFiles)
			if err != nil {
				return nil, err
			}
			for _, b := range emptyStream {
				if b {
					numEmptyStreams++
				}
			}
		case tagEmptyFile:
			emptyFile, err = ReadBitVector(br, numEmptyStreams)
			if err != nil {
				return nil, err
			}
		case tagAnti:
			anti, err = ReadBitVector(br, numEmptyStreams)
			if err != nil {
				return nil, err
			}
		case tagName:
			external, err := br.ReadByte()
			if err != nil {
				return nil, err
			}
			if external != 0 {
				return nil, fmt.Errorf("external names: %w", ErrMalformedHeader)
			}
			names, err := readNames(body[1:], numFiles)
			if err != nil {
				return nil, err
			}
			for i, n := range names {
				files[i].Name = n
			}
		case tagCTime, tagATime, tagMTime:
			times, defined, err := readTimes(br, numFiles)
			if err != nil {
				return nil, err
			}
			for i := range files {
				if !defined[i] {
					continue
				}
				switch propType {
				case tagCTime:
					files[i].HasCreationTime = true
					files[i].CreationTime = times[i]
				case tagATime:
					files[i].HasAccessTime = true
					files[i].AccessTime = times[i]
				case tagMTime:
					files[i].HasModTime = true
					files[i].ModTime = times[i]
				}
			}
		case tagAttributes:
			allDefined, err := br.ReadByte()
			if err != nil {
				return nil, err
			}
			var defined []bool
			if allDefined != 0 {
				defined = make([]bool, numFiles)
				for i := range defined {
					defined[i] = true
				}
			} else {
				defined, err = ReadBitVector(br, numFiles)
				if err != nil {
					return nil, err
				}
			}
			external, err := br.ReadByte()
			if err != nil {
				return nil, err
			}
			if external != 0 {
				return nil, fmt.Errorf("external attributes: %w", ErrMalformedHeader)
			}
			for i := range files {
				if !defined[i] {
					continue
				}
				var buf [4]byte
				if _, err := io.ReadFull(br, buf[:]); err != nil {
					return nil, err
				}
				files[i].HasAttributes = true
				files[i].Attributes = binary.LittleEndian.Uint32(buf[:])
			}
		default:
			// kDummy and any other property this engine doesn't
			// interpret: already consumed as an opaque blob above.
		}
	}

	if emptyStream == nil {
		emptyStream = make([]bool, numFiles)
	}
	ei := 0
	for i := range files {
		files[i].HasStream = !emptyStream[i]
		if emptyStream[i] {
			isEmptyFile := ei < len(emptyFile) && emptyFile[ei]
			isAnti := ei < len(anti) && anti[ei]
			files[i].IsAnti = isAnti
			files[i].IsDirectory = !isEmptyFile && !isAnti
			ei++
		}
	}
	return files, nil
}

func readNames(data []byte, numFiles int) ([]string, error) {
	names := make([]string, 0, numFiles)
	u16 := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		u16 = append(u16, binary.LittleEndian.Uint16(data[i:i+2]))
	}
	start := 0
	for i, u := range u16 {
		if u == 0 {
			names = append(names, string(utf16.Decode(u16[start:i])))
			start = i + 1
		}
	}
	if len(names) != numFiles {
		return nil, fmt.Errorf("names: expected %d NUL-terminated strings, got %d: %w", numFiles, len(names), ErrMalformedHeader)
	}
	return names, nil
}

func readTimes(br *bufio.Reader, numFiles int) ([]uint64, []bool, error) {
	allDefined, err := br.ReadByte()
	if err != nil {
		return nil, nil, err
	}
	var defined []bool
	if allDefined != 0 {
		defined = make([]bool, numFiles)
		for i := range defined {
			defined[i] = true
		}
	} else {
		defined, err = ReadBitVector(br, numFiles)
		if err != nil {
			return nil, nil, err
		}
	}
	external, err := br.ReadByte()
	if err != nil {
		return nil, nil, err
	}
	if external != 0 {
		return nil, nil, fmt.Errorf("external times: %w", ErrMalformedHeader)
	}
	times := make([]uint64, numFiles)
	for i := range times {
		if !defined[i] {
			continue
		}
		var buf [8]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, nil, err
		}
		times[i] = binary.LittleEndian.Uint64(buf[:])
	}
	return times, defined, nil
}
