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
	"testing"

	"github.com/go7z/sevenz/internal/coder"
)

func sampleDatabase() *Database {
	crc := uint32(0x12345678)
	return &Database{
		PackPos:   0,
		PackSizes: []int64{10},
		PackCRCs:  []*uint32{&crc},
		Folders: []Folder{
			{
				Coders: []coder.Coder{
					{MethodID: coder.MethodCopy, NumInStreams: 1, NumOutStreams: 1, OutputSize: 10},
				},
				PackedIndices:       []int{0},
				UnpackCRCDefined:    true,
				UnpackCRC:           crc,
				NumUnpackSubstreams: 1,
			},
		},
		SubStreamSizes: []int64{10},
		SubStreamCRCs:  []*uint32{&crc},
		Files: []FileEntry{
			{Name: "game.bin", HasStream: true},
			{Name: "subdir", IsDirectory: true},
		},
	}
}

func TestEmitParseRoundTrip(t *testing.T) {
	db := sampleDatabase()
	raw, err := Emit(db)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	got, err := Parse(raw, nil, 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(got.Files) != len(db.Files) {
		t.Fatalf("got %d files, want %d", len(got.Files), len(db.Files))
	}
	for i, f := range db.Files {
		gf := got.Files[i]
		if gf.Name != f.Name || gf.IsDirectory != f.IsDirectory || gf.HasStream != f.HasStream {
			t.Errorf("file %d = %+v, want %+v", i, gf, f)
		}
	}

	if len(got.Folders) != 1 {
		t.Fatalf("got %d folders, want 1", len(got.Folders))
	}
	gf := got.Folders[0]
	if !gf.UnpackCRCDefined || gf.UnpackCRC != db.Folders[0].UnpackCRC {
		t.Errorf("folder CRC = %+v, want %+v", gf.UnpackCRCDefined, db.Folders[0].UnpackCRC)
	}
	if gf.NumUnpackSubstreams != 1 {
		t.Errorf("NumUnpackSubstreams = %d, want 1", gf.NumUnpackSubstreams)
	}

	if len(got.SubStreamSizes) != 1 || got.SubStreamSizes[0] != 10 {
		t.Errorf("SubStreamSizes = %v, want [10]", got.SubStreamSizes)
	}
}

func TestEmitParseRoundTripNoFolders(t *testing.T) {
	db := &Database{
		Files: []FileEntry{
			{Name: "empty.txt", IsDirectory: false, HasStream: false},
			{Name: "deleted.txt", IsDirectory: false, HasStream: false, IsAnti: true},
		},
	}
	raw, err := Emit(db)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	got, err := Parse(raw, nil, 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Folders) != 0 {
		t.Errorf("got %d folders, want 0", len(got.Folders))
	}
	if len(got.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(got.Files))
	}
	if got.Files[0].IsAnti {
		t.Errorf("file 0 IsAnti = true, want false")
	}
	if !got.Files[1].IsAnti {
		t.Errorf("file 1 IsAnti = false, want true")
	}
}
