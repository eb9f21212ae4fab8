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
	"io/fs"
	"time"
)

// ntfsEpoch is 1601-01-01 00:00:00 UTC, the origin of the 100ns-tick
// timestamps 7z stores on disk.
var ntfsEpoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

func ntfsToTime(ticks uint64) time.Time {
	return ntfsEpoch.Add(time.Duration(ticks * 100))
}

func timeToNTFS(t time.Time) uint64 {
	return uint64(t.Sub(ntfsEpoch).Nanoseconds() / 100)
}

// Entry is one archive member's metadata, independent of where its
// content physically lives in the pack/folder layout.
type Entry struct {
	Name        string
	IsDirectory bool
	IsAnti      bool
	HasStream   bool

	UncompressedSize int64
	CRC32            uint32
	HasCRC32         bool

	ModTime         time.Time
	HasModTime      bool
	AccessTime      time.Time
	HasAccessTime   bool
	CreationTime    time.Time
	HasCreationTime bool

	Attributes    uint32
	HasAttributes bool

	// Method overrides the Writer's default content-coder chain for
	// this entry alone; nil uses the Writer's configured default.
	Method []CoderConfig
}

// FileInfo adapts e to fs.FileInfo, for callers that want to treat
// archive entries the way they'd treat filesystem entries (e.g. to
// reuse tar/zip-style walking code).
func (e *Entry) FileInfo() fs.FileInfo {
	return entryFileInfo{e}
}

type entryFileInfo struct{ e *Entry }

func (f entryFileInfo) Name() string {
	name := f.e.Name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}

func (f entryFileInfo) Size() int64 { return f.e.UncompressedSize }

func (f entryFileInfo) Mode() fs.FileMode {
	if f.e.IsDirectory {
		return fs.ModeDir | 0o755
	}
	mode := fs.FileMode(0o644)
	// Bit 0x8000 in a 7z entry's Windows attributes signals that the
	// high 16 bits are a Unix st_mode, the convention p7zip's Unix port
	// and most modern 7z writers use to round-trip POSIX permissions.
	if f.e.HasAttributes && f.e.Attributes&0x8000 != 0 {
		mode = fs.FileMode(f.e.Attributes>>16) & 0o777
	}
	return mode
}

func (f entryFileInfo) ModTime() time.Time {
	if f.e.HasModTime {
		return f.e.ModTime
	}
	return time.Time{}
}

func (f entryFileInfo) IsDir() bool { return f.e.IsDirectory }

func (f entryFileInfo) Sys() any { return f.e }

// CreateEntry builds an Entry from a filesystem path, populating name,
// directory/size/mtime fields from info the way callers typically want
// when mirroring a directory tree into an archive.
func CreateEntry(name string, info fs.FileInfo) *Entry {
	e := &Entry{
		Name:        name,
		IsDirectory: info.IsDir(),
		HasStream:   !info.IsDir(),
	}
	if !info.IsDir() {
		e.UncompressedSize = info.Size()
	}
	e.ModTime = info.ModTime()
	e.HasModTime = !e.ModTime.IsZero()
	return e
}
