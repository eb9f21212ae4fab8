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
	"bytes"
	"io"
	"testing"
	"time"
)

func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(make([]byte, 32)) // reserved signature-header region

	w := NewWriter(&buf)

	dirEntry := &Entry{Name: "dir", IsDirectory: true, ModTime: time.Now().UTC(), HasModTime: true}
	if err := w.PushEntry(dirEntry, nil); err != nil {
		t.Fatalf("PushEntry(dir): %v", err)
	}
	for name, content := range entries {
		e := &Entry{Name: name, ModTime: time.Now().UTC(), HasModTime: true}
		if err := w.PushEntry(e, bytes.NewReader([]byte(content))); err != nil {
			t.Fatalf("PushEntry(%q): %v", name, err)
		}
	}

	sig, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	out := buf.Bytes()
	copy(out[0:32], sig)
	return out
}

func TestWriterReaderRoundTrip(t *testing.T) {
	entries := map[string]string{
		"hello.txt": "hello, 7z world",
		"empty.txt": "",
	}
	archive := buildArchive(t, entries)

	r, err := NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	found := make(map[string]string)
	var sawDir bool
	if err := r.ForEach(func(e *Entry, body io.Reader) (bool, error) {
		if e.IsDirectory {
			sawDir = true
			return true, nil
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return false, err
		}
		found[e.Name] = string(data)
		return true, nil
	}); err != nil {
		t.Fatalf("ForEach: %v", err)
	}

	if !sawDir {
		t.Error("directory entry not observed")
	}
	for name, want := range entries {
		got, ok := found[name]
		if !ok {
			t.Errorf("entry %q missing from round trip", name)
			continue
		}
		if got != want {
			t.Errorf("entry %q = %q, want %q", name, got, want)
		}
	}
}

func TestReaderRejectsBadSignature(t *testing.T) {
	data := make([]byte, 32)
	if _, err := NewReader(bytes.NewReader(data), int64(len(data))); err != ErrBadSignature {
		t.Errorf("err = %v, want %v", err, ErrBadSignature)
	}
}

func TestWriterRejectsPushAfterFinish(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 32))
	w := NewWriter(&buf)
	if _, err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := w.PushEntry(&Entry{Name: "late.txt"}, bytes.NewReader(nil)); err != ErrWriterClosed {
		t.Errorf("err = %v, want %v", err, ErrWriterClosed)
	}
}
