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

// Command sevenz lists and extracts 7z archives.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go7z/sevenz/sevenzip"
)

var (
	archivePath = flag.String("i", "", "archive path (required)")
	list        = flag.Bool("list", false, "list archive contents and exit")
	extractDir  = flag.String("o", "", "directory to extract into (required unless -list)")
	verify      = flag.Bool("verify", false, "cross-check plain-LZMA entries against an independent decoder")
	version     = flag.Bool("version", false, "print version and exit")
)

const appVersion = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -i <archive.7z> [-list | -o <dir>] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Lists or extracts the contents of a 7z archive.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i game.7z -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i game.7z -o ./out\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i game.7z -o ./out -verify\n", os.Args[0])
	}
	flag.Parse()

	if *version {
		fmt.Printf("sevenz version %s\n", appVersion)
		os.Exit(0)
	}

	if *archivePath == "" {
		fmt.Fprintf(os.Stderr, "Error: archive path required (-i)\n")
		flag.Usage()
		os.Exit(1)
	}
	if !*list && *extractDir == "" {
		fmt.Fprintf(os.Stderr, "Error: either -list or -o <dir> is required\n")
		flag.Usage()
		os.Exit(1)
	}

	rc, err := sevenzip.OpenReader(*archivePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening archive: %v\n", err)
		os.Exit(1)
	}
	defer rc.Close()

	if *list {
		listArchive(rc.Reader)
		return
	}

	if err := extractArchive(rc.Reader, *extractDir, *verify); err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting archive: %v\n", err)
		os.Exit(1)
	}
}

func listArchive(r *sevenzip.Reader) {
	for _, e := range r.Entries() {
		kind := "-"
		switch {
		case e.IsDirectory:
			kind = "d"
		case e.IsAnti:
			kind = "a"
		}
		fmt.Printf("%s %12d %s\n", kind, e.UncompressedSize, e.Name)
	}
}

func extractArchive(r *sevenzip.Reader, dir string, verify bool) error {
	return r.ForEach(func(e *sevenzip.Entry, body io.Reader) (bool, error) {
		target := filepath.Join(dir, filepath.FromSlash(e.Name))
		if e.IsAnti {
			return true, nil
		}
		if e.IsDirectory {
			return true, os.MkdirAll(target, 0o755)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return false, err
		}
		f, err := os.Create(target)
		if err != nil {
			return false, err
		}
		_, copyErr := io.Copy(f, body)
		closeErr := f.Close()
		if copyErr != nil {
			return false, copyErr
		}
		if closeErr != nil {
			return false, closeErr
		}
		if verify {
			if err := r.VerifyEntry(e); err != nil {
				return false, fmt.Errorf("verify %q: %w", e.Name, err)
			}
		}
		return true, nil
	})
}
