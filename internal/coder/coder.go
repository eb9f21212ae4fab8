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

// Package coder builds decode/encode byte-stream pipelines from a 7z
// folder's coder list, keyed by the coder's variable-length method ID.
// The registry and factory shape follows the teacher's codec package:
// a sync.RWMutex-guarded map populated by package init(), matching
// chd/codec.go's codecRegistry/RegisterCodec/GetCodec pattern.
package coder

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// Well-known 7z method IDs, per the public 7-Zip SDK method table
// referenced by spec.md §3/§4.E. These are format constants, not
// algorithmic content, so they are not grounded on any pack source —
// they are the wire identifiers the format itself defines.
var (
	MethodCopy      = []byte{0x00}
	MethodDelta     = []byte{0x03}
	MethodBCJX86    = []byte{0x03, 0x03, 0x01, 0x03}
	MethodBCJPPC    = []byte{0x03, 0x03, 0x02, 0x05}
	MethodBCJARM    = []byte{0x03, 0x03, 0x05, 0x01}
	MethodBCJSPARC  = []byte{0x03, 0x03, 0x08, 0x05}
	MethodBCJARMT   = []byte{0x03, 0x03, 0x07, 0x01}
	MethodLZMA2     = []byte{0x21}
	MethodLZMA      = []byte{0x03, 0x01, 0x01}
	MethodAES256SHA = []byte{0x06, 0xF1, 0x07, 0x01}
)

// key returns the registry lookup key for a method ID.
func key(id []byte) string { return hex.EncodeToString(id) }

// Coder describes one stage of a folder's pipeline: a method ID and its
// raw properties blob, plus the declared output size needed to bound a
// decode.
type Coder struct {
	MethodID      []byte
	Properties    []byte
	NumInStreams  int
	NumOutStreams int
	OutputSize    int64
}

// Binding connects one coder's output stream index to another coder's
// input stream index, per spec.md §3's folder bindings.
type Binding struct {
	InIndex  int // global input-stream index
	OutIndex int // global output-stream index
}

// DecodeFactory constructs a decoding io.Reader wrapping src, given the
// coder's properties and its declared decoded size.
type DecodeFactory func(src io.Reader, props []byte, outSize int64) (io.Reader, error)

// EncodeFactory constructs an encoding io.WriteCloser that writes
// compressed bytes to dst as plaintext is written to it.
type EncodeFactory func(dst io.Writer, props []byte) (io.WriteCloser, error)

type registration struct {
	decode DecodeFactory
	encode EncodeFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
)

// Register installs the decode/encode factories for a method ID. Called
// from package init() for built-in methods; exported so callers may add
// or override methods (e.g. a future AES implementation).
func Register(id []byte, decode DecodeFactory, encode EncodeFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key(id)] = registration{decode: decode, encode: encode}
}

func lookup(id []byte) (registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[key(id)]
	return r, ok
}

func unsupported(name string) DecodeFactory {
	return func(io.Reader, []byte, int64) (io.Reader, error) {
		return nil, fmt.Errorf("%s: %w", name, errUnsupported)
	}
}

func unsupportedEncode(name string) EncodeFactory {
	return func(io.Writer, []byte) (io.WriteCloser, error) {
		return nil, fmt.Errorf("%s: %w", name, errUnsupported)
	}
}

func init() {
	Register(MethodCopy, copyDecode, copyEncode)
	Register(MethodLZMA, lzmaDecode, lzmaEncode)
	Register(MethodLZMA2, lzma2Decode, lzma2Encode)
	Register(MethodBCJX86, bcjX86Decode, bcjX86Encode)
	Register(MethodDelta, deltaDecode, deltaEncode)

	for name, id := range map[string][]byte{
		"BCJ-ARM":   MethodBCJARM,
		"BCJ-ARM-T": MethodBCJARMT,
		"BCJ-PPC":   MethodBCJPPC,
		"BCJ-SPARC": MethodBCJSPARC,
	} {
		Register(id, unsupported(name), unsupportedEncode(name))
	}
	Register(MethodAES256SHA, unsupported("AES256SHA256: encryption out of scope"),
		unsupportedEncode("AES256SHA256: encryption out of scope"))
}

// Build walks a folder's coder list and bindings and constructs the
// decode pipeline: packed bytes flow into the first coder and the last
// coder's output is the folder's decoded primary stream, with coders
// stored in that order by the parser. Only straight-chain topologies
// are supported: a coder with more than one bound input or output
// stream is rejected, per spec.md §9's stated chain restriction.
//
// spec.md §4.E describes a single Build entry point parameterised by a
// decode/encode flag and returning "io.Reader or io.WriteCloser";
// idiomatic Go prefers two named functions with concrete return types
// over one function whose return type depends on a boolean, so encode
// pipelines are built by BuildEncoder instead.
func Build(coders []Coder, bindings []Binding, src io.Reader) (io.Reader, error) {
	if err := checkChain(coders, bindings); err != nil {
		return nil, err
	}
	r := src
	for _, c := range coders {
		reg, ok := lookup(c.MethodID)
		if !ok {
			return nil, fmt.Errorf("method %s: %w", key(c.MethodID), errUnsupported)
		}
		next, err := reg.decode(r, c.Properties, c.OutputSize)
		if err != nil {
			return nil, err
		}
		r = next
	}
	return r, nil
}

// BuildEncoder constructs the reverse (encoding) pipeline: plaintext
// written to the returned WriteCloser is transformed stage by stage and
// the final compressed bytes are written to dst.
func BuildEncoder(coders []Coder, bindings []Binding, dst io.Writer) (io.WriteCloser, error) {
	if err := checkChain(coders, bindings); err != nil {
		return nil, err
	}
	// Build mirrors decode forward: coders[0] transforms the packed
	// bytes first, coders[1] transforms coders[0]'s output next, and so
	// on, so coders[len-1]'s output is the plaintext. Encoding must run
	// that exact chain backwards — the caller's plaintext has to enter
	// coders[len-1]'s encoder and exit coders[0]'s encoder into dst —
	// so this loop builds coders[0]'s encoder around dst first, then
	// wraps each subsequent coder's encoder around the previous one,
	// ending with coders[len-1]'s encoder as the outermost stage.
	w := dst
	var chain []io.WriteCloser
	for i := 0; i < len(coders); i++ {
		c := coders[i]
		reg, ok := lookup(c.MethodID)
		if !ok {
			return nil, fmt.Errorf("method %s: %w", key(c.MethodID), errUnsupported)
		}
		next, err := reg.encode(w, c.Properties)
		if err != nil {
			return nil, err
		}
		chain = append(chain, next)
		w = next
	}
	return &chainWriteCloser{stages: chain}, nil
}

// chainWriteCloser presents the first stage (the one nearest the
// caller's plaintext) as a single Writer while closing every stage, in
// caller-to-sink order, on Close so each stage flushes before the next
// is finalised.
type chainWriteCloser struct {
	stages []io.WriteCloser // innermost-first as built; stages[len-1] is nearest the caller
}

func (c *chainWriteCloser) Write(p []byte) (int, error) {
	return c.stages[len(c.stages)-1].Write(p)
}

func (c *chainWriteCloser) Close() error {
	for i := len(c.stages) - 1; i >= 0; i-- {
		if err := c.stages[i].Close(); err != nil {
			return err
		}
	}
	return nil
}

// checkChain rejects any folder whose bindings describe more than one
// input or output stream per coder, per the Open Question decision
// recorded in DESIGN.md.
func checkChain(coders []Coder, bindings []Binding) error {
	inCount := make(map[int]int)
	outCount := make(map[int]int)
	for _, b := range bindings {
		inCount[b.InIndex]++
		outCount[b.OutIndex]++
	}
	for idx, n := range inCount {
		if n > 1 {
			return fmt.Errorf("input stream %d bound more than once: %w", idx, errNonChain)
		}
	}
	for idx, n := range outCount {
		if n > 1 {
			return fmt.Errorf("output stream %d bound more than once: %w", idx, errNonChain)
		}
	}
	for _, c := range coders {
		if c.NumInStreams > 1 || c.NumOutStreams > 1 {
			return fmt.Errorf("coder with %d in / %d out streams: %w", c.NumInStreams, c.NumOutStreams, errNonChain)
		}
	}
	return nil
}
