// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package rawsocktest provides an in-memory rawsock.Socket double for unit
// tests of ioframe, handshake and the chain orchestrator, in place of
// in-process listeners or real file descriptors.
package rawsocktest

import (
	"io"
	"net"

	"github.com/vitalya420/proxy-wrapper/rawsock"
)

// Fake is a rawsock.Socket backed by plain byte slices instead of a real
// file descriptor. ReadChunks controls how much data is handed back per
// successful Read call (at most one slice per call; a slice longer than
// the caller's buffer is handed out over several calls; nil slices are
// turned into ErrWouldBlock); this lets tests exercise arbitrary
// partition points against the incremental readers and the handshake
// drivers.
type Fake struct {
	ReadChunks  [][]byte
	ConnectErrs []error // sequence of Connect() outcomes; last repeats

	Written []byte

	readIdx    int
	connectIdx int
	closed     bool
}

var _ rawsock.Socket = (*Fake)(nil)

func (f *Fake) Connect(string) error {
	if f.connectIdx >= len(f.ConnectErrs) {
		return nil
	}
	err := f.ConnectErrs[f.connectIdx]
	if f.connectIdx < len(f.ConnectErrs)-1 {
		f.connectIdx++
	}
	return err
}

func (f *Fake) Read(p []byte) (int, error) {
	if f.readIdx >= len(f.ReadChunks) {
		return 0, rawsock.ErrWouldBlock
	}
	chunk := f.ReadChunks[f.readIdx]
	f.readIdx++
	if chunk == nil {
		return 0, rawsock.ErrWouldBlock
	}
	if len(chunk) == 0 {
		return 0, io.EOF
	}
	n := copy(p, chunk)
	if n < len(chunk) {
		// put back what didn't fit
		f.ReadChunks[f.readIdx-1] = chunk[n:]
		f.readIdx--
	}
	return n, nil
}

func (f *Fake) Write(p []byte) (int, error) {
	f.Written = append(f.Written, p...)
	return len(p), nil
}

func (f *Fake) Fd() uintptr { return 0 }

func (f *Fake) LocalAddr() net.Addr  { return &net.TCPAddr{} }
func (f *Fake) RemoteAddr() net.Addr { return &net.TCPAddr{} }

func (f *Fake) NetConn() net.Conn { return nil }

func (f *Fake) Close() error {
	f.closed = true
	return nil
}

func (f *Fake) Closed() bool { return f.closed }

// ReadChunksConsumed reports how many entries of ReadChunks have been
// handed out via Read so far, for tests asserting that a driver stopped
// reading at a particular phase boundary.
func (f *Fake) ReadChunksConsumed() int { return f.readIdx }
