// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ioframe

import (
	"testing"

	"github.com/vitalya420/proxy-wrapper/rawsock/rawsocktest"
)

// fillToCompletion drives Fill until it reports done, feeding WouldBlock
// suspensions back in as no-ops (the caller is expected to retry after
// readiness in production; here we just loop immediately).
func fillToCompletion(t *testing.T, fill func(sock *rawsocktest.Fake) (bool, error), sock *rawsocktest.Fake) {
	t.Helper()
	for i := 0; i < 64; i++ {
		done, err := fill(sock)
		if err != nil {
			t.Fatalf("Fill: %v", err)
		}
		if done {
			return
		}
	}
	t.Fatal("Fill did not complete within the iteration budget")
}

// partitions returns every way of splitting b into two chunks at index k,
// for all partition points k, plus delivering b whole in one chunk.
func partitions(b []byte) [][][]byte {
	var out [][][]byte
	out = append(out, [][]byte{b})
	for k := 1; k < len(b); k++ {
		out = append(out, [][]byte{b[:k], b[k:]})
	}
	return out
}

func TestExact_PartitionPointEquivalence(t *testing.T) {
	want := []byte("0123456789")
	for _, chunks := range partitions(want) {
		e := NewExact(len(want))
		sock := &rawsocktest.Fake{ReadChunks: chunks}
		fillToCompletion(t, func(s *rawsocktest.Fake) (bool, error) { return e.Fill(s) }, sock)
		if string(e.Bytes()) != string(want) {
			t.Fatalf("chunks %v: Bytes() = %q, want %q", chunks, e.Bytes(), want)
		}
	}
}

func TestExact_WouldBlockThenResume(t *testing.T) {
	sock := &rawsocktest.Fake{ReadChunks: [][]byte{nil, []byte("hi")}}
	e := NewExact(2)

	done, err := e.Fill(sock)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if done {
		t.Fatal("expected suspension on the first call")
	}

	done, err = e.Fill(sock)
	if err != nil || !done {
		t.Fatalf("Fill after resume: done=%v err=%v", done, err)
	}
	if string(e.Bytes()) != "hi" {
		t.Fatalf("Bytes() = %q, want \"hi\"", e.Bytes())
	}
}

func TestExact_PeerClosedMidFrame(t *testing.T) {
	sock := &rawsocktest.Fake{ReadChunks: [][]byte{{}}}
	e := NewExact(4)
	if _, err := e.Fill(sock); err != ErrPeerClosed {
		t.Fatalf("Fill err = %v, want ErrPeerClosed", err)
	}
}

func TestUntilCRLFCRLF_PartitionPointEquivalence(t *testing.T) {
	want := []byte("HTTP/1.1 200 Connection established\r\nContent-Length: 0\r\n\r\n")
	for _, chunks := range partitions(want) {
		u := NewUntilCRLFCRLF()
		sock := &rawsocktest.Fake{ReadChunks: chunks}
		fillToCompletion(t, func(s *rawsocktest.Fake) (bool, error) { return u.Fill(s) }, sock)
		if string(u.Bytes()) != string(want) {
			t.Fatalf("chunks %v: Bytes() = %q, want %q", chunks, u.Bytes(), want)
		}
	}
}

func TestUntilCRLFCRLF_DoesNotFalsePositiveOnPartialTerminator(t *testing.T) {
	// Splits the CRLFCRLF terminator itself across two reads, which
	// exercises the "scanned" rewind-by-3 logic.
	want := []byte("HTTP/1.1 200 OK\r\n\r\n")
	for k := len(want) - 3; k < len(want); k++ {
		sock := &rawsocktest.Fake{ReadChunks: [][]byte{want[:k], want[k:]}}
		u := NewUntilCRLFCRLF()
		fillToCompletion(t, func(s *rawsocktest.Fake) (bool, error) { return u.Fill(s) }, sock)
		if string(u.Bytes()) != string(want) {
			t.Fatalf("split at %d: Bytes() = %q, want %q", k, u.Bytes(), want)
		}
	}
}

func TestLengthPrefixed_PartitionPointEquivalence(t *testing.T) {
	// Models the SOCKS5 reply: 4-byte header whose last byte (ATYP 0x01,
	// IPv4) implies a 6-byte tail, then those 6 bytes.
	want := []byte{0x05, 0x00, 0x00, 0x01, 1, 2, 3, 4, 0, 80}
	lenFromHead := func(head []byte) (int, error) { return 6, nil }

	for _, chunks := range partitions(want) {
		l := NewLengthPrefixed(4, lenFromHead)
		sock := &rawsocktest.Fake{ReadChunks: chunks}
		fillToCompletion(t, func(s *rawsocktest.Fake) (bool, error) { return l.Fill(s) }, sock)
		if string(l.Bytes()) != string(want) {
			t.Fatalf("chunks %v: Bytes() = %q, want %q", chunks, l.Bytes(), want)
		}
	}
}

func TestLengthPrefixed_NegativeLength(t *testing.T) {
	sock := &rawsocktest.Fake{ReadChunks: [][]byte{{0, 0, 0, 0}}}
	l := NewLengthPrefixed(4, func(head []byte) (int, error) { return -1, nil })
	if _, err := l.Fill(sock); err == nil {
		t.Fatal("expected an error for a negative tail length")
	}
}
