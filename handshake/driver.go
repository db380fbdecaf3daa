// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package handshake implements the per-proxy handshake drivers: small
// state machines, one per proxy protocol, that consume ioframe readers
// and a pending send buffer to advance through
// greeting → auth → connect-request → reply. Each driver is a pure
// reducer over (rawsock.Socket, internal state): it never retries on
// WouldBlock, it reports it.
package handshake

import (
	"github.com/vitalya420/proxy-wrapper/rawsock"
)

// Direction is the I/O readiness a suspended driver is waiting on.
type Direction int

const (
	DirRead Direction = iota
	DirWrite
)

// Result is what Driver.Negotiate and Driver.RequestConnect return on
// every call.
type Result struct {
	Done bool
	Dir  Direction // meaningful only if !Done
}

// Driver is initialised with the proxy's credentials (if any) and run in
// two phases, matching how the chain orchestrator uses a proxy twice:
// once to admit it into the chain, and again — one iteration later, or
// at the very end — to tell it where to CONNECT.
type Driver interface {
	// Negotiate advances the proxy's own greeting/authentication
	// exchange, if any, stopping once the proxy is ready to accept a
	// CONNECT request. SOCKS5 runs its method-selection and optional
	// username/password exchange here; HTTP CONNECT proxies have none
	// and return Done without touching sock.
	Negotiate(sock rawsock.Socket) (Result, error)

	// RequestConnect issues (or resumes) the CONNECT command to
	// (host, port) — the next proxy's address while chaining, or the
	// caller's ultimate target once the chain is ready. host and port
	// are only consulted on the call that starts the request; calls
	// that resume a suspended request ignore them.
	RequestConnect(host string, port uint16, sock rawsock.Socket) (Result, error)
}

// Credentials is the (username, password) pair from a proxy descriptor's
// optional authentication, shared by both the SOCKS5 and HTTP drivers.
type Credentials struct {
	Username string
	Password string
}

func (c *Credentials) present() bool {
	return c != nil
}

// writeBuffer is the small helper every Send* state uses: flush b with
// non-blocking Write, retaining the unflushed remainder across a
// suspension so a later call resumes mid-buffer.
type writeBuffer struct {
	b []byte
}

// flush returns true once b is fully written.
func (w *writeBuffer) flush(sock rawsock.Socket) (bool, error) {
	for len(w.b) > 0 {
		n, err := sock.Write(w.b)
		if n > 0 {
			w.b = w.b[n:]
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}
