// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package handshake

import (
	"errors"
	"fmt"

	"github.com/vitalya420/proxy-wrapper/ioframe"
	"github.com/vitalya420/proxy-wrapper/rawsock"
	"github.com/vitalya420/proxy-wrapper/wire"
)

// ErrNoAcceptableAuth is returned when the server returned 0xFF, or
// selected USERNAME_PASSWORD with no credentials given.
var ErrNoAcceptableAuth = errors.New("handshake: socks5: no acceptable authentication method")

// ErrAuthRejected is returned when the sub-negotiation status != 0.
var ErrAuthRejected = errors.New("handshake: socks5: username/password rejected")

// ProxyRejectedError maps ProxyRejected(reason): REP != 0 on the CONNECT reply.
type ProxyRejectedError struct {
	Status wire.ReplyStatus
}

func (e *ProxyRejectedError) Error() string {
	return fmt.Sprintf("handshake: socks5: proxy rejected connect: %s", e.Status)
}

type socks5State int

const (
	socks5SendGreeting socks5State = iota
	socks5AwaitMethod
	socks5SendAuth
	socks5AwaitAuthReply
	socks5ReadyForRequest
	socks5SendRequest
	socks5AwaitReplyHead
	socks5AwaitReplyTail
	socks5Done
)

// SOCKS5Driver implements the SOCKS5 state machine:
// SendGreeting → AwaitMethod → [SendAuth → AwaitAuthReply] →
// SendRequest → AwaitReplyHead → AwaitReplyTail → Done. Negotiate runs
// up to socks5ReadyForRequest and stops there; RequestConnect supplies
// the CONNECT target and runs the remainder.
type SOCKS5Driver struct {
	creds *Credentials

	targetHost string
	targetPort uint16
	targetSet  bool

	state  socks5State
	wbuf   writeBuffer
	head   *ioframe.Exact
	areply *ioframe.Exact
	reply  *replyReader

	// Reply, once Done, is the parsed SOCKS5 CONNECT reply.
	Reply wire.Reply
}

// replyReader reads a SOCKS5 reply in up to three phases: the fixed
// 4-byte header (VER, REP, RSV, ATYP), then either a fixed-length tail
// (IPv4/IPv6, 6 or 18 bytes) or a domain-length byte followed by a
// variable tail (domain name, 1+N+2 bytes).
type replyReader struct {
	head      *ioframe.Exact
	fixedTail *ioframe.Exact // non-nil once ATYP known to be IPv4/IPv6
	domainLen *ioframe.Exact // non-nil once ATYP known to be domain, before length read
	domainTail *ioframe.Exact // non-nil once domain length is known
}

func newReplyReader() *replyReader {
	return &replyReader{head: ioframe.NewExact(wire.ReplyHeaderLen)}
}

func (r *replyReader) fill(sock rawsock.Socket) (bool, error) {
	if r.fixedTail == nil && r.domainLen == nil && r.domainTail == nil {
		done, err := r.head.Fill(sock)
		if !done {
			return false, err
		}
		atyp := wire.ATYP(r.head.Bytes()[3])
		switch atyp {
		case wire.ATYPIPv4:
			r.fixedTail = ioframe.NewExact(4 + 2)
		case wire.ATYPIPv6:
			r.fixedTail = ioframe.NewExact(16 + 2)
		case wire.ATYPDomain:
			r.domainLen = ioframe.NewExact(1)
		default:
			return false, fmt.Errorf("handshake: socks5: unsupported reply ATYP 0x%02x", byte(atyp))
		}
	}

	if r.fixedTail != nil {
		return r.fixedTail.Fill(sock)
	}

	if r.domainTail == nil {
		done, err := r.domainLen.Fill(sock)
		if !done {
			return false, err
		}
		n := int(r.domainLen.Bytes()[0])
		r.domainTail = ioframe.NewExact(n + 2)
	}
	return r.domainTail.Fill(sock)
}

func (r *replyReader) bytes() []byte {
	b := append([]byte{}, r.head.Bytes()...)
	if r.fixedTail != nil {
		return append(b, r.fixedTail.Bytes()...)
	}
	if r.domainLen != nil {
		b = append(b, r.domainLen.Bytes()...)
	}
	if r.domainTail != nil {
		b = append(b, r.domainTail.Bytes()...)
	}
	return b
}

// NewSOCKS5Driver builds a driver for a proxy with the given credentials
// (nil if none). The CONNECT target is supplied later, via RequestConnect.
func NewSOCKS5Driver(creds *Credentials) *SOCKS5Driver {
	d := &SOCKS5Driver{creds: creds}

	methods := []wire.Method{wire.MethodNoAuth}
	if creds.present() {
		methods = []wire.Method{wire.MethodUserPassword}
	}
	b, _ := wire.Hello{Methods: methods}.Encode() // bounded by construction; never errors
	d.wbuf = writeBuffer{b: b}
	d.head = ioframe.NewExact(wire.HelloResponseLen)

	return d
}

// Negotiate runs the greeting and, if required, the username/password
// sub-negotiation, stopping once the proxy is ready for a CONNECT
// request. Calling it again once reached is a no-op.
func (d *SOCKS5Driver) Negotiate(sock rawsock.Socket) (Result, error) {
	return d.step(sock)
}

// RequestConnect issues the CONNECT request for (host, port) — captured
// only on the call that starts it — and runs until the reply is parsed.
func (d *SOCKS5Driver) RequestConnect(host string, port uint16, sock rawsock.Socket) (Result, error) {
	if !d.targetSet {
		d.targetHost, d.targetPort = host, port
		d.targetSet = true
	}
	return d.step(sock)
}

func (d *SOCKS5Driver) step(sock rawsock.Socket) (Result, error) {
	for {
		switch d.state {
		case socks5SendGreeting:
			done, err := d.wbuf.flush(sock)
			if !done {
				return suspendOnWrite(err)
			}
			d.state = socks5AwaitMethod

		case socks5AwaitMethod:
			done, err := d.head.Fill(sock)
			if !done {
				return suspendOnRead(err)
			}
			resp, err := wire.DecodeHelloResponse(d.head.Bytes())
			if err != nil {
				return Result{}, fmt.Errorf("handshake: socks5: %w", err)
			}
			if resp.Method == wire.MethodNoAcceptable {
				return Result{}, ErrNoAcceptableAuth
			}
			if resp.Method == wire.MethodUserPassword {
				if !d.creds.present() {
					return Result{}, ErrNoAcceptableAuth
				}
				b, err := wire.UsernamePassword{Username: d.creds.Username, Password: d.creds.Password}.Encode()
				if err != nil {
					return Result{}, fmt.Errorf("handshake: socks5: %w", err)
				}
				d.wbuf = writeBuffer{b: b}
				d.areply = ioframe.NewExact(wire.AuthenticationResponseLen)
				d.state = socks5SendAuth
			} else {
				d.state = socks5ReadyForRequest
			}

		case socks5SendAuth:
			done, err := d.wbuf.flush(sock)
			if !done {
				return suspendOnWrite(err)
			}
			d.state = socks5AwaitAuthReply

		case socks5AwaitAuthReply:
			done, err := d.areply.Fill(sock)
			if !done {
				return suspendOnRead(err)
			}
			resp, err := wire.DecodeAuthenticationResponse(d.areply.Bytes())
			if err != nil {
				return Result{}, fmt.Errorf("handshake: socks5: %w", err)
			}
			if !resp.OK() {
				return Result{}, ErrAuthRejected
			}
			d.state = socks5ReadyForRequest

		case socks5ReadyForRequest:
			if !d.targetSet {
				// Negotiate stops here; RequestConnect hasn't run yet.
				return Result{Done: true}, nil
			}
			d.prepareRequest()
			d.state = socks5SendRequest

		case socks5SendRequest:
			done, err := d.wbuf.flush(sock)
			if !done {
				return suspendOnWrite(err)
			}
			d.reply = newReplyReader()
			d.state = socks5AwaitReplyHead

		case socks5AwaitReplyHead, socks5AwaitReplyTail:
			done, err := d.reply.fill(sock)
			if !done {
				return suspendOnRead(err)
			}
			reply, err := wire.DecodeReply(d.reply.bytes())
			if err != nil {
				return Result{}, fmt.Errorf("handshake: socks5: %w", err)
			}
			if !reply.OK() {
				return Result{}, &ProxyRejectedError{Status: reply.Status}
			}
			d.Reply = reply
			d.state = socks5Done
			return Result{Done: true}, nil

		case socks5Done:
			return Result{Done: true}, nil
		}
	}
}

func (d *SOCKS5Driver) prepareRequest() {
	b, _ := wire.Request{Cmd: wire.CmdConnect, Host: d.targetHost, Port: d.targetPort}.Encode()
	d.wbuf = writeBuffer{b: b}
}

func suspendOnRead(err error) (Result, error) {
	if errors.Is(err, rawsock.ErrWouldBlock) {
		return Result{Dir: DirRead}, nil
	}
	return Result{}, err
}

func suspendOnWrite(err error) (Result, error) {
	if errors.Is(err, rawsock.ErrWouldBlock) {
		return Result{Dir: DirWrite}, nil
	}
	return Result{}, err
}
