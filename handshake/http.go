// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package handshake

import (
	"fmt"

	"github.com/vitalya420/proxy-wrapper/ioframe"
	"github.com/vitalya420/proxy-wrapper/rawsock"
	"github.com/vitalya420/proxy-wrapper/wire"
)

// ProxyRejectedHTTPError reports a non-200, non-407 HTTP CONNECT response,
// with reason set to the response's status phrase. A 407 response is
// instead reported as AuthRejectedHTTPError.
type ProxyRejectedHTTPError struct {
	StatusCode   int
	StatusPhrase string
}

func (e *ProxyRejectedHTTPError) Error() string {
	return fmt.Sprintf("handshake: http connect: proxy rejected connect: %d %s", e.StatusCode, e.StatusPhrase)
}

// AuthRejectedHTTPError reports a 407 HTTP CONNECT response, carrying the
// status phrase (e.g. "Proxy Authentication Required") that ErrAuthRejected
// alone discards. It unwraps to ErrAuthRejected so callers that only check
// for that sentinel still match.
type AuthRejectedHTTPError struct {
	StatusPhrase string
}

func (e *AuthRejectedHTTPError) Error() string {
	return fmt.Sprintf("handshake: http connect: authentication rejected by proxy: %s", e.StatusPhrase)
}

func (e *AuthRejectedHTTPError) Unwrap() error {
	return ErrAuthRejected
}

type httpState int

const (
	httpReadyForRequest httpState = iota
	httpSendRequest
	httpAwaitHeaders
	httpDiscardBody
	httpDone
)

// HTTPDriver implements the HTTP/HTTPS CONNECT state machine:
// SendRequest → AwaitStatusLine → AwaitHeaders → [DiscardBody] → Done.
// Status-line and headers are read together as one CRLFCRLF-terminated
// block. HTTP CONNECT proxies have no separate greeting, so Negotiate is
// a no-op: the whole exchange runs inside RequestConnect.
type HTTPDriver struct {
	creds *Credentials

	targetHost string
	targetPort uint16

	state   httpState
	wbuf    writeBuffer
	headers *ioframe.UntilCRLFCRLF
	body    *ioframe.Exact

	// Response, once Done, is the parsed status line and headers.
	Response wire.ConnectResponse
}

// NewHTTPDriver builds a driver for a proxy with the given credentials
// (nil if none). The descriptor's scheme (http vs https) does not change
// the wire bytes: both speak HTTP/1.1 on the wire.
func NewHTTPDriver(creds *Credentials) *HTTPDriver {
	return &HTTPDriver{creds: creds}
}

// Negotiate is a no-op: HTTP CONNECT proxies have nothing to negotiate
// before a CONNECT request is sent.
func (d *HTTPDriver) Negotiate(sock rawsock.Socket) (Result, error) {
	return Result{Done: true}, nil
}

// RequestConnect sends (or resumes) the CONNECT request for
// (host, port), captured only on the call that starts it.
func (d *HTTPDriver) RequestConnect(host string, port uint16, sock rawsock.Socket) (Result, error) {
	if d.state == httpReadyForRequest {
		d.targetHost, d.targetPort = host, port

		req := wire.ConnectRequest{TargetHost: host, TargetPort: port}
		if d.creds.present() {
			req.HasAuth = true
			req.Username = d.creds.Username
			req.Password = d.creds.Password
		}
		d.wbuf = writeBuffer{b: req.Encode()}
		d.headers = ioframe.NewUntilCRLFCRLF()
		d.state = httpSendRequest
	}
	return d.step(sock)
}

func (d *HTTPDriver) step(sock rawsock.Socket) (Result, error) {
	for {
		switch d.state {
		case httpReadyForRequest:
			// RequestConnect always advances past this state before
			// step is reached; nothing to do if it somehow isn't.
			return Result{Done: true}, nil

		case httpSendRequest:
			done, err := d.wbuf.flush(sock)
			if !done {
				return suspendOnWrite(err)
			}
			d.state = httpAwaitHeaders

		case httpAwaitHeaders:
			done, err := d.headers.Fill(sock)
			if !done {
				return suspendOnRead(err)
			}
			resp, err := wire.DecodeConnectResponse(d.headers.Bytes())
			if err != nil {
				return Result{}, fmt.Errorf("handshake: http connect: %w", err)
			}
			d.Response = resp

			if resp.StatusCode == 407 {
				return Result{}, &AuthRejectedHTTPError{StatusPhrase: resp.StatusPhrase}
			}
			if !resp.OK() {
				return Result{}, &ProxyRejectedHTTPError{StatusCode: resp.StatusCode, StatusPhrase: resp.StatusPhrase}
			}
			if resp.ContentLength > 0 {
				d.body = ioframe.NewExact(int(resp.ContentLength))
				d.state = httpDiscardBody
			} else {
				d.state = httpDone
				return Result{Done: true}, nil
			}

		case httpDiscardBody:
			done, err := d.body.Fill(sock)
			if !done {
				return suspendOnRead(err)
			}
			d.state = httpDone
			return Result{Done: true}, nil

		case httpDone:
			return Result{Done: true}, nil
		}
	}
}
