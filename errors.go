// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxywrapper

import (
	ce "github.com/vitalya420/proxy-wrapper/internal/customerror"
)

// Terminal error kinds. Each is a *customerror.CustomError so callers can
// inspect Code, and Unwrap reaches the underlying cause
// (a SOCKS5 reply status, an HTTP status phrase, an OS dial error, ...).
var (
	// ErrAlreadyConnected: wrapping a socket that already has a peer.
	ErrAlreadyConnected = ce.New("socket is already connected", "E_ALREADY_CONNECTED", 0, nil)

	// ErrPeerClosed: zero-length read mid-handshake.
	ErrPeerClosed = ce.New("peer closed the connection mid-handshake", "E_PEER_CLOSED", 0, nil)

	// ErrUsageError: adding a proxy after target-connect, connecting
	// without a proxy in command mode when one is required, etc.
	ErrUsageErrorSealed       = ce.New("chain is sealed; add_proxy is no longer allowed", "E_USAGE", 0, nil)
	ErrUsageErrorNotReady     = ce.New("perform_connection must complete before connect", "E_USAGE", 0, nil)
	ErrUsageErrorDoubleTarget = ce.New("connect has already been called", "E_USAGE", 0, nil)
)

// NewInvalidProxyURLError wraps a proxy-URL parse failure, raised before
// any I/O is attempted.
func NewInvalidProxyURLError(raw string, cause error) error {
	return ce.New("invalid proxy URL: "+raw, "E_INVALID_PROXY_URL", 0, cause)
}

// NewUpstreamUnreachableError wraps an OS-level connection failure to the
// first proxy.
func NewUpstreamUnreachableError(addr string, cause error) error {
	return ce.New("upstream unreachable: "+addr, "E_UPSTREAM_UNREACHABLE", 0, cause)
}

// NewProtocolViolationError wraps a malformed frame: unknown ATYP,
// truncated HTTP status line, and the like.
func NewProtocolViolationError(cause error) error {
	return ce.New("protocol violation", "E_PROTOCOL_VIOLATION", 0, cause)
}

// NewNoAcceptableAuthError wraps handshake.ErrNoAcceptableAuth.
func NewNoAcceptableAuthError(cause error) error {
	return ce.New("no acceptable authentication method", "E_NO_ACCEPTABLE_AUTH", 0, cause)
}

// NewAuthRejectedError wraps handshake.ErrAuthRejected or an HTTP 407.
func NewAuthRejectedError(cause error) error {
	return ce.New("authentication rejected by proxy", "E_AUTH_REJECTED", 0, cause)
}

// NewProxyRejectedError wraps handshake.ProxyRejectedError /
// handshake.ProxyRejectedHTTPError (reason carried in cause).
func NewProxyRejectedError(cause error) error {
	return ce.New("proxy rejected the connection", "E_PROXY_REJECTED", 0, cause)
}
