// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package proxywrapper wraps an outbound TCP connection with transparent
// proxy chaining: given an ordered list of proxy descriptors (SOCKS5,
// HTTP CONNECT, HTTPS CONNECT), it drives the handshake with each proxy
// in sequence so bytes written to the wrapped endpoint after setup are
// tunnelled through the entire chain to a target address chosen by the
// caller. The same Wrapper operates both in blocking mode (package
// dialvia) and in a non-blocking readiness mode suitable for an external
// reactor.
package proxywrapper

import (
	"net"
	"strconv"

	"github.com/vitalya420/proxy-wrapper/handshake"
	"github.com/vitalya420/proxy-wrapper/internal/credential"
)

// Protocol is the proxy protocol a ProxyDescriptor speaks.
type Protocol int

const (
	SOCKS5 Protocol = iota
	HTTP
	HTTPS
)

func (p Protocol) String() string {
	switch p {
	case SOCKS5:
		return "socks5"
	case HTTP:
		return "http"
	case HTTPS:
		return "https"
	default:
		return "unknown"
	}
}

// ProxyDescriptor is the immutable triple (protocol, address,
// credentials) identifying one hop of a proxy chain.
type ProxyDescriptor struct {
	Protocol    Protocol
	Host        string
	Port        uint16
	Credentials *credential.Credentials // nil if the proxy requires no auth
}

// Addr renders the descriptor's address as "host:port".
func (d ProxyDescriptor) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(int(d.Port)))
}

func (d ProxyDescriptor) handshakeCreds() *handshake.Credentials {
	if d.Credentials == nil {
		return nil
	}
	return &handshake.Credentials{Username: d.Credentials.Username, Password: d.Credentials.Password}
}

// newDriver builds the per-proxy handshake driver for d. The driver is
// negotiated first, then pointed at a CONNECT target — the next proxy's
// address, or the ultimate target's — via Driver.RequestConnect.
func (d ProxyDescriptor) newDriver() handshake.Driver {
	switch d.Protocol {
	case SOCKS5:
		return handshake.NewSOCKS5Driver(d.handshakeCreds())
	default: // HTTP, HTTPS: identical wire bytes
		return handshake.NewHTTPDriver(d.handshakeCreds())
	}
}
