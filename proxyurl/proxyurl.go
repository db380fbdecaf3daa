// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package proxyurl parses the proxy URL syntax
// (socks5|http|https)://[user[:password]@]host:port.
package proxyurl

import (
	"fmt"
	"net/url"
	"strconv"

	proxywrapper "github.com/vitalya420/proxy-wrapper"
	"github.com/vitalya420/proxy-wrapper/internal/credential"
	"github.com/vitalya420/proxy-wrapper/validation"
)

// Parse parses raw into a ProxyDescriptor. Username and password are
// percent-decoded by net/url; a missing port is rejected (net/url alone
// would silently accept a portless authority). The overall shape is
// pre-checked against
// the proxyURI validation tag before net/url ever sees it, so malformed
// schemes and hostnames are rejected uniformly with a descriptive error.
func Parse(raw string) (proxywrapper.ProxyDescriptor, error) {
	if err := validation.Validator().Var(raw, "proxyURI"); err != nil {
		return proxywrapper.ProxyDescriptor{}, proxywrapper.NewInvalidProxyURLError(raw, err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return proxywrapper.ProxyDescriptor{}, proxywrapper.NewInvalidProxyURLError(raw, err)
	}

	proto, err := parseScheme(u.Scheme)
	if err != nil {
		return proxywrapper.ProxyDescriptor{}, proxywrapper.NewInvalidProxyURLError(raw, err)
	}

	host := u.Hostname()
	portStr := u.Port()
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return proxywrapper.ProxyDescriptor{}, proxywrapper.NewInvalidProxyURLError(raw, fmt.Errorf("invalid port %q: %w", portStr, err))
	}

	d := proxywrapper.ProxyDescriptor{Protocol: proto, Host: host, Port: uint16(port)}

	if u.User != nil {
		password, _ := u.User.Password()
		creds, err := credential.NewCredentials(u.User.Username(), password)
		if err != nil {
			return proxywrapper.ProxyDescriptor{}, proxywrapper.NewInvalidProxyURLError(raw, err)
		}
		d.Credentials = creds
	}

	return d, nil
}

func parseScheme(scheme string) (proxywrapper.Protocol, error) {
	switch scheme {
	case "socks5":
		return proxywrapper.SOCKS5, nil
	case "http":
		return proxywrapper.HTTP, nil
	case "https":
		return proxywrapper.HTTPS, nil
	default:
		return 0, fmt.Errorf("unsupported proxy scheme %q", scheme)
	}
}
