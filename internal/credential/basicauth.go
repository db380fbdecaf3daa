// Copyright 2021 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MIT
// license that can be found in the LICENSE file.

// Package credential holds the proxy authentication pair carried by a
// ProxyDescriptor.
package credential

import (
	"encoding/base64"
	"strings"

	ce "github.com/vitalya420/proxy-wrapper/internal/customerror"
)

var (
	ErrMissingCredential        = ce.New("credential", "E_MISSING_CREDENTIAL", 0, nil)
	ErrUsernamePasswordRequired = ce.New("username, and password are required", "E_MISSING_CREDENTIAL", 0, nil)
)

// Credentials is the (username, password) pair carried by a proxy
// descriptor's optional authentication. Username and Password may each be
// the empty string to 255 bytes; the upper bound is enforced at encode
// time by wire.UsernamePassword.Encode.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ToBase64 is the RFC 7617 Basic credential for this pair. The HTTP
// CONNECT driver encodes its own Proxy-Authorization header directly in
// wire.ConnectRequest.Encode (it carries a separate handshake.Credentials
// value, not this package's type), so ToBase64 is a standalone helper for
// callers that hold an internal/credential.Credentials.
func (c *Credentials) ToBase64() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
}

// NewCredentialsFromUserinfo parses a "user:password" string, as found in
// a proxy URL's userinfo component.
func NewCredentialsFromUserinfo(userinfo string) (*Credentials, error) {
	if userinfo == "" {
		return nil, ErrMissingCredential
	}

	user, pass, ok := strings.Cut(userinfo, ":")
	if !ok {
		return nil, ErrUsernamePasswordRequired
	}

	return NewCredentials(user, pass)
}

func NewCredentials(username, password string) (*Credentials, error) {
	return &Credentials{Username: username, Password: password}, nil
}
