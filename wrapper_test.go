// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxywrapper

import (
	"errors"
	"testing"

	"github.com/vitalya420/proxy-wrapper/handshake"
	"github.com/vitalya420/proxy-wrapper/internal/credential"
	"github.com/vitalya420/proxy-wrapper/rawsock/rawsocktest"
	"github.com/vitalya420/proxy-wrapper/wire"
)

// socks5HelloResponse builds the 2-byte server reply choosing method.
func socks5HelloResponse(method wire.Method) []byte {
	return []byte{wire.SOCKS5Version, byte(method)}
}

// socks5SuccessReply builds a SOCKS5 CONNECT reply bound to 0.0.0.0:port.
func socks5SuccessReply(port uint16) []byte {
	b := []byte{wire.SOCKS5Version, byte(wire.ReplySuccess), 0x00, byte(wire.ATYPIPv4)}
	b = append(b, 0, 0, 0, 0)
	b = append(b, byte(port>>8), byte(port))
	return b
}

func httpConnectResponse(statusLine string) []byte {
	return []byte(statusLine + "\r\n\r\n")
}

func TestPerformConnection_SingleSOCKS5Proxy(t *testing.T) {
	sock := &rawsocktest.Fake{
		ReadChunks: [][]byte{
			socks5HelloResponse(wire.MethodNoAuth),
			socks5SuccessReply(80),
		},
	}

	w, err := Wrap(sock, false, []ProxyDescriptor{
		{Protocol: SOCKS5, Host: "proxyA.invalid", Port: 1080},
	}, nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	sig, err := w.PerformConnection()
	if err != nil {
		t.Fatalf("PerformConnection: %v", err)
	}
	if !sig.Done {
		t.Fatalf("PerformConnection did not complete: %+v", sig)
	}
	if w.Mode() != ReadyForCommand {
		t.Fatalf("Mode = %v, want ReadyForCommand", w.Mode())
	}

	wantHello, _ := wire.Hello{Methods: []wire.Method{wire.MethodNoAuth}}.Encode()
	if string(sock.Written) != string(wantHello) {
		t.Fatalf("greeting bytes = %x, want %x", sock.Written, wantHello)
	}

	sig, err = w.Connect("httpbin.org", 80)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !sig.Done {
		t.Fatalf("Connect did not complete: %+v", sig)
	}
	if w.Mode() != ConnectedToTarget {
		t.Fatalf("Mode = %v, want ConnectedToTarget", w.Mode())
	}

	wantRequest, _ := wire.Request{Cmd: wire.CmdConnect, Host: "httpbin.org", Port: 80}.Encode()
	wantWritten := append(append([]byte{}, wantHello...), wantRequest...)
	if string(sock.Written) != string(wantWritten) {
		t.Fatalf("written bytes = %x, want %x", sock.Written, wantWritten)
	}
}

// TestPerformConnection_TwoProxyChain validates the Negotiate/RequestConnect
// split: the first proxy's CONNECT request tunnels the second proxy's
// address, and the second proxy's own negotiation (a no-op for HTTP) and
// final CONNECT ride transparently over the same established socket.
func TestPerformConnection_TwoProxyChain(t *testing.T) {
	sock := &rawsocktest.Fake{
		ReadChunks: [][]byte{
			socks5HelloResponse(wire.MethodNoAuth), // A's greeting reply
			socks5SuccessReply(8080),               // A's CONNECT-to-B reply
			httpConnectResponse("HTTP/1.1 200 Connection established"),
		},
	}

	w, err := Wrap(sock, false, []ProxyDescriptor{
		{Protocol: SOCKS5, Host: "proxyA.invalid", Port: 1080},
		{Protocol: HTTP, Host: "proxyB.invalid", Port: 8080},
	}, nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	sig, err := w.PerformConnection()
	if err != nil {
		t.Fatalf("PerformConnection: %v", err)
	}
	if !sig.Done {
		t.Fatalf("PerformConnection did not complete: %+v", sig)
	}
	if w.Mode() != ReadyForCommand {
		t.Fatalf("Mode = %v, want ReadyForCommand", w.Mode())
	}
	if got := len(w.established) + len(w.pending); got != 2 {
		t.Fatalf("established+pending = %d, want 2", got)
	}
	if len(w.pending) != 0 {
		t.Fatalf("pending = %v, want empty once chain established", w.pending)
	}

	sig, err = w.Connect("example.com", 443)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !sig.Done {
		t.Fatalf("Connect did not complete: %+v", sig)
	}
	if w.Mode() != ConnectedToTarget {
		t.Fatalf("Mode = %v, want ConnectedToTarget", w.Mode())
	}

	wantHello, _ := wire.Hello{Methods: []wire.Method{wire.MethodNoAuth}}.Encode()
	wantConnectB, _ := wire.Request{Cmd: wire.CmdConnect, Host: "proxyB.invalid", Port: 8080}.Encode()
	wantHTTPConnect := wire.ConnectRequest{TargetHost: "example.com", TargetPort: 443}.Encode()

	wantWritten := append(append([]byte{}, wantHello...), wantConnectB...)
	wantWritten = append(wantWritten, wantHTTPConnect...)
	if string(sock.Written) != string(wantWritten) {
		t.Fatalf("written bytes = %x, want %x", sock.Written, wantWritten)
	}
}

func TestPerformConnection_NoAcceptableAuth(t *testing.T) {
	sock := &rawsocktest.Fake{
		ReadChunks: [][]byte{
			socks5HelloResponse(wire.MethodNoAcceptable),
		},
	}

	w, err := Wrap(sock, false, []ProxyDescriptor{
		{Protocol: SOCKS5, Host: "proxyA.invalid", Port: 1080},
	}, nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	_, err = w.PerformConnection()
	if !errors.Is(err, handshake.ErrNoAcceptableAuth) {
		t.Fatalf("PerformConnection err = %v, want wrapping ErrNoAcceptableAuth", err)
	}

	wantHello, _ := wire.Hello{Methods: []wire.Method{wire.MethodNoAuth}}.Encode()
	if string(sock.Written) != string(wantHello) {
		t.Fatalf("written bytes = %x, want only the greeting %x (no further bytes after rejection)", sock.Written, wantHello)
	}
}

func TestPerformConnection_SuspendsOnWouldBlockAndResumes(t *testing.T) {
	sock := &rawsocktest.Fake{
		ReadChunks: [][]byte{
			nil, // WouldBlock: greeting reply not yet available
			socks5HelloResponse(wire.MethodNoAuth),
			socks5SuccessReply(80),
		},
	}

	w, err := Wrap(sock, false, []ProxyDescriptor{
		{Protocol: SOCKS5, Host: "proxyA.invalid", Port: 1080},
	}, nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	sig, err := w.PerformConnection()
	if err != nil {
		t.Fatalf("PerformConnection (first call): %v", err)
	}
	if sig.Done {
		t.Fatalf("expected suspension on the first call, got Done")
	}
	if sig.Dir != Read {
		t.Fatalf("Dir = %v, want Read", sig.Dir)
	}
	if got := len(w.established) + len(w.pending); got != 1 {
		t.Fatalf("established+pending = %d, want 1 across suspension", got)
	}

	sig, err = w.PerformConnection()
	if err != nil {
		t.Fatalf("PerformConnection (resume): %v", err)
	}
	if !sig.Done {
		t.Fatalf("PerformConnection did not complete after resume: %+v", sig)
	}
	if w.Mode() != ReadyForCommand {
		t.Fatalf("Mode = %v, want ReadyForCommand", w.Mode())
	}
}

func TestConnect_EmptyChainIsPlainTCPConnect(t *testing.T) {
	sock := &rawsocktest.Fake{}

	w, err := Wrap(sock, false, nil, nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	sig, err := w.PerformConnection()
	if err != nil {
		t.Fatalf("PerformConnection: %v", err)
	}
	if !sig.Done || w.Mode() != ReadyForCommand {
		t.Fatalf("PerformConnection with empty chain = %+v, mode %v; want Done/ReadyForCommand", sig, w.Mode())
	}

	sig, err = w.Connect("example.com", 443)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !sig.Done || w.Mode() != ConnectedToTarget {
		t.Fatalf("Connect on empty chain = %+v, mode %v; want Done/ConnectedToTarget", sig, w.Mode())
	}
	if len(sock.Written) != 0 {
		t.Fatalf("written = %x, want no handshake bytes for an empty chain", sock.Written)
	}
}

func TestConnect_RejectsDoubleTarget(t *testing.T) {
	sock := &rawsocktest.Fake{}
	w, err := Wrap(sock, false, nil, nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if _, err := w.PerformConnection(); err != nil {
		t.Fatalf("PerformConnection: %v", err)
	}
	if _, err := w.Connect("example.com", 443); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := w.Connect("example.com", 443); !errors.Is(err, ErrUsageErrorDoubleTarget) {
		t.Fatalf("second Connect err = %v, want ErrUsageErrorDoubleTarget", err)
	}
}

func TestAddProxy_RejectedAfterSeal(t *testing.T) {
	sock := &rawsocktest.Fake{}
	w, err := Wrap(sock, false, nil, nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if _, err := w.PerformConnection(); err != nil {
		t.Fatalf("PerformConnection: %v", err)
	}
	if _, err := w.Connect("example.com", 443); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := w.AddProxy(ProxyDescriptor{Protocol: SOCKS5, Host: "late.invalid", Port: 1080}); !errors.Is(err, ErrUsageErrorSealed) {
		t.Fatalf("AddProxy after seal err = %v, want ErrUsageErrorSealed", err)
	}
}

func TestPerformConnection_AuthRejected(t *testing.T) {
	sock := &rawsocktest.Fake{
		ReadChunks: [][]byte{
			socks5HelloResponse(wire.MethodUserPassword),
			{0x01, 0x01}, // auth sub-negotiation: version 1, status != 0
		},
	}

	creds, err := credential.NewCredentials("alice", "s3cret")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}

	w, err := Wrap(sock, false, []ProxyDescriptor{
		{Protocol: SOCKS5, Host: "proxyA.invalid", Port: 1080, Credentials: creds},
	}, nil)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	_, err = w.PerformConnection()
	if !errors.Is(err, handshake.ErrAuthRejected) {
		t.Fatalf("PerformConnection err = %v, want wrapping ErrAuthRejected", err)
	}
}
