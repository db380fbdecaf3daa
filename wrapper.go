// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxywrapper

import (
	"errors"
	"net"
	"strconv"

	"github.com/vitalya420/proxy-wrapper/handshake"
	"github.com/vitalya420/proxy-wrapper/ioframe"
	"github.com/vitalya420/proxy-wrapper/log"
	"github.com/vitalya420/proxy-wrapper/rawsock"
)

// Mode is the Wrapper's position in the chain-establishment lifecycle:
// Fresh → ConnectingToProxy (the TCP connect to the first proxy) →
// HandshakingWith(p), for each proxy in turn → ReadyForCommand once every
// proxy has handshaked → ConnectedToTarget.
type Mode int

const (
	Fresh Mode = iota
	ConnectingToProxy
	HandshakingWith
	ReadyForCommand
	ConnectedToTarget
)

func (m Mode) String() string {
	switch m {
	case Fresh:
		return "fresh"
	case ConnectingToProxy:
		return "connecting_to_proxy"
	case HandshakingWith:
		return "handshaking_with"
	case ReadyForCommand:
		return "ready_for_command"
	case ConnectedToTarget:
		return "connected_to_target"
	default:
		return "unknown"
	}
}

// continuation is the single suspended-operation slot: stepping it
// returns Done once the whole outer loop (not just one driver) has
// completed, or a direction to wait on.
type continuation func() (Signal, error)

// Wrapper is the wrapped connection state. It is not safe for concurrent
// use: the calling reactor is assumed to serialise events per FD.
type Wrapper struct {
	sock rawsock.Socket
	log  log.StructuredLogger

	pending     []ProxyDescriptor
	established []ProxyDescriptor

	mode Mode
	cont continuation

	// pendingDriver is the driver for pending[0], live only while it is
	// being negotiated. backDriver is established.back()'s driver,
	// retained so a later RequestConnect can tunnel the next proxy (or
	// the ultimate target) through it.
	pendingDriver handshake.Driver
	backDriver    handshake.Driver
	connected     bool // first-proxy TCP connect finished

	target     string
	targetPort uint16

	metrics *chainMetrics
}

// WrapperConfig configures optional ambient concerns of a Wrapper.
type WrapperConfig struct {
	Log log.StructuredLogger
	PromConfig
}

// Wrap builds a Wrapper around an unconnected rawsock.Socket and an
// initial ordered chain of proxies, failing if the socket is already
// connected.
//
// sock must not already have a peer; rawsock.Dial returns a socket before
// connect completes (or in-progress), which satisfies this. There is no
// portable getpeername check over the rawsock.Socket interface, so
// alreadyConnected is accepted as an explicit parameter set by the
// caller (see cmd/proxywrap/connect, which dials a fresh socket with
// rawsock.Dial and so passes false).
func Wrap(sock rawsock.Socket, alreadyConnected bool, proxies []ProxyDescriptor, cfg *WrapperConfig) (*Wrapper, error) {
	if alreadyConnected {
		return nil, ErrAlreadyConnected
	}
	if cfg == nil {
		cfg = &WrapperConfig{}
	}
	l := cfg.Log
	if l == nil {
		l = log.NopLogger
	}

	return &Wrapper{
		sock:    sock,
		log:     l,
		pending: append([]ProxyDescriptor{}, proxies...),
		mode:    Fresh,
		metrics: newChainMetrics(cfg.PromRegistry, cfg.PromNamespace),
	}, nil
}

// AddProxy appends a proxy to the chain. It fails once the chain is
// sealed, i.e. the wrapper has reached ConnectedToTarget.
func (w *Wrapper) AddProxy(d ProxyDescriptor) error {
	if w.mode == ConnectedToTarget {
		return ErrUsageErrorSealed
	}
	w.pending = append(w.pending, d)
	return nil
}

// Mode reports the wrapper's current lifecycle position.
func (w *Wrapper) Mode() Mode { return w.mode }

// PerformConnection drives the chain-establishment loop: connects to the
// first proxy, then handshakes each proxy in order,
// tunnelling each subsequent proxy's address as a CONNECT target through
// the established prefix. Returns Signal{Done:true} once every proxy in
// the chain has handshaked (state becomes ReadyForCommand), or a
// readiness Signal if it suspends.
func (w *Wrapper) PerformConnection() (Signal, error) {
	if w.cont != nil {
		return w.resume()
	}

	if w.mode == Fresh && len(w.pending) == 0 {
		w.mode = ReadyForCommand
		return Signal{Done: true}, nil
	}
	if w.mode == ReadyForCommand && len(w.pending) == 0 {
		// Already established with nothing left to negotiate: no-op success.
		return Signal{Done: true}, nil
	}

	w.cont = w.stepChain
	return w.resume()
}

// Connect runs the final CONNECT-through-proxy handshake to target. It
// requires ReadyForCommand, except for the empty chain's "behave as a
// plain TCP connect" tie-break, which PerformConnection already
// establishes by the time mode is ReadyForCommand with no established
// proxies.
func (w *Wrapper) Connect(targetHost string, targetPort uint16) (Signal, error) {
	if w.cont != nil {
		return w.resume()
	}
	if w.mode == ConnectedToTarget {
		return Signal{}, ErrUsageErrorDoubleTarget
	}
	if w.mode != ReadyForCommand {
		return Signal{}, ErrUsageErrorNotReady
	}

	w.target, w.targetPort = targetHost, targetPort

	if len(w.established) == 0 {
		// Empty chain: plain TCP connect to the target.
		w.cont = w.stepPlainConnect
	} else {
		w.cont = w.stepFinalHandshake
	}
	return w.resume()
}

// IntoSocket consumes the wrapper and returns the bare, now-plain-pipe
// socket. Valid only after ConnectedToTarget.
func (w *Wrapper) IntoSocket() (rawsock.Socket, error) {
	if w.mode != ConnectedToTarget {
		return nil, ErrUsageErrorNotReady
	}
	return w.sock, nil
}

// Fd is the underlying socket's pollable file descriptor, valid for the
// lifetime of the chain-establishment phase.
func (w *Wrapper) Fd() uintptr { return w.sock.Fd() }

func (w *Wrapper) resume() (Signal, error) {
	sig, err := w.cont()
	if err != nil || sig.Done {
		w.cont = nil
	}
	if err != nil {
		w.log.Error("chain step failed", "mode", w.mode.String(), "error", err)
	}
	if !sig.Done && err == nil {
		w.metrics.suspend(sig.Dir)
	}
	return sig, err
}

// stepChain drives the outer chain-establishment loop: connect to the
// first proxy, then for each proxy p in order — tunnel p's address through the
// already-established prefix's last proxy (skipped for the first proxy,
// which is reached by the raw TCP connect instead), then negotiate p
// itself. p's own CONNECT request is deferred: it runs one iteration
// later (tunnelling the *next* proxy), or in Connect, if p ends up last.
func (w *Wrapper) stepChain() (Signal, error) {
	for len(w.pending) > 0 {
		p := w.pending[0]

		if !w.connected {
			w.mode = ConnectingToProxy
			sig, err := w.stepConnectToFirstProxy(p)
			if err != nil || !sig.Done {
				return sig, err
			}
		}

		if len(w.established) > 0 {
			prev := w.established[len(w.established)-1]
			res, err := w.backDriver.RequestConnect(p.Host, p.Port, w.sock)
			if err != nil {
				w.metrics.error(prev.Protocol)
				return Signal{}, classifyHandshakeError(err)
			}
			if !res.Done {
				return Signal{Dir: fromHandshakeDir(res.Dir), Fd: w.sock.Fd()}, nil
			}
		}

		w.mode = HandshakingWith
		if w.pendingDriver == nil {
			w.pendingDriver = p.newDriver()
			w.metrics.attempt(p.Protocol)
		}

		res, err := w.pendingDriver.Negotiate(w.sock)
		if err != nil {
			w.metrics.error(p.Protocol)
			return Signal{}, classifyHandshakeError(err)
		}
		if !res.Done {
			return Signal{Dir: fromHandshakeDir(res.Dir), Fd: w.sock.Fd()}, nil
		}

		w.metrics.succeed(p.Protocol)
		w.backDriver = w.pendingDriver
		w.pendingDriver = nil
		w.pending = w.pending[1:]
		w.established = append(w.established, p)
		w.log.Debug("handshake established", "protocol", p.Protocol.String(), "addr", p.Addr())
	}

	w.mode = ReadyForCommand
	return Signal{Done: true}, nil
}

// stepConnectToFirstProxy drives the resumable, non-blocking TCP connect
// to the very first proxy in the chain.
func (w *Wrapper) stepConnectToFirstProxy(p ProxyDescriptor) (Signal, error) {
	err := w.sock.Connect(p.Addr())
	if err == nil {
		w.connected = true
		return Signal{Done: true}, nil
	}
	if isWouldBlock(err) {
		return Signal{Dir: Write, Fd: w.sock.Fd()}, nil
	}
	return Signal{}, NewUpstreamUnreachableError(p.Addr(), err)
}

// stepFinalHandshake drives one more CONNECT-through-proxy handshake on
// the last established proxy, addressed at the caller's ultimate target.
func (w *Wrapper) stepFinalHandshake() (Signal, error) {
	last := w.established[len(w.established)-1]
	res, err := w.backDriver.RequestConnect(w.target, w.targetPort, w.sock)
	if err != nil {
		w.metrics.error(last.Protocol)
		return Signal{}, classifyHandshakeError(err)
	}
	if !res.Done {
		return Signal{Dir: fromHandshakeDir(res.Dir), Fd: w.sock.Fd()}, nil
	}
	w.metrics.succeed(last.Protocol)
	w.mode = ConnectedToTarget
	w.log.Debug("connected to target", "target", net.JoinHostPort(w.target, strconv.Itoa(int(w.targetPort))))
	return Signal{Done: true}, nil
}

// stepPlainConnect drives the empty-chain tie-break: a plain TCP connect
// straight to the caller's target.
func (w *Wrapper) stepPlainConnect() (Signal, error) {
	err := w.sock.Connect(net.JoinHostPort(w.target, strconv.Itoa(int(w.targetPort))))
	if err == nil {
		w.mode = ConnectedToTarget
		return Signal{Done: true}, nil
	}
	if isWouldBlock(err) {
		return Signal{Dir: Write, Fd: w.sock.Fd()}, nil
	}
	return Signal{}, NewUpstreamUnreachableError(w.target, err)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, rawsock.ErrWouldBlock)
}

func fromHandshakeDir(d handshake.Direction) Direction {
	if d == handshake.DirWrite {
		return Write
	}
	return Read
}

// classifyHandshakeError maps the handshake package's sentinel errors
// onto this package's terminal error kinds.
func classifyHandshakeError(err error) error {
	switch err.(type) {
	case *handshake.ProxyRejectedError, *handshake.ProxyRejectedHTTPError:
		return NewProxyRejectedError(err)
	}
	switch {
	case errors.Is(err, handshake.ErrNoAcceptableAuth):
		return NewNoAcceptableAuthError(err)
	case errors.Is(err, handshake.ErrAuthRejected):
		return NewAuthRejectedError(err)
	case errors.Is(err, ioframe.ErrPeerClosed):
		return ErrPeerClosed
	}
	return NewProtocolViolationError(err)
}
