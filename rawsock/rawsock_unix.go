// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build unix

package rawsock

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// tcpSocket is the unix implementation of Socket. It owns a non-blocking
// TCP file descriptor directly (not via net.Dialer, whose DialContext
// blocks the calling goroutine until connect completes or fails, which is
// incompatible with the suspend-and-resume discipline the chain
// orchestrator needs). Read and Write are one-shot, non-retrying syscalls
// dispatched through (*os.File).SyscallConn so the runtime never parks
// the goroutine waiting for readiness on our behalf; that is exactly the
// "return ErrWouldBlock immediately" contract Socket promises.
type tcpSocket struct {
	fd        int
	file      *os.File
	conn      net.Conn // net.FileConn(file); gives LocalAddr/RemoteAddr for free
	connected bool
}

// Dial creates a non-blocking TCP socket and begins connecting to addr
// ("host:port"). DNS resolution is synchronous even though the socket
// itself is non-blocking: neither BSD sockets nor Go's resolver offer a
// non-blocking name lookup primitive, and suspension is scoped to the
// handshake I/O, not address resolution.
func Dial(addr string) (Socket, error) {
	raddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	domain := unix.AF_INET
	sa := &unix.SockaddrInet4{Port: raddr.Port}
	if ip4 := raddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	} else {
		domain = unix.AF_INET6
		sa6 := &unix.SockaddrInet6{Port: raddr.Port}
		copy(sa6.Addr[:], raddr.IP.To16())
		return dialWithSockaddr(domain, sa6)
	}
	return dialWithSockaddr(domain, sa)
}

func dialWithSockaddr(domain int, sa unix.Sockaddr) (Socket, error) {
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("rawsock: socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rawsock: set nonblocking: %w", err)
	}

	file := os.NewFile(uintptr(fd), "")
	conn, err := net.FileConn(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("rawsock: file conn: %w", err)
	}

	s := &tcpSocket{fd: fd, file: file, conn: conn}

	err = unix.Connect(fd, sa)
	switch {
	case err == nil:
		s.connected = true
		return s, nil
	case errors.Is(err, unix.EINPROGRESS):
		return s, ErrWouldBlock
	default:
		s.Close()
		return nil, fmt.Errorf("rawsock: connect: %w", err)
	}
}

// Connect resumes a pending connect after write-readiness: it inspects
// SO_ERROR to learn whether the connect succeeded or failed.
func (s *tcpSocket) Connect(_ string) error {
	if s.connected {
		return nil
	}

	soerr, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("rawsock: getsockopt(SO_ERROR): %w", err)
	}
	if soerr != 0 {
		return fmt.Errorf("rawsock: connect: %w", syscall.Errno(soerr))
	}

	s.connected = true
	return nil
}

func (s *tcpSocket) Read(p []byte) (int, error) {
	rawConn, err := s.file.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var readErr error
	err = rawConn.Read(func(fd uintptr) bool {
		n, readErr = unix.Read(int(fd), p)
		return true // one attempt only; never let the runtime park us
	})
	if err != nil {
		return 0, err
	}
	if errors.Is(readErr, unix.EAGAIN) {
		return 0, ErrWouldBlock
	}
	if readErr != nil {
		return 0, readErr
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *tcpSocket) Write(p []byte) (int, error) {
	rawConn, err := s.file.SyscallConn()
	if err != nil {
		return 0, err
	}

	var n int
	var writeErr error
	err = rawConn.Write(func(fd uintptr) bool {
		n, writeErr = unix.Write(int(fd), p)
		return true
	})
	if err != nil {
		return 0, err
	}
	if errors.Is(writeErr, unix.EAGAIN) {
		return n, ErrWouldBlock
	}
	if writeErr != nil {
		return n, writeErr
	}
	return n, nil
}

func (s *tcpSocket) Fd() uintptr { return uintptr(s.fd) }

func (s *tcpSocket) LocalAddr() net.Addr  { return s.conn.LocalAddr() }
func (s *tcpSocket) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *tcpSocket) NetConn() net.Conn { return s.conn }

func (s *tcpSocket) Close() error {
	return s.conn.Close()
}
