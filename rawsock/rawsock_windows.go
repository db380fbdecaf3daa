// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build windows

package rawsock

import "fmt"

// Dial is not implemented on windows. A full non-blocking raw socket
// surface (SockaddrInet4/6, EINPROGRESS-driven connect) needs the
// equivalent golang.org/x/sys/windows recipe, which is left as a
// follow-up.
func Dial(addr string) (Socket, error) {
	return nil, fmt.Errorf("rawsock: non-blocking sockets are not implemented on windows")
}
