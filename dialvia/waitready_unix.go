// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build unix

package dialvia

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	proxywrapper "github.com/vitalya420/proxy-wrapper"
)

// pollSliceMillis bounds each individual unix.Poll call so the context's
// deadline/cancellation is checked regularly instead of only once the
// whole wait would otherwise block indefinitely.
const pollSliceMillis = 200

// waitReady blocks until fd is ready in dir, or ctx is done.
func waitReady(ctx context.Context, fd uintptr, dir proxywrapper.Direction) error {
	events := int16(unix.POLLIN)
	if dir == proxywrapper.Write {
		events = unix.POLLOUT
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := unix.Poll(fds, pollSliceMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("dialvia: poll: %w", err)
		}
		if n == 0 {
			continue // slice elapsed with nothing ready; re-check ctx and retry
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			// Let the next Socket call surface the real error (e.g. via
			// SO_ERROR on a failed connect); polling only reports readiness.
			return nil
		}
		return nil
	}
}
