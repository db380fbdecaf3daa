// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build windows

package dialvia

import (
	"context"
	"errors"

	proxywrapper "github.com/vitalya420/proxy-wrapper"
)

// waitReady has no Windows implementation: rawsock.Dial itself is
// unimplemented there (see rawsock/rawsock_windows.go), so dialvia can
// never be reached with a live FD to poll on this platform.
func waitReady(ctx context.Context, fd uintptr, dir proxywrapper.Direction) error {
	return errors.New("dialvia: not implemented on windows")
}
