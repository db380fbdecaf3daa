// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package dialvia provides blocking convenience drivers on top of the
// Wrapper's non-blocking readiness surface: PerformConnection/Connect
// (matching the two distinct Wrapper operations) and a concurrent
// multi-socket helper, DriveMany.
package dialvia

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	proxywrapper "github.com/vitalya420/proxy-wrapper"
)

// operation is either Wrapper.PerformConnection or a closure over
// Wrapper.Connect(host, port); both share the Done/Signal discipline.
type operation func() (proxywrapper.Signal, error)

// PerformConnection blocks until w's chain is fully established,
// servicing every NeedRead/NeedWrite suspension with the OS poll
// primitive.
func PerformConnection(w *proxywrapper.Wrapper) error {
	return driveUntilDone(context.Background(), w.PerformConnection)
}

// Connect blocks until w reaches ConnectedToTarget.
func Connect(w *proxywrapper.Wrapper, targetHost string, targetPort uint16) error {
	return driveUntilDone(context.Background(), func() (proxywrapper.Signal, error) {
		return w.Connect(targetHost, targetPort)
	})
}

func driveUntilDone(ctx context.Context, op operation) error {
	for {
		sig, err := op()
		if err != nil {
			return err
		}
		if sig.Done {
			return nil
		}
		if err := waitReady(ctx, sig.Fd, sig.Dir); err != nil {
			return err
		}
	}
}

// DriveMany drives each wrapper's PerformConnection concurrently under a
// shared total timeout, reporting a per-socket error for each wrapper
// that fails or times out. Rather than hand-roll a single epoll loop
// multiplexing every wrapper's FD, each wrapper is driven by its own
// goroutine and its own poll call:
// idiomatic Go already multiplexes goroutines onto OS threads, so one
// poller per socket composed with errgroup gets the same "concurrently,
// under one bounded batch" behaviour without a bespoke reactor.
//
// The returned slice has one entry per wrapper, in the same order,
// nil on success.
func DriveMany(ctx context.Context, wrappers []*proxywrapper.Wrapper, totalTimeout time.Duration) []error {
	ctx, cancel := context.WithTimeout(ctx, totalTimeout)
	defer cancel()

	errs := make([]error, len(wrappers))
	eg, gctx := errgroup.WithContext(ctx)
	for i, w := range wrappers {
		i, w := i, w
		eg.Go(func() error {
			errs[i] = driveUntilDone(gctx, w.PerformConnection)
			return nil // per-socket failures are reported via errs, not the group
		})
	}
	_ = eg.Wait()
	return errs
}
