// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"github.com/spf13/cobra"

	"github.com/vitalya420/proxy-wrapper/cmd/proxywrap/connect"
	"github.com/vitalya420/proxy-wrapper/cmd/proxywrap/versioncmd"
)

const envPrefix = "PROXYWRAP"

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "proxywrap",
		Short: "Tunnel a TCP connection through a chain of SOCKS5/HTTP(S) proxies",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlagsToEnv(cmd, envPrefix)
		},
	}

	rootCmd.AddCommand(connect.Command(), versioncmd.Command())
	for _, cmd := range rootCmd.Commands() {
		appendEnvToUsage(cmd, envPrefix)
	}

	return rootCmd
}
