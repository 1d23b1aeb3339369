// SPDX-License-Identifier: BSD-3-Clause

// Command resolver is the service resolver and on-demand activator daemon
// (spec.md §1): resolve an interface name to a listening address, and for
// addresses it owns, lazily spawn the backing service on first connection.
//
// Usage:
//
//	resolver <address> [<config-path>]
//
// <address> is this daemon's own admin control endpoint, formatted
// "<network>:<path-or-host:port>" (e.g. "unix:/run/resolver/control.sock").
// <config-path>, if given, names a JSON file describing the services to
// register and, optionally, activate at startup (spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cherry-pick/resolver/activator"
	"github.com/cherry-pick/resolver/pkg/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.GetGlobalLogger().Error("resolver exited", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: resolver <address> [<config-path>]")
	}

	logger := log.GetGlobalLogger()
	log.RedirectStdLog(logger)

	opts := []activator.Option{
		activator.WithControlAddress(args[0]),
		activator.WithLogger(logger),
	}
	if len(args) == 2 {
		opts = append(opts, activator.WithConfigPath(args[1]))
	}

	mgr := activator.New(opts...)
	return mgr.Run(context.Background())
}
