// SPDX-License-Identifier: BSD-3-Clause

// Package activator implements a service resolver and on-demand activator:
// a reactor that multiplexes an admin control socket, an OS signal channel,
// and one listening socket per dormant service, forking and exec'ing a
// service's executable the moment its listener becomes ready and handing it
// the already-bound socket on fd 3.
//
// The package is organized around the Manager type, which owns the service
// registry, the interface index, and the reactor loop. Manager.Run drives
// the process for its lifetime; Manager.AddServices, Manager.Resolve,
// Manager.GetInfo, and Manager.GetConfig implement the four administrative
// RPCs exposed over the control socket by package wire.
//
// Services are modeled as a small state machine (Dormant, Activating,
// Running, Failed) built on top of github.com/qmuntal/stateless; a service
// with no executable stays in StateExternal for its whole life and is
// resolver-only.
package activator
