// SPDX-License-Identifier: BSD-3-Clause

// Package wire implements the minimal framed request/response protocol the
// admin control socket (C7) speaks: a 4-byte big-endian length prefix
// followed by a JSON body, decoded with github.com/goccy/go-json. It is the
// concrete stand-in for the "IPC framing/serialization library" spec.md §1
// names as an out-of-scope external collaborator — no varlink binding is
// available in Go, and embedding a full RPC framework (gRPC, Connect, NATS)
// would require its own accept loop, incompatible with the single epoll
// reactor driving everything else (see DESIGN.md's dropped-dependency
// ledger). This package is therefore written new, grounded in no single
// teacher file, but kept deliberately small: one request, one response, no
// streaming.
package wire
