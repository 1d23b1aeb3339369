// SPDX-License-Identifier: BSD-3-Clause

// Package log provides the structured logger used throughout the resolver:
// a zerolog console writer wrapped behind the standard library's slog
// interface, plus small adapters for the other libraries that want their own
// logger type (oversight's supervision tree, the standard log package).
//
// # Basic Usage
//
//	logger := log.GetGlobalLogger()
//	logger.Info("resolver starting", "control_address", addr)
//	logger.Error("activation failed", "address", svcAddr, "error", err)
//
// # Oversight Integration
//
//	tree := oversight.New(oversight.WithLogger(log.NewOversightLogger(logger)))
//
// # Standard Library Bridging
//
// RedirectStdLog points the standard library's log package at a slog.Logger,
// so any dependency that still logs through "log" is folded into the same
// structured output.
package log
