// SPDX-License-Identifier: BSD-3-Clause

package activator

import "errors"

var (
	// Configuration / parameter errors
	// ErrInvalidParameter indicates a malformed RPC argument or config entry.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrMissingAddress indicates a service spec with no address.
	ErrMissingAddress = errors.New("service spec missing address")
	// ErrMissingInterfaces indicates a service spec with an empty interface list.
	ErrMissingInterfaces = errors.New("service spec missing interfaces")
	// ErrEmptyInterfaceName indicates one of the interface names in a spec is empty.
	ErrEmptyInterfaceName = errors.New("interface name cannot be empty")

	// Resolution errors
	// ErrInterfaceNotFound indicates no service claims the requested interface.
	ErrInterfaceNotFound = errors.New("interface not found")
	// ErrNotUnique indicates two services claim the same interface name.
	ErrNotUnique = errors.New("interface claimed by more than one service")

	// Listener errors
	// ErrListenerFailed indicates bind/listen failed for a service address.
	ErrListenerFailed = errors.New("failed to bind listener")
	// ErrUnsupportedScheme indicates an address scheme this resolver cannot listen on.
	ErrUnsupportedScheme = errors.New("unsupported address scheme")

	// Activation / child errors
	// ErrNotActivatable indicates Activate was called on a managed service that
	// already has a live pid, or has no listener to hand off.
	ErrNotActivatable = errors.New("service is not in an activatable state")
	// ErrChildCrashed indicates a supervised child exited abnormally.
	ErrChildCrashed = errors.New("child process crashed")
	// ErrSpawnFailed indicates the fork/exec of a service executable failed.
	ErrSpawnFailed = errors.New("failed to spawn child process")

	// Reactor / signal errors
	// ErrReactorInit indicates epoll/signal setup failed during startup; always fatal.
	ErrReactorInit = errors.New("reactor initialization failed")
	// ErrSubreaperFailed indicates PR_SET_CHILD_SUBREAPER could not be set.
	ErrSubreaperFailed = errors.New("failed to register as child subreaper")

	// Config errors
	// ErrConfigTooLarge indicates the startup config file exceeds the documented size cap.
	ErrConfigTooLarge = errors.New("configuration file exceeds maximum size")
	// ErrConfigMalformed indicates the startup config file is not valid JSON.
	ErrConfigMalformed = errors.New("configuration file is malformed")

	// Service lifecycle errors
	// ErrUnmanagedService indicates an operation that requires a managed (executable) service
	// was attempted against an external, resolver-only entry.
	ErrUnmanagedService = errors.New("service is unmanaged (external, resolver-only)")
)
