// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// listenerHandle is the stand-in for the spec's "IPC library" listener
// factory (§1 names create-listener(address) -> (fd, optional path-to-unlink)
// as an out-of-scope external collaborator). Go has no varlink binding to
// reuse, so this file implements the minimal piece of that contract this
// repository actually needs: bind an address string to a listening socket
// and hand back both the net.Listener (for Addr()/Close()) and a dup'd,
// blocking-mode *os.File suitable for epoll registration and fd-3 handoff to
// a child — the same technique other_examples/cs3org-reva's grace.go uses
// via (*net.TCPListener).File()/(*net.UnixListener).File().
type listenerHandle struct {
	ln   net.Listener
	file *os.File
}

// Fd returns the OS file descriptor number suitable for epoll_ctl.
func (h *listenerHandle) Fd() int {
	return int(h.file.Fd())
}

// File returns the *os.File to hand a child via os/exec.Cmd.ExtraFiles.
func (h *listenerHandle) File() *os.File {
	return h.file
}

// Addr returns the bound address.
func (h *listenerHandle) Addr() net.Addr {
	return h.ln.Addr()
}

// Accept blocks until a connection arrives on the listener. Only ever called
// after the reactor has reported the fd readable, so this does not block the
// single event-loop goroutine for longer than one syscall.
func (h *listenerHandle) Accept() (net.Conn, error) {
	return h.ln.Accept()
}

// Close closes both the dup'd file and the underlying listener.
func (h *listenerHandle) Close() error {
	errFile := h.file.Close()
	errLn := h.ln.Close()
	if errLn != nil {
		return errLn
	}
	return errFile
}

// newListener binds address (formatted "<network>:<path-or-host:port>", e.g.
// "unix:/run/resolver/a.sock" or "tcp:127.0.0.1:9000") and returns a handle
// plus, for unix sockets, the filesystem path the caller must unlink on
// teardown — mirroring the original's path_to_unlink field.
func newListener(address string) (*listenerHandle, string, error) {
	network, addr, err := splitAddress(address)
	if err != nil {
		return nil, "", err
	}

	var ln net.Listener
	var pathToUnlink string
	switch network {
	case "unix":
		ln, err = net.Listen("unix", addr)
		if err == nil {
			pathToUnlink = addr
		}
	case "tcp":
		ln, err = net.Listen("tcp", addr)
	default:
		return nil, "", fmt.Errorf("%s: %w", network, ErrUnsupportedScheme)
	}
	if err != nil {
		return nil, "", err
	}

	file, err := listenerFile(ln)
	if err != nil {
		_ = ln.Close()
		return nil, "", err
	}

	return &listenerHandle{ln: ln, file: file}, pathToUnlink, nil
}

// listenerFile extracts the dup'd *os.File backing a net.Listener.
func listenerFile(ln net.Listener) (*os.File, error) {
	switch t := ln.(type) {
	case *net.UnixListener:
		return t.File()
	case *net.TCPListener:
		return t.File()
	default:
		return nil, fmt.Errorf("unsupported listener type %T", ln)
	}
}

// splitAddress parses "<network>:<rest>" into its two parts.
func splitAddress(address string) (network, addr string, err error) {
	i := strings.IndexByte(address, ':')
	if i < 0 {
		return "", "", fmt.Errorf("%s: %w", address, ErrInvalidParameter)
	}
	return address[:i], address[i+1:], nil
}

// inheritedControlListener implements the inbound socket-activation protocol
// from spec.md §6: if fd 3 is a valid open descriptor at startup (detected by
// a zero-length read succeeding), adopt it as the pre-bound control listener
// instead of creating a new one.
func inheritedControlListener() (*listenerHandle, bool) {
	const inheritedFD = 3
	f := os.NewFile(uintptr(inheritedFD), "inherited-control")
	if f == nil {
		return nil, false
	}
	var buf [0]byte
	if _, err := f.Read(buf[:]); err != nil {
		// fd 3 not open / not readable: not inherited.
		_ = f.Close()
		return nil, false
	}
	ln, err := net.FileListener(f)
	if err != nil {
		_ = f.Close()
		return nil, false
	}
	file, err := listenerFile(ln)
	if err != nil {
		_ = ln.Close()
		return nil, false
	}
	return &listenerHandle{ln: ln, file: file}, true
}
