// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// signalChannelSize matches the reactor's "one event per wait" discipline:
// os/signal.Notify's channel is buffered so a burst of signals (e.g. many
// children exiting close together) is never dropped between reactor ticks.
const signalChannelSize = 64

// setSubreaper registers this process as a child subreaper (PR_SET_CHILD_SUBREAPER)
// so that re-parented grandchildren of a double-forking service become this
// process's responsibility to reap, preventing zombie accumulation.
func setSubreaper() error {
	if err := unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0); err != nil {
		return err
	}
	return nil
}

// watchSignals installs os/signal.Notify for SIGCHLD, SIGTERM, and SIGINT.
// os/signal is used in place of a raw signalfd: no Go program in the example
// corpus rolls its own signalfd, and os/signal.Notify is the idiomatic
// stand-in, delivering into a buffered channel the reactor selects on
// alongside its epoll wait exactly as the original multiplexes a signalfd.
func watchSignals() chan os.Signal {
	ch := make(chan os.Signal, signalChannelSize)
	signal.Notify(ch, syscall.SIGCHLD, syscall.SIGTERM, syscall.SIGINT)
	return ch
}

// exitCause classifies how a child terminated, for the log line required by
// the *ChildCrashed* error kind (§7) and the crash/clean-exit branch in §4.5.
type exitCause struct {
	clean  bool // exited normally with status 0
	status int
	signal syscall.Signal
	dumped bool
}

func (c exitCause) String() string {
	switch {
	case c.clean:
		return "exited cleanly"
	case c.signal != 0 && c.dumped:
		return "killed by signal " + c.signal.String() + " (core dumped)"
	case c.signal != 0:
		return "killed by signal " + c.signal.String()
	default:
		return "exited with status " + strconv.Itoa(c.status)
	}
}

// reapChildren drains every currently-reapable child via non-blocking
// wait-for-any-child, calling onReap for each. It terminates as soon as
// Wait4 reports ECHILD (no children at all) or a 0 pid (none ready), matching
// §4.5's "terminate the drain when no child is in a terminated state."
func reapChildren(onReap func(pid int, cause exitCause)) {
	var ws syscall.WaitStatus
	for {
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
		cause := exitCause{}
		switch {
		case ws.Exited():
			cause.status = ws.ExitStatus()
			cause.clean = cause.status == 0
		case ws.Signaled():
			cause.signal = ws.Signal()
			cause.dumped = ws.CoreDump()
		}
		onReap(pid, cause)
	}
}

// signalProcess sends SIGTERM to pid, ignoring errors: the process may have
// already exited (a race Service destruction does not need to resolve,
// per §3's destruction semantics: "signals the child with SIGTERM if running").
func signalProcess(pid int) {
	_ = syscall.Kill(pid, syscall.SIGTERM)
}
