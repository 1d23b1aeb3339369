// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"context"

	"golang.org/x/sys/unix"
)

// reactor is the level-triggered readiness facility described by C4: it holds
// registrations for the control listener and zero or more service listeners,
// each keyed by its raw fd (the fd is the rendezvous, not an index — the
// reactor never stores anything beyond the fd itself; callers look up the
// owning Service by fd in their own table, as invariant 5 requires).
//
// Unlike the original's single OS thread, this reactor's EpollWait call runs
// on its own goroutine (run) and forwards ready fds over a channel to the
// caller's single mutating goroutine (Manager.eventLoop's select loop) — the only
// goroutine that ever calls add/remove/activate. This keeps the "one thread
// mutates state" invariant from §5 while letting Go's signal delivery
// (os/signal, a channel, not an fd) sit in the same select alongside it,
// since there is no idiomatic Go signalfd to epoll directly.
//
// Only one ready event is surfaced per EpollWait call: events is sized to
// exactly one slot, so the kernel itself enforces §4.4's "only one ready
// event processed per wait," rather than this code batching and discarding.
type reactor struct {
	epfd int
}

func newReactor() (*reactor, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &reactor{epfd: fd}, nil
}

// add registers fd for EPOLLIN readiness.
func (r *reactor) add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// remove unregisters fd. Called before every activation and on service
// removal so the parent stops waking on a socket the child now owns.
func (r *reactor) remove(fd int) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// close releases the epoll fd.
func (r *reactor) close() error {
	return unix.Close(r.epfd)
}

// run drives EpollWait in a loop, sending each ready fd to out, until ctx is
// canceled. It is meant to be started with `go`; the caller's select loop is
// the only place fds are acted upon.
func (r *reactor) run(ctx context.Context, out chan<- int) {
	var events [1]unix.EpollEvent
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := unix.EpollWait(r.epfd, events[:], 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			select {
			case out <- int(events[i].Fd):
			case <-ctx.Done():
				return
			}
		}
	}
}
