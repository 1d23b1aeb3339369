// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"context"
	"fmt"
	"os"

	"github.com/qmuntal/stateless"
)

// State names the position of a managed Service in its activation lifecycle.
type State string

const (
	// StateExternal marks a resolver-only service with no executable. It never
	// transitions; invariant 1 (executable == none => listen_fd == none && pid == none) holds permanently.
	StateExternal State = "external"
	// StateDormant marks a service whose listener is registered with the reactor,
	// waiting for first contact.
	StateDormant State = "dormant"
	// StateActivating marks a service in the brief window between "reactor woke
	// us on this fd" and "child pid recorded." No external observer can catch a
	// service here: Manager.activate transitions Dormant -> Activating -> Running
	// (or Failed, on spawn failure) without yielding to the reactor loop.
	StateActivating State = "activating"
	// StateRunning marks a service whose child owns the listener.
	StateRunning State = "running"
	// StateFailed marks a service whose last child exited abnormally; it is
	// waiting for the next backoff tick before being rebound and re-armed.
	StateFailed State = "failed"
)

const (
	triggerActivate = "activate"
	triggerSpawned  = "spawned"
	triggerSpawnErr = "spawn-failed"
	triggerCleanExit = "clean-exit"
	triggerCrash     = "crash"
	triggerRearm     = "rearm"
)

// Executable describes the optional managed-process half of a Service: the
// binary to run and the credentials to drop to before exec.
type Executable struct {
	// Path is the absolute path to the service binary. A Service with a nil
	// Executable is external/resolver-only (invariant 1).
	Path string
	// UID is the uid to setresuid to before exec; 0 means "no change."
	UID int
	// GID is the gid to setresgid to before exec; 0 means "no change."
	GID int
}

// Service is the per-service record described by the data model: address,
// interface list, optional executable, and the mutable lifecycle fields
// (listener, pid, registry index, lifecycle state) the supervisor mutates as
// the service moves through its state machine. There is no separate failed
// flag: a failed service is one whose state machine is in StateFailed.
type Service struct {
	Address           string
	Interfaces        []string
	Executable        *Executable
	ConfigPath        string
	ActivateAtStartup bool

	// argv is executable, address, config_path? — derived once at construction.
	argv []string

	listener     *listenerHandle
	pathToUnlink string
	pid          int // 0 means "none"

	// index is this service's position in the Manager's dense vector, kept in
	// sync by Manager.add/Manager.remove for O(1) swap-removal.
	index int

	fsm *stateless.StateMachine
}

// newService constructs a Service record. If spec carries an Executable, the
// listener factory is invoked immediately on spec.Address; construction fails
// if the bind/listen fails (ErrListenerFailed), matching C1's precondition
// that construction either fully succeeds (fd bound, state Dormant) or fails
// outright.
func newService(spec *Service) (*Service, error) {
	s := &Service{
		Address:           spec.Address,
		Interfaces:        spec.Interfaces,
		Executable:        spec.Executable,
		ConfigPath:        spec.ConfigPath,
		ActivateAtStartup: spec.ActivateAtStartup,
	}

	if s.Executable == nil {
		s.fsm = stateless.NewStateMachine(StateExternal)
		return s, nil
	}

	s.argv = []string{s.Executable.Path, s.Address}
	if s.ConfigPath != "" {
		s.argv = append(s.argv, s.ConfigPath)
	}

	ln, pathToUnlink, err := newListener(s.Address)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", s.Address, ErrListenerFailed, err)
	}
	s.listener = ln
	s.pathToUnlink = pathToUnlink

	s.fsm = newServiceFSM()
	return s, nil
}

// newServiceFSM builds the Dormant/Activating/Running/Failed machine shared
// by every managed (non-external) service.
func newServiceFSM() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateDormant)
	fsm.Configure(StateDormant).
		Permit(triggerActivate, StateActivating)
	fsm.Configure(StateActivating).
		Permit(triggerSpawned, StateRunning).
		Permit(triggerSpawnErr, StateFailed)
	fsm.Configure(StateRunning).
		Permit(triggerCleanExit, StateDormant).
		Permit(triggerCrash, StateFailed)
	fsm.Configure(StateFailed).
		Permit(triggerRearm, StateDormant)
	return fsm
}

// State returns the service's current lifecycle state.
func (s *Service) State() State {
	return s.fsm.MustState().(State)
}

// Managed reports whether this service has an executable (invariant 1).
func (s *Service) Managed() bool {
	return s.Executable != nil
}

// PID returns the live child pid, or 0 if none.
func (s *Service) PID() int {
	return s.pid
}

// fire drives the FSM and panics on an illegal transition — every call site
// in this package only fires a trigger after checking the precondition the
// transition requires, so an error here is a programming bug, not a runtime
// condition callers need to handle.
func (s *Service) fire(ctx context.Context, trigger string) {
	if err := s.fsm.FireCtx(ctx, trigger); err != nil {
		panic(fmt.Sprintf("activator: illegal transition %s from %s: %v", trigger, s.State(), err))
	}
}

// reset is the post-crash (or defensive post-clean-exit, see SPEC_FULL.md §12)
// rebind: close the old listener, unlink the old path, and bind a fresh one at
// the same address. It is the only legal path back to Dormant from Failed.
func (s *Service) reset() error {
	s.closeListener()
	ln, pathToUnlink, err := newListener(s.Address)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", s.Address, ErrListenerFailed, err)
	}
	s.listener = ln
	s.pathToUnlink = pathToUnlink
	s.pid = 0
	return nil
}

// closeListener closes the current listener fd (if any) and unlinks its
// filesystem path (if any), per §5's resource policy.
func (s *Service) closeListener() {
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	if s.pathToUnlink != "" {
		_ = os.Remove(s.pathToUnlink)
		s.pathToUnlink = ""
	}
}

// destroy implements Service destruction: SIGTERM the child if running, close
// the listener, unlink the path. Used by Manager.remove and by shutdown
// (Manager.teardown).
func (s *Service) destroy() {
	if s.pid != 0 {
		signalProcess(s.pid)
	}
	s.closeListener()
}
