// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"cirello.io/oversight/v2"
	"github.com/arunsworld/nursery"
	"golang.org/x/sys/unix"

	pkglog "github.com/cherry-pick/resolver/pkg/log"
)

// backoffInterval is the single, global backoff tick described by §4.4/§9:
// whenever any service is Failed, the reactor's effective timeout becomes
// this duration; on tick, every Failed service is rebound and re-armed at
// once (not per-service exponential backoff, which §9 explicitly leaves as
// an unimplemented future extension).
const backoffInterval = 1000 * time.Millisecond

// Manager is the supervisor (C6): it owns the service registry, the
// interface index, and drives the reactor loop for the process lifetime.
type Manager struct {
	cfg    managerConfig
	logger *slog.Logger

	services []*Service
	index    *interfaceIndex
	anyFailed bool

	reactor           *reactor
	byFD              map[int]*Service
	control           *listenerHandle
	controlFD         int
	controlPathToUnlink string
}

// New constructs a Manager. The control listener is not bound until Run.
func New(opts ...Option) *Manager {
	cfg := managerConfig{
		logger: pkglog.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return &Manager{
		cfg:    cfg,
		logger: cfg.logger,
		byFD:   make(map[int]*Service),
		index:  &interfaceIndex{},
	}
}

// add registers svc (already constructed via newService) in the dense vector
// with O(1) swap-remove support, and, if managed, registers its listener
// with the reactor. Mirrors C6's "grow the service vector... record index...
// register its listener."
func (m *Manager) add(svc *Service) {
	svc.index = len(m.services)
	m.services = append(m.services, svc)
	if svc.Managed() {
		fd := svc.listener.Fd()
		m.byFD[fd] = svc
		if m.reactor != nil {
			_ = m.reactor.add(fd)
		}
	}
}

// remove unregisters svc's listener, destroys it, and swaps the last element
// into its slot (C6's "swap with last element, updating its stored index").
func (m *Manager) remove(svc *Service) {
	if svc.Managed() && svc.listener != nil {
		fd := svc.listener.Fd()
		if m.reactor != nil {
			_ = m.reactor.remove(fd)
		}
		delete(m.byFD, fd)
	}
	svc.destroy()

	last := len(m.services) - 1
	idx := svc.index
	m.services[idx] = m.services[last]
	m.services[idx].index = idx
	m.services[last] = nil
	m.services = m.services[:last]
}

func (m *Manager) findByAddress(address string) (*Service, bool) {
	for _, s := range m.services {
		if s.Address == address {
			return s, true
		}
	}
	return nil, false
}

func (m *Manager) findByPID(pid int) (*Service, bool) {
	for _, s := range m.services {
		if s.pid == pid {
			return s, true
		}
	}
	return nil, false
}

// AddServices implements C7's AddServices: each entry is decoded and added in
// sequence (replacing any existing service at the same address), and the
// interface index is rebuilt once at the end. Per SPEC_FULL.md §12 / spec.md
// §9, this is deliberately non-transactional: a failure partway through
// leaves earlier entries in the manager.
func (m *Manager) AddServices(specs []ServiceSpec) error {
	for _, spec := range specs {
		decoded, err := decodeServiceSpec(spec)
		if err != nil {
			return err
		}

		if existing, ok := m.findByAddress(decoded.Address); ok {
			m.remove(existing)
		}

		built, err := newService(decoded)
		if err != nil {
			return err
		}
		m.add(built)
	}

	idx, err := buildInterfaceIndex(m.services)
	if err != nil {
		return err
	}
	m.index = idx
	return nil
}

// Resolve implements the Resolve RPC.
func (m *Manager) Resolve(interfaceName string) (string, error) {
	if interfaceName == "" {
		return "", fmt.Errorf("interface: %w", ErrInvalidParameter)
	}
	svc, ok := m.index.lookup(interfaceName)
	if !ok {
		return "", ErrInterfaceNotFound
	}
	return svc.Address, nil
}

// GetInfo implements the GetInfo RPC.
func (m *Manager) GetInfo() GetInfoResult {
	return GetInfoResult{
		Vendor:     m.cfg.vendor,
		Product:    m.cfg.product,
		Version:    m.cfg.version,
		URL:        m.cfg.url,
		Interfaces: m.index.names(),
	}
}

// GetConfig implements the GetConfig RPC. Its result is built so that,
// modulo ordering and defaulted fields, it equals the AddServices payload
// that produced the current service set (the round-trip property of
// spec.md §8).
func (m *Manager) GetConfig() GetConfigResult {
	services := make([]ServiceSpec, 0, len(m.services))
	for _, s := range m.services {
		spec := ServiceSpec{
			Address:           s.Address,
			Interfaces:        s.Interfaces,
			ActivateAtStartup: s.ActivateAtStartup,
		}
		if s.Executable != nil {
			spec.Executable = &ExecutableSpec{Path: s.Executable.Path}
			if s.Executable.UID > 0 {
				uid := s.Executable.UID
				spec.Executable.UserID = &uid
			}
			if s.Executable.GID > 0 {
				gid := s.Executable.GID
				spec.Executable.GroupID = &gid
			}
		}
		services = append(services, spec)
	}
	return GetConfigResult{
		Vendor:   m.cfg.vendor,
		Product:  m.cfg.product,
		Version:  m.cfg.version,
		URL:      m.cfg.url,
		Services: services,
	}
}

// activate implements C3/C6's Activate: unregister the listener, invoke the
// child activator, and drive the service's FSM to Running (or Failed, on
// spawn failure). It returns ErrUnmanagedService or ErrNotActivatable if svc
// does not meet Activate's precondition, without mutating any state.
func (m *Manager) activate(ctx context.Context, svc *Service) error {
	if !svc.Managed() {
		return fmt.Errorf("%s: %w", svc.Address, ErrUnmanagedService)
	}
	if svc.pid != 0 || svc.listener == nil {
		return fmt.Errorf("%s: %w", svc.Address, ErrNotActivatable)
	}

	fd := svc.listener.Fd()
	_ = m.reactor.remove(fd)
	delete(m.byFD, fd)

	svc.fire(ctx, triggerActivate)

	pid, err := spawn(svc)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to spawn service", "address", svc.Address, "error", err)
		svc.fire(ctx, triggerSpawnErr)
		svc.closeListener()
		m.anyFailed = true
		return err
	}

	svc.pid = pid
	svc.fire(ctx, triggerSpawned)
	m.logger.InfoContext(ctx, "activated service", "address", svc.Address, "pid", pid)
	return nil
}

// handleChildExit implements the SIGCHLD branch of §4.5: look up the owning
// service (ignoring unknown pids, i.e. reparented grandchildren), clear its
// pid, and either rearm immediately (clean exit) or mark it Failed pending
// the next backoff tick.
func (m *Manager) handleChildExit(ctx context.Context, pid int, cause exitCause) {
	svc, ok := m.findByPID(pid)
	if !ok {
		return
	}
	svc.pid = 0

	if cause.clean {
		svc.fire(ctx, triggerCleanExit)
		m.logger.InfoContext(ctx, "service exited cleanly", "address", svc.Address, "pid", pid)
		if err := svc.reset(); err != nil {
			m.logger.ErrorContext(ctx, "failed to rebind listener after clean exit", "address", svc.Address, "error", err)
			m.anyFailed = true
			return
		}
		m.byFD[svc.listener.Fd()] = svc
		_ = m.reactor.add(svc.listener.Fd())
		return
	}

	m.logger.WarnContext(ctx, "service crashed", "address", svc.Address, "pid", pid,
		"cause", cause.String(), "error", fmt.Errorf("%s: %w", svc.Address, ErrChildCrashed))
	svc.fire(ctx, triggerCrash)
	svc.closeListener()
	m.anyFailed = true
}

// tickBackoff implements the timeout branch of §4.4: clear every Failed
// service's flag, rebind its listener, and re-register it with the reactor.
func (m *Manager) tickBackoff(ctx context.Context) {
	stillFailed := false
	for _, svc := range m.services {
		if svc.State() != StateFailed {
			continue
		}
		if err := svc.reset(); err != nil {
			m.logger.ErrorContext(ctx, "backoff rebind failed, will retry", "address", svc.Address, "error", err)
			stillFailed = true
			continue
		}
		svc.fire(ctx, triggerRearm)
		m.byFD[svc.listener.Fd()] = svc
		_ = m.reactor.add(svc.listener.Fd())
		m.logger.InfoContext(ctx, "service rearmed after backoff", "address", svc.Address)
	}
	m.anyFailed = stillFailed
}

// loadAndActivateStartup loads the startup config file (if any), adds its
// services, and activates every one with ActivateAtStartup set.
func (m *Manager) loadAndActivateStartup(ctx context.Context) error {
	cfg, err := loadStartupConfig(m.cfg.configPath)
	if err != nil {
		return err
	}
	if cfg.Vendor != nil {
		m.cfg.vendor = *cfg.Vendor
	}
	if cfg.Product != nil {
		m.cfg.product = *cfg.Product
	}
	if cfg.Version != nil {
		m.cfg.version = *cfg.Version
	}
	if cfg.URL != nil {
		m.cfg.url = *cfg.URL
	}

	if err := m.AddServices(cfg.Services); err != nil {
		return err
	}

	for _, svc := range m.services {
		if svc.ActivateAtStartup && svc.State() == StateDormant {
			if err := m.activate(ctx, svc); err != nil {
				m.logger.ErrorContext(ctx, "startup activation failed", "address", svc.Address, "error", err)
			}
		}
	}
	return nil
}

// dispatchFD routes one reactor-ready fd to its handler: the control
// listener or a dormant service's listener. A miss (fd not found in either)
// means the fd went stale between the reactor noticing it and this goroutine
// acting on it (e.g. the service was removed); it is silently ignored.
func (m *Manager) dispatchFD(ctx context.Context, fd int) {
	if fd == m.controlFD {
		// The level-triggered reactor can report the control fd again before
		// an earlier report's accept has run; accept only while a connection
		// is actually pending so Accept never parks the event loop.
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if n, err := unix.Poll(pfd, 0); err != nil || n == 0 {
			return
		}
		conn, err := m.control.Accept()
		if err != nil {
			m.logger.DebugContext(ctx, "control accept failed", "error", err)
			return
		}
		m.serveControlConn(conn)
		return
	}
	if svc, ok := m.byFD[fd]; ok {
		if err := m.activate(ctx, svc); err != nil {
			m.logger.ErrorContext(ctx, "activation failed", "address", svc.Address, "error", err)
		}
	}
}

// eventLoop is the reactor (C4) tied to the signal handler (C5): it
// multiplexes ready fds (forwarded by reactor.run on its own goroutine),
// signals, and the backoff timer in one select, processing exactly one
// readiness event at a time.
func (m *Manager) eventLoop(ctx context.Context, cancel context.CancelFunc, sigCh chan os.Signal) error {
	events := make(chan int)
	go m.reactor.run(ctx, events)

	var backoffC <-chan time.Time

	for {
		if m.anyFailed && backoffC == nil {
			backoffC = time.After(backoffInterval)
		}
		select {
		case <-ctx.Done():
			return nil

		case fd := <-events:
			m.dispatchFD(ctx, fd)

		case sig := <-sigCh:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				m.logger.InfoContext(ctx, "shutdown signal received", "signal", sig.String())
				cancel()
				return nil
			case syscall.SIGCHLD:
				reapChildren(func(pid int, cause exitCause) {
					m.handleChildExit(ctx, pid, cause)
				})
				if m.anyFailed && backoffC == nil {
					backoffC = time.After(backoffInterval)
				}
			}

		case <-backoffC:
			m.tickBackoff(ctx)
			backoffC = nil
			if m.anyFailed {
				backoffC = time.After(backoffInterval)
			}
		}
	}
}

// teardown implements shutdown: every service is destroyed in vector order,
// SIGTERMing any live child (§5/§8 scenario 6), and the control socket's
// filesystem path (if any) is unlinked.
func (m *Manager) teardown() {
	for _, svc := range m.services {
		svc.destroy()
	}
	if m.control != nil {
		_ = m.control.Close()
	}
	if m.controlPathToUnlink != "" {
		_ = os.Remove(m.controlPathToUnlink)
	}
}

// Run binds the control listener (or adopts an inherited fd 3), loads and
// activates the startup configuration, and drives the reactor loop for the
// process lifetime. It returns when the context is canceled or SIGTERM/SIGINT
// is received; the return value is nil on clean shutdown.
//
// Following u-bmc's service/operator/operator.go Run method, the reactor loop
// is supervised by an oversight tree (panic recovery + restart) while a
// concurrent nursery thunk performs startup config loading and activation —
// the reactor thunk waits on a ready gate closed once that thunk completes,
// so the two are concurrent in shape but never race on Manager state.
func (m *Manager) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := setSubreaper(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubreaperFailed, err)
	}

	r, err := newReactor()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReactorInit, err)
	}
	m.reactor = r
	defer r.close()

	ctrl, inherited := inheritedControlListener()
	if inherited {
		m.logger.InfoContext(ctx, "adopted inherited control listener on fd 3")
	} else {
		var pathToUnlink string
		ctrl, pathToUnlink, err = newListener(m.cfg.controlAddress)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", m.cfg.controlAddress, ErrListenerFailed, err)
		}
		m.controlPathToUnlink = pathToUnlink
	}
	m.control = ctrl
	m.controlFD = ctrl.Fd()
	if err := r.add(m.controlFD); err != nil {
		return fmt.Errorf("%w: %w", ErrReactorInit, err)
	}

	sigCh := watchSignals()

	supervisionTree := oversight.New(
		oversight.NeverHalt(),
		oversight.DefaultRestartStrategy(),
		oversight.WithLogger(pkglog.NewOversightLogger(m.logger)),
	)

	ready := make(chan struct{})
	reactorChild := func(ctx context.Context) error {
		select {
		case <-ready:
		case <-ctx.Done():
			return nil
		}
		return m.eventLoop(ctx, cancel, sigCh)
	}

	if err := supervisionTree.Add(reactorChild, oversight.Transient(), oversight.Timeout(5*time.Second), "reactor"); err != nil {
		return fmt.Errorf("failed to add reactor to supervision tree: %w", err)
	}

	supervise := func(ctx context.Context, c chan error) {
		c <- supervisionTree.Start(ctx)
	}
	spawnProcs := func(ctx context.Context, c chan error) {
		if err := m.loadAndActivateStartup(ctx); err != nil {
			c <- err
			return
		}
		close(ready)
	}

	m.logger.InfoContext(ctx, "resolver starting", "control_address", m.cfg.controlAddress)
	err = nursery.RunConcurrentlyWithContext(ctx, supervise, spawnProcs)

	m.teardown()
	return err
}
