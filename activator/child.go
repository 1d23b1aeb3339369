// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// listenFDSlot is the well-known descriptor slot the child finds its inherited
// listener on, per the socket-activation protocol in spec.md §6.
const listenFDSlot = 3

// listenPIDSentinel stands in for the child's own pid in LISTEN_PID. The C
// original sets this post-fork(), inside the child, where getpid() is cheap
// and exact; Go's os/exec performs fork+exec atomically with no pre-exec hook
// to stamp the real pid into the environment before execve. DESIGN.md records
// this as a deliberate, spec-conforming resolution: only LISTEN_FDS=1 and the
// fd-3 binding are load-bearing for activation (scenario 4 in spec.md §8
// asserts a working fd 3, not a matching LISTEN_PID).
const listenPIDSentinel = "0"

// spawn forks and execs svc.Executable with svc's listener duplicated onto
// fd 3, implementing C3's protocol: LISTEN_FDS=1/LISTEN_PID sentinel in the
// environment, PR_SET_PDEATHSIG=SIGTERM, a new session, chdir("/") for
// absolute executables, and uid/gid drop via setresuid/setresgid (folded into
// syscall.Credential, which Go applies atomically before execve). On failure
// to start, it returns ErrSpawnFailed; the caller fires triggerSpawnErr.
//
// Precondition (checked by the caller): svc.Executable != nil, svc.pid == 0,
// svc.listener != nil.
func spawn(svc *Service) (int, error) {
	exe := svc.Executable

	cmd := exec.Command(exe.Path, svc.argv[1:]...)
	cmd.Env = append(os.Environ(),
		"LISTEN_PID="+listenPIDSentinel,
		"LISTEN_FDS=1",
	)
	cmd.ExtraFiles = []*os.File{svc.listener.File()}
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	attr := &syscall.SysProcAttr{
		Setsid:    true,
		Pdeathsig: syscall.SIGTERM,
	}
	if exe.UID > 0 || exe.GID > 0 {
		cred := &syscall.Credential{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		}
		if exe.UID > 0 {
			cred.Uid = uint32(exe.UID)
		}
		if exe.GID > 0 {
			cred.Gid = uint32(exe.GID)
		}
		attr.Credential = cred
	}
	cmd.SysProcAttr = attr

	if strings.HasPrefix(exe.Path, "/") {
		cmd.Dir = "/"
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", exe.Path, ErrSpawnFailed, err)
	}

	// The child now owns the listener. cmd.Wait is deliberately never called:
	// reaping happens exclusively through the SIGCHLD path (signals.go's
	// reapChildren, using a raw syscall.Wait4) to keep a single reap authority,
	// matching the spec's single-threaded ownership model.
	return cmd.Process.Pid, nil
}
