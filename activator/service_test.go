// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"context"
	"testing"
)

func TestNewServiceExternalNeverListens(t *testing.T) {
	svc, err := newService(&Service{
		Address:    "unix:/run/resolver/external.sock",
		Interfaces: []string{"com.example.External"},
	})
	if err != nil {
		t.Fatalf("newService: %v", err)
	}
	if svc.Managed() {
		t.Fatal("service with no executable must report Managed() == false")
	}
	if svc.listener != nil {
		t.Fatal("an external service must never bind a listener")
	}
	if svc.State() != StateExternal {
		t.Fatalf("got state %q, want %q", svc.State(), StateExternal)
	}
}

func TestServiceFSMHappyPath(t *testing.T) {
	svc, err := newService(&Service{
		Address:    "unix:" + t.TempDir() + "/managed.sock",
		Interfaces: []string{"com.example.Managed"},
		Executable: &Executable{Path: "/usr/bin/true"},
	})
	if err != nil {
		t.Fatalf("newService: %v", err)
	}
	defer svc.destroy()

	if svc.State() != StateDormant {
		t.Fatalf("got state %q, want %q", svc.State(), StateDormant)
	}

	ctx := context.Background()
	svc.fire(ctx, triggerActivate)
	if svc.State() != StateActivating {
		t.Fatalf("got state %q, want %q", svc.State(), StateActivating)
	}

	svc.fire(ctx, triggerSpawned)
	if svc.State() != StateRunning {
		t.Fatalf("got state %q, want %q", svc.State(), StateRunning)
	}

	svc.fire(ctx, triggerCleanExit)
	if svc.State() != StateDormant {
		t.Fatalf("got state %q, want %q", svc.State(), StateDormant)
	}
}

func TestServiceFSMCrashAndRearm(t *testing.T) {
	svc, err := newService(&Service{
		Address:    "unix:" + t.TempDir() + "/crashy.sock",
		Interfaces: []string{"com.example.Crashy"},
		Executable: &Executable{Path: "/usr/bin/true"},
	})
	if err != nil {
		t.Fatalf("newService: %v", err)
	}
	defer svc.destroy()

	ctx := context.Background()
	svc.fire(ctx, triggerActivate)
	svc.fire(ctx, triggerSpawned)
	svc.fire(ctx, triggerCrash)
	if svc.State() != StateFailed {
		t.Fatalf("got state %q, want %q", svc.State(), StateFailed)
	}

	if err := svc.reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	svc.fire(ctx, triggerRearm)
	if svc.State() != StateDormant {
		t.Fatalf("got state %q, want %q", svc.State(), StateDormant)
	}
}

func TestServiceFSMIllegalTransitionPanics(t *testing.T) {
	svc, err := newService(&Service{
		Address:    "unix:" + t.TempDir() + "/illegal.sock",
		Interfaces: []string{"com.example.Illegal"},
		Executable: &Executable{Path: "/usr/bin/true"},
	})
	if err != nil {
		t.Fatalf("newService: %v", err)
	}
	defer svc.destroy()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic firing a trigger illegal from the current state")
		}
	}()
	svc.fire(context.Background(), triggerSpawned) // Dormant has no "spawned" transition
}
