// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"errors"
	"testing"
)

func newExternalService(t *testing.T, address string, interfaces ...string) *Service {
	t.Helper()
	svc, err := newService(&Service{Address: address, Interfaces: interfaces})
	if err != nil {
		t.Fatalf("newService(%s): %v", address, err)
	}
	return svc
}

func TestBuildInterfaceIndexLookup(t *testing.T) {
	a := newExternalService(t, "unix:/run/a.sock", "com.example.A", "com.example.Shared")
	b := newExternalService(t, "unix:/run/b.sock", "com.example.B")

	idx, err := buildInterfaceIndex([]*Service{a, b})
	if err != nil {
		t.Fatalf("buildInterfaceIndex: %v", err)
	}

	if svc, ok := idx.lookup("com.example.A"); !ok || svc != a {
		t.Fatalf("lookup A: got (%v, %v), want (%v, true)", svc, ok, a)
	}
	if svc, ok := idx.lookup("com.example.B"); !ok || svc != b {
		t.Fatalf("lookup B: got (%v, %v), want (%v, true)", svc, ok, b)
	}
	if _, ok := idx.lookup("com.example.Missing"); ok {
		t.Fatal("lookup of unregistered interface unexpectedly succeeded")
	}

	names := idx.names()
	if len(names) != 3 {
		t.Fatalf("got %d names, want 3: %v", len(names), names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}

func TestBuildInterfaceIndexDuplicate(t *testing.T) {
	a := newExternalService(t, "unix:/run/a.sock", "com.example.Dup")
	b := newExternalService(t, "unix:/run/b.sock", "com.example.Dup")

	_, err := buildInterfaceIndex([]*Service{a, b})
	if !errors.Is(err, ErrNotUnique) {
		t.Fatalf("got %v, want ErrNotUnique", err)
	}
}

func TestInterfaceIndexEmpty(t *testing.T) {
	idx, err := buildInterfaceIndex(nil)
	if err != nil {
		t.Fatalf("buildInterfaceIndex(nil): %v", err)
	}
	if _, ok := idx.lookup("anything"); ok {
		t.Fatal("lookup on empty index unexpectedly succeeded")
	}
	if names := idx.names(); len(names) != 0 {
		t.Fatalf("got %d names, want 0", len(names))
	}
}
