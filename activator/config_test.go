// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeServiceSpecExternal(t *testing.T) {
	spec := ServiceSpec{
		Address:    "unix:/run/resolver/example.sock",
		Interfaces: []string{"com.example.Foo"},
	}
	svc, err := decodeServiceSpec(spec)
	if err != nil {
		t.Fatalf("decodeServiceSpec: %v", err)
	}
	if svc.Managed() {
		t.Fatal("service with no executable must be unmanaged")
	}
}

func TestDecodeServiceSpecManagedWithCredentials(t *testing.T) {
	uid, gid := 1000, 1000
	spec := ServiceSpec{
		Address:           "unix:/run/resolver/example.sock",
		Interfaces:        []string{"com.example.Foo"},
		ActivateAtStartup: true,
		Executable: &ExecutableSpec{
			Path:    "/usr/bin/example",
			UserID:  &uid,
			GroupID: &gid,
		},
	}
	svc, err := decodeServiceSpec(spec)
	if err != nil {
		t.Fatalf("decodeServiceSpec: %v", err)
	}
	if !svc.Managed() {
		t.Fatal("service with an executable must be managed")
	}
	if svc.Executable.UID != uid || svc.Executable.GID != gid {
		t.Fatalf("got uid/gid %d/%d, want %d/%d", svc.Executable.UID, svc.Executable.GID, uid, gid)
	}
	if !svc.ActivateAtStartup {
		t.Fatal("activate_at_startup must be read from the service level")
	}
}

func TestDecodeServiceSpecValidation(t *testing.T) {
	cases := []struct {
		name string
		spec ServiceSpec
	}{
		{"missing address", ServiceSpec{Interfaces: []string{"com.example.Foo"}}},
		{"missing interfaces", ServiceSpec{Address: "unix:/run/a.sock"}},
		{"empty interface name", ServiceSpec{Address: "unix:/run/a.sock", Interfaces: []string{""}}},
		{"missing executable path", ServiceSpec{
			Address:    "unix:/run/a.sock",
			Interfaces: []string{"com.example.Foo"},
			Executable: &ExecutableSpec{},
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := decodeServiceSpec(c.spec); !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("got %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestLoadStartupConfigMissingFileIsEmpty(t *testing.T) {
	cfg, err := loadStartupConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("loadStartupConfig: %v", err)
	}
	if len(cfg.Services) != 0 {
		t.Fatalf("got %d services, want 0", len(cfg.Services))
	}
}

func TestLoadStartupConfigNoPathIsEmpty(t *testing.T) {
	cfg, err := loadStartupConfig("")
	if err != nil {
		t.Fatalf("loadStartupConfig: %v", err)
	}
	if len(cfg.Services) != 0 {
		t.Fatalf("got %d services, want 0", len(cfg.Services))
	}
}

func TestLoadStartupConfigParsesServices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"vendor": "Example Corp",
		"services": [
			{"address": "unix:/run/a.sock", "interfaces": ["com.example.A"], "activate_at_startup": true}
		]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadStartupConfig(path)
	if err != nil {
		t.Fatalf("loadStartupConfig: %v", err)
	}
	if cfg.Vendor == nil || *cfg.Vendor != "Example Corp" {
		t.Fatalf("got vendor %v, want Example Corp", cfg.Vendor)
	}
	if len(cfg.Services) != 1 || cfg.Services[0].Address != "unix:/run/a.sock" {
		t.Fatalf("got services %+v", cfg.Services)
	}
}

func TestLoadStartupConfigTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	oversized := make([]byte, maxConfigSize+1)
	for i := range oversized {
		oversized[i] = ' '
	}
	if err := os.WriteFile(path, oversized, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := loadStartupConfig(path)
	if !errors.Is(err, ErrConfigTooLarge) {
		t.Fatalf("got %v, want ErrConfigTooLarge", err)
	}
}

func TestLoadStartupConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := loadStartupConfig(path)
	if !errors.Is(err, ErrConfigMalformed) {
		t.Fatalf("got %v, want ErrConfigMalformed", err)
	}
}
