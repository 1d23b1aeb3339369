// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	json "github.com/goccy/go-json"
)

// maxConfigSize preserves the original's 65535-byte fixed buffer (minus the
// byte it overwrote with a null terminator), per SPEC_FULL.md §12 and §9's
// open question: a documented cap rather than streaming decode.
const maxConfigSize = 65534

// ExecutableSpec is the wire/JSON shape of Service.Executable.
type ExecutableSpec struct {
	Path    string `json:"path"`
	UserID  *int   `json:"user_id,omitempty"`
	GroupID *int   `json:"group_id,omitempty"`
}

// ServiceSpec is the wire/JSON shape accepted by AddServices and by the
// "services" array of the startup config file (spec.md §6/§4.7).
type ServiceSpec struct {
	Address           string          `json:"address"`
	Interfaces        []string        `json:"interfaces"`
	Executable        *ExecutableSpec `json:"executable,omitempty"`
	ActivateAtStartup bool            `json:"activate_at_startup,omitempty"`
}

// StartupConfig is the top-level shape of the JSON configuration file named
// on the command line (spec.md §6). A missing file is equivalent to an empty
// StartupConfig.
type StartupConfig struct {
	Vendor   *string       `json:"vendor,omitempty"`
	Product  *string       `json:"product,omitempty"`
	Version  *string       `json:"version,omitempty"`
	URL      *string       `json:"url,omitempty"`
	Services []ServiceSpec `json:"services,omitempty"`
}

// loadStartupConfig reads and decodes path. A missing file is treated as
// `{}` (spec.md §6); a file over maxConfigSize bytes, or one that fails to
// parse, is an error.
func loadStartupConfig(path string) (*StartupConfig, error) {
	if path == "" {
		return &StartupConfig{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &StartupConfig{}, nil
		}
		return nil, err
	}
	defer f.Close()

	limited := io.LimitReader(f, maxConfigSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("%s: %w", path, ErrConfigTooLarge)
	}

	var cfg StartupConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrConfigMalformed, err)
	}
	return &cfg, nil
}

// decodeServiceSpec is the single decoder shared by AddServices and startup
// config loading, so activate_at_startup is always read from the service
// level — per SPEC_FULL.md §12, the original's AddServices path reads it from
// the executable sub-object instead, which this repository treats as the bug
// spec.md §9 names and fixes by construction (one decoder, no second path to
// diverge on).
func decodeServiceSpec(spec ServiceSpec) (*Service, error) {
	if spec.Address == "" {
		return nil, fmt.Errorf("%w: %w", ErrMissingAddress, ErrInvalidParameter)
	}
	if len(spec.Interfaces) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrMissingInterfaces, ErrInvalidParameter)
	}
	for _, name := range spec.Interfaces {
		if name == "" {
			return nil, fmt.Errorf("%w: %w", ErrEmptyInterfaceName, ErrInvalidParameter)
		}
	}

	var exe *Executable
	if spec.Executable != nil {
		if spec.Executable.Path == "" {
			return nil, fmt.Errorf("executable path: %w", ErrInvalidParameter)
		}
		exe = &Executable{Path: spec.Executable.Path}
		if spec.Executable.UserID != nil {
			exe.UID = *spec.Executable.UserID
		}
		if spec.Executable.GroupID != nil {
			exe.GID = *spec.Executable.GroupID
		}
	}

	return &Service{
		Address:           spec.Address,
		Interfaces:        spec.Interfaces,
		Executable:        exe,
		ActivateAtStartup: spec.ActivateAtStartup,
	}, nil
}

// Option configures a Manager at construction, following the functional
// options pattern u-bmc's service/operator/config.go uses throughout.
type Option interface {
	apply(*managerConfig)
}

type managerConfig struct {
	controlAddress string
	configPath     string
	vendor         string
	product        string
	version        string
	url            string
	logger         *slog.Logger
}

type controlAddressOption struct{ address string }

func (o controlAddressOption) apply(c *managerConfig) { c.controlAddress = o.address }

// WithControlAddress sets the listenable address for the resolver's own
// admin IPC endpoint (the positional `address` argument of spec.md §6).
func WithControlAddress(address string) Option {
	return controlAddressOption{address: address}
}

type configPathOption struct{ path string }

func (o configPathOption) apply(c *managerConfig) { c.configPath = o.path }

// WithConfigPath sets the optional startup configuration file path.
func WithConfigPath(path string) Option {
	return configPathOption{path: path}
}

type metadataOption struct{ vendor, product, version, url string }

func (o metadataOption) apply(c *managerConfig) {
	if o.vendor != "" {
		c.vendor = o.vendor
	}
	if o.product != "" {
		c.product = o.product
	}
	if o.version != "" {
		c.version = o.version
	}
	if o.url != "" {
		c.url = o.url
	}
}

// WithMetadata sets the vendor/product/version/url reported by GetInfo
// and GetConfig. Values left empty are not overridden, so this can be called
// once per field or all at once. A field that the startup config file also
// sets takes the file's value once Run has loaded it.
func WithMetadata(vendor, product, version, url string) Option {
	return metadataOption{vendor: vendor, product: product, version: version, url: url}
}

type loggerOption struct{ logger *slog.Logger }

func (o loggerOption) apply(c *managerConfig) { c.logger = o.logger }

// WithLogger sets the structured logger the Manager uses for crash and
// backoff notices (§7's "user-visible: stderr lines for crash events").
func WithLogger(logger *slog.Logger) Option {
	return loggerOption{logger: logger}
}
