// Package model defines the domain types for kittynode.
//
// Key design decision: a package manifest is a plain value. The registry
// constructs it, an orchestrator consumes it within a single install or
// delete call, and then it is discarded.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// PackageStatus represents how much of a package is present on the
// container runtime. The state is derived at query time from the runtime's
// container list, never stored:
//
//	NotInstalled → (install) → Installed → (delete) → NotInstalled
//	Installed/NotInstalled → Partial (a multi-step operation halted midway)
type PackageStatus string

const (
	// StatusInstalled indicates every container of the package exists.
	StatusInstalled PackageStatus = "installed"

	// StatusPartial indicates some, but not all, containers exist. This is
	// the visible trace of a halted install or delete.
	StatusPartial PackageStatus = "partial"

	// StatusNotInstalled indicates none of the package's containers exist.
	StatusNotInstalled PackageStatus = "not-installed"
)

// String returns the string representation of PackageStatus.
func (s PackageStatus) String() string {
	return string(s)
}

// IsValid checks whether the PackageStatus value is one of the
// predefined valid states.
func (s PackageStatus) IsValid() bool {
	switch s {
	case StatusInstalled, StatusPartial, StatusNotInstalled:
		return true
	default:
		return false
	}
}

// ParsePackageStatus converts a string to a PackageStatus.
// Returns an error if the string does not match any valid status.
func ParsePackageStatus(s string) (PackageStatus, error) {
	status := PackageStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid package status: %q (valid: installed, partial, not-installed)", s)
	}
	return status, nil
}

// Package is a named, versionless manifest bundling one or more containers
// plus a dedicated network.
type Package struct {
	// Name is the unique lookup key in the manifest registry.
	Name string `json:"name"`

	// Description is a one-paragraph human-readable summary.
	Description string `json:"description"`

	// NetworkName is the bridge network the containers share. It is
	// recreated fresh on every install and need not be unique across
	// packages.
	NetworkName string `json:"network_name"`

	// Containers are provisioned and torn down in this order. Order is
	// significant: a later container may address an earlier one by name.
	Containers []Container `json:"containers"`

	// DefaultConfig holds the configuration values the package is built
	// with when the user has not stored any overrides.
	DefaultConfig PackageConfig `json:"default_config"`
}

// ContainerNames returns the runtime names of the package's containers in
// manifest order.
func (p *Package) ContainerNames() []string {
	names := make([]string, 0, len(p.Containers))
	for _, c := range p.Containers {
		names = append(names, c.Name)
	}
	return names
}

// Validate checks the structural invariants of a manifest: a name, a
// network, at least one container, and container names unique within
// the package.
func (p *Package) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("package name must not be empty")
	}
	if p.NetworkName == "" {
		return fmt.Errorf("package %q: network name must not be empty", p.Name)
	}
	if len(p.Containers) == 0 {
		return fmt.Errorf("package %q: at least one container is required", p.Name)
	}

	seen := make(map[string]bool, len(p.Containers))
	for _, c := range p.Containers {
		if c.Name == "" {
			return fmt.Errorf("package %q: container name must not be empty", p.Name)
		}
		if c.Image == "" {
			return fmt.Errorf("package %q: container %q has no image", p.Name, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("package %q: duplicate container name %q", p.Name, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Container is a single runtime-unit descriptor.
type Container struct {
	// Name is the runtime identity used for lookup, removal, and
	// inter-container addressing over the shared network.
	Name string `json:"name"`

	// Image is the image reference to pull and run.
	Image string `json:"image"`

	// Cmd is the command line passed to the container.
	Cmd []string `json:"cmd"`

	// PortBindings maps "port/protocol" (e.g. "30303/udp") to the host
	// addresses it is published on.
	PortBindings map[string][]PortBinding `json:"port_bindings"`

	// VolumeBindings mount runtime-managed volumes. Source is a volume
	// name without a leading path separator.
	VolumeBindings []Binding `json:"volume_bindings"`

	// FileBindings mount absolute host paths (files or directories).
	FileBindings []Binding `json:"file_bindings"`
}

// Binds returns the mount strings for the container: all volume bindings
// followed by all file bindings, each serialized with Binding.String.
func (c *Container) Binds() []string {
	binds := make([]string, 0, len(c.VolumeBindings)+len(c.FileBindings))
	for _, b := range c.VolumeBindings {
		binds = append(binds, b.String())
	}
	for _, b := range c.FileBindings {
		binds = append(binds, b.String())
	}
	return binds
}

// PortKeys returns the "port/protocol" keys of PortBindings in sorted order,
// so callers iterating the map produce deterministic output.
func (c *Container) PortKeys() []string {
	keys := make([]string, 0, len(c.PortBindings))
	for k := range c.PortBindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PortBinding is one host address a container port is published on.
type PortBinding struct {
	HostIP   string `json:"host_ip"`
	HostPort string `json:"host_port"`
}

// Binding maps a volume or host path to a mount point inside a container.
type Binding struct {
	// Source is a volume name (volume bindings) or an absolute host path
	// (file bindings).
	Source string `json:"source"`

	// Destination is the mount point inside the container.
	Destination string `json:"destination"`

	// Options is an optional mount modifier such as "ro". Empty means
	// absent.
	Options string `json:"options,omitempty"`
}

// String serializes the binding using the runtime's mount syntax:
//
//	Binding{"a", "b", ""}   → "a:b"
//	Binding{"a", "b", "ro"} → "a:b:ro"
func (b Binding) String() string {
	if b.Options == "" {
		return b.Source + ":" + b.Destination
	}
	return b.Source + ":" + b.Destination + ":" + b.Options
}

// PackageConfig holds user-supplied configuration values for a package.
// Keys are package-specific (e.g. "network" for the Ethereum package).
type PackageConfig struct {
	Values map[string]string `json:"values"`
}

// Get returns the value for key, or def when the key is not set.
func (c PackageConfig) Get(key, def string) string {
	if v, ok := c.Values[key]; ok && v != "" {
		return v
	}
	return def
}

// Merge returns a new config holding c's values overlaid with override's.
// Neither input is modified.
func (c PackageConfig) Merge(override PackageConfig) PackageConfig {
	merged := PackageConfig{Values: make(map[string]string, len(c.Values)+len(override.Values))}
	for k, v := range c.Values {
		merged.Values[k] = v
	}
	for k, v := range override.Values {
		merged.Values[k] = v
	}
	return merged
}

// ContainerInfo holds runtime information about a container.
// This data is fetched dynamically from the runtime, not persisted.
type ContainerInfo struct {
	// ID is the runtime container identifier.
	ID string `json:"id"`

	// Name is the container name without the runtime's leading "/".
	Name string `json:"name"`

	// Image is the image reference the container was created from.
	Image string `json:"image"`

	// State is the runtime state (e.g. "running", "exited", "created").
	State string `json:"state"`

	// Labels is the full set of runtime labels on the container.
	Labels map[string]string `json:"labels,omitempty"`
}

// IsRunning reports whether the runtime considers the container running.
func (c ContainerInfo) IsRunning() bool {
	return c.State == "running"
}
