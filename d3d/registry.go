// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3d

import (
	"sort"
	"sync"
)

// Options configures a standalone device opened through the registry.
type Options struct {
	// Label names the device in logs and debug layers.
	Label string

	// AdapterIndex selects an adapter; negative picks the backend default.
	AdapterIndex int

	// Debug enables the backend's validation layer when it has one.
	Debug bool
}

// DeviceFactory opens a new standalone device.
type DeviceFactory func(opts Options) (Device, error)

// RegistryEntry represents a registered device backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	//   - 100: native Direct3D 11
	//   - 50: HAL emulation on a hardware adapter
	Priority int

	// Factory opens devices.
	Factory DeviceFactory

	// Available reports if the backend can be used on this system.
	Available func() bool
}

var globalRegistry = &Registry{}

// Registry manages registered device backends.
//
// Backends register themselves from init:
//
//	func init() {
//	    d3d.Register("d3d11", 100, open, available)
//	}
//
// and callers pick one by name or take the best available:
//
//	dev, err := d3d.NewDevice(d3d.Options{AdapterIndex: -1})
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*RegistryEntry)}
}

// Register adds a backend to the global registry.
// A nil available function means the backend is always available.
func Register(name string, priority int, factory DeviceFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) { globalRegistry.Unregister(name) }

// Backends returns all registered backend names sorted by priority.
func Backends() []string { return globalRegistry.List() }

// AvailableBackends returns the names of usable backends sorted by priority.
func AvailableBackends() []string { return globalRegistry.Available() }

// NewDevice opens a device on the best available backend.
func NewDevice(opts Options) (Device, error) { return globalRegistry.NewDevice(opts) }

// NewDeviceByName opens a device on a specific backend.
func NewDeviceByName(name string, opts Options) (Device, error) {
	return globalRegistry.NewDeviceByName(name, opts)
}

// Register adds a backend to this registry. Registering an existing name
// replaces the previous entry.
func (r *Registry) Register(name string, priority int, factory DeviceFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(false)
}

// Available returns names of available backends sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(true)
}

// Get returns a copy of a backend's entry.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// NewDevice tries each available backend in priority order and returns the
// first device that opens.
func (r *Registry) NewDevice(opts Options) (Device, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoBackend
	}

	var lastErr error
	for _, name := range available {
		dev, err := r.NewDeviceByName(name, opts)
		if err == nil {
			return dev, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// NewDeviceByName opens a device on a specific backend.
func (r *Registry) NewDeviceByName(name string, opts Options) (Device, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}
	return entry.Factory(opts)
}

// sortedNames must be called with the lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	type entry struct {
		name     string
		priority int
	}

	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.Priority})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].name < entries[j].name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "d3d: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "d3d: backend unavailable: " + e.Name
}
