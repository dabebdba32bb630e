package device

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the controllers of every display known to the process.
// It replaces a process-wide device list: the dispatcher, the API and
// the startup batch all receive the same Registry explicitly.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Controller
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Controller),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds c. Returns ErrDeviceExists if its ID is taken.
func (r *Registry) Register(c *Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[c.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDeviceExists, c.ID())
	}
	r.devices[c.ID()] = c

	r.logger.Info("device registered", "device_id", c.ID(), "count", len(r.devices))
	return nil
}

// Unregister removes and stops the controller for id.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	c, ok := r.devices[id]
	if ok {
		delete(r.devices, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	c.Stop()

	r.logger.Info("device unregistered", "device_id", id)
	return nil
}

// Get returns the controller for id.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return c, nil
}

// List returns all controllers ordered by device ID.
func (r *Registry) List() []*Controller {
	r.mu.RLock()
	out := make([]*Controller, 0, len(r.devices))
	for _, c := range r.devices {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Snapshots returns a snapshot of every controller ordered by device ID.
func (r *Registry) Snapshots() []Snapshot {
	list := r.List()
	out := make([]Snapshot, 0, len(list))
	for _, c := range list {
		out = append(out, c.Snapshot())
	}
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// ActiveCount returns the number of active devices.
func (r *Registry) ActiveCount() int {
	n := 0
	for _, c := range r.List() {
		if c.Active() {
			n++
		}
	}
	return n
}

// Close stops every controller. Registered controllers remain listed.
func (r *Registry) Close() {
	for _, c := range r.List() {
		c.Stop()
	}
}
