// Package pairing implements the process-wide device directory that lets
// two independently configured device instances find and control each
// other by name.
package pairing

import (
	"sync"

	"github.com/dsyorkd/pi-switchd/internal/errors"
	"github.com/dsyorkd/pi-switchd/internal/logger"
)

// State values returned by PairState
const (
	StateOn      = "on"
	StateOff     = "off"
	StateUnknown = "unknown"
)

// Device is the contract every pairable device implements
type Device interface {
	// Name returns the process-wide unique device name
	Name() string

	// On turns the device on, returning true on success
	On() bool

	// Off turns the device off, returning true on success
	Off() bool

	// State returns "on" or "off" from the device's stored state
	State() string
}

// entry tracks one registered device together with its declared partner
// name and the resolved link, once found.
type entry struct {
	device     Device
	pairedName string
	link       *entry
}

// Registry maps device names to device handles and resolves pairing
// links lazily. An instance is owned by the embedding application and
// passed to each device at construction.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  logger.Interface
}

// NewRegistry creates an empty registry
func NewRegistry(log logger.Interface) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  log.WithField("component", "pairing"),
	}
}

// Register adds a device under its name. pairedName is the partner
// declared in configuration, empty when this side declares none.
// Registering a name twice fails without disturbing the first entry.
func (r *Registry) Register(device Device, pairedName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := device.Name()
	if _, exists := r.entries[name]; exists {
		return errors.Wrapf(errors.ErrDuplicateName, "register %q", name)
	}

	r.entries[name] = &entry{device: device, pairedName: pairedName}
	r.logger.WithField("device", name).Debug("Device registered")
	return nil
}

// Resolve returns the partner of the named device, or false while no
// partner can be found. An absent partner is not an error; construction
// order is not guaranteed, so the lookup is retried on every call until
// it succeeds, after which the link is cached on both sides.
func (r *Registry) Resolve(name string) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, false
	}

	if partner := r.resolveLocked(e); partner != nil {
		return partner.device, true
	}
	return nil, false
}

func (r *Registry) resolveLocked(e *entry) *entry {
	if e.link != nil {
		return e.link
	}

	if e.pairedName != "" {
		partner, exists := r.entries[e.pairedName]
		if !exists {
			return nil
		}
		e.link = partner
		partner.link = e
		return partner
	}

	// This side declares nothing; scan for a device that declared us
	for _, partner := range r.entries {
		if partner.pairedName == e.device.Name() {
			e.pairedName = partner.device.Name()
			e.link = partner
			partner.link = e
			return partner
		}
	}

	return nil
}

// PairState returns the partner's state, or "unknown" while the pairing
// is unresolved.
func (r *Registry) PairState(name string) string {
	partner, ok := r.Resolve(name)
	if !ok {
		return StateUnknown
	}
	return partner.State()
}

// SetPairState turns the partner on or off. A no-op while the pairing
// is unresolved.
func (r *Registry) SetPairState(name string, on bool) {
	partner, ok := r.Resolve(name)
	if !ok {
		return
	}
	if on {
		partner.On()
	} else {
		partner.Off()
	}
}
