package gpio

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Subsystem is a reference-counted handle around a shared GPIO backend.
// Every device acquires the subsystem at construction and releases it at
// shutdown; the backend is initialized on the first acquire and closed
// when the last holder releases it.
type Subsystem struct {
	mu     sync.Mutex
	iface  Interface
	logger *logrus.Entry
	refs   int
}

// NewSubsystem wraps the given backend in a shared handle
func NewSubsystem(iface Interface) *Subsystem {
	return &Subsystem{
		iface:  iface,
		logger: logrus.WithField("component", "gpio-subsystem"),
	}
}

// Acquire increments the reference count and returns the backend,
// initializing it on first use.
func (s *Subsystem) Acquire(ctx context.Context) (Interface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs == 0 {
		if err := s.iface.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize GPIO backend: %w", err)
		}
	}

	s.refs++
	s.logger.WithField("refs", s.refs).Debug("GPIO subsystem acquired")
	return s.iface, nil
}

// Release decrements the reference count. The last release closes the
// backend and returns any close error.
func (s *Subsystem) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs == 0 {
		return fmt.Errorf("release without matching acquire")
	}

	s.refs--
	s.logger.WithField("refs", s.refs).Debug("GPIO subsystem released")

	if s.refs == 0 {
		s.logger.Info("Last holder released, closing GPIO backend")
		return s.iface.Close()
	}
	return nil
}
