package gpio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGPIO provides an in-memory implementation of the GPIO interface for
// testing and for running without hardware (mock_mode).
type MockGPIO struct {
	mu     sync.RWMutex
	pins   map[int]*mockPin
	closed bool
}

type mockPin struct {
	config    PinConfig
	value     PinValue
	timestamp time.Time
}

// NewMockGPIO creates a new mock GPIO interface
func NewMockGPIO(config *Config) *MockGPIO {
	return &MockGPIO{
		pins: make(map[int]*mockPin),
	}
}

// Initialize initializes the mock GPIO interface
func (m *MockGPIO) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pins = make(map[int]*mockPin)
	m.closed = false
	return nil
}

// Close closes the mock GPIO interface
func (m *MockGPIO) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pins = make(map[int]*mockPin)
	m.closed = true
	return nil
}

// Closed reports whether Close has been called. Used by tests to verify
// last-owner hardware release.
func (m *MockGPIO) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// ConfigurePin configures a GPIO pin
func (m *MockGPIO) ConfigurePin(config PinConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if config.Pin < 0 || config.Pin > 40 {
		return fmt.Errorf("invalid pin number: %d", config.Pin)
	}

	value := Low
	// An input with a pull-up idles high
	if config.Direction == DirectionInput && config.PullMode == PullUp {
		value = High
	}

	m.pins[config.Pin] = &mockPin{
		config:    config,
		value:     value,
		timestamp: time.Now(),
	}

	return nil
}

// ReadPin reads the current value of a GPIO pin. Takes the write lock:
// the read timestamp below mutates pin state.
func (m *MockGPIO) ReadPin(pin int) (PinValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockPin, exists := m.pins[pin]
	if !exists {
		return Low, fmt.Errorf("pin %d not configured", pin)
	}

	mockPin.timestamp = time.Now()
	return mockPin.value, nil
}

// WritePin writes a value to a GPIO pin
func (m *MockGPIO) WritePin(pin int, value PinValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockPin, exists := m.pins[pin]
	if !exists {
		return fmt.Errorf("pin %d not configured", pin)
	}

	if mockPin.config.Direction != DirectionOutput {
		return fmt.Errorf("pin %d is not configured as output", pin)
	}

	mockPin.value = value
	mockPin.timestamp = time.Now()
	return nil
}

// SetInput forces the value of a configured input pin. Tests use this to
// simulate a button press on the wired switch.
func (m *MockGPIO) SetInput(pin int, value PinValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mockPin, exists := m.pins[pin]
	if !exists {
		return fmt.Errorf("pin %d not configured", pin)
	}

	if mockPin.config.Direction != DirectionInput {
		return fmt.Errorf("pin %d is not configured as input", pin)
	}

	mockPin.value = value
	mockPin.timestamp = time.Now()
	return nil
}

// GetPinState returns the current state of a GPIO pin
func (m *MockGPIO) GetPinState(pin int) (*PinState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mockPin, exists := m.pins[pin]
	if !exists {
		return nil, fmt.Errorf("pin %d not configured", pin)
	}

	return &PinState{
		Pin:       pin,
		Direction: mockPin.config.Direction,
		Value:     mockPin.value,
		PullMode:  mockPin.config.PullMode,
		Timestamp: mockPin.timestamp,
	}, nil
}
