// Package gpio provides the GPIO hardware abstraction layer used by the
// switch controllers. Pin numbers use BCM numbering.
package gpio

import (
	"context"
	"time"
)

// PinDirection represents the direction of a GPIO pin
type PinDirection string

const (
	DirectionInput  PinDirection = "input"
	DirectionOutput PinDirection = "output"
)

// PullMode represents the pull resistor configuration
type PullMode string

const (
	PullNone PullMode = "none"
	PullUp   PullMode = "up"
	PullDown PullMode = "down"
)

// PinValue represents the logical state of a GPIO pin
type PinValue int

const (
	Low  PinValue = 0
	High PinValue = 1
)

// PinConfig represents the configuration for a GPIO pin
type PinConfig struct {
	Pin       int          `json:"pin"`
	Direction PinDirection `json:"direction"`
	PullMode  PullMode     `json:"pull_mode"`
}

// PinState represents the current state of a GPIO pin
type PinState struct {
	Pin       int          `json:"pin"`
	Direction PinDirection `json:"direction"`
	Value     PinValue     `json:"value"`
	PullMode  PullMode     `json:"pull_mode"`
	Timestamp time.Time    `json:"timestamp"`
}

// Interface defines the GPIO hardware interface
type Interface interface {
	// Initialize initializes the GPIO interface
	Initialize(ctx context.Context) error

	// Close closes the GPIO interface and cleans up resources
	Close() error

	// ConfigurePin configures a GPIO pin with the given configuration
	ConfigurePin(config PinConfig) error

	// ReadPin reads the current value of a GPIO pin
	ReadPin(pin int) (PinValue, error)

	// WritePin writes a value to a GPIO pin
	WritePin(pin int, value PinValue) error

	// GetPinState returns the current state of a GPIO pin
	GetPinState(pin int) (*PinState, error)
}

// Config represents the GPIO backend configuration
type Config struct {
	MockMode bool `yaml:"mock_mode"`
}

// DefaultConfig returns a default GPIO configuration
func DefaultConfig() *Config {
	return &Config{MockMode: false}
}

// New returns the backend selected by the configuration
func New(config *Config) Interface {
	if config != nil && config.MockMode {
		return NewMockGPIO(config)
	}
	return NewPeriphGPIO(config)
}
