package gpio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphGPIO implements the GPIO interface using periph.io
type PeriphGPIO struct {
	config      *Config
	logger      *logrus.Entry
	initialized bool
	pins        map[int]*pinState
	mutex       sync.RWMutex
}

// pinState tracks the state of a configured GPIO pin
type pinState struct {
	pin       gpio.PinIO
	config    PinConfig
	lastRead  time.Time
	lastValue PinValue
}

// NewPeriphGPIO creates a new periph.io-based GPIO implementation
func NewPeriphGPIO(config *Config) *PeriphGPIO {
	if config == nil {
		config = DefaultConfig()
	}

	return &PeriphGPIO{
		config: config,
		logger: logrus.WithField("component", "periph-gpio"),
		pins:   make(map[int]*pinState),
	}
}

// Initialize initializes the periph.io GPIO system
func (p *PeriphGPIO) Initialize(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.initialized {
		return nil
	}

	p.logger.Info("Initializing periph.io GPIO system")

	if _, err := host.Init(); err != nil {
		p.logger.WithError(err).Error("Failed to initialize periph.io host")
		return fmt.Errorf("failed to initialize periph.io host: %w", err)
	}

	p.initialized = true
	return nil
}

// Close shuts down the GPIO system and releases resources
func (p *PeriphGPIO) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.initialized {
		return nil
	}

	p.logger.Info("Shutting down periph.io GPIO system")

	// Reset all configured output pins to a safe level
	for pinNum, state := range p.pins {
		if state.config.Direction == DirectionOutput {
			if err := state.pin.Out(gpio.Low); err != nil {
				p.logger.WithError(err).WithField("pin", pinNum).Warn("Failed to reset pin to low")
			}
		}
	}

	p.pins = make(map[int]*pinState)
	p.initialized = false
	return nil
}

// ConfigurePin configures a GPIO pin with the specified settings
func (p *PeriphGPIO) ConfigurePin(config PinConfig) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.initialized {
		return fmt.Errorf("GPIO system not initialized")
	}

	p.logger.WithFields(logrus.Fields{
		"pin":       config.Pin,
		"direction": config.Direction,
		"pull_mode": config.PullMode,
	}).Debug("Configuring GPIO pin")

	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", config.Pin))
	if pin == nil {
		return fmt.Errorf("pin GPIO%d not found", config.Pin)
	}

	pull := gpio.PullNoChange
	switch config.PullMode {
	case PullNone:
		pull = gpio.Float
	case PullUp:
		pull = gpio.PullUp
	case PullDown:
		pull = gpio.PullDown
	}

	var err error
	switch config.Direction {
	case DirectionInput:
		err = pin.In(pull, gpio.NoEdge)
	case DirectionOutput:
		err = pin.Out(gpio.Low)
	default:
		return fmt.Errorf("invalid pin direction: %s", config.Direction)
	}

	if err != nil {
		return fmt.Errorf("failed to configure pin %d: %w", config.Pin, err)
	}

	p.pins[config.Pin] = &pinState{
		pin:    pin,
		config: config,
	}

	return nil
}

// ReadPin reads the current value of a GPIO pin. Takes the write lock:
// the read bookkeeping below mutates pin state.
func (p *PeriphGPIO) ReadPin(pin int) (PinValue, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.initialized {
		return Low, fmt.Errorf("GPIO system not initialized")
	}

	state, exists := p.pins[pin]
	if !exists {
		return Low, fmt.Errorf("pin %d not configured", pin)
	}

	value := Low
	if state.pin.Read() == gpio.High {
		value = High
	}

	state.lastRead = time.Now()
	state.lastValue = value

	return value, nil
}

// WritePin writes a value to a GPIO pin
func (p *PeriphGPIO) WritePin(pin int, value PinValue) error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if !p.initialized {
		return fmt.Errorf("GPIO system not initialized")
	}

	state, exists := p.pins[pin]
	if !exists {
		return fmt.Errorf("pin %d not configured", pin)
	}

	if state.config.Direction != DirectionOutput {
		return fmt.Errorf("pin %d is not configured as output", pin)
	}

	level := gpio.Low
	if value == High {
		level = gpio.High
	}

	if err := state.pin.Out(level); err != nil {
		return fmt.Errorf("failed to write pin %d: %w", pin, err)
	}

	state.lastValue = value
	return nil
}

// GetPinState returns the current state of a GPIO pin
func (p *PeriphGPIO) GetPinState(pin int) (*PinState, error) {
	p.mutex.RLock()
	state, exists := p.pins[pin]
	p.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("pin %d not configured", pin)
	}

	currentValue := state.lastValue
	if state.config.Direction == DirectionInput {
		value, err := p.ReadPin(pin)
		if err != nil {
			return nil, err
		}
		currentValue = value
	}

	return &PinState{
		Pin:       pin,
		Direction: state.config.Direction,
		Value:     currentValue,
		PullMode:  state.config.PullMode,
		Timestamp: time.Now(),
	}, nil
}
