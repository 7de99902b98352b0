// Package device implements the GPIO switch controller: output
// actuation, momentary-button handling and the notification LED state
// machine.
package device

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dsyorkd/pi-switchd/internal/errors"
	"github.com/dsyorkd/pi-switchd/internal/logger"
	"github.com/dsyorkd/pi-switchd/internal/pairing"
	"github.com/dsyorkd/pi-switchd/pkg/gpio"
)

const (
	// ActionTogglePaired is the long-press action sentinel that toggles
	// the paired device instead of running a command
	ActionTogglePaired = "toggle_paired_device"

	// debounceInterval is the minimum hold for a press to count
	debounceInterval = 50 * time.Millisecond

	// disabledLongPress stands in for an unconfigured long-press
	// threshold; no realistic hold reaches it
	disabledLongPress = 10 * time.Minute

	// pulseSettleDelay is the low hold during a toggle-relay pulse
	pulseSettleDelay = 100 * time.Millisecond

	// defaultPollInterval drives the button/notification tick loop
	defaultPollInterval = 20 * time.Millisecond
)

// Config describes one GPIO switch. Exactly one of OutputPin and
// OutputCommands must be set.
type Config struct {
	Name string
	Port int

	// OutputPin drives a level-holding relay; nil when unused
	OutputPin *int

	// OutputCommands is a [onCmd, offCmd] pair run instead of a pin
	OutputCommands []string

	// Toggle marks a pulse-actuated relay: on/off pulse the output
	// instead of holding a level
	Toggle bool

	InputPin           *int
	InputPullDirection string // "up" or "down", default down
	NotificationPin    *int

	LongPressIntervalMs int
	LongPressAction     string

	PairedDeviceName string

	PollInterval time.Duration
}

// Switch owns the on/off state of one controlled device and drives its
// pins each tick. It implements the pairing.Device contract.
type Switch struct {
	mu     sync.Mutex
	cfg    Config
	logger logger.Interface

	registry *pairing.Registry
	hw       *gpio.Subsystem
	io       gpio.Interface
	runner   CommandRunner

	state     bool
	longPress time.Duration

	// press tracking
	pressed   bool
	pressedAt time.Time

	// notification indicator
	blink      blinker
	notifLevel bool

	// paired-schedule reading from the previous tick
	lastSchedOn bool
	schedInit   bool

	nowFunc func() time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New validates the configuration, acquires the shared GPIO subsystem,
// configures the pins, registers the switch and starts its tick loop
// when an input or notification pin is configured.
func New(ctx context.Context, cfg Config, registry *pairing.Registry, hw *gpio.Subsystem, runner CommandRunner, log logger.Interface) (*Switch, error) {
	if cfg.Name == "" {
		return nil, errors.NewValidationError("name", cfg.Name, "device name is required")
	}

	if cfg.OutputPin == nil {
		if len(cfg.OutputCommands) != 2 {
			return nil, errors.NewValidationError("output_pin", nil,
				"must specify output_pin, or output_commands with exactly an on and an off command")
		}
	} else if cfg.OutputCommands != nil {
		return nil, errors.NewValidationError("output_commands", cfg.OutputCommands,
			"cannot specify both output_pin and output_commands")
	}

	pull, err := parsePullDirection(cfg.InputPullDirection)
	if err != nil {
		return nil, err
	}

	if cfg.LongPressIntervalMs > 0 && cfg.LongPressAction == "" {
		return nil, errors.NewValidationError("long_press_action", "",
			"required when long_press_interval_ms is set")
	}

	longPress := disabledLongPress
	if cfg.LongPressIntervalMs > 0 {
		longPress = time.Duration(cfg.LongPressIntervalMs) * time.Millisecond
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	io, err := hw.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	s := &Switch{
		cfg:       cfg,
		logger:    log.WithField("device", cfg.Name),
		registry:  registry,
		hw:        hw,
		io:        io,
		runner:    runner,
		longPress: longPress,
		nowFunc:   time.Now,
	}

	if err := s.setupPins(pull); err != nil {
		_ = hw.Release()
		return nil, err
	}

	if err := registry.Register(s, cfg.PairedDeviceName); err != nil {
		_ = hw.Release()
		return nil, err
	}

	if cfg.InputPin != nil || cfg.NotificationPin != nil {
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.run()
	}

	s.logger.WithField("port", cfg.Port).Info("GPIO switch initialized")
	return s, nil
}

func parsePullDirection(dir string) (gpio.PullMode, error) {
	switch strings.ToLower(dir) {
	case "", "down":
		return gpio.PullDown, nil
	case "up":
		return gpio.PullUp, nil
	default:
		return gpio.PullNone, errors.NewValidationError("input_pull_direction", dir,
			"must be either Up or Down")
	}
}

func (s *Switch) setupPins(pull gpio.PullMode) error {
	if s.cfg.OutputPin != nil {
		pin := *s.cfg.OutputPin
		if err := s.io.ConfigurePin(gpio.PinConfig{Pin: pin, Direction: gpio.DirectionOutput}); err != nil {
			return errors.NewGPIOError(pin, "configure output", err)
		}
		if err := s.io.WritePin(pin, level(s.state)); err != nil {
			return errors.NewGPIOError(pin, "write output", err)
		}
	}

	if s.cfg.InputPin != nil {
		pin := *s.cfg.InputPin
		if err := s.io.ConfigurePin(gpio.PinConfig{Pin: pin, Direction: gpio.DirectionInput, PullMode: pull}); err != nil {
			return errors.NewGPIOError(pin, "configure input", err)
		}
	}

	if s.cfg.NotificationPin != nil {
		pin := *s.cfg.NotificationPin
		if err := s.io.ConfigurePin(gpio.PinConfig{Pin: pin, Direction: gpio.DirectionOutput}); err != nil {
			return errors.NewGPIOError(pin, "configure notification", err)
		}
		if err := s.io.WritePin(pin, level(s.state)); err != nil {
			return errors.NewGPIOError(pin, "write notification", err)
		}
	}

	return nil
}

func level(on bool) gpio.PinValue {
	if on {
		return gpio.High
	}
	return gpio.Low
}

// Name returns the device name
func (s *Switch) Name() string { return s.cfg.Name }

// Port returns the opaque port number from configuration
func (s *Switch) Port() int { return s.cfg.Port }

// State returns "on" or "off" from the stored state; hardware is never
// queried.
func (s *Switch) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state {
		return pairing.StateOn
	}
	return pairing.StateOff
}

// On turns the switch on
func (s *Switch) On() bool {
	if s.cfg.Toggle {
		s.pulse(true)
	} else {
		s.SetState(true, "remote command")
	}
	return true
}

// Off turns the switch off
func (s *Switch) Off() bool {
	if s.cfg.Toggle {
		s.pulse(false)
	} else {
		s.SetState(false, "remote command")
	}
	return true
}

// SetState moves the switch to the given state. A no-op when already
// there; otherwise the output pin is driven or the matching command run,
// and the notification LED takes the new state as its baseline.
func (s *Switch) SetState(state bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateLocked(state, reason)
}

func (s *Switch) setStateLocked(state bool, reason string) {
	if state == s.state {
		return
	}
	s.state = state

	if s.cfg.OutputPin != nil {
		if err := s.io.WritePin(*s.cfg.OutputPin, level(state)); err != nil {
			s.logger.WithError(err).Warn("Failed to write output pin")
		}
	} else {
		cmd := s.cfg.OutputCommands[1]
		if state {
			cmd = s.cfg.OutputCommands[0]
		}
		if err := s.runner.Run(cmd); err != nil {
			s.logger.WithError(err).Warn("Failed to run output command")
		}
	}

	s.writeNotifLocked(state)

	if state {
		s.logger.Infof("Turned ON on %s", reason)
	} else {
		s.logger.Infof("Turned OFF on %s", reason)
	}
}

// pulse drives a toggle relay: the physical actuator flips on any
// low-to-high pulse, so the output is pulsed and only the logical state
// recorded.
func (s *Switch) pulse(state bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.OutputPin == nil {
		s.logger.Warn("Toggle mode requires an output pin")
		return
	}

	pin := *s.cfg.OutputPin
	if err := s.io.WritePin(pin, gpio.Low); err != nil {
		s.logger.WithError(err).Warn("Failed to write output pin")
	}
	time.Sleep(pulseSettleDelay)
	if err := s.io.WritePin(pin, gpio.High); err != nil {
		s.logger.WithError(err).Warn("Failed to write output pin")
	}

	s.state = state
	st := pairing.StateOff
	if state {
		st = pairing.StateOn
	}
	s.logger.WithField("state", st).Info("Toggle relay pulsed")
}

// writeNotifLocked sets the notification LED to a steady level
func (s *Switch) writeNotifLocked(on bool) {
	if s.cfg.NotificationPin == nil {
		return
	}
	if err := s.io.WritePin(*s.cfg.NotificationPin, level(on)); err != nil {
		s.logger.WithError(err).Warn("Failed to write notification pin")
	}
	s.notifLevel = on
}

// scheduleOn reads the paired device's state through the registry. True
// only when a paired schedule exists and reads on.
func (s *Switch) scheduleOn() bool {
	return s.registry.PairState(s.cfg.Name) == pairing.StateOn
}

// Close stops the tick loop, forces the output off and releases the
// shared GPIO subsystem.
func (s *Switch) Close() error {
	if s.stopCh != nil {
		close(s.stopCh)
		<-s.doneCh
		s.stopCh = nil
	}

	s.SetState(false, "shutdown")

	err := s.hw.Release()
	s.logger.Info("Shutdown complete")
	return err
}
