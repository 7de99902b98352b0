// Package schedule implements the daily schedule engine: trigger
// parsing, fixed and solar instant computation with offset and jitter,
// daily reset and at-most-once-per-day firing against the paired device.
package schedule

import (
	"math/rand"
	"sync"
	"time"

	"github.com/dsyorkd/pi-switchd/internal/errors"
	"github.com/dsyorkd/pi-switchd/internal/logger"
	"github.com/dsyorkd/pi-switchd/internal/pairing"
)

// defaultTickInterval keeps teardown latency low while still noticing
// due entries promptly
const defaultTickInterval = time.Second

// Config describes one schedule device
type Config struct {
	Name             string
	Port             int
	PairedDeviceName string

	Timezone  string // IANA name, default UTC
	Latitude  float64
	Longitude float64

	// InitialState is the enable flag at startup; nil means enabled
	InitialState *bool

	Events []EventConfig

	TickInterval time.Duration
}

// Schedule owns an ordered list of daily entries and fires them against
// its paired device while enabled. It implements the pairing.Device
// contract; On/Off toggle only the schedule's own enable flag.
type Schedule struct {
	mu     sync.Mutex
	cfg    Config
	logger logger.Interface

	registry *pairing.Registry
	solar    Calculator
	loc      *time.Location

	entries   []*Entry
	enabled   bool
	lastReset time.Time // local midnight of the last reset day

	rng     *rand.Rand
	nowFunc func() time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New parses the configured events, computes today's instants, registers
// the schedule and starts its tick loop.
func New(cfg Config, registry *pairing.Registry, solar Calculator, log logger.Interface) (*Schedule, error) {
	if cfg.Name == "" {
		return nil, errors.NewValidationError("name", cfg.Name, "schedule name is required")
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.NewValidationError("timezone", tz, err.Error())
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}

	s := &Schedule{
		cfg:      cfg,
		logger:   log.WithField("schedule", cfg.Name),
		registry: registry,
		solar:    solar,
		loc:      loc,
		enabled:  cfg.InitialState == nil || *cfg.InitialState,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		nowFunc:  time.Now,
	}

	solarUsed := false
	for _, e := range cfg.Events {
		entry, err := ParseEvent(e)
		if err != nil {
			return nil, err
		}
		if entry.Kind != KindFixed {
			solarUsed = true
		}
		s.entries = append(s.entries, entry)
	}

	// Solar instants at unset coordinates would silently compute for
	// 0°N 0°E; fail at construction instead
	if solarUsed && cfg.Latitude == 0 && cfg.Longitude == 0 {
		return nil, errors.NewValidationError("latitude", cfg.Latitude,
			"coordinates are required for sunrise/sunset triggers")
	}

	s.mu.Lock()
	s.resetLocked(s.nowFunc().In(s.loc))
	s.mu.Unlock()

	if err := registry.Register(s, cfg.PairedDeviceName); err != nil {
		return nil, err
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run()

	s.logger.WithField("port", cfg.Port).Info("Schedule device initialized")
	return s, nil
}

// Name returns the device name
func (s *Schedule) Name() string { return s.cfg.Name }

// Port returns the opaque port number from configuration
func (s *Schedule) Port() int { return s.cfg.Port }

// On enables the schedule
func (s *Schedule) On() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	s.logger.Info("Schedule enabled")
	return true
}

// Off disables the schedule. Entries keep accumulating while disabled;
// nothing fires or is marked fired until re-enabled.
func (s *Schedule) Off() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	s.logger.Info("Schedule disabled")
	return true
}

// State reflects the enable flag, not the paired device's output
func (s *Schedule) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return pairing.StateOn
	}
	return pairing.StateOff
}

// Close stops the tick loop
func (s *Schedule) Close() error {
	if s.stopCh != nil {
		close(s.stopCh)
		<-s.doneCh
		s.stopCh = nil
	}
	s.logger.Info("Shutdown complete")
	return nil
}

func (s *Schedule) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.logger.Debug("Timer loop exiting")
			return
		case <-ticker.C:
			s.tick(s.nowFunc().In(s.loc))
		}
	}
}

// tick resets the schedule when the local calendar date has advanced,
// then fires every due entry while the schedule is enabled. Overdue
// entries accumulated while disabled all fire, in list order, on the
// first enabled tick.
func (s *Schedule) tick(now time.Time) {
	due := s.collectDue(now)
	for _, e := range due {
		s.logger.WithFields(map[string]interface{}{
			"trigger": e.Kind,
			"value":   e.Value,
		}).Info("Schedule entry fired")
		s.registry.SetPairState(s.cfg.Name, e.Value)
	}
}

// collectDue marks due entries fired and returns them. Firing happens
// outside the instance lock so no two instance locks are held together.
func (s *Schedule) collectDue(now time.Time) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if midnightOf(now).After(s.lastReset) {
		s.resetLocked(now)
	}

	if !s.enabled {
		return nil
	}

	var due []*Entry
	for _, e := range s.entries {
		if !e.fired && !e.at.After(now) {
			e.fired = true
			due = append(due, e)
		}
	}
	return due
}

// resetLocked recomputes every entry's instant for the day of now and
// marks already-passed entries fired so they cannot trigger mid-day.
// Instants pushed past midnight by offset or jitter are left as
// computed: they are never reached before the next reset recomputes
// them.
func (s *Schedule) resetLocked(now time.Time) {
	for _, e := range s.entries {
		var at time.Time
		switch e.Kind {
		case KindSunrise:
			at = s.solar.SunriseUTC(now, s.cfg.Latitude, s.cfg.Longitude).In(s.loc)
		case KindSunset:
			at = s.solar.SunsetUTC(now, s.cfg.Latitude, s.cfg.Longitude).In(s.loc)
		default:
			at = time.Date(now.Year(), now.Month(), now.Day(),
				e.baseHour, e.baseMinute, e.baseSecond, 0, s.loc)
		}

		at = at.Add(time.Duration(e.Offset) * time.Minute)
		if e.Random > 0 {
			at = at.Add(time.Duration(s.rng.Intn(e.Random*60)) * time.Second)
		}

		e.at = at
		e.fired = !at.After(now)
	}

	s.lastReset = midnightOf(now)
	s.logger.WithField("entries", len(s.entries)).Debug("Daily schedule reset")
}

func midnightOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
