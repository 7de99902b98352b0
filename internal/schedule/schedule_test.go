package schedule

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsyorkd/pi-switchd/internal/errors"
	"github.com/dsyorkd/pi-switchd/internal/logger"
	"github.com/dsyorkd/pi-switchd/internal/pairing"
)

// recordingDevice captures every state change pushed at it
type recordingDevice struct {
	name  string
	on    bool
	calls []bool
}

func (r *recordingDevice) Name() string { return r.name }
func (r *recordingDevice) On() bool     { r.on = true; r.calls = append(r.calls, true); return true }
func (r *recordingDevice) Off() bool    { r.on = false; r.calls = append(r.calls, false); return true }
func (r *recordingDevice) State() string {
	if r.on {
		return pairing.StateOn
	}
	return pairing.StateOff
}

// fixedSolar returns the same clock times every day
type fixedSolar struct {
	riseHour, riseMinute int
	setHour, setMinute   int
}

func (f fixedSolar) SunriseUTC(date time.Time, lat, lon float64) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), f.riseHour, f.riseMinute, 0, 0, time.UTC)
}

func (f fixedSolar) SunsetUTC(date time.Time, lat, lon float64) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), f.setHour, f.setMinute, 0, 0, time.UTC)
}

func newTestSchedule(t *testing.T, cfg Config, solar Calculator) (*Schedule, *recordingDevice) {
	t.Helper()

	registry := pairing.NewRegistry(logger.Default())
	light := &recordingDevice{name: "Light"}
	require.NoError(t, registry.Register(light, ""))

	cfg.Name = "Light Schedule"
	cfg.PairedDeviceName = "Light"
	// Keep the background loop out of the way; ticks are driven manually
	cfg.TickInterval = time.Hour
	if cfg.Latitude == 0 && cfg.Longitude == 0 {
		cfg.Latitude, cfg.Longitude = 52.37, 4.89
	}

	if solar == nil {
		solar = fixedSolar{riseHour: 6, setHour: 18}
	}

	s, err := New(cfg, registry, solar, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, light
}

// day returns a deterministic test instant well away from the real clock
func day(hour, min, sec int) time.Time {
	return time.Date(2030, time.June, 15, hour, min, sec, 0, time.UTC)
}

func TestSchedule_FixedTriggerFiresExactlyOnce(t *testing.T) {
	s, light := newTestSchedule(t, Config{
		Events: []EventConfig{{Trigger: "22:10", Value: false}},
	}, nil)

	light.on = true

	// First tick on the test day resets the schedule; the entry is still
	// pending
	s.tick(day(22, 9, 59))
	assert.Empty(t, light.calls)

	s.tick(day(22, 10, 1))
	assert.Equal(t, []bool{false}, light.calls)
	assert.False(t, light.on)

	// Advancing further the same day never repeats the call
	s.tick(day(22, 30, 0))
	s.tick(day(23, 59, 0))
	assert.Equal(t, []bool{false}, light.calls)
}

func TestSchedule_PassedEntryMarkedFiredAtReset(t *testing.T) {
	s, light := newTestSchedule(t, Config{
		Events: []EventConfig{{Trigger: "22:10", Value: true}},
	}, nil)

	// Reset happens mid-evening, past the trigger: marked fired, no call
	s.tick(day(23, 0, 0))
	s.tick(day(23, 30, 0))
	assert.Empty(t, light.calls)

	// Next day it fires normally once the reset has seen it pending
	s.tick(day(22, 9, 0).AddDate(0, 0, 1))
	assert.Empty(t, light.calls)
	s.tick(day(22, 10, 30).AddDate(0, 0, 1))
	assert.Equal(t, []bool{true}, light.calls)
}

func TestSchedule_DisabledAccumulatesThenFlushesInOrder(t *testing.T) {
	s, light := newTestSchedule(t, Config{
		Events: []EventConfig{
			{Trigger: "08:00", Value: true},
			{Trigger: "09:00", Value: false},
		},
	}, nil)

	s.tick(day(7, 0, 0)) // reset while both entries pending
	s.Off()
	assert.Equal(t, pairing.StateOff, s.State())

	// Both entries come due while disabled; nothing fires or is marked
	s.tick(day(8, 30, 0))
	s.tick(day(10, 0, 0))
	assert.Empty(t, light.calls)

	// Re-enabling flushes all overdue entries in list order on one tick
	s.On()
	s.tick(day(10, 0, 1))
	assert.Equal(t, []bool{true, false}, light.calls)
}

func TestSchedule_SolarTriggerWithOffset(t *testing.T) {
	s, light := newTestSchedule(t, Config{
		Events: []EventConfig{{Trigger: "sunset+20", Value: true}},
	}, fixedSolar{setHour: 18, setMinute: 0})

	s.tick(day(17, 0, 0))
	assert.Empty(t, light.calls)

	s.tick(day(18, 19, 59))
	assert.Empty(t, light.calls)

	s.tick(day(18, 20, 0))
	assert.Equal(t, []bool{true}, light.calls)
}

func TestSchedule_JitterStaysWithinWindow(t *testing.T) {
	s, _ := newTestSchedule(t, Config{
		Events: []EventConfig{{Trigger: "12:00", Random: 5, Value: true}},
	}, nil)

	base := day(12, 0, 0)
	limit := base.Add(5 * time.Minute)

	for seed := int64(0); seed < 50; seed++ {
		s.mu.Lock()
		s.rng = rand.New(rand.NewSource(seed))
		s.resetLocked(day(6, 0, 0))
		at := s.entries[0].at
		s.mu.Unlock()

		assert.False(t, at.Before(base), "seed %d produced %v before window", seed, at)
		assert.True(t, at.Before(limit), "seed %d produced %v past window", seed, at)
	}
}

func TestSchedule_EntryNeverFiresBeforeItsInstant(t *testing.T) {
	s, light := newTestSchedule(t, Config{
		Events: []EventConfig{{Trigger: "12:00", Random: 10, Value: true}},
	}, nil)

	s.tick(day(6, 0, 0))

	s.mu.Lock()
	at := s.entries[0].at
	s.mu.Unlock()

	s.tick(at.Add(-time.Second))
	assert.Empty(t, light.calls)

	s.tick(at)
	assert.Equal(t, []bool{true}, light.calls)
}

func TestSchedule_MidnightRolloverEntrySkipsTheDay(t *testing.T) {
	// Sunset 23:45 plus a 30 minute offset lands past midnight; the
	// entry is left there and never matches before the next daily reset
	s, light := newTestSchedule(t, Config{
		Events: []EventConfig{{Trigger: "sunset+30", Value: true}},
	}, fixedSolar{setHour: 23, setMinute: 45})

	s.tick(day(23, 0, 0))
	s.tick(day(23, 50, 0))
	s.tick(day(23, 59, 59))
	assert.Empty(t, light.calls)

	// The next day's reset recomputes the instant past that midnight too
	next := day(0, 5, 0).AddDate(0, 0, 1)
	s.tick(next)
	assert.Empty(t, light.calls)
}

func TestSchedule_InitialStateFromConfig(t *testing.T) {
	off := false
	s, _ := newTestSchedule(t, Config{
		InitialState: &off,
		Events:       []EventConfig{{Trigger: "12:00", Value: true}},
	}, nil)

	assert.Equal(t, pairing.StateOff, s.State())
	s.On()
	assert.Equal(t, pairing.StateOn, s.State())
}

func TestSchedule_SolarTriggerRequiresCoordinates(t *testing.T) {
	registry := pairing.NewRegistry(logger.Default())
	_, err := New(Config{
		Name:   "s",
		Events: []EventConfig{{Trigger: "sunset", Value: true}},
	}, registry, NewCalculator(), logger.Default())
	require.Error(t, err)

	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))

	// Fixed triggers need no coordinates
	s, err := New(Config{
		Name:   "s",
		Events: []EventConfig{{Trigger: "12:00", Value: true}},
	}, registry, NewCalculator(), logger.Default())
	require.NoError(t, err)
	_ = s.Close()
}

func TestSchedule_InvalidTimezoneFailsConstruction(t *testing.T) {
	registry := pairing.NewRegistry(logger.Default())
	_, err := New(Config{Name: "s", Timezone: "Mars/Olympus"}, registry, NewCalculator(), logger.Default())
	require.Error(t, err)
}

func TestSchedule_InvalidTriggerFailsConstruction(t *testing.T) {
	registry := pairing.NewRegistry(logger.Default())
	_, err := New(Config{
		Name:   "s",
		Events: []EventConfig{{Trigger: "whenever"}},
	}, registry, NewCalculator(), logger.Default())
	require.Error(t, err)
}
