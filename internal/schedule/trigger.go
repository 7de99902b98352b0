package schedule

import (
	"regexp"
	"strconv"
	"time"

	"github.com/dsyorkd/pi-switchd/internal/errors"
)

// Kind classifies what a schedule entry is anchored to
type Kind string

const (
	KindFixed   Kind = "fixed"
	KindSunrise Kind = "sunrise"
	KindSunset  Kind = "sunset"
)

// EventConfig is one schedule event as it appears in configuration
type EventConfig struct {
	// Trigger follows HH:MM[:SS] (24-hour), or sunrise/sunset with an
	// optional minute offset such as "sunset+20" or "sunrise-15"
	Trigger string `yaml:"trigger"`

	// Random delays the event by a uniform draw of up to this many
	// minutes
	Random int `yaml:"random"`

	// Value is the state the paired device is set to
	Value bool `yaml:"value"`
}

// Entry is one parsed schedule event plus its per-day derived state
type Entry struct {
	Kind   Kind
	Offset int // minutes from sunrise/sunset
	Random int // jitter window in minutes
	Value  bool

	// base time-of-day, fixed kind only
	baseHour   int
	baseMinute int
	baseSecond int

	// derived daily, recomputed by each reset
	at    time.Time
	fired bool
}

var (
	fixedPattern = regexp.MustCompile(`^([0-2]?[0-9]):([0-5][0-9])(:[0-5][0-9])?$`)
	solarPattern = regexp.MustCompile(`^(sunrise|sunset)([-+]\d+)?$`)
)

// ParseEvent parses a configured schedule event into an Entry. The
// trigger grammar accepts fixed 24-hour times and solar anchors with a
// minute offset; anything else fails with ErrInvalidTrigger.
func ParseEvent(e EventConfig) (*Entry, error) {
	if e.Random < 0 {
		return nil, errors.NewValidationError("random", e.Random, "jitter must not be negative")
	}

	if m := fixedPattern.FindStringSubmatch(e.Trigger); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour > 23 {
			return nil, errors.Wrapf(errors.ErrInvalidTrigger, "%q", e.Trigger)
		}
		minute, _ := strconv.Atoi(m[2])
		second := 0
		if m[3] != "" {
			second, _ = strconv.Atoi(m[3][1:])
		}
		return &Entry{
			Kind:       KindFixed,
			Random:     e.Random,
			Value:      e.Value,
			baseHour:   hour,
			baseMinute: minute,
			baseSecond: second,
		}, nil
	}

	if m := solarPattern.FindStringSubmatch(e.Trigger); m != nil {
		offset := 0
		if m[2] != "" {
			offset, _ = strconv.Atoi(m[2])
		}
		kind := KindSunrise
		if m[1] == "sunset" {
			kind = KindSunset
		}
		return &Entry{
			Kind:   kind,
			Offset: offset,
			Random: e.Random,
			Value:  e.Value,
		}, nil
	}

	return nil, errors.Wrapf(errors.ErrInvalidTrigger, "%q", e.Trigger)
}
