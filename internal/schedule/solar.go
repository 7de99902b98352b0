package schedule

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Calculator yields solar instants, in UTC, for a date and coordinates
type Calculator interface {
	SunriseUTC(date time.Time, latitude, longitude float64) time.Time
	SunsetUTC(date time.Time, latitude, longitude float64) time.Time
}

type sunriseCalculator struct{}

// NewCalculator returns the default Calculator backed by go-sunrise
func NewCalculator() Calculator {
	return sunriseCalculator{}
}

func (sunriseCalculator) SunriseUTC(date time.Time, latitude, longitude float64) time.Time {
	rise, _ := sunrise.SunriseSunset(latitude, longitude, date.Year(), date.Month(), date.Day())
	return rise
}

func (sunriseCalculator) SunsetUTC(date time.Time, latitude, longitude float64) time.Time {
	_, set := sunrise.SunriseSunset(latitude, longitude, date.Year(), date.Month(), date.Day())
	return set
}
