package device

import "time"

// dutyCycle is a blink pattern: how long the notification LED holds each
// level.
type dutyCycle struct {
	on  time.Duration
	off time.Duration
}

var (
	// fastBlink runs while the button is held below the long-press
	// threshold
	fastBlink = dutyCycle{on: 40 * time.Millisecond, off: 80 * time.Millisecond}

	// slowBlink runs while the paired schedule reads on: mostly dark
	// with a brief flash
	slowBlink = dutyCycle{on: 50 * time.Millisecond, off: 1500 * time.Millisecond}
)

// blinker tracks the active blink pattern and the instant of the next
// level toggle. When inactive the LED holds a steady level.
type blinker struct {
	duty    dutyCycle
	running bool
	next    time.Time
}

func (b *blinker) start(now time.Time, duty dutyCycle) {
	b.duty = duty
	b.running = true
	b.next = now
}

func (b *blinker) stop() {
	b.running = false
}

// due reports whether the LED level should toggle at now
func (b *blinker) due(now time.Time) bool {
	return b.running && !now.Before(b.next)
}

// advance schedules the next toggle using the duty-cycle half matching
// the level the LED just switched to.
func (b *blinker) advance(now time.Time, level bool) {
	if level {
		b.next = now.Add(b.duty.on)
	} else {
		b.next = now.Add(b.duty.off)
	}
}
