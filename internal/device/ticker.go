package device

import (
	"time"

	"github.com/dsyorkd/pi-switchd/pkg/gpio"
)

// run drives the fast tick loop until Close signals the stop channel.
// All per-tick state runs to completion under the instance mutex.
func (s *Switch) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.logger.Debug("Tick loop exiting")
			return
		case <-ticker.C:
			s.tick(s.nowFunc())
		}
	}
}

// tick advances the button and notification state machines by one step.
// The paired-schedule reading is taken before the instance lock so no
// two instance locks are ever held together.
func (s *Switch) tick(now time.Time) {
	schedOn := s.scheduleOn()

	fireLongPress := s.step(now, schedOn)
	if fireLongPress {
		s.triggerLongPress(schedOn)
	}
}

func (s *Switch) step(now time.Time, schedOn bool) (fireLongPress bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The first tick forces a baseline evaluation below
	if !s.schedInit {
		s.schedInit = true
		s.lastSchedOn = !schedOn
	}

	if s.cfg.InputPin != nil {
		value, err := s.io.ReadPin(*s.cfg.InputPin)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read input pin")
		}
		down := err == nil && value == gpio.High

		switch {
		case down && !s.pressed:
			s.pressed = true
			s.pressedAt = now
			s.blink.start(now, fastBlink)

		case down && s.pressed:
			if now.Sub(s.pressedAt) >= s.longPress {
				// Past the threshold: steady on as visual confirmation;
				// the action itself fires on release
				s.blink.stop()
				s.writeNotifLocked(true)
			}

		case !down && s.pressed:
			held := now.Sub(s.pressedAt)
			s.pressed = false

			switch {
			case held < debounceInterval:
				s.logger.Debug("Very short press, ignoring")
			case held < s.longPress:
				s.setStateLocked(!s.state, "button press")
			default:
				fireLongPress = true
			}

			s.applyBaselineLocked(now, schedOn)
		}
	}

	// Schedule reading changed since last tick: recompute the baseline
	// unless the button holds a higher-priority pattern
	if schedOn != s.lastSchedOn {
		s.lastSchedOn = schedOn
		if !s.pressed {
			s.applyBaselineLocked(now, schedOn)
		}
	}

	if s.blink.due(now) && s.cfg.NotificationPin != nil {
		next := !s.notifLevel
		s.writeNotifLocked(next)
		s.blink.advance(now, next)
	}

	return fireLongPress
}

// applyBaselineLocked sets the notification indicator to its
// schedule-driven level: slow blink while the paired schedule reads on,
// otherwise steady at the switch's own state.
func (s *Switch) applyBaselineLocked(now time.Time, schedOn bool) {
	if schedOn {
		s.blink.start(now, slowBlink)
		return
	}
	s.blink.stop()
	s.writeNotifLocked(s.state)
}

// triggerLongPress executes the configured long-press action once
func (s *Switch) triggerLongPress(schedOn bool) {
	s.logger.Info("Long press detected")

	if s.cfg.LongPressAction == ActionTogglePaired {
		s.registry.SetPairState(s.cfg.Name, !schedOn)
		return
	}

	if err := s.runner.Run(s.cfg.LongPressAction); err != nil {
		s.logger.WithError(err).Warn("Failed to run long-press command")
	}
}
