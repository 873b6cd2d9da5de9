// Package scheduler fires scheduled sync runs on a cadence that can be replaced at runtime.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/fleet-sync/internal/errors"
	"github.com/Kamar-Folarin/fleet-sync/internal/models"
)

// Trigger starts a background sync run
type Trigger interface {
	Start(ctx context.Context, trigger models.TriggerKind) (string, error)
}

// Settings is the current schedule
type Settings struct {
	Interval time.Duration `json:"interval"`
	Enabled  bool          `json:"enabled"`
}

// Active reports whether the schedule will fire
func (s Settings) Active() bool {
	return s.Enabled && s.Interval > 0
}

// Scheduler owns at most one ticker. Rescheduling stops the current ticker and starts
// a new one without touching a run that is already executing.
type Scheduler struct {
	trigger Trigger
	logger  *logrus.Logger

	mu       sync.Mutex
	ctx      context.Context
	settings Settings
	ticker   *time.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler with the initial settings; nothing fires until Start
func New(trigger Trigger, settings Settings, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		trigger:  trigger,
		logger:   logger,
		settings: settings,
	}
}

// Start arms the ticker. Runs are started with ctx, so cancelling it stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	s.arm()
}

// Reschedule replaces the cadence. An interval of zero or enabled=false disables
// scheduled runs.
func (s *Scheduler) Reschedule(interval time.Duration, enabled bool) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = Settings{Interval: interval, Enabled: enabled}
	if s.ctx != nil {
		s.arm()
	}

	s.logger.WithFields(logrus.Fields{
		"interval": interval,
		"enabled":  enabled,
	}).Info("Sync schedule updated")

	return s.settings
}

// Settings returns the current schedule
func (s *Scheduler) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Stop disarms the ticker and waits for its goroutine to exit
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.disarm()
	s.mu.Unlock()

	s.wg.Wait()
}

// arm must be called with mu held
func (s *Scheduler) arm() {
	s.disarm()
	if !s.settings.Active() {
		s.logger.Info("Scheduled sync disabled")
		return
	}

	ticker := time.NewTicker(s.settings.Interval)
	done := make(chan struct{})
	s.ticker = ticker
	s.done = done

	s.logger.WithField("interval", s.settings.Interval).Info("Starting sync ticker")

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				s.fire(ctx)
			}
		}
	}()
}

// disarm must be called with mu held
func (s *Scheduler) disarm() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
	s.done = nil
}

func (s *Scheduler) fire(ctx context.Context) {
	id, err := s.trigger.Start(ctx, models.TriggerScheduled)
	switch {
	case err == nil:
		s.logger.WithField("sync_id", id).Info("Scheduled sync started")
	case errors.IsConflict(err):
		s.logger.WithError(err).Info("Skipping scheduled sync")
	default:
		s.logger.WithError(err).Error("Failed to start scheduled sync")
	}
}
