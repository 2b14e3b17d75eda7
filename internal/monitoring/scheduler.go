package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const sweepTimeout = time.Minute

// ResetKeyPurger deletes password-reset keys created before a cutoff.
type ResetKeyPurger interface {
	PurgeResetKeys(ctx context.Context, olderThan time.Time) (int64, error)
}

// Scheduler runs periodic maintenance jobs on a cron schedule.
type Scheduler struct {
	purger ResetKeyPurger
	keyTTL time.Duration
	cron   *cron.Cron
	done   chan bool
	now    func() time.Time
}

// NewScheduler creates a scheduler that purges reset keys older than keyTTL
// according to schedule (standard cron syntax or descriptors like "@every 1h").
func NewScheduler(purger ResetKeyPurger, schedule string, keyTTL time.Duration) (*Scheduler, error) {
	s := &Scheduler{
		purger: purger,
		keyTTL: keyTTL,
		cron:   cron.New(),
		done:   make(chan bool),
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweepResetKeys); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the scheduler and blocks until Stop is called.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting background scheduler...")

	// Run once immediately on start
	s.sweepResetKeys()
	s.cron.Start()

	<-s.done
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopping background scheduler.")
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.done <- true
}

// sweepResetKeys deletes reset keys that can no longer be redeemed.
func (s *Scheduler) sweepResetKeys() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.keyTTL)
	n, err := s.purger.PurgeResetKeys(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to purge expired reset keys")
		return
	}
	if n > 0 {
		log.Info().Int64("purged", n).Msg("Scheduler: purged expired reset keys")
	}
}
