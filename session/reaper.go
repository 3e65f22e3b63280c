package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reaper completes sessions whose rented time has elapsed. Machines
// stop on their own when the activation window expires; the reaper
// brings the stored state back in line so the reservation is released
// even when no client ever calls terminate.
type Reaper struct {
	service  *Service
	interval time.Duration
	log      zerolog.Logger
}

// NewReaper builds a reaper that sweeps at the given interval. A zero
// interval defaults to 30 seconds.
func NewReaper(service *Service, interval time.Duration, log zerolog.Logger) *Reaper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reaper{
		service:  service,
		interval: interval,
		log:      log.With().Str("component", "session_reaper").Logger(),
	}
}

// Run sweeps until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep terminates every active session past its scheduled end. Each
// session is handled independently; one failure does not stop the
// sweep, and a session that a concurrent terminate already completed
// simply falls out of the next listing.
func (r *Reaper) sweep(ctx context.Context) {
	expired, err := r.service.store.ListActiveBefore(ctx, r.service.now().UTC())
	if err != nil {
		r.log.Error().Err(err).Msg("listing expired sessions failed")
		return
	}

	for _, sess := range expired {
		if _, err := r.service.TerminateSession(ctx, sess.ID); err != nil {
			r.log.Warn().Err(err).Str("session_id", sess.ID).Msg("auto-complete failed")
			continue
		}
		r.log.Info().Str("session_id", sess.ID).Msg("session auto-completed")
	}
}
