package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSweepInterval is the time between janitor sweeps.
const DefaultSweepInterval = time.Minute

// Janitor periodically evicts idle sessions from a Store.
type Janitor struct {
	store    *Store
	interval time.Duration
}

// NewJanitor creates a janitor. A zero interval means DefaultSweepInterval.
func NewJanitor(store *Store, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{store: store, interval: interval}
}

// Run starts the sweep loop. It blocks until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	log.Info().Dur("interval", j.interval).Dur("ttl", j.store.TTL()).Msg("starting session janitor")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session janitor stopped")
			return
		case <-ticker.C:
			j.store.Sweep()
		}
	}
}
