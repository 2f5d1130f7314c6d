package catalog

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Refresher periodically re-fetches the catalog so the cached snapshot
// stays close to the server. Failures are logged and never surfaced to
// the UI; this is best-effort background work.
type Refresher struct {
	catalog  *Catalog
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewRefresher builds a refresher with the given poll interval.
func NewRefresher(catalog *Catalog, interval time.Duration, logger zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		catalog:  catalog,
		interval: interval,
		timeout:  10 * time.Second,
		logger:   logger,
	}
}

// Run polls until ctx is canceled.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("catalog refresher stopping")
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.catalog.ListSummaries(refreshCtx); err != nil {
		r.logger.Warn().Err(err).Msg("catalog refresh failed")
		return
	}
	if _, err := r.catalog.TypeCounts(refreshCtx); err != nil {
		r.logger.Warn().Err(err).Msg("type count refresh failed")
	}
}
