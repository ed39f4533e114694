package orchestrator

import (
	"context"
	"time"

	"blockdates/internal/models"
)

// ResourceLister enumerates configured resources for cache warming.
type ResourceLister interface {
	Resources() []models.Resource
}

// Warm pre-resolves the full 365-day horizon for every configured resource,
// priming all three tiers. It runs sequentially and stops when ctx is done;
// warming is best effort and failures are only logged.
func (o *Orchestrator) Warm(ctx context.Context, lister ResourceLister) {
	started := o.now()
	today := models.Midnight(o.now(), time.UTC)
	dr := models.NewDateRange(today, today.AddDate(0, 0, models.MaxRangeDays), time.UTC)

	warmed := 0
	for _, res := range lister.Resources() {
		if ctx.Err() != nil {
			o.logger.Info().Int("warmed", warmed).Msg("cache warmup cancelled")
			return
		}
		if _, _, err := o.Resolve(ctx, res, dr, nil); err != nil {
			o.logger.Warn().Err(err).Str("resource", res.Key()).Msg("cache warmup resolve failed")
			continue
		}
		warmed++
	}

	o.logger.Info().
		Int("warmed", warmed).
		Dur("took", o.now().Sub(started)).
		Msg("cache warmup finished")
}
