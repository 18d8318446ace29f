package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepsala/examhall-backend/internal/config"
	"github.com/prepsala/examhall-backend/internal/scoring"
	"github.com/prepsala/examhall-backend/internal/service"
)

const (
	StatsBatchSize    = 25
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

// StatsWorker keeps the cached dashboard statistics current. Submissions push
// their attempt id onto a Redis queue; the worker drains the queue in batches
// and recomputes the aggregate once per batch, so a burst of submissions
// costs a single store scan instead of one per candidate.
type StatsWorker struct {
	store service.AttemptStore
	bank  *service.BankService
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewStatsWorker creates a new StatsWorker.
func NewStatsWorker(store service.AttemptStore, bank *service.BankService, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		store: store,
		bank:  bank,
		rdb:   rdb,
		log:   log.With().Str("component", "stats_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	pending := 0
	lastFlush := time.Now()

	for {
		// Should flush?
		if pending > 0 &&
			(pending >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.refreshSafe(ctx, pending)
			pending = 0
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			if pending > 0 {
				w.log.Info().Msg("Shutdown requested. Flushing pending stats refresh...")
				w.refreshSafe(context.Background(), pending)
			}
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.RefreshStatsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}
			pending++
		}
	}
}

// refreshSafe recomputes the aggregate and rewrites the cache. Failures are
// logged and dropped; the dashboard falls back to direct aggregation when the
// cache is stale or missing, so losing a refresh is never fatal.
func (w *StatsWorker) refreshSafe(ctx context.Context, coalesced int) {
	attempts, err := w.store.ListAll(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Stats refresh failed to read attempts")
		return
	}

	schema := w.bank.Schema()
	stats := scoring.Aggregate(attempts, schema.DeclaredTotal)

	raw, err := json.Marshal(stats)
	if err != nil {
		w.log.Error().Err(err).Msg("Stats marshal failed")
		return
	}

	if err := w.rdb.Set(ctx, config.CacheKey.DashboardStatsKey(), raw, 0).Err(); err != nil {
		w.log.Error().Err(err).Msg("Stats cache write failed")
		return
	}

	w.log.Debug().
		Int("coalesced", coalesced).
		Int("students", stats.TotalStudents).
		Msg("Dashboard stats refreshed")
}
