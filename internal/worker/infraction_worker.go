package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// InfractionWorker batch-inserts queued proctoring events into the
// infractions audit table. Bulk CopyFrom first, row-by-row fallback, and
// requeue when the database is down.
type InfractionWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewInfractionWorker creates a new InfractionWorker.
func NewInfractionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *InfractionWorker {
	return &InfractionWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "infraction_worker").Logger(),
	}
}

// Start begins the batching loop. Call in a goroutine.
func (w *InfractionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]*model.PersistInfractionPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// Flush on size or age.
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistInfractionsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload model.PersistInfractionPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *InfractionWorker) flushSafe(ctx context.Context, batch []*model.PersistInfractionPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *InfractionWorker) bulkInsert(ctx context.Context, batch []*model.PersistInfractionPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			// Trigger the fallback, which drops the bad row individually.
			return err
		}
		rows = append(rows, []interface{}{
			sessionID, p.Signal, time.Unix(p.Timestamp, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"infractions"},
		[]string{"session_id", "signal", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *InfractionWorker) fallbackInsert(ctx context.Context, batch []*model.PersistInfractionPayload) {
	requeueList := make([]*model.PersistInfractionPayload, 0)

	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			w.log.Error().Str("session_id", p.SessionID).Msg("Dropping infraction with invalid UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO infractions (session_id, signal, recorded_at)
			 VALUES ($1, $2, $3)`,
			sessionID, p.Signal, time.Unix(p.Timestamp, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *InfractionWorker) requeue(ctx context.Context, items []*model.PersistInfractionPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistInfractionsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the database is down.
	time.Sleep(2 * time.Second)
}

func (w *InfractionWorker) shutdown(buffer []*model.PersistInfractionPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
