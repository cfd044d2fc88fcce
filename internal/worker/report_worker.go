package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placehub/placement-backend/internal/config"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ReportBatchSize    = 50
	ReportBatchTimeout = 2 * time.Second
	ReportPollTimeout  = 1 * time.Second
)

// ReportWorker drains the report queue and persists score reports in bulk,
// updating each template's completion projections along the way.
type ReportWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewReportWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ReportWorker {
	return &ReportWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "report_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ReportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ReportWorker started")

	batch := make([]*model.ScoreReport, 0, ReportBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ReportBatchSize || time.Since(lastFlush) >= ReportBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ReportPollTimeout, config.WorkerKey.PersistReportsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var r model.ScoreReport
			if err := json.Unmarshal([]byte(item[1]), &r); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &r)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ReportWorker) flushSafe(ctx context.Context, batch []*model.ScoreReport) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsertReports(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk report insert failed, using fallback")

		for _, r := range batch {
			if err := w.persistSingle(ctx, r); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(r)
				w.rdb.RPush(ctx, config.WorkerKey.PersistReportsQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST + alias
// ----------------------------------------------------------------

func (w *ReportWorker) bulkInsertReports(ctx context.Context, batch []*model.ScoreReport) error {
	n := len(batch)

	attemptIDs := make([]uuid.UUID, 0, n)
	templateIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	totals := make([]int, 0, n)
	possibles := make([]int, 0, n)
	percentages := make([]float64, 0, n)
	passed := make([]bool, 0, n)
	bodies := make([]string, 0, n)
	createdAts := make([]time.Time, n)

	now := time.Now()
	for i, r := range batch {
		body, err := json.Marshal(r)
		if err != nil {
			return err
		}
		attemptIDs = append(attemptIDs, r.AttemptID)
		templateIDs = append(templateIDs, r.TemplateID)
		students = append(students, r.StudentID)
		totals = append(totals, r.TotalScore)
		possibles = append(possibles, r.TotalPossible)
		percentages = append(percentages, r.Percentage)
		passed = append(passed, r.Passed)
		bodies = append(bodies, string(body))
		createdAts[i] = now
	}

	// The projection aggregates over the rows the INSERT actually kept, so
	// a requeued duplicate can never double-count a completion.
	query := `
		WITH inserted AS (
			INSERT INTO score_reports (
				attempt_id, template_id, student_id,
				total_score, total_possible, percentage, passed,
				report, created_at
			)
			SELECT
				u.attempt_id, u.template_id, u.student_id,
				u.total_score, u.total_possible, u.percentage, u.passed,
				u.report::jsonb, u.created_at
			FROM UNNEST(
				$1::uuid[],
				$2::uuid[],
				$3::int[],
				$4::int[],
				$5::int[],
				$6::float8[],
				$7::bool[],
				$8::text[],
				$9::timestamptz[]
			) AS u (
				attempt_id, template_id, student_id,
				total_score, total_possible, percentage, passed,
				report, created_at
			)
			ON CONFLICT (attempt_id) DO NOTHING
			RETURNING template_id, percentage
		)
		UPDATE assessment_templates AS a
		SET completed_count = a.completed_count + t.n,
		    average_score = (a.average_score * a.completed_count + t.sum_pct)
		                    / (a.completed_count + t.n),
		    updated_at = NOW()
		FROM (
			SELECT template_id, COUNT(*) AS n, SUM(percentage) AS sum_pct
			FROM inserted
			GROUP BY template_id
		) AS t
		WHERE a.id = t.template_id
	`

	_, err := w.pool.Exec(ctx, query,
		attemptIDs, templateIDs, students,
		totals, possibles, percentages, passed,
		bodies, createdAts,
	)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single insert
// ----------------------------------------------------------------

func (w *ReportWorker) persistSingle(ctx context.Context, r *model.ScoreReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}

	tag, err := w.pool.Exec(ctx,
		`INSERT INTO score_reports (
			attempt_id, template_id, student_id,
			total_score, total_possible, percentage, passed,
			report, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (attempt_id) DO NOTHING`,
		r.AttemptID, r.TemplateID, r.StudentID,
		r.TotalScore, r.TotalPossible, r.Percentage, r.Passed,
		body,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE assessment_templates
		 SET completed_count = completed_count + 1,
		     average_score = (average_score * completed_count + $1) / (completed_count + 1),
		     updated_at = NOW()
		 WHERE id = $2`,
		r.Percentage, r.TemplateID,
	)
	return err
}
