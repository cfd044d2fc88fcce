package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placehub/placement-backend/internal/model"
)

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, template_id, student_id, status, started_at,
	submitted_at, time_remaining, current_index, answers`

func scanAttempt(row interface{ Scan(...any) error }) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	var answers []byte
	err := row.Scan(&a.ID, &a.TemplateID, &a.StudentID, &a.Status, &a.StartedAt,
		&a.SubmittedAt, &a.TimeRemaining, &a.CurrentIndex, &answers)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return a, nil
}

// Create inserts a new attempt. A partial unique index on
// (template_id, student_id) WHERE status = 'IN_PROGRESS' backs the
// one-active-attempt invariant at the storage layer as well.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_attempts
		   (id, template_id, student_id, status, started_at, time_remaining,
		    current_index, answers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TemplateID, a.StudentID, a.Status, a.StartedAt,
		a.TimeRemaining, a.CurrentIndex, answers)
	return err
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id))
}

// GetActive retrieves the in-progress attempt for a template-student pair.
func (r *AttemptRepository) GetActive(ctx context.Context, templateID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE template_id = $1 AND student_id = $2 AND status = $3`,
		templateID, studentID, model.AttemptStatusInProgress))
}

// ListActive returns every in-progress attempt. Used on startup to rehydrate
// the session engine after a restart.
func (r *AttemptRepository) ListActive(ctx context.Context) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE status = $1`,
		model.AttemptStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// HasSubmitted reports whether the pair has a submitted attempt.
func (r *AttemptRepository) HasSubmitted(ctx context.Context, templateID uuid.UUID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM exam_attempts
		   WHERE template_id = $1 AND student_id = $2 AND status = $3)`,
		templateID, studentID, model.AttemptStatusSubmitted).Scan(&exists)
	return exists, err
}

// CountUnsubmitted returns how many attempts against the template are not
// yet submitted. Guards template deletion.
func (r *AttemptRepository) CountUnsubmitted(ctx context.Context, templateID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts
		 WHERE template_id = $1 AND status <> $2`,
		templateID, model.AttemptStatusSubmitted).Scan(&count)
	return count, err
}

// SaveProgress persists the mutable attempt fields (answers, pointer,
// remaining time) for resume-after-reload.
func (r *AttemptRepository) SaveProgress(ctx context.Context, a *model.ExamAttempt) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET answers = $1, current_index = $2, time_remaining = $3
		 WHERE id = $4`,
		answers, a.CurrentIndex, a.TimeRemaining, a.ID)
	return err
}

// MarkSubmitted records the terminal transition of an attempt.
func (r *AttemptRepository) MarkSubmitted(ctx context.Context, a *model.ExamAttempt) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, submitted_at = $2, time_remaining = $3, answers = $4
		 WHERE id = $5`,
		model.AttemptStatusSubmitted, a.SubmittedAt, a.TimeRemaining, answers, a.ID)
	return err
}

// SaveReport upserts the score report of a submitted attempt.
func (r *AttemptRepository) SaveReport(ctx context.Context, report *model.ScoreReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO score_reports
		   (attempt_id, template_id, student_id, total_score, total_possible,
		    percentage, passed, report)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (attempt_id) DO NOTHING`,
		report.AttemptID, report.TemplateID, report.StudentID, report.TotalScore,
		report.TotalPossible, report.Percentage, report.Passed, body)
	return err
}

// GetReport retrieves the stored score report for an attempt.
func (r *AttemptRepository) GetReport(ctx context.Context, attemptID uuid.UUID) (*model.ScoreReport, error) {
	var body []byte
	err := r.pool.QueryRow(ctx,
		`SELECT report FROM score_reports WHERE attempt_id = $1`, attemptID).Scan(&body)
	if err != nil {
		return nil, err
	}
	report := &model.ScoreReport{}
	if err := json.Unmarshal(body, report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, nil
}

// ListByTemplate retrieves paginated attempt results for an officer view.
func (r *AttemptRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID, page, perPage int) ([]model.AttemptResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE template_id = $1`,
		templateID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.student_id, a.status, a.started_at, a.submitted_at,
		        r.total_score, r.percentage, r.passed
		 FROM exam_attempts a
		 LEFT JOIN score_reports r ON r.attempt_id = a.id
		 WHERE a.template_id = $1
		 ORDER BY a.started_at DESC
		 LIMIT $2 OFFSET $3`,
		templateID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.AttemptResult
	for rows.Next() {
		var res model.AttemptResult
		if err := rows.Scan(&res.AttemptID, &res.StudentID, &res.Status,
			&res.StartedAt, &res.SubmittedAt, &res.TotalScore, &res.Percentage,
			&res.Passed); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
