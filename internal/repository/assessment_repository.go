package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placehub/placement-backend/internal/model"
)

// AssessmentRepository handles assessment template data access.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

const templateColumns = `id, title, subject, category, difficulty, duration_minutes,
	passing_percent, instructions, retake_allowed, immediate_results,
	opens_at, closes_at, owner_id, status, groups,
	assigned_count, completed_count, average_score, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*model.AssessmentTemplate, error) {
	t := &model.AssessmentTemplate{}
	var groups []byte
	err := row.Scan(&t.ID, &t.Title, &t.Subject, &t.Category, &t.Difficulty,
		&t.DurationMinutes, &t.PassingPercent, &t.Instructions, &t.RetakeAllowed,
		&t.ImmediateResults, &t.OpensAt, &t.ClosesAt, &t.OwnerID, &t.Status,
		&groups, &t.AssignedCount, &t.CompletedCount, &t.AverageScore,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(groups, &t.Groups); err != nil {
		return nil, fmt.Errorf("unmarshal groups: %w", err)
	}
	return t, nil
}

// Create inserts a new assessment template. The ID is assigned here; the
// column carries no database default.
func (r *AssessmentRepository) Create(ctx context.Context, t *model.AssessmentTemplate) error {
	groups, err := json.Marshal(t.Groups)
	if err != nil {
		return fmt.Errorf("marshal groups: %w", err)
	}
	t.ID = uuid.New()
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessment_templates
		   (id, title, subject, category, difficulty, duration_minutes,
		    passing_percent, instructions, retake_allowed, immediate_results,
		    opens_at, closes_at, owner_id, status, groups)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING created_at, updated_at`,
		t.ID, t.Title, t.Subject, t.Category, t.Difficulty, t.DurationMinutes,
		t.PassingPercent, t.Instructions, t.RetakeAllowed, t.ImmediateResults,
		t.OpensAt, t.ClosesAt, t.OwnerID, t.Status, groups,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// GetByID retrieves a template by its UUID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentTemplate, error) {
	return scanTemplate(r.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM assessment_templates WHERE id = $1`, id))
}

// ListByOwnerPaginated retrieves templates filtered by owner with pagination.
// Pass ownerID=0 to list all templates.
func (r *AssessmentRepository) ListByOwnerPaginated(ctx context.Context, ownerID, limit, offset int) ([]model.AssessmentTemplate, int, error) {
	countQuery := `SELECT COUNT(*) FROM assessment_templates`
	query := `SELECT ` + templateColumns + ` FROM assessment_templates`
	var args []any

	if ownerID > 0 {
		countQuery += ` WHERE owner_id = $1`
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var templates []model.AssessmentTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, *t)
	}
	return templates, total, rows.Err()
}

// ListByStatus returns all templates in the given status, newest first.
func (r *AssessmentRepository) ListByStatus(ctx context.Context, status model.TemplateStatus) ([]model.AssessmentTemplate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM assessment_templates
		 WHERE status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []model.AssessmentTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// ListExpired returns ACTIVE templates whose close window elapsed before now.
// Consumed by the window sweeper.
func (r *AssessmentRepository) ListExpired(ctx context.Context, now time.Time) ([]model.AssessmentTemplate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM assessment_templates
		 WHERE status = $1 AND closes_at IS NOT NULL AND closes_at < $2`,
		model.TemplateStatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []model.AssessmentTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// Update modifies an existing template's editable fields.
func (r *AssessmentRepository) Update(ctx context.Context, t *model.AssessmentTemplate) error {
	groups, err := json.Marshal(t.Groups)
	if err != nil {
		return fmt.Errorf("marshal groups: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE assessment_templates
		 SET title = $1, subject = $2, difficulty = $3, duration_minutes = $4,
		     passing_percent = $5, instructions = $6, retake_allowed = $7,
		     immediate_results = $8, opens_at = $9, closes_at = $10, groups = $11,
		     updated_at = NOW()
		 WHERE id = $12`,
		t.Title, t.Subject, t.Difficulty, t.DurationMinutes, t.PassingPercent,
		t.Instructions, t.RetakeAllowed, t.ImmediateResults, t.OpensAt, t.ClosesAt,
		groups, t.ID)
	return err
}

// UpdateStatus updates a template's lifecycle state.
func (r *AssessmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TemplateStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessment_templates SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes a template and its questions (cascade).
func (r *AssessmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM assessment_templates WHERE id = $1`, id)
	return err
}

// IncrementAssigned bumps the assigned-students projection.
func (r *AssessmentRepository) IncrementAssigned(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessment_templates
		 SET assigned_count = assigned_count + 1, updated_at = NOW()
		 WHERE id = $1`, id)
	return err
}

// RecordCompletion folds one submitted attempt's percentage into the
// completed-count and running-average projections in a single statement, so
// concurrent submissions against the same template never lose updates.
func (r *AssessmentRepository) RecordCompletion(ctx context.Context, id uuid.UUID, percentage float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessment_templates
		 SET average_score = (average_score * completed_count + $1) / (completed_count + 1),
		     completed_count = completed_count + 1,
		     updated_at = NOW()
		 WHERE id = $2`, percentage, id)
	return err
}
