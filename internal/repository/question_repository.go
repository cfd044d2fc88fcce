package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placehub/placement-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTemplate retrieves all questions for a template, ordered by order_num.
func (r *QuestionRepository) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, template_id, group_index, order_num, text, options,
		        correct_index, marks, difficulty, category, explanation
		 FROM questions WHERE template_id = $1
		 ORDER BY order_num`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.TemplateID, &q.GroupIndex, &q.OrderNum,
			&q.Text, &options, &q.CorrectIndex, &q.Marks, &q.Difficulty,
			&q.Category, &q.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountByTemplate returns how many questions a template has.
func (r *QuestionRepository) CountByTemplate(ctx context.Context, templateID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE template_id = $1`, templateID).Scan(&count)
	return count, err
}

// ReplaceForTemplate discards a template's existing questions and inserts the
// new set in one transaction. Regeneration always replaces the full list.
func (r *QuestionRepository) ReplaceForTemplate(ctx context.Context, templateID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM questions WHERE template_id = $1`, templateID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		batch.Queue(
			`INSERT INTO questions
			   (id, template_id, group_index, order_num, text, options,
			    correct_index, marks, difficulty, category, explanation)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			q.ID, q.TemplateID, q.GroupIndex, q.OrderNum, q.Text, options,
			q.CorrectIndex, q.Marks, q.Difficulty, q.Category, q.Explanation)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return tx.Commit(ctx)
}
