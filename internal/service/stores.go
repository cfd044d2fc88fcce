package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/placehub/placement-backend/internal/model"
)

// TemplateStore is the persistence surface the services need for assessment
// templates. Satisfied by repository.AssessmentRepository.
type TemplateStore interface {
	Create(ctx context.Context, t *model.AssessmentTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentTemplate, error)
	ListByOwnerPaginated(ctx context.Context, ownerID, limit, offset int) ([]model.AssessmentTemplate, int, error)
	ListByStatus(ctx context.Context, status model.TemplateStatus) ([]model.AssessmentTemplate, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.AssessmentTemplate, error)
	Update(ctx context.Context, t *model.AssessmentTemplate) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.TemplateStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementAssigned(ctx context.Context, id uuid.UUID) error
	RecordCompletion(ctx context.Context, id uuid.UUID, percentage float64) error
}

// QuestionStore is the persistence surface for generated questions.
// Satisfied by repository.QuestionRepository.
type QuestionStore interface {
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]model.Question, error)
	CountByTemplate(ctx context.Context, templateID uuid.UUID) (int, error)
	ReplaceForTemplate(ctx context.Context, templateID uuid.UUID, questions []model.Question) error
}

// AttemptStore is the persistence surface for exam attempts.
// Satisfied by repository.AttemptRepository.
type AttemptStore interface {
	Create(ctx context.Context, a *model.ExamAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	GetActive(ctx context.Context, templateID uuid.UUID, studentID int) (*model.ExamAttempt, error)
	ListActive(ctx context.Context) ([]model.ExamAttempt, error)
	HasSubmitted(ctx context.Context, templateID uuid.UUID, studentID int) (bool, error)
	CountUnsubmitted(ctx context.Context, templateID uuid.UUID) (int, error)
	SaveProgress(ctx context.Context, a *model.ExamAttempt) error
	MarkSubmitted(ctx context.Context, a *model.ExamAttempt) error
	SaveReport(ctx context.Context, report *model.ScoreReport) error
	GetReport(ctx context.Context, attemptID uuid.UUID) (*model.ScoreReport, error)
	ListByTemplate(ctx context.Context, templateID uuid.UUID, page, perPage int) ([]model.AttemptResult, int64, error)
}

// ReportQueue hands finished score reports to the asynchronous persistence
// pipeline. Satisfied by repository.RedisReportQueue.
type ReportQueue interface {
	EnqueueReport(ctx context.Context, report *model.ScoreReport) error
}
