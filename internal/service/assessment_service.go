package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/placehub/placement-backend/internal/generator"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/placehub/placement-backend/internal/response"
	"github.com/rs/zerolog"
)

// Transition names carried on template change events.
type Transition string

const (
	TransitionCreated     Transition = "created"
	TransitionPublished   Transition = "published"
	TransitionArchived    Transition = "archived"
	TransitionCompleted   Transition = "completed"
	TransitionDeleted     Transition = "deleted"
	TransitionRegenerated Transition = "regenerated"
)

// TemplateEvent describes one lifecycle transition of a template.
type TemplateEvent struct {
	Template   *model.AssessmentTemplate
	Transition Transition
}

// TemplateListener receives template transitions. Notification is
// synchronous: a transition is complete once every listener returned.
type TemplateListener interface {
	OnTemplateTransition(ctx context.Context, event TemplateEvent)
}

// AssessmentService owns the assessment template lifecycle
// (draft → active → archived/completed) and question generation.
type AssessmentService struct {
	templates TemplateStore
	questions QuestionStore
	attempts  AttemptStore
	gen       *generator.Generator
	log       zerolog.Logger

	listenerMu sync.RWMutex
	listeners  []TemplateListener
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(
	templates TemplateStore,
	questions QuestionStore,
	attempts AttemptStore,
	gen *generator.Generator,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		templates: templates,
		questions: questions,
		attempts:  attempts,
		gen:       gen,
		log:       log.With().Str("component", "assessment_service").Logger(),
	}
}

// Subscribe registers a listener for template transitions.
func (s *AssessmentService) Subscribe(l TemplateListener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Unsubscribe removes a previously registered listener.
func (s *AssessmentService) Unsubscribe(l TemplateListener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for i, registered := range s.listeners {
		if registered == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *AssessmentService) notify(ctx context.Context, t *model.AssessmentTemplate, transition Transition) {
	s.listenerMu.RLock()
	listeners := make([]TemplateListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()

	for _, l := range listeners {
		l.OnTemplateTransition(ctx, TemplateEvent{Template: t, Transition: transition})
	}
}

// Create validates the group layout and inserts a new DRAFT template with zero
// aggregate counters.
func (s *AssessmentService) Create(ctx context.Context, ownerID int, req *model.CreateAssessmentRequest) (*model.AssessmentTemplate, error) {
	if len(req.Groups) == 0 {
		return nil, ErrInvalidSpec
	}
	groups := make([]model.QuestionGroup, len(req.Groups))
	for i, g := range req.Groups {
		if g.QuestionCount <= 0 || g.MarksPerQuestion <= 0 {
			return nil, ErrInvalidSpec
		}
		groups[i] = model.QuestionGroup{
			QuestionCount:    g.QuestionCount,
			MarksPerQuestion: g.MarksPerQuestion,
		}
	}

	template := &model.AssessmentTemplate{
		Title:            req.Title,
		Subject:          req.Subject,
		Category:         model.Category(req.Category),
		Difficulty:       model.Difficulty(req.Difficulty),
		DurationMinutes:  req.DurationMinutes,
		PassingPercent:   req.PassingPercent,
		Instructions:     req.Instructions,
		RetakeAllowed:    req.RetakeAllowed,
		ImmediateResults: req.ImmediateResults,
		OpensAt:          req.OpensAt,
		ClosesAt:         req.ClosesAt,
		OwnerID:          ownerID,
		Status:           model.TemplateStatusDraft,
		Groups:           groups,
	}

	if err := s.templates.Create(ctx, template); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	s.notify(ctx, template, TransitionCreated)
	return template, nil
}

// GetByID retrieves a template.
func (s *AssessmentService) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentTemplate, error) {
	t, err := s.templates.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

// ListByOwner retrieves templates, filtered by owner when ownerID > 0.
func (s *AssessmentService) ListByOwner(ctx context.Context, ownerID, page, perPage int) ([]model.AssessmentTemplate, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	templates, total, err := s.templates.ListByOwnerPaginated(ctx, ownerID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if templates == nil {
		templates = []model.AssessmentTemplate{}
	}

	return templates, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// ListOpen returns ACTIVE templates whose window is currently open, for the
// student-facing listing.
func (s *AssessmentService) ListOpen(ctx context.Context) ([]model.AssessmentTemplate, error) {
	active, err := s.templates.ListByStatus(ctx, model.TemplateStatusActive)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	open := make([]model.AssessmentTemplate, 0, len(active))
	for _, t := range active {
		if t.WindowOpen(now) {
			open = append(open, t)
		}
	}
	return open, nil
}

// Update modifies a draft template. Editing the question groups discards any
// previously generated questions for the template; the officer regenerates.
func (s *AssessmentService) Update(ctx context.Context, ownerID int, id uuid.UUID, req *model.UpdateAssessmentRequest) (*model.AssessmentTemplate, error) {
	template, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if template.Status != model.TemplateStatusDraft {
		return nil, ErrInvalidTransition
	}

	if req.Title != "" {
		template.Title = req.Title
	}
	if req.Subject != "" {
		template.Subject = req.Subject
	}
	if req.Difficulty != "" {
		template.Difficulty = model.Difficulty(req.Difficulty)
	}
	if req.DurationMinutes != nil {
		template.DurationMinutes = *req.DurationMinutes
	}
	if req.PassingPercent != nil {
		template.PassingPercent = *req.PassingPercent
	}
	if req.Instructions != nil {
		template.Instructions = *req.Instructions
	}
	if req.RetakeAllowed != nil {
		template.RetakeAllowed = *req.RetakeAllowed
	}
	if req.ImmediateResults != nil {
		template.ImmediateResults = *req.ImmediateResults
	}
	if req.OpensAt != nil {
		template.OpensAt = req.OpensAt
	}
	if req.ClosesAt != nil {
		template.ClosesAt = req.ClosesAt
	}

	groupsChanged := false
	if req.Groups != nil {
		groups := make([]model.QuestionGroup, len(req.Groups))
		for i, g := range req.Groups {
			if g.QuestionCount <= 0 || g.MarksPerQuestion <= 0 {
				return nil, ErrInvalidSpec
			}
			groups[i] = model.QuestionGroup{
				QuestionCount:    g.QuestionCount,
				MarksPerQuestion: g.MarksPerQuestion,
			}
		}
		template.Groups = groups
		groupsChanged = true
	}

	if err := s.templates.Update(ctx, template); err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}

	if groupsChanged {
		if err := s.questions.ReplaceForTemplate(ctx, id, nil); err != nil {
			return nil, fmt.Errorf("discard questions: %w", err)
		}
	}

	return template, nil
}

// Generate builds the template's question list via the generator, replacing
// any previously generated questions. Generation is best-effort: the
// generator absorbs collaborator failures into the fallback bank, so this
// fails only on storage errors.
func (s *AssessmentService) Generate(ctx context.Context, ownerID int, id uuid.UUID) ([]model.Question, error) {
	template, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if template.Status != model.TemplateStatusDraft {
		return nil, ErrInvalidTransition
	}

	questions := s.gen.Generate(ctx, template)
	if err := s.questions.ReplaceForTemplate(ctx, id, questions); err != nil {
		return nil, fmt.Errorf("store questions: %w", err)
	}

	s.log.Info().
		Str("template_id", id.String()).
		Int("questions", len(questions)).
		Msg("Questions generated")

	s.notify(ctx, template, TransitionRegenerated)
	return questions, nil
}

// Publish transitions a DRAFT template to ACTIVE. The template's questions
// must already be generated.
func (s *AssessmentService) Publish(ctx context.Context, ownerID int, id uuid.UUID) error {
	template, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if template.Status != model.TemplateStatusDraft {
		return ErrInvalidTransition
	}

	count, err := s.questions.CountByTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if count == 0 {
		return ErrNotReady
	}

	if err := s.templates.UpdateStatus(ctx, id, model.TemplateStatusActive); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	template.Status = model.TemplateStatusActive

	s.log.Info().Str("template_id", id.String()).Msg("Assessment published")
	s.notify(ctx, template, TransitionPublished)
	return nil
}

// Archive transitions an ACTIVE or DRAFT template to ARCHIVED.
func (s *AssessmentService) Archive(ctx context.Context, ownerID int, id uuid.UUID) error {
	template, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if template.Status != model.TemplateStatusActive && template.Status != model.TemplateStatusDraft {
		return ErrInvalidTransition
	}

	if err := s.templates.UpdateStatus(ctx, id, model.TemplateStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	template.Status = model.TemplateStatusArchived

	s.log.Info().Str("template_id", id.String()).Msg("Assessment archived")
	s.notify(ctx, template, TransitionArchived)
	return nil
}

// Delete removes a DRAFT or ARCHIVED template, refusing while any attempt
// against it is not yet submitted.
func (s *AssessmentService) Delete(ctx context.Context, ownerID int, id uuid.UUID) error {
	template, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if template.Status != model.TemplateStatusDraft && template.Status != model.TemplateStatusArchived {
		return ErrInvalidTransition
	}

	open, err := s.attempts.CountUnsubmitted(ctx, id)
	if err != nil {
		return fmt.Errorf("count attempts: %w", err)
	}
	if open > 0 {
		return ErrInFlightAttempts
	}

	if err := s.templates.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	s.log.Info().Str("template_id", id.String()).Msg("Assessment deleted")
	s.notify(ctx, template, TransitionDeleted)
	return nil
}

// CompleteExpired transitions every ACTIVE template whose close window has
// elapsed to COMPLETED. Called periodically by the window sweeper.
func (s *AssessmentService) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.templates.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	completed := 0
	for i := range expired {
		t := &expired[i]
		if err := s.templates.UpdateStatus(ctx, t.ID, model.TemplateStatusCompleted); err != nil {
			s.log.Warn().Err(err).Str("template_id", t.ID.String()).Msg("Failed to complete template")
			continue
		}
		t.Status = model.TemplateStatusCompleted
		s.notify(ctx, t, TransitionCompleted)
		completed++
	}
	return completed, nil
}

// Questions returns the generated question list of a template.
func (s *AssessmentService) Questions(ctx context.Context, ownerID int, id uuid.UUID) ([]model.Question, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.questions.ListByTemplate(ctx, id)
}

// Results returns the paginated per-student outcome listing of a template.
func (s *AssessmentService) Results(ctx context.Context, ownerID int, id uuid.UUID, page, perPage int) ([]model.AttemptResult, *response.Pagination, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	results, total, err := s.attempts.ListByTemplate(ctx, id, page, perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list results: %w", err)
	}

	totalPages := int(total) / perPage
	if int(total)%perPage != 0 {
		totalPages++
	}
	return results, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}, nil
}

// owned loads a template and verifies ownership. ownerID 0 bypasses the
// check (trusted internal callers).
func (s *AssessmentService) owned(ctx context.Context, ownerID int, id uuid.UUID) (*model.AssessmentTemplate, error) {
	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	if ownerID != 0 && template.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return template, nil
}
