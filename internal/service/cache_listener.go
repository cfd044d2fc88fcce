package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/placehub/placement-backend/internal/config"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PayloadCacheListener keeps the Redis "fast lane" in sync with template
// transitions: publishing warms the student payload; archive, completion,
// and deletion evict it. Registered on the AssessmentService at startup.
type PayloadCacheListener struct {
	questions QuestionStore
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewPayloadCacheListener creates the cache-warming listener.
func NewPayloadCacheListener(questions QuestionStore, rdb *redis.Client, log zerolog.Logger) *PayloadCacheListener {
	return &PayloadCacheListener{
		questions: questions,
		rdb:       rdb,
		log:       log.With().Str("component", "payload_cache").Logger(),
	}
}

// OnTemplateTransition implements TemplateListener.
func (l *PayloadCacheListener) OnTemplateTransition(ctx context.Context, event TemplateEvent) {
	switch event.Transition {
	case TransitionPublished:
		if err := l.Warm(ctx, event.Template); err != nil {
			l.log.Warn().Err(err).
				Str("template_id", event.Template.ID.String()).
				Msg("Cache warm failed")
		}
	case TransitionArchived, TransitionCompleted, TransitionDeleted:
		l.evict(ctx, event.Template)
	}
}

// Warm builds a template's student payload from the question store and
// caches it in Redis. Also used for prewarming all active templates on
// startup. Correct answers never enter the cache; scoring reads the question
// list from storage.
func (l *PayloadCacheListener) Warm(ctx context.Context, template *model.AssessmentTemplate) error {
	questions, err := l.questions.ListByTemplate(ctx, template.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return fmt.Errorf("template has no questions")
	}

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		studentQuestions[i] = model.QuestionForStudent{
			ID:       q.ID,
			OrderNum: q.OrderNum,
			Text:     q.Text,
			Options:  q.Options,
			Marks:    q.Marks,
		}
	}

	payload := model.AssessmentPayload{
		TemplateID:      template.ID,
		Title:           template.Title,
		Instructions:    template.Instructions,
		DurationMinutes: template.DurationMinutes,
		TotalMarks:      template.TotalMarks(),
		Questions:       studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	id := template.ID.String()
	if err := l.rdb.Set(ctx, config.CacheKey.AssessmentPayloadKey(id), payloadJSON, 0).Err(); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	l.log.Debug().
		Str("template_id", id).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAll loads every ACTIVE template into Redis. Run before accepting
// traffic so the first students never hit a cold cache.
func (l *PayloadCacheListener) PrewarmAll(ctx context.Context, templates TemplateStore) error {
	active, err := templates.ListByStatus(ctx, model.TemplateStatusActive)
	if err != nil {
		return fmt.Errorf("list active templates: %w", err)
	}

	warmed := 0
	for i := range active {
		if err := l.Warm(ctx, &active[i]); err != nil {
			l.log.Warn().Err(err).
				Str("template_id", active[i].ID.String()).
				Msg("Failed to warm template, skipping")
			continue
		}
		warmed++
	}

	l.log.Info().
		Int("warmed", warmed).
		Int("total", len(active)).
		Msg("Prewarming complete")
	return nil
}

func (l *PayloadCacheListener) evict(ctx context.Context, template *model.AssessmentTemplate) {
	id := template.ID.String()
	if err := l.rdb.Del(ctx, config.CacheKey.AssessmentPayloadKey(id)).Err(); err != nil {
		l.log.Warn().Err(err).Str("template_id", id).Msg("Cache evict failed")
	}
}

// GetPayload retrieves the cached student payload for a template.
func (l *PayloadCacheListener) GetPayload(ctx context.Context, templateID string) (*model.AssessmentPayload, error) {
	data, err := l.rdb.Get(ctx, config.CacheKey.AssessmentPayloadKey(templateID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("assessment not published or payload not cached")
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.AssessmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}
