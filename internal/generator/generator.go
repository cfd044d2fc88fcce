// Package generator turns an assessment template's question groups into a
// concrete ordered question list. Content comes from an external
// text-generation collaborator; any failure there falls back to the fixed
// bank in qbank, so generation never blocks template availability.
package generator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/placehub/placement-backend/internal/qbank"
	"github.com/rs/zerolog"
)

// Request describes one question group's generation batch.
type Request struct {
	Subject          string
	Category         model.Category
	Difficulty       model.Difficulty
	Count            int
	MarksPerQuestion int
}

// GeneratedQuestion is the machine-parseable shape the collaborator must
// return. Treated as untrusted input and validated before use.
type GeneratedQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Collaborator produces question content for a generation request.
type Collaborator interface {
	GenerateQuestions(ctx context.Context, req Request) ([]GeneratedQuestion, error)
}

// Generator builds question lists for assessment templates.
type Generator struct {
	collab  Collaborator
	timeout time.Duration
	log     zerolog.Logger
}

// New creates a Generator. A nil collaborator is allowed and routes every
// group straight to the fallback bank.
func New(collab Collaborator, timeout time.Duration, log zerolog.Logger) *Generator {
	return &Generator{
		collab:  collab,
		timeout: timeout,
		log:     log.With().Str("component", "generator").Logger(),
	}
}

// Generate produces exactly the requested question count for every group of
// the template, preserving per-group marks. It never returns an error:
// collaborator failures and malformed responses are absorbed into the
// fallback path per group.
func (g *Generator) Generate(ctx context.Context, template *model.AssessmentTemplate) []model.Question {
	questions := make([]model.Question, 0, template.TotalQuestions())
	order := 0

	for gi, group := range template.Groups {
		req := Request{
			Subject:          template.Subject,
			Category:         template.Category,
			Difficulty:       template.Difficulty,
			Count:            group.QuestionCount,
			MarksPerQuestion: group.MarksPerQuestion,
		}

		for _, gq := range g.generateGroup(ctx, req) {
			questions = append(questions, model.Question{
				ID:           uuid.New(),
				TemplateID:   template.ID,
				GroupIndex:   gi,
				OrderNum:     order,
				Text:         gq.QuestionText,
				Options:      gq.Options,
				CorrectIndex: gq.CorrectAnswer,
				Marks:        group.MarksPerQuestion,
				Difficulty:   template.Difficulty,
				Category:     template.Category,
				Explanation:  gq.Explanation,
			})
			order++
		}
	}

	return questions
}

// generateGroup returns exactly req.Count validated questions, from the
// collaborator when possible and from the fallback bank otherwise.
func (g *Generator) generateGroup(ctx context.Context, req Request) []GeneratedQuestion {
	if g.collab == nil {
		return fallbackGroup(req)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	generated, err := g.collab.GenerateQuestions(callCtx, req)
	if err != nil {
		g.log.Warn().Err(err).
			Str("category", string(req.Category)).
			Int("count", req.Count).
			Msg("Collaborator call failed, using fallback bank")
		return fallbackGroup(req)
	}

	if err := validate(generated, req.Count); err != nil {
		g.log.Warn().Err(err).
			Str("category", string(req.Category)).
			Msg("Collaborator response malformed, using fallback bank")
		return fallbackGroup(req)
	}

	return generated
}

func fallbackGroup(req Request) []GeneratedQuestion {
	seeds := qbank.Fallback(req.Category, req.Count)
	generated := make([]GeneratedQuestion, len(seeds))
	for i, s := range seeds {
		generated[i] = GeneratedQuestion{
			QuestionText:  s.Text,
			Options:       s.Options[:],
			CorrectAnswer: s.CorrectIndex,
			Explanation:   s.Explanation,
		}
	}
	return generated
}

func validate(generated []GeneratedQuestion, want int) error {
	if len(generated) != want {
		return errCount{got: len(generated), want: want}
	}
	for i, gq := range generated {
		if gq.QuestionText == "" {
			return errMalformed{index: i, reason: "empty question text"}
		}
		if len(gq.Options) != model.OptionCount {
			return errMalformed{index: i, reason: "wrong option count"}
		}
		for _, opt := range gq.Options {
			if opt == "" {
				return errMalformed{index: i, reason: "empty option"}
			}
		}
		if gq.CorrectAnswer < 0 || gq.CorrectAnswer >= model.OptionCount {
			return errMalformed{index: i, reason: "correct answer out of range"}
		}
	}
	return nil
}
