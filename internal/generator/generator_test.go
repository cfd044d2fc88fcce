package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollaborator scripts one response (or error) per call.
type fakeCollaborator struct {
	questions []GeneratedQuestion
	err       error
	calls     int
}

func (f *fakeCollaborator) GenerateQuestions(_ context.Context, _ Request) ([]GeneratedQuestion, error) {
	f.calls++
	return f.questions, f.err
}

func validQuestions(n int) []GeneratedQuestion {
	qs := make([]GeneratedQuestion, n)
	for i := range qs {
		qs[i] = GeneratedQuestion{
			QuestionText:  "What is the capital of France?",
			Options:       []string{"Paris", "Lyon", "Nice", "Lille"},
			CorrectAnswer: 0,
			Explanation:   "Paris is the capital.",
		}
	}
	return qs
}

func testTemplate(groups ...model.QuestionGroup) *model.AssessmentTemplate {
	return &model.AssessmentTemplate{
		ID:         uuid.New(),
		Title:      "Campus drive screening",
		Subject:    "General",
		Category:   model.CategoryTechnical,
		Difficulty: model.DifficultyMedium,
		Groups:     groups,
	}
}

func newGenerator(collab Collaborator) *Generator {
	return New(collab, time.Second, zerolog.Nop())
}

func TestGenerateUsesCollaborator(t *testing.T) {
	collab := &fakeCollaborator{questions: validQuestions(3)}
	g := newGenerator(collab)
	tpl := testTemplate(model.QuestionGroup{QuestionCount: 3, MarksPerQuestion: 2})

	questions := g.Generate(context.Background(), tpl)

	require.Len(t, questions, 3)
	assert.Equal(t, 1, collab.calls)
	for i, q := range questions {
		assert.Equal(t, tpl.ID, q.TemplateID)
		assert.Equal(t, i, q.OrderNum)
		assert.Equal(t, 2, q.Marks)
		assert.Equal(t, "What is the capital of France?", q.Text)
	}
}

func TestGenerateFallbackOnError(t *testing.T) {
	collab := &fakeCollaborator{err: errors.New("connection refused")}
	g := newGenerator(collab)
	tpl := testTemplate(model.QuestionGroup{QuestionCount: 7, MarksPerQuestion: 1})

	questions := g.Generate(context.Background(), tpl)

	require.Len(t, questions, 7)
	for _, q := range questions {
		assert.NotEmpty(t, q.Text)
		assert.Len(t, q.Options, model.OptionCount)
		assert.GreaterOrEqual(t, q.CorrectIndex, 0)
		assert.Less(t, q.CorrectIndex, model.OptionCount)
	}
}

func TestGenerateFallbackOnMalformedResponse(t *testing.T) {
	cases := map[string][]GeneratedQuestion{
		"wrong count": validQuestions(2),
		"empty":       nil,
		"three options": {{
			QuestionText:  "q",
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: 0,
		}},
		"index out of range": {{
			QuestionText:  "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 4,
		}, validQuestions(1)[0], validQuestions(1)[0]},
		"missing text": {{
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 1,
		}, validQuestions(1)[0], validQuestions(1)[0]},
	}

	for name, scripted := range cases {
		t.Run(name, func(t *testing.T) {
			g := newGenerator(&fakeCollaborator{questions: scripted})
			tpl := testTemplate(model.QuestionGroup{QuestionCount: 3, MarksPerQuestion: 2})

			questions := g.Generate(context.Background(), tpl)

			// Fallback guarantee: exactly the requested count, all valid.
			require.Len(t, questions, 3)
			for _, q := range questions {
				assert.NotEmpty(t, q.Text)
				assert.Len(t, q.Options, model.OptionCount)
			}
		})
	}
}

func TestGenerateFallbackDeterministic(t *testing.T) {
	g := newGenerator(&fakeCollaborator{err: errors.New("down")})
	tpl := testTemplate(model.QuestionGroup{QuestionCount: 5, MarksPerQuestion: 3})

	first := g.Generate(context.Background(), tpl)
	second := g.Generate(context.Background(), tpl)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Options, second[i].Options)
		assert.Equal(t, first[i].CorrectIndex, second[i].CorrectIndex)
	}
}

func TestGenerateNilCollaborator(t *testing.T) {
	g := newGenerator(nil)
	tpl := testTemplate(
		model.QuestionGroup{QuestionCount: 2, MarksPerQuestion: 5},
		model.QuestionGroup{QuestionCount: 4, MarksPerQuestion: 1},
	)

	questions := g.Generate(context.Background(), tpl)

	require.Len(t, questions, 6)
	assert.Equal(t, 5, questions[0].Marks)
	assert.Equal(t, 0, questions[0].GroupIndex)
	assert.Equal(t, 1, questions[2].Marks)
	assert.Equal(t, 1, questions[2].GroupIndex)
	// Order numbers run across groups.
	for i, q := range questions {
		assert.Equal(t, i, q.OrderNum)
	}
}

func TestGenerateMultiGroupMarks(t *testing.T) {
	collab := &fakeCollaborator{questions: validQuestions(3)}
	g := newGenerator(collab)
	tpl := testTemplate(
		model.QuestionGroup{QuestionCount: 3, MarksPerQuestion: 2},
		model.QuestionGroup{QuestionCount: 3, MarksPerQuestion: 4},
	)

	questions := g.Generate(context.Background(), tpl)

	require.Len(t, questions, 6)
	assert.Equal(t, 2, collab.calls)
	total := 0
	for _, q := range questions {
		total += q.Marks
	}
	assert.Equal(t, tpl.TotalMarks(), total)
}
