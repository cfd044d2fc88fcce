package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func buildQuestions(t *testing.T, n, marks int, category model.Category) []model.Question {
	t.Helper()
	questions := make([]model.Question, n)
	for i := range questions {
		questions[i] = model.Question{
			ID:           uuid.New(),
			Text:         "q",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % model.OptionCount,
			Marks:        marks,
			Category:     category,
		}
	}
	return questions
}

func attemptFor(questions []model.Question) *model.ExamAttempt {
	answers := make([]model.AnswerRecord, len(questions))
	for i, q := range questions {
		answers[i] = model.AnswerRecord{QuestionID: q.ID}
	}
	return &model.ExamAttempt{
		ID:         uuid.New(),
		TemplateID: uuid.New(),
		StudentID:  7,
		Status:     model.AttemptStatusSubmitted,
		Answers:    answers,
	}
}

func TestScoreAllCorrect(t *testing.T) {
	questions := buildQuestions(t, 3, 2, model.CategoryAptitude)
	attempt := attemptFor(questions)
	for i, q := range questions {
		attempt.Answers[i].Selected = intPtr(q.CorrectIndex)
	}

	report := Score(attempt, questions, 40)

	assert.Equal(t, 6, report.TotalScore)
	assert.Equal(t, 6, report.TotalPossible)
	assert.InDelta(t, 100.0, report.Percentage, 1e-9)
	assert.True(t, report.Passed)

	require.Len(t, report.Categories, 1)
	assert.Equal(t, model.CategoryAptitude, report.Categories[0].Category)
	assert.Equal(t, 3, report.Categories[0].Correct)
	assert.Equal(t, 3, report.Categories[0].Total)
	assert.Equal(t, 6, report.Categories[0].MarksAwarded)
}

func TestScorePartiallyCorrect(t *testing.T) {
	questions := buildQuestions(t, 3, 2, model.CategoryCoding)
	attempt := attemptFor(questions)
	// One right, one wrong, one unanswered.
	attempt.Answers[0].Selected = intPtr(questions[0].CorrectIndex)
	attempt.Answers[1].Selected = intPtr((questions[1].CorrectIndex + 1) % model.OptionCount)

	report := Score(attempt, questions, 40)

	assert.Equal(t, 2, report.TotalScore)
	assert.Equal(t, 6, report.TotalPossible)
	assert.InDelta(t, 100.0/3.0, report.Percentage, 1e-9)
	assert.False(t, report.Passed)
}

func TestScoreUnansweredNeverCorrect(t *testing.T) {
	questions := buildQuestions(t, 5, 3, model.CategoryTechnical)
	attempt := attemptFor(questions)

	report := Score(attempt, questions, 0)

	assert.Equal(t, 0, report.TotalScore)
	for _, qr := range report.PerQuestion {
		assert.False(t, qr.Correct)
		assert.Zero(t, qr.MarksAwarded)
	}
	// Threshold 0 means every attempt passes, even with no answers.
	assert.True(t, report.Passed)
}

func TestScoreDeterministic(t *testing.T) {
	questions := append(
		buildQuestions(t, 4, 2, model.CategoryMathematics),
		buildQuestions(t, 3, 5, model.CategoryAptitude)...,
	)
	attempt := attemptFor(questions)
	attempt.Answers[0].Selected = intPtr(questions[0].CorrectIndex)
	attempt.Answers[5].Selected = intPtr(questions[5].CorrectIndex)

	first := Score(attempt, questions, 50)
	second := Score(attempt, questions, 50)

	assert.Equal(t, first, second)
}

func TestScoreCategoryBreakdown(t *testing.T) {
	mathQs := buildQuestions(t, 2, 4, model.CategoryMathematics)
	codeQs := buildQuestions(t, 2, 1, model.CategoryCoding)
	questions := append(mathQs, codeQs...)

	attempt := attemptFor(questions)
	attempt.Answers[0].Selected = intPtr(mathQs[0].CorrectIndex)
	attempt.Answers[2].Selected = intPtr(codeQs[0].CorrectIndex)
	attempt.Answers[3].Selected = intPtr(codeQs[1].CorrectIndex)

	report := Score(attempt, questions, 50)

	require.Len(t, report.Categories, 2)
	assert.Equal(t, model.CategoryMathematics, report.Categories[0].Category)
	assert.Equal(t, 1, report.Categories[0].Correct)
	assert.Equal(t, 8, report.Categories[0].MarksPossible)
	assert.Equal(t, model.CategoryCoding, report.Categories[1].Category)
	assert.Equal(t, 2, report.Categories[1].Correct)
	assert.Equal(t, 2, report.Categories[1].MarksAwarded)

	assert.Equal(t, 6, report.TotalScore)
	assert.Equal(t, 10, report.TotalPossible)
	assert.True(t, report.Passed)
}

func TestScoreEmptyQuestionList(t *testing.T) {
	attempt := attemptFor(nil)

	report := Score(attempt, nil, 40)

	assert.Zero(t, report.TotalScore)
	assert.Zero(t, report.TotalPossible)
	assert.Zero(t, report.Percentage)
	assert.False(t, report.Passed)
}
