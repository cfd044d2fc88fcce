// Package scoring grades submitted exam attempts. Score is a pure function:
// it performs no IO and no randomness, so rescoring the same attempt against
// the same answer key always reproduces an identical report.
package scoring

import (
	"github.com/placehub/placement-backend/internal/model"
)

// Score grades a submitted attempt against the question list of its template.
// A question with no recorded selection is always scored as incorrect. Marks
// are awarded all-or-nothing on exact match; the percentage is left unrounded.
// Categories appear in the breakdown in first-appearance order of the
// question list, which keeps the output stable across reruns.
func Score(attempt *model.ExamAttempt, questions []model.Question, passingPercent float64) *model.ScoreReport {
	report := &model.ScoreReport{
		AttemptID:   attempt.ID,
		TemplateID:  attempt.TemplateID,
		StudentID:   attempt.StudentID,
		PerQuestion: make([]model.QuestionResult, 0, len(questions)),
	}

	// Selections indexed by question, so answer order never affects grading.
	selected := make(map[string]*int, len(attempt.Answers))
	for _, rec := range attempt.Answers {
		selected[rec.QuestionID.String()] = rec.Selected
	}

	catIndex := make(map[model.Category]int)

	for _, q := range questions {
		sel := selected[q.ID.String()]
		correct := sel != nil && *sel == q.CorrectIndex

		awarded := 0
		if correct {
			awarded = q.Marks
		}

		report.TotalScore += awarded
		report.TotalPossible += q.Marks
		report.PerQuestion = append(report.PerQuestion, model.QuestionResult{
			QuestionID:   q.ID,
			Selected:     sel,
			CorrectIndex: q.CorrectIndex,
			Correct:      correct,
			MarksAwarded: awarded,
			Marks:        q.Marks,
			Category:     q.Category,
		})

		i, ok := catIndex[q.Category]
		if !ok {
			i = len(report.Categories)
			catIndex[q.Category] = i
			report.Categories = append(report.Categories, model.CategoryBreakdown{Category: q.Category})
		}
		report.Categories[i].Total++
		report.Categories[i].MarksPossible += q.Marks
		report.Categories[i].MarksAwarded += awarded
		if correct {
			report.Categories[i].Correct++
		}
	}

	if report.TotalPossible > 0 {
		report.Percentage = float64(report.TotalScore) / float64(report.TotalPossible) * 100
	}
	report.Passed = report.Percentage >= passingPercent

	return report
}
