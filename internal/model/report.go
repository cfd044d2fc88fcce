package model

import (
	"github.com/google/uuid"
)

// QuestionResult captures per-question correctness in a score report.
type QuestionResult struct {
	QuestionID   uuid.UUID `json:"question_id"`
	Selected     *int      `json:"selected,omitempty"`
	CorrectIndex int       `json:"correct_index"`
	Correct      bool      `json:"correct"`
	MarksAwarded int       `json:"marks_awarded"`
	Marks        int       `json:"marks"`
	Category     Category  `json:"category"`
}

// CategoryBreakdown aggregates correctness per question category.
type CategoryBreakdown struct {
	Category      Category `json:"category"`
	Correct       int      `json:"correct"`
	Total         int      `json:"total"`
	MarksAwarded  int      `json:"marks_awarded"`
	MarksPossible int      `json:"marks_possible"`
}

// ScoreReport is the deterministic grading result of a submitted attempt.
// Recomputing it from the same attempt and answer key must reproduce an
// identical report.
type ScoreReport struct {
	AttemptID     uuid.UUID           `json:"attempt_id"`
	TemplateID    uuid.UUID           `json:"template_id"`
	StudentID     int                 `json:"student_id"`
	TotalScore    int                 `json:"total_score"`
	TotalPossible int                 `json:"total_possible"`
	Percentage    float64             `json:"percentage"`
	Passed        bool                `json:"passed"`
	PerQuestion   []QuestionResult    `json:"per_question"`
	Categories    []CategoryBreakdown `json:"categories"`
}
