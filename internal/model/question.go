package model

import (
	"github.com/google/uuid"
)

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// Question represents a single-best-answer multiple choice question.
// Questions are immutable once an attempt has started against their
// parent template.
type Question struct {
	ID           uuid.UUID  `json:"id"`
	TemplateID   uuid.UUID  `json:"template_id"`
	GroupIndex   int        `json:"group_index"`
	OrderNum     int        `json:"order_num"`
	Text         string     `json:"text"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correct_index"`
	Marks        int        `json:"marks"`
	Difficulty   Difficulty `json:"difficulty"`
	Category     Category   `json:"category"`
	Explanation  string     `json:"explanation,omitempty"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID       uuid.UUID `json:"id"`
	OrderNum int       `json:"order_num"`
	Text     string    `json:"text"`
	Options  []string  `json:"options"`
	Marks    int       `json:"marks"`
}

// AssessmentPayload is the cached paper sent to a student who began an attempt.
type AssessmentPayload struct {
	TemplateID      uuid.UUID            `json:"template_id"`
	Title           string               `json:"title"`
	Instructions    string               `json:"instructions,omitempty"`
	DurationMinutes int                  `json:"duration_minutes"`
	TotalMarks      int                  `json:"total_marks"`
	Questions       []QuestionForStudent `json:"questions"`
}
