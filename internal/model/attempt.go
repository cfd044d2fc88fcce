package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states.
type AttemptStatus string

const (
	AttemptStatusNotStarted AttemptStatus = "NOT_STARTED"
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
)

// AnswerRecord is one question's recorded state within an attempt.
// A nil Selected means the question is unanswered.
type AnswerRecord struct {
	QuestionID       uuid.UUID `json:"question_id"`
	Selected         *int      `json:"selected,omitempty"`
	Marked           bool      `json:"marked"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
}

// ExamAttempt represents one student's single run through a template.
type ExamAttempt struct {
	ID          uuid.UUID      `json:"id"`
	TemplateID  uuid.UUID      `json:"template_id"`
	StudentID   int            `json:"student_id"`
	Status      AttemptStatus  `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	// TimeRemaining is the server-authoritative countdown in seconds.
	// It never increases and never goes below zero.
	TimeRemaining int            `json:"time_remaining"`
	CurrentIndex  int            `json:"current_index"`
	Answers       []AnswerRecord `json:"answers"`
}

// Answered returns how many questions have a recorded selection.
func (a *ExamAttempt) Answered() int {
	n := 0
	for _, rec := range a.Answers {
		if rec.Selected != nil {
			n++
		}
	}
	return n
}

// AttemptResult is one row of an officer-facing results listing.
type AttemptResult struct {
	AttemptID   uuid.UUID     `json:"attempt_id"`
	StudentID   int           `json:"student_id"`
	Status      AttemptStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	TotalScore  *int          `json:"total_score,omitempty"`
	Percentage  *float64      `json:"percentage,omitempty"`
	Passed      *bool         `json:"passed,omitempty"`
}

// SelectAnswerRequest is the payload for recording an answer.
type SelectAnswerRequest struct {
	QuestionIndex int `json:"question_index" binding:"min=0"`
	OptionIndex   int `json:"option_index" binding:"min=0,max=3"`
}

// ToggleMarkRequest is the payload for flipping the review flag.
type ToggleMarkRequest struct {
	QuestionIndex int `json:"question_index" binding:"min=0"`
}

// NavigateRequest is the payload for moving the current-question pointer.
type NavigateRequest struct {
	QuestionIndex int `json:"question_index" binding:"min=0"`
}
