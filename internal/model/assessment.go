package model

import (
	"time"

	"github.com/google/uuid"
)

// TemplateStatus enumerates the lifecycle states of an assessment template.
type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "DRAFT"
	TemplateStatusActive    TemplateStatus = "ACTIVE"
	TemplateStatusArchived  TemplateStatus = "ARCHIVED"
	TemplateStatusCompleted TemplateStatus = "COMPLETED"
)

// Category is the closed set of assessment categories.
type Category string

const (
	CategoryAptitude    Category = "APTITUDE"
	CategoryCoding      Category = "CODING"
	CategoryTechnical   Category = "TECHNICAL"
	CategoryMathematics Category = "MATHEMATICS"
)

// Difficulty enumerates assessment difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// QuestionGroup is a sub-specification of N questions at a fixed
// marks-per-question, used for generation batching and mark totaling.
type QuestionGroup struct {
	QuestionCount    int `json:"question_count"`
	MarksPerQuestion int `json:"marks_per_question"`
}

// TotalMarks returns the marks this group contributes to the assessment.
func (g QuestionGroup) TotalMarks() int {
	return g.QuestionCount * g.MarksPerQuestion
}

// AssessmentTemplate represents an assessment definition owned by a
// placement officer.
type AssessmentTemplate struct {
	ID               uuid.UUID       `json:"id"`
	Title            string          `json:"title"`
	Subject          string          `json:"subject"`
	Category         Category        `json:"category"`
	Difficulty       Difficulty      `json:"difficulty"`
	DurationMinutes  int             `json:"duration_minutes"`
	PassingPercent   float64         `json:"passing_percent"`
	Instructions     string          `json:"instructions,omitempty"`
	RetakeAllowed    bool            `json:"retake_allowed"`
	ImmediateResults bool            `json:"immediate_results"`
	OpensAt          *time.Time      `json:"opens_at,omitempty"`
	ClosesAt         *time.Time      `json:"closes_at,omitempty"`
	OwnerID          int             `json:"owner_id"`
	Status           TemplateStatus  `json:"status"`
	Groups           []QuestionGroup `json:"groups"`

	// Read-mostly projections, maintained as attempts occur.
	AssignedCount  int64   `json:"assigned_count"`
	CompletedCount int64   `json:"completed_count"`
	AverageScore   float64 `json:"average_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalQuestions returns the question count across all groups.
func (t *AssessmentTemplate) TotalQuestions() int {
	n := 0
	for _, g := range t.Groups {
		n += g.QuestionCount
	}
	return n
}

// TotalMarks returns the maximum attainable marks across all groups.
func (t *AssessmentTemplate) TotalMarks() int {
	n := 0
	for _, g := range t.Groups {
		n += g.TotalMarks()
	}
	return n
}

// WindowOpen reports whether now falls inside the template's open/close
// window. Templates without a window are always open.
func (t *AssessmentTemplate) WindowOpen(now time.Time) bool {
	if t.OpensAt != nil && now.Before(*t.OpensAt) {
		return false
	}
	if t.ClosesAt != nil && now.After(*t.ClosesAt) {
		return false
	}
	return true
}

// CreateAssessmentRequest is the payload for creating a new assessment template.
type CreateAssessmentRequest struct {
	Title            string               `json:"title" binding:"required,min=3,max=255"`
	Subject          string               `json:"subject" binding:"required,min=2,max=255"`
	Category         string               `json:"category" binding:"required,oneof=APTITUDE CODING TECHNICAL MATHEMATICS"`
	Difficulty       string               `json:"difficulty" binding:"required,oneof=EASY MEDIUM HARD"`
	DurationMinutes  int                  `json:"duration_minutes" binding:"required,min=1,max=480"`
	PassingPercent   float64              `json:"passing_percent" binding:"min=0,max=100"`
	Instructions     string               `json:"instructions" binding:"omitempty,max=5000"`
	RetakeAllowed    bool                 `json:"retake_allowed"`
	ImmediateResults bool                 `json:"immediate_results"`
	OpensAt          *time.Time           `json:"opens_at" binding:"omitempty"`
	ClosesAt         *time.Time           `json:"closes_at" binding:"omitempty,gtfield=OpensAt"`
	Groups           []QuestionGroupInput `json:"groups" binding:"required,min=1,dive"`
}

// QuestionGroupInput is the request shape of a question group.
type QuestionGroupInput struct {
	QuestionCount    int `json:"question_count" binding:"required,min=1,max=200"`
	MarksPerQuestion int `json:"marks_per_question" binding:"required,min=1,max=100"`
}

// UpdateAssessmentRequest is the payload for updating a draft template.
type UpdateAssessmentRequest struct {
	Title            string               `json:"title" binding:"omitempty,min=3,max=255"`
	Subject          string               `json:"subject" binding:"omitempty,min=2,max=255"`
	Difficulty       string               `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD"`
	DurationMinutes  *int                 `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	PassingPercent   *float64             `json:"passing_percent" binding:"omitempty,min=0,max=100"`
	Instructions     *string              `json:"instructions" binding:"omitempty,max=5000"`
	RetakeAllowed    *bool                `json:"retake_allowed"`
	ImmediateResults *bool                `json:"immediate_results"`
	OpensAt          *time.Time           `json:"opens_at" binding:"omitempty"`
	ClosesAt         *time.Time           `json:"closes_at" binding:"omitempty"`
	Groups           []QuestionGroupInput `json:"groups" binding:"omitempty,min=1,dive"`
}
