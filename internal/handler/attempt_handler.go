package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/placehub/placement-backend/internal/middleware"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/placehub/placement-backend/internal/response"
	"github.com/placehub/placement-backend/internal/service"
	"github.com/placehub/placement-backend/internal/validator"
)

// AttemptHandler handles the student-facing exam endpoints.
type AttemptHandler struct {
	assessmentService *service.AssessmentService
	sessionService    *service.SessionService
	payloadCache      *service.PayloadCacheListener
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	assessmentService *service.AssessmentService,
	sessionService *service.SessionService,
	payloadCache *service.PayloadCacheListener,
) *AttemptHandler {
	return &AttemptHandler{
		assessmentService: assessmentService,
		sessionService:    sessionService,
		payloadCache:      payloadCache,
	}
}

// ListOpenAssessments godoc
// GET /api/v1/student/assessments
// Lists ACTIVE assessments whose window is currently open.
func (h *AttemptHandler) ListOpenAssessments(c *gin.Context) {
	templates, err := h.assessmentService.ListOpen(c.Request.Context())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": templates})
}

// GetPayload godoc
// GET /api/v1/student/assessments/:template_id/payload
// Returns the cached paper (questions without correct answers).
func (h *AttemptHandler) GetPayload(c *gin.Context) {
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	payload, err := h.payloadCache.GetPayload(c.Request.Context(), templateID.String())
	if err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrNotAvailable)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payload": payload})
}

// BeginAttempt godoc
// POST /api/v1/student/assessments/:template_id/attempts
// Starts the student's attempt and the server-side countdown.
func (h *AttemptHandler) BeginAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	attempt, err := h.sessionService.Begin(c.Request.Context(), claims.UserID, templateID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// GetAttemptState godoc
// GET /api/v1/student/assessments/:template_id/attempt
// Returns the open attempt snapshot, resuming it after reload or restart.
func (h *AttemptHandler) GetAttemptState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	attempt, err := h.sessionService.State(c.Request.Context(), claims.UserID, templateID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// SelectAnswer godoc
// POST /api/v1/student/attempts/:attempt_id/answer
func (h *AttemptHandler) SelectAnswer(c *gin.Context) {
	claims, attemptID, ok := h.attemptRequest(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SelectAnswer(c.Request.Context(), attemptID, claims.UserID, req.QuestionIndex, req.OptionIndex); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// ToggleMark godoc
// POST /api/v1/student/attempts/:attempt_id/mark
func (h *AttemptHandler) ToggleMark(c *gin.Context) {
	claims, attemptID, ok := h.attemptRequest(c)
	if !ok {
		return
	}

	var req model.ToggleMarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.ToggleMark(c.Request.Context(), attemptID, claims.UserID, req.QuestionIndex); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// Navigate godoc
// POST /api/v1/student/attempts/:attempt_id/navigate
func (h *AttemptHandler) Navigate(c *gin.Context) {
	claims, attemptID, ok := h.attemptRequest(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Navigate(c.Request.Context(), attemptID, claims.UserID, req.QuestionIndex); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// SubmitAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Submits the attempt. Safe to retry; repeated calls return the same report.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims, attemptID, ok := h.attemptRequest(c)
	if !ok {
		return
	}

	report, err := h.sessionService.Submit(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": h.maybeWithhold(c, report)})
}

// GetReport godoc
// GET /api/v1/student/attempts/:attempt_id/report
func (h *AttemptHandler) GetReport(c *gin.Context) {
	claims, attemptID, ok := h.attemptRequest(c)
	if !ok {
		return
	}

	report, err := h.sessionService.Report(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": h.maybeWithhold(c, report)})
}

// maybeWithhold strips per-question detail when the template withholds
// results until its window closes. The submission acknowledgement survives.
func (h *AttemptHandler) maybeWithhold(c *gin.Context, report *model.ScoreReport) interface{} {
	template, err := h.assessmentService.GetByID(c.Request.Context(), report.TemplateID)
	if err != nil {
		return report
	}
	if template.ImmediateResults || template.Status != model.TemplateStatusActive {
		return report
	}
	return gin.H{
		"attempt_id": report.AttemptID,
		"submitted":  true,
		"withheld":   true,
	}
}

func (h *AttemptHandler) attemptRequest(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, attemptID, true
}
