package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/placehub/placement-backend/internal/middleware"
	"github.com/placehub/placement-backend/internal/model"
	"github.com/placehub/placement-backend/internal/response"
	"github.com/placehub/placement-backend/internal/service"
	"github.com/placehub/placement-backend/internal/validator"
)

// AssessmentHandler handles the placement-officer assessment endpoints.
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessmentService *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

// ListAssessments godoc
// GET /api/v1/officer/assessments
// Lists the officer's assessment templates with pagination.
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	templates, pagination, err := h.assessmentService.ListByOwner(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"assessments": templates}, pagination)
}

// CreateAssessment godoc
// POST /api/v1/officer/assessments
// Creates a new DRAFT assessment template.
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	template, err := h.assessmentService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assessment": template})
}

// GetAssessment godoc
// GET /api/v1/officer/assessments/:template_id
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	template, err := h.assessmentService.GetByID(c.Request.Context(), templateID)
	if err != nil {
		failService(c, err)
		return
	}
	if template.OwnerID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotOwner)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": template})
}

// UpdateAssessment godoc
// PUT /api/v1/officer/assessments/:template_id
// Updates a DRAFT template. Changing the groups discards any generated bank.
func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	var req model.UpdateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	template, err := h.assessmentService.Update(c.Request.Context(), claims.UserID, templateID, &req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": template})
}

// DeleteAssessment godoc
// DELETE /api/v1/officer/assessments/:template_id
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	if err := h.assessmentService.Delete(c.Request.Context(), claims.UserID, templateID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GenerateQuestions godoc
// POST /api/v1/officer/assessments/:template_id/generate
// Builds (or rebuilds) the question bank for a DRAFT template.
func (h *AssessmentHandler) GenerateQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	questions, err := h.assessmentService.Generate(c.Request.Context(), claims.UserID, templateID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// PublishAssessment godoc
// POST /api/v1/officer/assessments/:template_id/publish
// Moves a DRAFT template with a generated bank to ACTIVE and warms its cache.
func (h *AssessmentHandler) PublishAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	if err := h.assessmentService.Publish(c.Request.Context(), claims.UserID, templateID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.TemplateStatusActive})
}

// ArchiveAssessment godoc
// POST /api/v1/officer/assessments/:template_id/archive
func (h *AssessmentHandler) ArchiveAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	if err := h.assessmentService.Archive(c.Request.Context(), claims.UserID, templateID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.TemplateStatusArchived})
}

// ListQuestions godoc
// GET /api/v1/officer/assessments/:template_id/questions
// Returns the full bank including correct answers. Officer-only.
func (h *AssessmentHandler) ListQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	questions, err := h.assessmentService.Questions(c.Request.Context(), claims.UserID, templateID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ListResults godoc
// GET /api/v1/officer/assessments/:template_id/results
// Lists per-student outcomes with pagination.
func (h *AssessmentHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	templateID, ok := parseTemplateID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	results, pagination, err := h.assessmentService.Results(c.Request.Context(), claims.UserID, templateID, page, perPage)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

func parseTemplateID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("template_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
