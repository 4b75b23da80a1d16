package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/service"
)

// CacheInvalidator drops cached catalog entries of an exam.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, examID uuid.UUID) error
}

// AdminHandler handles administrator endpoints over attempts and results.
type AdminHandler struct {
	attemptService *service.AttemptService
	cache          CacheInvalidator
	log            zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(attemptService *service.AttemptService, cache CacheInvalidator, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		attemptService: attemptService,
		cache:          cache,
		log:            log.With().Str("component", "admin_handler").Logger(),
	}
}

// ListExamResults godoc
// GET /api/v1/admin/exams/:id/results?page=1&per_page=20
// Returns the closed attempts of an exam, best percentage first.
func (h *AdminHandler) ListExamResults(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	results, pagination, err := h.attemptService.ListExamResults(c.Request.Context(), examID, page, perPage)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// RecomputeRanks godoc
// POST /api/v1/admin/exams/:id/ranks
func (h *AdminHandler) RecomputeRanks(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ranked, err := h.attemptService.RecomputeRanks(c.Request.Context(), examID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam_id": examID, "ranked": ranked})
}

// GetAttempt godoc
// GET /api/v1/admin/attempts/:id
func (h *AdminHandler) GetAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), attemptID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, attemptView(attempt))
}

// ForceClose godoc
// POST /api/v1/admin/attempts/:id/force-close
// Closes an open attempt as incomplete.
func (h *AdminHandler) ForceClose(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.ForceClose(c.Request.Context(), attemptID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	if claims := middleware.GetClaims(c); claims != nil {
		h.log.Info().
			Int("admin_id", claims.UserID).
			Str("attempt_id", attemptID.String()).
			Msg("Attempt force-closed")
	}

	response.Success(c, http.StatusOK, result)
}

// RefreshExamCache godoc
// POST /api/v1/admin/exams/:id/refresh-cache
// Drops the cached exam snapshot after the catalog changed. Open attempts keep
// the snapshot taken when they started.
func (h *AdminHandler) RefreshExamCache(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.cache.Invalidate(c.Request.Context(), examID); err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Cache invalidation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam_id": examID, "refreshed": true})
}
