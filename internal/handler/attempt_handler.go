package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/model"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/service"
	"github.com/stemsi/exstem-session/internal/validator"
)

// AttemptHandler handles student-facing attempt endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "attempt_handler").Logger(),
	}
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/attempts
// Opens a new in-progress attempt for the authenticated student.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	client := model.ClientMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	session, err := h.attemptService.StartSession(c.Request.Context(), claims.UserID, examID, client)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, session)
}

// ListAttempts godoc
// GET /api/v1/student/exams/:exam_id/attempts
// Lists the student's own attempts at an exam.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempts, err := h.attemptService.ListMyAttempts(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// SaveProgress godoc
// PUT /api/v1/student/attempts/:attempt_id/progress
// Upserts answers into the open attempt. Nothing is scored here.
func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ack, err := h.attemptService.SaveProgress(c.Request.Context(), claims.UserID, attemptID, req.Answers)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, ack)
}

// RecordViolation godoc
// POST /api/v1/student/attempts/:attempt_id/violations
func (h *AttemptHandler) RecordViolation(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	var req model.RecordViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ack, err := h.attemptService.RecordViolation(c.Request.Context(), claims.UserID, attemptID, req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, ack)
}

// Submit godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Closes the attempt and returns the scored result. The body is optional.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), claims.UserID, attemptID, req.Answers)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetAttempt godoc
// GET /api/v1/student/attempts/:attempt_id
// Returns the student's own attempt, scored once it is closed.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	claims, attemptID, ok := h.attemptParams(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, attemptView(attempt))
}

// attemptParams reads the claims and the :attempt_id path parameter,
// writing the failure response itself when either is missing.
func (h *AttemptHandler) attemptParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
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

// AttemptView is an attempt with its computed accessors.
type AttemptView struct {
	*model.Attempt
	IsCompleted    bool    `json:"is_completed"`
	Accuracy       float64 `json:"accuracy"`
	CompletionRate float64 `json:"completion_rate"`
}

func attemptView(a *model.Attempt) AttemptView {
	return AttemptView{
		Attempt:        a,
		IsCompleted:    a.IsCompleted(),
		Accuracy:       a.Accuracy(),
		CompletionRate: a.CompletionRate(),
	}
}
