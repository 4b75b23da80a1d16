package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/service"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second // prevent slow queries from blocking the SSE stream
)

// MonitorHandler relays live attempt events of an exam to administrators.
type MonitorHandler struct {
	rdb            *redis.Client
	catalog        service.CatalogReader
	attemptService *service.AttemptService
	log            zerolog.Logger
}

func NewMonitorHandler(
	rdb *redis.Client,
	catalog service.CatalogReader,
	attemptService *service.AttemptService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		catalog:        catalog,
		attemptService: attemptService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:id/monitor
// Sends a snapshot, then forwards every monitor event published for the exam.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reqCtx := c.Request.Context()

	exam, err := h.catalog.GetExam(reqCtx, examID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	// Subscribe before the snapshot so no event falls between the two.
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamMonitorChannel(examID.String()))
	defer pubsub.Close()
	if _, err := pubsub.Receive(reqCtx); err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Monitor subscribe failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	ch := pubsub.Channel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, examID, exam.Title, exam.DurationMinutes, len(exam.Questions))

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	h.log.Info().Str("exam_id", examID.String()).Msg("Admin attached to live monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payloads are already JSON; forward them untouched.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAlive.C:
			c.SSEvent("message", gin.H{"type": "ping"})
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes the first SSE event: exam summary plus the count of
// closed attempts so far.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parent context.Context, examID uuid.UUID, title string, duration, totalQuestions int) {
	ctx, cancel := context.WithTimeout(parent, snapshotTimeout)
	defer cancel()

	closed := 0
	if _, page, err := h.attemptService.ListExamResults(ctx, examID, 1, 1); err == nil {
		closed = page.TotalItems
	} else {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to count closed attempts for snapshot")
	}

	c.SSEvent("message", gin.H{
		"type": "snapshot",
		"data": gin.H{
			"exam": gin.H{
				"id":              examID.String(),
				"title":           title,
				"duration":        duration,
				"total_questions": totalQuestions,
			},
			"stats": gin.H{
				"total_closed": closed,
			},
		},
	})
	c.Writer.Flush()
}
