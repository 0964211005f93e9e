package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/examcfg"
	"github.com/prepdesk/prepdesk-backend/internal/response"
	"github.com/prepdesk/prepdesk-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams live proctoring activity to admins over SSE.
type MonitorHandler struct {
	rdb            *redis.Client
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, sessionService *service.SessionService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		sessionService: sessionService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:exam_id/monitor
// Subscribes the admin to the exam's live infraction feed, interleaved
// with periodic result snapshots and keep-alive pings.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID := c.Param("exam_id")
	cfg, err := examcfg.Get(examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrUnknownExamType)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	h.sendSnapshot(c, reqCtx, cfg)

	channelName := config.CacheKey.ExamMonitorChannel(examID)
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("exam_id", examID).Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID).Msg("Admin disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward the published JSON as-is.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendSnapshot(c, reqCtx, cfg)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes a full results snapshot for the exam.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, cfg examcfg.ExamConfig) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	results, _, err := h.sessionService.Results(ctx, cfg.ID, 1, 1000)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", cfg.ID).Msg("Snapshot query failed")
		return
	}

	totalInProgress := 0
	totalCompleted := 0
	totalInfractions := 0
	for _, res := range results {
		switch res.Status {
		case "IN_PROGRESS":
			totalInProgress++
		case "COMPLETED":
			totalCompleted++
		}
		totalInfractions += res.Infractions
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"exam": map[string]interface{}{
				"id":              cfg.ID,
				"name":            cfg.Name,
				"total_questions": cfg.TotalQuestions,
				"proctored":       cfg.Proctored,
			},
			"stats": map[string]interface{}{
				"total_joined":      len(results),
				"total_in_progress": totalInProgress,
				"total_completed":   totalCompleted,
				"total_infractions": totalInfractions,
			},
			"students": results,
		},
	})
	c.Writer.Flush()
}
