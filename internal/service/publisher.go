package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/model"
)

// MonitorEventType names a live-monitor event.
type MonitorEventType string

const (
	MonitorEventStarted   MonitorEventType = "attempt_started"
	MonitorEventClosed    MonitorEventType = "attempt_closed"
	MonitorEventViolation MonitorEventType = "violation"
)

// MonitorEvent is published on the exam monitor channel for proctors.
type MonitorEvent struct {
	Type       MonitorEventType    `json:"type"`
	ExamID     uuid.UUID           `json:"exam_id"`
	AttemptID  uuid.UUID           `json:"attempt_id"`
	StudentID  int                 `json:"student_id"`
	Status     model.AttemptStatus `json:"status,omitempty"`
	Percentage *float64            `json:"percentage,omitempty"`
	Violation  *model.Violation    `json:"violation,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// EventPublisher fans attempt events out to live monitors.
// Publishing is best effort and never fails the calling operation.
type EventPublisher interface {
	Publish(ctx context.Context, ev MonitorEvent)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, MonitorEvent) {}

// RedisPublisher publishes events to the exam's Redis Pub/Sub channel.
type RedisPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(rdb *redis.Client, log zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{
		rdb: rdb,
		log: log.With().Str("component", "monitor_publisher").Logger(),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev MonitorEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to marshal monitor event")
		return
	}

	channel := config.CacheKey.ExamMonitorChannel(ev.ExamID.String())
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish monitor event")
	}
}
