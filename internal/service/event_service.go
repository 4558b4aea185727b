package service

import (
	"context"
	"encoding/json"
	"time"

	"lms_progress_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Event names emitted by the engine. Consumers (notifications,
// analytics) subscribe on the redis channel; the engine never waits for
// them.
const (
	EventLessonCompleted = "lesson.completed"
	EventCourseCompleted = "course.completed"
	EventQuizSubmitted   = "quiz.submitted"
	EventLessonReset     = "lesson.reset"
)

type Event struct {
	Name     string    `json:"name"`
	UserID   uint      `json:"userId"`
	EntityID uint      `json:"entityId"`
	At       time.Time `json:"at"`
}

// EventSink is fire-and-forget: Emit returns immediately and delivery
// failures are logged, never surfaced to the mutation that caused them.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

type RedisEventSink struct {
	rdb     *redis.Client
	channel string
}

func NewRedisEventSink(rdb *redis.Client, channel string) *RedisEventSink {
	return &RedisEventSink{rdb: rdb, channel: channel}
}

func (s *RedisEventSink) Emit(_ context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	buf, err := json.Marshal(e)
	if err != nil {
		logger.Log.Error("event encode failed", zap.String("event", e.Name), zap.Error(err))
		return
	}
	// Detached from the request context: the mutation that produced the
	// event has already committed.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.rdb.Publish(ctx, s.channel, buf).Err(); err != nil {
			logger.Log.Warn("event publish failed",
				zap.String("event", e.Name),
				zap.Uint("userId", e.UserID),
				zap.Error(err))
		}
	}()
}

// NopEventSink discards events; used when redis is not configured.
type NopEventSink struct{}

func (NopEventSink) Emit(context.Context, Event) {}
