package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/textjournal/backend/internal/logging"
	"github.com/textjournal/backend/internal/models"
)

// SecurityEventLogger appends audit events without blocking the caller.
// Insert failures are logged and dropped.
type SecurityEventLogger struct {
	db  *gorm.DB
	log logging.Logger
	now func() time.Time
	wg  sync.WaitGroup
}

func NewSecurityEventLogger(db *gorm.DB, log logging.Logger, now func() time.Time) *SecurityEventLogger {
	if now == nil {
		now = time.Now
	}
	return &SecurityEventLogger{db: db, log: log, now: now}
}

// Log records the event asynchronously. The request context may end before
// the insert runs, so only its values are carried over.
func (s *SecurityEventLogger) Log(ctx context.Context, eventType, identifier string, details map[string]any, severity string) {
	payload, err := json.Marshal(details)
	if err != nil {
		s.log.Warn(ctx, "security event details not serializable", "event_type", eventType, "error", err)
		payload = []byte("{}")
	}

	event := models.SecurityEvent{
		EventType:  eventType,
		Identifier: identifier,
		Details:    datatypes.JSON(payload),
		Severity:   severity,
		CreatedAt:  s.now().UTC(),
	}

	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.db.WithContext(detached).Create(&event).Error; err != nil {
			s.log.Warn(detached, "failed to log security event", "event_type", eventType, "error", err)
		}
	}()
}

// Flush waits for in-flight inserts. Called on shutdown and by tests.
func (s *SecurityEventLogger) Flush() {
	s.wg.Wait()
}

type SecurityEventFilter struct {
	EventType  string
	Severity   string
	Identifier string
	Limit      int
}

// List returns the newest events first.
func (s *SecurityEventLogger) List(ctx context.Context, f SecurityEventFilter) ([]models.SecurityEvent, error) {
	q := s.db.WithContext(ctx).Model(&models.SecurityEvent{})
	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Identifier != "" {
		q = q.Where("identifier = ?", f.Identifier)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var events []models.SecurityEvent
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&events).Error
	return events, err
}
