// Package audit records who changed what, with JSON before/after snapshots.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cafe-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LogOptions struct {
	Event       models.AuditEvent
	UserID      *uint
	UserName    string
	EntityType  string
	EntityID    uint
	Description string
	Before      any
	After       any
	IPAddress   string
	UserAgent   string
}

// FromRequest fills the actor and client fields of a LogOptions from the request.
func FromRequest(c *fiber.Ctx, userID uint, userName string) LogOptions {
	opts := LogOptions{
		UserName:  userName,
		IPAddress: c.IP(),
		UserAgent: truncate(c.Get(fiber.HeaderUserAgent), 200),
	}
	if userID != 0 {
		id := userID
		opts.UserID = &id
	}
	return opts
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log}
}

func (s *Service) WriteLog(ctx context.Context, opts LogOptions) error {
	entry := models.AuditLog{
		Event:       opts.Event,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Description: truncate(opts.Description, 255),
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
		IPAddress:   opts.IPAddress,
		UserAgent:   opts.UserAgent,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Warn("audit log write failed",
			zap.String("event", string(opts.Event)),
			zap.String("entity_type", opts.EntityType),
			zap.Uint("entity_id", opts.EntityID),
			zap.Error(err),
		)
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

type Filter struct {
	Event      models.AuditEvent
	UserID     uint
	EntityType string
	EntityID   uint
	From, To   *time.Time
	Limit      int
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.Event != "" {
		q = q.Where("event = ?", f.Event)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// snapshot marshals v to JSON; absent or unmarshalable values become "null".
func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
