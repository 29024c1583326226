package models

import "time"

type AuditEvent string

const (
	AuditLoginSuccess  AuditEvent = "login_success"
	AuditLoginFailed   AuditEvent = "login_failed"
	AuditCreate        AuditEvent = "create"
	AuditUpdate        AuditEvent = "update"
	AuditDelete        AuditEvent = "delete"
	AuditStockAdjust   AuditEvent = "stock_adjust"
	AuditSaleCreated   AuditEvent = "sale_created"
	AuditPermission    AuditEvent = "permission_change"
	AuditLowStockAlert AuditEvent = "low_stock_alert"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Event AuditEvent `gorm:"size:50;index;not null" json:"event"`

	// Who did it; nil for system jobs
	UserID   *uint  `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:50" json:"user_name"`

	// Which entity (ingredient, recipe, sale, user, ...)
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Description string `gorm:"size:255" json:"description"`

	// JSON snapshots, "null" when absent
	BeforeData string `gorm:"type:text" json:"before_data"`
	AfterData  string `gorm:"type:text" json:"after_data"`

	IPAddress string `gorm:"size:45" json:"ip_address"`
	UserAgent string `gorm:"size:200" json:"user_agent"`
}
