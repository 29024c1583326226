package models

import (
	"time"

	"gorm.io/gorm"
)

// Ingredient: raw material with its unit cost and current stock.
// Stock is only changed through inventory.ApplyDelta together with a ledger entry.
type Ingredient struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;not null;index" json:"name"`
	Unit         string         `gorm:"size:20;not null;default:pcs" json:"unit"` // kg, l, pcs...
	UnitCost     float64        `gorm:"not null;default:0" json:"unit_cost"`
	Stock        float64        `gorm:"not null;default:0" json:"stock"`
	ReorderLevel *float64       `json:"reorder_level"`
	ProviderID   *uint          `gorm:"index" json:"provider_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// LowStock reports whether the ingredient is at or below its reorder level.
func (i Ingredient) LowStock() bool {
	return i.ReorderLevel != nil && i.Stock <= *i.ReorderLevel
}
