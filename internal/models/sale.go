package models

import "time"

type Sale struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ClientID  *uint      `gorm:"index" json:"client_id"`
	Branch    *string    `gorm:"size:50;index" json:"branch"`
	UserID    *uint      `gorm:"index" json:"user_id"`
	Total     float64    `gorm:"not null;default:0" json:"total"`
	Lines     []SaleLine `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

// SaleLine keeps the price at sale time. It is never recomputed.
type SaleLine struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	SaleID    uint    `gorm:"index;not null" json:"sale_id"`
	RecipeID  uint    `gorm:"index;not null" json:"recipe_id"`
	Quantity  float64 `gorm:"not null" json:"quantity"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`
	UnitCost  float64 `gorm:"not null;default:0" json:"unit_cost"`
	Subtotal  float64 `gorm:"not null" json:"subtotal"`
}
