package models

import "time"

type Recipe struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string       `gorm:"size:500" json:"description"`
	Margin      *float64     `json:"margin"` // nil: default margin from config
	Lines       []RecipeLine `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// RecipeLine: consumption of one ingredient per unit of recipe output.
// IngredientID is a plain reference (no FK) so a removed ingredient leaves
// a dangling line that costing skips.
type RecipeLine struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	RecipeID     uint    `gorm:"index;not null" json:"recipe_id"`
	IngredientID uint    `gorm:"index;not null" json:"ingredient_id"`
	Quantity     float64 `gorm:"not null" json:"quantity"`
	Waste        float64 `gorm:"not null;default:0" json:"waste"` // [0,1]
}
