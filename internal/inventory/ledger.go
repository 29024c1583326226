package inventory

import (
	"context"
	"errors"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"

	"gorm.io/gorm"
)

const maxReferenceLen = 200

// Entry is one ledger movement. Delta is the signed stock change.
type Entry struct {
	IngredientID uint
	Kind         models.MovementKind
	Delta        float64
	Reference    string
	SaleID       *uint
	UserID       *uint
}

func (e Entry) validate() error {
	if !e.Kind.Valid() {
		return apperr.InvalidInput("unknown movement kind %q", e.Kind)
	}
	if e.Delta == 0 {
		return apperr.InvalidInput("movement quantity must not be zero")
	}
	switch e.Kind {
	case models.MovementInbound:
		if e.Delta < 0 {
			return apperr.InvalidInput("inbound movement must be positive")
		}
	case models.MovementOutbound, models.MovementSpoilage:
		if e.Delta > 0 {
			return apperr.InvalidInput("%s movement must be negative", e.Kind)
		}
	case models.MovementSaleConsumption:
		if e.Delta > 0 {
			return apperr.InvalidInput("sale consumption must be negative")
		}
		if e.SaleID == nil || e.Reference == "" {
			return apperr.InvalidInput("sale consumption must reference its sale")
		}
	}
	if len(e.Reference) > maxReferenceLen {
		return apperr.InvalidInput("reference too long (max %d bytes)", maxReferenceLen)
	}
	return nil
}

// Record appends a movement on tx. It never touches Ingredient.Stock; callers
// pair it with ApplyDelta inside the same transaction.
func Record(ctx context.Context, tx *gorm.DB, e Entry) (models.InventoryMovement, error) {
	if err := e.validate(); err != nil {
		return models.InventoryMovement{}, err
	}

	var n int64
	if err := tx.WithContext(ctx).Model(&models.Ingredient{}).Where("id = ?", e.IngredientID).Count(&n).Error; err != nil {
		return models.InventoryMovement{}, apperr.FromDB(err, "ingredient")
	}
	if n == 0 {
		return models.InventoryMovement{}, apperr.NotFound("ingredient %d not found", e.IngredientID)
	}

	m := models.InventoryMovement{
		IngredientID: e.IngredientID,
		Kind:         e.Kind,
		Quantity:     e.Delta,
		Reference:    e.Reference,
		SaleID:       e.SaleID,
		UserID:       e.UserID,
	}
	if err := tx.WithContext(ctx).Create(&m).Error; err != nil {
		return models.InventoryMovement{}, apperr.FromDB(err, "movement")
	}
	return m, nil
}

// ApplyDelta changes stock by delta in one statement. Decrements are
// conditional on stock >= -delta so concurrent writers cannot drive stock
// below zero; when the guard rejects the update the ingredient is re-read to
// report NotFound or InsufficientStock with its current level.
func ApplyDelta(ctx context.Context, tx *gorm.DB, ingredientID uint, delta float64) error {
	q := tx.WithContext(ctx).Model(&models.Ingredient{})
	if delta < 0 {
		q = q.Where("id = ? AND stock >= ?", ingredientID, -delta)
	} else {
		q = q.Where("id = ?", ingredientID)
	}
	res := q.Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return apperr.FromDB(res.Error, "ingredient")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var ing models.Ingredient
	err := tx.WithContext(ctx).Select("id", "name", "stock").First(&ing, ingredientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("ingredient %d not found", ingredientID)
	}
	if err != nil {
		return apperr.FromDB(err, "ingredient")
	}
	return &apperr.InsufficientStockError{
		IngredientID:   ing.ID,
		IngredientName: ing.Name,
		Available:      ing.Stock,
		Required:       -delta,
	}
}
