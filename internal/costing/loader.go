package costing

import (
	"context"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"

	"gorm.io/gorm"
)

// LoadRecipe fetches a recipe with its lines and the live ingredients they
// reference. Soft-deleted or missing ingredients are simply absent from the map.
func LoadRecipe(ctx context.Context, db *gorm.DB, id uint) (models.Recipe, map[uint]models.Ingredient, error) {
	var r models.Recipe
	if err := db.WithContext(ctx).Preload("Lines").First(&r, id).Error; err != nil {
		return models.Recipe{}, nil, apperr.FromDB(err, "recipe")
	}
	ings, err := LoadIngredients(ctx, db, r.Lines)
	if err != nil {
		return models.Recipe{}, nil, err
	}
	return r, ings, nil
}

// LoadIngredients fetches the ingredients referenced by lines, keyed by id.
func LoadIngredients(ctx context.Context, db *gorm.DB, lines []models.RecipeLine) (map[uint]models.Ingredient, error) {
	out := make(map[uint]models.Ingredient, len(lines))
	if len(lines) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.IngredientID)
	}
	var ings []models.Ingredient
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&ings).Error; err != nil {
		return nil, apperr.FromDB(err, "ingredient")
	}
	for _, ing := range ings {
		out[ing.ID] = ing
	}
	return out, nil
}
