// Package recipes manages recipes and prices them through the costing engine.
package recipes

import (
	"context"
	"strings"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/costing"
	"cafe-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LineInput struct {
	IngredientID uint    `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	Waste        float64 `json:"waste"`
}

type RecipeInput struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Margin      *float64    `json:"margin"`
	Lines       []LineInput `json:"lines"`
}

// RecipeView is a recipe together with its current cost.
type RecipeView struct {
	ID          uint                `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Margin      *float64            `json:"margin"`
	Cost        costing.CostView    `json:"cost"`
	Lines       []models.RecipeLine `json:"lines"`
}

type Service struct {
	db     *gorm.DB
	engine *costing.Engine
	log    *zap.Logger
}

func NewService(db *gorm.DB, engine *costing.Engine, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, engine: engine, log: log}
}

func (in *RecipeInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return apperr.InvalidInput("name is required")
	}
	if len(in.Name) > 100 {
		return apperr.InvalidInput("name too long")
	}
	if len(in.Description) > 500 {
		return apperr.InvalidInput("description too long")
	}
	if in.Margin != nil && *in.Margin < 0 {
		return apperr.InvalidInput("margin must be >= 0")
	}
	for i, l := range in.Lines {
		if l.IngredientID == 0 {
			return apperr.InvalidInput("line %d: ingredient_id is required", i+1)
		}
		if l.Quantity <= 0 {
			return apperr.InvalidInput("line %d: quantity must be > 0", i+1)
		}
		if l.Waste < 0 || l.Waste > 1 {
			return apperr.InvalidInput("line %d: waste must be between 0 and 1", i+1)
		}
	}
	return nil
}

// checkIngredients verifies every line references a live ingredient.
func checkIngredients(ctx context.Context, tx *gorm.DB, lines []LineInput) error {
	ids := make([]uint, 0, len(lines))
	seen := make(map[uint]bool, len(lines))
	for _, l := range lines {
		if !seen[l.IngredientID] {
			seen[l.IngredientID] = true
			ids = append(ids, l.IngredientID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	var found []uint
	if err := tx.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	have := make(map[uint]bool, len(found))
	for _, id := range found {
		have[id] = true
	}
	for _, id := range ids {
		if !have[id] {
			return apperr.NotFound("ingredient %d not found", id)
		}
	}
	return nil
}

func nameTaken(ctx context.Context, tx *gorm.DB, name string, exceptID uint) error {
	var n int64
	q := tx.WithContext(ctx).Model(&models.Recipe{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("recipe %q already exists", name)
	}
	return nil
}

func toLines(in []LineInput) []models.RecipeLine {
	out := make([]models.RecipeLine, 0, len(in))
	for _, l := range in {
		out = append(out, models.RecipeLine{IngredientID: l.IngredientID, Quantity: l.Quantity, Waste: l.Waste})
	}
	return out
}

func (s *Service) Create(ctx context.Context, in RecipeInput) (RecipeView, error) {
	if err := in.validate(); err != nil {
		return RecipeView{}, err
	}
	r := models.Recipe{
		Name:        in.Name,
		Description: in.Description,
		Margin:      in.Margin,
		Lines:       toLines(in.Lines),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := nameTaken(ctx, tx, in.Name, 0); err != nil {
			return err
		}
		if err := checkIngredients(ctx, tx, in.Lines); err != nil {
			return err
		}
		if err := tx.Create(&r).Error; err != nil {
			return apperr.FromDB(err, "recipe")
		}
		return nil
	})
	if err != nil {
		return RecipeView{}, err
	}
	s.log.Info("recipe created", zap.Uint("recipe_id", r.ID), zap.String("name", r.Name))
	return s.Get(ctx, r.ID)
}

// Update replaces the recipe's fields and its whole line set.
func (s *Service) Update(ctx context.Context, id uint, in RecipeInput) (before, after RecipeView, err error) {
	if err := in.validate(); err != nil {
		return RecipeView{}, RecipeView{}, err
	}
	if before, err = s.Get(ctx, id); err != nil {
		return RecipeView{}, RecipeView{}, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := nameTaken(ctx, tx, in.Name, id); err != nil {
			return err
		}
		if err := checkIngredients(ctx, tx, in.Lines); err != nil {
			return err
		}
		res := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(map[string]any{
			"name":        in.Name,
			"description": in.Description,
			"margin":      in.Margin,
		})
		if res.Error != nil {
			return apperr.FromDB(res.Error, "recipe")
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("recipe not found")
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeLine{}).Error; err != nil {
			return err
		}
		lines := toLines(in.Lines)
		for i := range lines {
			lines[i].RecipeID = id
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RecipeView{}, RecipeView{}, err
	}
	after, err = s.Get(ctx, id)
	return before, after, err
}

// Delete removes the recipe and its lines. Sales keep their price snapshots.
func (s *Service) Delete(ctx context.Context, id uint) (RecipeView, error) {
	view, err := s.Get(ctx, id)
	if err != nil {
		return RecipeView{}, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Recipe{}, id).Error
	})
	if err != nil {
		return RecipeView{}, err
	}
	return view, nil
}

// Get returns the recipe with its cost breakdown.
func (s *Service) Get(ctx context.Context, id uint) (RecipeView, error) {
	r, ings, err := costing.LoadRecipe(ctx, s.db, id)
	if err != nil {
		return RecipeView{}, err
	}
	return s.view(r, ings), nil
}

// Cost returns the raw breakdown for a recipe.
func (s *Service) Cost(ctx context.Context, id uint) (costing.Breakdown, error) {
	r, ings, err := costing.LoadRecipe(ctx, s.db, id)
	if err != nil {
		return costing.Breakdown{}, err
	}
	return s.engine.Cost(r, ings), nil
}

// List prices every recipe with the same engine Get uses.
func (s *Service) List(ctx context.Context, search string) ([]RecipeView, error) {
	q := s.db.WithContext(ctx).Preload("Lines").Order("name")
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var list []models.Recipe
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}

	var all []models.RecipeLine
	for _, r := range list {
		all = append(all, r.Lines...)
	}
	ings, err := costing.LoadIngredients(ctx, s.db, all)
	if err != nil {
		return nil, err
	}

	out := make([]RecipeView, 0, len(list))
	for _, r := range list {
		out = append(out, s.view(r, ings))
	}
	return out, nil
}

func (s *Service) view(r models.Recipe, ings map[uint]models.Ingredient) RecipeView {
	b := s.engine.Cost(r, ings)
	if n := b.Skipped(); n > 0 {
		s.log.Debug("recipe has lines with missing ingredients",
			zap.Uint("recipe_id", r.ID), zap.Int("skipped", n))
	}
	lines := r.Lines
	if lines == nil {
		lines = []models.RecipeLine{}
	}
	return RecipeView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Margin:      r.Margin,
		Cost:        b.View(),
		Lines:       lines,
	}
}
