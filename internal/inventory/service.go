// Package inventory owns ingredients, their stock and the movement ledger.
// Stock changes only through ApplyDelta paired with Record in one transaction.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type IngredientInput struct {
	Name         string   `json:"name"`
	Unit         string   `json:"unit"`
	UnitCost     float64  `json:"unit_cost"`
	Stock        float64  `json:"stock"`
	ReorderLevel *float64 `json:"reorder_level"`
	ProviderID   *uint    `json:"provider_id"`
}

func (in *IngredientInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Name == "" {
		return apperr.InvalidInput("name is required")
	}
	if len(in.Name) > 100 {
		return apperr.InvalidInput("name too long")
	}
	if in.Unit == "" {
		in.Unit = "pcs"
	}
	if in.UnitCost < 0 {
		return apperr.InvalidInput("unit_cost must be >= 0")
	}
	if in.Stock < 0 {
		return apperr.InvalidInput("stock must be >= 0")
	}
	if in.ReorderLevel != nil && *in.ReorderLevel < 0 {
		return apperr.InvalidInput("reorder_level must be >= 0")
	}
	return nil
}

// IngredientUpdate changes descriptive fields only; stock moves through AdjustStock.
type IngredientUpdate struct {
	Name         *string  `json:"name"`
	Unit         *string  `json:"unit"`
	UnitCost     *float64 `json:"unit_cost"`
	ReorderLevel *float64 `json:"reorder_level"`
	ClearReorder bool     `json:"clear_reorder_level"`
	ProviderID   *uint    `json:"provider_id"`
}

type Adjustment struct {
	IngredientID uint
	Kind         models.MovementKind
	Delta        float64
	Reference    string
	UserID       *uint
}

type MovementFilter struct {
	IngredientID uint
	Kind         models.MovementKind
	SaleID       uint
	From, To     *time.Time
	Limit        int
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

func (s *Service) providerExists(ctx context.Context, tx *gorm.DB, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := tx.WithContext(ctx).Model(&models.Provider{}).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("provider %d not found", *id)
	}
	return nil
}

// CreateIngredient stores the ingredient with zero stock and, when an initial
// stock is given, books it as an inbound movement.
func (s *Service) CreateIngredient(ctx context.Context, in IngredientInput, userID *uint) (models.Ingredient, error) {
	if err := in.normalize(); err != nil {
		return models.Ingredient{}, err
	}

	ing := models.Ingredient{
		Name:         in.Name,
		Unit:         in.Unit,
		UnitCost:     in.UnitCost,
		ReorderLevel: in.ReorderLevel,
		ProviderID:   in.ProviderID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.providerExists(ctx, tx, in.ProviderID); err != nil {
			return err
		}
		if err := tx.Create(&ing).Error; err != nil {
			return apperr.FromDB(err, "ingredient")
		}
		if in.Stock == 0 {
			return nil
		}
		if err := ApplyDelta(ctx, tx, ing.ID, in.Stock); err != nil {
			return err
		}
		_, err := Record(ctx, tx, Entry{
			IngredientID: ing.ID,
			Kind:         models.MovementInbound,
			Delta:        in.Stock,
			Reference:    "initial stock",
			UserID:       userID,
		})
		return err
	})
	if err != nil {
		return models.Ingredient{}, err
	}
	return s.GetIngredient(ctx, ing.ID)
}

func (s *Service) GetIngredient(ctx context.Context, id uint) (models.Ingredient, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		return models.Ingredient{}, apperr.FromDB(err, "ingredient")
	}
	return ing, nil
}

func (s *Service) ListIngredients(ctx context.Context, search string, lowOnly bool) ([]models.Ingredient, error) {
	q := s.db.WithContext(ctx).Order("name")
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if lowOnly {
		q = q.Where("reorder_level IS NOT NULL AND stock <= reorder_level")
	}
	var out []models.Ingredient
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LowStock lists ingredients at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]models.Ingredient, error) {
	return s.ListIngredients(ctx, "", true)
}

// UpdateIngredient returns the ingredient before and after the change.
func (s *Service) UpdateIngredient(ctx context.Context, id uint, in IngredientUpdate) (before, after models.Ingredient, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&before, id).Error; err != nil {
			return apperr.FromDB(err, "ingredient")
		}
		updates := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" || len(name) > 100 {
				return apperr.InvalidInput("name must be 1-100 characters")
			}
			updates["name"] = name
		}
		if in.Unit != nil {
			unit := strings.TrimSpace(*in.Unit)
			if unit == "" {
				return apperr.InvalidInput("unit must not be empty")
			}
			updates["unit"] = unit
		}
		if in.UnitCost != nil {
			if *in.UnitCost < 0 {
				return apperr.InvalidInput("unit_cost must be >= 0")
			}
			updates["unit_cost"] = *in.UnitCost
		}
		if in.ClearReorder {
			updates["reorder_level"] = nil
		} else if in.ReorderLevel != nil {
			if *in.ReorderLevel < 0 {
				return apperr.InvalidInput("reorder_level must be >= 0")
			}
			updates["reorder_level"] = *in.ReorderLevel
		}
		if in.ProviderID != nil {
			if err := s.providerExists(ctx, tx, in.ProviderID); err != nil {
				return err
			}
			updates["provider_id"] = *in.ProviderID
		}
		if len(updates) == 0 {
			after = before
			return nil
		}
		if err := tx.Model(&models.Ingredient{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return apperr.FromDB(err, "ingredient")
		}
		return tx.First(&after, id).Error
	})
	return before, after, err
}

// DeleteIngredient soft-deletes; movements keep referencing the row.
func (s *Service) DeleteIngredient(ctx context.Context, id uint) (models.Ingredient, error) {
	ing, err := s.GetIngredient(ctx, id)
	if err != nil {
		return models.Ingredient{}, err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Ingredient{}, id).Error; err != nil {
		return models.Ingredient{}, err
	}
	return ing, nil
}

// AdjustStock is the manual stock-edit path. Sale consumption is reserved for
// the sales service.
func (s *Service) AdjustStock(ctx context.Context, a Adjustment) (models.Ingredient, models.InventoryMovement, error) {
	if a.Kind == models.MovementSaleConsumption {
		return models.Ingredient{}, models.InventoryMovement{}, apperr.InvalidInput("sale consumption is recorded by sales only")
	}
	entry := Entry{
		IngredientID: a.IngredientID,
		Kind:         a.Kind,
		Delta:        a.Delta,
		Reference:    strings.TrimSpace(a.Reference),
		UserID:       a.UserID,
	}
	if err := entry.validate(); err != nil {
		return models.Ingredient{}, models.InventoryMovement{}, err
	}

	var (
		ing models.Ingredient
		mv  models.InventoryMovement
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ApplyDelta(ctx, tx, a.IngredientID, a.Delta); err != nil {
			return err
		}
		var err error
		if mv, err = Record(ctx, tx, entry); err != nil {
			return err
		}
		return tx.First(&ing, a.IngredientID).Error
	})
	if err != nil {
		return models.Ingredient{}, models.InventoryMovement{}, apperr.FromDB(err, "ingredient")
	}

	s.log.Info("stock adjusted",
		zap.Uint("ingredient_id", ing.ID),
		zap.String("kind", string(a.Kind)),
		zap.Float64("delta", a.Delta),
		zap.Float64("stock", ing.Stock),
	)
	return ing, mv, nil
}

// CountStock sets stock to a physically counted amount, booking the
// difference as an adjustment. A count equal to the current stock records
// nothing and returns a nil movement.
func (s *Service) CountStock(ctx context.Context, ingredientID uint, counted float64, reference string, userID *uint) (models.Ingredient, *models.InventoryMovement, error) {
	if counted < 0 {
		return models.Ingredient{}, nil, apperr.InvalidInput("counted stock must be >= 0")
	}
	if reference = strings.TrimSpace(reference); reference == "" {
		reference = "stock count"
	}
	if len(reference) > maxReferenceLen {
		return models.Ingredient{}, nil, apperr.InvalidInput("reference too long (max %d bytes)", maxReferenceLen)
	}

	var (
		ing models.Ingredient
		mv  *models.InventoryMovement
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Ingredient
		if err := tx.First(&current, ingredientID).Error; err != nil {
			return apperr.FromDB(err, "ingredient")
		}
		delta := counted - current.Stock
		if delta != 0 {
			// guard on the stock we read so a concurrent sale is not overwritten
			res := tx.Model(&models.Ingredient{}).
				Where("id = ? AND stock = ?", ingredientID, current.Stock).
				Update("stock", counted)
			if res.Error != nil {
				return apperr.FromDB(res.Error, "ingredient")
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("stock of ingredient %d changed during count, retry", ingredientID)
			}
			m, err := Record(ctx, tx, Entry{
				IngredientID: ingredientID,
				Kind:         models.MovementAdjustment,
				Delta:        delta,
				Reference:    countReference(reference, current.Stock),
				UserID:       userID,
			})
			if err != nil {
				return err
			}
			mv = &m
		}
		return tx.First(&ing, ingredientID).Error
	})
	if err != nil {
		return models.Ingredient{}, nil, err
	}
	return ing, mv, nil
}

// countReference appends the previous stock to the user's reference, cutting
// the user part on a rune boundary so the result fits the ledger column.
func countReference(reference string, was float64) string {
	suffix := fmt.Sprintf(" (was %g)", was)
	if n := maxReferenceLen - len(suffix); len(reference) > n {
		for n > 0 && !utf8.RuneStart(reference[n]) {
			n--
		}
		reference = strings.TrimSpace(reference[:n])
	}
	return reference + suffix
}

func (s *Service) ListMovements(ctx context.Context, f MovementFilter) ([]models.InventoryMovement, error) {
	q := s.db.WithContext(ctx).Model(&models.InventoryMovement{})
	if f.IngredientID != 0 {
		q = q.Where("ingredient_id = ?", f.IngredientID)
	}
	if f.Kind != "" {
		if !f.Kind.Valid() {
			return nil, apperr.InvalidInput("unknown movement kind %q", f.Kind)
		}
		q = q.Where("kind = ?", f.Kind)
	}
	if f.SaleID != 0 {
		q = q.Where("sale_id = ?", f.SaleID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	var out []models.InventoryMovement
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
