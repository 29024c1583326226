// Package sales turns a basket of recipes into a persisted sale.
//
// CreateSale validates the whole basket and checks aggregate ingredient
// availability before it writes anything, then persists the sale, its price
// snapshots, the stock decrements and their ledger entries in one transaction.
// Each decrement is a conditional update (stock >= required), so two sales
// racing for the same stock cannot both commit.
package sales

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/costing"
	"cafe-backend/internal/inventory"
	"cafe-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LineInput struct {
	RecipeID uint    `json:"recipe_id"`
	Quantity float64 `json:"quantity"`
}

type SaleInput struct {
	ClientID *uint       `json:"client_id"`
	Branch   *string     `json:"branch"`
	UserID   *uint       `json:"-"`
	Lines    []LineInput `json:"lines"`
}

type Filter struct {
	Branch   string
	ClientID uint
	From, To *time.Time
	Limit    int
}

type LineView struct {
	models.SaleLine
	RecipeName string `json:"recipe_name"`
}

type SaleView struct {
	ID        uint       `json:"id"`
	ClientID  *uint      `json:"client_id"`
	Branch    *string    `json:"branch"`
	UserID    *uint      `json:"user_id"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
	Lines     []LineView `json:"lines"`
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

// Reference is the ledger reference written for a sale's consumption.
func Reference(saleID uint) string {
	return fmt.Sprintf("sale #%d", saleID)
}

func (in *SaleInput) validate() error {
	if len(in.Lines) == 0 {
		return apperr.InvalidInput("a sale needs at least one line")
	}
	for i, l := range in.Lines {
		if l.RecipeID == 0 {
			return apperr.InvalidInput("line %d: recipe_id is required", i+1)
		}
		if !(l.Quantity > 0) {
			return apperr.InvalidInput("line %d: quantity must be > 0", i+1)
		}
	}
	if in.Branch != nil {
		b := strings.TrimSpace(*in.Branch)
		switch {
		case b == "":
			in.Branch = nil
		case len(b) > 50:
			return apperr.InvalidInput("branch too long")
		default:
			in.Branch = &b
		}
	}
	return nil
}

// basket is everything the validate phase resolved.
type basket struct {
	recipes     map[uint]models.Recipe
	ingredients map[uint]models.Ingredient
	required    map[uint]float64
}

func (s *Service) resolve(ctx context.Context, tx *gorm.DB, lines []LineInput) (basket, error) {
	b := basket{
		recipes:     make(map[uint]models.Recipe),
		ingredients: make(map[uint]models.Ingredient),
		required:    make(map[uint]float64),
	}

	var recipeLines []models.RecipeLine
	for _, l := range lines {
		r, ok := b.recipes[l.RecipeID]
		if !ok {
			if err := tx.WithContext(ctx).Preload("Lines").First(&r, l.RecipeID).Error; err != nil {
				return basket{}, apperr.FromDB(err, fmt.Sprintf("recipe %d", l.RecipeID))
			}
			b.recipes[r.ID] = r
			recipeLines = append(recipeLines, r.Lines...)
		}
		for id, qty := range costing.Requirements(r, l.Quantity) {
			b.required[id] += qty
		}
	}

	ings, err := costing.LoadIngredients(ctx, tx, recipeLines)
	if err != nil {
		return basket{}, err
	}
	for id := range b.required {
		if _, ok := ings[id]; !ok {
			return basket{}, apperr.NotFound("ingredient %d not found", id)
		}
	}
	b.ingredients = ings
	return b, nil
}

// sortedIDs gives a stable lock order for the decrements.
func sortedIDs(m map[uint]float64) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Service) CreateSale(ctx context.Context, in SaleInput) (SaleView, error) {
	if err := in.validate(); err != nil {
		return SaleView{}, err
	}

	var sale models.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ClientID != nil {
			var n int64
			if err := tx.Model(&models.Client{}).Where("id = ?", *in.ClientID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return apperr.NotFound("client %d not found", *in.ClientID)
			}
		}

		// validate
		b, err := s.resolve(ctx, tx, in.Lines)
		if err != nil {
			return err
		}
		ids := sortedIDs(b.required)

		// check availability for the whole basket
		for _, id := range ids {
			ing := b.ingredients[id]
			if ing.Stock < b.required[id] {
				return &apperr.InsufficientStockError{
					IngredientID:   id,
					IngredientName: ing.Name,
					Available:      ing.Stock,
					Required:       b.required[id],
				}
			}
		}

		// price and persist
		sale = models.Sale{ClientID: in.ClientID, Branch: in.Branch, UserID: in.UserID}
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}
		saleLines := make([]models.SaleLine, 0, len(in.Lines))
		total := 0.0
		for _, l := range in.Lines {
			cost := s.engine.Cost(b.recipes[l.RecipeID], b.ingredients)
			// subtotal from the unrounded price, rounded once when stored
			subtotal := costing.Round2(cost.SuggestedPrice * l.Quantity)
			saleLines = append(saleLines, models.SaleLine{
				SaleID:    sale.ID,
				RecipeID:  l.RecipeID,
				Quantity:  l.Quantity,
				UnitPrice: costing.Round2(cost.SuggestedPrice),
				UnitCost:  costing.Round2(cost.TotalCost),
				Subtotal:  subtotal,
			})
			total += subtotal
		}
		if err := tx.Create(&saleLines).Error; err != nil {
			return err
		}
		if err := tx.Model(&sale).Update("total", total).Error; err != nil {
			return err
		}
		sale.Total = total
		sale.Lines = saleLines

		// apply stock and ledger
		ref := Reference(sale.ID)
		saleID := sale.ID
		for _, id := range ids {
			qty := b.required[id]
			if err := inventory.ApplyDelta(ctx, tx, id, -qty); err != nil {
				return err
			}
			if _, err := inventory.Record(ctx, tx, inventory.Entry{
				IngredientID: id,
				Kind:         models.MovementSaleConsumption,
				Delta:        -qty,
				Reference:    ref,
				SaleID:       &saleID,
				UserID:       in.UserID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SaleView{}, apperr.FromDB(err, "sale")
	}

	s.log.Info("sale committed",
		zap.Uint("sale_id", sale.ID),
		zap.Float64("total", sale.Total),
		zap.Int("lines", len(sale.Lines)),
	)
	return s.GetSale(ctx, sale.ID)
}

func (s *Service) GetSale(ctx context.Context, id uint) (SaleView, error) {
	var sale models.Sale
	if err := s.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&sale, id).Error; err != nil {
		return SaleView{}, apperr.FromDB(err, "sale")
	}
	names, err := s.recipeNames(ctx, []models.Sale{sale})
	if err != nil {
		return SaleView{}, err
	}
	return toView(sale, names), nil
}

func (s *Service) ListSales(ctx context.Context, f Filter) ([]SaleView, error) {
	q := s.db.WithContext(ctx).Model(&models.Sale{})
	if f.Branch != "" {
		q = q.Where("branch = ?", f.Branch)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
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

	var list []models.Sale
	if err := q.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	names, err := s.recipeNames(ctx, list)
	if err != nil {
		return nil, err
	}
	out := make([]SaleView, 0, len(list))
	for _, sale := range list {
		out = append(out, toView(sale, names))
	}
	return out, nil
}

func (s *Service) recipeNames(ctx context.Context, list []models.Sale) (map[uint]string, error) {
	ids := make([]uint, 0)
	for _, sale := range list {
		for _, l := range sale.Lines {
			ids = append(ids, l.RecipeID)
		}
	}
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&recipes).Error; err != nil {
		return nil, err
	}
	for _, r := range recipes {
		names[r.ID] = r.Name
	}
	return names, nil
}

func toView(sale models.Sale, names map[uint]string) SaleView {
	v := SaleView{
		ID:        sale.ID,
		ClientID:  sale.ClientID,
		Branch:    sale.Branch,
		UserID:    sale.UserID,
		Total:     sale.Total,
		CreatedAt: sale.CreatedAt,
		Lines:     make([]LineView, 0, len(sale.Lines)),
	}
	for _, l := range sale.Lines {
		v.Lines = append(v.Lines, LineView{SaleLine: l, RecipeName: names[l.RecipeID]})
	}
	return v
}
