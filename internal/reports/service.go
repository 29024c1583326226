// Package reports aggregates sales and stock for the dashboard and exports.
package reports

import (
	"context"
	"time"

	"cafe-backend/internal/models"

	"gorm.io/gorm"
)

type Dashboard struct {
	SalesToday      float64             `json:"sales_today"`
	SalesCountToday int64               `json:"sales_count_today"`
	SalesMonth      float64             `json:"sales_month"`
	SalesCountMonth int64               `json:"sales_count_month"`
	LowStockCount   int                 `json:"low_stock_count"`
	LowStock        []models.Ingredient `json:"low_stock"`
}

type PeriodSummary struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	Branch        string    `json:"branch,omitempty"`
	Total         float64   `json:"total"`
	Count         int64     `json:"count"`
	AverageTicket float64   `json:"average_ticket"`
}

type TopRecipe struct {
	RecipeID uint    `json:"recipe_id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type totals struct {
	Total float64
	Count int64
}

func (s *Service) sum(ctx context.Context, from, to time.Time, branch string) (totals, error) {
	var t totals
	q := s.db.WithContext(ctx).Model(&models.Sale{}).
		Select("COALESCE(SUM(total), 0) AS total, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC())
	if branch != "" {
		q = q.Where("branch = ?", branch)
	}
	err := q.Scan(&t).Error
	return t, err
}

// Dashboard reports today's and this month's sales as seen from now.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	today, err := s.sum(ctx, dayStart, dayEnd, "")
	if err != nil {
		return Dashboard{}, err
	}
	month, err := s.sum(ctx, monthStart, dayEnd, "")
	if err != nil {
		return Dashboard{}, err
	}

	var low []models.Ingredient
	if err := s.db.WithContext(ctx).
		Where("reorder_level IS NOT NULL AND stock <= reorder_level").
		Order("name").Find(&low).Error; err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		SalesToday:      today.Total,
		SalesCountToday: today.Count,
		SalesMonth:      month.Total,
		SalesCountMonth: month.Count,
		LowStockCount:   len(low),
		LowStock:        low,
	}, nil
}

// SalesPeriod summarizes sales in [from, to).
func (s *Service) SalesPeriod(ctx context.Context, from, to time.Time, branch string) (PeriodSummary, error) {
	t, err := s.sum(ctx, from, to, branch)
	if err != nil {
		return PeriodSummary{}, err
	}
	sum := PeriodSummary{From: from, To: to, Branch: branch, Total: t.Total, Count: t.Count}
	if t.Count > 0 {
		sum.AverageTicket = t.Total / float64(t.Count)
	}
	return sum, nil
}

// TopRecipes ranks recipes by revenue in [from, to).
func (s *Service) TopRecipes(ctx context.Context, from, to time.Time, limit int) ([]TopRecipe, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var rows []TopRecipe
	err := s.db.WithContext(ctx).Table("sale_lines").
		Select("sale_lines.recipe_id AS recipe_id, SUM(sale_lines.quantity) AS quantity, SUM(sale_lines.subtotal) AS revenue").
		Joins("JOIN sales ON sales.id = sale_lines.sale_id").
		Where("sales.created_at >= ? AND sales.created_at < ?", from.UTC(), to.UTC()).
		Group("sale_lines.recipe_id").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.RecipeID)
	}
	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&recipes).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(recipes))
	for _, r := range recipes {
		names[r.ID] = r.Name
	}
	for i := range rows {
		rows[i].Name = names[rows[i].RecipeID]
	}
	return rows, nil
}
