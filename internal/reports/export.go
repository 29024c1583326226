package reports

import (
	"context"
	"fmt"
	"time"

	"cafe-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	salesSheet     = "Sales"
	linesSheet     = "Lines"
	summarySheet   = "Summary"
	movementsSheet = "Movements"
)

func header(f *excelize.File, sheet string, cols ...string) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(cols), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func row(f *excelize.File, sheet string, n int, values ...any) error {
	cell, _ := excelize.CoordinatesToCellName(1, n)
	return f.SetSheetRow(sheet, cell, &values)
}

// ExportSales builds a workbook with a summary, one row per sale and one row
// per sale line for [from, to). The caller closes the file.
func (s *Service) ExportSales(ctx context.Context, from, to time.Time, branch string) (*excelize.File, error) {
	summary, err := s.SalesPeriod(ctx, from, to, branch)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Preload("Lines").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at, id")
	if branch != "" {
		q = q.Where("branch = ?", branch)
	}
	var sales []models.Sale
	if err := q.Find(&sales).Error; err != nil {
		return nil, err
	}

	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Select("id", "name").Find(&recipes).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(recipes))
	for _, r := range recipes {
		names[r.ID] = r.Name
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(salesSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		f.Close()
		return nil, err
	}

	err = func() error {
		if err := header(f, summarySheet, "From", "To", "Branch", "Sales", "Total", "Average ticket"); err != nil {
			return err
		}
		if err := row(f, summarySheet, 2,
			from.Format("2006-01-02"), to.Format("2006-01-02"), branch,
			summary.Count, summary.Total, summary.AverageTicket); err != nil {
			return err
		}

		if err := header(f, salesSheet, "Sale", "Date", "Branch", "Client", "Total"); err != nil {
			return err
		}
		if err := header(f, linesSheet, "Sale", "Recipe", "Quantity", "Unit price", "Unit cost", "Subtotal"); err != nil {
			return err
		}
		lineRow := 2
		for i, sale := range sales {
			b, client := "", ""
			if sale.Branch != nil {
				b = *sale.Branch
			}
			if sale.ClientID != nil {
				client = fmt.Sprint(*sale.ClientID)
			}
			if err := row(f, salesSheet, i+2,
				sale.ID, sale.CreatedAt.Format("2006-01-02 15:04"), b, client, sale.Total); err != nil {
				return err
			}
			for _, l := range sale.Lines {
				if err := row(f, linesSheet, lineRow,
					sale.ID, names[l.RecipeID], l.Quantity, l.UnitPrice, l.UnitCost, l.Subtotal); err != nil {
					return err
				}
				lineRow++
			}
		}
		return nil
	}()
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// ExportMovements writes the inventory ledger for [from, to).
func (s *Service) ExportMovements(ctx context.Context, from, to time.Time) (*excelize.File, error) {
	var movements []models.InventoryMovement
	if err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at, id").
		Find(&movements).Error; err != nil {
		return nil, err
	}

	var ings []models.Ingredient
	if err := s.db.WithContext(ctx).Unscoped().Select("id", "name", "unit").Find(&ings).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Ingredient, len(ings))
	for _, ing := range ings {
		byID[ing.ID] = ing
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", movementsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := header(f, movementsSheet, "Date", "Ingredient", "Unit", "Kind", "Quantity", "Reference"); err != nil {
		f.Close()
		return nil, err
	}
	for i, m := range movements {
		ing := byID[m.IngredientID]
		if err := row(f, movementsSheet, i+2,
			m.CreatedAt.Format("2006-01-02 15:04"), ing.Name, ing.Unit, string(m.Kind), m.Quantity, m.Reference); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
