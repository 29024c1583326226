package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/audit"
	"cafe-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportResult summarizes a spreadsheet import.
type ImportResult struct {
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Unmatched []string `json:"unmatched"`
}

// ImportIngredients reads the first sheet of an xlsx workbook with rows
// name | unit | unit_cost | stock. Known names (case-insensitive) get their
// unit cost updated and any stock is booked as an inbound delivery; unknown
// names are created. A header row is detected and skipped.
func (s *Service) ImportIngredients(ctx context.Context, r io.Reader, userID *uint) (ImportResult, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, apperr.InvalidInput("cannot read xlsx file: %v", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, apperr.InvalidInput("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return ImportResult{}, apperr.InvalidInput("cannot read sheet %s: %v", sheets[0], err)
	}
	if len(rows) == 0 {
		return ImportResult{}, apperr.InvalidInput("sheet is empty")
	}

	start := 0
	if first := strings.ToLower(strings.TrimSpace(cell(rows[0], 0))); first == "name" || first == "ingredient" {
		start = 1
	}

	res := ImportResult{Unmatched: []string{}}
	for i := start; i < len(rows); i++ {
		row := rows[i]
		name := strings.TrimSpace(cell(row, 0))
		if name == "" {
			continue
		}
		unitCost, err1 := number(cell(row, 2))
		stock, err2 := number(cell(row, 3))
		if err1 != nil || err2 != nil || unitCost < 0 || stock < 0 {
			res.Unmatched = append(res.Unmatched, fmt.Sprintf("row %d: %s", i+1, name))
			continue
		}

		var existing models.Ingredient
		err := s.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(&existing).Error
		switch {
		case err == nil:
			if err := s.db.WithContext(ctx).Model(&existing).Update("unit_cost", unitCost).Error; err != nil {
				return res, err
			}
			if stock > 0 {
				if _, _, err := s.AdjustStock(ctx, Adjustment{
					IngredientID: existing.ID,
					Kind:         models.MovementInbound,
					Delta:        stock,
					Reference:    "xlsx import",
					UserID:       userID,
				}); err != nil {
					return res, err
				}
			}
			res.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			if _, err := s.CreateIngredient(ctx, IngredientInput{
				Name:     name,
				Unit:     cell(row, 1),
				UnitCost: unitCost,
				Stock:    stock,
			}, userID); err != nil {
				res.Unmatched = append(res.Unmatched, fmt.Sprintf("row %d: %s", i+1, name))
				continue
			}
			res.Created++
		default:
			return res, err
		}
	}

	s.log.Info("ingredients imported",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("unmatched", len(res.Unmatched)),
	)
	return res, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// number parses a spreadsheet number; blank is zero and a decimal comma is accepted.
func number(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// POST /api/ingredients/import (multipart, field "file")
func (h *Handler) ImportIngredients() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionCreate)
		if err != nil {
			return err
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return apperr.InvalidInput("file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return apperr.InvalidInput("only .xlsx files are accepted")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return err
		}
		defer file.Close()

		res, err := h.svc.ImportIngredients(c.UserContext(), file, userRef(p))
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditCreate
		opts.EntityType = "ingredient_import"
		opts.Description = fmt.Sprintf("Imported %s: %d created, %d updated", fileHeader.Filename, res.Created, res.Updated)
		opts.After = res
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.JSON(res)
	}
}
