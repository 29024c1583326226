package reports

import (
	"bytes"
	"fmt"
	"time"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"
	"cafe-backend/internal/permission"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc   *Service
	perms *permission.Resolver
	now   func() time.Time
}

func NewHandler(svc *Service, perms *permission.Resolver) *Handler {
	return &Handler{svc: svc, perms: perms, now: time.Now}
}

// period reads ?from=YYYY-MM-DD&to=YYYY-MM-DD (to inclusive); the default is
// the current month up to today.
func (h *Handler) period(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := h.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	if v := c.Query("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.InvalidInput("from must be YYYY-MM-DD")
		}
		from = d
	}
	if v := c.Query("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.InvalidInput("to must be YYYY-MM-DD")
		}
		to = d.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, apperr.InvalidInput("from must not be after to")
	}
	return from, to, nil
}

func sendXLSX(c *fiber.Ctx, f *excelize.File, name string) error {
	defer f.Close()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(buf.Bytes())
}

// GET /api/reports/dashboard
func (h *Handler) Dashboard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceReports, models.ActionView); err != nil {
			return err
		}
		d, err := h.svc.Dashboard(c.UserContext(), h.now().UTC())
		if err != nil {
			return err
		}
		return c.JSON(d)
	}
}

// GET /api/reports/sales?from=&to=&branch=
func (h *Handler) SalesPeriod() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceReports, models.ActionView); err != nil {
			return err
		}
		from, to, err := h.period(c)
		if err != nil {
			return err
		}
		sum, err := h.svc.SalesPeriod(c.UserContext(), from, to, c.Query("branch"))
		if err != nil {
			return err
		}
		return c.JSON(sum)
	}
}

// GET /api/reports/top-recipes?from=&to=&limit=
func (h *Handler) TopRecipes() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceReports, models.ActionView); err != nil {
			return err
		}
		from, to, err := h.period(c)
		if err != nil {
			return err
		}
		list, err := h.svc.TopRecipes(c.UserContext(), from, to, c.QueryInt("limit", 10))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/reports/sales.xlsx?from=&to=&branch=
func (h *Handler) ExportSales() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceReports, models.ActionView); err != nil {
			return err
		}
		from, to, err := h.period(c)
		if err != nil {
			return err
		}
		f, err := h.svc.ExportSales(c.UserContext(), from, to, c.Query("branch"))
		if err != nil {
			return err
		}
		return sendXLSX(c, f, fmt.Sprintf("sales_%s_%s.xlsx", from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102")))
	}
}

// GET /api/reports/movements.xlsx?from=&to=
func (h *Handler) ExportMovements() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceReports, models.ActionView); err != nil {
			return err
		}
		from, to, err := h.period(c)
		if err != nil {
			return err
		}
		f, err := h.svc.ExportMovements(c.UserContext(), from, to)
		if err != nil {
			return err
		}
		return sendXLSX(c, f, fmt.Sprintf("movements_%s_%s.xlsx", from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102")))
	}
}
