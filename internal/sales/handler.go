package sales

import (
	"fmt"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/audit"
	"cafe-backend/internal/inventory"
	"cafe-backend/internal/models"
	"cafe-backend/internal/permission"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	svc   *Service
	perms *permission.Resolver
	audit *audit.Service
}

func NewHandler(svc *Service, perms *permission.Resolver, auditSvc *audit.Service) *Handler {
	return &Handler{svc: svc, perms: perms, audit: auditSvc}
}

// POST /api/sales
func (h *Handler) Create() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceSales, models.ActionCreate)
		if err != nil {
			return err
		}
		var body SaleInput
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		uid := p.UserID
		body.UserID = &uid

		sale, err := h.svc.CreateSale(c.UserContext(), body)
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditSaleCreated
		opts.EntityType = "sale"
		opts.EntityID = sale.ID
		opts.Description = fmt.Sprintf("Sale #%d: %d lines, total %.2f", sale.ID, len(sale.Lines), sale.Total)
		opts.After = sale
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.Status(fiber.StatusCreated).JSON(sale)
	}
}

// GET /api/sales?branch=&client_id=&from=&to=&limit=
func (h *Handler) List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceSales, models.ActionView); err != nil {
			return err
		}
		f := Filter{
			Branch:   c.Query("branch"),
			ClientID: uint(c.QueryInt("client_id")),
			Limit:    c.QueryInt("limit"),
		}
		var err error
		if f.From, err = inventory.ParseDay(c, "from"); err != nil {
			return err
		}
		if f.To, err = inventory.ParseDay(c, "to"); err != nil {
			return err
		}
		if f.To != nil {
			end := f.To.AddDate(0, 0, 1)
			f.To = &end
		}
		list, err := h.svc.ListSales(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/sales/:id
func (h *Handler) Get() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceSales, models.ActionView); err != nil {
			return err
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return apperr.InvalidInput("invalid id")
		}
		sale, err := h.svc.GetSale(c.UserContext(), uint(id))
		if err != nil {
			return err
		}
		return c.JSON(sale)
	}
}
