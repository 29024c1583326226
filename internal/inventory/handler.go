package inventory

import (
	"fmt"
	"time"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/audit"
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

type AdjustStockRequest struct {
	Kind      models.MovementKind `json:"kind"`
	Quantity  float64             `json:"quantity"` // signed delta
	Reference string              `json:"reference"`
}

type CountStockRequest struct {
	Counted   float64 `json:"counted"`
	Reference string  `json:"reference"`
}

type IngredientResponse struct {
	models.Ingredient
	LowStock bool `json:"low_stock"`
}

func toResponse(ing models.Ingredient) IngredientResponse {
	return IngredientResponse{Ingredient: ing, LowStock: ing.LowStock()}
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("invalid id")
	}
	return uint(id), nil
}

// ParseDay reads a YYYY-MM-DD query value; to-dates are made exclusive by the caller.
func ParseDay(c *fiber.Ctx, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, apperr.InvalidInput("%s must be YYYY-MM-DD", key)
	}
	return &d, nil
}

func userRef(p permission.Principal) *uint {
	id := p.UserID
	return &id
}

// GET /api/ingredients?search=&low=true
func (h *Handler) ListIngredients() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceInventory, models.ActionView); err != nil {
			return err
		}
		list, err := h.svc.ListIngredients(c.UserContext(), c.Query("search"), c.QueryBool("low"))
		if err != nil {
			return err
		}
		resp := make([]IngredientResponse, 0, len(list))
		for _, ing := range list {
			resp = append(resp, toResponse(ing))
		}
		return c.JSON(resp)
	}
}

// GET /api/ingredients/:id
func (h *Handler) GetIngredient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceInventory, models.ActionView); err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		ing, err := h.svc.GetIngredient(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(ing))
	}
}

// POST /api/ingredients
func (h *Handler) CreateIngredient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionCreate)
		if err != nil {
			return err
		}
		var body IngredientInput
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		ing, err := h.svc.CreateIngredient(c.UserContext(), body, userRef(p))
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditCreate
		opts.EntityType = "ingredient"
		opts.EntityID = ing.ID
		opts.Description = fmt.Sprintf("Ingredient created: %s", ing.Name)
		opts.After = ing
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.Status(fiber.StatusCreated).JSON(toResponse(ing))
	}
}

// PUT /api/ingredients/:id
func (h *Handler) UpdateIngredient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body IngredientUpdate
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		before, after, err := h.svc.UpdateIngredient(c.UserContext(), id, body)
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditUpdate
		opts.EntityType = "ingredient"
		opts.EntityID = id
		opts.Description = fmt.Sprintf("Ingredient updated: %s", after.Name)
		opts.Before = before
		opts.After = after
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.JSON(toResponse(after))
	}
}

// DELETE /api/ingredients/:id
func (h *Handler) DeleteIngredient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionDelete)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		ing, err := h.svc.DeleteIngredient(c.UserContext(), id)
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditDelete
		opts.EntityType = "ingredient"
		opts.EntityID = id
		opts.Description = fmt.Sprintf("Ingredient deleted: %s", ing.Name)
		opts.Before = ing
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/ingredients/:id/adjust
func (h *Handler) AdjustStock() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body AdjustStockRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		ing, mv, err := h.svc.AdjustStock(c.UserContext(), Adjustment{
			IngredientID: id,
			Kind:         body.Kind,
			Delta:        body.Quantity,
			Reference:    body.Reference,
			UserID:       userRef(p),
		})
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditStockAdjust
		opts.EntityType = "ingredient"
		opts.EntityID = id
		opts.Description = fmt.Sprintf("%s %+g %s of %s", mv.Kind, mv.Quantity, ing.Unit, ing.Name)
		opts.After = mv
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.JSON(fiber.Map{
			"ingredient": toResponse(ing),
			"movement":   mv,
		})
	}
}

// POST /api/ingredients/:id/count
func (h *Handler) CountStock() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body CountStockRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		ing, mv, err := h.svc.CountStock(c.UserContext(), id, body.Counted, body.Reference, userRef(p))
		if err != nil {
			return err
		}

		if mv != nil {
			opts := audit.FromRequest(c, p.UserID, p.Username)
			opts.Event = models.AuditStockAdjust
			opts.EntityType = "ingredient"
			opts.EntityID = id
			opts.Description = fmt.Sprintf("Stock count of %s: %g %s", ing.Name, body.Counted, ing.Unit)
			opts.After = mv
			_ = h.audit.WriteLog(c.UserContext(), opts)
		}

		return c.JSON(fiber.Map{
			"ingredient": toResponse(ing),
			"movement":   mv,
		})
	}
}

// GET /api/movements?ingredient_id=&kind=&sale_id=&from=&to=&limit=
// GET /api/ingredients/:id/movements
func (h *Handler) ListMovements() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceInventory, models.ActionView); err != nil {
			return err
		}
		f := MovementFilter{
			IngredientID: uint(c.QueryInt("ingredient_id")),
			Kind:         models.MovementKind(c.Query("kind")),
			SaleID:       uint(c.QueryInt("sale_id")),
			Limit:        c.QueryInt("limit"),
		}
		if c.Params("id") != "" {
			id, err := paramID(c)
			if err != nil {
				return err
			}
			f.IngredientID = id
		}
		var err error
		if f.From, err = ParseDay(c, "from"); err != nil {
			return err
		}
		if f.To, err = ParseDay(c, "to"); err != nil {
			return err
		}
		if f.To != nil {
			end := f.To.AddDate(0, 0, 1)
			f.To = &end
		}

		list, err := h.svc.ListMovements(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}
