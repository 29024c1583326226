package recipes

import (
	"fmt"

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

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("invalid id")
	}
	return uint(id), nil
}

// GET /api/recipes?search=
func (h *Handler) List() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceRecipes, models.ActionView); err != nil {
			return err
		}
		list, err := h.svc.List(c.UserContext(), c.Query("search"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/recipes/:id
func (h *Handler) Get() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceRecipes, models.ActionView); err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		view, err := h.svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(view)
	}
}

// GET /api/recipes/:id/cost
func (h *Handler) Cost() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceRecipes, models.ActionView); err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		b, err := h.svc.Cost(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(b.View())
	}
}

// POST /api/recipes
func (h *Handler) Create() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceRecipes, models.ActionCreate)
		if err != nil {
			return err
		}
		var body RecipeInput
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		view, err := h.svc.Create(c.UserContext(), body)
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditCreate
		opts.EntityType = "recipe"
		opts.EntityID = view.ID
		opts.Description = fmt.Sprintf("Recipe created: %s", view.Name)
		opts.After = view
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.Status(fiber.StatusCreated).JSON(view)
	}
}

// PUT /api/recipes/:id
func (h *Handler) Update() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceRecipes, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body RecipeInput
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		before, after, err := h.svc.Update(c.UserContext(), id, body)
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditUpdate
		opts.EntityType = "recipe"
		opts.EntityID = id
		opts.Description = fmt.Sprintf("Recipe updated: %s", after.Name)
		opts.Before = before
		opts.After = after
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.JSON(after)
	}
}

// DELETE /api/recipes/:id
func (h *Handler) Delete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceRecipes, models.ActionDelete)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		view, err := h.svc.Delete(c.UserContext(), id)
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, p.UserID, p.Username)
		opts.Event = models.AuditDelete
		opts.EntityType = "recipe"
		opts.EntityID = id
		opts.Description = fmt.Sprintf("Recipe deleted: %s", view.Name)
		opts.Before = view
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.SendStatus(fiber.StatusNoContent)
	}
}
