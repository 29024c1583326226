package partners

import (
	"fmt"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/audit"
	"cafe-backend/internal/models"
	"cafe-backend/internal/permission"

	"github.com/gofiber/fiber/v2"
)

// Clients are guarded by the clients resource, providers by inventory.
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

func (h *Handler) record(c *fiber.Ctx, p permission.Principal, event models.AuditEvent, entity string, id uint, desc string, before, after any) {
	opts := audit.FromRequest(c, p.UserID, p.Username)
	opts.Event = event
	opts.EntityType = entity
	opts.EntityID = id
	opts.Description = desc
	opts.Before = before
	opts.After = after
	_ = h.audit.WriteLog(c.UserContext(), opts)
}

// GET /api/clients?search=
func (h *Handler) ListClients() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceClients, models.ActionView); err != nil {
			return err
		}
		list, err := h.svc.ListClients(c.UserContext(), c.Query("search"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/clients/:id
func (h *Handler) GetClient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceClients, models.ActionView); err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		client, err := h.svc.GetClient(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(client)
	}
}

// POST /api/clients
func (h *Handler) CreateClient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceClients, models.ActionCreate)
		if err != nil {
			return err
		}
		var body ClientInput
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		client, err := h.svc.CreateClient(c.UserContext(), body)
		if err != nil {
			return err
		}
		h.record(c, p, models.AuditCreate, "client", client.ID, fmt.Sprintf("Client created: %s", client.Name), nil, client)
		return c.Status(fiber.StatusCreated).JSON(client)
	}
}

// PUT /api/clients/:id
func (h *Handler) UpdateClient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceClients, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body ClientInput
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		before, after, err := h.svc.UpdateClient(c.UserContext(), id, body)
		if err != nil {
			return err
		}
		h.record(c, p, models.AuditUpdate, "client", id, fmt.Sprintf("Client updated: %s", after.Name), before, after)
		return c.JSON(after)
	}
}

// DELETE /api/clients/:id
func (h *Handler) DeleteClient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceClients, models.ActionDelete)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		client, err := h.svc.DeleteClient(c.UserContext(), id)
		if err != nil {
			return err
		}
		h.record(c, p, models.AuditDelete, "client", id, fmt.Sprintf("Client deleted: %s", client.Name), client, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/providers?search=
func (h *Handler) ListProviders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceInventory, models.ActionView); err != nil {
			return err
		}
		list, err := h.svc.ListProviders(c.UserContext(), c.Query("search"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/providers/:id
func (h *Handler) GetProvider() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceInventory, models.ActionView); err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		prov, err := h.svc.GetProvider(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(prov)
	}
}

// POST /api/providers
func (h *Handler) CreateProvider() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionCreate)
		if err != nil {
			return err
		}
		var body ProviderInput
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		prov, err := h.svc.CreateProvider(c.UserContext(), body)
		if err != nil {
			return err
		}
		h.record(c, p, models.AuditCreate, "provider", prov.ID, fmt.Sprintf("Provider created: %s", prov.Name), nil, prov)
		return c.Status(fiber.StatusCreated).JSON(prov)
	}
}

// PUT /api/providers/:id
func (h *Handler) UpdateProvider() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body ProviderInput
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		before, after, err := h.svc.UpdateProvider(c.UserContext(), id, body)
		if err != nil {
			return err
		}
		h.record(c, p, models.AuditUpdate, "provider", id, fmt.Sprintf("Provider updated: %s", after.Name), before, after)
		return c.JSON(after)
	}
}

// DELETE /api/providers/:id
func (h *Handler) DeleteProvider() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceInventory, models.ActionDelete)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		prov, err := h.svc.DeleteProvider(c.UserContext(), id)
		if err != nil {
			return err
		}
		h.record(c, p, models.AuditDelete, "provider", id, fmt.Sprintf("Provider deleted: %s", prov.Name), prov, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
