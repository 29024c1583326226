package admin

import (
	"fmt"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/audit"
	"cafe-backend/internal/models"
	"cafe-backend/internal/permission"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type RoleGrantRequest struct {
	Role     models.Role     `json:"role"`
	Resource models.Resource `json:"resource"`
	Action   models.Action   `json:"action"`
}

type OverrideRequest struct {
	Resource models.Resource `json:"resource"`
	Action   models.Action   `json:"action"`
	Allowed  bool            `json:"allowed"`
}

type Handler struct {
	users *UserService
	perms *permission.Resolver
	audit *audit.Service
	log   *zap.Logger
}

func NewHandler(users *UserService, perms *permission.Resolver, auditSvc *audit.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{users: users, perms: perms, audit: auditSvc, log: log}
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

// GET /api/users?role=&active=true
func (h *Handler) ListUsers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceUsers, models.ActionView); err != nil {
			return err
		}
		list, err := h.users.List(c.UserContext(), models.Role(c.Query("role")), c.QueryBool("active"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// GET /api/users/:id
func (h *Handler) GetUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceUsers, models.ActionView); err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		u, err := h.users.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

// POST /api/users
func (h *Handler) CreateUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceUsers, models.ActionCreate)
		if err != nil {
			return err
		}
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		u, err := h.users.Create(c.UserContext(), body)
		if err != nil {
			return err
		}
		h.record(c, p, models.AuditCreate, "user", u.ID, fmt.Sprintf("User created: %s (%s)", u.Username, u.Role), nil, u)
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// PUT /api/users/:id
func (h *Handler) UpdateUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceUsers, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		before, after, err := h.users.Update(c.UserContext(), id, body)
		if err != nil {
			return err
		}
		h.record(c, p, models.AuditUpdate, "user", id, fmt.Sprintf("User updated: %s", after.Username), before, after)
		return c.JSON(after)
	}
}

// POST /api/users/:id/activate, POST /api/users/:id/deactivate
func (h *Handler) SetUserActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceUsers, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		u, err := h.users.SetActive(c.UserContext(), id, active)
		if err != nil {
			return err
		}
		state := "deactivated"
		if active {
			state = "activated"
		}
		h.record(c, p, models.AuditUpdate, "user", id, fmt.Sprintf("User %s: %s", state, u.Username), nil, u)
		return c.JSON(u)
	}
}

// GET /api/permissions/roles?role=
func (h *Handler) ListRoleGrants() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceUsers, models.ActionView); err != nil {
			return err
		}
		list, err := h.perms.RoleGrants(c.UserContext(), models.Role(c.Query("role")))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// POST /api/permissions/roles
func (h *Handler) GrantRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceUsers, models.ActionEdit)
		if err != nil {
			return err
		}
		var body RoleGrantRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		rp, err := h.perms.Grant(c.UserContext(), body.Role, body.Resource, body.Action)
		if err != nil {
			return err
		}
		h.log.Info("role permission granted",
			zap.String("role", string(rp.Role)), zap.String("resource", string(rp.Resource)), zap.String("action", string(rp.Action)))
		h.record(c, p, models.AuditPermission, "role_permission", rp.ID,
			fmt.Sprintf("Granted %s %s to %s", rp.Action, rp.Resource, rp.Role), nil, rp)
		return c.Status(fiber.StatusCreated).JSON(rp)
	}
}

// DELETE /api/permissions/roles/:role/:resource/:action
func (h *Handler) RevokeRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceUsers, models.ActionEdit)
		if err != nil {
			return err
		}
		role := models.Role(c.Params("role"))
		res := models.Resource(c.Params("resource"))
		act := models.Action(c.Params("action"))
		if err := h.perms.Revoke(c.UserContext(), role, res, act); err != nil {
			return err
		}
		h.record(c, p, models.AuditPermission, "role_permission", 0,
			fmt.Sprintf("Revoked %s %s from %s", act, res, role), RoleGrantRequest{role, res, act}, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/users/:id/permissions
func (h *Handler) UserPermissions() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := h.perms.Check(c, models.ResourceUsers, models.ActionView); err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		u, err := h.users.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		overrides, err := h.perms.Overrides(c.UserContext(), id)
		if err != nil {
			return err
		}
		matrix, err := h.perms.Effective(c.UserContext(), permission.Principal{UserID: u.ID, Username: u.Username, Role: u.Role})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"user_id":   u.ID,
			"role":      u.Role,
			"overrides": overrides,
			"effective": matrix,
		})
	}
}

// PUT /api/users/:id/permissions
func (h *Handler) SetOverride() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceUsers, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body OverrideRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		up, err := h.perms.SetOverride(c.UserContext(), id, body.Resource, body.Action, body.Allowed)
		if err != nil {
			return err
		}
		verb := "Denied"
		if up.Allowed {
			verb = "Allowed"
		}
		h.record(c, p, models.AuditPermission, "user_permission", up.ID,
			fmt.Sprintf("%s %s %s for user %d", verb, up.Action, up.Resource, id), nil, up)
		return c.JSON(up)
	}
}

// DELETE /api/users/:id/permissions/:resource/:action
func (h *Handler) DeleteOverride() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.perms.Check(c, models.ResourceUsers, models.ActionEdit)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		res := models.Resource(c.Params("resource"))
		act := models.Action(c.Params("action"))
		if err := h.perms.DeleteOverride(c.UserContext(), id, res, act); err != nil {
			return err
		}
		h.record(c, p, models.AuditPermission, "user_permission", 0,
			fmt.Sprintf("Removed %s %s override for user %d", act, res, id), nil, nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
