package permission

import (
	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const ctxPrincipalKey = "principal"

// SetPrincipal stores the authenticated caller on the request.
func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(ctxPrincipalKey, p)
}

func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(ctxPrincipalKey).(Principal)
	return p, ok
}

// Check is the guard every handler calls first.
func (r *Resolver) Check(c *fiber.Ctx, res models.Resource, act models.Action) (Principal, error) {
	p, ok := PrincipalFrom(c)
	if !ok {
		return Principal{}, apperr.Unauthenticated("authentication required")
	}
	if err := r.Authorize(c.UserContext(), p, res, act); err != nil {
		return Principal{}, err
	}
	return p, nil
}
