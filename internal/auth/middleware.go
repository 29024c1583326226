package auth

import (
	"errors"
	"strings"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/config"
	"cafe-backend/internal/models"
	"cafe-backend/internal/permission"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// JWTMiddleware verifies the bearer token and reloads the user, so role
// changes and deactivation apply to tokens already issued.
func JWTMiddleware(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Unauthenticated("missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return apperr.Unauthenticated("Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return apperr.Unauthenticated("invalid or expired token")
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthenticated("user no longer exists")
			}
			return err
		}
		if !user.Active {
			return apperr.PermissionDenied("user is deactivated")
		}

		permission.SetPrincipal(c, permission.Principal{
			UserID:   user.ID,
			Username: user.Username,
			Role:     user.Role,
		})
		return c.Next()
	}
}
