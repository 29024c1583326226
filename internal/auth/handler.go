package auth

import (
	"errors"
	"strings"
	"time"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/audit"
	"cafe-backend/internal/config"
	"cafe-backend/internal/models"
	"cafe-backend/internal/permission"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterOwnerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Handler struct {
	cfg   *config.Config
	db    *gorm.DB
	perms *permission.Resolver
	audit *audit.Service
	log   *zap.Logger
}

func NewHandler(cfg *config.Config, db *gorm.DB, perms *permission.Resolver, auditSvc *audit.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{cfg: cfg, db: db, perms: perms, audit: auditSvc, log: log}
}

// NormalizeUsername trims and lowercases a login name.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// POST /api/auth/register-owner
// Only allowed while no owner exists.
func (h *Handler) RegisterOwner() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterOwnerRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		body.Username = NormalizeUsername(body.Username)
		body.Name = strings.TrimSpace(body.Name)
		if body.Username == "" || body.Name == "" || body.Password == "" {
			return apperr.InvalidInput("username, name and password are required")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return err
		}

		user := models.User{
			Username:     body.Username,
			Name:         body.Name,
			PasswordHash: hash,
			Role:         models.RoleOwner,
			Active:       true,
		}
		err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.User{}).Where("role = ?", models.RoleOwner).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperr.PermissionDenied("an owner already exists")
			}
			return apperr.FromDB(tx.Create(&user).Error, "username")
		})
		if err != nil {
			return err
		}

		h.log.Info("owner registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
		opts := audit.FromRequest(c, user.ID, user.Username)
		opts.Event = models.AuditCreate
		opts.EntityType = "user"
		opts.EntityID = user.ID
		opts.Description = "Owner registered"
		opts.After = user
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		})
	}
}

// POST /api/auth/login
func (h *Handler) Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.InvalidInput("invalid request body")
		}
		body.Username = NormalizeUsername(body.Username)

		var user models.User
		err := h.db.WithContext(c.UserContext()).Where("username = ?", body.Username).First(&user).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err != nil || !CheckPassword(user.PasswordHash, body.Password) || !user.Active {
			opts := audit.FromRequest(c, user.ID, body.Username)
			opts.Event = models.AuditLoginFailed
			opts.EntityType = "user"
			opts.EntityID = user.ID
			opts.Description = "Login failed for " + body.Username
			_ = h.audit.WriteLog(c.UserContext(), opts)
			h.log.Info("login failed", zap.String("username", body.Username), zap.String("ip", c.IP()))
			return apperr.Unauthenticated("invalid username or password")
		}

		token, expires, err := GenerateToken(h.cfg.JWTSecret, h.cfg.TokenTTL, &user)
		if err != nil {
			return err
		}

		opts := audit.FromRequest(c, user.ID, user.Username)
		opts.Event = models.AuditLoginSuccess
		opts.EntityType = "user"
		opts.EntityID = user.ID
		opts.Description = "Login"
		_ = h.audit.WriteLog(c.UserContext(), opts)

		return c.JSON(fiber.Map{
			"access_token": token,
			"token_type":   "bearer",
			"expires_at":   expires.UTC().Format(time.RFC3339),
			"user": fiber.Map{
				"id":       user.ID,
				"username": user.Username,
				"name":     user.Name,
				"role":     user.Role,
			},
		})
	}
}

// GET /api/auth/me
func (h *Handler) Me() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := permission.PrincipalFrom(c)
		if !ok {
			return apperr.Unauthenticated("authentication required")
		}
		var user models.User
		if err := h.db.WithContext(c.UserContext()).First(&user, p.UserID).Error; err != nil {
			return apperr.FromDB(err, "user")
		}
		matrix, err := h.perms.Effective(c.UserContext(), p)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"user":        user,
			"permissions": matrix,
		})
	}
}
