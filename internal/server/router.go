// Package server wires the HTTP surface: middleware, routes and error mapping.
package server

import (
	"strings"

	"cafe-backend/internal/admin"
	"cafe-backend/internal/audit"
	"cafe-backend/internal/auth"
	"cafe-backend/internal/config"
	"cafe-backend/internal/costing"
	"cafe-backend/internal/inventory"
	"cafe-backend/internal/logger"
	"cafe-backend/internal/partners"
	"cafe-backend/internal/permission"
	"cafe-backend/internal/recipes"
	"cafe-backend/internal/reports"
	"cafe-backend/internal/sales"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
}

// New builds the services and returns the configured fiber app.
func New(d Deps) *fiber.App {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg, db := d.Config, d.DB

	engine := costing.NewEngine(cfg.DefaultMargin)
	perms := permission.NewResolver(db, logger.Named(log, "permission"))
	auditSvc := audit.NewService(db, logger.Named(log, "audit"))

	authH := auth.NewHandler(cfg, db, perms, auditSvc, logger.Named(log, "auth"))
	adminH := admin.NewHandler(admin.NewUserService(db), perms, auditSvc, logger.Named(log, "admin"))
	invH := inventory.NewHandler(inventory.NewService(db, logger.Named(log, "inventory")), perms, auditSvc)
	recipeH := recipes.NewHandler(recipes.NewService(db, engine, logger.Named(log, "recipes")), perms, auditSvc)
	saleH := sales.NewHandler(sales.NewService(db, engine, logger.Named(log, "sales")), perms, auditSvc)
	partnerH := partners.NewHandler(partners.NewService(db), perms, auditSvc)
	reportH := reports.NewHandler(reports.NewService(db), perms)

	errHandler := ErrorHandler(logger.Named(log, "http"))
	app := fiber.New(fiber.Config{
		AppName:               "cafe-backend",
		ErrorHandler:          errHandler,
		DisableStartupMessage: true,
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(accessLog(logger.Named(log, "http"), errHandler))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-owner", authH.RegisterOwner())
	api.Post("/auth/login", authH.Login())

	// Protected
	protected := api.Group("", auth.JWTMiddleware(cfg, db))
	protected.Get("/auth/me", authH.Me())

	// Users and permissions
	protected.Get("/users", adminH.ListUsers())
	protected.Post("/users", adminH.CreateUser())
	protected.Get("/users/:id", adminH.GetUser())
	protected.Put("/users/:id", adminH.UpdateUser())
	protected.Post("/users/:id/activate", adminH.SetUserActive(true))
	protected.Post("/users/:id/deactivate", adminH.SetUserActive(false))
	protected.Get("/users/:id/permissions", adminH.UserPermissions())
	protected.Put("/users/:id/permissions", adminH.SetOverride())
	protected.Delete("/users/:id/permissions/:resource/:action", adminH.DeleteOverride())
	protected.Get("/permissions/roles", adminH.ListRoleGrants())
	protected.Post("/permissions/roles", adminH.GrantRole())
	protected.Delete("/permissions/roles/:role/:resource/:action", adminH.RevokeRole())

	// Ingredients and stock
	protected.Get("/ingredients", invH.ListIngredients())
	protected.Post("/ingredients", invH.CreateIngredient())
	protected.Post("/ingredients/import", invH.ImportIngredients())
	protected.Get("/ingredients/:id", invH.GetIngredient())
	protected.Put("/ingredients/:id", invH.UpdateIngredient())
	protected.Delete("/ingredients/:id", invH.DeleteIngredient())
	protected.Post("/ingredients/:id/adjust", invH.AdjustStock())
	protected.Post("/ingredients/:id/count", invH.CountStock())
	protected.Get("/ingredients/:id/movements", invH.ListMovements())
	protected.Get("/movements", invH.ListMovements())

	// Recipes
	protected.Get("/recipes", recipeH.List())
	protected.Post("/recipes", recipeH.Create())
	protected.Get("/recipes/:id", recipeH.Get())
	protected.Get("/recipes/:id/cost", recipeH.Cost())
	protected.Put("/recipes/:id", recipeH.Update())
	protected.Delete("/recipes/:id", recipeH.Delete())

	// Sales
	protected.Post("/sales", saleH.Create())
	protected.Get("/sales", saleH.List())
	protected.Get("/sales/:id", saleH.Get())

	// Clients and providers
	protected.Get("/clients", partnerH.ListClients())
	protected.Post("/clients", partnerH.CreateClient())
	protected.Get("/clients/:id", partnerH.GetClient())
	protected.Put("/clients/:id", partnerH.UpdateClient())
	protected.Delete("/clients/:id", partnerH.DeleteClient())
	protected.Get("/providers", partnerH.ListProviders())
	protected.Post("/providers", partnerH.CreateProvider())
	protected.Get("/providers/:id", partnerH.GetProvider())
	protected.Put("/providers/:id", partnerH.UpdateProvider())
	protected.Delete("/providers/:id", partnerH.DeleteProvider())

	// Reports and audit
	protected.Get("/reports/dashboard", reportH.Dashboard())
	protected.Get("/reports/sales", reportH.SalesPeriod())
	protected.Get("/reports/top-recipes", reportH.TopRecipes())
	protected.Get("/reports/sales.xlsx", reportH.ExportSales())
	protected.Get("/reports/movements.xlsx", reportH.ExportMovements())
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(auditSvc, perms))

	return app
}
