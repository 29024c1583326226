package audit

import (
	"time"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"
	"cafe-backend/internal/permission"

	"github.com/gofiber/fiber/v2"
)

// GET /api/audit-logs?event=&user_id=&entity_type=&entity_id=&from=&to=&limit=
func ListAuditLogsHandler(svc *Service, perms *permission.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := perms.Check(c, models.ResourceReports, models.ActionView); err != nil {
			return err
		}

		f := Filter{
			Event:      models.AuditEvent(c.Query("event")),
			EntityType: c.Query("entity_type"),
			UserID:     uint(c.QueryInt("user_id")),
			EntityID:   uint(c.QueryInt("entity_id")),
			Limit:      c.QueryInt("limit"),
		}
		if v := c.Query("from"); v != "" {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				return apperr.InvalidInput("from must be YYYY-MM-DD")
			}
			f.From = &d
		}
		if v := c.Query("to"); v != "" {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				return apperr.InvalidInput("to must be YYYY-MM-DD")
			}
			end := d.AddDate(0, 0, 1)
			f.To = &end
		}

		logs, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(logs)
	}
}
