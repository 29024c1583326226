// Package permission decides whether a principal may perform an action on a
// resource. A per-user override for the exact (resource, action) pair is
// authoritative; otherwise the role grant decides; otherwise deny.
package permission

import (
	"context"
	"errors"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID   uint        `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// Matrix maps every resource to every action and whether it is allowed.
type Matrix map[models.Resource]map[models.Action]bool

type Resolver struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewResolver(db *gorm.DB, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{db: db, log: log}
}

// IsAllowed re-reads the rules on every call so writes take effect immediately.
func (r *Resolver) IsAllowed(ctx context.Context, p Principal, res models.Resource, act models.Action) (bool, error) {
	db := r.db.WithContext(ctx)

	var override models.UserPermission
	err := db.Where("user_id = ? AND resource = ? AND action = ?", p.UserID, res, act).
		Take(&override).Error
	switch {
	case err == nil:
		return override.Allowed, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	var n int64
	if err := db.Model(&models.RolePermission{}).
		Where("role = ? AND resource = ? AND action = ?", p.Role, res, act).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Authorize is IsAllowed turned into an error: PermissionDenied on deny.
func (r *Resolver) Authorize(ctx context.Context, p Principal, res models.Resource, act models.Action) error {
	ok, err := r.IsAllowed(ctx, p, res, act)
	if err != nil {
		return err
	}
	if !ok {
		r.log.Info("permission denied",
			zap.Uint("user_id", p.UserID),
			zap.String("role", string(p.Role)),
			zap.String("resource", string(res)),
			zap.String("action", string(act)),
		)
		e := apperr.PermissionDenied("not allowed to %s %s", act, res)
		e.Details = map[string]any{"resource": res, "action": act}
		return e
	}
	return nil
}

// Effective resolves the whole resource x action matrix for p with two queries.
func (r *Resolver) Effective(ctx context.Context, p Principal) (Matrix, error) {
	db := r.db.WithContext(ctx)

	var grants []models.RolePermission
	if err := db.Where("role = ?", p.Role).Find(&grants).Error; err != nil {
		return nil, err
	}
	var overrides []models.UserPermission
	if err := db.Where("user_id = ?", p.UserID).Find(&overrides).Error; err != nil {
		return nil, err
	}

	m := make(Matrix, len(models.Resources))
	for _, res := range models.Resources {
		m[res] = make(map[models.Action]bool, len(models.Actions))
		for _, act := range models.Actions {
			m[res][act] = false
		}
	}
	for _, g := range grants {
		if row, ok := m[g.Resource]; ok {
			row[g.Action] = true
		}
	}
	for _, o := range overrides {
		if row, ok := m[o.Resource]; ok {
			row[o.Action] = o.Allowed
		}
	}
	return m, nil
}

func validKey(res models.Resource, act models.Action) error {
	if !res.Valid() {
		return apperr.InvalidInput("unknown resource %q", res)
	}
	if !act.Valid() {
		return apperr.InvalidInput("unknown action %q", act)
	}
	return nil
}

// RoleGrants lists grants, optionally only those of role.
func (r *Resolver) RoleGrants(ctx context.Context, role models.Role) ([]models.RolePermission, error) {
	q := r.db.WithContext(ctx).Order("role, resource, action")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var out []models.RolePermission
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Grant is idempotent: granting an existing triple returns the stored row.
func (r *Resolver) Grant(ctx context.Context, role models.Role, res models.Resource, act models.Action) (models.RolePermission, error) {
	if !role.Valid() {
		return models.RolePermission{}, apperr.InvalidInput("unknown role %q", role)
	}
	if err := validKey(res, act); err != nil {
		return models.RolePermission{}, err
	}

	db := r.db.WithContext(ctx)
	rp := models.RolePermission{Role: role, Resource: res, Action: act}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rp).Error; err != nil {
		return models.RolePermission{}, apperr.FromDB(err, "role permission")
	}
	var stored models.RolePermission
	if err := db.Where("role = ? AND resource = ? AND action = ?", role, res, act).Take(&stored).Error; err != nil {
		return models.RolePermission{}, apperr.FromDB(err, "role permission")
	}
	return stored, nil
}

func (r *Resolver) Revoke(ctx context.Context, role models.Role, res models.Resource, act models.Action) error {
	if err := validKey(res, act); err != nil {
		return err
	}
	tx := r.db.WithContext(ctx).
		Where("role = ? AND resource = ? AND action = ?", role, res, act).
		Delete(&models.RolePermission{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return apperr.NotFound("role %s has no %s grant on %s", role, act, res)
	}
	return nil
}

func (r *Resolver) Overrides(ctx context.Context, userID uint) ([]models.UserPermission, error) {
	var out []models.UserPermission
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("resource, action").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetOverride inserts or replaces the user's override for (res, act).
func (r *Resolver) SetOverride(ctx context.Context, userID uint, res models.Resource, act models.Action, allowed bool) (models.UserPermission, error) {
	if err := validKey(res, act); err != nil {
		return models.UserPermission{}, err
	}

	db := r.db.WithContext(ctx)
	var user models.User
	if err := db.Select("id").First(&user, userID).Error; err != nil {
		return models.UserPermission{}, apperr.FromDB(err, "user")
	}

	up := models.UserPermission{UserID: userID, Resource: res, Action: act, Allowed: allowed}
	err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource"}, {Name: "action"}},
		DoUpdates: clause.AssignmentColumns([]string{"allowed", "updated_at"}),
	}).Create(&up).Error
	if err != nil {
		return models.UserPermission{}, apperr.FromDB(err, "permission override")
	}

	var stored models.UserPermission
	if err := db.Where("user_id = ? AND resource = ? AND action = ?", userID, res, act).Take(&stored).Error; err != nil {
		return models.UserPermission{}, apperr.FromDB(err, "permission override")
	}
	return stored, nil
}

func (r *Resolver) DeleteOverride(ctx context.Context, userID uint, res models.Resource, act models.Action) error {
	if err := validKey(res, act); err != nil {
		return err
	}
	tx := r.db.WithContext(ctx).
		Where("user_id = ? AND resource = ? AND action = ?", userID, res, act).
		Delete(&models.UserPermission{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return apperr.NotFound("user %d has no override for %s %s", userID, act, res)
	}
	return nil
}
