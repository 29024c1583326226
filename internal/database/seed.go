package database

import (
	"fmt"

	"cafe-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Grant struct {
	Role     models.Role
	Resource models.Resource
	Actions  []models.Action
}

var allActions = []models.Action{models.ActionView, models.ActionCreate, models.ActionEdit, models.ActionDelete}

// DefaultGrants is the base role matrix inserted on first start.
var DefaultGrants = []Grant{
	{models.RoleOwner, models.ResourceUsers, allActions},
	{models.RoleOwner, models.ResourceReports, []models.Action{models.ActionView}},
	{models.RoleOwner, models.ResourceInventory, []models.Action{models.ActionView, models.ActionEdit}},
	{models.RoleOwner, models.ResourceRecipes, []models.Action{models.ActionView, models.ActionEdit}},
	{models.RoleOwner, models.ResourceSales, []models.Action{models.ActionView}},
	{models.RoleOwner, models.ResourceClients, []models.Action{models.ActionView}},

	{models.RoleAdmin, models.ResourceUsers, []models.Action{models.ActionView, models.ActionCreate, models.ActionEdit}},
	{models.RoleAdmin, models.ResourceInventory, []models.Action{models.ActionView, models.ActionCreate, models.ActionEdit}},
	{models.RoleAdmin, models.ResourceRecipes, []models.Action{models.ActionView, models.ActionCreate, models.ActionEdit}},
	{models.RoleAdmin, models.ResourceSales, []models.Action{models.ActionView, models.ActionCreate}},
	{models.RoleAdmin, models.ResourceClients, []models.Action{models.ActionView, models.ActionCreate, models.ActionEdit}},
	{models.RoleAdmin, models.ResourceReports, []models.Action{models.ActionView}},

	{models.RoleManager, models.ResourceInventory, []models.Action{models.ActionView, models.ActionCreate, models.ActionEdit}},
	{models.RoleManager, models.ResourceRecipes, []models.Action{models.ActionView, models.ActionCreate, models.ActionEdit}},
	{models.RoleManager, models.ResourceSales, []models.Action{models.ActionView}},
	{models.RoleManager, models.ResourceReports, []models.Action{models.ActionView}},
	{models.RoleManager, models.ResourceClients, []models.Action{models.ActionView}},

	{models.RoleSeller, models.ResourceSales, []models.Action{models.ActionView, models.ActionCreate}},
	{models.RoleSeller, models.ResourceClients, []models.Action{models.ActionView, models.ActionCreate}},
	{models.RoleSeller, models.ResourceInventory, []models.Action{models.ActionView}},
	{models.RoleSeller, models.ResourceRecipes, []models.Action{models.ActionView}},
}

// Seed inserts the default role grants into an empty table. Once any grant
// exists the matrix belongs to operators and is left untouched.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.RolePermission{}).Count(&count).Error; err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	rows := make([]models.RolePermission, 0, 64)
	for _, g := range DefaultGrants {
		for _, a := range g.Actions {
			rows = append(rows, models.RolePermission{Role: g.Role, Resource: g.Resource, Action: a})
		}
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("seed role permissions: %w", err)
	}
	return nil
}
