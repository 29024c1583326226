// Package testutil opens migrated in-memory databases for package tests.
package testutil

import (
	"testing"

	"cafe-backend/internal/config"
	"cafe-backend/internal/database"
	"cafe-backend/internal/models"

	"gorm.io/gorm"
)

// NewDB returns a migrated and seeded in-memory SQLite database.
// The pool holds a single connection, so concurrent transactions serialize.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.Seed(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func CreateIngredient(t *testing.T, db *gorm.DB, name string, unitCost, stock float64) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{Name: name, Unit: "u", UnitCost: unitCost, Stock: stock}
	if err := db.Create(&ing).Error; err != nil {
		t.Fatalf("create ingredient %s: %v", name, err)
	}
	return ing
}

// CreateRecipe stores a recipe; lines may be built with Line.
func CreateRecipe(t *testing.T, db *gorm.DB, name string, margin *float64, lines ...models.RecipeLine) models.Recipe {
	t.Helper()
	r := models.Recipe{Name: name, Margin: margin, Lines: lines}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("create recipe %s: %v", name, err)
	}
	return r
}

func Line(ingredientID uint, quantity, waste float64) models.RecipeLine {
	return models.RecipeLine{IngredientID: ingredientID, Quantity: quantity, Waste: waste}
}

func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{Username: username, Name: username, PasswordHash: "x", Role: role, Active: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func Float(v float64) *float64 { return &v }
