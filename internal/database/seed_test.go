package database

import (
	"testing"

	"cafe-backend/internal/config"
	"cafe-backend/internal/models"
)

func TestSeedIdempotent(t *testing.T) {
	db, err := Open(config.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Seed(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var first int64
	db.Model(&models.RolePermission{}).Count(&first)
	if first == 0 {
		t.Fatalf("expected seeded grants")
	}
	if err := Seed(db); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var second int64
	db.Model(&models.RolePermission{}).Count(&second)
	if first != second {
		t.Fatalf("seed duplicated rows: %d -> %d", first, second)
	}

	var n int64
	db.Model(&models.RolePermission{}).
		Where("role = ? AND resource = ? AND action = ?", models.RoleSeller, models.ResourceSales, models.ActionCreate).
		Count(&n)
	if n != 1 {
		t.Fatalf("seller should be able to create sales, got %d rows", n)
	}
}
