package permission

import (
	"context"
	"errors"
	"testing"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"
	"cafe-backend/internal/testutil"
)

func principal(u models.User) Principal {
	return Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func mustAllowed(t *testing.T, r *Resolver, p Principal, res models.Resource, act models.Action) bool {
	t.Helper()
	ok, err := r.IsAllowed(context.Background(), p, res, act)
	if err != nil {
		t.Fatalf("IsAllowed(%s, %s): %v", res, act, err)
	}
	return ok
}

func TestRoleGrantAllows(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, nil)
	seller := principal(testutil.CreateUser(t, db, "ana", models.RoleSeller))

	if !mustAllowed(t, r, seller, models.ResourceSales, models.ActionCreate) {
		t.Fatalf("seller should create sales")
	}
	if mustAllowed(t, r, seller, models.ResourceSales, models.ActionDelete) {
		t.Fatalf("seller should not delete sales")
	}
}

func TestDefaultDeny(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, nil)
	seller := principal(testutil.CreateUser(t, db, "ana", models.RoleSeller))

	if mustAllowed(t, r, seller, models.ResourceUsers, models.ActionView) {
		t.Fatalf("no rule must mean deny")
	}
	err := r.Authorize(context.Background(), seller, models.ResourceUsers, models.ActionView)
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("Authorize err = %v, want permission denied", err)
	}
}

func TestDenyOverrideBeatsRoleGrant(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, nil)
	ctx := context.Background()
	seller := principal(testutil.CreateUser(t, db, "ana", models.RoleSeller))

	if _, err := r.SetOverride(ctx, seller.UserID, models.ResourceSales, models.ActionCreate, false); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if mustAllowed(t, r, seller, models.ResourceSales, models.ActionCreate) {
		t.Fatalf("deny override must win over role grant")
	}

	// other users of the same role are unaffected
	other := principal(testutil.CreateUser(t, db, "luis", models.RoleSeller))
	if !mustAllowed(t, r, other, models.ResourceSales, models.ActionCreate) {
		t.Fatalf("override leaked to another user")
	}
}

func TestAllowOverrideBeatsMissingGrant(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, nil)
	ctx := context.Background()
	seller := principal(testutil.CreateUser(t, db, "ana", models.RoleSeller))

	if _, err := r.SetOverride(ctx, seller.UserID, models.ResourceReports, models.ActionView, true); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if !mustAllowed(t, r, seller, models.ResourceReports, models.ActionView) {
		t.Fatalf("allow override must win over missing role grant")
	}
}

func TestOverrideChangesApplyImmediately(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, nil)
	ctx := context.Background()
	seller := principal(testutil.CreateUser(t, db, "ana", models.RoleSeller))

	if _, err := r.SetOverride(ctx, seller.UserID, models.ResourceReports, models.ActionView, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := r.SetOverride(ctx, seller.UserID, models.ResourceReports, models.ActionView, false); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if mustAllowed(t, r, seller, models.ResourceReports, models.ActionView) {
		t.Fatalf("replaced override not honoured")
	}

	overrides, err := r.Overrides(ctx, seller.UserID)
	if err != nil || len(overrides) != 1 {
		t.Fatalf("overrides = %v, %v; want exactly one row", overrides, err)
	}

	if err := r.DeleteOverride(ctx, seller.UserID, models.ResourceReports, models.ActionView); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mustAllowed(t, r, seller, models.ResourceReports, models.ActionView) {
		t.Fatalf("without override the role decides (deny)")
	}
	err = r.DeleteOverride(ctx, seller.UserID, models.ResourceReports, models.ActionView)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete err = %v, want not found", err)
	}
}

func TestGrantAndRevoke(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, nil)
	ctx := context.Background()
	seller := principal(testutil.CreateUser(t, db, "ana", models.RoleSeller))

	if _, err := r.Grant(ctx, models.RoleSeller, models.ResourceReports, models.ActionView); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := r.Grant(ctx, models.RoleSeller, models.ResourceReports, models.ActionView); err != nil {
		t.Fatalf("grant twice should be idempotent: %v", err)
	}
	if !mustAllowed(t, r, seller, models.ResourceReports, models.ActionView) {
		t.Fatalf("granted permission not visible")
	}

	if err := r.Revoke(ctx, models.RoleSeller, models.ResourceReports, models.ActionView); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if mustAllowed(t, r, seller, models.ResourceReports, models.ActionView) {
		t.Fatalf("revoked permission still allowed")
	}
}

func TestInvalidVocabulary(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, nil)
	ctx := context.Background()

	if _, err := r.Grant(ctx, models.RoleSeller, "payroll", models.ActionView); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("unknown resource err = %v", err)
	}
	if _, err := r.Grant(ctx, "intern", models.ResourceSales, models.ActionView); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("unknown role err = %v", err)
	}
	if _, err := r.SetOverride(ctx, 999, models.ResourceSales, models.ActionView, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("override for missing user err = %v", err)
	}
}

func TestEffectiveMatrix(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewResolver(db, nil)
	ctx := context.Background()
	seller := principal(testutil.CreateUser(t, db, "ana", models.RoleSeller))

	if _, err := r.SetOverride(ctx, seller.UserID, models.ResourceSales, models.ActionView, false); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if _, err := r.SetOverride(ctx, seller.UserID, models.ResourceReports, models.ActionView, true); err != nil {
		t.Fatalf("set override: %v", err)
	}

	m, err := r.Effective(ctx, seller)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if len(m) != len(models.Resources) {
		t.Fatalf("matrix has %d resources", len(m))
	}
	for _, res := range models.Resources {
		for _, act := range models.Actions {
			if m[res][act] != mustAllowed(t, r, seller, res, act) {
				t.Fatalf("matrix disagrees with IsAllowed for %s %s", res, act)
			}
		}
	}
	if m[models.ResourceSales][models.ActionView] || !m[models.ResourceReports][models.ActionView] {
		t.Fatalf("overrides not applied: %v", m)
	}
}
