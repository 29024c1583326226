package audit

import (
	"context"
	"testing"

	"cafe-backend/internal/models"
	"cafe-backend/internal/testutil"
)

func TestWriteAndListLogs(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()
	uid := uint(7)

	if err := s.WriteLog(ctx, LogOptions{
		Event:      models.AuditCreate,
		UserID:     &uid,
		UserName:   "ana",
		EntityType: "ingredient",
		EntityID:   3,
		After:      map[string]any{"name": "Milk"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteLog(ctx, LogOptions{Event: models.AuditLowStockAlert, EntityType: "ingredient", EntityID: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	all, err := s.List(ctx, Filter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("list = %v, %v", all, err)
	}

	mine, err := s.List(ctx, Filter{UserID: uid})
	if err != nil || len(mine) != 1 {
		t.Fatalf("user filter = %v, %v", mine, err)
	}
	if mine[0].AfterData != `{"name":"Milk"}` || mine[0].BeforeData != "null" {
		t.Fatalf("snapshots = %q / %q", mine[0].BeforeData, mine[0].AfterData)
	}

	alerts, err := s.List(ctx, Filter{Event: models.AuditLowStockAlert})
	if err != nil || len(alerts) != 1 || alerts[0].UserID != nil {
		t.Fatalf("event filter = %+v, %v", alerts, err)
	}
}
