package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"
	"cafe-backend/internal/testutil"
)

func movements(t *testing.T, s *Service, ingredientID uint) []models.InventoryMovement {
	t.Helper()
	list, err := s.ListMovements(context.Background(), MovementFilter{IngredientID: ingredientID})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	return list
}

func TestCreateIngredientBooksInitialStock(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)

	ing, err := s.CreateIngredient(context.Background(), IngredientInput{Name: " Milk ", Unit: "l", UnitCost: 1.2, Stock: 12}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ing.Name != "Milk" || ing.Stock != 12 {
		t.Fatalf("ingredient = %+v", ing)
	}
	mv := movements(t, s, ing.ID)
	if len(mv) != 1 || mv[0].Kind != models.MovementInbound || mv[0].Quantity != 12 {
		t.Fatalf("movements = %+v", mv)
	}

	empty, err := s.CreateIngredient(context.Background(), IngredientInput{Name: "Cocoa"}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if empty.Unit != "pcs" || len(movements(t, s, empty.ID)) != 0 {
		t.Fatalf("zero stock should default unit and record nothing: %+v", empty)
	}
}

func TestCreateIngredientValidation(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()

	cases := []IngredientInput{
		{Name: ""},
		{Name: "Milk", UnitCost: -1},
		{Name: "Milk", Stock: -3},
		{Name: "Milk", ReorderLevel: testutil.Float(-1)},
	}
	for _, in := range cases {
		if _, err := s.CreateIngredient(ctx, in, nil); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("CreateIngredient(%+v) err = %v, want invalid input", in, err)
		}
	}

	missing := uint(42)
	if _, err := s.CreateIngredient(ctx, IngredientInput{Name: "Milk", ProviderID: &missing}, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown provider err = %v", err)
	}
}

func TestAdjustStockKeepsLedgerInStep(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()
	ing := testutil.CreateIngredient(t, db, "Coffee", 10, 5)

	got, mv, err := s.AdjustStock(ctx, Adjustment{IngredientID: ing.ID, Kind: models.MovementInbound, Delta: 3, Reference: "delivery"})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if got.Stock != 8 || mv.Quantity != 3 {
		t.Fatalf("after inbound stock=%v mv=%+v", got.Stock, mv)
	}

	got, _, err = s.AdjustStock(ctx, Adjustment{IngredientID: ing.ID, Kind: models.MovementSpoilage, Delta: -2, Reference: "spilled"})
	if err != nil {
		t.Fatalf("spoilage: %v", err)
	}
	if got.Stock != 6 {
		t.Fatalf("after spoilage stock=%v", got.Stock)
	}

	sum := 0.0
	for _, m := range movements(t, s, ing.ID) {
		sum += m.Quantity
	}
	if 5+sum != got.Stock {
		t.Fatalf("ledger sum %v does not explain stock %v", sum, got.Stock)
	}
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ing := testutil.CreateIngredient(t, db, "Coffee", 10, 5)

	_, _, err := s.AdjustStock(context.Background(), Adjustment{IngredientID: ing.ID, Kind: models.MovementOutbound, Delta: -6})
	var ise *apperr.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("err = %v, want insufficient stock", err)
	}
	if ise.Available != 5 || ise.Required != 6 || ise.IngredientName != "Coffee" {
		t.Fatalf("details = %+v", ise)
	}

	var reread models.Ingredient
	db.First(&reread, ing.ID)
	if reread.Stock != 5 || len(movements(t, s, ing.ID)) != 0 {
		t.Fatalf("failed adjustment left side effects: stock=%v", reread.Stock)
	}
}

func TestAdjustStockSignRules(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()
	ing := testutil.CreateIngredient(t, db, "Coffee", 10, 5)

	bad := []Adjustment{
		{IngredientID: ing.ID, Kind: models.MovementInbound, Delta: -1},
		{IngredientID: ing.ID, Kind: models.MovementSpoilage, Delta: 1},
		{IngredientID: ing.ID, Kind: models.MovementAdjustment, Delta: 0},
		{IngredientID: ing.ID, Kind: "gift", Delta: 1},
		{IngredientID: ing.ID, Kind: models.MovementSaleConsumption, Delta: -1, Reference: "sale #1"},
	}
	for _, a := range bad {
		if _, _, err := s.AdjustStock(ctx, a); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("AdjustStock(%+v) err = %v, want invalid input", a, err)
		}
	}

	if _, _, err := s.AdjustStock(ctx, Adjustment{IngredientID: 999, Kind: models.MovementInbound, Delta: 1}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing ingredient err = %v", err)
	}
}

func TestRecordRequiresExistingIngredient(t *testing.T) {
	db := testutil.NewDB(t)
	saleID := uint(1)
	_, err := Record(context.Background(), db, Entry{
		IngredientID: 77,
		Kind:         models.MovementSaleConsumption,
		Delta:        -1,
		Reference:    "sale #1",
		SaleID:       &saleID,
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}

	ing := testutil.CreateIngredient(t, db, "Coffee", 10, 5)
	if _, err := Record(context.Background(), db, Entry{IngredientID: ing.ID, Kind: models.MovementSaleConsumption, Delta: -1}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("sale consumption without sale reference err = %v", err)
	}
}

func TestCountStockBooksDifference(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()
	ing := testutil.CreateIngredient(t, db, "Sugar", 0.01, 1000)

	got, mv, err := s.CountStock(ctx, ing.ID, 940, "weekly count", nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got.Stock != 940 || mv == nil || mv.Quantity != -60 || mv.Kind != models.MovementAdjustment {
		t.Fatalf("stock=%v mv=%+v", got.Stock, mv)
	}

	_, mv, err = s.CountStock(ctx, ing.ID, 940, "", nil)
	if err != nil || mv != nil {
		t.Fatalf("unchanged count should record nothing: mv=%v err=%v", mv, err)
	}
}

func TestCountStockLongReferenceFits(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()
	ing := testutil.CreateIngredient(t, db, "Flour", 0.5, 1000)

	ref := strings.Repeat("é", 99) + "x"
	_, mv, err := s.CountStock(ctx, ing.ID, 990, ref, nil)
	if err != nil {
		t.Fatalf("count with %d-byte reference: %v", len(ref), err)
	}
	if len(mv.Reference) > maxReferenceLen || !strings.HasSuffix(mv.Reference, " (was 1000)") || !strings.HasPrefix(mv.Reference, "é") {
		t.Fatalf("reference = %q (%d bytes)", mv.Reference, len(mv.Reference))
	}

	_, _, err = s.CountStock(ctx, ing.ID, 980, strings.Repeat("a", maxReferenceLen+1), nil)
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("oversized reference err = %v, want invalid input", err)
	}
}

func TestDeleteIngredientIsSoft(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()
	ing, err := s.CreateIngredient(ctx, IngredientInput{Name: "Syrup", Stock: 2}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.DeleteIngredient(ctx, ing.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetIngredient(ctx, ing.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("deleted ingredient still visible: %v", err)
	}
	if len(movements(t, s, ing.ID)) != 1 {
		t.Fatalf("ledger history lost on delete")
	}
	if _, _, err := s.AdjustStock(ctx, Adjustment{IngredientID: ing.ID, Kind: models.MovementInbound, Delta: 1}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("adjusting a deleted ingredient err = %v", err)
	}
}

func TestUpdateIngredientDoesNotTouchStock(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ing := testutil.CreateIngredient(t, db, "Milk", 1, 7)

	cost := 1.5
	level := 2.0
	before, after, err := s.UpdateIngredient(context.Background(), ing.ID, IngredientUpdate{UnitCost: &cost, ReorderLevel: &level})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if before.UnitCost != 1 || after.UnitCost != 1.5 || after.Stock != 7 {
		t.Fatalf("before=%+v after=%+v", before, after)
	}
	if after.ReorderLevel == nil || *after.ReorderLevel != 2 {
		t.Fatalf("reorder level not stored")
	}
}

func TestLowStock(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	ctx := context.Background()

	low, _ := s.CreateIngredient(ctx, IngredientInput{Name: "Beans", Stock: 1, ReorderLevel: testutil.Float(2)}, nil)
	if _, err := s.CreateIngredient(ctx, IngredientInput{Name: "Cups", Stock: 50, ReorderLevel: testutil.Float(10)}, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateIngredient(ctx, IngredientInput{Name: "Lids"}, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := s.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(list) != 1 || list[0].ID != low.ID {
		t.Fatalf("low stock = %+v", list)
	}
}
