package sales

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/costing"
	"cafe-backend/internal/models"
	"cafe-backend/internal/testutil"

	"gorm.io/gorm"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func stockOf(t *testing.T, db *gorm.DB, id uint) float64 {
	t.Helper()
	var ing models.Ingredient
	if err := db.First(&ing, id).Error; err != nil {
		t.Fatalf("reload ingredient %d: %v", id, err)
	}
	return ing.Stock
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// espresso sets up Coffee (unit cost 10, stock 10) and Espresso (1 coffee, margin 0.2).
func espresso(t *testing.T) (*gorm.DB, *Service, models.Ingredient, models.Recipe) {
	t.Helper()
	db := testutil.NewDB(t)
	coffee := testutil.CreateIngredient(t, db, "Coffee", 10, 10)
	r := testutil.CreateRecipe(t, db, "Espresso", testutil.Float(0.2), testutil.Line(coffee.ID, 1, 0))
	return db, NewService(db, costing.NewEngine(0.40), nil), coffee, r
}

func TestCreateSaleEspresso(t *testing.T) {
	db, svc, coffee, r := espresso(t)

	sale, err := svc.CreateSale(context.Background(), SaleInput{Lines: []LineInput{{RecipeID: r.ID, Quantity: 2}}})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.Total != 24 {
		t.Fatalf("total = %v, want 24", sale.Total)
	}
	if len(sale.Lines) != 1 || sale.Lines[0].UnitPrice != 12 || sale.Lines[0].Subtotal != 24 || sale.Lines[0].RecipeName != "Espresso" {
		t.Fatalf("lines = %+v", sale.Lines)
	}
	if got := stockOf(t, db, coffee.ID); got != 8 {
		t.Fatalf("coffee stock = %v, want 8", got)
	}

	var mv []models.InventoryMovement
	db.Where("ingredient_id = ? AND kind = ?", coffee.ID, models.MovementSaleConsumption).Find(&mv)
	if len(mv) != 1 {
		t.Fatalf("want one sale movement, got %d", len(mv))
	}
	if mv[0].Quantity != -2 || mv[0].SaleID == nil || *mv[0].SaleID != sale.ID || mv[0].Reference != Reference(sale.ID) {
		t.Fatalf("movement = %+v", mv[0])
	}
}

func TestCreateSaleInsufficientStockHasNoSideEffects(t *testing.T) {
	db, svc, coffee, r := espresso(t)

	_, err := svc.CreateSale(context.Background(), SaleInput{Lines: []LineInput{{RecipeID: r.ID, Quantity: 20}}})
	var ise *apperr.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("err = %v, want insufficient stock", err)
	}
	if ise.IngredientID != coffee.ID || ise.IngredientName != "Coffee" || ise.Available != 10 || ise.Required != 20 {
		t.Fatalf("details = %+v", ise)
	}
	if got := stockOf(t, db, coffee.ID); got != 10 {
		t.Fatalf("coffee stock = %v, want 10", got)
	}
	if n := count(t, db, &models.Sale{}); n != 0 {
		t.Fatalf("%d sales persisted", n)
	}
	if n := count(t, db, &models.SaleLine{}); n != 0 {
		t.Fatalf("%d sale lines persisted", n)
	}
	if n := count(t, db, &models.InventoryMovement{}); n != 0 {
		t.Fatalf("%d movements persisted", n)
	}
}

func TestCreateSaleChecksAggregateAcrossLines(t *testing.T) {
	db := testutil.NewDB(t)
	coffee := testutil.CreateIngredient(t, db, "Coffee", 1, 10)
	milk := testutil.CreateIngredient(t, db, "Milk", 1, 100)
	esp := testutil.CreateRecipe(t, db, "Espresso", nil, testutil.Line(coffee.ID, 1, 0))
	latte := testutil.CreateRecipe(t, db, "Latte", nil, testutil.Line(coffee.ID, 1, 0), testutil.Line(milk.ID, 2, 0))
	svc := NewService(db, costing.NewEngine(0.4), nil)

	// each line alone fits (6 and 6 of 10), together they do not
	_, err := svc.CreateSale(context.Background(), SaleInput{Lines: []LineInput{
		{RecipeID: esp.ID, Quantity: 6},
		{RecipeID: latte.ID, Quantity: 6},
	}})
	var ise *apperr.InsufficientStockError
	if !errors.As(err, &ise) || ise.IngredientID != coffee.ID || ise.Required != 12 {
		t.Fatalf("err = %v, want insufficient coffee (12)", err)
	}
	if stockOf(t, db, coffee.ID) != 10 || stockOf(t, db, milk.ID) != 100 {
		t.Fatalf("stock changed on failed sale")
	}
}

func TestCreateSaleMultiLineWithWaste(t *testing.T) {
	db := testutil.NewDB(t)
	coffee := testutil.CreateIngredient(t, db, "Coffee", 0.5, 100)
	milk := testutil.CreateIngredient(t, db, "Milk", 2, 10)
	esp := testutil.CreateRecipe(t, db, "Espresso", testutil.Float(1), testutil.Line(coffee.ID, 2, 0))
	latte := testutil.CreateRecipe(t, db, "Latte", nil, testutil.Line(coffee.ID, 2, 0.5), testutil.Line(milk.ID, 0.25, 0.2))
	svc := NewService(db, costing.NewEngine(0.4), nil)

	sale, err := svc.CreateSale(context.Background(), SaleInput{Lines: []LineInput{
		{RecipeID: esp.ID, Quantity: 3},
		{RecipeID: latte.ID, Quantity: 2},
		{RecipeID: esp.ID, Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// coffee: 2*3 + 2*1.5*2 + 2*1 = 14; milk: 0.25*1.2*2 = 0.6
	if got := stockOf(t, db, coffee.ID); !approx(got, 86) {
		t.Fatalf("coffee = %v", got)
	}
	if got := stockOf(t, db, milk.ID); !approx(got, 9.4) {
		t.Fatalf("milk = %v", got)
	}

	sum := 0.0
	for _, l := range sale.Lines {
		sum += l.Subtotal
	}
	if sale.Total != sum {
		t.Fatalf("total %v != sum of subtotals %v", sale.Total, sum)
	}
	if len(sale.Lines) != 3 || sale.Lines[0].UnitPrice != 2 || sale.Lines[1].UnitPrice != 2.94 {
		t.Fatalf("lines = %+v", sale.Lines)
	}

	var mv []models.InventoryMovement
	db.Where("sale_id = ?", sale.ID).Order("ingredient_id").Find(&mv)
	if len(mv) != 2 {
		t.Fatalf("want one movement per ingredient, got %d", len(mv))
	}
	if !approx(mv[0].Quantity, -14) || !approx(mv[1].Quantity, -0.6) {
		t.Fatalf("movements = %+v", mv)
	}
}

func TestCreateSaleInvalidInput(t *testing.T) {
	_, svc, _, r := espresso(t)
	ctx := context.Background()

	bad := []SaleInput{
		{},
		{Lines: []LineInput{{RecipeID: r.ID, Quantity: 0}}},
		{Lines: []LineInput{{RecipeID: r.ID, Quantity: -1}}},
		{Lines: []LineInput{{RecipeID: 0, Quantity: 1}}},
	}
	for _, in := range bad {
		if _, err := svc.CreateSale(ctx, in); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("CreateSale(%+v) err = %v, want invalid input", in, err)
		}
	}
}

func TestCreateSaleUnknownReferences(t *testing.T) {
	db, svc, coffee, r := espresso(t)
	ctx := context.Background()

	if _, err := svc.CreateSale(ctx, SaleInput{Lines: []LineInput{{RecipeID: 999, Quantity: 1}}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown recipe err = %v", err)
	}

	client := uint(42)
	if _, err := svc.CreateSale(ctx, SaleInput{ClientID: &client, Lines: []LineInput{{RecipeID: r.ID, Quantity: 1}}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown client err = %v", err)
	}

	if err := db.Delete(&coffee).Error; err != nil {
		t.Fatalf("delete coffee: %v", err)
	}
	if _, err := svc.CreateSale(ctx, SaleInput{Lines: []LineInput{{RecipeID: r.ID, Quantity: 1}}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("deleted ingredient err = %v", err)
	}
	if n := count(t, db, &models.Sale{}); n != 0 {
		t.Fatalf("%d sales persisted", n)
	}
}

// The test pool has one connection, so these two transactions serialize.
// TestStockDropAfterCheckRollsBackSale covers the guarded decrement itself.
func TestConcurrentSalesDoNotOversell(t *testing.T) {
	db, svc, coffee, r := espresso(t)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateSale(context.Background(), SaleInput{Lines: []LineInput{{RecipeID: r.ID, Quantity: 6}}})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrInsufficientStock), errors.Is(err, apperr.ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d sales committed, want exactly 1", ok)
	}
	if got := stockOf(t, db, coffee.ID); got != 4 {
		t.Fatalf("coffee stock = %v, want 4", got)
	}
}

func TestSaleKeepsPriceSnapshot(t *testing.T) {
	db, svc, coffee, r := espresso(t)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, SaleInput{Lines: []LineInput{{RecipeID: r.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if err := db.Model(&coffee).Update("unit_cost", 20).Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}

	got, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.Total != 12 || got.Lines[0].UnitPrice != 12 {
		t.Fatalf("historical sale changed after repricing: %+v", got)
	}

	next, err := svc.CreateSale(ctx, SaleInput{Lines: []LineInput{{RecipeID: r.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}
	if next.Total != 24 {
		t.Fatalf("new sale should use current cost, total = %v", next.Total)
	}
}

func TestListSalesFilters(t *testing.T) {
	_, svc, _, r := espresso(t)
	ctx := context.Background()
	north, south := "north", "south"

	for _, b := range []*string{&north, &south, &north} {
		if _, err := svc.CreateSale(ctx, SaleInput{Branch: b, Lines: []LineInput{{RecipeID: r.ID, Quantity: 1}}}); err != nil {
			t.Fatalf("create sale: %v", err)
		}
	}

	all, err := svc.ListSales(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID < all[2].ID {
		t.Fatalf("want 3 sales newest first, got %+v", all)
	}
	northOnly, err := svc.ListSales(ctx, Filter{Branch: "north"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(northOnly) != 2 {
		t.Fatalf("branch filter returned %d", len(northOnly))
	}

	if _, err := svc.GetSale(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing sale err = %v", err)
	}
}

func TestSubtotalUsesUnroundedPrice(t *testing.T) {
	db := testutil.NewDB(t)
	sugar := testutil.CreateIngredient(t, db, "Sugar", 1.234, 200)
	r := testutil.CreateRecipe(t, db, "Sugar cube", testutil.Float(0), testutil.Line(sugar.ID, 1, 0))
	svc := NewService(db, costing.NewEngine(0.4), nil)

	sale, err := svc.CreateSale(context.Background(), SaleInput{Lines: []LineInput{{RecipeID: r.ID, Quantity: 100}}})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !approx(sale.Total, 123.4) || !approx(sale.Lines[0].Subtotal, 123.4) {
		t.Fatalf("total = %v subtotal = %v, want 123.4", sale.Total, sale.Lines[0].Subtotal)
	}
	if sale.Lines[0].UnitPrice != 1.23 {
		t.Fatalf("unit price = %v, want 1.23", sale.Lines[0].UnitPrice)
	}
}

// Stock drops between the availability check and the decrement, inside the
// sale's own transaction. The guarded update must reject it and roll back.
func TestStockDropAfterCheckRollsBackSale(t *testing.T) {
	db, svc, coffee, r := espresso(t)

	err := db.Callback().Create().Before("gorm:create").Register("test:drain_coffee", func(tx *gorm.DB) {
		if tx.Statement.Table != "sale_lines" {
			return
		}
		if err := tx.Session(&gorm.Session{NewDB: true}).Model(&models.Ingredient{}).
			Where("id = ?", coffee.ID).Update("stock", 1).Error; err != nil {
			tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = svc.CreateSale(context.Background(), SaleInput{Lines: []LineInput{{RecipeID: r.ID, Quantity: 2}}})
	var stockErr *apperr.InsufficientStockError
	if !errors.As(err, &stockErr) || !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("err = %v, want insufficient stock", err)
	}
	if stockErr.IngredientID != coffee.ID || stockErr.Available != 1 || stockErr.Required != 2 {
		t.Fatalf("details = %+v", stockErr)
	}

	if n := count(t, db, &models.Sale{}); n != 0 {
		t.Fatalf("%d sales persisted", n)
	}
	if n := count(t, db, &models.SaleLine{}); n != 0 {
		t.Fatalf("%d sale lines persisted", n)
	}
	if n := count(t, db, &models.InventoryMovement{}); n != 0 {
		t.Fatalf("%d movements persisted", n)
	}
	if got := stockOf(t, db, coffee.ID); got != 10 {
		t.Fatalf("coffee stock = %v, want 10", got)
	}
}
